// Package reporter serializes reconciliation results. It supports
// three output formats and always groups matched pairs by confidence
// tier, mirroring the sheet layout reviewers receive from the
// original workbook-based workflow: high, medium and low confidence
// matches, proximity matches needing review, classifier matches, then
// the unmatched remainders and the noise bucket.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"invoice-reconciliation-service/internal/matcher"
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/reconciler"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported.
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// tierOrder fixes the order tiers appear in every format.
var tierOrder = []matcher.ConfidenceTier{
	matcher.TierHigh,
	matcher.TierMedium,
	matcher.TierLow,
	matcher.TierReview,
	matcher.TierClassifier,
}

// tierHeadings maps tiers to the section names shown to reviewers.
var tierHeadings = map[matcher.ConfidenceTier]string{
	matcher.TierHigh:       "Confianza Alta",
	matcher.TierMedium:     "Confianza Media",
	matcher.TierLow:        "Confianza Baja (Revisar)",
	matcher.TierReview:     "Confianza Muy Baja (Proximidad)",
	matcher.TierClassifier: "Prediccion IA",
}

// ReportConfig holds report generation options.
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	IncludeUnmatchedInvoices  bool `json:"include_unmatched_invoices"`
	IncludeUnmatchedMovements bool `json:"include_unmatched_movements"`
	IncludeNoiseMovements     bool `json:"include_noise_movements"`
	IncludePassSummaries      bool `json:"include_pass_summaries"`

	CSVDelimiter rune `json:"csv_delimiter"`
}

// DefaultReportConfig returns the default report configuration.
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:                    FormatConsole,
		IncludeUnmatchedInvoices:  true,
		IncludeUnmatchedMovements: true,
		IncludeNoiseMovements:     true,
		IncludePassSummaries:      true,
		CSVDelimiter:              ',',
	}
}

// Reporter generates reports from reconciliation results.
type Reporter struct {
	config *ReportConfig
	logger logger.Logger
}

// NewReporter creates a Reporter; a nil config selects defaults.
func NewReporter(config *ReportConfig) (*Reporter, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if !config.Format.IsValid() {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "report_format", config.Format, nil)
	}
	return &Reporter{
		config: config,
		logger: logger.WithComponent("reporter"),
	}, nil
}

// WriteReport serializes the result to the writer in the configured
// format.
func (r *Reporter) WriteReport(w io.Writer, result *reconciler.ReconciliationResult) error {
	switch r.config.Format {
	case FormatJSON:
		return r.writeJSON(w, result)
	case FormatCSV:
		return r.writeCSV(w, result)
	default:
		return r.writeConsole(w, result)
	}
}

// groupByTier partitions matches by confidence tier, preserving match
// order within each tier.
func groupByTier(matches []*models.MatchRecord) map[matcher.ConfidenceTier][]*models.MatchRecord {
	groups := make(map[matcher.ConfidenceTier][]*models.MatchRecord)
	for _, rec := range matches {
		tier := matcher.TierForLabel(rec.MatchType)
		groups[tier] = append(groups[tier], rec)
	}
	return groups
}

func (r *Reporter) writeConsole(w io.Writer, result *reconciler.ReconciliationResult) error {
	var b strings.Builder

	b.WriteString("RECONCILIATION REPORT\n")
	b.WriteString(strings.Repeat("=", 70) + "\n")
	fmt.Fprintf(&b, "Run started:  %s\n", result.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Duration:     %s\n", result.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "Invoices:     %d loaded, %d dropped at load\n",
		result.InvoiceStats.LoadedRows, result.InvoiceStats.DroppedRows)
	fmt.Fprintf(&b, "Movements:    %d loaded, %d dropped at load\n",
		result.LedgerStats.LoadedRows, result.LedgerStats.DroppedRows)
	b.WriteString("\n")

	fmt.Fprintf(&b, "Matched pairs:        %d\n", result.Summary.MatchedPairs)
	fmt.Fprintf(&b, "Unmatched invoices:   %d\n", result.Summary.UnmatchedInvoices)
	fmt.Fprintf(&b, "Unmatched movements:  %d\n", result.Summary.UnmatchedMovements)
	fmt.Fprintf(&b, "Noise movements:      %d\n", result.Summary.NoiseMovements)
	b.WriteString("\n")

	if r.config.IncludePassSummaries {
		b.WriteString("PASSES\n")
		b.WriteString(strings.Repeat("-", 70) + "\n")
		for _, ps := range result.PassSummaries {
			if ps.Skipped {
				fmt.Fprintf(&b, "  %-28s skipped\n", ps.Label)
				continue
			}
			fmt.Fprintf(&b, "  %-28s %5d matches  (%d invoices / %d movements left)\n",
				ps.Label, ps.Matches, ps.RemainingInvoices, ps.RemainingMovements)
		}
		b.WriteString("\n")
	}

	groups := groupByTier(result.Matches)
	for _, tier := range tierOrder {
		records := groups[tier]
		if len(records) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s (%d)\n", tierHeadings[tier], len(records))
		b.WriteString(strings.Repeat("-", 70) + "\n")
		for _, rec := range records {
			fmt.Fprintf(&b, "  %-22s invoice=%s movement=%d amount=%s",
				rec.MatchType, rec.Invoice.ID, rec.Movement.ID, rec.Invoice.Amount.StringFixed(2))
			if !rec.AmountDifference.IsZero() {
				fmt.Fprintf(&b, " diff=%s", rec.AmountDifference.StringFixed(2))
			}
			if rec.ClassifierProbability > 0 {
				fmt.Fprintf(&b, " p=%.2f", rec.ClassifierProbability)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if r.config.IncludeUnmatchedInvoices && len(result.UnmatchedInvoices) > 0 {
		fmt.Fprintf(&b, "UNMATCHED INVOICES (%d)\n", len(result.UnmatchedInvoices))
		b.WriteString(strings.Repeat("-", 70) + "\n")
		for _, inv := range result.UnmatchedInvoices {
			fmt.Fprintf(&b, "  %s folio=%s amount=%s issued=%s\n",
				inv.ID, inv.SequenceNumber, inv.Amount.StringFixed(2), inv.IssueDate.Format("2006-01-02"))
		}
		b.WriteString("\n")
	}

	if r.config.IncludeUnmatchedMovements && len(result.UnmatchedMovements) > 0 {
		fmt.Fprintf(&b, "UNMATCHED MOVEMENTS (%d)\n", len(result.UnmatchedMovements))
		b.WriteString(strings.Repeat("-", 70) + "\n")
		for _, lm := range result.UnmatchedMovements {
			fmt.Fprintf(&b, "  #%d debit=%s credit=%s %s\n",
				lm.ID, lm.DebitAmount.StringFixed(2), lm.CreditAmount.StringFixed(2), truncate(lm.Description, 40))
		}
		b.WriteString("\n")
	}

	if r.config.IncludeNoiseMovements && len(result.NoiseMovements) > 0 {
		fmt.Fprintf(&b, "FILTERED NOISE (%d)\n", len(result.NoiseMovements))
		b.WriteString(strings.Repeat("-", 70) + "\n")
		for _, lm := range result.NoiseMovements {
			fmt.Fprintf(&b, "  #%d %s\n", lm.ID, truncate(lm.Description, 50))
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// jsonReport is the JSON document shape.
type jsonReport struct {
	GeneratedAt   time.Time                        `json:"generated_at"`
	Duration      string                           `json:"duration"`
	Summary       matcher.Summary                  `json:"summary"`
	Passes        []matcher.PassSummary            `json:"passes,omitempty"`
	MatchesByTier map[string][]*models.MatchRecord `json:"matches_by_tier"`

	UnmatchedInvoices  []*models.Invoice        `json:"unmatched_invoices,omitempty"`
	UnmatchedMovements []*models.LedgerMovement `json:"unmatched_movements,omitempty"`
	NoiseMovements     []*models.LedgerMovement `json:"noise_movements,omitempty"`
}

func (r *Reporter) writeJSON(w io.Writer, result *reconciler.ReconciliationResult) error {
	report := jsonReport{
		GeneratedAt:   time.Now(),
		Duration:      result.Duration.String(),
		Summary:       result.Summary,
		MatchesByTier: make(map[string][]*models.MatchRecord),
	}
	if r.config.IncludePassSummaries {
		report.Passes = result.PassSummaries
	}
	for tier, records := range groupByTier(result.Matches) {
		report.MatchesByTier[string(tier)] = records
	}
	if r.config.IncludeUnmatchedInvoices {
		report.UnmatchedInvoices = result.UnmatchedInvoices
	}
	if r.config.IncludeUnmatchedMovements {
		report.UnmatchedMovements = result.UnmatchedMovements
	}
	if r.config.IncludeNoiseMovements {
		report.NoiseMovements = result.NoiseMovements
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func (r *Reporter) writeCSV(w io.Writer, result *reconciler.ReconciliationResult) error {
	writer := csv.NewWriter(w)
	writer.Comma = r.config.CSVDelimiter
	defer writer.Flush()

	header := []string{
		"section", "tier", "match_type", "invoice_id", "folio", "invoice_amount",
		"issue_date", "movement_id", "movement_date", "debit", "credit",
		"description", "amount_difference", "date_difference_days", "classifier_probability",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	groups := groupByTier(result.Matches)
	for _, tier := range tierOrder {
		for _, rec := range groups[tier] {
			row := []string{
				"match",
				string(tier),
				rec.MatchType,
				rec.Invoice.ID,
				rec.Invoice.SequenceNumber,
				rec.Invoice.Amount.StringFixed(2),
				rec.Invoice.IssueDate.Format("2006-01-02"),
				fmt.Sprintf("%d", rec.Movement.ID),
				formatMovementDate(rec.Movement),
				rec.Movement.DebitAmount.StringFixed(2),
				rec.Movement.CreditAmount.StringFixed(2),
				rec.Movement.Description,
				rec.AmountDifference.StringFixed(2),
				fmt.Sprintf("%d", rec.DateDifferenceDays),
				formatProbability(rec.ClassifierProbability),
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
	}

	if r.config.IncludeUnmatchedInvoices {
		for _, inv := range result.UnmatchedInvoices {
			row := []string{
				"unmatched_invoice", "", "", inv.ID, inv.SequenceNumber,
				inv.Amount.StringFixed(2), inv.IssueDate.Format("2006-01-02"),
				"", "", "", "", "", "", "", "",
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
	}

	writeMovements := func(section string, movements []*models.LedgerMovement) error {
		for _, lm := range movements {
			row := []string{
				section, "", "", "", "", "", "",
				fmt.Sprintf("%d", lm.ID),
				formatMovementDate(lm),
				lm.DebitAmount.StringFixed(2),
				lm.CreditAmount.StringFixed(2),
				lm.Description,
				"", "", "",
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
		return nil
	}

	if r.config.IncludeUnmatchedMovements {
		if err := writeMovements("unmatched_movement", result.UnmatchedMovements); err != nil {
			return err
		}
	}
	if r.config.IncludeNoiseMovements {
		if err := writeMovements("noise_movement", result.NoiseMovements); err != nil {
			return err
		}
	}

	return nil
}

func formatMovementDate(lm *models.LedgerMovement) string {
	if !lm.HasDate() {
		return ""
	}
	return lm.Date.Format("2006-01-02")
}

func formatProbability(p float64) string {
	if p == 0 {
		return ""
	}
	return fmt.Sprintf("%.4f", p)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
