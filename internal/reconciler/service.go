// Package reconciler provides the service layer that ties together
// file loading, the matching cascade and result assembly. The CLI is a
// thin wrapper around ReconciliationService.
package reconciler

import (
	"context"
	"time"

	"invoice-reconciliation-service/internal/matcher"
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/parsers"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// ReconciliationService coordinates one reconciliation run: parse the
// invoice and ledger files, run the matching pipeline, and assemble
// the full accounting.
type ReconciliationService struct {
	invoiceParser *parsers.InvoiceParser
	ledgerParser  *parsers.LedgerParser
	pipeline      *matcher.Pipeline
	logger        logger.Logger
}

// ReconciliationRequest describes one run.
type ReconciliationRequest struct {
	InvoiceFile string
	LedgerFile  string
}

// Validate checks that the request names both input files.
func (r *ReconciliationRequest) Validate() error {
	if r.InvoiceFile == "" {
		return errors.ValidationError(errors.CodeMissingField, "invoice_file", "", nil)
	}
	if r.LedgerFile == "" {
		return errors.ValidationError(errors.CodeMissingField, "ledger_file", "", nil)
	}
	return nil
}

// ReconciliationResult carries the pipeline result together with load
// statistics and timing.
type ReconciliationResult struct {
	*matcher.Result

	InvoiceStats *parsers.ParseStats `json:"invoice_stats"`
	LedgerStats  *parsers.ParseStats `json:"ledger_stats"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// NewReconciliationService wires the loaders and the pipeline. Nil
// configurations select defaults; a nil classifier disables the
// optional classifier pass.
func NewReconciliationService(
	invoiceConfig *parsers.InvoiceParserConfig,
	ledgerConfig *parsers.LedgerParserConfig,
	matcherConfig *matcher.Config,
	classifier matcher.Classifier,
) (*ReconciliationService, error) {
	invoiceParser, err := parsers.NewInvoiceParser(invoiceConfig)
	if err != nil {
		return nil, err
	}
	ledgerParser, err := parsers.NewLedgerParser(ledgerConfig)
	if err != nil {
		return nil, err
	}
	if matcherConfig == nil {
		matcherConfig = matcher.DefaultConfig()
	}
	if err := matcherConfig.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "matcher_config", nil, err)
	}

	log := logger.WithComponent("reconciliation_service")

	opts := []matcher.PipelineOption{matcher.WithLogger(log)}
	if classifier != nil {
		opts = append(opts, matcher.WithClassifier(classifier))
	}

	return &ReconciliationService{
		invoiceParser: invoiceParser,
		ledgerParser:  ledgerParser,
		pipeline:      matcher.NewPipeline(matcherConfig, opts...),
		logger:        log,
	}, nil
}

// ProcessReconciliation runs the complete workflow for one request.
// Load failures are fatal and returned before any pass executes; once
// loading succeeds the pipeline always completes and returns a full
// accounting.
func (rs *ReconciliationService) ProcessReconciliation(
	ctx context.Context,
	request *ReconciliationRequest,
) (*ReconciliationResult, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	startedAt := time.Now()
	rs.logger.WithFields(logger.Fields{
		"invoice_file": request.InvoiceFile,
		"ledger_file":  request.LedgerFile,
	}).Info("Starting reconciliation run")

	invoices, invoiceStats, err := rs.invoiceParser.ParseInvoicesWithContext(ctx, request.InvoiceFile)
	if err != nil {
		rs.logger.WithError(err).WithField("file", request.InvoiceFile).Error("Failed to load invoice table")
		return nil, err
	}

	movements, ledgerStats, err := rs.ledgerParser.ParseMovementsWithContext(ctx, request.LedgerFile)
	if err != nil {
		rs.logger.WithError(err).WithField("file", request.LedgerFile).Error("Failed to load ledger table")
		return nil, err
	}

	pipelineResult, err := rs.pipeline.Run(invoices, movements)
	if err != nil {
		return nil, err
	}

	result := &ReconciliationResult{
		Result:       pipelineResult,
		InvoiceStats: invoiceStats,
		LedgerStats:  ledgerStats,
		StartedAt:    startedAt,
		Duration:     time.Since(startedAt),
	}

	if err := verifyConservation(result, len(invoices), len(movements)); err != nil {
		// A conservation failure is a bug in the cascade, not in the
		// data. Surface it loudly instead of reporting silently wrong
		// numbers.
		rs.logger.WithError(err).Error("Conservation check failed")
		return nil, err
	}

	rs.logger.WithFields(logger.Fields{
		"matched":             result.Summary.MatchedPairs,
		"unmatched_invoices":  result.Summary.UnmatchedInvoices,
		"unmatched_movements": result.Summary.UnmatchedMovements,
		"noise_movements":     result.Summary.NoiseMovements,
		"duration":            result.Duration.Round(time.Millisecond),
	}).Info("Reconciliation run completed")

	return result, nil
}

// verifyConservation asserts the pipeline's accounting identities:
// matches plus unmatched invoices equal the loaded invoices, and
// matches plus unmatched movements plus noise equal the loaded
// movements.
func verifyConservation(result *ReconciliationResult, totalInvoices, totalMovements int) error {
	matched := len(result.Matches)
	if matched+len(result.UnmatchedInvoices) != totalInvoices {
		return errors.InternalError("conservation_check", nil).
			WithContext("matched", matched).
			WithContext("unmatched_invoices", len(result.UnmatchedInvoices)).
			WithContext("total_invoices", totalInvoices)
	}
	if matched+len(result.UnmatchedMovements)+len(result.NoiseMovements) != totalMovements {
		return errors.InternalError("conservation_check", nil).
			WithContext("matched", matched).
			WithContext("unmatched_movements", len(result.UnmatchedMovements)).
			WithContext("noise_movements", len(result.NoiseMovements)).
			WithContext("total_movements", totalMovements)
	}
	return nil
}

// Reconcile runs the pipeline on already-loaded tables. Callers that
// do their own loading (tests, embedding programs) use this instead of
// the file-based workflow.
func (rs *ReconciliationService) Reconcile(
	invoices []*models.Invoice,
	movements []*models.LedgerMovement,
) (*matcher.Result, error) {
	return rs.pipeline.Run(invoices, movements)
}

// GetMatcherConfig returns a copy of the pipeline configuration.
func (rs *ReconciliationService) GetMatcherConfig() *matcher.Config {
	return rs.pipeline.Config()
}
