package matcher

import (
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// Pipeline runs the full matching cascade. The passes are strictly
// sequential: each one operates on the exact remainder left by the
// previous one, so there is no backtracking and no re-matching.
type Pipeline struct {
	config     *Config
	classifier Classifier
	logger     logger.Logger
}

// PassSummary records the outcome of one pass for reporting.
type PassSummary struct {
	Label              string `json:"label"`
	Matches            int    `json:"matches"`
	RemainingInvoices  int    `json:"remaining_invoices"`
	RemainingMovements int    `json:"remaining_movements"`
	Skipped            bool   `json:"skipped,omitempty"`
}

// Result is the complete accounting of one pipeline run. The counts
// always reconcile: matches plus unmatched invoices equal the input
// invoices, and matches plus unmatched movements plus noise equal the
// input movements.
type Result struct {
	Matches            []*models.MatchRecord    `json:"matches"`
	UnmatchedInvoices  []*models.Invoice        `json:"unmatched_invoices"`
	UnmatchedMovements []*models.LedgerMovement `json:"unmatched_movements"`
	NoiseMovements     []*models.LedgerMovement `json:"noise_movements"`
	PassSummaries      []PassSummary            `json:"pass_summaries"`
	Summary            Summary                  `json:"summary"`
}

// Summary provides aggregate statistics about a pipeline run.
type Summary struct {
	TotalInvoices      int                    `json:"total_invoices"`
	TotalMovements     int                    `json:"total_movements"`
	MatchedPairs       int                    `json:"matched_pairs"`
	UnmatchedInvoices  int                    `json:"unmatched_invoices"`
	UnmatchedMovements int                    `json:"unmatched_movements"`
	NoiseMovements     int                    `json:"noise_movements"`
	MatchesByTier      map[ConfidenceTier]int `json:"matches_by_tier"`
}

// PipelineOption configures optional pipeline collaborators.
type PipelineOption func(*Pipeline)

// WithClassifier enables the optional Pass 8 with the given
// pre-trained classifier.
func WithClassifier(classifier Classifier) PipelineOption {
	return func(p *Pipeline) {
		p.classifier = classifier
	}
}

// WithLogger overrides the pipeline's logger.
func WithLogger(log logger.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = log
	}
}

// NewPipeline creates a pipeline with the given configuration. A nil
// config selects the defaults.
func NewPipeline(config *Config, opts ...PipelineOption) *Pipeline {
	if config == nil {
		config = DefaultConfig()
	}
	p := &Pipeline{
		config: config,
		logger: logger.WithComponent("matcher_pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns a copy of the pipeline configuration.
func (p *Pipeline) Config() *Config {
	return p.config.Clone()
}

// Run executes the cascade on the loaded working sets. Empty inputs
// are not an error: every pass treats them as "zero matches, unchanged
// remainder", so the result is always a full accounting.
func (p *Pipeline) Run(invoices []*models.Invoice, movements []*models.LedgerMovement) (*Result, error) {
	if err := p.config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "matcher_config", nil, err)
	}

	totalPasses := 8
	if p.classifier != nil {
		totalPasses = 9
	}
	tracker := logger.NewPassTracker(p.logger, totalPasses)

	result := &Result{
		Summary: Summary{
			TotalInvoices:  len(invoices),
			TotalMovements: len(movements),
			MatchesByTier:  make(map[ConfidenceTier]int),
		},
	}

	// Pass 0: noise filter. Filtered movements are reported separately
	// and never rejoin the pipeline.
	relevant, noise, err := FilterNoise(movements, p.config.ExclusionKeywords)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "exclusion_keywords", p.config.ExclusionKeywords, err)
	}
	result.NoiseMovements = noise
	result.PassSummaries = append(result.PassSummaries, PassSummary{
		Label:              "Ruido",
		Matches:            len(noise),
		RemainingInvoices:  len(invoices),
		RemainingMovements: len(relevant),
	})
	tracker.PassCompleted("noise_filter", len(noise), len(invoices), len(relevant))

	pendingInvoices, pendingMovements := invoices, relevant

	runPass := func(label string, match func([]*models.Invoice, []*models.LedgerMovement) []*models.MatchRecord) {
		records := match(pendingInvoices, pendingMovements)
		pendingInvoices, pendingMovements = subtractMatched(pendingInvoices, pendingMovements, records)
		result.Matches = append(result.Matches, records...)
		result.PassSummaries = append(result.PassSummaries, PassSummary{
			Label:              label,
			Matches:            len(records),
			RemainingInvoices:  len(pendingInvoices),
			RemainingMovements: len(pendingMovements),
		})
		tracker.PassCompleted(label, len(records), len(pendingInvoices), len(pendingMovements))
	}

	// Pass 1: embedded identifier join.
	runPass(LabelUUID, func(invs []*models.Invoice, movs []*models.LedgerMovement) []*models.MatchRecord {
		return matchByIdentifier(invs, movs)
	})

	// Passes 2-3: sequence number as whole word, then as suffix.
	runPass(LabelFolioAmount, func(invs []*models.Invoice, movs []*models.LedgerMovement) []*models.MatchRecord {
		return matchBySequencePattern(invs, movs, wholeWordTemplate, LabelFolioAmount, p.config.MinSequenceLength, p.logger)
	})
	runPass(LabelPartialFolio, func(invs []*models.Invoice, movs []*models.LedgerMovement) []*models.MatchRecord {
		return matchBySequencePattern(invs, movs, suffixTemplate, LabelPartialFolio, p.config.MinSequenceLength, p.logger)
	})

	// Passes 4-6: exact amount with tightening then absent date windows.
	runPass(LabelAmount5Days, func(invs []*models.Invoice, movs []*models.LedgerMovement) []*models.MatchRecord {
		return matchByExactAmount(invs, movs, 5, LabelAmount5Days)
	})
	runPass(LabelAmount30Days, func(invs []*models.Invoice, movs []*models.LedgerMovement) []*models.MatchRecord {
		return matchByExactAmount(invs, movs, 30, LabelAmount30Days)
	})
	runPass(LabelAmountOnly, func(invs []*models.Invoice, movs []*models.LedgerMovement) []*models.MatchRecord {
		return matchByExactAmount(invs, movs, noDateWindow, LabelAmountOnly)
	})

	// Pass 7: amount proximity.
	proximityLabel := ProximityLabel(p.config.ProximityTolerance)
	runPass(proximityLabel, func(invs []*models.Invoice, movs []*models.LedgerMovement) []*models.MatchRecord {
		return matchByProximity(invs, movs, p.config.ProximityTolerance, p.config.ProximityWindowDays, proximityLabel)
	})

	// Pass 8: optional classifier. Absence of a classifier is a pass
	// skip, never a pipeline failure.
	if p.classifier != nil {
		runPass(ClassifierLabel(p.config.ClassifierThreshold), func(invs []*models.Invoice, movs []*models.LedgerMovement) []*models.MatchRecord {
			return matchByClassifier(invs, movs, p.classifier, p.config, p.logger)
		})
	} else {
		skipErr := errors.ClassifierUnavailableError("no classifier configured")
		p.logger.WithField("reason", skipErr.Message).Debug("Skipping classifier pass")
		result.PassSummaries = append(result.PassSummaries, PassSummary{
			Label:              ClassifierLabel(p.config.ClassifierThreshold),
			RemainingInvoices:  len(pendingInvoices),
			RemainingMovements: len(pendingMovements),
			Skipped:            true,
		})
	}

	result.UnmatchedInvoices = pendingInvoices
	result.UnmatchedMovements = pendingMovements

	result.Summary.MatchedPairs = len(result.Matches)
	result.Summary.UnmatchedInvoices = len(pendingInvoices)
	result.Summary.UnmatchedMovements = len(pendingMovements)
	result.Summary.NoiseMovements = len(noise)
	for _, rec := range result.Matches {
		result.Summary.MatchesByTier[TierForLabel(rec.MatchType)]++
	}

	p.logger.WithFields(logger.Fields{
		"matched":             result.Summary.MatchedPairs,
		"unmatched_invoices":  result.Summary.UnmatchedInvoices,
		"unmatched_movements": result.Summary.UnmatchedMovements,
		"noise_movements":     result.Summary.NoiseMovements,
	}).Info("Matching cascade completed")

	return result, nil
}
