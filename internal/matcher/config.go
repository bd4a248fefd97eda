// Package matcher implements the core multi-pass matching engine. The
// cascade runs a fixed sequence of strategies ordered from highest to
// lowest confidence; every pass consumes the unmatched remainder of the
// previous pass and produces match records plus new remainders, so each
// invoice and each ledger movement is consumed at most once.
//
// Pass order:
//  0. noise filter on ledger descriptions
//  1. embedded identifier equi-join
//  2. sequence number as standalone word + equal amount
//  3. sequence number as suffix + equal amount
//  4. exact amount within 5 days
//  5. exact amount within 30 days
//  6. exact amount with no date constraint
//  7. amount within tolerance and date window (exact amounts excluded)
//  8. optional classifier scoring of the pre-filtered remainder
//
// Example usage:
//
//	pipeline := matcher.NewPipeline(matcher.DefaultConfig())
//	result, err := pipeline.Run(invoices, movements)
package matcher

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Match type labels produced by the cascade. The proximity and
// classifier labels are parameterized and built by ProximityLabel and
// ClassifierLabel.
const (
	LabelUUID          = "UUID"
	LabelFolioAmount   = "Folio+Monto"
	LabelPartialFolio  = "FolioParcial+Monto"
	LabelAmount5Days   = "Monto+Fecha(5d)"
	LabelAmount30Days  = "Monto+Fecha(30d)"
	LabelAmountOnly    = "Monto(Solo)"
	labelProximityBase = "Monto_Proximo"
	labelClassifierBase = "IA_Prediccion"
)

// ProximityLabel builds the Pass 7 label with the tolerance embedded,
// e.g. "Monto_Proximo($1.00)".
func ProximityLabel(tolerance decimal.Decimal) string {
	return fmt.Sprintf("%s($%s)", labelProximityBase, tolerance.StringFixed(2))
}

// ClassifierLabel builds the Pass 8 label with the acceptance threshold
// embedded, e.g. "IA_Prediccion(0.90)".
func ClassifierLabel(threshold float64) string {
	return fmt.Sprintf("%s(%.2f)", labelClassifierBase, threshold)
}

// ConfidenceTier groups match type labels by expected reliability. The
// tier is a reporting-level classification only; it never influences
// matching decisions.
type ConfidenceTier string

const (
	TierHigh       ConfidenceTier = "high"
	TierMedium     ConfidenceTier = "medium"
	TierLow        ConfidenceTier = "low"
	TierReview     ConfidenceTier = "review"
	TierClassifier ConfidenceTier = "classifier"
)

// TierForLabel maps a match type label to its confidence tier.
func TierForLabel(label string) ConfidenceTier {
	switch label {
	case LabelUUID, LabelFolioAmount, LabelPartialFolio:
		return TierHigh
	case LabelAmount5Days:
		return TierMedium
	case LabelAmount30Days, LabelAmountOnly:
		return TierLow
	}
	if strings.HasPrefix(label, labelProximityBase+"(") {
		return TierReview
	}
	if strings.HasPrefix(label, labelClassifierBase+"(") {
		return TierClassifier
	}
	return TierReview
}

// DefaultExclusionKeywords lists the ledger description categories that
// are never reconcilable against invoices: payroll, social security,
// tax authority, housing fund, bank fees, inter-account transfers and
// generic tax entries.
var DefaultExclusionKeywords = []string{
	"NOMINA", "IMSS", "SAT", "INFONAVIT", "COMISION", "TRASPASO", "IMPUESTO",
}

// MinSequenceLength is the default minimum folio length considered by
// the sequence-number passes. Folios of one or two characters match
// almost any description through trivial substrings, so they are
// skipped.
const MinSequenceLength = 3

// Config holds the tunable parameters of the matching cascade.
type Config struct {
	// ExclusionKeywords drive the Pass 0 noise filter. An empty list
	// makes the filter a no-op.
	ExclusionKeywords []string `json:"exclusion_keywords"`

	// MinSequenceLength is the minimum folio length considered by
	// Passes 2 and 3.
	MinSequenceLength int `json:"min_sequence_length"`

	// ProximityTolerance is the Pass 7 monetary tolerance.
	ProximityTolerance decimal.Decimal `json:"proximity_tolerance"`

	// ProximityWindowDays is the Pass 7 date window.
	ProximityWindowDays int `json:"proximity_window_days"`

	// ClassifierThreshold is the minimum score at which the classifier
	// pass accepts a pair.
	ClassifierThreshold float64 `json:"classifier_threshold"`

	// ClassifierMaxAmountDiff and ClassifierMaxDayDiff bound the cheap
	// pre-filter applied to the cross product before the text
	// similarity feature is computed.
	ClassifierMaxAmountDiff decimal.Decimal `json:"classifier_max_amount_diff"`
	ClassifierMaxDayDiff    int             `json:"classifier_max_day_diff"`
}

// DefaultConfig returns the production defaults of the cascade.
func DefaultConfig() *Config {
	return &Config{
		ExclusionKeywords:       append([]string(nil), DefaultExclusionKeywords...),
		MinSequenceLength:       MinSequenceLength,
		ProximityTolerance:      decimal.NewFromFloat(1.00),
		ProximityWindowDays:     30,
		ClassifierThreshold:     0.90,
		ClassifierMaxAmountDiff: decimal.NewFromInt(100),
		ClassifierMaxDayDiff:    60,
	}
}

// Validate checks the configuration for values that would break the
// cascade's semantics.
func (c *Config) Validate() error {
	if c.MinSequenceLength < 1 {
		return fmt.Errorf("minimum sequence length must be at least 1, got %d", c.MinSequenceLength)
	}
	if c.ProximityTolerance.IsNegative() {
		return fmt.Errorf("proximity tolerance cannot be negative: %s", c.ProximityTolerance)
	}
	if c.ProximityWindowDays < 0 {
		return fmt.Errorf("proximity window cannot be negative: %d", c.ProximityWindowDays)
	}
	if c.ClassifierThreshold < 0 || c.ClassifierThreshold > 1 {
		return fmt.Errorf("classifier threshold must be in [0, 1], got %f", c.ClassifierThreshold)
	}
	if c.ClassifierMaxAmountDiff.IsNegative() {
		return fmt.Errorf("classifier amount bound cannot be negative: %s", c.ClassifierMaxAmountDiff)
	}
	if c.ClassifierMaxDayDiff < 0 {
		return fmt.Errorf("classifier day bound cannot be negative: %d", c.ClassifierMaxDayDiff)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.ExclusionKeywords = append([]string(nil), c.ExclusionKeywords...)
	return &clone
}
