package matcher

import (
	"sort"
	"strings"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// PairFeatures is the fixed feature vector scored by the optional
// classifier pass: the absolute amount difference, the absolute day
// difference, a folio/description text similarity in [0, 1], and a
// flag for exact amount equality.
type PairFeatures struct {
	AmountDifference   decimal.Decimal
	DayDifference      int
	SequenceSimilarity float64
	SameAmount         bool
}

// Classifier scores a candidate invoice/movement pair. Implementations
// wrap a pre-trained binary model; training is outside this module.
// Score returns the match probability in [0, 1].
type Classifier interface {
	Score(features PairFeatures) (float64, error)
}

// matchByClassifier implements Pass 8. The full cross product of the
// remaining invoices and melted entries is first pre-filtered by cheap
// amount and day bounds; the text similarity feature is computed only
// on survivors because the cross product is quadratic. Pairs scoring
// at or above the threshold are accepted highest-confidence first,
// with the usual two-stage de-duplication.
func matchByClassifier(
	invoices []*models.Invoice,
	movements []*models.LedgerMovement,
	classifier Classifier,
	cfg *Config,
	log logger.Logger,
) []*models.MatchRecord {
	if classifier == nil || len(invoices) == 0 || len(movements) == 0 {
		return nil
	}

	entries := models.Melt(movements)
	if len(entries) == 0 {
		return nil
	}
	byID := movementsByID(movements)

	type scored struct {
		pair
		features    PairFeatures
		probability float64
	}

	var accepted []scored
	for _, inv := range invoices {
		for _, entry := range entries {
			amountDiff := entry.Amount.Sub(inv.Amount).Abs()
			if amountDiff.GreaterThan(cfg.ClassifierMaxAmountDiff) {
				continue
			}
			if !entry.HasDate || inv.IssueDate.IsZero() {
				continue
			}
			dayDiff := models.DayDifference(inv.IssueDate, entry.Date)
			if dayDiff > cfg.ClassifierMaxDayDiff {
				continue
			}

			features := PairFeatures{
				AmountDifference:   amountDiff,
				DayDifference:      dayDiff,
				SequenceSimilarity: sequenceSimilarity(inv.SequenceNumber, entry.DescriptionUpper),
				SameAmount:         amountDiff.IsZero(),
			}

			probability, err := classifier.Score(features)
			if err != nil {
				log.WithError(err).WithFields(logger.Fields{
					"invoice_id":  inv.ID,
					"movement_id": entry.MovementID,
				}).Warn("Classifier failed to score pair, skipping")
				continue
			}
			if probability < cfg.ClassifierThreshold {
				continue
			}

			accepted = append(accepted, scored{
				pair: pair{
					invoice:  inv,
					movement: byID[entry.MovementID],
					entry:    entry,
				},
				features:    features,
				probability: probability,
			})
		}
	}
	if len(accepted) == 0 {
		return nil
	}

	// Highest confidence first; equal scores fall back to the smallest
	// amount difference and then movement ID for determinism.
	sort.SliceStable(accepted, func(i, j int) bool {
		if accepted[i].probability != accepted[j].probability {
			return accepted[i].probability > accepted[j].probability
		}
		if !accepted[i].features.AmountDifference.Equal(accepted[j].features.AmountDifference) {
			return accepted[i].features.AmountDifference.LessThan(accepted[j].features.AmountDifference)
		}
		return accepted[i].movement.ID < accepted[j].movement.ID
	})

	label := ClassifierLabel(cfg.ClassifierThreshold)
	seenMovements := make(map[int]bool)
	seenInvoices := make(map[string]bool)
	var records []*models.MatchRecord
	for _, s := range accepted {
		if seenMovements[s.movement.ID] || seenInvoices[s.invoice.ID] {
			continue
		}
		seenMovements[s.movement.ID] = true
		seenInvoices[s.invoice.ID] = true
		records = append(records, &models.MatchRecord{
			Invoice:               s.invoice,
			Movement:              s.movement,
			MatchType:             label,
			AmountDifference:      s.features.AmountDifference,
			DateDifferenceDays:    s.features.DayDifference,
			ClassifierProbability: s.probability,
		})
	}
	return records
}

// sequenceSimilarity measures how strongly a folio appears inside a
// ledger description: 1.0 for full containment, otherwise the fraction
// of the folio covered by its longest substring (of at least 3
// characters) found in the description, 0 when the invoice has no
// folio.
func sequenceSimilarity(folio, descriptionUpper string) float64 {
	if folio == "" {
		return 0
	}
	if strings.Contains(descriptionUpper, folio) {
		return 1
	}
	for length := len(folio) - 1; length >= 3; length-- {
		for start := 0; start+length <= len(folio); start++ {
			if strings.Contains(descriptionUpper, folio[start:start+length]) {
				return float64(length) / float64(len(folio))
			}
		}
	}
	return 0
}
