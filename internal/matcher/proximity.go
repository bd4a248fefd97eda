package matcher

import (
	"sort"

	"invoice-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// matchByProximity implements Pass 7. For each invoice, in appearance
// order, it searches the melted ledger view for entries whose amount
// falls within the tolerance, whose date falls within the window, and
// whose amount is NOT exactly equal to the invoice amount (exact
// amounts were exhausted by earlier passes; excluding them here keeps
// the label honest). Among the candidates the one with the smallest
// absolute amount difference wins, tie-broken by smallest day
// difference and then lowest movement ID so that results are
// deterministic.
//
// The pass is greedy and invoice-order-dependent: once an entry's
// movement is claimed it is unavailable to every later invoice in this
// pass, even if that invoice would have a smaller amount difference.
func matchByProximity(
	invoices []*models.Invoice,
	movements []*models.LedgerMovement,
	tolerance decimal.Decimal,
	windowDays int,
	label string,
) []*models.MatchRecord {
	if len(invoices) == 0 || len(movements) == 0 {
		return nil
	}

	// Entries without a date cannot satisfy the date window.
	var dated []models.LedgerEntry
	for _, entry := range models.Melt(movements) {
		if entry.HasDate {
			dated = append(dated, entry)
		}
	}
	if len(dated) == 0 {
		return nil
	}
	index := NewEntryIndex(dated)
	byID := movementsByID(movements)

	type candidate struct {
		entry      models.LedgerEntry
		amountDiff decimal.Decimal
		dayDiff    int
	}

	claimed := make(map[int]bool)
	var records []*models.MatchRecord

	for _, inv := range invoices {
		if inv.IssueDate.IsZero() {
			continue
		}

		minAmount := inv.Amount.Sub(tolerance)
		maxAmount := inv.Amount.Add(tolerance)

		var candidates []candidate
		for _, entry := range index.GetByAmountRange(minAmount, maxAmount) {
			if entry.Amount.Equal(inv.Amount) {
				continue
			}
			dayDiff := models.DayDifference(inv.IssueDate, entry.Date)
			if dayDiff > windowDays {
				continue
			}
			candidates = append(candidates, candidate{
				entry:      entry,
				amountDiff: entry.Amount.Sub(inv.Amount).Abs(),
				dayDiff:    dayDiff,
			})
		}
		if len(candidates) == 0 {
			continue
		}

		sort.SliceStable(candidates, func(i, j int) bool {
			if !candidates[i].amountDiff.Equal(candidates[j].amountDiff) {
				return candidates[i].amountDiff.LessThan(candidates[j].amountDiff)
			}
			if candidates[i].dayDiff != candidates[j].dayDiff {
				return candidates[i].dayDiff < candidates[j].dayDiff
			}
			return candidates[i].entry.MovementID < candidates[j].entry.MovementID
		})

		for _, cand := range candidates {
			if claimed[cand.entry.MovementID] {
				continue
			}
			claimed[cand.entry.MovementID] = true
			records = append(records, &models.MatchRecord{
				Invoice:            inv,
				Movement:           byID[cand.entry.MovementID],
				MatchType:          label,
				AmountDifference:   cand.amountDiff,
				DateDifferenceDays: cand.dayDiff,
			})
			break
		}
	}

	return records
}
