package matcher

import (
	"math"
	"sort"

	"invoice-reconciliation-service/internal/models"
)

// noDateWindow disables the date constraint of matchByExactAmount.
const noDateWindow = -1

// unknownDayDiff sorts pairs with an unknown day difference after
// every pair whose difference is known.
const unknownDayDiff = math.MaxInt32

// matchByExactAmount is the shared primitive behind Passes 4, 5 and 6.
// Invoices are inner-joined to the melted ledger view on exact rounded
// amount equality. With a finite window only pairs whose absolute day
// difference is within the window (inclusive) survive; entries without
// a date are excluded. With noDateWindow every pair survives, entries
// without a date included, and pairs are sorted ascending by
// (invoice ID, day difference) so that after de-duplication each
// invoice prefers its temporally closest candidate.
func matchByExactAmount(
	invoices []*models.Invoice,
	movements []*models.LedgerMovement,
	dateWindowDays int,
	label string,
) []*models.MatchRecord {
	if len(invoices) == 0 || len(movements) == 0 {
		return nil
	}

	entries := models.Melt(movements)
	if len(entries) == 0 {
		return nil
	}
	index := NewEntryIndex(entries)
	byID := movementsByID(movements)

	type scoredPair struct {
		pair
		dayDiff int
	}

	var joined []scoredPair
	for _, inv := range invoices {
		for _, entry := range index.GetByExactAmount(inv.Amount) {
			dayDiff := unknownDayDiff
			if entry.HasDate {
				dayDiff = models.DayDifference(inv.IssueDate, entry.Date)
			}

			if dateWindowDays != noDateWindow {
				if !entry.HasDate || dayDiff > dateWindowDays {
					continue
				}
			}

			joined = append(joined, scoredPair{
				pair: pair{
					invoice:  inv,
					movement: byID[entry.MovementID],
					entry:    entry,
				},
				dayDiff: dayDiff,
			})
		}
	}

	if dateWindowDays == noDateWindow {
		sort.SliceStable(joined, func(i, j int) bool {
			if joined[i].invoice.ID != joined[j].invoice.ID {
				return joined[i].invoice.ID < joined[j].invoice.ID
			}
			return joined[i].dayDiff < joined[j].dayDiff
		})
	}

	pairs := make([]pair, 0, len(joined))
	for _, sp := range joined {
		pairs = append(pairs, sp.pair)
	}

	return buildRecords(dedupePairs(pairs), label)
}
