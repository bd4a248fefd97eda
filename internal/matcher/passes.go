package matcher

import (
	"invoice-reconciliation-service/internal/models"
)

// pair is a candidate pairing produced inside a pass, before
// de-duplication.
type pair struct {
	invoice  *models.Invoice
	movement *models.LedgerMovement
	// entry is the melted row that produced the pair; its date drives
	// the day-difference metadata.
	entry models.LedgerEntry
}

// dedupePairs applies the cascade's two-stage de-duplication: keep the
// first occurrence per ledger-movement ID, then the first occurrence
// per invoice ID. Ledger uniqueness is enforced before invoice
// uniqueness, matching the order used by every pass.
func dedupePairs(pairs []pair) []pair {
	seenMovements := make(map[int]bool, len(pairs))
	byMovement := pairs[:0:0]
	for _, p := range pairs {
		if seenMovements[p.movement.ID] {
			continue
		}
		seenMovements[p.movement.ID] = true
		byMovement = append(byMovement, p)
	}

	seenInvoices := make(map[string]bool, len(byMovement))
	result := byMovement[:0:0]
	for _, p := range byMovement {
		if seenInvoices[p.invoice.ID] {
			continue
		}
		seenInvoices[p.invoice.ID] = true
		result = append(result, p)
	}
	return result
}

// buildRecords converts de-duplicated pairs into match records tagged
// with the pass label. The day difference is recorded when both dates
// are known, -1 otherwise.
func buildRecords(pairs []pair, label string) []*models.MatchRecord {
	if len(pairs) == 0 {
		return nil
	}
	records := make([]*models.MatchRecord, 0, len(pairs))
	for _, p := range pairs {
		records = append(records, &models.MatchRecord{
			Invoice:            p.invoice,
			Movement:           p.movement,
			MatchType:          label,
			DateDifferenceDays: pairDayDiff(p),
		})
	}
	return records
}

func pairDayDiff(p pair) int {
	if !p.entry.HasDate || p.invoice.IssueDate.IsZero() {
		return -1
	}
	return models.DayDifference(p.invoice.IssueDate, p.entry.Date)
}

// movementsByID builds a lookup table for the working set of a pass.
func movementsByID(movements []*models.LedgerMovement) map[int]*models.LedgerMovement {
	byID := make(map[int]*models.LedgerMovement, len(movements))
	for _, lm := range movements {
		byID[lm.ID] = lm
	}
	return byID
}

// subtractMatched computes the remainders after a pass by set
// difference on the consumed IDs, preserving the original order of the
// working sets.
func subtractMatched(
	invoices []*models.Invoice,
	movements []*models.LedgerMovement,
	records []*models.MatchRecord,
) ([]*models.Invoice, []*models.LedgerMovement) {
	if len(records) == 0 {
		return invoices, movements
	}

	matchedInvoices := make(map[string]bool, len(records))
	matchedMovements := make(map[int]bool, len(records))
	for _, rec := range records {
		matchedInvoices[rec.Invoice.ID] = true
		matchedMovements[rec.Movement.ID] = true
	}

	remainingInvoices := make([]*models.Invoice, 0, len(invoices)-len(records))
	for _, inv := range invoices {
		if !matchedInvoices[inv.ID] {
			remainingInvoices = append(remainingInvoices, inv)
		}
	}

	remainingMovements := make([]*models.LedgerMovement, 0, len(movements)-len(records))
	for _, lm := range movements {
		if !matchedMovements[lm.ID] {
			remainingMovements = append(remainingMovements, lm)
		}
	}

	return remainingInvoices, remainingMovements
}
