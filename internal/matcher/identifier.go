package matcher

import (
	"invoice-reconciliation-service/internal/models"
)

// matchByIdentifier implements Pass 1: an equi-join between the
// identifier embedded in a ledger description and the invoice primary
// key. The invoice ID is unique, so the join is 1:1 per movement.
// Several movements may embed the same invoice ID (e.g. installment
// payments referencing one invoice); the same two-stage de-duplication
// as every later pass is applied, so only the first such movement is
// kept and the rest fall through to later passes.
func matchByIdentifier(invoices []*models.Invoice, movements []*models.LedgerMovement) []*models.MatchRecord {
	if len(invoices) == 0 || len(movements) == 0 {
		return nil
	}

	byID := make(map[string]*models.Invoice, len(invoices))
	for _, inv := range invoices {
		byID[inv.ID] = inv
	}

	var pairs []pair
	for _, lm := range movements {
		if !lm.HasEmbeddedID() {
			continue
		}
		inv, ok := byID[lm.EmbeddedID]
		if !ok {
			continue
		}
		pairs = append(pairs, pair{
			invoice:  inv,
			movement: lm,
			entry: models.LedgerEntry{
				MovementID: lm.ID,
				Date:       lm.Date,
				HasDate:    lm.HasDate(),
			},
		})
	}

	return buildRecords(dedupePairs(pairs), LabelUUID)
}
