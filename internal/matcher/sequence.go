package matcher

import (
	"fmt"
	"regexp"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// Pattern templates for the sequence-number passes. The escaped folio
// is substituted for the %s verb.
const (
	// wholeWordTemplate requires the folio to appear as a standalone
	// word, bounded on both sides (Pass 2).
	wholeWordTemplate = `\b%s\b`

	// suffixTemplate requires the folio to be bounded only on the
	// trailing side, so it may be glued to preceding characters. This
	// catches folios embedded at the end of longer reference codes
	// (Pass 3).
	suffixTemplate = `%s(?:\b|$)`
)

// matchBySequencePattern is the shared primitive behind Passes 2 and 3.
// For each distinct folio, in invoice-appearance order, it searches the
// melted ledger view for descriptions containing the folio rendered
// through the pattern template, then intersects those candidates with
// the invoices sharing that folio and an equal rounded amount. All
// accumulated pairs go through the two-stage de-duplication.
//
// Folios shorter than minLength are skipped: trivial substrings would
// otherwise match nearly every description. A folio that produces an
// uncompilable pattern is logged and skipped; it never aborts the pass.
func matchBySequencePattern(
	invoices []*models.Invoice,
	movements []*models.LedgerMovement,
	template string,
	label string,
	minLength int,
	log logger.Logger,
) []*models.MatchRecord {
	if len(invoices) == 0 || len(movements) == 0 {
		return nil
	}

	entries := models.Melt(movements)
	if len(entries) == 0 {
		return nil
	}
	byID := movementsByID(movements)

	// Group invoices by folio, preserving appearance order of both the
	// folios and the invoices within each folio.
	var folios []string
	invoicesByFolio := make(map[string][]*models.Invoice)
	for _, inv := range invoices {
		if !inv.HasSequenceNumber() {
			continue
		}
		folio := inv.SequenceNumber
		if _, seen := invoicesByFolio[folio]; !seen {
			folios = append(folios, folio)
		}
		invoicesByFolio[folio] = append(invoicesByFolio[folio], inv)
	}

	var pairs []pair
	for _, folio := range folios {
		if len(folio) < minLength {
			log.WithFields(logger.Fields{
				"folio": folio,
				"pass":  label,
			}).Debug("Skipping folio below minimum length")
			continue
		}

		pattern, err := regexp.Compile(fmt.Sprintf(template, regexp.QuoteMeta(folio)))
		if err != nil {
			patternErr := errors.PatternError(folio, err)
			log.WithError(patternErr).WithField("pass", label).Warn("Skipping folio with invalid search pattern")
			continue
		}

		var candidates []models.LedgerEntry
		for _, entry := range entries {
			if pattern.MatchString(entry.DescriptionUpper) {
				candidates = append(candidates, entry)
			}
		}
		if len(candidates) == 0 {
			continue
		}

		for _, inv := range invoicesByFolio[folio] {
			for _, entry := range candidates {
				if inv.Amount.Equal(entry.Amount) {
					pairs = append(pairs, pair{
						invoice:  inv,
						movement: byID[entry.MovementID],
						entry:    entry,
					})
				}
			}
		}
	}

	return buildRecords(dedupePairs(pairs), label)
}
