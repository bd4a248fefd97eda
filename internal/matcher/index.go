package matcher

import (
	"sort"

	"invoice-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// EntryIndex provides amount-based lookups over the melted ledger
// view. Exact-amount passes use the hash index; the proximity pass uses
// the sorted range index.
type EntryIndex struct {
	// ExactAmountIndex maps the canonical amount string to the entries
	// carrying exactly that amount, in melt order.
	ExactAmountIndex map[string][]models.LedgerEntry

	// AmountRangeIndex holds the distinct amounts in ascending order
	// for range scans.
	AmountRangeIndex []*amountIndexEntry

	// AllEntries holds every indexed entry in melt order.
	AllEntries []models.LedgerEntry
}

type amountIndexEntry struct {
	Amount  decimal.Decimal
	Entries []models.LedgerEntry
}

// NewEntryIndex builds the index from a melted entry slice.
func NewEntryIndex(entries []models.LedgerEntry) *EntryIndex {
	index := &EntryIndex{
		ExactAmountIndex: make(map[string][]models.LedgerEntry),
		AllEntries:       entries,
	}

	amountMap := make(map[string]*amountIndexEntry)
	for _, entry := range entries {
		key := entry.Amount.String()
		index.ExactAmountIndex[key] = append(index.ExactAmountIndex[key], entry)

		if bucket, ok := amountMap[key]; ok {
			bucket.Entries = append(bucket.Entries, entry)
		} else {
			bucket = &amountIndexEntry{Amount: entry.Amount}
			bucket.Entries = append(bucket.Entries, entry)
			amountMap[key] = bucket
			index.AmountRangeIndex = append(index.AmountRangeIndex, bucket)
		}
	}

	sort.Slice(index.AmountRangeIndex, func(i, j int) bool {
		return index.AmountRangeIndex[i].Amount.LessThan(index.AmountRangeIndex[j].Amount)
	})

	return index
}

// GetByExactAmount returns the entries whose amount equals the given
// rounded amount, in melt order.
func (ei *EntryIndex) GetByExactAmount(amount decimal.Decimal) []models.LedgerEntry {
	return ei.ExactAmountIndex[amount.String()]
}

// GetByAmountRange returns all entries with minAmount <= amount <=
// maxAmount. Within the result, entries of equal amount keep melt
// order and amounts ascend.
func (ei *EntryIndex) GetByAmountRange(minAmount, maxAmount decimal.Decimal) []models.LedgerEntry {
	start := sort.Search(len(ei.AmountRangeIndex), func(i int) bool {
		return !ei.AmountRangeIndex[i].Amount.LessThan(minAmount)
	})

	var result []models.LedgerEntry
	for i := start; i < len(ei.AmountRangeIndex); i++ {
		if ei.AmountRangeIndex[i].Amount.GreaterThan(maxAmount) {
			break
		}
		result = append(result, ei.AmountRangeIndex[i].Entries...)
	}
	return result
}

// Len returns the number of indexed entries.
func (ei *EntryIndex) Len() int {
	return len(ei.AllEntries)
}
