// Package models defines the core record types used throughout the
// reconciliation pipeline: invoices, ledger movements, the melted
// amount view derived from ledger movements, and match records.
//
// Amounts are represented with shopspring/decimal and rounded to two
// decimal places at construction time, so every later comparison is an
// exact equality on the rounded value rather than a float comparison.
package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// IdentifierPattern matches the fixed-width invoice identifier format
// (8-4-4-4-12 hexadecimal groups). The same pattern is used to extract
// an embedded identifier from ledger descriptions.
var IdentifierPattern = regexp.MustCompile(`[0-9A-F]{8}-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{12}`)

// anchoredIdentifierPattern validates a full string as an identifier.
var anchoredIdentifierPattern = regexp.MustCompile(`^[0-9A-F]{8}-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{12}$`)

// Invoice represents one electronic invoice. Invoices are immutable
// during matching: they are created once at load time and consumed at
// most once by a matching pass.
type Invoice struct {
	// ID is the normalized (uppercase, trimmed) unique identifier and
	// the primary key of the invoice table.
	ID string `json:"id"`

	// SequenceNumber is the optional human-assigned folio, normalized
	// to uppercase and trimmed. Empty string means not present.
	SequenceNumber string `json:"sequence_number,omitempty"`

	// Amount is the invoice total, rounded to 2 decimal places.
	Amount decimal.Decimal `json:"amount"`

	// IssueDate is the emission date of the invoice.
	IssueDate time.Time `json:"issue_date"`
}

// NewInvoice builds an Invoice with normalized identifier, folio and
// amount. The amount is rounded to two decimal places.
func NewInvoice(id, sequenceNumber string, amount decimal.Decimal, issueDate time.Time) *Invoice {
	return &Invoice{
		ID:             NormalizeIdentifier(id),
		SequenceNumber: NormalizeSequenceNumber(sequenceNumber),
		Amount:         amount.Round(2),
		IssueDate:      issueDate,
	}
}

// Validate checks the load-time constraints on an invoice. Rows failing
// these constraints are dropped by the loader before matching begins.
func (inv *Invoice) Validate() error {
	if !anchoredIdentifierPattern.MatchString(inv.ID) {
		return fmt.Errorf("invoice identifier %q does not match the expected pattern", inv.ID)
	}
	if inv.Amount.IsNegative() {
		return fmt.Errorf("invoice amount cannot be negative: %s", inv.Amount)
	}
	if inv.IssueDate.IsZero() {
		return fmt.Errorf("invoice issue date cannot be zero")
	}
	return nil
}

// HasSequenceNumber reports whether the invoice carries a folio.
func (inv *Invoice) HasSequenceNumber() bool {
	return inv.SequenceNumber != ""
}

// String returns a compact representation for logs.
func (inv *Invoice) String() string {
	return fmt.Sprintf("Invoice{ID: %s, Folio: %s, Amount: %s, Issued: %s}",
		inv.ID, inv.SequenceNumber, inv.Amount, inv.IssueDate.Format("2006-01-02"))
}

// LedgerMovement represents one bookkeeping entry. The synthetic ID is
// assigned sequentially at load time and is stable for the run.
type LedgerMovement struct {
	ID int `json:"id"`

	// DebitAmount and CreditAmount hold the two amount columns of the
	// ledger. Source data may populate both; the melt step treats each
	// non-zero field independently.
	DebitAmount  decimal.Decimal `json:"debit_amount"`
	CreditAmount decimal.Decimal `json:"credit_amount"`

	// Date is the booking date. The zero value means the source row had
	// no parseable date; such movements are excluded from date-aware
	// passes but still participate in amount-only matching.
	Date time.Time `json:"date,omitempty"`

	// Description is the free-text concept, DescriptionUpper its
	// case-normalized form used for all text searching.
	Description      string `json:"description"`
	DescriptionUpper string `json:"-"`

	// EmbeddedID is the first identifier-shaped token found inside the
	// description, or empty when none is present.
	EmbeddedID string `json:"embedded_id,omitempty"`
}

// NewLedgerMovement builds a LedgerMovement with rounded amounts, the
// upper-cased description and the extracted embedded identifier.
func NewLedgerMovement(id int, debit, credit decimal.Decimal, date time.Time, description string) *LedgerMovement {
	upper := strings.ToUpper(description)
	return &LedgerMovement{
		ID:               id,
		DebitAmount:      debit.Round(2),
		CreditAmount:     credit.Round(2),
		Date:             date,
		Description:      description,
		DescriptionUpper: upper,
		EmbeddedID:       ExtractEmbeddedIdentifier(upper),
	}
}

// HasDate reports whether the movement has a usable booking date.
func (lm *LedgerMovement) HasDate() bool {
	return !lm.Date.IsZero()
}

// HasEmbeddedID reports whether an identifier token was found in the
// description.
func (lm *LedgerMovement) HasEmbeddedID() bool {
	return lm.EmbeddedID != ""
}

// String returns a compact representation for logs.
func (lm *LedgerMovement) String() string {
	date := "none"
	if lm.HasDate() {
		date = lm.Date.Format("2006-01-02")
	}
	return fmt.Sprintf("LedgerMovement{ID: %d, Debit: %s, Credit: %s, Date: %s}",
		lm.ID, lm.DebitAmount, lm.CreditAmount, date)
}

// LedgerEntry is one row of the melted view of a ledger movement: the
// movement contributes one entry per non-zero amount field. All
// amount-based passes operate on entries, never on raw movements.
type LedgerEntry struct {
	MovementID       int
	Amount           decimal.Decimal
	Date             time.Time
	HasDate          bool
	DescriptionUpper string
}

// Melt expands a slice of ledger movements into the flat entry view.
// A movement with both amount fields zero contributes nothing and is
// therefore invisible to amount-based passes.
func Melt(movements []*LedgerMovement) []LedgerEntry {
	entries := make([]LedgerEntry, 0, len(movements))
	for _, lm := range movements {
		if lm.DebitAmount.IsPositive() {
			entries = append(entries, LedgerEntry{
				MovementID:       lm.ID,
				Amount:           lm.DebitAmount,
				Date:             lm.Date,
				HasDate:          lm.HasDate(),
				DescriptionUpper: lm.DescriptionUpper,
			})
		}
		if lm.CreditAmount.IsPositive() {
			entries = append(entries, LedgerEntry{
				MovementID:       lm.ID,
				Amount:           lm.CreditAmount,
				Date:             lm.Date,
				HasDate:          lm.HasDate(),
				DescriptionUpper: lm.DescriptionUpper,
			})
		}
	}
	return entries
}

// MatchRecord pairs exactly one invoice with exactly one ledger
// movement. Across the whole pipeline no invoice ID and no movement ID
// appears in more than one MatchRecord.
type MatchRecord struct {
	Invoice  *Invoice        `json:"invoice"`
	Movement *LedgerMovement `json:"movement"`

	// MatchType is the label of the pass that produced the record,
	// e.g. "UUID", "Folio+Monto", "Monto_Proximo($1)".
	MatchType string `json:"match_type"`

	// AmountDifference is set by the proximity and classifier passes.
	AmountDifference decimal.Decimal `json:"amount_difference,omitempty"`

	// DateDifferenceDays is set by date-aware passes when both dates
	// are known; -1 otherwise.
	DateDifferenceDays int `json:"date_difference_days"`

	// ClassifierProbability is set only by the classifier pass.
	ClassifierProbability float64 `json:"classifier_probability,omitempty"`
}

// DayDifference returns the absolute difference in calendar days
// between two dates, ignoring the time-of-day component.
func DayDifference(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	diff := ad.Sub(bd)
	if diff < 0 {
		diff = -diff
	}
	return int(diff.Hours() / 24)
}

// NormalizeIdentifier trims and upper-cases an invoice identifier.
func NormalizeIdentifier(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// NormalizeSequenceNumber trims and upper-cases a folio. The literal
// strings "NAN" and "NULL" (artifacts of exported spreadsheets) are
// treated as absent.
func NormalizeSequenceNumber(folio string) string {
	normalized := strings.ToUpper(strings.TrimSpace(folio))
	if normalized == "NAN" || normalized == "NULL" {
		return ""
	}
	return normalized
}

// ExtractEmbeddedIdentifier returns the first identifier-shaped token
// in an upper-cased description, or empty when none is present.
func ExtractEmbeddedIdentifier(descriptionUpper string) string {
	return IdentifierPattern.FindString(descriptionUpper)
}

// ParseAmount parses a monetary value from free-form text, tolerating
// currency symbols and thousand separators, and rounds it to two
// decimal places. An empty string parses as zero, matching how absent
// debit/credit cells are treated by the loader.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d.Round(2), nil
}

// dateFormats lists the date layouts accepted by ParseDate, in the
// order they are tried.
var dateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"02-01-2006",
	"2006/01/02",
}

// ParseDate parses a calendar date from the formats commonly seen in
// exported accounting data. Day-first layouts are tried because the
// source ledgers use them.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	var lastErr error
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date %q: %w", s, lastErr)
}
