package parsers

import (
	"fmt"
)

// Logical field names of the invoice table.
const (
	FieldInvoiceID       = "id"
	FieldSequenceNumber  = "sequence_number"
	FieldInvoiceAmount   = "amount"
	FieldIssueDate       = "issue_date"
)

// Logical field names of the ledger table.
const (
	FieldLedgerDate        = "date"
	FieldLedgerDescription = "description"
	FieldDebitAmount       = "debit"
	FieldCreditAmount      = "credit"
)

// InvoiceParserConfig maps logical invoice fields to candidate source
// column names and carries the CSV options.
type InvoiceParserConfig struct {
	HasHeader bool
	Delimiter rune

	// Columns maps each logical field to the candidate source column
	// names tried in order.
	Columns map[string][]string
}

// DefaultInvoiceParserConfig covers the column names seen in the
// electronic invoice exports this tool consumes.
func DefaultInvoiceParserConfig() *InvoiceParserConfig {
	return &InvoiceParserConfig{
		HasHeader: true,
		Delimiter: ',',
		Columns: map[string][]string{
			FieldInvoiceID:      {"uuid", "id", "invoice_id", "folio_fiscal"},
			FieldSequenceNumber: {"folio", "sequence_number", "serie_folio", "numero"},
			FieldInvoiceAmount:  {"total", "amount", "monto", "importe"},
			FieldIssueDate:      {"emision", "emisión", "issue_date", "fecha", "fecha_emision"},
		},
	}
}

// Validate checks the invoice parser configuration.
func (c *InvoiceParserConfig) Validate() error {
	required := []string{FieldInvoiceID, FieldInvoiceAmount, FieldIssueDate}
	for _, field := range required {
		if len(c.Columns[field]) == 0 {
			return fmt.Errorf("no candidate columns configured for required field %q", field)
		}
	}
	return nil
}

// LedgerParserConfig maps logical ledger fields to candidate source
// column names and carries the CSV options.
type LedgerParserConfig struct {
	HasHeader bool
	Delimiter rune

	Columns map[string][]string
}

// DefaultLedgerParserConfig covers the column names seen in exported
// bookkeeping auxiliaries.
func DefaultLedgerParserConfig() *LedgerParserConfig {
	return &LedgerParserConfig{
		HasHeader: true,
		Delimiter: ',',
		Columns: map[string][]string{
			FieldLedgerDate:        {"fecha", "date"},
			FieldLedgerDescription: {"concepto", "description", "descripcion", "concept"},
			FieldDebitAmount:       {"debe", "debit", "cargo"},
			FieldCreditAmount:      {"haber", "credit", "abono"},
		},
	}
}

// Validate checks the ledger parser configuration.
func (c *LedgerParserConfig) Validate() error {
	required := []string{FieldLedgerDescription, FieldDebitAmount, FieldCreditAmount}
	for _, field := range required {
		if len(c.Columns[field]) == 0 {
			return fmt.Errorf("no candidate columns configured for required field %q", field)
		}
	}
	return nil
}
