package parsers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test CSV: %v", err)
	}
	return path
}

func TestParseInvoices(t *testing.T) {
	csv := `UUID,Folio,Total,Emision
A1B2C3D4-E5F6-A7B8-C9D0-E1F2A3B4C5D6,4521,"$1,160.00",15/03/2024
b2c3d4e5-f6a7-b8c9-d0e1-f2a3b4c5d6e7,,2500.00,2024-03-20
`
	parser, err := NewInvoiceParser(nil)
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}

	invoices, stats, err := parser.ParseInvoices(writeTempCSV(t, csv))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(invoices) != 2 {
		t.Fatalf("Expected 2 invoices, got %d", len(invoices))
	}
	if stats.LoadedRows != 2 || stats.DroppedRows != 0 {
		t.Errorf("Expected 2 loaded / 0 dropped, got %d / %d", stats.LoadedRows, stats.DroppedRows)
	}

	first := invoices[0]
	if first.ID != "A1B2C3D4-E5F6-A7B8-C9D0-E1F2A3B4C5D6" {
		t.Errorf("Unexpected identifier %q", first.ID)
	}
	if first.SequenceNumber != "4521" {
		t.Errorf("Expected folio 4521, got %q", first.SequenceNumber)
	}
	if !first.Amount.Equal(decimal.NewFromFloat(1160.00)) {
		t.Errorf("Expected amount 1160.00, got %s", first.Amount)
	}
	if first.IssueDate.Day() != 15 || int(first.IssueDate.Month()) != 3 {
		t.Errorf("Expected day-first date parsing, got %v", first.IssueDate)
	}

	// The second invoice has no folio and a lowercase identifier.
	second := invoices[1]
	if second.ID != "B2C3D4E5-F6A7-B8C9-D0E1-F2A3B4C5D6E7" {
		t.Errorf("Expected normalized identifier, got %q", second.ID)
	}
	if second.HasSequenceNumber() {
		t.Errorf("Expected no folio, got %q", second.SequenceNumber)
	}
}

func TestParseInvoicesDropsBadRows(t *testing.T) {
	csv := `UUID,Folio,Total,Emision
A1B2C3D4-E5F6-A7B8-C9D0-E1F2A3B4C5D6,100,500.00,15/03/2024
,101,600.00,15/03/2024
not-an-identifier,102,700.00,15/03/2024
C1B2C3D4-E5F6-A7B8-C9D0-E1F2A3B4C5D6,103,not-a-number,15/03/2024
D1B2C3D4-E5F6-A7B8-C9D0-E1F2A3B4C5D6,104,800.00,never
A1B2C3D4-E5F6-A7B8-C9D0-E1F2A3B4C5D6,105,900.00,16/03/2024
`
	parser, err := NewInvoiceParser(nil)
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}

	invoices, stats, err := parser.ParseInvoices(writeTempCSV(t, csv))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Only the first row survives: missing ID, malformed ID, bad
	// amount, bad date, and the duplicate of row one are all dropped.
	if len(invoices) != 1 {
		t.Fatalf("Expected 1 invoice, got %d", len(invoices))
	}
	if stats.DroppedRows != 5 {
		t.Errorf("Expected 5 dropped rows, got %d", stats.DroppedRows)
	}
	if invoices[0].SequenceNumber != "100" {
		t.Errorf("Expected the first occurrence of the duplicate to win, got folio %s", invoices[0].SequenceNumber)
	}
	if len(stats.SampleErrors) == 0 {
		t.Error("Expected sample errors to be recorded")
	}
}

func TestParseInvoicesColumnAliases(t *testing.T) {
	// Alternative header names resolve through the alias lists.
	csv := `folio_fiscal,numero,importe,fecha_emision
A1B2C3D4-E5F6-A7B8-C9D0-E1F2A3B4C5D6,77,1500.00,01/02/2024
`
	parser, err := NewInvoiceParser(nil)
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}

	invoices, _, err := parser.ParseInvoices(writeTempCSV(t, csv))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(invoices) != 1 {
		t.Fatalf("Expected 1 invoice, got %d", len(invoices))
	}
	if invoices[0].SequenceNumber != "77" {
		t.Errorf("Expected folio 77 via alias, got %q", invoices[0].SequenceNumber)
	}
}

func TestParseInvoicesMissingRequiredColumn(t *testing.T) {
	csv := `Folio,Total
100,500.00
`
	parser, err := NewInvoiceParser(nil)
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}

	if _, _, err := parser.ParseInvoices(writeTempCSV(t, csv)); err == nil {
		t.Error("Expected an error for a missing required column")
	}
}

func TestParseInvoicesMissingFile(t *testing.T) {
	parser, err := NewInvoiceParser(nil)
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}

	if _, _, err := parser.ParseInvoices("/nonexistent/invoices.csv"); err == nil {
		t.Error("Expected an error for a missing file")
	}
}
