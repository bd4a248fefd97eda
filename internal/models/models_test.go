package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNewInvoice(t *testing.T) {
	issued := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	inv := NewInvoice("  a1b2c3d4-e5f6-a7b8-c9d0-e1f2a3b4c5d6  ", " 4521 ", decimal.NewFromFloat(1234.567), issued)

	if inv.ID != "A1B2C3D4-E5F6-A7B8-C9D0-E1F2A3B4C5D6" {
		t.Errorf("Expected normalized identifier, got %q", inv.ID)
	}
	if inv.SequenceNumber != "4521" {
		t.Errorf("Expected trimmed folio, got %q", inv.SequenceNumber)
	}
	if !inv.Amount.Equal(decimal.NewFromFloat(1234.57)) {
		t.Errorf("Expected amount rounded to 1234.57, got %s", inv.Amount)
	}
}

func TestInvoiceValidate(t *testing.T) {
	issued := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		invoice *Invoice
		wantErr bool
	}{
		{
			name:    "valid invoice",
			invoice: NewInvoice("A1B2C3D4-E5F6-A7B8-C9D0-E1F2A3B4C5D6", "100", decimal.NewFromFloat(500.00), issued),
			wantErr: false,
		},
		{
			name:    "malformed identifier",
			invoice: NewInvoice("not-an-identifier", "100", decimal.NewFromFloat(500.00), issued),
			wantErr: true,
		},
		{
			name:    "negative amount",
			invoice: NewInvoice("A1B2C3D4-E5F6-A7B8-C9D0-E1F2A3B4C5D6", "100", decimal.NewFromFloat(-1.00), issued),
			wantErr: true,
		},
		{
			name:    "zero issue date",
			invoice: NewInvoice("A1B2C3D4-E5F6-A7B8-C9D0-E1F2A3B4C5D6", "100", decimal.NewFromFloat(500.00), time.Time{}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.invoice.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error, got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestNormalizeSequenceNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"4521", "4521"},
		{"  f-88  ", "F-88"},
		{"nan", ""},   // spreadsheet artifact
		{"NULL", ""},  // spreadsheet artifact
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeSequenceNumber(tt.input); got != tt.expected {
			t.Errorf("NormalizeSequenceNumber(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestExtractEmbeddedIdentifier(t *testing.T) {
	tests := []struct {
		name        string
		description string
		expected    string
	}{
		{
			name:        "identifier in payment description",
			description: "PAGO FACTURA A1B2C3D4-E5F6-A7B8-C9D0-E1F2A3B4C5D6 PROVEEDOR",
			expected:    "A1B2C3D4-E5F6-A7B8-C9D0-E1F2A3B4C5D6",
		},
		{
			name:        "no identifier",
			description: "PAGO PROVEEDOR TRANSFERENCIA",
			expected:    "",
		},
		{
			name:        "first of two identifiers wins",
			description: "AAAAAAAA-1111-2222-3333-BBBBBBBBBBBB Y CCCCCCCC-4444-5555-6666-DDDDDDDDDDDD",
			expected:    "AAAAAAAA-1111-2222-3333-BBBBBBBBBBBB",
		},
		{
			name:        "lowercase token is not an identifier",
			description: "ref a1b2c3d4-e5f6-a7b8-c9d0-e1f2a3b4c5d6",
			expected:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractEmbeddedIdentifier(tt.description); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestMelt(t *testing.T) {
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	movements := []*LedgerMovement{
		NewLedgerMovement(1, decimal.NewFromFloat(100.00), decimal.Zero, date, "DEBIT ONLY"),
		NewLedgerMovement(2, decimal.Zero, decimal.NewFromFloat(250.00), date, "CREDIT ONLY"),
		NewLedgerMovement(3, decimal.NewFromFloat(10.00), decimal.NewFromFloat(20.00), date, "BOTH SIDES"),
		NewLedgerMovement(4, decimal.Zero, decimal.Zero, date, "ZERO ROW"),
		NewLedgerMovement(5, decimal.NewFromFloat(75.00), decimal.Zero, time.Time{}, "NO DATE"),
	}

	entries := Melt(movements)

	// 1 + 1 + 2 + 0 + 1 entries
	if len(entries) != 5 {
		t.Fatalf("Expected 5 melted entries, got %d", len(entries))
	}

	// The movement with both sides populated contributes two entries
	// sharing the movement ID.
	var fromThree []LedgerEntry
	for _, e := range entries {
		if e.MovementID == 3 {
			fromThree = append(fromThree, e)
		}
	}
	if len(fromThree) != 2 {
		t.Fatalf("Expected 2 entries from movement 3, got %d", len(fromThree))
	}
	if !fromThree[0].Amount.Equal(decimal.NewFromFloat(10.00)) || !fromThree[1].Amount.Equal(decimal.NewFromFloat(20.00)) {
		t.Errorf("Expected debit entry before credit entry, got %s then %s", fromThree[0].Amount, fromThree[1].Amount)
	}

	for _, e := range entries {
		if e.MovementID == 5 && e.HasDate {
			t.Error("Expected dateless movement to produce a dateless entry")
		}
		if e.MovementID == 1 && !e.HasDate {
			t.Error("Expected dated movement to produce a dated entry")
		}
	}
}

func TestDayDifference(t *testing.T) {
	tests := []struct {
		name     string
		a, b     time.Time
		expected int
	}{
		{
			name:     "same day different hours",
			a:        time.Date(2024, 1, 15, 23, 0, 0, 0, time.UTC),
			b:        time.Date(2024, 1, 15, 1, 0, 0, 0, time.UTC),
			expected: 0,
		},
		{
			name:     "five days apart",
			a:        time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			b:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			expected: 5,
		},
		{
			name:     "order does not matter",
			a:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			b:        time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			expected: 30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DayDifference(tt.a, tt.b); got != tt.expected {
				t.Errorf("Expected %d days, got %d", tt.expected, got)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"1234.56", "1234.56", false},
		{"$1,234.56", "1234.56", false},
		{" $ 99 ", "99", false},
		{"", "0", false}, // absent debit/credit cell
		{"1234.567", "1234.57", false},
		{"abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected parse error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got.String() != tt.expected {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Time
		wantErr  bool
	}{
		{"2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), false},
		{"15/03/2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), false},
		{"15-03-2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), false},
		{"2024/03/15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), false},
		{"", time.Time{}, true},
		{"not a date", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected parse error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !got.Equal(tt.expected) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}
