package matcher

import (
	"strings"
	"testing"
	"time"

	"invoice-reconciliation-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Test fixture helpers shared by the pass tests.

func testID() string {
	return strings.ToUpper(uuid.NewString())
}

func testInvoice(id, folio string, amount float64, date time.Time) *models.Invoice {
	return models.NewInvoice(id, folio, decimal.NewFromFloat(amount), date)
}

func testDebit(id int, amount float64, date time.Time, description string) *models.LedgerMovement {
	return models.NewLedgerMovement(id, decimal.NewFromFloat(amount), decimal.Zero, date, description)
}

func testCredit(id int, amount float64, date time.Time, description string) *models.LedgerMovement {
	return models.NewLedgerMovement(id, decimal.Zero, decimal.NewFromFloat(amount), date, description)
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestFilterNoise(t *testing.T) {
	date := day(2024, 3, 1)
	movements := []*models.LedgerMovement{
		testDebit(1, 15000.00, date, "PAGO NOMINA QUINCENA 05"),
		testDebit(2, 500.00, date, "PAGO FACT 4521 PROVEEDOR"),
		testDebit(3, 8000.00, date, "PAGO IMSS BIMESTRE"),
		testDebit(4, 120.00, date, "COMISION MANEJO DE CUENTA"),
		testDebit(5, 999.00, date, "PAGO NOMINACION ESPECIAL"), // NOMINA as substring only
	}

	relevant, noise, err := FilterNoise(movements, DefaultExclusionKeywords)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(noise) != 3 {
		t.Fatalf("Expected 3 noise movements, got %d", len(noise))
	}
	if len(relevant) != 2 {
		t.Fatalf("Expected 2 relevant movements, got %d", len(relevant))
	}

	// Keyword matching is whole-word: NOMINACION must survive.
	for _, lm := range noise {
		if lm.ID == 5 {
			t.Error("Expected NOMINACION movement to survive the whole-word filter")
		}
	}

	if len(relevant)+len(noise) != len(movements) {
		t.Error("Expected filter to partition the input")
	}
}

func TestFilterNoiseEmptyKeywords(t *testing.T) {
	movements := []*models.LedgerMovement{
		testDebit(1, 100.00, day(2024, 3, 1), "PAGO NOMINA"),
	}

	relevant, noise, err := FilterNoise(movements, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(noise) != 0 || len(relevant) != 1 {
		t.Errorf("Expected no-op with empty keywords, got %d relevant, %d noise", len(relevant), len(noise))
	}
}

func TestDedupePairs(t *testing.T) {
	date := day(2024, 3, 1)
	invA := testInvoice(testID(), "100", 500.00, date)
	invB := testInvoice(testID(), "200", 500.00, date)
	movX := testDebit(1, 500.00, date, "PAGO X")
	movY := testDebit(2, 500.00, date, "PAGO Y")

	// invA pairs with both movements, movY pairs with both invoices.
	pairs := []pair{
		{invoice: invA, movement: movX},
		{invoice: invA, movement: movY},
		{invoice: invB, movement: movY},
	}

	deduped := dedupePairs(pairs)

	// Movement stage keeps (invA, movX) and (invA, movY); invoice stage
	// then drops the second invA pair. invB loses movY to invA.
	if len(deduped) != 1 {
		t.Fatalf("Expected 1 pair after de-duplication, got %d", len(deduped))
	}
	if deduped[0].invoice.ID != invA.ID || deduped[0].movement.ID != movX.ID {
		t.Errorf("Expected first pair (invA, movX) to survive, got (%s, %d)",
			deduped[0].invoice.ID, deduped[0].movement.ID)
	}
}

func TestSubtractMatched(t *testing.T) {
	date := day(2024, 3, 1)
	invoices := []*models.Invoice{
		testInvoice(testID(), "1", 100.00, date),
		testInvoice(testID(), "2", 200.00, date),
		testInvoice(testID(), "3", 300.00, date),
	}
	movements := []*models.LedgerMovement{
		testDebit(1, 100.00, date, "A"),
		testDebit(2, 200.00, date, "B"),
	}
	records := []*models.MatchRecord{
		{Invoice: invoices[1], Movement: movements[0], MatchType: LabelUUID},
	}

	remInv, remMov := subtractMatched(invoices, movements, records)

	if len(remInv) != 2 || remInv[0].ID != invoices[0].ID || remInv[1].ID != invoices[2].ID {
		t.Errorf("Expected invoices 1 and 3 to remain in order, got %d invoices", len(remInv))
	}
	if len(remMov) != 1 || remMov[0].ID != 2 {
		t.Errorf("Expected movement 2 to remain, got %d movements", len(remMov))
	}
}

func TestEntryIndex(t *testing.T) {
	date := day(2024, 3, 1)
	entries := models.Melt([]*models.LedgerMovement{
		testDebit(1, 100.00, date, "A"),
		testDebit(2, 100.00, date, "B"),
		testDebit(3, 250.50, date, "C"),
		testCredit(4, 99.00, date, "D"),
	})

	index := NewEntryIndex(entries)

	exact := index.GetByExactAmount(decimal.NewFromFloat(100.00))
	if len(exact) != 2 {
		t.Errorf("Expected 2 entries at 100.00, got %d", len(exact))
	}

	ranged := index.GetByAmountRange(decimal.NewFromFloat(99.00), decimal.NewFromFloat(101.00))
	if len(ranged) != 3 {
		t.Errorf("Expected 3 entries in [99, 101], got %d", len(ranged))
	}

	none := index.GetByAmountRange(decimal.NewFromFloat(1000.00), decimal.NewFromFloat(2000.00))
	if len(none) != 0 {
		t.Errorf("Expected empty range result, got %d", len(none))
	}
}
