package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerGenerator generates ledger auxiliary CSV files, optionally
// seeded from a previously generated invoice file so a known fraction
// of movements pays a real invoice.
type LedgerGenerator struct {
	Count     int
	StartDate time.Time
	EndDate   time.Time
	Seed      int64
}

// MovementTemplate represents a ledger movement record
type MovementTemplate struct {
	Date        time.Time
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// InvoiceRow is the subset of an invoice file row the generator needs
// to fabricate matching payments.
type InvoiceRow struct {
	UUID  string
	Folio string
	Total decimal.Decimal
	Date  time.Time
}

var noiseDescriptions = []string{
	"PAGO NOMINA QUINCENA",
	"PAGO IMSS BIMESTRE",
	"PAGO SAT PROVISIONAL",
	"APORTACION INFONAVIT",
	"COMISION MANEJO DE CUENTA",
	"TRASPASO ENTRE CUENTAS PROPIAS",
	"IMPUESTO DEPOSITOS EFECTIVO",
}

func main() {
	var (
		output       = flag.String("output", "generated_ledger.csv", "Output CSV file path")
		invoicesFile = flag.String("invoices", "", "Invoice CSV to draw matching payments from")
		count        = flag.Int("count", 800, "Number of movements to generate")
		matchRate    = flag.Float64("match-rate", 0.6, "Fraction of movements paying a drawn invoice")
		idRate       = flag.Float64("identifier-rate", 0.3, "Fraction of matching movements that embed the invoice identifier")
		folioRate    = flag.Float64("folio-rate", 0.4, "Fraction of matching movements that reference the folio")
		noiseRate    = flag.Float64("noise-rate", 0.1, "Fraction of movements with administrative noise descriptions")
		startDate    = flag.String("start-date", "2024-01-01", "Start date (YYYY-MM-DD)")
		endDate      = flag.String("end-date", "2024-12-31", "End date (YYYY-MM-DD)")
		seed         = flag.Int64("seed", time.Now().UnixNano(), "Random seed for reproducible generation")
	)
	flag.Parse()

	start, err := time.Parse("2006-01-02", *startDate)
	if err != nil {
		log.Fatalf("Invalid start date: %v", err)
	}
	end, err := time.Parse("2006-01-02", *endDate)
	if err != nil {
		log.Fatalf("Invalid end date: %v", err)
	}

	generator := &LedgerGenerator{
		Count:     *count,
		StartDate: start,
		EndDate:   end,
		Seed:      *seed,
	}

	var invoices []InvoiceRow
	if *invoicesFile != "" {
		invoices, err = LoadInvoices(*invoicesFile)
		if err != nil {
			log.Fatalf("Failed to load invoices: %v", err)
		}
	}

	movements := generator.Generate(invoices, *matchRate, *idRate, *folioRate, *noiseRate)
	if err := generator.WriteToCSV(*output, movements); err != nil {
		log.Fatalf("Failed to write CSV: %v", err)
	}

	fmt.Printf("Generated %d movements in %s\n", len(movements), *output)
}

// LoadInvoices reads a generated invoice file back in.
func LoadInvoices(filename string) ([]InvoiceRow, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("invoice file %s has no data rows", filename)
	}

	invoices := make([]InvoiceRow, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < 4 {
			continue
		}
		total, err := decimal.NewFromString(record[2])
		if err != nil {
			continue
		}
		date, err := time.Parse("02/01/2006", record[3])
		if err != nil {
			continue
		}
		invoices = append(invoices, InvoiceRow{
			UUID:  record[0],
			Folio: record[1],
			Total: total,
			Date:  date,
		})
	}
	return invoices, nil
}

// Generate produces movements. Matching movements pay a randomly
// drawn invoice a few days after issue; the rest are unrelated
// payments or administrative noise.
func (lg *LedgerGenerator) Generate(invoices []InvoiceRow, matchRate, idRate, folioRate, noiseRate float64) []MovementTemplate {
	rng := rand.New(rand.NewSource(lg.Seed))
	span := lg.EndDate.Sub(lg.StartDate)

	movements := make([]MovementTemplate, 0, lg.Count)
	for i := 0; i < lg.Count; i++ {
		roll := rng.Float64()

		switch {
		case roll < noiseRate:
			movements = append(movements, MovementTemplate{
				Date:        lg.StartDate.Add(time.Duration(rng.Int63n(int64(span)))),
				Description: noiseDescriptions[rng.Intn(len(noiseDescriptions))],
				Debit:       decimal.NewFromFloat(rng.Float64() * 50000).Round(2),
			})

		case roll < noiseRate+matchRate && len(invoices) > 0:
			inv := invoices[rng.Intn(len(invoices))]
			movements = append(movements, MovementTemplate{
				Date:        inv.Date.AddDate(0, 0, rng.Intn(20)),
				Description: lg.matchingDescription(rng, inv, idRate, folioRate),
				Debit:       inv.Total,
			})

		default:
			movements = append(movements, MovementTemplate{
				Date:        lg.StartDate.Add(time.Duration(rng.Int63n(int64(span)))),
				Description: fmt.Sprintf("PAGO PROVEEDOR REF %06d", rng.Intn(1000000)),
				Debit:       decimal.NewFromFloat(100 + rng.Float64()*100000).Round(2),
			})
		}
	}
	return movements
}

func (lg *LedgerGenerator) matchingDescription(rng *rand.Rand, inv InvoiceRow, idRate, folioRate float64) string {
	roll := rng.Float64()
	switch {
	case roll < idRate:
		return fmt.Sprintf("PAGO FACTURA %s", strings.ToUpper(inv.UUID))
	case roll < idRate+folioRate && inv.Folio != "":
		return fmt.Sprintf("PAGO FACT %s PROVEEDOR", inv.Folio)
	default:
		return "PAGO PROVEEDOR TRANSFERENCIA"
	}
}

// WriteToCSV writes movements using the column names the parser
// resolves by default.
func (lg *LedgerGenerator) WriteToCSV(filename string, movements []MovementTemplate) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"Fecha", "Concepto", "Debe", "Haber"}); err != nil {
		return err
	}

	for _, m := range movements {
		record := []string{
			m.Date.Format("02/01/2006"),
			m.Description,
			m.Debit.StringFixed(2),
			m.Credit.StringFixed(2),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}
