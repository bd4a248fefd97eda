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

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceGenerator generates invoice export CSV files
type InvoiceGenerator struct {
	Count     int
	StartDate time.Time
	EndDate   time.Time
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
	Seed      int64
}

// InvoiceTemplate represents an invoice record
type InvoiceTemplate struct {
	UUID      string
	Folio     string
	Total     decimal.Decimal
	IssueDate time.Time
}

func main() {
	var (
		output    = flag.String("output", "generated_invoices.csv", "Output CSV file path")
		count     = flag.Int("count", 500, "Number of invoices to generate")
		startDate = flag.String("start-date", "2024-01-01", "Start date (YYYY-MM-DD)")
		endDate   = flag.String("end-date", "2024-12-31", "End date (YYYY-MM-DD)")
		minAmount = flag.Float64("min-amount", 100.00, "Minimum invoice total")
		maxAmount = flag.Float64("max-amount", 250000.00, "Maximum invoice total")
		seed      = flag.Int64("seed", time.Now().UnixNano(), "Random seed for reproducible generation")
		noFolio   = flag.Float64("no-folio-rate", 0.1, "Fraction of invoices without a folio")
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

	generator := &InvoiceGenerator{
		Count:     *count,
		StartDate: start,
		EndDate:   end,
		MinAmount: decimal.NewFromFloat(*minAmount),
		MaxAmount: decimal.NewFromFloat(*maxAmount),
		Seed:      *seed,
	}

	invoices := generator.Generate(*noFolio)
	if err := generator.WriteToCSV(*output, invoices); err != nil {
		log.Fatalf("Failed to write CSV: %v", err)
	}

	fmt.Printf("Generated %d invoices in %s\n", len(invoices), *output)
}

// Generate produces Count invoices with uppercase identifiers and
// sequential folios; noFolioRate of them get an empty folio.
func (ig *InvoiceGenerator) Generate(noFolioRate float64) []InvoiceTemplate {
	rng := rand.New(rand.NewSource(ig.Seed))
	span := ig.EndDate.Sub(ig.StartDate)

	invoices := make([]InvoiceTemplate, 0, ig.Count)
	for i := 0; i < ig.Count; i++ {
		folio := fmt.Sprintf("%d", 1000+i)
		if rng.Float64() < noFolioRate {
			folio = ""
		}

		invoices = append(invoices, InvoiceTemplate{
			UUID:      strings.ToUpper(uuid.NewString()),
			Folio:     folio,
			Total:     ig.randomAmount(rng),
			IssueDate: ig.StartDate.Add(time.Duration(rng.Int63n(int64(span)))),
		})
	}
	return invoices
}

func (ig *InvoiceGenerator) randomAmount(rng *rand.Rand) decimal.Decimal {
	min, _ := ig.MinAmount.Float64()
	max, _ := ig.MaxAmount.Float64()
	return decimal.NewFromFloat(min + rng.Float64()*(max-min)).Round(2)
}

// WriteToCSV writes invoices using the column names the parser
// resolves by default.
func (ig *InvoiceGenerator) WriteToCSV(filename string, invoices []InvoiceTemplate) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"UUID", "Folio", "Total", "Emision"}); err != nil {
		return err
	}

	for _, inv := range invoices {
		record := []string{
			inv.UUID,
			inv.Folio,
			inv.Total.StringFixed(2),
			inv.IssueDate.Format("02/01/2006"),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}
