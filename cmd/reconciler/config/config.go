// Package config builds the parser, matcher and report configurations
// the CLI hands to the reconciliation service.
package config

import (
	"strings"

	"invoice-reconciliation-service/internal/matcher"
	"invoice-reconciliation-service/internal/parsers"
	"invoice-reconciliation-service/internal/reporter"

	"github.com/shopspring/decimal"
)

// CreateInvoiceParserConfig creates the default invoice parser
// configuration.
func CreateInvoiceParserConfig() *parsers.InvoiceParserConfig {
	return parsers.DefaultInvoiceParserConfig()
}

// CreateLedgerParserConfig creates the default ledger parser
// configuration.
func CreateLedgerParserConfig() *parsers.LedgerParserConfig {
	return parsers.DefaultLedgerParserConfig()
}

// MatcherOptions carries the CLI overrides applied on top of the
// default matcher configuration.
type MatcherOptions struct {
	ExtraKeywords       []string
	DisableNoiseFilter  bool
	MinFolioLength      int
	ProximityTolerance  float64
	ProximityWindowDays int
	ClassifierThreshold float64
}

// CreateMatcherConfig creates a matcher configuration with the CLI
// overrides applied.
func CreateMatcherConfig(opts MatcherOptions) *matcher.Config {
	config := matcher.DefaultConfig()

	if opts.DisableNoiseFilter {
		config.ExclusionKeywords = nil
	} else {
		for _, keyword := range opts.ExtraKeywords {
			keyword = strings.ToUpper(strings.TrimSpace(keyword))
			if keyword != "" {
				config.ExclusionKeywords = append(config.ExclusionKeywords, keyword)
			}
		}
	}

	if opts.MinFolioLength > 0 {
		config.MinSequenceLength = opts.MinFolioLength
	}
	config.ProximityTolerance = decimal.NewFromFloat(opts.ProximityTolerance)
	config.ProximityWindowDays = opts.ProximityWindowDays
	if opts.ClassifierThreshold > 0 {
		config.ClassifierThreshold = opts.ClassifierThreshold
	}

	return config
}

// CreateReportConfig creates a report configuration for the specified
// output format.
func CreateReportConfig(format string) *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()

	switch format {
	case "json":
		config.Format = reporter.FormatJSON
	case "csv":
		config.Format = reporter.FormatCSV
		// CSV is for row data; pass summaries stay on the console.
		config.IncludePassSummaries = false
	default:
		config.Format = reporter.FormatConsole
	}

	return config
}
