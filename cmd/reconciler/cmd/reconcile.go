package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"invoice-reconciliation-service/cmd/reconciler/config"
	"invoice-reconciliation-service/internal/matcher"
	"invoice-reconciliation-service/internal/reconciler"
	"invoice-reconciliation-service/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	invoicesFile string
	ledgerFile   string
	outputFormat string
	outputFile   string

	excludeKeywords    []string
	noNoiseFilter      bool
	minFolioLength     int
	proximityTolerance float64
	proximityWindow    int

	modelFile           string
	classifierThreshold float64
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile invoices with ledger movements",
	Long: `Reconcile compares an invoice export with a general ledger auxiliary
to pair each invoice with the movement that paid it.

This command requires:
- An invoice CSV file (one row per invoice, with identifier, folio, total and issue date)
- A ledger CSV file (one row per movement, with date, description, debit and credit)

Examples:
  # Basic reconciliation
  reconciler reconcile --invoices-file invoices.csv --ledger-file ledger.csv

  # JSON report to a file
  reconciler reconcile --invoices-file inv.csv --ledger-file aux.csv \
    --output-format json --output-file report.json

  # Custom proximity pass settings
  reconciler reconcile --invoices-file inv.csv --ledger-file aux.csv \
    --proximity-tolerance 2.50 --proximity-window 45

  # Extra noise keywords on top of the defaults
  reconciler reconcile --invoices-file inv.csv --ledger-file aux.csv \
    --exclude-keywords INTERESES,AJUSTE

  # Enable the classifier pass with a trained model
  reconciler reconcile --invoices-file inv.csv --ledger-file aux.csv \
    --model-file model.json --classifier-threshold 0.85`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringVarP(&invoicesFile, "invoices-file", "i", "", "path to invoice CSV file (required)")
	reconcileCmd.Flags().StringVarP(&ledgerFile, "ledger-file", "l", "", "path to ledger CSV file (required)")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	// Matching configuration flags
	reconcileCmd.Flags().StringSliceVar(&excludeKeywords, "exclude-keywords", []string{}, "extra noise keywords added to the defaults")
	reconcileCmd.Flags().BoolVar(&noNoiseFilter, "no-noise-filter", false, "disable the noise keyword filter entirely")
	reconcileCmd.Flags().IntVar(&minFolioLength, "min-folio-length", matcher.MinSequenceLength, "minimum folio length used by the folio passes")
	reconcileCmd.Flags().Float64VarP(&proximityTolerance, "proximity-tolerance", "t", 1.00, "amount tolerance for the proximity pass")
	reconcileCmd.Flags().IntVarP(&proximityWindow, "proximity-window", "w", 30, "date window in days for the proximity pass")

	// Classifier flags
	reconcileCmd.Flags().StringVarP(&modelFile, "model-file", "m", "", "JSON model file enabling the classifier pass")
	reconcileCmd.Flags().Float64Var(&classifierThreshold, "classifier-threshold", 0.90, "minimum probability at which the classifier accepts a pair")

	// Mark required flags
	reconcileCmd.MarkFlagRequired("invoices-file")
	reconcileCmd.MarkFlagRequired("ledger-file")

	// Bind flags to viper
	viper.BindPFlag("invoices-file", reconcileCmd.Flags().Lookup("invoices-file"))
	viper.BindPFlag("ledger-file", reconcileCmd.Flags().Lookup("ledger-file"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("exclude-keywords", reconcileCmd.Flags().Lookup("exclude-keywords"))
	viper.BindPFlag("no-noise-filter", reconcileCmd.Flags().Lookup("no-noise-filter"))
	viper.BindPFlag("min-folio-length", reconcileCmd.Flags().Lookup("min-folio-length"))
	viper.BindPFlag("proximity-tolerance", reconcileCmd.Flags().Lookup("proximity-tolerance"))
	viper.BindPFlag("proximity-window", reconcileCmd.Flags().Lookup("proximity-window"))
	viper.BindPFlag("model-file", reconcileCmd.Flags().Lookup("model-file"))
	viper.BindPFlag("classifier-threshold", reconcileCmd.Flags().Lookup("classifier-threshold"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	invoicesFile = viper.GetString("invoices-file")
	ledgerFile = viper.GetString("ledger-file")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	excludeKeywords = viper.GetStringSlice("exclude-keywords")
	noNoiseFilter = viper.GetBool("no-noise-filter")
	minFolioLength = viper.GetInt("min-folio-length")
	proximityTolerance = viper.GetFloat64("proximity-tolerance")
	proximityWindow = viper.GetInt("proximity-window")
	modelFile = viper.GetString("model-file")
	classifierThreshold = viper.GetFloat64("classifier-threshold")

	// Validate required flags
	if invoicesFile == "" {
		return fmt.Errorf("invoices-file is required")
	}
	if ledgerFile == "" {
		return fmt.Errorf("ledger-file is required")
	}

	// Validate file existence
	if err := validateFileExists(invoicesFile, "invoice file"); err != nil {
		return err
	}
	if err := validateFileExists(ledgerFile, "ledger file"); err != nil {
		return err
	}
	if modelFile != "" {
		if err := validateFileExists(modelFile, "model file"); err != nil {
			return err
		}
	}

	// Validate output format
	validFormats := map[string]bool{"console": true, "json": true, "csv": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	// Validate tolerances
	if proximityTolerance < 0 {
		return fmt.Errorf("proximity tolerance cannot be negative")
	}
	if proximityWindow < 0 {
		return fmt.Errorf("proximity window cannot be negative")
	}
	if minFolioLength < 1 {
		return fmt.Errorf("minimum folio length must be at least 1")
	}
	if classifierThreshold < 0 || classifierThreshold > 1 {
		return fmt.Errorf("classifier threshold must be between 0.0 and 1.0")
	}

	// Validate output file directory exists if specified
	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	// Check if file is readable
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting reconciliation...\n")
		fmt.Fprintf(os.Stderr, "Invoice file: %s\n", invoicesFile)
		fmt.Fprintf(os.Stderr, "Ledger file: %s\n", ledgerFile)
		fmt.Fprintf(os.Stderr, "Output format: %s\n", outputFormat)
		if outputFile != "" {
			fmt.Fprintf(os.Stderr, "Output file: %s\n", outputFile)
		}
	}

	// Create configurations
	invoiceConfig := config.CreateInvoiceParserConfig()
	ledgerConfig := config.CreateLedgerParserConfig()
	matcherConfig := config.CreateMatcherConfig(config.MatcherOptions{
		ExtraKeywords:       excludeKeywords,
		DisableNoiseFilter:  noNoiseFilter,
		MinFolioLength:      minFolioLength,
		ProximityTolerance:  proximityTolerance,
		ProximityWindowDays: proximityWindow,
		ClassifierThreshold: classifierThreshold,
	})

	// Load the classifier model if one was supplied
	var classifier matcher.Classifier
	if modelFile != "" {
		model, err := matcher.LoadClassifierModel(modelFile)
		if err != nil {
			return fmt.Errorf("failed to load classifier model: %w", err)
		}
		classifier = model
	}

	// Create reconciliation service
	service, err := reconciler.NewReconciliationService(
		invoiceConfig,
		ledgerConfig,
		matcherConfig,
		classifier,
	)
	if err != nil {
		return fmt.Errorf("failed to create reconciliation service: %w", err)
	}

	request := &reconciler.ReconciliationRequest{
		InvoiceFile: invoicesFile,
		LedgerFile:  ledgerFile,
	}

	result, err := service.ProcessReconciliation(ctx, request)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	// Generate report
	reportConfig := config.CreateReportConfig(outputFormat)
	reportWriter, err := reporter.NewReporter(reportConfig)
	if err != nil {
		return fmt.Errorf("failed to create reporter: %w", err)
	}

	// Determine output destination
	var output *os.File
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	} else {
		output = os.Stdout
	}

	if err := reportWriter.WriteReport(output, result); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	// Show completion message
	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nReconciliation completed successfully.\n")
		fmt.Fprintf(os.Stderr, "Processed %d invoices and %d ledger movements.\n",
			result.Summary.TotalInvoices, result.Summary.TotalMovements)
		fmt.Fprintf(os.Stderr, "Found %d matches, %d unmatched invoices, %d unmatched movements, %d noise movements.\n",
			result.Summary.MatchedPairs, result.Summary.UnmatchedInvoices,
			result.Summary.UnmatchedMovements, result.Summary.NoiseMovements)
		fmt.Fprintf(os.Stderr, "Processing time: %v\n", result.Duration)
	}

	return nil
}
