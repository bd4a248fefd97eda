package parsers

import (
	"context"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// InvoiceParser loads the invoice table from a CSV file. Rows that
// fail the invoice constraints (identifier pattern, non-negative
// amount, present issue date) are dropped and counted; they never
// reach the matching pipeline.
type InvoiceParser struct {
	*BaseParser
	config *InvoiceParserConfig
	logger logger.Logger
}

// NewInvoiceParser creates an InvoiceParser with the given
// configuration. A nil config selects the defaults.
func NewInvoiceParser(config *InvoiceParserConfig) (*InvoiceParser, error) {
	if config == nil {
		config = DefaultInvoiceParserConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "invoice_parser_config", nil, err)
	}

	return &InvoiceParser{
		BaseParser: NewBaseParser(&ParseConfig{
			HasHeader:        config.HasHeader,
			Delimiter:        config.Delimiter,
			TrimLeadingSpace: true,
			SkipEmptyRows:    true,
		}),
		config: config,
		logger: logger.WithComponent("invoice_parser"),
	}, nil
}

// ParseInvoices loads and validates all invoices from the file.
func (ip *InvoiceParser) ParseInvoices(filePath string) ([]*models.Invoice, *ParseStats, error) {
	return ip.ParseInvoicesWithContext(context.Background(), filePath)
}

// ParseInvoicesWithContext loads invoices with cancellation support.
func (ip *InvoiceParser) ParseInvoicesWithContext(ctx context.Context, filePath string) ([]*models.Invoice, *ParseStats, error) {
	ip.logger.WithField("file", filePath).Info("Loading invoice table")

	file, reader, err := ip.OpenFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	required := []string{FieldInvoiceID, FieldInvoiceAmount, FieldIssueDate}
	fields, err := ip.ResolveHeaders(reader, filePath, ip.config.Columns, required)
	if err != nil {
		return nil, nil, err
	}

	stats := &ParseStats{}
	var invoices []*models.Invoice
	seen := make(map[string]bool)

	err = ip.ForEachRecord(ctx, reader, filePath, func(line int, record []string) error {
		stats.TotalRows++

		id := models.NormalizeIdentifier(fields.get(record, FieldInvoiceID))
		if id == "" {
			stats.RecordDrop(line, errors.ValidationError(errors.CodeMissingField, FieldInvoiceID, "", nil))
			return nil
		}

		amount, perr := models.ParseAmount(fields.get(record, FieldInvoiceAmount))
		if perr != nil {
			stats.RecordDrop(line, errors.ValidationError(errors.CodeInvalidAmount, FieldInvoiceAmount, fields.get(record, FieldInvoiceAmount), perr))
			return nil
		}

		issueDate, perr := models.ParseDate(fields.get(record, FieldIssueDate))
		if perr != nil {
			stats.RecordDrop(line, errors.ValidationError(errors.CodeInvalidDate, FieldIssueDate, fields.get(record, FieldIssueDate), perr))
			return nil
		}

		inv := models.NewInvoice(id, fields.get(record, FieldSequenceNumber), amount, issueDate)
		if verr := inv.Validate(); verr != nil {
			stats.RecordDrop(line, verr)
			return nil
		}

		// The identifier is a primary key; a duplicate row is a data
		// quality problem, not two invoices.
		if seen[inv.ID] {
			stats.RecordDrop(line, errors.ValidationError(errors.CodeMissingField, FieldInvoiceID, inv.ID,
				nil).WithSuggestion("duplicate invoice identifier; the first occurrence is kept"))
			return nil
		}
		seen[inv.ID] = true

		invoices = append(invoices, inv)
		stats.LoadedRows++
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	ip.logger.WithFields(logger.Fields{
		"file":  filePath,
		"stats": stats.String(),
	}).Info("Invoice table loaded")

	return invoices, stats, nil
}
