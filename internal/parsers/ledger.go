package parsers

import (
	"context"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// LedgerParser loads the ledger movement table from a CSV file. Each
// loaded movement receives a dense synthetic ID that is stable for the
// run. A movement with an unparseable date keeps a zero date and is
// excluded from date-aware passes only; a movement whose description
// is empty is dropped, because every text pass would ignore it and the
// melt step needs the description for sequence matching.
type LedgerParser struct {
	*BaseParser
	config *LedgerParserConfig
	logger logger.Logger
}

// NewLedgerParser creates a LedgerParser with the given configuration.
// A nil config selects the defaults.
func NewLedgerParser(config *LedgerParserConfig) (*LedgerParser, error) {
	if config == nil {
		config = DefaultLedgerParserConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "ledger_parser_config", nil, err)
	}

	return &LedgerParser{
		BaseParser: NewBaseParser(&ParseConfig{
			HasHeader:        config.HasHeader,
			Delimiter:        config.Delimiter,
			TrimLeadingSpace: true,
			SkipEmptyRows:    true,
		}),
		config: config,
		logger: logger.WithComponent("ledger_parser"),
	}, nil
}

// ParseMovements loads all ledger movements from the file.
func (lp *LedgerParser) ParseMovements(filePath string) ([]*models.LedgerMovement, *ParseStats, error) {
	return lp.ParseMovementsWithContext(context.Background(), filePath)
}

// ParseMovementsWithContext loads movements with cancellation support.
func (lp *LedgerParser) ParseMovementsWithContext(ctx context.Context, filePath string) ([]*models.LedgerMovement, *ParseStats, error) {
	lp.logger.WithField("file", filePath).Info("Loading ledger movement table")

	file, reader, err := lp.OpenFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	required := []string{FieldLedgerDescription, FieldDebitAmount, FieldCreditAmount}
	fields, err := lp.ResolveHeaders(reader, filePath, lp.config.Columns, required)
	if err != nil {
		return nil, nil, err
	}

	stats := &ParseStats{}
	var movements []*models.LedgerMovement
	nextID := 0

	err = lp.ForEachRecord(ctx, reader, filePath, func(line int, record []string) error {
		stats.TotalRows++

		description := fields.get(record, FieldLedgerDescription)
		if description == "" {
			stats.RecordDrop(line, errors.ValidationError(errors.CodeMissingField, FieldLedgerDescription, "", nil))
			return nil
		}

		debit, perr := models.ParseAmount(fields.get(record, FieldDebitAmount))
		if perr != nil {
			stats.RecordDrop(line, errors.ValidationError(errors.CodeInvalidAmount, FieldDebitAmount, fields.get(record, FieldDebitAmount), perr))
			return nil
		}
		credit, perr := models.ParseAmount(fields.get(record, FieldCreditAmount))
		if perr != nil {
			stats.RecordDrop(line, errors.ValidationError(errors.CodeInvalidAmount, FieldCreditAmount, fields.get(record, FieldCreditAmount), perr))
			return nil
		}
		if debit.IsNegative() || credit.IsNegative() {
			stats.RecordDrop(line, errors.ValidationError(errors.CodeInvalidAmount, FieldDebitAmount, "negative amount", nil))
			return nil
		}

		// The date is nullable: movements without one still take part
		// in text and amount-only matching.
		date, derr := models.ParseDate(fields.get(record, FieldLedgerDate))
		if derr != nil {
			lp.logger.WithFields(logger.Fields{
				"line":  line,
				"value": fields.get(record, FieldLedgerDate),
			}).Debug("Ledger movement has no parseable date")
		}

		movements = append(movements, models.NewLedgerMovement(nextID, debit, credit, date, description))
		nextID++
		stats.LoadedRows++
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	lp.logger.WithFields(logger.Fields{
		"file":  filePath,
		"stats": stats.String(),
	}).Info("Ledger movement table loaded")

	return movements, stats, nil
}
