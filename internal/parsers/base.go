// Package parsers loads the two normalized in-memory tables consumed
// by the matching pipeline: the invoice table and the ledger movement
// table. Loading is the only place where rows can be dropped; every
// dropped row is counted so the caller can reconcile totals.
//
// Logical field names are resolved to source columns once per file,
// through a configured list of candidate column names, never per row.
package parsers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// ParseConfig holds low-level CSV reading options shared by both
// loaders.
type ParseConfig struct {
	HasHeader        bool
	Delimiter        rune
	TrimLeadingSpace bool
	SkipEmptyRows    bool
}

// DefaultParseConfig returns a configuration with sensible defaults.
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		HasHeader:        true,
		Delimiter:        ',',
		TrimLeadingSpace: true,
		SkipEmptyRows:    true,
	}
}

// BaseParser provides the CSV plumbing shared by the invoice and
// ledger loaders: file opening, header resolution with aliases, and
// row iteration with drop accounting.
type BaseParser struct {
	config *ParseConfig
	logger logger.Logger
}

// NewBaseParser creates a BaseParser with the given configuration.
func NewBaseParser(config *ParseConfig) *BaseParser {
	if config == nil {
		config = DefaultParseConfig()
	}
	return &BaseParser{
		config: config,
		logger: logger.WithComponent("csv_parser"),
	}
}

// ParseStats accounts for every source row: rows parsed into records,
// rows dropped with the reason, and a small sample of drop messages
// for diagnostics.
type ParseStats struct {
	TotalRows    int      `json:"total_rows"`
	LoadedRows   int      `json:"loaded_rows"`
	DroppedRows  int      `json:"dropped_rows"`
	SampleErrors []string `json:"sample_errors,omitempty"`
}

const maxSampleErrors = 10

// RecordDrop counts one dropped row and keeps the first few messages.
func (ps *ParseStats) RecordDrop(line int, reason error) {
	ps.DroppedRows++
	if len(ps.SampleErrors) < maxSampleErrors {
		ps.SampleErrors = append(ps.SampleErrors, fmt.Sprintf("line %d: %v", line, reason))
	}
}

// String summarizes the stats for logs.
func (ps *ParseStats) String() string {
	return fmt.Sprintf("rows=%d loaded=%d dropped=%d", ps.TotalRows, ps.LoadedRows, ps.DroppedRows)
}

// fieldMap resolves logical field names to column indexes for one file.
type fieldMap map[string]int

// get returns the value of a logical field in a record, or empty when
// the field is absent from the file (optional columns).
func (fm fieldMap) get(record []string, field string) string {
	idx, ok := fm[field]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// has reports whether the field was resolved to a column.
func (fm fieldMap) has(field string) bool {
	_, ok := fm[field]
	return ok
}

// OpenFile opens a CSV file and returns a configured reader.
func (bp *BaseParser) OpenFile(filePath string) (*os.File, *csv.Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.LoadError(errors.CodeFileNotFound, filePath, err)
		}
		if os.IsPermission(err) {
			return nil, nil, errors.LoadError(errors.CodeFilePermission, filePath, err)
		}
		return nil, nil, errors.LoadError(errors.CodeFileNotFound, filePath, err)
	}

	reader := csv.NewReader(file)
	reader.Comma = bp.config.Delimiter
	reader.TrimLeadingSpace = bp.config.TrimLeadingSpace
	// Ledger exports frequently have ragged rows; be tolerant and let
	// per-field validation decide what to drop.
	reader.FieldsPerRecord = -1

	return file, reader, nil
}

// ResolveHeaders reads the header row and maps each logical field to a
// column index. For every logical field the candidate column names are
// tried in order, case-insensitively. Missing required fields are a
// fatal parse error.
func (bp *BaseParser) ResolveHeaders(
	reader *csv.Reader,
	filePath string,
	candidates map[string][]string,
	required []string,
) (fieldMap, error) {
	if !bp.config.HasHeader {
		return nil, errors.ParseError(errors.CodeMissingColumn, filePath, 0, "headers", "",
			fmt.Errorf("headerless files are not supported"))
	}

	headers, err := reader.Read()
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, filePath, 1, "headers", "", err)
	}

	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}

	fm := make(fieldMap, len(candidates))
	for field, names := range candidates {
		for _, name := range names {
			if i, ok := index[strings.ToLower(name)]; ok {
				fm[field] = i
				break
			}
		}
	}

	var missing []string
	for _, field := range required {
		if !fm.has(field) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, errors.ParseError(errors.CodeMissingColumn, filePath, 1,
			strings.Join(missing, ","), "",
			fmt.Errorf("required columns not found: %v", missing))
	}

	bp.logger.WithFields(logger.Fields{
		"file":     filePath,
		"resolved": len(fm),
	}).Debug("Resolved CSV headers")

	return fm, nil
}

// ForEachRecord iterates the data rows of the file, skipping empty
// rows, honoring context cancellation, and passing each record with
// its line number to the callback.
func (bp *BaseParser) ForEachRecord(
	ctx context.Context,
	reader *csv.Reader,
	filePath string,
	fn func(line int, record []string) error,
) error {
	line := 1 // header consumed by ResolveHeaders
	for {
		if err := ctx.Err(); err != nil {
			return errors.InternalError("csv_parsing", err)
		}

		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			return errors.ParseError(errors.CodeInvalidFormat, filePath, line, "record", "", err)
		}

		if bp.config.SkipEmptyRows && isEmptyRecord(record) {
			continue
		}
		if err := fn(line, record); err != nil {
			return err
		}
	}
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
