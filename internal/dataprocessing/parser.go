package dataprocessing

import (
	"bytes"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/davallejo/telco-churn-dashboard/internal/errors"
	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
)

// Format identifies an upload encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Row is one tokenized data row: header name to raw cell text. Cells
// missing from a short row are absent from the map.
type Row map[string]string

// ParseResult is the tokenized content of an upload.
type ParseResult struct {
	Format  Format
	Header  []string
	Rows    []Row
	Skipped []domain.SkippedRow
}

// DetectFormat picks the upload format from the file name, falling back to
// the declared content type. Unknown inputs are treated as CSV.
func DetectFormat(filename, contentType string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xls", ".ods", ".numbers":
		return "", fmt.Errorf("%s: %w", filename, errors.ErrUnsupportedFormat)
	}
	if strings.HasPrefix(contentType, xlsxContentType) {
		return FormatXLSX, nil
	}
	return FormatCSV, nil
}

// Parse tokenizes r according to format.
func Parse(r io.Reader, format Format) (*ParseResult, error) {
	switch format {
	case FormatCSV, "":
		return ParseCSV(r)
	case FormatXLSX:
		return ParseXLSX(r)
	default:
		return nil, fmt.Errorf("format %q: %w", format, errors.ErrUnsupportedFormat)
	}
}

// ParseFile opens path and tokenizes it using the format implied by its
// extension.
func ParseFile(path string) (*ParseResult, error) {
	format, err := DetectFormat(path, "")
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return Parse(f, format)
}

// ParseCSV reads a header row followed by data rows. Blank lines are
// skipped; a row with more cells than the header drops the extras and a
// shorter row leaves the trailing columns absent. Rows the reader cannot
// decode are recorded in Skipped and parsing continues.
func ParseCSV(r io.Reader) (*ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	result := &ParseResult{Format: FormatCSV}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if stderrors.As(err, &parseErr) {
				result.Skipped = append(result.Skipped, domain.SkippedRow{
					Line:   parseErr.StartLine,
					Reason: parseErr.Err.Error(),
				})
				continue
			}
			return nil, errors.NewParsingError("failed to read CSV", err)
		}

		if result.Header == nil {
			result.Header = cleanHeader(record)
			continue
		}
		result.Rows = append(result.Rows, toRow(result.Header, record))
	}

	return result, nil
}

// ParseXLSX reads the first worksheet of a workbook, treating its first
// non-empty row as the header.
func ParseXLSX(r io.Reader) (*ParseResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.NewParsingError("failed to open workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	result := &ParseResult{Format: FormatXLSX}
	if len(sheets) == 0 {
		return result, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.NewParsingError(fmt.Sprintf("failed to read sheet %q", sheets[0]), err)
	}

	for _, cells := range rows {
		if isBlankRow(cells) {
			continue
		}
		if result.Header == nil {
			result.Header = cleanHeader(cells)
			continue
		}
		result.Rows = append(result.Rows, toRow(result.Header, cells))
	}

	return result, nil
}

// ParseBytes is a convenience for in-memory uploads.
func ParseBytes(data []byte, format Format) (*ParseResult, error) {
	return Parse(bytes.NewReader(data), format)
}

func cleanHeader(cells []string) []string {
	header := make([]string, len(cells))
	copy(header, cells)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
	return header
}

// toRow maps cells onto header names. With duplicate header names the
// rightmost cell wins.
func toRow(header, cells []string) Row {
	row := make(Row, len(header))
	for i, name := range header {
		if i >= len(cells) {
			break
		}
		row[name] = cells[i]
	}
	return row
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
