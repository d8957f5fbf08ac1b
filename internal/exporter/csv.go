package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
	UseLF     bool // Terminate lines with \n instead of \r\n
}

// ToCSV renders the view under columns. The same inputs always produce
// the same bytes.
func ToCSV(columns []string, view []domain.Record) []byte {
	return renderCSV(columns, view, WriteOptions{})
}

func renderCSV(columns []string, view []domain.Record, opts WriteOptions) []byte {
	var buf bytes.Buffer
	if opts.BOMPrefix {
		buf.Write(utf8BOM)
	}
	if len(view) == 0 {
		return buf.Bytes()
	}

	writer := csv.NewWriter(&buf)
	writer.UseCRLF = !opts.UseLF

	// bytes.Buffer writes cannot fail and every row has len(columns) fields
	_ = writer.Write(columns)
	for _, r := range view {
		_ = writer.Write(rowValues(r, columns))
	}
	writer.Flush()

	terminator := "\r\n"
	if opts.UseLF {
		terminator = "\n"
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte(terminator))
}

// WriteCSV writes the rendered view to w.
func WriteCSV(w io.Writer, columns []string, view []domain.Record, opts WriteOptions) error {
	if _, err := w.Write(renderCSV(columns, view, opts)); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// WriteCSVFile writes the rendered view to path, creating parent
// directories as needed.
func WriteCSVFile(path string, columns []string, view []domain.Record, opts WriteOptions) error {
	slog.Info("Writing CSV file",
		slog.String("file_path", path),
		slog.Int("record_count", len(view)))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, renderCSV(columns, view, opts), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
