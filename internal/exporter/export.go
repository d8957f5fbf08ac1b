package exporter

import (
	"bytes"
	"fmt"

	"github.com/davallejo/telco-churn-dashboard/internal/dataprocessing"
	"github.com/davallejo/telco-churn-dashboard/internal/errors"
	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Content types and default file names of the export formats.
const (
	ContentTypeCSV  = "text/csv;charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	DefaultCSVFilename  = "telco_churn_filtered.csv"
	DefaultXLSXFilename = "telco_churn_filtered.xlsx"
)

// Options tunes an export.
type Options struct {
	Filename  string // overrides the default file name; extension is kept as given
	BOMPrefix bool   // CSV only
}

// Export renders view in the requested format. The ETag is a content hash,
// so identical views under identical columns share it.
func Export(format string, columns []string, view []domain.Record, opts Options) (domain.ExportFile, error) {
	var (
		body        []byte
		contentType string
		filename    string
	)

	switch format {
	case FormatCSV, "":
		body = renderCSV(columns, view, WriteOptions{BOMPrefix: opts.BOMPrefix})
		contentType = ContentTypeCSV
		filename = DefaultCSVFilename
	case FormatXLSX:
		var buf bytes.Buffer
		if err := WriteXLSX(&buf, columns, view); err != nil {
			return domain.ExportFile{}, errors.NewExportError("failed to render workbook", err)
		}
		body = buf.Bytes()
		contentType = ContentTypeXLSX
		filename = DefaultXLSXFilename
	default:
		return domain.ExportFile{}, fmt.Errorf("export format %q: %w", format, errors.ErrUnsupportedFormat)
	}

	if opts.Filename != "" {
		filename = opts.Filename
	}

	return domain.ExportFile{
		Filename:    filename,
		ContentType: contentType,
		ETag:        `"` + dataprocessing.Fingerprint(body) + `"`,
		Rows:        len(view),
		Body:        body,
	}, nil
}
