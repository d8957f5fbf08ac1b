package dataprocessing

import (
	"time"

	"github.com/google/uuid"

	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
)

// IngestOptions carries the metadata stamped onto a new Dataset.
type IngestOptions struct {
	Source      string
	Fingerprint string
	Now         func() time.Time
}

// NormalizeRow copies every source field verbatim and overwrites the four
// canonical fields with their normalized values.
func NormalizeRow(row Row) domain.Record {
	fields := make(map[string]string, len(row))
	for k, v := range row {
		if domain.IsCanonicalField(k) {
			continue
		}
		fields[k] = v
	}
	return domain.Record{
		Fields:         fields,
		Churn:          NormalizeChurn(row[domain.FieldChurn]),
		Tenure:         NormalizeNumber(row[domain.FieldTenure]),
		MonthlyCharges: NormalizeNumber(row[domain.FieldMonthlyCharges]),
		TotalCharges:   NormalizeNumber(row[domain.FieldTotalCharges]),
	}
}

// Ingest normalizes every parsed row into a new Dataset. It never fails:
// a nil or empty result yields an empty dataset.
func Ingest(result *ParseResult, opts IngestOptions) *domain.Dataset {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	var header []string
	var rows []Row
	if result != nil {
		header = result.Header
		rows = result.Rows
	}

	records := make([]domain.Record, len(rows))
	for i, row := range rows {
		records[i] = NormalizeRow(row)
	}

	return &domain.Dataset{
		ID:          uuid.NewString(),
		Source:      opts.Source,
		Fingerprint: opts.Fingerprint,
		Columns:     DatasetColumns(header),
		Records:     records,
		LoadedAt:    now().UTC(),
	}
}

// DatasetColumns returns the export column order for a header: source
// order with duplicates collapsed, then any canonical column the source
// lacked.
func DatasetColumns(header []string) []string {
	seen := make(map[string]struct{}, len(header)+len(domain.CanonicalFields))
	columns := make([]string, 0, len(header)+len(domain.CanonicalFields))
	for _, name := range header {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		columns = append(columns, name)
	}
	for _, name := range domain.CanonicalFields {
		if _, ok := seen[name]; !ok {
			columns = append(columns, name)
		}
	}
	return columns
}
