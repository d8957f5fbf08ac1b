package dataprocessing

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/davallejo/telco-churn-dashboard/internal/errors"
	"github.com/davallejo/telco-churn-dashboard/internal/shared/testutil"
)

func TestParseCSV(t *testing.T) {
	t.Run("sample dataset", func(t *testing.T) {
		result, err := ParseCSV(strings.NewReader(testutil.TelcoCSV(testutil.SampleCustomers()...)))
		require.NoError(t, err)

		assert.Equal(t, FormatCSV, result.Format)
		assert.Equal(t, testutil.TelcoHeader, result.Header)
		require.Len(t, result.Rows, len(testutil.SampleCustomers()))
		assert.Equal(t, "7590-VHVEG", result.Rows[0]["customerID"])
		assert.Equal(t, "99,65", result.Rows[5]["MonthlyCharges"])
		assert.Empty(t, result.Skipped)
	})

	tests := []struct {
		name       string
		input      string
		wantHeader []string
		wantRows   []Row
	}{
		{
			name:       "byte order mark stripped from header",
			input:      "\uFEFFChurn,tenure\nYes,3\n",
			wantHeader: []string{"Churn", "tenure"},
			wantRows:   []Row{{"Churn": "Yes", "tenure": "3"}},
		},
		{
			name:       "blank lines skipped",
			input:      "a,b\n\n1,2\n\n\n3,4\n",
			wantHeader: []string{"a", "b"},
			wantRows:   []Row{{"a": "1", "b": "2"}, {"a": "3", "b": "4"}},
		},
		{
			name:       "short row leaves columns absent",
			input:      "a,b,c\n1\n",
			wantHeader: []string{"a", "b", "c"},
			wantRows:   []Row{{"a": "1"}},
		},
		{
			name:       "long row drops extra cells",
			input:      "a,b\n1,2,3,4\n",
			wantHeader: []string{"a", "b"},
			wantRows:   []Row{{"a": "1", "b": "2"}},
		},
		{
			name:       "duplicate header keeps last cell",
			input:      "a,a\n1,2\n",
			wantHeader: []string{"a", "a"},
			wantRows:   []Row{{"a": "2"}},
		},
		{
			name:       "quoted fields",
			input:      "name,note\n\"Doe, J\",\"line1\nline2\"\n",
			wantHeader: []string{"name", "note"},
			wantRows:   []Row{{"name": "Doe, J", "note": "line1\nline2"}},
		},
		{
			name:       "crlf line endings",
			input:      "a,b\r\n1,2\r\n",
			wantHeader: []string{"a", "b"},
			wantRows:   []Row{{"a": "1", "b": "2"}},
		},
		{
			name:       "header only",
			input:      "a,b\n",
			wantHeader: []string{"a", "b"},
		},
		{
			name:  "empty input",
			input: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseCSV(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.wantHeader, result.Header)
			assert.Equal(t, tt.wantRows, result.Rows)
		})
	}
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"customerID", "Contract", "Churn", "MonthlyCharges"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"0001", "Two year", "Yes", "70,5"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]interface{}{"0002", "One year"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	result, err := ParseXLSX(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, FormatXLSX, result.Format)
	assert.Equal(t, []string{"customerID", "Contract", "Churn", "MonthlyCharges"}, result.Header)
	require.Len(t, result.Rows, 2, "blank spreadsheet rows are skipped")
	assert.Equal(t, "70,5", result.Rows[0]["MonthlyCharges"])
	assert.Equal(t, Row{"customerID": "0002", "Contract": "One year"}, result.Rows[1])
}

func TestParseXLSX_InvalidWorkbook(t *testing.T) {
	_, err := ParseXLSX(strings.NewReader("not a zip"))
	require.Error(t, err)

	var appErr *errors.AppError
	require.True(t, stderrors.As(err, &appErr))
	assert.Equal(t, errors.ErrTypeParsing, appErr.Type)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		want        Format
		wantErr     bool
	}{
		{name: "csv extension", filename: "telco.csv", want: FormatCSV},
		{name: "upper case xlsx", filename: "TELCO.XLSX", want: FormatXLSX},
		{name: "content type only", filename: "upload", contentType: xlsxContentType, want: FormatXLSX},
		{name: "unknown defaults to csv", filename: "data", contentType: "text/plain", want: FormatCSV},
		{name: "legacy excel rejected", filename: "telco.xls", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.filename, tt.contentType)
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_UnknownFormat(t *testing.T) {
	_, err := Parse(strings.NewReader("a\n1\n"), Format("ods"))
	assert.ErrorIs(t, err, errors.ErrUnsupportedFormat)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telco.csv")
	require.NoError(t, os.WriteFile(path, []byte(testutil.TelcoCSV(testutil.GenerateCustomers(25)...)), 0o644))

	result, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, result.Rows, 25)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
