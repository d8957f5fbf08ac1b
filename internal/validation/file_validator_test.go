package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davallejo/telco-churn-dashboard/internal/shared/testutil"
)

func TestFileValidator_ValidateCustomerFile(t *testing.T) {
	tests := []struct {
		name          string
		setupFunc     func(t *testing.T) string
		wantErr       bool
		errorContains string
	}{
		{
			name: "csv file",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "telco.csv")
				require.NoError(t, os.WriteFile(path, []byte(testutil.TelcoCSV(testutil.SampleCustomers()...)), 0644))
				return path
			},
		},
		{
			name: "xlsx extension is case-insensitive",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "TELCO.XLSX")
				require.NoError(t, os.WriteFile(path, []byte("PK"), 0644))
				return path
			},
		},
		{
			name: "unsupported extension",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "telco.json")
			},
			wantErr:       true,
			errorContains: "not a CSV or XLSX file",
		},
		{
			name: "excel lock file",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "~$telco.xlsx")
				require.NoError(t, os.WriteFile(path, []byte("lock"), 0644))
				return path
			},
			wantErr:       true,
			errorContains: "temporary Excel file",
		},
		{
			name: "missing file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.csv")
			},
			wantErr:       true,
			errorContains: "does not exist",
		},
		{
			name: "directory",
			setupFunc: func(t *testing.T) string {
				dir := filepath.Join(t.TempDir(), "dir.csv")
				require.NoError(t, os.Mkdir(dir, 0755))
				return dir
			},
			wantErr:       true,
			errorContains: "is a directory",
		},
		{
			name: "empty file",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "empty.csv")
				require.NoError(t, os.WriteFile(path, nil, 0644))
				return path
			},
			wantErr:       true,
			errorContains: "is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			v := NewFileValidator(logger)

			info, err := v.ValidateCustomerFile(tt.setupFunc(t))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			require.NoError(t, err)
			assert.Positive(t, info.Size())
		})
	}
}

func TestFileValidator_ValidateOutputFile(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	v := NewFileValidator(logger)
	dir := t.TempDir()

	require.NoError(t, v.ValidateOutputFile(filepath.Join(dir, "out.csv")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "write probe must be removed")

	err = v.ValidateOutputFile(filepath.Join(dir, "missing", "out.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output directory")
	assert.True(t, logs.ContainsMessage("Output directory is not accessible"))

	err = v.ValidateOutputFile(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestNewFileValidator_NilLogger(t *testing.T) {
	v := NewFileValidator(nil)
	require.NotNil(t, v)
	assert.NotNil(t, v.logger)
}
