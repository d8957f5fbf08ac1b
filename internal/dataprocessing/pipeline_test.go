package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
)

func TestDerive_EndToEnd(t *testing.T) {
	result := &ParseResult{
		Format: FormatCSV,
		Header: []string{"Contract", "Churn", "tenure", "MonthlyCharges"},
		Rows: []Row{
			{"Contract": "Month-to-month", "Churn": "Yes", "tenure": "5", "MonthlyCharges": "70,5"},
			{"Contract": "Two year", "Churn": "No", "tenure": "60", "MonthlyCharges": "20"},
		},
	}
	state := NewState(domain.DashboardState{}, Ingest(result, IngestOptions{}))

	snap := Derive(state, 0)

	assert.Equal(t, domain.KPISummary{
		Count:             2,
		Churned:           1,
		ChurnRatePercent:  50,
		AvgTenure:         32.5,
		AvgMonthlyCharges: 45.25,
	}, snap.Summary)
	assert.Equal(t, "50.00", snap.Display.ChurnRatePercent)
	assert.Equal(t, "32.5", snap.Display.AvgTenure)
	assert.Equal(t, "45.25", snap.Display.AvgMonthlyCharges)
	assert.Equal(t, map[string]float64{"Month-to-month": 100, "Two year": 0}, snap.ContractChurn.AsMap())
	assert.Empty(t, snap.InternetChurn.Groups)

	assert.Equal(t, 1, snap.Page.Page)
	assert.Equal(t, DefaultPageSize, snap.Page.PageSize)
	assert.Len(t, snap.Page.Records, 2)
	assert.Equal(t, []string{"Month-to-month", "Two year"}, snap.Options.Contracts)
}

func TestNewState_KeepsFiltersResetsPage(t *testing.T) {
	prev := domain.DashboardState{
		Filters: domain.FilterState{Contract: "Two year", Search: "x"},
		Page:    7,
	}
	ds := sampleDataset(t)

	next := NewState(prev, ds)
	assert.Equal(t, prev.Filters, next.Filters)
	assert.Equal(t, 1, next.Page)
	assert.Same(t, ds, next.Dataset)
}

func TestDerive_OptionsIgnoreFilters(t *testing.T) {
	state := domain.DashboardState{
		Dataset: sampleDataset(t),
		Filters: domain.FilterState{Contract: "Two year"},
		Page:    1,
	}

	snap := Derive(state, 10)
	assert.Equal(t, 2, snap.Summary.Count)
	assert.Len(t, snap.Options.Contracts, 3)
	require.Len(t, snap.ContractChurn.Groups, 1)
	assert.Equal(t, "Two year", snap.ContractChurn.Groups[0].Value)
}

func TestDerive_NoDataset(t *testing.T) {
	snap := Derive(domain.DashboardState{Page: 1}, 10)
	assert.Equal(t, domain.KPISummary{}, snap.Summary)
	assert.Empty(t, snap.Page.Records)
	assert.Empty(t, snap.Options.Contracts)
}

func TestDerive_Idempotent(t *testing.T) {
	state := domain.DashboardState{
		Dataset: sampleDataset(t),
		Filters: domain.FilterState{Search: "fiber"},
		Page:    2,
	}
	first := Derive(state, 3)
	second := Derive(state, 3)
	assert.Equal(t, first, second)
	assert.Equal(t, 7, first.Summary.Count)
}
