package dataprocessing

import (
	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
)

// NewState returns the state right after a dataset is loaded: filters are
// carried over from prev and the page resets to 1.
func NewState(prev domain.DashboardState, ds *domain.Dataset) domain.DashboardState {
	return domain.DashboardState{
		Dataset: ds,
		Filters: prev.Filters,
		Page:    1,
	}
}

// View computes the filtered view of a state.
func View(state domain.DashboardState) []domain.Record {
	return Apply(state.Dataset.All(), state.Filters)
}

// Derive recomputes every dashboard output from a state. pageSize <= 0
// selects DefaultPageSize.
func Derive(state domain.DashboardState, pageSize int) domain.Snapshot {
	return DeriveFromView(state, View(state), pageSize)
}

// DeriveFromView is Derive for callers that already hold the filtered view
// of state, e.g. from a cache.
func DeriveFromView(state domain.DashboardState, view []domain.Record, pageSize int) domain.Snapshot {
	summary := Summarize(view)
	return domain.Snapshot{
		Dataset:       state.Dataset,
		Filters:       state.Filters,
		Summary:       summary,
		Display:       summary.Display(),
		ContractChurn: GroupChurnRate(view, domain.FieldContract),
		InternetChurn: GroupChurnRate(view, domain.FieldInternetService),
		Options:       Options(state.Dataset),
		Page:          Paginate(view, state.Page, pageSize),
	}
}
