package dataprocessing

import (
	"strings"

	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
)

// Matches reports whether a record satisfies every active criterion.
// Contract and internet service compare exactly; search is a case
// insensitive substring test over all of the record's values.
func Matches(r domain.Record, f domain.FilterState) bool {
	if f.Contract != "" && r.Get(domain.FieldContract) != f.Contract {
		return false
	}
	if f.InternetService != "" && r.Get(domain.FieldInternetService) != f.InternetService {
		return false
	}
	if f.Search == "" {
		return true
	}
	return containsFold(r, strings.ToLower(f.Search))
}

func containsFold(r domain.Record, needle string) bool {
	found := false
	r.EachValue(func(_, value string) bool {
		if strings.Contains(strings.ToLower(value), needle) {
			found = true
			return false
		}
		return true
	})
	return found
}

// Apply returns the records matching f in their original order. With no
// active filter the input slice itself is returned.
func Apply(records []domain.Record, f domain.FilterState) []domain.Record {
	if f.IsZero() {
		return records
	}
	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if Matches(r, f) {
			out = append(out, r)
		}
	}
	return out
}

// DistinctValues lists the non-empty values of field in first-appearance
// order.
func DistinctValues(records []domain.Record, field string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range records {
		v := r.Get(field)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Options returns the filter choices offered for a dataset. They are
// always taken from the full dataset, never from a filtered view.
func Options(ds *domain.Dataset) domain.FilterOptions {
	all := ds.All()
	return domain.FilterOptions{
		Contracts:        DistinctValues(all, domain.FieldContract),
		InternetServices: DistinctValues(all, domain.FieldInternetService),
	}
}
