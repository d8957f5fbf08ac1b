package dataprocessing

import (
	"math"

	"github.com/davallejo/telco-churn-dashboard/internal/errors"
	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
)

// Churn breakdown dimensions accepted by the HTTP API.
const (
	DimensionContract = "contract"
	DimensionInternet = "internet"
)

// DimensionField resolves an API dimension name to its column.
func DimensionField(dimension string) (string, error) {
	switch dimension {
	case DimensionContract:
		return domain.FieldContract, nil
	case DimensionInternet:
		return domain.FieldInternetService, nil
	}
	return "", errors.ErrUnknownDimension
}

// Summarize computes the KPI block of a view. An empty view yields all
// zeros rather than dividing by zero.
func Summarize(view []domain.Record) domain.KPISummary {
	n := len(view)
	if n == 0 {
		return domain.KPISummary{}
	}

	churned := 0
	var tenure, monthly float64
	for _, r := range view {
		if r.Churn.Churned() {
			churned++
		}
		tenure += r.Tenure
		monthly += r.MonthlyCharges
	}

	return domain.KPISummary{
		Count:             n,
		Churned:           churned,
		ChurnRatePercent:  round(churnRate(churned, n), 2),
		AvgTenure:         round(tenure/float64(n), 1),
		AvgMonthlyCharges: round(monthly/float64(n), 2),
	}
}

// GroupChurnRate computes the churn rate of each distinct non-empty value
// of field within the view, in first-appearance order. Records with an
// empty value are left out of every group.
func GroupChurnRate(view []domain.Record, field string) domain.GroupedChurn {
	index := make(map[string]int)
	groups := []domain.GroupRate{}

	for _, r := range view {
		v := r.Get(field)
		if v == "" {
			continue
		}
		i, ok := index[v]
		if !ok {
			i = len(groups)
			index[v] = i
			groups = append(groups, domain.GroupRate{Value: v})
		}
		groups[i].Count++
		if r.Churn.Churned() {
			groups[i].Churned++
		}
	}

	for i := range groups {
		groups[i].ChurnRatePercent = round(churnRate(groups[i].Churned, groups[i].Count), 2)
	}

	return domain.GroupedChurn{Dimension: field, Groups: groups}
}

func churnRate(churned, total int) float64 {
	return float64(churned) / float64(total) * 100
}

// round rounds half away from zero at the given number of decimals.
func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
