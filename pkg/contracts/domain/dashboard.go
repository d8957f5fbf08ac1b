package domain

import "strconv"

// FilterState holds the active dashboard filters. Empty strings mean "no
// constraint" for that criterion.
type FilterState struct {
	Contract        string `json:"contract"`
	InternetService string `json:"internet_service"`
	Search          string `json:"search"`
}

// IsZero reports whether no filter is active.
func (f FilterState) IsZero() bool {
	return f.Contract == "" && f.InternetService == "" && f.Search == ""
}

// KPISummary aggregates a filtered view. Percentages and averages are
// rounded at computation time.
type KPISummary struct {
	Count             int     `json:"count"`
	Churned           int     `json:"churned"`
	ChurnRatePercent  float64 `json:"churn_rate_percent"`
	AvgTenure         float64 `json:"avg_tenure"`
	AvgMonthlyCharges float64 `json:"avg_monthly_charges"`
}

// KPIDisplay is the fixed-decimal rendering of a KPISummary.
type KPIDisplay struct {
	Count             string `json:"count"`
	ChurnRatePercent  string `json:"churn_rate_percent"`
	AvgTenure         string `json:"avg_tenure"`
	AvgMonthlyCharges string `json:"avg_monthly_charges"`
}

// Display renders the summary with the dashboard's fixed precisions:
// two decimals for rates and charges, one for tenure.
func (k KPISummary) Display() KPIDisplay {
	return KPIDisplay{
		Count:             strconv.Itoa(k.Count),
		ChurnRatePercent:  strconv.FormatFloat(k.ChurnRatePercent, 'f', 2, 64),
		AvgTenure:         strconv.FormatFloat(k.AvgTenure, 'f', 1, 64),
		AvgMonthlyCharges: strconv.FormatFloat(k.AvgMonthlyCharges, 'f', 2, 64),
	}
}

// GroupRate is the churn rate of one category value.
type GroupRate struct {
	Value            string  `json:"value"`
	Count            int     `json:"count"`
	Churned          int     `json:"churned"`
	ChurnRatePercent float64 `json:"churn_rate_percent"`
}

// GroupedChurn lists per-category churn rates in first-appearance order.
type GroupedChurn struct {
	Dimension string      `json:"dimension"`
	Groups    []GroupRate `json:"groups"`
}

// AsMap returns category value to churn rate.
func (g GroupedChurn) AsMap() map[string]float64 {
	m := make(map[string]float64, len(g.Groups))
	for _, gr := range g.Groups {
		m[gr.Value] = gr.ChurnRatePercent
	}
	return m
}

// Labels returns the category values in display order.
func (g GroupedChurn) Labels() []string {
	out := make([]string, len(g.Groups))
	for i, gr := range g.Groups {
		out[i] = gr.Value
	}
	return out
}

// PageWindow is one page of a filtered view. FirstIndex and LastIndex are
// 1-based and inclusive, with LastIndex capped at TotalRecords.
type PageWindow struct {
	Records      []Record `json:"records"`
	Page         int      `json:"page"`
	PageSize     int      `json:"page_size"`
	TotalPages   int      `json:"total_pages"`
	TotalRecords int      `json:"total_records"`
	FirstIndex   int      `json:"first_index"`
	LastIndex    int      `json:"last_index"`
}

// HasNext reports whether a following page exists.
func (p PageWindow) HasNext() bool {
	return p.Page < p.TotalPages
}

// HasPrev reports whether a preceding page exists.
func (p PageWindow) HasPrev() bool {
	return p.Page > 1
}

// FilterOptions are the distinct category values available for filtering,
// taken from the full dataset.
type FilterOptions struct {
	Contracts        []string `json:"contracts"`
	InternetServices []string `json:"internet_services"`
}

// DashboardState is the complete state of one dashboard. Every transition
// produces a new value.
type DashboardState struct {
	Dataset *Dataset    `json:"dataset,omitempty"`
	Filters FilterState `json:"filters"`
	Page    int         `json:"page"`
}

// Snapshot is the fully derived view of a DashboardState.
type Snapshot struct {
	SessionID     string        `json:"session_id"`
	Dataset       *Dataset      `json:"dataset,omitempty"`
	Filters       FilterState   `json:"filters"`
	Summary       KPISummary    `json:"summary"`
	Display       KPIDisplay    `json:"display"`
	ContractChurn GroupedChurn  `json:"contract_churn"`
	InternetChurn GroupedChurn  `json:"internet_churn"`
	Options       FilterOptions `json:"options"`
	Page          PageWindow    `json:"page"`
}
