// Package domain contains the data contracts shared by the churn dashboard
// core, its HTTP transport and the report tooling.
package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Canonical column names. Ingestion always produces these four fields on
// every record, whether or not the source file carried them.
const (
	FieldChurn          = "Churn"
	FieldTenure         = "tenure"
	FieldMonthlyCharges = "MonthlyCharges"
	FieldTotalCharges   = "TotalCharges"
)

// Categorical columns the dashboard filters and groups by.
const (
	FieldContract        = "Contract"
	FieldInternetService = "InternetService"
)

// CanonicalFields lists the normalized columns in the order they are
// appended to a dataset header that lacks them.
var CanonicalFields = []string{FieldChurn, FieldTenure, FieldMonthlyCharges, FieldTotalCharges}

// IsCanonicalField reports whether name is one of the normalized columns.
func IsCanonicalField(name string) bool {
	switch name {
	case FieldChurn, FieldTenure, FieldMonthlyCharges, FieldTotalCharges:
		return true
	}
	return false
}

// Churn is the normalized churn flag of a customer.
type Churn string

const (
	ChurnYes Churn = "Yes"
	ChurnNo  Churn = "No"
)

// Churned reports whether the flag marks a churned customer.
func (c Churn) Churned() bool {
	return c == ChurnYes
}

// Record is one customer row after normalization. Non-canonical source
// columns are kept verbatim in Fields; the canonical ones live in typed
// fields and never appear in Fields.
type Record struct {
	Fields         map[string]string
	Churn          Churn
	Tenure         float64
	MonthlyCharges float64
	TotalCharges   float64
}

// Value returns the textual value of a column and whether the record has
// it. Canonical columns are always present.
func (r Record) Value(field string) (string, bool) {
	switch field {
	case FieldChurn:
		return string(r.Churn), true
	case FieldTenure:
		return FormatNumber(r.Tenure), true
	case FieldMonthlyCharges:
		return FormatNumber(r.MonthlyCharges), true
	case FieldTotalCharges:
		return FormatNumber(r.TotalCharges), true
	}
	v, ok := r.Fields[field]
	return v, ok
}

// Get returns the textual value of a column, or "" when absent.
func (r Record) Get(field string) string {
	v, _ := r.Value(field)
	return v
}

// EachValue calls fn for every value the record holds, canonical fields
// included. Iteration stops when fn returns false.
func (r Record) EachValue(fn func(field, value string) bool) {
	for _, f := range CanonicalFields {
		if !fn(f, r.Get(f)) {
			return
		}
	}
	for k, v := range r.Fields {
		if !fn(k, v) {
			return
		}
	}
}

// MarshalJSON renders the record as a flat object with numeric canonical
// fields.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Fields)+len(CanonicalFields))
	for k, v := range r.Fields {
		out[k] = v
	}
	out[FieldChurn] = r.Churn
	out[FieldTenure] = r.Tenure
	out[FieldMonthlyCharges] = r.MonthlyCharges
	out[FieldTotalCharges] = r.TotalCharges
	return json.Marshal(out)
}

// Dataset is the immutable result of one ingestion. A new upload replaces
// the whole value; nothing mutates it in place.
type Dataset struct {
	ID          string    `json:"id"`
	Source      string    `json:"source,omitempty"`
	Fingerprint string    `json:"fingerprint"`
	Columns     []string  `json:"columns"`
	Records     []Record  `json:"-"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// Len returns the number of records, treating a nil dataset as empty.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// All returns the full record slice, or nil for a nil dataset.
func (d *Dataset) All() []Record {
	if d == nil {
		return nil
	}
	return d.Records
}

// FormatNumber renders a normalized number in its shortest round-trip
// form ("70.5", "1", "0"). Negative zero prints as "0".
func FormatNumber(v float64) string {
	if v == 0 || math.IsNaN(v) {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
