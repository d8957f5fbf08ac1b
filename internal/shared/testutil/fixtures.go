package testutil

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
)

// TelcoHeader is the column layout of the public Telco customer churn
// export, trimmed to the columns the dashboard reads plus a few others.
var TelcoHeader = []string{
	"customerID", "gender", "tenure", "Contract", "InternetService",
	"MonthlyCharges", "TotalCharges", "Churn",
}

// Customer is one fixture row in TelcoHeader order.
type Customer struct {
	ID              string
	Gender          string
	Tenure          string
	Contract        string
	InternetService string
	MonthlyCharges  string
	TotalCharges    string
	Churn           string
}

func (c Customer) fields() []string {
	return []string{c.ID, c.Gender, c.Tenure, c.Contract, c.InternetService, c.MonthlyCharges, c.TotalCharges, c.Churn}
}

// SampleCustomers returns a small mixed dataset: three contract types, three
// internet services, comma decimals and a blank TotalCharges.
func SampleCustomers() []Customer {
	return []Customer{
		{"7590-VHVEG", "Female", "1", "Month-to-month", "DSL", "29.85", "29.85", "No"},
		{"5575-GNVDE", "Male", "34", "One year", "DSL", "56.95", "1889.5", "No"},
		{"3668-QPYBK", "Male", "2", "Month-to-month", "DSL", "53.85", "108.15", "Yes"},
		{"7795-CFOCW", "Male", "45", "One year", "DSL", "42.30", "1840.75", "No"},
		{"9237-HQITU", "Female", "2", "Month-to-month", "Fiber optic", "70.70", "151.65", "Yes"},
		{"9305-CDSKC", "Female", "8", "Month-to-month", "Fiber optic", "99,65", "820.5", "yes"},
		{"1452-KIOVK", "Male", "22", "Month-to-month", "Fiber optic", "89.10", "1949.4", "No"},
		{"6713-OKOMC", "Female", "10", "Month-to-month", "DSL", "29.75", "301.9", "No"},
		{"7892-POOKP", "Female", "28", "Month-to-month", "Fiber optic", "104.80", "3046.05", "Yes"},
		{"6388-TABGU", "Male", "62", "One year", "DSL", "56.15", "3487.95", "No"},
		{"9763-GRSKD", "Male", "13", "Month-to-month", "DSL", "49.95", "587.45", "No"},
		{"7469-LKBCI", "Male", "16", "Two year", "No", "18.95", "326.8", "No"},
		{"8091-TTVAX", "Male", "58", "One year", "Fiber optic", "100.35", "5681.1", "No"},
		{"0280-XJGEX", "Male", "49", "Month-to-month", "Fiber optic", "103.70", "5036.3", "1"},
		{"5129-JLPIS", "Male", "25", "Month-to-month", "Fiber optic", "105.50", "2686.05", "No"},
		{"4472-LVYGI", "Female", "0", "Two year", "DSL", "52.55", " ", "No"},
	}
}

// TelcoCSV renders customers as CSV text under TelcoHeader. Cells holding
// commas or leading spaces are quoted.
func TelcoCSV(customers ...Customer) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	rows := make([][]string, 0, len(customers)+1)
	rows = append(rows, TelcoHeader)
	for _, c := range customers {
		rows = append(rows, c.fields())
	}
	// strings.Builder writes never fail
	_ = w.WriteAll(rows)
	return b.String()
}

// GenerateCustomers builds n deterministic customers cycling through the
// contract and internet service categories. Every third customer churns.
func GenerateCustomers(n int) []Customer {
	contracts := []string{"Month-to-month", "One year", "Two year"}
	services := []string{"DSL", "Fiber optic", "No"}
	out := make([]Customer, n)
	for i := 0; i < n; i++ {
		churn := "No"
		if i%3 == 0 {
			churn = "Yes"
		}
		out[i] = Customer{
			ID:              fmt.Sprintf("%04d-GEN", i),
			Gender:          []string{"Female", "Male"}[i%2],
			Tenure:          fmt.Sprintf("%d", i%72),
			Contract:        contracts[i%len(contracts)],
			InternetService: services[(i/3)%len(services)],
			MonthlyCharges:  fmt.Sprintf("%d.%02d", 20+i%80, i%100),
			TotalCharges:    fmt.Sprintf("%d.5", 100+i*7),
			Churn:           churn,
		}
	}
	return out
}

// NewRecord builds a normalized record directly, for tests that skip
// ingestion.
func NewRecord(contract, internet string, churn domain.Churn, tenure, monthly float64) domain.Record {
	return domain.Record{
		Fields: map[string]string{
			domain.FieldContract:        contract,
			domain.FieldInternetService: internet,
		},
		Churn:          churn,
		Tenure:         tenure,
		MonthlyCharges: monthly,
		TotalCharges:   tenure * monthly,
	}
}
