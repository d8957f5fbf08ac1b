package exporter

import (
	"math"
	"math/big"
	"strings"

	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
)

var (
	hundred = big.NewFloat(100)
	half    = big.NewFloat(0.5)
)

// FormatMoney renders a charge with exactly two decimals. The exact binary
// value of v is rounded, ties going up in magnitude: 0.125 becomes "0.13"
// while 2.675, stored just below, becomes "2.67". Non-finite values render
// as "0.00".
func FormatMoney(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.00"
	}

	neg := v < 0
	scaled := new(big.Float).SetPrec(256).SetFloat64(math.Abs(v))
	scaled.Mul(scaled, hundred)

	cents, _ := scaled.Int(nil)
	frac := new(big.Float).SetPrec(256).Sub(scaled, new(big.Float).SetInt(cents))
	if frac.Cmp(half) >= 0 {
		cents.Add(cents, big.NewInt(1))
	}

	digits := cents.String()
	if len(digits) < 3 {
		digits = strings.Repeat("0", 3-len(digits)) + digits
	}
	out := digits[:len(digits)-2] + "." + digits[len(digits)-2:]
	if neg {
		out = "-" + out
	}
	return out
}

// cellValue returns the text written for column of r. Absent columns
// render as "".
func cellValue(r domain.Record, column string) string {
	return r.Get(column)
}

// rowValues renders r in column order.
func rowValues(r domain.Record, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = cellValue(r, c)
	}
	return out
}
