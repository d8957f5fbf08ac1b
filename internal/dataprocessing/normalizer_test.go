package dataprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
)

func TestNormalizeNumber(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{name: "empty", raw: "", want: 0},
		{name: "integer", raw: "42", want: 42},
		{name: "dot decimal", raw: "70.5", want: 70.5},
		{name: "comma decimal", raw: "1,5", want: 1.5},
		{name: "comma decimal cents", raw: "29,85", want: 29.85},
		{name: "thousands separator truncates", raw: "1,234.56", want: 1.234},
		{name: "surrounding spaces", raw: "  12  ", want: 12},
		{name: "trailing garbage", raw: "12abc", want: 12},
		{name: "currency prefix", raw: "$12", want: 0},
		{name: "letters", raw: "abc", want: 0},
		{name: "blank", raw: " ", want: 0},
		{name: "negative", raw: "-5", want: -5},
		{name: "explicit plus", raw: "+3.5", want: 3.5},
		{name: "leading dot", raw: ".5", want: 0.5},
		{name: "trailing dot", raw: "5.", want: 5},
		{name: "lone dot", raw: ".", want: 0},
		{name: "exponent", raw: "1e3", want: 1000},
		{name: "dangling exponent", raw: "1e", want: 1},
		{name: "overflow", raw: "1e999", want: 0},
		{name: "nan literal", raw: "NaN", want: 0},
		{name: "infinity literal", raw: "Infinity", want: 0},
		{name: "byte order mark", raw: "\uFEFF7", want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeNumber(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.False(t, math.IsInf(got, 0) || math.IsNaN(got))
		})
	}
}

func TestNormalizeNumber_Idempotent(t *testing.T) {
	for _, raw := range []string{"0", "1,5", "70.50", "-0.25", "1889.5", "12abc", "99,65", "1e3"} {
		v := NormalizeNumber(raw)
		assert.Equal(t, v, NormalizeNumber(domain.FormatNumber(v)), raw)
	}
}

func TestNormalizeChurn(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.Churn
	}{
		{"Yes", domain.ChurnYes},
		{"yes", domain.ChurnYes},
		{" YES ", domain.ChurnYes},
		{"1", domain.ChurnYes},
		{"true", domain.ChurnYes},
		{"TRUE", domain.ChurnYes},
		{"si", domain.ChurnYes},
		{"SI", domain.ChurnYes},
		{"sí", domain.ChurnYes},
		{"SÍ", domain.ChurnYes},
		{"No", domain.ChurnNo},
		{"", domain.ChurnNo},
		{"0", domain.ChurnNo},
		{"false", domain.ChurnNo},
		{"y", domain.ChurnNo},
		{"maybe", domain.ChurnNo},
		{"yes please", domain.ChurnNo},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := NormalizeChurn(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeChurn(string(got)), "normalization is idempotent")
		})
	}
}
