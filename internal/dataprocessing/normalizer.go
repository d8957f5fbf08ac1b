package dataprocessing

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
)

// leadingNumber matches the longest decimal literal at the start of a
// string, the way a lenient float parser reads "12abc" as 12.
var leadingNumber = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)

// churnYesTokens are the lowercase spellings that mark a churned customer.
var churnYesTokens = map[string]struct{}{
	"yes":  {},
	"1":    {},
	"true": {},
	"si":   {},
	"sí":   {},
}

// NormalizeNumber converts a raw cell into a float. Commas are read as
// decimal points, trailing garbage after a numeric prefix is ignored and
// anything without a numeric prefix (including "") yields 0. The result
// is always finite.
func NormalizeNumber(raw string) float64 {
	if raw == "" {
		return 0
	}
	s := strings.TrimLeftFunc(raw, isLeadingSpace)
	s = strings.ReplaceAll(s, ",", ".")

	m := leadingNumber.FindString(s)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}

// NormalizeChurn maps a raw churn cell onto Yes/No. Matching is case
// insensitive and ignores surrounding whitespace.
func NormalizeChurn(raw string) domain.Churn {
	if raw == "" {
		return domain.ChurnNo
	}
	if _, ok := churnYesTokens[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return domain.ChurnYes
	}
	return domain.ChurnNo
}

func isLeadingSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}
