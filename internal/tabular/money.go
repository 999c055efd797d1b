package tabular

import (
	"strconv"
	"strings"
)

// ParseMoney converts Brazilian-format monetary strings ("R$ 1.234,56",
// "1234,56", "1234.56") to a float. Malformed or empty values parse to
// zero; the portal files routinely carry blank cells for unexecuted
// amendments and a row must never be lost over one bad value.
func ParseMoney(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0
	}

	if strings.Contains(s, ",") {
		// Thousands dots with a decimal comma.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
