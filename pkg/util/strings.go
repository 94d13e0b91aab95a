package util

import (
	"strconv"
	"strings"
)

// ParseNumber parses a quoted price such as "1,234.50" or "4.25%".
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(strings.Trim(s, `"`))
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	return strconv.ParseFloat(s, 64)
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
