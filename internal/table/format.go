package table

import (
	"math"
	"strconv"
	"strings"
)

// FormatFloat renders v compactly; NaN is written as "nan".
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return strconv.FormatFloat(v, 'g', 10, 64)
}

// ParseFloat accepts everything FormatFloat produces.
func ParseFloat(s string) (float64, error) {
	if strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// FormatBool renders booleans the way the feature files spell them.
func FormatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

// ParseBool accepts True/False in any case as well as 1/0.
func ParseBool(s string) (bool, error) {
	return strconv.ParseBool(strings.ToLower(s))
}
