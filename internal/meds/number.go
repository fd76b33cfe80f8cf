package meds

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// wholeTolerance decides when a float is treated as an integer.
const wholeTolerance = 1e-9

var ErrNotANumber = errors.New("not a number")

// ParseNumber parses user input leniently: surrounding spaces are ignored
// and a comma is accepted as decimal separator.
func ParseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, ErrNotANumber
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNotANumber
	}
	return v, nil
}

// IsWhole reports whether v is an integer within wholeTolerance. A non-zero
// value never counts as the whole number 0.
func IsWhole(v float64) bool {
	r := math.Round(v)
	if r == 0 && v != 0 {
		return false
	}
	return math.Abs(v-r) < wholeTolerance
}

// NormalizeNumber snaps whole values to their integer so they serialize
// as 500 rather than 500.0000000001.
func NormalizeNumber(v float64) float64 {
	if IsWhole(v) {
		return math.Round(v)
	}
	return v
}

// FormatNumber renders whole numbers without decimals and everything else
// with up to six significant digits.
func FormatNumber(v float64) string {
	if IsWhole(v) {
		return strconv.FormatFloat(math.Round(v), 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// FormatDose is FormatNumber for optional values; nil renders empty.
func FormatDose(v *float64) string {
	if v == nil {
		return ""
	}
	return FormatNumber(*v)
}
