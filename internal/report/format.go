package report

import (
	"math"
	"strconv"
	"strings"
)

const (
	// MissingMarker is written for a mean difference or p-value that could
	// not be computed.
	MissingMarker = "NaN"
	// NotAvailable is written when pathway metadata cannot be found.
	NotAvailable = "N/A"

	meanDiffDecimals = 6
	pValueDecimals   = 10
)

// Round rounds v to the given number of decimals, half-even on the exact
// binary value.
func Round(v float64, decimals int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', decimals, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// FormatMeanDiff renders a mean difference rounded to 6 decimals.
func FormatMeanDiff(v float64) string { return formatRounded(v, meanDiffDecimals) }

// FormatPValue renders a p-value rounded to 10 decimals.
func FormatPValue(v float64) string { return formatRounded(v, pValueDecimals) }

// FormatBool renders the significance flag.
func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func formatRounded(v float64, decimals int) string {
	if math.IsNaN(v) {
		return MissingMarker
	}
	return formatFloat(Round(v, decimals))
}

// formatFloat renders the shortest representation that parses back to v:
// plain notation with at least one fractional digit ("2.0"), switching to
// exponent notation below 1e-4 and from 1e16 ("1e-05").
func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case v == 0:
		if math.Signbit(v) {
			return "-0.0"
		}
		return "0.0"
	}
	e := strconv.FormatFloat(v, 'e', -1, 64)
	exp, err := strconv.Atoi(e[strings.IndexByte(e, 'e')+1:])
	if err == nil && (exp < -4 || exp >= 16) {
		return e
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// parseCell reads a value written by formatFloat or the missing marker.
func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == MissingMarker || s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
