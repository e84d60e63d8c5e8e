package analysis

import (
	"math"
	"strconv"
	"strings"
)

// ParseDecimal coerces a raw metabolite cell to a float64.
//
// Every ',' is treated as a decimal separator and replaced with '.' before
// parsing, so "1,5" and "1.5" both yield 1.5. Empty cells, unparseable text
// and literal NaN report ok=false; callers store those as missing.
func ParseDecimal(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, false
	}
	raw = strings.ReplaceAll(raw, ",", ".")
	// strconv accepts hex floats and digit separators; a measurement never does.
	if strings.ContainsAny(raw, "xX_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Missing reports whether v is the missing-value marker.
func Missing(v float64) bool { return math.IsNaN(v) }
