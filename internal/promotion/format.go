package promotion

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxPriceCents bounds parsed labels at one billion dollars.
const MaxPriceCents = 100_000_000_000

// FormatCents renders cents as a dollar label, 800 -> "$8.00".
func FormatCents(cents int64) string {
	sign := ""
	abs := uint64(cents)
	if cents < 0 {
		sign = "-"
		abs = uint64(-(cents + 1)) + 1
	}
	return fmt.Sprintf("%s$%d.%02d", sign, abs/100, abs%100)
}

// ParsePriceLabel reads labels such as "$8.00", "8.5", "1,299.99" or "Free".
func ParsePriceLabel(label string) (int64, bool) {
	s := strings.TrimSpace(label)
	if s == "" {
		return 0, false
	}
	if strings.EqualFold(s, "free") {
		return 0, true
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if !plainDecimal(s) {
		return 0, false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v*100 > MaxPriceCents {
		return 0, false
	}
	return int64(math.Round(v * 100)), true
}

// plainDecimal accepts digits with at most one decimal point; no sign,
// exponent or special values.
func plainDecimal(s string) bool {
	if s == "" || s == "." {
		return false
	}
	dots := 0
	for _, r := range s {
		switch {
		case r == '.':
			dots++
		case r < '0' || r > '9':
			return false
		}
	}
	return dots <= 1
}
