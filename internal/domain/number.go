package domain

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

const maxSafeInteger = 1<<53 - 1

// ParseNumber coerces scraped or user-typed text to a number.
// Surrounding whitespace is ignored and blank text reads as 0. Decimal,
// exponent and 0x/0o/0b forms are accepted; leading zeros stay decimal.
// Anything else yields NaN.
func ParseNumber(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}

	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil {
				return math.NaN()
			}
			return float64(n)
		}
	}

	// ParseFloat also knows "inf", "nan" and underscores; none of those are numbers here
	for _, r := range s {
		if !strings.ContainsRune("0123456789+-.eE", r) {
			return math.NaN()
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && numErr.Err == strconv.ErrRange {
			return v
		}
		return math.NaN()
	}
	return v
}

// NonNegativeInt reports whether v is a finite whole number in [0, 2^53)
func NonNegativeInt(v float64) (int, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if v < 0 || v != math.Trunc(v) || v > maxSafeInteger {
		return 0, false
	}
	return int(v), true
}
