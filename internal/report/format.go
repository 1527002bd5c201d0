// Package report renders measurements as the fixed-decimal text lines sent
// over the serial console.
package report

import (
	"math"
	"strconv"
	"strings"
)

// FormatFixed renders value with exactly decimals fractional digits,
// rounding the exact binary value half-up (away from zero on a tie). A
// fraction that rounds up to a whole unit carries into the integer part.
// decimals <= 0 renders the rounded integer without a decimal point.
func FormatFixed(value float64, decimals int) string {
	switch {
	case math.IsNaN(value):
		return "nan"
	case math.IsInf(value, 1):
		return "inf"
	case math.IsInf(value, -1):
		return "-inf"
	}
	if decimals < 0 {
		decimals = 0
	}

	var sb strings.Builder
	if value < 0 {
		sb.WriteByte('-')
		value = -value
	}

	digits, intLen := exactDigits(value, decimals+1)
	kept := digits[:intLen+decimals]
	if digits[intLen+decimals] >= '5' {
		kept = increment(kept)
		if len(kept) > intLen+decimals {
			intLen++
		}
	}

	sb.Write(kept[:intLen])
	if decimals > 0 {
		sb.WriteByte('.')
		sb.Write(kept[intLen:])
	}
	return sb.String()
}

// exactDigits returns the full decimal expansion of a non-negative value
// without the decimal point, padded to at least minFrac fractional digits,
// and the number of integer digits.
func exactDigits(value float64, minFrac int) ([]byte, int) {
	// A float64 m*2^(exp-53) has at most 53-exp fractional decimal digits.
	_, exp := math.Frexp(value)
	prec := 53 - exp
	if prec < minFrac {
		prec = minFrac
	}
	s := strconv.FormatFloat(value, 'f', prec, 64)
	dot := strings.IndexByte(s, '.')
	out := make([]byte, 0, len(s)-1)
	out = append(out, s[:dot]...)
	out = append(out, s[dot+1:]...)
	return out, dot
}

// increment adds one unit in the last place of a decimal digit string.
func increment(d []byte) []byte {
	out := append([]byte(nil), d...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != '9' {
			out[i]++
			return out
		}
		out[i] = '0'
	}
	return append([]byte{'1'}, out...)
}
