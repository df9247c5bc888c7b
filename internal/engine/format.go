package engine

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Magnitudes outside [expSmall, expLarge) are shown in exponential form.
const (
	expLarge = 1e15
	expSmall = 1e-10
)

// FormatDisplayValue renders v for the display: exponential notation with
// six fractional digits for very large or very small magnitudes, otherwise
// the shortest decimal without trailing zeros.
func FormatDisplayValue(v float64) string {
	if v == 0 {
		return "0"
	}

	abs := math.Abs(v)
	if abs >= expLarge || abs < expSmall {
		return strconv.FormatFloat(v, 'e', 6, 64)
	}

	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatResult renders a computed result for the display after rounding it
// to DefaultPrecision decimal places, so 0.1+0.2 shows as 0.3. Values shown
// in exponential form are left as they are.
func FormatResult(v float64) string {
	if abs := math.Abs(v); abs >= expSmall && abs < expLarge {
		v = RoundToPrecision(v, DefaultPrecision)
	}
	return FormatDisplayValue(v)
}

var (
	nonNumeric    = regexp.MustCompile(`[^0-9.\-]`)
	leadingNumber = regexp.MustCompile(`^-?(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)`)
)

// ParseDisplayValue recovers a number from display text. Everything except
// digits, '.' and '-' is discarded and the longest leading number is parsed;
// text with no leading number parses as 0.
func ParseDisplayValue(s string) float64 {
	cleaned := nonNumeric.ReplaceAllString(s, "")

	prefix := leadingNumber.FindString(cleaned)
	if prefix == "" {
		return 0
	}

	v, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatOperand renders a raw operand for history expressions: plain
// decimals between 1e-7 and 1e21, shortest exponent form outside.
func FormatOperand(v float64) string {
	if v == 0 {
		return "0"
	}

	abs := math.Abs(v)
	if abs >= 1e-7 && abs < 1e21 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(v, 'e', -1, 64), "e")
	n, err := strconv.Atoi(exp)
	if err != nil {
		return mantissa + "e" + exp
	}
	if n >= 0 {
		return mantissa + "e+" + strconv.Itoa(n)
	}
	return mantissa + "e" + strconv.Itoa(n)
}
