package expense

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money parsing errors. The messages are client-facing and returned verbatim
// in 400 responses, so they stay capitalized sentences.
var (
	ErrAmountEmpty        = errors.New("Amount cannot be empty")
	ErrAmountNegative     = errors.New("Amount cannot be negative")
	ErrAmountNotNumeric   = errors.New("Amount must be numeric")
	ErrAmountMultipleDots = errors.New("Amount cannot have multiple decimal points")
	ErrAmountInvalid      = errors.New("Invalid amount format")
	ErrAmountNotPositive  = errors.New("Amount must be greater than 0")
	ErrAmountTooPrecise   = errors.New("Amount cannot have more than 2 decimal places")
)

var oneHundred = decimal.NewFromInt(100)

// ParseAmount converts a decimal money string to integer cents.
//
// Amounts only ever enter the system as strings; binary floating point never
// touches money. Accepts at most 2 fraction digits (e.g. "12", "12.3",
// "12.30") and rejects zero, negative and non-numeric input with a distinct
// error per rule.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrAmountEmpty
	}
	if strings.HasPrefix(s, "-") {
		return 0, ErrAmountNegative
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return 0, ErrAmountNotNumeric
		}
	}
	if strings.Count(s, ".") > 1 {
		return 0, ErrAmountMultipleDots
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrAmountInvalid
	}
	if d.Sign() <= 0 {
		return 0, ErrAmountNotPositive
	}
	if dot := strings.IndexByte(s, '.'); dot >= 0 && len(s)-dot-1 > 2 {
		return 0, ErrAmountTooPrecise
	}

	// Exact decimal multiply; with <= 2 fraction digits this is integral.
	cents := d.Mul(oneHundred).IntPart()
	if cents <= 0 {
		return 0, ErrAmountNotPositive
	}
	return cents, nil
}

// FormatCents renders integer cents as a decimal string with exactly two
// fraction digits, using integer math only.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
