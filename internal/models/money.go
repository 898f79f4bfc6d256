package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidAmount is returned when a decimal amount cannot be represented
// exactly in minor units.
var ErrInvalidAmount = errors.New("invalid money amount")

// Money is an amount in minor currency units (pence).
//
// The backend sends prices as decimals ("19.99" or 19.99). They are parsed
// from their text form so that no binary floating point is ever involved in
// accumulating totals.
type Money int64

// Pence builds a Money value from minor units.
func Pence(p int64) Money { return Money(p) }

// ParseMoney parses a decimal amount such as "35", "35.5" or "-1.20".
// More than two fraction digits is rejected.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if strings.ContainsAny(whole, "+-") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if whole == "" && (!hasFrac || frac == "") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("%w: %q has more than two decimal places", ErrInvalidAmount, s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if units > (math.MaxInt64-99)/100 {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidAmount, s)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || strings.ContainsAny(frac, "+-") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	m := Money(units*100 + cents)
	if neg {
		m = -m
	}
	return m, nil
}

// MustParseMoney is ParseMoney for constants and tests.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Plus returns m + o.
func (m Money) Plus(o Money) Money { return m + o }

// Times returns m multiplied by a quantity.
func (m Money) Times(n int) Money { return m * Money(n) }

// Decimal formats the amount with exactly two fraction digits, e.g. "26.09".
func (m Money) Decimal() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// String formats the amount for display, e.g. "£26.09".
func (m Money) String() string {
	if m < 0 {
		return "-£" + (-m).Decimal()
	}
	return "£" + m.Decimal()
}

// MarshalJSON encodes the amount as a two-decimal JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*m = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
