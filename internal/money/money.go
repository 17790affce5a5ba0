// Package money provides the fixed-point amount type used by the budget engine.
//
// Amounts are integer milliunits: 1 currency unit = 1000 milliunits. All engine
// arithmetic stays in Money; decimal values appear only at the display boundary.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in milliunits.
type Money int64

// Milliunits per currency unit.
const Milliunits = 1000

// Cent is 0.01 display units.
const Cent Money = Milliunits / 100

const scale = -3

var milli = decimal.NewFromInt(Milliunits)

// ErrOutOfRange is returned for amounts that do not fit in Money.
var ErrOutOfRange = errors.New("amount out of range")

// ToMilliunits converts a display decimal to Money. Digits beyond the
// milliunit grid are truncated toward zero, never rounded.
func ToMilliunits(d decimal.Decimal) (Money, error) {
	m := d.Mul(milli).Truncate(0)
	if !m.BigInt().IsInt64() {
		return 0, fmt.Errorf("%s: %w", d, ErrOutOfRange)
	}
	return Money(m.IntPart()), nil
}

// FromMilliunits converts Money to an exact display decimal.
func FromMilliunits(m Money) decimal.Decimal {
	return decimal.New(int64(m), scale)
}

// Parse reads a display amount such as "12.34", "-5" or "1,000.50".
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("parsing amount: empty")
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	m, err := ToMilliunits(d)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return m, nil
}

// Decimal returns the display value of m.
func (m Money) Decimal() decimal.Decimal {
	return FromMilliunits(m)
}

// String formats m with two decimals, or three when m is not a whole cent.
func (m Money) String() string {
	if m%Cent != 0 {
		return m.Decimal().StringFixed(3)
	}
	return m.Decimal().StringFixed(2)
}

// Abs returns the absolute value of m.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// Min returns the smaller of a and b.
func Min(a, b Money) Money {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b Money) Money {
	if a > b {
		return a
	}
	return b
}

// Sum adds amounts.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total += a
	}
	return total
}

// Within reports whether a and b differ by at most tolerance.
func Within(a, b, tolerance Money) bool {
	return (a - b).Abs() <= tolerance
}
