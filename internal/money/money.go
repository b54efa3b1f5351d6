// Package money implements the fixed-point decimal type used for every
// wallet balance and ledger amount in this service: 20 total digits, 8
// fractional. All arithmetic is exact; nothing is ever routed through a
// binary float.
package money

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// Scale is the number of fractional digits every Money value carries.
	Scale = 8
	// TotalDigits is the maximum number of significant decimal digits
	// (integer part + fractional part) a Money value may hold.
	TotalDigits = 20
)

// ErrOverflow is returned by arithmetic that would exceed TotalDigits
// significant digits.
var ErrOverflow = errors.New("money: overflow")

// ErrInvalid is returned when parsing a string that is not a plain finite
// decimal number (NaN/Infinity forms, scientific notation, garbage input).
// Input with more than Scale fractional digits is not rejected; Parse rounds
// it to Scale digits.
var ErrInvalid = errors.New("money: invalid amount")

// Money is a fixed-point decimal value with exactly Scale fractional
// digits. The zero value is zero.
type Money struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Money{d: decimal.Zero}

// New builds a Money from an integer number of whole units.
func New(whole int64) Money {
	return Money{d: decimal.New(whole, 0).Round(Scale)}
}

// Parse parses a canonical or plain decimal string ("100", "100.00000000",
// "-1.5") into a Money value. Scientific notation, "NaN", "Inf" and similar
// non-finite forms are rejected with ErrInvalid. The value is rounded to
// Scale fractional digits (exact when the input already has <= Scale
// digits, which is the only case this service ever produces).
func Parse(s string) (Money, error) {
	if s == "" {
		return Money{}, ErrInvalid
	}
	if strings.ContainsAny(s, "eE") {
		return Money{}, ErrInvalid
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	rounded := d.Round(Scale)
	if !digitCountOK(rounded) {
		return Money{}, ErrOverflow
	}
	return Money{d: rounded}, nil
}

// MustParse is Parse but panics on error; only meant for constants in tests.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

func digitCountOK(d decimal.Decimal) bool {
	coeff := d.Coefficient()
	digits := len(coeff.Abs(coeff).String())
	// Callers pass a value already rounded to Scale, so the coefficient holds
	// exactly Scale fractional digits plus the integer digits.
	return digits <= TotalDigits
}

// Add returns a+b, failing with ErrOverflow if the result would exceed
// TotalDigits significant digits.
func (a Money) Add(b Money) (Money, error) {
	sum := a.d.Add(b.d).Round(Scale)
	if !digitCountOK(sum) {
		return Money{}, ErrOverflow
	}
	return Money{d: sum}, nil
}

// Sub returns a-b, failing with ErrOverflow if the result would exceed
// TotalDigits significant digits. The result may be negative; callers that
// must enforce non-negativity (wallet balances) check IsNegative themselves.
func (a Money) Sub(b Money) (Money, error) {
	diff := a.d.Sub(b.d).Round(Scale)
	if !digitCountOK(diff) {
		return Money{}, ErrOverflow
	}
	return Money{d: diff}, nil
}

// Cmp returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func (a Money) Cmp(b Money) int {
	return a.d.Cmp(b.d)
}

// GreaterThanOrEqual reports whether a >= b.
func (a Money) GreaterThanOrEqual(b Money) bool {
	return a.Cmp(b) >= 0
}

// IsNegative reports whether a < 0.
func (a Money) IsNegative() bool {
	return a.d.IsNegative()
}

// IsZero reports whether a == 0.
func (a Money) IsZero() bool {
	return a.d.IsZero()
}

// IsPositive reports whether a > 0.
func (a Money) IsPositive() bool {
	return a.d.IsPositive()
}

// String renders the canonical form with exactly Scale fractional digits.
func (a Money) String() string {
	return a.d.StringFixed(Scale)
}

// MarshalJSON renders Money as a canonical decimal string, never a JSON
// number, so precision never passes through a float64 on the wire.
func (a Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts either a JSON string or a bare JSON number; both are
// parsed with Parse's exactness guarantees.
func (a *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	m, err := Parse(s)
	if err != nil {
		return err
	}
	*a = m
	return nil
}

// Value implements driver.Valuer so Money can be written directly by
// database/sql as a NUMERIC(20,8) column.
func (a Money) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements sql.Scanner so Money can be read directly out of a
// NUMERIC(20,8) column regardless of whether the driver hands back a
// string, []byte, or float64.
func (a *Money) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Zero
		return nil
	case string:
		m, err := Parse(v)
		if err != nil {
			return err
		}
		*a = m
		return nil
	case []byte:
		m, err := Parse(string(v))
		if err != nil {
			return err
		}
		*a = m
		return nil
	case float64:
		d := decimal.NewFromFloat(v).Round(Scale)
		*a = Money{d: d}
		return nil
	default:
		return fmt.Errorf("money: unsupported scan type %T", src)
	}
}
