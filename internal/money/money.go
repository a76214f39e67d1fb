// Package money turns the loosely typed price, amount and total fields found
// on order and cart documents into canonical decimal amounts.
package money

import (
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// CurrencyPrefix is prepended to every formatted amount.
	CurrencyPrefix = "NGN "
	// UnknownSentinel is displayed when no candidate field normalizes.
	UnknownSentinel = "Amount unknown"
)

var (
	ErrMissing     = errors.New("money: amount missing")
	ErrUnparseable = errors.New("money: amount unparseable")
)

var printer = message.NewPrinter(language.English)

// Amount is a normalized monetary value in the unit the source stored it in.
// No minor-unit conversion or rounding is applied.
type Amount struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Amount{d: decimal.Zero}

// FromInt builds an Amount from a whole number.
func FromInt(v int64) Amount { return Amount{d: decimal.NewFromInt(v)} }

// FromDecimal wraps a decimal value.
func FromDecimal(d decimal.Decimal) Amount { return Amount{d: d} }

func (a Amount) Decimal() decimal.Decimal { return a.d }
func (a Amount) Float64() float64         { return a.d.InexactFloat64() }
func (a Amount) IsZero() bool             { return a.d.IsZero() }
func (a Amount) Equal(b Amount) bool      { return a.d.Equal(b.d) }
func (a Amount) LessThan(b Amount) bool   { return a.d.LessThan(b.d) }
func (a Amount) Add(b Amount) Amount      { return Amount{d: a.d.Add(b.d)} }
func (a Amount) Mul(n int) Amount         { return Amount{d: a.d.Mul(decimal.NewFromInt(int64(n)))} }
func (a Amount) String() string           { return a.d.String() }

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.d.String()), nil
}

// Parse is the single constructor for Amount. Numbers pass through unchanged,
// strings are stripped of currency symbols, separators and whitespace before
// parsing, and nil yields ErrMissing.
func Parse(v any) (Amount, error) {
	switch x := v.(type) {
	case nil:
		return Amount{}, ErrMissing
	case Amount:
		return x, nil
	case *Amount:
		if x == nil {
			return Amount{}, ErrMissing
		}
		return *x, nil
	case decimal.Decimal:
		return Amount{d: x}, nil
	case RawAmount:
		return Parse(x.value)
	case *RawAmount:
		if x == nil {
			return Amount{}, ErrMissing
		}
		return Parse(x.value)
	case float64:
		return fromFloat(x)
	case float32:
		return fromFloat(float64(x))
	case int:
		return FromInt(int64(x)), nil
	case int32:
		return FromInt(int64(x)), nil
	case int64:
		return FromInt(x), nil
	case uint:
		return fromUint(uint64(x)), nil
	case uint32:
		return FromInt(int64(x)), nil
	case uint64:
		return fromUint(x), nil
	case json.Number:
		return parseString(string(x))
	case string:
		return parseString(x)
	default:
		return Amount{}, ErrUnparseable
	}
}

// Normalize returns nil instead of an error when v cannot be parsed.
func Normalize(v any) *Amount {
	a, err := Parse(v)
	if err != nil {
		return nil
	}
	return &a
}

// FirstOf returns the first candidate that normalizes.
func FirstOf(candidates ...any) (Amount, bool) {
	for _, c := range candidates {
		if a, err := Parse(c); err == nil {
			return a, true
		}
	}
	return Amount{}, false
}

// Format renders a with English thousands separators and the NGN prefix.
// Fractional digits are shown only when present, rounded half away from zero
// to two places.
func Format(a Amount) string {
	d := a.d
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	if d.IsInteger() {
		return CurrencyPrefix + sign + groupDigits(d)
	}

	rounded := d.Round(2)
	fixed := rounded.StringFixed(2)
	return CurrencyPrefix + sign + groupDigits(rounded.Truncate(0)) + fixed[strings.IndexByte(fixed, '.'):]
}

// groupDigits formats a non-negative whole number with thousands separators.
func groupDigits(whole decimal.Decimal) string {
	if whole.LessThan(maxInt64) {
		return printer.Sprintf("%d", whole.IntPart())
	}
	digits := whole.String()
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatOrUnknown formats a, or returns UnknownSentinel when a is nil.
func FormatOrUnknown(a *Amount) string {
	if a == nil {
		return UnknownSentinel
	}
	return Format(*a)
}

var maxInt64 = decimal.NewFromInt(math.MaxInt64)

func fromUint(v uint64) Amount {
	return Amount{d: decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)}
}

func fromFloat(f float64) (Amount, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Amount{}, ErrUnparseable
	}
	return Amount{d: decimal.NewFromFloat(f)}, nil
}

func parseString(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, ErrMissing
	}

	var b strings.Builder
	seenDigit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
			b.WriteRune(r)
		case r == '.':
			b.WriteRune(r)
		case r == '-' && !seenDigit && b.Len() == 0:
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if !seenDigit {
		return Amount{}, ErrUnparseable
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return Amount{}, ErrUnparseable
	}
	return Amount{d: d}, nil
}
