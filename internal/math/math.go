package math

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// DefaultPrecision is the number of significant digits used when none is configured.
const DefaultPrecision uint32 = 34

var (
	LengthMismatchErr = errors.New("length mismatch")
)

// formatDigits is the number of fractional digits of Format.
const formatDigits = 4

var formatCtx = func() *apd.Context {
	ctx := apd.BaseContext.WithPrecision(DefaultPrecision)
	ctx.Rounding = apd.RoundHalfUp
	return ctx
}()

// Format formats a decimal with 4 fractional digits, rounding half up.
func Format(d *apd.Decimal) string {
	if d == nil {
		return "<nil>"
	}
	r := new(apd.Decimal)
	if _, err := formatCtx.Quantize(r, d, -formatDigits); err != nil {
		// too many integer digits for the precision
		return strconv.FormatFloat(ToFloat(d), 'f', formatDigits, 64)
	}
	if r.IsZero() {
		r.Negative = false
	}
	return r.Text('f')
}

// ToFloat projects the decimal onto a float64.
// NOTE : this is lossy and meant only for reporting and for libraries that work on floats.
func ToFloat(d *apd.Decimal) float64 {
	f, err := d.Float64()
	if err != nil {
		return 0
	}
	return f
}

// Decimal creates a new decimal from the given float.
func Decimal(f float64) (*apd.Decimal, error) {
	d, err := new(apd.Decimal).SetFloat64(f)
	if err != nil {
		return nil, fmt.Errorf("could not convert '%v' to decimal: %w", f, err)
	}
	return d, nil
}

// Parse parses the string representation of a decimal.
func Parse(s string) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("could not parse '%s' to decimal: %w", s, err)
	}
	return d, nil
}

// MustParse parses the given string and panics if it is not a valid decimal.
func MustParse(s string) *apd.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// Vector is a sequence of exact decimals.
type Vector []*apd.Decimal

// NewVector creates a vector from the given floats.
func NewVector(ff ...float64) (Vector, error) {
	v := make(Vector, len(ff))
	for i, f := range ff {
		d, err := Decimal(f)
		if err != nil {
			return nil, err
		}
		v[i] = d
	}
	return v, nil
}

// MustVector is like NewVector but panics on invalid input e.g. NaN or Inf.
func MustVector(ff ...float64) Vector {
	v, err := NewVector(ff...)
	if err != nil {
		panic(err.Error())
	}
	return v
}

// ParseVector creates a vector out of the string representation of each element.
func ParseVector(ss ...string) (Vector, error) {
	v := make(Vector, len(ss))
	for i, s := range ss {
		d, err := Parse(s)
		if err != nil {
			return nil, err
		}
		v[i] = d
	}
	return v, nil
}

// Zero creates a vector of the given length with all elements set to 0.
func Zero(n int) Vector {
	v := make(Vector, n)
	for i := range v {
		v[i] = new(apd.Decimal)
	}
	return v
}

// Clone creates a deep copy of the vector.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	c := make(Vector, len(v))
	for i, d := range v {
		c[i] = new(apd.Decimal).Set(d)
	}
	return c
}

// Float64s projects the vector onto floats.
func (v Vector) Float64s() []float64 {
	ff := make([]float64, len(v))
	for i, d := range v {
		ff[i] = ToFloat(d)
	}
	return ff
}

// Equal checks if both vectors hold numerically equal elements.
func (v Vector) Equal(o Vector) bool {
	if len(v) != len(o) {
		return false
	}
	for i := range v {
		if v[i].Cmp(o[i]) != 0 {
			return false
		}
	}
	return true
}

func (v Vector) String() string {
	ss := make([]string, len(v))
	for i, d := range v {
		ss[i] = Format(d)
	}
	return fmt.Sprintf("[%s]", strings.Join(ss, " "))
}
