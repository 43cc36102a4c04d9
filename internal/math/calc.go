package math

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Calc carries out decimal arithmetic with a fixed precision.
// All operations allocate new results and never mutate their arguments.
type Calc struct {
	ctx *apd.Context
}

// NewCalc creates a new calculator for the given number of significant digits.
// A zero precision falls back to DefaultPrecision.
func NewCalc(precision uint32) *Calc {
	if precision == 0 {
		precision = DefaultPrecision
	}
	return &Calc{
		ctx: apd.BaseContext.WithPrecision(precision),
	}
}

// Precision returns the number of significant digits of the calculator.
func (c *Calc) Precision() uint32 {
	return c.ctx.Precision
}

func (c *Calc) AddD(x, y *apd.Decimal) (*apd.Decimal, error) {
	d := new(apd.Decimal)
	if _, err := c.ctx.Add(d, x, y); err != nil {
		return nil, fmt.Errorf("could not add '%s' and '%s': %w", x, y, err)
	}
	return d, nil
}

func (c *Calc) SubD(x, y *apd.Decimal) (*apd.Decimal, error) {
	d := new(apd.Decimal)
	if _, err := c.ctx.Sub(d, x, y); err != nil {
		return nil, fmt.Errorf("could not subtract '%s' from '%s': %w", y, x, err)
	}
	return d, nil
}

func (c *Calc) MulD(x, y *apd.Decimal) (*apd.Decimal, error) {
	d := new(apd.Decimal)
	if _, err := c.ctx.Mul(d, x, y); err != nil {
		return nil, fmt.Errorf("could not multiply '%s' with '%s': %w", x, y, err)
	}
	return d, nil
}

func (c *Calc) QuoD(x, y *apd.Decimal) (*apd.Decimal, error) {
	d := new(apd.Decimal)
	if _, err := c.ctx.Quo(d, x, y); err != nil {
		return nil, fmt.Errorf("could not divide '%s' by '%s': %w", x, y, err)
	}
	return d, nil
}

// PowD raises x to the decimal power y.
func (c *Calc) PowD(x, y *apd.Decimal) (*apd.Decimal, error) {
	d := new(apd.Decimal)
	if _, err := c.ctx.Pow(d, x, y); err != nil {
		return nil, fmt.Errorf("could not raise '%s' to '%s': %w", x, y, err)
	}
	return d, nil
}

func (c *Calc) SqrtD(x *apd.Decimal) (*apd.Decimal, error) {
	d := new(apd.Decimal)
	if _, err := c.ctx.Sqrt(d, x); err != nil {
		return nil, fmt.Errorf("could not take square root of '%s': %w", x, err)
	}
	return d, nil
}

func (c *Calc) AbsD(x *apd.Decimal) *apd.Decimal {
	return new(apd.Decimal).Abs(x)
}

// Add adds the vectors element by element.
func (c *Calc) Add(a, b Vector) (Vector, error) {
	return c.zip(a, b, c.AddD)
}

// Sub subtracts b from a element by element.
func (c *Calc) Sub(a, b Vector) (Vector, error) {
	return c.zip(a, b, c.SubD)
}

// Pow raises each element of the vector to the given power.
func (c *Calc) Pow(v Vector, e *apd.Decimal) (Vector, error) {
	return c.each(v, func(x *apd.Decimal) (*apd.Decimal, error) {
		return c.PowD(x, e)
	})
}

// Scale multiplies each element with the given factor.
func (c *Calc) Scale(v Vector, f *apd.Decimal) (Vector, error) {
	return c.each(v, func(x *apd.Decimal) (*apd.Decimal, error) {
		return c.MulD(x, f)
	})
}

// Div divides each element by the given scalar.
func (c *Calc) Div(v Vector, s *apd.Decimal) (Vector, error) {
	return c.each(v, func(x *apd.Decimal) (*apd.Decimal, error) {
		return c.QuoD(x, s)
	})
}

// Sum reduces the vector to the sum of its elements.
func (c *Calc) Sum(v Vector) (*apd.Decimal, error) {
	sum := new(apd.Decimal)
	for _, x := range v {
		if _, err := c.ctx.Add(sum, sum, x); err != nil {
			return nil, fmt.Errorf("could not sum vector %v: %w", v, err)
		}
	}
	return sum, nil
}

// Distance is the euclidean distance of the two vectors.
func (c *Calc) Distance(a, b Vector) (*apd.Decimal, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("could not compute distance for vectors of size %d and %d: %w", len(a), len(b), LengthMismatchErr)
	}
	sum := new(apd.Decimal)
	diff := new(apd.Decimal)
	sq := new(apd.Decimal)
	for i := range a {
		if _, err := c.ctx.Sub(diff, a[i], b[i]); err != nil {
			return nil, fmt.Errorf("could not compute distance at %d: %w", i, err)
		}
		if _, err := c.ctx.Mul(sq, diff, diff); err != nil {
			return nil, fmt.Errorf("could not compute distance at %d: %w", i, err)
		}
		if _, err := c.ctx.Add(sum, sum, sq); err != nil {
			return nil, fmt.Errorf("could not compute distance at %d: %w", i, err)
		}
	}
	return c.SqrtD(sum)
}

// Normalize divides the vector by the sum of its elements, so that the result sums up to 1.
func (c *Calc) Normalize(v Vector) (Vector, error) {
	sum, err := c.Sum(v)
	if err != nil {
		return nil, err
	}
	return c.Div(v, sum)
}

func (c *Calc) zip(a, b Vector, op func(x, y *apd.Decimal) (*apd.Decimal, error)) (Vector, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("inconsistent dimensions %d vs %d: %w", len(a), len(b), LengthMismatchErr)
	}
	v := make(Vector, len(a))
	for i := range a {
		d, err := op(a[i], b[i])
		if err != nil {
			return nil, err
		}
		v[i] = d
	}
	return v, nil
}

func (c *Calc) each(v Vector, op func(x *apd.Decimal) (*apd.Decimal, error)) (Vector, error) {
	r := make(Vector, len(v))
	for i, x := range v {
		d, err := op(x)
		if err != nil {
			return nil, err
		}
		r[i] = d
	}
	return r, nil
}
