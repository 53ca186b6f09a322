// Package precision describes the viewed area of the complex plane with
// arbitrary precision decimals, so that zooming stays exact far beyond the
// resolution of float64.
package precision

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// RelevanceConstant is the number of significant digits kept below the
// magnitude of the radius.
const RelevanceConstant = 8

// guardDigits are added to the working precision of intermediate results.
const guardDigits = 4

var ErrInvalidArea = errors.New("invalid area")

// Magnitude is the exponent of d in scientific notation: 2 for 100, -3 for
// 0.00785637. Zero has magnitude 0.
func Magnitude(d *apd.Decimal) int64 {
	if d.IsZero() {
		return 0
	}
	return d.NumDigits() + int64(d.Exponent) - 1
}

// PrecisionFor is the number of decimal places needed to address an area of
// the given radius.
func PrecisionFor(radius *apd.Decimal) uint32 {
	return uint32(max(RelevanceConstant, RelevanceConstant-Magnitude(radius)))
}

// workingContext returns a context able to hold values of the given
// magnitudes down to precision decimal places.
func workingContext(precision uint32, values ...*apd.Decimal) *apd.Context {
	var mag int64
	for _, v := range values {
		mag = max(mag, Magnitude(v))
	}
	ctx := apd.BaseContext.WithPrecision(precision + uint32(mag) + guardDigits)
	ctx.Rounding = apd.RoundHalfEven
	return ctx
}

// exact performs additions, subtractions and multiplications without
// rounding.
var exact = apd.BaseContext.WithPrecision(0)

func parse(name, s string) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q: %w", ErrInvalidArea, name, s, err)
	}
	if d.Form != apd.Finite {
		return nil, fmt.Errorf("%w: %s %q is not finite", ErrInvalidArea, name, s)
	}
	return d, nil
}

func fromFloat(name string, f float64) (*apd.Decimal, error) {
	d, err := new(apd.Decimal).SetFloat64(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %g: %w", ErrInvalidArea, name, f, err)
	}
	if d.Form != apd.Finite {
		return nil, fmt.Errorf("%w: %s %g is not finite", ErrInvalidArea, name, f)
	}
	return d, nil
}

func toFloat(d *apd.Decimal) (float64, error) {
	f, err := d.Float64()
	if err != nil {
		return 0, fmt.Errorf("converting %s to float64: %w", d, err)
	}
	return f, nil
}

func must(_ apd.Condition, err error) {
	if err != nil {
		panic(fmt.Sprintf("precision: decimal arithmetic failed: %v", err))
	}
}
