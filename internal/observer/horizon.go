package observer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrInvalidHorizon marks a negative (or NaN) horizon elevation.
var ErrInvalidHorizon = errors.New("observer: invalid horizon elevation")

// Horizon is the elevation cutoff above the true horizon below which
// sky is treated as not observable.
//
// Two constructors exist because the surrounding astronomy ecosystem
// has a long-standing dual convention for this angle: a bare number is
// radians, a string is degrees. That contract is preserved here as two
// explicit entry points rather than runtime type inspection; pick the
// one matching your source of the value, and nothing else guesses.
type Horizon struct {
	rad float64
}

// HorizonRadians wraps a bare numeric elevation, interpreted as radians.
func HorizonRadians(rad float64) Horizon {
	return Horizon{rad: rad}
}

// HorizonDegreesString parses a string elevation, interpreted as degrees.
func HorizonDegreesString(s string) (Horizon, error) {
	deg, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Horizon{}, fmt.Errorf("observer: horizon elevation %q is not a number: %w", s, err)
	}
	return Horizon{rad: deg * math.Pi / 180}, nil
}

// HorizonDegrees wraps an elevation already known to be in degrees.
func HorizonDegrees(deg float64) Horizon {
	return Horizon{rad: deg * math.Pi / 180}
}

// Radians returns the elevation in radians.
func (h Horizon) Radians() float64 { return h.rad }

// Degrees returns the elevation in degrees.
func (h Horizon) Degrees() float64 { return h.rad * 180 / math.Pi }

// validate rejects a negative elevation. Called before any cache
// comparison or recomputation so an invalid value can never have side
// effects.
func (h Horizon) validate() error {
	if h.rad < 0 || math.IsNaN(h.rad) {
		return fmt.Errorf("%w: must be >= 0, got %g rad", ErrInvalidHorizon, h.rad)
	}
	return nil
}
