package sky

import "fmt"

// FreqUnit is the unit frequencies are supplied in.
type FreqUnit string

const (
	UnitHz  FreqUnit = "Hz"
	UnitMHz FreqUnit = "MHz"
	UnitGHz FreqUnit = "GHz"
)

// ParseFreqUnit validates a frequency unit from configuration.
func ParseFreqUnit(s string) (FreqUnit, error) {
	switch FreqUnit(s) {
	case UnitHz, UnitMHz, UnitGHz:
		return FreqUnit(s), nil
	}
	return "", fmt.Errorf("sky: frequency unit must be Hz, MHz or GHz, got %q", s)
}

// hzFactor returns the number of Hz per unit.
func (u FreqUnit) hzFactor() float64 {
	switch u {
	case UnitHz:
		return 1
	case UnitMHz:
		return 1e6
	case UnitGHz:
		return 1e9
	}
	return 0
}

// convertFreq converts a frequency value between units.
func convertFreq(f float64, from, to FreqUnit) float64 {
	return f * from.hzFactor() / to.hzFactor()
}
