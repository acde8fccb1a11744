package synthesis

import (
	"fmt"
	"math"
)

// Physical constants (SI), matching the reference PCA fit so converted
// maps agree with the published model to its stated tolerance.
const (
	boltzmann = 1.38065e-23 // J/K
	lightC    = 2.99792e8   // m/s
	planckH   = 6.62607e-34 // J s

	// TCMB is the cosmic microwave background monopole temperature in
	// kelvin, used for the optional isotropic background term.
	TCMB = 2.725
)

// KCMBToMJysr converts a thermodynamic (CMB-convention) temperature in
// kelvin to spectral radiance in MJy/sr at frequency nu (Hz), using the
// derivative of the Planck law at T = TCMB.
func KCMBToMJysr(t, nu float64) float64 {
	x := planckH / boltzmann * nu / TCMB
	bNu := 2 * planckH * nu * (nu / lightC) * (nu / lightC) / (math.Exp(x) - 1)
	factor := (bNu * lightC / nu / TCMB) * (bNu * lightC / nu / TCMB) / 2 * math.Exp(x) / boltzmann
	// 1e-26 W/m^2/Hz/sr per Jy, times 1e6 Jy per MJy.
	return t * factor * 1e20
}

// KRJToMJysr converts a Rayleigh-Jeans brightness temperature in kelvin
// to spectral radiance in MJy/sr at frequency nu (Hz).
func KRJToMJysr(t, nu float64) float64 {
	factor := 2 * (nu / lightC) * (nu / lightC) * boltzmann
	return t * factor * 1e20
}

// MJysrToKCMB is the inverse of KCMBToMJysr at frequency nu (Hz).
func MJysrToKCMB(s, nu float64) float64 {
	return s / KCMBToMJysr(1, nu)
}

// MJysrToKRJ is the inverse of KRJToMJysr at frequency nu (Hz).
func MJysrToKRJ(s, nu float64) float64 {
	return s / KRJToMJysr(1, nu)
}

// DataUnit identifies the brightness convention of a generated map.
type DataUnit string

const (
	// UnitK is antenna temperature in kelvin, the native unit of the
	// kelvin-based model families.
	UnitK DataUnit = "K"

	// UnitTCMB is thermodynamic (CMB-convention) temperature in kelvin.
	UnitTCMB DataUnit = "TCMB"

	// UnitTRJ is Rayleigh-Jeans brightness temperature in kelvin.
	UnitTRJ DataUnit = "TRJ"

	// UnitMJysr is spectral radiance in MJy per steradian.
	UnitMJysr DataUnit = "MJysr"
)

// FromMJysrFactor returns the multiplicative factor converting a map in
// MJy/sr to the requested unit at frequency nu (Hz). The factor is
// frequency dependent for the temperature conventions.
func FromMJysrFactor(unit DataUnit, nu float64) (float64, error) {
	switch unit {
	case UnitMJysr:
		return 1, nil
	case UnitTCMB:
		return 1 / KCMBToMJysr(1, nu), nil
	case UnitTRJ:
		return 1 / KRJToMJysr(1, nu), nil
	}
	return 0, fmt.Errorf("synthesis: no MJy/sr conversion for unit %q", unit)
}
