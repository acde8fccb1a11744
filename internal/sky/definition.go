package sky

import (
	"math"

	"github.com/radiosky/gosky/internal/synthesis"
)

// CMBStage says where in the pipeline the isotropic background term is
// applied for a model family. The stage is fixed per family: unit
// conversion is frequency dependent, so pre- and post-conversion
// addition are not interchangeable.
type CMBStage int

const (
	// CMBAddKelvinPost adds T_CMB in kelvin after synthesis. Used by
	// the native-kelvin families, where conversion is the identity.
	CMBAddKelvinPost CMBStage = iota

	// CMBAddNativePre adds the background converted to native MJy/sr
	// before the per-frequency output-unit conversion.
	CMBAddNativePre

	// CMBRemoveUnlessIncluded marks families whose basis maps already
	// contain the background: T_CMB is subtracted after synthesis
	// unless the caller asked for it to be kept.
	CMBRemoveUnlessIncluded
)

// Definition describes one sky-model family as data plus strategy:
// which archive tables it reads, its valid band, its native brightness
// convention, and where the background term enters. One Model type
// serves every family; there is no per-family subtype.
type Definition struct {
	Name string

	// NativeUnit is the unit of the spectral table's anchor
	// frequencies; inputs are converted to it before anything else.
	NativeUnit FreqUnit

	// Valid band in the native unit, inclusive at both ends.
	FloorNative   float64
	CeilingNative float64

	// NativeData is the convention the synthesized maps come out in.
	NativeData synthesis.DataUnit

	// OutputUnits are the conversions this family supports; the first
	// entry is the default.
	OutputUnits []synthesis.DataUnit

	// Basemaps maps the user-facing basemap/resolution option to the
	// archive set name. DefaultBasemap must be a key of Basemaps.
	Basemaps       map[string]string
	DefaultBasemap string

	CMB CMBStage

	// PowerLaw families scale a single map by (f/RefFreqNative)^SpectralIndex
	// instead of running the PCA synthesis. The archive then carries one
	// map and no spectral table.
	PowerLaw      bool
	RefFreqNative float64
	SpectralIndex float64
}

// supportsOutput reports whether the family can produce the unit.
func (d *Definition) supportsOutput(u synthesis.DataUnit) bool {
	for _, ou := range d.OutputUnits {
		if ou == u {
			return true
		}
	}
	return false
}

// GSM08 is the de Oliveira-Costa et al. (2008) diffuse emission model:
// three principal components fit from 10 MHz to 94 GHz, antenna
// temperature in kelvin. Basemap choices trade resolution against the
// survey the spatial structure is locked to.
func GSM08() Definition {
	return Definition{
		Name:          "gsm08",
		NativeUnit:    UnitMHz,
		FloorNative:   10,
		CeilingNative: 94000,
		NativeData:    synthesis.UnitK,
		OutputUnits:   []synthesis.DataUnit{synthesis.UnitK},
		Basemaps: map[string]string{
			"haslam": "components_408locked",
			"5deg":   "components_5deg",
			"wmap":   "components_23klocked",
		},
		DefaultBasemap: "haslam",
		CMB:            CMBAddKelvinPost,
	}
}

// GSM16 is the improved six-component model (Zheng et al. 2017),
// 10 MHz to 5 THz, native spectral radiance in MJy/sr with optional
// temperature-convention output. The background is added in native
// MJy/sr before unit conversion, matching the published pipeline.
func GSM16() Definition {
	return Definition{
		Name:          "gsm16",
		NativeUnit:    UnitGHz,
		FloorNative:   0.01,
		CeilingNative: 5000,
		NativeData:    synthesis.UnitMJysr,
		OutputUnits: []synthesis.DataUnit{
			synthesis.UnitTCMB, synthesis.UnitMJysr, synthesis.UnitTRJ,
		},
		Basemaps: map[string]string{
			"hi":  "highres",
			"low": "lowres",
		},
		DefaultBasemap: "hi",
		CMB:            CMBAddNativePre,
	}
}

// LFSM is the LWA1 low-frequency sky model, 10-408 MHz in kelvin. Its
// basis maps contain the CMB, so the background is subtracted unless
// the caller asks to keep it.
func LFSM() Definition {
	return Definition{
		Name:          "lfsm",
		NativeUnit:    UnitMHz,
		FloorNative:   10,
		CeilingNative: 408,
		NativeData:    synthesis.UnitK,
		OutputUnits:   []synthesis.DataUnit{synthesis.UnitK},
		Basemaps: map[string]string{
			"lfss": "components",
		},
		DefaultBasemap: "lfss",
		CMB:            CMBRemoveUnlessIncluded,
	}
}

// Haslam scales the destriped, desourced 408 MHz survey map by a single
// power law. A degenerate family: one map, no PCA machinery, any
// positive frequency.
func Haslam(spectralIndex float64) Definition {
	return Definition{
		Name:          "haslam",
		NativeUnit:    UnitMHz,
		FloorNative:   0,
		CeilingNative: math.Inf(1),
		NativeData:    synthesis.UnitK,
		OutputUnits:   []synthesis.DataUnit{synthesis.UnitK},
		Basemaps: map[string]string{
			"haslam": "haslam_408",
		},
		DefaultBasemap: "haslam",
		CMB:            CMBAddKelvinPost,
		PowerLaw:       true,
		RefFreqNative:  408,
		SpectralIndex:  spectralIndex,
	}
}

// DefaultSpectralIndex is the canonical synchrotron index for the
// Haslam power-law extrapolation.
const DefaultSpectralIndex = -2.55
