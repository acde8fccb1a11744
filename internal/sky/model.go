// Package sky synthesizes full-sky brightness maps at arbitrary
// frequencies from precomputed principal-component archives. A Model
// ties one family Definition to an archive Source and a set of
// user options; Generate reconstructs the sky at the requested
// frequencies in the galactic frame.
package sky

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/radiosky/gosky/internal/archive"
	"github.com/radiosky/gosky/internal/spectral"
	"github.com/radiosky/gosky/internal/synthesis"
)

// ErrOutOfRange marks a requested frequency outside the model's valid band.
var ErrOutOfRange = errors.New("frequency out of range")

// ErrNotGenerated marks use of the last generated map before any
// Generate call has succeeded.
var ErrNotGenerated = errors.New("no sky map generated yet")

// ConfigError is an invalid construction or setter option. Raised
// immediately at the point of configuration, never deferred.
type ConfigError struct {
	Option string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("sky: invalid %s %q: %s", e.Option, e.Value, e.Reason)
}

// Options configure a Model at construction.
type Options struct {
	// FreqUnit is the unit of all frequencies passed to Generate and
	// stored on the generated map. Default MHz.
	FreqUnit FreqUnit

	// DataUnit selects the output brightness convention. Default is
	// the family's first supported unit.
	DataUnit synthesis.DataUnit

	// Basemap selects the basis-map table (or resolution) where the
	// family offers a choice. Default per family.
	Basemap string

	// Interpolation selects the spectral interpolant family.
	// Default pchip: it cannot overshoot between anchor points, which
	// matters near sharp spectral features. The cubic alternative is
	// smoother but can ring; the trade-off is the caller's.
	Interpolation spectral.Family

	// IncludeCMB adds (or, for families whose maps contain it, keeps)
	// the 2.725 K isotropic background.
	IncludeCMB bool
}

// GeneratedMap is the result of one Generate call: per-frequency pixel
// arrays in the galactic frame, with the originally supplied
// frequencies and their unit. Replaced wholesale on each call.
type GeneratedMap struct {
	// Data is one row per requested frequency.
	Data [][]float64

	// Scalar records that the map came from GenerateScalar: callers
	// treating Data as shaped output should collapse the leading axis.
	Scalar bool

	// Freqs are the frequencies as supplied, in FreqUnit.
	Freqs    []float64
	FreqUnit FreqUnit

	Unit  synthesis.DataUnit
	Nside int
}

// Flat returns the single pixel array of a scalar-generated map.
func (g *GeneratedMap) Flat() ([]float64, bool) {
	if !g.Scalar {
		return nil, false
	}
	return g.Data[0], true
}

// Model generates sky maps for one family. Not safe for concurrent use:
// an instance belongs to one logical caller at a time.
type Model struct {
	def    Definition
	src    archive.Source
	logger *slog.Logger

	freqUnit   FreqUnit
	dataUnit   synthesis.DataUnit
	basemap    string
	family     spectral.Family
	includeCMB bool

	nside  int
	basis  *synthesis.BasisSet
	table  *spectral.Table
	bundle *spectral.Bundle

	last *GeneratedMap
}

// New builds a Model from a family definition, an archive source and
// options. Configuration errors surface here; archive problems are
// fatal load errors.
func New(def Definition, src archive.Source, opts Options, logger *slog.Logger) (*Model, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if opts.FreqUnit == "" {
		opts.FreqUnit = UnitMHz
	} else if _, err := ParseFreqUnit(string(opts.FreqUnit)); err != nil {
		return nil, &ConfigError{Option: "frequency unit", Value: string(opts.FreqUnit), Reason: "must be Hz, MHz or GHz"}
	}

	if opts.DataUnit == "" {
		opts.DataUnit = def.OutputUnits[0]
	} else if !def.supportsOutput(opts.DataUnit) {
		return nil, &ConfigError{
			Option: "data unit",
			Value:  string(opts.DataUnit),
			Reason: fmt.Sprintf("family %s supports %v", def.Name, def.OutputUnits),
		}
	}

	if opts.Basemap == "" {
		opts.Basemap = def.DefaultBasemap
	} else if _, ok := def.Basemaps[opts.Basemap]; !ok {
		return nil, &ConfigError{
			Option: "basemap",
			Value:  opts.Basemap,
			Reason: fmt.Sprintf("family %s offers %v", def.Name, basemapNames(def)),
		}
	}

	if opts.Interpolation == "" {
		opts.Interpolation = spectral.FamilyPCHIP
	} else if _, err := spectral.ParseFamily(string(opts.Interpolation)); err != nil {
		return nil, &ConfigError{Option: "interpolation family", Value: string(opts.Interpolation), Reason: "must be cubic or pchip"}
	}

	m := &Model{
		def:        def,
		src:        src,
		logger:     logger,
		freqUnit:   opts.FreqUnit,
		dataUnit:   opts.DataUnit,
		basemap:    opts.Basemap,
		family:     opts.Interpolation,
		includeCMB: opts.IncludeCMB,
	}

	if err := m.loadBasis(opts.Basemap); err != nil {
		return nil, err
	}

	if !def.PowerLaw {
		table, err := src.SpectralTable()
		if err != nil {
			return nil, fmt.Errorf("sky: loading spectral table for %s: %w", def.Name, err)
		}
		if table.NComponents() != m.basis.NComponents() {
			return nil, fmt.Errorf("sky: %s: %d basis maps but %d spectral components",
				def.Name, m.basis.NComponents(), table.NComponents())
		}
		m.table = table
		bundle, err := spectral.Build(table, m.family)
		if err != nil {
			return nil, err
		}
		m.bundle = bundle
	}

	logger.Debug("sky model ready",
		"family", def.Name,
		"basemap", m.basemap,
		"nside", m.nside,
		"interpolation", string(m.family),
		"data_unit", string(m.dataUnit),
	)
	return m, nil
}

func basemapNames(def Definition) []string {
	names := make([]string, 0, len(def.Basemaps))
	for k := range def.Basemaps {
		names = append(names, k)
	}
	return names
}

// loadBasis fetches and packs the basis maps for a basemap option.
func (m *Model) loadBasis(basemap string) error {
	setName := m.def.Basemaps[basemap]
	set, err := m.src.BasisMaps(setName)
	if err != nil {
		return fmt.Errorf("sky: loading basis maps for %s: %w", m.def.Name, err)
	}
	basis, err := synthesis.NewBasisSet(set.Maps)
	if err != nil {
		return fmt.Errorf("sky: packing basis maps: %w", err)
	}
	m.basis = basis
	m.nside = set.Nside
	return nil
}

// Name returns the family name.
func (m *Model) Name() string { return m.def.Name }

// Nside returns the pixelization resolution of the generated maps.
func (m *Model) Nside() int { return m.nside }

// FreqUnit returns the configured input frequency unit.
func (m *Model) FreqUnit() FreqUnit { return m.freqUnit }

// DataUnit returns the configured output brightness unit.
func (m *Model) DataUnit() synthesis.DataUnit { return m.dataUnit }

// Band returns the valid frequency band in the configured unit.
func (m *Model) Band() (lo, hi float64) {
	return convertFreq(m.def.FloorNative, m.def.NativeUnit, m.freqUnit),
		convertFreq(m.def.CeilingNative, m.def.NativeUnit, m.freqUnit)
}

// LastMap returns the most recently generated map.
func (m *Model) LastMap() (*GeneratedMap, error) {
	if m.last == nil {
		return nil, ErrNotGenerated
	}
	return m.last, nil
}

// Generate synthesizes one sky map per requested frequency. Frequencies
// are in the configured unit. On any error the previously generated map
// is left untouched.
func (m *Model) Generate(freqs []float64) (*GeneratedMap, error) {
	return m.generate(freqs, false)
}

// GenerateScalar synthesizes the sky at a single frequency and marks
// the result for flat-shape consumption. This is the scalar-squeeze
// entry point: passing a one-element slice to Generate keeps the
// two-dimensional shape.
func (m *Model) GenerateScalar(freq float64) ([]float64, error) {
	g, err := m.generate([]float64{freq}, true)
	if err != nil {
		return nil, err
	}
	return g.Data[0], nil
}

func (m *Model) generate(freqs []float64, scalar bool) (*GeneratedMap, error) {
	if len(freqs) == 0 {
		return nil, fmt.Errorf("sky: no frequencies requested")
	}

	native := make([]float64, len(freqs))
	for i, f := range freqs {
		native[i] = convertFreq(f, m.freqUnit, m.def.NativeUnit)
	}
	if err := m.checkBand(native); err != nil {
		return nil, err
	}

	var data [][]float64
	if m.def.PowerLaw {
		data = m.powerLaw(native)
	} else {
		scale, weights := m.bundle.Evaluate(native)
		var err error
		data, err = synthesis.Synthesize(weights, scale, m.basis)
		if err != nil {
			return nil, err
		}
	}

	if err := m.applyUnits(data, native); err != nil {
		return nil, err
	}

	g := &GeneratedMap{
		Data:     data,
		Scalar:   scalar,
		Freqs:    append([]float64(nil), freqs...),
		FreqUnit: m.freqUnit,
		Unit:     m.dataUnit,
		Nside:    m.nside,
	}
	m.last = g
	return g, nil
}

// checkBand rejects frequencies outside [floor, ceiling]; the exact
// boundary is valid. Never clamps, never extrapolates.
func (m *Model) checkBand(native []float64) error {
	lo, hi := m.def.FloorNative, m.def.CeilingNative
	for _, f := range native {
		if f <= 0 || math.IsNaN(f) {
			return fmt.Errorf("%w: %g %s is not a positive frequency", ErrOutOfRange, f, m.def.NativeUnit)
		}
		if f < lo || f > hi {
			return fmt.Errorf("%w: %g %s outside valid band [%g, %g] %s for %s",
				ErrOutOfRange, f, m.def.NativeUnit, lo, hi, m.def.NativeUnit, m.def.Name)
		}
	}
	return nil
}

// powerLaw scales the single basis map by (f/ref)^alpha per frequency.
func (m *Model) powerLaw(native []float64) [][]float64 {
	scale := make([]float64, len(native))
	weights := make([][]float64, len(native))
	for i, f := range native {
		scale[i] = math.Pow(f/m.def.RefFreqNative, m.def.SpectralIndex)
		weights[i] = []float64{1}
	}
	// A power-law family is a one-component synthesis with unit weight.
	data, _ := synthesis.Synthesize(weights, scale, m.basis)
	return data
}

// applyUnits runs the family's background stage and the per-frequency
// output-unit conversion, in the family's fixed order.
func (m *Model) applyUnits(data [][]float64, native []float64) error {
	switch m.def.NativeData {
	case synthesis.UnitK:
		// Conversion is the identity; only the background stage applies.
		switch {
		case m.def.CMB == CMBAddKelvinPost && m.includeCMB:
			addScalar(data, synthesis.TCMB)
		case m.def.CMB == CMBRemoveUnlessIncluded && !m.includeCMB:
			addScalar(data, -synthesis.TCMB)
		}
		return nil

	case synthesis.UnitMJysr:
		for i, row := range data {
			nuHz := native[i] * m.def.NativeUnit.hzFactor()
			if m.includeCMB {
				bg := synthesis.KCMBToMJysr(synthesis.TCMB, nuHz)
				for p := range row {
					row[p] += bg
				}
			}
			factor, err := synthesis.FromMJysrFactor(m.dataUnit, nuHz)
			if err != nil {
				return err
			}
			if factor != 1 {
				for p := range row {
					row[p] *= factor
				}
			}
		}
		return nil
	}
	return fmt.Errorf("sky: unhandled native data unit %q", m.def.NativeData)
}

func addScalar(data [][]float64, v float64) {
	for _, row := range data {
		for p := range row {
			row[p] += v
		}
	}
}

// SetInterpolation switches the spectral interpolant family, rebuilds
// the interpolant bundle, and regenerates the last-used frequencies so
// the stored map never reflects a stale configuration. On error the
// previous configuration and map survive untouched.
func (m *Model) SetInterpolation(family spectral.Family) error {
	if _, err := spectral.ParseFamily(string(family)); err != nil {
		return &ConfigError{Option: "interpolation family", Value: string(family), Reason: "must be cubic or pchip"}
	}
	if m.def.PowerLaw {
		m.family = family // no interpolants to rebuild
		return nil
	}

	bundle, err := spectral.Build(m.table, family)
	if err != nil {
		return err
	}

	prevFamily, prevBundle := m.family, m.bundle
	m.family, m.bundle = family, bundle
	if err := m.regenerateLast(); err != nil {
		m.family, m.bundle = prevFamily, prevBundle
		return err
	}
	return nil
}

// SetBasemap switches the basis-map table and regenerates the last-used
// frequencies. Same rollback contract as SetInterpolation.
func (m *Model) SetBasemap(basemap string) error {
	if _, ok := m.def.Basemaps[basemap]; !ok {
		return &ConfigError{
			Option: "basemap",
			Value:  basemap,
			Reason: fmt.Sprintf("family %s offers %v", m.def.Name, basemapNames(m.def)),
		}
	}

	prevBasis, prevNside, prevBasemap := m.basis, m.nside, m.basemap
	if err := m.loadBasis(basemap); err != nil {
		return err
	}
	m.basemap = basemap

	if m.table != nil && m.table.NComponents() != m.basis.NComponents() {
		m.basis, m.nside, m.basemap = prevBasis, prevNside, prevBasemap
		return fmt.Errorf("sky: basemap %s has %d maps, spectral table has %d components",
			basemap, m.basis.NComponents(), m.table.NComponents())
	}

	if err := m.regenerateLast(); err != nil {
		m.basis, m.nside, m.basemap = prevBasis, prevNside, prevBasemap
		return err
	}
	return nil
}

// regenerateLast re-runs generate with the previous call's frequencies,
// preserving the scalar/sequence shape. No-op before the first call.
func (m *Model) regenerateLast() error {
	if m.last == nil {
		return nil
	}
	_, err := m.generate(m.last.Freqs, m.last.Scalar)
	return err
}
