// Package archive loads and serves the precomputed component data a sky
// model is built from: named sets of spatial basis maps plus one
// spectral anchor table. The on-disk container is the flat binary .skb
// format (see codec.go); remote retrieval and local caching mirror how
// any other slowly-changing reference dataset is handled here — fetch
// once over HTTP, keep timestamped copies on disk.
package archive

import (
	"fmt"

	"github.com/radiosky/gosky/internal/healpix"
	"github.com/radiosky/gosky/internal/spectral"
)

// BasisSet is one named table of N spatial component maps on a common
// HEALPix grid. Immutable after load.
type BasisSet struct {
	Nside int
	Maps  [][]float64 // [component][pixel]
}

// Validate checks the map lengths against the declared nside.
func (b *BasisSet) Validate() error {
	if b.Nside < 1 {
		return fmt.Errorf("archive: invalid nside %d", b.Nside)
	}
	npix := healpix.Npix(b.Nside)
	if len(b.Maps) == 0 {
		return fmt.Errorf("archive: basis set has no maps")
	}
	for i, m := range b.Maps {
		if len(m) != npix {
			return fmt.Errorf("archive: map %d has %d pixels, nside %d implies %d",
				i, len(m), b.Nside, npix)
		}
	}
	return nil
}

// Source is the abstract contract the sky models consume: named basis
// map tables at a fixed pixelization, plus a frequency-anchored
// interpolation table.
type Source interface {
	// BasisMaps returns the named basis-map set.
	BasisMaps(name string) (*BasisSet, error)

	// SpectralTable returns the interpolation anchor table, or an error
	// if the archive carries none (single-map models).
	SpectralTable() (*spectral.Table, error)

	// MapNames lists the available basis-map sets.
	MapNames() []string
}

// Archive is an in-memory basis-data archive. It implements Source.
type Archive struct {
	sets  map[string]*BasisSet
	names []string // insertion order, for stable listings
	table *spectral.Table
}

// New builds an Archive from already-validated parts. Used by the codec
// and by tests that synthesize small archives directly.
func New(names []string, sets map[string]*BasisSet, table *spectral.Table) (*Archive, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("archive: no basis-map sets")
	}
	for _, name := range names {
		set, ok := sets[name]
		if !ok {
			return nil, fmt.Errorf("archive: listed set %q missing", name)
		}
		if err := set.Validate(); err != nil {
			return nil, fmt.Errorf("archive: set %q: %w", name, err)
		}
		if table != nil && len(set.Maps) != table.NComponents() {
			return nil, fmt.Errorf("archive: set %q has %d maps but spectral table has %d components",
				name, len(set.Maps), table.NComponents())
		}
	}
	return &Archive{sets: sets, names: append([]string(nil), names...), table: table}, nil
}

// BasisMaps implements Source.
func (a *Archive) BasisMaps(name string) (*BasisSet, error) {
	set, ok := a.sets[name]
	if !ok {
		return nil, fmt.Errorf("archive: no basis-map set %q (have %v)", name, a.names)
	}
	return set, nil
}

// SpectralTable implements Source.
func (a *Archive) SpectralTable() (*spectral.Table, error) {
	if a.table == nil {
		return nil, fmt.Errorf("archive: no spectral table in archive")
	}
	return a.table, nil
}

// MapNames implements Source.
func (a *Archive) MapNames() []string {
	return append([]string(nil), a.names...)
}
