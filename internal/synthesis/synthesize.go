// Package synthesis combines interpolated per-frequency component
// weights with static spatial basis maps, and converts between the
// brightness conventions the sky models use.
package synthesis

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// BasisSet holds N component maps over a common pixel grid, stored as
// an N x npix dense matrix so synthesis is a single matrix product.
type BasisSet struct {
	m     *mat.Dense
	ncomp int
	npix  int
}

// NewBasisSet packs component maps into a basis matrix. All maps must
// have the same length.
func NewBasisSet(maps [][]float64) (*BasisSet, error) {
	if len(maps) == 0 {
		return nil, fmt.Errorf("synthesis: empty basis set")
	}
	npix := len(maps[0])
	if npix == 0 {
		return nil, fmt.Errorf("synthesis: empty basis map")
	}
	m := mat.NewDense(len(maps), npix, nil)
	for c, mp := range maps {
		if len(mp) != npix {
			return nil, fmt.Errorf("synthesis: basis map %d has %d pixels, want %d", c, len(mp), npix)
		}
		m.SetRow(c, mp)
	}
	return &BasisSet{m: m, ncomp: len(maps), npix: npix}, nil
}

// NComponents returns the number of component maps.
func (b *BasisSet) NComponents() int { return b.ncomp }

// Npix returns the pixel count of each map.
func (b *BasisSet) Npix() int { return b.npix }

// Synthesize computes one sky map per requested frequency:
//
//	out[f][p] = scale[f] * sum_c weights[f][c] * basis[c][p]
//
// Each frequency is an independent weighted combination of the basis
// maps; the whole set is evaluated as a (k x N) x (N x npix) product
// followed by a per-row scaling.
func Synthesize(weights [][]float64, scale []float64, basis *BasisSet) ([][]float64, error) {
	k := len(weights)
	if k == 0 {
		return nil, fmt.Errorf("synthesis: no frequencies")
	}
	if len(scale) != k {
		return nil, fmt.Errorf("synthesis: %d weight rows but %d scale values", k, len(scale))
	}

	w := mat.NewDense(k, basis.ncomp, nil)
	for f, row := range weights {
		if len(row) != basis.ncomp {
			return nil, fmt.Errorf("synthesis: weight row %d has %d components, basis has %d",
				f, len(row), basis.ncomp)
		}
		w.SetRow(f, row)
	}

	var prod mat.Dense
	prod.Mul(w, basis.m)

	out := make([][]float64, k)
	for f := 0; f < k; f++ {
		row := make([]float64, basis.npix)
		copy(row, prod.RawRowView(f))
		floats.Scale(scale[f], row)
		out[f] = row
	}
	return out, nil
}
