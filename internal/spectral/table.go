// Package spectral builds and evaluates the per-component spectral
// interpolants of a PCA sky model. Interpolation runs over the natural
// log of frequency so that anchor points spanning several decades stay
// numerically well behaved; the overall scale column is additionally
// interpolated in log space because it is a positive multiplicative
// normalization.
package spectral

import (
	"fmt"
	"math"
)

// Table holds the interpolation anchor points of a model: one row per
// anchor frequency with the overall scale factor and N component
// weights. Immutable after construction.
type Table struct {
	Freqs   []float64   // anchor frequencies, native unit, strictly increasing
	Scales  []float64   // positive normalization per anchor
	Weights [][]float64 // [anchor][component]
}

// NewTable validates and wraps the raw anchor data.
func NewTable(freqs, scales []float64, weights [][]float64) (*Table, error) {
	if len(freqs) < 2 {
		return nil, fmt.Errorf("spectral: need at least 2 anchor frequencies, got %d", len(freqs))
	}
	if len(scales) != len(freqs) || len(weights) != len(freqs) {
		return nil, fmt.Errorf("spectral: row count mismatch: %d freqs, %d scales, %d weight rows",
			len(freqs), len(scales), len(weights))
	}
	ncomp := len(weights[0])
	if ncomp == 0 {
		return nil, fmt.Errorf("spectral: table has no weight columns")
	}
	for i, f := range freqs {
		if i > 0 && f <= freqs[i-1] {
			return nil, fmt.Errorf("spectral: anchor frequencies not strictly increasing at row %d: %g after %g",
				i, f, freqs[i-1])
		}
		if f <= 0 {
			return nil, fmt.Errorf("spectral: anchor frequency must be positive, got %g at row %d", f, i)
		}
		if scales[i] <= 0 {
			return nil, fmt.Errorf("spectral: scale must be positive, got %g at row %d", scales[i], i)
		}
		if len(weights[i]) != ncomp {
			return nil, fmt.Errorf("spectral: row %d has %d weight columns, want %d", i, len(weights[i]), ncomp)
		}
	}
	return &Table{Freqs: freqs, Scales: scales, Weights: weights}, nil
}

// NComponents returns the number of weight columns.
func (t *Table) NComponents() int {
	return len(t.Weights[0])
}

// MinFreq returns the lowest anchor frequency.
func (t *Table) MinFreq() float64 { return t.Freqs[0] }

// MaxFreq returns the highest anchor frequency.
func (t *Table) MaxFreq() float64 { return t.Freqs[len(t.Freqs)-1] }

// lnFreqs returns the anchor frequencies in log space.
func (t *Table) lnFreqs() []float64 {
	out := make([]float64, len(t.Freqs))
	for i, f := range t.Freqs {
		out[i] = math.Log(f)
	}
	return out
}
