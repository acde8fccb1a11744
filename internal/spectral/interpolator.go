package spectral

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

// Family selects the interpolant used between anchor points.
type Family string

const (
	// FamilyCubic is a natural cubic spline: smooth first and second
	// derivatives, but it can overshoot (ring) near sharp spectral
	// features.
	FamilyCubic Family = "cubic"

	// FamilyPCHIP is a monotone piecewise cubic Hermite interpolant
	// (Fritsch-Butland). It never overshoots the anchor data, at the
	// cost of a discontinuous second derivative. Recommended default.
	FamilyPCHIP Family = "pchip"
)

// ParseFamily validates a family name from configuration.
func ParseFamily(s string) (Family, error) {
	switch Family(s) {
	case FamilyCubic, FamilyPCHIP:
		return Family(s), nil
	}
	return "", fmt.Errorf("spectral: interpolation family must be %q or %q, got %q",
		FamilyCubic, FamilyPCHIP, s)
}

// Bundle holds the fitted interpolants of one table/family combination:
// one scale interpolant (ln freq -> ln scale) and one interpolant per
// component weight (ln freq -> weight). Immutable once built; rebuild
// via Build when the table or family changes.
type Bundle struct {
	family Family
	scale  interp.Predictor
	comps  []interp.Predictor
	lnMin  float64
	lnMax  float64
}

// Build fits the interpolant bundle for the given table and family.
func Build(t *Table, family Family) (*Bundle, error) {
	if _, err := ParseFamily(string(family)); err != nil {
		return nil, err
	}

	lnf := t.lnFreqs()

	lnScales := make([]float64, len(t.Scales))
	for i, s := range t.Scales {
		lnScales[i] = math.Log(s)
	}

	scale, err := fit(family, lnf, lnScales)
	if err != nil {
		return nil, fmt.Errorf("spectral: fitting scale interpolant: %w", err)
	}

	ncomp := t.NComponents()
	comps := make([]interp.Predictor, ncomp)
	col := make([]float64, len(t.Freqs))
	for c := 0; c < ncomp; c++ {
		for i := range t.Weights {
			col[i] = t.Weights[i][c]
		}
		p, err := fit(family, lnf, col)
		if err != nil {
			return nil, fmt.Errorf("spectral: fitting component %d interpolant: %w", c, err)
		}
		comps[c] = p
	}

	return &Bundle{
		family: family,
		scale:  scale,
		comps:  comps,
		lnMin:  lnf[0],
		lnMax:  lnf[len(lnf)-1],
	}, nil
}

func fit(family Family, xs, ys []float64) (interp.Predictor, error) {
	var fp interp.FittablePredictor
	switch family {
	case FamilyCubic:
		fp = &interp.NaturalCubic{}
	case FamilyPCHIP:
		fp = &interp.FritschButland{}
	}
	// Fit copies xs/ys, so the column buffer can be reused by callers.
	if err := fp.Fit(xs, ys); err != nil {
		return nil, err
	}
	return fp, nil
}

// Family returns the family the bundle was built with.
func (b *Bundle) Family() Family { return b.family }

// NComponents returns the number of component-weight interpolants.
func (b *Bundle) NComponents() int { return len(b.comps) }

// Evaluate returns the scale vector exp(s(ln f)) and the weight matrix
// [freq][component] at the requested frequencies.
//
// Frequencies outside the anchor range are undefined under general
// interpolation semantics; callers must bound-check before reaching
// this point (the sky model does).
func (b *Bundle) Evaluate(freqs []float64) (scale []float64, weights [][]float64) {
	scale = make([]float64, len(freqs))
	weights = make([][]float64, len(freqs))

	for i, f := range freqs {
		lnf := math.Log(f)
		scale[i] = math.Exp(b.scale.Predict(lnf))
		row := make([]float64, len(b.comps))
		for c, p := range b.comps {
			row[c] = p.Predict(lnf)
		}
		weights[i] = row
	}
	return scale, weights
}
