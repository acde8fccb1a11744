package spectral

import (
	"math"
	"testing"
)

// testTable builds a small power-law-like anchor table: scale ~ f^-2.5,
// weights are smooth functions of ln f.
func testTable(t *testing.T) *Table {
	t.Helper()

	freqs := []float64{10, 30, 100, 300, 1000, 3000, 10000}
	scales := make([]float64, len(freqs))
	weights := make([][]float64, len(freqs))
	for i, f := range freqs {
		scales[i] = 1e5 * math.Pow(f/10, -2.5)
		lnf := math.Log(f)
		weights[i] = []float64{1.0, 0.1 * lnf, 0.01 * lnf * lnf}
	}

	tbl, err := NewTable(freqs, scales, weights)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

func TestNewTableValidation(t *testing.T) {
	good := []float64{1, 2, 3}
	w := [][]float64{{1}, {1}, {1}}
	s := []float64{1, 1, 1}

	cases := []struct {
		name    string
		freqs   []float64
		scales  []float64
		weights [][]float64
	}{
		{"too few rows", []float64{1}, []float64{1}, [][]float64{{1}}},
		{"non-increasing", []float64{1, 3, 2}, s, w},
		{"duplicate freq", []float64{1, 2, 2}, s, w},
		{"negative freq", []float64{-1, 2, 3}, s, w},
		{"zero scale", good, []float64{1, 0, 1}, w},
		{"ragged weights", good, s, [][]float64{{1}, {1, 2}, {1}}},
		{"row mismatch", good, []float64{1, 1}, w},
	}
	for _, tc := range cases {
		if _, err := NewTable(tc.freqs, tc.scales, tc.weights); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}

	if _, err := NewTable(good, s, w); err != nil {
		t.Errorf("valid table rejected: %v", err)
	}
}

func TestParseFamily(t *testing.T) {
	for _, s := range []string{"cubic", "pchip"} {
		if _, err := ParseFamily(s); err != nil {
			t.Errorf("ParseFamily(%q): %v", s, err)
		}
	}
	if _, err := ParseFamily("akima"); err == nil {
		t.Error("ParseFamily should reject unknown families")
	}
}

// TestEvaluateAtAnchors checks both families reproduce the anchor data
// exactly (interpolation, not fitting).
func TestEvaluateAtAnchors(t *testing.T) {
	tbl := testTable(t)

	for _, family := range []Family{FamilyCubic, FamilyPCHIP} {
		b, err := Build(tbl, family)
		if err != nil {
			t.Fatalf("Build(%s): %v", family, err)
		}

		scale, weights := b.Evaluate(tbl.Freqs)
		for i := range tbl.Freqs {
			if rel(scale[i], tbl.Scales[i]) > 1e-10 {
				t.Errorf("%s: scale at anchor %d = %g, want %g", family, i, scale[i], tbl.Scales[i])
			}
			for c := range weights[i] {
				if math.Abs(weights[i][c]-tbl.Weights[i][c]) > 1e-10 {
					t.Errorf("%s: weight[%d][%d] = %g, want %g",
						family, i, c, weights[i][c], tbl.Weights[i][c])
				}
			}
		}
	}
}

// TestPCHIPMonotone checks the monotone family does not overshoot
// between anchors of a monotone column.
func TestPCHIPMonotone(t *testing.T) {
	freqs := []float64{10, 20, 40, 80, 160}
	scales := []float64{1, 1, 1, 1, 1}
	// Monotone decreasing step-like column; a cubic spline would ring here.
	weights := [][]float64{{5}, {4.9}, {1.1}, {1}, {0.9}}
	tbl, err := NewTable(freqs, scales, weights)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	b, err := Build(tbl, FamilyPCHIP)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	query := make([]float64, 0, 200)
	for f := 10.0; f <= 160.0; f += 0.75 {
		query = append(query, f)
	}
	_, w := b.Evaluate(query)
	prev := math.Inf(1)
	for i, row := range w {
		if row[0] > 5 || row[0] < 0.9 {
			t.Fatalf("pchip overshoot at f=%g: %g", query[i], row[0])
		}
		if row[0] > prev+1e-12 {
			t.Fatalf("pchip not monotone at f=%g: %g after %g", query[i], row[0], prev)
		}
		prev = row[0]
	}
}

// TestScaleLogSpace checks the scale interpolant recovers a pure power
// law almost exactly, since a power law is linear in (ln f, ln scale).
func TestScaleLogSpace(t *testing.T) {
	tbl := testTable(t)
	b, err := Build(tbl, FamilyPCHIP)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	scale, _ := b.Evaluate([]float64{55, 550, 5500})
	for i, f := range []float64{55, 550, 5500} {
		want := 1e5 * math.Pow(f/10, -2.5)
		if rel(scale[i], want) > 1e-6 {
			t.Errorf("scale(%g) = %g, want %g (rel %g)", f, scale[i], want, rel(scale[i], want))
		}
	}
}

func rel(a, b float64) float64 {
	if b == 0 {
		return math.Abs(a)
	}
	return math.Abs(a-b) / math.Abs(b)
}
