package synthesis

import (
	"math"
	"testing"
)

func TestSynthesizeMatchesNaive(t *testing.T) {
	basisMaps := [][]float64{
		{1, 2, 3, 4, 5},
		{0.5, -1, 0, 1, -0.5},
		{2, 2, 2, 2, 2},
	}
	basis, err := NewBasisSet(basisMaps)
	if err != nil {
		t.Fatalf("NewBasisSet: %v", err)
	}

	weights := [][]float64{
		{1, 0.5, -0.25},
		{0, 2, 1},
	}
	scale := []float64{2, 0.5}

	got, err := Synthesize(weights, scale, basis)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	for f := range weights {
		for p := 0; p < basis.Npix(); p++ {
			want := 0.0
			for c := range basisMaps {
				want += weights[f][c] * basisMaps[c][p]
			}
			want *= scale[f]
			if math.Abs(got[f][p]-want) > 1e-12 {
				t.Errorf("out[%d][%d] = %g, want %g", f, p, got[f][p], want)
			}
		}
	}
}

func TestSynthesizeShapeErrors(t *testing.T) {
	basis, _ := NewBasisSet([][]float64{{1, 2}, {3, 4}})

	if _, err := Synthesize(nil, nil, basis); err == nil {
		t.Error("expected error for no frequencies")
	}
	if _, err := Synthesize([][]float64{{1, 2}}, []float64{1, 2}, basis); err == nil {
		t.Error("expected error for scale length mismatch")
	}
	if _, err := Synthesize([][]float64{{1, 2, 3}}, []float64{1}, basis); err == nil {
		t.Error("expected error for component count mismatch")
	}
	if _, err := NewBasisSet([][]float64{{1, 2}, {3}}); err == nil {
		t.Error("expected error for ragged basis maps")
	}
	if _, err := NewBasisSet(nil); err == nil {
		t.Error("expected error for empty basis set")
	}
}

func TestUnitConversionRoundTrip(t *testing.T) {
	for _, nu := range []float64{1e8, 1e9, 1e11, 5e11} {
		for _, temp := range []float64{0.1, 2.725, 300} {
			s := KCMBToMJysr(temp, nu)
			if back := MJysrToKCMB(s, nu); rel(back, temp) > 1e-12 {
				t.Errorf("KCMB round trip at nu=%g: %g -> %g", nu, temp, back)
			}
			s = KRJToMJysr(temp, nu)
			if back := MJysrToKRJ(s, nu); rel(back, temp) > 1e-12 {
				t.Errorf("KRJ round trip at nu=%g: %g -> %g", nu, temp, back)
			}
		}
	}
}

// TestConventionsConverge checks the CMB and RJ conventions agree in the
// low-frequency (Rayleigh-Jeans) limit and diverge in the Wien regime.
func TestConventionsConverge(t *testing.T) {
	low := KCMBToMJysr(1, 1e9) / KRJToMJysr(1, 1e9)
	if math.Abs(low-1) > 0.01 {
		t.Errorf("at 1 GHz, KCMB/KRJ radiance ratio = %g, want ~1", low)
	}

	high := KCMBToMJysr(1, 5e11) / KRJToMJysr(1, 5e11)
	if high <= 1.5 {
		t.Errorf("at 500 GHz, KCMB/KRJ radiance ratio = %g, want well above 1", high)
	}
}

// TestConversionFrequencyDependent guards against replacing the
// per-frequency conversion with a fixed global factor.
func TestConversionFrequencyDependent(t *testing.T) {
	f1, err := FromMJysrFactor(UnitTCMB, 1e9)
	if err != nil {
		t.Fatalf("FromMJysrFactor: %v", err)
	}
	f2, err := FromMJysrFactor(UnitTCMB, 1e10)
	if err != nil {
		t.Fatalf("FromMJysrFactor: %v", err)
	}
	if rel(f1, f2) < 0.5 {
		t.Errorf("TCMB factors at 1 and 10 GHz too close: %g vs %g", f1, f2)
	}

	if f, err := FromMJysrFactor(UnitMJysr, 1e9); err != nil || f != 1 {
		t.Errorf("MJysr factor = %g, %v; want 1, nil", f, err)
	}
	if _, err := FromMJysrFactor(UnitK, 1e9); err == nil {
		t.Error("UnitK has no MJy/sr conversion, expected error")
	}
}

func rel(a, b float64) float64 {
	if b == 0 {
		return math.Abs(a)
	}
	return math.Abs(a-b) / math.Abs(b)
}
