package observer

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/radiosky/gosky/internal/healpix"
)

const testNside = 16

// fakeSky is a deterministic SkySource: pixel value encodes frequency
// and pixel index, so remapping is checkable.
type fakeSky struct {
	nside int
	calls int
}

func (f *fakeSky) GenerateScalar(freq float64) ([]float64, error) {
	f.calls++
	npix := healpix.Npix(f.nside)
	m := make([]float64, npix)
	for p := range m {
		m[p] = freq*1e6 + float64(p)
	}
	return m, nil
}

func (f *fakeSky) Nside() int { return f.nside }

func testSite() Site {
	return Site{LatDeg: 37.2, LonDeg: -118.2, ElevM: 1222}
}

func testTime() time.Time {
	return time.Date(2000, 1, 1, 23, 0, 0, 0, time.UTC)
}

func newTestObserver(t *testing.T) (*Observer, *fakeSky) {
	t.Helper()
	sky := &fakeSky{nside: testNside}
	o, err := New(sky, testSite(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o, sky
}

func TestJulianDateAndGMST(t *testing.T) {
	// J2000.0: 2000-01-01 12:00 UTC.
	epoch := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	if jd := julianDate(epoch); math.Abs(jd-2451545.0) > 1e-9 {
		t.Errorf("julianDate(J2000) = %f, want 2451545.0", jd)
	}

	// GMST at J2000.0 is 280.46062 degrees (Meeus).
	gotDeg := gmst(epoch) * 180 / math.Pi
	if math.Abs(gotDeg-280.46062) > 0.01 {
		t.Errorf("gmst(J2000) = %f deg, want 280.46062", gotDeg)
	}
}

func TestFirstCallNeedsFrequency(t *testing.T) {
	o, _ := newTestObserver(t)
	if _, err := o.Generate(WithTime(testTime())); !errors.Is(err, ErrNoFrequency) {
		t.Fatalf("err = %v, want ErrNoFrequency", err)
	}
}

func TestZenithFollowsSite(t *testing.T) {
	o, _ := newTestObserver(t)
	if _, err := o.Generate(WithFrequency(50), WithTime(testTime())); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	_, dec, err := o.ZenithRADec()
	if err != nil {
		t.Fatalf("ZenithRADec: %v", err)
	}
	wantDec := testSite().LatDeg * math.Pi / 180
	if math.Abs(dec-wantDec) > 1e-12 {
		t.Errorf("zenith dec = %g, want latitude %g", dec, wantDec)
	}
}

// TestHalfSkyVisible: with a zero horizon the visible fraction is half
// the sphere, within pixelization rounding.
func TestHalfSkyVisible(t *testing.T) {
	o, _ := newTestObserver(t)
	sky, err := o.Generate(WithFrequency(50), WithTime(testTime()), WithHorizon(HorizonRadians(0)))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	tol := 1.0 / (3.0 * float64(testNside)) // roughly one ring of pixels
	if f := sky.VisibleFraction(); math.Abs(f-0.5) > tol {
		t.Errorf("visible fraction = %f, want 0.5 +/- %f", f, tol)
	}

	// Same check on the galactic-frame mask.
	_, vis, err := o.ObservedGalactic()
	if err != nil {
		t.Fatalf("ObservedGalactic: %v", err)
	}
	n := 0
	for _, v := range vis {
		if v {
			n++
		}
	}
	if f := float64(n) / float64(len(vis)); math.Abs(f-0.5) > tol {
		t.Errorf("galactic visible fraction = %f, want 0.5 +/- %f", f, tol)
	}
}

// TestHorizonShrinksVisibility: raising the cutoff strictly shrinks the
// visible pixel count.
func TestHorizonShrinksVisibility(t *testing.T) {
	o, _ := newTestObserver(t)

	counts := make([]int, 0, 4)
	for _, deg := range []float64{0, 10, 30, 60} {
		sky, err := o.Generate(
			WithFrequency(50),
			WithTime(testTime()),
			WithHorizon(HorizonDegrees(deg)),
		)
		if err != nil {
			t.Fatalf("Generate(horizon %g): %v", deg, err)
		}
		n := 0
		for _, v := range sky.Visible {
			if v {
				n++
			}
		}
		counts = append(counts, n)
	}
	for i := 1; i < len(counts); i++ {
		if counts[i] >= counts[i-1] {
			t.Errorf("visible count did not shrink: %v", counts)
		}
	}
}

// TestHorizonConventions: the same angle via numeric radians and via
// string degrees must produce identical masks.
func TestHorizonConventions(t *testing.T) {
	const deg = 85.0

	a, _ := newTestObserver(t)
	skyA, err := a.Generate(
		WithFrequency(200),
		WithTime(testTime()),
		WithHorizon(HorizonRadians(deg*math.Pi/180)),
	)
	if err != nil {
		t.Fatalf("Generate radians: %v", err)
	}

	b, _ := newTestObserver(t)
	h, err := HorizonDegreesString("85.0")
	if err != nil {
		t.Fatalf("HorizonDegreesString: %v", err)
	}
	skyB, err := b.Generate(WithFrequency(200), WithTime(testTime()), WithHorizon(h))
	if err != nil {
		t.Fatalf("Generate string degrees: %v", err)
	}

	for p := range skyA.Visible {
		if skyA.Visible[p] != skyB.Visible[p] {
			t.Fatalf("masks differ at pixel %d", p)
		}
	}

	if _, err := HorizonDegreesString("eighty-five"); err == nil {
		t.Error("non-numeric string accepted")
	}
}

// TestCacheReuse: repeated calls at the same (time, horizon) must not
// recompute the rotation, while a frequency change is still reflected.
func TestCacheReuse(t *testing.T) {
	o, sky := newTestObserver(t)
	at := testTime()

	first, err := o.Generate(WithFrequency(50), WithTime(at))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if s := o.Stats(); s.Misses != 1 || s.Hits != 0 {
		t.Fatalf("after first call: %+v", s)
	}

	// Same time and horizon, new frequency: cache hit, new values.
	second, err := o.Generate(WithFrequency(150))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if s := o.Stats(); s.Misses != 1 || s.Hits != 1 {
		t.Fatalf("after second call: %+v", s)
	}
	if sky.calls != 2 {
		t.Fatalf("sky generated %d times, want 2", sky.calls)
	}
	for p := range second.Values {
		// Same remap (cache reuse) means the pixel-index part matches;
		// the frequency part must be the new one.
		srcFirst := math.Mod(first.Values[p], 1e6)
		srcSecond := math.Mod(second.Values[p], 1e6)
		if srcFirst != srcSecond {
			t.Fatalf("remap changed at pixel %d despite cache hit", p)
		}
		if second.Values[p]-srcSecond != 150*1e6 {
			t.Fatalf("pixel %d does not reflect the new frequency", p)
		}
	}

	// Same frequency again: no regeneration, another cache hit.
	if _, err := o.Generate(); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if sky.calls != 2 {
		t.Errorf("sky regenerated for an unchanged frequency")
	}

	// Time change invalidates.
	if _, err := o.Generate(WithTime(at.Add(4 * time.Hour))); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if s := o.Stats(); s.Misses != 2 {
		t.Errorf("time change did not recompute: %+v", s)
	}

	// Horizon change invalidates.
	if _, err := o.Generate(WithHorizon(HorizonDegrees(20))); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if s := o.Stats(); s.Misses != 3 {
		t.Errorf("horizon change did not recompute: %+v", s)
	}
}

// TestRotationChangesWithTime: four hours of Earth rotation must move
// the zenith and therefore the remap.
func TestRotationChangesWithTime(t *testing.T) {
	o, _ := newTestObserver(t)
	at := testTime()

	a, err := o.Generate(WithFrequency(50), WithTime(at))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	aVals := append([]float64(nil), a.Values...)

	b, err := o.Generate(WithTime(at.Add(4 * time.Hour)))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	same := 0
	for p := range b.Values {
		if b.Values[p] == aVals[p] {
			same++
		}
	}
	if same == len(b.Values) {
		t.Error("observed sky identical after 4 hours")
	}
}

// TestNegativeHorizon: validation fires before any recomputation or
// state change.
func TestNegativeHorizon(t *testing.T) {
	o, sky := newTestObserver(t)
	if _, err := o.Generate(WithFrequency(50), WithTime(testTime())); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	statsBefore := o.Stats()
	callsBefore := sky.calls

	_, err := o.Generate(WithFrequency(999), WithHorizon(HorizonRadians(-0.1)))
	if err == nil {
		t.Fatal("negative horizon accepted")
	}
	if o.Stats() != statsBefore {
		t.Error("cache stats changed after a rejected call")
	}
	if sky.calls != callsBefore {
		t.Error("sky regenerated despite the rejected horizon")
	}

	// Re-supplying the unchanged (valid) value still validates first,
	// but then succeeds with a cache hit.
	if _, err := o.Generate(WithHorizon(HorizonRadians(0))); err != nil {
		t.Fatalf("Generate after rejection: %v", err)
	}
}

func TestSiteValidation(t *testing.T) {
	sky := &fakeSky{nside: testNside}
	if _, err := New(sky, Site{LatDeg: 95}, nil); err == nil {
		t.Error("latitude 95 accepted")
	}
}
