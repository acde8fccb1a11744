package archive

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/radiosky/gosky/internal/healpix"
	"github.com/radiosky/gosky/internal/spectral"
)

// testArchive builds a tiny 3-component archive at nside 2.
func testArchive(t *testing.T) *Archive {
	t.Helper()

	nside := 2
	npix := healpix.Npix(nside)
	maps := make([][]float64, 3)
	for c := range maps {
		m := make([]float64, npix)
		for p := range m {
			m[p] = float64(c+1) * math.Sin(float64(p)*0.37)
		}
		maps[c] = m
	}

	tbl, err := spectral.NewTable(
		[]float64{10, 100, 1000},
		[]float64{3.0, 2.0, 1.0},
		[][]float64{{1, 0, 0}, {0.5, 0.5, 0}, {0.2, 0.3, 0.5}},
	)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	a, err := New(
		[]string{"default", "locked"},
		map[string]*BasisSet{
			"default": {Nside: nside, Maps: maps},
			"locked":  {Nside: nside, Maps: maps},
		},
		tbl,
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestCodecRoundTrip(t *testing.T) {
	a := testArchive(t)

	var buf bytes.Buffer
	if err := Write(&buf, a); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if names := got.MapNames(); len(names) != 2 || names[0] != "default" || names[1] != "locked" {
		t.Errorf("MapNames = %v", names)
	}

	set, err := got.BasisMaps("default")
	if err != nil {
		t.Fatalf("BasisMaps: %v", err)
	}
	orig, _ := a.BasisMaps("default")
	if set.Nside != orig.Nside {
		t.Errorf("nside = %d, want %d", set.Nside, orig.Nside)
	}
	for c := range orig.Maps {
		for p := range orig.Maps[c] {
			if set.Maps[c][p] != orig.Maps[c][p] {
				t.Fatalf("map[%d][%d] = %g, want %g", c, p, set.Maps[c][p], orig.Maps[c][p])
			}
		}
	}

	tbl, err := got.SpectralTable()
	if err != nil {
		t.Fatalf("SpectralTable: %v", err)
	}
	if tbl.MinFreq() != 10 || tbl.MaxFreq() != 1000 || tbl.NComponents() != 3 {
		t.Errorf("table bounds/ncomp = %g/%g/%d", tbl.MinFreq(), tbl.MaxFreq(), tbl.NComponents())
	}
}

func TestReadRejectsCorruption(t *testing.T) {
	a := testArchive(t)
	var buf bytes.Buffer
	if err := Write(&buf, a); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Flip a payload byte; CRC must catch it.
	data := buf.Bytes()
	data[len(data)/2] ^= 0xff
	if _, err := Read(bytes.NewReader(data)); err == nil {
		t.Error("expected checksum error for corrupted payload")
	}

	// Truncation.
	if _, err := Read(bytes.NewReader(buf.Bytes()[:20])); err == nil {
		t.Error("expected error for truncated archive")
	}

	// Wrong magic.
	bad := append([]byte("NOPE"), buf.Bytes()[4:]...)
	if _, err := Read(bytes.NewReader(bad)); err == nil {
		t.Error("expected error for bad magic")
	}
}

func TestNewValidation(t *testing.T) {
	nside := 2
	npix := healpix.Npix(nside)
	tbl, _ := spectral.NewTable(
		[]float64{1, 2},
		[]float64{1, 1},
		[][]float64{{1, 1}, {1, 1}},
	)

	// Component count disagrees with the spectral table.
	threeMaps := &BasisSet{Nside: nside, Maps: [][]float64{
		make([]float64, npix), make([]float64, npix), make([]float64, npix),
	}}
	if _, err := New([]string{"x"}, map[string]*BasisSet{"x": threeMaps}, tbl); err == nil {
		t.Error("expected component-count mismatch error")
	}

	// Wrong pixel count for the declared nside.
	short := &BasisSet{Nside: nside, Maps: [][]float64{make([]float64, npix-1), make([]float64, npix-1)}}
	if _, err := New([]string{"x"}, map[string]*BasisSet{"x": short}, tbl); err == nil {
		t.Error("expected pixel-count error")
	}
}

func TestArchiveMissingSet(t *testing.T) {
	a := testArchive(t)
	if _, err := a.BasisMaps("nope"); err == nil {
		t.Error("expected error for unknown set name")
	}
}

func TestCacheWriteLoadPrune(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir, 2)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 4; i++ {
		data := []byte{byte(i)}
		if err := c.Write(data, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}

	data, ts, err := c.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if data[0] != 3 {
		t.Errorf("latest data = %v, want [3]", data)
	}
	if !ts.Equal(base.Add(3 * time.Minute).Truncate(time.Second)) {
		t.Errorf("latest ts = %v", ts)
	}

	files, err := c.listFiles()
	if err != nil {
		t.Fatalf("listFiles: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("after prune: %d files, want 2", len(files))
	}
}

func TestCacheLoadLatestEmpty(t *testing.T) {
	c := NewCache(filepath.Join(t.TempDir(), "missing"), 2)
	if _, _, err := c.LoadLatest(); err == nil {
		t.Error("expected error for empty cache")
	}
}

func TestStore(t *testing.T) {
	s := NewStore()
	if s.Ready() {
		t.Error("empty store reports ready")
	}
	if s.Get() != nil {
		t.Error("empty store returned an archive")
	}
	if s.AgeSeconds() != -1 {
		t.Error("empty store age should be -1")
	}

	a := testArchive(t)
	s.Set(a)
	if !s.Ready() || s.Get() != a {
		t.Error("store did not return the loaded archive")
	}
	if s.AgeSeconds() < 0 {
		t.Error("loaded store age should be >= 0")
	}
}
