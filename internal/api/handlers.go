package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/radiosky/gosky/internal/metrics"
	"github.com/radiosky/gosky/internal/observer"
	"github.com/radiosky/gosky/internal/sky"
	"github.com/radiosky/gosky/internal/spectral"
	"github.com/radiosky/gosky/internal/synthesis"
)

// modelInfo is the wire form of one registered model family.
type modelInfo struct {
	Name           string   `json:"name"`
	FreqUnit       string   `json:"freq_unit"`
	BandMin        float64  `json:"band_min"`
	BandMax        float64  `json:"band_max"`
	OutputUnits    []string `json:"output_units"`
	Basemaps       []string `json:"basemaps,omitempty"`
	DefaultBasemap string   `json:"default_basemap,omitempty"`
	PowerLaw       bool     `json:"power_law,omitempty"`
	Ready          bool     `json:"ready"`
	ArchiveAgeSecs float64  `json:"archive_age_seconds,omitempty"`
}

func infoFor(e Entry) modelInfo {
	info := modelInfo{
		Name:           e.Def.Name,
		FreqUnit:       string(e.Def.NativeUnit),
		BandMin:        e.Def.FloorNative,
		BandMax:        e.Def.CeilingNative,
		DefaultBasemap: e.Def.DefaultBasemap,
		PowerLaw:       e.Def.PowerLaw,
		Ready:          e.Store.Ready(),
	}
	for _, u := range e.Def.OutputUnits {
		info.OutputUnits = append(info.OutputUnits, string(u))
	}
	for name := range e.Def.Basemaps {
		info.Basemaps = append(info.Basemaps, name)
	}
	sort.Strings(info.Basemaps)
	if info.Ready {
		info.ArchiveAgeSecs = e.Store.AgeSeconds()
	}
	return info
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	out := make([]modelInfo, 0, len(s.registry.Names()))
	for _, name := range s.registry.Names() {
		e, _ := s.registry.Lookup(name)
		out = append(out, infoFor(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	e, ok := s.registry.Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown model %q", name))
		return
	}
	writeJSON(w, http.StatusOK, infoFor(e))
}

// buildModel resolves the model query parameters shared by the sky and
// observed endpoints into a ready-to-generate Model. A nil return means
// the response has already been written.
func (s *Server) buildModel(w http.ResponseWriter, r *http.Request) *sky.Model {
	q := r.URL.Query()

	name := q.Get("model")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing required parameter: model")
		return nil
	}
	e, ok := s.registry.Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown model %q", name))
		return nil
	}
	arch := e.Store.Get()
	if arch == nil {
		writeError(w, http.StatusServiceUnavailable, "sky archive not loaded yet")
		return nil
	}

	var opts sky.Options
	if v := q.Get("unit"); v != "" {
		u, err := sky.ParseFreqUnit(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return nil
		}
		opts.FreqUnit = u
	}
	if v := q.Get("interp"); v != "" {
		fam, err := spectral.ParseFamily(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return nil
		}
		opts.Interpolation = fam
	}
	// Output unit and basemap are validated by the model constructor.
	opts.DataUnit = synthesis.DataUnit(q.Get("output"))
	opts.Basemap = q.Get("basemap")
	if v := q.Get("cmb"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("cmb: %v", err))
			return nil
		}
		opts.IncludeCMB = b
	}

	m, err := sky.New(e.Def, arch, opts, s.logger)
	if err != nil {
		var cfgErr *sky.ConfigError
		if errors.As(err, &cfgErr) {
			writeError(w, http.StatusBadRequest, err.Error())
		} else {
			s.logger.Error("model construction failed", "model", name, "error", err)
			writeError(w, http.StatusInternalServerError, "model construction failed")
		}
		return nil
	}
	return m
}

func parseFreq(w http.ResponseWriter, r *http.Request) (float64, bool) {
	v := r.URL.Query().Get("freq")
	if v == "" {
		writeError(w, http.StatusBadRequest, "missing required parameter: freq")
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("freq: %v", err))
		return 0, false
	}
	return f, true
}

type mapStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

func statsOf(values []float64, keep []bool) mapStats {
	st := mapStats{}
	n := 0
	for i, v := range values {
		if keep != nil && !keep[i] {
			continue
		}
		if n == 0 || v < st.Min {
			st.Min = v
		}
		if n == 0 || v > st.Max {
			st.Max = v
		}
		st.Mean += v
		n++
	}
	if n > 0 {
		st.Mean /= float64(n)
	}
	return st
}

type skyResponse struct {
	Model    string    `json:"model"`
	Freq     float64   `json:"freq"`
	FreqUnit string    `json:"freq_unit"`
	Unit     string    `json:"unit"`
	Nside    int       `json:"nside"`
	Npix     int       `json:"npix"`
	Stats    mapStats  `json:"stats"`
	Pixels   []int     `json:"pixels,omitempty"`
	Values   []float64 `json:"values,omitempty"`
}

// handleSky synthesizes one map and returns its summary statistics,
// plus requested pixel values. Full maps are large; clients name the
// pixels they want instead of streaming megabytes by default.
func (s *Server) handleSky(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	freq, ok := parseFreq(w, r)
	if !ok {
		return
	}
	m := s.buildModel(w, r)
	if m == nil {
		return
	}

	values, err := m.GenerateScalar(freq)
	if err != nil {
		if errors.Is(err, sky.ErrOutOfRange) {
			writeError(w, http.StatusBadRequest, err.Error())
		} else {
			s.logger.Error("generate failed", "model", m.Name(), "freq", freq, "error", err)
			writeError(w, http.StatusInternalServerError, "generate failed")
		}
		return
	}
	metrics.ObserveGenerate(m.Name(), time.Since(start))

	resp := skyResponse{
		Model:    m.Name(),
		Freq:     freq,
		FreqUnit: string(m.FreqUnit()),
		Unit:     string(m.DataUnit()),
		Nside:    m.Nside(),
		Npix:     len(values),
		Stats:    statsOf(values, nil),
	}
	if px := r.URL.Query().Get("pixels"); px != "" {
		indices, err := parsePixels(px, len(values))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		resp.Pixels = indices
		resp.Values = make([]float64, len(indices))
		for i, p := range indices {
			resp.Values[i] = values[p]
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

const maxPixelList = 16384

func parsePixels(s string, npix int) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) > maxPixelList {
		return nil, fmt.Errorf("pixels: at most %d indices per request", maxPixelList)
	}
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		p, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("pixels: %v", err)
		}
		if p < 0 || p >= npix {
			return nil, fmt.Errorf("pixels: index %d out of range [0, %d)", p, npix)
		}
		out = append(out, p)
	}
	return out, nil
}

type observedResponse struct {
	Model           string   `json:"model"`
	Freq            float64  `json:"freq"`
	FreqUnit        string   `json:"freq_unit"`
	Unit            string   `json:"unit"`
	Time            string   `json:"time"`
	LatDeg          float64  `json:"lat_deg"`
	LonDeg          float64  `json:"lon_deg"`
	HorizonDeg      float64  `json:"horizon_deg"`
	ZenithRADeg     float64  `json:"zenith_ra_deg"`
	ZenithDecDeg    float64  `json:"zenith_dec_deg"`
	Nside           int      `json:"nside"`
	VisibleFraction float64  `json:"visible_fraction"`
	VisibleStats    mapStats `json:"visible_stats"`
}

// handleObserved projects a model onto a ground site's local sky and
// summarizes the visible hemisphere.
func (s *Server) handleObserved(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	freq, ok := parseFreq(w, r)
	if !ok {
		return
	}

	site := observer.Site{}
	for _, p := range []struct {
		name     string
		required bool
		dst      *float64
	}{
		{"lat", true, &site.LatDeg},
		{"lon", true, &site.LonDeg},
		{"alt", false, &site.ElevM},
	} {
		v := q.Get(p.name)
		if v == "" {
			if p.required {
				writeError(w, http.StatusBadRequest, "missing required parameter: "+p.name)
				return
			}
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", p.name, err))
			return
		}
		*p.dst = f
	}

	at := time.Now().UTC()
	if v := q.Get("time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("time: %v", err))
			return
		}
		at = t
	}

	horizon := observer.HorizonRadians(0)
	if v := q.Get("horizon_deg"); v != "" {
		h, err := observer.HorizonDegreesString(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		horizon = h
	}

	m := s.buildModel(w, r)
	if m == nil {
		return
	}

	obs, err := observer.New(m, site, s.logger)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	skyObs, err := obs.Generate(
		observer.WithFrequency(freq),
		observer.WithTime(at),
		observer.WithHorizon(horizon),
	)
	if err != nil {
		if errors.Is(err, sky.ErrOutOfRange) || errors.Is(err, observer.ErrInvalidHorizon) {
			writeError(w, http.StatusBadRequest, err.Error())
		} else {
			s.logger.Error("observe failed", "model", m.Name(), "freq", freq, "error", err)
			writeError(w, http.StatusInternalServerError, "observe failed")
		}
		return
	}
	metrics.ObserveGenerate(m.Name(), time.Since(start))

	ra, dec, err := obs.ZenithRADec()
	if err != nil {
		s.logger.Error("zenith lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "observe failed")
		return
	}

	writeJSON(w, http.StatusOK, observedResponse{
		Model:           m.Name(),
		Freq:            freq,
		FreqUnit:        string(m.FreqUnit()),
		Unit:            string(m.DataUnit()),
		Time:            at.UTC().Format(time.RFC3339),
		LatDeg:          site.LatDeg,
		LonDeg:          site.LonDeg,
		HorizonDeg:      horizon.Degrees(),
		ZenithRADeg:     ra * 180 / math.Pi,
		ZenithDecDeg:    dec * 180 / math.Pi,
		Nside:           skyObs.Nside,
		VisibleFraction: skyObs.VisibleFraction(),
		VisibleStats:    statsOf(skyObs.Values, skyObs.Visible),
	})
}
