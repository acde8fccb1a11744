// Package observer projects a galactic-frame sky model onto the local
// view of a ground-based observer: the map is resampled into a
// zenith-centered frame and masked below a configurable horizon
// elevation. The expensive rotation and mask depend only on (time,
// horizon), not on frequency or sky values, so they are cached and
// reused across frequency changes at a fixed time.
//
// An Observer instance belongs to one logical caller; a concurrent
// time/horizon update racing a read would observe a torn (remap, mask)
// pair, so share across goroutines only with external locking.
package observer

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/radiosky/gosky/internal/healpix"
	"github.com/radiosky/gosky/internal/metrics"
)

// SkySource is the capability the projection engine needs from a sky
// model: scalar-frequency synthesis on a known HEALPix grid. Any model
// family satisfies it.
type SkySource interface {
	GenerateScalar(freq float64) ([]float64, error)
	Nside() int
}

// Site is an observer's geodetic location.
type Site struct {
	LatDeg float64 // geodetic latitude, degrees north
	LonDeg float64 // longitude, degrees east
	ElevM  float64 // elevation above the ellipsoid, meters
}

// ErrNoFrequency marks a first Generate call without a frequency.
var ErrNoFrequency = errors.New("observer: no frequency set; pass WithFrequency on the first call")

// Observer projects a SkySource onto a site's local sky.
type Observer struct {
	site   Site
	sky    SkySource
	logger *slog.Logger

	nside int
	npix  int

	// Fixed at construction: the galactic pixel grid and its
	// equatorial coordinates (the frame rotation is time independent).
	theta, phi []float64 // galactic colatitude/longitude per pixel
	ra, dec    []float64 // equatorial coordinates per galactic pixel

	haveFreq bool
	freq     float64
	skyMap   []float64 // last generated galactic map

	clock   time.Time
	horizon Horizon
	cache   *rotation

	stats CacheStats
}

// rotation is the cached product of one (time, horizon) pair. The remap
// and mask come from the same zenith solution and are always replaced
// together.
type rotation struct {
	at         time.Time
	horizonRad float64

	zenRA  float64
	zenDec float64

	remap   []int  // output pixel -> source galactic pixel
	visible []bool // per galactic pixel: above the horizon
}

// CacheStats counts reuse of the cached rotation across Generate calls.
type CacheStats struct {
	Hits   int
	Misses int
}

// New creates an Observer for the given site over the given sky model.
// The galactic pixel grid and its equatorial coordinates are computed
// once here.
func New(sky SkySource, site Site, logger *slog.Logger) (*Observer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if site.LatDeg < -90 || site.LatDeg > 90 {
		return nil, fmt.Errorf("observer: latitude %g out of range [-90, 90]", site.LatDeg)
	}

	nside := sky.Nside()
	if nside < 1 {
		return nil, fmt.Errorf("observer: sky model reports invalid nside %d", nside)
	}
	npix := healpix.Npix(nside)

	o := &Observer{
		site:   site,
		sky:    sky,
		logger: logger,
		nside:  nside,
		npix:   npix,
		theta:  make([]float64, npix),
		phi:    make([]float64, npix),
		ra:     make([]float64, npix),
		dec:    make([]float64, npix),
	}

	g2c := healpix.GalacticToEquatorial()
	for p := 0; p < npix; p++ {
		th, ph := healpix.PixToAng(nside, p)
		o.theta[p], o.phi[p] = th, ph
		tEq, pEq := g2c.ApplyAng(th, ph)
		o.ra[p] = pEq
		o.dec[p] = math.Pi/2 - tEq
	}

	return o, nil
}

// Option adjusts one Generate call. Omitted options reuse the previous
// call's value.
type Option func(*request)

type request struct {
	freq    *float64
	at      *time.Time
	horizon *Horizon
}

// WithFrequency sets the frequency, in the sky model's configured unit.
func WithFrequency(f float64) Option {
	return func(r *request) { r.freq = &f }
}

// WithTime sets the observation time. Defaults to time.Now on the first
// call if never set.
func WithTime(t time.Time) Option {
	return func(r *request) { r.at = &t }
}

// WithHorizon sets the horizon elevation cutoff.
func WithHorizon(h Horizon) Option {
	return func(r *request) { r.horizon = &h }
}

// ObservedSky is the local sky: a full-sky zenith-centered array with
// pixels below the horizon flagged, not removed. Consumers must honor
// Visible rather than assume full coverage.
type ObservedSky struct {
	Values  []float64 // per output pixel, source value via nearest-pixel remap
	Visible []bool    // per output pixel
	Freq    float64
	At      time.Time
	Horizon Horizon
	Nside   int
}

// VisibleFraction returns the fraction of pixels above the horizon.
func (s *ObservedSky) VisibleFraction() float64 {
	n := 0
	for _, v := range s.Visible {
		if v {
			n++
		}
	}
	return float64(n) / float64(len(s.Visible))
}

// Generate produces the observed sky. All options may be omitted after
// the first call; the frequency is required once. The rotation and mask
// are recomputed only when time or horizon differ from the cached pair;
// a frequency change alone reuses them.
func (o *Observer) Generate(opts ...Option) (*ObservedSky, error) {
	var req request
	for _, opt := range opts {
		opt(&req)
	}

	// Horizon validation comes before any recomputation or cache
	// comparison, whether or not the value changed.
	horizon := o.horizon
	if req.horizon != nil {
		horizon = *req.horizon
	}
	if err := horizon.validate(); err != nil {
		return nil, err
	}

	at := o.clock
	if req.at != nil {
		at = req.at.UTC()
	} else if at.IsZero() {
		at = time.Now().UTC()
	}

	if req.freq == nil && !o.haveFreq {
		return nil, ErrNoFrequency
	}
	if req.freq != nil && (!o.haveFreq || *req.freq != o.freq) {
		m, err := o.sky.GenerateScalar(*req.freq)
		if err != nil {
			return nil, err
		}
		if len(m) != o.npix {
			return nil, fmt.Errorf("observer: sky model returned %d pixels, want %d", len(m), o.npix)
		}
		o.skyMap = m
		o.freq = *req.freq
		o.haveFreq = true
	}

	if o.cache != nil && o.cache.at.Equal(at) && o.cache.horizonRad == horizon.Radians() {
		o.stats.Hits++
		metrics.IncRotationCacheHit()
	} else {
		o.cache = o.computeRotation(at, horizon)
		o.stats.Misses++
		metrics.IncRotationCacheMiss()
	}
	o.clock = at
	o.horizon = horizon

	c := o.cache
	out := &ObservedSky{
		Values:  make([]float64, o.npix),
		Visible: make([]bool, o.npix),
		Freq:    o.freq,
		At:      at,
		Horizon: horizon,
		Nside:   o.nside,
	}
	for p := 0; p < o.npix; p++ {
		src := c.remap[p]
		out.Values[p] = o.skyMap[src]
		out.Visible[p] = c.visible[src]
	}
	return out, nil
}

// computeRotation solves the zenith for (time, horizon) and builds the
// remap and mask together from that one solution.
func (o *Observer) computeRotation(at time.Time, horizon Horizon) *rotation {
	// Zenith in equatorial coordinates: RA = local sidereal time,
	// Dec = geodetic latitude.
	lonRad := o.site.LonDeg * math.Pi / 180
	latRad := o.site.LatDeg * math.Pi / 180
	zenRA := localSiderealTime(at, lonRad)
	zenDec := latRad

	// Output frame: zenith carried to the pole. For each output pixel,
	// walk back through equatorial into galactic and take the nearest
	// source pixel. Nearest-pixel resampling is the accepted precision
	// level; no angular interpolation.
	toZen := healpix.PointingToPole(math.Pi/2-zenDec, zenRA)
	fromZen := toZen.Transpose()
	c2g := healpix.EquatorialToGalactic()
	back := c2g.Mul(fromZen)

	remap := make([]int, o.npix)
	for p := 0; p < o.npix; p++ {
		x, y, z := healpix.PixToVec(o.nside, p)
		gx, gy, gz := back.Apply(x, y, z)
		remap[p] = healpix.VecToPix(o.nside, gx, gy, gz)
	}

	// Visibility per galactic pixel: great-circle distance from the
	// zenith, compared against 90 degrees minus the cutoff. The
	// haversine form avoids the pole and longitude-wrap artifacts a
	// coordinate-threshold test suffers from (an older rendition of
	// this model masked on raw colatitude bounds; that heuristic is
	// deliberately not reproduced).
	limit := math.Pi/2 - horizon.Radians()
	zenTheta := math.Pi/2 - zenDec
	visible := make([]bool, o.npix)
	for p := 0; p < o.npix; p++ {
		sep := healpix.Separation(math.Pi/2-o.dec[p], o.ra[p], zenTheta, zenRA)
		visible[p] = sep <= limit
	}

	o.logger.Debug("rotation recomputed",
		"time", at.Format(time.RFC3339),
		"horizon_deg", horizon.Degrees(),
		"zenith_ra_deg", zenRA*180/math.Pi,
		"zenith_dec_deg", zenDec*180/math.Pi,
	)

	return &rotation{
		at:         at,
		horizonRad: horizon.Radians(),
		zenRA:      zenRA,
		zenDec:     zenDec,
		remap:      remap,
		visible:    visible,
	}
}

// ObservedGalactic returns the last sky in the galactic frame with the
// cached visibility applied, without re-deriving any coordinates. A
// comparison/debugging view of the same mask.
func (o *Observer) ObservedGalactic() (values []float64, visible []bool, err error) {
	if o.cache == nil || o.skyMap == nil {
		return nil, nil, fmt.Errorf("observer: nothing generated yet")
	}
	return o.skyMap, o.cache.visible, nil
}

// Stats returns rotation-cache reuse counters.
func (o *Observer) Stats() CacheStats {
	return o.stats
}

// ZenithRADec returns the cached zenith equatorial coordinates in
// radians.
func (o *Observer) ZenithRADec() (ra, dec float64, err error) {
	if o.cache == nil {
		return 0, 0, fmt.Errorf("observer: nothing generated yet")
	}
	return o.cache.zenRA, o.cache.zenDec, nil
}
