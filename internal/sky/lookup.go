package sky

import (
	"fmt"
	"math"

	"github.com/radiosky/gosky/internal/healpix"
)

// Frame identifies the coordinate frame of a sky position.
type Frame string

const (
	FrameGalactic   Frame = "galactic"
	FrameEquatorial Frame = "equatorial"
)

// Coord is a sky position in degrees: longitude (galactic l, or RA) and
// latitude (galactic b, or Dec).
type Coord struct {
	Lon   float64
	Lat   float64
	Frame Frame
}

// galacticAngles returns the position as galactic (colatitude,
// longitude) in radians, rotating equatorial input into the galactic
// frame first.
func (c Coord) galacticAngles() (theta, phi float64, err error) {
	theta = (90 - c.Lat) * math.Pi / 180
	phi = c.Lon * math.Pi / 180

	switch c.Frame {
	case FrameGalactic:
		return theta, phi, nil
	case FrameEquatorial:
		theta, phi = healpix.EquatorialToGalactic().ApplyAng(theta, phi)
		return theta, phi, nil
	}
	return 0, 0, fmt.Errorf("sky: unknown coordinate frame %q", c.Frame)
}

// PixelAt resolves a coordinate to the pixel index at the model's
// resolution.
func (m *Model) PixelAt(c Coord) (int, error) {
	theta, phi, err := c.galacticAngles()
	if err != nil {
		return 0, err
	}
	return healpix.AngToPix(m.nside, theta, phi), nil
}

// TemperatureAt returns the last generated map's value at the given sky
// coordinate, one value per generated frequency. This is a pure pixel
// lookup at the model's resolution; no interpolation in angle.
func (m *Model) TemperatureAt(c Coord) ([]float64, error) {
	if m.last == nil {
		return nil, ErrNotGenerated
	}
	pix, err := m.PixelAt(c)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(m.last.Data))
	for i, row := range m.last.Data {
		out[i] = row[pix]
	}
	return out, nil
}
