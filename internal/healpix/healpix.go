// Package healpix implements the RING-scheme HEALPix pixelization of the
// sphere: pixel/angle conversions, unit-vector helpers, and great-circle
// separation. Only the pieces the sky synthesis and observer projection
// need are provided; the NESTED scheme is not supported.
//
// Conventions follow Gorski et al. (2005), ApJ 622, 759: theta is
// colatitude in [0, pi] measured from the north pole, phi is longitude
// in [0, 2*pi).
package healpix

import (
	"fmt"
	"math"
)

// Npix returns the total pixel count for a given nside (12 * nside^2).
func Npix(nside int) int {
	return 12 * nside * nside
}

// NpixToNside returns the nside corresponding to a pixel count, or an
// error if npix is not a valid HEALPix map size.
func NpixToNside(npix int) (int, error) {
	nside := int(math.Round(math.Sqrt(float64(npix) / 12.0)))
	if nside < 1 || 12*nside*nside != npix {
		return 0, fmt.Errorf("healpix: %d is not a valid map size", npix)
	}
	return nside, nil
}

// ncap returns the number of pixels in the north polar cap.
func ncap(nside int) int {
	return 2 * nside * (nside - 1)
}

// PixToAng converts a RING-scheme pixel index to (theta, phi).
// The returned angles are the pixel center.
func PixToAng(nside, pix int) (theta, phi float64) {
	npix := Npix(nside)
	nc := ncap(nside)
	fn := float64(nside)

	switch {
	case pix < nc: // north polar cap
		iring := (1 + isqrt(1+2*pix)) / 2
		iphi := pix + 1 - 2*iring*(iring-1)
		theta = math.Acos(1.0 - float64(iring*iring)/(3.0*fn*fn))
		phi = (float64(iphi) - 0.5) * math.Pi / (2.0 * float64(iring))

	case pix < npix-nc: // equatorial belt
		ip := pix - nc
		iring := ip/(4*nside) + nside
		iphi := ip%(4*nside) + 1
		fodd := 0.5
		if (iring+nside)&1 == 1 {
			fodd = 1.0
		}
		theta = math.Acos(float64(2*nside-iring) * 2.0 / (3.0 * fn))
		phi = (float64(iphi) - fodd) * math.Pi / (2.0 * fn)

	default: // south polar cap
		ip := npix - pix
		iring := (1 + isqrt(2*ip-1)) / 2
		iphi := 4*iring + 1 - (ip - 2*iring*(iring-1))
		theta = math.Acos(-1.0 + float64(iring*iring)/(3.0*fn*fn))
		phi = (float64(iphi) - 0.5) * math.Pi / (2.0 * float64(iring))
	}
	return theta, phi
}

// AngToPix converts (theta, phi) to the RING-scheme pixel index whose
// center is nearest in the HEALPix sense.
func AngToPix(nside int, theta, phi float64) int {
	z := math.Cos(theta)
	za := math.Abs(z)
	tt := math.Mod(phi, 2*math.Pi)
	if tt < 0 {
		tt += 2 * math.Pi
	}
	tt /= math.Pi / 2 // in [0,4)
	fn := float64(nside)

	if za <= 2.0/3.0 { // equatorial belt
		temp1 := fn * (0.5 + tt)
		temp2 := fn * z * 0.75
		jp := int(temp1 - temp2) // ascending edge line index
		jm := int(temp1 + temp2) // descending edge line index

		ir := nside + 1 + jp - jm // ring counted from z = 2/3
		kshift := 1 - ir&1        // 1 when ir even

		ip := (jp + jm - nside + kshift + 1) / 2
		ip = ip % (4 * nside)

		return ncap(nside) + (ir-1)*4*nside + ip
	}

	// polar caps
	tp := tt - math.Floor(tt)
	tmp := fn * math.Sqrt(3.0*(1.0-za))
	jp := int(tp * tmp)
	jm := int((1.0 - tp) * tmp)

	ir := jp + jm + 1 // ring counted from the nearer pole
	ip := int(tt * float64(ir))
	ip = ip % (4 * ir)

	if z > 0 {
		return 2*ir*(ir-1) + ip
	}
	return Npix(nside) - 2*ir*(ir+1) + ip
}

// PixToVec returns the unit vector of a pixel center.
func PixToVec(nside, pix int) (x, y, z float64) {
	theta, phi := PixToAng(nside, pix)
	return AngToVec(theta, phi)
}

// VecToPix returns the pixel containing the direction (x, y, z).
// The vector need not be normalized.
func VecToPix(nside int, x, y, z float64) int {
	theta, phi := VecToAng(x, y, z)
	return AngToPix(nside, theta, phi)
}

// AngToVec converts (theta, phi) to a unit vector.
func AngToVec(theta, phi float64) (x, y, z float64) {
	st := math.Sin(theta)
	return st * math.Cos(phi), st * math.Sin(phi), math.Cos(theta)
}

// VecToAng converts a direction vector to (theta, phi).
func VecToAng(x, y, z float64) (theta, phi float64) {
	r := math.Sqrt(x*x + y*y + z*z)
	theta = math.Acos(z / r)
	phi = math.Atan2(y, x)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	return theta, phi
}

// Separation returns the great-circle angular distance in radians
// between two directions given as (colatitude, longitude) pairs.
//
// Uses the haversine form, which is well conditioned near the poles and
// for antipodal points, unlike the plain spherical law of cosines.
func Separation(theta1, phi1, theta2, phi2 float64) float64 {
	// Haversine works on latitudes; colatitude -> latitude.
	lat1 := math.Pi/2 - theta1
	lat2 := math.Pi/2 - theta2

	sdLat := math.Sin((lat2 - lat1) / 2)
	sdLon := math.Sin((phi2 - phi1) / 2)

	a := sdLat*sdLat + math.Cos(lat1)*math.Cos(lat2)*sdLon*sdLon
	if a > 1 {
		a = 1
	}
	return 2 * math.Asin(math.Sqrt(a))
}

// isqrt returns the integer square root of n (largest k with k*k <= n).
// float64 sqrt is exact well past the pixel counts used here, but guard
// the boundary anyway.
func isqrt(n int) int {
	k := int(math.Sqrt(float64(n)))
	for k*k > n {
		k--
	}
	for (k+1)*(k+1) <= n {
		k++
	}
	return k
}
