package healpix

import "math"

// Matrix is a 3x3 rotation matrix, row-major.
type Matrix [3][3]float64

// galToEq rotates galactic unit vectors into equatorial (J2000) frame.
// Transpose of the classic equatorial->galactic matrix (Murray 1989,
// A&A 218, 325; the values used by the Hipparcos catalogue).
var galToEq = Matrix{
	{-0.0548755604, +0.4941094279, -0.8676661490},
	{-0.8734370902, -0.4448296300, -0.1980763734},
	{-0.4838350155, +0.7469822445, +0.4559837762},
}

// GalacticToEquatorial returns the rotation taking galactic-frame
// vectors to equatorial (J2000) vectors.
func GalacticToEquatorial() Matrix {
	return galToEq
}

// EquatorialToGalactic returns the inverse frame rotation.
func EquatorialToGalactic() Matrix {
	return galToEq.Transpose()
}

// Transpose returns the matrix transpose. For rotations this is the
// inverse.
func (m Matrix) Transpose() Matrix {
	var t Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[i][j] = m[j][i]
		}
	}
	return t
}

// Mul returns m * n (apply n first, then m).
func (m Matrix) Mul(n Matrix) Matrix {
	var out Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			s := 0.0
			for k := 0; k < 3; k++ {
				s += m[i][k] * n[k][j]
			}
			out[i][j] = s
		}
	}
	return out
}

// Apply rotates the vector (x, y, z).
func (m Matrix) Apply(x, y, z float64) (float64, float64, float64) {
	return m[0][0]*x + m[0][1]*y + m[0][2]*z,
		m[1][0]*x + m[1][1]*y + m[1][2]*z,
		m[2][0]*x + m[2][1]*y + m[2][2]*z
}

// ApplyAng rotates a (theta, phi) direction and returns the rotated
// (theta, phi).
func (m Matrix) ApplyAng(theta, phi float64) (float64, float64) {
	x, y, z := AngToVec(theta, phi)
	return VecToAng(m.Apply(x, y, z))
}

// RotZ returns the rotation by angle a about the z axis.
func RotZ(a float64) Matrix {
	c, s := math.Cos(a), math.Sin(a)
	return Matrix{
		{c, -s, 0},
		{s, c, 0},
		{0, 0, 1},
	}
}

// RotY returns the rotation by angle a about the y axis.
func RotY(a float64) Matrix {
	c, s := math.Cos(a), math.Sin(a)
	return Matrix{
		{c, 0, s},
		{0, 1, 0},
		{-s, 0, c},
	}
}

// PointingToPole returns the rotation that carries the direction at
// colatitude theta0, longitude phi0 onto the +z axis. Used to build a
// zenith-centered frame: rotate longitude to zero, then tilt the
// direction up to the pole.
func PointingToPole(theta0, phi0 float64) Matrix {
	return RotY(-theta0).Mul(RotZ(-phi0))
}
