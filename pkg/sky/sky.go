// Package sky provides spherical geometry for catalog cross-matching:
// coordinate normalization, angular separations, and unit vector embedding.
// All coordinates are ICRS degrees, separations are arcsec.
package sky

import "math"

const (
	// ArcsecPerDegree converts degrees to arcsec.
	ArcsecPerDegree = 3600.0

	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi
)

// NormalizeRA wraps a right ascension into [0, 360).
func NormalizeRA(ra float64) float64 {
	ra = math.Mod(ra, 360.0)
	if ra < 0 {
		ra += 360.0
	}
	return ra
}

// ValidDec reports whether dec is a finite declination in [-90, 90].
func ValidDec(dec float64) bool {
	return !math.IsNaN(dec) && !math.IsInf(dec, 0) && dec >= -90.0 && dec <= 90.0
}

// ValidRA reports whether ra is finite. Any finite RA normalizes.
func ValidRA(ra float64) bool {
	return !math.IsNaN(ra) && !math.IsInf(ra, 0)
}

// Vec3 is a 3D cartesian point. Positions embed on the unit sphere.
type Vec3 struct {
	X float64
	Y float64
	Z float64
}

// Vector embeds RA/Dec (degrees) as a unit vector.
func Vector(ra, dec float64) Vec3 {
	raRad := ra * degToRad
	decRad := dec * degToRad
	cosDec := math.Cos(decRad)
	return Vec3{
		X: cosDec * math.Cos(raRad),
		Y: cosDec * math.Sin(raRad),
		Z: math.Sin(decRad),
	}
}

// Coords converts a vector back to (RA, Dec) in degrees. The vector is
// normalized first, so sums of unit vectors convert directly.
func (v Vec3) Coords() (ra, dec float64) {
	n := v.Norm()
	if n == 0 {
		return 0, 0
	}
	dec = math.Asin(v.Z/n) * radToDeg
	ra = NormalizeRA(math.Atan2(v.Y, v.X) * radToDeg)
	return ra, dec
}

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{X: v.X + w.X, Y: v.Y + w.Y, Z: v.Z + w.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Norm returns the euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Separation returns the angular separation between two positions in
// arcsec, using the Vincenty formula. Stable at small separations and
// at the poles, where the haversine and arccos forms lose precision.
func Separation(ra1, dec1, ra2, dec2 float64) float64 {
	phi1 := dec1 * degToRad
	phi2 := dec2 * degToRad
	dLambda := (ra2 - ra1) * degToRad

	sinPhi1, cosPhi1 := math.Sincos(phi1)
	sinPhi2, cosPhi2 := math.Sincos(phi2)
	sinDL, cosDL := math.Sincos(dLambda)

	num1 := cosPhi2 * sinDL
	num2 := cosPhi1*sinPhi2 - sinPhi1*cosPhi2*cosDL
	den := sinPhi1*sinPhi2 + cosPhi1*cosPhi2*cosDL

	sep := math.Atan2(math.Hypot(num1, num2), den)
	return sep * radToDeg * ArcsecPerDegree
}

// ChordForRadius converts an angular radius in arcsec to the equivalent
// chord length between unit vectors: two positions are within the
// radius iff their chord distance is within this bound.
func ChordForRadius(radiusArcsec float64) float64 {
	half := radiusArcsec / ArcsecPerDegree * degToRad / 2.0
	return 2.0 * math.Sin(half)
}

// Box is an RA/Dec rectangle used as a coarse prefilter before exact
// separation checks. RA bounds do not wrap; BoxesAround splits at the seam.
type Box struct {
	MinRA  float64
	MaxRA  float64
	MinDec float64
	MaxDec float64
}

// BoxesAround returns one or two boxes covering every position within
// radiusArcsec of (ra, dec). Two boxes when the RA span crosses the
// 0/360 seam; full RA range when the dec span reaches a pole, where RA
// degenerates.
func BoxesAround(ra, dec, radiusArcsec float64) []Box {
	rDeg := radiusArcsec / ArcsecPerDegree

	minDec := dec - rDeg
	maxDec := dec + rDeg
	if minDec <= -90.0 || maxDec >= 90.0 {
		return []Box{{MinRA: 0, MaxRA: 360, MinDec: math.Max(minDec, -90), MaxDec: math.Min(maxDec, 90)}}
	}

	// RA span widens with declination.
	cosDec := math.Cos(dec * degToRad)
	raSpan := rDeg / cosDec

	minRA := ra - raSpan
	maxRA := ra + raSpan
	if maxRA-minRA >= 360.0 {
		return []Box{{MinRA: 0, MaxRA: 360, MinDec: minDec, MaxDec: maxDec}}
	}

	if minRA < 0 {
		return []Box{
			{MinRA: 0, MaxRA: maxRA, MinDec: minDec, MaxDec: maxDec},
			{MinRA: NormalizeRA(minRA), MaxRA: 360, MinDec: minDec, MaxDec: maxDec},
		}
	}
	if maxRA > 360 {
		return []Box{
			{MinRA: minRA, MaxRA: 360, MinDec: minDec, MaxDec: maxDec},
			{MinRA: 0, MaxRA: NormalizeRA(maxRA), MinDec: minDec, MaxDec: maxDec},
		}
	}
	return []Box{{MinRA: minRA, MaxRA: maxRA, MinDec: minDec, MaxDec: maxDec}}
}
