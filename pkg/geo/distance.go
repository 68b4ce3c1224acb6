package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
)

const (
	earthRadiusKM = 6371.0
	// mean earth radius used for great-circle lengths, in meters
	earthRadiusM = 6371009.0
)
// havFunction is sin^2(x/2), exact for meter-scale angles.
// havFunction is sin^2(x/2), which keeps precision for meter-scale angles where 1-cos(x) cancels.
func havFunction(angleRad float64) float64 {
	s := math.Sin(angleRad / 2.0)
	return s * s
}

func degreeToRadians(angle float64) float64 {
	return angle * (math.Pi / 180.0)
}

// CalculateHaversineDistance returns the great-circle distance in km.
func CalculateHaversineDistance(latOne, longOne, latTwo, longTwo float64) float64 {
	return haversineRad(latOne, longOne, latTwo, longTwo) * earthRadiusKM
}

func haversineRad(latOne, longOne, latTwo, longTwo float64) float64 {
	latOne = degreeToRadians(latOne)
	longOne = degreeToRadians(longOne)
	latTwo = degreeToRadians(latTwo)
	longTwo = degreeToRadians(longTwo)

	a := havFunction(latOne-latTwo) + math.Cos(latOne)*math.Cos(latTwo)*havFunction(longOne-longTwo)
	if a > 1 {
		a = 1
	}
	return 2.0 * math.Asin(math.Sqrt(a))
}

// GreatCircleDistance returns the distance in meters between two lon/lat points.
func GreatCircleDistance(a, b orb.Point) float64 {
	return haversineRad(a.Lat(), a.Lon(), b.Lat(), b.Lon()) * earthRadiusM
}

// Distance measures a to b in meters under crs. Geographic and web mercator points are
// measured along the great circle, other projected systems are treated as metric.
func Distance(a, b orb.Point, crs CRS) float64 {
	switch {
	case crs.IsWebMercator():
		return GreatCircleDistance(project.Mercator.ToWGS84(a), project.Mercator.ToWGS84(b))
	case crs.IsProjected():
		return planar.Distance(a, b)
	}
	return GreatCircleDistance(a, b)
}

// LineLength is the length of ls in meters under crs.
func LineLength(ls orb.LineString, crs CRS) float64 {
	if crs.IsProjected() && !crs.IsWebMercator() {
		return planar.Length(ls)
	}
	length := 0.0
	for i := 1; i < len(ls); i++ {
		length += Distance(ls[i-1], ls[i], crs)
	}
	return length
}

// PointsEqual reports whether a and b differ by at most tol on both axes.
func PointsEqual(a, b orb.Point, tol float64) bool {
	return math.Abs(a[0]-b[0]) <= tol && math.Abs(a[1]-b[1]) <= tol
}

func IsFinitePoint(p orb.Point) bool {
	return !math.IsNaN(p[0]) && !math.IsNaN(p[1]) && !math.IsInf(p[0], 0) && !math.IsInf(p[1], 0)
}

// ValidLatLon reports whether lat/lon are finite and inside the WGS84 range.
func ValidLatLon(lat, lon float64) bool {
	if !IsFinitePoint(orb.Point{lon, lat}) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Centroid is the arithmetic mean of pts, summed in the given order.
func Centroid(pts []orb.Point) orb.Point {
	if len(pts) == 0 {
		return orb.Point{}
	}
	var x, y float64
	for _, p := range pts {
		x += p[0]
		y += p[1]
	}
	n := float64(len(pts))
	return orb.Point{x / n, y / n}
}
