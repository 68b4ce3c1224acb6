package geo

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
)

func toS2(p orb.Point) s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat(), p.Lon()))
}

// ProjectPointToSegment returns the point on the great-circle segment a-b closest to p.
// All points are lon/lat.
func ProjectPointToSegment(p, a, b orb.Point) orb.Point {
	if a == b {
		return a
	}
	projection := s2.Project(toS2(p), toS2(a), toS2(b))
	projectLatLng := s2.LatLngFromPoint(projection)
	return orb.Point{projectLatLng.Lng.Degrees(), projectLatLng.Lat.Degrees()}
}

// DistanceToSegment returns the distance in meters from p to the great-circle segment a-b.
func DistanceToSegment(p, a, b orb.Point) float64 {
	if a == b {
		return GreatCircleDistance(p, a)
	}
	angle := s2.DistanceFromSegment(toS2(p), toS2(a), toS2(b))
	return angle.Radians() * earthRadiusM
}

// DistanceToLine returns the distance from p to the closest segment of ls, and that segment's index.
func DistanceToLine(p orb.Point, ls orb.LineString) (float64, int) {
	if len(ls) == 1 {
		return GreatCircleDistance(p, ls[0]), 0
	}
	best, bestIdx := -1.0, 0
	for i := 1; i < len(ls); i++ {
		d := DistanceToSegment(p, ls[i-1], ls[i])
		if best < 0 || d < best {
			best = d
			bestIdx = i - 1
		}
	}
	return best, bestIdx
}

// PointLineDistance measures p to ls under crs and returns the closest point on ls.
func PointLineDistance(p orb.Point, ls orb.LineString, crs CRS) (float64, orb.Point) {
	if crs.IsWebMercator() {
		ll := make(orb.LineString, 0, len(ls))
		for _, pt := range ls {
			ll = append(ll, project.Mercator.ToWGS84(pt))
		}
		d, snapped := PointLineDistance(project.Mercator.ToWGS84(p), ll, WGS84)
		return d, project.WGS84.ToMercator(snapped)
	}
	if !crs.IsProjected() {
		d, idx := DistanceToLine(p, ls)
		if len(ls) == 1 {
			return d, ls[0]
		}
		return d, ProjectPointToSegment(p, ls[idx], ls[idx+1])
	}

	best, bestPt := -1.0, orb.Point{}
	for i := 1; i < len(ls); i++ {
		proj := planarProject(p, ls[i-1], ls[i])
		d := planar.Distance(p, proj)
		if best < 0 || d < best {
			best, bestPt = d, proj
		}
	}
	if len(ls) == 1 {
		return planar.Distance(p, ls[0]), ls[0]
	}
	return best, bestPt
}

func planarProject(p, a, b orb.Point) orb.Point {
	dx, dy := b[0]-a[0], b[1]-a[1]
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return a
	}
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return orb.Point{a[0] + t*dx, a[1] + t*dy}
}

// SearchBoxes returns boxes that together contain every point within meters of p under
// crs. Geographic boxes crossing the antimeridian are split in two.
func SearchBoxes(p orb.Point, meters float64, crs CRS) []orb.Bound {
	switch {
	case crs.IsWebMercator():
		// mercator units per ground meter grow with 1/cos(lat)
		ll := project.Mercator.ToWGS84(p)
		dLat := meters / (earthRadiusM * math.Pi / 180) * 1.01
		lat := math.Min(math.Abs(ll.Lat())+dLat, 89.9)
		half := meters * orb.EarthRadius / earthRadiusM / math.Cos(lat*math.Pi/180) * 1.01
		return []orb.Bound{{Min: orb.Point{p[0] - half, p[1] - half}, Max: orb.Point{p[0] + half, p[1] + half}}}
	case crs.IsProjected():
		return []orb.Bound{{Min: orb.Point{p[0] - meters, p[1] - meters}, Max: orb.Point{p[0] + meters, p[1] + meters}}}
	}

	dLat := meters / (earthRadiusM * math.Pi / 180) * 1.01
	cosLat := math.Max(math.Cos(p.Lat()*math.Pi/180), 1e-6)
	dLon := dLat / cosLat
	minLat, maxLat := p[1]-dLat, p[1]+dLat
	if dLon >= 180 {
		return []orb.Bound{{Min: orb.Point{-180, minLat}, Max: orb.Point{180, maxLat}}}
	}

	minLon, maxLon := p[0]-dLon, p[0]+dLon
	switch {
	case minLon < -180:
		return []orb.Bound{
			{Min: orb.Point{-180, minLat}, Max: orb.Point{maxLon, maxLat}},
			{Min: orb.Point{minLon + 360, minLat}, Max: orb.Point{180, maxLat}},
		}
	case maxLon > 180:
		return []orb.Bound{
			{Min: orb.Point{minLon, minLat}, Max: orb.Point{180, maxLat}},
			{Min: orb.Point{-180, minLat}, Max: orb.Point{maxLon - 360, maxLat}},
		}
	}
	return []orb.Bound{{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}}
}
