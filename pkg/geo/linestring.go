package geo

import (
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
)

// Reversed returns a reversed copy of ls.
func Reversed(ls orb.LineString) orb.LineString {
	out := ls.Clone()
	out.Reverse()
	return out
}

// Concat joins a and b, dropping b's first point when it repeats a's last point.
func Concat(a, b orb.LineString) orb.LineString {
	out := make(orb.LineString, 0, len(a)+len(b))
	out = append(out, a...)
	if len(a) > 0 && len(b) > 0 && a[len(a)-1] == b[0] {
		b = b[1:]
	}
	out = append(out, b...)
	return out
}

// SelfIntersects reports whether two non-adjacent segments of ls cross or touch.
// A closed ring touching itself only at its shared endpoint does not count.
// Geographic lines are tested along great circles, projected lines in the plane.
func SelfIntersects(ls orb.LineString, crs CRS) bool {
	n := len(ls) - 1
	if n < 3 {
		return false
	}
	closed := ls[0] == ls[n]
	if !crs.IsProjected() {
		return sphericalSelfIntersects(ls, closed)
	}
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if closed && i == 0 && j == n-1 {
				continue
			}
			if segmentsIntersect(ls[i], ls[i+1], ls[j], ls[j+1]) {
				return true
			}
		}
	}
	return false
}

func sphericalSelfIntersects(ls orb.LineString, closed bool) bool {
	n := len(ls) - 1
	pts := make([]s2.Point, len(ls))
	for i, p := range ls {
		pts[i] = toS2(p)
	}
	for i := 0; i+2 < n; i++ {
		crosser := s2.NewChainEdgeCrosser(pts[i], pts[i+1], pts[i+2])
		for j := i + 2; j < n; j++ {
			// MaybeCross means a shared vertex, which is a touch between non-adjacent segments
			crossing := crosser.ChainCrossingSign(pts[j+1])
			if closed && i == 0 && j == n-1 {
				continue
			}
			if crossing != s2.DoNotCross {
				return true
			}
		}
	}
	return false
}

// planar predicates; s2 crossing tests only hold on the sphere
func orientation(a, b, c orb.Point) int {
	v := (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func onSegment(a, b, p orb.Point) bool {
	return min(a[0], b[0]) <= p[0] && p[0] <= max(a[0], b[0]) &&
		min(a[1], b[1]) <= p[1] && p[1] <= max(a[1], b[1])
}

func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	o1 := orientation(p1, p2, q1)
	o2 := orientation(p1, p2, q2)
	o3 := orientation(q1, q2, p1)
	o4 := orientation(q1, q2, p2)

	if o1 != o2 && o3 != o4 && o1 != 0 && o2 != 0 && o3 != 0 && o4 != 0 {
		return true
	}
	if o1 == 0 && onSegment(p1, p2, q1) {
		return true
	}
	if o2 == 0 && onSegment(p1, p2, q2) {
		return true
	}
	if o3 == 0 && onSegment(q1, q2, p1) {
		return true
	}
	if o4 == 0 && onSegment(q1, q2, p2) {
		return true
	}
	return false
}
