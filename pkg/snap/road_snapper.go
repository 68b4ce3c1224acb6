package snap

import (
	"slices"

	"github.com/dhconnelly/rtreego"
	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/geo"
	"github.com/paulmach/orb"
)

type edgeLeaf struct {
	key      datastructure.EdgeKey
	geometry orb.LineString
	rect     rtreego.Rect
}

func (l *edgeLeaf) Bounds() rtreego.Rect {
	return l.rect
}

type EdgeMatch struct {
	Key      datastructure.EdgeKey
	Distance float64
	// closest point on the edge geometry
	Snapped orb.Point
}

// RoadSnapper answers nearest edge queries against edge geometries.
type RoadSnapper struct {
	rtree *rtreego.Rtree
	crs   geo.CRS
	size  int
}

func NewRoadSnapper(g *datastructure.Graph) *RoadSnapper {
	rs := &RoadSnapper{
		rtree: rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren),
		crs:   g.CRS(),
	}
	for _, e := range g.Edges() {
		rs.insertEdge(e)
	}
	return rs
}

func (rs *RoadSnapper) insertEdge(e *datastructure.Edge) {
	rs.rtree.Insert(&edgeLeaf{key: e.EdgeKey(), geometry: e.Geometry, rect: boundToRect(e.Geometry.Bound())})
	rs.size++
}

func (rs *RoadSnapper) match(p orb.Point, leaf *edgeLeaf) EdgeMatch {
	d, snapped := geo.PointLineDistance(p, leaf.geometry, rs.crs)
	return EdgeMatch{Key: leaf.key, Distance: d, Snapped: snapped}
}

// SnapToRoads returns every edge within radius meters of p, nearest first.
func (rs *RoadSnapper) SnapToRoads(p orb.Point, radius float64) []EdgeMatch {
	var matches []EdgeMatch
	for _, obj := range searchWithin(rs.rtree, p, radius, rs.crs) {
		m := rs.match(p, obj.(*edgeLeaf))
		if m.Distance <= radius {
			matches = append(matches, m)
		}
	}
	slices.SortFunc(matches, compareEdgeMatch)
	return matches
}

// SnapToRoad returns the edge closest to p.
func (rs *RoadSnapper) SnapToRoad(p orb.Point) (EdgeMatch, error) {
	if rs.size == 0 {
		return EdgeMatch{}, ErrEmptyIndex
	}
	seed := rs.rtree.NearestNeighbor(rtreego.Point{p[0], p[1]}).(*edgeLeaf)
	best := rs.match(p, seed)
	for _, m := range rs.SnapToRoads(p, best.Distance*1.000001+boxPadding) {
		if compareEdgeMatch(m, best) < 0 {
			best = m
		}
	}
	return best, nil
}

func compareEdgeMatch(a, b EdgeMatch) int {
	switch {
	case a.Distance < b.Distance:
		return -1
	case a.Distance > b.Distance:
		return 1
	}
	if a.Key.Source != b.Key.Source {
		if a.Key.Source < b.Key.Source {
			return -1
		}
		return 1
	}
	if a.Key.Target != b.Key.Target {
		if a.Key.Target < b.Key.Target {
			return -1
		}
		return 1
	}
	return a.Key.Key - b.Key.Key
}
