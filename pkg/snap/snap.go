package snap

import (
	"errors"
	"slices"

	"github.com/dhconnelly/rtreego"
	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/geo"
	"github.com/paulmach/orb"
)

var ErrEmptyIndex = errors.New("spatial index is empty")

const (
	rtreeMinChildren = 25
	rtreeMaxChildren = 50
	// pad so degenerate boxes stay valid rectangles
	boxPadding = 1e-9
)

func boundToRect(b orb.Bound) rtreego.Rect {
	rect, _ := rtreego.NewRectFromPoints(
		rtreego.Point{b.Min[0] - boxPadding, b.Min[1] - boxPadding},
		rtreego.Point{b.Max[0] + boxPadding, b.Max[1] + boxPadding},
	)
	return rect
}

// searchWithin collects leaves intersecting any search box around p, each once.
func searchWithin(tree *rtreego.Rtree, p orb.Point, radius float64, crs geo.CRS) []rtreego.Spatial {
	boxes := geo.SearchBoxes(p, radius, crs)
	if len(boxes) == 1 {
		return tree.SearchIntersect(boundToRect(boxes[0]))
	}
	seen := make(map[rtreego.Spatial]struct{})
	var found []rtreego.Spatial
	for _, b := range boxes {
		for _, obj := range tree.SearchIntersect(boundToRect(b)) {
			if _, ok := seen[obj]; ok {
				continue
			}
			seen[obj] = struct{}{}
			found = append(found, obj)
		}
	}
	return found
}

type nodeLeaf struct {
	id   int64
	pt   orb.Point
	rect rtreego.Rect
}

func (l *nodeLeaf) Bounds() rtreego.Rect {
	return l.rect
}

type NodeMatch struct {
	ID       int64
	Distance float64
}

// NodeSnapper answers nearest node queries over a fixed set of graph nodes.
type NodeSnapper struct {
	rtree *rtreego.Rtree
	crs   geo.CRS
	size  int
}

func NewNodeSnapper(g *datastructure.Graph) *NodeSnapper {
	ns := &NodeSnapper{
		rtree: rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren),
		crs:   g.CRS(),
	}
	for _, n := range g.Nodes() {
		ns.InsertNode(n.ID, n.Point())
	}
	return ns
}

func (ns *NodeSnapper) InsertNode(id int64, pt orb.Point) {
	ns.rtree.Insert(&nodeLeaf{id: id, pt: pt, rect: boundToRect(pt.Bound())})
	ns.size++
}

// NodesWithin returns every node closer than radius meters, nearest first, ties by id.
func (ns *NodeSnapper) NodesWithin(p orb.Point, radius float64) []NodeMatch {
	var matches []NodeMatch
	for _, obj := range searchWithin(ns.rtree, p, radius, ns.crs) {
		leaf := obj.(*nodeLeaf)
		d := geo.Distance(p, leaf.pt, ns.crs)
		if d < radius {
			matches = append(matches, NodeMatch{ID: leaf.id, Distance: d})
		}
	}
	sortNodeMatches(matches)
	return matches
}

// NearestNode returns the node closest to p.
func (ns *NodeSnapper) NearestNode(p orb.Point) (NodeMatch, error) {
	if ns.size == 0 {
		return NodeMatch{}, ErrEmptyIndex
	}
	seed := ns.rtree.NearestNeighbor(rtreego.Point{p[0], p[1]}).(*nodeLeaf)
	d := geo.Distance(p, seed.pt, ns.crs)

	// the seed is nearest in coordinate space only, rerank inside its true radius
	best := NodeMatch{ID: seed.id, Distance: d}
	for _, m := range ns.NodesWithin(p, d*1.000001+boxPadding) {
		if m.Distance < best.Distance || (m.Distance == best.Distance && m.ID < best.ID) {
			best = m
		}
	}
	return best, nil
}

func sortNodeMatches(matches []NodeMatch) {
	slices.SortFunc(matches, func(a, b NodeMatch) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}
