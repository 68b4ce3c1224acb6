package simplifier

import (
	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/geo"
	"github.com/lintang-b-s/streetgraph/pkg/logger"
	"github.com/lintang-b-s/streetgraph/pkg/util"
	"go.uber.org/zap"
)

const WarningSelfIntersecting = "self_intersecting"

// node tags that never make a node an endpoint
var ignoredNodeTags = map[string]struct{}{
	"created_by": {},
	"source":     {},
	"note":       {},
	"fixme":      {},
}

type Simplifier struct {
	// edge tag keys whose differing values keep a node as an endpoint
	EdgeAttrsDiffer []string

	logger *zap.Logger
}

func NewSimplifier(logger *zap.Logger) *Simplifier {
	return &Simplifier{logger: logger}
}

type SimplifyReport struct {
	NodesRemoved int
	EdgesMerged  int
	EdgesBefore  int
	EdgesAfter   int
	Passes       int
}

// Simplify contracts every interstitial node until none is left. The input graph is not modified.
func (s *Simplifier) Simplify(g *datastructure.Graph) (*datastructure.Graph, SimplifyReport, error) {
	log := logger.OrNop(s.logger)
	out := g.Clone()
	report := SimplifyReport{EdgesBefore: g.EdgeCount()}

	// edges produced by contraction and still present in out
	merged := make(map[datastructure.EdgeKey]struct{})
	for {
		report.Passes++
		changed := false
		for _, id := range out.NodeIDs() {
			c, ok, err := s.contract(out, id)
			if err != nil {
				return nil, report, err
			}
			if ok {
				changed = true
				report.NodesRemoved++
				report.EdgesMerged++
				delete(merged, c.first)
				delete(merged, c.second)
				merged[c.merged] = struct{}{}
			}
		}
		if !changed {
			break
		}
	}

	// geometry checks run once per final edge, not once per contraction
	for key := range merged {
		e, ok := out.Edge(key)
		if !ok {
			continue
		}
		e.Length = geo.LineLength(e.Geometry, out.CRS())
		if geo.SelfIntersects(e.Geometry, out.CRS()) {
			e.AddWarning(WarningSelfIntersecting)
		}
	}

	report.EdgesAfter = out.EdgeCount()
	log.Info("simplified graph topology",
		zap.Int("nodes_removed", report.NodesRemoved),
		zap.Int("edges_before", report.EdgesBefore),
		zap.Int("edges_after", report.EdgesAfter),
		zap.Int("passes", report.Passes))
	return out, report, nil
}

func hasDistinguishingTags(n *datastructure.Node) bool {
	for _, k := range n.Tags.Keys() {
		if _, ok := ignoredNodeTags[k]; !ok {
			return true
		}
	}
	return false
}

func otherEnd(e *datastructure.Edge, id int64) int64 {
	if e.Source == id {
		return e.Target
	}
	return e.Source
}

// IsSimplifiable reports whether id is an interstitial node that contraction would remove.
func (s *Simplifier) IsSimplifiable(g *datastructure.Graph, id int64) bool {
	_, _, ok := s.pair(g, id)
	return ok
}

func (s *Simplifier) pair(g *datastructure.Graph, id int64) (*datastructure.Edge, *datastructure.Edge, bool) {
	n, ok := g.NodePtr(id)
	if !ok || g.Degree(id) != 2 || hasDistinguishingTags(n) {
		return nil, nil, false
	}
	keys := g.IncidentEdgeKeys(id)
	if len(keys) != 2 {
		return nil, nil, false
	}
	first, _ := g.Edge(keys[0])
	second, _ := g.Edge(keys[1])
	if first.IsSelfLoop() || second.IsSelfLoop() {
		return nil, nil, false
	}

	if first.OneWay != second.OneWay {
		return nil, nil, false
	}
	if first.OneWay {
		// one-way edges must form an in->out path through id
		firstIn := first.Target == id
		secondIn := second.Target == id
		if firstIn == secondIn {
			return nil, nil, false
		}
	}

	for _, key := range s.EdgeAttrsDiffer {
		v1, ok1 := first.Tags.Get(key)
		v2, ok2 := second.Tags.Get(key)
		if ok1 != ok2 || (ok1 && !v1.Equal(v2)) {
			return nil, nil, false
		}
	}
	return first, second, true
}

type contraction struct {
	first, second, merged datastructure.EdgeKey
}

func (s *Simplifier) contract(g *datastructure.Graph, id int64) (contraction, bool, error) {
	first, second, ok := s.pair(g, id)
	if !ok {
		return contraction{}, false, nil
	}

	// first keeps its stored direction; second is oriented to continue the path
	var head, tail *datastructure.Edge
	if first.Target == id {
		head, tail = first, second
	} else {
		head, tail = second, first
	}
	headGeom := head.Geometry
	if head.Target != id {
		headGeom = geo.Reversed(head.Geometry)
	}
	tailGeom := tail.Geometry
	if tail.Source != id {
		tailGeom = geo.Reversed(tail.Geometry)
	}
	source := otherEnd(head, id)
	target := otherEnd(tail, id)

	if !g.IsMulti() && g.HasEdgeBetween(source, target) {
		return contraction{}, false, nil
	}

	// Length is recomputed from the final geometry once contraction settles
	merged := datastructure.Edge{
		Source:   source,
		Target:   target,
		Geometry: geo.Concat(headGeom, tailGeom),
		Length:   head.Length + tail.Length,
		OneWay:   first.OneWay,
		Reversed: first.Reversed,
		WayIDs:   util.UnionOrdered(head.WayIDs, tail.WayIDs),
		Tags:     mergeTags(first.Tags, second.Tags),
		Warnings: util.UnionOrdered(head.Warnings, tail.Warnings),
	}

	c := contraction{first: first.EdgeKey(), second: second.EdgeKey()}
	if err := g.RemoveEdge(c.first); err != nil {
		return contraction{}, false, err
	}
	if err := g.RemoveEdge(c.second); err != nil {
		return contraction{}, false, err
	}
	if err := g.RemoveNode(id); err != nil {
		return contraction{}, false, err
	}
	key, err := g.AddEdge(merged)
	if err != nil {
		return contraction{}, false, err
	}
	c.merged = key
	return c, true, nil
}

// mergeTags keeps the superset when one edge's tags contain the other's,
// otherwise the first-inserted edge's tags.
func mergeTags(first, second datastructure.Tags) datastructure.Tags {
	if !first.IsSupersetOf(second) && second.IsSupersetOf(first) {
		return second.Clone()
	}
	return first.Clone()
}
