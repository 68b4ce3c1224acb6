package consolidator

import (
	"errors"
	"math"
	"slices"
	"strconv"

	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/errs"
	"github.com/lintang-b-s/streetgraph/pkg/geo"
	"github.com/lintang-b-s/streetgraph/pkg/logger"
	"github.com/lintang-b-s/streetgraph/pkg/snap"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

const TagConsolidatedIDs = "consolidated_ids"

type Placement int

const (
	// new node at the mean position of the cluster members
	Centroid Placement = iota
	// the member with the highest degree survives, ties broken by smallest id
	Representative
)

func ParsePlacement(s string) (Placement, bool) {
	switch s {
	case "", "centroid":
		return Centroid, true
	case "representative":
		return Representative, true
	}
	return Centroid, false
}

type Consolidator struct {
	// meters
	Tolerance float64
	Placement Placement
	// near nodes must also share an edge shorter than the tolerance
	RequireConnectingEdge bool

	logger *zap.Logger
}

func NewConsolidator(tolerance float64, logger *zap.Logger) *Consolidator {
	return &Consolidator{
		Tolerance:             tolerance,
		Placement:             Centroid,
		RequireConnectingEdge: true,
		logger:                logger,
	}
}

// Cluster is a group of nodes merged into Node.
type Cluster struct {
	Members []int64
	Node    int64
}

type ConsolidateReport struct {
	Clusters      []Cluster
	NodesRemoved  int
	EdgesDropped  int
	EdgesRewired  int
	ParallelEdges int
}

// Mapping returns the node each merged member now resolves to.
func (r ConsolidateReport) Mapping() map[int64]int64 {
	m := make(map[int64]int64)
	for _, c := range r.Clusters {
		for _, id := range c.Members {
			m[id] = c.Node
		}
	}
	return m
}

type idGenerator struct {
	next int64
}

func (gen *idGenerator) nextID() int64 {
	id := gen.next
	gen.next++
	return id
}

// Consolidate merges clusters of nodes closer than the tolerance. The input graph is not modified.
func (c *Consolidator) Consolidate(g *datastructure.Graph) (*datastructure.Graph, ConsolidateReport, error) {
	log := logger.OrNop(c.logger)
	report := ConsolidateReport{}
	if math.IsNaN(c.Tolerance) || c.Tolerance <= 0 {
		return nil, report, errs.NewErrorf(errs.ErrCodeInvalidTolerance, "tolerance must be positive, got %v", c.Tolerance)
	}

	clusters := c.findClusters(g)
	out := g.Clone()
	if len(clusters) == 0 {
		return out, report, nil
	}

	gen := &idGenerator{next: g.MaxNodeID() + 1}
	memberOf := make(map[int64]int)
	for i, members := range clusters {
		for _, id := range members {
			memberOf[id] = i
		}
	}

	targets := make([]datastructure.Node, len(clusters))
	for i, members := range clusters {
		targets[i] = c.clusterNode(g, members, gen)
		report.Clusters = append(report.Clusters, Cluster{Members: members, Node: targets[i].ID})
	}

	// edges touching a member are dropped with their nodes and re-added
	var touched []*datastructure.Edge
	for _, e := range g.Edges() {
		_, srcIn := memberOf[e.Source]
		_, dstIn := memberOf[e.Target]
		if srcIn || dstIn {
			touched = append(touched, e)
		}
	}

	for i, members := range clusters {
		for _, id := range members {
			if id == targets[i].ID {
				continue
			}
			if err := out.RemoveNode(id); err != nil {
				return nil, report, err
			}
			report.NodesRemoved++
		}
		out.AddNode(targets[i])
	}
	if c.Placement == Representative {
		// edges of the surviving member are rebuilt like the rest
		for _, e := range touched {
			if out.HasEdge(e.EdgeKey()) {
				if err := out.RemoveEdge(e.EdgeKey()); err != nil {
					return nil, report, err
				}
			}
		}
	}

	resolve := func(id int64) (int64, bool) {
		if i, ok := memberOf[id]; ok {
			return targets[i].ID, true
		}
		return id, false
	}
	for _, e := range touched {
		src, srcMoved := resolve(e.Source)
		dst, dstMoved := resolve(e.Target)
		if srcMoved && dstMoved && memberOf[e.Source] == memberOf[e.Target] &&
			(e.Source != e.Target || e.Length < c.Tolerance) {
			report.EdgesDropped++
			continue
		}

		ne := e.Clone()
		ne.Source, ne.Target = src, dst
		if srcMoved {
			ne.Geometry = extendStart(ne.Geometry, targets[memberOf[e.Source]].Point())
		}
		if dstMoved {
			ne.Geometry = extendEnd(ne.Geometry, targets[memberOf[e.Target]].Point())
		}
		ne.Length = geo.LineLength(ne.Geometry, g.CRS())

		_, err := out.AddEdge(ne)
		if errors.Is(err, datastructure.ErrParallelEdge) {
			report.ParallelEdges++
			continue
		}
		if err != nil {
			return nil, report, err
		}
		report.EdgesRewired++
	}

	log.Info("consolidated intersections",
		zap.Float64("tolerance", c.Tolerance),
		zap.Int("clusters", len(report.Clusters)),
		zap.Int("nodes_removed", report.NodesRemoved),
		zap.Int("edges_dropped", report.EdgesDropped),
		zap.Int("edges_rewired", report.EdgesRewired))
	return out, report, nil
}

func extendStart(ls orb.LineString, p orb.Point) orb.LineString {
	if len(ls) > 0 && ls[0] == p {
		return ls
	}
	return append(orb.LineString{p}, ls...)
}

func extendEnd(ls orb.LineString, p orb.Point) orb.LineString {
	if len(ls) > 0 && ls[len(ls)-1] == p {
		return ls
	}
	return append(ls, p)
}

// findClusters returns groups of two or more nodes, members sorted by id and groups
// ordered by their smallest member.
func (c *Consolidator) findClusters(g *datastructure.Graph) [][]int64 {
	uf := newUnionFind()
	crs := g.CRS()

	if c.RequireConnectingEdge {
		for _, e := range g.Edges() {
			if e.IsSelfLoop() || e.Length >= c.Tolerance {
				continue
			}
			u, _ := g.NodePtr(e.Source)
			v, _ := g.NodePtr(e.Target)
			if geo.Distance(u.Point(), v.Point(), crs) < c.Tolerance {
				uf.union(u.ID, v.ID)
			}
		}
	} else {
		ns := snap.NewNodeSnapper(g)
		for _, n := range g.Nodes() {
			for _, m := range ns.NodesWithin(n.Point(), c.Tolerance) {
				if m.ID != n.ID {
					uf.union(n.ID, m.ID)
				}
			}
		}
	}

	groups := make(map[int64][]int64)
	for _, id := range g.NodeIDs() {
		if _, ok := uf.parent[id]; !ok {
			continue
		}
		root := uf.find(id)
		groups[root] = append(groups[root], id)
	}

	roots := make([]int64, 0, len(groups))
	for root, members := range groups {
		if len(members) > 1 {
			roots = append(roots, root)
		}
	}
	slices.Sort(roots)

	clusters := make([][]int64, 0, len(roots))
	for _, root := range roots {
		members := groups[root]
		slices.Sort(members)
		clusters = append(clusters, members)
	}
	return clusters
}

func (c *Consolidator) clusterNode(g *datastructure.Graph, members []int64, gen *idGenerator) datastructure.Node {
	ids := make([]string, 0, len(members))
	for _, id := range members {
		ids = append(ids, strconv.FormatInt(id, 10))
	}

	if c.Placement == Representative {
		rep := members[0]
		for _, id := range members[1:] {
			if g.Degree(id) > g.Degree(rep) {
				rep = id
			}
		}
		n, _ := g.Node(rep)
		n.Tags.Set(TagConsolidatedIDs, datastructure.StringListTag(ids))
		return n
	}

	pts := make([]orb.Point, 0, len(members))
	for _, id := range members {
		n, _ := g.NodePtr(id)
		pts = append(pts, n.Point())
	}
	center := geo.Centroid(pts)
	n := datastructure.Node{ID: gen.nextID(), X: center[0], Y: center[1], Tags: sharedTags(g, members)}
	n.Tags.Set(TagConsolidatedIDs, datastructure.StringListTag(ids))
	return n
}

// sharedTags keeps the tags every member carries with the same value.
func sharedTags(g *datastructure.Graph, members []int64) datastructure.Tags {
	first, _ := g.NodePtr(members[0])
	out := datastructure.NewTags()
	for _, k := range first.Tags.Keys() {
		v, _ := first.Tags.Get(k)
		shared := true
		for _, id := range members[1:] {
			n, _ := g.NodePtr(id)
			if w, ok := n.Tags.Get(k); !ok || !w.Equal(v) {
				shared = false
				break
			}
		}
		if shared {
			out.Set(k, v)
		}
	}
	return out
}
