package stats

import (
	"github.com/lintang-b-s/streetgraph/pkg/components"
	"github.com/lintang-b-s/streetgraph/pkg/consolidator"
	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/geo"
	"github.com/paulmach/orb"
)

type Options struct {
	// square meters; densities are skipped when zero
	Area float64
	// meters; clean intersections are skipped when zero
	CleanIntersectionTolerance float64
}

type BasicStats struct {
	N                          int             `json:"n"`
	M                          int             `json:"m"`
	KAvg                       float64         `json:"k_avg"`
	EdgeLengthTotal            float64         `json:"edge_length_total"`
	EdgeLengthAvg              float64         `json:"edge_length_avg"`
	StreetsPerNodeAvg          float64         `json:"streets_per_node_avg"`
	StreetsPerNodeCounts       map[int]int     `json:"streets_per_node_counts"`
	StreetsPerNodeProportions  map[int]float64 `json:"streets_per_node_proportions"`
	IntersectionCount          int             `json:"intersection_count"`
	StreetLengthTotal          float64         `json:"street_length_total"`
	StreetSegmentCount         int             `json:"street_segment_count"`
	StreetLengthAvg            float64         `json:"street_length_avg"`
	CircuityAvg                *float64        `json:"circuity_avg"`
	SelfLoopProportion         float64         `json:"self_loop_proportion"`
	CleanIntersectionCount     *int            `json:"clean_intersection_count,omitempty"`
	NodeDensityKm              *float64        `json:"node_density_km,omitempty"`
	IntersectionDensityKm      *float64        `json:"intersection_density_km,omitempty"`
	EdgeDensityKm              *float64        `json:"edge_density_km,omitempty"`
	StreetDensityKm            *float64        `json:"street_density_km,omitempty"`
	CleanIntersectionDensityKm *float64        `json:"clean_intersection_density_km,omitempty"`
}

// Streets returns the undirected street segments of g. Two-way edges are already
// stored once; a one-way edge whose reverse twin carries the exact reversed
// geometry is folded into it.
func Streets(g *datastructure.Graph) []*datastructure.Edge {
	type pairKey struct{ u, v int64 }
	oneWays := make(map[pairKey][]*datastructure.Edge)
	var streets []*datastructure.Edge
	for _, e := range g.Edges() {
		if e.OneWay {
			rev := pairKey{e.Target, e.Source}
			if twins := oneWays[rev]; len(twins) > 0 {
				folded := false
				for i, twin := range twins {
					if isReverse(twin.Geometry, e.Geometry) {
						oneWays[rev] = append(twins[:i:i], twins[i+1:]...)
						folded = true
						break
					}
				}
				if folded {
					continue
				}
			}
			key := pairKey{e.Source, e.Target}
			oneWays[key] = append(oneWays[key], e)
		}
		streets = append(streets, e)
	}
	return streets
}

func isReverse(a, b orb.LineString) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[len(b)-1-i] {
			return false
		}
	}
	return true
}

// StreetsPerNode counts street segments incident to each node, a self-loop counting twice.
func StreetsPerNode(g *datastructure.Graph) map[int64]int {
	spn := make(map[int64]int, g.NodeCount())
	for _, id := range g.NodeIDs() {
		spn[id] = 0
	}
	for _, e := range Streets(g) {
		spn[e.Source]++
		spn[e.Target]++
	}
	return spn
}

// IntersectionCount counts nodes with at least minStreets incident streets.
func IntersectionCount(g *datastructure.Graph, minStreets int) int {
	count := 0
	for _, c := range StreetsPerNode(g) {
		if c >= minStreets {
			count++
		}
	}
	return count
}

// CleanIntersectionCount merges intersections lying within tolerance meters of each other
// and counts what is left. Dead ends are ignored.
func CleanIntersectionCount(g *datastructure.Graph, tolerance float64) (int, error) {
	spn := StreetsPerNode(g)
	var ids []int64
	for _, id := range g.NodeIDs() {
		if spn[id] > 1 {
			ids = append(ids, id)
		}
	}
	sub := components.Subgraph(g, ids)
	c := consolidator.NewConsolidator(tolerance, nil)
	c.RequireConnectingEdge = false
	merged, _, err := c.Consolidate(sub)
	if err != nil {
		return 0, err
	}
	return merged.NodeCount(), nil
}

func ptr[T any](v T) *T {
	return &v
}

// Basic computes descriptive measures of g. Lengths are meters.
func Basic(g *datastructure.Graph, opts Options) (BasicStats, error) {
	s := BasicStats{
		N:                         g.NodeCount(),
		M:                         g.TraversalCount(),
		StreetsPerNodeCounts:      make(map[int]int),
		StreetsPerNodeProportions: make(map[int]float64),
	}

	for _, e := range g.Edges() {
		s.EdgeLengthTotal += e.Length
		if !e.OneWay {
			s.EdgeLengthTotal += e.Length
		}
	}
	if s.N > 0 {
		s.KAvg = 2 * float64(s.M) / float64(s.N)
	}
	if s.M > 0 {
		s.EdgeLengthAvg = s.EdgeLengthTotal / float64(s.M)
	}

	spn := StreetsPerNode(g)
	maxCount, sum := 0, 0
	for _, c := range spn {
		sum += c
		maxCount = max(maxCount, c)
		if c >= 2 {
			s.IntersectionCount++
		}
	}
	if s.N > 0 {
		s.StreetsPerNodeAvg = float64(sum) / float64(s.N)
		for i := 0; i <= maxCount; i++ {
			s.StreetsPerNodeCounts[i] = 0
		}
		for _, c := range spn {
			s.StreetsPerNodeCounts[c]++
		}
		for k, c := range s.StreetsPerNodeCounts {
			s.StreetsPerNodeProportions[k] = float64(c) / float64(s.N)
		}
	}

	streets := Streets(g)
	s.StreetSegmentCount = len(streets)
	straight := 0.0
	selfLoops := 0
	for _, e := range streets {
		s.StreetLengthTotal += e.Length
		u, _ := g.NodePtr(e.Source)
		v, _ := g.NodePtr(e.Target)
		straight += geo.Distance(u.Point(), v.Point(), g.CRS())
		if e.IsSelfLoop() {
			selfLoops++
		}
	}
	if s.StreetSegmentCount > 0 {
		s.StreetLengthAvg = s.StreetLengthTotal / float64(s.StreetSegmentCount)
		s.SelfLoopProportion = float64(selfLoops) / float64(s.StreetSegmentCount)
	}
	if straight > 0 {
		s.CircuityAvg = ptr(s.StreetLengthTotal / straight)
	}

	if opts.CleanIntersectionTolerance > 0 {
		clean, err := CleanIntersectionCount(g, opts.CleanIntersectionTolerance)
		if err != nil {
			return s, err
		}
		s.CleanIntersectionCount = ptr(clean)
	}

	if opts.Area > 0 {
		areaKm := opts.Area / 1_000_000
		s.NodeDensityKm = ptr(float64(s.N) / areaKm)
		s.IntersectionDensityKm = ptr(float64(s.IntersectionCount) / areaKm)
		s.EdgeDensityKm = ptr(s.EdgeLengthTotal / areaKm)
		s.StreetDensityKm = ptr(s.StreetLengthTotal / areaKm)
		if s.CleanIntersectionCount != nil {
			s.CleanIntersectionDensityKm = ptr(float64(*s.CleanIntersectionCount) / areaKm)
		}
	}
	return s, nil
}
