package builder

import (
	"errors"
	"fmt"

	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/geo"
	"github.com/lintang-b-s/streetgraph/pkg/logger"
	"github.com/lintang-b-s/streetgraph/pkg/osmparser"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

const WarningZeroLength = "zero_length"

type Builder struct {
	// every point becomes a node and every consecutive pair an edge
	ExpandSegments bool
	// keep parallel edges between the same ordered node pair
	Multi bool

	logger *zap.Logger
}

func NewBuilder(logger *zap.Logger) *Builder {
	return &Builder{ExpandSegments: true, Multi: true, logger: logger}
}

type BuildReport struct {
	Nodes         int
	Edges         int
	ParallelEdges int
	ZeroLength    int
}

// Build inserts the normalized features into a new graph in EPSG:4326.
func (b *Builder) Build(in osmparser.Normalized) (*datastructure.Graph, BuildReport, error) {
	log := logger.OrNop(b.logger)
	g := datastructure.NewGraph(geo.WGS84, b.Multi)
	report := BuildReport{}

	nodeMap := make(map[int64]osmparser.NormalizedNode, len(in.Nodes))
	for _, n := range in.Nodes {
		nodeMap[n.ID] = n
	}

	addNode := func(id int64) error {
		if g.HasNode(id) {
			return nil
		}
		n, ok := nodeMap[id]
		if !ok {
			return fmt.Errorf("edge candidate references node %d missing from the node set: %w", id, datastructure.ErrNodeNotFound)
		}
		g.AddNode(datastructure.Node{ID: n.ID, X: n.Lon, Y: n.Lat, Tags: n.Tags})
		return nil
	}

	// nodes keep the normalizer order; endpoints only when segments are not expanded
	endpoints := make(map[int64]struct{})
	if !b.ExpandSegments {
		for _, c := range in.Edges {
			endpoints[c.Source()] = struct{}{}
			endpoints[c.Target()] = struct{}{}
		}
	}
	for _, n := range in.Nodes {
		if _, ok := endpoints[n.ID]; b.ExpandSegments || ok {
			if err := addNode(n.ID); err != nil {
				return nil, report, err
			}
		}
	}

	for i, c := range in.Edges {
		if (i+1)%50000 == 0 {
			log.Sugar().Infof("building graph edges: %d...", i+1)
		}
		if b.ExpandSegments {
			for j := 1; j < len(c.NodeIDs); j++ {
				seg := c
				seg.NodeIDs = c.NodeIDs[j-1 : j+1]
				seg.Geometry = c.Geometry[j-1 : j+1]
				if err := b.addCandidate(g, seg, addNode, &report); err != nil {
					return nil, report, err
				}
			}
			continue
		}
		if err := b.addCandidate(g, c, addNode, &report); err != nil {
			return nil, report, err
		}
	}

	report.Nodes = g.NodeCount()
	report.Edges = g.EdgeCount()
	log.Info("built graph",
		zap.Int("nodes", report.Nodes),
		zap.Int("edges", report.Edges),
		zap.Int("parallel_edges_dropped", report.ParallelEdges),
		zap.Int("zero_length_edges", report.ZeroLength))
	return g, report, nil
}

func (b *Builder) addCandidate(g *datastructure.Graph, c osmparser.EdgeCandidate, addNode func(int64) error,
	report *BuildReport) error {
	if err := addNode(c.Source()); err != nil {
		return err
	}
	if err := addNode(c.Target()); err != nil {
		return err
	}

	geom := make(orb.LineString, len(c.Geometry))
	copy(geom, c.Geometry)
	e := datastructure.Edge{
		Source:   c.Source(),
		Target:   c.Target(),
		Geometry: geom,
		Length:   geo.LineLength(geom, g.CRS()),
		OneWay:   c.OneWay,
		Reversed: c.Reversed,
		WayIDs:   []int64{c.WayID},
		Tags:     c.Tags,
	}
	if e.Length == 0 {
		e.AddWarning(WarningZeroLength)
		report.ZeroLength++
	}

	_, err := g.AddEdge(e)
	if errors.Is(err, datastructure.ErrParallelEdge) {
		report.ParallelEdges++
		return nil
	}
	return err
}
