package service

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/errs"
	"github.com/lintang-b-s/streetgraph/pkg/geo"
	"github.com/lintang-b-s/streetgraph/pkg/graphio"
	"github.com/lintang-b-s/streetgraph/pkg/projector"
	"github.com/lintang-b-s/streetgraph/pkg/snap"
	"github.com/lintang-b-s/streetgraph/pkg/stats"
	"github.com/paulmach/orb"
)

type NodeResult struct {
	ID  int64
	Lat float64
	Lon float64
	// meters from the query point
	Distance float64
	Tags     datastructure.Tags
}

// EdgeResult carries an edge with its geometry in lat/lon, whatever the graph crs.
type EdgeResult struct {
	Key      datastructure.EdgeKey
	WayIDs   []int64
	Length   float64
	OneWay   bool
	Geometry orb.LineString
	Tags     datastructure.Tags
	Distance float64
	Snapped  orb.Point
}

// GraphService answers read-only queries over one immutable graph.
type GraphService struct {
	g     *datastructure.Graph
	nodes *snap.NodeSnapper
	roads *snap.RoadSnapper
	// optional h3 edge index, only used for geographic graphs
	kv        KVDB
	statsOpts stats.Options

	statsOnce sync.Once
	stats     stats.BasicStats
	statsErr  error
}

func NewGraphService(g *datastructure.Graph, kvdb KVDB, statsOpts stats.Options) *GraphService {
	return &GraphService{
		g:         g,
		nodes:     snap.NewNodeSnapper(g),
		roads:     snap.NewRoadSnapper(g),
		kv:        kvdb,
		statsOpts: statsOpts,
	}
}

func (s *GraphService) Stats(ctx context.Context) (stats.BasicStats, error) {
	s.statsOnce.Do(func() {
		s.stats, s.statsErr = stats.Basic(s.g, s.statsOpts)
	})
	return s.stats, s.statsErr
}

func (s *GraphService) toGraph(lat, lon float64) (orb.Point, error) {
	if !geo.ValidLatLon(lat, lon) {
		return orb.Point{}, errs.NewErrorf(errs.ErrCodeBadParamInput, "invalid coordinate (%v, %v)", lat, lon)
	}
	return projector.ProjectPoint(orb.Point{lon, lat}, geo.WGS84, s.g.CRS())
}

func (s *GraphService) toLatLon(p orb.Point) (orb.Point, error) {
	return projector.ProjectPoint(p, s.g.CRS(), geo.WGS84)
}

func (s *GraphService) NearestNode(ctx context.Context, lat, lon float64) (NodeResult, error) {
	p, err := s.toGraph(lat, lon)
	if err != nil {
		return NodeResult{}, err
	}
	m, err := s.nodes.NearestNode(p)
	if errors.Is(err, snap.ErrEmptyIndex) {
		return NodeResult{}, errs.WrapErrorf(err, errs.ErrCodeNotFound, "graph has no nodes")
	}
	if err != nil {
		return NodeResult{}, err
	}
	n, _ := s.g.Node(m.ID)
	ll, err := s.toLatLon(n.Point())
	if err != nil {
		return NodeResult{}, err
	}
	return NodeResult{ID: n.ID, Lat: ll.Lat(), Lon: ll.Lon(), Distance: m.Distance, Tags: n.Tags}, nil
}

// NearestEdges returns up to k edges within radius meters, nearest first. A zero radius
// returns the single nearest edge.
func (s *GraphService) NearestEdges(ctx context.Context, lat, lon, radius float64, k int) ([]EdgeResult, error) {
	if radius < 0 || k < 0 {
		return nil, errs.NewErrorf(errs.ErrCodeBadParamInput, "radius and k must not be negative")
	}
	if s.kv != nil && !s.g.CRS().IsProjected() && radius > 0 {
		return s.nearestEdgesH3(lat, lon, radius, k)
	}

	p, err := s.toGraph(lat, lon)
	if err != nil {
		return nil, err
	}

	var matches []snap.EdgeMatch
	if radius == 0 {
		m, err := s.roads.SnapToRoad(p)
		if errors.Is(err, snap.ErrEmptyIndex) {
			return nil, errs.WrapErrorf(err, errs.ErrCodeNotFound, "graph has no edges")
		}
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	} else {
		matches = s.roads.SnapToRoads(p, radius)
	}
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}

	out := make([]EdgeResult, 0, len(matches))
	for _, m := range matches {
		res, err := s.edgeResult(m.Key)
		if err != nil {
			return nil, err
		}
		res.Distance = m.Distance
		if res.Snapped, err = s.toLatLon(m.Snapped); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (s *GraphService) nearestEdgesH3(lat, lon, radius float64, k int) ([]EdgeResult, error) {
	found, err := s.kv.NearestEdgesFromPointCoord(lat, lon, 0)
	if err != nil {
		return nil, err
	}
	out := make([]EdgeResult, 0, len(found))
	for _, ne := range found {
		if ne.Distance > radius || (k > 0 && len(out) == k) {
			break
		}
		res, err := s.edgeResult(ne.Key)
		if err != nil {
			// index built from another graph
			continue
		}
		res.Distance = ne.Distance
		res.Snapped = ne.Snapped
		out = append(out, res)
	}
	return out, nil
}

func (s *GraphService) edgeResult(key datastructure.EdgeKey) (EdgeResult, error) {
	e, ok := s.g.Edge(key)
	if !ok {
		return EdgeResult{}, errs.NewErrorf(errs.ErrCodeNotFound, "edge %s not found", key)
	}
	geom := make(orb.LineString, 0, len(e.Geometry))
	for _, pt := range e.Geometry {
		ll, err := s.toLatLon(pt)
		if err != nil {
			return EdgeResult{}, err
		}
		geom = append(geom, ll)
	}
	return EdgeResult{
		Key:      key,
		WayIDs:   e.WayIDs,
		Length:   e.Length,
		OneWay:   e.OneWay,
		Geometry: geom,
		Tags:     e.Tags,
	}, nil
}

func (s *GraphService) Edge(ctx context.Context, key datastructure.EdgeKey) (EdgeResult, error) {
	return s.edgeResult(key)
}

func (s *GraphService) WriteGraphML(ctx context.Context, w io.Writer) error {
	return graphio.WriteGraphML(w, s.g)
}
