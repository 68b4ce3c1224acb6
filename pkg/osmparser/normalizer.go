package osmparser

import (
	"github.com/lintang-b-s/streetgraph/pkg/errs"
	"github.com/lintang-b-s/streetgraph/pkg/geo"
	"github.com/lintang-b-s/streetgraph/pkg/logger"
	"github.com/lintang-b-s/streetgraph/pkg/util"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

var defaultSplitTags = []string{"barrier", "ford"}

type Normalizer struct {
	// nil keeps every way
	WayFilter WayFilter
	// point tags that force a split, barrier and ford by default
	SplitTags []string

	logger *zap.Logger
}

func NewNormalizer(filter WayFilter, logger *zap.Logger) *Normalizer {
	return &Normalizer{
		WayFilter: filter,
		SplitTags: defaultSplitTags,
		logger:    logger,
	}
}

type acceptedWay struct {
	way  RawWay
	refs []int64
}

// Normalize turns raw points and ways into a deduplicated node set and edge candidates
// split at intersections. Malformed ways are skipped and reported; a point id bound to
// two different coordinates fails the whole call.
func (n *Normalizer) Normalize(points []RawPoint, ways []RawWay) (Normalized, NormalizeReport, error) {
	log := logger.OrNop(n.logger)
	report := NormalizeReport{}

	pointMap := make(map[int64]RawPoint, len(points))
	for _, p := range points {
		if prev, ok := pointMap[p.ID]; ok {
			if prev.Lat != p.Lat || prev.Lon != p.Lon {
				return Normalized{}, report, errs.WrapErrorf(errs.ErrMalformedFeature, errs.ErrCodeMalformedFeature,
					"point %d has conflicting coordinates (%v,%v) and (%v,%v)", p.ID, prev.Lat, prev.Lon, p.Lat, p.Lon)
			}
			continue
		}
		pointMap[p.ID] = p
	}

	accepted := make([]acceptedWay, 0, len(ways))
	for i, way := range ways {
		if (i+1)%50000 == 0 {
			log.Sugar().Infof("normalizing openstreetmap ways: %d...", i+1)
		}
		if n.WayFilter != nil && !n.WayFilter(way.Tags) {
			report.WaysFiltered++
			continue
		}
		refs, err := n.validateWay(way, pointMap)
		if err != nil {
			report.Issues = append(report.Issues, FeatureIssue{WayID: way.ID, Reason: err.Error(), Err: err})
			report.WaysSkipped++
			continue
		}
		accepted = append(accepted, acceptedWay{way: way, refs: refs})
	}
	report.WaysAccepted = len(accepted)

	wayNodeMap := make(map[int64]NodeType)
	out := Normalized{}
	for _, aw := range accepted {
		for i, ref := range aw.refs {
			if _, ok := wayNodeMap[ref]; !ok {
				if i == 0 || i == len(aw.refs)-1 {
					wayNodeMap[ref] = END_NODE
				} else {
					wayNodeMap[ref] = BETWEEN_NODE
				}
				p := pointMap[ref]
				out.Nodes = append(out.Nodes, NormalizedNode{ID: p.ID, Lat: p.Lat, Lon: p.Lon, Tags: p.Tags.Clone()})
			} else {
				wayNodeMap[ref] = JUNCTION_NODE
			}
		}
	}

	for _, aw := range accepted {
		out.Edges = append(out.Edges, n.splitWay(aw, wayNodeMap, pointMap)...)
	}

	log.Info("normalized raw features",
		zap.Int("ways_accepted", report.WaysAccepted),
		zap.Int("ways_filtered", report.WaysFiltered),
		zap.Int("ways_skipped", report.WaysSkipped),
		zap.Int("nodes", len(out.Nodes)),
		zap.Int("edge_candidates", len(out.Edges)))
	return out, report, nil
}

func (n *Normalizer) validateWay(way RawWay, pointMap map[int64]RawPoint) ([]int64, error) {
	refs := util.CollapseRepeats(way.NodeIDs)
	for _, ref := range refs {
		p, ok := pointMap[ref]
		if !ok {
			return nil, errs.WrapErrorf(errs.ErrMalformedFeature, errs.ErrCodeMalformedFeature,
				"way %d references unknown point %d", way.ID, ref)
		}
		if !geo.ValidLatLon(p.Lat, p.Lon) {
			return nil, errs.WrapErrorf(errs.ErrMalformedFeature, errs.ErrCodeMalformedFeature,
				"way %d references point %d with invalid coordinates (%v,%v)", way.ID, ref, p.Lat, p.Lon)
		}
	}
	if len(refs) < 2 {
		return nil, errs.WrapErrorf(errs.ErrMalformedFeature, errs.ErrCodeMalformedFeature,
			"way %d has fewer than two distinct points", way.ID)
	}
	return refs, nil
}

func (n *Normalizer) isSplitPoint(p RawPoint) bool {
	for _, key := range n.SplitTags {
		if p.Tags.Has(key) {
			return true
		}
	}
	return false
}

func (n *Normalizer) splitWay(aw acceptedWay, wayNodeMap map[int64]NodeType, pointMap map[int64]RawPoint) []EdgeCandidate {
	dir := wayDirection(aw.way.Tags)

	var candidates []EdgeCandidate
	waySegment := []int64{}
	for i, ref := range aw.refs {
		waySegment = append(waySegment, ref)
		last := i == len(aw.refs)-1
		split := wayNodeMap[ref] == JUNCTION_NODE || n.isSplitPoint(pointMap[ref])
		if i > 0 && (last || split) {
			candidates = append(candidates, newCandidate(aw.way, waySegment, pointMap, dir))
			waySegment = []int64{ref}
		}
	}
	return candidates
}

func newCandidate(way RawWay, segment []int64, pointMap map[int64]RawPoint, dir direction) EdgeCandidate {
	nodeIDs := append([]int64(nil), segment...)
	if dir == backwardOnly {
		nodeIDs = util.ReverseG(nodeIDs)
	}
	geom := make(orb.LineString, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		p := pointMap[id]
		geom = append(geom, orb.Point{p.Lon, p.Lat})
	}
	return EdgeCandidate{
		WayID:    way.ID,
		NodeIDs:  nodeIDs,
		Geometry: geom,
		Tags:     way.Tags.Clone(),
		OneWay:   dir != twoWay,
		Reversed: dir == backwardOnly,
	}
}
