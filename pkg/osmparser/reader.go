package osmparser

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/logger"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"go.uber.org/zap"
)

type osmScanner interface {
	Scan() bool
	Object() osm.Object
	Err() error
	Close() error
}

func convertTags(tags osm.Tags) datastructure.Tags {
	out := datastructure.NewTags()
	for _, tag := range tags {
		out.Set(tag.Key, datastructure.StringTag(tag.Value))
	}
	return out
}

func convertWay(way *osm.Way) RawWay {
	refs := make([]int64, 0, len(way.Nodes))
	for _, wn := range way.Nodes {
		refs = append(refs, int64(wn.ID))
	}
	return RawWay{ID: int64(way.ID), NodeIDs: refs, Tags: convertTags(way.Tags)}
}

func convertNode(node *osm.Node) RawPoint {
	return RawPoint{ID: int64(node.ID), Lat: node.Lat, Lon: node.Lon, Tags: convertTags(node.Tags)}
}

// ReadPBF reads an .osm.pbf file in two passes: ways accepted by filter first, then
// only the nodes those ways reference.
func ReadPBF(ctx context.Context, r io.ReadSeeker, filter WayFilter, lg *zap.Logger) ([]RawPoint, []RawWay, error) {
	log := logger.OrNop(lg)

	scanner := osmpbf.New(ctx, r, 0)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	wayNodeMap := make(map[int64]struct{})
	ways, err := collectWays(scanner, filter, wayNodeMap, log)
	if err != nil {
		return nil, nil, err
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, nil, fmt.Errorf("rewind pbf: %w", err)
	}
	scanner = osmpbf.New(ctx, r, 0)
	scanner.SkipWays = true
	scanner.SkipRelations = true
	points, err := collectPoints(scanner, wayNodeMap, log)
	if err != nil {
		return nil, nil, err
	}

	log.Info("read openstreetmap pbf", zap.Int("ways", len(ways)), zap.Int("points", len(points)))
	return points, ways, nil
}

// ReadXML reads an .osm XML document. Nodes not referenced by a kept way are dropped.
func ReadXML(ctx context.Context, r io.Reader, filter WayFilter, lg *zap.Logger) ([]RawPoint, []RawWay, error) {
	log := logger.OrNop(lg)
	scanner := osmxml.New(ctx, r)
	defer scanner.Close()

	var allPoints []RawPoint
	var ways []RawWay
	wayNodeMap := make(map[int64]struct{})
	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			allPoints = append(allPoints, convertNode(o))
		case *osm.Way:
			if w, ok := acceptWay(o, filter); ok {
				for _, ref := range w.NodeIDs {
					wayNodeMap[ref] = struct{}{}
				}
				ways = append(ways, w)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan osm xml: %w", err)
	}

	points := allPoints[:0]
	for _, p := range allPoints {
		if _, ok := wayNodeMap[p.ID]; ok {
			points = append(points, p)
		}
	}
	log.Info("read openstreetmap xml", zap.Int("ways", len(ways)), zap.Int("points", len(points)))
	return points, ways, nil
}

// ReadFile picks the reader from the file extension.
func ReadFile(ctx context.Context, path string, filter WayFilter, lg *zap.Logger) ([]RawPoint, []RawWay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	if strings.HasSuffix(path, ".pbf") {
		return ReadPBF(ctx, f, filter, lg)
	}
	return ReadXML(ctx, f, filter, lg)
}

// acceptWay applies only the tag filter. Degenerate ways pass through so the
// normalizer can report them.
func acceptWay(way *osm.Way, filter WayFilter) (RawWay, bool) {
	w := convertWay(way)
	if filter != nil && !filter(w.Tags) {
		return RawWay{}, false
	}
	return w, true
}

func collectWays(scanner osmScanner, filter WayFilter, wayNodeMap map[int64]struct{}, log *zap.Logger) ([]RawWay, error) {
	defer scanner.Close()
	var ways []RawWay
	countWays := 0
	for scanner.Scan() {
		way, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		w, ok := acceptWay(way, filter)
		if !ok {
			continue
		}
		if (countWays+1)%50000 == 0 {
			log.Sugar().Infof("reading openstreetmap ways: %d...", countWays+1)
		}
		countWays++
		for _, ref := range w.NodeIDs {
			wayNodeMap[ref] = struct{}{}
		}
		ways = append(ways, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan ways: %w", err)
	}
	return ways, nil
}

func collectPoints(scanner osmScanner, wayNodeMap map[int64]struct{}, log *zap.Logger) ([]RawPoint, error) {
	defer scanner.Close()
	var points []RawPoint
	countNodes := 0
	for scanner.Scan() {
		node, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if (countNodes+1)%50000 == 0 {
			log.Sugar().Infof("processing openstreetmap nodes: %d...", countNodes+1)
		}
		countNodes++
		if _, ok := wayNodeMap[int64(node.ID)]; ok {
			points = append(points, convertNode(node))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan nodes: %w", err)
	}
	return points, nil
}
