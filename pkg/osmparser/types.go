package osmparser

import (
	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/paulmach/orb"
)

type NodeType int

const (
	END_NODE NodeType = iota
	BETWEEN_NODE
	JUNCTION_NODE
)

// RawPoint is an OSM node as delivered by the data source.
type RawPoint struct {
	ID   int64
	Lat  float64
	Lon  float64
	Tags datastructure.Tags
}

// RawWay is an OSM way: an ordered list of point references plus tags.
type RawWay struct {
	ID      int64
	NodeIDs []int64
	Tags    datastructure.Tags
}

type NormalizedNode struct {
	ID   int64
	Lat  float64
	Lon  float64
	Tags datastructure.Tags
}

func (n NormalizedNode) Point() orb.Point {
	return orb.Point{n.Lon, n.Lat}
}

// EdgeCandidate is a piece of a way between two split points, in travel order.
type EdgeCandidate struct {
	WayID    int64
	NodeIDs  []int64
	Geometry orb.LineString
	Tags     datastructure.Tags
	OneWay   bool
	// the node sequence runs against the way's digitization order
	Reversed bool
}

func (c EdgeCandidate) Source() int64 {
	return c.NodeIDs[0]
}

func (c EdgeCandidate) Target() int64 {
	return c.NodeIDs[len(c.NodeIDs)-1]
}

type Normalized struct {
	Nodes []NormalizedNode
	Edges []EdgeCandidate
}

// FeatureIssue records a way that was skipped as malformed.
type FeatureIssue struct {
	WayID  int64
	Reason string
	Err    error
}

type NormalizeReport struct {
	Issues       []FeatureIssue
	WaysAccepted int
	// ways rejected by the way filter
	WaysFiltered int
	WaysSkipped  int
}
