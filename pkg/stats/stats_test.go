package stats

import (
	"testing"

	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/geo"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 3x3 grid of two-way streets, 100 m apart, in a projected crs
func gridGraph(t *testing.T) *datastructure.Graph {
	t.Helper()
	g := datastructure.NewGraph(geo.UTM(49, false), true)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			g.AddNode(datastructure.Node{ID: int64(i*3 + j + 1), X: float64(j) * 100, Y: float64(i) * 100})
		}
	}
	add := func(u, v int64) {
		_, err := g.AddEdge(datastructure.Edge{Source: u, Target: v, Length: 100})
		require.NoError(t, err)
	}
	for i := int64(0); i < 3; i++ {
		add(i*3+1, i*3+2)
		add(i*3+2, i*3+3)
	}
	for i := int64(1); i <= 6; i++ {
		add(i, i+3)
	}
	return g
}

func TestBasicStatsGrid(t *testing.T) {
	s, err := Basic(gridGraph(t), Options{Area: 40000, CleanIntersectionTolerance: 50})
	require.NoError(t, err)

	assert.Equal(t, 9, s.N)
	assert.Equal(t, 24, s.M)
	assert.InDelta(t, 48.0/9.0, s.KAvg, 1e-12)
	assert.Equal(t, 2400.0, s.EdgeLengthTotal)
	assert.Equal(t, 100.0, s.EdgeLengthAvg)
	assert.InDelta(t, 24.0/9.0, s.StreetsPerNodeAvg, 1e-12)
	assert.Equal(t, map[int]int{0: 0, 1: 0, 2: 4, 3: 4, 4: 1}, s.StreetsPerNodeCounts)
	assert.InDelta(t, 4.0/9.0, s.StreetsPerNodeProportions[2], 1e-12)
	assert.Equal(t, 9, s.IntersectionCount)
	assert.Equal(t, 1200.0, s.StreetLengthTotal)
	assert.Equal(t, 12, s.StreetSegmentCount)
	assert.Equal(t, 100.0, s.StreetLengthAvg)
	require.NotNil(t, s.CircuityAvg)
	assert.InDelta(t, 1.0, *s.CircuityAvg, 1e-12)
	assert.Equal(t, 0.0, s.SelfLoopProportion)

	require.NotNil(t, s.CleanIntersectionCount)
	assert.Equal(t, 9, *s.CleanIntersectionCount)
	require.NotNil(t, s.NodeDensityKm)
	assert.InDelta(t, 225.0, *s.NodeDensityKm, 1e-9)
	assert.InDelta(t, 30000.0, *s.StreetDensityKm, 1e-9)
}

func TestCleanIntersectionCountMergesNearby(t *testing.T) {
	count, err := CleanIntersectionCount(gridGraph(t), 150)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBasicStatsOptionalFieldsOmitted(t *testing.T) {
	s, err := Basic(gridGraph(t), Options{})
	require.NoError(t, err)
	assert.Nil(t, s.CleanIntersectionCount)
	assert.Nil(t, s.NodeDensityKm)
}

func TestStreetsFoldReciprocalOneWays(t *testing.T) {
	g := datastructure.NewGraph(geo.UTM(49, false), true)
	g.AddNode(datastructure.Node{ID: 1, X: 0, Y: 0})
	g.AddNode(datastructure.Node{ID: 2, X: 100, Y: 0})
	_, err := g.AddEdge(datastructure.Edge{Source: 1, Target: 2, OneWay: true, Length: 100})
	require.NoError(t, err)
	_, err = g.AddEdge(datastructure.Edge{Source: 2, Target: 1, OneWay: true, Length: 100})
	require.NoError(t, err)
	// a divided carriageway with its own geometry stays separate
	_, err = g.AddEdge(datastructure.Edge{Source: 2, Target: 1, OneWay: true, Length: 120,
		Geometry: orb.LineString{{100, 0}, {50, 10}, {0, 0}}})
	require.NoError(t, err)

	assert.Len(t, Streets(g), 2)
	assert.Equal(t, map[int64]int{1: 2, 2: 2}, StreetsPerNode(g))
	assert.Equal(t, 3, g.TraversalCount())
}
