package consolidator

import (
	"fmt"
	"math"
	"sort"
	"testing"

	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/errs"
	"github.com/lintang-b-s/streetgraph/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

const (
	baseLon = 110.36
	baseLat = -7.80
	// degrees of longitude per meter at baseLat
	lonPerMeter = 1 / 110170.0
	latPerMeter = 1 / 111195.0
)

type testEdge struct {
	u, v int64
}

func nearPairGraph(t *testing.T, nodeOrder []int, edgeOrder []int) *datastructure.Graph {
	t.Helper()
	nodes := []datastructure.Node{
		{ID: 1, X: baseLon, Y: baseLat},
		{ID: 2, X: baseLon + 0.3*lonPerMeter, Y: baseLat},
		{ID: 3, X: baseLon - 100*lonPerMeter, Y: baseLat},
		{ID: 4, X: baseLon + 0.3*lonPerMeter, Y: baseLat + 100*latPerMeter},
		{ID: 5, X: baseLon + 100*lonPerMeter, Y: baseLat},
	}
	edges := []testEdge{{3, 1}, {1, 2}, {2, 4}, {2, 5}}

	g := datastructure.NewGraph(geo.WGS84, true)
	for _, i := range nodeOrder {
		g.AddNode(nodes[i])
	}
	for _, i := range edgeOrder {
		e := edges[i]
		u, _ := g.NodePtr(e.u)
		v, _ := g.NodePtr(e.v)
		_, err := g.AddEdge(datastructure.Edge{
			Source: e.u,
			Target: e.v,
			Length: geo.GreatCircleDistance(u.Point(), v.Point()),
		})
		require.NoError(t, err)
	}
	return g
}

func TestConsolidateNearPair(t *testing.T) {
	g := nearPairGraph(t, []int{0, 1, 2, 3, 4}, []int{0, 1, 2, 3})
	out, report, err := NewConsolidator(1, nil).Consolidate(g)
	require.NoError(t, err)

	require.Len(t, report.Clusters, 1)
	assert.Equal(t, []int64{1, 2}, report.Clusters[0].Members)
	assert.Equal(t, int64(6), report.Clusters[0].Node)
	assert.Equal(t, 1, report.EdgesDropped)
	assert.Equal(t, 3, report.EdgesRewired)
	assert.Equal(t, map[int64]int64{1: 6, 2: 6}, report.Mapping())

	assert.False(t, out.HasNode(1))
	assert.False(t, out.HasNode(2))
	n, ok := out.Node(6)
	require.True(t, ok)
	assert.InDelta(t, baseLon+0.15*lonPerMeter, n.X, 1e-12)
	ids, ok := n.Tags.Get(TagConsolidatedIDs)
	require.True(t, ok)
	list, _ := ids.AsStringList()
	assert.Equal(t, []string{"1", "2"}, list)

	assert.Equal(t, 3, out.EdgeCount())
	assert.True(t, out.HasEdge(datastructure.EdgeKey{Source: 3, Target: 6}))
	assert.True(t, out.HasEdge(datastructure.EdgeKey{Source: 6, Target: 4}))
	assert.True(t, out.HasEdge(datastructure.EdgeKey{Source: 6, Target: 5}))
	assert.Equal(t, 3, out.Degree(6))
	require.NoError(t, out.Validate())

	e, _ := out.Edge(datastructure.EdgeKey{Source: 3, Target: 6})
	assert.Len(t, e.Geometry, 3)
	assert.InDelta(t, 100.15, e.Length, 0.2)

	// input untouched
	assert.Equal(t, 5, g.NodeCount())
	assert.Equal(t, 4, g.EdgeCount())
}

func TestConsolidateInvalidTolerance(t *testing.T) {
	g := nearPairGraph(t, []int{0, 1, 2, 3, 4}, []int{0, 1, 2, 3})
	for _, tol := range []float64{0, -1, math.NaN()} {
		_, _, err := NewConsolidator(tol, nil).Consolidate(g)
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrInvalidTolerance)
	}
}

func TestConsolidateNothingNear(t *testing.T) {
	g := nearPairGraph(t, []int{0, 1, 2, 3, 4}, []int{0, 1, 2, 3})
	out, report, err := NewConsolidator(0.1, nil).Consolidate(g)
	require.NoError(t, err)
	assert.Empty(t, report.Clusters)
	assert.Equal(t, g.NodeIDs(), out.NodeIDs())
	assert.Equal(t, g.EdgeCount(), out.EdgeCount())
}

func TestConsolidateRepresentative(t *testing.T) {
	g := nearPairGraph(t, []int{0, 1, 2, 3, 4}, []int{0, 1, 2, 3})
	c := NewConsolidator(1, nil)
	c.Placement = Representative
	out, report, err := c.Consolidate(g)
	require.NoError(t, err)

	// node 2 has degree 3, node 1 degree 2
	require.Len(t, report.Clusters, 1)
	assert.Equal(t, int64(2), report.Clusters[0].Node)
	assert.False(t, out.HasNode(1))
	assert.Equal(t, []int64{2, 3, 4, 5}, out.NodeIDs())
	assert.True(t, out.HasEdge(datastructure.EdgeKey{Source: 3, Target: 2}))
	assert.Equal(t, 3, out.Degree(2))
	require.NoError(t, out.Validate())
}

func TestConsolidateWithoutConnectingEdge(t *testing.T) {
	g := nearPairGraph(t, []int{0, 1, 2, 3, 4}, []int{0, 2, 3})
	_, report, err := NewConsolidator(1, nil).Consolidate(g)
	require.NoError(t, err)
	assert.Empty(t, report.Clusters)

	c := NewConsolidator(1, nil)
	c.RequireConnectingEdge = false
	out, report, err := c.Consolidate(g)
	require.NoError(t, err)
	require.Len(t, report.Clusters, 1)
	assert.Equal(t, []int64{1, 2}, report.Clusters[0].Members)
	assert.Equal(t, 3, out.EdgeCount())
}

type edgeShape struct {
	source, target int64
	geometry       string
}

func shapeOf(g *datastructure.Graph) ([]int64, []edgeShape) {
	ids := g.NodeIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var shapes []edgeShape
	for _, e := range g.Edges() {
		shapes = append(shapes, edgeShape{source: e.Source, target: e.Target, geometry: fmt.Sprint(e.Geometry)})
	}
	sort.Slice(shapes, func(i, j int) bool {
		if shapes[i].source != shapes[j].source {
			return shapes[i].source < shapes[j].source
		}
		return shapes[i].target < shapes[j].target
	})
	return ids, shapes
}

func TestConsolidateOrderIndependent(t *testing.T) {
	want := nearPairGraph(t, []int{0, 1, 2, 3, 4}, []int{0, 1, 2, 3})
	wantOut, _, err := NewConsolidator(1, nil).Consolidate(want)
	require.NoError(t, err)
	wantIDs, wantShapes := shapeOf(wantOut)

	rand.Seed(42)
	for i := 0; i < 20; i++ {
		nodeOrder := rand.Perm(5)
		edgeOrder := rand.Perm(4)
		g := nearPairGraph(t, nodeOrder, edgeOrder)
		out, _, err := NewConsolidator(1, nil).Consolidate(g)
		require.NoError(t, err)
		ids, shapes := shapeOf(out)
		assert.Equal(t, wantIDs, ids)
		assert.Equal(t, wantShapes, shapes)
	}
}

func TestConsolidateProjectedChain(t *testing.T) {
	g := datastructure.NewGraph(geo.UTM(49, false), true)
	for i := int64(1); i <= 4; i++ {
		g.AddNode(datastructure.Node{ID: i, X: float64(i-1) * 0.5, Y: 0})
	}
	g.AddNode(datastructure.Node{ID: 10, X: 50, Y: 0})
	for _, e := range []testEdge{{1, 2}, {2, 3}, {3, 4}, {4, 10}} {
		u, _ := g.NodePtr(e.u)
		v, _ := g.NodePtr(e.v)
		_, err := g.AddEdge(datastructure.Edge{Source: e.u, Target: e.v, Length: geo.Distance(u.Point(), v.Point(), g.CRS())})
		require.NoError(t, err)
	}

	out, report, err := NewConsolidator(1, nil).Consolidate(g)
	require.NoError(t, err)
	require.Len(t, report.Clusters, 1)
	assert.Equal(t, []int64{1, 2, 3, 4}, report.Clusters[0].Members)
	assert.Equal(t, int64(11), report.Clusters[0].Node)
	n, _ := out.Node(11)
	assert.Equal(t, 0.75, n.X)
	assert.Equal(t, 1, out.EdgeCount())
	e := out.Edges()[0]
	assert.InDelta(t, 49.25, e.Length, 1e-9)
}
