package components

import (
	"testing"

	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/errs"
	"github.com/lintang-b-s/streetgraph/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func directedGraph(t *testing.T, n int, edges [][2]int64, oneWay bool) *datastructure.Graph {
	t.Helper()
	g := datastructure.NewGraph(geo.WGS84, true)
	for i := 0; i < n; i++ {
		g.AddNode(datastructure.Node{ID: int64(10 + i), X: 110.36 + float64(i)*0.001, Y: -7.80})
	}
	for _, e := range edges {
		_, err := g.AddEdge(datastructure.Edge{Source: e[0], Target: e[1], OneWay: oneWay})
		require.NoError(t, err)
	}
	return g
}

func TestKosarajuSCC(t *testing.T) {
	g := directedGraph(t, 5, [][2]int64{
		{10, 11}, {11, 12}, {11, 14}, {12, 13}, {13, 12}, {14, 10},
	}, true)

	cond := StronglyConnected(g)
	require.Len(t, cond.Components, 2)
	assert.ElementsMatch(t, []int64{10, 11, 14}, cond.Components[0])
	assert.ElementsMatch(t, []int64{12, 13}, cond.Components[1])
	assert.Equal(t, 0, cond.SCC[14])
	assert.Equal(t, 1, cond.SCC[13])

	require.Len(t, cond.Adj, 2)
	assert.Equal(t, []int{1}, cond.Adj[0])
	assert.Empty(t, cond.Adj[1])

	largest := LargestComponent(g, true)
	assert.Equal(t, []int64{10, 11, 14}, largest.NodeIDs())
	assert.Equal(t, 3, largest.EdgeCount())
}

func TestTwoWayEdgesAreStronglyConnected(t *testing.T) {
	g := directedGraph(t, 3, [][2]int64{{10, 11}, {11, 12}}, false)
	cond := StronglyConnected(g)
	require.Len(t, cond.Components, 1)
	assert.Len(t, cond.Components[0], 3)
}

func TestWeaklyConnectedAndAdvisory(t *testing.T) {
	g := directedGraph(t, 5, [][2]int64{{10, 11}, {12, 11}, {13, 14}}, true)
	comps := WeaklyConnected(g)
	require.Len(t, comps, 2)
	assert.Equal(t, []int64{10, 11, 12}, comps[0])
	assert.Equal(t, []int64{13, 14}, comps[1])

	err := CheckConnected(g)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrDisconnectedResult)
	assert.Contains(t, err.Error(), "2 weakly connected components")

	largest := LargestComponent(g, false)
	assert.Equal(t, []int64{10, 11, 12}, largest.NodeIDs())
	assert.NoError(t, CheckConnected(largest))
}
