package components

import (
	"math"

	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/util"
)

// Condensation is the component DAG of a directed graph.
type Condensation struct {
	// node ids per component
	Components [][]int64
	// component index per node id
	SCC map[int64]int
	// edges between components, deduplicated
	Adj [][]int
}

type indexedGraph struct {
	ids []int64
	out [][]int32
	in  [][]int32
}

// index numbers nodes by insertion order and follows every traversable direction.
func index(g *datastructure.Graph) indexedGraph {
	ids := g.NodeIDs()
	idx := make(map[int64]int32, len(ids))
	for i, id := range ids {
		idx[id] = int32(i)
	}
	ig := indexedGraph{ids: ids, out: make([][]int32, len(ids)), in: make([][]int32, len(ids))}
	for i, id := range ids {
		for _, view := range g.Traversals(id) {
			to := idx[view.To()]
			ig.out[i] = append(ig.out[i], to)
			ig.in[to] = append(ig.in[to], int32(i))
		}
	}
	return ig
}

func (ig indexedGraph) dfs(v int32, output *[]int32, visited []bool, reversed bool) {
	visited[v] = true

	adj := ig.out[v]
	if reversed {
		adj = ig.in[v]
	}
	for _, to := range adj {
		if !visited[to] {
			ig.dfs(to, output, visited, reversed)
		}
	}

	*output = append(*output, v)
}

// StronglyConnected returns the condensation of g computed with kosaraju's algorithm.
func StronglyConnected(g *datastructure.Graph) Condensation {
	ig := index(g)
	n := int32(len(ig.ids))
	components := make([][]int32, 0)

	order := make([]int32, 0, n)
	visited := make([]bool, n)

	for i := int32(0); i < n; i++ {
		if !visited[i] {
			ig.dfs(i, &order, visited, false)
		}
	}

	order = util.ReverseG[int32](order)

	// reset visited
	visited = make([]bool, n)

	roots := make([]int32, n)

	for _, v := range order {
		if !visited[v] {
			component := make([]int32, 0)
			ig.dfs(v, &component, visited, true)
			components = append(components, component)
			root := int32(math.MaxInt32)
			for _, node := range component {
				if node < root {
					root = node
				}
			}

			for _, node := range component {
				roots[node] = root
			}
		}
	}

	cond := Condensation{SCC: make(map[int64]int, n), Adj: make([][]int, len(components))}
	sccOf := make([]int, n)
	for i, component := range components {
		ids := make([]int64, 0, len(component))
		for _, v := range component {
			sccOf[v] = i
			ids = append(ids, ig.ids[v])
			cond.SCC[ig.ids[v]] = i
		}
		cond.Components = append(cond.Components, ids)
	}

	seen := make(map[[2]int]struct{})
	for v := int32(0); v < n; v++ {
		for _, to := range ig.out[v] {
			if roots[v] == roots[to] {
				continue
			}
			pair := [2]int{sccOf[v], sccOf[to]}
			if _, ok := seen[pair]; ok {
				continue
			}
			seen[pair] = struct{}{}
			cond.Adj[pair[0]] = append(cond.Adj[pair[0]], pair[1])
		}
	}
	return cond
}
