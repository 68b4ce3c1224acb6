package components

import (
	"slices"

	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/errs"
)

// WeaklyConnected returns the components of g ignoring edge direction. Components are
// ordered by their first-inserted node, members in insertion order.
func WeaklyConnected(g *datastructure.Graph) [][]int64 {
	visited := make(map[int64]bool, g.NodeCount())
	var comps [][]int64
	for _, start := range g.NodeIDs() {
		if visited[start] {
			continue
		}
		visited[start] = true
		comp := []int64{}
		queue := []int64{start}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			comp = append(comp, v)
			for _, w := range g.Neighbors(v) {
				if !visited[w] {
					visited[w] = true
					queue = append(queue, w)
				}
			}
		}
		comps = append(comps, comp)
	}
	return comps
}

// Largest picks the biggest component, the earliest on ties.
func Largest(comps [][]int64) []int64 {
	var best []int64
	for _, c := range comps {
		if len(c) > len(best) {
			best = c
		}
	}
	return best
}

// LargestComponent returns the subgraph induced by the largest weakly or strongly
// connected component of g.
func LargestComponent(g *datastructure.Graph, strongly bool) *datastructure.Graph {
	var comps [][]int64
	if strongly {
		comps = StronglyConnected(g).Components
	} else {
		comps = WeaklyConnected(g)
	}
	return Subgraph(g, Largest(comps))
}

// Subgraph copies the given nodes and the edges between them, keeping g's order and keys.
func Subgraph(g *datastructure.Graph, ids []int64) *datastructure.Graph {
	keep := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	out := datastructure.NewGraph(g.CRS(), g.IsMulti())
	for _, n := range g.Nodes() {
		if _, ok := keep[n.ID]; ok {
			out.AddNode(*n)
		}
	}
	for _, e := range g.Edges() {
		_, okS := keep[e.Source]
		_, okT := keep[e.Target]
		if okS && okT {
			// keys are unique in g, so this cannot fail
			_, _ = out.AddEdgeWithKey(*e)
		}
	}
	return out
}

// CheckConnected returns a DisconnectedResult advisory when g has more than one weak component.
func CheckConnected(g *datastructure.Graph) error {
	comps := WeaklyConnected(g)
	if len(comps) <= 1 {
		return nil
	}
	sizes := make([]int, 0, len(comps))
	for _, c := range comps {
		sizes = append(sizes, len(c))
	}
	slices.SortFunc(sizes, func(a, b int) int { return b - a })
	return errs.NewErrorf(errs.ErrCodeDisconnectedResult,
		"graph has %d weakly connected components, largest has %d of %d nodes",
		len(comps), sizes[0], g.NodeCount())
}
