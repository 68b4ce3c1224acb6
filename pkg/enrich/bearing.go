package enrich

import (
	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/errs"
	"github.com/lintang-b-s/streetgraph/pkg/geo"
	"github.com/lintang-b-s/streetgraph/pkg/util"
)

// AddEdgeBearings tags every non self-loop edge with the compass bearing from its
// source node to its target node. Only geographic graphs are accepted.
func AddEdgeBearings(g *datastructure.Graph, precision uint) (*datastructure.Graph, error) {
	if g.CRS().IsProjected() {
		return nil, errs.NewErrorf(errs.ErrCodeUnsupportedCRS, "bearings need an unprojected graph, got %s", g.CRS())
	}
	out := g.Clone()
	for _, e := range out.Edges() {
		if e.IsSelfLoop() {
			continue
		}
		u, _ := out.NodePtr(e.Source)
		v, _ := out.NodePtr(e.Target)
		bearing := util.RoundFloat(geo.Bearing(u.Point(), v.Point()), precision)
		if bearing >= 360 {
			bearing = 0
		}
		e.Tags.Set(TagBearing, datastructure.NumberTag(bearing))
	}
	return out, nil
}
