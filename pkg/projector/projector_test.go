package projector

import (
	"testing"

	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/errs"
	"github.com/lintang-b-s/streetgraph/pkg/geo"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wroge/wgs84"
)

func sampleGraph(t *testing.T) *datastructure.Graph {
	t.Helper()
	g := datastructure.NewGraph(geo.WGS84, true)
	g.AddNode(datastructure.Node{ID: 1, X: 110.3650, Y: -7.7950})
	g.AddNode(datastructure.Node{ID: 2, X: 110.3700, Y: -7.7960})
	g.AddNode(datastructure.Node{ID: 3, X: 110.3720, Y: -7.8010})
	geom := orb.LineString{{110.3650, -7.7950}, {110.3680, -7.7940}, {110.3700, -7.7960}}
	_, err := g.AddEdge(datastructure.Edge{Source: 1, Target: 2, Geometry: geom, Length: geo.LineLength(geom, geo.WGS84)})
	require.NoError(t, err)
	_, err = g.AddEdge(datastructure.Edge{Source: 2, Target: 3, OneWay: true, Length: 560})
	require.NoError(t, err)
	return g
}

func TestProjectRoundTrip(t *testing.T) {
	p := NewProjector(nil)
	for _, target := range []string{"EPSG:3857", "EPSG:32749", "utm"} {
		t.Run(target, func(t *testing.T) {
			g := sampleGraph(t)
			projected, err := p.Project(g, target)
			require.NoError(t, err)
			assert.True(t, projected.CRS().IsProjected())
			require.NoError(t, projected.Validate())

			back, err := p.ToLatLong(projected)
			require.NoError(t, err)
			assert.Equal(t, geo.WGS84, back.CRS())

			orig := g.Nodes()
			for i, n := range back.Nodes() {
				assert.InDelta(t, orig[i].X, n.X, 1e-9)
				assert.InDelta(t, orig[i].Y, n.Y, 1e-9)
			}
			origEdges := g.Edges()
			for i, e := range back.Edges() {
				require.Len(t, e.Geometry, len(origEdges[i].Geometry))
				for j := range e.Geometry {
					assert.InDelta(t, origEdges[i].Geometry[j][0], e.Geometry[j][0], 1e-9)
					assert.InDelta(t, origEdges[i].Geometry[j][1], e.Geometry[j][1], 1e-9)
				}
			}
		})
	}
}

func TestProjectAutoPicksUTMZone(t *testing.T) {
	g := sampleGraph(t)
	p := NewProjector(nil)
	crs, err := p.Resolve(g, "auto")
	require.NoError(t, err)
	assert.Equal(t, geo.UTM(49, false), crs)

	projected, err := p.ProjectTo(g, crs)
	require.NoError(t, err)
	// planar lengths in utm stay close to the great-circle lengths
	for i, e := range projected.Edges() {
		want := geo.LineLength(g.Edges()[i].Geometry, geo.WGS84)
		assert.InDelta(t, want, e.Length, want*0.001)
	}
}

func TestProjectWebMercatorKeepsGroundLengths(t *testing.T) {
	g := datastructure.NewGraph(geo.WGS84, true)
	g.AddNode(datastructure.Node{ID: 1, X: 10, Y: 60})
	g.AddNode(datastructure.Node{ID: 2, X: 10.018, Y: 60})
	_, err := g.AddEdge(datastructure.Edge{Source: 1, Target: 2, Length: geo.LineLength(orb.LineString{{10, 60}, {10.018, 60}}, geo.WGS84)})
	require.NoError(t, err)

	projected, err := NewProjector(nil).Project(g, "EPSG:3857")
	require.NoError(t, err)

	toMercator := wgs84.EPSG().Transform(4326, 3857)
	for i, n := range projected.Nodes() {
		x, y, _ := toMercator(g.Nodes()[i].X, g.Nodes()[i].Y, 0)
		assert.InDelta(t, x, n.X, 1e-3)
		assert.InDelta(t, y, n.Y, 1e-3)
	}

	e := projected.Edges()[0]
	assert.InDelta(t, 1000.76, e.Length, 0.05)
	assert.InDelta(t, g.Edges()[0].Length, e.Length, 1e-6)
}

func TestProjectSameCRSIsIdentity(t *testing.T) {
	g := sampleGraph(t)
	out, err := NewProjector(nil).Project(g, "EPSG:4326")
	require.NoError(t, err)
	assert.NotSame(t, g, out)
	for i, n := range out.Nodes() {
		assert.Equal(t, g.Nodes()[i].X, n.X)
		assert.Equal(t, g.Nodes()[i].Y, n.Y)
	}
	assert.Equal(t, g.Edges()[1].Length, out.Edges()[1].Length)
}

func TestProjectUnsupportedCRS(t *testing.T) {
	g := sampleGraph(t)
	p := NewProjector(nil)
	for _, target := range []string{"EPSG:32661", "EPSG:2154", "ESRI:102003", "lambert"} {
		_, err := p.Project(g, target)
		require.Error(t, err, target)
		assert.ErrorIs(t, err, errs.ErrUnsupportedCRS)
	}
	assert.Equal(t, geo.WGS84, g.CRS())
	assert.Equal(t, 110.3650, g.Nodes()[0].X)

	foreign := datastructure.NewGraph(geo.CRS{EPSG: 2154}, true)
	foreign.AddNode(datastructure.Node{ID: 1, X: 650000, Y: 6860000})
	_, err := p.ToLatLong(foreign)
	assert.ErrorIs(t, err, errs.ErrUnsupportedCRS)
	_, err = p.Project(datastructure.NewGraph(geo.WGS84, true), "auto")
	assert.ErrorIs(t, err, errs.ErrUnsupportedCRS)
}

func TestProjectDoesNotMutateInput(t *testing.T) {
	g := sampleGraph(t)
	_, err := NewProjector(nil).Project(g, "EPSG:3857")
	require.NoError(t, err)
	assert.Equal(t, geo.WGS84, g.CRS())
	assert.Equal(t, orb.Point{110.3680, -7.7940}, g.Edges()[0].Geometry[1])
}

func TestProjectPoint(t *testing.T) {
	p := orb.Point{110.365, -7.801}
	utm, err := ProjectPoint(p, geo.WGS84, geo.UTM(49, false))
	require.NoError(t, err)
	back, err := ProjectPoint(utm, geo.UTM(49, false), geo.WGS84)
	require.NoError(t, err)
	assert.InDelta(t, p[0], back[0], 1e-9)
	assert.InDelta(t, p[1], back[1], 1e-9)

	same, err := ProjectPoint(p, geo.WGS84, geo.WGS84)
	require.NoError(t, err)
	assert.Equal(t, p, same)

	_, err = ProjectPoint(p, geo.WGS84, geo.CRS{EPSG: 2154})
	assert.ErrorIs(t, err, errs.ErrUnsupportedCRS)
}
