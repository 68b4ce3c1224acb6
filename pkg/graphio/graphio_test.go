package graphio

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/geo"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGraph(t *testing.T) *datastructure.Graph {
	t.Helper()
	g := datastructure.NewGraph(geo.UTM(49, false), true)

	junction := datastructure.NewTags()
	junction.Set("highway", datastructure.StringTag("traffic_signals"))
	junction.Set("street_count", datastructure.NumberTag(3))
	junction.Set("consolidated_ids", datastructure.StringListTag([]string{"4", "5"}))

	g.AddNode(datastructure.Node{ID: 1, X: 430000.1, Y: 9137000.3, Tags: junction})
	g.AddNode(datastructure.Node{ID: 2, X: 430100.00000000006, Y: 9137000.3})
	g.AddNode(datastructure.Node{ID: 3, X: 0.1 + 0.2, Y: 9137100})

	primary := datastructure.NewTags()
	primary.Set("highway", datastructure.StringTag("primary"))
	primary.Set("name", datastructure.StringTag("Jalan Malioboro <A&B>"))
	primary.Set("lit", datastructure.BoolTag(true))
	primary.Set("lanes", datastructure.NumberTag(2))

	_, err := g.AddEdge(datastructure.Edge{
		Source: 1, Target: 2,
		Geometry: orb.LineString{{430000.1, 9137000.3}, {430050.25, 9137010}, {430100.00000000006, 9137000.3}},
		Length:   102.03960785019146,
		OneWay:   true,
		WayIDs:   []int64{10, 11},
		Tags:     primary,
		Warnings: []string{"self_intersecting"},
	})
	require.NoError(t, err)

	service := datastructure.NewTags()
	service.Set("highway", datastructure.StringTag("service"))
	service.Set("lanes", datastructure.StringTag("2;3"))
	// parallel edge between the same pair
	_, err = g.AddEdge(datastructure.Edge{Source: 1, Target: 2, Length: 99.9, Reversed: true, WayIDs: []int64{12}, Tags: service})
	require.NoError(t, err)
	_, err = g.AddEdge(datastructure.Edge{
		Source: 3, Target: 3,
		Geometry: orb.LineString{{0.1 + 0.2, 9137100}, {10, 9137110}, {20, 9137100}, {0.1 + 0.2, 9137100}},
		Length:   40,
		WayIDs:   []int64{13},
	})
	require.NoError(t, err)
	return g
}

func assertSameGraph(t *testing.T, want, got *datastructure.Graph) {
	t.Helper()
	assert.Equal(t, want.CRS(), got.CRS())
	assert.Equal(t, want.IsMulti(), got.IsMulti())
	require.Equal(t, want.NodeIDs(), got.NodeIDs())
	for _, wn := range want.Nodes() {
		gn, ok := got.Node(wn.ID)
		require.True(t, ok)
		assert.Equal(t, wn.X, gn.X)
		assert.Equal(t, wn.Y, gn.Y)
		assert.True(t, wn.Tags.Equal(gn.Tags), "node %d tags", wn.ID)
		assert.Equal(t, wn.Tags.Keys(), gn.Tags.Keys())
	}

	wantEdges, gotEdges := want.Edges(), got.Edges()
	require.Len(t, gotEdges, len(wantEdges))
	for i, we := range wantEdges {
		ge := gotEdges[i]
		assert.Equal(t, we.EdgeKey(), ge.EdgeKey())
		assert.Equal(t, we.Geometry, ge.Geometry)
		assert.Equal(t, we.Length, ge.Length)
		assert.Equal(t, we.OneWay, ge.OneWay)
		assert.Equal(t, we.Reversed, ge.Reversed)
		assert.ElementsMatch(t, we.WayIDs, ge.WayIDs)
		assert.ElementsMatch(t, we.Warnings, ge.Warnings)
		assert.True(t, we.Tags.Equal(ge.Tags), "edge %s tags", we.EdgeKey())
		assert.Equal(t, we.Tags.Keys(), ge.Tags.Keys())
	}
}

func TestGraphMLRoundTrip(t *testing.T) {
	g := sampleGraph(t)

	var buf bytes.Buffer
	require.NoError(t, WriteGraphML(&buf, g))
	doc := buf.String()
	assert.Contains(t, doc, `attr.list="string"`)
	assert.Contains(t, doc, "EPSG:32749")

	got, err := ReadGraphML(strings.NewReader(doc))
	require.NoError(t, err)
	assertSameGraph(t, g, got)
	require.NoError(t, got.Validate())

	// the second edge of the pair keeps key 1
	_, ok := got.Edge(datastructure.EdgeKey{Source: 1, Target: 2, Key: 1})
	assert.True(t, ok)

	lanes, _ := got.Edges()[0].Tags.Get("lanes")
	assert.Equal(t, datastructure.KindNumber, lanes.Kind())
	lanes, _ = got.Edges()[1].Tags.Get("lanes")
	assert.Equal(t, datastructure.KindString, lanes.Kind())
}

func TestGraphMLKeepsWhitespaceAndMarkup(t *testing.T) {
	g := datastructure.NewGraph(geo.WGS84, true)
	tags := datastructure.NewTags()
	tags.Set("note", datastructure.StringTag("line1\r\nline2"))
	tags.Set("name\tlocal", datastructure.StringTag("  padded\t"))
	tags.Set("quote", datastructure.StringTag(`"a" & 'b' <c>`))
	tags.Set("replacement", datastructure.StringTag("\uFFFD"))
	tags.Set("alt", datastructure.StringListTag([]string{"x\ry", "</data>"}))
	g.AddNode(datastructure.Node{ID: 1, X: 110.36, Y: -7.8, Tags: tags})

	var buf bytes.Buffer
	require.NoError(t, WriteGraphML(&buf, g))
	got, err := ReadGraphML(strings.NewReader(buf.String()))
	require.NoError(t, err)

	n, ok := got.Node(1)
	require.True(t, ok)
	assert.True(t, tags.Equal(n.Tags), "got %v", n.Tags)
	note, _ := n.Tags.Get("note")
	text, _ := note.AsString()
	assert.Equal(t, "line1\r\nline2", text)
}

func TestWriteGraphMLRejectsUnencodableText(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value datastructure.TagValue
	}{
		{name: "control character", key: "note", value: datastructure.StringTag("a\x01b")},
		{name: "invalid utf-8", key: "note", value: datastructure.StringTag("\xff\xfe")},
		{name: "nul in list", key: "alt", value: datastructure.StringListTag([]string{"ok", "a\x00"})},
		{name: "control character in key", key: "no\x02te", value: datastructure.StringTag("x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := datastructure.NewGraph(geo.WGS84, true)
			g.AddNode(datastructure.Node{ID: 1, X: 110.36, Y: -7.8})
			tags := datastructure.NewTags()
			tags.Set(tt.key, tt.value)
			g.AddNode(datastructure.Node{ID: 2, X: 110.37, Y: -7.8})
			_, err := g.AddEdge(datastructure.Edge{Source: 1, Target: 2, Tags: tags})
			require.NoError(t, err)

			var buf bytes.Buffer
			err = WriteGraphML(&buf, g)
			assert.ErrorIs(t, err, ErrUnencodableText)
			assert.Zero(t, buf.Len())
		})
	}
}

func TestGraphMLFile(t *testing.T) {
	g := sampleGraph(t)
	path := filepath.Join(t.TempDir(), "graph.graphml")
	require.NoError(t, SaveGraphML(path, g))

	got, err := LoadGraphML(path)
	require.NoError(t, err)
	assertSameGraph(t, g, got)
}

func TestReadGraphMLInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not xml", "<graphml"},
		{"no graph", `<graphml xmlns="http://graphml.graphdrawing.org/xmlns"></graphml>`},
		{"no coordinates", `<graphml><key id="d_x" for="node" attr.name="x" attr.type="double"/><graph><node id="1"><data key="d_x">1</data></node></graph></graphml>`},
		{"undeclared key", `<graphml><graph><node id="1"><data key="zz">1</data></node></graph></graphml>`},
		{"bad node id", `<graphml><graph><node id="a"/></graph></graphml>`},
		{"dangling edge", `<graphml><key id="d_x" for="node" attr.name="x" attr.type="double"/><key id="d_y" for="node" attr.name="y" attr.type="double"/>` +
			`<graph><node id="1"><data key="d_x">1</data><data key="d_y">2</data></node><edge source="1" target="9"/></graph></graphml>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadGraphML(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidGraphML)
		})
	}
}

func TestReadGraphMLComputesMissingLength(t *testing.T) {
	doc := `<graphml>
<key id="d_crs" for="graph" attr.name="crs" attr.type="string"/>
<key id="d_x" for="node" attr.name="x" attr.type="double"/>
<key id="d_y" for="node" attr.name="y" attr.type="double"/>
<key id="e0" for="edge" attr.name="maxspeed" attr.type="long"/>
<graph edgedefault="directed">
<data key="d_crs">EPSG:3857</data>
<node id="1"><data key="d_x">0</data><data key="d_y">0</data></node>
<node id="2"><data key="d_x">3</data><data key="d_y">4</data></node>
<edge source="1" target="2"><data key="e0">50</data></edge>
</graph>
</graphml>`
	g, err := ReadGraphML(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, geo.WebMercator, g.CRS())
	e, ok := g.Edge(datastructure.EdgeKey{Source: 1, Target: 2})
	require.True(t, ok)
	// mercator units are scaled back to ground meters
	assert.InDelta(t, 5.0*6371009/6378137, e.Length, 1e-6)
	speed, _ := e.Tags.Get("maxspeed")
	n, ok := speed.AsNumber()
	assert.True(t, ok)
	assert.Equal(t, 50.0, n)
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := sampleGraph(t)

	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, g))
	got, err := ReadSnapshot(&buf)
	require.NoError(t, err)
	assertSameGraph(t, g, got)

	path := filepath.Join(t.TempDir(), "graph.snap")
	require.NoError(t, SaveSnapshot(path, g))
	got, err = LoadSnapshot(path)
	require.NoError(t, err)
	assertSameGraph(t, g, got)
}

func TestReadSnapshotGarbage(t *testing.T) {
	_, err := ReadSnapshot(strings.NewReader("definitely not zstd"))
	assert.Error(t, err)
}
