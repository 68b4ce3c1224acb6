package rest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/geo"
	"github.com/lintang-b-s/streetgraph/pkg/server/rest/service"
	"github.com/lintang-b-s/streetgraph/pkg/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-polyline"
)

func newTestServer(t *testing.T) (*httptest.Server, *Metrics) {
	t.Helper()
	g := datastructure.NewGraph(geo.WGS84, true)
	sig := datastructure.NewTags()
	sig.Set("highway", datastructure.StringTag("traffic_signals"))
	g.AddNode(datastructure.Node{ID: 1, X: 110.360, Y: -7.800})
	g.AddNode(datastructure.Node{ID: 2, X: 110.362, Y: -7.800, Tags: sig})
	g.AddNode(datastructure.Node{ID: 3, X: 110.362, Y: -7.802})

	primary := datastructure.NewTags()
	primary.Set("highway", datastructure.StringTag("primary"))
	primary.Set("lanes", datastructure.NumberTag(2))
	_, err := g.AddEdge(datastructure.Edge{Source: 1, Target: 2, Length: 220.3, WayIDs: []int64{10}, Tags: primary})
	require.NoError(t, err)
	_, err = g.AddEdge(datastructure.Edge{Source: 2, Target: 3, Length: 222.4, OneWay: true, WayIDs: []int64{11}})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	r := chi.NewRouter()
	r.Use(PromeHttpMiddleware(m))
	GraphRouter(r, service.NewGraphService(g, nil, stats.Options{}), 10)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, m
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestNearestNodeHandler(t *testing.T) {
	srv, m := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/graph/nearest-node?lat=-7.8001&lon=110.3619")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var node NodeResponse
	decode(t, resp, &node)
	assert.Equal(t, int64(2), node.ID)
	assert.Equal(t, "traffic_signals", node.Tags["highway"])

	resp, err = http.Get(srv.URL + "/api/graph/nearest-node?lat=abc&lon=110")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/graph/nearest-node?lat=-97&lon=110")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errResp ErrResponse
	decode(t, resp, &errResp)
	assert.NotEmpty(t, errResp.ErrValidation)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/graph/nearest-node", "GET", "200")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/graph/nearest-node", "GET", "400")))
}

func TestNearestEdgesHandler(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/graph/nearest-edges", "application/json",
		strings.NewReader(`{"lat": -7.8003, "lon": 110.3618, "radius": 500, "k": 1}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body NearestEdgesResponse
	decode(t, resp, &body)
	require.Len(t, body.Edges, 1)
	e := body.Edges[0]
	assert.Equal(t, int64(2), e.Source)
	assert.Equal(t, int64(3), e.Target)
	require.NotNil(t, e.Distance)
	assert.InDelta(t, 22.0, *e.Distance, 1.0)

	coords, _, err := polyline.DecodeCoords([]byte(e.Polyline))
	require.NoError(t, err)
	require.Len(t, coords, 2)
	assert.InDelta(t, -7.800, coords[0][0], 1e-5)
	assert.InDelta(t, 110.362, coords[0][1], 1e-5)

	resp, err = http.Post(srv.URL+"/api/graph/nearest-edges", "application/json",
		strings.NewReader(`{"lat": -7.8, "lon": 110.36, "radius": -3}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Post(srv.URL+"/api/graph/nearest-edges", "application/json", strings.NewReader(`{"lat":`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestEdgeHandler(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/graph/edges/1/2/0")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var e EdgeResponse
	decode(t, resp, &e)
	assert.Equal(t, []int64{10}, e.WayIDs)
	assert.Equal(t, 2.0, e.Tags["lanes"])
	assert.Nil(t, e.Distance)

	resp, err = http.Get(srv.URL + "/api/graph/edges/2/1/0")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/graph/edges/x/1/0")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestStatsAndGraphMLHandlers(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/graph/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var s map[string]interface{}
	decode(t, resp, &s)
	assert.Equal(t, 3.0, s["n"])
	assert.Equal(t, 3.0, s["m"])

	resp, err = http.Get(srv.URL + "/api/graph/graphml")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/graphml+xml", resp.Header.Get("Content-Type"))
}
