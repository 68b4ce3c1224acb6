package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/server/rest/service"
	"github.com/lintang-b-s/streetgraph/pkg/stats"
	"github.com/paulmach/orb"
	"github.com/twpayne/go-polyline"
)

type GraphService interface {
	Stats(ctx context.Context) (stats.BasicStats, error)
	NearestNode(ctx context.Context, lat, lon float64) (service.NodeResult, error)
	NearestEdges(ctx context.Context, lat, lon, radius float64, k int) ([]service.EdgeResult, error)
	Edge(ctx context.Context, key datastructure.EdgeKey) (service.EdgeResult, error)
	WriteGraphML(ctx context.Context, w io.Writer) error
}

type GraphHandler struct {
	svc GraphService
	// upper bound and default for k in nearest edge queries
	maxResults int
	validate   *validator.Validate
	trans      ut.Translator
}

func GraphRouter(r *chi.Mux, svc GraphService, maxResults int) {
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	validate := validator.New()
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)

	handler := &GraphHandler{svc: svc, maxResults: maxResults, validate: validate, trans: trans}

	r.Group(func(r chi.Router) {
		r.Route("/api/graph", func(r chi.Router) {
			r.Get("/stats", handler.Stats)
			r.Get("/nearest-node", handler.NearestNode)
			r.Post("/nearest-edges", handler.NearestEdges)
			r.Get("/edges/{source}/{target}/{key}", handler.Edge)
			r.Get("/graphml", handler.ExportGraphML)
		})
	})
}

// Coord model info
//
//	@Description	coordinate in EPSG:4326
type Coord struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

func tagsToJSON(tags datastructure.Tags) map[string]interface{} {
	out := make(map[string]interface{}, tags.Len())
	for _, k := range tags.Keys() {
		v, _ := tags.Get(k)
		switch v.Kind() {
		case datastructure.KindNumber:
			out[k], _ = v.AsNumber()
		case datastructure.KindBool:
			out[k], _ = v.AsBool()
		case datastructure.KindStringList:
			out[k], _ = v.AsStringList()
		default:
			out[k] = v.String()
		}
	}
	return out
}

func encodePolyline(ls orb.LineString) string {
	coords := make([][]float64, 0, len(ls))
	for _, p := range ls {
		coords = append(coords, []float64{p.Lat(), p.Lon()})
	}
	return string(polyline.EncodeCoords(coords))
}

// Stats
//
//	@Summary	descriptive statistics of the served graph
//	@Tags		graph
//	@Produce	application/json
//	@Router		/graph/stats [get]
//	@Success	200	{object}	stats.BasicStats
//	@Failure	500	{object}	ErrResponse
func (h *GraphHandler) Stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Stats(r.Context())
	if err != nil {
		render.Render(w, r, ErrorRenderer(err))
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, s)
}

// NodeResponse model info
//
//	@Description	nearest node response
type NodeResponse struct {
	ID       int64                  `json:"id"`
	Lat      float64                `json:"lat"`
	Lon      float64                `json:"lon"`
	Distance float64                `json:"distance"`
	Tags     map[string]interface{} `json:"tags,omitempty"`
}

// NearestNode
//
//	@Summary	node closest to a coordinate
//	@Tags		graph
//	@Param		lat	query	number	true	"latitude"
//	@Param		lon	query	number	true	"longitude"
//	@Produce	application/json
//	@Router		/graph/nearest-node [get]
//	@Success	200	{object}	NodeResponse
//	@Failure	400	{object}	ErrResponse
//	@Failure	404	{object}	ErrResponse
func (h *GraphHandler) NearestNode(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if errLat != nil || errLon != nil {
		render.Render(w, r, ErrInvalidRequest(errors.New("lat and lon query parameters are required numbers")))
		return
	}
	coord := Coord{Lat: lat, Lon: lon}
	if err := h.validate.Struct(coord); err != nil {
		render.Render(w, r, ErrValidation(err, translateError(err, h.trans)))
		return
	}

	n, err := h.svc.NearestNode(r.Context(), lat, lon)
	if err != nil {
		render.Render(w, r, ErrorRenderer(err))
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, NodeResponse{ID: n.ID, Lat: n.Lat, Lon: n.Lon, Distance: n.Distance, Tags: tagsToJSON(n.Tags)})
}

// NearestEdgesRequest model info
//
//	@Description	request body for nearest edges. radius 0 returns the single nearest edge
type NearestEdgesRequest struct {
	Lat    float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon    float64 `json:"lon" validate:"gte=-180,lte=180"`
	Radius float64 `json:"radius" validate:"gte=0"`
	K      int     `json:"k" validate:"gte=0"`
}

func (s *NearestEdgesRequest) Bind(r *http.Request) error {
	return nil
}

// EdgeResponse model info
//
//	@Description	edge with its geometry as an encoded polyline
type EdgeResponse struct {
	Source   int64                  `json:"source"`
	Target   int64                  `json:"target"`
	Key      int                    `json:"key"`
	WayIDs   []int64                `json:"way_ids"`
	Length   float64                `json:"length"`
	OneWay   bool                   `json:"oneway"`
	Polyline string                 `json:"polyline"`
	Tags     map[string]interface{} `json:"tags,omitempty"`
	Distance *float64               `json:"distance,omitempty"`
	Snapped  *Coord                 `json:"snapped,omitempty"`
}

func RenderEdgeResponse(e service.EdgeResult, withMatch bool) EdgeResponse {
	resp := EdgeResponse{
		Source:   e.Key.Source,
		Target:   e.Key.Target,
		Key:      e.Key.Key,
		WayIDs:   e.WayIDs,
		Length:   e.Length,
		OneWay:   e.OneWay,
		Polyline: encodePolyline(e.Geometry),
		Tags:     tagsToJSON(e.Tags),
	}
	if withMatch {
		d := e.Distance
		resp.Distance = &d
		resp.Snapped = &Coord{Lat: e.Snapped.Lat(), Lon: e.Snapped.Lon()}
	}
	return resp
}

// NearestEdgesResponse model info
//
//	@Description	response body for nearest edges
type NearestEdgesResponse struct {
	Edges []EdgeResponse `json:"edges"`
}

// NearestEdges
//
//	@Summary	edges closest to a coordinate
//	@Tags		graph
//	@Param		body	body	NearestEdgesRequest	true	"query point, radius in meters and result limit"
//	@Accept		application/json
//	@Produce	application/json
//	@Router		/graph/nearest-edges [post]
//	@Success	200	{object}	NearestEdgesResponse
//	@Failure	400	{object}	ErrResponse
//	@Failure	500	{object}	ErrResponse
func (h *GraphHandler) NearestEdges(w http.ResponseWriter, r *http.Request) {
	data := &NearestEdgesRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if err := h.validate.Struct(*data); err != nil {
		render.Render(w, r, ErrValidation(err, translateError(err, h.trans)))
		return
	}
	k := data.K
	if h.maxResults > 0 && (k == 0 || k > h.maxResults) {
		k = h.maxResults
	}

	edges, err := h.svc.NearestEdges(r.Context(), data.Lat, data.Lon, data.Radius, k)
	if err != nil {
		render.Render(w, r, ErrorRenderer(err))
		return
	}
	resp := NearestEdgesResponse{Edges: make([]EdgeResponse, 0, len(edges))}
	for _, e := range edges {
		resp.Edges = append(resp.Edges, RenderEdgeResponse(e, true))
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

// Edge
//
//	@Summary	one edge by its (source, target, key) triple
//	@Tags		graph
//	@Produce	application/json
//	@Router		/graph/edges/{source}/{target}/{key} [get]
//	@Success	200	{object}	EdgeResponse
//	@Failure	400	{object}	ErrResponse
//	@Failure	404	{object}	ErrResponse
func (h *GraphHandler) Edge(w http.ResponseWriter, r *http.Request) {
	source, err1 := strconv.ParseInt(chi.URLParam(r, "source"), 10, 64)
	target, err2 := strconv.ParseInt(chi.URLParam(r, "target"), 10, 64)
	key, err3 := strconv.Atoi(chi.URLParam(r, "key"))
	if err := errors.Join(err1, err2, err3); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	e, err := h.svc.Edge(r.Context(), datastructure.EdgeKey{Source: source, Target: target, Key: key})
	if err != nil {
		render.Render(w, r, ErrorRenderer(err))
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, RenderEdgeResponse(e, false))
}

// ExportGraphML
//
//	@Summary	the served graph as GraphML
//	@Tags		graph
//	@Produce	application/xml
//	@Router		/graph/graphml [get]
//	@Success	200
func (h *GraphHandler) ExportGraphML(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/graphml+xml")
	w.Header().Set("Content-Disposition", `attachment; filename="graph.graphml"`)
	if err := h.svc.WriteGraphML(r.Context(), w); err != nil {
		render.Render(w, r, ErrInternalServerErrorRend(err))
	}
}
