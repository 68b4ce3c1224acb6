package projector

import (
	"strings"

	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/errs"
	"github.com/lintang-b-s/streetgraph/pkg/geo"
	"github.com/lintang-b-s/streetgraph/pkg/logger"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"go.uber.org/zap"
)

type Projector struct {
	logger *zap.Logger
}

func NewProjector(logger *zap.Logger) *Projector {
	return &Projector{logger: logger}
}

type transform func(orb.Point) orb.Point

// IsSupported reports whether crs can be projected to and from.
func IsSupported(crs geo.CRS) bool {
	if crs.IsGeographic() || crs.IsWebMercator() {
		return true
	}
	_, _, ok := crs.UTMZone()
	return ok
}

// Resolve turns a target descriptor into a crs for g. "auto" and "utm" pick the
// UTM zone containing the graph's centroid.
func (p *Projector) Resolve(g *datastructure.Graph, target string) (geo.CRS, error) {
	switch strings.ToLower(strings.TrimSpace(target)) {
	case "auto", "utm":
		return p.autoUTM(g)
	}
	crs, err := geo.ParseCRS(target)
	if err != nil {
		return geo.CRS{}, errs.WrapErrorf(err, errs.ErrCodeUnsupportedCRS, "cannot resolve %q", target)
	}
	if !IsSupported(crs) {
		return geo.CRS{}, errs.NewErrorf(errs.ErrCodeUnsupportedCRS, "cannot resolve %s", crs)
	}
	return crs, nil
}

func (p *Projector) autoUTM(g *datastructure.Graph) (geo.CRS, error) {
	if g.NodeCount() == 0 {
		return geo.CRS{}, errs.NewErrorf(errs.ErrCodeUnsupportedCRS, "cannot pick a utm zone for an empty graph")
	}
	toLatLon, err := inverse(g.CRS())
	if err != nil {
		return geo.CRS{}, err
	}
	pts := make([]orb.Point, 0, g.NodeCount())
	for _, n := range g.Nodes() {
		pts = append(pts, toLatLon(n.Point()))
	}
	c := geo.Centroid(pts)
	return geo.UTM(geo.UTMZoneForLon(c.Lon()), c.Lat() >= 0), nil
}

// Project returns a copy of g in the target crs. g is never modified.
func (p *Projector) Project(g *datastructure.Graph, target string) (*datastructure.Graph, error) {
	crs, err := p.Resolve(g, target)
	if err != nil {
		return nil, err
	}
	return p.ProjectTo(g, crs)
}

// ToLatLong returns a copy of g in EPSG:4326.
func (p *Projector) ToLatLong(g *datastructure.Graph) (*datastructure.Graph, error) {
	return p.ProjectTo(g, geo.WGS84)
}

func (p *Projector) ProjectTo(g *datastructure.Graph, crs geo.CRS) (*datastructure.Graph, error) {
	log := logger.OrNop(p.logger)
	if !IsSupported(crs) {
		return nil, errs.NewErrorf(errs.ErrCodeUnsupportedCRS, "cannot resolve %s", crs)
	}
	if crs == g.CRS() {
		return g.Clone(), nil
	}

	toLatLon, err := inverse(g.CRS())
	if err != nil {
		return nil, err
	}
	fromLatLon := forward(crs)
	fn := func(pt orb.Point) orb.Point {
		return fromLatLon(toLatLon(pt))
	}

	out := g.Clone()
	for _, n := range out.Nodes() {
		pt := fn(n.Point())
		if !geo.IsFinitePoint(pt) {
			return nil, errs.NewErrorf(errs.ErrCodeUnsupportedCRS, "node %d cannot be expressed in %s", n.ID, crs)
		}
		n.X, n.Y = pt[0], pt[1]
	}
	out.SetCRS(crs)
	for _, e := range out.Edges() {
		for i, pt := range e.Geometry {
			e.Geometry[i] = fn(pt)
			if !geo.IsFinitePoint(e.Geometry[i]) {
				return nil, errs.NewErrorf(errs.ErrCodeUnsupportedCRS, "edge %s cannot be expressed in %s", e.EdgeKey(), crs)
			}
		}
		e.Length = geo.LineLength(e.Geometry, crs)
	}

	log.Info("projected graph", zap.Stringer("from", g.CRS()), zap.Stringer("to", crs),
		zap.Int("nodes", out.NodeCount()), zap.Int("edges", out.EdgeCount()))
	return out, nil
}

func forward(crs geo.CRS) transform {
	if crs.IsWebMercator() {
		return transform(project.WGS84.ToMercator)
	}
	if zone, north, ok := crs.UTMZone(); ok {
		return func(pt orb.Point) orb.Point {
			return geo.ToUTM(pt, zone, north)
		}
	}
	return func(pt orb.Point) orb.Point { return pt }
}

func inverse(crs geo.CRS) (transform, error) {
	switch {
	case crs.IsGeographic():
		return func(pt orb.Point) orb.Point { return pt }, nil
	case crs.IsWebMercator():
		return transform(project.Mercator.ToWGS84), nil
	}
	if zone, north, ok := crs.UTMZone(); ok {
		return func(pt orb.Point) orb.Point {
			return geo.FromUTM(pt, zone, north)
		}, nil
	}
	return nil, errs.NewErrorf(errs.ErrCodeUnsupportedCRS, "cannot resolve source %s", crs)
}

// ProjectPoint converts a single coordinate between two supported reference systems.
func ProjectPoint(pt orb.Point, from, to geo.CRS) (orb.Point, error) {
	if from == to {
		return pt, nil
	}
	if !IsSupported(to) {
		return orb.Point{}, errs.NewErrorf(errs.ErrCodeUnsupportedCRS, "cannot resolve %s", to)
	}
	toLatLon, err := inverse(from)
	if err != nil {
		return orb.Point{}, err
	}
	out := forward(to)(toLatLon(pt))
	if !geo.IsFinitePoint(out) {
		return orb.Point{}, errs.NewErrorf(errs.ErrCodeUnsupportedCRS, "point %v cannot be expressed in %s", pt, to)
	}
	return out, nil
}
