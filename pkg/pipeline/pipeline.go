package pipeline

import (
	"time"

	"github.com/lintang-b-s/streetgraph/pkg/builder"
	"github.com/lintang-b-s/streetgraph/pkg/components"
	"github.com/lintang-b-s/streetgraph/pkg/config"
	"github.com/lintang-b-s/streetgraph/pkg/consolidator"
	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/enrich"
	"github.com/lintang-b-s/streetgraph/pkg/errs"
	"github.com/lintang-b-s/streetgraph/pkg/logger"
	"github.com/lintang-b-s/streetgraph/pkg/osmparser"
	"github.com/lintang-b-s/streetgraph/pkg/projector"
	"github.com/lintang-b-s/streetgraph/pkg/simplifier"
	"go.uber.org/zap"
)

const (
	StageNormalize   = "normalize"
	StageBuild       = "build"
	StageComponent   = "largest_component"
	StageConsolidate = "consolidate"
	StageSimplify    = "simplify"
	StageEnrich      = "enrich"
	StageProject     = "project"
)

type Options struct {
	Filter    osmparser.WayFilter
	SplitTags []string

	ExpandSegments bool
	Multi          bool

	LargestComponent  bool
	StronglyConnected bool

	Consolidate           bool
	Tolerance             float64
	Placement             consolidator.Placement
	RequireConnectingEdge bool

	Simplify        bool
	EdgeAttrsDiffer []string

	// speed_kph, travel_time and bearing tags
	Enrich bool

	Project   bool
	ProjectTo string
}

func DefaultOptions() Options {
	opts, _ := OptionsFromConfig(config.Default())
	return opts
}

func OptionsFromConfig(cfg config.Config) (Options, error) {
	filter, ok := osmparser.FilterByName(cfg.Network.Type)
	if !ok {
		return Options{}, errs.NewErrorf(errs.ErrCodeBadParamInput, "unknown network type %q", cfg.Network.Type)
	}
	placement, ok := consolidator.ParsePlacement(cfg.Consolidate.Placement)
	if !ok {
		return Options{}, errs.NewErrorf(errs.ErrCodeBadParamInput, "unknown placement %q", cfg.Consolidate.Placement)
	}
	return Options{
		Filter:                filter,
		SplitTags:             cfg.Normalize.SplitTags,
		ExpandSegments:        cfg.Build.ExpandSegments,
		Multi:                 cfg.Build.Multi,
		LargestComponent:      cfg.Network.LargestComponent,
		StronglyConnected:     cfg.Network.StronglyConnected,
		Consolidate:           cfg.Consolidate.Enabled,
		Tolerance:             cfg.Consolidate.Tolerance,
		Placement:             placement,
		RequireConnectingEdge: cfg.Consolidate.RequireConnectingEdge,
		Simplify:              cfg.Simplify.Enabled,
		EdgeAttrsDiffer:       cfg.Simplify.EdgeAttrsDiffer,
		Enrich:                cfg.Output.Speeds,
		Project:               cfg.Project.Enabled,
		ProjectTo:             cfg.Project.To,
	}, nil
}

type Result struct {
	Graph       *datastructure.Graph
	Normalize   osmparser.NormalizeReport
	Build       builder.BuildReport
	Consolidate *consolidator.ConsolidateReport
	Simplify    *simplifier.SimplifyReport
	// non fatal findings, DisconnectedResult among them
	Advisories []error
}

// Pipeline runs normalize, build, consolidate, simplify and project in that order.
// Stages are synchronous and each one works on a fresh graph.
type Pipeline struct {
	opts    Options
	log     *zap.Logger
	metrics *Metrics
}

func New(opts Options, log *zap.Logger, metrics *Metrics) *Pipeline {
	return &Pipeline{opts: opts, log: logger.OrNop(log), metrics: metrics}
}

func (p *Pipeline) Run(points []osmparser.RawPoint, ways []osmparser.RawWay) (Result, error) {
	var res Result

	start := time.Now()
	normalizer := osmparser.NewNormalizer(p.opts.Filter, p.log)
	if p.opts.SplitTags != nil {
		normalizer.SplitTags = p.opts.SplitTags
	}
	normalized, nreport, err := normalizer.Normalize(points, ways)
	if err != nil {
		return res, err
	}
	res.Normalize = nreport
	p.metrics.observe(StageNormalize, start, len(normalized.Nodes), len(normalized.Edges))

	start = time.Now()
	b := builder.NewBuilder(p.log)
	b.ExpandSegments = p.opts.ExpandSegments
	b.Multi = p.opts.Multi
	g, breport, err := b.Build(normalized)
	if err != nil {
		return res, err
	}
	res.Build = breport
	p.done(StageBuild, start, g)

	if p.opts.LargestComponent {
		start = time.Now()
		g = components.LargestComponent(g, p.opts.StronglyConnected)
		p.done(StageComponent, start, g)
	}

	if p.opts.Consolidate {
		start = time.Now()
		c := consolidator.NewConsolidator(p.opts.Tolerance, p.log)
		c.Placement = p.opts.Placement
		c.RequireConnectingEdge = p.opts.RequireConnectingEdge
		consolidated, creport, err := c.Consolidate(g)
		if err != nil {
			return res, err
		}
		g = consolidated
		res.Consolidate = &creport
		p.done(StageConsolidate, start, g)
	}

	if p.opts.Simplify {
		start = time.Now()
		s := simplifier.NewSimplifier(p.log)
		s.EdgeAttrsDiffer = p.opts.EdgeAttrsDiffer
		simplified, sreport, err := s.Simplify(g)
		if err != nil {
			return res, err
		}
		g = simplified
		res.Simplify = &sreport
		p.done(StageSimplify, start, g)
	}

	if p.opts.Enrich {
		start = time.Now()
		g = enrich.AddEdgeSpeeds(g, enrich.DefaultSpeedOptions())
		if g, err = enrich.AddEdgeTravelTimes(g, 1); err != nil {
			return res, err
		}
		if g, err = enrich.AddEdgeBearings(g, 1); err != nil {
			return res, err
		}
		p.done(StageEnrich, start, g)
	}

	if p.opts.Project {
		start = time.Now()
		projected, err := projector.NewProjector(p.log).Project(g, p.opts.ProjectTo)
		if err != nil {
			return res, err
		}
		g = projected
		p.done(StageProject, start, g)
	}

	if err := components.CheckConnected(g); err != nil {
		p.log.Warn("advisory", zap.Error(err))
		res.Advisories = append(res.Advisories, err)
	}
	res.Graph = g
	p.log.Info("pipeline done",
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()),
		zap.Int("issues", len(nreport.Issues)),
		zap.Int("advisories", len(res.Advisories)),
	)
	return res, nil
}

func (p *Pipeline) done(stage string, start time.Time, g *datastructure.Graph) {
	p.metrics.observe(stage, start, g.NodeCount(), g.EdgeCount())
	p.log.Debug("stage done",
		zap.String("stage", stage),
		zap.Duration("took", time.Since(start)),
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()),
	)
}
