package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/lintang-b-s/streetgraph/pkg/config"
	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/graphio"
	"github.com/lintang-b-s/streetgraph/pkg/kv"
	"github.com/lintang-b-s/streetgraph/pkg/osmparser"
	"github.com/lintang-b-s/streetgraph/pkg/pipeline"
	"github.com/lintang-b-s/streetgraph/pkg/projector"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type buildFlags struct {
	input       string
	network     string
	tolerance   float64
	project     string
	graphml     string
	snapshot    string
	kvDir       string
	speeds      bool
	largestComp bool
}

// apply copies every flag set on the command line over cfg.
func (b *buildFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fl := cmd.Flags()
	if fl.Changed("input") {
		cfg.Input.Path = b.input
	}
	if fl.Changed("network") {
		cfg.Network.Type = b.network
	}
	if fl.Changed("largest-component") {
		cfg.Network.LargestComponent = b.largestComp
	}
	if fl.Changed("consolidate") {
		cfg.Consolidate.Enabled = b.tolerance > 0
		cfg.Consolidate.Tolerance = b.tolerance
	}
	if fl.Changed("project") {
		cfg.Project.Enabled = b.project != ""
		cfg.Project.To = b.project
	}
	if fl.Changed("graphml") {
		cfg.Output.GraphML = b.graphml
	}
	if fl.Changed("snapshot") {
		cfg.Output.Snapshot = b.snapshot
	}
	if fl.Changed("kv-dir") {
		cfg.Output.KVDir = b.kvDir
	}
	if fl.Changed("speeds") {
		cfg.Output.Speeds = b.speeds
	}
}

func addBuildFlags(cmd *cobra.Command, b *buildFlags) {
	cmd.Flags().StringVarP(&b.input, "input", "f", "", "openstreetmap file (.osm.pbf or .osm)")
	cmd.Flags().StringVar(&b.network, "network", "drive", "way filter: drive, all or none")
	cmd.Flags().BoolVar(&b.largestComp, "largest-component", false, "keep only the largest weakly connected component")
	cmd.Flags().Float64Var(&b.tolerance, "consolidate", 0, "merge intersections closer than this many meters")
	cmd.Flags().StringVar(&b.project, "project", "", `target crs: "auto", "utm" or an EPSG code`)
	cmd.Flags().BoolVar(&b.speeds, "speeds", false, "add speed_kph, travel_time and bearing edge tags")
}

func newBuildCmd(root *rootFlags) *cobra.Command {
	b := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "build a simplified street graph from an openstreetmap extract",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.setup()
			if err != nil {
				return err
			}
			defer log.Sync()
			b.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			res, err := buildGraph(cmd.Context(), cfg, log, nil)
			if err != nil {
				return err
			}
			return writeOutputs(cmd.Context(), cfg, res.Graph, log)
		},
	}
	addBuildFlags(cmd, b)
	cmd.Flags().StringVar(&b.graphml, "graphml", "", "write the graph as graphml to this path")
	cmd.Flags().StringVar(&b.snapshot, "snapshot", "", "write a compressed binary snapshot to this path")
	cmd.Flags().StringVar(&b.kvDir, "kv-dir", "", "badger directory for the h3 edge index")
	return cmd
}

func buildGraph(ctx context.Context, cfg config.Config, log *zap.Logger, metrics *pipeline.Metrics) (pipeline.Result, error) {
	if cfg.Input.Path == "" {
		return pipeline.Result{}, errors.New("no input file, set --input or input.path")
	}
	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return pipeline.Result{}, err
	}

	log.Info("reading osm file", zap.String("path", cfg.Input.Path))
	points, ways, err := osmparser.ReadFile(ctx, cfg.Input.Path, opts.Filter, log)
	if err != nil {
		return pipeline.Result{}, err
	}

	res, err := pipeline.New(opts, log, metrics).Run(points, ways)
	if err != nil {
		return res, err
	}
	for _, issue := range res.Normalize.Issues {
		log.Debug("skipped way", zap.Int64("way_id", issue.WayID), zap.String("reason", issue.Reason))
	}
	for _, adv := range res.Advisories {
		log.Warn("advisory", zap.Error(adv))
	}
	return res, nil
}

func writeOutputs(ctx context.Context, cfg config.Config, g *datastructure.Graph, log *zap.Logger) error {
	if cfg.Output.GraphML != "" {
		if err := graphio.SaveGraphML(cfg.Output.GraphML, g); err != nil {
			return fmt.Errorf("writing graphml: %w", err)
		}
		log.Info("graphml written", zap.String("path", cfg.Output.GraphML))
	}
	if cfg.Output.Snapshot != "" {
		if err := graphio.SaveSnapshot(cfg.Output.Snapshot, g); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
		log.Info("snapshot written", zap.String("path", cfg.Output.Snapshot))
	}
	if cfg.Output.KVDir != "" {
		if err := buildEdgeIndex(ctx, cfg.Output.KVDir, g, log); err != nil {
			return fmt.Errorf("building h3 edge index: %w", err)
		}
	}
	return nil
}

// buildEdgeIndex stores g in the h3 edge index, in lat/lon whatever its crs.
func buildEdgeIndex(ctx context.Context, dir string, g *datastructure.Graph, log *zap.Logger) error {
	latLon, err := projector.NewProjector(log).ToLatLong(g)
	if err != nil {
		return err
	}
	db, err := kv.OpenBadger(dir, false)
	if err != nil {
		return err
	}
	kvDB := kv.NewKVDB(db, log)
	defer kvDB.Close()
	return kvDB.BuildH3IndexedEdges(ctx, latLon)
}
