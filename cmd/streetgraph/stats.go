package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lintang-b-s/streetgraph/pkg/stats"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newStatsCmd(root *rootFlags) *cobra.Command {
	var (
		graphPath string
		opts      stats.Options
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "print descriptive statistics of a saved graph as json",
		RunE: func(cmd *cobra.Command, args []string) error {
			if graphPath == "" {
				return errors.New("--graph is required")
			}
			_, log, err := root.setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			g, err := loadGraph(graphPath)
			if err != nil {
				return err
			}
			log.Info("graph loaded", zap.Int("nodes", g.NodeCount()), zap.Int("edges", g.EdgeCount()))

			s, err := stats.Basic(g, opts)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&graphPath, "graph", "g", "", "graphml file or binary snapshot")
	cmd.Flags().Float64Var(&opts.Area, "area", 0, "area covered by the graph in square meters, enables density stats")
	cmd.Flags().Float64Var(&opts.CleanIntersectionTolerance, "clean-tolerance", 0, "merge distance in meters for the clean intersection count")
	return cmd
}
