package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/lintang-b-s/streetgraph/pkg/config"
	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/graphio"
	"github.com/lintang-b-s/streetgraph/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:          "streetgraph",
		Short:        "build, inspect and serve street network graphs from openstreetmap data",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "yaml config file")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newBuildCmd(flags))
	root.AddCommand(newStatsCmd(flags))
	root.AddCommand(newServeCmd(flags))
	return root
}

// setup loads the config file, or the defaults when none is given, and the logger.
func (f *rootFlags) setup() (config.Config, *zap.Logger, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return cfg, nil, err
		}
	}
	level := cfg.LogLevel
	if f.verbose {
		level = "debug"
	}
	log, err := logger.NewWithLevel(level)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

// loadGraph reads a .graphml file, or a binary snapshot otherwise.
func loadGraph(path string) (*datastructure.Graph, error) {
	if strings.EqualFold(filepath.Ext(path), ".graphml") {
		return graphio.LoadGraphML(path)
	}
	return graphio.LoadSnapshot(path)
}
