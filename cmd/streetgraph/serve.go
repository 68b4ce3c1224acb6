package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/lintang-b-s/streetgraph/docs"
	"github.com/lintang-b-s/streetgraph/pkg/config"
	"github.com/lintang-b-s/streetgraph/pkg/datastructure"
	"github.com/lintang-b-s/streetgraph/pkg/kv"
	"github.com/lintang-b-s/streetgraph/pkg/pipeline"
	"github.com/lintang-b-s/streetgraph/pkg/server/rest"
	"github.com/lintang-b-s/streetgraph/pkg/server/rest/service"
	"github.com/lintang-b-s/streetgraph/pkg/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// newServeCmd wires the http api.
//
//	@title			streetgraph API
//	@version		1.0
//	@description	street network graphs built from openstreetmap extracts: statistics, nearest node and edge queries, graphml export
//	@host			localhost:5000
//	@BasePath		/api
func newServeCmd(root *rootFlags) *cobra.Command {
	var (
		graphPath string
		addr      string
		kvDir     string
		b         = &buildFlags{}
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve a graph over http, loaded from --graph or built from --input",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.setup()
			if err != nil {
				return err
			}
			defer log.Sync()
			b.apply(cmd, &cfg)
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("kv-dir") {
				cfg.Output.KVDir = kvDir
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			m := rest.NewMetrics(reg)

			var g *datastructure.Graph
			if graphPath != "" {
				if g, err = loadGraph(graphPath); err != nil {
					return err
				}
			} else {
				res, err := buildGraph(cmd.Context(), cfg, log, pipeline.NewMetrics(reg))
				if err != nil {
					return err
				}
				g = res.Graph
			}
			log.Info("graph ready", zap.Int("nodes", g.NodeCount()), zap.Int("edges", g.EdgeCount()), zap.String("crs", g.CRS().String()))

			var kvdb service.KVDB
			if cfg.Output.KVDir != "" {
				db, err := kv.OpenBadger(cfg.Output.KVDir, false)
				if err != nil {
					return err
				}
				store := kv.NewKVDB(db, log)
				defer store.Close()
				kvdb = store
			}

			svc := service.NewGraphService(g, kvdb, stats.Options{})
			srv := &http.Server{
				Addr:         cfg.Server.Addr,
				Handler:      newRouter(cfg.Server, reg, m, svc),
				ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
				WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
			}
			return listenAndServe(cmd.Context(), srv, log)
		},
	}
	addBuildFlags(cmd, b)
	cmd.Flags().StringVarP(&graphPath, "graph", "g", "", "graphml file or binary snapshot to serve")
	cmd.Flags().StringVar(&addr, "addr", ":5000", "server listen address")
	cmd.Flags().StringVar(&kvDir, "kv-dir", "", "badger directory of a prebuilt h3 edge index")
	return cmd
}

// listenAndServe runs srv until ctx is done, then drains open requests.
func newRouter(cfg config.ServerConfig, reg *prometheus.Registry, m *rest.Metrics, svc rest.GraphService) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(rest.PromeHttpMiddleware(m))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Mount("/debug", middleware.Profiler())
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	docs.SwaggerInfo.Host = swaggerHost(cfg.Addr)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	rest.GraphRouter(r, svc, cfg.MaxNearestResults)
	return r
}

// swaggerHost turns a listen address into the host the api docs point at.
func swaggerHost(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}

func listenAndServe(ctx context.Context, srv *http.Server, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}
