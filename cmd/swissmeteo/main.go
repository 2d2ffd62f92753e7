package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ldubois/swissmeteo/internal/config"
	"github.com/ldubois/swissmeteo/internal/export"
	"github.com/ldubois/swissmeteo/internal/observability"
	"github.com/ldubois/swissmeteo/internal/pipeline"
	"github.com/ldubois/swissmeteo/internal/stac"
	"github.com/ldubois/swissmeteo/internal/stations"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("configuration loaded", zap.Any("summary", cfg.Summary()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		router := mux.NewRouter()
		router.Handle("/metrics", observability.MetricsHandler()).Methods("GET")
		router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		}).Methods("GET")

		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: router}
		go func() {
			logger.Info("metrics listener started", zap.String("addr", cfg.MetricsAddr))
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics listener", zap.Error(err))
			}
		}()
	}

	client := stac.NewClient(cfg.STACBaseURL, cfg.HTTPTimeout, cfg.RateLimitRPS)
	p := pipeline.New(cfg, client, logger)

	data, err := p.Run(ctx)
	if err != nil {
		shutdownMetrics(metricsSrv, logger)
		logger.Fatal("extraction", zap.Error(err))
	}

	weights := stations.ComputeWeights()
	if path := cfg.Path(config.SourceStationWeights); path != "" {
		if err := export.WriteStationWeights(path, stations.All(), weights); err != nil {
			shutdownMetrics(metricsSrv, logger)
			logger.Fatal("write station weights", zap.Error(err))
		}
		logger.Info("station weights written", zap.String("path", path))
	}

	datasetPath := cfg.Path(config.SourceDataset)
	if err := export.WriteDataset(datasetPath, data); err != nil {
		shutdownMetrics(metricsSrv, logger)
		logger.Fatal("write dataset", zap.Error(err))
	}
	logger.Info("dataset written",
		zap.String("path", datasetPath),
		zap.Int("rows", data.Len()),
		zap.Int("columns", len(data.Columns())))

	shutdownMetrics(metricsSrv, logger)
}

func shutdownMetrics(srv *http.Server, logger *zap.Logger) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("metrics listener shutdown", zap.Error(err))
	}
}
