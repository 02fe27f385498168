package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/coa-verifier/internal/async"
	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/intake"
	svc "github.com/joseph-ayodele/coa-verifier/internal/server"
)

func main() {
	var (
		watchDirs   = pflag.StringSlice("watch", nil, "directories to watch for new certificates (repeatable)")
		initialScan = pflag.Bool("initial-scan", false, "submit files already present in watched directories")
		overwrite   = pflag.Bool("overwrite", false, "replace stored certificates submitted from watched directories")
		debug       = pflag.Bool("debug", false, "enable debug logging")
	)
	pflag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	addr := cfg.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app, err := svc.NewApp(ctx, cfg, reg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer app.Close(logger)

	if err := svc.PingDB(ctx, app.DB, logger, 5*time.Second); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if counts, err := app.Store.Counts(ctx); err == nil {
		logger.Info("reference tables", "counts", counts)
	}

	// gRPC server
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}
	certService := svc.NewCertificateService(app.Intake, app.Store, app.Catalog, app.Export, app.Rules, logger)
	grpcServer, healthServer := svc.NewGRPCServer(certService, logger)

	metricsServer := &http.Server{
		Addr:              cfg.Server.MetricsAddr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if cfg.Server.MetricsAddr != "" {
		go func() {
			logger.Info("metrics listening", "addr", cfg.Server.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics serve error", "error", err)
			}
		}()
	}

	var queue *async.ProcessorQueue
	if len(*watchDirs) > 0 {
		queue = async.NewProcessorQueue(app.Intake, logger,
			async.WithWorkers(cfg.Pipeline.Concurrency),
			async.WithQueueSize(512),
			async.WithProcessTimeout(3*time.Minute),
			async.WithOptions(intake.BatchOptions{Overwrite: *overwrite, SkipHidden: true}),
		)
		paths, watchErrs, err := intake.Watch(ctx, intake.WatchConfig{
			Roots:       *watchDirs,
			InitialScan: *initialScan,
			Debounce:    500 * time.Millisecond,
		}, logger)
		if err != nil {
			logger.Error("failed to watch directories", "dirs", *watchDirs, "error", err)
			os.Exit(1)
		}
		go queue.Feed(ctx, paths)
		go func() {
			for err := range watchErrs {
				logger.Warn("watch error", "error", err)
			}
		}()
		logger.Info("watching for certificates", "dirs", *watchDirs)
	}

	logger.Info("coad listening", "addr", addr)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if queue != nil {
		queue.Shutdown(shutdownCtx)
	}
	grpcServer.GracefulStop()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics shutdown", "error", err)
	}
}
