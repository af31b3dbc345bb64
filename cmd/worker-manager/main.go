// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"health-report-workers/internal/api"
	"health-report-workers/internal/common/aws"
	"health-report-workers/internal/common/camunda"
	"health-report-workers/internal/common/config"
	"health-report-workers/internal/common/database"
	"health-report-workers/internal/common/logger"
	"health-report-workers/internal/common/observability"
	"health-report-workers/internal/report/lock"
	"health-report-workers/internal/report/narrative"
	"health-report-workers/internal/report/notify"
	"health-report-workers/internal/report/prompt"
	"health-report-workers/internal/report/search"
	"health-report-workers/internal/report/service"
	"health-report-workers/internal/report/store"

	gr "health-report-workers/internal/workers/reports/generate-report"
	ir "health-report-workers/internal/workers/reports/index-report"
	nr "health-report-workers/internal/workers/reports/notify-report"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...", zap.String("version", cfg.App.Version))

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()
	if err := obs.EnableTracing(cfg.App.Name, cfg.App.Version, cfg.Tracing); err != nil {
		zapLog.Warn("tracing disabled", zap.Error(err))
	}

	ctx := context.Background()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFromApp(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	topology, err := zeebe.ExecuteWithRetry(ctx, func(ctx context.Context) (interface{}, error) {
		return zeebe.GetClient().NewTopologyCommand().Send(ctx)
	}, "topology")
	if err != nil {
		zapLog.Warn("zeebe topology unavailable", zap.Error(err))
	} else if topo, ok := topology.(*pb.TopologyResponse); ok {
		zapLog.Info("Zeebe topology",
			zap.Int32("clusterSize", topo.GetClusterSize()),
			zap.String("gatewayVersion", topo.GetGatewayVersion()),
		)
	}

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()

	// --- Elasticsearch ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}

	// --- Redis ---
	rdb := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Datastores connected successfully")

	// --- Report storage and search ---
	reportStore := store.NewPostgresStore(pg.DB)
	if err := reportStore.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("report schema setup failed", zap.Error(err))
	}
	reports := store.NewCachedStore(reportStore, rdb.Client, config.GetDuration(cfg.Reports.CacheTTL), log)

	index := search.NewIndex(esClient.Client, cfg.Reports.IndexName)
	if err := index.EnsureIndex(ctx); err != nil {
		zapLog.Fatal("report index setup failed", zap.Error(err))
	}

	svc := service.New(service.Dependencies{
		Composer:  prompt.NewComposer(nil),
		Generator: narrative.NewHTTPGenerator(narrative.ConfigFromApp(cfg.APIs.Narrative), log),
		Store:     reports,
		Guard:     lock.NewRedisGuard(rdb.Client, config.GetDuration(cfg.Reports.LockTTL)),
		Searcher:  index,
		ListLimit: cfg.Reports.ListLimit,
	}, log)

	notifier, err := newNotifier(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("aws clients failed", zap.Error(err))
	}

	// --- Workers ---
	pool := camunda.NewPool(zeebe.GetClient(), zapLog).WithRecorder(obs)
	defer pool.Close()

	generateHandler, err := gr.NewHandler(gr.HandlerOptions{AppConfig: cfg, Generator: svc, Logger: log})
	if err != nil {
		zapLog.Fatal("failed to create generate-health-report handler", zap.Error(err))
	}
	pool.Start(gr.TaskType, config.GetWorkerConfig(cfg, gr.TaskType), generateHandler.Handle)

	indexHandler, err := ir.NewHandler(ir.HandlerOptions{AppConfig: cfg, Reports: reports, Index: index, Logger: log})
	if err != nil {
		zapLog.Fatal("failed to create index-health-report handler", zap.Error(err))
	}
	pool.Start(ir.TaskType, config.GetWorkerConfig(cfg, ir.TaskType), indexHandler.Handle)

	notifyHandler, err := nr.NewHandler(nr.HandlerOptions{AppConfig: cfg, Reports: reports, Notifier: notifier, Logger: log})
	if err != nil {
		zapLog.Fatal("failed to create notify-health-report handler", zap.Error(err))
	}
	pool.Start(nr.TaskType, config.GetWorkerConfig(cfg, nr.TaskType), notifyHandler.Handle)

	zapLog.Info("Workers registered", zap.Strings("taskTypes", pool.Running()))

	// --- Health, metrics and report API ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		readyCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := zeebe.HealthCheck(readyCtx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "zeebe unavailable")
			return
		}
		if err := pg.Ping(readyCtx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "postgres unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	api.NewHandler(svc, log).Register(mux)

	server := &http.Server{Addr: cfg.HTTP.Address, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	pool.Close()
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// newNotifier leaves a channel's client unset when it is disabled so the
// notifier sees a nil interface rather than a typed nil.
func newNotifier(ctx context.Context, cfg *config.Config, log logger.Logger) (*notify.Notifier, error) {
	ncfg := notify.ConfigFromApp(cfg.Integrations)
	var (
		sesClient notify.SESService
		snsClient notify.SNSService
	)
	if ncfg.EmailEnabled || ncfg.EventsEnabled {
		clients, err := aws.NewClients(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			return nil, err
		}
		if ncfg.EmailEnabled {
			sesClient = clients.SES
		}
		if ncfg.EventsEnabled {
			snsClient = clients.SNS
		}
	}
	return notify.NewNotifier(ncfg, sesClient, snsClient, log), nil
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
