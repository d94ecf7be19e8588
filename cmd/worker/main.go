package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lendware/docflow/internal/bootstrap"
	"github.com/lendware/docflow/internal/config"
	"github.com/lendware/docflow/internal/core/domain"
	"github.com/lendware/docflow/internal/core/ports"
	"github.com/lendware/docflow/internal/observability/logging"
	"github.com/lendware/docflow/internal/observability/metrics"
)

const serviceName = "docflow-worker"

// instrumentedClassifier counts classification outcomes around the
// underlying adapter. A zero-confidence suggestion means the call degraded
// to the untagged fallback.
type instrumentedClassifier struct {
	inner   ports.DocumentClassifier
	metrics *metrics.WorkerMetrics
}

func (c *instrumentedClassifier) Classify(ctx context.Context, excerpt string) domain.CategorySuggestion {
	suggestion := c.inner.Classify(ctx, excerpt)
	c.metrics.RecordClassification(serviceName, string(suggestion.Code), suggestion.Confidence == 0)
	return suggestion
}

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)

	app, err := bootstrap.NewWithOptions(ctx, cfg, bootstrap.Options{
		ClassifierWrapper: func(inner ports.DocumentClassifier) ports.DocumentClassifier {
			return &instrumentedClassifier{inner: inner, metrics: workerMetrics}
		},
	})
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", workerMetrics.Handler())
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsMux,
	}
	go func() {
		slog.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeStagedUploads(ctx, func(handlerCtx context.Context, stagedID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		if staged, err := app.Staged.GetByID(processCtx, stagedID); err == nil {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(staged.UploadedAt))
		}

		workerMetrics.StartPromotion()
		start := time.Now()
		processErr := app.PromoteUC.ProcessStaged(processCtx, stagedID)
		workerMetrics.FinishPromotion(serviceName, time.Since(start), processErr)
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
