package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/restopro/restopro/internal/jobs"
)

// DashboardWarmer precomputes cached dashboard sections.
type DashboardWarmer interface {
	Warmup(ctx context.Context) error
}

// AnalyticsWarmupJob keeps the analytics cache hot.
type AnalyticsWarmupJob struct {
	Analytics DashboardWarmer
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// Handle processes TaskAnalyticsWarmup tasks.
func (j *AnalyticsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Analytics == nil {
		return errors.New("analytics warmup: handler not configured")
	}
	logger := jobLogger(j.Logger, TaskAnalyticsWarmup)
	tracker := metricsOrDefault(j.Metrics).Track(TaskAnalyticsWarmup)

	start := time.Now()
	warmCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := j.Analytics.Warmup(warmCtx); err != nil {
		logger.Error("warmup failed", slog.Any("error", err))
		return tracker.End(err)
	}
	logger.Info("completed analytics warmup", slog.Duration("duration", time.Since(start)))
	return tracker.End(nil)
}

// KeyPruner deletes idempotency keys older than a retention window.
type KeyPruner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob prunes processed request keys.
type IdempotencyCleanupJob struct {
	Store   KeyPruner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// DefaultIdempotencyRetention keeps keys for a week.
const DefaultIdempotencyRetention = 7 * 24 * time.Hour

// Handle processes TaskIdempotencyCleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload IdempotencyCleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	retention := time.Duration(payload.RetentionHours) * time.Hour
	if retention <= 0 {
		retention = DefaultIdempotencyRetention
	}
	logger := jobLogger(j.Logger, TaskIdempotencyCleanup)
	tracker := metricsOrDefault(j.Metrics).Track(TaskIdempotencyCleanup)

	deleted, err := j.Store.Cleanup(ctx, retention)
	if err != nil {
		logger.Error("cleanup failed", slog.Any("error", err))
		return tracker.End(err)
	}
	logger.Info("pruned idempotency keys", slog.Int64("deleted", deleted), slog.Duration("retention", retention))
	return tracker.End(nil)
}

func jobLogger(logger *slog.Logger, job string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("job", job))
}

func metricsOrDefault(m *jobmetrics.Metrics) *jobmetrics.Metrics {
	if m != nil {
		return m
	}
	return defaultJobMetrics
}
