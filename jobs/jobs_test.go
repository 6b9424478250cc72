package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restopro/restopro/internal/auth"
	"github.com/restopro/restopro/internal/inventory"
	jobmetrics "github.com/restopro/restopro/internal/jobs"
	"github.com/restopro/restopro/internal/menu"
)

type recordingEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (r *recordingEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{Type: task.Type(), Queue: QueueDefault}, nil
}

type stubIngredients struct {
	items []inventory.Ingredient
	err   error
}

func (s stubIngredients) Critical(ctx context.Context) ([]inventory.Ingredient, error) {
	return s.items, s.err
}

type stubMenu struct{ items []menu.MenuItem }

func (s stubMenu) LowStock(ctx context.Context) ([]menu.MenuItem, error) { return s.items, nil }

type stubOwners struct{ users []auth.User }

func (s stubOwners) ActiveOwners(ctx context.Context) ([]auth.User, error) { return s.users, nil }

func TestClientEnqueueMail(t *testing.T) {
	rec := &recordingEnqueuer{}
	client := NewClientWith(rec)
	require.NoError(t, client.EnqueueMail(context.Background(), "asha@example.com", "Hi", "Body"))
	require.Len(t, rec.tasks, 1)
	assert.Equal(t, TaskTypeSendEmail, rec.tasks[0].Type())

	var payload SendEmailPayload
	require.NoError(t, json.Unmarshal(rec.tasks[0].Payload(), &payload))
	assert.Equal(t, SendEmailPayload{To: "asha@example.com", Subject: "Hi", Body: "Body"}, payload)

	assert.Error(t, client.EnqueueMail(context.Background(), "", "Hi", "Body"))
	assert.NoError(t, client.Close())
}

func TestEnqueueLowStockScanIgnoresDuplicates(t *testing.T) {
	rec := &recordingEnqueuer{err: asynq.ErrDuplicateTask}
	client := NewClientWith(rec)
	assert.NoError(t, client.EnqueueLowStockScan(context.Background(), "ingredient:1"))

	rec.err = errors.New("redis down")
	assert.Error(t, client.EnqueueLowStockScan(context.Background(), "ingredient:1"))
}

func TestMailJobRejectsBadPayload(t *testing.T) {
	job := &MailJob{}
	err := job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	task, err := NewSendEmailTask(SendEmailPayload{To: "a@example.com", Subject: "s"})
	require.NoError(t, err)
	assert.NoError(t, job.Handle(context.Background(), task))
}

func sampleScanJob(mail Mailer) *LowStockScanJob {
	return &LowStockScanJob{
		Ingredients: stubIngredients{items: []inventory.Ingredient{{ID: 1, Name: "Paneer", CurrentStock: 1.5, Unit: inventory.UnitKg, MinStock: 2}}},
		Menu:        stubMenu{items: []menu.MenuItem{{ID: 7, Name: "Dal Makhani", Stock: 2, MinStock: 5}}},
		Owners:      stubOwners{users: []auth.User{{ID: 1, Email: "owner@example.com"}, {ID: 2, Email: "partner@example.com"}}},
		Mail:        mail,
		Metrics:     jobmetrics.NewMetrics(prometheus.NewRegistry()),
	}
}

func TestLowStockScanMailsOwners(t *testing.T) {
	rec := &recordingEnqueuer{}
	job := sampleScanJob(NewClientWith(rec))
	task, err := NewLowStockScanTask("schedule", time.Now())
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, rec.tasks, 2)
	var payload SendEmailPayload
	require.NoError(t, json.Unmarshal(rec.tasks[0].Payload(), &payload))
	assert.Equal(t, "owner@example.com", payload.To)
	assert.Equal(t, "Restock needed: 1 ingredients, 1 menu items", payload.Subject)
	assert.Contains(t, payload.Body, "- Paneer: 1.5 kg (minimum 2)")
	assert.Contains(t, payload.Body, "- Dal Makhani: 2 left (minimum 5)")
}

func TestLowStockScanHealthySendsNothing(t *testing.T) {
	rec := &recordingEnqueuer{}
	job := &LowStockScanJob{
		Ingredients: stubIngredients{},
		Menu:        stubMenu{},
		Owners:      stubOwners{users: []auth.User{{ID: 1, Email: "owner@example.com"}}},
		Mail:        NewClientWith(rec),
		Metrics:     jobmetrics.NewMetrics(prometheus.NewRegistry()),
	}
	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskLowStockScan, nil)))
	assert.Empty(t, rec.tasks)
}

func TestLowStockScanPropagatesErrors(t *testing.T) {
	job := sampleScanJob(NewClientWith(&recordingEnqueuer{}))
	job.Ingredients = stubIngredients{err: errors.New("db down")}
	assert.Error(t, job.Handle(context.Background(), asynq.NewTask(TaskLowStockScan, nil)))

	var unconfigured *LowStockScanJob
	assert.Error(t, unconfigured.Handle(context.Background(), asynq.NewTask(TaskLowStockScan, nil)))
}

func TestStockAlertListenerEnqueuesOnlyOnCrossing(t *testing.T) {
	rec := &recordingEnqueuer{}
	listener := &StockAlertListener{Client: NewClientWith(rec)}
	ctx := context.Background()

	require.NoError(t, listener.HandleStockChanged(ctx, inventory.StockChangedEvent{
		IngredientID: 3, Previous: 5, Current: 1, MinStock: 2, Status: inventory.StatusCritical,
	}))
	require.NoError(t, listener.HandleStockChanged(ctx, inventory.StockChangedEvent{
		IngredientID: 3, Previous: 1, Current: 0.5, MinStock: 2, Status: inventory.StatusCritical,
	}))
	require.NoError(t, listener.HandleStockChanged(ctx, inventory.StockChangedEvent{
		IngredientID: 4, Previous: 1, Current: 10, MinStock: 2, Status: inventory.StatusGood,
	}))
	require.Len(t, rec.tasks, 1)
	assert.Equal(t, TaskLowStockScan, rec.tasks[0].Type())

	var payload LowStockScanPayload
	require.NoError(t, json.Unmarshal(rec.tasks[0].Payload(), &payload))
	assert.Equal(t, "ingredient:3", payload.Trigger)
}

type stubWarmer struct {
	calls int
	err   error
}

func (s *stubWarmer) Warmup(ctx context.Context) error {
	s.calls++
	return s.err
}

type stubPruner struct{ retention time.Duration }

func (s *stubPruner) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.retention = olderThan
	return 3, nil
}

func TestMaintenanceJobs(t *testing.T) {
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	warmer := &stubWarmer{}
	warm := &AnalyticsWarmupJob{Analytics: warmer, Metrics: metrics}
	require.NoError(t, warm.Handle(context.Background(), NewAnalyticsWarmupTask()))
	assert.Equal(t, 1, warmer.calls)
	warmer.err = errors.New("redis down")
	assert.Error(t, warm.Handle(context.Background(), NewAnalyticsWarmupTask()))

	pruner := &stubPruner{}
	cleanup := &IdempotencyCleanupJob{Store: pruner, Metrics: metrics}
	task, err := NewIdempotencyCleanupTask(48 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, cleanup.Handle(context.Background(), task))
	assert.Equal(t, 48*time.Hour, pruner.retention)

	require.NoError(t, cleanup.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, nil)))
	assert.Equal(t, DefaultIdempotencyRetention, pruner.retention)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) { return s.info, s.err }

func TestHealthHandler(t *testing.T) {
	serve := func(h *Handler) *httptest.ResponseRecorder {
		r := chi.NewRouter()
		r.Route("/jobs", h.MountRoutes)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
		return rec
	}

	rec := serve(NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4, Retry: 1}}, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body queueHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Pending)
	assert.Equal(t, 1, body.Retry)

	rec = serve(NewHandler(stubInspector{err: errors.New("down")}, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(NewHandler(nil, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
