package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/restopro/restopro/internal/auth"
	"github.com/restopro/restopro/internal/inventory"
	jobmetrics "github.com/restopro/restopro/internal/jobs"
	"github.com/restopro/restopro/internal/menu"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// CriticalIngredients lists ingredients at or below their minimum.
type CriticalIngredients interface {
	Critical(ctx context.Context) ([]inventory.Ingredient, error)
}

// LowStockMenu lists menu items at or below their minimum.
type LowStockMenu interface {
	LowStock(ctx context.Context) ([]menu.MenuItem, error)
}

// OwnerDirectory lists owners who receive stock reports.
type OwnerDirectory interface {
	ActiveOwners(ctx context.Context) ([]auth.User, error)
}

// Mailer queues outgoing mail.
type Mailer interface {
	EnqueueMail(ctx context.Context, to, subject, body string) error
}

// LowStockScanJob logs and mails the items that need restocking.
type LowStockScanJob struct {
	Ingredients CriticalIngredients
	Menu        LowStockMenu
	Owners      OwnerDirectory
	Mail        Mailer
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
}

// LowStockReport is the outcome of one scan.
type LowStockReport struct {
	Ingredients []inventory.Ingredient
	MenuItems   []menu.MenuItem
}

// Empty reports whether nothing needs restocking.
func (r LowStockReport) Empty() bool {
	return len(r.Ingredients) == 0 && len(r.MenuItems) == 0
}

// Body renders the report as plain text mail.
func (r LowStockReport) Body() string {
	var b strings.Builder
	if len(r.Ingredients) > 0 {
		b.WriteString("Critical ingredients:\n")
		for _, i := range r.Ingredients {
			fmt.Fprintf(&b, "- %s: %g %s (minimum %g)\n", i.Name, i.CurrentStock, i.Unit, i.MinStock)
		}
	}
	if len(r.MenuItems) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Low stock menu items:\n")
		for _, m := range r.MenuItems {
			fmt.Fprintf(&b, "- %s: %d left (minimum %d)\n", m.Name, m.Stock, m.MinStock)
		}
	}
	return b.String()
}

// Handle processes TaskLowStockScan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Ingredients == nil || j.Menu == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.Trigger == "" {
		payload.Trigger = "schedule"
	}
	tracker := j.metrics().Track(TaskLowStockScan)
	return tracker.End(j.run(ctx, j.logger().With(slog.String("trigger", payload.Trigger))))
}

func (j *LowStockScanJob) run(ctx context.Context, logger *slog.Logger) error {
	report, err := j.Scan(ctx)
	if err != nil {
		logger.Error("scan failed", slog.Any("error", err))
		return err
	}
	j.metrics().SetLowStock("ingredient", len(report.Ingredients))
	j.metrics().SetLowStock("menu_item", len(report.MenuItems))

	for _, i := range report.Ingredients {
		logger.Warn("critical ingredient",
			slog.Int64("ingredient_id", i.ID),
			slog.String("name", i.Name),
			slog.Float64("current_stock", i.CurrentStock),
			slog.Float64("min_stock", i.MinStock))
	}
	for _, m := range report.MenuItems {
		logger.Warn("low stock menu item",
			slog.Int64("menu_item_id", m.ID),
			slog.String("name", m.Name),
			slog.Int("stock", m.Stock),
			slog.Int("min_stock", m.MinStock))
	}
	if report.Empty() {
		logger.Info("stock levels healthy")
		return nil
	}
	if j.Owners == nil || j.Mail == nil {
		return nil
	}

	owners, err := j.Owners.ActiveOwners(ctx)
	if err != nil {
		logger.Error("load owners", slog.Any("error", err))
		return err
	}
	subject := fmt.Sprintf("Restock needed: %d ingredients, %d menu items", len(report.Ingredients), len(report.MenuItems))
	body := report.Body()
	for _, owner := range owners {
		if err := j.Mail.EnqueueMail(ctx, owner.Email, subject, body); err != nil {
			logger.Error("enqueue stock report", slog.Int64("user_id", owner.ID), slog.Any("error", err))
			return err
		}
	}
	logger.Info("stock report queued", slog.Int("recipients", len(owners)))
	return nil
}

// Scan collects critical ingredients and low-stock menu items.
func (j *LowStockScanJob) Scan(ctx context.Context) (LowStockReport, error) {
	scanCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	ingredients, err := j.Ingredients.Critical(scanCtx)
	if err != nil {
		return LowStockReport{}, fmt.Errorf("critical ingredients: %w", err)
	}
	items, err := j.Menu.LowStock(scanCtx)
	if err != nil {
		return LowStockReport{}, fmt.Errorf("low stock menu items: %w", err)
	}
	return LowStockReport{Ingredients: ingredients, MenuItems: items}, nil
}

func (j *LowStockScanJob) logger() *slog.Logger {
	return jobLogger(j.Logger, TaskLowStockScan)
}

func (j *LowStockScanJob) metrics() *jobmetrics.Metrics {
	return metricsOrDefault(j.Metrics)
}

// StockAlertListener turns an ingredient crossing into the critical band
// into an immediate low stock scan.
type StockAlertListener struct {
	Client *Client
	Logger *slog.Logger
}

// HandleStockChanged implements inventory.StockListener.
func (l *StockAlertListener) HandleStockChanged(ctx context.Context, evt inventory.StockChangedEvent) error {
	if l == nil || l.Client == nil || !evt.BecameCritical() {
		return nil
	}
	if l.Logger != nil {
		l.Logger.Info("ingredient became critical",
			slog.Int64("ingredient_id", evt.IngredientID),
			slog.String("name", evt.Name),
			slog.Float64("current_stock", evt.Current))
	}
	return l.Client.EnqueueLowStockScan(ctx, fmt.Sprintf("ingredient:%d", evt.IngredientID))
}

var _ inventory.StockListener = (*StockAlertListener)(nil)
