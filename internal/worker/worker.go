// Package worker raises alerts asynchronously after uploads are scored.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/heron/internal/alert"
	"github.com/opensource-finance/heron/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("heron-worker")

// Worker consumes upload-scored events from the EventBus and publishes one
// alert per flagged user.
type Worker struct {
	bus   domain.EventBus
	cache domain.Cache
	now   func() time.Time

	mu            sync.Mutex
	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = all tenants)
	TenantIDs []string
}

// NewWorker creates a new alert worker.
func NewWorker(bus domain.EventBus, cache domain.Cache) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		cache:  cache,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes for the given tenants.
func (w *Worker) Start(cfg Config) error {
	tenants := cfg.TenantIDs
	if len(tenants) == 0 {
		tenants = []string{domain.AnyTenant}
	}

	started := 0
	for _, tenantID := range tenants {
		sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicUploadScored, w.handleMessage)
		if err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
		w.mu.Lock()
		w.subscriptions = append(w.subscriptions, sub)
		w.mu.Unlock()
		started++
	}

	if started == 0 {
		return fmt.Errorf("no worker subscriptions started")
	}

	slog.Info("alert workers started",
		"tenant_count", started,
		"topic", domain.TopicUploadScored,
	)
	return nil
}

// handleMessage loads the scored upload and publishes its alerts.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "worker.raise_alerts")
	defer span.End()

	var event domain.UploadScoredEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		slog.Error("failed to parse upload event",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	// The transport's tenant is authoritative.
	tenantID := msg.TenantID
	if tenantID == "" {
		tenantID = event.TenantID
	}
	if event.TenantID != "" && event.TenantID != tenantID {
		slog.Warn("upload event tenant does not match its subject, ignoring",
			"message_id", msg.ID,
			"tenant_id", tenantID,
			"event_tenant_id", event.TenantID,
		)
		return nil
	}

	span.SetAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.String("upload.id", event.UploadID),
	)

	upload, err := w.cache.GetUpload(ctx, tenantID, event.UploadID)
	if err != nil {
		span.SetStatus(codes.Error, "load upload failed")
		return fmt.Errorf("load upload %s: %w", event.UploadID, err)
	}
	if upload == nil {
		slog.Warn("scored upload expired before alerting",
			"upload_id", event.UploadID,
			"tenant_id", tenantID,
		)
		return nil
	}

	alerts := alert.ForUpload(upload, w.now())
	published := 0
	for i := range alerts {
		payload, err := json.Marshal(&alerts[i])
		if err != nil {
			return err
		}
		if err := w.bus.Publish(ctx, tenantID, domain.TopicAlert, payload); err != nil {
			slog.Error("failed to publish alert",
				"alert_id", alerts[i].ID,
				"user_id", alerts[i].UserID,
				"error", err,
			)
			continue
		}
		published++
	}
	span.SetAttributes(attribute.Int("alerts.published", published))

	slog.Info("upload alerts published",
		"upload_id", upload.ID,
		"tenant_id", tenantID,
		"alerts", published,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
