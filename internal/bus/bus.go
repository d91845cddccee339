// Package bus carries upload and alert events between the API and workers.
package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/heron/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

var (
	// ErrTenantRequired is returned when no tenant is given.
	ErrTenantRequired = errors.New("tenantID is required")

	// ErrWildcardPublish is returned when publishing to AnyTenant.
	ErrWildcardPublish = errors.New("cannot publish to all tenants")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("bus is closed")
)

// New creates a new event bus based on configuration.
// For Community tier: returns ChannelBus.
// For Pro tier: returns NATSBus.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

func checkPublishTenant(tenantID string) error {
	switch tenantID {
	case "":
		return ErrTenantRequired
	case domain.AnyTenant:
		return ErrWildcardPublish
	}
	return nil
}

// newMessage wraps payload in an envelope carrying the publisher's trace
// context in Metadata.
func newMessage(ctx context.Context, tenantID, topic string, payload []byte) *domain.Message {
	msg := &domain.Message{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Topic:     topic,
		Payload:   payload,
		Metadata:  make(map[string]string),
		Timestamp: time.Now().UnixNano(),
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(msg.Metadata))
	return msg
}

// messageContext returns ctx joined to the trace the message was published under.
func messageContext(ctx context.Context, msg *domain.Message) context.Context {
	if len(msg.Metadata) == 0 {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(msg.Metadata))
}
