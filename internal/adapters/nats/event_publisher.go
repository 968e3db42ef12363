package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"gitlab.com/timkado/api/forum-service/internal/adapters/config"
	"gitlab.com/timkado/api/forum-service/internal/domain"
)

// msgPublisher is the slice of *nats.Conn the adapter needs.
type msgPublisher interface {
	Publish(subject string, data []byte) error
}

// EventPublisherAdapter publishes domain.ContentEvent as JSON on core NATS
// subjects of the form <prefix>.<collection>.<event type>.
type EventPublisherAdapter struct {
	nc     *nats.Conn
	pub    msgPublisher
	prefix string
	logger domain.Logger
}

// NewEventPublisherAdapter connects to NATS. The returned cleanup drains the connection.
func NewEventPublisherAdapter(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (*EventPublisherAdapter, func(), error) {
	appFullCfg := cfgProvider.Get()
	natsCfg := appFullCfg.NATS

	appLogger.Info(ctx, "Attempting to connect to NATS server", "url", natsCfg.URL)

	nc, err := nats.Connect(natsCfg.URL,
		nats.Name(fmt.Sprintf("%s-publisher-%s", appFullCfg.App.ServiceName, appFullCfg.Server.PodID)),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.ClosedHandler(func(c *nats.Conn) {
			appLogger.Info(context.Background(), "NATS connection closed")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			appLogger.Info(context.Background(), "NATS reconnected", "url", c.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(c *nats.Conn, err error) {
			appLogger.Warn(context.Background(), "NATS disconnected", "error", err)
		}),
	)
	if err != nil {
		appLogger.Error(ctx, "Failed to connect to NATS", "url", natsCfg.URL, "error", err.Error())
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", natsCfg.URL, err)
	}
	appLogger.Info(ctx, "Successfully connected to NATS server", "url", nc.ConnectedUrl())

	adapter := newEventPublisher(nc, natsCfg.SubjectPrefix, appLogger)
	adapter.nc = nc

	cleanup := func() {
		appLogger.Info(context.Background(), "Closing NATS connection...")
		adapter.Close()
	}
	return adapter, cleanup, nil
}

func newEventPublisher(pub msgPublisher, prefix string, logger domain.Logger) *EventPublisherAdapter {
	if prefix == "" {
		prefix = "forum"
	}
	return &EventPublisherAdapter{pub: pub, prefix: prefix, logger: logger}
}

// Publish implements domain.EventPublisher.
func (a *EventPublisherAdapter) Publish(ctx context.Context, event domain.ContentEvent) error {
	subject := a.subjectFor(event)
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event for subject '%s': %w", subject, err)
	}
	if err := a.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("nats publish to subject '%s' failed: %w", subject, err)
	}
	a.logger.Debug(ctx, "Content event published", "subject", subject, "item_id", event.ItemID)
	return nil
}

func (a *EventPublisherAdapter) subjectFor(event domain.ContentEvent) string {
	return strings.Join([]string{a.prefix, event.Collection, event.Type}, ".")
}

// Close drains and closes the NATS connection.
func (a *EventPublisherAdapter) Close() {
	if a.nc != nil && !a.nc.IsClosed() {
		if err := a.nc.Drain(); err != nil {
			a.logger.Error(context.Background(), "Error draining NATS connection", "error", err.Error())
			return
		}
		a.logger.Info(context.Background(), "NATS connection drained successfully.")
	}
}

// IsConnected reports the broker connection state for readiness checks.
func (a *EventPublisherAdapter) IsConnected() bool {
	return a.nc != nil && a.nc.IsConnected()
}
