package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher fans activity events out over NATS for external consumers
// (reporting, alerting). The search pipeline treats publishing as
// best-effort; a down broker never fails a search.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

type activityEvent struct {
	UserID       string    `json:"user_id"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func New(url, subject string) (*Publisher, error) {
	conn, err := nats.Connect(
		url,
		nats.Name("policy-assistant"),
		nats.Timeout(2*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(60),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Publisher{conn: conn, subject: subject}, nil
}

func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

func (p *Publisher) PublishActivity(_ context.Context, userID, action, resourceType string) error {
	payload, err := json.Marshal(activityEvent{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		OccurredAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal activity event: %w", err)
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}
