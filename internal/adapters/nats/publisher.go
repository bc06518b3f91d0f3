package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/climatrack/climatrack/internal/core/domain"
)

const (
	// ParcelStream holds parcel lifecycle events.
	ParcelStream = "PARCEL_EVENTS"
	// ParcelCreatedPrefix is followed by the owner id, or "anonymous".
	ParcelCreatedPrefix = "parcels.created."
)

// ParcelCreatedSubject returns the subject an event is published on, so
// list views can subscribe to one owner.
func ParcelCreatedSubject(ownerID *int64) string {
	if ownerID == nil {
		return ParcelCreatedPrefix + "anonymous"
	}
	return ParcelCreatedPrefix + strconv.FormatInt(*ownerID, 10)
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := &nats.StreamConfig{
		Name:      ParcelStream,
		Subjects:  []string{"parcels.>"},
		Retention: nats.InterestPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishParcelCreated emits the "parcel created" notification.
func (p *Publisher) PublishParcelCreated(ctx context.Context, ev *domain.ParcelCreated) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(ParcelCreatedSubject(ev.OwnerID), data, nats.Context(ctx))
	return err
}

// IsConnected reports the connection state for readiness checks.
func (p *Publisher) IsConnected() bool { return p.conn.IsConnected() }

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
