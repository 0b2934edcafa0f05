package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/trainschedule/internal/core/domain"
)

const (
	trackingSubject = "train.tracking."
	catalogSubject  = "train.catalog.refreshed"
)

// Publisher implements ports.TrackingPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and makes sure the streams exist.
func NewPublisher(ctx context.Context, url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	streams := []nats.StreamConfig{
		{
			Name:      "TRAIN_TRACKING",
			Subjects:  []string{trackingSubject + ">"},
			Retention: nats.LimitsPolicy,
			MaxAge:    6 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "TRAIN_CATALOG",
			Subjects:  []string{catalogSubject},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 8), ctx)
	ensure := func() error {
		for _, cfg := range streams {
			if _, err := js.AddStream(&cfg); err != nil {
				if _, err := js.UpdateStream(&cfg); err != nil {
					return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
				}
			}
		}
		return nil
	}
	notify := func(err error, d time.Duration) {
		slog.Warn("jetstream not ready, retrying", "error", err, "in", d)
	}
	if err := backoff.RetryNotify(ensure, b, notify); err != nil {
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishTrackingState publishes one observation on the train's subject.
func (p *Publisher) PublishTrackingState(ctx context.Context, state *domain.TrackingState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(trackingSubject+state.TrainNo, data, nats.Context(ctx))
	return err
}

// PublishCatalogRefreshed announces a completed catalog refresh.
func (p *Publisher) PublishCatalogRefreshed(ctx context.Context, at time.Time) error {
	_, err := p.js.Publish(catalogSubject, []byte(at.Format(time.RFC3339)), nats.Context(ctx))
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection that keeps reconnecting.
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
