package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/trainschedule/internal/core/domain"
)

// Subscriber implements ports.TrackingSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewSubscriber creates a subscriber with its own connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeTracking delivers new observations of trainNo until ctx is done.
// The consumer is ephemeral; nothing is replayed.
func (s *Subscriber) SubscribeTracking(ctx context.Context, trainNo string, handler func(ctx context.Context, state *domain.TrackingState) error) error {
	sub, err := s.js.Subscribe(trackingSubject+trainNo, func(msg *nats.Msg) {
		var state domain.TrackingState
		if err := json.Unmarshal(msg.Data, &state); err != nil {
			slog.Warn("drop malformed tracking state", "subject", msg.Subject, "error", err)
			return
		}
		if err := handler(ctx, &state); err != nil {
			slog.Debug("tracking handler", "train", trainNo, "error", err)
		}
	},
		nats.DeliverNew(),
		nats.AckNone(),
	)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
	return nil
}

// SubscribeCatalogRefreshed calls handler after every catalog refresh.
func (s *Subscriber) SubscribeCatalogRefreshed(ctx context.Context, handler func(ctx context.Context)) error {
	sub, err := s.js.Subscribe(catalogSubject, func(msg *nats.Msg) {
		handler(ctx)
	}, nats.DeliverNew(), nats.AckNone())
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
	return nil
}

// Close drains the connection.
func (s *Subscriber) Close() {
	_ = s.conn.Drain()
}
