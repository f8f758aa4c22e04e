package natsadapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/trackmotion/internal/core/domain"
)

// Subscriber consumes queued uploads from JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
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
	if err := ensureStreams(js); err != nil {
		conn.Close()
		return nil, err
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// UploadFromMsg decodes an upload message. The variant header defaults to
// extended.
func UploadFromMsg(msg *nats.Msg) *domain.Upload {
	u := &domain.Upload{Variant: domain.VariantExtended, Body: msg.Data}
	if msg.Header != nil {
		u.Name = msg.Header.Get(headerTrackName)
		if v := msg.Header.Get(headerVariant); v != "" {
			u.Variant = domain.Variant(v)
		}
	}
	if u.Name == "" {
		u.Name = strings.TrimPrefix(msg.Subject, SubjectUploadPrefix)
	}
	return u
}

// SubscribeUploads delivers each queued GPX document to handler. Messages are
// acked on success; handler errors for bad input are terminated, anything
// else is redelivered up to three times.
func (s *Subscriber) SubscribeUploads(ctx context.Context, handler func(ctx context.Context, u *domain.Upload) error) error {
	sub, err := s.js.Subscribe(SubjectUploadAll, func(msg *nats.Msg) {
		u := UploadFromMsg(msg)
		if err := handler(ctx, u); err != nil {
			if domain.IsInputError(err) {
				slog.Warn("upload rejected", "name", u.Name, "error", err)
				_ = msg.Term()
				return
			}
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("upload-processor"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
