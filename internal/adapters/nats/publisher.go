package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/trackmotion/internal/core/domain"
)

// Subjects and stream names.
const (
	SubjectAnalysisPrefix = "tracks.analysis."
	SubjectUploadPrefix   = "tracks.upload."
	SubjectAnalysisAll    = SubjectAnalysisPrefix + ">"
	SubjectUploadAll      = SubjectUploadPrefix + ">"

	StreamAnalyses = "TRACK_ANALYSES"
	StreamUploads  = "TRACK_UPLOADS"

	headerTrackName = "Track-Name"
	headerVariant   = "Track-Variant"
)

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
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if err := ensureStreams(js); err != nil {
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, js: js}, nil
}

func ensureStreams(js nats.JetStreamContext) error {
	streams := []nats.StreamConfig{
		{
			Name:      StreamAnalyses,
			Subjects:  []string{SubjectAnalysisAll},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:       StreamUploads,
			Subjects:   []string{SubjectUploadAll},
			Retention:  nats.WorkQueuePolicy,
			MaxAge:     24 * time.Hour,
			MaxMsgSize: 16 << 20,
			Storage:    nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}
	return nil
}

// PublishAnalysisCompleted announces a finished analysis on tracks.analysis.<id>.
func (p *Publisher) PublishAnalysisCompleted(ctx context.Context, summary *domain.AnalysisSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectAnalysisPrefix+summary.ID, data, nats.Context(ctx))
	return err
}

// PublishUpload queues a GPX document on tracks.upload.<name>.
func (p *Publisher) PublishUpload(ctx context.Context, u *domain.Upload) error {
	msg := nats.NewMsg(SubjectUploadPrefix + subjectToken(u.Name))
	msg.Header.Set(headerTrackName, u.Name)
	msg.Header.Set(headerVariant, string(u.Variant))
	msg.Data = u.Body
	_, err := p.js.PublishMsg(msg, nats.Context(ctx))
	return err
}

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

// subjectToken makes a name usable as a single subject token.
func subjectToken(name string) string {
	r := strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_")
	if t := r.Replace(name); t != "" {
		return t
	}
	return "unnamed"
}
