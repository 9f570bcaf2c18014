package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"discshelf/internal/config"
	"discshelf/internal/logging"
)

// Event names a collection change.
type Event string

const (
	EventMovieAdded          Event = "movie.added"
	EventMovieRemoved        Event = "movie.removed"
	EventEnrichmentCompleted Event = "enrichment.completed"
)

// Payload carries event-specific fields.
type Payload map[string]any

// Envelope is the message body published for every event.
type Envelope struct {
	EventID    string  `json:"event_id"`
	EventType  Event   `json:"event_type"`
	OccurredAt string  `json:"occurred_at"`
	Data       Payload `json:"data"`
}

// Service defines the notification surface exposed to collection writers.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
	Close()
}

// Publisher is the JetStream subset used to send messages.
type Publisher interface {
	Publish(subject string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

const (
	defaultSubjectPrefix = "discshelf"
	streamMaxAge         = 7 * 24 * time.Hour
)

// NewService connects to NATS when events.nats_url is set and ensures the
// stream exists. Without a URL a no-op service is returned.
func NewService(cfg *config.Config, logger *slog.Logger) (Service, error) {
	logger = logging.NewComponentLogger(logger, "notifications")
	url := ""
	prefix := defaultSubjectPrefix
	if cfg != nil {
		url = strings.TrimSpace(cfg.Events.NATSURL)
		if p := strings.Trim(strings.TrimSpace(cfg.Events.SubjectPrefix), "."); p != "" {
			prefix = p
		}
	}
	if url == "" {
		logger.Debug("nats url not set; change events will not be published")
		return noopService{}, nil
	}

	nc, err := nats.Connect(url,
		nats.Name("discshelf"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	if err := ensureStream(js, prefix); err != nil {
		logging.WarnWithContext(logger, "failed to ensure nats stream", "nats_stream_setup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "create the stream manually or check JetStream permissions"),
			logging.String(logging.FieldImpact, "events may not be retained"))
	}
	logger.Info("nats publisher initialised", logging.String("subject_prefix", prefix))
	return &natsService{js: js, conn: nc, prefix: prefix, logger: logger}, nil
}

// NewWithPublisher builds a service around an existing publisher.
func NewWithPublisher(js Publisher, prefix string, logger *slog.Logger) Service {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = defaultSubjectPrefix
	}
	return &natsService{js: js, prefix: prefix, logger: logging.NewComponentLogger(logger, "notifications")}
}

func streamName(prefix string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(prefix)) + "_EVENTS"
}

func ensureStream(js nats.JetStreamContext, prefix string) error {
	name := streamName(prefix)
	subject := prefix + ".>"
	info, err := js.StreamInfo(name)
	if err == nil {
		for _, s := range info.Config.Subjects {
			if s == subject {
				return nil
			}
		}
		cfg := info.Config
		cfg.Subjects = append(cfg.Subjects, subject)
		_, err = js.UpdateStream(&cfg)
		return err
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: []string{subject},
		Storage:  nats.FileStorage,
		MaxAge:   streamMaxAge,
	})
	return err
}

type natsService struct {
	js     Publisher
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

// Subject returns the full subject for event.
func Subject(prefix string, event Event) string {
	return prefix + "." + string(event)
}

func (n *natsService) Publish(ctx context.Context, event Event, payload Payload) error {
	envelope := Envelope{
		EventID:    uuid.NewString(),
		EventType:  event,
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		Data:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	subject := Subject(n.prefix, event)
	ack, err := n.js.Publish(subject, data, nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	attrs := []logging.Attr{
		logging.String("subject", subject),
		logging.String("event_id", envelope.EventID),
	}
	if ack != nil {
		attrs = append(attrs, logging.Int64("seq", int64(ack.Sequence)))
	}
	n.logger.Debug("event published", logging.Args(attrs...)...)
	return nil
}

func (n *natsService) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

func (noopService) Close() {}
