package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"assignment-status/internal/logging"
	"assignment-status/internal/metrics"
)

const (
	KindEnrollment = "enrollment"
	KindSubmission = "submission"
)

// Event is one portal change notification. An empty StudentID affects every student.
type Event struct {
	Kind      string `json:"kind"`
	StudentID string `json:"studentId,omitempty"`
}

// Invalidator is what the listener needs from the tuple cache.
type Invalidator interface {
	Invalidate(studentID string) int
	InvalidateAll() int
}

// messageReader abstracts kafka.Reader for testability.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Listener consumes the portal change feed and drops stale cache entries.
type Listener struct {
	reader  messageReader
	cache   Invalidator
	log     *zap.Logger
	metrics *metrics.Registry
}

// NewKafkaListener joins groupID on topic. Pure-Go client (segmentio/kafka-go).
func NewKafkaListener(brokers []string, topic, groupID string, cache Invalidator, log *zap.Logger, m *metrics.Registry) *Listener {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 1e6,
	})
	return NewListenerWith(r, cache, log, m)
}

// NewListenerWith is only for tests to inject a fake reader.
func NewListenerWith(r messageReader, cache Invalidator, log *zap.Logger, m *metrics.Registry) *Listener {
	return &Listener{reader: r, cache: cache, log: logging.OrNop(log).Named("events"), metrics: m}
}

// Run consumes until ctx is done. It returns nil on cancellation.
func (l *Listener) Run(ctx context.Context) error {
	for {
		msg, err := l.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("events: fetch: %w", err)
		}

		if err := l.Handle(msg.Value); err != nil {
			l.log.Warn("skipping malformed event",
				zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset), zap.Error(err))
		}

		if err := l.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("events: commit: %w", err)
		}
	}
}

// Handle applies one encoded event to the cache.
func (l *Listener) Handle(payload []byte) error {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	ev.Kind = strings.ToLower(strings.TrimSpace(ev.Kind))
	switch ev.Kind {
	case KindEnrollment, KindSubmission:
	default:
		return fmt.Errorf("unknown kind %q", ev.Kind)
	}

	var n int
	if sid := strings.TrimSpace(ev.StudentID); sid != "" {
		n = l.cache.Invalidate(sid)
	} else {
		n = l.cache.InvalidateAll()
	}
	l.metrics.Invalidated(ev.Kind)
	l.log.Debug("cache invalidated",
		zap.String("kind", ev.Kind), zap.String("student_id", ev.StudentID), zap.Int("entries", n))
	return nil
}

func (l *Listener) Close() error { return l.reader.Close() }
