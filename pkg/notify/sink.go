package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/darescore/dare/pkg/logger"
	"github.com/darescore/dare/pkg/telemetry"
)

// Sink receives events. Delivery and deduplication by event id are the
// sink's concern.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Publish(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Writer persists events. Implementations should ignore an event whose id
// was already stored.
type Writer interface {
	SaveNotification(ctx context.Context, ev Event) error
}

// StoreSink persists events through a Writer.
type StoreSink struct {
	W Writer
}

func (s StoreSink) Publish(ctx context.Context, ev Event) error {
	if err := s.W.SaveNotification(ctx, ev); err != nil {
		return fmt.Errorf("saving notification %s: %w", ev.ID, err)
	}
	return nil
}

// LogSink writes events to a logger.
type LogSink struct {
	Log logger.Logger
}

func (s LogSink) Publish(ctx context.Context, ev Event) error {
	log := s.Log
	if log == nil {
		log = logger.Get().Named("notify")
	}
	log.Info(ctx, ev.Title,
		logger.String("candidate_id", ev.CandidateID),
		logger.String("kind", string(ev.Kind)),
		logger.Int("score", ev.CurrentScore),
		logger.Int("change", ev.ChangeAmount),
		logger.Int("recommendations", len(ev.Recommendations)),
	)
	return nil
}

// MultiSink publishes every event to all sinks and joins their errors.
type MultiSink []Sink

func (m MultiSink) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishAll hands every event to sink and counts the delivered ones.
func PublishAll(ctx context.Context, sink Sink, events []Event) error {
	if sink == nil {
		return nil
	}
	var errs []error
	for _, ev := range events {
		if err := sink.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
			continue
		}
		telemetry.RecordNotification(string(ev.Kind))
	}
	return errors.Join(errs...)
}
