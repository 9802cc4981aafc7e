package notification

import (
	"context"
	"log/slog"

	"github.com/SscSPs/enrollment_engine/internal/middleware"
)

// LogPublisher writes events to the request-scoped logger. It never fails.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher { return &LogPublisher{} }

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	middleware.GetLoggerFromCtx(ctx).Info("Notification",
		slog.String("event_id", event.EventID),
		slog.String("event_type", event.Type),
		slog.String("key", event.Key),
		slog.Any("payload", event.Payload))
	return nil
}

func (p *LogPublisher) Close() error { return nil }
