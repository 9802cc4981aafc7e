package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	portsrepo "github.com/SscSPs/enrollment_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/enrollment_engine/internal/core/ports/services"
	"github.com/SscSPs/enrollment_engine/internal/middleware"
	"github.com/jackc/pgx/v5"
)

// BaseService provides common functionality for all services
type BaseService struct {
	UnitOfWork portsrepo.UnitOfWork
	Notifier   portssvc.NotificationPort
	Clock      func() time.Time
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	logger := middleware.GetLoggerFromCtx(ctx)
	if logger == nil {
		// Return a default logger if not found in context
		return slog.Default()
	}
	return logger
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	logger.Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	logger.Debug(msg, keyvals...)
}

// Now returns the current UTC time from the configured clock.
func (s *BaseService) Now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

// RunInTx runs fn in one unit of work and, once it has committed, the hooks fn queued
// on the scope. Hooks never run for a rolled back transaction.
func (s *BaseService) RunInTx(ctx context.Context, fn func(ctx context.Context, scope *portssvc.TxScope) error) error {
	if s.UnitOfWork == nil {
		return fmt.Errorf("service has no unit of work configured")
	}
	var scope *portssvc.TxScope
	err := s.UnitOfWork.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		scope = portssvc.NewTxScope(tx)
		return fn(ctx, scope)
	})
	if err != nil {
		return err
	}
	s.runHooks(ctx, scope.Hooks())
	return nil
}

func (s *BaseService) runHooks(ctx context.Context, hooks []func(ctx context.Context)) {
	// The data is committed; a client hanging up must not cut the reactions short.
	hookCtx := context.WithoutCancel(ctx)
	for i, hook := range hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.LogError(hookCtx, fmt.Errorf("panic: %v", r), "Post-commit hook panicked", slog.Int("hook", i))
				}
			}()
			hook(hookCtx)
		}()
	}
}

// Notify calls the notification port and logs, never returns, its failure.
func (s *BaseService) Notify(ctx context.Context, event string, send func(ctx context.Context, port portssvc.NotificationPort) error, keyvals ...any) {
	if s.Notifier == nil {
		s.LogDebug(ctx, "No notifier configured, dropping notification", slog.String("event", event))
		return
	}
	if err := send(ctx, s.Notifier); err != nil {
		args := append([]any{slog.String("event", event)}, keyvals...)
		s.LogError(ctx, err, "Notification failed", args...)
		return
	}
	s.LogDebug(ctx, "Notification sent", slog.String("event", event))
}
