package services

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TxScope is one database transaction shared by every service taking part in it,
// together with the hooks to run once it has committed.
type TxScope struct {
	Tx          pgx.Tx
	afterCommit []func(ctx context.Context)
}

// NewTxScope wraps an open transaction.
func NewTxScope(tx pgx.Tx) *TxScope {
	return &TxScope{Tx: tx}
}

// AfterCommit queues fn to run after a successful commit. Hooks are dropped on rollback.
func (s *TxScope) AfterCommit(fn func(ctx context.Context)) {
	s.afterCommit = append(s.afterCommit, fn)
}

// Hooks returns the queued hooks in registration order.
func (s *TxScope) Hooks() []func(ctx context.Context) {
	return s.afterCommit
}
