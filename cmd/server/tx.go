package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "votum/pkg/domain-errors"
	txcontext "votum/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// postgresTx runs service commands in one transaction so appended events,
// their outbox rows and the audit row commit together.
type postgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newPostgresTx(db *sql.DB) *postgresTx {
	return &postgresTx{db: db}
}

func (t *postgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return txcontext.RunInTx(ctx, t.db, fn)
}
