package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TxRunner scopes a function to a single database transaction. Every mutating
// ledger operation runs through it: either the whole operation commits or the
// transaction is rolled back and no partial state survives.
type TxRunner struct {
	db *sqlx.DB
}

// NewTxRunner constructs a TxRunner.
func NewTxRunner(db *sqlx.DB) *TxRunner {
	return &TxRunner{db: db}
}

// RunInTx executes fn inside a transaction, committing on nil error and
// rolling back otherwise. The rollback error is deliberately swallowed when
// fn already failed; the original error is what the caller needs.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}
