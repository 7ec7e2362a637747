package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type TxContextKey string

const txKey = TxContextKey("tx-context-key")

// Transaction is an open sqlx transaction bound to a context
type Transaction struct {
	*sqlx.Tx
	logger ectologger.Logger
}

// TxFromContext returns the transaction bound to ctx
func TxFromContext(ctx context.Context) (*Transaction, bool) {
	tx, ok := ctx.Value(txKey).(*Transaction)
	return tx, ok && tx != nil
}

// RunInTx begins a transaction, binds it to ctx and runs fn. The transaction is
// committed when fn returns nil and rolled back otherwise. A transaction already
// bound to ctx is joined; the outermost caller owns commit and rollback.
func RunInTx(ctx context.Context, logger ectologger.Logger, db DB, opts *sql.TxOptions, fn func(ctx context.Context) error) (err error) {
	if _, ok := TxFromContext(ctx); ok {
		return fn(ctx)
	}

	sqlTx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Errorf("error while beginning transaction")
		return errors.Wrap(err, "error while beginning transaction")
	}
	tx := &Transaction{Tx: sqlTx, logger: logger}
	txCtx := context.WithValue(ctx, txKey, tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.WithContext(ctx).WithError(rbErr).Errorf("error while rolling back transaction")
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		logger.WithContext(ctx).WithError(err).Errorf("error while committing transaction")
		return errors.Wrap(err, "error while committing transaction")
	}
	return nil
}
