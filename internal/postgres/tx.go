package postgres

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-commerce-ledger/internal/orders"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB serves non-locking reads from the pool and runs order transactions.
type DB struct {
	*Store
	pool *pgxpool.Pool
}

// New returns a DB over pool. revenueTZ is the IANA zone revenue periods
// are computed in.
func New(pool *pgxpool.Pool, revenueTZ string) *DB {
	return &DB{Store: &Store{q: pool, tz: revenueTZ}, pool: pool}
}

// InTx runs fn in a read-committed transaction. Row locks taken by the
// store's Lock* methods are held until fn returns.
func (d *DB) InTx(ctx context.Context, fn func(tx orders.Tx) error) error {
	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&Store{q: tx, tz: d.tz}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
