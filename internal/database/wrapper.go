// Package database
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tastebook/backend/internal/membership"
	"github.com/tastebook/backend/internal/sql"
)

type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Database struct {
	*Queries

	Pool Pool

	// Membership ledgers over the shared pool.
	Favorites     *membership.Ledger
	Cart          *membership.Ledger
	Subscriptions *membership.Ledger
}

func NewDatabase(pool *pgxpool.Pool) *Database {
	return &Database{
		Queries:       New(pool),
		Pool:          pool,
		Favorites:     membership.NewLedger(pool, membership.Favorites),
		Cart:          membership.NewLedger(pool, membership.ShoppingCart),
		Subscriptions: membership.NewLedger(pool, membership.Subscriptions),
	}
}

// InTx runs fn against a transactional Queries. The transaction commits
// only if fn returns nil; any error rolls back every write.
func (d *Database) InTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(d.Queries.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// EnsureSchema ensures the database schema is applied to the
// Postgres database. The schema is applied to the database
// if the schema is not detected.
func EnsureSchema(db *Database, ctx context.Context) error {
	exists, err := db.CheckUsersTableExists(ctx)
	if err != nil {
		return fmt.Errorf("ensuring schema exists: %w", err)
	}

	if exists {
		return nil
	}

	if _, err := db.db.Exec(ctx, sql.Schema()); err != nil {
		return fmt.Errorf("applying database schema: %w", err)
	}

	return nil
}
