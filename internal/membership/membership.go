// Package membership implements the unique pairwise membership
// relations: favorites, shopping cart, and subscriptions. Each is a set
// of (subject, object) pairs with at most one entry per pair.
package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is satisfied by *pgxpool.Pool and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Relation names one membership table and its pair columns. Instances
// are package constants; the identifiers never come from user input.
type Relation struct {
	Table   string
	Subject string
	Object  string
}

var (
	Favorites     = Relation{Table: "favorites", Subject: "user_id", Object: "recipe_id"}
	ShoppingCart  = Relation{Table: "shopping_cart", Subject: "user_id", Object: "recipe_id"}
	Subscriptions = Relation{Table: "subscriptions", Subject: "user_id", Object: "author_id"}
)

var (
	ErrAlreadyExists = errors.New("membership already exists")
	ErrNotFound      = errors.New("membership not found")
)

// Ledger is a membership relation bound to a database.
type Ledger struct {
	db DB

	insertSQL string
	deleteSQL string
	existsSQL string
}

func NewLedger(db DB, rel Relation) *Ledger {
	return &Ledger{
		db: db,
		insertSQL: fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES ($1, $2)",
			rel.Table, rel.Subject, rel.Object),
		deleteSQL: fmt.Sprintf("DELETE FROM %s WHERE %s = $1 AND %s = $2",
			rel.Table, rel.Subject, rel.Object),
		existsSQL: fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1 AND %s = $2)",
			rel.Table, rel.Subject, rel.Object),
	}
}

// Exists reports whether the (subject, object) pair is present.
func (l *Ledger) Exists(ctx context.Context, subject, object int64) (bool, error) {
	var exists bool
	if err := l.db.QueryRow(ctx, l.existsSQL, subject, object).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking membership: %w", err)
	}
	return exists, nil
}

// Add inserts the pair. The existence check is a fast path for a
// friendly error; under a race the unique constraint is the final
// arbiter and its violation is reported as ErrAlreadyExists too.
func (l *Ledger) Add(ctx context.Context, subject, object int64) error {
	exists, err := l.Exists(ctx, subject, object)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyExists
	}

	if _, err := l.db.Exec(ctx, l.insertSQL, subject, object); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("adding membership: %w", err)
	}
	return nil
}

// Remove deletes the pair, failing with ErrNotFound when it is absent.
func (l *Ledger) Remove(ctx context.Context, subject, object int64) error {
	tag, err := l.db.Exec(ctx, l.deleteSQL, subject, object)
	if err != nil {
		return fmt.Errorf("removing membership: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
