package membership

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// memoryDB backs a ledger with an in-memory pair set. Setting raceErr
// makes the insert fail the way a concurrent duplicate would.
type memoryDB struct {
	pairs   map[[2]int64]bool
	raceErr error
}

func newMemoryDB() *memoryDB {
	return &memoryDB{pairs: map[[2]int64]bool{}}
}

func (m *memoryDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	key := [2]int64{args[0].(int64), args[1].(int64)}

	switch {
	case strings.HasPrefix(sql, "INSERT"):
		if m.raceErr != nil {
			return pgconn.CommandTag{}, m.raceErr
		}
		m.pairs[key] = true
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.HasPrefix(sql, "DELETE"):
		if !m.pairs[key] {
			return pgconn.NewCommandTag("DELETE 0"), nil
		}
		delete(m.pairs, key)
		return pgconn.NewCommandTag("DELETE 1"), nil
	}
	return pgconn.CommandTag{}, errors.New("unexpected statement")
}

func (m *memoryDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	key := [2]int64{args[0].(int64), args[1].(int64)}
	return memoryRow{exists: m.pairs[key]}
}

type memoryRow struct {
	exists bool
}

func (r memoryRow) Scan(dest ...any) error {
	*(dest[0].(*bool)) = r.exists
	return nil
}

func TestLedgerAddAndExists(t *testing.T) {
	ledger := NewLedger(newMemoryDB(), Favorites)
	ctx := context.Background()

	exists, err := ledger.Exists(ctx, 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Fatal("expected pair to be absent")
	}

	if err := ledger.Add(ctx, 1, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	exists, err = ledger.Exists(ctx, 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Fatal("expected pair to be present")
	}
}

func TestLedgerAddDuplicate(t *testing.T) {
	ledger := NewLedger(newMemoryDB(), ShoppingCart)
	ctx := context.Background()

	if err := ledger.Add(ctx, 1, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ledger.Add(ctx, 1, 2); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestLedgerAddRaceMapsUniqueViolation(t *testing.T) {
	// The pair is absent at check time but the insert hits the unique
	// constraint, as under a concurrent duplicate add.
	db := newMemoryDB()
	db.raceErr = &pgconn.PgError{Code: "23505", ConstraintName: "favorites_pkey"}

	ledger := NewLedger(db, Favorites)
	if err := ledger.Add(context.Background(), 1, 2); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestLedgerAddOtherErrorPassesThrough(t *testing.T) {
	db := newMemoryDB()
	db.raceErr = &pgconn.PgError{Code: "23503"} // foreign key, not unique

	ledger := NewLedger(db, Favorites)
	err := ledger.Add(context.Background(), 1, 2)
	if err == nil || errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected a passthrough error, got %v", err)
	}
}

func TestLedgerRemove(t *testing.T) {
	ledger := NewLedger(newMemoryDB(), Subscriptions)
	ctx := context.Background()

	if err := ledger.Remove(ctx, 1, 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := ledger.Add(ctx, 1, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ledger.Remove(ctx, 1, 2); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ledger.Remove(ctx, 1, 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after removal, got %v", err)
	}
}

func TestLedgerSQLUsesRelationIdentifiers(t *testing.T) {
	ledger := NewLedger(newMemoryDB(), Subscriptions)
	for _, sql := range []string{ledger.insertSQL, ledger.deleteSQL, ledger.existsSQL} {
		if !strings.Contains(sql, "subscriptions") {
			t.Errorf("expected table name in %q", sql)
		}
		if !strings.Contains(sql, "author_id") {
			t.Errorf("expected object column in %q", sql)
		}
	}
}
