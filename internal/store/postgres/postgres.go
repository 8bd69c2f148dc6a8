// Package postgres implements a store.Source backed by a PostgreSQL mirror
// of tracker items.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/issuegraph/internal/model"
	"github.com/alfredjeanlab/issuegraph/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Mirror stores full item records and serves them as a store.Source, so
// graphs can be rendered without reaching the tracker.
type Mirror struct {
	db *sql.DB
}

// Compile-time check that Mirror implements store.Source.
var _ store.Source = (*Mirror)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*Mirror, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Mirror{db: db}, nil
}

// NewWithDB wraps an already migrated database handle.
func NewWithDB(db *sql.DB) *Mirror {
	return &Mirror{db: db}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (m *Mirror) Close() error {
	return m.db.Close()
}

// GetItem returns the mirrored record for key, or store.ErrNotFound.
func (m *Mirror) GetItem(ctx context.Context, key string) (*model.Item, error) {
	item, err := queryGetItem(ctx, m.db, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", key, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", key, err)
	}
	return item, nil
}

// QueryItems lists mirrored members of filter.EpicKey in key order.
func (m *Mirror) QueryItems(ctx context.Context, filter model.ItemFilter) ([]*model.Item, error) {
	if filter.EpicKey == "" {
		return nil, fmt.Errorf("query items: epic key is required")
	}
	items, err := queryListByParent(ctx, m.db, filter)
	if err != nil {
		return nil, fmt.Errorf("query items of %s: %w", filter.EpicKey, err)
	}
	return items, nil
}

// SaveItem upserts item with its links and subtasks in one transaction.
// Partial records are not mirrored.
func (m *Mirror) SaveItem(ctx context.Context, item *model.Item) error {
	if item == nil || item.Partial {
		return nil
	}
	return m.runInTransaction(ctx, func(tx executor) error {
		if err := queryUpsertItem(ctx, tx, item); err != nil {
			return fmt.Errorf("upsert item %s: %w", item.Key, err)
		}
		if err := queryReplaceLinks(ctx, tx, item.Key, item.Links); err != nil {
			return fmt.Errorf("replace links of %s: %w", item.Key, err)
		}
		if err := queryReplaceSubtasks(ctx, tx, item.Key, item.Subtasks); err != nil {
			return fmt.Errorf("replace subtasks of %s: %w", item.Key, err)
		}
		return nil
	})
}

// Count returns the number of mirrored items.
func (m *Mirror) Count(ctx context.Context) (int, error) {
	var n int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

// runInTransaction begins a transaction, calls fn, and commits on success
// or rolls back on error.
func (m *Mirror) runInTransaction(ctx context.Context, fn func(tx executor) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
