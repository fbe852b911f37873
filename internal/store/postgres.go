package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// snapshotRowID is the primary key of the single snapshot row.
const snapshotRowID = 1

const (
	createSnapshotTable = `
		CREATE TABLE IF NOT EXISTS heartbeat_snapshots (
			id         SMALLINT PRIMARY KEY,
			data       JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	selectSnapshot = `SELECT data FROM heartbeat_snapshots WHERE id = $1`

	upsertSnapshot = `
		INSERT INTO heartbeat_snapshots (id, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`
)

// PgxConn is the subset of pgx used by [PostgresBackend]. Both
// *pgxpool.Pool and pgxmock pools satisfy it.
type PgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresBackend stores the snapshot in a single-row table.
type PostgresBackend struct {
	db    PgxConn
	close func()
}

// NewPostgresBackend wraps an existing connection. The caller owns db.
func NewPostgresBackend(db PgxConn) *PostgresBackend {
	return &PostgresBackend{db: db}
}

// ConnectPostgres opens a pool for databaseURL, verifies it and ensures the
// snapshot table exists. The returned backend closes the pool on Close.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresBackend, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	b := &PostgresBackend{db: pool, close: pool.Close}
	if err := b.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return b, nil
}

// EnsureSchema creates the snapshot table if needed.
func (b *PostgresBackend) EnsureSchema(ctx context.Context) error {
	if _, err := b.db.Exec(ctx, createSnapshotTable); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

// Load reads the snapshot row. No row returns [ErrNoSnapshot].
func (b *PostgresBackend) Load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := b.db.QueryRow(ctx, selectSnapshot, snapshotRowID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("postgres load snapshot: %w", err)
	}
	return data, nil
}

// Save upserts the snapshot row.
func (b *PostgresBackend) Save(ctx context.Context, data []byte) error {
	if _, err := b.db.Exec(ctx, upsertSnapshot, snapshotRowID, data); err != nil {
		return fmt.Errorf("postgres save snapshot: %w", err)
	}
	return nil
}

// Close closes the pool if this backend opened it.
func (b *PostgresBackend) Close() error {
	if b.close != nil {
		b.close()
	}
	return nil
}
