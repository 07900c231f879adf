package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

// New создаёт пул с проверкой Ping и накатывает схему.
func New(ctx context.Context, dsn string) (*DB, error) {
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &DB{Pool: pool}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS rooms (
		id            text PRIMARY KEY,
		password_hash text,
		created_at    timestamptz NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS room_items (
		room_id    text NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		id         text NOT NULL,
		doc        jsonb NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (room_id, id)
	);

	CREATE TABLE IF NOT EXISTS room_messages (
		id         text PRIMARY KEY,
		room_id    text NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		user_id    text NOT NULL,
		body       jsonb NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS room_messages_history_idx
		ON room_messages (room_id, created_at DESC, id DESC);`

	_, err := pool.Exec(ctx, schema)
	return err
}
