package memory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists turns in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initPostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initPostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS turns (
			id BIGSERIAL PRIMARY KEY,
			uid TEXT NOT NULL,
			role TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_turns_uid_id ON turns (uid, id DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, userID, role, text string) (int64, error) {
	var seq int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO turns (uid, role, text) VALUES ($1, $2, $3) RETURNING id`,
		userID, role, text,
	).Scan(&seq)
	if err != nil {
		return 0, storageErr("append", err)
	}
	return seq, nil
}

func (s *PostgresStore) Recent(ctx context.Context, userID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, uid, role, text, created_at
		 FROM turns WHERE uid=$1 ORDER BY id DESC LIMIT $2`,
		userID,
		limit,
	)
	if err != nil {
		return nil, storageErr("query recent", err)
	}
	defer rows.Close()

	var items []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Seq, &t.UserID, &t.Role, &t.Text, &t.CreatedAt); err != nil {
			return nil, storageErr("scan recent", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate recent", err)
	}

	return chronological(items), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return storageErr("ping", s.pool.Ping(ctx))
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
