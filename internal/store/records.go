package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Versioned record storage. Table: records (id text primary key, doc jsonb,
// updated_at timestamptz). The version token is the updated_at timestamp in
// RFC3339Nano; callers treat it as opaque.

func (s *Postgres) Create(ctx context.Context, id string, doc []byte) (string, error) {
	var updatedAt time.Time
	err := s.pool.QueryRow(ctx, `
		INSERT INTO records (id, doc, updated_at)
		VALUES ($1, $2, now())
		RETURNING updated_at`,
		id, doc,
	).Scan(&updatedAt)
	if err != nil {
		// 23505 = unique_violation
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", fmt.Errorf("record %s: %w", id, ErrAlreadyExists)
		}
		return "", fmt.Errorf("create record %s: %w", id, err)
	}
	return formatVersion(updatedAt), nil
}

func (s *Postgres) Read(ctx context.Context, id string) ([]byte, string, error) {
	var doc []byte
	var updatedAt time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT doc, updated_at FROM records WHERE id = $1`, id,
	).Scan(&doc, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("read record %s: %w", id, err)
	}
	return doc, formatVersion(updatedAt), nil
}

func (s *Postgres) ReadVersion(ctx context.Context, id string) (string, error) {
	var updatedAt time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT updated_at FROM records WHERE id = $1`, id,
	).Scan(&updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read record version %s: %w", id, err)
	}
	return formatVersion(updatedAt), nil
}

func (s *Postgres) Write(ctx context.Context, id, expectedVersion string, doc []byte) (string, error) {
	var updatedAt time.Time
	var err error
	if expectedVersion == "" {
		err = s.pool.QueryRow(ctx, `
			UPDATE records SET doc = $2, updated_at = now()
			WHERE id = $1
			RETURNING updated_at`,
			id, doc,
		).Scan(&updatedAt)
	} else {
		// The version check happens inside the statement so two racing
		// conditional writers cannot both pass.
		err = s.pool.QueryRow(ctx, `
			UPDATE records SET doc = $2, updated_at = now()
			WHERE id = $1 AND updated_at = $3::timestamptz
			RETURNING updated_at`,
			id, doc, expectedVersion,
		).Scan(&updatedAt)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		// Missing row and failed version check both surface as no rows;
		// distinguish them for the caller.
		if _, verr := s.ReadVersion(ctx, id); errors.Is(verr, ErrNotFound) {
			return "", fmt.Errorf("record %s: %w", id, ErrNotFound)
		}
		return "", fmt.Errorf("record %s: %w", id, ErrVersionMismatch)
	}
	if err != nil {
		return "", fmt.Errorf("write record %s: %w", id, err)
	}
	return formatVersion(updatedAt), nil
}

func formatVersion(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
