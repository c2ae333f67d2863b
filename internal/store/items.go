package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/atlas/internal/item"
)

const itemColumns = `id, session_id, seq, item_type, content, structured_data, confidence, status,
	source_quote, source_speaker, source_timestamp, reviewed_by, reviewed_at, review_notes, created_at`

// Insert writes one extracted item. Table: extracted_items.
func (s *Postgres) Insert(ctx context.Context, it item.ExtractedItem) error {
	var structured []byte
	if it.StructuredData != nil {
		var err error
		structured, err = json.Marshal(it.StructuredData)
		if err != nil {
			return fmt.Errorf("marshal structured data: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO extracted_items (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		it.ID, it.SessionID, it.Seq, it.Type, it.Content, structured, it.Confidence, it.Status,
		it.SourceQuote, it.SourceSpeaker, it.SourceTimestamp,
		nullStr(it.ReviewedBy), it.ReviewedAt, nullStr(it.ReviewNotes), it.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (item.ExtractedItem, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+itemColumns+` FROM extracted_items WHERE id = $1`, id)
	it, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return item.ExtractedItem{}, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return it, err
}

func (s *Postgres) FindBySession(ctx context.Context, sessionID string) ([]item.ExtractedItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+itemColumns+` FROM extracted_items
		WHERE session_id = $1 ORDER BY created_at, seq, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query session items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

func (s *Postgres) FindByStatus(ctx context.Context, sessionID string, status item.Status) ([]item.ExtractedItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+itemColumns+` FROM extracted_items
		WHERE session_id = $1 AND status = $2 ORDER BY created_at, seq, id`, sessionID, status)
	if err != nil {
		return nil, fmt.Errorf("query items by status: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// UpdateStatus applies a review transition, stamping reviewer and timestamp.
// Only status and the review fields ever mutate after creation.
func (s *Postgres) UpdateStatus(ctx context.Context, id uuid.UUID, status item.Status, reviewer, notes string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE extracted_items
		SET status = $1, reviewed_by = $2, reviewed_at = now(), review_notes = $3
		WHERE id = $4`,
		status, reviewer, notes, id,
	)
	if err != nil {
		return fmt.Errorf("update item status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanItem(row pgx.Row) (item.ExtractedItem, error) {
	var it item.ExtractedItem
	var structured []byte
	var reviewedBy, reviewNotes *string
	var reviewedAt *time.Time

	err := row.Scan(
		&it.ID, &it.SessionID, &it.Seq, &it.Type, &it.Content, &structured, &it.Confidence, &it.Status,
		&it.SourceQuote, &it.SourceSpeaker, &it.SourceTimestamp,
		&reviewedBy, &reviewedAt, &reviewNotes, &it.CreatedAt,
	)
	if err != nil {
		return item.ExtractedItem{}, err
	}

	if len(structured) > 0 {
		if err := json.Unmarshal(structured, &it.StructuredData); err != nil {
			return item.ExtractedItem{}, fmt.Errorf("unmarshal structured data: %w", err)
		}
	}
	if reviewedBy != nil {
		it.ReviewedBy = *reviewedBy
	}
	if reviewNotes != nil {
		it.ReviewNotes = *reviewNotes
	}
	it.ReviewedAt = reviewedAt
	return it, nil
}

func collectItems(rows pgx.Rows) ([]item.ExtractedItem, error) {
	var items []item.ExtractedItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
