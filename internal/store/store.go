// Package store is the persistence boundary: a generic record store for
// extracted items and versioned profile records. The pipeline only ever
// talks to the interfaces; Postgres backs production and Memory backs tests
// and local runs without a database.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/atlas/internal/item"
)

// ErrNotFound is returned when the target record does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned by Create when the id is taken. Callers
// racing to create the same record can detect the loss and re-read.
var ErrAlreadyExists = errors.New("already exists")

// ErrVersionMismatch is returned by conditional writes when the expected
// version no longer matches; the write is not applied.
var ErrVersionMismatch = errors.New("version mismatch")

// ItemStore holds extracted items and their review state.
type ItemStore interface {
	Insert(ctx context.Context, it item.ExtractedItem) error
	FindByID(ctx context.Context, id uuid.UUID) (item.ExtractedItem, error)
	FindBySession(ctx context.Context, sessionID string) ([]item.ExtractedItem, error)
	FindByStatus(ctx context.Context, sessionID string, status item.Status) ([]item.ExtractedItem, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status item.Status, reviewer, notes string) error
}

// RecordStore holds versioned JSON documents (business profiles, portfolio
// timelines). Versions are opaque strings; callers compare them, never parse
// them.
type RecordStore interface {
	// Create inserts a new record. Fails if the id already exists.
	Create(ctx context.Context, id string, doc []byte) (version string, err error)
	// Read returns the document and its current version.
	Read(ctx context.Context, id string) (doc []byte, version string, err error)
	// ReadVersion returns only the current version.
	ReadVersion(ctx context.Context, id string) (string, error)
	// Write replaces the document. With a non-empty expectedVersion the
	// write only applies while the stored version still matches, otherwise
	// ErrVersionMismatch; with an empty expectedVersion it applies
	// unconditionally (last-writer-wins).
	Write(ctx context.Context, id, expectedVersion string, doc []byte) (version string, err error)
}

// Store is the full persistence surface.
type Store interface {
	ItemStore
	RecordStore
}
