// Package guard implements optimistic concurrency for versioned records.
// Two operators editing overlapping state concurrently is a designed-for
// scenario: the guard resolves the race by rejecting the second writer
// instead of silently losing the first writer's change. No locks anywhere.
package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/atlas/internal/store"
)

// ErrNotFound means the target record no longer exists; there is nothing to
// retry against.
var ErrNotFound = errors.New("record not found")

// ErrConflict means the record was modified by another user since the caller
// last read it. The remediation is re-fetch and retry, so it is a distinct
// error kind from ErrNotFound.
var ErrConflict = errors.New("record was modified by another user")

// Guard applies writes to a RecordStore with optional version checking.
type Guard struct {
	records store.RecordStore
	logger  *slog.Logger
}

func New(records store.RecordStore, logger *slog.Logger) *Guard {
	return &Guard{records: records, logger: logger}
}

// Apply writes doc to the record, guarding against a stale-read/blind-write
// race when the caller supplies its last seen version.
//
// With a lastSeenVersion the current version is re-read and compared: a
// missing record fails with ErrNotFound, a mismatch fails with ErrConflict
// and the write is never applied. With an empty lastSeenVersion the check is
// skipped entirely and the write proceeds unconditionally, last-writer-wins.
// The degraded mode exists because not every caller tracks versions yet.
func (g *Guard) Apply(ctx context.Context, id, lastSeenVersion string, doc []byte) (string, error) {
	if lastSeenVersion == "" {
		version, err := g.records.Write(ctx, id, "", doc)
		if errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return version, err
	}

	current, err := g.records.ReadVersion(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read current version of %s: %w", id, err)
	}

	if current != lastSeenVersion {
		g.logger.Info("concurrent edit rejected",
			"record_id", id,
			"seen_version", lastSeenVersion,
			"current_version", current,
		)
		return "", fmt.Errorf("%s at version %s, caller saw %s: %w", id, current, lastSeenVersion, ErrConflict)
	}

	// Pass the version down so the store enforces it atomically; another
	// writer landing between the read above and this write still conflicts.
	version, err := g.records.Write(ctx, id, current, doc)
	if errors.Is(err, store.ErrVersionMismatch) {
		return "", fmt.Errorf("%s: %w", id, ErrConflict)
	}
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return version, err
}
