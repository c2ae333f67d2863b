package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/atlas/internal/item"
)

// Memory is an in-process Store used by tests and database-less local runs.
// Versions are a monotonic counter rendered as a string; like the Postgres
// timestamps, callers only ever compare them.
type Memory struct {
	mu      sync.Mutex
	items   map[uuid.UUID]item.ExtractedItem
	docs    map[string][]byte
	vers    map[string]uint64
	nextVer uint64
}

func NewMemory() *Memory {
	return &Memory{
		items: make(map[uuid.UUID]item.ExtractedItem),
		docs:  make(map[string][]byte),
		vers:  make(map[string]uint64),
	}
}

func (m *Memory) Insert(_ context.Context, it item.ExtractedItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.items[it.ID]; exists {
		return fmt.Errorf("item %s already exists", it.ID)
	}
	m.items[it.ID] = copyItem(it)
	return nil
}

func (m *Memory) FindByID(_ context.Context, id uuid.UUID) (item.ExtractedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return item.ExtractedItem{}, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return copyItem(it), nil
}

func (m *Memory) FindBySession(_ context.Context, sessionID string) ([]item.ExtractedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collect(func(it item.ExtractedItem) bool {
		return it.SessionID == sessionID
	}), nil
}

func (m *Memory) FindByStatus(_ context.Context, sessionID string, status item.Status) ([]item.ExtractedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collect(func(it item.ExtractedItem) bool {
		return it.SessionID == sessionID && it.Status == status
	}), nil
}

func (m *Memory) UpdateStatus(_ context.Context, id uuid.UUID, status item.Status, reviewer, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	now := time.Now().UTC()
	it.Status = status
	it.ReviewedBy = reviewer
	it.ReviewedAt = &now
	it.ReviewNotes = notes
	m.items[id] = it
	return nil
}

func (m *Memory) Create(_ context.Context, id string, doc []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.docs[id]; exists {
		return "", fmt.Errorf("record %s: %w", id, ErrAlreadyExists)
	}
	m.docs[id] = append([]byte(nil), doc...)
	m.nextVer++
	m.vers[id] = m.nextVer
	return strconv.FormatUint(m.nextVer, 10), nil
}

func (m *Memory) Read(_ context.Context, id string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, "", fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	return append([]byte(nil), doc...), strconv.FormatUint(m.vers[id], 10), nil
}

func (m *Memory) ReadVersion(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vers[id]
	if !ok {
		return "", fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	return strconv.FormatUint(v, 10), nil
}

func (m *Memory) Write(_ context.Context, id, expectedVersion string, doc []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vers[id]
	if !ok {
		return "", fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	if expectedVersion != "" && expectedVersion != strconv.FormatUint(v, 10) {
		return "", fmt.Errorf("record %s: %w", id, ErrVersionMismatch)
	}
	m.docs[id] = append([]byte(nil), doc...)
	m.nextVer++
	m.vers[id] = m.nextVer
	return strconv.FormatUint(m.nextVer, 10), nil
}

func (m *Memory) collect(match func(item.ExtractedItem) bool) []item.ExtractedItem {
	var out []item.ExtractedItem
	for _, it := range m.items {
		if match(it) {
			out = append(out, copyItem(it))
		}
	}
	// CreatedAt orders batches, Seq orders within a batch. Falling back to
	// the id keeps the order total for hand-built test fixtures.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		if out[i].Seq != out[j].Seq {
			return out[i].Seq < out[j].Seq
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func copyItem(it item.ExtractedItem) item.ExtractedItem {
	if it.StructuredData != nil {
		it.StructuredData = copyValue(it.StructuredData).(map[string]any)
	}
	if it.ReviewedAt != nil {
		t := *it.ReviewedAt
		it.ReviewedAt = &t
	}
	return it
}

// copyValue clones the nested map/slice shapes json.Unmarshal produces, so
// a caller mutating a returned item can never reach stored state.
func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = copyValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
