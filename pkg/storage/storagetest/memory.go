// Package storagetest provides in-memory record stores for tests.
package storagetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cosmoos/cosmo-go/pkg/storage"
)

// ErrInjected is returned by FailingStore.
var ErrInjected = errors.New("injected store failure")

// MemoryStore is a goroutine-safe in-memory RecordStore with the same
// ordering and uniqueness rules as the SQL backends.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[int64]*storage.Record
	ids     *storage.IDGenerator
	now     func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: map[int64]*storage.Record{},
		ids:     storage.DefaultIDGenerator(),
		now:     time.Now,
	}
}

// FetchAll implements storage.RecordStore.
func (m *MemoryStore) FetchAll(ctx context.Context, recordType storage.RecordType, opts *storage.FetchOptions) ([]*storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &storage.FetchOptions{}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*storage.Record
	for _, r := range m.records {
		if r.Type != recordType {
			continue
		}
		if !opts.Since.IsZero() && r.CreatedAt.Before(opts.Since) {
			continue
		}
		if !opts.Until.IsZero() && !r.CreatedAt.Before(opts.Until) {
			continue
		}
		out = append(out, clone(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// Get implements storage.RecordStore.
func (m *MemoryStore) Get(ctx context.Context, id int64) (*storage.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("Get: %w", storage.ErrNotFound)
	}
	return clone(r), nil
}

// FindByLogicalID implements storage.RecordStore.
func (m *MemoryStore) FindByLogicalID(ctx context.Context, recordType storage.RecordType, logicalID string) (*storage.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.Type == recordType && logicalID != "" && r.LogicalID == logicalID {
			return clone(r), nil
		}
	}
	return nil, fmt.Errorf("FindByLogicalID: %w", storage.ErrNotFound)
}

// Create implements storage.RecordStore.
func (m *MemoryStore) Create(ctx context.Context, record *storage.Record) (*storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if record.LogicalID != "" {
		for _, r := range m.records {
			if r.Type == record.Type && r.LogicalID == record.LogicalID {
				return nil, fmt.Errorf("Create: duplicate logical id %q", record.LogicalID)
			}
		}
	}

	storage.PrepareCreate(record, m.ids, m.now())
	m.records[record.ID] = clone(record)
	return record, nil
}

// Update implements storage.RecordStore.
func (m *MemoryStore) Update(ctx context.Context, record *storage.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.records[record.ID]
	if !ok {
		return fmt.Errorf("Update: %w", storage.ErrNotFound)
	}
	record.UpdatedAt = m.now()
	updated := clone(record)
	updated.Type = existing.Type
	updated.CreatedAt = existing.CreatedAt
	m.records[record.ID] = updated
	return nil
}

// Delete implements storage.RecordStore.
func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return fmt.Errorf("Delete: %w", storage.ErrNotFound)
	}
	delete(m.records, id)
	return nil
}

// Close implements storage.RecordStore.
func (m *MemoryStore) Close() error { return nil }

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// MustCreate stores a record and panics on failure.
func (m *MemoryStore) MustCreate(record *storage.Record) *storage.Record {
	created, err := m.Create(context.Background(), record)
	if err != nil {
		panic(err)
	}
	return created
}

func clone(r *storage.Record) *storage.Record {
	c := *r
	if r.Structured != nil {
		c.Structured = append(json.RawMessage(nil), r.Structured...)
	}
	if r.Metadata != nil {
		c.Metadata = make(map[string]interface{}, len(r.Metadata))
		for k, v := range r.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// FailingStore fails every operation with ErrInjected.
type FailingStore struct{}

func (FailingStore) FetchAll(context.Context, storage.RecordType, *storage.FetchOptions) ([]*storage.Record, error) {
	return nil, ErrInjected
}

func (FailingStore) Get(context.Context, int64) (*storage.Record, error) { return nil, ErrInjected }

func (FailingStore) FindByLogicalID(context.Context, storage.RecordType, string) (*storage.Record, error) {
	return nil, ErrInjected
}

func (FailingStore) Create(context.Context, *storage.Record) (*storage.Record, error) {
	return nil, ErrInjected
}

func (FailingStore) Update(context.Context, *storage.Record) error { return ErrInjected }

func (FailingStore) Delete(context.Context, int64) error { return ErrInjected }

func (FailingStore) Close() error { return nil }
