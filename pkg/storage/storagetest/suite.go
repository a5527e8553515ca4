package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmoos/cosmo-go/pkg/storage"
)

// suiteType keeps suite records apart from real data sharing the table.
const suiteType storage.RecordType = "storagetest_record"

// RunRecordStoreTests exercises the RecordStore contract against store. Every
// backend runs it so they agree on ordering, range filters, logical-id
// uniqueness and not-found errors.
func RunRecordStoreTests(t *testing.T, store storage.RecordStore) {
	t.Helper()
	ctx := context.Background()

	purge(t, store)
	t.Cleanup(func() { purge(t, store) })

	base := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	t.Run("create and get", func(t *testing.T) {
		record := &storage.Record{
			Type:       suiteType,
			Title:      "first",
			Body:       "body text",
			Structured: []byte(`{"value":42}`),
			Metadata:   map[string]interface{}{"kind": "steps"},
			CreatedAt:  base,
		}
		created, err := store.Create(ctx, record)
		require.NoError(t, err)
		require.NotZero(t, created.ID)
		assert.False(t, created.UpdatedAt.IsZero())

		got, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "first", got.Title)
		assert.Equal(t, "body text", got.Body)
		assert.Equal(t, "steps", got.MetadataString("kind"))
		assert.True(t, base.Equal(got.CreatedAt), "created_at round trips: %v", got.CreatedAt)

		var payload struct {
			Value int `json:"value"`
		}
		require.NoError(t, got.DecodeStructured(&payload))
		assert.Equal(t, 42, payload.Value)
	})

	t.Run("fetch ordering and range", func(t *testing.T) {
		for i, offset := range []int{3, 1, 2} {
			_, err := store.Create(ctx, &storage.Record{
				Type:      suiteType,
				Title:     "ranged",
				Metadata:  map[string]interface{}{"i": float64(i)},
				CreatedAt: base.Add(time.Duration(offset) * time.Hour),
			})
			require.NoError(t, err)
		}

		all, err := store.FetchAll(ctx, suiteType, nil)
		require.NoError(t, err)
		require.Len(t, all, 4)
		for i := 1; i < len(all); i++ {
			assert.False(t, all[i].CreatedAt.Before(all[i-1].CreatedAt), "oldest first")
		}

		ranged, err := store.FetchAll(ctx, suiteType, &storage.FetchOptions{
			Since: base.Add(time.Hour),
			Until: base.Add(3 * time.Hour),
		})
		require.NoError(t, err)
		require.Len(t, ranged, 2, "since is inclusive, until exclusive")
		assert.True(t, base.Add(time.Hour).Equal(ranged[0].CreatedAt))

		limited, err := store.FetchAll(ctx, suiteType, &storage.FetchOptions{Limit: 1})
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.True(t, base.Equal(limited[0].CreatedAt))

		other, err := store.FetchAll(ctx, storage.RecordType("storagetest_other"), nil)
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("logical id upsert key", func(t *testing.T) {
		created, err := store.Create(ctx, &storage.Record{
			Type: suiteType, LogicalID: "conv-1", Title: "v1", CreatedAt: base,
		})
		require.NoError(t, err)

		_, err = store.Create(ctx, &storage.Record{
			Type: suiteType, LogicalID: "conv-1", Title: "dup", CreatedAt: base,
		})
		assert.Error(t, err, "one record per (type, logical id)")

		found, err := store.FindByLogicalID(ctx, suiteType, "conv-1")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)

		found.Title = "v2"
		found.Body = "updated"
		require.NoError(t, store.Update(ctx, found))

		got, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "v2", got.Title)
		assert.Equal(t, "updated", got.Body)
		assert.True(t, base.Equal(got.CreatedAt), "update keeps created_at")

		_, err = store.FindByLogicalID(ctx, suiteType, "missing")
		assert.True(t, errors.Is(err, storage.ErrNotFound))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := store.Get(ctx, 1)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, store.Delete(ctx, 1), storage.ErrNotFound)
		assert.ErrorIs(t, store.Update(ctx, &storage.Record{ID: 1, Type: suiteType}), storage.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		created, err := store.Create(ctx, &storage.Record{Type: suiteType, Title: "doomed"})
		require.NoError(t, err)
		require.NoError(t, store.Delete(ctx, created.ID))
		_, err = store.Get(ctx, created.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func purge(t *testing.T, store storage.RecordStore) {
	t.Helper()
	ctx := context.Background()
	records, err := store.FetchAll(ctx, suiteType, nil)
	require.NoError(t, err)
	for _, r := range records {
		require.NoError(t, store.Delete(ctx, r.ID))
	}
}
