package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/artpar/apipost/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreTests runs the standard store test suite against any Store implementation.
func RunStoreTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("Add", func(t *testing.T) {
		runAddTests(t, newStore)
	})
	t.Run("Get", func(t *testing.T) {
		runGetTests(t, newStore)
	})
	t.Run("List", func(t *testing.T) {
		runListTests(t, newStore)
	})
	t.Run("Delete", func(t *testing.T) {
		runDeleteTests(t, newStore)
	})
	t.Run("Prune", func(t *testing.T) {
		runPruneTests(t, newStore)
	})
	t.Run("Closed", func(t *testing.T) {
		runClosedTests(t, newStore)
	})
}

func sampleEntry(method string, status int, at time.Time) Entry {
	return Entry{
		Timestamp:      at,
		RequestMethod:  method,
		RequestURL:     "https://api.example.com/users",
		BodyType:       "raw",
		ResponseStatus: status,
		StatusInfo:     fmt.Sprintf("HTTP/1.1 %d", status),
		ResponseBody:   "{}",
		ResponseSize:   2,
	}
}

func runAddTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("adds entry and returns ID", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		id, err := store.Add(context.Background(), sampleEntry("GET", 200, time.Now()))

		require.NoError(t, err)
		assert.NotEmpty(t, id)
	})

	t.Run("keeps a caller supplied ID", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		entry := sampleEntry("GET", 200, time.Now())
		entry.ID = "fixed-id"
		id, err := store.Add(context.Background(), entry)

		require.NoError(t, err)
		assert.Equal(t, "fixed-id", id)
	})
}

func runGetTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("round trips every field", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		entry := Entry{
			Timestamp:     time.Now().UTC().Truncate(time.Second),
			RequestID:     "req-1",
			RequestMethod: "POST",
			RequestURL:    "https://api.example.com/upload",
			RequestHeaders: []core.HeaderField{
				{Key: "A", Value: "1"},
				{Key: "A", Value: "2"},
			},
			BodyType:        "form-data",
			Params:          []core.ParamRow{{Key: "f", Value: "/tmp/a", IsFile: true, IsEnable: true}},
			ResponseStatus:  201,
			StatusInfo:      "HTTP/1.1 201 Created",
			ResponseHeaders: "Content-Type: text/plain",
			ResponseBody:    "ok",
			ResponseTime:    42,
			ResponseSize:    2,
		}
		id, err := store.Add(ctx, entry)
		require.NoError(t, err)

		got, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.True(t, entry.Timestamp.Equal(got.Timestamp))
		assert.Equal(t, entry.RequestID, got.RequestID)
		assert.Equal(t, entry.RequestHeaders, got.RequestHeaders)
		assert.Equal(t, entry.Params, got.Params)
		assert.Equal(t, entry.BodyType, got.BodyType)
		assert.Equal(t, entry.StatusInfo, got.StatusInfo)
		assert.Equal(t, entry.ResponseHeaders, got.ResponseHeaders)
		assert.Equal(t, entry.ResponseBody, got.ResponseBody)
		assert.Equal(t, entry.ResponseTime, got.ResponseTime)
		assert.False(t, got.Failed())
	})

	t.Run("returns ErrNotFound for unknown ID", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		_, err := store.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("returns ErrInvalidID for empty ID", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		_, err := store.Get(context.Background(), "")
		assert.ErrorIs(t, err, ErrInvalidID)
	})
}

func runListTests(t *testing.T, newStore func() (Store, func())) {
	seed := func(t *testing.T, store Store) {
		ctx := context.Background()
		base := time.Now().Add(-time.Hour)
		_, err := store.Add(ctx, sampleEntry("GET", 200, base))
		require.NoError(t, err)
		_, err = store.Add(ctx, sampleEntry("POST", 404, base.Add(time.Minute)))
		require.NoError(t, err)
		failed := sampleEntry("GET", 0, base.Add(2*time.Minute))
		failed.Error = "connection refused"
		_, err = store.Add(ctx, failed)
		require.NoError(t, err)
	}

	t.Run("newest first", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		seed(t, store)

		entries, err := store.List(context.Background(), QueryOptions{})
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.True(t, entries[2].Timestamp.Before(entries[0].Timestamp))
		assert.True(t, entries[0].Failed())
	})

	t.Run("filters", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		seed(t, store)
		ctx := context.Background()

		entries, err := store.List(ctx, QueryOptions{Method: "POST"})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, 404, entries[0].ResponseStatus)

		entries, err = store.List(ctx, QueryOptions{StatusMin: 400, StatusMax: 499})
		require.NoError(t, err)
		assert.Len(t, entries, 1)

		entries, err = store.List(ctx, QueryOptions{FailedOnly: true})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "connection refused", entries[0].Error)

		count, err := store.Count(ctx, QueryOptions{Method: "GET"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("pagination", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		seed(t, store)
		ctx := context.Background()

		page, err := store.List(ctx, QueryOptions{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, page, 2)

		rest, err := store.List(ctx, QueryOptions{Offset: 2})
		require.NoError(t, err)
		assert.Len(t, rest, 1)
	})
}

func runDeleteTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("deletes entry", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		id, err := store.Add(ctx, sampleEntry("GET", 200, time.Now()))
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, id))
		_, err = store.Get(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, store.Delete(ctx, id), ErrNotFound)
	})

	t.Run("clear removes everything", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			_, err := store.Add(ctx, sampleEntry("GET", 200, time.Now()))
			require.NoError(t, err)
		}
		require.NoError(t, store.Clear(ctx))

		count, err := store.Count(ctx, QueryOptions{})
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func runPruneTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("keeps the newest entries", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		base := time.Now().Add(-time.Hour)
		var newest string
		for i := 0; i < 5; i++ {
			id, err := store.Add(ctx, sampleEntry("GET", 200, base.Add(time.Duration(i)*time.Minute)))
			require.NoError(t, err)
			newest = id
		}

		result, err := store.Prune(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), result.DeletedCount)
		assert.Equal(t, int64(6), result.FreedBytes)

		entries, err := store.List(ctx, QueryOptions{})
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, newest, entries[0].ID)
	})

	t.Run("non-positive limit is a no-op", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		_, err := store.Add(ctx, sampleEntry("GET", 200, time.Now()))
		require.NoError(t, err)

		result, err := store.Prune(ctx, 0)
		require.NoError(t, err)
		assert.Zero(t, result.DeletedCount)
	})
}

func runClosedTests(t *testing.T, newStore func() (Store, func())) {
	store, cleanup := newStore()
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err := store.Add(ctx, sampleEntry("GET", 200, time.Now()))
	assert.ErrorIs(t, err, ErrStoreClosed)
	_, err = store.List(ctx, QueryOptions{})
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, store.Clear(ctx), ErrStoreClosed)
}
