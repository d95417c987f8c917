package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func TestStore_RecordAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := t.Context()

	require.NoError(t, store.Record(ctx, Run{
		JobName:        "sales_sync",
		QueryName:      "daily_totals",
		Command:        "dry-run",
		Status:         StatusOK,
		BytesProcessed: 1234,
	}))
	require.NoError(t, store.Record(ctx, Run{
		JobName: "sales_sync",
		Command: "deploy",
		Status:  StatusFailed,
		Message: "boom",
	}))

	runs, err := store.List(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Newest first.
	assert.Equal(t, "deploy", runs[0].Command)
	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.Equal(t, "boom", runs[0].Message)
	assert.Equal(t, "dry-run", runs[1].Command)
	assert.Equal(t, int64(1234), runs[1].BytesProcessed)
	assert.NotEmpty(t, runs[0].ID)
	assert.WithinDuration(t, time.Now(), runs[0].CreatedAt, time.Minute)
}

func TestStore_ListFiltersByJob(t *testing.T) {
	store := openTestStore(t)
	ctx := t.Context()

	require.NoError(t, store.Record(ctx, Run{JobName: "a", Command: "dry-run", Status: StatusOK}))
	require.NoError(t, store.Record(ctx, Run{JobName: "b", Command: "dry-run", Status: StatusOK}))

	runs, err := store.List(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "a", runs[0].JobName)
}

func TestStore_ListLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := t.Context()

	for range 5 {
		require.NoError(t, store.Record(ctx, Run{JobName: "a", Command: "dry-run", Status: StatusOK}))
	}

	runs, err := store.List(ctx, "", 3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)

	runs, err = store.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 5, "non-positive limit falls back to default")
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	// The default path nests the database under a cache subdirectory that
	// does not exist on a fresh machine.
	path := filepath.Join(t.TempDir(), "bqflow", "history.db")

	db, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, NewStore(db).Record(t.Context(), Run{
		JobName: "sales_sync", Command: "dry-run", Status: StatusOK,
	}))
}

func TestOpen_MigratesIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening an already-migrated database is a no-op.
	db, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}
