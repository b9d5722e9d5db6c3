package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestRecord(fileKey, hash, user string) *FileRecord {
	return &FileRecord{
		FileKey:       fileKey,
		ContentHash:   hash,
		FileName:      "report.pdf",
		MimeType:      "application/pdf",
		Suffix:        "pdf",
		SizeBytes:     25_000_000,
		StorageBucket: "document",
		StoragePath:   "0f/34",
		UploadTaskID:  "task-1",
		PartNumber:    3,
		IsPart:        true,
		CreateUser:    user,
		UpdateUser:    user,
	}
}

func TestSQLiteStoreInsertAndGetOne(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.Insert(ctx, newTestRecord("key-1", "hash-a", "user-1"))
	require.NoError(t, err)
	require.NotZero(t, rec.ID)

	got, err := store.GetOne(ctx, Filter{FileKey: "key-1"})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "hash-a", got.ContentHash)
	require.Equal(t, 3, got.PartNumber)
	require.False(t, got.IsFinished)

	missing, err := store.GetOne(ctx, Filter{FileKey: "nope"})
	require.NoError(t, err)
	require.Nil(t, missing, "missing record yields nil, not an error")
}

func TestSQLiteStoreFileKeyUnique(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Insert(ctx, newTestRecord("key-1", "hash-a", "user-1"))
	require.NoError(t, err)

	_, err = store.Insert(ctx, newTestRecord("key-1", "hash-b", "user-2"))
	require.Error(t, err, "duplicate file key must be rejected")
}

func TestSQLiteStoreListFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Insert(ctx, newTestRecord("key-1", "hash-a", "user-1"))
	require.NoError(t, err)
	second := newTestRecord("key-2", "hash-a", "user-2")
	second.IsFinished = true
	_, err = store.Insert(ctx, second)
	require.NoError(t, err)
	_, err = store.Insert(ctx, newTestRecord("key-3", "hash-b", "user-1"))
	require.NoError(t, err)

	byHash, err := store.List(ctx, Filter{ContentHash: "hash-a"})
	require.NoError(t, err)
	require.Len(t, byHash, 2)

	finished := true
	byHashFinished, err := store.List(ctx, Filter{ContentHash: "hash-a", IsFinished: &finished})
	require.NoError(t, err)
	require.Len(t, byHashFinished, 1)
	require.Equal(t, "key-2", byHashFinished[0].FileKey)

	byUser, err := store.List(ctx, Filter{CreateUser: "user-1"})
	require.NoError(t, err)
	require.Len(t, byUser, 2)

	scoped, err := store.GetOne(ctx, Filter{FileKey: "key-1", CreateUser: "user-2"})
	require.NoError(t, err)
	require.Nil(t, scoped, "owner-scoped lookup must miss foreign records")
}

func TestSQLiteStorePartialUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.Insert(ctx, newTestRecord("key-1", "hash-a", "user-1"))
	require.NoError(t, err)

	newTask := "task-2"
	require.NoError(t, store.Update(ctx, Update{ID: rec.ID, UploadTaskID: &newTask, UpdateUser: "user-1"}))

	got, err := store.GetOne(ctx, Filter{FileKey: "key-1"})
	require.NoError(t, err)
	require.Equal(t, "task-2", got.UploadTaskID)
	require.False(t, got.IsFinished, "untouched fields must survive partial updates")

	finished := true
	require.NoError(t, store.Update(ctx, Update{ID: rec.ID, IsFinished: &finished, UpdateUser: "user-1"}))

	got, err = store.GetOne(ctx, Filter{FileKey: "key-1"})
	require.NoError(t, err)
	require.True(t, got.IsFinished)
	require.Equal(t, "task-2", got.UploadTaskID)
}

func TestSQLiteStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.Insert(ctx, newTestRecord("key-1", "hash-a", "user-1"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, rec.ID))

	got, err := store.GetOne(ctx, Filter{FileKey: "key-1"})
	require.NoError(t, err)
	require.Nil(t, got)

	// Deleting an already-deleted record is a no-op.
	require.NoError(t, store.Delete(ctx, rec.ID))
}
