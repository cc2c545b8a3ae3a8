package outbox_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"fitadmin/internal/adapters/storage"
	outboxStorage "fitadmin/internal/adapters/storage/outbox"
	domain "fitadmin/internal/domain/outbox"
)

func newStore(t *testing.T) *outboxStorage.SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.MigrateDB(db, ":memory:"))
	return outboxStorage.NewSQLiteStore(db)
}

func entry(id string, created time.Time) domain.Entry {
	return domain.Entry{
		ID:          id,
		ActionType:  domain.ActionFeeReportEmail,
		Payload:     `{"to":["owner@example.com"]}`,
		Status:      domain.StatusPending,
		MaxAttempts: 3,
		CreatedAt:   created,
	}
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	created := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	e := entry("o1", created)
	require.NoError(t, store.Save(ctx, e))

	got, err := store.GetByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, e.Payload, got.Payload)
	assert.True(t, got.LastAttemptedAt.IsZero())
	assert.True(t, got.CreatedAt.Equal(created))

	e.MarkAttempt(created.Add(time.Minute))
	e.MarkSuccess("msg-1")
	require.NoError(t, store.Save(ctx, e))

	got, err = store.GetByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, got.Status)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, "msg-1", got.ExternalID)
	assert.True(t, got.LastAttemptedAt.Equal(created.Add(time.Minute)))
}

func TestSQLiteStore_GetByID_NotFound(t *testing.T) {
	_, err := newStore(t).GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteStore_ListPendingAndRecent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	done := entry("done", base)
	done.Status = domain.StatusDone
	retrying := entry("retrying", base.Add(time.Minute))
	retrying.Status = domain.StatusRetrying
	for _, e := range []domain.Entry{done, retrying, entry("pending", base.Add(2*time.Minute))} {
		require.NoError(t, store.Save(ctx, e))
	}

	pending, err := store.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "retrying", pending[0].ID)
	assert.Equal(t, "pending", pending[1].ID)

	recent, err := store.ListRecent(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "pending", recent[0].ID)

	onlyDone, err := store.ListRecent(ctx, domain.StatusDone, 10)
	require.NoError(t, err)
	require.Len(t, onlyDone, 1)
	assert.Equal(t, "done", onlyDone[0].ID)

	none, err := store.ListRecent(ctx, domain.StatusFailed, 10)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestSQLiteStore_CountByStatus(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)

	failed := entry("f1", base)
	failed.Status = domain.StatusFailed
	for _, e := range []domain.Entry{failed, entry("p1", base), entry("p2", base.Add(time.Second))} {
		require.NoError(t, store.Save(ctx, e))
	}

	counts, err = store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{domain.StatusPending: 2, domain.StatusFailed: 1}, counts)
}

func TestSQLiteStore_SaveKeepsPayload(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	e := entry("o1", time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC))
	require.NoError(t, store.Save(ctx, e))

	e.Payload = `{"to":["someone-else@example.com"]}`
	e.MarkAttempt(e.CreatedAt.Add(time.Minute))
	require.NoError(t, store.Save(ctx, e))

	got, err := store.GetByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, `{"to":["owner@example.com"]}`, got.Payload)
	assert.Equal(t, domain.StatusRetrying, got.Status)
}
