package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/gazerecorder/internal/store"
	"github.com/wolfeidau/gazerecorder/internal/store/storetest"
)

func openTestStore(t *testing.T, path string) *SessionStore {
	t.Helper()

	s, err := Open(context.Background(), path, WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionStore_File(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.SessionStore {
		return openTestStore(t, filepath.Join(t.TempDir(), "sessions.db"))
	})
}

func TestSessionStore_Memory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.SessionStore {
		return openTestStore(t, MemoryPath)
	})
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), " ")
	require.Error(t, err)
}

func TestSessionStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	first, err := Open(ctx, path)
	require.NoError(t, err)
	want := storetest.NewSession("abc", 1_700_000_000)
	require.NoError(t, first.WriteOne(ctx, want))
	require.NoError(t, first.Close())

	second := openTestStore(t, path)
	got, ok := second.FetchOne(ctx, "abc")
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestSessionStore_CorruptRowIsAbsorbed(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, MemoryPath)
	require.NoError(t, s.WriteOne(ctx, storetest.NewSession("good", 1)))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session (id, appID, beginTime, deviceInfo, endTime, scanPath, signals) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		"bad", "app", 2.0, "{}", nil, "not json", "{}")
	require.NoError(t, err)

	_, ok := s.FetchOne(ctx, "bad")
	require.False(t, ok)

	all, ok := s.FetchAll(ctx)
	require.False(t, ok, "unreadable store is distinct from an empty one")
	require.Nil(t, all)

	_, ok = s.FetchOne(ctx, "good")
	require.True(t, ok)
}

func TestSessionStore_EraseDropsTable(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, MemoryPath)
	require.NoError(t, s.WriteOne(ctx, storetest.NewSession("abc", 1)))

	require.NoError(t, s.Erase(ctx))

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'session'`).Scan(&count)
	require.NoError(t, err)
	require.Zero(t, count)

	all, ok := s.FetchAll(ctx)
	require.True(t, ok)
	require.Empty(t, all)
}

func TestSessionStore_ClosedErrors(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, MemoryPath)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	err := s.WriteOne(ctx, storetest.NewSession("abc", 1))
	require.ErrorIs(t, err, store.ErrStoreClosed)
	require.ErrorIs(t, s.Erase(ctx), store.ErrStoreClosed)
}

func TestIsTransient(t *testing.T) {
	require.False(t, isTransient(nil))
	require.False(t, isTransient(errors.New("database is locked")))
}
