// Package storetest holds behaviour checks shared by every SessionStore backend.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/gazerecorder/internal/models"
	"github.com/wolfeidau/gazerecorder/internal/store"
)

// NewSession returns a finalized session with a short scan path and two signals.
func NewSession(id string, begin float64) *models.Session {
	s := models.NewSession(id, "com.example.gaze", begin, models.DeviceInfo{
		Model:         "iPhone15,2",
		ScreenSize:    models.ScreenSize{Width: 390, Height: 844},
		SystemName:    "iOS",
		SystemVersion: "17.4",
	})
	for i := range 3 {
		ts := begin + float64(i)*0.016
		s.ScanPath = append(s.ScanPath, models.Gaze{
			Timestamp:   ts,
			X:           10 + float64(i),
			Y:           20 + float64(i),
			Orientation: 1,
		})
		s.Signals["eyeBlinkLeft"] = append(s.Signals["eyeBlinkLeft"], models.SignalSample{
			Timestamp:  ts,
			SignalName: "eyeBlinkLeft",
			Value:      0.1 * float64(i),
		})
	}
	s.Signals["jawOpen"] = append(s.Signals["jawOpen"], models.SignalSample{
		Timestamp:     begin,
		TrackingState: models.TrackingStateLimitedInitializing,
		SignalName:    "jawOpen",
		Value:         0.5,
	})
	s.Finalize(begin + 1)
	return s
}

// Run exercises the SessionStore contract against stores built by newStore.
// Each subtest gets a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) store.SessionStore) {
	ctx := context.Background()

	t.Run("write then fetch", func(t *testing.T) {
		s := newStore(t)
		want := NewSession("abc", 1_700_000_000)

		require.NoError(t, s.WriteOne(ctx, want))

		got, ok := s.FetchOne(ctx, "abc")
		require.True(t, ok)
		require.Equal(t, want, got)
	})

	t.Run("fetch absent", func(t *testing.T) {
		s := newStore(t)

		got, ok := s.FetchOne(ctx, "missing")
		require.False(t, ok)
		require.Nil(t, got)
	})

	t.Run("empty store is not a failure", func(t *testing.T) {
		s := newStore(t)

		all, ok := s.FetchAll(ctx)
		require.True(t, ok)
		require.Empty(t, all)
	})

	t.Run("write overwrites", func(t *testing.T) {
		s := newStore(t)
		session := NewSession("abc", 100)
		require.NoError(t, s.WriteOne(ctx, session))

		session.AppID = "com.example.other"
		session.ScanPath = session.ScanPath[:1]
		require.NoError(t, s.WriteOne(ctx, session))

		got, ok := s.FetchOne(ctx, "abc")
		require.True(t, ok)
		require.Equal(t, session, got)

		all, ok := s.FetchAll(ctx)
		require.True(t, ok)
		require.Len(t, all, 1)
	})

	t.Run("write many and fetch all ordered", func(t *testing.T) {
		s := newStore(t)
		sessions := []*models.Session{
			NewSession("c", 300),
			NewSession("a", 100),
			NewSession("b", 300),
		}
		require.NoError(t, s.WriteMany(ctx, sessions))

		all, ok := s.FetchAll(ctx)
		require.True(t, ok)
		require.Len(t, all, 3)
		require.Equal(t, []string{"a", "b", "c"}, ids(all))
		require.Equal(t, sessions[1], all[0])
	})

	t.Run("active session round trips without end time", func(t *testing.T) {
		s := newStore(t)
		active := models.NewSession("live", "com.example.gaze", 50, models.DeviceInfo{Model: "iPad"})
		require.NoError(t, s.WriteOne(ctx, active))

		got, ok := s.FetchOne(ctx, "live")
		require.True(t, ok)
		require.Nil(t, got.EndTime)
		require.Equal(t, active, got)
	})

	t.Run("invalid session is rejected", func(t *testing.T) {
		s := newStore(t)

		err := s.WriteOne(ctx, &models.Session{})
		require.ErrorIs(t, err, store.ErrInvalidSession)
		var perr *store.PersistenceError
		require.ErrorAs(t, err, &perr)
		require.Equal(t, store.OpWrite, perr.Op)

		require.Error(t, s.WriteMany(ctx, []*models.Session{NewSession("ok", 1), nil}))
	})

	t.Run("delete one", func(t *testing.T) {
		s := newStore(t)
		keep := NewSession("keep", 1)
		drop := NewSession("drop", 2)
		require.NoError(t, s.WriteMany(ctx, []*models.Session{keep, drop}))

		require.NoError(t, s.DeleteOne(ctx, drop))
		_, ok := s.FetchOne(ctx, "drop")
		require.False(t, ok)

		_, ok = s.FetchOne(ctx, "keep")
		require.True(t, ok)

		require.NoError(t, s.DeleteOne(ctx, drop), "deleting an absent session")
	})

	t.Run("delete all keeps the store usable", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.WriteMany(ctx, []*models.Session{NewSession("a", 1), NewSession("b", 2)}))

		require.NoError(t, s.DeleteAll(ctx))
		all, ok := s.FetchAll(ctx)
		require.True(t, ok)
		require.Empty(t, all)

		require.NoError(t, s.WriteOne(ctx, NewSession("c", 3)))
		_, ok = s.FetchOne(ctx, "c")
		require.True(t, ok)
	})

	t.Run("erase then write", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.WriteOne(ctx, NewSession("a", 1)))

		require.NoError(t, s.Erase(ctx))
		all, ok := s.FetchAll(ctx)
		if ok {
			require.Empty(t, all)
		}

		require.NoError(t, s.WriteOne(ctx, NewSession("b", 2)))
		got, ok := s.FetchOne(ctx, "b")
		require.True(t, ok)
		require.Equal(t, "b", got.ID)

		_, ok = s.FetchOne(ctx, "a")
		require.False(t, ok)
	})

	t.Run("erase twice", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Erase(ctx))
		require.NoError(t, s.Erase(ctx))
	})

	t.Run("fetched sessions are copies", func(t *testing.T) {
		s := newStore(t)
		written := NewSession("abc", 1)
		require.NoError(t, s.WriteOne(ctx, written))

		written.ScanPath[0].X = 999
		got, ok := s.FetchOne(ctx, "abc")
		require.True(t, ok)
		require.Equal(t, 10.0, got.ScanPath[0].X)

		got.Signals["jawOpen"][0].Value = 42
		again, _ := s.FetchOne(ctx, "abc")
		require.Equal(t, 0.5, again.Signals["jawOpen"][0].Value)
	})

	t.Run("concurrent writers and readers", func(t *testing.T) {
		s := newStore(t)

		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(2)
			go func() {
				defer wg.Done()
				assert.NoError(t, s.WriteOne(ctx, NewSession(fmt.Sprintf("s-%d", i), float64(i))))
			}()
			go func() {
				defer wg.Done()
				if got, ok := s.FetchOne(ctx, fmt.Sprintf("s-%d", i)); ok {
					assert.Len(t, got.ScanPath, 3)
				}
			}()
		}
		wg.Wait()

		all, ok := s.FetchAll(ctx)
		require.True(t, ok)
		require.Len(t, all, 8)
	})

	t.Run("closed store", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.WriteOne(ctx, NewSession("abc", 1)))
		require.NoError(t, s.Close())

		require.Error(t, s.WriteOne(ctx, NewSession("def", 2)))
		_, ok := s.FetchOne(ctx, "abc")
		require.False(t, ok)
		_, ok = s.FetchAll(ctx)
		require.False(t, ok)
	})
}

func ids(sessions []*models.Session) []string {
	out := make([]string, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.ID)
	}
	return out
}
