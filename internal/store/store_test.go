package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/gazerecorder/internal/models"
)

var errBusy = errors.New("database is locked")

func isBusy(err error) bool { return errors.Is(err, errBusy) }

func fastRetry() RetryConfig {
	return RetryConfig{MaxTries: 4, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestPersistenceError(t *testing.T) {
	cause := errors.New("disk full")
	err := NewPersistenceError(OpWrite, cause)

	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, OpWrite, perr.Op)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "persistence write failed: disk full", err.Error())

	// Already classified errors keep their original op.
	wrapped := fmt.Errorf("context: %w", err)
	require.Same(t, wrapped, NewPersistenceError(OpSchema, wrapped))

	require.NoError(t, NewPersistenceError(OpRead, nil))
}

func TestValidateSession(t *testing.T) {
	require.ErrorIs(t, ValidateSession(nil), ErrInvalidSession)
	require.ErrorIs(t, ValidateSession(&models.Session{ID: "  "}), ErrInvalidSession)
	require.NoError(t, ValidateSession(&models.Session{ID: "abc"}))
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("transient failures then success", func(t *testing.T) {
		calls := 0
		err := Retry(ctx, fastRetry(), zerolog.Nop(), isBusy, func() error {
			calls++
			if calls < 3 {
				return errBusy
			}
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, calls)
	})

	t.Run("permanent failure is not retried", func(t *testing.T) {
		calls := 0
		cause := errors.New("constraint failed")
		err := Retry(ctx, fastRetry(), zerolog.Nop(), isBusy, func() error {
			calls++
			return cause
		})
		require.ErrorIs(t, err, cause)
		require.Equal(t, 1, calls)
	})

	t.Run("attempts are bounded", func(t *testing.T) {
		calls := 0
		err := Retry(ctx, fastRetry(), zerolog.Nop(), isBusy, func() error {
			calls++
			return errBusy
		})
		require.ErrorIs(t, err, errBusy)
		require.Equal(t, 4, calls)
	})

	t.Run("retries log on the given logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

		calls := 0
		err := Retry(ctx, fastRetry(), logger, isBusy, func() error {
			calls++
			if calls < 2 {
				return errBusy
			}
			return nil
		})
		require.NoError(t, err)
		require.Contains(t, buf.String(), "Retrying transient store failure")
		require.Contains(t, buf.String(), errBusy.Error())
	})

	t.Run("nil classifier never retries", func(t *testing.T) {
		calls := 0
		err := Retry(ctx, fastRetry(), zerolog.Nop(), nil, func() error {
			calls++
			return errBusy
		})
		require.ErrorIs(t, err, errBusy)
		require.Equal(t, 1, calls)
	})
}

func TestRetryConfig(t *testing.T) {
	var cfg RetryConfig
	cfg.ApplyDefaults()
	require.Equal(t, uint(5), cfg.MaxTries)
	require.Equal(t, 20*time.Millisecond, cfg.InitialInterval)
	require.NoError(t, cfg.Validate())

	cfg.InitialInterval = 2 * time.Second
	require.Error(t, cfg.Validate())
}

// stubStore records calls and fails on demand.
type stubStore struct {
	calls []string
	fail  bool
}

func (s *stubStore) result(name string) error {
	s.calls = append(s.calls, name)
	if s.fail {
		return errBusy
	}
	return nil
}

func (s *stubStore) WriteOne(context.Context, *models.Session) error    { return s.result("WriteOne") }
func (s *stubStore) WriteMany(context.Context, []*models.Session) error { return s.result("WriteMany") }
func (s *stubStore) FetchOne(context.Context, string) (*models.Session, bool) {
	return nil, s.result("FetchOne") == nil
}
func (s *stubStore) FetchAll(context.Context) ([]*models.Session, bool) {
	return []*models.Session{}, s.result("FetchAll") == nil
}
func (s *stubStore) DeleteOne(context.Context, *models.Session) error { return s.result("DeleteOne") }
func (s *stubStore) DeleteAll(context.Context) error                  { return s.result("DeleteAll") }
func (s *stubStore) Erase(context.Context) error                      { return s.result("Erase") }
func (s *stubStore) Close() error                                     { return s.result("Close") }

func TestInstrumented(t *testing.T) {
	ctx := context.Background()
	stub := &stubStore{}
	var s SessionStore = Instrument(stub, "stub")

	session := &models.Session{ID: "abc"}
	require.NoError(t, s.WriteOne(ctx, session))
	require.NoError(t, s.WriteMany(ctx, []*models.Session{session}))
	_, ok := s.FetchOne(ctx, "abc")
	require.True(t, ok)
	all, ok := s.FetchAll(ctx)
	require.True(t, ok)
	require.Empty(t, all)
	require.NoError(t, s.DeleteOne(ctx, session))
	require.NoError(t, s.DeleteAll(ctx))
	require.NoError(t, s.Erase(ctx))
	require.NoError(t, s.Close())

	require.Equal(t, []string{"WriteOne", "WriteMany", "FetchOne", "FetchAll", "DeleteOne", "DeleteAll", "Erase", "Close"}, stub.calls)

	stub.fail = true
	require.ErrorIs(t, s.WriteOne(ctx, session), errBusy)
	_, ok = s.FetchAll(ctx)
	require.False(t, ok)
}
