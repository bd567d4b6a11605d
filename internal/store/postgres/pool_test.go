package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestPoolConfig(t *testing.T) {
	cfg := &PoolConfig{ConnString: "postgres://localhost/gaze"}
	cfg.ApplyDefaults()

	require.Equal(t, int32(4), cfg.MaxConns)
	require.Equal(t, time.Hour, cfg.MaxConnLifetime)
	require.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	require.NoError(t, cfg.Validate())

	cfg.MinConns = 8
	require.Error(t, cfg.Validate())

	require.Error(t, (&PoolConfig{}).Validate())
}

func TestNewPool_InvalidConfig(t *testing.T) {
	_, err := NewPool(context.Background(), nil)
	require.Error(t, err)

	_, err = NewPool(context.Background(), &PoolConfig{})
	require.ErrorContains(t, err, "connection string is required")
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{pgerrcode.SerializationFailure, true},
		{pgerrcode.DeadlockDetected, true},
		{pgerrcode.LockNotAvailable, true},
		{pgerrcode.UniqueViolation, false},
		{pgerrcode.UndefinedTable, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := &pgconn.PgError{Code: tt.code}
			require.Equal(t, tt.want, isTransient(err))
			require.ErrorIs(t, mapPostgresError(err), err)
		})
	}

	require.False(t, isTransient(errors.New("plain")))
}

func TestMapPostgresError(t *testing.T) {
	require.NoError(t, mapPostgresError(nil))

	plain := errors.New("plain")
	require.Same(t, plain, mapPostgresError(plain))

	err := mapPostgresError(&pgconn.PgError{Code: pgerrcode.DeadlockDetected})
	require.ErrorContains(t, err, "retryable")

	err = mapPostgresError(&pgconn.PgError{Code: pgerrcode.ConnectionFailure})
	require.ErrorContains(t, err, "connection error")
}
