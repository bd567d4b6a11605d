package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/gazerecorder/internal/models"
	"github.com/wolfeidau/gazerecorder/internal/store"
)

//go:embed schema.sql
var schemaSQL string

const upsertSession = `
	INSERT INTO gaze_sessions (
		id, app_id, begin_time, device_info, end_time, scan_path, signals
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7
	)
	ON CONFLICT (id) DO UPDATE SET
		app_id = EXCLUDED.app_id,
		begin_time = EXCLUDED.begin_time,
		device_info = EXCLUDED.device_info,
		end_time = EXCLUDED.end_time,
		scan_path = EXCLUDED.scan_path,
		signals = EXCLUDED.signals
`

const selectSessions = `
	SELECT id, app_id, begin_time, device_info, end_time, scan_path, signals
	FROM gaze_sessions
`

// Option configures a SessionStore.
type Option func(*SessionStore)

func WithRetry(cfg store.RetryConfig) Option {
	return func(s *SessionStore) {
		s.retry = cfg
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *SessionStore) {
		s.logger = logger
	}
}

// SessionStore implements store.SessionStore using PostgreSQL.
type SessionStore struct {
	mu sync.Mutex

	pool     *pgxpool.Pool
	ownsPool bool
	retry    store.RetryConfig
	logger   zerolog.Logger

	schemaReady bool
	closed      bool
}

// NewSessionStore creates a store on an existing pool. Close leaves the pool open.
func NewSessionStore(pool *pgxpool.Pool, opts ...Option) *SessionStore {
	s := &SessionStore{
		pool:   pool,
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.retry.ApplyDefaults()
	return s
}

// Open creates a pool from cfg and a store that owns it.
func Open(ctx context.Context, cfg *PoolConfig, opts ...Option) (*SessionStore, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := NewSessionStore(pool, opts...)
	s.ownsPool = true
	return s, nil
}

// ensureSchema creates the table once per store and again after Erase.
// Callers hold s.mu.
func (s *SessionStore) ensureSchema(ctx context.Context) error {
	if s.closed {
		return store.ErrStoreClosed
	}
	if s.schemaReady {
		return nil
	}

	err := store.Retry(ctx, s.retry, s.logger, isTransient, func() error {
		_, err := s.pool.Exec(ctx, schemaSQL)
		return err
	})
	if err != nil {
		return store.NewPersistenceError(store.OpSchema, fmt.Errorf("failed to create session table: %w", mapPostgresError(err)))
	}

	s.schemaReady = true
	return nil
}

func (s *SessionStore) WriteOne(ctx context.Context, session *models.Session) error {
	return s.WriteMany(ctx, []*models.Session{session})
}

// WriteMany upserts all sessions in one transaction.
func (s *SessionStore) WriteMany(ctx context.Context, sessions []*models.Session) error {
	rows := make([]sessionRow, 0, len(sessions))
	for _, session := range sessions {
		if err := store.ValidateSession(session); err != nil {
			return store.NewPersistenceError(store.OpWrite, err)
		}
		row, err := encodeRow(session)
		if err != nil {
			return store.NewPersistenceError(store.OpWrite, err)
		}
		rows = append(rows, row)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureSchema(ctx); err != nil {
		return store.NewPersistenceError(store.OpWrite, err)
	}

	err := store.Retry(ctx, s.retry, s.logger, isTransient, func() error {
		return s.upsert(ctx, rows)
	})
	if err != nil {
		return store.NewPersistenceError(store.OpWrite, mapPostgresError(err))
	}

	s.logger.Debug().Int("count", len(rows)).Msg("Wrote sessions")
	return nil
}

func (s *SessionStore) upsert(ctx context.Context, rows []sessionRow) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(upsertSession,
			row.ID, row.AppID, row.BeginTime, row.DeviceInfo, row.EndTime, row.ScanPath, row.Signals,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert sessions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit sessions: %w", err)
	}
	return nil
}

// FetchOne returns false when the session is absent or cannot be read.
func (s *SessionStore) FetchOne(ctx context.Context, id string) (*models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureSchema(ctx); err != nil {
		s.logger.Warn().Err(err).Str("session_id", id).Msg("Session store unavailable for read")
		return nil, false
	}

	session, err := scanSession(s.pool.QueryRow(ctx, selectSessions+` WHERE id = $1`, id))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn().Err(store.NewPersistenceError(store.OpRead, mapPostgresError(err))).
				Str("session_id", id).Msg("Failed to read session")
		}
		return nil, false
	}
	return session, true
}

// FetchAll returns false only if the store cannot be read.
func (s *SessionStore) FetchAll(ctx context.Context) ([]*models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureSchema(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Session store unavailable for read")
		return nil, false
	}

	rows, err := s.pool.Query(ctx, selectSessions+` ORDER BY begin_time, id`)
	if err != nil {
		s.logger.Warn().Err(store.NewPersistenceError(store.OpRead, mapPostgresError(err))).Msg("Failed to query sessions")
		return nil, false
	}
	defer rows.Close()

	sessions := []*models.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			s.logger.Warn().Err(store.NewPersistenceError(store.OpRead, err)).Msg("Failed to read session row")
			return nil, false
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn().Err(store.NewPersistenceError(store.OpRead, mapPostgresError(err))).Msg("Failed to iterate sessions")
		return nil, false
	}

	return sessions, true
}

func (s *SessionStore) DeleteOne(ctx context.Context, session *models.Session) error {
	if err := store.ValidateSession(session); err != nil {
		return store.NewPersistenceError(store.OpWrite, err)
	}
	return s.exec(ctx, `DELETE FROM gaze_sessions WHERE id = $1`, session.ID)
}

func (s *SessionStore) DeleteAll(ctx context.Context) error {
	return s.exec(ctx, `DELETE FROM gaze_sessions`)
}

func (s *SessionStore) exec(ctx context.Context, query string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureSchema(ctx); err != nil {
		return store.NewPersistenceError(store.OpWrite, err)
	}

	err := store.Retry(ctx, s.retry, s.logger, isTransient, func() error {
		_, err := s.pool.Exec(ctx, query, args...)
		return err
	})
	return store.NewPersistenceError(store.OpWrite, mapPostgresError(err))
}

// Erase drops the session table. The next operation recreates it.
func (s *SessionStore) Erase(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.NewPersistenceError(store.OpSchema, store.ErrStoreClosed)
	}

	s.schemaReady = false
	err := store.Retry(ctx, s.retry, s.logger, isTransient, func() error {
		_, err := s.pool.Exec(ctx, `DROP TABLE IF EXISTS gaze_sessions`)
		return err
	})
	if err != nil {
		return store.NewPersistenceError(store.OpSchema, mapPostgresError(err))
	}

	s.logger.Info().Msg("Erased session store")
	return nil
}

// Close marks the store closed and closes the pool if the store created it.
func (s *SessionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.ownsPool {
		s.pool.Close()
	}
	return nil
}

type sessionRow struct {
	ID         string
	AppID      string
	BeginTime  float64
	DeviceInfo []byte
	EndTime    *float64
	ScanPath   []byte
	Signals    []byte
}

func encodeRow(session *models.Session) (sessionRow, error) {
	normalized := session.Clone()
	normalized.Normalize()

	row := sessionRow{
		ID:        normalized.ID,
		AppID:     normalized.AppID,
		BeginTime: normalized.BeginTime,
		EndTime:   normalized.EndTime,
	}

	var err error
	if row.DeviceInfo, err = json.Marshal(normalized.DeviceInfo); err != nil {
		return sessionRow{}, fmt.Errorf("failed to encode device info: %w", err)
	}
	if row.ScanPath, err = json.Marshal(normalized.ScanPath); err != nil {
		return sessionRow{}, fmt.Errorf("failed to encode scan path: %w", err)
	}
	if row.Signals, err = json.Marshal(normalized.Signals); err != nil {
		return sessionRow{}, fmt.Errorf("failed to encode signals: %w", err)
	}
	return row, nil
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var r sessionRow
	if err := row.Scan(&r.ID, &r.AppID, &r.BeginTime, &r.DeviceInfo, &r.EndTime, &r.ScanPath, &r.Signals); err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:        r.ID,
		AppID:     r.AppID,
		BeginTime: r.BeginTime,
		EndTime:   r.EndTime,
	}
	if err := json.Unmarshal(r.DeviceInfo, &session.DeviceInfo); err != nil {
		return nil, fmt.Errorf("failed to decode device info of session %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(r.ScanPath, &session.ScanPath); err != nil {
		return nil, fmt.Errorf("failed to decode scan path of session %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(r.Signals, &session.Signals); err != nil {
		return nil, fmt.Errorf("failed to decode signals of session %s: %w", r.ID, err)
	}
	session.Normalize()

	return session, nil
}
