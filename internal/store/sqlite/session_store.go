package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/gazerecorder/internal/models"
	"github.com/wolfeidau/gazerecorder/internal/store"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const createTable = `
CREATE TABLE IF NOT EXISTS session (
	id         TEXT NOT NULL UNIQUE PRIMARY KEY,
	appID      TEXT NOT NULL,
	beginTime  REAL NOT NULL,
	deviceInfo TEXT NOT NULL,
	endTime    REAL,
	scanPath   TEXT NOT NULL,
	signals    TEXT NOT NULL
)`

const upsertSession = `
INSERT INTO session (id, appID, beginTime, deviceInfo, endTime, scanPath, signals)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	appID = excluded.appID,
	beginTime = excluded.beginTime,
	deviceInfo = excluded.deviceInfo,
	endTime = excluded.endTime,
	scanPath = excluded.scanPath,
	signals = excluded.signals`

const selectSessions = `SELECT id, appID, beginTime, deviceInfo, endTime, scanPath, signals FROM session`

// Option configures a SessionStore.
type Option func(*SessionStore)

// WithRetry sets the retry policy for writes that hit a busy database.
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

// SessionStore implements store.SessionStore on a single SQLite table.
// All operations run one at a time over a single connection.
type SessionStore struct {
	mu sync.Mutex

	db     *sql.DB
	retry  store.RetryConfig
	logger zerolog.Logger

	schemaReady bool
	closed      bool
}

// Open opens the database at path, or an in-memory database for MemoryPath.
// The table is created lazily on first use.
func Open(ctx context.Context, path string, opts ...Option) (*SessionStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := MemoryPath
	if path != MemoryPath {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// a second connection to :memory: would see a different database
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &SessionStore{
		db:     db,
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.retry.ApplyDefaults()

	return s, nil
}

// ensureSchema creates the table if this store has not done so since open or
// the last Erase. Callers hold s.mu.
func (s *SessionStore) ensureSchema(ctx context.Context) error {
	if s.closed {
		return store.ErrStoreClosed
	}
	if s.schemaReady {
		return nil
	}

	err := store.Retry(ctx, s.retry, s.logger, isTransient, func() error {
		_, err := s.db.ExecContext(ctx, createTable)
		return err
	})
	if err != nil {
		return store.NewPersistenceError(store.OpSchema, fmt.Errorf("create session table: %w", err))
	}

	s.schemaReady = true
	return nil
}

func (s *SessionStore) WriteOne(ctx context.Context, session *models.Session) error {
	return s.WriteMany(ctx, []*models.Session{session})
}

// WriteMany upserts sessions in a single transaction.
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
		return store.NewPersistenceError(store.OpWrite, err)
	}

	s.logger.Debug().Int("count", len(rows)).Msg("Wrote sessions")
	return nil
}

func (s *SessionStore) upsert(ctx context.Context, rows []sessionRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is safe to call after commit

	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, upsertSession,
			row.ID, row.AppID, row.BeginTime, row.DeviceInfo, row.EndTime, row.ScanPath, row.Signals,
		); err != nil {
			return fmt.Errorf("upsert session %s: %w", row.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
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

	row := s.db.QueryRowContext(ctx, selectSessions+` WHERE id = ?`, id)
	session, err := scanSession(row)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn().Err(store.NewPersistenceError(store.OpRead, err)).Str("session_id", id).Msg("Failed to read session")
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

	sessions, err := s.fetchAll(ctx)
	if err != nil {
		s.logger.Warn().Err(store.NewPersistenceError(store.OpRead, err)).Msg("Failed to read sessions")
		return nil, false
	}
	return sessions, true
}

func (s *SessionStore) fetchAll(ctx context.Context) ([]*models.Session, error) {
	rows, err := s.db.QueryContext(ctx, selectSessions+` ORDER BY beginTime, id`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*models.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func (s *SessionStore) DeleteOne(ctx context.Context, session *models.Session) error {
	if err := store.ValidateSession(session); err != nil {
		return store.NewPersistenceError(store.OpWrite, err)
	}
	return s.exec(ctx, `DELETE FROM session WHERE id = ?`, session.ID)
}

func (s *SessionStore) DeleteAll(ctx context.Context) error {
	return s.exec(ctx, `DELETE FROM session`)
}

func (s *SessionStore) exec(ctx context.Context, query string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureSchema(ctx); err != nil {
		return store.NewPersistenceError(store.OpWrite, err)
	}

	err := store.Retry(ctx, s.retry, s.logger, isTransient, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
	return store.NewPersistenceError(store.OpWrite, err)
}

// Erase drops the table and reclaims its space. The next operation recreates it.
func (s *SessionStore) Erase(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.NewPersistenceError(store.OpSchema, store.ErrStoreClosed)
	}

	err := store.Retry(ctx, s.retry, s.logger, isTransient, func() error {
		if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS session`); err != nil {
			return fmt.Errorf("drop session table: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
			return fmt.Errorf("vacuum: %w", err)
		}
		return nil
	})
	s.schemaReady = false
	if err != nil {
		return store.NewPersistenceError(store.OpSchema, err)
	}

	s.logger.Info().Msg("Erased session store")
	return nil
}

// Close releases the underlying SQLite connection.
func (s *SessionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// isTransient reports whether err is a busy or locked database.
func isTransient(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code() & 0xff
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}

// sessionRow is a session flattened to column values. Nested values are
// stored as JSON text with the declared field names.
type sessionRow struct {
	ID         string
	AppID      string
	BeginTime  float64
	DeviceInfo string
	EndTime    sql.NullFloat64
	ScanPath   string
	Signals    string
}

func encodeRow(session *models.Session) (sessionRow, error) {
	row := sessionRow{
		ID:        session.ID,
		AppID:     session.AppID,
		BeginTime: session.BeginTime,
	}
	if session.EndTime != nil {
		row.EndTime = sql.NullFloat64{Float64: *session.EndTime, Valid: true}
	}

	normalized := session.Clone()
	normalized.Normalize()

	var err error
	if row.DeviceInfo, err = marshalColumn(normalized.DeviceInfo); err != nil {
		return sessionRow{}, fmt.Errorf("encode deviceInfo: %w", err)
	}
	if row.ScanPath, err = marshalColumn(normalized.ScanPath); err != nil {
		return sessionRow{}, fmt.Errorf("encode scanPath: %w", err)
	}
	if row.Signals, err = marshalColumn(normalized.Signals); err != nil {
		return sessionRow{}, fmt.Errorf("encode signals: %w", err)
	}
	return row, nil
}

func marshalColumn(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (*models.Session, error) {
	var row sessionRow
	if err := sc.Scan(&row.ID, &row.AppID, &row.BeginTime, &row.DeviceInfo, &row.EndTime, &row.ScanPath, &row.Signals); err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:        row.ID,
		AppID:     row.AppID,
		BeginTime: row.BeginTime,
	}
	if row.EndTime.Valid {
		end := row.EndTime.Float64
		session.EndTime = &end
	}

	if err := json.Unmarshal([]byte(row.DeviceInfo), &session.DeviceInfo); err != nil {
		return nil, fmt.Errorf("decode deviceInfo of session %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.ScanPath), &session.ScanPath); err != nil {
		return nil, fmt.Errorf("decode scanPath of session %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Signals), &session.Signals); err != nil {
		return nil, fmt.Errorf("decode signals of session %s: %w", row.ID, err)
	}
	session.Normalize()

	return session, nil
}
