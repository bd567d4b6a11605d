package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfeidau/gazerecorder/internal/models"
)

// Sentinel errors for common error conditions
var (
	ErrStoreClosed    = errors.New("session store closed")
	ErrInvalidSession = errors.New("invalid session")
)

// Op names the class of store operation that failed.
type Op string

const (
	OpRead   Op = "read"
	OpWrite  Op = "write"
	OpSchema Op = "schema"
)

// PersistenceError wraps a backend failure with the class of operation.
type PersistenceError struct {
	Op  Op
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError wraps err unless it is nil or already a PersistenceError.
func NewPersistenceError(op Op, err error) error {
	if err == nil {
		return nil
	}
	var perr *PersistenceError
	if errors.As(err, &perr) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// SessionStore is durable keyed storage for finalized sessions.
//
// Writes are upserts and surface failures. Reads absorb failures: FetchOne
// returns false when the session is absent or could not be read, and FetchAll
// returns false only when the store could not be read, so an empty store is
// reported as an empty slice with true.
//
// Implementations serialize all operations internally and are safe to call
// from any goroutine. The backing schema is created on first use and again
// after Erase.
type SessionStore interface {
	WriteOne(ctx context.Context, session *models.Session) error
	WriteMany(ctx context.Context, sessions []*models.Session) error

	FetchOne(ctx context.Context, id string) (*models.Session, bool)
	FetchAll(ctx context.Context) ([]*models.Session, bool)

	DeleteOne(ctx context.Context, session *models.Session) error
	DeleteAll(ctx context.Context) error

	// Erase destroys the backing store including its schema.
	Erase(ctx context.Context) error

	Close() error
}

// ValidateSession checks a session can be keyed.
func ValidateSession(session *models.Session) error {
	if session == nil {
		return fmt.Errorf("%w: session is nil", ErrInvalidSession)
	}
	if strings.TrimSpace(session.ID) == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidSession)
	}
	return nil
}
