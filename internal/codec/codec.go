// Package codec converts sessions to and from the JSON exchange format.
//
// Field names are written as declared on the models or in snake case.
// Decoding accepts either form regardless of how the payload was written.
// Keys of the signals object are signal names and are never rewritten.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/wolfeidau/gazerecorder/internal/models"
)

// SerializationError is returned for any payload that cannot be encoded or
// decoded. No session is returned alongside it.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization failed: %v", e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

func serializationError(format string, args ...any) error {
	return &SerializationError{Err: fmt.Errorf(format, args...)}
}

// Options controls encoding.
type Options struct {
	Keys   KeyStrategy
	Indent bool
}

// EncodeSession encodes one session as a JSON object.
func EncodeSession(session *models.Session, opts Options) ([]byte, error) {
	if session == nil {
		return nil, serializationError("session is nil")
	}
	return encode(session, sessionShape, opts)
}

// EncodeSessions encodes sessions as a JSON array in the order given.
func EncodeSessions(sessions []*models.Session, opts Options) ([]byte, error) {
	for i, s := range sessions {
		if s == nil {
			return nil, serializationError("session %d is nil", i)
		}
	}
	if sessions == nil {
		sessions = []*models.Session{}
	}
	return encode(sessions, &shape{name: "sessions", elem: sessionShape}, opts)
}

func encode(v any, sh *shape, opts Options) ([]byte, error) {
	data, err := json.Marshal(normalized(v))
	if err != nil {
		return nil, &SerializationError{Err: err}
	}

	if opts.Keys != KeysAsDeclared {
		generic, err := decodeGeneric(data)
		if err != nil {
			return nil, err
		}
		if data, err = json.Marshal(rename(generic, sh, opts.Keys)); err != nil {
			return nil, &SerializationError{Err: err}
		}
	}

	if opts.Indent {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return nil, &SerializationError{Err: err}
		}
		data = buf.Bytes()
	}
	return data, nil
}

// normalized writes nil collections as empty ones without touching the caller's value.
func normalized(v any) any {
	switch val := v.(type) {
	case *models.Session:
		c := val.Clone()
		c.Normalize()
		return c
	case []*models.Session:
		out := make([]*models.Session, len(val))
		for i, s := range val {
			out[i] = normalized(s).(*models.Session)
		}
		return out
	}
	return v
}

// DecodeSession decodes one session object.
func DecodeSession(data []byte) (*models.Session, error) {
	generic, err := decodeGeneric(data)
	if err != nil {
		return nil, err
	}
	obj, ok := generic.(map[string]any)
	if !ok {
		return nil, serializationError("expected a session object, got %s", describe(generic))
	}
	return decodeSessionValue(obj, "$")
}

// DecodeSessions decodes an array of sessions or an object keyed by session
// id. Keyed input is returned ordered by begin time, then id.
func DecodeSessions(data []byte) ([]*models.Session, error) {
	generic, err := decodeGeneric(data)
	if err != nil {
		return nil, err
	}

	switch val := generic.(type) {
	case []any:
		sessions := make([]*models.Session, 0, len(val))
		seen := make(map[string]struct{}, len(val))
		for i, item := range val {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, serializationError("$[%d]: expected a session object, got %s", i, describe(item))
			}
			s, err := decodeSessionValue(obj, fmt.Sprintf("$[%d]", i))
			if err != nil {
				return nil, err
			}
			if _, dup := seen[s.ID]; dup {
				return nil, serializationError("$[%d]: duplicate session id %q", i, s.ID)
			}
			seen[s.ID] = struct{}{}
			sessions = append(sessions, s)
		}
		return sessions, nil

	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sessions := make([]*models.Session, 0, len(val))
		for _, k := range keys {
			path := fmt.Sprintf("$[%q]", k)
			obj, ok := val[k].(map[string]any)
			if !ok {
				return nil, serializationError("%s: expected a session object, got %s", path, describe(val[k]))
			}
			s, err := decodeSessionValue(obj, path)
			if err != nil {
				return nil, err
			}
			if s.ID != k {
				return nil, serializationError("%s: session id %q does not match its key", path, s.ID)
			}
			sessions = append(sessions, s)
		}
		models.SortSessions(sessions)
		return sessions, nil

	default:
		return nil, serializationError("expected an array or object of sessions, got %s", describe(generic))
	}
}

func decodeSessionValue(obj map[string]any, path string) (*models.Session, error) {
	canonical, err := canonicalize(obj, sessionShape, path)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}

	data, err := json.Marshal(canonical)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}

	var session models.Session
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&session); err != nil {
		return nil, serializationError("%s: %w", path, err)
	}

	if strings.TrimSpace(session.ID) == "" {
		return nil, serializationError("%s: session id must not be empty", path)
	}
	session.Normalize()

	return &session, nil
}

// decodeGeneric parses JSON keeping numbers as written.
func decodeGeneric(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &SerializationError{Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, serializationError("unexpected data after JSON value")
	}
	return v, nil
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
