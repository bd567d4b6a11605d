package recorder

import (
	"context"
	"fmt"

	"github.com/wolfeidau/gazerecorder/internal/codec"
	"github.com/wolfeidau/gazerecorder/internal/models"
)

// Export encodes one finalized session. Sessions held in memory are
// preferred; the store is consulted for anything older.
func (r *Recorder) Export(ctx context.Context, id string, opts codec.Options) ([]byte, error) {
	session, ok := r.lookup(ctx, id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return codec.EncodeSession(session, opts)
}

// ExportAll encodes every known session, in memory or stored, ordered by
// begin time. An unreadable store contributes nothing.
func (r *Recorder) ExportAll(ctx context.Context, opts codec.Options) ([]byte, error) {
	return codec.EncodeSessions(r.All(ctx), opts)
}

// All merges in-memory sessions with stored ones. In-memory copies win.
func (r *Recorder) All(ctx context.Context) []*models.Session {
	byID := make(map[string]*models.Session)

	if r.store != nil {
		if stored, ok := r.store.FetchAll(ctx); ok {
			for _, s := range stored {
				byID[s.ID] = s
			}
		} else {
			r.general.Warn().Msg("Session store unreadable, exporting in-memory sessions only")
		}
	}
	for _, s := range r.Sessions() {
		byID[s.ID] = s
	}

	all := make([]*models.Session, 0, len(byID))
	for _, s := range byID {
		all = append(all, s)
	}
	models.SortSessions(all)
	return all
}

func (r *Recorder) lookup(ctx context.Context, id string) (*models.Session, bool) {
	r.mu.Lock()
	for i := len(r.sessions) - 1; i >= 0; i-- {
		if r.sessions[i].ID == id {
			s := r.sessions[i].Clone()
			r.mu.Unlock()
			return s, true
		}
	}
	r.mu.Unlock()

	if r.store == nil {
		return nil, false
	}
	return r.store.FetchOne(ctx, id)
}

// Import decodes one session, keeps it in memory and writes it to the store.
// A decode failure or a rejected session leaves everything untouched; a write
// failure is returned with the imported session.
func (r *Recorder) Import(ctx context.Context, data []byte) (*models.Session, error) {
	session, err := codec.DecodeSession(data)
	if err != nil {
		return nil, err
	}

	if err := r.checkImport(session); err != nil {
		return nil, err
	}

	r.remember(session)

	if r.store != nil {
		if err := r.store.WriteOne(ctx, session); err != nil {
			return session.Clone(), fmt.Errorf("failed to persist imported session %s: %w", session.ID, err)
		}
	}

	r.general.Info().Str("session_id", session.ID).Msg("Session imported")
	return session.Clone(), nil
}

// ImportMany decodes a collection of sessions. Decoding and checking are all
// or nothing.
func (r *Recorder) ImportMany(ctx context.Context, data []byte) ([]*models.Session, error) {
	sessions, err := codec.DecodeSessions(data)
	if err != nil {
		return nil, err
	}

	for _, s := range sessions {
		if err := r.checkImport(s); err != nil {
			return nil, err
		}
	}

	for _, s := range sessions {
		r.remember(s)
	}

	out := make([]*models.Session, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Clone())
	}

	if r.store != nil && len(sessions) > 0 {
		if err := r.store.WriteMany(ctx, sessions); err != nil {
			return out, fmt.Errorf("failed to persist %d imported sessions: %w", len(sessions), err)
		}
	}

	r.general.Info().Int("count", len(sessions)).Msg("Sessions imported")
	return out, nil
}

// checkImport rejects sessions that are still open or that would shadow the
// session being recorded.
func (r *Recorder) checkImport(session *models.Session) error {
	if session.Active() {
		return fmt.Errorf("cannot import session %s: %w", session.ID, ErrSessionNotFinalized)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.phase.(*recording); ok && rec.session.ID == session.ID {
		return fmt.Errorf("cannot import session %s: %w", session.ID, ErrSessionIDInUse)
	}
	return nil
}

// remember adds or replaces a session in the in-memory list.
func (r *Recorder) remember(session *models.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.sessions {
		if s.ID == session.ID {
			r.sessions[i] = session.Clone()
			return
		}
	}
	r.sessions = append(r.sessions, session.Clone())
}
