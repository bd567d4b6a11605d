package store

import (
	"context"
	"time"

	"github.com/wolfeidau/gazerecorder/internal/models"
	"github.com/wolfeidau/gazerecorder/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrumented records operation counts, durations and failures for a store.
type Instrumented struct {
	next    SessionStore
	backend string
}

// Instrument wraps a store; backend is recorded as an attribute.
func Instrument(next SessionStore, backend string) *Instrumented {
	return &Instrumented{next: next, backend: backend}
}

func (s *Instrumented) record(ctx context.Context, op string, start time.Time, failed bool) {
	m := telemetry.GetMetrics()
	attrs := metric.WithAttributes(
		attribute.String("backend", s.backend),
		attribute.String("operation", op),
	)

	m.StoreOperationsTotal.Add(ctx, 1, attrs)
	m.StoreOperationDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)

	if !failed {
		return
	}
	switch op {
	case "fetch_one", "fetch_all":
		m.StoreReadErrorsTotal.Add(ctx, 1, attrs)
	default:
		m.StoreWriteErrorsTotal.Add(ctx, 1, attrs)
	}
}

func (s *Instrumented) WriteOne(ctx context.Context, session *models.Session) error {
	start := time.Now()
	err := s.next.WriteOne(ctx, session)
	s.record(ctx, "write_one", start, err != nil)
	return err
}

func (s *Instrumented) WriteMany(ctx context.Context, sessions []*models.Session) error {
	start := time.Now()
	err := s.next.WriteMany(ctx, sessions)
	s.record(ctx, "write_many", start, err != nil)
	return err
}

func (s *Instrumented) FetchOne(ctx context.Context, id string) (*models.Session, bool) {
	start := time.Now()
	session, ok := s.next.FetchOne(ctx, id)
	// absence and failure are indistinguishable here; only FetchAll reports failure.
	s.record(ctx, "fetch_one", start, false)
	return session, ok
}

func (s *Instrumented) FetchAll(ctx context.Context) ([]*models.Session, bool) {
	start := time.Now()
	sessions, ok := s.next.FetchAll(ctx)
	s.record(ctx, "fetch_all", start, !ok)
	return sessions, ok
}

func (s *Instrumented) DeleteOne(ctx context.Context, session *models.Session) error {
	start := time.Now()
	err := s.next.DeleteOne(ctx, session)
	s.record(ctx, "delete_one", start, err != nil)
	return err
}

func (s *Instrumented) DeleteAll(ctx context.Context) error {
	start := time.Now()
	err := s.next.DeleteAll(ctx)
	s.record(ctx, "delete_all", start, err != nil)
	return err
}

func (s *Instrumented) Erase(ctx context.Context) error {
	start := time.Now()
	err := s.next.Erase(ctx)
	s.record(ctx, "erase", start, err != nil)
	return err
}

func (s *Instrumented) Close() error {
	return s.next.Close()
}
