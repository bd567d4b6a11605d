// Package recorder aggregates tracking samples into sessions.
//
// A Recorder is either idle or recording one session. Start arms the tracker
// and End finalizes the session, keeps it in memory and writes it to the
// configured store. A failed write is reported to the caller but the recorder
// is idle and usable either way.
package recorder

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/gazerecorder/internal/filter"
	"github.com/wolfeidau/gazerecorder/internal/logger"
	"github.com/wolfeidau/gazerecorder/internal/models"
	"github.com/wolfeidau/gazerecorder/internal/store"
	"github.com/wolfeidau/gazerecorder/internal/telemetry"
	"github.com/wolfeidau/gazerecorder/internal/tracking"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Tracker is the face tracking capability driving a recording.
type Tracker interface {
	IsSupported() bool

	// Run starts delivering frames to handler, one at a time.
	Run(handler tracking.FrameHandler) error

	// Pause stops delivery. It must not wait for an in-flight frame.
	Pause()
}

// DeviceInfoProvider snapshots the capturing device.
type DeviceInfoProvider interface {
	DeviceInfo() models.DeviceInfo
}

// DeviceInfoFunc adapts a function to DeviceInfoProvider.
type DeviceInfoFunc func() models.DeviceInfo

func (f DeviceInfoFunc) DeviceInfo() models.DeviceInfo {
	return f()
}

// State is the recorder lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRecording
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// phase is the tagged recorder state. Only recording carries a session.
type phase interface {
	state() State
}

type idle struct{}

func (idle) state() State { return StateIdle }

type recording struct {
	session     *models.Session
	transformer *tracking.Transformer
}

func (*recording) state() State { return StateRecording }

// Config holds what a recorder captures.
type Config struct {
	// AppID tags sessions and log output.
	AppID string

	// Signals are the facial signal names extracted from each frame, in order.
	Signals []string

	// SmoothingFactor is the live pointer filter factor.
	// Default: filter.DefaultFactor
	SmoothingFactor float64

	// PointerPolicy maps projected points onto the live pointer.
	// Default: tracking.DefaultPointerPolicy()
	PointerPolicy *tracking.PointerPolicy
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.AppID == "" {
		return fmt.Errorf("app id is required")
	}
	if c.SmoothingFactor < 0 || c.SmoothingFactor > 1 {
		return fmt.Errorf("smoothing factor must be between 0 and 1, got %v", c.SmoothingFactor)
	}
	seen := make(map[string]struct{}, len(c.Signals))
	for _, name := range c.Signals {
		if name == "" {
			return fmt.Errorf("signal names must not be empty")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("signal %q listed twice", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *Config) ApplyDefaults() {
	if c.SmoothingFactor == 0 {
		c.SmoothingFactor = filter.DefaultFactor
	}
	if c.PointerPolicy == nil {
		c.PointerPolicy = tracking.DefaultPointerPolicy()
	}
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock sets the clock used for session times and frame conversion. It
// must be the clock the tracker stamps frames with.
func WithClock(clock tracking.Clock) Option {
	return func(r *Recorder) {
		r.clock = clock
	}
}

// WithIDGenerator replaces the UUIDv7 session id generator.
func WithIDGenerator(newID func() string) Option {
	return func(r *Recorder) {
		r.newID = newID
	}
}

// WithStore sets where finalized sessions are written.
func WithStore(s store.SessionStore) Option {
	return func(r *Recorder) {
		r.store = s
	}
}

// WithLogger sets the base logger; categories are derived from it.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Recorder) {
		r.base = l
	}
}

// Recorder is the session aggregation state machine. It is safe for
// concurrent use: frames arrive on the tracker's goroutine while Start and
// End may be called from anywhere.
type Recorder struct {
	cfg      Config
	tracker  Tracker
	device   DeviceInfoProvider
	clock    tracking.Clock
	timeBase tracking.TimeBase // sampled once in New
	newID    func() string
	store    store.SessionStore
	base     zerolog.Logger
	cats     *logger.Categories
	general  zerolog.Logger
	metrics  *telemetry.Metrics

	mu       sync.Mutex
	phase    phase
	sessions []*models.Session // finalized and imported, in arrival order
	pointer  *tracking.Pointer
}

// New creates an idle recorder.
func New(cfg Config, tracker Tracker, device DeviceInfoProvider, opts ...Option) (*Recorder, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recorder config: %w", err)
	}
	if tracker == nil {
		return nil, fmt.Errorf("tracker is required")
	}
	if device == nil {
		device = DeviceInfoFunc(func() models.DeviceInfo { return models.DeviceInfo{} })
	}

	r := &Recorder{
		cfg:     cfg,
		tracker: tracker,
		device:  device,
		clock:   tracking.NewSystemClock(),
		newID:   newSessionID,
		base:    log.Logger,
		metrics: telemetry.GetMetrics(),
		phase:   idle{},
	}
	for _, opt := range opts {
		opt(r)
	}

	r.timeBase = tracking.NewTimeBase(r.clock)
	r.cats = logger.NewCategories(r.base, cfg.AppID)
	r.general = r.cats.General()
	r.pointer = tracking.NewPointer(cfg.PointerPolicy, cfg.SmoothingFactor)

	return r, nil
}

func newSessionID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Start begins a new session and arms the tracker.
func (r *Recorder) Start(ctx context.Context) (*models.Session, error) {
	r.mu.Lock()
	if _, active := r.phase.(*recording); active {
		r.mu.Unlock()
		return nil, ErrSessionAlreadyActive
	}
	if !r.tracker.IsSupported() {
		r.mu.Unlock()
		return nil, ErrHardwareUnsupported
	}

	session := models.NewSession(r.newID(), r.cfg.AppID, tracking.UnixSeconds(r.clock.Now()), r.device.DeviceInfo())
	rec := &recording{
		session:     session,
		transformer: tracking.NewTransformer(r.timeBase, r.cfg.Signals, r.cats),
	}
	r.phase = rec
	r.pointer.Reset()
	snapshot := session.Clone()
	r.mu.Unlock()

	// Run may deliver frames before returning, so it is called unlocked.
	if err := r.tracker.Run(r.OnFrame); err != nil {
		r.mu.Lock()
		if r.phase == phase(rec) {
			r.phase = idle{}
		}
		r.mu.Unlock()

		r.general.Error().Err(err).Str("session_id", session.ID).Msg("Failed to start tracker")
		return nil, fmt.Errorf("failed to start tracker: %w", err)
	}

	r.metrics.SessionsStartedTotal.Add(ctx, 1, r.appAttr())
	r.metrics.ActiveSessions.Add(ctx, 1, r.appAttr())

	r.general.Info().
		Str("session_id", session.ID).
		Float64("begin_time", session.BeginTime).
		Str("device_model", session.DeviceInfo.Model).
		Msg("Session started")

	return snapshot, nil
}

// OnFrame transforms a tracker frame and appends it to the active session.
// It is a no-op while idle. Frames whose tracking state cannot be classified
// are dropped and the error returned.
func (r *Recorder) OnFrame(frame tracking.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.phase.(*recording)
	if !ok {
		return nil
	}

	sample, ok, err := rec.transformer.Transform(frame)
	if err != nil {
		r.metrics.FramesDroppedTotal.Add(context.Background(), 1, r.dropAttrs("error"))
		return err
	}
	if !ok {
		r.metrics.FramesDroppedTotal.Add(context.Background(), 1, r.dropAttrs("no_face"))
		return nil
	}

	r.appendSample(rec.session, sample)
	r.pointer.Update(sample.Screen, sample.Orientation, sample.Viewport)
	return nil
}

// OnSample appends an already transformed sample. It is a no-op while idle.
func (r *Recorder) OnSample(sample tracking.Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.phase.(*recording)
	if !ok {
		return
	}
	r.appendSample(rec.session, sample)
}

// appendSample requires r.mu.
func (r *Recorder) appendSample(session *models.Session, sample tracking.Sample) {
	session.ScanPath = append(session.ScanPath, sample.Gaze)
	for _, s := range sample.Signals {
		session.Signals[s.SignalName] = append(session.Signals[s.SignalName], s)
	}

	ctx := context.Background()
	r.metrics.GazeSamplesTotal.Add(ctx, 1, r.appAttr())
	if n := len(sample.Signals); n > 0 {
		r.metrics.SignalSamplesTotal.Add(ctx, int64(n), r.appAttr())
	}
}

// End finalizes the active session and writes it to the store. The recorder
// is idle afterwards even when the write fails; the finalized session is
// returned with the write error.
func (r *Recorder) End(ctx context.Context) (*models.Session, error) {
	r.mu.Lock()
	rec, ok := r.phase.(*recording)
	if !ok {
		r.mu.Unlock()
		return nil, ErrNoActiveSession
	}

	session := rec.session
	session.Finalize(tracking.UnixSeconds(r.clock.Now()))
	r.phase = idle{}
	r.sessions = append(r.sessions, session)
	snapshot := session.Clone()
	r.mu.Unlock()

	r.tracker.Pause()

	r.metrics.SessionsEndedTotal.Add(ctx, 1, r.appAttr())
	r.metrics.ActiveSessions.Add(ctx, -1, r.appAttr())

	r.general.Info().
		Str("session_id", snapshot.ID).
		Float64("duration_seconds", *snapshot.EndTime-snapshot.BeginTime).
		Int("gaze_points", len(snapshot.ScanPath)).
		Int("samples", snapshot.SampleCount()).
		Msg("Session ended")

	if err := r.persist(ctx, snapshot); err != nil {
		return snapshot, err
	}
	return snapshot, nil
}

func (r *Recorder) persist(ctx context.Context, session *models.Session) error {
	if r.store == nil {
		return nil
	}

	ctx, span := telemetry.Tracer().Start(ctx, "recorder.persist",
		trace.WithAttributes(
			attribute.String("session.id", session.ID),
			attribute.Int("session.samples", session.SampleCount()),
		),
	)
	defer span.End()

	if err := r.store.WriteOne(ctx, session); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session write failed")

		r.general.Error().Err(err).Str("session_id", session.ID).Msg("Failed to persist session")
		return fmt.Errorf("failed to persist session %s: %w", session.ID, err)
	}
	return nil
}

// State returns the lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase.state()
}

// Current returns a copy of the session being recorded.
func (r *Recorder) Current() (*models.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.phase.(*recording)
	if !ok {
		return nil, false
	}
	return rec.session.Clone(), true
}

// Sessions returns copies of the sessions finalized or imported since the
// recorder was created.
func (r *Recorder) Sessions() []*models.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.Clone())
	}
	return out
}

// Pointer returns the smoothed live pointer, false before the first frame.
func (r *Recorder) Pointer() (tracking.Point, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pointer.Position()
}

func (r *Recorder) appAttr() metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("app_id", r.cfg.AppID))
}

func (r *Recorder) dropAttrs(reason string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("app_id", r.cfg.AppID),
		attribute.String("reason", reason),
	)
}
