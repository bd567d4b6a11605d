package tracking

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var ErrTrackerRunning = errors.New("tracker already running")

// Trace is a recorded sequence of tracking updates. YAML and JSON are both
// accepted since JSON is valid YAML.
type Trace struct {
	// Supported reports whether face tracking is available; defaults to true.
	Supported *bool `yaml:"supported"`

	Viewport    Size    `yaml:"viewport"`
	FocalLength float64 `yaml:"focalLength"`

	// IntervalMillis paces delivery; 0 delivers frames back to back.
	IntervalMillis int `yaml:"intervalMillis"`

	Frames []TraceFrame `yaml:"frames"`
}

// TraceFrame is one update. Timestamp is seconds relative to trace start.
type TraceFrame struct {
	Timestamp     float64      `yaml:"timestamp"`
	Orientation   Orientation  `yaml:"orientation"`
	TrackingState string       `yaml:"trackingState"`
	Anchor        *TraceAnchor `yaml:"anchor"`
}

type TraceAnchor struct {
	// Transform is 16 column-major values; identity when omitted.
	Transform   []float64          `yaml:"transform"`
	LookAtPoint [3]float64         `yaml:"lookAtPoint"`
	BlendShapes map[string]float64 `yaml:"blendShapes"`
}

// LoadTrace reads a trace file.
func LoadTrace(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	return ParseTrace(data)
}

func ParseTrace(data []byte) (*Trace, error) {
	var trace Trace
	if err := yaml.Unmarshal(data, &trace); err != nil {
		return nil, fmt.Errorf("failed to parse trace: %w", err)
	}
	if err := trace.Validate(); err != nil {
		return nil, err
	}
	trace.ApplyDefaults()
	return &trace, nil
}

func (t *Trace) Validate() error {
	if t.Viewport.Width < 0 || t.Viewport.Height < 0 {
		return fmt.Errorf("trace viewport must not be negative")
	}
	for i, f := range t.Frames {
		if f.Anchor != nil && len(f.Anchor.Transform) != 0 && len(f.Anchor.Transform) != 16 {
			return fmt.Errorf("trace frame %d: transform must have 16 values, got %d", i, len(f.Anchor.Transform))
		}
		if i > 0 && f.Timestamp < t.Frames[i-1].Timestamp {
			return fmt.Errorf("trace frame %d: timestamp goes backwards", i)
		}
	}
	return nil
}

func (t *Trace) ApplyDefaults() {
	if t.Supported == nil {
		supported := true
		t.Supported = &supported
	}
	if t.Viewport.Width == 0 && t.Viewport.Height == 0 {
		t.Viewport = Size{Width: 390, Height: 844}
	}
	if t.FocalLength == 0 {
		t.FocalLength = 1000
	}
}

// ReplayTracker delivers a trace's frames one at a time on a single goroutine,
// stamped on the supplied clock.
type ReplayTracker struct {
	trace  *Trace
	clock  Clock
	camera Projector
	logger zerolog.Logger

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
}

func NewReplayTracker(trace *Trace, clock Clock, logger zerolog.Logger) *ReplayTracker {
	trace.ApplyDefaults()

	done := make(chan struct{})
	close(done)

	return &ReplayTracker{
		trace:  trace,
		clock:  clock,
		camera: PinholeCamera{FocalLength: trace.FocalLength},
		logger: logger,
		done:   done,
	}
}

func (r *ReplayTracker) IsSupported() bool {
	return *r.trace.Supported
}

// Run starts delivery. Handler errors are logged and delivery continues.
func (r *ReplayTracker) Run(handler FrameHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrTrackerRunning
	}

	r.running = true
	r.stop = make(chan struct{})
	r.done = make(chan struct{})

	go r.deliver(handler, r.stop, r.done, r.clock.Uptime().Seconds())

	return nil
}

// Pause stops delivery without waiting for an in-flight frame.
func (r *ReplayTracker) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	close(r.stop)
	r.running = false
}

// Done is closed once delivery has finished or been paused.
func (r *ReplayTracker) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

func (r *ReplayTracker) deliver(handler FrameHandler, stop, done chan struct{}, origin float64) {
	defer close(done)

	interval := time.Duration(r.trace.IntervalMillis) * time.Millisecond
	delivered := 0

	for i, tf := range r.trace.Frames {
		select {
		case <-stop:
			r.logger.Debug().Int("delivered", delivered).Msg("Replay paused")
			return
		default:
		}

		if err := handler(r.frame(tf, origin)); err != nil {
			r.logger.Warn().Err(err).Int("frame", i).Msg("Frame handler failed")
		}
		delivered++

		if interval > 0 {
			select {
			case <-stop:
				return
			case <-time.After(interval):
			}
		}
	}

	r.logger.Debug().Int("delivered", delivered).Msg("Replay finished")

	r.mu.Lock()
	if r.stop == stop {
		r.running = false
	}
	r.mu.Unlock()
}

func (r *ReplayTracker) frame(tf TraceFrame, origin float64) Frame {
	f := Frame{
		Timestamp:     origin + tf.Timestamp,
		Camera:        r.camera,
		Orientation:   tf.Orientation,
		Viewport:      r.trace.Viewport,
		TrackingState: ParseRawTrackingState(tf.TrackingState),
	}
	if tf.Anchor != nil {
		f.Anchor = &FaceAnchor{
			Transform:   Mat4FromSlice(tf.Anchor.Transform),
			LookAtPoint: Vec3{X: tf.Anchor.LookAtPoint[0], Y: tf.Anchor.LookAtPoint[1], Z: tf.Anchor.LookAtPoint[2]},
			BlendShapes: tf.Anchor.BlendShapes,
		}
	}
	return f
}
