package tracking

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/gazerecorder/internal/logger"
	"github.com/wolfeidau/gazerecorder/internal/models"
)

// ErrNoProjector is returned for frames that carry an anchor but no camera.
var ErrNoProjector = errors.New("frame has no camera projector")

// Sample is the transformed output of one frame.
type Sample struct {
	Gaze    models.Gaze
	Signals []models.SignalSample

	// Screen is the projected point before any pointer adjustment.
	Screen      Point
	Orientation Orientation
	Viewport    Size
}

// Transformer converts raw frames into samples. It is not safe for
// concurrent use; trackers deliver one frame at a time.
type Transformer struct {
	timeBase TimeBase
	signals  []string

	gazeLog    zerolog.Logger
	stateLog   zerolog.Logger
	signalLogs map[string]zerolog.Logger
}

// NewTransformer creates a transformer extracting the named signals, in order.
func NewTransformer(timeBase TimeBase, signals []string, cats *logger.Categories) *Transformer {
	if cats == nil {
		cats = logger.Nop()
	}

	t := &Transformer{
		timeBase:   timeBase,
		signals:    append([]string(nil), signals...),
		gazeLog:    cats.Gaze(),
		stateLog:   cats.TrackingState(),
		signalLogs: make(map[string]zerolog.Logger, len(signals)),
	}
	for _, name := range signals {
		t.signalLogs[name] = cats.Signal(name)
	}
	return t
}

// Signals returns the configured signal names.
func (t *Transformer) Signals() []string {
	return append([]string(nil), t.signals...)
}

// TimeBase returns the clock offset used for every frame.
func (t *Transformer) TimeBase() TimeBase {
	return t.timeBase
}

// Transform converts one frame. It returns false when the frame holds no
// tracked face; that is not an error.
func (t *Transformer) Transform(frame Frame) (Sample, bool, error) {
	if frame.Anchor == nil {
		return Sample{}, false, nil
	}

	state, err := Classify(frame.TrackingState)
	if err != nil {
		t.stateLog.Error().Err(err).Float64("frame_timestamp", frame.Timestamp).Msg("Tracking state could not be classified")
		return Sample{}, false, err
	}
	if state.Degraded() {
		t.stateLog.Debug().Str("tracking_state", string(state)).Msg("Degraded tracking")
	}

	if frame.Camera == nil {
		return Sample{}, false, ErrNoProjector
	}

	world := frame.Anchor.Transform.TransformPoint(frame.Anchor.LookAtPoint)
	screen := frame.Camera.ProjectPoint(world, frame.Orientation, frame.Viewport)
	timestamp := t.timeBase.Wall(frame.Timestamp)

	sample := Sample{
		Gaze: models.Gaze{
			Timestamp:     timestamp,
			TrackingState: state,
			X:             screen.X,
			Y:             screen.Y,
			Orientation:   int(frame.Orientation),
		},
		Screen:      screen,
		Orientation: frame.Orientation,
		Viewport:    frame.Viewport,
	}

	t.gazeLog.Debug().
		Float64("x", screen.X).
		Float64("y", screen.Y).
		Str("orientation", frame.Orientation.String()).
		Msg("Gaze")

	for _, name := range t.signals {
		value, ok := frame.Anchor.BlendShapes[name]
		if !ok {
			continue
		}
		sample.Signals = append(sample.Signals, models.SignalSample{
			Timestamp:     timestamp,
			TrackingState: state,
			SignalName:    name,
			Value:         value,
		})

		l := t.signalLogs[name]
		l.Debug().Float64("value", value).Msg("Signal")
	}

	return sample, true, nil
}
