// Package tracking turns raw face tracking updates into screen-space gaze
// samples and facial signal values.
package tracking

import "fmt"

// Orientation is the interface orientation code recorded with each gaze point.
type Orientation int

const (
	OrientationUnknown            Orientation = 0
	OrientationPortrait           Orientation = 1
	OrientationPortraitUpsideDown Orientation = 2
	OrientationLandscapeRight     Orientation = 3
	OrientationLandscapeLeft      Orientation = 4
)

func (o Orientation) String() string {
	switch o {
	case OrientationPortrait:
		return "portrait"
	case OrientationPortraitUpsideDown:
		return "portraitUpsideDown"
	case OrientationLandscapeRight:
		return "landscapeRight"
	case OrientationLandscapeLeft:
		return "landscapeLeft"
	default:
		return "unknown"
	}
}

// ParseOrientation accepts the names returned by Orientation.String.
func ParseOrientation(name string) (Orientation, error) {
	for _, o := range []Orientation{
		OrientationUnknown,
		OrientationPortrait,
		OrientationPortraitUpsideDown,
		OrientationLandscapeRight,
		OrientationLandscapeLeft,
	} {
		if o.String() == name {
			return o, nil
		}
	}
	return OrientationUnknown, fmt.Errorf("unknown orientation %q", name)
}

// Projector projects a world-space point into the viewport. Projection
// depends on the current interface orientation and is supplied by the
// tracking subsystem.
type Projector interface {
	ProjectPoint(p Vec3, orientation Orientation, viewport Size) Point
}

// FaceAnchor is the tracked face in one update.
type FaceAnchor struct {
	// Transform maps face space into world space.
	Transform Mat4

	// LookAtPoint is the gaze target in face space.
	LookAtPoint Vec3

	// BlendShapes holds the facial signal values reported for this update,
	// keyed by signal name.
	BlendShapes map[string]float64
}

// Frame is one raw update from the tracking subsystem.
type Frame struct {
	// Timestamp is seconds on the tracker's monotonic clock.
	Timestamp float64

	// Anchor is nil when no face is tracked.
	Anchor *FaceAnchor

	Camera        Projector
	Orientation   Orientation
	Viewport      Size
	TrackingState RawTrackingState
}

// FrameHandler receives frames from a tracker, one at a time.
type FrameHandler func(Frame) error
