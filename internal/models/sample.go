package models

// TrackingState is the tracking quality classification attached to a sample.
// The zero value means tracking was normal and is omitted on the wire.
type TrackingState string

const (
	TrackingStateNormal                      TrackingState = ""
	TrackingStateNotAvailable                TrackingState = "notAvailable"
	TrackingStateLimitedExcessiveMotion      TrackingState = "limited.excessiveMotion"
	TrackingStateLimitedInitializing         TrackingState = "limited.initializing"
	TrackingStateLimitedInsufficientFeatures TrackingState = "limited.insufficientFeatures"
	TrackingStateLimitedRelocalizing         TrackingState = "limited.relocalizing"
)

// Degraded returns true for any classification other than normal.
func (ts TrackingState) Degraded() bool {
	return ts != TrackingStateNormal
}

// Gaze is one projected point in screen coordinate space.
type Gaze struct {
	Timestamp     float64       `json:"timestamp"` // unix seconds
	TrackingState TrackingState `json:"trackingState,omitempty"`
	X             float64       `json:"x"`
	Y             float64       `json:"y"`
	Orientation   int           `json:"orientation"`
}

// SignalSample is one named facial signal observation, usually in [0,1].
type SignalSample struct {
	Timestamp     float64       `json:"timestamp"` // unix seconds
	TrackingState TrackingState `json:"trackingState,omitempty"`
	SignalName    string        `json:"signalName"`
	Value         float64       `json:"value"`
}

// ScreenSize is a width/height pair in points.
type ScreenSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DeviceInfo is a static snapshot of the capturing device.
type DeviceInfo struct {
	Model         string     `json:"model"`
	ScreenSize    ScreenSize `json:"screenSize"`
	SystemName    string     `json:"systemName"`
	SystemVersion string     `json:"systemVersion"`
}
