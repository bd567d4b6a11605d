package tracking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wolfeidau/gazerecorder/internal/models"
)

// ErrUnclassifiedTrackingState is returned when a tracker reports a state
// outside the known enumeration.
var ErrUnclassifiedTrackingState = errors.New("unclassified tracking state")

// TrackingKind is the top level camera tracking state.
type TrackingKind int

const (
	TrackingNormal TrackingKind = iota
	TrackingNotAvailable
	TrackingLimited
)

// LimitedReason qualifies TrackingLimited.
type LimitedReason int

const (
	LimitedReasonNone LimitedReason = iota
	LimitedReasonExcessiveMotion
	LimitedReasonInitializing
	LimitedReasonInsufficientFeatures
	LimitedReasonRelocalizing
)

// kindUnrecognized marks a state parsed from text no classifier knows about.
const kindUnrecognized TrackingKind = -1

// RawTrackingState is the tracking state as reported by the tracker.
type RawTrackingState struct {
	Kind   TrackingKind
	Reason LimitedReason

	// Raw keeps the original text for states parsed from traces.
	Raw string
}

// UnclassifiedTrackingStateError carries the state that failed classification.
type UnclassifiedTrackingStateError struct {
	State RawTrackingState
}

func (e *UnclassifiedTrackingStateError) Error() string {
	if e.State.Raw != "" {
		return fmt.Sprintf("%s: %q", ErrUnclassifiedTrackingState, e.State.Raw)
	}
	return fmt.Sprintf("%s: kind=%d reason=%d", ErrUnclassifiedTrackingState, e.State.Kind, e.State.Reason)
}

func (e *UnclassifiedTrackingStateError) Unwrap() error {
	return ErrUnclassifiedTrackingState
}

// Classify maps a raw tracking state onto the recorded classification.
// Normal tracking maps to models.TrackingStateNormal. Unknown states are an
// error and are never reported as normal.
func Classify(state RawTrackingState) (models.TrackingState, error) {
	switch state.Kind {
	case TrackingNormal:
		return models.TrackingStateNormal, nil
	case TrackingNotAvailable:
		return models.TrackingStateNotAvailable, nil
	case TrackingLimited:
		switch state.Reason {
		case LimitedReasonExcessiveMotion:
			return models.TrackingStateLimitedExcessiveMotion, nil
		case LimitedReasonInitializing:
			return models.TrackingStateLimitedInitializing, nil
		case LimitedReasonInsufficientFeatures:
			return models.TrackingStateLimitedInsufficientFeatures, nil
		case LimitedReasonRelocalizing:
			return models.TrackingStateLimitedRelocalizing, nil
		}
	}
	return "", &UnclassifiedTrackingStateError{State: state}
}

// ParseRawTrackingState reads the textual form used in traces: "normal" (or
// empty), "notAvailable" and "limited.<reason>". Unknown text is kept as an
// unrecognized state so the failure surfaces at classification time.
func ParseRawTrackingState(text string) RawTrackingState {
	switch strings.TrimSpace(text) {
	case "", "normal":
		return RawTrackingState{Kind: TrackingNormal}
	case string(models.TrackingStateNotAvailable):
		return RawTrackingState{Kind: TrackingNotAvailable}
	case string(models.TrackingStateLimitedExcessiveMotion):
		return RawTrackingState{Kind: TrackingLimited, Reason: LimitedReasonExcessiveMotion}
	case string(models.TrackingStateLimitedInitializing):
		return RawTrackingState{Kind: TrackingLimited, Reason: LimitedReasonInitializing}
	case string(models.TrackingStateLimitedInsufficientFeatures):
		return RawTrackingState{Kind: TrackingLimited, Reason: LimitedReasonInsufficientFeatures}
	case string(models.TrackingStateLimitedRelocalizing):
		return RawTrackingState{Kind: TrackingLimited, Reason: LimitedReasonRelocalizing}
	}
	return RawTrackingState{Kind: kindUnrecognized, Raw: text}
}
