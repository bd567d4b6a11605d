package recorder

import "errors"

// Sentinel errors for lifecycle misuse. The recorder state is unchanged when
// any of these is returned.
var (
	ErrHardwareUnsupported  = errors.New("face tracking is not supported on this device")
	ErrSessionAlreadyActive = errors.New("a session is already being recorded")
	ErrNoActiveSession      = errors.New("no session is being recorded")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionIDInUse       = errors.New("session id belongs to the session being recorded")
	ErrSessionNotFinalized  = errors.New("session has no end time")
)
