package models

import "sort"

// Session represents one bounded recording interval.
// A session is active while EndTime is nil and immutable once EndTime is set.
type Session struct {
	ID        string  `json:"id"`
	AppID     string  `json:"appID"`
	BeginTime float64 `json:"beginTime"` // unix seconds

	DeviceInfo DeviceInfo `json:"deviceInfo"`

	EndTime *float64 `json:"endTime,omitempty"` // unix seconds, nil while active

	ScanPath []Gaze                    `json:"scanPath"`
	Signals  map[string][]SignalSample `json:"signals"`
}

// NewSession allocates an active session with empty sample collections.
func NewSession(id, appID string, beginTime float64, device DeviceInfo) *Session {
	return &Session{
		ID:         id,
		AppID:      appID,
		BeginTime:  beginTime,
		DeviceInfo: device,
		ScanPath:   []Gaze{},
		Signals:    map[string][]SignalSample{},
	}
}

// Active returns true if the session has not been finalized.
func (s *Session) Active() bool {
	return s.EndTime == nil
}

// Normalize replaces nil collections with empty ones so decoded and
// freshly created sessions compare equal.
func (s *Session) Normalize() {
	if s.ScanPath == nil {
		s.ScanPath = []Gaze{}
	}
	if s.Signals == nil {
		s.Signals = map[string][]SignalSample{}
	}
	for name, samples := range s.Signals {
		if samples == nil {
			s.Signals[name] = []SignalSample{}
		}
	}
}

// SampleCount returns the number of gaze points plus all signal samples.
func (s *Session) SampleCount() int {
	n := len(s.ScanPath)
	for _, samples := range s.Signals {
		n += len(samples)
	}
	return n
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	clone := *s

	if s.EndTime != nil {
		end := *s.EndTime
		clone.EndTime = &end
	}

	clone.ScanPath = make([]Gaze, len(s.ScanPath))
	copy(clone.ScanPath, s.ScanPath)

	clone.Signals = make(map[string][]SignalSample, len(s.Signals))
	for name, samples := range s.Signals {
		cp := make([]SignalSample, len(samples))
		copy(cp, samples)
		clone.Signals[name] = cp
	}

	return &clone
}

// Finalize sets the end time. The end time never precedes the begin time.
func (s *Session) Finalize(endTime float64) {
	if endTime < s.BeginTime {
		endTime = s.BeginTime
	}
	s.EndTime = &endTime
}

// SortSessions orders sessions by begin time, then id.
func SortSessions(sessions []*Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].BeginTime != sessions[j].BeginTime {
			return sessions[i].BeginTime < sessions[j].BeginTime
		}
		return sessions[i].ID < sessions[j].ID
	})
}
