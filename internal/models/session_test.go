package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSession_Clone(t *testing.T) {
	s := NewSession("abc", "app", 100, DeviceInfo{Model: "iPhone13,2"})
	s.ScanPath = append(s.ScanPath, Gaze{Timestamp: 101, X: 1, Y: 2})
	s.Signals["eyeBlinkLeft"] = []SignalSample{{Timestamp: 101, SignalName: "eyeBlinkLeft", Value: 0.5}}
	s.Finalize(102)

	clone := s.Clone()
	require.Equal(t, s, clone)

	clone.ScanPath[0].X = 99
	clone.Signals["eyeBlinkLeft"][0].Value = 0.9
	*clone.EndTime = 200

	require.Equal(t, 1.0, s.ScanPath[0].X)
	require.Equal(t, 0.5, s.Signals["eyeBlinkLeft"][0].Value)
	require.Equal(t, 102.0, *s.EndTime)
}

func TestSession_Finalize(t *testing.T) {
	t.Run("sets end time", func(t *testing.T) {
		s := NewSession("abc", "app", 100, DeviceInfo{})
		require.True(t, s.Active())

		s.Finalize(105)
		require.False(t, s.Active())
		require.Equal(t, 105.0, *s.EndTime)
	})

	t.Run("end time never precedes begin time", func(t *testing.T) {
		s := NewSession("abc", "app", 100, DeviceInfo{})
		s.Finalize(99)
		require.Equal(t, 100.0, *s.EndTime)
	})
}

func TestSession_Normalize(t *testing.T) {
	s := &Session{ID: "abc", Signals: map[string][]SignalSample{"jawOpen": nil}}
	s.Normalize()

	require.NotNil(t, s.ScanPath)
	require.NotNil(t, s.Signals["jawOpen"])
	require.Equal(t, 0, s.SampleCount())
}

func TestTrackingState_Degraded(t *testing.T) {
	require.False(t, TrackingStateNormal.Degraded())
	require.True(t, TrackingStateLimitedRelocalizing.Degraded())
}

func TestSortSessions(t *testing.T) {
	sessions := []*Session{
		{ID: "c", BeginTime: 2},
		{ID: "b", BeginTime: 1},
		{ID: "a", BeginTime: 2},
	}
	SortSessions(sessions)

	var ids []string
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}
	require.Equal(t, []string{"b", "a", "c"}, ids)
}
