package tracking

import "time"

// Clock pairs the wall clock with the monotonic clock frames are stamped with.
type Clock interface {
	Now() time.Time
	Uptime() time.Duration
}

// SystemClock measures uptime from its creation using Go's monotonic clock.
// Trackers stamping frames must use the same instance.
type SystemClock struct {
	origin time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{origin: time.Now()}
}

func (c *SystemClock) Now() time.Time {
	return time.Now()
}

func (c *SystemClock) Uptime() time.Duration {
	return time.Since(c.origin)
}

// TimeBase converts monotonic frame timestamps to unix seconds.
// The offset is sampled once; re-sampling per frame would inject wall clock
// adjustments into the recorded series.
type TimeBase struct {
	offset float64
}

func NewTimeBase(clock Clock) TimeBase {
	return TimeBase{offset: UnixSeconds(clock.Now()) - clock.Uptime().Seconds()}
}

// Wall returns the unix time for a monotonic frame timestamp.
func (tb TimeBase) Wall(frameTimestamp float64) float64 {
	return tb.offset + frameTimestamp
}

func (tb TimeBase) Offset() float64 {
	return tb.offset
}

// UnixSeconds returns t as fractional seconds since the unix epoch.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
