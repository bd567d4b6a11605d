package tracking

import (
	"github.com/wolfeidau/gazerecorder/internal/filter"
)

// Adjustment maps a projected point onto the live pointer position:
//
//	x' = FactorX*width  + SignX*x
//	y' = FactorY*height + SignY*y
type Adjustment struct {
	FactorX float64 `yaml:"factorX"`
	FactorY float64 `yaml:"factorY"`
	SignX   float64 `yaml:"signX"`
	SignY   float64 `yaml:"signY"`
}

// Apply adjusts p for a viewport.
func (a Adjustment) Apply(p Point, viewport Size) Point {
	return Point{
		X: a.FactorX*viewport.Width + a.SignX*p.X,
		Y: a.FactorY*viewport.Height + a.SignY*p.Y,
	}
}

// PortraitAdjustment is the hand-calibrated portrait mapping.
var PortraitAdjustment = Adjustment{FactorX: 0.5, FactorY: 1.25, SignX: -1, SignY: -1}

// PointerPolicy is the per-orientation adjustment table for the live pointer.
type PointerPolicy struct {
	entries  map[Orientation]Adjustment
	fallback Adjustment
}

// NewPointerPolicy builds a policy; orientations without an entry use fallback.
func NewPointerPolicy(fallback Adjustment, entries map[Orientation]Adjustment) *PointerPolicy {
	p := &PointerPolicy{entries: make(map[Orientation]Adjustment, len(entries)), fallback: fallback}
	for o, a := range entries {
		p.entries[o] = a
	}
	return p
}

// DefaultPointerPolicy only has portrait calibrated; every other orientation
// shares the portrait constants until measured.
func DefaultPointerPolicy() *PointerPolicy {
	return NewPointerPolicy(PortraitAdjustment, map[Orientation]Adjustment{
		OrientationPortrait: PortraitAdjustment,
	})
}

// Lookup returns the adjustment for an orientation.
func (p *PointerPolicy) Lookup(o Orientation) Adjustment {
	if a, ok := p.entries[o]; ok {
		return a
	}
	return p.fallback
}

// With returns a copy of the policy with an entry replaced.
func (p *PointerPolicy) With(o Orientation, a Adjustment) *PointerPolicy {
	next := NewPointerPolicy(p.fallback, p.entries)
	next.entries[o] = a
	return next
}

// Pointer is the smoothed live gaze position used for on-screen feedback.
type Pointer struct {
	policy *PointerPolicy
	x, y   *filter.LowPassFilter
}

func NewPointer(policy *PointerPolicy, factor float64) *Pointer {
	if policy == nil {
		policy = DefaultPointerPolicy()
	}
	return &Pointer{
		policy: policy,
		x:      filter.NewLowPassFilter(factor),
		y:      filter.NewLowPassFilter(factor),
	}
}

// Update feeds a projected point and returns the smoothed pointer position.
func (p *Pointer) Update(screen Point, o Orientation, viewport Size) Point {
	target := p.policy.Lookup(o).Apply(screen, viewport)
	return Point{X: p.x.Update(target.X), Y: p.y.Update(target.Y)}
}

// Position returns the current pointer position and false before any update.
func (p *Pointer) Position() (Point, bool) {
	if !p.x.Primed() {
		return Point{}, false
	}
	return Point{X: p.x.Value(), Y: p.y.Value()}, true
}

// Reset clears smoothing state so the next update does not drift from a
// previous session's position.
func (p *Pointer) Reset() {
	p.x.Reset()
	p.y.Reset()
}
