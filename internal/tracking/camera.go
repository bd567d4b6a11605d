package tracking

// minDepth keeps projection finite for points at or behind the camera plane.
const minDepth = 1e-3

// PinholeCamera is a reference projector for replayed traces. The camera looks
// down -Z with +Y up; screen coordinates grow right and down from the top-left.
type PinholeCamera struct {
	// FocalLength is in screen points per world unit at unit depth.
	FocalLength float64
}

func (c PinholeCamera) ProjectPoint(p Vec3, orientation Orientation, viewport Size) Point {
	depth := -p.Z
	if depth < minDepth {
		depth = minDepth
	}

	u := c.FocalLength * p.X / depth
	v := -c.FocalLength * p.Y / depth
	cx, cy := viewport.Width/2, viewport.Height/2

	switch orientation {
	case OrientationPortraitUpsideDown:
		return Point{X: cx - u, Y: cy - v}
	case OrientationLandscapeRight:
		return Point{X: cx - v, Y: cy + u}
	case OrientationLandscapeLeft:
		return Point{X: cx + v, Y: cy - u}
	default:
		return Point{X: cx + u, Y: cy + v}
	}
}
