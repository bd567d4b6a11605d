package tracking

// Vec3 is a point or direction in 3D space.
type Vec3 struct {
	X, Y, Z float64
}

// Mat4 is a 4x4 affine transform stored column-major, matching the layout
// delivered by face tracking anchors.
type Mat4 [4][4]float64

// Identity returns the identity transform.
func Identity() Mat4 {
	return Mat4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// Translation returns a transform moving points by (x, y, z).
func Translation(x, y, z float64) Mat4 {
	m := Identity()
	m[3] = [4]float64{x, y, z, 1}
	return m
}

// Mat4FromSlice builds a transform from 16 column-major values.
// Any other length yields the identity.
func Mat4FromSlice(values []float64) Mat4 {
	if len(values) != 16 {
		return Identity()
	}
	var m Mat4
	for col := range 4 {
		for row := range 4 {
			m[col][row] = values[col*4+row]
		}
	}
	return m
}

// TransformPoint applies m to p treated as a homogeneous point (w = 1).
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	v := [4]float64{p.X, p.Y, p.Z, 1}
	var out [4]float64
	for col := range 4 {
		for row := range 4 {
			out[row] += m[col][row] * v[col]
		}
	}
	if out[3] != 0 && out[3] != 1 {
		return Vec3{X: out[0] / out[3], Y: out[1] / out[3], Z: out[2] / out[3]}
	}
	return Vec3{X: out[0], Y: out[1], Z: out[2]}
}

// Point is a location in screen coordinate space.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Size is a viewport size in screen points.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}
