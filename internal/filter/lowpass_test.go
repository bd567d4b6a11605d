package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLowPassFilter_FirstUpdateHasNoJump(t *testing.T) {
	for _, v := range []float64{0, 1, -42.5, 812.25} {
		f := NewLowPassFilter(DefaultFactor)
		require.False(t, f.Primed())
		require.Equal(t, v, f.Update(v))
		require.True(t, f.Primed())
	}
}

func TestLowPassFilter_ConvergesWithoutOvershoot(t *testing.T) {
	tests := []struct {
		name   string
		start  float64
		target float64
	}{
		{name: "rising", start: 0, target: 100},
		{name: "falling", start: 100, target: -20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewLowPassFilter(DefaultFactor)
			f.Update(tt.start)

			prevDist := abs(tt.target - tt.start)
			for range 500 {
				v := f.Update(tt.target)
				dist := abs(tt.target - v)
				require.LessOrEqual(t, dist, prevDist)
				if tt.target > tt.start {
					require.LessOrEqual(t, v, tt.target)
				} else {
					require.GreaterOrEqual(t, v, tt.target)
				}
				prevDist = dist
			}
			assert.InDelta(t, tt.target, f.Value(), 1e-9)
		})
	}
}

func TestLowPassFilter_ConstantInputIsStable(t *testing.T) {
	f := NewLowPassFilter(0.5)
	for range 10 {
		require.Equal(t, 7.0, f.Update(7))
	}
}

func TestLowPassFilter_Update(t *testing.T) {
	f := NewLowPassFilter(0.5)
	f.Update(10)
	require.Equal(t, 15.0, f.Update(20))
	require.Equal(t, 17.5, f.Update(20))
}

func TestLowPassFilter_FactorClamped(t *testing.T) {
	require.Equal(t, 0.0, NewLowPassFilter(-1).Factor())
	require.Equal(t, 1.0, NewLowPassFilter(3).Factor())
}

func TestLowPassFilter_Reset(t *testing.T) {
	f := NewLowPassFilter(DefaultFactor)
	f.Update(10)
	f.Update(20)
	f.Reset()

	require.False(t, f.Primed())
	require.Equal(t, 3.0, f.Update(3))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
