package orientation

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var identity = [9]float64{
	1, 0, 0,
	0, 1, 0,
	0, 0, 1,
}

// rotZ is a rotation of theta radians about the world Z axis.
func rotZ(theta float64) [9]float64 {
	c, s := math.Cos(theta), math.Sin(theta)
	return [9]float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	}
}

// rotX is a rotation of theta radians about the X axis.
func rotX(theta float64) [9]float64 {
	c, s := math.Cos(theta), math.Sin(theta)
	return [9]float64{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	}
}

func TestToWorld_NoOrientationFallback(t *testing.T) {
	f := NewFrame()
	require.False(t, f.HasOrientation())

	got := f.ToWorld([3]float64{1, 2, StandardGravity + 0.5})
	assert.InDelta(t, 1, got[0], 1e-12)
	assert.InDelta(t, 2, got[1], 1e-12)
	assert.InDelta(t, 0.5, got[2], 1e-12)
}

func TestToWorld_Identity(t *testing.T) {
	f := NewFrame()
	require.NoError(t, f.Update(identity))

	got := f.ToWorld([3]float64{0.3, -0.2, StandardGravity})
	assert.InDelta(t, 0.3, got[0], 1e-12)
	assert.InDelta(t, -0.2, got[1], 1e-12)
	assert.InDelta(t, 0, got[2], 1e-12)
}

func TestToWorld_RotatesAboutZ(t *testing.T) {
	f := NewFrame()
	require.NoError(t, f.Update(rotZ(math.Pi/2)))

	// Device X points world north after a 90° yaw.
	got := f.ToWorld([3]float64{1, 0, StandardGravity})
	assert.InDelta(t, 0, got[0], 1e-12)
	assert.InDelta(t, 1, got[1], 1e-12)
	assert.InDelta(t, 0, got[2], 1e-12)
	assert.InDelta(t, 1, Horizontal(got), 1e-12)
}

func TestToWorld_TiltedDeviceRemovesGravity(t *testing.T) {
	theta := math.Pi / 6
	r := rotX(theta)
	f := NewFrame()
	require.NoError(t, f.Update(r))

	// A stationary tilted device measures gravity along Rᵀ·[0 0 g].
	device := [3]float64{
		r[6] * StandardGravity,
		r[7] * StandardGravity,
		r[8] * StandardGravity,
	}
	got := f.ToWorld(device)
	assert.InDelta(t, 0, Magnitude(got), 1e-9)
}

func TestUpdate_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		matrix [9]float64
	}{
		{"zero matrix", [9]float64{}},
		{"scaled", [9]float64{2, 0, 0, 0, 2, 0, 0, 0, 2}},
		{"reflection", [9]float64{-1, 0, 0, 0, 1, 0, 0, 0, 1}},
		{"nan", [9]float64{math.NaN(), 0, 0, 0, 1, 0, 0, 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFrame()
			require.NoError(t, f.Update(rotZ(0.3)))
			assert.Error(t, f.Update(tt.matrix))

			kept, ok := f.Rotation()
			require.True(t, ok)
			assert.Equal(t, rotZ(0.3), kept)
		})
	}
}

func TestReset(t *testing.T) {
	f := NewFrame()
	require.NoError(t, f.Update(identity))
	f.Reset()
	assert.False(t, f.HasOrientation())
	_, ok := f.Rotation()
	assert.False(t, ok)
}

func TestUpdate_ConcurrentReadersSeeWholeMatrix(t *testing.T) {
	f := NewFrame()
	require.NoError(t, f.Update(identity))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = f.Update(rotZ(float64(i) * 0.01))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			m, ok := f.Rotation()
			if ok {
				assert.NoError(t, ValidateRotation(m))
			}
		}
	}()
	wg.Wait()
}
