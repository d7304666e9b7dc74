// Package orientation converts device-frame acceleration into a world frame
// (X east, Y north, Z up) and removes gravity.
package orientation

import (
	"fmt"
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/mat"
)

// StandardGravity is the conventional value of g in m/s².
const StandardGravity = 9.80665

// MatrixValidationTolerance bounds |RᵀR - I| element-wise and |det(R) - 1|
// for an accepted rotation matrix.
const MatrixValidationTolerance = 0.01

// rotation is an immutable device→world rotation, row-major.
type rotation struct {
	values [9]float64
	m      *mat.Dense
}

// Frame holds the most recently delivered device→world orientation.
//
// The orientation is a single overwrite-on-arrival slot: Update swaps in a
// new immutable rotation and readers always observe one complete matrix.
// The zero value is ready to use and has no orientation.
type Frame struct {
	current atomic.Pointer[rotation]
}

// NewFrame returns a Frame with no orientation.
func NewFrame() *Frame {
	return &Frame{}
}

// Update validates and stores a row-major 3×3 rotation matrix. An invalid
// matrix is rejected and the previous orientation is kept.
func (f *Frame) Update(values [9]float64) error {
	if err := ValidateRotation(values); err != nil {
		return err
	}
	f.current.Store(&rotation{values: values, m: denseRowMajor(values)})
	return nil
}

// Reset forgets the current orientation.
func (f *Frame) Reset() {
	f.current.Store(nil)
}

// HasOrientation reports whether an orientation has been received.
func (f *Frame) HasOrientation() bool {
	return f.current.Load() != nil
}

// Rotation returns the current matrix and whether one is set.
func (f *Frame) Rotation() ([9]float64, bool) {
	r := f.current.Load()
	if r == nil {
		return [9]float64{}, false
	}
	return r.values, true
}

// ToWorld rotates a device-frame acceleration into the world frame and
// subtracts gravity from the vertical component.
//
// Before any orientation has arrived the device Z axis is assumed to be
// aligned with gravity and the vector is used as-is. This is a coarse
// approximation for a device lying flat; it is not treated as an error.
func (f *Frame) ToWorld(deviceAccel [3]float64) [3]float64 {
	r := f.current.Load()
	if r == nil {
		return [3]float64{deviceAccel[0], deviceAccel[1], deviceAccel[2] - StandardGravity}
	}

	v := mat.NewVecDense(3, []float64{deviceAccel[0], deviceAccel[1], deviceAccel[2]})
	var w mat.VecDense
	w.MulVec(r.m, v)
	return [3]float64{w.AtVec(0), w.AtVec(1), w.AtVec(2) - StandardGravity}
}

// Horizontal returns the magnitude of the X/Y components of a world-frame vector.
func Horizontal(world [3]float64) float64 {
	return math.Hypot(world[0], world[1])
}

// Magnitude returns the Euclidean norm of a 3-vector.
func Magnitude(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// ValidateRotation checks that a row-major 3×3 matrix is a proper rotation:
// orthonormal (RᵀR ≈ I) with determinant ≈ +1 and finite entries.
func ValidateRotation(values [9]float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("rotation element %d is not finite", i)
		}
	}

	r := denseRowMajor(values)

	var rtr mat.Dense
	rtr.Mul(r.T(), r)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(rtr.At(i, j)-want) > MatrixValidationTolerance {
				return fmt.Errorf("rotation is not orthonormal: (RᵀR)[%d,%d]=%.4f", i, j, rtr.At(i, j))
			}
		}
	}

	if det := mat.Det(r); math.Abs(det-1.0) > MatrixValidationTolerance {
		return fmt.Errorf("rotation determinant %.4f is not +1", det)
	}
	return nil
}

// denseRowMajor copies values so the matrix never aliases caller memory.
func denseRowMajor(values [9]float64) *mat.Dense {
	data := make([]float64, 9)
	copy(data, values[:])
	return mat.NewDense(3, 3, data)
}
