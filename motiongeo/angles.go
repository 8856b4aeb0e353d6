// Package motiongeo provides small quaternion and 3D vector
// helpers for working with skeletal poses.
//
// All functions operate on flat slices whose last dimension is
// implied by the group size: vectors come in groups of 3 and
// quaternions in groups of 4, quaternions ordered (w, x, y, z).
package motiongeo

import (
	"fmt"
	"math"
)

const normEpsilon = 1e-8

// VectorsToQuaternions turns 3D vectors into pure quaternions by
// prepending a zero w component.
func VectorsToQuaternions(v []float64) ([]float64, error) {
	if len(v)%3 != 0 {
		return nil, fmt.Errorf("vectors to quaternions: length %d is not a multiple of 3",
			len(v))
	}
	out := make([]float64, 0, len(v)/3*4)
	for i := 0; i < len(v); i += 3 {
		out = append(out, 0, v[i], v[i+1], v[i+2])
	}
	return out, nil
}

// QuaternionsToVectors drops the w component of each quaternion.
func QuaternionsToVectors(q []float64) ([]float64, error) {
	if len(q)%4 != 0 {
		return nil, fmt.Errorf("quaternions to vectors: length %d is not a multiple of 4",
			len(q))
	}
	out := make([]float64, 0, len(q)/4*3)
	for i := 0; i < len(q); i += 4 {
		out = append(out, q[i+1], q[i+2], q[i+3])
	}
	return out, nil
}

// Conjugate negates the imaginary components of each quaternion
// in place.
func Conjugate(q []float64) error {
	if len(q)%4 != 0 {
		return fmt.Errorf("conjugate: length %d is not a multiple of 4", len(q))
	}
	for i := 0; i < len(q); i += 4 {
		q[i+1] = -q[i+1]
		q[i+2] = -q[i+2]
		q[i+3] = -q[i+3]
	}
	return nil
}

// Normalize rescales each quaternion to unit length in place.
func Normalize(q []float64) error {
	if len(q)%4 != 0 {
		return fmt.Errorf("normalize: length %d is not a multiple of 4", len(q))
	}
	for i := 0; i < len(q); i += 4 {
		norm := math.Sqrt(q[i]*q[i] + q[i+1]*q[i+1] + q[i+2]*q[i+2] +
			q[i+3]*q[i+3] + normEpsilon)
		for k := 0; k < 4; k++ {
			q[i+k] /= norm
		}
	}
	return nil
}

// RotateVectors rotates each 3D vector by the corresponding
// quaternion, computing q * v * conjugate(q) in the expanded
// cross-product form.
func RotateVectors(q, v []float64) ([]float64, error) {
	if len(q)%4 != 0 {
		return nil, fmt.Errorf("rotate vectors: quaternion length %d is not a multiple of 4",
			len(q))
	}
	if len(v)%3 != 0 {
		return nil, fmt.Errorf("rotate vectors: vector length %d is not a multiple of 3",
			len(v))
	}
	if len(q)/4 != len(v)/3 {
		return nil, fmt.Errorf("rotate vectors: %d quaternions for %d vectors",
			len(q)/4, len(v)/3)
	}
	unit := append([]float64{}, q...)
	Normalize(unit)
	out := make([]float64, len(v))
	for i := 0; i < len(v)/3; i++ {
		w := unit[i*4]
		qv := unit[i*4+1 : i*4+4]
		vec := v[i*3 : i*3+3]
		t := cross(qv, vec)
		for k := range t {
			t[k] *= 2
		}
		tq := cross(qv, t)
		for k := 0; k < 3; k++ {
			out[i*3+k] = vec[k] + w*t[k] + tq[k]
		}
	}
	return out, nil
}

// QuaternionsBetween finds, per vector pair, the rotation taking
// u to v.
// Zero vectors map to the identity rotation, and opposite
// vectors rotate half a turn around an arbitrary perpendicular
// axis.
func QuaternionsBetween(u, v []float64) ([]float64, error) {
	if len(u)%3 != 0 || len(v)%3 != 0 {
		return nil, fmt.Errorf("quaternions between: lengths %d and %d are not multiples of 3",
			len(u), len(v))
	}
	if len(u) != len(v) {
		return nil, fmt.Errorf("quaternions between: mismatched lengths %d and %d",
			len(u), len(v))
	}
	out := make([]float64, 0, len(u)/3*4)
	for i := 0; i < len(u); i += 3 {
		a, b := u[i:i+3], v[i:i+3]
		if isZero(a) || isZero(b) {
			out = append(out, 1, 0, 0, 0)
			continue
		}
		kCos := dot(a, b)
		k := math.Sqrt(dot(a, a) * dot(b, b))
		if kCos/k <= -1+normEpsilon {
			axis := perpendicular(a)
			out = append(out, 0, axis[0], axis[1], axis[2])
			continue
		}
		c := cross(a, b)
		quat := []float64{kCos + k, c[0], c[1], c[2]}
		Normalize(quat)
		out = append(out, quat...)
	}
	return out, nil
}

func dot(a, b []float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func cross(a, b []float64) []float64 {
	return []float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func isZero(a []float64) bool {
	return a[0] == 0 && a[1] == 0 && a[2] == 0
}

// perpendicular finds an arbitrary unit vector orthogonal to a
// non-zero vector.
func perpendicular(a []float64) []float64 {
	var axis []float64
	switch {
	case a[0] == 0:
		axis = []float64{1, 0, 0}
	case a[1] == 0:
		axis = []float64{0, 1, 0}
	case a[2] == 0:
		axis = []float64{0, 0, 1}
	default:
		axis = []float64{1, 1, -(a[0] + a[1]) / a[2]}
	}
	norm := math.Sqrt(dot(axis, axis))
	for k := range axis {
		axis[k] /= norm
	}
	return axis
}
