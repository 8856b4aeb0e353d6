package motionloss

import (
	"math"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anyvec/anyvec32"
)

func TestEDMValues(t *testing.T) {
	c := anyvec32.CurrentCreator()
	const n, joints, frames = 1, 2, 1
	in := anydiff.NewConst(anyvec32.MakeVectorData([]float32{
		0, 0, 0,
		3, 4, 0,
	}))
	out := EDM(c, in, n, joints, frames).Output().Data().([]float32)
	if len(out) != joints*joints {
		t.Fatalf("output length should be %d, but got %d", joints*joints,
			len(out))
	}
	if math.Abs(float64(out[1])-5) > 1e-3 {
		t.Errorf("distance should be 5, but got %f", out[1])
	}
	if math.Abs(float64(out[1]-out[2])) > 1e-5 {
		t.Errorf("matrix should be symmetric: %f vs %f", out[1], out[2])
	}
	if out[0] > 1e-3 || out[3] > 1e-3 {
		t.Errorf("diagonal should be near zero: %f, %f", out[0], out[3])
	}
}

func TestEDMProperties(t *testing.T) {
	c := anyvec32.CurrentCreator()
	const n, joints, frames = 2, 3, 4
	data := make([]float32, n*joints*frames*3)
	for i := range data {
		data[i] = float32(i%7) - 3
	}
	in := anydiff.NewConst(anyvec32.MakeVectorData(data))
	out := EDM(c, in, n, joints, frames).Output().Data().([]float32)

	for s := 0; s < n; s++ {
		for j1 := 0; j1 < joints; j1++ {
			for j2 := 0; j2 < joints; j2++ {
				for tt := 0; tt < frames; tt++ {
					a := out[((s*joints+j1)*joints+j2)*frames+tt]
					b := out[((s*joints+j2)*joints+j1)*frames+tt]
					if a < 0 {
						t.Fatalf("negative distance: %f", a)
					}
					if math.Abs(float64(a-b)) > 1e-4 {
						t.Fatalf("asymmetric pair (%d,%d): %f vs %f",
							j1, j2, a, b)
					}
				}
			}
		}
	}
}

func TestEDMProp(t *testing.T) {
	c := anyvec32.CurrentCreator()
	const n, joints, frames = 1, 2, 2
	v := anydiff.NewVar(anyvec32.MakeVectorData([]float32{
		0.1, 0.5, -0.3, 0.8, -0.2, 0.4,
		1.2, -0.7, 0.6, -0.1, 0.9, 0.3,
	}))
	checker := &anydifftest.ResChecker{
		F: func() anydiff.Res {
			return EDM(c, v, n, joints, frames)
		},
		V: []*anydiff.Var{v},
	}
	checker.FullCheck(t)
}
