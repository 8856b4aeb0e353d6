package motionnet

import (
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anyvec/anyvec32"
)

func TestGatherProp(t *testing.T) {
	c := anyvec32.CurrentCreator()
	v := anydiff.NewVar(anyvec32.MakeVectorData([]float32{1, -2, 3}))
	mapper := c.MakeMapper(3, []int{2, 0, 0, 1, 2})
	checker := &anydifftest.ResChecker{
		F: func() anydiff.Res {
			return Gather(v, mapper)
		},
		V: []*anydiff.Var{v},
	}
	checker.FullCheck(t)
}

func TestGatherBroadcast(t *testing.T) {
	c := anyvec32.CurrentCreator()
	v := anydiff.NewConst(anyvec32.MakeVectorData([]float32{1, -2, 3}))
	mapper := c.MakeMapper(3, []int{2, 0, 0, 1, 2})
	out := Gather(v, mapper).Output().Data().([]float32)
	expected := []float32{3, 1, 1, -2, 3}
	for i, x := range expected {
		if out[i] != x {
			t.Errorf("component %d: expected %f but got %f", i, x, out[i])
		}
	}
}

func TestPermuteRoundTrip(t *testing.T) {
	c := anyvec32.CurrentCreator()
	const n, joints, frames = 2, 3, 4
	data := make([]float32, n*joints*frames*3)
	for i := range data {
		data[i] = float32(i)
	}
	in := anydiff.NewConst(anyvec32.MakeVectorData(data))

	toFrames := NewSeqToFrames(c, "to_frames", n, joints, frames)
	toSeq := NewFramesToSeq(c, "to_seq", n, joints, frames)

	mid := toFrames.Apply(in, n)
	back := toSeq.Apply(mid, n).Output().Data().([]float32)
	for i, x := range data {
		if back[i] != x {
			t.Fatalf("component %d: expected %f but got %f", i, x, back[i])
		}
	}

	inv := toFrames.Inverse().Apply(mid, n).Output().Data().([]float32)
	for i, x := range data {
		if inv[i] != x {
			t.Fatalf("inverse component %d: expected %f but got %f", i, x, inv[i])
		}
	}
}

func TestSeqToFramesLayout(t *testing.T) {
	c := anyvec32.CurrentCreator()
	const n, joints, frames = 2, 2, 3
	data := make([]float32, n*joints*frames*3)
	for i := range data {
		data[i] = float32(i)
	}
	in := anydiff.NewConst(anyvec32.MakeVectorData(data))
	out := NewSeqToFrames(c, "layout", n, joints, frames).
		Apply(in, n).Output().Data().([]float32)

	// Output index (t, nn, j, k) reads input ((nn*J+j)*T+t)*3+k.
	for tt := 0; tt < frames; tt++ {
		for nn := 0; nn < n; nn++ {
			for j := 0; j < joints; j++ {
				for k := 0; k < 3; k++ {
					outIdx := ((tt*n+nn)*joints+j)*3 + k
					inIdx := ((nn*joints+j)*frames+tt)*3 + k
					if out[outIdx] != data[inIdx] {
						t.Fatalf("frame %d sample %d joint %d coord %d: "+
							"expected %f but got %f", tt, nn, j, k,
							data[inIdx], out[outIdx])
					}
				}
			}
		}
	}
}

func TestMaskPoses(t *testing.T) {
	c := anyvec32.CurrentCreator()
	const n, joints, frames = 1, 2, 2
	poses := anydiff.NewConst(anyvec32.MakeVectorData([]float32{
		1, 2, 3, 4, 5, 6,
		7, 8, 9, 10, 11, 12,
	}))
	mask := anydiff.NewConst(anyvec32.MakeVectorData([]float32{1, 0, 0, 1}))

	once := MaskPoses(c, poses, mask, n, joints, frames)
	expected := []float32{1, 2, 3, 0, 0, 0, 0, 0, 0, 10, 11, 12}
	out := once.Output().Data().([]float32)
	for i, x := range expected {
		if out[i] != x {
			t.Errorf("component %d: expected %f but got %f", i, x, out[i])
		}
	}

	twice := MaskPoses(c, once, mask, n, joints, frames)
	out2 := twice.Output().Data().([]float32)
	for i, x := range out {
		if out2[i] != x {
			t.Errorf("masking twice changed component %d", i)
		}
	}
}

func TestLayoutBlockResize(t *testing.T) {
	c := anyvec32.CurrentCreator()
	const joints, frames = 2, 3
	block := NewSeqToFramesBlock(c, "layout", joints, frames)
	for _, n := range []int{1, 3, 1} {
		data := make([]float32, n*joints*frames*3)
		for i := range data {
			data[i] = float32(i)
		}
		out := block.Apply(anydiff.NewConst(anyvec32.MakeVectorData(data)), n)
		if out.Output().Len() != len(data) {
			t.Fatalf("batch %d: output length should be %d, but got %d",
				n, len(data), out.Output().Len())
		}
	}
}
