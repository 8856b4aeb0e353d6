package motionnet

import (
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec/anyvec32"
)

func TestSeqVJP(t *testing.T) {
	c := anyvec32.CurrentCreator()
	const n, rows, feat = 2, 3, 4
	seq := Seq{
		NewFrameFC(c, "fc0", rows, feat, feat),
		ReLU,
		NewFrameFC(c, "fc1", rows, feat, feat),
	}
	testVJP(t, seq, n*rows*feat, n)
}

func TestSumVJP(t *testing.T) {
	c := anyvec32.CurrentCreator()
	const n, rows, feat = 2, 3, 4
	sum := Sum{
		NewFrameFC(c, "a", rows, feat, feat),
		NewFrameFC(c, "b", rows, feat, feat),
	}
	testVJP(t, sum, n*rows*feat, n)
}

func TestResidualVJP(t *testing.T) {
	c := anyvec32.CurrentCreator()
	const n, rows, feat = 2, 3, 4
	withShortcut := &Residual{
		Main:     NewFrameFC(c, "main", rows, feat, feat),
		Shortcut: NewFrameFC(c, "shortcut", rows, feat, feat),
	}
	testVJP(t, withShortcut, n*rows*feat, n)

	identity := &Residual{Main: NewFrameFC(c, "main", rows, feat, feat)}
	testVJP(t, identity, n*rows*feat, n)
}

func TestGatedVJP(t *testing.T) {
	c := anyvec32.CurrentCreator()
	const n, rows, feat = 2, 3, 4
	g := &Gated{
		Carry:  Identity{},
		Update: NewFrameFC(c, "update", rows, feat, feat),
		Gate:   NewFrameFC(c, "gate", rows, feat, feat),
	}
	testVJP(t, g, n*rows*feat, n)
}

func TestGatedMulVJP(t *testing.T) {
	c := anyvec32.CurrentCreator()
	const n, rows, feat = 2, 3, 4
	g := &GatedMul{
		Main: NewFrameFC(c, "main", rows, feat, feat),
		Gate: NewFrameFC(c, "gate", rows, feat, feat),
	}
	testVJP(t, g, n*rows*feat, n)
}

func TestTimeConvVJP(t *testing.T) {
	c := anyvec32.CurrentCreator()
	const n, frames, in, out = 2, 4, 3, 5
	conv := NewTimeConv(c, "conv", frames, in, out)
	testVJP(t, conv.(GradBlock), frames*n*in, n)

	res := conv.Apply(anydiff.NewConst(c.MakeVector(frames*n*in)), n)
	if res.Output().Len() != frames*n*out {
		t.Errorf("output length should be %d, but got %d", frames*n*out,
			res.Output().Len())
	}
}

func TestStackBackProp(t *testing.T) {
	c := anyvec32.CurrentCreator()
	const n, rows, feat = 2, 3, 4
	stack := Stack{
		NewFrameFC(c, "fc0", rows, feat, feat),
		Tanh,
		NewFrameFC(c, "fc1", rows, feat, 1),
	}
	testVJP(t, stack, n*rows*feat, n)

	in := anydiff.NewConst(c.MakeVector(n * rows * feat))
	up := anydiff.NewConst(c.MakeVector(n * rows))
	out, inGrad := stack.BackProp(in, up, n)
	if out.Output().Len() != n*rows {
		t.Errorf("output length should be %d, but got %d", n*rows,
			out.Output().Len())
	}
	if inGrad.Output().Len() != n*rows*feat {
		t.Errorf("gradient length should be %d, but got %d", n*rows*feat,
			inGrad.Output().Len())
	}
}

func TestJoinFeatures(t *testing.T) {
	a := anydiff.NewConst(anyvec32.MakeVectorData([]float32{1, 2, 3, 4}))
	b := anydiff.NewConst(anyvec32.MakeVectorData([]float32{5, 6}))
	out := JoinFeatures(a, b, 2, 2, 1).Output().Data().([]float32)
	expected := []float32{1, 2, 5, 3, 4, 6}
	for i, x := range expected {
		if out[i] != x {
			t.Errorf("component %d: expected %f but got %f", i, x, out[i])
		}
	}
}
