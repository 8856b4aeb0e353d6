package motionnet

import (
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
)

func TestPoseEncoderShapes(t *testing.T) {
	c := anyvec32.CurrentCreator()
	const n, joints, frames = 2, 4, 5
	dim := joints * 3
	enc := NewPoseEncoder(c, "pose_vae", joints, frames)

	in := anydiff.NewConst(c.MakeVector(frames * n * dim))
	z, skips := enc.Encode(in, n)
	if z.Output().Len() != frames*n*dim {
		t.Errorf("latent length should be %d, but got %d", frames*n*dim,
			z.Output().Len())
	}
	if len(skips) != poseEncoderDepth {
		t.Errorf("skip count should be %d, but got %d", poseEncoderDepth,
			len(skips))
	}
	for i, s := range skips {
		if s.Output().Len() != frames*n*dim {
			t.Errorf("skip %d length should be %d, but got %d", i,
				frames*n*dim, s.Output().Len())
		}
	}
}

func TestPoseDecoderSkipMismatch(t *testing.T) {
	c := anyvec32.CurrentCreator()
	const n, joints, frames = 1, 2, 3
	dec := NewPoseDecoder(c, "pose_vae", joints, frames)
	z := anydiff.NewConst(c.MakeVector(frames * n * joints * 3))

	defer func() {
		if recover() == nil {
			t.Error("expected panic for bad skip count")
		}
	}()
	dec.Decode(z, []anydiff.Res{z}, n)
}

func TestPoseVAEGradientFlow(t *testing.T) {
	c := anyvec32.CurrentCreator()
	const n, joints, frames = 2, 3, 4
	dim := joints * 3
	enc := NewPoseEncoder(c, "pose_vae", joints, frames)
	dec := NewPoseDecoder(c, "pose_vae", joints, frames)

	inVec := c.MakeVector(frames * n * dim)
	anyvec.Rand(inVec, anyvec.Normal, nil)
	z, skips := enc.Encode(anydiff.NewConst(inVec), n)
	out := dec.Decode(z, skips, n)
	if out.Output().Len() != frames*n*dim {
		t.Fatalf("output length should be %d, but got %d", frames*n*dim,
			out.Output().Len())
	}

	// A skip connection must carry gradient back into the
	// encoder's update branches.
	params := append(enc.Parameters(), dec.Parameters()...)
	grad := anydiff.NewGrad(params...)
	ones := c.MakeVector(out.Output().Len())
	ones.AddScalar(c.MakeNumeric(1))
	out.Propagate(ones, grad)

	encWeights := enc.Blocks[0].Update.(Seq)[0].(*FrameFC).FC.Weights
	g, ok := grad[encWeights]
	if !ok {
		t.Fatal("no gradient entry for encoder update weights")
	}
	if anyvec.AbsMax(g).(float32) == 0 {
		t.Error("encoder update weights got a zero gradient")
	}
}

func TestPoseVAEReconstruction(t *testing.T) {
	c := anyvec32.CurrentCreator()
	const n, joints, frames = 1, 2, 4
	dim := joints * 3
	enc := NewPoseEncoder(c, "pose_vae", joints, frames)
	dec := NewPoseDecoder(c, "pose_vae", joints, frames)
	params := append(enc.Parameters(), dec.Parameters()...)

	inVec := c.MakeVector(frames * n * dim)
	anyvec.Rand(inVec, anyvec.Uniform, nil)
	inVec.Scale(c.MakeNumeric(0.5))
	in := anydiff.NewConst(inVec)

	recon := func() anydiff.Res {
		z, skips := enc.Encode(in, n)
		diff := anydiff.Sub(dec.Decode(z, skips, n), in)
		return anydiff.Scale(anydiff.Sum(anydiff.Square(diff)),
			c.MakeNumeric(1.0/float64(inVec.Len())))
	}

	initial := recon().Output().Data().([]float32)[0]
	upstream := c.MakeVectorData(c.MakeNumericList([]float64{1}))
	for i := 0; i < 500; i++ {
		grad := anydiff.NewGrad(params...)
		recon().Propagate(upstream.Copy(), grad)
		grad.Scale(c.MakeNumeric(-0.05))
		grad.AddToVars()
	}
	final := recon().Output().Data().([]float32)[0]

	if final > initial/2 {
		t.Errorf("overfitting one batch should at least halve the "+
			"reconstruction error: %f -> %f", initial, final)
	}
}

func TestFrameCriticShapes(t *testing.T) {
	c := anyvec32.CurrentCreator()
	const n, joints, frames = 2, 3, 4
	critic := NewFrameCritic(c, "frame_critic", joints, frames)

	in := anydiff.NewConst(c.MakeVector(n * joints * frames * 3))
	scores := critic.Apply(in, n)
	if scores.Output().Len() != frames*n {
		t.Errorf("score count should be %d, but got %d", frames*n,
			scores.Output().Len())
	}

	up := anydiff.NewConst(c.MakeVector(frames * n))
	scores, inGrad := critic.ScoreGrad(in, up, n)
	if scores.Output().Len() != frames*n {
		t.Errorf("score count should be %d, but got %d", frames*n,
			scores.Output().Len())
	}
	if inGrad.Output().Len() != n*joints*frames*3 {
		t.Errorf("gradient length should be %d, but got %d",
			n*joints*frames*3, inGrad.Output().Len())
	}
}
