package motionnet

import (
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"

	motiongan "github.com/etarakci-hvl/MotionGAN"
)

func TestGeneratorShapes(t *testing.T) {
	c := anyvec32.CurrentCreator()
	versions := []string{motiongan.ModelV1, motiongan.ModelV2, motiongan.ModelV3}
	for _, version := range versions {
		for _, vae := range []bool{false, true} {
			for _, latentDim := range []int{0, 4} {
				conf := testNetConf(version)
				conf.UsePoseVAE = vae
				conf.LatentCondDim = latentDim
				gen, err := NewGenerator(c, conf)
				if err != nil {
					t.Fatalf("%s vae=%v latent=%d: %v", version, vae,
						latentDim, err)
				}

				const n = 2
				size := n * conf.Njoints * conf.SeqLen() * 3
				poses := anydiff.NewConst(c.MakeVector(size))
				mask := onesConst(c, n*conf.Njoints*conf.SeqLen())
				var latent anydiff.Res
				if latentDim > 0 {
					latent = anydiff.NewConst(c.MakeVector(n * latentDim))
				}

				out := gen.Apply(poses, mask, latent, n)
				if out.Output().Len() != size {
					t.Errorf("%s vae=%v latent=%d: output length should be "+
						"%d, but got %d", version, vae, latentDim, size,
						out.Output().Len())
				}
			}
		}
	}
}

func TestGeneratorMasking(t *testing.T) {
	c := anyvec32.CurrentCreator()
	conf := testNetConf(motiongan.ModelV1)
	conf.LatentCondDim = 0
	gen, err := NewGenerator(c, conf)
	if err != nil {
		t.Fatal(err)
	}

	const n = 2
	joints, frames := conf.Njoints, conf.SeqLen()
	posesVec := c.MakeVector(n * joints * frames * 3)
	anyvec.Rand(posesVec, anyvec.Normal, nil)
	poses := anydiff.NewConst(posesVec)

	maskData := make([]float32, n*joints*frames)
	for i := range maskData {
		maskData[i] = float32(i % 2)
	}
	mask := anydiff.NewConst(anyvec32.MakeVectorData(maskData))

	direct := gen.Apply(poses, mask, nil, n).Output().Data().([]float32)
	preMasked := MaskPoses(c, poses, mask, n, joints, frames)
	indirect := gen.Apply(preMasked, mask, nil, n).Output().Data().([]float32)
	for i, x := range direct {
		if indirect[i] != x {
			t.Fatalf("component %d: pre-masked input changed the output", i)
		}
	}
}

func TestGeneratorDenseOutputRange(t *testing.T) {
	c := anyvec32.CurrentCreator()
	conf := testNetConf(motiongan.ModelV3)
	conf.LatentCondDim = 0
	gen, err := NewGenerator(c, conf)
	if err != nil {
		t.Fatal(err)
	}

	const n = 2
	joints, frames := conf.Njoints, conf.SeqLen()
	posesVec := c.MakeVector(n * joints * frames * 3)
	anyvec.Rand(posesVec, anyvec.Normal, nil)
	poses := anydiff.NewConst(posesVec)
	mask := onesConst(c, n*joints*frames)

	out := gen.Apply(poses, mask, nil, n).Output().Data().([]float32)
	var negative bool
	for _, x := range out {
		if x < 0 {
			negative = true
			break
		}
	}
	if !negative {
		t.Error("dense generator output should not be clamped to non-negative values")
	}
}

func TestGeneratorFrameCountError(t *testing.T) {
	c := anyvec32.CurrentCreator()
	for _, version := range []string{motiongan.ModelV1, motiongan.ModelV2} {
		conf := testNetConf(version)
		conf.PickNum = 6
		if _, err := NewGenerator(c, conf); err == nil {
			t.Errorf("%s: expected error for frame count not divisible by 4",
				version)
		}
	}
}

func TestGeneratorMissingLatent(t *testing.T) {
	c := anyvec32.CurrentCreator()
	conf := testNetConf(motiongan.ModelV1)
	gen, err := NewGenerator(c, conf)
	if err != nil {
		t.Fatal(err)
	}
	const n = 1
	poses := anydiff.NewConst(c.MakeVector(n * conf.Njoints * conf.SeqLen() * 3))
	mask := onesConst(c, n*conf.Njoints*conf.SeqLen())

	defer func() {
		if recover() == nil {
			t.Error("expected panic for missing latent input")
		}
	}()
	gen.Apply(poses, mask, nil, n)
}

func onesConst(c anyvec.Creator, length int) anydiff.Res {
	v := c.MakeVector(length)
	v.AddScalar(c.MakeNumeric(1))
	return anydiff.NewConst(v)
}
