package motionnet

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"

	motiongan "github.com/etarakci-hvl/MotionGAN"
)

// A Generator proposes a full pose sequence from a masked one.
// The mask is multiplied in before any feature extraction, so
// unobserved values cannot leak through; the output always has
// the input's exact shape.
type Generator struct {
	Scope     Scope
	Joints    int
	Frames    int
	LatentDim int

	// Enc and Dec are set when the pose sub-encoder is active.
	Enc *PoseEncoder
	Dec *PoseDecoder

	// Head maps the (encoded) input to the embedding where the
	// latent condition joins; Tail maps the joined embedding
	// back out.
	Head      Stack
	Tail      Stack
	embFrames int
	embFeats  int

	toFrames *LayoutBlock
	toSeq    *LayoutBlock

	creator anyvec.Creator
}

// NewGenerator builds the generator for a configuration.
// The down- and upsampling factors are checked to invert each
// other exactly, so a sequence length they cannot divide is a
// construction error.
func NewGenerator(c anyvec.Creator, conf *motiongan.Config) (*Generator, error) {
	scope := Scope("generator")
	joints, frames := conf.Njoints, conf.SeqLen()
	res := &Generator{
		Scope:     scope,
		Joints:    joints,
		Frames:    frames,
		LatentDim: conf.LatentCondDim,
		creator:   c,
	}

	if conf.UsePoseVAE {
		if err := res.buildPoseVAE(c, conf); err != nil {
			return nil, essentials.AddCtx("build generator", err)
		}
		return res, nil
	}

	var err error
	switch conf.ModelVersion {
	case motiongan.ModelV1:
		err = res.buildConv(c, false)
	case motiongan.ModelV2:
		err = res.buildConv(c, true)
	case motiongan.ModelV3:
		res.buildDense(c)
	default:
		err = scope.Errorf("unknown model version: %s", conf.ModelVersion)
	}
	if err != nil {
		return nil, essentials.AddCtx("build generator", err)
	}
	return res, nil
}

// buildConv assembles the v1/v2 trunk: two strided residual
// blocks down to a quarter-length embedding, then two mirrored
// upsampling blocks back.
func (g *Generator) buildConv(c anyvec.Creator, gated bool) error {
	scope := g.Scope
	if g.Frames%4 != 0 {
		return scope.Errorf("frame count %d is not divisible by 4", g.Frames)
	}
	g.toFrames = NewSeqToFramesBlock(c, scope.Sub("frames"), g.Joints, g.Frames)
	g.toSeq = NewFramesToSeqBlock(c, scope.Sub("seq"), g.Joints, g.Frames)

	encFeats := []int{32, 64}
	feats := g.Joints * 3
	curFrames := g.Frames
	for i, out := range encFeats {
		g.Head = append(g.Head, residualConvBlock(c, scope.Subf("seq_fex/block_%d", i),
			curFrames, feats, out, bneck(out, 8), 2, true))
		curFrames /= 2
		feats = out
	}
	g.embFrames = curFrames
	g.embFeats = feats

	feats += g.LatentDim
	decFeats := []int{32, 64}
	for i, out := range decFeats {
		blockScope := scope.Subf("block_%d", i)
		if gated {
			g.Tail = append(g.Tail, gatedUpBlock(c, blockScope, curFrames, feats, out))
		} else {
			g.Tail = append(g.Tail, residualUpBlock(c, blockScope, curFrames, feats, out))
		}
		curFrames *= 2
		feats = out
	}
	if curFrames != g.Frames {
		return scope.Errorf("output length %d does not match input length %d",
			curFrames, g.Frames)
	}
	g.Tail = append(g.Tail,
		NewInstanceNorm(c, scope.Sub("inorm_out"), curFrames, feats),
		ReLU,
		NewTimeConv(c, scope.Sub("coords_out"), curFrames, feats, g.Joints*3))
	return nil
}

// buildDense assembles the v3 trunk: the whole sequence
// flattened through pre-activation dense residual blocks.
func (g *Generator) buildDense(c anyvec.Creator) {
	scope := g.Scope
	dim := g.Joints * g.Frames * 3
	g.Head = Stack{
		NewFrameFC(c, scope.Sub("block_0/dense_0"), 1, dim, 1024),
		ReLU,
	}
	for i := 1; i < 5; i++ {
		blockScope := scope.Subf("block_%d", i)
		g.Head = append(g.Head, &Residual{
			Main: Seq{
				NewFrameFC(c, blockScope.Sub("dense_0"), 1, 1024, 1024),
				ReLU,
				NewFrameFC(c, blockScope.Sub("dense_1"), 1, 1024, 1024),
				ReLU,
			},
		})
	}
	g.embFrames = 1
	g.embFeats = 1024
	g.Tail = Stack{
		NewFrameFC(c, scope.Sub("dense_out"), 1, 1024+g.LatentDim, 1024),
		ReLU,
		NewFrameFC(c, scope.Sub("coords_out"), 1, 1024, dim),
	}
}

// buildPoseVAE assembles the pose sub-encoder path: per-frame
// encode with skips, a length-preserving trunk on the latent,
// then the mirrored decode.
func (g *Generator) buildPoseVAE(c anyvec.Creator, conf *motiongan.Config) error {
	scope := g.Scope
	dim := g.Joints * 3
	g.toFrames = NewSeqToFramesBlock(c, scope.Sub("frames"), g.Joints, g.Frames)
	g.toSeq = NewFramesToSeqBlock(c, scope.Sub("seq"), g.Joints, g.Frames)
	g.Enc = NewPoseEncoder(c, Scope("pose_vae"), g.Joints, g.Frames)
	g.Dec = NewPoseDecoder(c, Scope("pose_vae"), g.Joints, g.Frames)

	feats := dim
	switch conf.ModelVersion {
	case motiongan.ModelV1, motiongan.ModelV2:
		gated := conf.ModelVersion == motiongan.ModelV2
		for i := 0; i < 4; i++ {
			out := 32 * (i + 1)
			blockScope := scope.Subf("block_%d", i)
			if gated {
				g.Head = append(g.Head, gatedConvBlock(c, blockScope, g.Frames,
					feats, out, 1, true))
			} else {
				g.Head = append(g.Head, residualConvBlock(c, blockScope, g.Frames,
					feats, out, bneck(out, 8), 1, true))
			}
			feats = out
		}
	case motiongan.ModelV3:
		g.Head = Stack{
			NewFrameFC(c, scope.Sub("block_0/dense_0"), g.Frames, dim, 1024),
			ReLU,
		}
		for i := 1; i < 5; i++ {
			blockScope := scope.Subf("block_%d", i)
			g.Head = append(g.Head, &Residual{
				Main: Seq{
					NewFrameFC(c, blockScope.Sub("dense_0"), g.Frames, 1024, 1024),
					ReLU,
					NewFrameFC(c, blockScope.Sub("dense_1"), g.Frames, 1024, 1024),
					ReLU,
				},
			})
		}
		feats = 1024
	default:
		return scope.Errorf("unknown model version: %s", conf.ModelVersion)
	}
	g.embFrames = g.Frames
	g.embFeats = feats
	g.Tail = Stack{
		NewTimeConv(c, scope.Sub("vae_merge"), g.Frames, feats+g.LatentDim, dim),
	}
	return nil
}

func bneck(feats, factor int) int {
	if feats/factor < 1 {
		return 1
	}
	return feats / factor
}

// residualUpBlock doubles the frame count by repetition, then
// refines it with a normalized convolutional branch.
func residualUpBlock(c anyvec.Creator, scope Scope, frames, in, out int) Block {
	up := NewTimeUpsample(c, scope.Sub("up"), frames, in)
	main := append(Seq{up}, convBranch(c, scope.Sub("branch_0"), frames*2,
		in, bneck(out, 8), out, 1, true)...)
	short := Seq{
		NewTimeUpsample(c, scope.Sub("shortcut_up"), frames, in),
		NewFrameFC(c, scope.Sub("shortcut"), frames*2, in, out),
	}
	return &Residual{Main: main, Shortcut: short}
}

// gatedUpBlock is the upsampling block of the v2 generator: the
// refinement branch sees the current frame joined with its
// predecessor, and a bottlenecked gate mixes it against the
// shortcut.
func gatedUpBlock(c anyvec.Creator, scope Scope, frames, in, out int) Block {
	pi := append(Seq{
		NewTimeUpsample(c, scope.Sub("up"), frames, in),
		&shiftConcat{
			Shift:  NewTimeShift(c, scope.Sub("shift"), frames*2, in),
			Frames: frames * 2,
			Feat:   in,
		},
	}, convBranch(c, scope.Sub("branch_0"), frames*2, in*2, bneck(out, 8), out, 1, true)...)
	gamma := append(Seq{
		NewTimeUpsample(c, scope.Sub("gamma_up"), frames, in),
	}, convBranch(c, scope.Sub("branch_1"), frames*2, in, bneck(out, 4), out, 1, true)...)
	short := Seq{
		NewTimeUpsample(c, scope.Sub("shortcut_up"), frames, in),
		NewFrameFC(c, scope.Sub("shortcut"), frames*2, in, out),
	}
	return &Gated{Carry: pi, Update: short, Gate: gamma}
}

// shiftConcat joins each frame with the previous frame's
// features.
type shiftConcat struct {
	Shift  *TimeLinear
	Frames int
	Feat   int
}

func (s *shiftConcat) Apply(in anydiff.Res, n int) anydiff.Res {
	return anydiff.Pool(in, func(in anydiff.Res) anydiff.Res {
		return JoinFeatures(in, s.Shift.Apply(in, n), s.Frames*n, s.Feat, s.Feat)
	})
}

// Apply produces a full sequence-major pose batch from a masked
// one.
// A nil latent is only allowed when latent conditioning is off.
func (g *Generator) Apply(poses, mask, latent anydiff.Res, n int) anydiff.Res {
	x := MaskPoses(g.creator, poses, mask, n, g.Joints, g.Frames)
	var skips []anydiff.Res
	if g.toFrames != nil {
		x = g.toFrames.Apply(x, n)
	}
	if g.Enc != nil {
		x, skips = g.Enc.Encode(x, n)
	}
	x = g.Head.Apply(x, n)
	if g.LatentDim > 0 {
		if latent == nil {
			panic(g.Scope.Errorf("latent condition input is missing").Error())
		}
		x = g.joinLatent(x, latent, n)
	}
	x = g.Tail.Apply(x, n)
	if g.Dec != nil {
		x = g.Dec.Decode(x, skips, n)
	}
	if g.toSeq != nil {
		x = g.toSeq.Apply(x, n)
	}
	return x
}

// joinLatent broadcasts the per-sample latent across the
// embedding's frames and joins it on the feature axis.
func (g *Generator) joinLatent(emb, latent anydiff.Res, n int) anydiff.Res {
	if g.embFrames > 1 {
		table := make([]int, g.embFrames*n*g.LatentDim)
		for t := 0; t < g.embFrames; t++ {
			for s := 0; s < n; s++ {
				for l := 0; l < g.LatentDim; l++ {
					table[(t*n+s)*g.LatentDim+l] = s*g.LatentDim + l
				}
			}
		}
		latent = Gather(latent, g.creator.MakeMapper(n*g.LatentDim, table))
	}
	return JoinFeatures(emb, latent, n*g.embFrames, g.embFeats, g.LatentDim)
}

// Parameters returns every generator parameter.
func (g *Generator) Parameters() []*anydiff.Var {
	s := append(append(Stack{}, g.Head...), g.Tail...)
	res := s.Parameters()
	if g.Enc != nil {
		res = append(res, g.Enc.Parameters()...)
	}
	if g.Dec != nil {
		res = append(res, g.Dec.Parameters()...)
	}
	return res
}

// Kernels returns the weight kernels subject to L2
// regularization.
func (g *Generator) Kernels() []*anydiff.Var {
	s := append(append(Stack{}, g.Head...), g.Tail...)
	res := s.Kernels()
	if g.Enc != nil {
		res = append(res, g.Enc.Kernels()...)
	}
	if g.Dec != nil {
		res = append(res, g.Dec.Kernels()...)
	}
	return res
}
