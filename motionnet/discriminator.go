package motionnet

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"

	motiongan "github.com/etarakci-hvl/MotionGAN"
)

// DiscOut bundles the discriminator's head outputs for one
// batch.
// Optional heads are nil when the configuration disables them.
type DiscOut struct {
	// Score holds one critic score per sample.
	Score anydiff.Res

	// Labels holds action logits, n rows of NumActions.
	Labels anydiff.Res

	// Latent holds the latent condition estimate, n rows of
	// LatentCondDim.
	Latent anydiff.Res

	// FrameScores holds one score per frame in frame-major
	// order, frames*n values.
	FrameScores anydiff.Res
}

// A Discriminator scores pose sequences.
// It is a pure function of its input tensor, so it can be
// evaluated on real sequences, generated ones and interpolations
// between the two alike.
type Discriminator struct {
	Scope  Scope
	Joints int
	Frames int

	Trunk      Stack
	TrunkFeats int

	Score  *FrameFC
	Action *FrameFC
	Latent *FrameFC
	Frame  *FrameCritic
}

// NewDiscriminator builds the discriminator for a configuration.
func NewDiscriminator(c anyvec.Creator, conf *motiongan.Config) (*Discriminator, error) {
	scope := Scope("discriminator")
	joints, frames := conf.Njoints, conf.SeqLen()

	var trunk Stack
	var feats int
	var err error
	switch conf.ModelVersion {
	case motiongan.ModelV1:
		trunk, feats, err = discConvTrunk(c, scope, joints, frames, false)
	case motiongan.ModelV2:
		trunk, feats, err = discConvTrunk(c, scope, joints, frames, true)
	case motiongan.ModelV3:
		trunk, feats = discDenseTrunk(c, scope, joints, frames)
	default:
		err = scope.Errorf("unknown model version: %s", conf.ModelVersion)
	}
	if err != nil {
		return nil, essentials.AddCtx("build discriminator", err)
	}

	res := &Discriminator{
		Scope:      scope,
		Joints:     joints,
		Frames:     frames,
		Trunk:      trunk,
		TrunkFeats: feats,
		Score:      NewFrameFC(c, scope.Sub("score_out"), 1, feats, 1),
	}
	if conf.ActionCond {
		res.Action = NewFrameFC(c, scope.Sub("label_out"), 1, feats, conf.NumActions)
	}
	if conf.LatentCondDim > 0 {
		res.Latent = NewFrameFC(c, scope.Sub("latent_cond_out"), 1, feats,
			conf.LatentCondDim)
	}
	if conf.UsePoseVAE {
		res.Frame = NewFrameCritic(c, scope.Sub("pose_vae"), joints, frames)
	}
	return res, nil
}

// discConvTrunk is the temporal residual trunk shared by the v1
// and v2 discriminators; v2 gates every block.
func discConvTrunk(c anyvec.Creator, scope Scope, joints, frames int,
	gated bool) (Stack, int, error) {
	factors := []int{1, 1, 2, 2}
	strides := []int{2, 2, 1, 1}
	if frames%4 != 0 {
		return nil, 0, scope.Errorf("frame count %d is not divisible by 4", frames)
	}

	trunk := Stack{
		NewSeqToFramesBlock(c, scope.Sub("frames"), joints, frames),
		NewTimeConv(c, scope.Sub("conv_in"), frames, joints*3, 64),
	}
	feats := 64
	curFrames := frames
	for i, factor := range factors {
		out := 64 * factor
		blockScope := scope.Subf("block_%d", i)
		if gated {
			trunk = append(trunk, gatedConvBlock(c, blockScope, curFrames,
				feats, out, strides[i], false))
		} else {
			trunk = append(trunk, residualConvBlock(c, blockScope, curFrames,
				feats, out, out, strides[i], false))
		}
		if strides[i] == 2 {
			curFrames /= 2
		}
		feats = out
	}
	trunk = append(trunk, ReLU,
		NewTimeMean(c, scope.Sub("mean_pool"), curFrames, feats))
	return trunk, feats, nil
}

// residualConvBlock is a pre-activation bottleneck-free residual
// block over time, with an optional instance-normalized variant
// for the generator.
func residualConvBlock(c anyvec.Creator, scope Scope, frames, in, out, mid,
	stride int, norm bool) Block {
	main := convBranch(c, scope.Sub("branch_0"), frames, in, mid, out, stride, norm)
	short := Seq{NewFrameFC(c, scope.Sub("shortcut"), frames, in, out)}
	if stride == 2 {
		short = append(short, NewTimeDownsample(c, scope.Sub("shortcut_down"),
			frames, out))
	}
	return &Residual{Main: main, Shortcut: short}
}

// gatedConvBlock mixes a convolutional branch against a 1x1
// shortcut through a learned bottlenecked gate.
func gatedConvBlock(c anyvec.Creator, scope Scope, frames, in, out,
	stride int, norm bool) Block {
	pi := convBranch(c, scope.Sub("branch_0"), frames, in, out, out, stride, norm)
	gamma := convBranch(c, scope.Sub("branch_1"), frames, in, out/4, out, stride, norm)
	short := Seq{NewFrameFC(c, scope.Sub("shortcut"), frames, in, out)}
	if stride == 2 {
		short = append(short, NewTimeDownsample(c, scope.Sub("shortcut_down"),
			frames, out))
	}
	return &Gated{Carry: pi, Update: short, Gate: gamma}
}

// convBranch is two kernel-3 temporal convolutions with
// pre-activations, downsampled at the end when stride is 2.
func convBranch(c anyvec.Creator, scope Scope, frames, in, mid, out,
	stride int, norm bool) Seq {
	var branch Seq
	if norm {
		branch = append(branch, NewInstanceNorm(c, scope.Sub("inorm_in"), frames, in))
	}
	branch = append(branch, ReLU,
		NewTimeConv(c, scope.Sub("conv_in"), frames, in, mid))
	if norm {
		branch = append(branch, NewInstanceNorm(c, scope.Sub("inorm_out"), frames, mid))
	}
	branch = append(branch, ReLU,
		NewTimeConv(c, scope.Sub("conv_out"), frames, mid, out))
	if stride == 2 {
		branch = append(branch, NewTimeDownsample(c, scope.Sub("down"), frames, out))
	}
	return branch
}

// discDenseTrunk is the v3 trunk: the whole sequence flattened
// through dense residual blocks.
func discDenseTrunk(c anyvec.Creator, scope Scope, joints, frames int) (Stack, int) {
	trunk := Stack{
		NewFrameFC(c, scope.Sub("block_0").Sub("dense_0"), 1, joints*frames*3, 1024),
		ReLU,
	}
	for i := 1; i < 5; i++ {
		blockScope := scope.Subf("block_%d", i)
		trunk = append(trunk, &Residual{
			Main: Seq{
				NewFrameFC(c, blockScope.Sub("dense_0"), 1, 1024, 1024),
				ReLU,
				NewFrameFC(c, blockScope.Sub("dense_1"), 1, 1024, 1024),
				ReLU,
			},
		})
	}
	return trunk, 1024
}

// Apply evaluates every enabled head on a sequence-major batch.
func (d *Discriminator) Apply(in anydiff.Res, n int) *DiscOut {
	out := &DiscOut{}
	emb := d.Trunk.Apply(in, n)
	out.Score = d.Score.Apply(emb, n)
	if d.Action != nil {
		out.Labels = d.Action.Apply(emb, n)
	}
	if d.Latent != nil {
		out.Latent = d.Latent.Apply(emb, n)
	}
	if d.Frame != nil {
		out.FrameScores = d.Frame.Apply(in, n)
	}
	return out
}

// ScoreGrad computes the critic scores together with the
// gradient of their upstream-weighted sum with respect to the
// input.
// The gradient is a differentiable function of the critic's
// parameters, which is what a gradient penalty needs.
func (d *Discriminator) ScoreGrad(in, upstream anydiff.Res, n int) (score,
	inGrad anydiff.Res) {
	full := append(append(Stack{}, d.Trunk...), d.Score)
	return full.BackProp(in, upstream, n)
}

// FrameScoreGrad is ScoreGrad for the per-frame critic.
// Calling it without the pose sub-encoder is a programming
// error.
func (d *Discriminator) FrameScoreGrad(in, upstream anydiff.Res, n int) (scores,
	inGrad anydiff.Res) {
	if d.Frame == nil {
		panic(d.Scope.Errorf("no frame critic in this configuration").Error())
	}
	return d.Frame.ScoreGrad(in, upstream, n)
}

// Parameters returns every parameter of the trunk and heads.
func (d *Discriminator) Parameters() []*anydiff.Var {
	s := append(append(Stack{}, d.Trunk...), d.Score)
	if d.Action != nil {
		s = append(s, d.Action)
	}
	if d.Latent != nil {
		s = append(s, d.Latent)
	}
	res := s.Parameters()
	if d.Frame != nil {
		res = append(res, d.Frame.Parameters()...)
	}
	return res
}

// Kernels returns the weight kernels subject to L2
// regularization.
func (d *Discriminator) Kernels() []*anydiff.Var {
	s := append(append(Stack{}, d.Trunk...), d.Score)
	if d.Action != nil {
		s = append(s, d.Action)
	}
	if d.Latent != nil {
		s = append(s, d.Latent)
	}
	res := s.Kernels()
	if d.Frame != nil {
		res = append(res, d.Frame.Kernels()...)
	}
	return res
}
