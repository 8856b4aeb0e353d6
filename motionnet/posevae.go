package motionnet

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

const poseEncoderDepth = 3

// A PoseEncoder compresses each frame's flattened joint
// coordinates through gated highway blocks into a per-frame
// latent of the same dimensionality.
//
// It consumes and produces frame-major tensors with J*3
// features per frame.
type PoseEncoder struct {
	Scope  Scope
	Frames int
	Dim    int

	In     *FrameFC
	Blocks []*Gated
	Z      *GatedMul
}

// NewPoseEncoder builds a pose encoder for the given skeleton.
func NewPoseEncoder(c anyvec.Creator, scope Scope, joints, frames int) *PoseEncoder {
	dim := joints * 3
	res := &PoseEncoder{
		Scope:  scope,
		Frames: frames,
		Dim:    dim,
		In:     NewFrameFC(c, scope.Sub("enc_in"), frames, dim, dim),
	}
	for i := 0; i < poseEncoderDepth; i++ {
		res.Blocks = append(res.Blocks, newHighwayBlock(c, scope.Subf("enc_%d", i),
			frames, dim, dim))
	}
	res.Z = &GatedMul{
		Main: NewFrameFC(c, scope.Sub("z_mean"), frames, dim, dim),
		Gate: NewFrameFC(c, scope.Sub("z_attention"), frames, dim, dim),
	}
	return res
}

func newHighwayBlock(c anyvec.Creator, scope Scope, frames, in, out int) *Gated {
	return &Gated{
		Carry: Identity{},
		Update: Seq{
			NewFrameFC(c, scope.Sub("pi_0"), frames, in, out),
			ReLU,
			NewFrameFC(c, scope.Sub("pi_1"), frames, out, out),
			ReLU,
		},
		Gate: NewFrameFC(c, scope.Sub("tau"), frames, in, out),
	}
}

// Encode produces the per-frame latent along with each block's
// pre-gate activation, in encoding order.
// The skips stay valid until the paired Decode consumes them.
func (p *PoseEncoder) Encode(in anydiff.Res, n int) (z anydiff.Res, skips []anydiff.Res) {
	// The skips escape this scope, so intermediate results are
	// not pooled here.
	h := p.In.Apply(in, n)
	for _, b := range p.Blocks {
		pi := b.Update.Apply(h, n)
		skips = append(skips, pi)
		gate := anydiff.Sigmoid(b.Gate.Apply(h, n))
		h = anydiff.Add(
			anydiff.Mul(h, anydiff.Complement(gate)),
			anydiff.Mul(pi, gate),
		)
	}
	z = p.Z.Apply(h, n)
	return
}

// Parameters returns the encoder parameters.
func (p *PoseEncoder) Parameters() []*anydiff.Var {
	s := Stack{p.In, p.Z}
	for _, b := range p.Blocks {
		s = append(s, b)
	}
	return s.Parameters()
}

// Kernels returns the encoder weight kernels.
func (p *PoseEncoder) Kernels() []*anydiff.Var {
	s := Stack{p.In, p.Z}
	for _, b := range p.Blocks {
		s = append(s, b)
	}
	return s.Kernels()
}

// A PoseDecoder mirrors a PoseEncoder, consuming its latent and
// skip activations and reconstructing flattened per-frame
// coordinates.
type PoseDecoder struct {
	Scope  Scope
	Frames int
	Dim    int

	In     *FrameFC
	Blocks []*decoderBlock
	Out    *FrameFC
}

type decoderBlock struct {
	Pi0 *FrameFC
	Pi1 *FrameFC
	Tau *FrameFC
}

// NewPoseDecoder builds the decoder half for the given skeleton.
// Its depth always equals the encoder's.
func NewPoseDecoder(c anyvec.Creator, scope Scope, joints, frames int) *PoseDecoder {
	dim := joints * 3
	res := &PoseDecoder{
		Scope:  scope,
		Frames: frames,
		Dim:    dim,
		In:     NewFrameFC(c, scope.Sub("dec_in"), frames, dim, dim),
		Out:    NewFrameFC(c, scope.Sub("dec_out"), frames, dim, dim),
	}
	for i := 0; i < poseEncoderDepth; i++ {
		s := scope.Subf("dec_%d", i)
		res.Blocks = append(res.Blocks, &decoderBlock{
			Pi0: NewFrameFC(c, s.Sub("pi_0"), frames, dim*2, dim),
			Pi1: NewFrameFC(c, s.Sub("pi_1"), frames, dim, dim),
			Tau: NewFrameFC(c, s.Sub("tau"), frames, dim, dim),
		})
	}
	return res
}

// Decode reconstructs per-frame coordinates from a latent and
// the encoder's skips.
// Skips are consumed in reverse encoding order, so the deepest
// encoder block feeds the shallowest decoder block.
// A skip count other than the decoder depth is a programming
// error.
func (p *PoseDecoder) Decode(z anydiff.Res, skips []anydiff.Res, n int) anydiff.Res {
	if len(skips) != len(p.Blocks) {
		panic(p.Scope.Errorf("skip count should be %d, but got %d",
			len(p.Blocks), len(skips)).Error())
	}
	h := p.In.Apply(z, n)
	for i, b := range p.Blocks {
		skip := skips[len(skips)-1-i]
		h = anydiff.Pool(h, func(h anydiff.Res) anydiff.Res {
			pi := JoinFeatures(h, skip, n*p.Frames, p.Dim, p.Dim)
			pi = anydiff.ClipPos(b.Pi0.Apply(pi, n))
			pi = anydiff.ClipPos(b.Pi1.Apply(pi, n))
			gate := anydiff.Sigmoid(b.Tau.Apply(h, n))
			return anydiff.Pool(gate, func(gate anydiff.Res) anydiff.Res {
				return anydiff.Add(
					anydiff.Mul(h, anydiff.Complement(gate)),
					anydiff.Mul(pi, gate),
				)
			})
		})
	}
	return p.Out.Apply(h, n)
}

// Parameters returns the decoder parameters.
func (p *PoseDecoder) Parameters() []*anydiff.Var {
	s := Stack{p.In, p.Out}
	for _, b := range p.Blocks {
		s = append(s, b.Pi0, b.Pi1, b.Tau)
	}
	return s.Parameters()
}

// Kernels returns the decoder weight kernels.
func (p *PoseDecoder) Kernels() []*anydiff.Var {
	s := Stack{p.In, p.Out}
	for _, b := range p.Blocks {
		s = append(s, b.Pi0, b.Pi1, b.Tau)
	}
	return s.Kernels()
}

// A FrameCritic scores each frame of a pose sequence
// independently, sharing the pose encoder topology.
// Every constituent block supports VJP, so a frame-level
// gradient penalty can be taken through it.
type FrameCritic struct {
	Scope  Scope
	Joints int
	Frames int

	Net Stack
}

// NewFrameCritic builds the per-frame critic.
func NewFrameCritic(c anyvec.Creator, scope Scope, joints, frames int) *FrameCritic {
	dim := joints * 3
	net := Stack{
		NewSeqToFramesBlock(c, scope.Sub("frames"), joints, frames),
		NewFrameFC(c, scope.Sub("enc_in"), frames, dim, dim),
	}
	for i := 0; i < poseEncoderDepth; i++ {
		net = append(net, newHighwayBlock(c, scope.Subf("enc_%d", i),
			frames, dim, dim))
	}
	net = append(net, &GatedMul{
		Main: NewFrameFC(c, scope.Sub("z_mean"), frames, dim, dim),
		Gate: NewFrameFC(c, scope.Sub("z_attention"), frames, dim, dim),
	})
	net = append(net, NewFrameFC(c, scope.Sub("frame_score_out"), frames, dim, 1))
	return &FrameCritic{Scope: scope, Joints: joints, Frames: frames, Net: net}
}

// Apply scores every frame of a sequence-major batch, returning
// one score per (frame, sample) pair in frame-major order.
func (f *FrameCritic) Apply(in anydiff.Res, n int) anydiff.Res {
	return f.Net.Apply(in, n)
}

// ScoreGrad computes the scores together with the gradient of
// their weighted sum with respect to the input.
// The gradient is itself differentiable in the critic's
// parameters.
func (f *FrameCritic) ScoreGrad(in, upstream anydiff.Res, n int) (scores, inGrad anydiff.Res) {
	return f.Net.BackProp(in, upstream, n)
}

// Parameters returns the critic parameters.
func (f *FrameCritic) Parameters() []*anydiff.Var {
	return f.Net.Parameters()
}

// Kernels returns the critic weight kernels.
func (f *FrameCritic) Kernels() []*anydiff.Var {
	return f.Net.Kernels()
}
