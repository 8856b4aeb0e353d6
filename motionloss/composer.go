package motionloss

import (
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"

	motiongan "github.com/etarakci-hvl/MotionGAN"
	"github.com/etarakci-hvl/MotionGAN/motionnet"
)

const (
	gradEpsilon = 1e-8
	gammaGrads  = 1.0
	regScale    = 5e-4

	recScale          = 1.0
	recEDMScale       = 0.1
	actionScale       = 10.0
	latentScale       = 1.0
	coherenceScale    = 0.1
	displacementScale = 0.1
	shapeScale        = 1.0
	smoothingScale    = 0.1
	smoothingBasis    = 3
)

// A Composer assembles the adversarial and structural loss
// dictionaries for one network pair.
type Composer struct {
	Creator anyvec.Creator
	Conf    *motiongan.Config
	Disc    *motionnet.Discriminator
	Gen     *motionnet.Generator

	// Alpha overrides the per-sample interpolation draw used by
	// the gradient penalty.
	// A nil Alpha draws uniformly from [0, 1).
	Alpha func(n int) anyvec.Vector
}

// NewComposer builds a Composer, verifying that every enabled
// loss has the tensors it needs.
// Frame losses without the per-frame critic are a programming
// error.
func NewComposer(c anyvec.Creator, conf *motiongan.Config,
	disc *motionnet.Discriminator, gen *motionnet.Generator) *Composer {
	if conf.UsePoseVAE && disc.Frame == nil {
		panic("loss composer: frame losses need the per-frame critic")
	}
	return &Composer{Creator: c, Conf: conf, Disc: disc, Gen: gen}
}

// DiscLosses evaluates the discriminator-phase dictionaries for
// a real batch and a generated one.
// The fake batch should be detached from the generator's
// parameters when the result will drive an update.
//
// The first dictionary holds the raw critic telemetry, the
// second the combined discriminator objective.
func (m *Composer) DiscLosses(batch *motiongan.Batch, fake,
	latent anydiff.Res) (wgan, disc *Dict) {
	c := m.Creator
	n := batch.Num
	real := batch.Poses

	realOut := m.Disc.Apply(real, n)
	fakeOut := m.Disc.Apply(fake, n)

	lossReal := m.mean(realOut.Score, n)
	lossFake := m.mean(fakeOut.Score, n)
	wgan = NewDict()
	wgan.Add("loss_real", lossReal)
	wgan.Add("loss_fake", lossFake)

	interp := m.interpolate(real, fake, n)
	_, grad := m.Disc.ScoreGrad(interp, m.ones(n), n)
	norms := m.chunkNorms(grad, n, batch.Joints*batch.Frames*3)
	penalty := m.mean(anydiff.Square(anydiff.AddScalar(norms,
		c.MakeNumeric(-gammaGrads))), n)

	disc = NewDict()
	disc.Add("disc_loss_wgan", anydiff.Add(
		anydiff.Sub(lossFake, lossReal),
		anydiff.Scale(penalty, c.MakeNumeric(m.Conf.LambdaGrads))))
	disc.Add("disc_loss_reg", m.l2Reg(m.Disc.Kernels()))

	if m.Conf.UsePoseVAE {
		validFM := m.validityFrameMajor(batch)
		frameLossReal := m.frameScoreSum(realOut.FrameScores, validFM, n)
		frameLossFake := m.frameScoreSum(fakeOut.FrameScores, validFM, n)
		wgan.Add("frame_loss_real", frameLossReal)
		wgan.Add("frame_loss_fake", frameLossFake)

		_, fgrad := m.Disc.FrameScoreGrad(interp, m.ones(batch.Frames*n), n)
		fpenalty := m.framePenalty(batch, fgrad)
		disc.Add("frame_disc_loss_wgan", anydiff.Scale(anydiff.Add(
			anydiff.Sub(frameLossFake, frameLossReal),
			anydiff.Scale(fpenalty, c.MakeNumeric(m.Conf.LambdaGrads))),
			c.MakeNumeric(m.Conf.FrameScale)))
	}
	if m.Conf.ActionCond {
		ce := anydiff.Add(m.actionCE(realOut.Labels, batch),
			m.actionCE(fakeOut.Labels, batch))
		disc.Add("disc_loss_action", anydiff.Scale(ce, c.MakeNumeric(actionScale)))
	}
	if m.Conf.LatentCondDim > 0 {
		disc.Add("disc_loss_latent", anydiff.Scale(
			m.latentLoss(fakeOut.Latent, latent), c.MakeNumeric(latentScale)))
	}
	return wgan, disc
}

// GenLosses evaluates the generator-phase dictionary.
// The fake batch must still be attached to the generator's
// parameters.
func (m *Composer) GenLosses(batch *motiongan.Batch, fake,
	latent anydiff.Res) *Dict {
	c := m.Creator
	n, joints, frames := batch.Num, batch.Joints, batch.Frames
	real := batch.Poses

	fakeOut := m.Disc.Apply(fake, n)
	lossFake := m.mean(fakeOut.Score, n)

	gen := NewDict()
	gen.Add("gen_loss_wgan", anydiff.Scale(lossFake, c.MakeNumeric(-1.0)))
	gen.Add("gen_loss_reg", m.l2Reg(m.Gen.Kernels()))

	validNJT := m.validityPerJoint(batch)
	maskedReal := motionnet.MaskPoses(c, real, batch.Masks, n, joints, frames)
	maskedFake := motionnet.MaskPoses(c, fake, batch.Masks, n, joints, frames)

	sq := anydiff.Square(anydiff.Sub(maskedReal, maskedFake))
	perPos := anydiff.Scale(anydiff.SumCols(&anydiff.Matrix{
		Data: sq, Rows: n * joints * frames, Cols: 3,
	}), c.MakeNumeric(1.0/3))
	rec := anydiff.Scale(anydiff.Sum(anydiff.Mul(perPos, validNJT)),
		c.MakeNumeric(recScale/float64(n)))
	gen.Add("gen_loss_rec", rec)

	validSM := m.validitySampleMajor(batch)
	edmSq := anydiff.Square(anydiff.Sub(
		EDM(c, maskedReal, n, joints, frames),
		EDM(c, maskedFake, n, joints, frames)))
	perNT := m.sumJointPairs(edmSq, n, joints, frames)
	recEDM := anydiff.Scale(anydiff.Sum(anydiff.Mul(perNT, validSM)),
		c.MakeNumeric(recEDMScale*recScale/float64(n)))
	gen.Add("gen_loss_rec_edm", recEDM)

	if m.Conf.UsePoseVAE {
		validFM := m.validityFrameMajor(batch)
		frameLossFake := m.frameScoreSum(fakeOut.FrameScores, validFM, n)
		gen.Add("frame_gen_loss_wgan", anydiff.Scale(frameLossFake,
			c.MakeNumeric(-m.Conf.FrameScale)))
	}
	if m.Conf.ActionCond {
		gen.Add("gen_loss_action", anydiff.Scale(m.actionCE(fakeOut.Labels, batch),
			c.MakeNumeric(actionScale)))
	}
	if m.Conf.LatentCondDim > 0 {
		gen.Add("gen_loss_latent", anydiff.Scale(
			m.latentLoss(fakeOut.Latent, latent), c.MakeNumeric(latentScale)))
	}
	if m.Conf.CoherenceLoss {
		diff := anydiff.Square(anydiff.Sub(
			EDM(c, real, n, joints, frames),
			EDM(c, fake, n, joints, frames)))
		decay := m.decayWeights(n, joints, frames)
		coh := anydiff.Scale(anydiff.Sum(anydiff.Mul(diff, decay)),
			c.MakeNumeric(coherenceScale/float64(n*frames)))
		gen.Add("gen_loss_coh", coh)
	}
	if m.Conf.DisplacementLoss {
		gen.Add("gen_loss_disp", m.displacement(fake, n, joints, frames))
	}
	if m.Conf.ShapeLoss {
		gen.Add("gen_loss_shape", m.shape(real, fake, n, joints, frames))
	}
	if m.Conf.SmoothingLoss {
		gen.Add("gen_loss_smooth", m.smoothing(fake, n, joints, frames))
	}
	return gen
}

// interpolate mixes real and fake samples with one uniform
// coefficient per sample.
// The result is detached: a gradient penalty differentiates the
// critic at the interpolates, not the interpolates themselves.
func (m *Composer) interpolate(real, fake anydiff.Res, n int) anydiff.Res {
	var alpha anyvec.Vector
	if m.Alpha != nil {
		alpha = m.Alpha(n)
	} else {
		alpha = m.Creator.MakeVector(n)
		anyvec.Rand(alpha, anyvec.Uniform, nil)
	}
	oneMinus := alpha.Copy()
	oneMinus.Scale(m.Creator.MakeNumeric(-1))
	oneMinus.AddScalar(m.Creator.MakeNumeric(1))

	rv := real.Output().Copy()
	anyvec.ScaleChunks(rv, alpha)
	fv := fake.Output().Copy()
	anyvec.ScaleChunks(fv, oneMinus)
	rv.Add(fv)
	return anydiff.NewConst(rv)
}

// framePenalty is the gradient penalty of the per-frame critic:
// the gradient norm is taken per sample over valid frames only.
func (m *Composer) framePenalty(batch *motiongan.Batch, grad anydiff.Res) anydiff.Res {
	c := m.Creator
	n, joints, frames := batch.Num, batch.Joints, batch.Frames
	sq := anydiff.Square(grad)

	// (N,J,T) -> (N,T,J*3) so joints and coordinates of one
	// frame are contiguous.
	table := make([]int, n*frames*joints*3)
	idx := 0
	for s := 0; s < n; s++ {
		for t := 0; t < frames; t++ {
			for j := 0; j < joints; j++ {
				for k := 0; k < 3; k++ {
					table[idx] = ((s*joints+j)*frames+t)*3 + k
					idx++
				}
			}
		}
	}
	perFrame := anydiff.SumCols(&anydiff.Matrix{
		Data: motionnet.Gather(sq, c.MakeMapper(n*joints*frames*3, table)),
		Rows: n * frames,
		Cols: joints * 3,
	})
	weighted := anydiff.Mul(perFrame, m.validitySampleMajor(batch))
	perSample := anydiff.SumCols(&anydiff.Matrix{
		Data: weighted, Rows: n, Cols: frames,
	})
	norms := anydiff.Pow(anydiff.AddScalar(perSample,
		c.MakeNumeric(gradEpsilon)), c.MakeNumeric(0.5))
	return m.mean(anydiff.Square(anydiff.AddScalar(norms,
		c.MakeNumeric(-gammaGrads))), n)
}

// frameScoreSum is the validity-weighted per-frame score,
// summed over frames and averaged over samples.
func (m *Composer) frameScoreSum(scores, validFM anydiff.Res, n int) anydiff.Res {
	return m.mean(anydiff.Mul(scores, validFM), n)
}

// actionCE is the softmax cross-entropy of the action logits
// against the batch's true actions, averaged over samples.
func (m *Composer) actionCE(logits anydiff.Res, batch *motiongan.Batch) anydiff.Res {
	c := m.Creator
	n := batch.Num
	numActions := m.Conf.NumActions
	logProbs := anydiff.LogSoftmax(logits, numActions)
	table := make([]int, n)
	for i, action := range batch.Actions() {
		table[i] = i*numActions + action
	}
	picked := motionnet.Gather(logProbs, c.MakeMapper(n*numActions, table))
	return anydiff.Scale(anydiff.Sum(picked), c.MakeNumeric(-1.0/float64(n)))
}

// latentLoss is the mean squared error between the critic's
// latent estimate and the conditioning input.
func (m *Composer) latentLoss(estimate, latent anydiff.Res) anydiff.Res {
	sq := anydiff.Square(anydiff.Sub(estimate, latent))
	return anydiff.Scale(anydiff.Sum(sq),
		m.Creator.MakeNumeric(1.0/float64(sq.Output().Len())))
}

// displacement penalizes large jumps between consecutive
// frames of the generated sequence.
func (m *Composer) displacement(fake anydiff.Res, n, joints, frames int) anydiff.Res {
	c := m.Creator
	rows := n * joints * (frames - 1)
	left := make([]int, rows*3)
	right := make([]int, rows*3)
	idx := 0
	for s := 0; s < n; s++ {
		for j := 0; j < joints; j++ {
			for t := 0; t < frames-1; t++ {
				for k := 0; k < 3; k++ {
					left[idx] = ((s*joints+j)*frames+t)*3 + k
					right[idx] = ((s*joints+j)*frames+t+1)*3 + k
					idx++
				}
			}
		}
	}
	inLen := n * joints * frames * 3
	return anydiff.Pool(fake, func(fake anydiff.Res) anydiff.Res {
		sq := anydiff.Square(anydiff.Sub(
			motionnet.Gather(fake, c.MakeMapper(inLen, left)),
			motionnet.Gather(fake, c.MakeMapper(inLen, right))))
		perPos := anydiff.SumCols(&anydiff.Matrix{Data: sq, Rows: rows, Cols: 3})
		return anydiff.Scale(anydiff.Sum(perPos),
			c.MakeNumeric(displacementScale/(3*float64(n))))
	})
}

// shape compares the two sequences' time-averaged rest shapes
// over every unordered joint pair.
// The unweighted value is a symmetric distance between the two
// rest shapes.
func (m *Composer) shape(real, fake anydiff.Res, n, joints, frames int) anydiff.Res {
	c := m.Creator
	restReal := m.restShape(real, n, joints, frames)
	restFake := m.restShape(fake, n, joints, frames)

	mask := make([]float64, n*joints*joints)
	idx := 0
	for s := 0; s < n; s++ {
		for j1 := 0; j1 < joints; j1++ {
			for j2 := 0; j2 < joints; j2++ {
				if j2 > j1 {
					mask[idx] = 1
				}
				idx++
			}
		}
	}
	sq := anydiff.Square(anydiff.Sub(restReal, restFake))
	masked := anydiff.Mul(sq, m.constVec(mask))
	return anydiff.Scale(anydiff.Sum(masked),
		c.MakeNumeric(shapeScale/float64(n)))
}

// restShape is a sequence's time-averaged distance matrix.
func (m *Composer) restShape(seq anydiff.Res, n, joints, frames int) anydiff.Res {
	return anydiff.Scale(anydiff.SumCols(&anydiff.Matrix{
		Data: EDM(m.Creator, seq, n, joints, frames),
		Rows: n * joints * joints,
		Cols: frames,
	}), m.Creator.MakeNumeric(1.0/float64(frames)))
}

// smoothing projects each coordinate's trajectory onto a small
// cosine basis and penalizes the residual.
func (m *Composer) smoothing(fake anydiff.Res, n, joints, frames int) anydiff.Res {
	c := m.Creator
	perm := motionnet.NewSeqToFrames(c, "smoothing", n, joints, frames)
	proj := anydiff.NewConst(c.MakeVectorData(c.MakeNumericList(
		smoothingProjection(frames))))
	return anydiff.Pool(perm.Apply(fake, n), func(xf anydiff.Res) anydiff.Res {
		smooth := anydiff.MatMul(false, false,
			&anydiff.Matrix{Data: proj, Rows: frames, Cols: frames},
			&anydiff.Matrix{Data: xf, Rows: frames, Cols: n * joints * 3}).Data
		sq := anydiff.Square(anydiff.Sub(smooth, xf))
		return anydiff.Scale(anydiff.Sum(sq),
			c.MakeNumeric(smoothingScale/(3*float64(n))))
	})
}

// smoothingProjection is the orthogonal projection onto the
// first few cosine basis trajectories, as a row-major
// frames x frames matrix.
func smoothingProjection(frames int) []float64 {
	basis := make([][]float64, smoothingBasis)
	for k := range basis {
		q := make([]float64, frames)
		for t := 0; t < frames; t++ {
			if k == 0 {
				q[t] = 1
			} else {
				q[t] = 2 * math.Cos(math.Pi*float64(k)*
					(2*float64(t)+1)/(2*float64(frames)))
			}
		}
		basis[k] = q
	}
	proj := make([]float64, frames*frames)
	for _, q := range basis {
		var norm float64
		for _, v := range q {
			norm += v * v
		}
		for u := 0; u < frames; u++ {
			for v := 0; v < frames; v++ {
				proj[u*frames+v] += q[u] * q[v] / norm
			}
		}
	}
	return proj
}

// sumJointPairs reduces an (N,J,J,T) tensor to per-(sample,
// frame) sums over both joint axes, in sample-major order.
func (m *Composer) sumJointPairs(in anydiff.Res, n, joints, frames int) anydiff.Res {
	table := make([]int, n*frames*joints*joints)
	idx := 0
	for s := 0; s < n; s++ {
		for t := 0; t < frames; t++ {
			for j1 := 0; j1 < joints; j1++ {
				for j2 := 0; j2 < joints; j2++ {
					table[idx] = ((s*joints+j1)*joints+j2)*frames + t
					idx++
				}
			}
		}
	}
	return anydiff.SumCols(&anydiff.Matrix{
		Data: motionnet.Gather(in, m.Creator.MakeMapper(n*joints*joints*frames, table)),
		Rows: n * frames,
		Cols: joints * joints,
	})
}

// l2Reg is the summed squared-kernel regularizer.
func (m *Composer) l2Reg(kernels []*anydiff.Var) anydiff.Res {
	var sum anydiff.Res
	for _, k := range kernels {
		sq := anydiff.Sum(anydiff.Square(k))
		if sum == nil {
			sum = sq
		} else {
			sum = anydiff.Add(sum, sq)
		}
	}
	return anydiff.Scale(sum, m.Creator.MakeNumeric(regScale))
}

// chunkNorms is the per-chunk Euclidean norm with an epsilon
// inside the square root.
func (m *Composer) chunkNorms(in anydiff.Res, rows, cols int) anydiff.Res {
	sums := anydiff.SumCols(&anydiff.Matrix{
		Data: anydiff.Square(in), Rows: rows, Cols: cols,
	})
	return anydiff.Pow(anydiff.AddScalar(sums,
		m.Creator.MakeNumeric(gradEpsilon)), m.Creator.MakeNumeric(0.5))
}

func (m *Composer) mean(in anydiff.Res, count int) anydiff.Res {
	return anydiff.Scale(anydiff.Sum(in),
		m.Creator.MakeNumeric(1.0/float64(count)))
}

func (m *Composer) ones(length int) anydiff.Res {
	v := m.Creator.MakeVector(length)
	v.AddScalar(m.Creator.MakeNumeric(1))
	return anydiff.NewConst(v)
}

func (m *Composer) constVec(data []float64) *anydiff.Const {
	return anydiff.NewConst(m.Creator.MakeVectorData(m.Creator.MakeNumericList(data)))
}

// validitySampleMajor is the frame-validity indicator indexed
// (sample, frame).
func (m *Composer) validitySampleMajor(batch *motiongan.Batch) *anydiff.Const {
	return m.constVec(batch.FrameValidity())
}

// validityFrameMajor is the frame-validity indicator indexed
// (frame, sample), matching the per-frame critic's output.
func (m *Composer) validityFrameMajor(batch *motiongan.Batch) *anydiff.Const {
	valid := batch.FrameValidity()
	out := make([]float64, len(valid))
	for s := 0; s < batch.Num; s++ {
		for t := 0; t < batch.Frames; t++ {
			out[t*batch.Num+s] = valid[s*batch.Frames+t]
		}
	}
	return m.constVec(out)
}

// validityPerJoint broadcasts the frame-validity indicator over
// the joint axis, indexed (sample, joint, frame).
func (m *Composer) validityPerJoint(batch *motiongan.Batch) *anydiff.Const {
	valid := batch.FrameValidity()
	out := make([]float64, batch.Num*batch.Joints*batch.Frames)
	idx := 0
	for s := 0; s < batch.Num; s++ {
		for j := 0; j < batch.Joints; j++ {
			for t := 0; t < batch.Frames; t++ {
				out[idx] = valid[s*batch.Frames+t]
				idx++
			}
		}
	}
	return m.constVec(out)
}

// decayWeights is the per-frame exponential decay kernel
// broadcast over an (N,J,J,T) tensor.
func (m *Composer) decayWeights(n, joints, frames int) *anydiff.Const {
	decay := make([]float64, frames)
	for t := range decay {
		decay[t] = 1 / math.Exp(2*float64(t)/float64(frames-1))
	}
	out := make([]float64, n*joints*joints*frames)
	for i := 0; i < n*joints*joints; i++ {
		copy(out[i*frames:], decay)
	}
	return m.constVec(out)
}
