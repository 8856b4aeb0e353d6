package motionnet

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
)

// FrameFC applies a fully-connected transform to every row of a
// packed tensor, where a row is one frame (Rows=frames) or one
// whole sample (Rows=1).
// It wraps anynet.FC and adds the VJP needed on the critic path.
type FrameFC struct {
	Scope Scope
	FC    *anynet.FC

	// Rows is the number of rows each sample contributes.
	Rows int
}

// NewFrameFC creates a randomized FrameFC.
func NewFrameFC(c anyvec.Creator, scope Scope, rows, in, out int) *FrameFC {
	return &FrameFC{
		Scope: scope,
		FC:    anynet.NewFC(c, in, out),
		Rows:  rows,
	}
}

// Apply applies the transform to every row.
func (f *FrameFC) Apply(in anydiff.Res, n int) anydiff.Res {
	return f.FC.Apply(in, n*f.Rows)
}

// VJP multiplies the upstream rows by the weight matrix.
func (f *FrameFC) VJP(in, out, upstream anydiff.Res, n int) anydiff.Res {
	weightMat := &anydiff.Matrix{
		Data: f.FC.Weights,
		Rows: f.FC.OutCount,
		Cols: f.FC.InCount,
	}
	upMat := &anydiff.Matrix{
		Data: upstream,
		Rows: n * f.Rows,
		Cols: f.FC.OutCount,
	}
	return anydiff.MatMul(false, false, upMat, weightMat).Data
}

// Parameters returns the weights and biases.
func (f *FrameFC) Parameters() []*anydiff.Var {
	return f.FC.Parameters()
}

// Kernels returns the weight matrix only.
func (f *FrameFC) Kernels() []*anydiff.Var {
	return []*anydiff.Var{f.FC.Weights}
}

// An Activation is an elementwise non-linearity with an explicit
// VJP.
type Activation int

// Supported activations.
const (
	ReLU Activation = iota
	Sigmoid
	Tanh
)

// Apply applies the activation.
func (a Activation) Apply(in anydiff.Res, n int) anydiff.Res {
	switch a {
	case ReLU:
		return anydiff.ClipPos(in)
	case Sigmoid:
		return anydiff.Sigmoid(in)
	case Tanh:
		return anydiff.Tanh(in)
	default:
		panic("unknown activation")
	}
}

// VJP multiplies the upstream by the activation derivative.
func (a Activation) VJP(in, out, upstream anydiff.Res, n int) anydiff.Res {
	switch a {
	case ReLU:
		mask := in.Output().Copy()
		anyvec.GreaterThan(mask, mask.Creator().MakeNumeric(0))
		return anydiff.Mul(upstream, anydiff.NewConst(mask))
	case Sigmoid:
		return anydiff.Mul(upstream, anydiff.Mul(out, anydiff.Complement(out)))
	case Tanh:
		return anydiff.Mul(upstream, anydiff.Complement(anydiff.Square(out)))
	default:
		panic("unknown activation")
	}
}

// A TimeLinear multiplies the time axis of a frame-major tensor
// by a fixed matrix.
// Shifts, strided pooling, nearest-neighbor upsampling and mean
// pooling over time are all instances of it.
type TimeLinear struct {
	Scope     Scope
	InFrames  int
	OutFrames int
	Feat      int
	Mat       *anydiff.Const
}

// NewTimeLinear builds a TimeLinear from an outFrames x inFrames
// row-major matrix.
func NewTimeLinear(c anyvec.Creator, scope Scope, inFrames, outFrames, feat int,
	mat []float64) *TimeLinear {
	if len(mat) != inFrames*outFrames {
		panic(scope.Errorf("matrix length should be %d, but got %d",
			inFrames*outFrames, len(mat)).Error())
	}
	return &TimeLinear{
		Scope:     scope,
		InFrames:  inFrames,
		OutFrames: outFrames,
		Feat:      feat,
		Mat:       anydiff.NewConst(c.MakeVectorData(c.MakeNumericList(mat))),
	}
}

// NewTimeShift shifts frames forward by one step, zero-filling
// the first frame.
func NewTimeShift(c anyvec.Creator, scope Scope, frames, feat int) *TimeLinear {
	mat := make([]float64, frames*frames)
	for t := 1; t < frames; t++ {
		mat[t*frames+t-1] = 1
	}
	return NewTimeLinear(c, scope, frames, frames, feat, mat)
}

// NewTimeDownsample keeps every second frame.
func NewTimeDownsample(c anyvec.Creator, scope Scope, frames, feat int) *TimeLinear {
	if frames%2 != 0 {
		panic(scope.Errorf("frame count %d is not divisible by 2", frames).Error())
	}
	mat := make([]float64, (frames/2)*frames)
	for t := 0; t < frames/2; t++ {
		mat[t*frames+2*t] = 1
	}
	return NewTimeLinear(c, scope, frames, frames/2, feat, mat)
}

// NewTimeUpsample repeats every frame twice.
func NewTimeUpsample(c anyvec.Creator, scope Scope, frames, feat int) *TimeLinear {
	mat := make([]float64, (frames*2)*frames)
	for t := 0; t < frames*2; t++ {
		mat[t*frames+t/2] = 1
	}
	return NewTimeLinear(c, scope, frames, frames*2, feat, mat)
}

// NewTimeMean averages all frames into one.
func NewTimeMean(c anyvec.Creator, scope Scope, frames, feat int) *TimeLinear {
	mat := make([]float64, frames)
	for t := range mat {
		mat[t] = 1 / float64(frames)
	}
	return NewTimeLinear(c, scope, frames, 1, feat, mat)
}

// Apply multiplies the time axis by the matrix.
func (t *TimeLinear) Apply(in anydiff.Res, n int) anydiff.Res {
	if in.Output().Len() != t.InFrames*n*t.Feat {
		panic(t.Scope.Errorf("input length should be %d, but got %d",
			t.InFrames*n*t.Feat, in.Output().Len()).Error())
	}
	matRes := &anydiff.Matrix{Data: t.Mat, Rows: t.OutFrames, Cols: t.InFrames}
	inMat := &anydiff.Matrix{Data: in, Rows: t.InFrames, Cols: n * t.Feat}
	return anydiff.MatMul(false, false, matRes, inMat).Data
}

// VJP multiplies the upstream by the transposed matrix.
func (t *TimeLinear) VJP(in, out, upstream anydiff.Res, n int) anydiff.Res {
	matRes := &anydiff.Matrix{Data: t.Mat, Rows: t.OutFrames, Cols: t.InFrames}
	upMat := &anydiff.Matrix{Data: upstream, Rows: t.OutFrames, Cols: n * t.Feat}
	return anydiff.MatMul(true, false, matRes, upMat).Data
}

// InstanceNorm normalizes each feature channel over the time
// axis of one sample, then applies a learned affine transform.
// It only appears on the generator path, so it has no VJP.
type InstanceNorm struct {
	Scope   Scope
	Frames  int
	Feat    int
	Scalers *anydiff.Var
	Biases  *anydiff.Var

	epsilon float64
	bcast   anyvec.Mapper
}

// NewInstanceNorm creates an identity-initialized InstanceNorm.
func NewInstanceNorm(c anyvec.Creator, scope Scope, frames, feat int) *InstanceNorm {
	scalers := c.MakeVector(feat)
	scalers.AddScalar(c.MakeNumeric(1))
	return &InstanceNorm{
		Scope:   scope,
		Frames:  frames,
		Feat:    feat,
		Scalers: anydiff.NewVar(scalers),
		Biases:  anydiff.NewVar(c.MakeVector(feat)),
		epsilon: 1e-5,
	}
}

// Apply normalizes the input.
func (i *InstanceNorm) Apply(in anydiff.Res, n int) anydiff.Res {
	c := in.Output().Creator()
	if in.Output().Len() != i.Frames*n*i.Feat {
		panic(i.Scope.Errorf("input length should be %d, but got %d",
			i.Frames*n*i.Feat, in.Output().Len()).Error())
	}
	if i.bcast == nil || i.bcast.OutSize() != i.Frames*n*i.Feat {
		table := make([]int, i.Frames*n*i.Feat)
		for t := 0; t < i.Frames; t++ {
			for k := 0; k < n*i.Feat; k++ {
				table[t*n*i.Feat+k] = k
			}
		}
		i.bcast = c.MakeMapper(n*i.Feat, table)
	}
	frameScale := c.MakeNumeric(1 / float64(i.Frames))
	return anydiff.Pool(in, func(in anydiff.Res) anydiff.Res {
		inMat := &anydiff.Matrix{Data: in, Rows: i.Frames, Cols: n * i.Feat}
		mean := anydiff.Scale(anydiff.SumRows(inMat), frameScale)
		return anydiff.Pool(mean, func(mean anydiff.Res) anydiff.Res {
			centered := anydiff.AddRepeated(in, anydiff.Scale(mean, c.MakeNumeric(-1)))
			return anydiff.Pool(centered, func(centered anydiff.Res) anydiff.Res {
				sqMat := &anydiff.Matrix{
					Data: anydiff.Square(centered),
					Rows: i.Frames,
					Cols: n * i.Feat,
				}
				variance := anydiff.Scale(anydiff.SumRows(sqMat), frameScale)
				invStd := anydiff.Pow(anydiff.AddScalar(variance,
					c.MakeNumeric(i.epsilon)), c.MakeNumeric(-0.5))
				normed := anydiff.Mul(centered, Gather(invStd, i.bcast))
				return anydiff.ScaleAddRepeated(normed, i.Scalers, i.Biases)
			})
		})
	})
}

// Parameters returns the scalers and biases.
func (i *InstanceNorm) Parameters() []*anydiff.Var {
	return []*anydiff.Var{i.Scalers, i.Biases}
}
