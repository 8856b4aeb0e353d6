package motionnet

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// Identity passes its input through unchanged.
type Identity struct{}

// Apply returns the input.
func (Identity) Apply(in anydiff.Res, n int) anydiff.Res {
	return in
}

// VJP returns the upstream.
func (Identity) VJP(in, out, upstream anydiff.Res, n int) anydiff.Res {
	return upstream
}

// Seq runs a sub-stack as a single block.
type Seq Stack

// Apply applies the sub-stack.
func (s Seq) Apply(in anydiff.Res, n int) anydiff.Res {
	return Stack(s).Apply(in, n)
}

// VJP backpropagates through the sub-stack.
func (s Seq) VJP(in, out, upstream anydiff.Res, n int) anydiff.Res {
	return Stack(s).VJP(in, out, upstream, n)
}

// Parameters returns the sub-stack parameters.
func (s Seq) Parameters() []*anydiff.Var {
	return Stack(s).Parameters()
}

// Kernels returns the sub-stack kernels.
func (s Seq) Kernels() []*anydiff.Var {
	return Stack(s).Kernels()
}

// Sum applies parallel branches to the same input and adds their
// outputs.
type Sum []Block

// Apply adds the branch outputs.
func (s Sum) Apply(in anydiff.Res, n int) anydiff.Res {
	return anydiff.Pool(in, func(in anydiff.Res) anydiff.Res {
		res := s[0].Apply(in, n)
		for _, b := range s[1:] {
			res = anydiff.Add(res, b.Apply(in, n))
		}
		return res
	})
}

// VJP adds the branch VJPs.
func (s Sum) VJP(in, out, upstream anydiff.Res, n int) anydiff.Res {
	var res anydiff.Res
	for _, b := range s {
		branchOut := b.Apply(in, n)
		g := b.(GradBlock).VJP(in, branchOut, upstream, n)
		if res == nil {
			res = g
		} else {
			res = anydiff.Add(res, g)
		}
	}
	return res
}

// Parameters returns the branch parameters.
func (s Sum) Parameters() []*anydiff.Var {
	return Stack(s).Parameters()
}

// Kernels returns the branch kernels.
func (s Sum) Kernels() []*anydiff.Var {
	return Stack(s).Kernels()
}

// Residual adds a main branch to a shortcut.
// A nil shortcut is the identity.
type Residual struct {
	Main     Block
	Shortcut Block
}

// Apply computes main(x)+shortcut(x).
func (r *Residual) Apply(in anydiff.Res, n int) anydiff.Res {
	return anydiff.Pool(in, func(in anydiff.Res) anydiff.Res {
		mainOut := r.Main.Apply(in, n)
		orig := in
		if r.Shortcut != nil {
			orig = r.Shortcut.Apply(in, n)
		}
		return anydiff.Add(orig, mainOut)
	})
}

// VJP adds the VJPs of both branches.
func (r *Residual) VJP(in, out, upstream anydiff.Res, n int) anydiff.Res {
	mainOut := r.Main.Apply(in, n)
	g := r.Main.(GradBlock).VJP(in, mainOut, upstream, n)
	if r.Shortcut == nil {
		return anydiff.Add(g, upstream)
	}
	scOut := r.Shortcut.Apply(in, n)
	return anydiff.Add(g, r.Shortcut.(GradBlock).VJP(in, scOut, upstream, n))
}

// Parameters returns the parameters of both branches.
func (r *Residual) Parameters() []*anydiff.Var {
	blocks := Stack{r.Main}
	if r.Shortcut != nil {
		blocks = append(blocks, r.Shortcut)
	}
	return blocks.Parameters()
}

// Kernels returns the kernels of both branches.
func (r *Residual) Kernels() []*anydiff.Var {
	blocks := Stack{r.Main}
	if r.Shortcut != nil {
		blocks = append(blocks, r.Shortcut)
	}
	return blocks.Kernels()
}

// Gated mixes two branches through a learned sigmoid gate:
//
//	out = carry(x)*(1-g) + update(x)*g,  g = sigmoid(gate(x))
//
// With an identity carry this is a highway block; with a
// convolutional carry and a shortcut update it is the gated
// residual block of the v2 networks.
type Gated struct {
	Carry  Block
	Update Block
	Gate   Block
}

// Apply mixes the branches.
func (g *Gated) Apply(in anydiff.Res, n int) anydiff.Res {
	return anydiff.Pool(in, func(in anydiff.Res) anydiff.Res {
		carry := g.Carry.Apply(in, n)
		update := g.Update.Apply(in, n)
		gate := anydiff.Sigmoid(g.Gate.Apply(in, n))
		return anydiff.Pool(gate, func(gate anydiff.Res) anydiff.Res {
			return anydiff.Add(
				anydiff.Mul(carry, anydiff.Complement(gate)),
				anydiff.Mul(update, gate),
			)
		})
	})
}

// VJP backpropagates through all three branches.
func (g *Gated) VJP(in, out, upstream anydiff.Res, n int) anydiff.Res {
	carry := g.Carry.Apply(in, n)
	update := g.Update.Apply(in, n)
	gatePre := g.Gate.Apply(in, n)
	gate := anydiff.Sigmoid(gatePre)

	upCarry := anydiff.Mul(upstream, anydiff.Complement(gate))
	upUpdate := anydiff.Mul(upstream, gate)
	// d(out)/d(gatePre) = (update-carry) * g * (1-g)
	upGate := anydiff.Mul(upstream, anydiff.Mul(
		anydiff.Sub(update, carry),
		anydiff.Mul(gate, anydiff.Complement(gate))))

	res := g.Carry.(GradBlock).VJP(in, carry, upCarry, n)
	res = anydiff.Add(res, g.Update.(GradBlock).VJP(in, update, upUpdate, n))
	return anydiff.Add(res, g.Gate.(GradBlock).VJP(in, gatePre, upGate, n))
}

// Parameters returns the parameters of all three branches.
func (g *Gated) Parameters() []*anydiff.Var {
	return Stack{g.Carry, g.Update, g.Gate}.Parameters()
}

// Kernels returns the kernels of all three branches.
func (g *Gated) Kernels() []*anydiff.Var {
	return Stack{g.Carry, g.Update, g.Gate}.Kernels()
}

// GatedMul multiplies a branch by a sigmoid attention gate:
//
//	out = main(x) * sigmoid(gate(x))
type GatedMul struct {
	Main Block
	Gate Block
}

// Apply computes the gated product.
func (g *GatedMul) Apply(in anydiff.Res, n int) anydiff.Res {
	return anydiff.Pool(in, func(in anydiff.Res) anydiff.Res {
		return anydiff.Mul(g.Main.Apply(in, n),
			anydiff.Sigmoid(g.Gate.Apply(in, n)))
	})
}

// VJP backpropagates through both branches.
func (g *GatedMul) VJP(in, out, upstream anydiff.Res, n int) anydiff.Res {
	main := g.Main.Apply(in, n)
	gatePre := g.Gate.Apply(in, n)
	gate := anydiff.Sigmoid(gatePre)

	upMain := anydiff.Mul(upstream, gate)
	upGate := anydiff.Mul(upstream, anydiff.Mul(main,
		anydiff.Mul(gate, anydiff.Complement(gate))))

	res := g.Main.(GradBlock).VJP(in, main, upMain, n)
	return anydiff.Add(res, g.Gate.(GradBlock).VJP(in, gatePre, upGate, n))
}

// Parameters returns the parameters of both branches.
func (g *GatedMul) Parameters() []*anydiff.Var {
	return Stack{g.Main, g.Gate}.Parameters()
}

// Kernels returns the kernels of both branches.
func (g *GatedMul) Kernels() []*anydiff.Var {
	return Stack{g.Main, g.Gate}.Kernels()
}

// NewTimeConv builds a kernel-3 temporal convolution over a
// frame-major tensor as the sum of a centered, a shifted-left
// and a shifted-right frame-wise dense map.
func NewTimeConv(c anyvec.Creator, scope Scope, frames, in, out int) Block {
	return Sum{
		NewFrameFC(c, scope.Sub("center"), frames, in, out),
		Seq{
			NewFrameFC(c, scope.Sub("left"), frames, in, out),
			NewTimeShift(c, scope.Sub("shift_fwd"), frames, out),
		},
		Seq{
			NewFrameFC(c, scope.Sub("right"), frames, in, out),
			newTimeShiftBack(c, scope.Sub("shift_bwd"), frames, out),
		},
	}
}

// newTimeShiftBack shifts frames backward by one step,
// zero-filling the last frame.
func newTimeShiftBack(c anyvec.Creator, scope Scope, frames, feat int) *TimeLinear {
	mat := make([]float64, frames*frames)
	for t := 0; t < frames-1; t++ {
		mat[t*frames+t+1] = 1
	}
	return NewTimeLinear(c, scope, frames, frames, feat, mat)
}

// JoinFeatures concatenates two equally-batched frame-major
// tensors along the feature axis, producing a vector of the
// form [a[0], b[0], a[1], b[1], ...] where a[r] is the r-th
// row of a.
func JoinFeatures(a, b anydiff.Res, rows, featA, featB int) anydiff.Res {
	return anydiff.Pool(a, func(a anydiff.Res) anydiff.Res {
		return anydiff.Pool(b, func(b anydiff.Res) anydiff.Res {
			var res []anydiff.Res
			for r := 0; r < rows; r++ {
				res = append(res, anydiff.Slice(a, r*featA, (r+1)*featA),
					anydiff.Slice(b, r*featB, (r+1)*featB))
			}
			return anydiff.Concat(res...)
		})
	})
}
