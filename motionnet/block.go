package motionnet

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
)

// A Block is a composable computation unit over a packed batch
// of n pose sequences, analogous to anynet.Layer but aware of
// the frame-major layouts used here.
type Block interface {
	Apply(in anydiff.Res, n int) anydiff.Res
}

// A GradBlock can additionally express the product of an
// upstream row vector with its input Jacobian as a differentiable
// computation.
// This is what lets a gradient penalty on the critic's input
// gradient backpropagate into the critic's parameters.
//
// VJP receives the block's pooled input and output so
// activation derivatives can be expressed without recomputation.
type GradBlock interface {
	Block
	VJP(in, out, upstream anydiff.Res, n int) anydiff.Res
}

// A Stack evaluates blocks one after another.
type Stack []Block

// Apply applies every block in order.
func (s Stack) Apply(in anydiff.Res, n int) anydiff.Res {
	for _, b := range s {
		in = b.Apply(in, n)
	}
	return in
}

// VJP runs a forward pass, then walks the stack backwards
// composing each block's VJP.
// Every block must be a GradBlock; anything else is a
// programming error.
func (s Stack) VJP(in, out, upstream anydiff.Res, n int) anydiff.Res {
	_, g := s.BackProp(in, upstream, n)
	return g
}

// BackProp evaluates the stack and the input gradient for the
// given upstream vector in one pass.
// The returned gradient is a differentiable function of every
// parameter the stack touches.
func (s Stack) BackProp(in, upstream anydiff.Res, n int) (out, inGrad anydiff.Res) {
	ins := make([]anydiff.Res, len(s)+1)
	ins[0] = in
	for i, b := range s {
		ins[i+1] = b.Apply(ins[i], n)
	}
	g := upstream
	for i := len(s) - 1; i >= 0; i-- {
		gb, ok := s[i].(GradBlock)
		if !ok {
			panic("stack: block does not support VJP")
		}
		g = gb.VJP(ins[i], ins[i+1], g, n)
	}
	return ins[len(s)], g
}

// Parameters returns the parameters of every block which
// implements anynet.Parameterizer, in stack order.
func (s Stack) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, b := range s {
		if p, ok := b.(anynet.Parameterizer); ok {
			res = append(res, p.Parameters()...)
		}
	}
	return res
}

// A Kernelizer exposes the weight kernels that participate in L2
// regularization (biases and normalization offsets do not).
type Kernelizer interface {
	Kernels() []*anydiff.Var
}

// Kernels collects the weight kernels of every block which
// implements Kernelizer.
func (s Stack) Kernels() []*anydiff.Var {
	var res []*anydiff.Var
	for _, b := range s {
		if k, ok := b.(Kernelizer); ok {
			res = append(res, k.Kernels()...)
		}
	}
	return res
}
