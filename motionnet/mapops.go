package motionnet

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// Gather reads in through an index table, producing an output
// with out[i] = in[table[i]].
// Tables may repeat indices, so Gather doubles as a broadcast.
// The gradient accumulates through the transposed mapping.
func Gather(in anydiff.Res, mapper anyvec.Mapper) anydiff.Res {
	if in.Output().Len() != mapper.InSize() {
		panic("gather: input length does not match mapper")
	}
	out := in.Output().Creator().MakeVector(mapper.OutSize())
	mapper.Map(in.Output(), out)
	return &gatherRes{
		In:     in,
		Mapper: mapper,
		OutVec: out,
	}
}

type gatherRes struct {
	In     anydiff.Res
	Mapper anyvec.Mapper
	OutVec anyvec.Vector
}

func (g *gatherRes) Output() anyvec.Vector {
	return g.OutVec
}

func (g *gatherRes) Vars() anydiff.VarSet {
	return g.In.Vars()
}

func (g *gatherRes) Propagate(u anyvec.Vector, grad anydiff.Grad) {
	down := u.Creator().MakeVector(g.Mapper.InSize())
	g.Mapper.MapTranspose(u, down)
	g.In.Propagate(down, grad)
}

// A Permute is a fixed bijective re-ordering of the components
// of a packed tensor, implemented as a pair of index maps.
// It is the bridge between the external sample-major pose layout
// (N,J,T,3) and the frame-major layout (T,N,F) the temporal
// blocks operate on.
type Permute struct {
	Scope   Scope
	forward anyvec.Mapper
	inverse anyvec.Mapper
}

// NewPermute creates a Permute from a forward index table,
// where table[outIdx] = inIdx and table is a bijection.
func NewPermute(c anyvec.Creator, scope Scope, table []int) *Permute {
	inverse := make([]int, len(table))
	for out, in := range table {
		inverse[in] = out
	}
	return &Permute{
		Scope:   scope,
		forward: c.MakeMapper(len(table), table),
		inverse: c.MakeMapper(len(table), inverse),
	}
}

// NewSeqToFrames permutes a (N,J,T,3) pose batch into frame-major
// (T,N,J*3) order.
func NewSeqToFrames(c anyvec.Creator, scope Scope, n, joints, frames int) *Permute {
	table := make([]int, n*joints*frames*3)
	idx := 0
	for t := 0; t < frames; t++ {
		for nn := 0; nn < n; nn++ {
			for j := 0; j < joints; j++ {
				for k := 0; k < 3; k++ {
					table[idx] = ((nn*joints+j)*frames+t)*3 + k
					idx++
				}
			}
		}
	}
	return NewPermute(c, scope, table)
}

// NewFramesToSeq inverts NewSeqToFrames.
func NewFramesToSeq(c anyvec.Creator, scope Scope, n, joints, frames int) *Permute {
	table := make([]int, n*joints*frames*3)
	idx := 0
	for nn := 0; nn < n; nn++ {
		for j := 0; j < joints; j++ {
			for t := 0; t < frames; t++ {
				for k := 0; k < 3; k++ {
					table[idx] = ((t*n+nn)*joints*3 + j*3 + k)
					idx++
				}
			}
		}
	}
	return NewPermute(c, scope, table)
}

// Apply applies the permutation.
func (p *Permute) Apply(in anydiff.Res, n int) anydiff.Res {
	if in.Output().Len() != p.forward.InSize() {
		panic(p.Scope.Errorf("input length should be %d, but got %d",
			p.forward.InSize(), in.Output().Len()).Error())
	}
	return Gather(in, p.forward)
}

// VJP applies the inverse permutation to the upstream vector.
func (p *Permute) VJP(in, out, upstream anydiff.Res, n int) anydiff.Res {
	return Gather(upstream, p.inverse)
}

// Inverse returns the opposite permutation.
func (p *Permute) Inverse() *Permute {
	return &Permute{
		Scope:   p.Scope.Sub("inverse"),
		forward: p.inverse,
		inverse: p.forward,
	}
}

// BroadcastMask expands a (N,J,T,1) mask to the (N,J,T,3) pose
// layout so it can be multiplied against coordinates.
func BroadcastMask(c anyvec.Creator, mask anydiff.Res, n, joints, frames int) anydiff.Res {
	table := make([]int, n*joints*frames*3)
	for i := 0; i < n*joints*frames; i++ {
		for k := 0; k < 3; k++ {
			table[i*3+k] = i
		}
	}
	return Gather(mask, c.MakeMapper(n*joints*frames, table))
}

// MaskPoses multiplies a pose batch by a broadcast mask.
// Masked-out positions read exactly zero afterwards, and applying
// the same mask twice is a no-op.
func MaskPoses(c anyvec.Creator, poses, mask anydiff.Res, n, joints, frames int) anydiff.Res {
	return anydiff.Mul(poses, BroadcastMask(c, mask, n, joints, frames))
}

// A LayoutBlock converts between the sequence-major (N,J,T,3)
// and frame-major (T,N,J,3) layouts as a stack block.
// The permutation table depends on the batch size, so it is
// rebuilt whenever the batch size changes.
type LayoutBlock struct {
	Scope    Scope
	Joints   int
	Frames   int
	ToFrames bool

	creator anyvec.Creator
	perm    *Permute
	permN   int
}

// NewSeqToFramesBlock converts sequence-major input to
// frame-major.
func NewSeqToFramesBlock(c anyvec.Creator, scope Scope, joints, frames int) *LayoutBlock {
	return &LayoutBlock{Scope: scope, Joints: joints, Frames: frames,
		ToFrames: true, creator: c}
}

// NewFramesToSeqBlock converts frame-major input to
// sequence-major.
func NewFramesToSeqBlock(c anyvec.Creator, scope Scope, joints, frames int) *LayoutBlock {
	return &LayoutBlock{Scope: scope, Joints: joints, Frames: frames,
		ToFrames: false, creator: c}
}

func (l *LayoutBlock) permute(n int) *Permute {
	if l.perm == nil || l.permN != n {
		if l.ToFrames {
			l.perm = NewSeqToFrames(l.creator, l.Scope, n, l.Joints, l.Frames)
		} else {
			l.perm = NewFramesToSeq(l.creator, l.Scope, n, l.Joints, l.Frames)
		}
		l.permN = n
	}
	return l.perm
}

// Apply converts the layout.
func (l *LayoutBlock) Apply(in anydiff.Res, n int) anydiff.Res {
	return l.permute(n).Apply(in, n)
}

// VJP converts the upstream back.
func (l *LayoutBlock) VJP(in, out, upstream anydiff.Res, n int) anydiff.Res {
	return l.permute(n).VJP(in, out, upstream, n)
}
