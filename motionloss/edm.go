package motionloss

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"

	"github.com/etarakci-hvl/MotionGAN/motionnet"
)

const edmEpsilon = 1e-8

// EDM computes the per-frame pairwise Euclidean distance matrix
// of a sequence-major (N,J,T,3) pose batch.
// The result is laid out as (N,J,J,T): for each frame, the
// distance between every pair of joints, with an epsilon inside
// the square root for numerical stability.
// Each frame's matrix is symmetric, non-negative, and has an
// almost-zero diagonal.
func EDM(c anyvec.Creator, in anydiff.Res, n, joints, frames int) anydiff.Res {
	rows := n * joints * joints * frames
	table1 := make([]int, rows*3)
	table2 := make([]int, rows*3)
	idx := 0
	for s := 0; s < n; s++ {
		for j1 := 0; j1 < joints; j1++ {
			for j2 := 0; j2 < joints; j2++ {
				for t := 0; t < frames; t++ {
					for k := 0; k < 3; k++ {
						table1[idx] = ((s*joints+j1)*frames+t)*3 + k
						table2[idx] = ((s*joints+j2)*frames+t)*3 + k
						idx++
					}
				}
			}
		}
	}
	inLen := n * joints * frames * 3
	return anydiff.Pool(in, func(in anydiff.Res) anydiff.Res {
		x1 := motionnet.Gather(in, c.MakeMapper(inLen, table1))
		x2 := motionnet.Gather(in, c.MakeMapper(inLen, table2))
		sq := anydiff.Square(anydiff.Sub(x1, x2))
		sums := anydiff.SumCols(&anydiff.Matrix{Data: sq, Rows: rows, Cols: 3})
		return anydiff.Pow(anydiff.AddScalar(sums,
			c.MakeNumeric(edmEpsilon)), c.MakeNumeric(0.5))
	})
}
