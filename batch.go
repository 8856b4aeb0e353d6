package motiongan

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// A Label identifies one pose sequence in a batch.
type Label struct {
	Seq     int
	Subject int
	Action  int
	Len     int
}

// A Batch is the unit of data consumed by the training core: a
// packed pose tensor of shape (N,J,T,3), a binary mask tensor of
// shape (N,J,T,1), and one Label per sample.
//
// Batches are read-only once built; the core never mutates them.
type Batch struct {
	Labels []Label
	Poses  *anydiff.Const
	Masks  *anydiff.Const

	Num    int
	Joints int
	Frames int
}

// NewBatch packs raw pose and mask data into a Batch.
// The poses slice must hold num*joints*frames*3 values and the
// masks slice num*joints*frames values.
func NewBatch(c anyvec.Creator, labels []Label, joints, frames int,
	poses, masks []float64) (*Batch, error) {
	num := len(labels)
	if num == 0 {
		return nil, fmt.Errorf("new batch: empty batch")
	}
	if len(poses) != num*joints*frames*3 {
		return nil, fmt.Errorf("new batch: pose data length should be %d, but got %d",
			num*joints*frames*3, len(poses))
	}
	if len(masks) != num*joints*frames {
		return nil, fmt.Errorf("new batch: mask data length should be %d, but got %d",
			num*joints*frames, len(masks))
	}
	for i, m := range masks {
		if m != 0 && m != 1 {
			return nil, fmt.Errorf("new batch: mask entry %d is not binary: %v", i, m)
		}
	}
	return &Batch{
		Labels: append([]Label{}, labels...),
		Poses:  anydiff.NewConst(c.MakeVectorData(c.MakeNumericList(poses))),
		Masks:  anydiff.NewConst(c.MakeVectorData(c.MakeNumericList(masks))),
		Num:    num,
		Joints: joints,
		Frames: frames,
	}, nil
}

// Actions returns the per-sample action class ids.
func (b *Batch) Actions() []int {
	res := make([]int, len(b.Labels))
	for i, l := range b.Labels {
		res[i] = l.Action
	}
	return res
}

// FrameValidity computes the binary frame-validity indicator: a
// frame is valid iff the summed real coordinate signal at that
// frame is non-zero.
// The result is indexed [n*frames+t].
func (b *Batch) FrameValidity() []float64 {
	data := vectorData(b.Poses.Output())
	res := make([]float64, b.Num*b.Frames)
	for n := 0; n < b.Num; n++ {
		for t := 0; t < b.Frames; t++ {
			var sum float64
			for j := 0; j < b.Joints; j++ {
				base := ((n*b.Joints+j)*b.Frames + t) * 3
				sum += data[base] + data[base+1] + data[base+2]
			}
			if sum != 0 {
				res[n*b.Frames+t] = 1
			}
		}
	}
	return res
}

// vectorData reads a vector back as float64 regardless of the
// creator's numeric type.
func vectorData(v anyvec.Vector) []float64 {
	switch data := v.Data().(type) {
	case []float32:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = float64(x)
		}
		return res
	case []float64:
		return append([]float64{}, data...)
	default:
		panic(fmt.Sprintf("unsupported numeric list: %T", data))
	}
}
