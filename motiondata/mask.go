package motiondata

// A MaskMode selects how observation masks are synthesized for a
// batch.
type MaskMode int

const (
	// MaskObserved marks every joint of every valid frame as
	// observed.
	MaskObserved MaskMode = iota

	// MaskFuture hides the second half of the valid frames, so
	// the generator must predict upcoming motion.
	MaskFuture

	// MaskOcclusion hides a random quarter of the joints for
	// the whole sequence.
	MaskOcclusion
)

// mask builds one sample's mask, flattened as (joints, frames).
// Frames past the valid length are always hidden.
func (b *Batcher) mask(joints, frames, valid int) []float64 {
	out := make([]float64, joints*frames)
	for j := 0; j < joints; j++ {
		for t := 0; t < valid; t++ {
			out[j*frames+t] = 1
		}
	}
	switch b.Mode {
	case MaskObserved:
	case MaskFuture:
		for j := 0; j < joints; j++ {
			for t := valid / 2; t < valid; t++ {
				out[j*frames+t] = 0
			}
		}
	case MaskOcclusion:
		hidden := joints / 4
		if hidden < 1 {
			hidden = 1
		}
		for _, j := range b.rng.Perm(joints)[:hidden] {
			for t := 0; t < frames; t++ {
				out[j*frames+t] = 0
			}
		}
	}
	return out
}
