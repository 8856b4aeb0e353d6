// Package motiondata implements the in-memory batching
// collaborator: it ingests labeled pose sequences, prepares them
// for training, and produces fixed-shape batches with synthetic
// observation masks.
package motiondata

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"

	motiongan "github.com/etarakci-hvl/MotionGAN"
)

// A Sample is one labeled pose sequence of arbitrary length,
// flattened as (joints, frames, 3).
type Sample struct {
	Label  motiongan.Label
	Pose   []float64
	Joints int
	Frames int
}

// A Dataset holds samples and the preprocessing state shared by
// every batch drawn from it.
type Dataset struct {
	Conf    *motiongan.Config
	Samples []*Sample

	mean   [3]float64
	std    [3]float64
	normed bool
}

// NewDataset creates an empty dataset for a configuration.
func NewDataset(conf *motiongan.Config) *Dataset {
	return &Dataset{Conf: conf}
}

// Add ingests a sample: NaN coordinates are zeroed and, when the
// configuration asks for it, every joint is made relative to the
// root joint.
func (d *Dataset) Add(sample *Sample) error {
	if sample.Joints != d.Conf.Njoints {
		return fmt.Errorf("add sample: want %d joints, but got %d",
			d.Conf.Njoints, sample.Joints)
	}
	if len(sample.Pose) != sample.Joints*sample.Frames*3 {
		return fmt.Errorf("add sample: pose length should be %d, but got %d",
			sample.Joints*sample.Frames*3, len(sample.Pose))
	}
	for i, v := range sample.Pose {
		if math.IsNaN(v) {
			sample.Pose[i] = 0
		}
	}
	if d.Conf.RemoveHip {
		removeHip(sample)
	}
	d.Samples = append(d.Samples, sample)
	return nil
}

// removeHip subtracts the root joint's trajectory from every
// joint, so poses become root-relative.
func removeHip(sample *Sample) {
	for j := sample.Joints - 1; j >= 0; j-- {
		for t := 0; t < sample.Frames; t++ {
			for k := 0; k < 3; k++ {
				idx := (j*sample.Frames+t)*3 + k
				root := (0*sample.Frames+t)*3 + k
				sample.Pose[idx] -= sample.Pose[root]
			}
		}
	}
}

// Normalize computes global per-axis statistics over every
// sample once and rescales all coordinates to zero mean and unit
// deviation.
func (d *Dataset) Normalize() {
	if d.normed || !d.Conf.NormalizeData {
		return
	}
	var sums, sqSums [3]float64
	var count int
	for _, s := range d.Samples {
		for i, v := range s.Pose {
			sums[i%3] += v
			sqSums[i%3] += v * v
		}
		count += len(s.Pose) / 3
	}
	for k := 0; k < 3; k++ {
		d.mean[k] = sums[k] / float64(count)
		variance := sqSums[k]/float64(count) - d.mean[k]*d.mean[k]
		if variance < 1e-8 {
			variance = 1e-8
		}
		d.std[k] = math.Sqrt(variance)
	}
	for _, s := range d.Samples {
		for i := range s.Pose {
			s.Pose[i] = (s.Pose[i] - d.mean[i%3]) / d.std[i%3]
		}
	}
	d.normed = true
}

// Stats returns the normalization statistics computed by
// Normalize.
func (d *Dataset) Stats() (mean, std [3]float64) {
	return d.mean, d.std
}

// subSample reduces a sample to the configured frame count,
// picking one random frame from each of equally sized spans.
// Short samples repeat their last frame.
func (d *Dataset) subSample(rng *rand.Rand, s *Sample) ([]float64, int) {
	pick := d.Conf.SeqLen()
	out := make([]float64, s.Joints*pick*3)
	picks := make([]int, pick)
	if s.Frames >= pick {
		span := s.Frames / pick
		for i := range picks {
			picks[i] = i*span + rng.Intn(span)
		}
	} else {
		for i := range picks {
			if i < s.Frames {
				picks[i] = i
			} else {
				picks[i] = s.Frames - 1
			}
		}
	}
	for j := 0; j < s.Joints; j++ {
		for i, t := range picks {
			src := (j*s.Frames + t) * 3
			dst := (j*pick + i) * 3
			copy(out[dst:dst+3], s.Pose[src:src+3])
		}
	}
	valid := s.Frames
	if valid > pick {
		valid = pick
	}
	return out, valid
}

// A Batcher draws endless shuffled batches from a dataset.
type Batcher struct {
	Creator anyvec.Creator
	Mode    MaskMode

	data *Dataset
	rng  *rand.Rand
	perm []int
	pos  int
}

// Batcher creates a batch source with the given mask mode.
func (d *Dataset) Batcher(c anyvec.Creator, rng *rand.Rand, mode MaskMode) *Batcher {
	return &Batcher{Creator: c, Mode: mode, data: d, rng: rng}
}

// EpochSize is the number of batches per pass over the data.
func (d *Dataset) EpochSize() int {
	n := len(d.Samples) / d.Conf.BatchSize
	if len(d.Samples)%d.Conf.BatchSize != 0 {
		n++
	}
	return n
}

// Next produces the next batch, reshuffling at every epoch
// boundary.
// A short tail is padded with random samples, the way every
// batch keeps the configured size.
func (b *Batcher) Next() (*motiongan.Batch, error) {
	conf := b.data.Conf
	if len(b.data.Samples) == 0 {
		return nil, fmt.Errorf("next batch: empty dataset")
	}
	size := conf.BatchSize
	joints, frames := conf.Njoints, conf.SeqLen()

	labels := make([]motiongan.Label, size)
	poses := make([]float64, 0, size*joints*frames*3)
	masks := make([]float64, 0, size*joints*frames)
	for i := 0; i < size; i++ {
		sample := b.nextSample()
		pose, valid := b.data.subSample(b.rng, sample)
		labels[i] = sample.Label
		labels[i].Len = valid
		poses = append(poses, pose...)
		masks = append(masks, b.mask(joints, frames, valid)...)
	}

	batch, err := motiongan.NewBatch(b.Creator, labels, joints, frames, poses, masks)
	if err != nil {
		return nil, essentials.AddCtx("next batch", err)
	}
	return batch, nil
}

func (b *Batcher) nextSample() *Sample {
	if b.pos >= len(b.perm) {
		b.perm = b.rng.Perm(len(b.data.Samples))
		b.pos = 0
	}
	s := b.data.Samples[b.perm[b.pos]]
	b.pos++
	return s
}

// Synthetic fills a dataset with smooth random-walk motions,
// used by tests and the training demo.
func Synthetic(conf *motiongan.Config, rng *rand.Rand, numSamples int) (*Dataset, error) {
	d := NewDataset(conf)
	joints, frames := conf.Njoints, conf.SeqLen()
	for i := 0; i < numSamples; i++ {
		pose := make([]float64, joints*frames*3)
		for j := 0; j < joints; j++ {
			x := [3]float64{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
			for t := 0; t < frames; t++ {
				for k := 0; k < 3; k++ {
					x[k] += 0.05 * rng.NormFloat64()
					pose[(j*frames+t)*3+k] = x[k]
				}
			}
		}
		err := d.Add(&Sample{
			Label: motiongan.Label{
				Seq:     i,
				Subject: rng.Intn(10),
				Action:  rng.Intn(conf.NumActions),
				Len:     frames,
			},
			Pose:   pose,
			Joints: joints,
			Frames: frames,
		})
		if err != nil {
			return nil, err
		}
	}
	d.Normalize()
	return d, nil
}
