package motiontrain

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"

	motiongan "github.com/etarakci-hvl/MotionGAN"
	"github.com/etarakci-hvl/MotionGAN/motionloss"
	"github.com/etarakci-hvl/MotionGAN/motionnet"
)

// DefaultDiscSteps is the number of critic updates per
// generator update.
const DefaultDiscSteps = 5

// A Trainer alternates discriminator and generator updates,
// each driven by its own adaptive-moment optimizer.
type Trainer struct {
	Creator  anyvec.Creator
	Conf     *motiongan.Config
	Disc     *motionnet.Discriminator
	Gen      *motionnet.Generator
	Composer *motionloss.Composer

	// DiscSteps is the critic update count per outer step.
	DiscSteps int

	discAdam *Adam
	genAdam  *Adam
	rate     float64
}

// NewTrainer wires a trainer for a network pair.
// Both optimizers follow the WGAN-GP schedule: beta1 zero,
// beta2 0.9.
func NewTrainer(c anyvec.Creator, conf *motiongan.Config,
	disc *motionnet.Discriminator, gen *motionnet.Generator) *Trainer {
	return &Trainer{
		Creator:   c,
		Conf:      conf,
		Disc:      disc,
		Gen:       gen,
		Composer:  motionloss.NewComposer(c, conf, disc, gen),
		DiscSteps: DefaultDiscSteps,
		discAdam:  &Adam{Beta1: 0, Beta2: 0.9},
		genAdam:   &Adam{Beta1: 0, Beta2: 0.9},
		rate:      conf.LearningRate,
	}
}

// SetLearningRate swaps both optimizers' rate.
// Accumulated moment state is preserved.
func (t *Trainer) SetLearningRate(rate float64) {
	t.rate = rate
}

// LearningRate returns the current rate.
func (t *Trainer) LearningRate() float64 {
	return t.rate
}

// TrainDisc performs one discriminator update on a batch and
// reports the losses under a train/ prefix.
// The generator produces the fake batch but receives no
// gradient.
func (t *Trainer) TrainDisc(batch *motiongan.Batch) *Report {
	latent := t.sampleLatent(batch.Num)
	fake := t.detachedFake(batch, latent)
	wgan, disc := t.Composer.DiscLosses(batch, fake, latent)
	t.step(disc.Total(), t.Disc.Parameters(), t.discAdam)
	return discReport("train/", wgan, disc)
}

// EvalDisc computes the discriminator losses without mutating
// any parameter, reporting under a val/ prefix.
func (t *Trainer) EvalDisc(batch *motiongan.Batch) *Report {
	latent := t.sampleLatent(batch.Num)
	fake := t.detachedFake(batch, latent)
	wgan, disc := t.Composer.DiscLosses(batch, fake, latent)
	return discReport("val/", wgan, disc)
}

// TrainGen performs one generator update on a batch and reports
// the losses under a train/ prefix.
// The discriminator scores the fake batch but receives no
// update.
func (t *Trainer) TrainGen(batch *motiongan.Batch) *Report {
	latent := t.sampleLatent(batch.Num)
	fake := t.Gen.Apply(batch.Poses, batch.Masks, latent, batch.Num)
	losses := t.Composer.GenLosses(batch, fake, latent)
	t.step(losses.Total(), t.Gen.Parameters(), t.genAdam)
	report := NewReport()
	report.AddDict("train/", losses)
	return report
}

// EvalGen computes the generator losses without mutating any
// parameter, reporting under a val/ prefix, and returns the
// generated sequence batch.
func (t *Trainer) EvalGen(batch *motiongan.Batch) (*Report, anyvec.Vector) {
	latent := t.sampleLatent(batch.Num)
	fake := t.Gen.Apply(batch.Poses, batch.Masks, latent, batch.Num)
	losses := t.Composer.GenLosses(batch, fake, latent)
	report := NewReport()
	report.AddDict("val/", losses)
	return report, fake.Output()
}

// Step runs one outer step: DiscSteps critic updates on fresh
// batches, then one generator update.
// The discriminator telemetry is averaged over its updates.
func (t *Trainer) Step(nextBatch func() *motiongan.Batch) *Report {
	report := NewReport()
	for i := 0; i < t.DiscSteps; i++ {
		report.Average(t.TrainDisc(nextBatch()), 1/float64(t.DiscSteps))
	}
	report.Average(t.TrainGen(nextBatch()), 1)
	return report
}

// detachedFake generates a fake batch cut off from the
// generator's parameters.
func (t *Trainer) detachedFake(batch *motiongan.Batch, latent anydiff.Res) anydiff.Res {
	out := t.Gen.Apply(batch.Poses, batch.Masks, latent, batch.Num)
	return anydiff.NewConst(out.Output())
}

// sampleLatent draws the latent condition input, or nil when
// latent conditioning is off.
func (t *Trainer) sampleLatent(n int) anydiff.Res {
	if t.Conf.LatentCondDim == 0 {
		return nil
	}
	v := t.Creator.MakeVector(n * t.Conf.LatentCondDim)
	anyvec.Rand(v, anyvec.Uniform, nil)
	return anydiff.NewConst(v)
}

// step backpropagates a scalar into the given parameters and
// applies one optimizer update.
func (t *Trainer) step(total anydiff.Res, params []*anydiff.Var, adam *Adam) {
	grad := anydiff.NewGrad(params...)
	c := t.Creator
	upstream := c.MakeVectorData(c.MakeNumericList([]float64{1}))
	total.Propagate(upstream, grad)

	grad = adam.Transform(grad)
	grad.Scale(c.MakeNumeric(-t.rate))
	grad.AddToVars()
}

func discReport(prefix string, wgan, disc *motionloss.Dict) *Report {
	report := NewReport()
	report.AddDict(prefix, wgan)
	report.AddDict(prefix, disc)
	return report
}
