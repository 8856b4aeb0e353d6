package motiontrain

import (
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"

	motiongan "github.com/etarakci-hvl/MotionGAN"
	"github.com/etarakci-hvl/MotionGAN/motiondata"
	"github.com/etarakci-hvl/MotionGAN/motionnet"
)

func testTrainConf() *motiongan.Config {
	return &motiongan.Config{
		DataSet:          "NTURGBD",
		PickNum:          8,
		NormalizeData:    true,
		ModelVersion:     motiongan.ModelV1,
		LambdaGrads:      10,
		ActionCond:       true,
		LatentCondDim:    4,
		CoherenceLoss:    true,
		DisplacementLoss: true,
		ShapeLoss:        true,
		SmoothingLoss:    true,
		FrameScale:       10,
		BatchSize:        2,
		LearningRate:     1e-3,
		NumEpochs:        10,
		NumActions:       4,
		Njoints:          3,
	}
}

func testTrainer(t *testing.T, conf *motiongan.Config) (*Trainer, func() *motiongan.Batch) {
	c := anyvec32.CurrentCreator()
	disc, err := motionnet.NewDiscriminator(c, conf)
	if err != nil {
		t.Fatal(err)
	}
	gen, err := motionnet.NewGenerator(c, conf)
	if err != nil {
		t.Fatal(err)
	}
	trainer := NewTrainer(c, conf, disc, gen)

	rng := rand.New(rand.NewSource(1))
	data, err := motiondata.Synthetic(conf, rng, 8)
	if err != nil {
		t.Fatal(err)
	}
	batcher := data.Batcher(c, rng, motiondata.MaskObserved)
	return trainer, func() *motiongan.Batch {
		batch, err := batcher.Next()
		if err != nil {
			t.Fatal(err)
		}
		return batch
	}
}

func TestTrainerStep(t *testing.T) {
	conf := testTrainConf()
	trainer, nextBatch := testTrainer(t, conf)
	trainer.DiscSteps = 2

	before := trainer.Disc.Parameters()[0].Vector.Copy()
	report := trainer.Step(nextBatch)
	for _, name := range []string{
		"train/loss_real", "train/loss_fake",
		"train/disc_loss_wgan", "train/disc_loss_reg",
		"train/disc_loss_action", "train/disc_loss_latent",
		"train/gen_loss_wgan", "train/gen_loss_rec",
		"train/gen_loss_rec_edm", "train/gen_loss_coh",
		"train/gen_loss_disp", "train/gen_loss_shape",
		"train/gen_loss_smooth",
	} {
		v := report.Get(name)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("%s is not finite: %f", name, v)
		}
	}

	before.Sub(trainer.Disc.Parameters()[0].Vector)
	if anyvec.AbsMax(before).(float32) == 0 {
		t.Error("discriminator parameters did not move")
	}
}

func TestTrainerEval(t *testing.T) {
	conf := testTrainConf()
	trainer, nextBatch := testTrainer(t, conf)
	batch := nextBatch()

	before := trainer.Disc.Parameters()[0].Vector.Copy()
	trainer.EvalDisc(batch)
	report, fake := trainer.EvalGen(batch)

	before.Sub(trainer.Disc.Parameters()[0].Vector)
	if anyvec.AbsMax(before).(float32) != 0 {
		t.Error("evaluation moved the discriminator parameters")
	}
	if fake.Len() != batch.Num*batch.Joints*batch.Frames*3 {
		t.Errorf("generated length should be %d, but got %d",
			batch.Num*batch.Joints*batch.Frames*3, fake.Len())
	}
	v := report.Get("val/gen_loss_rec")
	if math.IsNaN(v) || math.IsInf(v, 0) {
		t.Errorf("val/gen_loss_rec is not finite: %f", v)
	}
}

func TestTrainerLearningRateSwap(t *testing.T) {
	conf := testTrainConf()
	trainer, nextBatch := testTrainer(t, conf)
	trainer.DiscSteps = 1
	trainer.Step(nextBatch)

	moment := trainer.discAdam.firstMoment
	trainer.SetLearningRate(5e-4)
	if trainer.LearningRate() != 5e-4 {
		t.Errorf("rate should be 5e-4, but got %e", trainer.LearningRate())
	}
	if len(trainer.discAdam.firstMoment) != len(moment) {
		t.Error("rate change reset the optimizer moments")
	}
	for v, vec := range moment {
		if trainer.discAdam.firstMoment[v] != vec {
			t.Error("rate change replaced a moment vector")
			break
		}
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	conf := testTrainConf()
	conf.SavePath = filepath.Join(t.TempDir(), "run")
	trainer, nextBatch := testTrainer(t, conf)
	trainer.DiscSteps = 1
	trainer.Step(nextBatch)
	conf.Epoch = 3

	if err := trainer.SaveCheckpoint(); err != nil {
		t.Fatal(err)
	}

	loadedConf, err := motiongan.LoadConfig(conf.ConfigPath())
	if err != nil {
		t.Fatal(err)
	}
	if loadedConf.Epoch != 3 {
		t.Errorf("epoch should be 3, but got %d", loadedConf.Epoch)
	}

	restored, _ := testTrainer(t, loadedConf)
	found, err := restored.RestoreCheckpoint()
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("checkpoint not found")
	}
	for i, p := range trainer.Disc.Parameters() {
		diff := p.Vector.Copy()
		diff.Sub(restored.Disc.Parameters()[i].Vector)
		if anyvec.AbsMax(diff).(float32) != 0 {
			t.Errorf("discriminator parameter %d did not round trip", i)
		}
	}
	for i, p := range trainer.Gen.Parameters() {
		diff := p.Vector.Copy()
		diff.Sub(restored.Gen.Parameters()[i].Vector)
		if anyvec.AbsMax(diff).(float32) != 0 {
			t.Errorf("generator parameter %d did not round trip", i)
		}
	}
}

func TestRestoreCheckpointMissing(t *testing.T) {
	conf := testTrainConf()
	conf.SavePath = filepath.Join(t.TempDir(), "missing")
	trainer, _ := testTrainer(t, conf)
	found, err := trainer.RestoreCheckpoint()
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("found a checkpoint that was never saved")
	}
}
