// Command motiongan-train trains the adversarial motion model.
//
// Interrupted runs resume from the saved configuration's epoch
// and batch counters. Press ctrl+c once to checkpoint and stop.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/rip"

	motiongan "github.com/etarakci-hvl/MotionGAN"
	"github.com/etarakci-hvl/MotionGAN/motiondata"
	"github.com/etarakci-hvl/MotionGAN/motionnet"
	"github.com/etarakci-hvl/MotionGAN/motiontrain"
	"github.com/etarakci-hvl/MotionGAN/motionviz"
)

func main() {
	var savePath string
	var dataPath string
	var dataSet string
	var modelVersion string
	var maskMode string
	var batchSize int
	var numEpochs int
	var pickNum int
	var latentDim int
	var numSamples int
	var seed int64
	var learningRate float64
	var actionCond bool
	var usePoseVAE bool

	flag.StringVar(&savePath, "save", "motiongan", "checkpoint path prefix")
	flag.StringVar(&dataPath, "data", "", "JSON sample file (synthetic data if empty)")
	flag.StringVar(&dataSet, "dataset", "NTURGBD", "data set name")
	flag.StringVar(&modelVersion, "model", motiongan.ModelV1, "architecture version")
	flag.StringVar(&maskMode, "mask", "observed", "mask mode (observed, future, occlusion)")
	flag.IntVar(&batchSize, "batch", 0, "batch size override")
	flag.IntVar(&numEpochs, "epochs", 0, "epoch count override")
	flag.IntVar(&pickNum, "frames", 0, "frames per sequence override")
	flag.IntVar(&latentDim, "latent", 0, "latent condition dimension")
	flag.IntVar(&numSamples, "samples", 2048, "synthetic sample count")
	flag.Int64Var(&seed, "seed", 1, "random seed")
	flag.Float64Var(&learningRate, "lr", 0, "initial learning rate override")
	flag.BoolVar(&actionCond, "actions", true, "condition on action labels")
	flag.BoolVar(&usePoseVAE, "vae", false, "use the gated pose sub-encoder")
	flag.Parse()

	conf, err := loadOrCreateConfig(savePath, dataSet)
	if err != nil {
		essentials.Die(err)
	}
	if conf.Epoch == 0 && conf.Batch == 0 {
		conf.ModelVersion = modelVersion
		conf.ActionCond = actionCond
		conf.LatentCondDim = latentDim
		conf.UsePoseVAE = usePoseVAE
		if batchSize > 0 {
			conf.BatchSize = batchSize
		}
		if numEpochs > 0 {
			conf.NumEpochs = numEpochs
		}
		if pickNum > 0 {
			conf.PickNum = pickNum
		}
		if learningRate > 0 {
			conf.LearningRate = learningRate
		}
	}
	if err := conf.Validate(); err != nil {
		essentials.Die(err)
	}

	c := anyvec32.CurrentCreator()
	rng := rand.New(rand.NewSource(seed))

	log.Println("Loading data...")
	data, err := loadData(conf, rng, dataPath, numSamples)
	if err != nil {
		essentials.Die(err)
	}
	mode, err := parseMaskMode(maskMode)
	if err != nil {
		essentials.Die(err)
	}
	batcher := data.Batcher(c, rng, mode)

	log.Println("Building model...")
	disc, err := motionnet.NewDiscriminator(c, conf)
	if err != nil {
		essentials.Die(err)
	}
	gen, err := motionnet.NewGenerator(c, conf)
	if err != nil {
		essentials.Die(err)
	}

	trainer := motiontrain.NewTrainer(c, conf, disc, gen)
	if found, err := trainer.RestoreCheckpoint(); err != nil {
		essentials.Die(err)
	} else if found {
		log.Printf("Resuming from epoch %d, batch %d", conf.Epoch, conf.Batch)
	}

	decay := &motiontrain.LinearDecay{
		Initial:   conf.LearningRate,
		NumEpochs: float64(conf.NumEpochs),
	}
	nextBatch := func() *motiongan.Batch {
		batch, err := batcher.Next()
		if err != nil {
			essentials.Die(err)
		}
		return batch
	}

	log.Println("Press ctrl+c once to stop...")
	stop := rip.NewRIP().Chan()

	trainBatches := data.EpochSize()
	vizEvery := essentials.MaxInt(1, conf.NumEpochs/10)

	for epoch := conf.Epoch; epoch < conf.NumEpochs; epoch++ {
		trainer.SetLearningRate(decay.Rate(float64(epoch)))

		epochReport := motiontrain.NewReport()
		for batch := conf.Batch; batch < trainBatches; batch++ {
			epochReport.Average(trainer.Step(nextBatch), 1/float64(trainBatches))
			conf.Batch = batch + 1
			if interrupted(stop) {
				checkpoint(trainer)
				return
			}
		}
		conf.Batch = 0
		conf.Epoch = epoch + 1
		log.Printf("epoch %d: lr=%.2e %v", epoch, trainer.LearningRate(), epochReport)

		valBatch := nextBatch()
		valReport := trainer.EvalDisc(valBatch)
		genReport, fake := trainer.EvalGen(valBatch)
		valReport.Average(genReport, 1)
		log.Printf("epoch %d: %v", epoch, valReport)

		if (epoch+1)%vizEvery == 0 {
			if err := writeComparison(conf, valBatch, fake, epoch); err != nil {
				log.Println("comparison render failed:", err)
			}
		}
		checkpoint(trainer)
		if interrupted(stop) {
			return
		}
	}
}

func loadOrCreateConfig(savePath, dataSet string) (*motiongan.Config, error) {
	path := savePath + "_config.json"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		conf, err := motiongan.DefaultConfig(dataSet)
		if err != nil {
			return nil, err
		}
		conf.SavePath = savePath
		return conf, nil
	}
	return motiongan.LoadConfig(path)
}

func parseMaskMode(name string) (motiondata.MaskMode, error) {
	switch name {
	case "observed":
		return motiondata.MaskObserved, nil
	case "future":
		return motiondata.MaskFuture, nil
	case "occlusion":
		return motiondata.MaskOcclusion, nil
	}
	return 0, fmt.Errorf("unknown mask mode: %s", name)
}

func loadData(conf *motiongan.Config, rng *rand.Rand, path string,
	numSamples int) (*motiondata.Dataset, error) {
	if path == "" {
		return motiondata.Synthetic(conf, rng, numSamples)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, essentials.AddCtx("load data", err)
	}
	var samples []*motiondata.Sample
	if err := json.Unmarshal(raw, &samples); err != nil {
		return nil, essentials.AddCtx("load data", err)
	}
	data := motiondata.NewDataset(conf)
	for _, s := range samples {
		if err := data.Add(s); err != nil {
			return nil, essentials.AddCtx("load data", err)
		}
	}
	data.Normalize()
	return data, nil
}

func writeComparison(conf *motiongan.Config, batch *motiongan.Batch,
	fake anyvec.Vector, epoch int) error {
	comp, err := motionviz.NewComparison(conf, batch, fake)
	if err != nil {
		return err
	}
	return comp.WriteFile(fmt.Sprintf("%s_compare_%04d.json", conf.SavePath, epoch))
}

func interrupted(stop <-chan struct{}) bool {
	select {
	case <-stop:
		log.Println("Caught interrupt, saving checkpoint...")
		return true
	default:
		return false
	}
}

func checkpoint(trainer *motiontrain.Trainer) {
	if err := trainer.SaveCheckpoint(); err != nil {
		log.Println("checkpoint failed:", err)
	}
}
