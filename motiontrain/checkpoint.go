package motiontrain

import (
	"os"

	"github.com/unixpickle/essentials"

	"github.com/etarakci-hvl/MotionGAN/motionnet"
)

// SaveCheckpoint persists both weight sets and the
// configuration.
// Each file is written to a temporary path and renamed, so an
// interrupt never leaves a truncated checkpoint behind.
func (t *Trainer) SaveCheckpoint() (err error) {
	defer essentials.AddCtxTo("save checkpoint", &err)
	discData, err := motionnet.SerializeParams(t.Disc.Parameters())
	if err != nil {
		return err
	}
	if err := writeAtomic(t.Conf.DiscPath(), discData); err != nil {
		return err
	}
	genData, err := motionnet.SerializeParams(t.Gen.Parameters())
	if err != nil {
		return err
	}
	if err := writeAtomic(t.Conf.GenPath(), genData); err != nil {
		return err
	}
	return t.Conf.Save()
}

// RestoreCheckpoint loads both weight sets if checkpoint files
// exist.
// It returns whether anything was restored.
func (t *Trainer) RestoreCheckpoint() (found bool, err error) {
	defer essentials.AddCtxTo("restore checkpoint", &err)
	discData, err := os.ReadFile(t.Conf.DiscPath())
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	genData, err := os.ReadFile(t.Conf.GenPath())
	if err != nil {
		return false, err
	}
	if err := motionnet.RestoreParams(discData, t.Disc.Parameters()); err != nil {
		return false, err
	}
	if err := motionnet.RestoreParams(genData, t.Gen.Parameters()); err != nil {
		return false, err
	}
	return true, nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
