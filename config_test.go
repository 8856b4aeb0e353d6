package motiongan

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	conf, err := DefaultConfig("NTURGBD")
	if err != nil {
		t.Fatal(err)
	}
	if conf.Njoints != 25 || conf.NumActions != 60 {
		t.Errorf("bad descriptor: %d joints, %d actions", conf.Njoints,
			conf.NumActions)
	}
	if err := conf.Validate(); err != nil {
		t.Error(err)
	}
	if _, err := DefaultConfig("bogus"); err == nil {
		t.Error("expected error for unknown data set")
	}
}

func TestConfigValidate(t *testing.T) {
	conf, _ := DefaultConfig("MSRC12")
	conf.ModelVersion = "v9"
	if err := conf.Validate(); err == nil {
		t.Error("expected error for unknown model version")
	}
	conf.ModelVersion = ModelV2
	conf.BatchSize = 0
	if err := conf.Validate(); err == nil {
		t.Error("expected error for zero batch size")
	}
}

func TestConfigRoundTrip(t *testing.T) {
	conf, _ := DefaultConfig("Human36")
	conf.SavePath = filepath.Join(t.TempDir(), "run")
	conf.Epoch = 7
	conf.Batch = 3
	conf.LatentCondDim = 16
	if err := conf.Save(); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadConfig(conf.ConfigPath())
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Epoch != 7 || loaded.Batch != 3 || loaded.LatentCondDim != 16 {
		t.Errorf("bad resume state: %+v", loaded)
	}
	if loaded.SavePath != conf.SavePath {
		t.Errorf("save path should be %s, but got %s", conf.SavePath,
			loaded.SavePath)
	}
}
