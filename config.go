package motiongan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/unixpickle/essentials"
)

// Model architecture variants.
const (
	ModelV1 = "v1" // residual convolutional
	ModelV2 = "v2" // gated residual
	ModelV3 = "v3" // dense residual
)

// A Config bundles every hyper-parameter of the model together
// with the training resume counters.
// It round-trips through JSON so an interrupted run can pick up
// where it left off.
type Config struct {
	// Data options.
	DataSet       string `json:"data_set"`
	PickNum       int    `json:"pick_num"`
	NormalizeData bool   `json:"normalize_data"`
	RemoveHip     bool   `json:"remove_hip"`

	// Model options.
	ModelVersion  string  `json:"model_version"`
	LambdaGrads   float64 `json:"lambda_grads"`
	ActionCond    bool    `json:"action_cond"`
	LatentCondDim int     `json:"latent_cond_dim"`

	CoherenceLoss    bool    `json:"coherence_loss"`
	DisplacementLoss bool    `json:"displacement_loss"`
	ShapeLoss        bool    `json:"shape_loss"`
	SmoothingLoss    bool    `json:"smoothing_loss"`
	UsePoseVAE       bool    `json:"use_pose_vae"`
	FrameScale       float64 `json:"frame_scale"`

	// Training options.
	BatchSize    int     `json:"batch_size"`
	LearningRate float64 `json:"learning_rate"`
	NumEpochs    int     `json:"num_epochs"`

	// Resume counters, updated by the trainer loop.
	Epoch int `json:"epoch"`
	Batch int `json:"batch"`

	// Derived from the data set descriptor.
	NumActions int `json:"num_actions"`
	Njoints    int `json:"njoints"`

	SavePath string `json:"-"`
}

// DefaultConfig builds a Config with the stock hyper-parameters
// for the named data set.
func DefaultConfig(dataSet string) (*Config, error) {
	ds, err := LookupDataSet(dataSet)
	if err != nil {
		return nil, essentials.AddCtx("default config", err)
	}
	return &Config{
		DataSet:       dataSet,
		PickNum:       20,
		NormalizeData: true,
		RemoveHip:     false,

		ModelVersion:  ModelV1,
		LambdaGrads:   10,
		ActionCond:    true,
		LatentCondDim: 0,

		CoherenceLoss: true,
		ShapeLoss:     true,
		SmoothingLoss: true,
		FrameScale:    10,

		BatchSize:    256,
		LearningRate: 1e-3,
		NumEpochs:    500,

		NumActions: ds.NumActions,
		Njoints:    ds.Njoints,
	}, nil
}

// SeqLen is the fixed number of frames per sequence.
func (c *Config) SeqLen() int {
	return c.PickNum
}

// Validate checks the invariants the networks rely on.
func (c *Config) Validate() error {
	if c.Njoints <= 1 {
		return fmt.Errorf("validate config: need at least 2 joints, got %d", c.Njoints)
	}
	if c.SeqLen() <= 0 {
		return fmt.Errorf("validate config: non-positive sequence length: %d", c.SeqLen())
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("validate config: non-positive batch size: %d", c.BatchSize)
	}
	switch c.ModelVersion {
	case ModelV1, ModelV2, ModelV3:
	default:
		return fmt.Errorf("validate config: unknown model version: %s", c.ModelVersion)
	}
	return nil
}

// LoadConfig reads a previously saved Config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, essentials.AddCtx("load config", err)
	}
	var res Config
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, essentials.AddCtx("load config", err)
	}
	res.SavePath = trimConfigSuffix(path)
	if err := res.Validate(); err != nil {
		return nil, essentials.AddCtx("load config", err)
	}
	return &res, nil
}

// Save writes the Config next to the weight checkpoints.
// The write is atomic so a crash cannot leave a truncated file.
func (c *Config) Save() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return essentials.AddCtx("save config", err)
	}
	return essentials.AddCtx("save config", atomicWrite(c.ConfigPath(), data))
}

// ConfigPath is where Save persists the Config.
func (c *Config) ConfigPath() string {
	return c.SavePath + "_config.json"
}

// DiscPath is where the discriminator weights are persisted.
func (c *Config) DiscPath() string {
	return c.SavePath + "_disc_weights"
}

// GenPath is where the generator weights are persisted.
func (c *Config) GenPath() string {
	return c.SavePath + "_gen_weights"
}

func trimConfigSuffix(path string) string {
	const suffix = "_config.json"
	if len(path) > len(suffix) && path[len(path)-len(suffix):] == suffix {
		return path[:len(path)-len(suffix)]
	}
	return path
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path))
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	return os.Rename(name, path)
}
