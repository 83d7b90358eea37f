// Package experiment drives time-budgeted sampling runs: it turns a sequence
// of target cumulative runtimes into bounded sampler invocations and records
// one results-log row plus diagnostic artifacts per checkpoint.
package experiment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the immutable parameter set for one run, assembled before the
// checkpoint loop starts and read-only after.
type Config struct {
	ModelPath   string
	ResultsPath string
	OutDir      string
	Runtimes    []float64 // target cumulative runtimes in seconds, processed in order
	TreeSize    int
	TreeWidth   int
	FactorSize  int
	TreeHeight  int // 0 = unconstrained
	Subthreads  int
	Priorities  bool
	Workers     int
	Seed        int64 // 0 = seed from the clock
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ResultsPath: "experiment_results.tsv",
		OutDir:      ".",
		Runtimes:    []float64{10},
		TreeSize:    1000,
		TreeWidth:   3,
		FactorSize:  0,
		TreeHeight:  0,
		Subthreads:  1,
		Workers:     runtime.NumCPU(),
	}
}

// Validate checks the config before any core logic runs.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return errors.New("model path is required")
	}
	if len(c.Runtimes) == 0 {
		return errors.New("at least one target runtime is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.TreeSize < 1 {
		return fmt.Errorf("treesize must be positive, got %d", c.TreeSize)
	}
	if c.Subthreads < 1 {
		return fmt.Errorf("subthreads must be positive, got %d", c.Subthreads)
	}
	return nil
}

// FileConfig is the optional run-config yaml document. Fields are pointers
// so only keys present in the file override anything.
type FileConfig struct {
	Model      *string   `yaml:"model"`
	Results    *string   `yaml:"results"`
	OutDir     *string   `yaml:"outdir"`
	Runtimes   []float64 `yaml:"runtimes"`
	TreeSize   *int      `yaml:"treesize"`
	TreeWidth  *int      `yaml:"treewidth"`
	FactorSize *int      `yaml:"factorsize"`
	TreeHeight *int      `yaml:"treeheight"`
	Subthreads *int      `yaml:"subthreads"`
	Priorities *bool     `yaml:"priorities"`
	Workers    *int      `yaml:"workers"`
	Seed       *int64    `yaml:"seed"`
}

// LoadFileConfig loads and parses a run-config yaml file.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("reading run config: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parsing run config: %w", err)
	}
	return fc, nil
}

// Apply overlays the keys present in the file onto cfg.
func (fc FileConfig) Apply(cfg *Config) {
	if fc.Model != nil {
		cfg.ModelPath = *fc.Model
	}
	if fc.Results != nil {
		cfg.ResultsPath = *fc.Results
	}
	if fc.OutDir != nil {
		cfg.OutDir = *fc.OutDir
	}
	if fc.Runtimes != nil {
		cfg.Runtimes = fc.Runtimes
	}
	if fc.TreeSize != nil {
		cfg.TreeSize = *fc.TreeSize
	}
	if fc.TreeWidth != nil {
		cfg.TreeWidth = *fc.TreeWidth
	}
	if fc.FactorSize != nil {
		cfg.FactorSize = *fc.FactorSize
	}
	if fc.TreeHeight != nil {
		cfg.TreeHeight = *fc.TreeHeight
	}
	if fc.Subthreads != nil {
		cfg.Subthreads = *fc.Subthreads
	}
	if fc.Priorities != nil {
		cfg.Priorities = *fc.Priorities
	}
	if fc.Workers != nil {
		cfg.Workers = *fc.Workers
	}
	if fc.Seed != nil {
		cfg.Seed = *fc.Seed
	}
}

// profile is the per-model toml sidecar carrying recommended sampler
// settings for a model file.
type profile struct {
	TreeSize   int  `toml:"treesize"`
	TreeWidth  int  `toml:"treewidth"`
	FactorSize int  `toml:"factorsize"`
	TreeHeight int  `toml:"treeheight"`
	Subthreads int  `toml:"subthreads"`
	Priorities bool `toml:"priorities"`
}

// ApplyProfile overlays the sampler settings from the model's toml sidecar
// (<modelpath>.toml) onto cfg, if the sidecar exists. Only keys actually
// present in the file apply.
func ApplyProfile(cfg *Config, modelPath string) error {
	if modelPath == "" {
		return nil
	}
	path := modelPath + ".toml"
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading model profile: %w", err)
	}

	var p profile
	md, err := toml.Decode(string(data), &p)
	if err != nil {
		return fmt.Errorf("parsing model profile %s: %w", path, err)
	}

	if md.IsDefined("treesize") {
		cfg.TreeSize = p.TreeSize
	}
	if md.IsDefined("treewidth") {
		cfg.TreeWidth = p.TreeWidth
	}
	if md.IsDefined("factorsize") {
		cfg.FactorSize = p.FactorSize
	}
	if md.IsDefined("treeheight") {
		cfg.TreeHeight = p.TreeHeight
	}
	if md.IsDefined("subthreads") {
		cfg.Subthreads = p.Subthreads
	}
	if md.IsDefined("priorities") {
		cfg.Priorities = p.Priorities
	}
	return nil
}

// ParseRuntimes parses a comma-separated list of target cumulative runtimes.
func ParseRuntimes(s string) ([]float64, error) {
	var out []float64
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			return nil, fmt.Errorf("empty entry in runtime list %q", s)
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("bad runtime %q: %w", field, err)
		}
		out = append(out, v)
	}
	return out, nil
}
