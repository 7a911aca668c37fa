// Package config provides configuration loading and management for segmesh.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"segmesh/pkg/decimation"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Decimation parameters, mirrored into decimation.Params
	Decimation struct {
		// MinimumEdgeLength is the collapse threshold; shorter edges are removed
		MinimumEdgeLength float64 `yaml:"minimumEdgeLength"`

		// MaximumNormalAngleDeviation is the allowed normal rotation in degrees
		MaximumNormalAngleDeviation float64 `yaml:"maximumNormalAngleDeviation"`

		// IntersectionCheckLevel selects the self-intersection neighbourhood (0-4)
		IntersectionCheckLevel int `yaml:"intersectionCheckLevel"`

		// FlipEdges enables the Delaunay flip pass
		FlipEdges bool `yaml:"flipEdges"`

		// UseMaximumEdgeLength enables the subdivision pass
		UseMaximumEdgeLength bool `yaml:"useMaximumEdgeLength"`

		// MaximumEdgeLength is the subdivision threshold
		MaximumEdgeLength float64 `yaml:"maximumEdgeLength"`

		// MeshIsManifold skips boundary classification
		MeshIsManifold bool `yaml:"meshIsManifold"`

		// PollInterval is the number of operations between cancellation checks
		PollInterval int `yaml:"pollInterval"`

		// CheckInvariants validates the store after every pass
		CheckInvariants bool `yaml:"checkInvariants"`
	} `yaml:"decimation"`

	// Processing parameters
	Processing struct {
		// NumWorkers specifies how many inputs are decimated concurrently
		NumWorkers int `yaml:"numWorkers"`

		// WeldTolerance merges STL corners closer than this distance
		WeldTolerance float64 `yaml:"weldTolerance"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// LabelName is the per-triangle array holding domain labels
		LabelName string `yaml:"labelName"`

		// Snapshot saves x, y and z views of every result
		Snapshot bool `yaml:"snapshot"`

		// SnapshotSize is the longer side of snapshot images in pixels
		SnapshotSize int `yaml:"snapshotSize"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	p := decimation.DefaultParams()
	cfg.Decimation.MinimumEdgeLength = p.MinimumEdgeLength
	cfg.Decimation.MaximumNormalAngleDeviation = p.MaximumNormalAngleDeviation
	cfg.Decimation.IntersectionCheckLevel = p.IntersectionCheckLevel
	cfg.Decimation.FlipEdges = p.FlipEdges
	cfg.Decimation.UseMaximumEdgeLength = p.UseMaximumEdgeLength
	cfg.Decimation.MaximumEdgeLength = p.MaximumEdgeLength
	cfg.Decimation.MeshIsManifold = p.MeshIsManifold
	cfg.Decimation.PollInterval = p.PollInterval
	cfg.Decimation.CheckInvariants = p.CheckInvariants

	cfg.Processing.NumWorkers = runtime.NumCPU()
	cfg.Processing.WeldTolerance = 0

	cfg.Output.LabelName = "domain"
	cfg.Output.Snapshot = false
	cfg.Output.SnapshotSize = 512
	cfg.Output.Verbose = true

	return cfg
}

// DecimationParams returns engine parameters built from the decimation and
// output sections
func (c *Config) DecimationParams() *decimation.Params {
	p := decimation.DefaultParams()
	p.MinimumEdgeLength = c.Decimation.MinimumEdgeLength
	p.MaximumNormalAngleDeviation = c.Decimation.MaximumNormalAngleDeviation
	p.IntersectionCheckLevel = c.Decimation.IntersectionCheckLevel
	p.FlipEdges = c.Decimation.FlipEdges
	p.UseMaximumEdgeLength = c.Decimation.UseMaximumEdgeLength
	p.MaximumEdgeLength = c.Decimation.MaximumEdgeLength
	p.MeshIsManifold = c.Decimation.MeshIsManifold
	p.PollInterval = c.Decimation.PollInterval
	p.CheckInvariants = c.Decimation.CheckInvariants
	p.DomainLabelName = c.Output.LabelName
	return p
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "error parsing config file")
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "error creating config directory")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "error marshaling config")
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return errors.Wrap(err, "error writing config file")
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
