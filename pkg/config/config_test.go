package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingConfig(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Expected defaults for a missing file, got %v", err)
	}
	if cfg.Decimation.MinimumEdgeLength != 1.0 {
		t.Errorf("Expected default minimum edge length 1.0, got %f", cfg.Decimation.MinimumEdgeLength)
	}
	if cfg.Decimation.IntersectionCheckLevel != 1 {
		t.Errorf("Expected default intersection level 1, got %d", cfg.Decimation.IntersectionCheckLevel)
	}
	if cfg.Processing.NumWorkers < 1 {
		t.Errorf("Expected at least one worker, got %d", cfg.Processing.NumWorkers)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "segmesh.yaml")

	cfg := DefaultConfig()
	cfg.Decimation.MinimumEdgeLength = 2.5
	cfg.Decimation.FlipEdges = true
	cfg.Output.LabelName = "material"
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if loaded.Decimation.MinimumEdgeLength != 2.5 || !loaded.Decimation.FlipEdges {
		t.Errorf("Decimation section not restored: %+v", loaded.Decimation)
	}
	if loaded.Output.LabelName != "material" {
		t.Errorf("Expected label name material, got %s", loaded.Output.LabelName)
	}
}

func TestPartialConfigKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := []byte("decimation:\n  intersectionCheckLevel: 4\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Decimation.IntersectionCheckLevel != 4 {
		t.Errorf("Expected level 4, got %d", cfg.Decimation.IntersectionCheckLevel)
	}
	if cfg.Decimation.MaximumNormalAngleDeviation != 30 {
		t.Errorf("Expected default deviation 30, got %f", cfg.Decimation.MaximumNormalAngleDeviation)
	}
}

func TestInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("decimation: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestDecimationParams(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Decimation.UseMaximumEdgeLength = true
	cfg.Decimation.MaximumEdgeLength = 4
	cfg.Output.LabelName = "tissue"

	p := cfg.DecimationParams()
	if !p.UseMaximumEdgeLength || p.MaximumEdgeLength != 4 {
		t.Errorf("Subdivision settings not carried: %+v", p)
	}
	if p.DomainLabelName != "tissue" {
		t.Errorf("Expected domain label tissue, got %s", p.DomainLabelName)
	}
	if p.PollInterval != 1000 {
		t.Errorf("Expected poll interval 1000, got %d", p.PollInterval)
	}
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("Failed to create default config: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Config file not written: %v", err)
	}
}
