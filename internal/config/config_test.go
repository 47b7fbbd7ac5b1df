package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ludo-technologies/simscan/domain"
)

func TestDefaultSimilarityConfig(t *testing.T) {
	config := DefaultSimilarityConfig()

	if config.Analysis.Threshold != 0.87 {
		t.Errorf("Expected threshold 0.87, got %v", config.Analysis.Threshold)
	}
	if config.Analysis.MinLines != 3 {
		t.Errorf("Expected min_lines 3, got %d", config.Analysis.MinLines)
	}
	if config.Analysis.RenameCost != 0.3 {
		t.Errorf("Expected rename_cost 0.3, got %v", config.Analysis.RenameCost)
	}
	if !config.Analysis.SizePenalty {
		t.Error("Expected size penalty to be enabled by default")
	}
	if !config.Analysis.CrossFile {
		t.Error("Expected cross_file to be enabled by default")
	}
	if config.Analysis.Scorer != "tsed" {
		t.Errorf("Expected scorer 'tsed', got %s", config.Analysis.Scorer)
	}
	if config.Output.Format != "text" {
		t.Errorf("Expected format 'text', got %s", config.Output.Format)
	}
	if config.LSH.Enabled != "auto" {
		t.Errorf("Expected lsh 'auto', got %s", config.LSH.Enabled)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*SimilarityConfig)
	}{
		{"threshold above one", func(c *SimilarityConfig) { c.Analysis.Threshold = 1.2 }},
		{"negative threshold", func(c *SimilarityConfig) { c.Analysis.Threshold = -0.1 }},
		{"fingerprint threshold", func(c *SimilarityConfig) { c.Analysis.FingerprintThreshold = 2 }},
		{"negative min lines", func(c *SimilarityConfig) { c.Analysis.MinLines = -1 }},
		{"negative cost", func(c *SimilarityConfig) { c.Analysis.RenameCost = -1 }},
		{"unknown scorer", func(c *SimilarityConfig) { c.Analysis.Scorer = "fuzzy" }},
		{"negative weight", func(c *SimilarityConfig) { c.Analysis.SemanticWeight = -0.2 }},
		{"overlap window", func(c *SimilarityConfig) {
			c.Overlap.Enabled = true
			c.Overlap.MaxWindow = 5
		}},
		{"overlap tolerance", func(c *SimilarityConfig) {
			c.Overlap.Enabled = true
			c.Overlap.SizeTolerance = 1
		}},
		{"output format", func(c *SimilarityConfig) { c.Output.Format = "html" }},
		{"sort by", func(c *SimilarityConfig) { c.Output.SortBy = "name" }},
		{"negative workers", func(c *SimilarityConfig) { c.Performance.MaxWorkers = -1 }},
		{"lsh mode", func(c *SimilarityConfig) { c.LSH.Enabled = "sometimes" }},
		{"lsh bands exceed hashes", func(c *SimilarityConfig) { c.LSH.Bands = 64 }},
		{"type structural weight", func(c *SimilarityConfig) { c.Types.StructuralWeight = 1.5 }},
		{"property match threshold", func(c *SimilarityConfig) { c.Types.PropertyMatchThreshold = -0.1 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultSimilarityConfig()
			tc.modify(config)
			err := config.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !domain.IsInvalidConfiguration(err) {
				t.Errorf("Expected InvalidConfiguration error, got %v", err)
			}
		})
	}

	// A broken overlap section is ignored while overlap detection is off
	config := DefaultSimilarityConfig()
	config.Overlap.MaxWindow = 1
	if err := config.Validate(); err != nil {
		t.Errorf("Disabled overlap section should not be validated: %v", err)
	}
}

func TestLoadConfig_ExplicitYAML(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "simscan.yaml")
	content := `analysis:
  threshold: 0.75
  min_lines: 8
  scorer: enhanced
output:
  format: json
lsh:
  enabled: "false"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if config.Analysis.Threshold != 0.75 {
		t.Errorf("Expected threshold 0.75, got %v", config.Analysis.Threshold)
	}
	if config.Analysis.MinLines != 8 {
		t.Errorf("Expected min_lines 8, got %d", config.Analysis.MinLines)
	}
	if config.Analysis.Scorer != "enhanced" {
		t.Errorf("Expected scorer 'enhanced', got %s", config.Analysis.Scorer)
	}
	if config.Output.Format != "json" {
		t.Errorf("Expected format 'json', got %s", config.Output.Format)
	}
	if config.LSH.Enabled != "false" {
		t.Errorf("Expected lsh 'false', got %s", config.LSH.Enabled)
	}
	// untouched keys keep their defaults
	if config.Analysis.RenameCost != 0.3 {
		t.Errorf("Expected default rename_cost 0.3, got %v", config.Analysis.RenameCost)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Expected error for missing explicit config file")
	}

	configPath := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(configPath, []byte("[analysis]\nthreshold = 3.0\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if !domain.IsInvalidConfiguration(err) {
		t.Errorf("Expected InvalidConfiguration error, got %v", err)
	}
}

func TestToRequest(t *testing.T) {
	config := DefaultSimilarityConfig()
	config.Analysis.NoFingerprint = true
	config.Analysis.Scorer = "enhanced"
	config.Overlap.Enabled = true
	config.Types.Enabled = true
	config.Input.Languages = []string{"go"}
	config.Output.Format = "yaml"
	config.Output.Group = true
	config.LSH.Enabled = "TRUE"
	config.Performance.TimeoutSeconds = 30

	req := config.ToRequest(os.Stdout)
	if req.UseFingerprint {
		t.Error("Expected fingerprint to be disabled")
	}
	if req.Scorer != domain.ScorerEnhanced {
		t.Errorf("Expected enhanced scorer, got %s", req.Scorer)
	}
	if !req.DetectFunctions || !req.DetectTypes || !req.DetectOverlaps {
		t.Error("Expected functions, types and overlaps to be detected")
	}
	if req.OutputFormat != domain.OutputFormatYAML {
		t.Errorf("Expected yaml output, got %s", req.OutputFormat)
	}
	if !req.GroupDuplicates {
		t.Error("Expected grouping to be enabled")
	}
	if req.LSHEnabled != "true" {
		t.Errorf("Expected lsh 'true', got %s", req.LSHEnabled)
	}
	if req.Timeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", req.Timeout)
	}
	if len(req.Languages) != 1 || req.Languages[0] != "go" {
		t.Errorf("Expected languages [go], got %v", req.Languages)
	}
	if !req.HasValidOutputWriter() {
		t.Error("Expected output writer to be set")
	}
	if err := req.Validate(); err != nil {
		t.Errorf("Converted request should be valid: %v", err)
	}
}

func TestGenerateDefaultConfigTOML(t *testing.T) {
	content, err := GenerateDefaultConfigTOML()
	if err != nil {
		t.Fatalf("Failed to render default config: %v", err)
	}
	for _, section := range []string{"[analysis]", "[overlap]", "[types]", "[input]", "[output]", "[performance]", "[lsh]"} {
		if !strings.Contains(content, section) {
			t.Errorf("Expected rendered config to contain %s", section)
		}
	}

	config, err := LoadDefaultConfigFromTOML()
	if err != nil {
		t.Fatalf("Failed to parse rendered config: %v", err)
	}
	defaults := DefaultSimilarityConfig()
	if config.Analysis.Threshold != defaults.Analysis.Threshold {
		t.Errorf("Expected threshold %v, got %v", defaults.Analysis.Threshold, config.Analysis.Threshold)
	}
	if config.LSH.Bands != defaults.LSH.Bands || config.LSH.Rows != defaults.LSH.Rows {
		t.Errorf("Expected lsh %dx%d, got %dx%d", defaults.LSH.Bands, defaults.LSH.Rows, config.LSH.Bands, config.LSH.Rows)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Rendered config should be valid: %v", err)
	}
}
