package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ludo-technologies/simscan/domain"
)

// SimilarityConfig is the configuration file model
type SimilarityConfig struct {
	Analysis    AnalysisConfig    `mapstructure:"analysis" yaml:"analysis" json:"analysis" toml:"analysis"`
	Overlap     OverlapConfig     `mapstructure:"overlap" yaml:"overlap" json:"overlap" toml:"overlap"`
	Types       TypesConfig       `mapstructure:"types" yaml:"types" json:"types" toml:"types"`
	Input       InputConfig       `mapstructure:"input" yaml:"input" json:"input" toml:"input"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output" json:"output" toml:"output"`
	Performance PerformanceConfig `mapstructure:"performance" yaml:"performance" json:"performance" toml:"performance"`
	LSH         LSHConfig         `mapstructure:"lsh" yaml:"lsh" json:"lsh" toml:"lsh"`
}

// AnalysisConfig holds scoring and candidate selection settings
type AnalysisConfig struct {
	Threshold            float64 `mapstructure:"threshold" yaml:"threshold" json:"threshold" toml:"threshold"`
	MinLines             int     `mapstructure:"min_lines" yaml:"min_lines" json:"min_lines" toml:"min_lines"`
	MinTokens            int     `mapstructure:"min_tokens" yaml:"min_tokens" json:"min_tokens" toml:"min_tokens"`
	RenameCost           float64 `mapstructure:"rename_cost" yaml:"rename_cost" json:"rename_cost" toml:"rename_cost"`
	DeleteCost           float64 `mapstructure:"delete_cost" yaml:"delete_cost" json:"delete_cost" toml:"delete_cost"`
	InsertCost           float64 `mapstructure:"insert_cost" yaml:"insert_cost" json:"insert_cost" toml:"insert_cost"`
	CompareValues        bool    `mapstructure:"compare_values" yaml:"compare_values" json:"compare_values" toml:"compare_values"`
	SizePenalty          bool    `mapstructure:"size_penalty" yaml:"size_penalty" json:"size_penalty" toml:"size_penalty"`
	SkipTest             bool    `mapstructure:"skip_test" yaml:"skip_test" json:"skip_test" toml:"skip_test"`
	CrossFile            bool    `mapstructure:"cross_file" yaml:"cross_file" json:"cross_file" toml:"cross_file"`
	FingerprintThreshold float64 `mapstructure:"fingerprint_threshold" yaml:"fingerprint_threshold" json:"fingerprint_threshold" toml:"fingerprint_threshold"`
	NoFingerprint        bool    `mapstructure:"no_fingerprint" yaml:"no_fingerprint" json:"no_fingerprint" toml:"no_fingerprint"`

	// Scorer is "tsed" or "enhanced"
	Scorer string `mapstructure:"scorer" yaml:"scorer" json:"scorer" toml:"scorer"`

	StructuralWeight       float64 `mapstructure:"structural_weight" yaml:"structural_weight" json:"structural_weight" toml:"structural_weight"`
	SizeWeight             float64 `mapstructure:"size_weight" yaml:"size_weight" json:"size_weight" toml:"size_weight"`
	TypeDistributionWeight float64 `mapstructure:"type_distribution_weight" yaml:"type_distribution_weight" json:"type_distribution_weight" toml:"type_distribution_weight"`
	SemanticWeight         float64 `mapstructure:"semantic_weight" yaml:"semantic_weight" json:"semantic_weight" toml:"semantic_weight"`
	MinSizeRatio           float64 `mapstructure:"min_size_ratio" yaml:"min_size_ratio" json:"min_size_ratio" toml:"min_size_ratio"`
}

// OverlapConfig holds partial overlap settings
type OverlapConfig struct {
	Enabled       bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled" toml:"enabled"`
	MinWindow     int     `mapstructure:"min_window" yaml:"min_window" json:"min_window" toml:"min_window"`
	MaxWindow     int     `mapstructure:"max_window" yaml:"max_window" json:"max_window" toml:"max_window"`
	Threshold     float64 `mapstructure:"threshold" yaml:"threshold" json:"threshold" toml:"threshold"`
	SizeTolerance float64 `mapstructure:"size_tolerance" yaml:"size_tolerance" json:"size_tolerance" toml:"size_tolerance"`
}

// TypesConfig holds type comparison settings
type TypesConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled" toml:"enabled"`

	// StructuralWeight is the share of the type score taken by tree similarity
	StructuralWeight       float64 `mapstructure:"structural_weight" yaml:"structural_weight" json:"structural_weight" toml:"structural_weight"`
	PropertyMatchThreshold float64 `mapstructure:"property_match_threshold" yaml:"property_match_threshold" json:"property_match_threshold" toml:"property_match_threshold"`
}

// InputConfig holds file selection settings
type InputConfig struct {
	Paths           []string `mapstructure:"paths" yaml:"paths" json:"paths" toml:"paths"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive" toml:"recursive"`
	IncludePatterns []string `mapstructure:"include_patterns" yaml:"include_patterns" json:"include_patterns" toml:"include_patterns"`
	ExcludePatterns []string `mapstructure:"exclude_patterns" yaml:"exclude_patterns" json:"exclude_patterns" toml:"exclude_patterns"`

	// Languages restricts analysis to these languages; empty means all
	Languages []string `mapstructure:"languages" yaml:"languages" json:"languages" toml:"languages"`
}

// OutputConfig holds report settings
type OutputConfig struct {
	Format         string  `mapstructure:"format" yaml:"format" json:"format" toml:"format"`
	ShowCode       bool    `mapstructure:"show_code" yaml:"show_code" json:"show_code" toml:"show_code"`
	SortBy         string  `mapstructure:"sort_by" yaml:"sort_by" json:"sort_by" toml:"sort_by"`
	Group          bool    `mapstructure:"group" yaml:"group" json:"group" toml:"group"`
	GroupThreshold float64 `mapstructure:"group_threshold" yaml:"group_threshold" json:"group_threshold" toml:"group_threshold"`
}

// PerformanceConfig holds concurrency settings
type PerformanceConfig struct {
	MaxWorkers     int `mapstructure:"max_workers" yaml:"max_workers" json:"max_workers" toml:"max_workers"`
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds" toml:"timeout_seconds"`
}

// LSHConfig holds LSH candidate generation settings
type LSHConfig struct {
	// Enabled is "true", "false" or "auto"
	Enabled       string `mapstructure:"enabled" yaml:"enabled" json:"enabled" toml:"enabled"`
	AutoThreshold int    `mapstructure:"auto_threshold" yaml:"auto_threshold" json:"auto_threshold" toml:"auto_threshold"`
	Bands         int    `mapstructure:"bands" yaml:"bands" json:"bands" toml:"bands"`
	Rows          int    `mapstructure:"rows" yaml:"rows" json:"rows" toml:"rows"`
	Hashes        int    `mapstructure:"hashes" yaml:"hashes" json:"hashes" toml:"hashes"`
}

// DefaultSimilarityConfig returns the default configuration
func DefaultSimilarityConfig() *SimilarityConfig {
	return &SimilarityConfig{
		Analysis: AnalysisConfig{
			Threshold:              domain.DefaultSimilarityThreshold,
			MinLines:               domain.DefaultMinLines,
			RenameCost:             domain.DefaultRenameCost,
			DeleteCost:             1.0,
			InsertCost:             1.0,
			SizePenalty:            true,
			CrossFile:              true,
			FingerprintThreshold:   domain.DefaultFingerprintThreshold,
			Scorer:                 string(domain.ScorerTSED),
			StructuralWeight:       0.4,
			SizeWeight:             0.2,
			TypeDistributionWeight: 0.2,
			SemanticWeight:         0.2,
			MinSizeRatio:           0.5,
		},
		Types: TypesConfig{
			StructuralWeight:       domain.DefaultTypeStructuralWeight,
			PropertyMatchThreshold: domain.DefaultPropertyMatchThreshold,
		},
		Overlap: OverlapConfig{
			MinWindow:     domain.DefaultOverlapMinWindow,
			MaxWindow:     domain.DefaultOverlapMaxWindow,
			Threshold:     domain.DefaultOverlapThreshold,
			SizeTolerance: domain.DefaultOverlapSizeTolerance,
		},
		Input: InputConfig{
			Paths:           []string{"."},
			Recursive:       true,
			IncludePatterns: []string{},
			ExcludePatterns: []string{},
		},
		Output: OutputConfig{
			Format:         string(domain.OutputFormatText),
			SortBy:         string(domain.SortByImpact),
			GroupThreshold: domain.DefaultSimilarityThreshold,
		},
		Performance: PerformanceConfig{
			TimeoutSeconds: 300,
		},
		LSH: LSHConfig{
			Enabled:       "auto",
			AutoThreshold: domain.DefaultLSHAutoThreshold,
			Bands:         32,
			Rows:          4,
			Hashes:        128,
		},
	}
}

// Validate checks the configuration and returns InvalidConfiguration errors
func (c *SimilarityConfig) Validate() error {
	a := c.Analysis
	if a.Threshold < 0 || a.Threshold > 1 {
		return domain.NewInvalidConfigurationError(fmt.Sprintf("analysis.threshold must be between 0.0 and 1.0, got %v", a.Threshold))
	}
	if a.FingerprintThreshold < 0 || a.FingerprintThreshold > 1 {
		return domain.NewInvalidConfigurationError(fmt.Sprintf("analysis.fingerprint_threshold must be between 0.0 and 1.0, got %v", a.FingerprintThreshold))
	}
	if a.MinLines < 0 || a.MinTokens < 0 {
		return domain.NewInvalidConfigurationError("analysis.min_lines and analysis.min_tokens must be >= 0")
	}
	if a.RenameCost < 0 || a.DeleteCost < 0 || a.InsertCost < 0 {
		return domain.NewInvalidConfigurationError("analysis edit costs must be >= 0")
	}
	switch domain.Scorer(a.Scorer) {
	case domain.ScorerTSED, domain.ScorerEnhanced:
	default:
		return domain.NewInvalidConfigurationError(fmt.Sprintf("invalid analysis.scorer '%s', must be one of: tsed, enhanced", a.Scorer))
	}
	if a.StructuralWeight < 0 || a.SizeWeight < 0 || a.TypeDistributionWeight < 0 || a.SemanticWeight < 0 {
		return domain.NewInvalidConfigurationError("analysis weights must be >= 0")
	}

	if c.Types.StructuralWeight < 0 || c.Types.StructuralWeight > 1 {
		return domain.NewInvalidConfigurationError(fmt.Sprintf("types.structural_weight must be between 0.0 and 1.0, got %v", c.Types.StructuralWeight))
	}
	if c.Types.PropertyMatchThreshold < 0 || c.Types.PropertyMatchThreshold > 1 {
		return domain.NewInvalidConfigurationError(fmt.Sprintf("types.property_match_threshold must be between 0.0 and 1.0, got %v", c.Types.PropertyMatchThreshold))
	}

	if c.Overlap.Enabled {
		if c.Overlap.MinWindow <= 0 || c.Overlap.MaxWindow < c.Overlap.MinWindow {
			return domain.NewInvalidConfigurationError(fmt.Sprintf("invalid overlap window range %d-%d", c.Overlap.MinWindow, c.Overlap.MaxWindow))
		}
		if c.Overlap.Threshold < 0 || c.Overlap.Threshold > 1 {
			return domain.NewInvalidConfigurationError("overlap.threshold must be between 0.0 and 1.0")
		}
		if c.Overlap.SizeTolerance < 0 || c.Overlap.SizeTolerance >= 1 {
			return domain.NewInvalidConfigurationError("overlap.size_tolerance must be in [0.0, 1.0)")
		}
	}

	if _, err := domain.ParseOutputFormat(c.Output.Format); err != nil {
		return domain.NewInvalidConfigurationError(fmt.Sprintf("invalid output.format '%s', must be one of: text, json, yaml, csv", c.Output.Format))
	}
	switch domain.SortCriteria(c.Output.SortBy) {
	case "", domain.SortByImpact, domain.SortBySimilarity, domain.SortByLocation:
	default:
		return domain.NewInvalidConfigurationError(fmt.Sprintf("invalid output.sort_by '%s', must be one of: impact, similarity, location", c.Output.SortBy))
	}

	if c.Performance.MaxWorkers < 0 || c.Performance.TimeoutSeconds < 0 {
		return domain.NewInvalidConfigurationError("performance values must be >= 0")
	}

	switch strings.ToLower(c.LSH.Enabled) {
	case "", "true", "false", "auto":
	default:
		return domain.NewInvalidConfigurationError(fmt.Sprintf("invalid lsh.enabled '%s', must be one of: true, false, auto", c.LSH.Enabled))
	}
	if c.LSH.Bands < 0 || c.LSH.Rows < 0 || c.LSH.Hashes < 0 {
		return domain.NewInvalidConfigurationError("lsh values must be >= 0")
	}
	if c.LSH.Hashes > 0 && c.LSH.Bands*c.LSH.Rows > c.LSH.Hashes {
		return domain.NewInvalidConfigurationError(fmt.Sprintf("lsh.bands * lsh.rows (%d) exceeds lsh.hashes (%d)", c.LSH.Bands*c.LSH.Rows, c.LSH.Hashes))
	}
	return nil
}

// LoadConfig loads configuration from an explicit file of any format viper
// understands, or discovers .simscan.toml from the working directory when
// configPath is empty
func LoadConfig(configPath string) (*SimilarityConfig, error) {
	if configPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return DefaultSimilarityConfig(), nil
		}
		return NewTomlConfigLoader().LoadConfig(cwd)
	}

	config := DefaultSimilarityConfig()

	v := viper.New()
	v.SetConfigFile(configPath)
	if ext := strings.TrimPrefix(filepath.Ext(configPath), "."); ext == "" {
		v.SetConfigType("toml")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, domain.NewConfigError(fmt.Sprintf("failed to read config file %s", configPath), err)
	}
	if err := v.Unmarshal(config); err != nil {
		return nil, domain.NewConfigError("failed to unmarshal config", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}
	return config, nil
}
