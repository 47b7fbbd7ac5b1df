package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/ludo-technologies/simscan/domain"
)

// ConfigFileName is the dedicated configuration file discovered by walking up
// from the analyzed directory
const ConfigFileName = ".simscan.toml"

// SimscanTomlConfig represents the structure of .simscan.toml.
// Zero numbers and empty strings mean "unset"; booleans are pointers so an
// explicit false can be told apart from a missing key.
type SimscanTomlConfig struct {
	Analysis    tomlAnalysis    `toml:"analysis"`
	Overlap     tomlOverlap     `toml:"overlap"`
	Types       tomlTypes       `toml:"types"`
	Input       tomlInput       `toml:"input"`
	Output      tomlOutput      `toml:"output"`
	Performance tomlPerformance `toml:"performance"`
	LSH         tomlLSH         `toml:"lsh"`
}

type tomlAnalysis struct {
	Threshold            float64 `toml:"threshold"`
	MinLines             int     `toml:"min_lines"`
	MinTokens            int     `toml:"min_tokens"`
	RenameCost           float64 `toml:"rename_cost"`
	DeleteCost           float64 `toml:"delete_cost"`
	InsertCost           float64 `toml:"insert_cost"`
	CompareValues        *bool   `toml:"compare_values"`
	SizePenalty          *bool   `toml:"size_penalty"`
	SkipTest             *bool   `toml:"skip_test"`
	CrossFile            *bool   `toml:"cross_file"`
	FingerprintThreshold float64 `toml:"fingerprint_threshold"`
	NoFingerprint        *bool   `toml:"no_fingerprint"`
	Scorer               string  `toml:"scorer"`

	StructuralWeight       float64 `toml:"structural_weight"`
	SizeWeight             float64 `toml:"size_weight"`
	TypeDistributionWeight float64 `toml:"type_distribution_weight"`
	SemanticWeight         float64 `toml:"semantic_weight"`
	MinSizeRatio           float64 `toml:"min_size_ratio"`
}

type tomlOverlap struct {
	Enabled       *bool   `toml:"enabled"`
	MinWindow     int     `toml:"min_window"`
	MaxWindow     int     `toml:"max_window"`
	Threshold     float64 `toml:"threshold"`
	SizeTolerance float64 `toml:"size_tolerance"`
}

type tomlTypes struct {
	Enabled                *bool   `toml:"enabled"`
	StructuralWeight       float64 `toml:"structural_weight"`
	PropertyMatchThreshold float64 `toml:"property_match_threshold"`
}

type tomlInput struct {
	Paths           []string `toml:"paths"`
	Recursive       *bool    `toml:"recursive"`
	IncludePatterns []string `toml:"include_patterns"`
	ExcludePatterns []string `toml:"exclude_patterns"`
	Languages       []string `toml:"languages"`
}

type tomlOutput struct {
	Format         string  `toml:"format"`
	ShowCode       *bool   `toml:"show_code"`
	SortBy         string  `toml:"sort_by"`
	Group          *bool   `toml:"group"`
	GroupThreshold float64 `toml:"group_threshold"`
}

type tomlPerformance struct {
	MaxWorkers     int `toml:"max_workers"`
	TimeoutSeconds int `toml:"timeout_seconds"`
}

type tomlLSH struct {
	Enabled       string `toml:"enabled"`
	AutoThreshold int    `toml:"auto_threshold"`
	Bands         int    `toml:"bands"`
	Rows          int    `toml:"rows"`
	Hashes        int    `toml:"hashes"`
}

// TomlConfigLoader handles .simscan.toml discovery and loading
type TomlConfigLoader struct{}

// NewTomlConfigLoader creates a new TOML configuration loader
func NewTomlConfigLoader() *TomlConfigLoader {
	return &TomlConfigLoader{}
}

// LoadConfig loads .simscan.toml found at or above startDir, merged over the
// defaults. Missing files yield the defaults.
func (l *TomlConfigLoader) LoadConfig(startDir string) (*SimilarityConfig, error) {
	configPath, err := l.FindConfigFile(startDir)
	if err != nil {
		return DefaultSimilarityConfig(), nil
	}
	return l.LoadFile(configPath)
}

// LoadFile parses one TOML file and merges it over the defaults
func (l *TomlConfigLoader) LoadFile(configPath string) (*SimilarityConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, domain.NewConfigError(fmt.Sprintf("failed to read %s", configPath), err)
	}

	var file SimscanTomlConfig
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, domain.NewConfigError(fmt.Sprintf("failed to parse %s", configPath), err)
	}

	config := DefaultSimilarityConfig()
	l.merge(config, &file)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}
	return config, nil
}

// FindConfigFile walks up the directory tree to find .simscan.toml
func (l *TomlConfigLoader) FindConfigFile(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		dir = startDir
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", os.ErrNotExist
}

func (l *TomlConfigLoader) merge(config *SimilarityConfig, file *SimscanTomlConfig) {
	a := &config.Analysis
	fa := &file.Analysis
	setFloat(&a.Threshold, fa.Threshold)
	setInt(&a.MinLines, fa.MinLines)
	setInt(&a.MinTokens, fa.MinTokens)
	setFloat(&a.RenameCost, fa.RenameCost)
	setFloat(&a.DeleteCost, fa.DeleteCost)
	setFloat(&a.InsertCost, fa.InsertCost)
	setBool(&a.CompareValues, fa.CompareValues)
	setBool(&a.SizePenalty, fa.SizePenalty)
	setBool(&a.SkipTest, fa.SkipTest)
	setBool(&a.CrossFile, fa.CrossFile)
	setFloat(&a.FingerprintThreshold, fa.FingerprintThreshold)
	setBool(&a.NoFingerprint, fa.NoFingerprint)
	setString(&a.Scorer, fa.Scorer)
	setFloat(&a.StructuralWeight, fa.StructuralWeight)
	setFloat(&a.SizeWeight, fa.SizeWeight)
	setFloat(&a.TypeDistributionWeight, fa.TypeDistributionWeight)
	setFloat(&a.SemanticWeight, fa.SemanticWeight)
	setFloat(&a.MinSizeRatio, fa.MinSizeRatio)

	setBool(&config.Overlap.Enabled, file.Overlap.Enabled)
	setInt(&config.Overlap.MinWindow, file.Overlap.MinWindow)
	setInt(&config.Overlap.MaxWindow, file.Overlap.MaxWindow)
	setFloat(&config.Overlap.Threshold, file.Overlap.Threshold)
	setFloat(&config.Overlap.SizeTolerance, file.Overlap.SizeTolerance)

	setBool(&config.Types.Enabled, file.Types.Enabled)
	setFloat(&config.Types.StructuralWeight, file.Types.StructuralWeight)
	setFloat(&config.Types.PropertyMatchThreshold, file.Types.PropertyMatchThreshold)

	setStrings(&config.Input.Paths, file.Input.Paths)
	setBool(&config.Input.Recursive, file.Input.Recursive)
	setStrings(&config.Input.IncludePatterns, file.Input.IncludePatterns)
	setStrings(&config.Input.ExcludePatterns, file.Input.ExcludePatterns)
	setStrings(&config.Input.Languages, file.Input.Languages)

	setString(&config.Output.Format, file.Output.Format)
	setBool(&config.Output.ShowCode, file.Output.ShowCode)
	setString(&config.Output.SortBy, file.Output.SortBy)
	setBool(&config.Output.Group, file.Output.Group)
	setFloat(&config.Output.GroupThreshold, file.Output.GroupThreshold)

	setInt(&config.Performance.MaxWorkers, file.Performance.MaxWorkers)
	setInt(&config.Performance.TimeoutSeconds, file.Performance.TimeoutSeconds)

	setString(&config.LSH.Enabled, file.LSH.Enabled)
	setInt(&config.LSH.AutoThreshold, file.LSH.AutoThreshold)
	setInt(&config.LSH.Bands, file.LSH.Bands)
	setInt(&config.LSH.Rows, file.LSH.Rows)
	setInt(&config.LSH.Hashes, file.LSH.Hashes)
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setStrings(dst *[]string, v []string) {
	if len(v) > 0 {
		*dst = v
	}
}

// SaveConfig writes the configuration as TOML
func SaveConfig(config *SimilarityConfig, path string) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return domain.NewConfigError("failed to encode config", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return domain.NewConfigError(fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}
