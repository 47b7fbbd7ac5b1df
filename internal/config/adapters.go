package config

import (
	"io"
	"strings"
	"time"

	"github.com/ludo-technologies/simscan/domain"
)

// ToRequest converts the file configuration into a domain request
func (c *SimilarityConfig) ToRequest(outputWriter io.Writer) *domain.SimilarityRequest {
	outputFormat, err := domain.ParseOutputFormat(c.Output.Format)
	if err != nil {
		outputFormat = domain.OutputFormatText
	}

	sortBy := domain.SortCriteria(c.Output.SortBy)
	if sortBy == "" {
		sortBy = domain.SortByImpact
	}

	scorer := domain.Scorer(c.Analysis.Scorer)
	if scorer == "" {
		scorer = domain.ScorerTSED
	}

	return &domain.SimilarityRequest{
		Paths:           c.Input.Paths,
		Recursive:       c.Input.Recursive,
		IncludePatterns: c.Input.IncludePatterns,
		ExcludePatterns: c.Input.ExcludePatterns,
		Languages:       c.Input.Languages,

		DetectFunctions: true,
		DetectTypes:     c.Types.Enabled,
		DetectOverlaps:  c.Overlap.Enabled,

		Threshold:            c.Analysis.Threshold,
		MinLines:             c.Analysis.MinLines,
		MinTokens:            c.Analysis.MinTokens,
		RenameCost:           c.Analysis.RenameCost,
		DeleteCost:           c.Analysis.DeleteCost,
		InsertCost:           c.Analysis.InsertCost,
		CompareValues:        c.Analysis.CompareValues,
		SizePenalty:          c.Analysis.SizePenalty,
		Scorer:               scorer,
		UseFingerprint:       !c.Analysis.NoFingerprint,
		FingerprintThreshold: c.Analysis.FingerprintThreshold,

		StructuralWeight:       c.Analysis.StructuralWeight,
		SizeWeight:             c.Analysis.SizeWeight,
		TypeDistributionWeight: c.Analysis.TypeDistributionWeight,
		SemanticWeight:         c.Analysis.SemanticWeight,
		MinSizeRatio:           c.Analysis.MinSizeRatio,

		TypeStructuralWeight:   c.Types.StructuralWeight,
		PropertyMatchThreshold: c.Types.PropertyMatchThreshold,

		CrossFile: c.Analysis.CrossFile,
		SkipTest:  c.Analysis.SkipTest,

		OverlapMinWindow:     c.Overlap.MinWindow,
		OverlapMaxWindow:     c.Overlap.MaxWindow,
		OverlapThreshold:     c.Overlap.Threshold,
		OverlapSizeTolerance: c.Overlap.SizeTolerance,

		GroupDuplicates: c.Output.Group,
		GroupThreshold:  c.Output.GroupThreshold,

		LSHEnabled:       strings.ToLower(c.LSH.Enabled),
		LSHAutoThreshold: c.LSH.AutoThreshold,
		LSHBands:         c.LSH.Bands,
		LSHRows:          c.LSH.Rows,

		MaxWorkers: c.Performance.MaxWorkers,
		Timeout:    time.Duration(c.Performance.TimeoutSeconds) * time.Second,

		OutputFormat: outputFormat,
		OutputWriter: outputWriter,
		ShowCode:     c.Output.ShowCode,
		SortBy:       sortBy,
	}
}

// ConfigurationLoader implements domain.SimilarityConfigurationLoader
type ConfigurationLoader struct {
	toml *TomlConfigLoader
}

// NewConfigurationLoader creates a loader that understands .simscan.toml and
// any explicit file viper can read
func NewConfigurationLoader() *ConfigurationLoader {
	return &ConfigurationLoader{toml: NewTomlConfigLoader()}
}

// LoadConfig loads the request defaults
func (l *ConfigurationLoader) LoadConfig(path, startDir string) (*domain.SimilarityRequest, error) {
	var (
		cfg *SimilarityConfig
		err error
	)
	if path != "" {
		cfg, err = LoadConfig(path)
	} else {
		cfg, err = l.toml.LoadConfig(startDir)
	}
	if err != nil {
		return nil, err
	}
	req := cfg.ToRequest(nil)
	req.ConfigPath = path
	return req, nil
}
