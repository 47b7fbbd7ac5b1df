package service

import (
	"github.com/ludo-technologies/simscan/domain"
	"github.com/ludo-technologies/simscan/internal/config"
)

// ConfigurationLoaderWithFlags loads request defaults from configuration files
// and lets explicitly set CLI flags win over them
type ConfigurationLoaderWithFlags struct {
	loader      domain.SimilarityConfigurationLoader
	flagTracker *config.FlagTracker
}

// NewConfigurationLoaderWithFlags creates a loader that merges tracked flags
func NewConfigurationLoaderWithFlags(tracker *config.FlagTracker) *ConfigurationLoaderWithFlags {
	if tracker == nil {
		tracker = config.NewFlagTracker()
	}
	return &ConfigurationLoaderWithFlags{
		loader:      config.NewConfigurationLoader(),
		flagTracker: tracker,
	}
}

// LoadConfig loads the configuration at path, or discovers .simscan.toml from startDir
func (cl *ConfigurationLoaderWithFlags) LoadConfig(path, startDir string) (*domain.SimilarityRequest, error) {
	return cl.loader.LoadConfig(path, startDir)
}

// MergeConfig overlays the explicitly set fields of override onto base
func (cl *ConfigurationLoaderWithFlags) MergeConfig(base, override *domain.SimilarityRequest) *domain.SimilarityRequest {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	ft := cl.flagTracker
	merged := *base

	// Paths come from command arguments
	if len(override.Paths) > 0 {
		merged.Paths = override.Paths
	}
	merged.OutputWriter = override.OutputWriter
	merged.OutputPath = override.OutputPath
	merged.ConfigPath = override.ConfigPath

	merged.Threshold = ft.MergeFloat64(merged.Threshold, override.Threshold, "threshold")
	merged.MinLines = ft.MergeInt(merged.MinLines, override.MinLines, "min-lines")
	merged.MinTokens = ft.MergeInt(merged.MinTokens, override.MinTokens, "min-tokens")
	merged.RenameCost = ft.MergeFloat64(merged.RenameCost, override.RenameCost, "rename-cost")
	merged.SizePenalty = ft.MergeBool(merged.SizePenalty, override.SizePenalty, "no-size-penalty")
	merged.CompareValues = ft.MergeBool(merged.CompareValues, override.CompareValues, "compare-values")
	merged.SkipTest = ft.MergeBool(merged.SkipTest, override.SkipTest, "skip-test")
	merged.CrossFile = ft.MergeBool(merged.CrossFile, override.CrossFile, "cross-file")
	merged.UseFingerprint = ft.MergeBool(merged.UseFingerprint, override.UseFingerprint, "no-fingerprint")
	merged.FingerprintThreshold = ft.MergeFloat64(merged.FingerprintThreshold, override.FingerprintThreshold, "fingerprint-threshold")
	merged.Scorer = domain.Scorer(ft.MergeString(string(merged.Scorer), string(override.Scorer), "scorer"))

	merged.DetectFunctions = ft.MergeBool(merged.DetectFunctions, override.DetectFunctions, "no-functions")
	merged.DetectTypes = ft.MergeBool(merged.DetectTypes, override.DetectTypes, "types")
	merged.DetectOverlaps = ft.MergeBool(merged.DetectOverlaps, override.DetectOverlaps, "overlap")
	merged.OverlapMinWindow = ft.MergeInt(merged.OverlapMinWindow, override.OverlapMinWindow, "overlap-min-window")
	merged.OverlapMaxWindow = ft.MergeInt(merged.OverlapMaxWindow, override.OverlapMaxWindow, "overlap-max-window")
	merged.OverlapThreshold = ft.MergeFloat64(merged.OverlapThreshold, override.OverlapThreshold, "overlap-threshold")
	merged.OverlapSizeTolerance = ft.MergeFloat64(merged.OverlapSizeTolerance, override.OverlapSizeTolerance, "overlap-size-tolerance")

	merged.FilterFunction = ft.MergeString(merged.FilterFunction, override.FilterFunction, "filter-function")
	merged.FilterFunctionBody = ft.MergeString(merged.FilterFunctionBody, override.FilterFunctionBody, "filter-function-body")
	merged.IncludePatterns = ft.MergeStringSlice(merged.IncludePatterns, override.IncludePatterns, "include")
	merged.ExcludePatterns = ft.MergeStringSlice(merged.ExcludePatterns, override.ExcludePatterns, "exclude")
	merged.Languages = ft.MergeStringSlice(merged.Languages, override.Languages, "languages")

	merged.GroupDuplicates = ft.MergeBool(merged.GroupDuplicates, override.GroupDuplicates, "group")
	merged.MaxWorkers = ft.MergeInt(merged.MaxWorkers, override.MaxWorkers, "workers")
	merged.LSHEnabled = ft.MergeString(merged.LSHEnabled, override.LSHEnabled, "lsh")
	merged.ShowCode = ft.MergeBool(merged.ShowCode, override.ShowCode, "print")
	merged.SortBy = domain.SortCriteria(ft.MergeString(string(merged.SortBy), string(override.SortBy), "sort"))

	if ft.WasSet("json") || ft.WasSet("yaml") || ft.WasSet("csv") || ft.WasSet("format") {
		merged.OutputFormat = override.OutputFormat
	}

	return &merged
}
