package domain

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Scorer selects how a compared pair is turned into a similarity value
type Scorer string

const (
	// ScorerTSED uses the tree edit distance score with the optional size penalty
	ScorerTSED Scorer = "tsed"
	// ScorerEnhanced blends structure, size, node-type distribution and semantic features
	ScorerEnhanced Scorer = "enhanced"
)

// SortCriteria defines how duplicate results are ordered in reports
type SortCriteria string

const (
	SortByImpact     SortCriteria = "impact"
	SortBySimilarity SortCriteria = "similarity"
	SortByLocation   SortCriteria = "location"
)

// SimilarityResult is one pair of duplicated functions
type SimilarityResult struct {
	Function1  FunctionDefinition `json:"function1" yaml:"function1"`
	Function2  FunctionDefinition `json:"function2" yaml:"function2"`
	Similarity float64            `json:"similarity" yaml:"similarity"`
	Impact     int                `json:"impact" yaml:"impact"`
}

// NewSimilarityResult builds a result whose impact is the smaller line count of the pair
func NewSimilarityResult(f1, f2 FunctionDefinition, similarity float64) SimilarityResult {
	impact := f1.LineCount()
	if l := f2.LineCount(); l < impact {
		impact = l
	}
	return SimilarityResult{
		Function1:  f1,
		Function2:  f2,
		Similarity: similarity,
		Impact:     impact,
	}
}

// String returns a one-line description of the pair
func (r *SimilarityResult) String() string {
	return fmt.Sprintf("%s <-> %s (similarity: %.2f%%, impact: %d lines)",
		r.Function1.Location(), r.Function2.Location(), r.Similarity*100, r.Impact)
}

// TypeSimilarityResult is one pair of structurally similar type definitions.
// Property fields are filled when both types declare members.
type TypeSimilarityResult struct {
	Type1      TypeDefinition `json:"type1" yaml:"type1"`
	Type2      TypeDefinition `json:"type2" yaml:"type2"`
	Similarity float64        `json:"similarity" yaml:"similarity"`
	Impact     int            `json:"impact" yaml:"impact"`

	StructuralSimilarity   float64            `json:"structural_similarity" yaml:"structural_similarity"`
	PropertySimilarity     float64            `json:"property_similarity,omitempty" yaml:"property_similarity,omitempty"`
	MatchedProperties      []PropertyMatch    `json:"matched_properties,omitempty" yaml:"matched_properties,omitempty"`
	MissingProperties      []string           `json:"missing_properties,omitempty" yaml:"missing_properties,omitempty"`
	ExtraProperties        []string           `json:"extra_properties,omitempty" yaml:"extra_properties,omitempty"`
	TypeMismatches         []PropertyMismatch `json:"type_mismatches,omitempty" yaml:"type_mismatches,omitempty"`
	OptionalityDifferences []string           `json:"optionality_differences,omitempty" yaml:"optionality_differences,omitempty"`
}

// PropertyMatch pairs a member of the first type with one of the second
type PropertyMatch struct {
	Property1  string  `json:"property1" yaml:"property1"`
	Property2  string  `json:"property2" yaml:"property2"`
	Similarity float64 `json:"similarity" yaml:"similarity"`
}

// PropertyMismatch is a matched member whose declared types differ
type PropertyMismatch struct {
	Property1 string `json:"property1" yaml:"property1"`
	Property2 string `json:"property2" yaml:"property2"`
	Type1     string `json:"type1" yaml:"type1"`
	Type2     string `json:"type2" yaml:"type2"`
}

// LineRange is an inclusive 1-based line range
type LineRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Contains reports whether r fully covers other
func (r LineRange) Contains(other LineRange) bool {
	return r.Start <= other.Start && other.End <= r.End
}

// PartialOverlap is a structural match between fragments of two functions
type PartialOverlap struct {
	SourceFunction string    `json:"source_function" yaml:"source_function"`
	TargetFunction string    `json:"target_function" yaml:"target_function"`
	SourceLines    LineRange `json:"source_lines" yaml:"source_lines"`
	TargetLines    LineRange `json:"target_lines" yaml:"target_lines"`
	Similarity     float64   `json:"similarity" yaml:"similarity"`
	NodeCount      int       `json:"node_count" yaml:"node_count"`
	NodeType       string    `json:"node_type" yaml:"node_type"`
}

// DetailedOverlap carries the overlap together with the code it covers
type DetailedOverlap struct {
	Overlap     PartialOverlap `json:"overlap" yaml:"overlap"`
	SourceFile  string         `json:"source_file" yaml:"source_file"`
	TargetFile  string         `json:"target_file" yaml:"target_file"`
	SourceCode  string         `json:"source_code,omitempty" yaml:"source_code,omitempty"`
	TargetCode  string         `json:"target_code,omitempty" yaml:"target_code,omitempty"`
	ExactTSED   float64        `json:"exact_tsed,omitempty" yaml:"exact_tsed,omitempty"`
	HasExactTED bool           `json:"has_exact_tsed" yaml:"has_exact_tsed"`
}

// DuplicateGroup is a set of functions connected by duplicate pairs
type DuplicateGroup struct {
	ID         int                  `json:"id" yaml:"id"`
	Functions  []FunctionDefinition `json:"functions" yaml:"functions"`
	Similarity float64              `json:"similarity" yaml:"similarity"`
	Size       int                  `json:"size" yaml:"size"`
}

// SkippedUnit records a file or function that could not be analyzed
type SkippedUnit struct {
	FilePath string `json:"file_path" yaml:"file_path"`
	Unit     string `json:"unit,omitempty" yaml:"unit,omitempty"`
	Reason   string `json:"reason" yaml:"reason"`
}

// SimilarityStatistics summarises a run
type SimilarityStatistics struct {
	FilesAnalyzed        int   `json:"files_analyzed" yaml:"files_analyzed"`
	FunctionsExtracted   int   `json:"functions_extracted" yaml:"functions_extracted"`
	TypesExtracted       int   `json:"types_extracted" yaml:"types_extracted"`
	PairsEnumerated      int   `json:"pairs_enumerated" yaml:"pairs_enumerated"`
	PairsFiltered        int   `json:"pairs_filtered" yaml:"pairs_filtered"`
	PairsCompared        int   `json:"pairs_compared" yaml:"pairs_compared"`
	DuplicatesFound      int   `json:"duplicates_found" yaml:"duplicates_found"`
	TypeDuplicatesFound  int   `json:"type_duplicates_found" yaml:"type_duplicates_found"`
	OverlapsFound        int   `json:"overlaps_found" yaml:"overlaps_found"`
	SkippedUnits         int   `json:"skipped_units" yaml:"skipped_units"`
	DuplicatedLines      int   `json:"duplicated_lines" yaml:"duplicated_lines"`
	DurationMilliseconds int64 `json:"duration_ms" yaml:"duration_ms"`
}

// SimilarityRequest describes one analysis run
type SimilarityRequest struct {
	// Input
	Paths           []string `json:"paths"`
	Recursive       bool     `json:"recursive"`
	IncludePatterns []string `json:"include_patterns"`
	ExcludePatterns []string `json:"exclude_patterns"`
	Languages       []string `json:"languages,omitempty"`

	// What to detect
	DetectFunctions bool `json:"detect_functions"`
	DetectTypes     bool `json:"detect_types"`
	DetectOverlaps  bool `json:"detect_overlaps"`

	// Scoring
	Threshold            float64 `json:"threshold"`
	MinLines             int     `json:"min_lines"`
	MinTokens            int     `json:"min_tokens"`
	RenameCost           float64 `json:"rename_cost"`
	DeleteCost           float64 `json:"delete_cost"`
	InsertCost           float64 `json:"insert_cost"`
	CompareValues        bool    `json:"compare_values"`
	SizePenalty          bool    `json:"size_penalty"`
	Scorer               Scorer  `json:"scorer"`
	UseFingerprint       bool    `json:"use_fingerprint"`
	FingerprintThreshold float64 `json:"fingerprint_threshold"`

	// Enhanced scorer weights
	StructuralWeight       float64 `json:"structural_weight"`
	SizeWeight             float64 `json:"size_weight"`
	TypeDistributionWeight float64 `json:"type_distribution_weight"`
	SemanticWeight         float64 `json:"semantic_weight"`
	MinSizeRatio           float64 `json:"min_size_ratio"`

	// Type scoring
	TypeStructuralWeight   float64 `json:"type_structural_weight"`
	PropertyMatchThreshold float64 `json:"property_match_threshold"`

	// Candidate selection
	CrossFile          bool   `json:"cross_file"`
	SkipTest           bool   `json:"skip_test"`
	FilterFunction     string `json:"filter_function"`
	FilterFunctionBody string `json:"filter_function_body"`

	// Overlap detection
	OverlapMinWindow     int     `json:"overlap_min_window"`
	OverlapMaxWindow     int     `json:"overlap_max_window"`
	OverlapThreshold     float64 `json:"overlap_threshold"`
	OverlapSizeTolerance float64 `json:"overlap_size_tolerance"`

	// Grouping
	GroupDuplicates bool    `json:"group_duplicates"`
	GroupThreshold  float64 `json:"group_threshold"`

	// LSH candidate generation: "true", "false" or "auto"
	LSHEnabled       string `json:"lsh_enabled"`
	LSHAutoThreshold int    `json:"lsh_auto_threshold"`
	LSHBands         int    `json:"lsh_bands"`
	LSHRows          int    `json:"lsh_rows"`

	// Performance
	MaxWorkers int           `json:"max_workers"`
	Timeout    time.Duration `json:"timeout"`

	// Output
	OutputFormat OutputFormat `json:"output_format"`
	OutputWriter io.Writer    `json:"-"`
	OutputPath   string       `json:"output_path,omitempty"`
	ShowCode     bool         `json:"show_code"`
	SortBy       SortCriteria `json:"sort_by"`

	// Configuration file
	ConfigPath string `json:"config_path"`
}

// DefaultSimilarityRequest returns a request populated with default values
func DefaultSimilarityRequest() *SimilarityRequest {
	return &SimilarityRequest{
		Paths:                  []string{"."},
		Recursive:              true,
		IncludePatterns:        []string{},
		ExcludePatterns:        []string{},
		DetectFunctions:        true,
		DetectTypes:            false,
		DetectOverlaps:         false,
		Threshold:              DefaultSimilarityThreshold,
		MinLines:               DefaultMinLines,
		MinTokens:              0,
		RenameCost:             DefaultRenameCost,
		DeleteCost:             1.0,
		InsertCost:             1.0,
		CompareValues:          false,
		SizePenalty:            true,
		Scorer:                 ScorerTSED,
		UseFingerprint:         true,
		FingerprintThreshold:   DefaultFingerprintThreshold,
		StructuralWeight:       0.4,
		SizeWeight:             0.2,
		TypeDistributionWeight: 0.2,
		SemanticWeight:         0.2,
		MinSizeRatio:           0.5,
		TypeStructuralWeight:   DefaultTypeStructuralWeight,
		PropertyMatchThreshold: DefaultPropertyMatchThreshold,
		CrossFile:              true,
		OverlapMinWindow:       DefaultOverlapMinWindow,
		OverlapMaxWindow:       DefaultOverlapMaxWindow,
		OverlapThreshold:       DefaultOverlapThreshold,
		OverlapSizeTolerance:   DefaultOverlapSizeTolerance,
		GroupDuplicates:        false,
		GroupThreshold:         DefaultSimilarityThreshold,
		LSHEnabled:             "auto",
		LSHAutoThreshold:       DefaultLSHAutoThreshold,
		LSHBands:               32,
		LSHRows:                4,
		MaxWorkers:             0,
		Timeout:                5 * time.Minute,
		OutputFormat:           OutputFormatText,
		SortBy:                 SortByImpact,
	}
}

// Validate checks that the request is internally consistent
func (r *SimilarityRequest) Validate() error {
	if len(r.Paths) == 0 {
		return NewValidationError("no input paths specified")
	}
	if !r.DetectFunctions && !r.DetectTypes && !r.DetectOverlaps {
		return NewValidationError("at least one of functions, types or overlaps must be enabled")
	}
	if r.Threshold < 0 || r.Threshold > 1 {
		return NewInvalidConfigurationError(fmt.Sprintf("threshold must be between 0.0 and 1.0, got %v", r.Threshold))
	}
	if r.FingerprintThreshold < 0 || r.FingerprintThreshold > 1 {
		return NewInvalidConfigurationError(fmt.Sprintf("fingerprint threshold must be between 0.0 and 1.0, got %v", r.FingerprintThreshold))
	}
	if r.MinLines < 0 {
		return NewInvalidConfigurationError("min_lines must be non-negative")
	}
	if r.MinTokens < 0 {
		return NewInvalidConfigurationError("min_tokens must be non-negative")
	}
	if r.RenameCost < 0 || r.DeleteCost < 0 || r.InsertCost < 0 {
		return NewInvalidConfigurationError("edit costs must be non-negative")
	}
	switch r.Scorer {
	case ScorerTSED, ScorerEnhanced:
	default:
		return NewInvalidConfigurationError(fmt.Sprintf("unknown scorer: %s", r.Scorer))
	}
	if r.DetectOverlaps {
		if r.OverlapMinWindow <= 0 || r.OverlapMaxWindow < r.OverlapMinWindow {
			return NewInvalidConfigurationError(fmt.Sprintf("invalid overlap window range %d-%d", r.OverlapMinWindow, r.OverlapMaxWindow))
		}
		if r.OverlapThreshold < 0 || r.OverlapThreshold > 1 {
			return NewInvalidConfigurationError("overlap threshold must be between 0.0 and 1.0")
		}
		if r.OverlapSizeTolerance < 0 || r.OverlapSizeTolerance >= 1 {
			return NewInvalidConfigurationError("overlap size tolerance must be in [0.0, 1.0)")
		}
	}
	switch r.LSHEnabled {
	case "", "true", "false", "auto":
	default:
		return NewInvalidConfigurationError(fmt.Sprintf("lsh must be true, false or auto, got %q", r.LSHEnabled))
	}
	if r.MaxWorkers < 0 {
		return NewInvalidConfigurationError("max_workers must be non-negative")
	}
	return nil
}

// HasValidOutputWriter checks if the request has a writer or a report file path
func (r *SimilarityRequest) HasValidOutputWriter() bool {
	return r.OutputWriter != nil || r.OutputPath != ""
}

// SimilarityResponse is the outcome of one analysis run
type SimilarityResponse struct {
	Duplicates     []SimilarityResult     `json:"duplicates" yaml:"duplicates"`
	TypeDuplicates []TypeSimilarityResult `json:"type_duplicates,omitempty" yaml:"type_duplicates,omitempty"`
	Overlaps       []DetailedOverlap      `json:"overlaps,omitempty" yaml:"overlaps,omitempty"`
	Groups         []DuplicateGroup       `json:"groups,omitempty" yaml:"groups,omitempty"`
	Skipped        []SkippedUnit          `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Statistics     SimilarityStatistics   `json:"statistics" yaml:"statistics"`
	Request        *SimilarityRequest     `json:"-" yaml:"-"`
}

// SimilarityService runs duplicate detection over a set of files
type SimilarityService interface {
	// Analyze detects duplicates in the given files
	Analyze(ctx context.Context, files []string, req *SimilarityRequest) (*SimilarityResponse, error)

	// CompareSources scores two code fragments written in the given language
	CompareSources(ctx context.Context, source1, source2 []byte, language string, req *SimilarityRequest) (float64, error)
}

// SimilarityOutputFormatter renders a response
type SimilarityOutputFormatter interface {
	Write(response *SimilarityResponse, format OutputFormat, writer io.Writer) error
}

// SimilarityConfigurationLoader loads request defaults from configuration files
type SimilarityConfigurationLoader interface {
	// LoadConfig loads the configuration at path, or discovers one starting at startDir when path is empty
	LoadConfig(path, startDir string) (*SimilarityRequest, error)
}
