package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ludo-technologies/simscan/domain"
	"github.com/ludo-technologies/simscan/internal/analyzer"
	"github.com/ludo-technologies/simscan/internal/parser"
)

// maxFragmentSize bounds the snippets accepted by CompareSources
const maxFragmentSize = 1024 * 1024

// SimilarityService implements domain.SimilarityService
type SimilarityService struct {
	reader   domain.FileReader
	progress domain.ProgressManager
}

// NewSimilarityService creates a new similarity service.
// progress can be nil - the service then works silently.
func NewSimilarityService(progress domain.ProgressManager) *SimilarityService {
	if progress == nil {
		progress = NewNoOpProgressManager()
	}
	return &SimilarityService{
		reader:   NewFileReader(),
		progress: progress,
	}
}

// WithFileReader replaces the reader used to load sources
func (s *SimilarityService) WithFileReader(reader domain.FileReader) *SimilarityService {
	s.reader = reader
	return s
}

// Analyze parses the files and runs the enabled detectors
func (s *SimilarityService) Analyze(ctx context.Context, files []string, req *domain.SimilarityRequest) (*domain.SimilarityResponse, error) {
	if req == nil {
		return nil, domain.NewInvalidInputError("similarity request cannot be nil", nil)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid similarity request: %w", err)
	}

	startTime := time.Now()

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	executor := NewParallelExecutor()
	executor.SetTimeout(0)
	cache, err := PopulateParseCache(ctx, files, ParseCachePopulatorConfig{
		Reader:      s.reader,
		Executor:    executor,
		Progress:    s.progress,
		Concurrency: req.MaxWorkers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse files: %w", err)
	}

	functions := cache.Functions()
	types := cache.Types()
	response := &domain.SimilarityResponse{
		Duplicates: []domain.SimilarityResult{},
		Skipped:    cache.Skipped(),
		Request:    req,
	}
	stats := &response.Statistics
	stats.FilesAnalyzed = cache.Len()
	stats.FunctionsExtracted = len(functions)
	stats.TypesExtracted = len(types)

	detector := analyzer.NewSimilarityDetector(analyzer.SimilarityDetectorFromRequest(req))

	if req.DetectFunctions {
		results, err := detector.FindSimilarFunctions(ctx, functions)
		if err != nil {
			return nil, fmt.Errorf("function similarity failed: %w", err)
		}
		sortResults(results, req.SortBy)
		response.Duplicates = results

		ds := detector.Statistics()
		stats.PairsEnumerated = ds.PairsEnumerated
		stats.PairsFiltered = ds.PairsFiltered
		stats.PairsCompared = ds.PairsCompared
		stats.DuplicatesFound = len(results)
		for _, r := range results {
			stats.DuplicatedLines += r.Impact
		}

		if req.GroupDuplicates {
			response.Groups = analyzer.NewDuplicateGrouping(req.GroupThreshold).Group(results)
		}
	}

	if req.DetectTypes {
		results, err := detector.FindSimilarTypes(ctx, types)
		if err != nil {
			return nil, fmt.Errorf("type similarity failed: %w", err)
		}
		response.TypeDuplicates = results
		stats.TypeDuplicatesFound = len(results)
	}

	if req.DetectOverlaps {
		overlapOpts := analyzer.OverlapOptions{
			MinWindowSize: req.OverlapMinWindow,
			MaxWindowSize: req.OverlapMaxWindow,
			Threshold:     req.OverlapThreshold,
			SizeTolerance: req.OverlapSizeTolerance,
		}
		overlapDetector := analyzer.NewOverlapDetector(overlapOpts, detector.Config().TSED, req.MaxWorkers)
		overlaps, err := overlapDetector.FindOverlapsAcrossFunctions(ctx, functions)
		if err != nil {
			return nil, fmt.Errorf("overlap detection failed: %w", err)
		}
		response.Overlaps = overlaps
		response.Skipped = append(response.Skipped, overlapDetector.Skipped()...)
		stats.OverlapsFound = len(overlaps)
	}

	stats.SkippedUnits = len(response.Skipped)
	stats.DurationMilliseconds = time.Since(startTime).Milliseconds()
	return response, nil
}

// CompareSources scores two code fragments written in the given language
func (s *SimilarityService) CompareSources(ctx context.Context, source1, source2 []byte, language string, req *domain.SimilarityRequest) (float64, error) {
	if len(source1) == 0 || len(source2) == 0 {
		return 0, domain.NewInvalidInputError("fragments cannot be empty", nil)
	}
	if len(source1) > maxFragmentSize || len(source2) > maxFragmentSize {
		return 0, domain.NewInvalidInputError(fmt.Sprintf("fragment size exceeds maximum allowed size of %d bytes", maxFragmentSize), nil)
	}

	lang, ok := parser.ParseLanguage(language)
	if !ok {
		return 0, domain.NewInvalidInputError(fmt.Sprintf("unsupported language: %s", language), nil)
	}
	if req == nil {
		req = domain.DefaultSimilarityRequest()
	}

	config := analyzer.SimilarityDetectorFromRequest(req)
	return analyzer.CompareSources(ctx, source1, source2, lang, config.TSED)
}

// sortResults reorders results; impact order is what the detector already produces
func sortResults(results []domain.SimilarityResult, by domain.SortCriteria) {
	switch by {
	case domain.SortBySimilarity:
		sort.SliceStable(results, func(i, j int) bool {
			if results[i].Similarity != results[j].Similarity {
				return results[i].Similarity > results[j].Similarity
			}
			return results[i].Impact > results[j].Impact
		})
	case domain.SortByLocation:
		sort.SliceStable(results, func(i, j int) bool {
			a, b := results[i].Function1, results[j].Function1
			if a.FilePath != b.FilePath {
				return a.FilePath < b.FilePath
			}
			return a.StartLine < b.StartLine
		})
	default:
		analyzer.SortSimilarityResults(results)
	}
}
