package app

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/ludo-technologies/simscan/domain"
)

// SimilarityUseCase orchestrates duplicate detection operations
type SimilarityUseCase struct {
	service    domain.SimilarityService
	fileReader domain.FileReader
	formatter  domain.SimilarityOutputFormatter
	reporter   domain.ReportWriter
	verbose    bool
}

// NewSimilarityUseCase creates a new similarity use case with the given dependencies
func NewSimilarityUseCase(
	service domain.SimilarityService,
	fileReader domain.FileReader,
	formatter domain.SimilarityOutputFormatter,
) *SimilarityUseCase {
	return &SimilarityUseCase{
		service:    service,
		fileReader: fileReader,
		formatter:  formatter,
	}
}

// WithReportWriter routes formatted output through rw, which handles report files
func (uc *SimilarityUseCase) WithReportWriter(rw domain.ReportWriter) *SimilarityUseCase {
	uc.reporter = rw
	return uc
}

// SetVerbose enables progress logging on stderr
func (uc *SimilarityUseCase) SetVerbose(verbose bool) {
	uc.verbose = verbose
}

// Analyze collects files and runs detection without writing any output
func (uc *SimilarityUseCase) Analyze(ctx context.Context, req *domain.SimilarityRequest) (*domain.SimilarityResponse, error) {
	if req == nil {
		return nil, domain.NewInvalidInputError("similarity request cannot be nil", nil)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	files, err := ResolveFilePaths(uc.fileReader, req.Paths, req.Recursive, req.IncludePatterns, req.ExcludePatterns, req.Languages)
	if err != nil {
		return nil, fmt.Errorf("failed to collect files: %w", err)
	}
	if uc.verbose {
		log.Printf("Found %d source files to analyze", len(files))
	}

	if len(files) == 0 {
		return &domain.SimilarityResponse{
			Duplicates: []domain.SimilarityResult{},
			Request:    req,
		}, nil
	}

	response, err := uc.service.Analyze(ctx, files, req)
	if err != nil {
		return nil, fmt.Errorf("similarity analysis failed: %w", err)
	}

	if uc.verbose {
		s := response.Statistics
		log.Printf("Compared %d of %d candidate pairs, %d duplicates (%dms)",
			s.PairsCompared, s.PairsEnumerated, s.DuplicatesFound, s.DurationMilliseconds)
		for _, skipped := range response.Skipped {
			log.Printf("Skipped %s %s: %s", skipped.FilePath, skipped.Unit, skipped.Reason)
		}
	}
	return response, nil
}

// Execute runs detection and writes the formatted response to req.OutputWriter,
// or to req.OutputPath when a report writer is configured
func (uc *SimilarityUseCase) Execute(ctx context.Context, req *domain.SimilarityRequest) (*domain.SimilarityResponse, error) {
	if req != nil && !req.HasValidOutputWriter() {
		return nil, domain.NewInvalidInputError("no valid output writer specified", nil)
	}

	response, err := uc.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	write := func(w io.Writer) error {
		return uc.formatter.Write(response, req.OutputFormat, w)
	}
	if uc.reporter != nil {
		err = uc.reporter.Write(req.OutputWriter, req.OutputPath, req.OutputFormat, write)
	} else {
		err = write(req.OutputWriter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to format output: %w", err)
	}
	return response, nil
}

// CompareSources scores two fragments written in the same language
func (uc *SimilarityUseCase) CompareSources(ctx context.Context, source1, source2 []byte, language string, req *domain.SimilarityRequest) (float64, error) {
	similarity, err := uc.service.CompareSources(ctx, source1, source2, language, req)
	if err != nil {
		return 0, fmt.Errorf("failed to compute similarity: %w", err)
	}
	return similarity, nil
}
