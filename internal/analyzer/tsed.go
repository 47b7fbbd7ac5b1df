package analyzer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ludo-technologies/simscan/domain"
	"github.com/ludo-technologies/simscan/internal/parser"
)

// sizePenaltyLines is the average line count below which short code is penalized
const sizePenaltyLines = 10.0

// TSEDOptions configures tree similarity edit distance scoring
type TSEDOptions struct {
	APTED APTEDOptions

	// MinLines filters out functions shorter than this
	MinLines int

	// MinTokens is a node count floor used instead of MinLines when non-zero
	MinTokens int

	// SizePenalty scales down scores of short code
	SizePenalty bool

	// SkipTest skips functions that look like tests
	SkipTest bool
}

// DefaultTSEDOptions returns the default scoring options
func DefaultTSEDOptions() TSEDOptions {
	return TSEDOptions{
		APTED:       DefaultAPTEDOptions(),
		MinLines:    5,
		MinTokens:   0,
		SizePenalty: true,
		SkipTest:    false,
	}
}

// Validate checks the options
func (o TSEDOptions) Validate() error {
	if err := o.APTED.Validate(); err != nil {
		return err
	}
	if o.MinLines < 0 {
		return domain.NewInvalidConfigurationError(fmt.Sprintf("min_lines must be non-negative, got %d", o.MinLines))
	}
	if o.MinTokens < 0 {
		return domain.NewInvalidConfigurationError(fmt.Sprintf("min_tokens must be non-negative, got %d", o.MinTokens))
	}
	return nil
}

// CalculateTSED scores two trees in [0, 1]. lines1 and lines2 are the source
// line counts of the compared units and only matter for the size penalty.
func CalculateTSED(tree1, tree2 *TreeNode, lines1, lines2 int, opts TSEDOptions) float64 {
	analyzer := NewAPTEDAnalyzer(opts.APTED)
	distance := analyzer.ComputeDistance(tree1, tree2)
	return tsedFromDistance(distance, tree1.Size(), tree2.Size(), lines1, lines2, opts.SizePenalty)
}

func tsedFromDistance(distance float64, size1, size2, lines1, lines2 int, sizePenalty bool) float64 {
	similarity := similarityFromDistance(distance, size1, size2)

	if sizePenalty {
		avgLines := float64(lines1+lines2) / 2.0
		if avgLines < sizePenaltyLines {
			similarity *= avgLines / sizePenaltyLines
		}
	}

	return clamp01(similarity)
}

// CompareSources parses two fragments of the same language and scores them
func CompareSources(ctx context.Context, source1, source2 []byte, lang parser.Language, opts TSEDOptions) (float64, error) {
	if err := opts.Validate(); err != nil {
		return 0, err
	}

	p, err := parser.NewTreeSitterParser(lang)
	if err != nil {
		return 0, err
	}

	root1, err := p.Parse(ctx, source1)
	if err != nil {
		return 0, fmt.Errorf("first source: %w", err)
	}
	root2, err := p.Parse(ctx, source2)
	if err != nil {
		return 0, fmt.Errorf("second source: %w", err)
	}

	return CalculateTSED(ConvertTree(root1), ConvertTree(root2), countLines(source1), countLines(source2), opts), nil
}

// countLines counts source lines, ignoring a trailing newline
func countLines(source []byte) int {
	trimmed := bytes.TrimRight(source, "\r\n")
	if len(trimmed) == 0 {
		return 0
	}
	return bytes.Count(trimmed, []byte("\n")) + 1
}
