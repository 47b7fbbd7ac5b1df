package analyzer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ludo-technologies/simscan/domain"
)

// exactTSEDThreshold is the fingerprint similarity above which an overlap is
// re-scored with the exact tree edit distance
const exactTSEDThreshold = 0.9

// OverlapOptions configures partial overlap detection
type OverlapOptions struct {
	MinWindowSize int
	MaxWindowSize int
	Threshold     float64
	SizeTolerance float64
}

// DefaultOverlapOptions returns the default overlap settings
func DefaultOverlapOptions() OverlapOptions {
	return OverlapOptions{
		MinWindowSize: domain.DefaultOverlapMinWindow,
		MaxWindowSize: domain.DefaultOverlapMaxWindow,
		Threshold:     domain.DefaultOverlapThreshold,
		SizeTolerance: domain.DefaultOverlapSizeTolerance,
	}
}

// Validate checks the options
func (o OverlapOptions) Validate() error {
	if o.MinWindowSize <= 0 || o.MaxWindowSize < o.MinWindowSize {
		return domain.NewInvalidConfigurationError(fmt.Sprintf("invalid overlap window range %d-%d", o.MinWindowSize, o.MaxWindowSize))
	}
	if o.Threshold < 0 || o.Threshold > 1 {
		return domain.NewInvalidConfigurationError(fmt.Sprintf("overlap threshold must be between 0.0 and 1.0, got %v", o.Threshold))
	}
	if o.SizeTolerance < 0 || o.SizeTolerance >= 1 {
		return domain.NewInvalidConfigurationError(fmt.Sprintf("overlap size tolerance must be in [0.0, 1.0), got %v", o.SizeTolerance))
	}
	return nil
}

// overlapMatch is a found overlap together with the fingerprints that matched
type overlapMatch struct {
	overlap domain.PartialOverlap
	source  *SubtreeFingerprint
	target  *SubtreeFingerprint
}

// DetectPartialOverlaps finds windows of the source function that match
// subtrees of the target function
func DetectPartialOverlaps(source, target *IndexedFunction, opts OverlapOptions) []domain.PartialOverlap {
	matches := detectOverlapMatches(source, target, opts)
	overlaps := make([]domain.PartialOverlap, len(matches))
	for i, m := range matches {
		overlaps[i] = m.overlap
	}
	return overlaps
}

func detectOverlapMatches(source, target *IndexedFunction, opts OverlapOptions) []overlapMatch {
	if !source.MightOverlap(target) {
		return nil
	}

	var matches []overlapMatch
	for windowSize := opts.MinWindowSize; windowSize <= opts.MaxWindowSize; windowSize++ {
		sizeMin := int(float64(windowSize) * (1.0 - opts.SizeTolerance))
		sizeMax := int(float64(windowSize) * (1.0 + opts.SizeTolerance))
		targets := target.SubtreesInSizeRange(sizeMin, sizeMax)
		if len(targets) == 0 {
			continue
		}

		windows := CreateSlidingWindows(source, windowSize)
		for i := range windows {
			window := &windows[i]
			for _, candidate := range targets {
				if !window.MightBeSimilar(candidate, opts.SizeTolerance) {
					continue
				}

				similarity := 1.0
				if window.Hash != candidate.Hash {
					similarity = fingerprintSimilarity(window, candidate)
				}
				if similarity < opts.Threshold {
					continue
				}

				matches = append(matches, overlapMatch{
					overlap: domain.PartialOverlap{
						SourceFunction: source.Name,
						TargetFunction: target.Name,
						SourceLines:    domain.LineRange{Start: window.StartLine, End: window.EndLine},
						TargetLines:    domain.LineRange{Start: candidate.StartLine, End: candidate.EndLine},
						Similarity:     similarity,
						NodeCount:      window.Weight,
						NodeType:       candidate.NodeType,
					},
					source: window,
					target: candidate,
				})
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].overlap.Similarity > matches[j].overlap.Similarity
	})
	return deduplicateOverlaps(matches)
}

// fingerprintSimilarity is the Jaccard index of child hashes, or 0.5 when
// either side has no children
func fingerprintSimilarity(fp1, fp2 *SubtreeFingerprint) float64 {
	if len(fp1.ChildHashes) == 0 || len(fp2.ChildHashes) == 0 {
		return 0.5
	}
	set1 := make(map[uint64]bool, len(fp1.ChildHashes))
	for _, h := range fp1.ChildHashes {
		set1[h] = true
	}
	set2 := make(map[uint64]bool, len(fp2.ChildHashes))
	for _, h := range fp2.ChildHashes {
		set2[h] = true
	}
	intersection := 0
	for h := range set1 {
		if set2[h] {
			intersection++
		}
	}
	union := len(set1) + len(set2) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// deduplicateOverlaps keeps an overlap only if no already kept overlap
// contains both of its line ranges, then drops kept overlaps that a later,
// larger one swallowed. Input must be sorted best first.
func deduplicateOverlaps(matches []overlapMatch) []overlapMatch {
	if len(matches) == 0 {
		return matches
	}
	kept := []overlapMatch{matches[0]}
	for _, m := range matches[1:] {
		duplicate := false
		for _, k := range kept {
			if overlapContains(k.overlap, m.overlap) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, m)
		}
	}

	// No two kept overlaps share both ranges, so containment here is strict.
	result := kept[:0:0]
	for i, m := range kept {
		contained := false
		for j, other := range kept {
			if i != j && overlapContains(other.overlap, m.overlap) {
				contained = true
				break
			}
		}
		if !contained {
			result = append(result, m)
		}
	}
	return result
}

// overlapContains reports whether outer covers inner in both source and target lines
func overlapContains(outer, inner domain.PartialOverlap) bool {
	return outer.SourceLines.Contains(inner.SourceLines) && outer.TargetLines.Contains(inner.TargetLines)
}

// ExtractCodeSegment returns the inclusive 1-based line range of source
func ExtractCodeSegment(source string, startLine, endLine int) (string, error) {
	lines := strings.Split(strings.TrimRight(source, "\n"), "\n")
	if startLine < 1 || endLine < startLine || startLine > len(lines) || endLine > len(lines) {
		return "", domain.NewOutOfBoundsError(startLine, endLine, len(lines))
	}
	return strings.Join(lines[startLine-1:endLine], "\n"), nil
}

// OverlapDetector finds partial overlaps between functions
type OverlapDetector struct {
	options     OverlapOptions
	tsedOptions TSEDOptions
	maxWorkers  int

	skipped []domain.SkippedUnit
}

// NewOverlapDetector creates an overlap detector
func NewOverlapDetector(options OverlapOptions, tsedOptions TSEDOptions, maxWorkers int) *OverlapDetector {
	return &OverlapDetector{
		options:     options,
		tsedOptions: tsedOptions,
		maxWorkers:  maxWorkers,
	}
}

// FindOverlapsAcrossFunctions compares every pair of functions, inside each
// file and across files, skipping a function and the functions nested in it
func (d *OverlapDetector) FindOverlapsAcrossFunctions(ctx context.Context, units []*FunctionUnit) ([]domain.DetailedOverlap, error) {
	if err := d.options.Validate(); err != nil {
		return nil, err
	}

	indexed := make([]*IndexedFunction, len(units))
	for i, u := range units {
		indexed[i] = u.Indexed()
	}

	type pair struct{ i, j int }
	var pairs []pair
	for i := 0; i < len(units); i++ {
		for j := i + 1; j < len(units); j++ {
			if isNestedPair(units[i], units[j]) {
				continue
			}
			pairs = append(pairs, pair{i, j})
		}
	}

	results := make([][]domain.DetailedOverlap, len(pairs))
	failures := make([][]domain.SkippedUnit, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerLimit(d.maxWorkers))
	for k, p := range pairs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			src, tgt := units[p.i], units[p.j]
			for _, m := range detectOverlapMatches(indexed[p.i], indexed[p.j], d.options) {
				detailed, err := d.detail(src, tgt, m)
				if err != nil {
					failures[k] = append(failures[k], domain.SkippedUnit{
						FilePath: src.Definition.FilePath,
						Unit:     src.Definition.QualifiedName() + " <-> " + tgt.Definition.QualifiedName(),
						Reason:   fmt.Sprintf("overlap skipped: %v", err),
					})
					continue
				}
				results[k] = append(results[k], detailed)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.skipped = nil
	for _, f := range failures {
		d.skipped = append(d.skipped, f...)
	}

	var overlaps []domain.DetailedOverlap
	for _, r := range results {
		overlaps = append(overlaps, r...)
	}
	sort.SliceStable(overlaps, func(i, j int) bool {
		if overlaps[i].Overlap.Similarity != overlaps[j].Overlap.Similarity {
			return overlaps[i].Overlap.Similarity > overlaps[j].Overlap.Similarity
		}
		return overlaps[i].Overlap.NodeCount > overlaps[j].Overlap.NodeCount
	})
	return overlaps, ctx.Err()
}

// Skipped returns the overlaps of the last run whose code could not be extracted
func (d *OverlapDetector) Skipped() []domain.SkippedUnit {
	return d.skipped
}

func (d *OverlapDetector) detail(src, tgt *FunctionUnit, m overlapMatch) (domain.DetailedOverlap, error) {
	detailed := domain.DetailedOverlap{
		Overlap:    m.overlap,
		SourceFile: src.Definition.FilePath,
		TargetFile: tgt.Definition.FilePath,
	}

	sourceCode, err := ExtractCodeSegment(string(src.Source), m.overlap.SourceLines.Start, m.overlap.SourceLines.End)
	if err != nil {
		return detailed, fmt.Errorf("%s: %w", src.Definition.Location(), err)
	}
	targetCode, err := ExtractCodeSegment(string(tgt.Source), m.overlap.TargetLines.Start, m.overlap.TargetLines.End)
	if err != nil {
		return detailed, fmt.Errorf("%s: %w", tgt.Definition.Location(), err)
	}
	detailed.SourceCode = sourceCode
	detailed.TargetCode = targetCode

	if m.overlap.Similarity > exactTSEDThreshold {
		sourceLines := m.overlap.SourceLines.End - m.overlap.SourceLines.Start + 1
		targetLines := m.overlap.TargetLines.End - m.overlap.TargetLines.Start + 1
		detailed.ExactTSED = CalculateTSED(m.source.Tree(), m.target.Tree(), sourceLines, targetLines, d.tsedOptions)
		detailed.HasExactTED = true
	}
	return detailed, nil
}

// isNestedPair reports whether one unit is defined inside the other's body
func isNestedPair(a, b *FunctionUnit) bool {
	if a.Definition.FilePath != b.Definition.FilePath {
		return false
	}
	return a.Definition.Span.StrictlyContains(b.Definition.Span) ||
		b.Definition.Span.StrictlyContains(a.Definition.Span)
}
