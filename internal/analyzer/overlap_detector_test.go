package analyzer

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/simscan/domain"
	"github.com/ludo-technologies/simscan/internal/parser"
)

func TestDetectPartialOverlaps_WindowMatchesBlock(t *testing.T) {
	source := tree("body", leaf("p", 2), leaf("q", 3), leaf("r", 4), leaf("s", 5))
	source.StartLine, source.EndLine = 1, 6

	block := tree("block", leaf("p", 11), leaf("q", 12), leaf("r", 13))
	block.StartLine, block.EndLine = 10, 14
	target := tree("body", block)
	target.StartLine, target.EndLine = 9, 15

	opts := OverlapOptions{MinWindowSize: 3, MaxWindowSize: 4, Threshold: 0.7, SizeTolerance: 0.2}
	overlaps := DetectPartialOverlaps(
		NewIndexedFunction("source", "a.js", 1, 6, source),
		NewIndexedFunction("target", "b.js", 9, 15, target),
		opts,
	)

	require.Len(t, overlaps, 1)
	o := overlaps[0]
	assert.Equal(t, "source", o.SourceFunction)
	assert.Equal(t, "target", o.TargetFunction)
	assert.InDelta(t, 0.75, o.Similarity, 1e-9)
	assert.Equal(t, domain.LineRange{Start: 2, End: 5}, o.SourceLines)
	assert.Equal(t, domain.LineRange{Start: 10, End: 14}, o.TargetLines)
	assert.Equal(t, "block", o.NodeType)
}

func TestDetectPartialOverlaps_NoSharedSubtrees(t *testing.T) {
	source := tree("body", leaf("a", 1), leaf("b", 2))
	target := tree("body", leaf("c", 1), leaf("d", 2))

	overlaps := DetectPartialOverlaps(
		NewIndexedFunction("x", "a.js", 1, 2, source),
		NewIndexedFunction("y", "b.js", 1, 2, target),
		DefaultOverlapOptions(),
	)
	assert.Empty(t, overlaps)
}

func match(similarity float64, src, tgt domain.LineRange) overlapMatch {
	return overlapMatch{overlap: domain.PartialOverlap{
		Similarity:  similarity,
		SourceLines: src,
		TargetLines: tgt,
	}}
}

func TestDeduplicateOverlaps(t *testing.T) {
	matches := []overlapMatch{
		match(0.95, domain.LineRange{Start: 1, End: 10}, domain.LineRange{Start: 20, End: 30}),
		match(0.90, domain.LineRange{Start: 2, End: 5}, domain.LineRange{Start: 21, End: 25}),  // contained
		match(0.85, domain.LineRange{Start: 2, End: 12}, domain.LineRange{Start: 21, End: 25}), // source escapes
		match(0.80, domain.LineRange{Start: 40, End: 45}, domain.LineRange{Start: 50, End: 55}),
	}

	kept := deduplicateOverlaps(matches)
	require.Len(t, kept, 3)
	assert.Equal(t, 0.95, kept[0].overlap.Similarity)
	assert.Equal(t, 0.85, kept[1].overlap.Similarity)
	assert.Equal(t, 0.80, kept[2].overlap.Similarity)

	overlaps := make([]domain.PartialOverlap, len(kept))
	for i, k := range kept {
		overlaps[i] = k.overlap
	}
	assertNoContainedOverlaps(t, overlaps)

	assert.Empty(t, deduplicateOverlaps(nil))
}

func assertNoContainedOverlaps(t *testing.T, overlaps []domain.PartialOverlap) {
	t.Helper()
	for i := range overlaps {
		for j := range overlaps {
			if i == j {
				continue
			}
			a, b := overlaps[i], overlaps[j]
			assert.False(t, a.SourceLines.Contains(b.SourceLines) && a.TargetLines.Contains(b.TargetLines),
				"overlap %v/%v lies inside %v/%v", b.SourceLines, b.TargetLines, a.SourceLines, a.TargetLines)
		}
	}
}

func TestDeduplicateOverlaps_LaterOverlapContainsEarlier(t *testing.T) {
	matches := []overlapMatch{
		match(0.95, domain.LineRange{Start: 3, End: 7}, domain.LineRange{Start: 3, End: 7}),
		match(0.90, domain.LineRange{Start: 20, End: 25}, domain.LineRange{Start: 30, End: 35}),
		match(0.60, domain.LineRange{Start: 2, End: 7}, domain.LineRange{Start: 3, End: 7}),
		match(0.50, domain.LineRange{Start: 1, End: 8}, domain.LineRange{Start: 2, End: 9}),
	}

	kept := deduplicateOverlaps(matches)
	require.Len(t, kept, 2)
	assert.Equal(t, 0.90, kept[0].overlap.Similarity)
	assert.Equal(t, 0.50, kept[1].overlap.Similarity)
}

func TestDetectPartialOverlaps_NoContainedResults(t *testing.T) {
	p, err := parser.NewTreeSitterParser(parser.LanguageJavaScript)
	require.NoError(t, err)
	file, err := p.ParseSource(context.Background(), []byte(overlapSource), "overlap.js")
	require.NoError(t, err)
	units, _, _ := BuildUnits(file)
	require.Len(t, units, 2)

	opts := OverlapOptions{MinWindowSize: 3, MaxWindowSize: 60, Threshold: 0.3, SizeTolerance: 0.3}
	overlaps := DetectPartialOverlaps(units[0].Indexed(), units[1].Indexed(), opts)
	require.NotEmpty(t, overlaps)
	assertNoContainedOverlaps(t, overlaps)

	for i := 1; i < len(overlaps); i++ {
		assert.GreaterOrEqual(t, overlaps[i-1].Similarity, overlaps[i].Similarity)
	}
}

func TestExtractCodeSegment(t *testing.T) {
	source := "line1\nline2\nline3\nline4\n"

	segment, err := ExtractCodeSegment(source, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, "line2\nline3", segment)

	segment, err = ExtractCodeSegment(source, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, "line4", segment)

	for _, r := range [][2]int{{0, 2}, {3, 2}, {1, 5}, {5, 5}} {
		_, err := ExtractCodeSegment(source, r[0], r[1])
		require.Error(t, err, "range %v", r)
		assert.True(t, domain.IsOutOfBounds(err), "range %v", r)
	}
}

func TestOverlapOptions_Validate(t *testing.T) {
	assert.NoError(t, DefaultOverlapOptions().Validate())

	bad := DefaultOverlapOptions()
	bad.MaxWindowSize = bad.MinWindowSize - 1
	assert.Error(t, bad.Validate())

	bad = DefaultOverlapOptions()
	bad.SizeTolerance = 1.0
	assert.Error(t, bad.Validate())
}

const overlapSource = `function first(items) {
  const seen = new Set();
  for (const item of items) {
    if (item.active && !seen.has(item.id)) {
      seen.add(item.id);
      console.log(item.name);
    }
  }
  return seen.size;
}

function second(records) {
  let count = 0;
  const seen = new Set();
  for (const item of records) {
    if (item.active && !seen.has(item.id)) {
      seen.add(item.id);
      console.log(item.name);
    }
  }
  count = seen.size * 2;
  return count;
}
`

func TestOverlapDetector_FindOverlapsAcrossFunctions(t *testing.T) {
	p, err := parser.NewTreeSitterParser(parser.LanguageJavaScript)
	require.NoError(t, err)
	file, err := p.ParseSource(context.Background(), []byte(overlapSource), "overlap.js")
	require.NoError(t, err)

	units, _, skipped := BuildUnits(file)
	require.Empty(t, skipped)
	require.Len(t, units, 2)

	opts := OverlapOptions{MinWindowSize: 5, MaxWindowSize: 40, Threshold: 0.5, SizeTolerance: 0.2}
	detector := NewOverlapDetector(opts, DefaultTSEDOptions(), 2)
	overlaps, err := detector.FindOverlapsAcrossFunctions(context.Background(), units)
	require.NoError(t, err)

	for i, o := range overlaps {
		assert.Equal(t, "overlap.js", o.SourceFile)
		assert.Equal(t, "overlap.js", o.TargetFile)
		assert.NotEmpty(t, o.SourceCode)
		assert.NotEmpty(t, o.TargetCode)
		assert.GreaterOrEqual(t, o.Overlap.Similarity, opts.Threshold)
		assert.Equal(t, o.Overlap.Similarity > exactTSEDThreshold, o.HasExactTED)
		if i > 0 {
			assert.GreaterOrEqual(t, overlaps[i-1].Overlap.Similarity, o.Overlap.Similarity)
		}
	}
}

func blockUnits() (source, target *TreeNode) {
	source = tree("body", leaf("p", 2), leaf("q", 3), leaf("r", 4), leaf("s", 5))
	source.StartLine, source.EndLine = 1, 6

	block := tree("block", leaf("p", 11), leaf("q", 12), leaf("r", 13))
	block.StartLine, block.EndLine = 10, 14
	target = tree("body", block)
	target.StartLine, target.EndLine = 9, 15
	return source, target
}

func TestOverlapDetector_SkipsUnextractableOverlap(t *testing.T) {
	lines := func(n int) []byte {
		var b []byte
		for i := 1; i <= n; i++ {
			b = append(b, fmt.Sprintf("line %d\n", i)...)
		}
		return b
	}

	brokenTree, targetTree := blockUnits()
	goodTree, _ := blockUnits()

	// broken.js holds fewer lines than its definition claims
	broken := NewFunctionUnit(domain.FunctionDefinition{Name: "broken", FilePath: "broken.js", StartLine: 1, EndLine: 6}, brokenTree, lines(1))
	good := NewFunctionUnit(domain.FunctionDefinition{Name: "good", FilePath: "good.js", StartLine: 1, EndLine: 6}, goodTree, lines(6))
	target := NewFunctionUnit(domain.FunctionDefinition{Name: "target", FilePath: "target.js", StartLine: 9, EndLine: 15}, targetTree, lines(15))

	opts := OverlapOptions{MinWindowSize: 3, MaxWindowSize: 4, Threshold: 0.7, SizeTolerance: 0.2}
	detector := NewOverlapDetector(opts, DefaultTSEDOptions(), 1)
	overlaps, err := detector.FindOverlapsAcrossFunctions(context.Background(), []*FunctionUnit{broken, good, target})
	require.NoError(t, err)

	require.Len(t, overlaps, 1)
	assert.Equal(t, "good.js", overlaps[0].SourceFile)
	assert.Equal(t, "line 2\nline 3\nline 4\nline 5", overlaps[0].SourceCode)

	skipped := detector.Skipped()
	require.Len(t, skipped, 1)
	assert.Equal(t, "broken.js", skipped[0].FilePath)
	assert.Contains(t, skipped[0].Reason, "OUT_OF_BOUNDS")
}

func TestOverlapDetector_InvalidOptions(t *testing.T) {
	detector := NewOverlapDetector(OverlapOptions{}, DefaultTSEDOptions(), 1)
	_, err := detector.FindOverlapsAcrossFunctions(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, domain.IsInvalidConfiguration(err))
}

func TestOverlapDetector_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	detector := NewOverlapDetector(DefaultOverlapOptions(), DefaultTSEDOptions(), 1)
	_, err := detector.FindOverlapsAcrossFunctions(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
