package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/simscan/domain"
)

func fn(name, file string, start, end int) domain.FunctionDefinition {
	return domain.FunctionDefinition{
		Name:      name,
		FilePath:  file,
		StartLine: start,
		EndLine:   end,
		Span:      domain.Span{Start: start * 100, End: end * 100},
	}
}

func TestDuplicateGrouping_ConnectedComponents(t *testing.T) {
	a := fn("a", "x.js", 1, 10)
	b := fn("b", "x.js", 20, 30)
	c := fn("c", "y.js", 1, 10)
	d := fn("d", "z.js", 1, 5)
	e := fn("e", "z.js", 10, 15)

	results := []domain.SimilarityResult{
		domain.NewSimilarityResult(a, b, 0.95),
		domain.NewSimilarityResult(b, c, 0.90),
		domain.NewSimilarityResult(d, e, 0.99),
		domain.NewSimilarityResult(a, d, 0.50), // below group threshold
	}

	groups := NewDuplicateGrouping(0.87).Group(results)
	require.Len(t, groups, 2)

	// highest average similarity first
	assert.Equal(t, 1, groups[0].ID)
	assert.Equal(t, 2, groups[0].Size)
	assert.InDelta(t, 0.99, groups[0].Similarity, 1e-9)
	assert.Equal(t, "d", groups[0].Functions[0].Name)

	assert.Equal(t, 3, groups[1].Size)
	assert.Equal(t, []string{"a", "b", "c"}, []string{
		groups[1].Functions[0].Name, groups[1].Functions[1].Name, groups[1].Functions[2].Name,
	})
	// a-b and b-c are known; a-c is not
	assert.InDelta(t, 0.925, groups[1].Similarity, 1e-9)
}

func TestDuplicateGrouping_Empty(t *testing.T) {
	assert.Empty(t, NewDuplicateGrouping(0.8).Group(nil))

	// a single weak pair forms no group
	weak := []domain.SimilarityResult{
		domain.NewSimilarityResult(fn("a", "x.js", 1, 5), fn("b", "y.js", 1, 5), 0.3),
	}
	assert.Empty(t, NewDuplicateGrouping(0.8).Group(weak))
}

func TestMinHasher(t *testing.T) {
	hasher := NewMinHasher(64)
	assert.Equal(t, 64, hasher.NumHashes())
	assert.Equal(t, 128, NewMinHasher(0).NumHashes())

	s1 := hasher.ComputeSignature([]string{"a", "b", "c"})
	s2 := hasher.ComputeSignature([]string{"c", "b", "a", "a"})
	assert.Equal(t, 1.0, hasher.EstimateJaccardSimilarity(s1, s2))

	s3 := hasher.ComputeSignature([]string{"x", "y", "z"})
	assert.Less(t, hasher.EstimateJaccardSimilarity(s1, s3), 0.5)
	assert.Equal(t, 0.0, hasher.EstimateJaccardSimilarity(nil, s1))

	empty := hasher.ComputeSignatureFromHashes(nil)
	assert.Equal(t, 64, empty.GetNumHashes())
}

func TestLSHIndex_Candidates(t *testing.T) {
	index := NewLSHIndex(LSHConfig{Bands: 16, Rows: 4})
	hasher := NewMinHasher(64)

	shared := []uint64{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, index.AddFragment(0, hasher.ComputeSignatureFromHashes(shared)))
	require.NoError(t, index.AddFragment(1, hasher.ComputeSignatureFromHashes(shared)))
	require.NoError(t, index.AddFragment(2, hasher.ComputeSignatureFromHashes([]uint64{100, 200, 300})))

	assert.Equal(t, 3, index.Size())
	assert.Contains(t, index.CandidatePairs(), [2]int{0, 1})
	assert.Equal(t, []int{0, 1}, index.FindCandidates(hasher.ComputeSignatureFromHashes(shared)))

	stats := index.GetStats()
	assert.Equal(t, 3, stats.NumFragments)
	assert.Equal(t, 16, stats.Bands)

	err := index.AddFragment(3, NewMinHasher(8).ComputeSignatureFromHashes(shared))
	assert.Error(t, err, "signature shorter than bands*rows")
	assert.Error(t, index.AddFragment(4, nil))
}

func TestLSHIndex_DefaultThreshold(t *testing.T) {
	index := NewDefaultLSHIndex()
	assert.InDelta(t, 0.42, index.Threshold(), 0.01)
}
