package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/simscan/domain"
)

const pricesJS = `function sumPrices(items) {
  let total = 0;
  for (const item of items) {
    if (item.price > 0) {
      total += item.price;
    } else {
      total -= item.discount;
    }
  }
  console.log(total);
  return total;
}
`

const costsJS = `function addCosts(entries) {
  let sum = 0;
  for (const entry of entries) {
    if (entry.cost > 0) {
      sum += entry.cost;
    } else {
      sum -= entry.refund;
    }
  }
  console.log(sum);
  return sum;
}
`

func writeSources(t *testing.T, files map[string]string) []string {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		paths = append(paths, path)
	}
	return paths
}

func TestSimilarityService_Analyze(t *testing.T) {
	files := writeSources(t, map[string]string{"prices.js": pricesJS, "costs.js": costsJS})

	resp, err := NewSimilarityService(nil).Analyze(context.Background(), files, domain.DefaultSimilarityRequest())
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Statistics.FilesAnalyzed)
	assert.Equal(t, 2, resp.Statistics.FunctionsExtracted)
	require.Len(t, resp.Duplicates, 1)
	assert.GreaterOrEqual(t, resp.Duplicates[0].Similarity, 0.8)
	assert.Equal(t, resp.Duplicates[0].Impact, resp.Statistics.DuplicatedLines)
	assert.Empty(t, resp.Skipped)
}

func TestSimilarityService_AnalyzeRecordsSkippedFiles(t *testing.T) {
	files := writeSources(t, map[string]string{"prices.js": pricesJS, "broken.js": "function broken( {\n"})

	resp, err := NewSimilarityService(nil).Analyze(context.Background(), files, domain.DefaultSimilarityRequest())
	require.NoError(t, err)

	require.Len(t, resp.Skipped, 1)
	assert.Equal(t, 1, resp.Statistics.SkippedUnits)
	assert.Empty(t, resp.Duplicates)
}

func TestSimilarityService_AnalyzeGroups(t *testing.T) {
	files := writeSources(t, map[string]string{"prices.js": pricesJS, "costs.js": costsJS})
	req := domain.DefaultSimilarityRequest()
	req.GroupDuplicates = true

	resp, err := NewSimilarityService(nil).Analyze(context.Background(), files, req)
	require.NoError(t, err)

	require.Len(t, resp.Groups, 1)
	assert.Equal(t, 2, resp.Groups[0].Size)
}

func TestSimilarityService_SizePenaltySuppressesShortFunctions(t *testing.T) {
	short1 := "function bump(x) {\n  let y = x + 1;\n  if (y > 2) {\n    y = y * 2;\n  }\n  return y;\n}\n"
	short2 := "function grow(n) {\n  let m = n + 1;\n  if (m > 2) {\n    m = m * 2;\n  }\n  return m;\n}\n"
	files := writeSources(t, map[string]string{"bump.js": short1, "grow.js": short2})
	svc := NewSimilarityService(nil)

	req := domain.DefaultSimilarityRequest()
	resp, err := svc.Analyze(context.Background(), files, req)
	require.NoError(t, err)
	assert.Empty(t, resp.Duplicates, "7-line pair scores 0.7 with the size penalty")

	req = domain.DefaultSimilarityRequest()
	req.SizePenalty = false
	resp, err = svc.Analyze(context.Background(), files, req)
	require.NoError(t, err)
	require.Len(t, resp.Duplicates, 1)
	assert.InDelta(t, 1.0, resp.Duplicates[0].Similarity, 1e-9)
}

func TestSimilarityService_AnalyzeInvalidRequest(t *testing.T) {
	svc := NewSimilarityService(nil)

	_, err := svc.Analyze(context.Background(), nil, nil)
	assert.Error(t, err)

	req := domain.DefaultSimilarityRequest()
	req.Threshold = -1
	_, err = svc.Analyze(context.Background(), nil, req)
	assert.Error(t, err)
}

func TestSimilarityService_CompareSources(t *testing.T) {
	svc := NewSimilarityService(nil)

	score, err := svc.CompareSources(context.Background(), []byte(pricesJS), []byte(pricesJS), "javascript", nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)

	score, err = svc.CompareSources(context.Background(), []byte(pricesJS), []byte(costsJS), "javascript", nil)
	require.NoError(t, err)
	assert.Greater(t, score, 0.5)
	assert.LessOrEqual(t, score, 1.0)
}

func TestSimilarityService_CompareSourcesErrors(t *testing.T) {
	svc := NewSimilarityService(nil)

	tests := []struct {
		name     string
		src1     []byte
		src2     []byte
		language string
	}{
		{name: "empty fragment", src1: nil, src2: []byte(pricesJS), language: "javascript"},
		{name: "unknown language", src1: []byte("x"), src2: []byte("y"), language: "cobol"},
		{name: "oversized fragment", src1: make([]byte, maxFragmentSize+1), src2: []byte("y"), language: "javascript"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CompareSources(context.Background(), tt.src1, tt.src2, tt.language, nil)
			require.Error(t, err)
			assert.True(t, domain.HasErrorCode(err, domain.ErrCodeInvalidInput))
		})
	}
}

func TestSortResults(t *testing.T) {
	mk := func(path string, start int, sim float64, lines int) domain.SimilarityResult {
		f := domain.FunctionDefinition{FilePath: path, StartLine: start, EndLine: start + lines - 1}
		return domain.NewSimilarityResult(f, f, sim)
	}
	results := []domain.SimilarityResult{mk("b.js", 1, 0.9, 10), mk("a.js", 5, 0.99, 3), mk("a.js", 1, 0.95, 6)}

	sortResults(results, domain.SortBySimilarity)
	assert.Equal(t, 0.99, results[0].Similarity)

	sortResults(results, domain.SortByLocation)
	assert.Equal(t, "a.js", results[0].Function1.FilePath)
	assert.Equal(t, 1, results[0].Function1.StartLine)
}
