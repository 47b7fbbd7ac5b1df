package service

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/simscan/domain"
)

func sampleResponse(path string) *domain.SimilarityResponse {
	f1 := domain.FunctionDefinition{Name: "sumPrices", FilePath: path, StartLine: 1, EndLine: 3, Language: "javascript"}
	f2 := domain.FunctionDefinition{Name: "addCosts", ClassName: "Ledger", FilePath: path, StartLine: 5, EndLine: 7, Language: "javascript"}
	req := domain.DefaultSimilarityRequest()
	return &domain.SimilarityResponse{
		Duplicates: []domain.SimilarityResult{domain.NewSimilarityResult(f1, f2, 0.93)},
		Skipped:    []domain.SkippedUnit{{FilePath: "broken.js", Reason: "syntax errors found in source code"}},
		Statistics: domain.SimilarityStatistics{
			FilesAnalyzed:      1,
			FunctionsExtracted: 2,
			DuplicatesFound:    1,
			DuplicatedLines:    3,
			SkippedUnits:       1,
		},
		Request: req,
	}
}

func TestOutputFormatter_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewOutputFormatter().Write(sampleResponse("a.js"), domain.OutputFormatText, &buf))

	out := buf.String()
	assert.Contains(t, out, "Code Similarity Report")
	assert.Contains(t, out, "Function Duplicates")
	assert.Contains(t, out, "Similarity: 93.00%")
	assert.Contains(t, out, "Ledger.addCosts")
	assert.Contains(t, out, "Skipped")
	assert.Contains(t, out, "Files analyzed")
}

func TestOutputFormatter_TextTypeProperties(t *testing.T) {
	resp := &domain.SimilarityResponse{Request: domain.DefaultSimilarityRequest()}
	resp.TypeDuplicates = []domain.TypeSimilarityResult{{
		Type1:      domain.TypeDefinition{Name: "User", Kind: domain.TypeKindInterface, FilePath: "a.ts", StartLine: 1, EndLine: 5},
		Type2:      domain.TypeDefinition{Name: "Account", Kind: domain.TypeKindInterface, FilePath: "b.ts", StartLine: 1, EndLine: 6},
		Similarity: 0.9,
		Impact:     5,
		MatchedProperties: []domain.PropertyMatch{
			{Property1: "id", Property2: "id", Similarity: 1},
			{Property1: "age", Property2: "age", Similarity: 0.7},
		},
		ExtraProperties: []string{"email"},
		TypeMismatches:  []domain.PropertyMismatch{{Property1: "age", Property2: "age", Type1: "number", Type2: "string"}},
	}}

	var buf bytes.Buffer
	require.NoError(t, NewOutputFormatter().Write(resp, domain.OutputFormatText, &buf))
	out := buf.String()
	assert.Contains(t, out, "Type Duplicates")
	assert.Contains(t, out, "properties: 2 matched, 0 only in User, 1 only in Account")
	assert.Contains(t, out, "age: number vs age: string")
}

func TestOutputFormatter_TextNoDuplicates(t *testing.T) {
	var buf bytes.Buffer
	resp := &domain.SimilarityResponse{Request: domain.DefaultSimilarityRequest()}
	require.NoError(t, NewOutputFormatter().Write(resp, "", &buf))
	assert.Contains(t, buf.String(), "No duplicates found!")
}

func TestOutputFormatter_TextShowCode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.js")
	src := "function one() {\n  return 1;\n}\n\nfunction two() {\n  return 2;\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	resp := sampleResponse(path)
	resp.Request.ShowCode = true

	var buf bytes.Buffer
	require.NoError(t, NewOutputFormatter().Write(resp, domain.OutputFormatText, &buf))
	assert.Contains(t, buf.String(), "return 1;")
	assert.Contains(t, buf.String(), "return 2;")
}

func TestOutputFormatter_Groups(t *testing.T) {
	resp := sampleResponse("a.js")
	resp.Request.GroupDuplicates = true
	resp.Groups = []domain.DuplicateGroup{{
		ID:         1,
		Functions:  []domain.FunctionDefinition{resp.Duplicates[0].Function1, resp.Duplicates[0].Function2},
		Similarity: 0.93,
		Size:       2,
	}}

	var buf bytes.Buffer
	require.NoError(t, NewOutputFormatter().Write(resp, domain.OutputFormatText, &buf))
	assert.Contains(t, buf.String(), "Group 1 (2 functions")
}

func TestOutputFormatter_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewOutputFormatter().Write(sampleResponse("a.js"), domain.OutputFormatJSON, &buf))

	var decoded domain.SimilarityResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Duplicates, 1)
	assert.Equal(t, "sumPrices", decoded.Duplicates[0].Function1.Name)
	assert.Equal(t, 1, decoded.Statistics.DuplicatesFound)
}

func TestOutputFormatter_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewOutputFormatter().Write(sampleResponse("a.js"), domain.OutputFormatYAML, &buf))

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "duplicates")
}

func TestOutputFormatter_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewOutputFormatter().Write(sampleResponse("a.js"), domain.OutputFormatCSV, &buf))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"function", "0.9300", "3", "a.js", "sumPrices", "1", "3", "a.js", "Ledger.addCosts", "5", "7"}, records[1])
}

func TestOutputFormatter_Errors(t *testing.T) {
	f := NewOutputFormatter()

	err := f.Write(nil, domain.OutputFormatJSON, &bytes.Buffer{})
	assert.True(t, domain.HasErrorCode(err, domain.ErrCodeOutputError))

	err = f.Write(sampleResponse("a.js"), domain.OutputFormat("html"), &bytes.Buffer{})
	assert.True(t, domain.HasErrorCode(err, domain.ErrCodeUnsupportedFormat))
}
