package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/simscan/internal/parser"
)

func buildTypeUnits(t *testing.T, lang parser.Language, source, path string) []*TypeUnit {
	t.Helper()
	p, err := parser.NewTreeSitterParser(lang)
	require.NoError(t, err)
	file, err := p.ParseSource(context.Background(), []byte(source), path)
	require.NoError(t, err)
	_, types, skipped := BuildUnits(file)
	require.Empty(t, skipped)
	return types
}

func TestNormalizeTypeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"String", "string"},
		{"  number ", "number"},
		{"Array<string>", "string[]"},
		{"Array<Map<string, number>>", "Map<string, number>[]"},
		{"[]int", "int[]"},
		{"string | number", "number | string"},
		{"B & A", "A & B"},
		{"StringBuilder", "StringBuilder"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeTypeName(tt.in))
		})
	}
}

func TestPropertyNameSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, propertyNameSimilarity("userId", "userId"))
	assert.Equal(t, 0.95, propertyNameSimilarity("user_id", "userId"))
	assert.Equal(t, 0.95, propertyNameSimilarity("#count", "count"))
	assert.Less(t, propertyNameSimilarity("age", "phone"), 0.5)
}

func TestTypeNameSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, typeNameSimilarity("Array<string>", "string[]"))
	assert.Equal(t, 1.0, typeNameSimilarity("string | null", "null | string"))
	assert.InDelta(t, 0.8, typeNameSimilarity("a | b | c", "a | b"), 1e-9)
	assert.Less(t, typeNameSimilarity("number", "boolean"), 0.5)
}

func TestCompareTypeProperties(t *testing.T) {
	user := []TypeProperty{
		{Name: "id", Type: "string"},
		{Name: "name", Type: "string"},
		{Name: "age", Type: "number", Optional: true},
	}
	account := []TypeProperty{
		{Name: "id", Type: "number"},
		{Name: "name", Type: "String"},
		{Name: "email", Type: "string"},
	}

	cmp := CompareTypeProperties(user, account, 0.7)
	require.True(t, cmp.Comparable)
	require.Len(t, cmp.Matched, 2)
	assert.Equal(t, "name", cmp.Matched[0].Property1)
	assert.Equal(t, "id", cmp.Matched[1].Property1)
	assert.Equal(t, []string{"age"}, cmp.Missing)
	assert.Equal(t, []string{"email"}, cmp.Extra)
	require.Len(t, cmp.TypeMismatches, 1)
	assert.Equal(t, "id", cmp.TypeMismatches[0].Property1)
	assert.Equal(t, "string", cmp.TypeMismatches[0].Type1)
	assert.Equal(t, "number", cmp.TypeMismatches[0].Type2)
	assert.Empty(t, cmp.OptionalityDifferences)
	assert.Greater(t, cmp.Score, 0.0)
	assert.Less(t, cmp.Score, 1.0)

	same := CompareTypeProperties(user, user, 0.7)
	assert.InDelta(t, 1.0, same.Score, 1e-9)
	assert.Empty(t, same.Missing)
	assert.Empty(t, same.Extra)
}

func TestCompareTypeProperties_Optionality(t *testing.T) {
	a := []TypeProperty{{Name: "age", Type: "number", Optional: true}}
	b := []TypeProperty{{Name: "age", Type: "number"}}

	cmp := CompareTypeProperties(a, b, 0.7)
	require.Len(t, cmp.Matched, 1)
	assert.Equal(t, []string{"age -> age"}, cmp.OptionalityDifferences)
}

func TestCompareTypeProperties_Empty(t *testing.T) {
	assert.False(t, CompareTypeProperties(nil, nil, 0.7).Comparable)

	cmp := CompareTypeProperties(nil, []TypeProperty{{Name: "id", Type: "string"}}, 0.7)
	assert.True(t, cmp.Comparable)
	assert.Equal(t, 0.0, cmp.Score)
	assert.Equal(t, []string{"id"}, cmp.Extra)
}

func TestExtractTypeProperties_TypeScript(t *testing.T) {
	source := `interface User {
  id: string;
  name?: string;
  tags: Array<string>;
}
`
	types := buildTypeUnits(t, parser.LanguageTypeScript, source, "user.ts")
	require.Len(t, types, 1)
	assert.Equal(t, []TypeProperty{
		{Name: "id", Type: "string"},
		{Name: "name", Type: "string", Optional: true},
		{Name: "tags", Type: "Array<string>"},
	}, types[0].Properties)
}

func TestExtractTypeProperties_Go(t *testing.T) {
	source := `package geo

type Point struct {
	X     int
	Label string
}
`
	types := buildTypeUnits(t, parser.LanguageGo, source, "point.go")
	require.Len(t, types, 1)
	assert.Equal(t, []TypeProperty{
		{Name: "X", Type: "int"},
		{Name: "Label", Type: "string"},
	}, types[0].Properties)
}

func TestFindSimilarTypes_PropertyMatching(t *testing.T) {
	source := `interface User {
  id: string;
  name: string;
  email: string;
  age?: number;
}

interface Customer {
  id: string;
  name: string;
  email: string;
  phone: string;
}
`
	types := buildTypeUnits(t, parser.LanguageTypeScript, source, "people.ts")
	require.Len(t, types, 2)

	config := noPenaltyConfig()
	config.Threshold = 0.5
	results, err := NewSimilarityDetector(config).FindSimilarTypes(context.Background(), types)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Len(t, r.MatchedProperties, 3)
	assert.Equal(t, []string{"age"}, r.MissingProperties)
	assert.Equal(t, []string{"phone"}, r.ExtraProperties)
	assert.Empty(t, r.TypeMismatches)
	// three of four members on each side, all exact: 0.75 coverage, full naming
	assert.InDelta(t, 0.85, r.PropertySimilarity, 1e-9)
	assert.Greater(t, r.StructuralSimilarity, r.PropertySimilarity)
	assert.InDelta(t, 0.6*r.StructuralSimilarity+0.4*r.PropertySimilarity, r.Similarity, 1e-9)
}

func TestFindSimilarTypes_StructuralWeightValidation(t *testing.T) {
	config := noPenaltyConfig()
	config.TypeStructuralWeight = 1.5
	_, err := NewSimilarityDetector(config).FindSimilarTypes(context.Background(), nil)
	assert.Error(t, err)
}
