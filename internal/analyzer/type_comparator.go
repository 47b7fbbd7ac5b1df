package analyzer

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ludo-technologies/simscan/domain"
	"github.com/ludo-technologies/simscan/internal/parser"
)

// TypeProperty is one member declared in a type body
type TypeProperty struct {
	Name     string
	Type     string
	Optional bool
}

// memberKinds are the syntax kinds that declare a member of a type body
var memberKinds = map[string]bool{
	"property_signature":        true,
	"method_signature":          true,
	"public_field_definition":   true,
	"field_definition":          true,
	"method_definition":         true,
	"field_declaration":         true,
	"method_declaration":        true,
	"method_spec":               true,
	"method_elem":               true,
	"property_declaration":      true,
	"enum_assignment":           true,
	"enum_variant":              true,
	"enum_constant":             true,
	"enumerator":                true,
	"function_definition":       true,
	"function_item":             true,
	"function_signature_item":   true,
	"constructor_declaration":   true,
	"assignment":                true,
	"method":                    true,
	"abstract_method_signature": true,
}

// propertyNameKinds are the leaf kinds that carry a member name
var propertyNameKinds = map[string]bool{
	"property_identifier":           true,
	"private_property_identifier":   true,
	"shorthand_property_identifier": true,
	"field_identifier":              true,
	"identifier":                    true,
	"name":                          true,
}

func isTypeKind(kind string) bool {
	return kind == "type" || kind == "type_annotation" || kind == "type_identifier" || strings.HasSuffix(kind, "_type")
}

func isAnnotationKind(kind string) bool {
	return kind != "type_annotation" && strings.HasSuffix(kind, "annotation")
}

// ExtractTypeProperties lists the members of a type body in source order
func ExtractTypeProperties(body *parser.Node, source []byte) []TypeProperty {
	var props []TypeProperty
	body.Walk(func(n *parser.Node) bool {
		if n == body || !memberKinds[n.Kind] {
			return true
		}
		if prop, ok := memberProperty(n, source); ok {
			props = append(props, prop)
		}
		return false
	})
	return props
}

func memberProperty(member *parser.Node, source []byte) (TypeProperty, bool) {
	prop := TypeProperty{}
	member.Walk(func(n *parser.Node) bool {
		if n == member {
			return true
		}
		if n.Kind == "modifiers" || n.Kind == "decorator" || isAnnotationKind(n.Kind) {
			return false
		}
		if isTypeKind(n.Kind) {
			if prop.Type == "" {
				prop.Type = strings.TrimSpace(strings.TrimPrefix(nodeText(n, source), ":"))
			}
			return false
		}
		if prop.Name == "" && propertyNameKinds[n.Kind] {
			prop.Name = nodeText(n, source)
		}
		return prop.Name == "" || prop.Type == ""
	})
	for _, child := range member.Children {
		if child.Kind == "?" {
			prop.Optional = true
		}
	}
	if prop.Type == "" {
		prop.Type = member.Kind
	}
	return prop, prop.Name != ""
}

func nodeText(n *parser.Node, source []byte) string {
	if n.Text != "" {
		return n.Text
	}
	if n.StartByte < 0 || n.EndByte > len(source) || n.StartByte > n.EndByte {
		return ""
	}
	return string(source[n.StartByte:n.EndByte])
}

// normalizePropertyName folds case and separators so user_id, userId and
// #userId compare equal
func normalizePropertyName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', '$', '#':
			return -1
		}
		return r
	}, name)
}

var (
	boxedTypeName = regexp.MustCompile(`\b(String|Number|Boolean|Object|Function)\b`)
	spaceRun      = regexp.MustCompile(`\s+`)
)

// normalizeTypeName rewrites equivalent spellings of a type to one form
func normalizeTypeName(typeName string) string {
	normalized := spaceRun.ReplaceAllString(strings.TrimSpace(typeName), " ")

	if strings.HasPrefix(normalized, "Array<") && strings.HasSuffix(normalized, ">") {
		if inner := normalized[len("Array<") : len(normalized)-1]; balancedAngles(inner) {
			normalized = inner + "[]"
		}
	} else if strings.HasPrefix(normalized, "[]") {
		normalized = normalized[2:] + "[]"
	}

	normalized = boxedTypeName.ReplaceAllStringFunc(normalized, strings.ToLower)

	for _, sep := range []string{" | ", " & "} {
		if strings.Contains(normalized, sep) {
			parts := splitTrim(normalized, sep)
			sort.Strings(parts)
			normalized = strings.Join(parts, sep)
		}
	}
	return normalized
}

func balancedAngles(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '<':
			depth++
		case '>':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

func splitTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// propertyNameSimilarity is 1.0 for identical names, 0.95 for names equal
// after normalization and a Levenshtein ratio otherwise
func propertyNameSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	na, nb := normalizePropertyName(a), normalizePropertyName(b)
	if na == nb {
		return 0.95
	}
	return levenshteinRatio(na, nb)
}

// typeNameSimilarity compares normalized type text. Unions and
// intersections are compared as member sets.
func typeNameSimilarity(a, b string) float64 {
	na, nb := normalizeTypeName(a), normalizeTypeName(b)
	if na == nb {
		return 1.0
	}
	for _, sep := range []string{" | ", " & "} {
		if strings.Contains(na, sep) || strings.Contains(nb, sep) {
			return diceOverlap(splitTrim(na, sep), splitTrim(nb, sep))
		}
	}
	return levenshteinRatio(na, nb)
}

func diceOverlap(a, b []string) float64 {
	if len(a)+len(b) == 0 {
		return 1.0
	}
	set := make(map[string]bool, len(b))
	for _, s := range b {
		set[s] = true
	}
	common := 0
	for _, s := range a {
		if set[s] {
			common++
		}
	}
	return float64(2*common) / float64(len(a)+len(b))
}

func levenshteinRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := maxInt(len(ra), len(rb))
	if maxLen == 0 {
		return 1.0
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minInt(minInt(prev[j]+1, curr[j-1]+1), prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	ratio := 1.0 - float64(prev[len(rb)])/float64(maxLen)
	if ratio < 0 {
		return 0
	}
	return ratio
}

type propertyPair struct {
	i, j    int
	name    float64
	overall float64
}

// PropertyComparison is the member-level comparison of two types
type PropertyComparison struct {
	// Comparable is false when neither type declares members
	Comparable bool
	Score      float64

	Matched                []domain.PropertyMatch
	Missing                []string
	Extra                  []string
	TypeMismatches         []domain.PropertyMismatch
	OptionalityDifferences []string
}

// CompareTypeProperties pairs the members of two types one-to-one, best
// match first. A member pair qualifies when 0.7*name + 0.3*type similarity
// reaches threshold. The score multiplies the average match quality by the
// share of members covered, then blends in the average name similarity.
func CompareTypeProperties(props1, props2 []TypeProperty, threshold float64) PropertyComparison {
	if len(props1) == 0 && len(props2) == 0 {
		return PropertyComparison{}
	}
	cmp := PropertyComparison{Comparable: true}

	var candidates []propertyPair
	for i, p1 := range props1 {
		for j, p2 := range props2 {
			name := propertyNameSimilarity(p1.Name, p2.Name)
			overall := name*0.7 + typeNameSimilarity(p1.Type, p2.Type)*0.3
			if overall >= threshold {
				candidates = append(candidates, propertyPair{i: i, j: j, name: name, overall: overall})
			}
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].overall > candidates[b].overall
	})

	used1 := make([]bool, len(props1))
	used2 := make([]bool, len(props2))
	var quality, naming float64
	for _, c := range candidates {
		if used1[c.i] || used2[c.j] {
			continue
		}
		used1[c.i], used2[c.j] = true, true
		p1, p2 := props1[c.i], props2[c.j]
		quality += c.overall
		naming += c.name
		cmp.Matched = append(cmp.Matched, domain.PropertyMatch{Property1: p1.Name, Property2: p2.Name, Similarity: c.overall})
		if normalizeTypeName(p1.Type) != normalizeTypeName(p2.Type) {
			cmp.TypeMismatches = append(cmp.TypeMismatches, domain.PropertyMismatch{
				Property1: p1.Name, Property2: p2.Name, Type1: p1.Type, Type2: p2.Type,
			})
		}
		if p1.Optional != p2.Optional {
			cmp.OptionalityDifferences = append(cmp.OptionalityDifferences, p1.Name+" -> "+p2.Name)
		}
	}
	for i, p := range props1 {
		if !used1[i] {
			cmp.Missing = append(cmp.Missing, p.Name)
		}
	}
	for j, p := range props2 {
		if !used2[j] {
			cmp.Extra = append(cmp.Extra, p.Name)
		}
	}

	matched := len(cmp.Matched)
	if matched == 0 {
		return cmp
	}
	coverage := float64(2*matched) / float64(len(props1)+len(props2))
	structure := quality / float64(matched) * coverage
	cmp.Score = structure*0.6 + naming/float64(matched)*0.4
	return cmp
}
