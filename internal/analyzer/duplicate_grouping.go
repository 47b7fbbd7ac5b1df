package analyzer

import (
	"math"
	"sort"

	"github.com/ludo-technologies/simscan/domain"
)

// DuplicateGrouping merges duplicate pairs into connected groups using Union-Find
type DuplicateGrouping struct {
	threshold float64
}

// NewDuplicateGrouping creates a grouping that links pairs at or above threshold
func NewDuplicateGrouping(threshold float64) *DuplicateGrouping {
	return &DuplicateGrouping{threshold: threshold}
}

// functionKey identifies a function across results
type functionKey struct {
	file  string
	start int
	end   int
	name  string
}

func keyOf(f domain.FunctionDefinition) functionKey {
	return functionKey{file: f.FilePath, start: f.Span.Start, end: f.Span.End, name: f.QualifiedName()}
}

func functionLess(a, b domain.FunctionDefinition) bool {
	if a.FilePath != b.FilePath {
		return a.FilePath < b.FilePath
	}
	if a.StartLine != b.StartLine {
		return a.StartLine < b.StartLine
	}
	return a.Name < b.Name
}

// Group returns the connected components of results, without singletons,
// sorted by average similarity then size
func (g *DuplicateGrouping) Group(results []domain.SimilarityResult) []domain.DuplicateGroup {
	if len(results) == 0 {
		return []domain.DuplicateGroup{}
	}

	defs := make(map[functionKey]domain.FunctionDefinition)
	parent := make(map[functionKey]functionKey)
	rank := make(map[functionKey]int)
	simMap := make(map[[2]functionKey]float64)

	track := func(f domain.FunctionDefinition) functionKey {
		k := keyOf(f)
		if _, ok := defs[k]; !ok {
			defs[k] = f
			parent[k] = k
		}
		return k
	}

	var find func(functionKey) functionKey
	find = func(x functionKey) functionKey {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b functionKey) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		switch {
		case rank[ra] < rank[rb]:
			parent[ra] = rb
		case rank[ra] > rank[rb]:
			parent[rb] = ra
		default:
			parent[rb] = ra
			rank[ra]++
		}
	}

	for _, r := range results {
		k1, k2 := track(r.Function1), track(r.Function2)
		pk := pairKeyOf(k1, k2)
		if old, ok := simMap[pk]; !ok || r.Similarity > old {
			simMap[pk] = r.Similarity
		}
		if r.Similarity >= g.threshold {
			union(k1, k2)
		}
	}

	components := make(map[functionKey][]domain.FunctionDefinition)
	for k, def := range defs {
		root := find(k)
		components[root] = append(components[root], def)
	}

	groups := make([]domain.DuplicateGroup, 0, len(components))
	for _, members := range components {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool { return functionLess(members[i], members[j]) })
		groups = append(groups, domain.DuplicateGroup{
			Functions:  members,
			Similarity: averageSimilarity(simMap, members),
			Size:       len(members),
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		if math.Abs(groups[i].Similarity-groups[j].Similarity) > 1e-9 {
			return groups[i].Similarity > groups[j].Similarity
		}
		if groups[i].Size != groups[j].Size {
			return groups[i].Size > groups[j].Size
		}
		return functionLess(groups[i].Functions[0], groups[j].Functions[0])
	})
	for i := range groups {
		groups[i].ID = i + 1
	}
	return groups
}

func pairKeyOf(a, b functionKey) [2]functionKey {
	if b.file < a.file || (b.file == a.file && b.start < a.start) ||
		(b.file == a.file && b.start == a.start && b.name < a.name) {
		a, b = b, a
	}
	return [2]functionKey{a, b}
}

// averageSimilarity averages the known pair similarities inside a group
func averageSimilarity(simMap map[[2]functionKey]float64, members []domain.FunctionDefinition) float64 {
	sum, count := 0.0, 0
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			if s, ok := simMap[pairKeyOf(keyOf(members[i]), keyOf(members[j]))]; ok {
				sum += s
				count++
			}
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
