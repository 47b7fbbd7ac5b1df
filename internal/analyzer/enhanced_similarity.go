package analyzer

import (
	"fmt"
	"math"

	"github.com/ludo-technologies/simscan/domain"
)

// EnhancedSimilarityOptions configures the blended similarity score
type EnhancedSimilarityOptions struct {
	StructuralWeight       float64
	SizeWeight             float64
	TypeDistributionWeight float64
	SemanticWeight         float64

	// MinSizeRatio is the size ratio below which the size signal is penalized
	MinSizeRatio float64

	APTED APTEDOptions
}

// DefaultEnhancedSimilarityOptions returns the default weights
func DefaultEnhancedSimilarityOptions() EnhancedSimilarityOptions {
	return EnhancedSimilarityOptions{
		StructuralWeight:       0.4,
		SizeWeight:             0.2,
		TypeDistributionWeight: 0.2,
		SemanticWeight:         0.2,
		MinSizeRatio:           0.5,
		APTED:                  DefaultAPTEDOptions(),
	}
}

// Validate checks the options
func (o EnhancedSimilarityOptions) Validate() error {
	if err := o.APTED.Validate(); err != nil {
		return err
	}
	for _, w := range []float64{o.StructuralWeight, o.SizeWeight, o.TypeDistributionWeight, o.SemanticWeight} {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return domain.NewInvalidConfigurationError(fmt.Sprintf("enhanced weights must be non-negative, got %v", w))
		}
	}
	if o.totalWeight() == 0 {
		return domain.NewInvalidConfigurationError("at least one enhanced weight must be positive")
	}
	if o.MinSizeRatio <= 0 || o.MinSizeRatio > 1 {
		return domain.NewInvalidConfigurationError(fmt.Sprintf("min_size_ratio must be in (0, 1], got %v", o.MinSizeRatio))
	}
	return nil
}

func (o EnhancedSimilarityOptions) totalWeight() float64 {
	return o.StructuralWeight + o.SizeWeight + o.TypeDistributionWeight + o.SemanticWeight
}

// SimilarityBreakdown exposes the individual signals of an enhanced score
type SimilarityBreakdown struct {
	Structural       float64
	Size             float64
	TypeDistribution float64
	Semantic         float64
	Penalty          float64
	Combined         float64
}

// CalculateEnhancedSimilarity blends structure, size, node type distribution
// and semantic features into one score in [0, 1]
func CalculateEnhancedSimilarity(tree1, tree2 *TreeNode, opts EnhancedSimilarityOptions) float64 {
	return EnhancedSimilarityBreakdown(tree1, tree2, opts).Combined
}

// EnhancedSimilarityBreakdown computes the enhanced score together with its signals
func EnhancedSimilarityBreakdown(tree1, tree2 *TreeNode, opts EnhancedSimilarityOptions) SimilarityBreakdown {
	size1, size2 := tree1.Size(), tree2.Size()

	distance := NewAPTEDAnalyzer(opts.APTED).ComputeDistance(tree1, tree2)
	structural := similarityFromDistance(distance, size1, size2)

	sizeRatio := ratio(float64(size1), float64(size2))
	sizeSimilarity := sizeRatio
	if opts.MinSizeRatio > 0 && sizeRatio < opts.MinSizeRatio {
		sizeSimilarity *= sizeRatio / opts.MinSizeRatio
	}

	typeSimilarity := distributionSimilarity(nodeTypeDistribution(tree1), nodeTypeDistribution(tree2))
	semantic := SemanticSimilarity(tree1, tree2)

	penalty := 1.0
	if sizeRatio < 0.5 {
		penalty *= 0.8
	}
	if structural > 0.7 && semantic < 0.2 {
		penalty *= 0.7
	}
	if ratio(float64(TreeComplexity(tree1)), float64(TreeComplexity(tree2))) < 0.5 {
		penalty *= 0.85
	}

	total := opts.totalWeight()
	combined := 0.0
	if total > 0 {
		combined = (structural*opts.StructuralWeight +
			sizeSimilarity*opts.SizeWeight +
			typeSimilarity*opts.TypeDistributionWeight +
			semantic*opts.SemanticWeight) / total
	}

	return SimilarityBreakdown{
		Structural:       structural,
		Size:             sizeSimilarity,
		TypeDistribution: typeSimilarity,
		Semantic:         semantic,
		Penalty:          penalty,
		Combined:         clamp01(combined * penalty),
	}
}

// ratio returns min/max, or 1 when both are zero
func ratio(a, b float64) float64 {
	hi := math.Max(a, b)
	if hi == 0 {
		return 1.0
	}
	return math.Min(a, b) / hi
}

func nodeTypeDistribution(tree *TreeNode) map[string]int {
	distribution := make(map[string]int)
	for _, node := range GetSubtreeNodes(tree) {
		distribution[node.Label]++
	}
	return distribution
}

// distributionSimilarity is the sum of per-label minimums over the sum of maximums
func distributionSimilarity(dist1, dist2 map[string]int) float64 {
	intersection, union := 0, 0
	for label, c1 := range dist1 {
		c2 := dist2[label]
		intersection += minInt(c1, c2)
		union += maxInt(c1, c2)
	}
	for label, c2 := range dist2 {
		if _, seen := dist1[label]; !seen {
			union += c2
		}
	}
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

// semanticFeatures are the sets compared by SemanticSimilarity
type semanticFeatures struct {
	identifiers map[string]bool
	operators   map[string]bool
	controlFlow map[string]bool
}

func extractSemanticFeatures(tree *TreeNode) semanticFeatures {
	features := semanticFeatures{
		identifiers: map[string]bool{},
		operators:   map[string]bool{},
		controlFlow: map[string]bool{},
	}
	for _, node := range GetSubtreeNodes(tree) {
		if IsOperator(node.Label) {
			features.operators[node.Label] = true
			continue
		}
		switch CategorizeNode(node.Label) {
		case CategoryIdentifier:
			if node.Value != "" {
				features.identifiers[node.Value] = true
			}
		case CategoryIf:
			features.controlFlow["if"] = true
		case CategoryLoop:
			features.controlFlow["loop"] = true
		case CategoryReturn:
			features.controlFlow["return"] = true
		case CategoryCall:
			features.controlFlow["call"] = true
		}
	}
	return features
}

// SemanticSimilarity averages the Jaccard index of identifier names, operator
// symbols and control flow categories. Feature sets empty on both sides are
// left out; with no features at all the result is 0.
func SemanticSimilarity(tree1, tree2 *TreeNode) float64 {
	f1 := extractSemanticFeatures(tree1)
	f2 := extractSemanticFeatures(tree2)

	sum, count := 0.0, 0
	for _, pair := range [][2]map[string]bool{
		{f1.identifiers, f2.identifiers},
		{f1.operators, f2.operators},
		{f1.controlFlow, f2.controlFlow},
	} {
		if j, ok := jaccard(pair[0], pair[1]); ok {
			sum += j
			count++
		}
	}
	if count == 0 {
		return 0.0
	}
	return sum / float64(count)
}

func jaccard(a, b map[string]bool) (float64, bool) {
	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0, false
	}
	return float64(intersection) / float64(union), true
}

// TreeComplexity sums depth+1 over all nodes, plus 3 per control flow node
// and 2 per function node
func TreeComplexity(tree *TreeNode) int {
	if tree == nil {
		return 0
	}
	var walk func(node *TreeNode, depth int) int
	walk = func(node *TreeNode, depth int) int {
		complexity := depth + 1
		category := CategorizeNode(node.Label)
		if isControlFlow(category) {
			complexity += 3
		} else if category == CategoryFunction {
			complexity += 2
		}
		for _, child := range node.Children {
			complexity += walk(child, depth+1)
		}
		return complexity
	}
	return walk(tree, 0)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
