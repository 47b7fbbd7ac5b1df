package analyzer

import (
	"math"
)

// APTEDAnalyzer computes the exact ordered tree edit distance using the
// Zhang-Shasha keyroot decomposition. Trees are never modified, so one
// analyzer can be shared by concurrent callers.
type APTEDAnalyzer struct {
	costModel CostModel
}

// NewAPTEDAnalyzer creates a new analyzer with the given cost model
func NewAPTEDAnalyzer(costModel CostModel) *APTEDAnalyzer {
	if costModel == nil {
		costModel = DefaultAPTEDOptions()
	}
	return &APTEDAnalyzer{
		costModel: costModel,
	}
}

// CostModel returns the cost model used by the analyzer
func (a *APTEDAnalyzer) CostModel() CostModel {
	return a.costModel
}

// ComputeDistance computes the tree edit distance between two trees
func (a *APTEDAnalyzer) ComputeDistance(tree1, tree2 *TreeNode) float64 {
	if tree1 == nil && tree2 == nil {
		return 0.0
	}
	if tree1 == nil {
		return a.computeInsertCost(tree2)
	}
	if tree2 == nil {
		return a.computeDeleteCost(tree1)
	}

	idx1 := newPostOrderIndex(tree1)
	idx2 := newPostOrderIndex(tree2)

	n, m := idx1.size(), idx2.size()
	td := make([][]float64, n+1)
	for i := range td {
		td[i] = make([]float64, m+1)
	}

	// fd is reused across keyroot pairs; it is at most (n+1) x (m+1)
	fd := make([][]float64, n+1)
	for i := range fd {
		fd[i] = make([]float64, m+1)
	}

	for _, i := range idx1.keyRoots {
		for _, j := range idx2.keyRoots {
			a.treeDistance(idx1, idx2, i, j, td, fd)
		}
	}

	return td[n][m]
}

// treeDistance fills td for all subtree pairs whose forests are rooted at keyroots i and j
func (a *APTEDAnalyzer) treeDistance(idx1, idx2 *postOrderIndex, i, j int, td, fd [][]float64) {
	li, lj := idx1.lml[i], idx2.lml[j]
	ioff, joff := li-1, lj-1
	rows, cols := i-ioff, j-joff

	fd[0][0] = 0
	for x := 1; x <= rows; x++ {
		fd[x][0] = fd[x-1][0] + a.costModel.Delete(idx1.nodes[x+ioff])
	}
	for y := 1; y <= cols; y++ {
		fd[0][y] = fd[0][y-1] + a.costModel.Insert(idx2.nodes[y+joff])
	}

	for x := 1; x <= rows; x++ {
		nodeX := idx1.nodes[x+ioff]
		lx := idx1.lml[x+ioff]
		deleteCost := a.costModel.Delete(nodeX)

		for y := 1; y <= cols; y++ {
			nodeY := idx2.nodes[y+joff]
			ly := idx2.lml[y+joff]

			del := fd[x-1][y] + deleteCost
			ins := fd[x][y-1] + a.costModel.Insert(nodeY)

			if lx == li && ly == lj {
				// both prefixes are whole trees
				ren := fd[x-1][y-1] + a.costModel.Rename(nodeX, nodeY)
				fd[x][y] = math.Min(del, math.Min(ins, ren))
				td[x+ioff][y+joff] = fd[x][y]
			} else {
				p, q := lx-1-ioff, ly-1-joff
				sub := fd[p][q] + td[x+ioff][y+joff]
				fd[x][y] = math.Min(del, math.Min(ins, sub))
			}
		}
	}
}

// computeInsertCost computes the cost of inserting an entire subtree
func (a *APTEDAnalyzer) computeInsertCost(root *TreeNode) float64 {
	if root == nil {
		return 0.0
	}

	cost := a.costModel.Insert(root)
	for _, child := range root.Children {
		cost += a.computeInsertCost(child)
	}

	return cost
}

// computeDeleteCost computes the cost of deleting an entire subtree
func (a *APTEDAnalyzer) computeDeleteCost(root *TreeNode) float64 {
	if root == nil {
		return 0.0
	}

	cost := a.costModel.Delete(root)
	for _, child := range root.Children {
		cost += a.computeDeleteCost(child)
	}

	return cost
}

// ComputeSimilarity computes 1 - distance/max(size), clamped to [0, 1]
func (a *APTEDAnalyzer) ComputeSimilarity(tree1, tree2 *TreeNode) float64 {
	return similarityFromDistance(a.ComputeDistance(tree1, tree2), tree1.Size(), tree2.Size())
}

func similarityFromDistance(distance float64, size1, size2 int) float64 {
	maxSize := size1
	if size2 > maxSize {
		maxSize = size2
	}
	if maxSize == 0 {
		return 1.0
	}
	return clamp01(1.0 - distance/float64(maxSize))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0.0
	}
	if v > 1 {
		return 1.0
	}
	return v
}

// TreeEditResult holds the result of tree edit distance computation
type TreeEditResult struct {
	Distance   float64
	Similarity float64
	Tree1Size  int
	Tree2Size  int
	Operations int // Estimated number of edit operations
}

// ComputeDetailedDistance computes detailed tree edit distance information
func (a *APTEDAnalyzer) ComputeDetailedDistance(tree1, tree2 *TreeNode) *TreeEditResult {
	distance := a.ComputeDistance(tree1, tree2)
	size1, size2 := tree1.Size(), tree2.Size()

	return &TreeEditResult{
		Distance:   distance,
		Similarity: similarityFromDistance(distance, size1, size2),
		Tree1Size:  size1,
		Tree2Size:  size2,
		Operations: int(math.Ceil(distance)),
	}
}

// BatchComputeDistances computes distances between multiple tree pairs
func (a *APTEDAnalyzer) BatchComputeDistances(pairs [][2]*TreeNode) []float64 {
	distances := make([]float64, len(pairs))

	for i, pair := range pairs {
		distances[i] = a.ComputeDistance(pair[0], pair[1])
	}

	return distances
}
