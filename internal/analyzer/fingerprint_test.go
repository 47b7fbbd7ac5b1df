package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBloomFilter128(t *testing.T) {
	var b BloomFilter128
	assert.True(t, b.IsEmpty())

	b.Set(3)
	b.Set(64 + 5)
	b.Set(128 + 3) // wraps onto bit 3
	assert.False(t, b.IsEmpty())
	assert.Equal(t, 2, b.OnesCount())

	var other BloomFilter128
	other.Set(69)
	assert.True(t, b.Overlaps(other))

	var disjoint BloomFilter128
	disjoint.Set(10)
	assert.False(t, b.Overlaps(disjoint))
}

func TestAstFingerprint_NoFalseNegatives(t *testing.T) {
	candidates := []*TreeNode{
		tree("function", tree("if_statement", tree("identifier")), tree("return_statement")),
		tree("function", tree("if_statement", tree("identifier")), tree("return_statement", tree("number"))),
		tree("function", tree("for_statement", tree("call_expression")), tree("return_statement")),
		tree("block", tree("identifier"), tree("identifier")),
		tree("class_body", tree("method_definition")),
		tree("A"),
		tree("B"),
	}

	for _, threshold := range []float64{0.1, 0.5, 0.9} {
		for _, t1 := range candidates {
			for _, t2 := range candidates {
				f1, f2 := NewAstFingerprint(t1), NewAstFingerprint(t2)
				if f1.Similarity(f2) >= threshold {
					assert.True(t, f1.MightBeSimilar(f2, threshold),
						"threshold %.1f: %s vs %s", threshold, t1.Label, t2.Label)
				}
			}
		}
	}
}

func TestAstFingerprint_RejectsDisjointLabels(t *testing.T) {
	f1 := NewAstFingerprint(tree("A"))
	f2 := NewAstFingerprint(tree("B"))

	assert.False(t, f1.MightBeSimilar(f2, 0.5))
	assert.Equal(t, 0.0, f1.Similarity(f2))
}

func TestAstFingerprint_Similarity(t *testing.T) {
	t1 := tree("block", tree("identifier"), tree("identifier"))
	f1 := NewAstFingerprint(t1)

	assert.Equal(t, 1.0, f1.Similarity(NewAstFingerprint(t1)))
	assert.Equal(t, 2, f1.NodeCount("identifier"))

	// block matches, identifier count differs by half
	f2 := NewAstFingerprint(tree("block", tree("identifier")))
	sim := f1.Similarity(f2)
	assert.Greater(t, sim, 0.0)
	assert.Less(t, sim, 1.0)

	empty := &AstFingerprint{NodeCounts: map[string]int{}}
	assert.True(t, empty.MightBeSimilar(f1, 0.9))
}

func leaf(label string, line int) *TreeNode {
	n := NewTreeNode(0, label)
	n.StartLine, n.EndLine = line, line
	return n
}

func TestGenerateSubtreeFingerprints(t *testing.T) {
	root := tree("body", leaf("p", 2), leaf("q", 3))
	root.StartLine, root.EndLine = 1, 4

	rootFP, subtrees := GenerateSubtreeFingerprints(root, nil)
	assert.Equal(t, 3, rootFP.Weight)
	assert.Equal(t, 1, rootFP.StartLine)
	assert.Equal(t, 4, rootFP.EndLine)
	require.Len(t, subtrees, 2)
	assert.Equal(t, []uint64{subtrees[0].Hash, subtrees[1].Hash}, rootFP.ChildHashes)

	// structure and labels define the hash, line numbers do not
	moved := tree("body", leaf("p", 10), leaf("q", 11))
	movedFP, _ := GenerateSubtreeFingerprints(moved, nil)
	assert.Equal(t, rootFP.Hash, movedFP.Hash)

	swapped := tree("body", leaf("q", 2), leaf("p", 3))
	swappedFP, _ := GenerateSubtreeFingerprints(swapped, nil)
	assert.NotEqual(t, rootFP.Hash, swappedFP.Hash)
}

func TestIndexedFunction(t *testing.T) {
	body := tree("body", leaf("p", 2), tree("block", leaf("q", 3), leaf("r", 4)))
	indexed := NewIndexedFunction("f", "a.js", 1, 5, body)

	assert.Equal(t, 4, indexed.SubtreeCount())
	assert.Len(t, indexed.SubtreesBySize(1), 3)
	assert.Len(t, indexed.SubtreesBySize(3), 1)
	assert.Len(t, indexed.SubtreesInSizeRange(1, 3), 4)
	assert.Empty(t, indexed.SubtreesInSizeRange(4, 10))

	other := NewIndexedFunction("g", "b.js", 1, 5, tree("body", leaf("q", 2)))
	assert.True(t, indexed.MightOverlap(other))
}

func TestCreateSlidingWindows(t *testing.T) {
	body := tree("body", leaf("p", 2), leaf("q", 3), leaf("r", 4), leaf("s", 5))
	indexed := NewIndexedFunction("f", "a.js", 1, 6, body)

	windows := CreateSlidingWindows(indexed, 2)
	require.Len(t, windows, 3)
	for _, w := range windows {
		assert.True(t, w.IsWindow())
		assert.Equal(t, 2, w.Weight)
		assert.Len(t, w.ChildHashes, 2)
	}
	assert.Equal(t, 2, windows[0].StartLine)
	assert.Equal(t, 3, windows[0].EndLine)

	windowTree := windows[0].Tree()
	assert.Equal(t, "Window", windowTree.Label)
	assert.Len(t, windowTree.Children, 2)

	assert.Empty(t, CreateSlidingWindows(indexed, 10))
}

func TestSubtreeFingerprint_MightBeSimilar(t *testing.T) {
	a := SubtreeFingerprint{Weight: 10, Hash: 1, NodeType: "block", ChildHashes: []uint64{1, 2, 3}}
	b := SubtreeFingerprint{Weight: 11, Hash: 2, NodeType: "block", ChildHashes: []uint64{1, 2, 4}}
	c := SubtreeFingerprint{Weight: 20, Hash: 3, NodeType: "block", ChildHashes: []uint64{1, 2, 3}}
	d := SubtreeFingerprint{Weight: 10, Hash: 4, NodeType: "if_statement", ChildHashes: []uint64{1, 2, 3}}

	assert.True(t, a.MightBeSimilar(&b, 0.2))
	assert.False(t, a.MightBeSimilar(&c, 0.2), "size out of tolerance")
	assert.False(t, a.MightBeSimilar(&d, 0.2), "different node types")
	assert.True(t, a.MightBeSimilar(&a, 0.0))
}
