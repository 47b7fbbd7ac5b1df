package analyzer

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const windowPrefix = "Window["

// SubtreeFingerprint is a structural hash of one subtree, or of a window of
// adjacent subtrees
type SubtreeFingerprint struct {
	Weight      int
	Hash        uint64
	ChildHashes []uint64
	StartLine   int
	EndLine     int
	NodeType    string
	Depth       int

	// nodes are the subtrees covered by the fingerprint: one for a real
	// subtree, several for a window
	nodes []*TreeNode
}

// IsWindow reports whether the fingerprint was synthesized from several subtrees
func (f *SubtreeFingerprint) IsWindow() bool {
	return strings.HasPrefix(f.NodeType, windowPrefix)
}

// MightBeSimilar is a cheap check run before scoring two fingerprints
func (f *SubtreeFingerprint) MightBeSimilar(other *SubtreeFingerprint, sizeTolerance float64) bool {
	if f.Hash == other.Hash {
		return true
	}

	if other.Weight == 0 {
		return false
	}
	sizeRatio := float64(f.Weight) / float64(other.Weight)
	if sizeRatio < 1.0-sizeTolerance || sizeRatio > 1.0+sizeTolerance {
		return false
	}

	if !f.IsWindow() && !other.IsWindow() && f.NodeType != other.NodeType {
		return false
	}

	if len(f.ChildHashes) > 0 && len(other.ChildHashes) > 0 {
		overlap := 0
		otherHashes := make(map[uint64]bool, len(other.ChildHashes))
		for _, h := range other.ChildHashes {
			otherHashes[h] = true
		}
		for _, h := range f.ChildHashes {
			if otherHashes[h] {
				overlap++
			}
		}
		minChildren := minInt(len(f.ChildHashes), len(other.ChildHashes))
		return float64(overlap)/float64(minChildren) > 0.5
	}

	return true
}

// Tree returns the compared tree of the fingerprint. Windows are wrapped in a
// synthetic Window node.
func (f *SubtreeFingerprint) Tree() *TreeNode {
	if len(f.nodes) == 1 && !f.IsWindow() {
		return f.nodes[0]
	}
	window := NewTreeNode(0, "Window")
	window.StartLine, window.EndLine = f.StartLine, f.EndLine

	// members nested inside another member are already covered by it
	nested := make(map[*TreeNode]bool)
	for _, n := range f.nodes {
		for _, child := range n.Children {
			for _, d := range GetSubtreeNodes(child) {
				nested[d] = true
			}
		}
	}
	for _, n := range f.nodes {
		if !nested[n] {
			window.AddChild(n)
		}
	}
	return window
}

// LineResolver returns the source line range of a tree node
type LineResolver func(node *TreeNode) (start, end int)

// NodeLines resolves lines from the positions stored on the node
func NodeLines(node *TreeNode) (int, int) {
	return node.StartLine, node.EndLine
}

// GenerateSubtreeFingerprints fingerprints every subtree of tree. It returns
// the root fingerprint and the fingerprints of all descendants in post-order.
func GenerateSubtreeFingerprints(tree *TreeNode, lineOf LineResolver) (SubtreeFingerprint, []SubtreeFingerprint) {
	if lineOf == nil {
		lineOf = NodeLines
	}
	var all []SubtreeFingerprint
	root := fingerprintSubtree(tree, 0, lineOf, &all)
	return root, all
}

func fingerprintSubtree(node *TreeNode, depth int, lineOf LineResolver, all *[]SubtreeFingerprint) SubtreeFingerprint {
	digest := xxhash.New()
	_, _ = digest.WriteString(node.Label)

	var buf [8]byte
	weight := 1
	childHashes := make([]uint64, 0, len(node.Children))
	for _, child := range node.Children {
		childFP := fingerprintSubtree(child, depth+1, lineOf, all)
		childHashes = append(childHashes, childFP.Hash)
		binary.LittleEndian.PutUint64(buf[:], childFP.Hash)
		_, _ = digest.Write(buf[:])
		weight += childFP.Weight
		*all = append(*all, childFP)
	}

	if node.Value != "" {
		_, _ = digest.WriteString(node.Value)
	}

	start, end := lineOf(node)
	return SubtreeFingerprint{
		Weight:      weight,
		Hash:        digest.Sum64(),
		ChildHashes: childHashes,
		StartLine:   start,
		EndLine:     end,
		NodeType:    node.Label,
		Depth:       depth,
		nodes:       []*TreeNode{node},
	}
}

// IndexedFunction holds the subtree fingerprints of one function for overlap search
type IndexedFunction struct {
	Name      string
	FilePath  string
	StartLine int
	EndLine   int

	RootFingerprint SubtreeFingerprint
	SubtreeIndex    map[uint64][]*SubtreeFingerprint
	SizeIndex       map[int][]*SubtreeFingerprint
	Bloom           BloomFilter128

	// ordered keeps insertion order so results do not depend on map iteration
	ordered []*SubtreeFingerprint
}

// NewIndexedFunction fingerprints a function body and indexes its subtrees
func NewIndexedFunction(name, filePath string, startLine, endLine int, tree *TreeNode) *IndexedFunction {
	root, subtrees := GenerateSubtreeFingerprints(tree, nil)
	indexed := &IndexedFunction{
		Name:            name,
		FilePath:        filePath,
		StartLine:       startLine,
		EndLine:         endLine,
		RootFingerprint: root,
		SubtreeIndex:    make(map[uint64][]*SubtreeFingerprint),
		SizeIndex:       make(map[int][]*SubtreeFingerprint),
	}
	for i := range subtrees {
		indexed.AddSubtree(subtrees[i])
	}
	return indexed
}

// AddSubtree adds a fingerprint to the hash and size indexes and the bloom filter
func (f *IndexedFunction) AddSubtree(fp SubtreeFingerprint) {
	stored := &fp
	f.SubtreeIndex[fp.Hash] = append(f.SubtreeIndex[fp.Hash], stored)
	f.SizeIndex[fp.Weight] = append(f.SizeIndex[fp.Weight], stored)
	f.ordered = append(f.ordered, stored)

	f.Bloom.Set(fp.Hash)
	f.Bloom.Set(fp.Hash * 0x9e3779b97f4a7c15)
	f.Bloom.Set(fp.Hash * 0x517cc1b727220a95)
}

// SubtreeCount returns the number of indexed subtrees
func (f *IndexedFunction) SubtreeCount() int {
	return len(f.ordered)
}

// SubtreesBySize returns the subtrees with exactly the given weight
func (f *IndexedFunction) SubtreesBySize(size int) []*SubtreeFingerprint {
	return f.SizeIndex[size]
}

// SubtreesInSizeRange returns subtrees whose weight is in [minSize, maxSize],
// ordered by weight
func (f *IndexedFunction) SubtreesInSizeRange(minSize, maxSize int) []*SubtreeFingerprint {
	var result []*SubtreeFingerprint
	for size := minSize; size <= maxSize; size++ {
		result = append(result, f.SizeIndex[size]...)
	}
	return result
}

// MightOverlap reports whether the two functions share any subtree bloom bit
func (f *IndexedFunction) MightOverlap(other *IndexedFunction) bool {
	return f.Bloom.Overlaps(other.Bloom)
}

// CreateSlidingWindows merges runs of adjacent subtrees (by start line) until
// their combined weight reaches windowSize
func CreateSlidingWindows(f *IndexedFunction, windowSize int) []SubtreeFingerprint {
	subtrees := make([]*SubtreeFingerprint, len(f.ordered))
	copy(subtrees, f.ordered)
	sort.SliceStable(subtrees, func(i, j int) bool {
		return subtrees[i].StartLine < subtrees[j].StartLine
	})

	var windows []SubtreeFingerprint
	var buf [8]byte
	for i := range subtrees {
		weight := 0
		endLine := 0
		var hashes []uint64
		var nodes []*TreeNode
		digest := xxhash.New()

		for j := i; j < len(subtrees); j++ {
			weight += subtrees[j].Weight
			hashes = append(hashes, subtrees[j].Hash)
			nodes = append(nodes, subtrees[j].nodes...)
			if subtrees[j].EndLine > endLine {
				endLine = subtrees[j].EndLine
			}
			binary.LittleEndian.PutUint64(buf[:], subtrees[j].Hash)
			_, _ = digest.Write(buf[:])

			if weight >= windowSize {
				windows = append(windows, SubtreeFingerprint{
					Weight:      weight,
					Hash:        digest.Sum64(),
					ChildHashes: hashes,
					StartLine:   subtrees[i].StartLine,
					EndLine:     endLine,
					NodeType:    fmt.Sprintf("%s%d..%d]", windowPrefix, i, j),
					Depth:       0,
					nodes:       nodes,
				})
				break
			}
		}
	}
	return windows
}
