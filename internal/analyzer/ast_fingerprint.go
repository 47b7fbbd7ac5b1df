package analyzer

import (
	"math"
	"math/bits"
)

const bloomBits = 128

// BloomFilter128 is a 128-bit bloom filter
type BloomFilter128 [2]uint64

// Set sets bit position % 128
func (b *BloomFilter128) Set(position uint64) {
	position %= bloomBits
	b[position/64] |= 1 << (position % 64)
}

// Overlaps reports whether the two filters share any bit
func (b BloomFilter128) Overlaps(other BloomFilter128) bool {
	return b[0]&other[0] != 0 || b[1]&other[1] != 0
}

// IsEmpty reports whether no bit is set
func (b BloomFilter128) IsEmpty() bool {
	return b[0] == 0 && b[1] == 0
}

// OnesCount returns the number of set bits
func (b BloomFilter128) OnesCount() int {
	return bits.OnesCount64(b[0]) + bits.OnesCount64(b[1])
}

// AstFingerprint is a node type histogram plus a bloom filter over node
// types. It is a cheap summary used to skip exact comparison of trees that
// have nothing in common.
type AstFingerprint struct {
	NodeCounts map[string]int
	Bloom      BloomFilter128
}

// NewAstFingerprint walks the tree once and builds its fingerprint
func NewAstFingerprint(tree *TreeNode) *AstFingerprint {
	fp := &AstFingerprint{NodeCounts: make(map[string]int)}
	for _, node := range GetSubtreeNodes(tree) {
		fp.countNode(node.Label)
	}
	return fp
}

func (f *AstFingerprint) countNode(label string) {
	f.NodeCounts[label]++
	f.Bloom.Set(polyHash(label, 31))
	f.Bloom.Set(polyHash(label, 37))
	f.Bloom.Set(polyHash(label, 41))
}

func polyHash(s string, multiplier uint64) uint64 {
	var h uint64
	for i := 0; i < len(s); i++ {
		h = h*multiplier + uint64(s[i])
	}
	return h
}

// MightBeSimilar is a lenient gate: it only rejects pairs whose bloom filters
// share no bit at all. The threshold is accepted for interface symmetry and
// does not change the outcome.
func (f *AstFingerprint) MightBeSimilar(other *AstFingerprint, threshold float64) bool {
	if f.Bloom.IsEmpty() || other.Bloom.IsEmpty() {
		return true
	}
	return f.Bloom.Overlaps(other.Bloom)
}

// Similarity returns 1 minus the weighted relative difference of the node
// type histograms
func (f *AstFingerprint) Similarity(other *AstFingerprint) float64 {
	totalDiff, totalWeight := 0.0, 0.0

	accumulate := func(label string, c1, c2 int) {
		if c1 == 0 && c2 == 0 {
			return
		}
		weight := categoryWeight(CategorizeNode(label))
		maxCount := math.Max(float64(c1), float64(c2))
		totalDiff += math.Abs(float64(c1-c2)) / maxCount * weight
		totalWeight += weight
	}

	for label, c1 := range f.NodeCounts {
		accumulate(label, c1, other.NodeCounts[label])
	}
	for label, c2 := range other.NodeCounts {
		if _, seen := f.NodeCounts[label]; !seen {
			accumulate(label, 0, c2)
		}
	}

	if totalWeight == 0 {
		return 1.0
	}
	return clamp01(1.0 - totalDiff/totalWeight)
}

// NodeCount returns the count of a node type
func (f *AstFingerprint) NodeCount(label string) int {
	return f.NodeCounts[label]
}
