package analyzer

import (
	"math"
	"math/rand"

	"github.com/cespare/xxhash/v2"
)

// MinHashSignature holds the signature vector
type MinHashSignature struct {
	signatures []uint64
	numHashes  int
}

// GetSignatures returns the signature values
func (s *MinHashSignature) GetSignatures() []uint64 {
	return s.signatures
}

// GetNumHashes returns the signature length
func (s *MinHashSignature) GetNumHashes() int {
	return s.numHashes
}

// HashFunc maps a 64-bit base hash to another 64-bit value
type HashFunc func(uint64) uint64

// MinHasher computes MinHash signatures for feature sets
type MinHasher struct {
	numHashes     int
	hashFunctions []HashFunc
}

// NewMinHasher creates a MinHasher with numHashes functions (default 128 if invalid)
func NewMinHasher(numHashes int) *MinHasher {
	if numHashes <= 0 {
		numHashes = 128
	}
	mh := &MinHasher{numHashes: numHashes}
	mh.generateHashFunctions()
	return mh
}

func (m *MinHasher) generateHashFunctions() {
	// h_i(x) = (a_i * x) ^ b_i with a fixed seed so signatures are reproducible
	rng := rand.New(rand.NewSource(0x5eed_1234_cafe_babe))
	m.hashFunctions = make([]HashFunc, m.numHashes)
	for i := 0; i < m.numHashes; i++ {
		ai := rng.Uint64() | 1
		bi := rng.Uint64()
		m.hashFunctions[i] = func(x uint64) uint64 {
			return (ai * x) ^ bi + ai + bi
		}
	}
}

// ComputeSignature computes the signature of a set of string features
func (m *MinHasher) ComputeSignature(features []string) *MinHashSignature {
	base := make([]uint64, 0, len(features))
	for _, f := range features {
		base = append(base, xxhash.Sum64String(f))
	}
	return m.ComputeSignatureFromHashes(base)
}

// ComputeSignatureFromHashes computes the signature of a set of already
// hashed features, such as subtree hashes
func (m *MinHasher) ComputeSignatureFromHashes(hashes []uint64) *MinHashSignature {
	sig := make([]uint64, m.numHashes)
	if len(hashes) == 0 {
		return &MinHashSignature{signatures: sig, numHashes: m.numHashes}
	}

	set := make(map[uint64]struct{}, len(hashes))
	base := make([]uint64, 0, len(hashes))
	for _, h := range hashes {
		if _, ok := set[h]; ok {
			continue
		}
		set[h] = struct{}{}
		base = append(base, h)
	}

	for i, hi := range m.hashFunctions {
		minv := uint64(math.MaxUint64)
		for _, x := range base {
			if v := hi(x); v < minv {
				minv = v
			}
		}
		sig[i] = minv
	}
	return &MinHashSignature{signatures: sig, numHashes: m.numHashes}
}

// EstimateJaccardSimilarity estimates Jaccard similarity via signature agreement ratio
func (m *MinHasher) EstimateJaccardSimilarity(sig1, sig2 *MinHashSignature) float64 {
	if sig1 == nil || sig2 == nil {
		return 0.0
	}
	n := minInt(len(sig1.signatures), len(sig2.signatures))
	if n == 0 {
		return 0.0
	}
	match := 0
	for i := 0; i < n; i++ {
		if sig1.signatures[i] == sig2.signatures[i] {
			match++
		}
	}
	return float64(match) / float64(n)
}

// NumHashes returns the number of hash functions
func (m *MinHasher) NumHashes() int { return m.numHashes }
