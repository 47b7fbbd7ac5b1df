package analyzer

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// LSHIndex implements Locality Sensitive Hashing with the banding technique.
// Entries are identified by the caller's integer ids.
type LSHIndex struct {
	bands      int
	rows       int
	buckets    map[uint64][]int
	signatures map[int]*MinHashSignature
	threshold  float64
	mutex      sync.RWMutex
}

// LSHConfig holds configuration parameters for LSH
type LSHConfig struct {
	Bands     int     // Number of bands (default: 32)
	Rows      int     // Rows per band (default: 4)
	Threshold float64 // Similarity threshold (default: ~0.42)
}

// NewLSHIndex creates a new LSH index with the given configuration
func NewLSHIndex(config LSHConfig) *LSHIndex {
	if config.Bands <= 0 {
		config.Bands = 32
	}
	if config.Rows <= 0 {
		config.Rows = 4
	}
	if config.Threshold <= 0 || config.Threshold > 1 {
		// threshold ≈ (1/b)^(1/r)
		config.Threshold = math.Pow(1.0/float64(config.Bands), 1.0/float64(config.Rows))
	}

	return &LSHIndex{
		bands:      config.Bands,
		rows:       config.Rows,
		buckets:    make(map[uint64][]int),
		signatures: make(map[int]*MinHashSignature),
		threshold:  config.Threshold,
	}
}

// NewDefaultLSHIndex creates an LSH index with default parameters
func NewDefaultLSHIndex() *LSHIndex {
	return NewLSHIndex(LSHConfig{Bands: 32, Rows: 4})
}

// Threshold returns the estimated similarity above which pairs become candidates
func (idx *LSHIndex) Threshold() float64 {
	return idx.threshold
}

// SignatureLength is the minimum number of hashes a signature needs to be indexed
func (idx *LSHIndex) SignatureLength() int {
	return idx.bands * idx.rows
}

// AddFragment adds an entry with its signature to the index
func (idx *LSHIndex) AddFragment(id int, signature *MinHashSignature) error {
	if signature == nil {
		return fmt.Errorf("signature cannot be nil")
	}
	if signature.GetNumHashes() < idx.bands*idx.rows {
		return fmt.Errorf("signature has %d hashes, but need at least %d (bands=%d, rows=%d)",
			signature.GetNumHashes(), idx.bands*idx.rows, idx.bands, idx.rows)
	}

	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	idx.signatures[id] = signature
	sigs := signature.GetSignatures()
	for band := 0; band < idx.bands; band++ {
		key := idx.bandKey(sigs, band)
		idx.buckets[key] = append(idx.buckets[key], id)
	}
	return nil
}

// bandKey hashes the band index together with its rows
func (idx *LSHIndex) bandKey(signatures []uint64, band int) uint64 {
	digest := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(band))
	_, _ = digest.Write(buf[:])

	start := band * idx.rows
	for i := start; i < start+idx.rows && i < len(signatures); i++ {
		binary.LittleEndian.PutUint64(buf[:], signatures[i])
		_, _ = digest.Write(buf[:])
	}
	return digest.Sum64()
}

// FindCandidates returns the ids sharing at least one band with the query, sorted
func (idx *LSHIndex) FindCandidates(query *MinHashSignature) []int {
	if query == nil || query.GetNumHashes() < idx.bands*idx.rows {
		return []int{}
	}

	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	set := make(map[int]bool)
	sigs := query.GetSignatures()
	for band := 0; band < idx.bands; band++ {
		for _, id := range idx.buckets[idx.bandKey(sigs, band)] {
			set[id] = true
		}
	}

	candidates := make([]int, 0, len(set))
	for id := range set {
		candidates = append(candidates, id)
	}
	sort.Ints(candidates)
	return candidates
}

// CandidatePairs returns every id pair (i < j) that shares a bucket
func (idx *LSHIndex) CandidatePairs() [][2]int {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	seen := make(map[[2]int]bool)
	for _, ids := range idx.buckets {
		for a := 0; a < len(ids); a++ {
			for b := a + 1; b < len(ids); b++ {
				i, j := ids[a], ids[b]
				if i == j {
					continue
				}
				if i > j {
					i, j = j, i
				}
				seen[[2]int{i, j}] = true
			}
		}
	}

	pairs := make([][2]int, 0, len(seen))
	for p := range seen {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a][0] != pairs[b][0] {
			return pairs[a][0] < pairs[b][0]
		}
		return pairs[a][1] < pairs[b][1]
	})
	return pairs
}

// Size returns the number of indexed entries
func (idx *LSHIndex) Size() int {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()
	return len(idx.signatures)
}

// LSHIndexStats provides statistics about the LSH index
type LSHIndexStats struct {
	NumFragments  int
	NumBuckets    int
	Bands         int
	Rows          int
	Threshold     float64
	MaxBucketSize int
	AvgBucketSize float64
}

// GetStats returns statistics about the index
func (idx *LSHIndex) GetStats() LSHIndexStats {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	stats := LSHIndexStats{
		NumFragments: len(idx.signatures),
		NumBuckets:   len(idx.buckets),
		Bands:        idx.bands,
		Rows:         idx.rows,
		Threshold:    idx.threshold,
	}
	total := 0
	for _, ids := range idx.buckets {
		total += len(ids)
		if len(ids) > stats.MaxBucketSize {
			stats.MaxBucketSize = len(ids)
		}
	}
	if len(idx.buckets) > 0 {
		stats.AvgBucketSize = float64(total) / float64(len(idx.buckets))
	}
	return stats
}
