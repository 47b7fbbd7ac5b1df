package domain

// Default analysis settings. They match the behaviour of the command line
// tool when no configuration file is present.
const (
	// DefaultSimilarityThreshold is the minimum score for a pair to be reported
	DefaultSimilarityThreshold = 0.87

	// DefaultMinLines filters out functions shorter than this many lines
	DefaultMinLines = 3

	// DefaultRenameCost is the cost of relabelling one AST node
	DefaultRenameCost = 0.3

	// DefaultFingerprintThreshold is the minimum fingerprint similarity before exact comparison
	DefaultFingerprintThreshold = 0.5
)

// Overlap detection defaults
const (
	DefaultOverlapMinWindow     = 10
	DefaultOverlapMaxWindow     = 100
	DefaultOverlapThreshold     = 0.8
	DefaultOverlapSizeTolerance = 0.2
)

// Type comparison defaults
const (
	// DefaultTypeStructuralWeight is the share of the type score taken by
	// tree similarity; the rest comes from property matching
	DefaultTypeStructuralWeight = 0.6

	// DefaultPropertyMatchThreshold is the minimum score for two members to be paired
	DefaultPropertyMatchThreshold = 0.7
)

// DefaultLSHAutoThreshold is the number of functions above which LSH candidate
// generation is switched on when the mode is "auto".
const DefaultLSHAutoThreshold = 500
