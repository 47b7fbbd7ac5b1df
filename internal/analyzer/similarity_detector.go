package analyzer

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ludo-technologies/simscan/domain"
	"github.com/ludo-technologies/simscan/internal/parser"
)

// FunctionUnit is one extracted function ready for comparison: its
// definition, the converted body tree and the source of its file
type FunctionUnit struct {
	Definition domain.FunctionDefinition
	Tree       *TreeNode
	Source     []byte

	fingerprint *AstFingerprint
	indexed     *IndexedFunction
}

// NewFunctionUnit builds a unit and precomputes its fingerprints
func NewFunctionUnit(def domain.FunctionDefinition, tree *TreeNode, source []byte) *FunctionUnit {
	return &FunctionUnit{
		Definition:  def,
		Tree:        tree,
		Source:      source,
		fingerprint: NewAstFingerprint(tree),
		indexed:     NewIndexedFunction(def.QualifiedName(), def.FilePath, def.StartLine, def.EndLine, tree),
	}
}

// Fingerprint returns the node type fingerprint of the body
func (u *FunctionUnit) Fingerprint() *AstFingerprint {
	return u.fingerprint
}

// Indexed returns the subtree index of the body
func (u *FunctionUnit) Indexed() *IndexedFunction {
	return u.indexed
}

// Text returns the source text of the whole definition
func (u *FunctionUnit) Text() string {
	return spanText(u.Source, u.Definition.Span)
}

// TypeUnit is one extracted type ready for comparison
type TypeUnit struct {
	Definition domain.TypeDefinition
	Tree       *TreeNode
	Source     []byte
	Properties []TypeProperty
}

// NewTypeUnit builds a type unit
func NewTypeUnit(def domain.TypeDefinition, tree *TreeNode, source []byte) *TypeUnit {
	return &TypeUnit{Definition: def, Tree: tree, Source: source}
}

func spanText(source []byte, span domain.Span) string {
	if span.Start < 0 || span.End > len(source) || span.Start > span.End {
		return ""
	}
	return string(source[span.Start:span.End])
}

// BuildUnits converts the definitions of a parsed file into comparison
// units. Definitions whose body cannot be located are reported as skipped.
func BuildUnits(file *parser.ParsedFile) ([]*FunctionUnit, []*TypeUnit, []domain.SkippedUnit) {
	var (
		functions []*FunctionUnit
		types     []*TypeUnit
		skipped   []domain.SkippedUnit
	)

	converter := NewTreeConverter()
	for _, def := range file.Functions {
		body := file.BodyNode(def.BodySpan)
		if body == nil {
			skipped = append(skipped, domain.SkippedUnit{
				FilePath: file.Path,
				Unit:     def.QualifiedName(),
				Reason:   "function body not found in syntax tree",
			})
			continue
		}
		functions = append(functions, NewFunctionUnit(def, converter.ConvertNode(body), file.Source))
	}
	for _, def := range file.Types {
		body := file.BodyNode(def.BodySpan)
		if body == nil {
			skipped = append(skipped, domain.SkippedUnit{
				FilePath: file.Path,
				Unit:     def.Name,
				Reason:   "type body not found in syntax tree",
			})
			continue
		}
		unit := NewTypeUnit(def, converter.ConvertNode(body), file.Source)
		unit.Properties = ExtractTypeProperties(body, file.Source)
		types = append(types, unit)
	}
	return functions, types, skipped
}

// LSHMode selects whether cross-file candidates come from the LSH index
type LSHMode string

const (
	LSHOff  LSHMode = "false"
	LSHOn   LSHMode = "true"
	LSHAuto LSHMode = "auto"
)

// SimilarityDetectorConfig holds configuration for duplicate function detection
type SimilarityDetectorConfig struct {
	// Minimum score for a pair to be reported
	Threshold float64

	TSED     TSEDOptions
	Enhanced EnhancedSimilarityOptions
	Scorer   domain.Scorer

	// Fingerprint pre-filter
	UseFingerprint       bool
	FingerprintThreshold float64

	// Candidate selection
	CrossFile          bool
	FilterFunction     string
	FilterFunctionBody string

	// LSH candidate generation for cross-file pairs
	LSHMode          LSHMode
	LSHAutoThreshold int
	LSHBands         int
	LSHRows          int

	// Type scoring: TypeStructuralWeight of the tree score plus the rest
	// from property matching
	TypeStructuralWeight   float64
	PropertyMatchThreshold float64

	MaxWorkers int
}

// DefaultSimilarityDetectorConfig returns default configuration
func DefaultSimilarityDetectorConfig() *SimilarityDetectorConfig {
	return &SimilarityDetectorConfig{
		Threshold:            domain.DefaultSimilarityThreshold,
		TSED:                 DefaultTSEDOptions(),
		Enhanced:             DefaultEnhancedSimilarityOptions(),
		Scorer:               domain.ScorerTSED,
		UseFingerprint:       true,
		FingerprintThreshold: domain.DefaultFingerprintThreshold,
		CrossFile:            true,
		LSHMode:              LSHAuto,
		LSHAutoThreshold:     domain.DefaultLSHAutoThreshold,
		LSHBands:             32,
		LSHRows:              4,

		TypeStructuralWeight:   domain.DefaultTypeStructuralWeight,
		PropertyMatchThreshold: domain.DefaultPropertyMatchThreshold,
	}
}

// SimilarityDetectorFromRequest maps a request onto detector configuration
func SimilarityDetectorFromRequest(req *domain.SimilarityRequest) *SimilarityDetectorConfig {
	apted := APTEDOptions{
		RenameCost:    req.RenameCost,
		DeleteCost:    req.DeleteCost,
		InsertCost:    req.InsertCost,
		CompareValues: req.CompareValues,
	}
	mode := LSHMode(req.LSHEnabled)
	if mode == "" {
		mode = LSHAuto
	}
	return &SimilarityDetectorConfig{
		Threshold: req.Threshold,
		TSED: TSEDOptions{
			APTED:       apted,
			MinLines:    req.MinLines,
			MinTokens:   req.MinTokens,
			SizePenalty: req.SizePenalty,
			SkipTest:    req.SkipTest,
		},
		Enhanced: EnhancedSimilarityOptions{
			StructuralWeight:       req.StructuralWeight,
			SizeWeight:             req.SizeWeight,
			TypeDistributionWeight: req.TypeDistributionWeight,
			SemanticWeight:         req.SemanticWeight,
			MinSizeRatio:           req.MinSizeRatio,
			APTED:                  apted,
		},
		Scorer:               req.Scorer,
		UseFingerprint:       req.UseFingerprint,
		FingerprintThreshold: req.FingerprintThreshold,
		CrossFile:            req.CrossFile,
		FilterFunction:       req.FilterFunction,
		FilterFunctionBody:   req.FilterFunctionBody,
		LSHMode:              mode,
		LSHAutoThreshold:     req.LSHAutoThreshold,
		LSHBands:             req.LSHBands,
		LSHRows:              req.LSHRows,

		TypeStructuralWeight:   req.TypeStructuralWeight,
		PropertyMatchThreshold: req.PropertyMatchThreshold,

		MaxWorkers: req.MaxWorkers,
	}
}

// Validate checks the configuration
func (c *SimilarityDetectorConfig) Validate() error {
	if c.Threshold < 0 || c.Threshold > 1 {
		return domain.NewInvalidConfigurationError(fmt.Sprintf("threshold must be between 0.0 and 1.0, got %v", c.Threshold))
	}
	if c.FingerprintThreshold < 0 || c.FingerprintThreshold > 1 {
		return domain.NewInvalidConfigurationError(fmt.Sprintf("fingerprint threshold must be between 0.0 and 1.0, got %v", c.FingerprintThreshold))
	}
	if err := c.TSED.Validate(); err != nil {
		return err
	}
	switch c.Scorer {
	case domain.ScorerTSED:
	case domain.ScorerEnhanced:
		if err := c.Enhanced.Validate(); err != nil {
			return err
		}
	default:
		return domain.NewInvalidConfigurationError(fmt.Sprintf("unknown scorer: %s", c.Scorer))
	}
	if c.TypeStructuralWeight < 0 || c.TypeStructuralWeight > 1 {
		return domain.NewInvalidConfigurationError(fmt.Sprintf("type structural weight must be between 0.0 and 1.0, got %v", c.TypeStructuralWeight))
	}
	if c.PropertyMatchThreshold < 0 || c.PropertyMatchThreshold > 1 {
		return domain.NewInvalidConfigurationError(fmt.Sprintf("property match threshold must be between 0.0 and 1.0, got %v", c.PropertyMatchThreshold))
	}
	switch c.LSHMode {
	case LSHOff, LSHOn, LSHAuto:
	default:
		return domain.NewInvalidConfigurationError(fmt.Sprintf("lsh must be true, false or auto, got %q", c.LSHMode))
	}
	return nil
}

// DetectionStats counts the work done by one detection run
type DetectionStats struct {
	Units           int
	PairsEnumerated int
	PairsFiltered   int
	PairsCompared   int
	Duplicates      int
	UsedLSH         bool
}

// SimilarityDetector finds pairs of structurally similar functions
type SimilarityDetector struct {
	config *SimilarityDetectorConfig
	stats  DetectionStats
}

// NewSimilarityDetector creates a detector. A nil config uses the defaults.
func NewSimilarityDetector(config *SimilarityDetectorConfig) *SimilarityDetector {
	if config == nil {
		config = DefaultSimilarityDetectorConfig()
	}
	return &SimilarityDetector{config: config}
}

// Config returns the detector configuration
func (d *SimilarityDetector) Config() *SimilarityDetectorConfig {
	return d.config
}

// Statistics returns the counters of the last run
func (d *SimilarityDetector) Statistics() DetectionStats {
	return d.stats
}

type unitPair struct{ i, j int }

// FindSimilarFunctions compares functions within each file and, when
// CrossFile is set, across files. Results are sorted by impact then similarity.
func (d *SimilarityDetector) FindSimilarFunctions(ctx context.Context, units []*FunctionUnit) ([]domain.SimilarityResult, error) {
	if err := d.config.Validate(); err != nil {
		return nil, err
	}
	d.stats = DetectionStats{Units: len(units)}

	eligible := make([]bool, len(units))
	for i, u := range units {
		eligible[i] = d.isEligible(u)
	}

	candidates, err := d.enumeratePairs(units)
	if err != nil {
		return nil, err
	}
	d.stats.PairsEnumerated = len(candidates)

	pairs := candidates[:0:0]
	for _, p := range candidates {
		a, b := units[p.i], units[p.j]
		if !eligible[p.i] || !eligible[p.j] || !d.matchesFilters(a, b) || !d.passesFingerprint(a, b) {
			d.stats.PairsFiltered++
			continue
		}
		pairs = append(pairs, p)
	}

	scores := make([]float64, len(pairs))
	var compared int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerLimit(d.config.MaxWorkers))
	for k, p := range pairs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scores[k] = d.score(units[p.i], units[p.j])
			atomic.AddInt64(&compared, 1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.stats.PairsCompared = int(compared)

	var results []domain.SimilarityResult
	for k, p := range pairs {
		if scores[k] >= d.config.Threshold {
			results = append(results, domain.NewSimilarityResult(units[p.i].Definition, units[p.j].Definition, scores[k]))
		}
	}
	SortSimilarityResults(results)
	d.stats.Duplicates = len(results)
	return results, nil
}

// Compare scores two units with the configured scorer, ignoring filters
func (d *SimilarityDetector) Compare(a, b *FunctionUnit) float64 {
	return d.score(a, b)
}

func (d *SimilarityDetector) score(a, b *FunctionUnit) float64 {
	if d.config.Scorer == domain.ScorerEnhanced {
		return CalculateEnhancedSimilarity(a.Tree, b.Tree, d.config.Enhanced)
	}
	return CalculateTSED(a.Tree, b.Tree, a.Definition.LineCount(), b.Definition.LineCount(), d.config.TSED)
}

// enumeratePairs returns within-file pairs that are not nested in each other,
// plus cross-file pairs taken exhaustively or from the LSH index
func (d *SimilarityDetector) enumeratePairs(units []*FunctionUnit) ([]unitPair, error) {
	var pairs []unitPair
	for i := 0; i < len(units); i++ {
		for j := i + 1; j < len(units); j++ {
			if units[i].Definition.FilePath != units[j].Definition.FilePath {
				continue
			}
			if isNestedPair(units[i], units[j]) {
				continue
			}
			pairs = append(pairs, unitPair{i, j})
		}
	}

	if !d.config.CrossFile {
		return pairs, nil
	}

	if d.useLSH(len(units)) {
		d.stats.UsedLSH = true
		index := NewLSHIndex(LSHConfig{Bands: d.config.LSHBands, Rows: d.config.LSHRows})
		cross, err := lshCrossFilePairs(units, index, NewMinHasher(index.SignatureLength()))
		if err != nil {
			return nil, err
		}
		return append(pairs, cross...), nil
	}

	for i := 0; i < len(units); i++ {
		for j := i + 1; j < len(units); j++ {
			if units[i].Definition.FilePath != units[j].Definition.FilePath {
				pairs = append(pairs, unitPair{i, j})
			}
		}
	}
	return pairs, nil
}

func (d *SimilarityDetector) useLSH(n int) bool {
	switch d.config.LSHMode {
	case LSHOn:
		return true
	case LSHAuto:
		return d.config.LSHAutoThreshold > 0 && n > d.config.LSHAutoThreshold
	default:
		return false
	}
}

// lshCrossFilePairs indexes each unit's subtree hashes and returns the
// cross-file pairs sharing at least one band
func lshCrossFilePairs(units []*FunctionUnit, index *LSHIndex, hasher *MinHasher) ([]unitPair, error) {
	for i, u := range units {
		hashes := make([]uint64, 0, u.Indexed().SubtreeCount()+1)
		hashes = append(hashes, u.Indexed().RootFingerprint.Hash)
		for _, fp := range u.Indexed().ordered {
			hashes = append(hashes, fp.Hash)
		}
		if err := index.AddFragment(i, hasher.ComputeSignatureFromHashes(hashes)); err != nil {
			return nil, fmt.Errorf("failed to index %s: %w", u.Definition.Location(), err)
		}
	}

	var pairs []unitPair
	for _, p := range index.CandidatePairs() {
		if units[p[0]].Definition.FilePath != units[p[1]].Definition.FilePath {
			pairs = append(pairs, unitPair{p[0], p[1]})
		}
	}
	return pairs, nil
}

// isEligible applies the size and test-name filters to a single unit
func (d *SimilarityDetector) isEligible(u *FunctionUnit) bool {
	if d.config.TSED.MinTokens > 0 {
		if u.Tree.Size() < d.config.TSED.MinTokens {
			return false
		}
	} else if u.Definition.LineCount() < d.config.TSED.MinLines {
		return false
	}

	if d.config.TSED.SkipTest {
		if lang, ok := parser.ParseLanguage(u.Definition.Language); ok {
			if cfg, ok := parser.ConfigFor(lang); ok && cfg.IsTestFunction(u.Definition.Name) {
				return false
			}
		}
	}
	return true
}

// matchesFilters keeps a pair when either side matches the name and body filters
func (d *SimilarityDetector) matchesFilters(a, b *FunctionUnit) bool {
	if f := d.config.FilterFunction; f != "" {
		if !strings.Contains(a.Definition.Name, f) && !strings.Contains(b.Definition.Name, f) {
			return false
		}
	}
	if f := d.config.FilterFunctionBody; f != "" {
		if !strings.Contains(a.Text(), f) && !strings.Contains(b.Text(), f) {
			return false
		}
	}
	return true
}

func (d *SimilarityDetector) passesFingerprint(a, b *FunctionUnit) bool {
	if !d.config.UseFingerprint {
		return true
	}
	fa, fb := a.Fingerprint(), b.Fingerprint()
	if !fa.MightBeSimilar(fb, d.config.FingerprintThreshold) {
		return false
	}
	return fa.Similarity(fb) >= d.config.FingerprintThreshold
}

// FindSimilarTypes compares type definitions. The score is the TSED of the
// bodies, blended with member matching when either type declares members.
func (d *SimilarityDetector) FindSimilarTypes(ctx context.Context, units []*TypeUnit) ([]domain.TypeSimilarityResult, error) {
	if err := d.config.Validate(); err != nil {
		return nil, err
	}

	var pairs []unitPair
	for i := 0; i < len(units); i++ {
		if !d.typeEligible(units[i]) {
			continue
		}
		for j := i + 1; j < len(units); j++ {
			a, b := units[i].Definition, units[j].Definition
			if !d.typeEligible(units[j]) {
				continue
			}
			if a.FilePath == b.FilePath && (a.Span.StrictlyContains(b.Span) || b.Span.StrictlyContains(a.Span)) {
				continue
			}
			if a.FilePath != b.FilePath && !d.config.CrossFile {
				continue
			}
			pairs = append(pairs, unitPair{i, j})
		}
	}

	scored := make([]domain.TypeSimilarityResult, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerLimit(d.config.MaxWorkers))
	for k, p := range pairs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			scored[k] = d.compareTypes(units[p.i], units[p.j])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var results []domain.TypeSimilarityResult
	for _, r := range scored {
		if r.Similarity >= d.config.Threshold {
			results = append(results, r)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Impact != results[j].Impact {
			return results[i].Impact > results[j].Impact
		}
		return results[i].Similarity > results[j].Similarity
	})
	return results, nil
}

func (d *SimilarityDetector) compareTypes(a, b *TypeUnit) domain.TypeSimilarityResult {
	structural := CalculateTSED(a.Tree, b.Tree, a.Definition.LineCount(), b.Definition.LineCount(), d.config.TSED)
	result := domain.TypeSimilarityResult{
		Type1:                a.Definition,
		Type2:                b.Definition,
		Similarity:           structural,
		Impact:               minInt(a.Definition.LineCount(), b.Definition.LineCount()),
		StructuralSimilarity: structural,
	}

	props := CompareTypeProperties(a.Properties, b.Properties, d.config.PropertyMatchThreshold)
	if !props.Comparable {
		return result
	}
	w := d.config.TypeStructuralWeight
	result.Similarity = structural*w + props.Score*(1-w)
	result.PropertySimilarity = props.Score
	result.MatchedProperties = props.Matched
	result.MissingProperties = props.Missing
	result.ExtraProperties = props.Extra
	result.TypeMismatches = props.TypeMismatches
	result.OptionalityDifferences = props.OptionalityDifferences
	return result
}

func (d *SimilarityDetector) typeEligible(u *TypeUnit) bool {
	if d.config.TSED.MinTokens > 0 {
		return u.Tree.Size() >= d.config.TSED.MinTokens
	}
	return u.Definition.LineCount() >= d.config.TSED.MinLines
}

// SortSimilarityResults orders results by impact, then similarity, both descending
func SortSimilarityResults(results []domain.SimilarityResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Impact != results[j].Impact {
			return results[i].Impact > results[j].Impact
		}
		return results[i].Similarity > results[j].Similarity
	})
}

// workerLimit returns the worker pool size, defaulting to the number of CPUs
func workerLimit(maxWorkers int) int {
	if maxWorkers <= 0 {
		return runtime.NumCPU()
	}
	return maxWorkers
}
