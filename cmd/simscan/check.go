package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/simscan/app"
	"github.com/ludo-technologies/simscan/domain"
	"github.com/ludo-technologies/simscan/internal/config"
	"github.com/ludo-technologies/simscan/service"
)

// CheckCommand handles duplicate detection from the command line
type CheckCommand struct {
	// Input
	configFile      string
	recursive       bool
	includePatterns []string
	excludePatterns []string
	languages       []string

	// Scoring
	threshold            float64
	minLines             int
	minTokens            int
	renameCost           float64
	noSizePenalty        bool
	compareValues        bool
	scorer               string
	noFingerprint        bool
	fingerprintThreshold float64

	// Candidate selection
	skipTest           bool
	crossFile          bool
	filterFunction     string
	filterFunctionBody string

	// What to detect
	noFunctions bool
	types       bool

	// Overlap detection
	overlap              bool
	overlapMinWindow     int
	overlapMaxWindow     int
	overlapThreshold     float64
	overlapSizeTolerance float64

	// Output (only one format flag may be set)
	json       bool
	yaml       bool
	csv        bool
	print      bool
	sortBy     string
	group      bool
	outputPath string

	// Performance
	workers int
	lsh     string

	failOnDuplicates bool
}

// NewCheckCommand creates a new check command with default values
func NewCheckCommand() *CheckCommand {
	defaults := domain.DefaultSimilarityRequest()
	return &CheckCommand{
		recursive:            defaults.Recursive,
		threshold:            defaults.Threshold,
		minLines:             defaults.MinLines,
		renameCost:           defaults.RenameCost,
		scorer:               string(defaults.Scorer),
		fingerprintThreshold: defaults.FingerprintThreshold,
		crossFile:            defaults.CrossFile,
		overlapMinWindow:     defaults.OverlapMinWindow,
		overlapMaxWindow:     defaults.OverlapMaxWindow,
		overlapThreshold:     defaults.OverlapThreshold,
		overlapSizeTolerance: defaults.OverlapSizeTolerance,
		sortBy:               string(defaults.SortBy),
		lsh:                  defaults.LSHEnabled,
	}
}

// CreateCobraCommand creates the cobra command for duplicate detection
func (c *CheckCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Find structurally similar functions, types and code blocks",
		Long: `Find duplicated code by comparing the syntax trees of functions.

Every function is compared with every other function using tree edit
distance (TSED). Pairs scoring at or above the threshold are reported,
ordered by impact (the number of duplicated lines).

Supported languages: JavaScript, TypeScript, Python, Go, Rust, Java, C, C++,
C#, Ruby and PHP.

Settings are read from .simscan.toml (searched upward from the first path)
or from the file given with --config. Flags override the file.

Examples:
  # Check the current directory
  simscan check

  # Lower the threshold and show the duplicated code
  simscan check --threshold 0.8 --print src/

  # Also report similar types and duplicated blocks inside functions
  simscan check --types --overlap src/

  # Only compare TypeScript files, output JSON
  simscan check --languages typescript --json src/ > duplicates.json`,
		Args: cobra.ArbitraryArgs,
		RunE: c.runCheck,
	}

	flags := cmd.Flags()

	// Input flags
	flags.StringVarP(&c.configFile, "config", "c", "", "Configuration file path")
	flags.BoolVarP(&c.recursive, "recursive", "r", c.recursive, "Recursively analyze directories")
	flags.StringSliceVar(&c.includePatterns, "include", nil, "Glob patterns of files to include")
	flags.StringSliceVar(&c.excludePatterns, "exclude", nil, "Glob patterns of files to exclude")
	flags.StringSliceVar(&c.languages, "languages", nil, "Only analyze these languages")

	// Scoring flags
	flags.Float64VarP(&c.threshold, "threshold", "t", c.threshold, "Minimum similarity to report (0.0-1.0)")
	flags.IntVar(&c.minLines, "min-lines", c.minLines, "Minimum function length in lines")
	flags.IntVar(&c.minTokens, "min-tokens", 0, "Minimum function size in AST nodes (0 disables)")
	flags.Float64Var(&c.renameCost, "rename-cost", c.renameCost, "Cost of renaming one node")
	flags.BoolVar(&c.noSizePenalty, "no-size-penalty", false, "Do not scale down scores of functions shorter than 10 lines")
	flags.BoolVar(&c.compareValues, "compare-values", false, "Treat different identifier and literal values as renames")
	flags.StringVar(&c.scorer, "scorer", c.scorer, "Similarity scorer: tsed, enhanced")
	flags.BoolVar(&c.noFingerprint, "no-fingerprint", false, "Disable the fingerprint pre-filter")
	flags.Float64Var(&c.fingerprintThreshold, "fingerprint-threshold", c.fingerprintThreshold,
		"Minimum fingerprint similarity before exact comparison")

	// Candidate selection flags
	flags.BoolVar(&c.skipTest, "skip-test", false, "Skip test functions")
	flags.BoolVar(&c.crossFile, "cross-file", c.crossFile, "Compare functions across files")
	flags.StringVar(&c.filterFunction, "filter-function", "", "Only report pairs involving functions whose name contains this text")
	flags.StringVar(&c.filterFunctionBody, "filter-function-body", "", "Only report pairs involving functions whose body contains this text")

	// Detection flags
	flags.BoolVar(&c.noFunctions, "no-functions", false, "Skip function duplicate detection")
	flags.BoolVar(&c.types, "types", false, "Detect similar type declarations")

	// Overlap flags
	flags.BoolVar(&c.overlap, "overlap", false, "Detect duplicated blocks inside functions")
	flags.IntVar(&c.overlapMinWindow, "overlap-min-window", c.overlapMinWindow, "Minimum overlap window size in AST nodes")
	flags.IntVar(&c.overlapMaxWindow, "overlap-max-window", c.overlapMaxWindow, "Maximum overlap window size in AST nodes")
	flags.Float64Var(&c.overlapThreshold, "overlap-threshold", c.overlapThreshold, "Minimum similarity of overlapping blocks")
	flags.Float64Var(&c.overlapSizeTolerance, "overlap-size-tolerance", c.overlapSizeTolerance,
		"Allowed relative size difference of overlapping blocks")

	// Output flags
	flags.BoolVar(&c.json, "json", false, "Output results as JSON")
	flags.BoolVar(&c.yaml, "yaml", false, "Output results as YAML")
	flags.BoolVar(&c.csv, "csv", false, "Output results as CSV")
	flags.StringVarP(&c.outputPath, "output", "o", "", "Write the report to this file instead of stdout")
	flags.BoolVar(&c.print, "print", false, "Print the duplicated code")
	flags.StringVar(&c.sortBy, "sort", c.sortBy, "Sort results by: impact, similarity, location")
	flags.BoolVar(&c.group, "group", false, "Group transitively similar functions")

	// Performance flags
	flags.IntVarP(&c.workers, "workers", "j", 0, "Number of comparison workers (0 uses all CPUs)")
	flags.StringVar(&c.lsh, "lsh", c.lsh, "LSH candidate generation: auto, true, false")

	flags.BoolVar(&c.failOnDuplicates, "fail-on-duplicates", false, "Exit with status 1 when duplicates are found")

	_ = flags.MarkHidden("rename-cost")
	_ = flags.MarkHidden("fingerprint-threshold")
	_ = flags.MarkHidden("overlap-size-tolerance")

	return cmd
}

// runCheck executes duplicate detection
func (c *CheckCommand) runCheck(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")

	request, err := c.buildRequest(cmd, args, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	progress := newProgressManager(cmd.ErrOrStderr(), request.OutputFormat)
	defer progress.Close()

	useCase := app.NewSimilarityUseCase(
		service.NewSimilarityService(progress),
		service.NewFileReader(),
		service.NewOutputFormatter(),
	).WithReportWriter(service.NewFileOutputWriter(cmd.ErrOrStderr()))
	useCase.SetVerbose(verbose)

	response, err := useCase.Execute(context.Background(), request)
	if err != nil {
		return fmt.Errorf("duplicate detection failed: %w", err)
	}

	if c.failOnDuplicates {
		found := len(response.Duplicates) + len(response.TypeDuplicates) + len(response.Overlaps)
		if found > 0 {
			return fmt.Errorf("found %d duplicates", found)
		}
	}
	return nil
}

// buildRequest layers configuration file values under explicitly set flags
func (c *CheckCommand) buildRequest(cmd *cobra.Command, args []string, out io.Writer) (*domain.SimilarityRequest, error) {
	paths := args
	if len(paths) == 0 {
		paths = []string{"."}
	}

	outputFormat, err := service.NewOutputFormatResolver().Determine(c.json, c.yaml, c.csv, domain.OutputFormatText)
	if err != nil {
		return nil, err
	}

	tracker := config.NewFlagTrackerFromFlagSet(cmd.Flags())
	loader := service.NewConfigurationLoaderWithFlags(tracker)

	base, err := loader.LoadConfig(c.configFile, configSearchDir(paths[0]))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if c.configFile != "" {
		logVerbose(cmd, "Loaded configuration from %s", c.configFile)
	}

	// Paths given on the command line replace configured ones
	if len(args) == 0 && len(base.Paths) > 0 {
		paths = base.Paths
	}

	override := c.flagRequest(paths, outputFormat, out)
	request := loader.MergeConfig(base, override)

	if err := request.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return request, nil
}

// flagRequest converts flag values into a request. Only flags the user set
// are taken from it when merging.
func (c *CheckCommand) flagRequest(paths []string, format domain.OutputFormat, out io.Writer) *domain.SimilarityRequest {
	req := domain.DefaultSimilarityRequest()
	req.Paths = paths
	req.Recursive = c.recursive
	req.IncludePatterns = c.includePatterns
	req.ExcludePatterns = c.excludePatterns
	req.Languages = c.languages

	req.Threshold = c.threshold
	req.MinLines = c.minLines
	req.MinTokens = c.minTokens
	req.RenameCost = c.renameCost
	req.SizePenalty = !c.noSizePenalty
	req.CompareValues = c.compareValues
	req.Scorer = domain.Scorer(c.scorer)
	req.UseFingerprint = !c.noFingerprint
	req.FingerprintThreshold = c.fingerprintThreshold

	req.SkipTest = c.skipTest
	req.CrossFile = c.crossFile
	req.FilterFunction = c.filterFunction
	req.FilterFunctionBody = c.filterFunctionBody

	req.DetectFunctions = !c.noFunctions
	req.DetectTypes = c.types
	req.DetectOverlaps = c.overlap
	req.OverlapMinWindow = c.overlapMinWindow
	req.OverlapMaxWindow = c.overlapMaxWindow
	req.OverlapThreshold = c.overlapThreshold
	req.OverlapSizeTolerance = c.overlapSizeTolerance

	req.OutputFormat = format
	req.OutputWriter = out
	req.OutputPath = c.outputPath
	req.ShowCode = c.print
	req.SortBy = domain.SortCriteria(c.sortBy)
	req.GroupDuplicates = c.group

	req.MaxWorkers = c.workers
	req.LSHEnabled = c.lsh
	req.ConfigPath = c.configFile
	return req
}

// configSearchDir returns the directory .simscan.toml discovery starts from
func configSearchDir(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "."
	}
	if info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}

// newProgressManager shows a progress bar only for interactive text output
func newProgressManager(w io.Writer, format domain.OutputFormat) domain.ProgressManager {
	if format != domain.OutputFormatText || !service.IsInteractiveEnvironment() {
		return service.NewNoOpProgressManager()
	}
	pm := service.NewProgressManager()
	pm.SetWriter(w)
	return pm
}

func logVerbose(cmd *cobra.Command, format string, args ...interface{}) {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		log.Printf(format, args...)
	}
}

// NewCheckCmd creates and returns the check cobra command
func NewCheckCmd() *cobra.Command {
	return NewCheckCommand().CreateCobraCommand()
}
