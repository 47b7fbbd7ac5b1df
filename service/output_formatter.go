package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/ludo-technologies/simscan/domain"
	"github.com/ludo-technologies/simscan/internal/analyzer"
)

// OutputFormatterImpl implements domain.SimilarityOutputFormatter
type OutputFormatterImpl struct {
	readFile func(string) ([]byte, error)

	mu      sync.Mutex
	sources map[string][]byte
}

// NewOutputFormatter creates a new output formatter service
func NewOutputFormatter() *OutputFormatterImpl {
	return &OutputFormatterImpl{
		readFile: os.ReadFile,
		sources:  make(map[string][]byte),
	}
}

// Write renders the response in the requested format
func (f *OutputFormatterImpl) Write(response *domain.SimilarityResponse, format domain.OutputFormat, writer io.Writer) error {
	if response == nil {
		return domain.NewOutputError("nothing to write", nil)
	}

	switch format {
	case domain.OutputFormatText, "":
		return f.writeText(response, writer)
	case domain.OutputFormatJSON:
		return WriteJSON(writer, response)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, response)
	case domain.OutputFormatCSV:
		return f.writeCSV(response, writer)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
}

func (f *OutputFormatterImpl) showCode(response *domain.SimilarityResponse) bool {
	return response.Request != nil && response.Request.ShowCode
}

func (f *OutputFormatterImpl) writeText(response *domain.SimilarityResponse, writer io.Writer) error {
	var b strings.Builder
	utils := NewFormatUtils()
	showCode := f.showCode(response)

	b.WriteString(utils.FormatMainHeader("Code Similarity Report"))

	grouped := response.Request != nil && response.Request.GroupDuplicates && len(response.Groups) > 0
	if grouped {
		b.WriteString(utils.FormatSectionHeader("Duplicate Groups"))
		for _, group := range response.Groups {
			fmt.Fprintf(&b, "\nGroup %d (%d functions, average similarity: %s)\n",
				group.ID, group.Size, utils.FormatPercentage(group.Similarity))
			for _, fn := range group.Functions {
				fmt.Fprintf(&b, "  %s\n", utils.FormatLocation(fn.FilePath, fn.StartLine, fn.EndLine, fn.QualifiedName()))
			}
		}
		b.WriteString("\n")
	} else if len(response.Duplicates) > 0 {
		b.WriteString(utils.FormatSectionHeader("Function Duplicates"))
		for _, r := range response.Duplicates {
			fmt.Fprintf(&b, "\nSimilarity: %s, Priority: %.1f (lines: %d)\n",
				utils.FormatPercentage(r.Similarity), float64(r.Impact)*r.Similarity, r.Impact)
			fmt.Fprintf(&b, "  %s\n", utils.FormatLocation(r.Function1.FilePath, r.Function1.StartLine, r.Function1.EndLine, r.Function1.QualifiedName()))
			fmt.Fprintf(&b, "  %s\n", utils.FormatLocation(r.Function2.FilePath, r.Function2.StartLine, r.Function2.EndLine, r.Function2.QualifiedName()))
			if showCode {
				f.writeCode(&b, r.Function1.FilePath, r.Function1.QualifiedName(), r.Function1.StartLine, r.Function1.EndLine)
				f.writeCode(&b, r.Function2.FilePath, r.Function2.QualifiedName(), r.Function2.StartLine, r.Function2.EndLine)
			}
		}
		b.WriteString("\n")
	}

	if len(response.TypeDuplicates) > 0 {
		b.WriteString(utils.FormatSectionHeader("Type Duplicates"))
		for _, r := range response.TypeDuplicates {
			fmt.Fprintf(&b, "\nSimilarity: %s (lines: %d)\n", utils.FormatPercentage(r.Similarity), r.Impact)
			fmt.Fprintf(&b, "  %s (%s)\n", utils.FormatLocation(r.Type1.FilePath, r.Type1.StartLine, r.Type1.EndLine, r.Type1.Name), r.Type1.Kind)
			fmt.Fprintf(&b, "  %s (%s)\n", utils.FormatLocation(r.Type2.FilePath, r.Type2.StartLine, r.Type2.EndLine, r.Type2.Name), r.Type2.Kind)
			if len(r.MatchedProperties) > 0 {
				fmt.Fprintf(&b, "  properties: %d matched, %d only in %s, %d only in %s\n",
					len(r.MatchedProperties), len(r.MissingProperties), r.Type1.Name, len(r.ExtraProperties), r.Type2.Name)
				for _, m := range r.TypeMismatches {
					fmt.Fprintf(&b, "    %s: %s vs %s: %s\n", m.Property1, m.Type1, m.Property2, m.Type2)
				}
			}
			if showCode {
				f.writeCode(&b, r.Type1.FilePath, r.Type1.Name, r.Type1.StartLine, r.Type1.EndLine)
				f.writeCode(&b, r.Type2.FilePath, r.Type2.Name, r.Type2.StartLine, r.Type2.EndLine)
			}
		}
		b.WriteString("\n")
	}

	if len(response.Overlaps) > 0 {
		b.WriteString(utils.FormatSectionHeader("Partial Overlaps"))
		for _, o := range response.Overlaps {
			fmt.Fprintf(&b, "\nSimilarity: %s, %d nodes (%s)\n",
				utils.FormatPercentage(o.Overlap.Similarity), o.Overlap.NodeCount, o.Overlap.NodeType)
			fmt.Fprintf(&b, "  %s\n", utils.FormatLocation(o.SourceFile, o.Overlap.SourceLines.Start, o.Overlap.SourceLines.End, o.Overlap.SourceFunction))
			fmt.Fprintf(&b, "  %s\n", utils.FormatLocation(o.TargetFile, o.Overlap.TargetLines.Start, o.Overlap.TargetLines.End, o.Overlap.TargetFunction))
			if o.HasExactTED {
				fmt.Fprintf(&b, "  Exact TSED: %s\n", utils.FormatPercentage(o.ExactTSED))
			}
			if showCode {
				writeSnippet(&b, RelativePath(o.SourceFile), o.Overlap.SourceFunction, o.Overlap.SourceLines.Start, o.Overlap.SourceLines.End, o.SourceCode)
				writeSnippet(&b, RelativePath(o.TargetFile), o.Overlap.TargetFunction, o.Overlap.TargetLines.Start, o.Overlap.TargetLines.End, o.TargetCode)
			}
		}
		b.WriteString("\n")
	}

	if len(response.Duplicates) == 0 && len(response.TypeDuplicates) == 0 && len(response.Overlaps) == 0 {
		b.WriteString("No duplicates found!\n\n")
	}

	if len(response.Skipped) > 0 {
		b.WriteString(utils.FormatSectionHeader("Skipped"))
		for _, s := range response.Skipped {
			name := RelativePath(s.FilePath)
			if s.Unit != "" {
				name += " " + s.Unit
			}
			fmt.Fprintf(&b, "  %s: %s\n", name, s.Reason)
		}
		b.WriteString("\n")
	}

	stats := response.Statistics
	b.WriteString(utils.FormatSectionHeader("Summary"))
	b.WriteString(utils.FormatLabelWithIndent(SectionPadding, "Files analyzed", stats.FilesAnalyzed))
	b.WriteString(utils.FormatLabelWithIndent(SectionPadding, "Functions", stats.FunctionsExtracted))
	if stats.TypesExtracted > 0 {
		b.WriteString(utils.FormatLabelWithIndent(SectionPadding, "Types", stats.TypesExtracted))
	}
	b.WriteString(utils.FormatLabelWithIndent(SectionPadding, "Pairs compared", stats.PairsCompared))
	b.WriteString(utils.FormatLabelWithIndent(SectionPadding, "Duplicate pairs", stats.DuplicatesFound))
	if stats.TypeDuplicatesFound > 0 {
		b.WriteString(utils.FormatLabelWithIndent(SectionPadding, "Duplicate types", stats.TypeDuplicatesFound))
	}
	if stats.OverlapsFound > 0 {
		b.WriteString(utils.FormatLabelWithIndent(SectionPadding, "Partial overlaps", stats.OverlapsFound))
	}
	if len(response.Groups) > 0 {
		b.WriteString(utils.FormatLabelWithIndent(SectionPadding, "Groups", len(response.Groups)))
	}
	b.WriteString(utils.FormatLabelWithIndent(SectionPadding, "Duplicated lines", stats.DuplicatedLines))
	if stats.SkippedUnits > 0 {
		b.WriteString(utils.FormatLabelWithIndent(SectionPadding, "Skipped", stats.SkippedUnits))
	}
	b.WriteString(utils.FormatLabelWithIndent(SectionPadding, "Duration", utils.FormatDuration(stats.DurationMilliseconds)))

	if _, err := io.WriteString(writer, b.String()); err != nil {
		return domain.NewOutputError("failed to write output", err)
	}
	return nil
}

func (f *OutputFormatterImpl) writeCode(b *strings.Builder, path, name string, startLine, endLine int) {
	source, err := f.source(path)
	if err != nil {
		fmt.Fprintf(b, "\n  (could not read %s: %v)\n", path, err)
		return
	}
	code, err := analyzer.ExtractCodeSegment(string(source), startLine, endLine)
	if err != nil {
		fmt.Fprintf(b, "\n  (%v)\n", err)
		return
	}
	writeSnippet(b, RelativePath(path), name, startLine, endLine, code)
}

func writeSnippet(b *strings.Builder, path, name string, startLine, endLine int, code string) {
	fmt.Fprintf(b, "\n%s--- %s:%s (lines %d-%d) ---%s\n", ColorCyan, path, name, startLine, endLine, ColorReset)
	b.WriteString(code)
	b.WriteString("\n")
}

func (f *OutputFormatterImpl) source(path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if src, ok := f.sources[path]; ok {
		return src, nil
	}
	src, err := f.readFile(path)
	if err != nil {
		return nil, err
	}
	f.sources[path] = src
	return src, nil
}

var csvHeader = []string{
	"kind", "similarity", "impact",
	"file1", "name1", "start_line1", "end_line1",
	"file2", "name2", "start_line2", "end_line2",
}

func (f *OutputFormatterImpl) writeCSV(response *domain.SimilarityResponse, writer io.Writer) error {
	w := csv.NewWriter(writer)

	if err := w.Write(csvHeader); err != nil {
		return domain.NewOutputError("failed to write CSV header", err)
	}

	var rows [][]string
	for _, r := range response.Duplicates {
		rows = append(rows, csvRow("function", r.Similarity, r.Impact,
			r.Function1.FilePath, r.Function1.QualifiedName(), r.Function1.StartLine, r.Function1.EndLine,
			r.Function2.FilePath, r.Function2.QualifiedName(), r.Function2.StartLine, r.Function2.EndLine))
	}
	for _, r := range response.TypeDuplicates {
		rows = append(rows, csvRow("type", r.Similarity, r.Impact,
			r.Type1.FilePath, r.Type1.Name, r.Type1.StartLine, r.Type1.EndLine,
			r.Type2.FilePath, r.Type2.Name, r.Type2.StartLine, r.Type2.EndLine))
	}
	for _, o := range response.Overlaps {
		p := o.Overlap
		rows = append(rows, csvRow("overlap", p.Similarity, p.NodeCount,
			o.SourceFile, p.SourceFunction, p.SourceLines.Start, p.SourceLines.End,
			o.TargetFile, p.TargetFunction, p.TargetLines.Start, p.TargetLines.End))
	}

	if err := w.WriteAll(rows); err != nil {
		return domain.NewOutputError("failed to write CSV records", err)
	}
	return nil
}

func csvRow(kind string, similarity float64, impact int,
	file1, name1 string, start1, end1 int,
	file2, name2 string, start2, end2 int) []string {
	return []string{
		kind,
		strconv.FormatFloat(similarity, 'f', 4, 64),
		strconv.Itoa(impact),
		file1, name1, strconv.Itoa(start1), strconv.Itoa(end1),
		file2, name2, strconv.Itoa(start2), strconv.Itoa(end2),
	}
}
