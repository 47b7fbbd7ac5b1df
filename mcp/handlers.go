package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ludo-technologies/simscan/domain"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultSummaryResults caps the pairs returned in summary mode
const defaultSummaryResults = 20

// HandlerSet exposes MCP tool handlers with shared dependencies.
type HandlerSet struct {
	deps *Dependencies
}

// NewHandlerSet constructs a handler set.
func NewHandlerSet(deps *Dependencies) *HandlerSet {
	if deps == nil {
		deps = NewDependencies(nil, "")
	}
	return &HandlerSet{deps: deps}
}

// HandleFindDuplicates handles the find_duplicates tool
func (h *HandlerSet) HandleFindDuplicates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	path, errResult := requirePath(args)
	if errResult != nil {
		return errResult, nil
	}

	req, err := h.deps.BaseRequest(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load configuration: %v", err)), nil
	}
	req.Paths = []string{path}
	req.OutputFormat = domain.OutputFormatJSON

	if th, ok := args["threshold"].(float64); ok {
		req.Threshold = th
	}
	if ml, ok := args["min_lines"].(float64); ok {
		req.MinLines = int(ml)
	}
	if cf, ok := args["cross_file"].(bool); ok {
		req.CrossFile = cf
	}
	if ty, ok := args["types"].(bool); ok {
		req.DetectTypes = ty
	}

	result, err := h.deps.BuildSimilarityUseCase().Analyze(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("duplicate detection failed: %v", err)), nil
	}

	outputMode := "summary"
	if om, ok := args["output_mode"].(string); ok && om != "" {
		outputMode = om
	}

	maxResults := 0
	if mr, ok := args["max_results"].(float64); ok {
		maxResults = int(mr)
	}

	var responseData interface{}
	switch outputMode {
	case "full":
		responseData = result
	case "detailed":
		responseData = formatDuplicatesDetailed(result, maxResults)
	case "summary":
		if maxResults == 0 {
			maxResults = defaultSummaryResults
		}
		responseData = formatDuplicatesSummary(result, maxResults)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown output_mode: %s (supported: summary, detailed, full)", outputMode)), nil
	}

	return jsonResult(responseData)
}

// HandleFindOverlaps handles the find_overlaps tool
func (h *HandlerSet) HandleFindOverlaps(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	path, errResult := requirePath(args)
	if errResult != nil {
		return errResult, nil
	}

	req, err := h.deps.BaseRequest(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load configuration: %v", err)), nil
	}
	req.Paths = []string{path}
	req.DetectFunctions = false
	req.DetectTypes = false
	req.DetectOverlaps = true

	if th, ok := args["threshold"].(float64); ok {
		req.OverlapThreshold = th
	}
	if mw, ok := args["min_window"].(float64); ok {
		req.OverlapMinWindow = int(mw)
		if req.OverlapMaxWindow < req.OverlapMinWindow {
			req.OverlapMaxWindow = req.OverlapMinWindow
		}
	}

	result, err := h.deps.BuildSimilarityUseCase().Analyze(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("overlap detection failed: %v", err)), nil
	}

	overlaps := result.Overlaps
	if mr, ok := args["max_results"].(float64); ok && int(mr) > 0 && int(mr) < len(overlaps) {
		overlaps = overlaps[:int(mr)]
	}

	return jsonResult(map[string]interface{}{
		"overlaps_found": result.Statistics.OverlapsFound,
		"files_analyzed": result.Statistics.FilesAnalyzed,
		"overlaps":       overlaps,
	})
}

// HandleCompareCode handles the compare_code tool
func (h *HandlerSet) HandleCompareCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	code1, ok1 := args["code1"].(string)
	code2, ok2 := args["code2"].(string)
	if !ok1 || !ok2 {
		return mcp.NewToolResultError("code1 and code2 parameters are required and must be strings"), nil
	}
	language, ok := args["language"].(string)
	if !ok || language == "" {
		return mcp.NewToolResultError("language parameter is required and must be a string"), nil
	}

	req := domain.DefaultSimilarityRequest()
	if cfg := h.deps.Config(); cfg != nil {
		req.Threshold = cfg.Analysis.Threshold
		req.RenameCost = cfg.Analysis.RenameCost
		req.SizePenalty = cfg.Analysis.SizePenalty
		req.CompareValues = cfg.Analysis.CompareValues
	}

	similarity, err := h.deps.BuildSimilarityUseCase().CompareSources(ctx, []byte(code1), []byte(code2), language, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("comparison failed: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"similarity": similarity,
		"language":   language,
		"duplicate":  similarity >= req.Threshold,
	})
}

func requirePath(args map[string]interface{}) (string, *mcp.CallToolResult) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", mcp.NewToolResultError("path parameter is required and must be a string")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", mcp.NewToolResultError(fmt.Sprintf("path does not exist: %s", path))
	}
	return path, nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

type pairSummary struct {
	Similarity float64 `json:"similarity"`
	Impact     int     `json:"impact"`
	Location1  string  `json:"location1"`
	Name1      string  `json:"name1"`
	Location2  string  `json:"location2"`
	Name2      string  `json:"name2"`
}

func summarizePairs(results []domain.SimilarityResult, maxResults int) []pairSummary {
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	pairs := make([]pairSummary, 0, len(results))
	for _, r := range results {
		pairs = append(pairs, pairSummary{
			Similarity: r.Similarity,
			Impact:     r.Impact,
			Location1:  r.Function1.Location(),
			Name1:      r.Function1.QualifiedName(),
			Location2:  r.Function2.Location(),
			Name2:      r.Function2.QualifiedName(),
		})
	}
	return pairs
}

func formatDuplicatesSummary(result *domain.SimilarityResponse, maxResults int) map[string]interface{} {
	s := result.Statistics
	return map[string]interface{}{
		"summary": map[string]interface{}{
			"files_analyzed":      s.FilesAnalyzed,
			"functions_extracted": s.FunctionsExtracted,
			"duplicates_found":    s.DuplicatesFound,
			"type_duplicates":     s.TypeDuplicatesFound,
			"duplicated_lines":    s.DuplicatedLines,
			"skipped_units":       s.SkippedUnits,
		},
		"top_duplicates": summarizePairs(result.Duplicates, maxResults),
		"truncated":      maxResults > 0 && len(result.Duplicates) > maxResults,
	}
}

func formatDuplicatesDetailed(result *domain.SimilarityResponse, maxResults int) map[string]interface{} {
	data := formatDuplicatesSummary(result, maxResults)
	delete(data, "top_duplicates")
	data["duplicates"] = summarizePairs(result.Duplicates, maxResults)
	if len(result.TypeDuplicates) > 0 {
		data["type_duplicates"] = result.TypeDuplicates
	}
	if len(result.Skipped) > 0 {
		data["skipped"] = result.Skipped
	}
	return data
}
