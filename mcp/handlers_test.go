package mcp_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/simscan/internal/config"
	"github.com/ludo-technologies/simscan/mcp"
	"github.com/ludo-technologies/simscan/service"
)

const priceSource = `function sumPrices(items) {
  let total = 0;
  for (const item of items) {
    if (item.price > 0) {
      total += item.price;
    } else {
      total -= item.discount;
    }
  }
  console.log(total);
  return total;
}
`

const costSource = `function addCosts(entries) {
  let sum = 0;
  for (const entry of entries) {
    if (entry.cost > 0) {
      sum += entry.cost;
    } else {
      sum -= entry.refund;
    }
  }
  console.log(sum);
  return sum;
}
`

func setupProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prices.js"), []byte(priceSource), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "costs.js"), []byte(costSource), 0o644))
	return dir
}

func newHandlers(cfg *config.SimilarityConfig) *mcp.HandlerSet {
	return mcp.NewHandlerSet(mcp.NewTestDependencies(service.NewFileReader(), cfg, ""))
}

func callTool(
	t *testing.T,
	handler func(context.Context, mcplib.CallToolRequest) (*mcplib.CallToolResult, error),
	arguments interface{},
) *mcplib.CallToolResult {
	t.Helper()
	req := mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Arguments: arguments,
		},
	}
	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func decodeResult(t *testing.T, res *mcplib.CallToolResult) map[string]interface{} {
	t.Helper()
	require.False(t, res.IsError, "unexpected error result: %+v", res.Content)
	require.NotEmpty(t, res.Content)

	text, ok := res.Content[0].(mcplib.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &data))
	return data
}

func TestHandleFindDuplicates_Summary(t *testing.T) {
	dir := setupProject(t)
	h := newHandlers(config.DefaultSimilarityConfig())

	res := callTool(t, h.HandleFindDuplicates, map[string]interface{}{"path": dir})
	data := decodeResult(t, res)

	summary, ok := data["summary"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), summary["files_analyzed"])
	assert.Equal(t, float64(2), summary["functions_extracted"])
	assert.Equal(t, float64(1), summary["duplicates_found"])

	top, ok := data["top_duplicates"].([]interface{})
	require.True(t, ok)
	require.Len(t, top, 1)
	pair := top[0].(map[string]interface{})
	names := []interface{}{pair["name1"], pair["name2"]}
	assert.ElementsMatch(t, []interface{}{"sumPrices", "addCosts"}, names)
}

func TestHandleFindDuplicates_SameFileOnly(t *testing.T) {
	dir := setupProject(t)
	h := newHandlers(config.DefaultSimilarityConfig())

	res := callTool(t, h.HandleFindDuplicates, map[string]interface{}{
		"path":       dir,
		"cross_file": false,
	})
	data := decodeResult(t, res)

	summary := data["summary"].(map[string]interface{})
	assert.Equal(t, float64(0), summary["duplicates_found"])
}

func TestHandleFindDuplicates_FullMode(t *testing.T) {
	dir := setupProject(t)
	h := newHandlers(config.DefaultSimilarityConfig())

	res := callTool(t, h.HandleFindDuplicates, map[string]interface{}{
		"path":        dir,
		"output_mode": "full",
	})
	data := decodeResult(t, res)

	assert.Contains(t, data, "duplicates")
	assert.Contains(t, data, "statistics")
}

func TestHandleFindDuplicates_Errors(t *testing.T) {
	h := newHandlers(nil)

	tests := []struct {
		name      string
		arguments interface{}
	}{
		{name: "invalid arguments", arguments: "not a map"},
		{name: "missing path", arguments: map[string]interface{}{}},
		{name: "nonexistent path", arguments: map[string]interface{}{"path": "/nonexistent/simscan/path"}},
		{name: "unknown output mode", arguments: map[string]interface{}{"path": ".", "output_mode": "verbose"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if m, ok := tt.arguments.(map[string]interface{}); ok && m["path"] == "." {
				m["path"] = setupProject(t)
			}
			res := callTool(t, h.HandleFindDuplicates, tt.arguments)
			assert.True(t, res.IsError)
		})
	}
}

func TestHandleFindOverlaps(t *testing.T) {
	dir := setupProject(t)
	h := newHandlers(config.DefaultSimilarityConfig())

	res := callTool(t, h.HandleFindOverlaps, map[string]interface{}{
		"path":       dir,
		"min_window": float64(5),
	})
	data := decodeResult(t, res)

	assert.Equal(t, float64(2), data["files_analyzed"])
	assert.Contains(t, data, "overlaps_found")
}

func TestHandleCompareCode(t *testing.T) {
	h := newHandlers(nil)

	res := callTool(t, h.HandleCompareCode, map[string]interface{}{
		"code1":    priceSource,
		"code2":    priceSource,
		"language": "javascript",
	})
	data := decodeResult(t, res)

	assert.InDelta(t, 1.0, data["similarity"], 1e-9)
	assert.Equal(t, true, data["duplicate"])
}

func TestHandleCompareCode_Errors(t *testing.T) {
	h := newHandlers(nil)

	tests := []struct {
		name      string
		arguments map[string]interface{}
	}{
		{name: "missing code2", arguments: map[string]interface{}{"code1": "x", "language": "javascript"}},
		{name: "missing language", arguments: map[string]interface{}{"code1": "x", "code2": "y"}},
		{name: "unknown language", arguments: map[string]interface{}{"code1": "x", "code2": "y", "language": "cobol"}},
		{name: "empty code", arguments: map[string]interface{}{"code1": "", "code2": "y", "language": "javascript"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, h.HandleCompareCode, tt.arguments)
			assert.True(t, res.IsError)
		})
	}
}

func TestDependencies_BaseRequestDiscoversConfig(t *testing.T) {
	dir := setupProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte("[analysis]\nthreshold = 0.95\n"), 0o644))

	deps := mcp.NewTestDependencies(service.NewFileReader(), nil, "")
	req, err := deps.BaseRequest(dir)
	require.NoError(t, err)
	assert.Equal(t, 0.95, req.Threshold)
	assert.NotNil(t, req.OutputWriter)
}
