package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterTools registers all simscan MCP tools with the server
func RegisterTools(s *server.MCPServer, deps *Dependencies) {
	h := NewHandlerSet(deps)

	s.AddTool(mcp.NewTool("find_duplicates",
		mcp.WithDescription("Find structurally similar functions using tree edit distance over tree-sitter syntax trees"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("File or directory to analyze")),
		mcp.WithNumber("threshold",
			mcp.Description("Minimum similarity 0.0-1.0 (default: 0.87)")),
		mcp.WithNumber("min_lines",
			mcp.Description("Minimum function length in lines (default: 3)")),
		mcp.WithBoolean("cross_file",
			mcp.Description("Compare functions across files (default: true)")),
		mcp.WithBoolean("types",
			mcp.Description("Also report similar type declarations (default: false)")),
		mcp.WithString("output_mode",
			mcp.Enum("summary", "detailed", "full"),
			mcp.Description("summary: statistics and top pairs, detailed: all pairs, full: complete response")),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of pairs to return, 0 = no limit (default: 20 in summary mode)")),
	), h.HandleFindDuplicates)

	s.AddTool(mcp.NewTool("find_overlaps",
		mcp.WithDescription("Find duplicated code blocks inside functions using sliding windows over syntax trees"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("File or directory to analyze")),
		mcp.WithNumber("threshold",
			mcp.Description("Minimum similarity of overlapping blocks 0.0-1.0 (default: 0.8)")),
		mcp.WithNumber("min_window",
			mcp.Description("Minimum block size in AST nodes (default: 10)")),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of overlaps to return, 0 = no limit")),
	), h.HandleFindOverlaps)

	s.AddTool(mcp.NewTool("compare_code",
		mcp.WithDescription("Compute the tree edit distance similarity of two code fragments"),
		mcp.WithString("code1",
			mcp.Required(),
			mcp.Description("First code fragment")),
		mcp.WithString("code2",
			mcp.Required(),
			mcp.Description("Second code fragment")),
		mcp.WithString("language",
			mcp.Required(),
			mcp.Description("Language of both fragments, e.g. javascript, typescript, python, go")),
	), h.HandleCompareCode)
}
