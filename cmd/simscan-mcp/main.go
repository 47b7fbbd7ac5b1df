package main

import (
	"fmt"
	"log"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/pflag"

	"github.com/ludo-technologies/simscan/internal/config"
	"github.com/ludo-technologies/simscan/internal/version"
	"github.com/ludo-technologies/simscan/mcp"
)

const serverName = "simscan"

func main() {
	// MCP uses stdout for JSON-RPC
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	flags := pflag.NewFlagSet(serverName+"-mcp", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "Configuration file applied to every request")
	_ = flags.Parse(os.Args[1:])

	var cfg *config.SimilarityConfig
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = loaded
		log.Printf("Using configuration %s", *configPath)
	}

	server := mcpserver.NewMCPServer(
		serverName,
		version.Short(),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithLogging(),
	)

	mcp.RegisterTools(server, mcp.NewDependencies(cfg, *configPath))

	log.Printf("Starting %s MCP server %s", serverName, version.Short())
	log.Println("Registered tools:")
	log.Println("  - find_duplicates: Structurally similar functions")
	log.Println("  - find_overlaps: Duplicated blocks inside functions")
	log.Println("  - compare_code: Similarity of two fragments")

	if err := mcpserver.ServeStdio(server); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
