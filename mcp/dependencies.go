package mcp

import (
	"io"
	"os"
	"path/filepath"

	"github.com/ludo-technologies/simscan/app"
	"github.com/ludo-technologies/simscan/domain"
	"github.com/ludo-technologies/simscan/internal/config"
	"github.com/ludo-technologies/simscan/service"
)

// Dependencies aggregates the shared services required by MCP handlers.
type Dependencies struct {
	fileReader   domain.FileReader
	configLoader domain.SimilarityConfigurationLoader
	config       *config.SimilarityConfig
	configPath   string
}

// NewDependencies constructs the dependency set. A nil cfg means settings
// are loaded per request from configPath, or discovered from the analyzed path.
func NewDependencies(cfg *config.SimilarityConfig, configPath string) *Dependencies {
	return NewTestDependencies(service.NewFileReader(), cfg, configPath)
}

// NewTestDependencies allows injecting a custom file reader.
func NewTestDependencies(fileReader domain.FileReader, cfg *config.SimilarityConfig, configPath string) *Dependencies {
	return &Dependencies{
		fileReader:   fileReader,
		configLoader: config.NewConfigurationLoader(),
		config:       cfg,
		configPath:   configPath,
	}
}

// Config exposes the loaded configuration snapshot, nil when none was given.
func (d *Dependencies) Config() *config.SimilarityConfig {
	return d.config
}

// ConfigPath returns the configured config file path (may be empty to trigger discovery).
func (d *Dependencies) ConfigPath() string {
	return d.configPath
}

// BaseRequest returns the request defaults for analyzing path
func (d *Dependencies) BaseRequest(path string) (*domain.SimilarityRequest, error) {
	if d.config != nil {
		return d.config.ToRequest(io.Discard), nil
	}

	startDir := path
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		startDir = filepath.Dir(path)
	}
	req, err := d.configLoader.LoadConfig(d.configPath, startDir)
	if err != nil {
		return nil, err
	}
	req.OutputWriter = io.Discard
	return req, nil
}

// BuildSimilarityUseCase assembles a fresh use case. MCP owns stdout, so no
// progress is reported.
func (d *Dependencies) BuildSimilarityUseCase() *app.SimilarityUseCase {
	return app.NewSimilarityUseCase(
		service.NewSimilarityService(nil).WithFileReader(d.fileReader),
		d.fileReader,
		service.NewOutputFormatter(),
	)
}
