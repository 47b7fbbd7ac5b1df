package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"github.com/pelletier/go-toml/v2"

	"github.com/ludo-technologies/simscan/domain"
)

// defaultConfigTmpl contains the embedded default configuration template
//
//go:embed default_config.toml.tmpl
var defaultConfigTmpl string

// DefaultConfigValues holds the values used to render the default config template
type DefaultConfigValues struct {
	Threshold            float64
	MinLines             int
	RenameCost           float64
	FingerprintThreshold float64

	OverlapMinWindow     int
	OverlapMaxWindow     int
	OverlapThreshold     float64
	OverlapSizeTolerance float64

	TimeoutSeconds int

	LSHAutoThreshold int
	LSHBands         int
	LSHRows          int
	LSHHashes        int
}

func newDefaultConfigValues() DefaultConfigValues {
	defaults := DefaultSimilarityConfig()
	return DefaultConfigValues{
		Threshold:            domain.DefaultSimilarityThreshold,
		MinLines:             domain.DefaultMinLines,
		RenameCost:           domain.DefaultRenameCost,
		FingerprintThreshold: domain.DefaultFingerprintThreshold,
		OverlapMinWindow:     domain.DefaultOverlapMinWindow,
		OverlapMaxWindow:     domain.DefaultOverlapMaxWindow,
		OverlapThreshold:     domain.DefaultOverlapThreshold,
		OverlapSizeTolerance: domain.DefaultOverlapSizeTolerance,
		TimeoutSeconds:       defaults.Performance.TimeoutSeconds,
		LSHAutoThreshold:     domain.DefaultLSHAutoThreshold,
		LSHBands:             defaults.LSH.Bands,
		LSHRows:              defaults.LSH.Rows,
		LSHHashes:            defaults.LSH.Hashes,
	}
}

// GenerateDefaultConfigTOML renders the commented default configuration
func GenerateDefaultConfigTOML() (string, error) {
	tmpl, err := template.New("default_config").Parse(defaultConfigTmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse default config template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, newDefaultConfigValues()); err != nil {
		return "", fmt.Errorf("failed to render default config template: %w", err)
	}

	return buf.String(), nil
}

// LoadDefaultConfigFromTOML parses the rendered template back into a config
func LoadDefaultConfigFromTOML() (*SimilarityConfig, error) {
	configTOML, err := GenerateDefaultConfigTOML()
	if err != nil {
		return nil, err
	}

	var file SimscanTomlConfig
	if err := toml.Unmarshal([]byte(configTOML), &file); err != nil {
		return nil, err
	}

	config := DefaultSimilarityConfig()
	(&TomlConfigLoader{}).merge(config, &file)
	return config, nil
}
