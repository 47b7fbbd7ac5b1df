package service

import (
	"github.com/ludo-technologies/simscan/domain"
)

// OutputFormatResolver resolves the output format from the CLI format flags.
type OutputFormatResolver struct{}

func NewOutputFormatResolver() *OutputFormatResolver { return &OutputFormatResolver{} }

// Determine evaluates format flags and returns the selected format.
// At most one of json/yaml/csv may be true; if none are, fallback is returned.
func (r *OutputFormatResolver) Determine(json, yaml, csv bool, fallback domain.OutputFormat) (domain.OutputFormat, error) {
	formatCount := 0
	format := fallback

	if json {
		formatCount++
		format = domain.OutputFormatJSON
	}
	if yaml {
		formatCount++
		format = domain.OutputFormatYAML
	}
	if csv {
		formatCount++
		format = domain.OutputFormatCSV
	}

	if formatCount > 1 {
		return "", domain.NewInvalidInputError("only one output format flag can be specified", nil)
	}
	if format == "" {
		format = domain.OutputFormatText
	}
	return format, nil
}
