package service

import (
	"testing"

	"github.com/ludo-technologies/simscan/domain"
)

func TestOutputFormatResolver_Determine(t *testing.T) {
	r := NewOutputFormatResolver()

	tests := []struct {
		name     string
		json     bool
		yaml     bool
		csv      bool
		fallback domain.OutputFormat
		want     domain.OutputFormat
		wantErr  bool
	}{
		{name: "fallback", fallback: domain.OutputFormatText, want: domain.OutputFormatText},
		{name: "empty fallback", want: domain.OutputFormatText},
		{name: "json", json: true, want: domain.OutputFormatJSON},
		{name: "yaml", yaml: true, want: domain.OutputFormatYAML},
		{name: "csv", csv: true, fallback: domain.OutputFormatText, want: domain.OutputFormatCSV},
		{name: "conflict", json: true, csv: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Determine(tt.json, tt.yaml, tt.csv, tt.fallback)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Determine() = %q, want %q", got, tt.want)
			}
		})
	}
}
