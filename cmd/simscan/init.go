package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/simscan/internal/config"
)

// InitCommand represents the init command
type InitCommand struct {
	force      bool
	minimal    bool
	configPath string
}

// NewInitCommand creates a new init command
func NewInitCommand() *InitCommand {
	return &InitCommand{
		configPath: config.ConfigFileName,
	}
}

// CreateCobraCommand creates the cobra command for configuration initialization
func (i *InitCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .simscan.toml configuration file",
		Long: `Create a .simscan.toml file with the default settings and a comment
explaining each of them.

simscan check looks for .simscan.toml in the analyzed directory and its
parents, so the file usually lives at the repository root.

Examples:
  # Create .simscan.toml in the current directory
  simscan init

  # Overwrite an existing file
  simscan init --force`,
		Args: cobra.NoArgs,
		RunE: i.runInit,
	}

	cmd.Flags().BoolVarP(&i.force, "force", "f", false, "Overwrite existing configuration file")
	cmd.Flags().BoolVar(&i.minimal, "minimal", false, "Write plain settings without comments")
	cmd.Flags().StringVarP(&i.configPath, "config", "c", i.configPath, "Configuration file path")

	return cmd
}

// runInit executes the init command
func (i *InitCommand) runInit(cmd *cobra.Command, args []string) error {
	configPath, err := filepath.Abs(i.configPath)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil && !i.force {
		return fmt.Errorf("configuration file already exists: %s\nUse --force to overwrite", configPath)
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", configDir, err)
	}

	if err := i.writeConfig(configPath); err != nil {
		return err
	}

	relPath, err := filepath.Rel(".", configPath)
	if err != nil {
		relPath = configPath
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created: %s\n", relPath)
	fmt.Fprintf(cmd.OutOrStdout(), "Edit it and run 'simscan check' to use it.\n")
	return nil
}

func (i *InitCommand) writeConfig(configPath string) error {
	if i.minimal {
		return config.SaveConfig(config.DefaultSimilarityConfig(), configPath)
	}

	content, err := config.GenerateDefaultConfigTOML()
	if err != nil {
		return fmt.Errorf("failed to generate configuration: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}

// NewInitCmd creates and returns the init cobra command
func NewInitCmd() *cobra.Command {
	return NewInitCommand().CreateCobraCommand()
}
