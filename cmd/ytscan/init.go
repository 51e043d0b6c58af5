package main

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/ytscan/internal/config"
)

//go:embed templates/ytscan.yaml
var configTemplate []byte

// configFileName is the default configuration file name.
const configFileName = config.DefaultConfigFile

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a ytscan configuration file",
		Long: `Init writes a commented .ytscan configuration file to the current directory.

The file documents every option:
- cookies and headers per channel or video (e.g. the consent cookie)
- video depth per channel
- page languages, count abbreviations and locale words

Examples:
  # Create .ytscan in the current directory
  ytscan init

  # Create the file in the XDG config directory
  ytscan init -o ~/.config/ytscan/ytscan.yaml

  # Overwrite an existing file
  ytscan init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, configTemplate, 0o600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure:")
	fmt.Fprintln(out, "  - cookies and headers per channel or video")
	fmt.Fprintln(out, "  - the number of videos analyzed per channel")
	fmt.Fprintln(out, "  - page languages and count abbreviations")
	return nil
}
