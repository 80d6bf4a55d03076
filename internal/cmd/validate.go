package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/savvy-web/silk-sync-action/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate <config-file.yaml>",
	Short: "Validate a desired-state configuration file",
	Long: `Validate a desired-state configuration file without touching GitHub.

Checks label names, colors and descriptions against the rules the API
enforces, and rejects label sets whose names collide case-insensitively.

Examples:
  silk-sync validate labels.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(_ *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("✅ Configuration is valid\n")
	fmt.Printf("  Labels declared: %d\n", len(cfg.Labels))
	if cfg.HasSettings() {
		fmt.Printf("  Settings opinions: present\n")
	} else {
		fmt.Printf("  Settings opinions: none\n")
	}
	return nil
}
