package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "silk-sync",
	Short: "Converge a fleet of GitHub repositories to a declared configuration",
	Long: `silk-sync converges every repository in a GitHub organization to a centrally
declared configuration: label sets, repository settings, and ProjectV2 board
membership. Repositories are discovered by organization custom properties or
named explicitly, and processed one at a time so API usage stays predictable.`,

	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(validateCmd)
}
