package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/savvy-web/silk-sync-action/pkg/config"
	"github.com/savvy-web/silk-sync-action/pkg/github"
	"github.com/savvy-web/silk-sync-action/pkg/sync"
)

var (
	syncConfigFile      string
	syncOrg             string
	syncProperties      []string
	syncRepos           []string
	syncDryRun          bool
	syncPruneLabels     bool
	syncSettings        bool
	syncProjects        bool
	syncSkipBackfill    bool
	syncSkipTokenRevoke bool
	syncVerbose         bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Discover repositories and converge them to the declared configuration",
	Long: `Discover target repositories and converge each one to the declared
configuration: create, update, and optionally prune labels; patch drifted
settings; link repositories to their tracked ProjectV2 board and backfill
open issues and pull requests onto it.

Repositories are discovered by organization custom property filters, by an
explicit list, or both. When both are given the union is processed, with
duplicates removed. Repositories are processed strictly one at a time and a
failure in one never stops the others.

Examples:
  # Converge every repository carrying team=platform
  silk-sync sync --config labels.yaml --org acme --property team=platform

  # Converge two named repositories, preview only
  silk-sync sync --config labels.yaml --org acme --repo widget --repo gadget --dry-run

  # Full convergence including settings, projects and custom label pruning
  silk-sync sync --config fleet.yaml --org acme --property managed=true \
    --sync-settings --sync-projects --prune-labels`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncConfigFile, "config", "", "Path to the desired-state YAML file (required)")
	syncCmd.Flags().StringVar(&syncOrg, "org", "", "GitHub organization to operate in (required)")
	syncCmd.Flags().StringArrayVar(&syncProperties, "property", nil, "Custom property filter as key=value; repeatable, all must match")
	syncCmd.Flags().StringArrayVar(&syncRepos, "repo", nil, "Repository to process, as name or owner/name; repeatable")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Report intended changes without issuing any write")
	syncCmd.Flags().BoolVar(&syncPruneLabels, "prune-labels", false, "Delete labels not present in the configuration")
	syncCmd.Flags().BoolVar(&syncSettings, "sync-settings", false, "Converge repository settings declared in the configuration")
	syncCmd.Flags().BoolVar(&syncProjects, "sync-projects", false, "Link project-tracked repositories to their board and backfill open items")
	syncCmd.Flags().BoolVar(&syncSkipBackfill, "skip-backfill", false, "Link boards but do not backfill open items")
	syncCmd.Flags().BoolVar(&syncSkipTokenRevoke, "skip-token-revoke", false, "Do not revoke the installation token when the run finishes")
	syncCmd.Flags().BoolVarP(&syncVerbose, "verbose", "v", false, "Enable debug logging")

	_ = syncCmd.MarkFlagRequired("config")
	_ = syncCmd.MarkFlagRequired("org")
}

func runSync(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	logger := newLogger(syncVerbose)

	cfg, err := config.LoadFromFile(syncConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	filters, err := parseProperties(syncProperties)
	if err != nil {
		return err
	}
	if len(filters) == 0 && len(syncRepos) == 0 {
		return fmt.Errorf("no discovery input: supply at least one --property filter or --repo")
	}

	tm := github.NewTokenManager()
	token, err := tm.GetToken()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", github.AuthInstructions())
		return err
	}
	if err := tm.Authenticate(token); err != nil {
		return err
	}

	info, err := tm.ValidateToken(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Authentication failed: %v\n\n", err)
		fmt.Fprintf(os.Stderr, "%s\n", github.AuthInstructions())
		return err
	}
	fmt.Printf("✓ Authenticated as %s\n", info.User)

	rest := tm.RESTClient()

	var graph github.GraphClient
	if syncProjects {
		graph = tm.GraphClient()
	}

	limiter := github.NewRateLimiter(rest, nil, logger)

	engine := sync.New(rest, graph, limiter, cfg, sync.Options{
		Org:                syncOrg,
		PropertyFilters:    filters,
		Repos:              syncRepos,
		DryRun:             syncDryRun,
		RemoveCustomLabels: syncPruneLabels,
		SyncSettings:       syncSettings,
		SyncProjects:       syncProjects,
		SkipBackfill:       syncSkipBackfill,
	}, logger)

	result, runErr := engine.Run(ctx)

	// The token is revoked even when the run failed; a revocation failure is
	// advisory because personal tokens cannot be revoked through this endpoint.
	if !syncSkipTokenRevoke && !syncDryRun {
		if err := tm.Revoke(ctx); err != nil {
			logger.Debug("token revocation failed", "error", err)
		} else {
			fmt.Println("✓ Installation token revoked")
		}
	}

	if runErr != nil {
		return runErr
	}

	printRunReport(result)

	if !result.Success {
		return fmt.Errorf("%d of %d repositories failed to converge", result.FailedRepos, result.TotalRepos)
	}
	return nil
}

// newLogger builds the engine logger writing to stderr so the report on
// stdout stays machine-separable.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// parseProperties parses repeated key=value flags into a filter map
func parseProperties(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	filters := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("invalid --property %q: expected key=value", pair)
		}
		filters[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return filters, nil
}
