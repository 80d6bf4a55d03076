package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/savvy-web/silk-sync-action/pkg/github"
)

// Fatal discovery errors. They abort the run before any repository is
// processed.
var (
	// ErrNoDiscoveryInput means neither a property filter nor an explicit
	// repository list was supplied
	ErrNoDiscoveryInput = errors.New("no discovery input: supply property filters or an explicit repository list")

	// ErrNoRepositories means the merged discovery set came up empty
	ErrNoRepositories = errors.New("discovery found no repositories")
)

// Discoverer merges the two enumeration strategies into one deduplicated,
// ordered repository set.
type Discoverer struct {
	rest   github.RESTClient
	logger *slog.Logger
}

// NewDiscoverer creates a repository discoverer
func NewDiscoverer(rest github.RESTClient, logger *slog.Logger) *Discoverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{rest: rest, logger: logger}
}

// Discover enumerates repositories by property filter and/or explicit list
// and merges the results. The union is keyed by full name, case-insensitive;
// when both modes find the same repository the filter-based entry wins
// because it carries the richer property map.
func (d *Discoverer) Discover(ctx context.Context, org string, filters map[string]string, explicit []string) ([]github.DiscoveredRepo, error) {
	if len(filters) == 0 && len(explicit) == 0 {
		return nil, ErrNoDiscoveryInput
	}

	var merged []github.DiscoveredRepo
	index := make(map[string]int)

	add := func(repo github.DiscoveredRepo) {
		key := strings.ToLower(repo.FullName)
		if _, exists := index[key]; exists {
			// First writer wins: filtered entries are added first and keep
			// their property map over the explicit-mode duplicate.
			return
		}
		index[key] = len(merged)
		merged = append(merged, repo)
	}

	if len(filters) > 0 {
		repos, err := d.rest.ListRepositoriesByProperties(ctx, org)
		if err != nil {
			return nil, fmt.Errorf("property-filtered discovery failed: %w", err)
		}

		for _, repo := range repos {
			if matchesFilters(repo.Properties, filters) {
				add(repo)
			}
		}
		d.logger.Debug("property-filtered discovery complete",
			"scanned", len(repos), "matched", len(merged))
	}

	if len(explicit) > 0 {
		resolved := 0
		for _, name := range explicit {
			owner, repoName := splitRepoName(name, org)

			repo, err := d.rest.GetRepository(ctx, owner, repoName)
			if err != nil {
				d.logger.Warn("explicit repository did not resolve",
					"repo", name, "error", err)
				continue
			}
			resolved++
			add(*repo)
		}

		if resolved == 0 {
			return nil, fmt.Errorf("none of the %d explicitly listed repositories resolved", len(explicit))
		}
	}

	if len(merged) == 0 {
		return nil, ErrNoRepositories
	}

	return merged, nil
}

// matchesFilters reports whether a property map satisfies every filter.
// Keys and values match case-insensitively; a repository with no value for a
// filtered key does not match.
func matchesFilters(properties, filters map[string]string) bool {
	for wantKey, wantValue := range filters {
		matched := false
		for key, value := range properties {
			if strings.EqualFold(key, wantKey) && strings.EqualFold(value, wantValue) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// splitRepoName splits a bare or owner/name repository reference, falling
// back to the configured organization for bare names.
func splitRepoName(name, defaultOwner string) (owner, repo string) {
	if i := strings.IndexByte(name, '/'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return defaultOwner, name
}
