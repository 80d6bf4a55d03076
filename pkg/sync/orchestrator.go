package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/savvy-web/silk-sync-action/pkg/config"
	"github.com/savvy-web/silk-sync-action/pkg/github"
)

// Engine timing and cadence constants. Processing is strictly sequential, so
// these delays are the only points where a run yields.
const (
	// interRepoDelay separates repository processing, skipped for the first
	interRepoDelay = time.Second

	// backfillItemDelay separates add-to-project calls during backfill
	backfillItemDelay = 250 * time.Millisecond

	// primaryCheckInterval is how many repositories between REST quota checks
	primaryCheckInterval = 10

	// secondaryCheckInterval is how many backfill pages between GraphQL quota checks
	secondaryCheckInterval = 5
)

// Options are the run inputs controlling discovery and which resources sync
type Options struct {
	Org                string
	PropertyFilters    map[string]string
	Repos              []string
	DryRun             bool
	RemoveCustomLabels bool
	SyncSettings       bool
	SyncProjects       bool
	SkipBackfill       bool
}

// Engine sequences the whole convergence run: discovery, project resolution,
// then per-repository label, settings and project sync. Repositories are
// processed strictly sequentially; the rate limiter state and project cache
// are only ever touched from this single flow, so neither needs locking.
type Engine struct {
	rest     github.RESTClient
	graph    github.GraphClient
	limiter  *github.RateLimiter
	cfg      *config.DesiredConfig
	opts     Options
	logger   *slog.Logger
	projects *projectCache

	// sleep is swapped out in tests to avoid real delays
	sleep func(ctx context.Context, d time.Duration)
}

// New creates a sync engine. The graph client may be nil when project sync
// is disabled.
func New(rest github.RESTClient, graph github.GraphClient, limiter *github.RateLimiter, cfg *config.DesiredConfig, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if limiter == nil {
		limiter = github.NewRateLimiter(nil, nil, logger)
	}

	return &Engine{
		rest:     rest,
		graph:    graph,
		limiter:  limiter,
		cfg:      cfg,
		opts:     opts,
		logger:   logger,
		projects: newProjectCache(),
		sleep:    sleepContext,
	}
}

// Run executes the convergence run and returns the aggregated result.
// Failures before the repository loop (invalid inputs, empty discovery) are
// fatal; once the loop starts, every discovered repository yields exactly
// one SyncResult and the run always completes.
func (e *Engine) Run(ctx context.Context) (*RunResult, error) {
	if len(e.opts.PropertyFilters) == 0 && len(e.opts.Repos) == 0 {
		return nil, ErrNoDiscoveryInput
	}
	if e.opts.SyncProjects && e.graph == nil {
		return nil, fmt.Errorf("project sync enabled but no graph client configured")
	}

	discoverer := NewDiscoverer(e.rest, e.logger)
	repos, err := discoverer.Discover(ctx, e.opts.Org, e.opts.PropertyFilters, e.opts.Repos)
	if err != nil {
		return nil, err
	}

	e.logger.Info("discovery complete", "repos", len(repos), "dry_run", e.opts.DryRun)

	// Resolve every referenced project before any repository's linking step
	if e.opts.SyncProjects {
		e.resolveProjects(ctx, repos)
	}

	results := make([]SyncResult, 0, len(repos))
	for i, repo := range repos {
		if i > 0 {
			e.sleep(ctx, interRepoDelay)
			if i%primaryCheckInterval == 0 {
				e.limiter.CheckPrimary(ctx)
			}
		}

		results = append(results, e.processRepo(ctx, repo))
	}

	return Aggregate(results, e.opts.DryRun), nil
}

// processRepo runs the fixed per-repository sequence: state fetch, labels,
// settings, project. Nothing escapes the repository boundary; any panic or
// error becomes a record on the repository's own result.
func (e *Engine) processRepo(ctx context.Context, repo github.DiscoveredRepo) (result SyncResult) {
	result = SyncResult{Repo: repo.FullName}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("repository processing panicked", "repo", repo.FullName, "panic", r)
			result.addError("process repository", repo.FullName, fmt.Sprintf("panic: %v", r))
		}
		result.Success = len(result.Errors) == 0
	}()

	e.logger.Info("processing repository", "repo", repo.FullName)

	// Labels: a failed state fetch is recorded and the label step skipped;
	// the rest of the repository still processes.
	observedLabels, err := e.rest.ListLabels(ctx, repo.Owner, repo.Name)
	if err != nil {
		e.logger.Warn("label fetch failed", "repo", repo.FullName, "error", err)
		result.addError("list labels", repo.FullName, err.Error())
	} else {
		e.syncLabels(ctx, repo, observedLabels, &result)
	}

	if e.opts.SyncSettings && e.cfg.HasSettings() {
		observedSettings, err := e.rest.GetRepositorySettings(ctx, repo.Owner, repo.Name)
		if err != nil {
			e.logger.Warn("settings fetch failed", "repo", repo.FullName, "error", err)
			result.addError("get settings", repo.FullName, err.Error())
		} else {
			e.syncSettings(ctx, repo, observedSettings, &result)
		}
	}

	if e.opts.SyncProjects {
		if number, tracked := projectNumber(repo); tracked {
			e.syncProject(ctx, repo, number, &result)
		}
	}

	return result
}

// sleepContext sleeps for d or until the context is done
func sleepContext(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
