package sync

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/savvy-web/silk-sync-action/pkg/github"
)

// Repository custom properties that mark a repository as project-tracked.
const (
	PropProjectTracked = "project-tracked"
	PropProjectNumber  = "project-number"
)

// projectEntry is one memoized resolution outcome: either a usable project
// or the reason linking must be skipped. Written at most once per project
// number per run, read by every repository referencing the number.
type projectEntry struct {
	project *github.Project
	reason  string
}

func (e projectEntry) resolved() bool { return e.project != nil }

// projectCache memoizes project resolution for a single run. It is populated
// before any repository processing begins and only read afterwards.
type projectCache struct {
	entries      map[int]projectEntry
	resolveCalls int
}

// newProjectCache creates an empty project cache
func newProjectCache() *projectCache {
	return &projectCache{entries: make(map[int]projectEntry)}
}

// resolve resolves a project number through the graph client exactly once,
// memoizing success or failure. Closed projects are cached as failures:
// they are never linked.
func (pc *projectCache) resolve(ctx context.Context, graph github.GraphClient, owner string, number int) projectEntry {
	if entry, ok := pc.entries[number]; ok {
		return entry
	}

	pc.resolveCalls++

	var entry projectEntry
	project, err := graph.ResolveProject(ctx, owner, number)
	switch {
	case err != nil:
		entry = projectEntry{reason: err.Error()}
	case project.Closed:
		entry = projectEntry{reason: fmt.Sprintf("project %d (%s) is closed", number, project.Title)}
	default:
		entry = projectEntry{project: project}
	}

	pc.entries[number] = entry
	return entry
}

// lookup returns the cache entry for a number, if any
func (pc *projectCache) lookup(number int) (projectEntry, bool) {
	entry, ok := pc.entries[number]
	return entry, ok
}

// projectNumber extracts the tracked project number from a repository's
// property map. ok is false when the repository is not project-tracked or
// the number is not numeric.
func projectNumber(repo github.DiscoveredRepo) (int, bool) {
	tracked, ok := repo.Properties[PropProjectTracked]
	if !ok || !strings.EqualFold(tracked, "true") {
		return 0, false
	}

	raw, ok := repo.Properties[PropProjectNumber]
	if !ok {
		return 0, false
	}
	number, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || number <= 0 {
		return 0, false
	}
	return number, true
}

// resolveProjects resolves every distinct project number referenced by the
// discovered set before the repository loop starts.
func (e *Engine) resolveProjects(ctx context.Context, repos []github.DiscoveredRepo) {
	for _, repo := range repos {
		number, ok := projectNumber(repo)
		if !ok {
			continue
		}

		entry := e.projects.resolve(ctx, e.graph, e.opts.Org, number)
		if !entry.resolved() {
			e.logger.Warn("project will not be linked",
				"project", number, "reason", entry.reason)
		}
	}
}

// syncProject links a repository to its tracked project and backfills open
// items onto the board.
func (e *Engine) syncProject(ctx context.Context, repo github.DiscoveredRepo, number int, result *SyncResult) {
	outcome := &ProjectOutcome{Number: number}
	result.Project = outcome

	entry, ok := e.projects.lookup(number)
	if !ok || !entry.resolved() {
		outcome.Status = LinkSkipped
		outcome.Reason = entry.reason
		if !ok {
			outcome.Reason = "project was not resolved"
		}
		return
	}

	switch {
	case e.opts.DryRun:
		outcome.Status = LinkDryRun
	default:
		already, err := e.graph.LinkRepository(ctx, entry.project.ID, repo.NodeID)
		switch {
		case err != nil:
			outcome.Status = LinkError
			outcome.Reason = err.Error()
			result.addError("link project", repo.FullName, err.Error())
		case already:
			outcome.Status = LinkAlready
		default:
			outcome.Status = LinkLinked
		}
	}

	if e.opts.SkipBackfill || outcome.Status == LinkError {
		return
	}

	e.backfill(ctx, repo, entry.project, outcome, result)
}

// backfill paginates the repository's open issues and PRs and adds each to
// the project, with a fixed delay between items and a periodic secondary
// rate check between pages. Items already on the board count as present,
// not as errors.
func (e *Engine) backfill(ctx context.Context, repo github.DiscoveredRepo, project *github.Project, outcome *ProjectOutcome, result *SyncResult) {
	page := 1
	pages := 0

	for page != 0 {
		items, nextPage, err := e.rest.ListOpenItems(ctx, repo.Owner, repo.Name, page)
		if err != nil {
			e.logger.Warn("backfill listing failed", "repo", repo.FullName, "page", page, "error", err)
			result.addError("list open items", repo.FullName, err.Error())
			return
		}

		for i, item := range items {
			if i > 0 || pages > 0 {
				e.sleep(ctx, backfillItemDelay)
			}

			if e.opts.DryRun {
				outcome.BackfillAdded++
				continue
			}

			already, err := e.graph.AddItem(ctx, project.ID, item.NodeID)
			switch {
			case err != nil:
				e.logger.Warn("backfill add failed",
					"repo", repo.FullName, "item", item.Number, "error", err)
				result.addError("add item to project",
					fmt.Sprintf("%s#%d", repo.FullName, item.Number), err.Error())
			case already:
				outcome.BackfillPresent++
			default:
				outcome.BackfillAdded++
			}
		}

		pages++
		if pages%secondaryCheckInterval == 0 {
			e.limiter.CheckSecondary(ctx)
		}

		page = nextPage
	}
}
