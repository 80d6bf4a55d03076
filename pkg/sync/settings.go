package sync

import (
	"context"
	"errors"

	"github.com/savvy-web/silk-sync-action/pkg/config"
	"github.com/savvy-web/silk-sync-action/pkg/github"
)

// DiffSettings compares the sparse desired settings against an observed
// snapshot. Only keys present in the desired configuration are considered;
// anything else never appears in the delta or the apply payload.
func DiffSettings(desired config.DesiredSettings, observed *github.RepoSettings) ([]SettingChange, *github.SettingsPatch) {
	var changes []SettingChange
	patch := &github.SettingsPatch{}

	compare := func(key string, want *bool, have bool, slot **bool) {
		if want == nil || *want == have {
			return
		}
		changes = append(changes, SettingChange{Key: key, From: have, To: *want})
		*slot = want
	}

	compare("has_issues", desired.HasIssues, observed.HasIssues, &patch.HasIssues)
	compare("has_wiki", desired.HasWiki, observed.HasWiki, &patch.HasWiki)
	compare("has_projects", desired.HasProjects, observed.HasProjects, &patch.HasProjects)
	compare("has_discussions", desired.HasDiscussions, observed.HasDiscussions, &patch.HasDiscussions)
	compare("allow_squash_merge", desired.AllowSquashMerge, observed.AllowSquashMerge, &patch.AllowSquashMerge)
	compare("allow_merge_commit", desired.AllowMergeCommit, observed.AllowMergeCommit, &patch.AllowMergeCommit)
	compare("allow_rebase_merge", desired.AllowRebaseMerge, observed.AllowRebaseMerge, &patch.AllowRebaseMerge)
	compare("delete_branch_on_merge", desired.DeleteBranchOnMerge, observed.DeleteBranchOnMerge, &patch.DeleteBranchOnMerge)
	compare("allow_auto_merge", desired.AllowAutoMerge, observed.AllowAutoMerge, &patch.AllowAutoMerge)

	return changes, patch
}

// syncSettings diffs and applies repository settings as one batched patch.
// A validation rejection from the remote means an org-level policy pins one
// of the values: the drift is still reported, the patch is marked not
// applied, and the repository is not failed for it.
func (e *Engine) syncSettings(ctx context.Context, repo github.DiscoveredRepo, observed *github.RepoSettings, result *SyncResult) {
	changes, patch := DiffSettings(e.cfg.Settings, observed)

	outcome := &SettingsOutcome{Changes: changes}
	result.Settings = outcome

	if len(changes) == 0 {
		outcome.Applied = true
		return
	}

	if e.opts.DryRun {
		return
	}

	err := e.rest.UpdateRepositorySettings(ctx, repo.Owner, repo.Name, patch)
	if err == nil {
		outcome.Applied = true
		return
	}

	var apiErr *github.APIError
	if errors.As(err, &apiErr) && apiErr.IsValidationRejection() {
		outcome.Rejected = true
		e.logger.Warn("settings patch rejected by policy",
			"repo", repo.FullName, "reason", apiErr.Reason)
		return
	}

	e.logger.Warn("settings apply failed", "repo", repo.FullName, "error", err)
	result.addError("update settings", repo.FullName, err.Error())
}
