package sync

// LabelOperation is the single operation computed for a label in one run
type LabelOperation string

const (
	LabelCreated   LabelOperation = "created"
	LabelUpdated   LabelOperation = "updated"
	LabelRemoved   LabelOperation = "removed"
	LabelUnchanged LabelOperation = "unchanged"
)

// LinkStatus is the outcome of a repository's project-linking step
type LinkStatus string

const (
	LinkLinked  LinkStatus = "linked"
	LinkAlready LinkStatus = "already"
	LinkSkipped LinkStatus = "skipped"
	LinkError   LinkStatus = "error"
	LinkDryRun  LinkStatus = "dry-run"
)

// ErrorRecord is one accumulated per-operation failure. It never aborts the
// run; it marks the owning repository's result as failed.
type ErrorRecord struct {
	Operation string `json:"operation"`
	Target    string `json:"target,omitempty"`
	Reason    string `json:"reason"`
}

// LabelOutcome reports what happened to one label on one repository
type LabelOutcome struct {
	Name          string         `json:"name"`
	Operation     LabelOperation `json:"operation"`
	ChangedFields []string       `json:"changed_fields,omitempty"`
	Applied       bool           `json:"applied"`
}

// SettingChange is one detected settings drift, part of a single batched patch
type SettingChange struct {
	Key  string `json:"key"`
	From bool   `json:"from"`
	To   bool   `json:"to"`
}

// SettingsOutcome reports the settings step for one repository
type SettingsOutcome struct {
	Changes []SettingChange `json:"changes,omitempty"`
	Applied bool            `json:"applied"`
	// Rejected marks an org-policy validation rejection: changes were
	// detected but the remote refused the patch. Not an error.
	Rejected bool `json:"rejected,omitempty"`
}

// ProjectOutcome reports the project link and backfill steps for one repository
type ProjectOutcome struct {
	Number          int        `json:"number"`
	Status          LinkStatus `json:"status"`
	Reason          string     `json:"reason,omitempty"`
	BackfillAdded   int        `json:"backfill_added"`
	BackfillPresent int        `json:"backfill_present"`
}

// SyncResult is the complete outcome for one discovered repository. Exactly
// one is produced per repository, even when every step failed. It is never
// mutated after the repository's processing completes.
type SyncResult struct {
	Repo         string           `json:"repo"`
	Labels       []LabelOutcome   `json:"labels,omitempty"`
	CustomLabels []string         `json:"custom_labels,omitempty"`
	Settings     *SettingsOutcome `json:"settings,omitempty"`
	Project      *ProjectOutcome  `json:"project,omitempty"`
	Errors       []ErrorRecord    `json:"errors,omitempty"`
	Success      bool             `json:"success"`
}

// addError records a per-operation failure on the result
func (r *SyncResult) addError(operation, target, reason string) {
	r.Errors = append(r.Errors, ErrorRecord{
		Operation: operation,
		Target:    target,
		Reason:    reason,
	})
}

// RunResult folds every repository's SyncResult into run-level totals for
// reporting. In dry-run mode the totals reflect intended, not applied, changes.
type RunResult struct {
	DryRun  bool `json:"dry_run"`
	Success bool `json:"success"`

	TotalRepos     int `json:"total_repos"`
	SucceededRepos int `json:"succeeded_repos"`
	FailedRepos    int `json:"failed_repos"`

	LabelsCreated   int `json:"labels_created"`
	LabelsUpdated   int `json:"labels_updated"`
	LabelsRemoved   int `json:"labels_removed"`
	LabelsUnchanged int `json:"labels_unchanged"`
	CustomLabels    int `json:"custom_labels"`

	SettingsChanged int `json:"settings_changed"`
	ReposWithDrift  int `json:"repos_with_drift"`

	ProjectsLinked  int `json:"projects_linked"`
	ProjectsAlready int `json:"projects_already"`
	ItemsAdded      int `json:"items_added"`
	ItemsPresent    int `json:"items_present"`

	Results []SyncResult `json:"results"`
}

// Aggregate folds per-repository outcomes into a run-level result. Overall
// success is true only when no repository recorded errors.
func Aggregate(results []SyncResult, dryRun bool) *RunResult {
	run := &RunResult{
		DryRun:     dryRun,
		Success:    true,
		TotalRepos: len(results),
		Results:    results,
	}

	for _, r := range results {
		if r.Success {
			run.SucceededRepos++
		} else {
			run.FailedRepos++
			run.Success = false
		}

		for _, l := range r.Labels {
			switch l.Operation {
			case LabelCreated:
				run.LabelsCreated++
			case LabelUpdated:
				run.LabelsUpdated++
			case LabelRemoved:
				run.LabelsRemoved++
			case LabelUnchanged:
				run.LabelsUnchanged++
			}
		}
		run.CustomLabels += len(r.CustomLabels)

		if r.Settings != nil && len(r.Settings.Changes) > 0 {
			run.SettingsChanged += len(r.Settings.Changes)
			run.ReposWithDrift++
		}

		if r.Project != nil {
			switch r.Project.Status {
			case LinkLinked, LinkDryRun:
				run.ProjectsLinked++
			case LinkAlready:
				run.ProjectsAlready++
			}
			run.ItemsAdded += r.Project.BackfillAdded
			run.ItemsPresent += r.Project.BackfillPresent
		}
	}

	return run
}
