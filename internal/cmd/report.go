package cmd

import (
	"fmt"

	"github.com/savvy-web/silk-sync-action/pkg/sync"
)

// printRunReport writes the human-readable convergence summary to stdout
func printRunReport(result *sync.RunResult) {
	if result.DryRun {
		fmt.Printf("\n🔍 Dry-run summary (no changes were applied):\n")
	} else {
		fmt.Printf("\n📋 Convergence summary:\n")
	}

	fmt.Printf("  Repositories: %d processed, %d succeeded, %d failed\n",
		result.TotalRepos, result.SucceededRepos, result.FailedRepos)

	if result.LabelsCreated+result.LabelsUpdated+result.LabelsRemoved > 0 {
		fmt.Printf("  Labels: %d created, %d updated, %d removed (%d already in sync)\n",
			result.LabelsCreated, result.LabelsUpdated, result.LabelsRemoved, result.LabelsUnchanged)
	} else {
		fmt.Printf("  Labels: all in sync (%d checked)\n", result.LabelsUnchanged)
	}

	if result.CustomLabels > 0 {
		fmt.Printf("  Custom labels observed: %d\n", result.CustomLabels)
	}

	if result.ReposWithDrift > 0 {
		fmt.Printf("  Settings: %d changes across %d repositories\n",
			result.SettingsChanged, result.ReposWithDrift)
	}

	if result.ProjectsLinked+result.ProjectsAlready > 0 {
		fmt.Printf("  Projects: %d linked, %d already linked\n",
			result.ProjectsLinked, result.ProjectsAlready)
		fmt.Printf("  Board items: %d added, %d already present\n",
			result.ItemsAdded, result.ItemsPresent)
	}

	for _, repo := range result.Results {
		if repo.Success {
			continue
		}
		fmt.Printf("\n❌ %s:\n", repo.Repo)
		for _, e := range repo.Errors {
			if e.Target != "" && e.Target != repo.Repo {
				fmt.Printf("  - %s (%s): %s\n", e.Operation, e.Target, e.Reason)
			} else {
				fmt.Printf("  - %s: %s\n", e.Operation, e.Reason)
			}
		}
	}

	for _, repo := range result.Results {
		if repo.Settings != nil && repo.Settings.Rejected {
			fmt.Printf("\n⚠️  %s: settings change rejected by organization policy\n", repo.Repo)
		}
	}

	if result.Success {
		fmt.Printf("\n✅ All repositories converged successfully\n")
	} else {
		fmt.Printf("\n⚠️  Completed with failures\n")
	}
}
