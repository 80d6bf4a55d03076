package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregate_Empty(t *testing.T) {
	run := Aggregate(nil, false)

	assert.True(t, run.Success)
	assert.Equal(t, 0, run.TotalRepos)
}

func TestAggregate_Totals(t *testing.T) {
	results := []SyncResult{
		{
			Repo:    "acme/widget",
			Success: true,
			Labels: []LabelOutcome{
				{Name: "bug", Operation: LabelCreated, Applied: true},
				{Name: "feature", Operation: LabelUpdated, Applied: true},
				{Name: "docs", Operation: LabelUnchanged, Applied: true},
			},
			CustomLabels: []string{"legacy"},
			Settings: &SettingsOutcome{
				Changes: []SettingChange{{Key: "has_wiki", From: true, To: false}},
				Applied: true,
			},
			Project: &ProjectOutcome{Number: 7, Status: LinkLinked, BackfillAdded: 3, BackfillPresent: 1},
		},
		{
			Repo:    "acme/gadget",
			Success: false,
			Errors:  []ErrorRecord{{Operation: "list labels", Reason: "boom"}},
			Project: &ProjectOutcome{Number: 7, Status: LinkAlready},
		},
	}

	run := Aggregate(results, false)

	assert.False(t, run.Success)
	assert.Equal(t, 2, run.TotalRepos)
	assert.Equal(t, 1, run.SucceededRepos)
	assert.Equal(t, 1, run.FailedRepos)

	assert.Equal(t, 1, run.LabelsCreated)
	assert.Equal(t, 1, run.LabelsUpdated)
	assert.Equal(t, 1, run.LabelsUnchanged)
	assert.Equal(t, 1, run.CustomLabels)

	assert.Equal(t, 1, run.SettingsChanged)
	assert.Equal(t, 1, run.ReposWithDrift)

	assert.Equal(t, 1, run.ProjectsLinked)
	assert.Equal(t, 1, run.ProjectsAlready)
	assert.Equal(t, 3, run.ItemsAdded)
	assert.Equal(t, 1, run.ItemsPresent)
}

func TestAggregate_DryRunLinkCountsAsIntended(t *testing.T) {
	results := []SyncResult{
		{
			Repo:    "acme/widget",
			Success: true,
			Project: &ProjectOutcome{Number: 7, Status: LinkDryRun, BackfillAdded: 2},
		},
	}

	run := Aggregate(results, true)

	assert.True(t, run.DryRun)
	assert.Equal(t, 1, run.ProjectsLinked)
	assert.Equal(t, 2, run.ItemsAdded)
}
