package sync

import (
	"context"
	"strings"

	"github.com/savvy-web/silk-sync-action/pkg/github"
)

// LabelOp is one computed label operation. Exactly one operation is computed
// per label per run.
type LabelOp struct {
	Kind LabelOperation

	// Desired is the target definition for create and update operations
	Desired github.Label

	// CurrentName is the observed name as stored remotely. Update and delete
	// calls address the label by this name, which may differ from the
	// desired name in casing only.
	CurrentName string

	// ChangedFields lists which of {name, color, description} drifted for
	// update operations
	ChangedFields []string
}

// DiffLabels computes label operations from desired vs. observed state.
// Matching is case-insensitive on name; an exact-casing mismatch on an
// otherwise matching label is itself a tracked change and triggers an update.
// Observed labels with no desired counterpart are returned as custom names;
// with removeCustom set they are additionally scheduled for deletion.
func DiffLabels(desired, observed []github.Label, removeCustom bool) (ops []LabelOp, custom []string) {
	observedByName := make(map[string]github.Label, len(observed))
	for _, l := range observed {
		observedByName[strings.ToLower(l.Name)] = l
	}

	desiredNames := make(map[string]bool, len(desired))
	for _, want := range desired {
		lower := strings.ToLower(want.Name)
		desiredNames[lower] = true

		have, ok := observedByName[lower]
		if !ok {
			ops = append(ops, LabelOp{Kind: LabelCreated, Desired: want})
			continue
		}

		var changed []string
		if have.Name != want.Name {
			changed = append(changed, "name")
		}
		if !strings.EqualFold(have.Color, want.Color) {
			changed = append(changed, "color")
		}
		if have.Description != want.Description {
			changed = append(changed, "description")
		}

		if len(changed) > 0 {
			ops = append(ops, LabelOp{
				Kind:          LabelUpdated,
				Desired:       want,
				CurrentName:   have.Name,
				ChangedFields: changed,
			})
		} else {
			ops = append(ops, LabelOp{Kind: LabelUnchanged, Desired: want, CurrentName: have.Name})
		}
	}

	for _, have := range observed {
		if desiredNames[strings.ToLower(have.Name)] {
			continue
		}
		custom = append(custom, have.Name)
		if removeCustom {
			ops = append(ops, LabelOp{Kind: LabelRemoved, CurrentName: have.Name})
		}
	}

	return ops, custom
}

// syncLabels diffs and applies the label set for one repository. Each apply
// call runs independently: a failure on one label is recorded on the result
// and does not block the remaining labels.
func (e *Engine) syncLabels(ctx context.Context, repo github.DiscoveredRepo, observed []github.Label, result *SyncResult) {
	ops, custom := DiffLabels(e.cfg.Labels, observed, e.opts.RemoveCustomLabels)
	result.CustomLabels = custom

	for _, op := range ops {
		outcome := LabelOutcome{
			Operation:     op.Kind,
			ChangedFields: op.ChangedFields,
		}
		if op.Kind == LabelRemoved {
			outcome.Name = op.CurrentName
		} else {
			outcome.Name = op.Desired.Name
		}

		switch {
		case op.Kind == LabelUnchanged:
			outcome.Applied = true

		case e.opts.DryRun:
			// Report the intended operation; nothing is issued.
			outcome.Applied = false

		default:
			var err error
			switch op.Kind {
			case LabelCreated:
				err = e.rest.CreateLabel(ctx, repo.Owner, repo.Name, op.Desired)
			case LabelUpdated:
				err = e.rest.UpdateLabel(ctx, repo.Owner, repo.Name, op.CurrentName, op.Desired)
			case LabelRemoved:
				err = e.rest.DeleteLabel(ctx, repo.Owner, repo.Name, op.CurrentName)
			}

			if err != nil {
				e.logger.Warn("label operation failed",
					"repo", repo.FullName, "label", outcome.Name,
					"operation", op.Kind, "error", err)
				result.addError(labelErrorOp(op.Kind), outcome.Name, err.Error())
			} else {
				outcome.Applied = true
			}
		}

		result.Labels = append(result.Labels, outcome)
	}
}

// labelErrorOp names the failed call for an error record
func labelErrorOp(kind LabelOperation) string {
	switch kind {
	case LabelCreated:
		return "create label"
	case LabelUpdated:
		return "update label"
	case LabelRemoved:
		return "delete label"
	default:
		return "label"
	}
}
