package observation

import (
	"fmt"

	"github.com/smilemakc/noteflow/internal/store"
	"github.com/smilemakc/noteflow/pkg/models"
)

// BuildParams is the input to Build: the FSM's location snapshot, the
// three stores, and the per-call flags (stream/behavior feedback/
// progress-info requirement).
type BuildParams struct {
	Location            LocationSnapshot
	Cells               *store.CellStore
	Context             *store.ContextStore
	Stream              bool
	BehaviorFeedback    *BehaviorFeedbackInput
	RequireProgressInfo bool
}

// Build assembles the observation.* payload plus behavior_feedback and
// options for one Planner or Generator call, then clears the Cell
// Store's dirty set exactly once (spec §4.7: "the builder calls
// clear_dirty() exactly once" after the payload is built).
func Build(p BuildParams) (models.APIRequest, error) {
	obs, err := buildObservation(p.Location, p.Cells, p.Context, p.RequireProgressInfo)
	if err != nil {
		return models.APIRequest{}, err
	}

	req := models.APIRequest{
		Observation: obs,
		Options:     models.RequestOptions{Stream: p.Stream},
	}

	if p.BehaviorFeedback != nil {
		req.BehaviorFeedback = &models.BehaviorFeedback{
			BehaviorID:       p.BehaviorFeedback.BehaviorID,
			ActionsExecuted:  p.BehaviorFeedback.ActionsExecuted,
			ActionsSucceeded: p.BehaviorFeedback.ActionsSucceeded,
			SectionsAdded:    p.BehaviorFeedback.SectionsAdded,
			LastActionResult: p.BehaviorFeedback.LastActionResult,
		}
	}

	p.Cells.ClearDirty()

	return req, nil
}

// Snapshot builds the same observation.* payload as Build, for the §6.3
// persisted-state blob, without the Planner/Generator side effect of
// clearing the Cell Store's dirty set — a checkpoint read must never
// perturb the dirty tracking a subsequent real API call depends on.
func Snapshot(loc LocationSnapshot, cells *store.CellStore, ctx *store.ContextStore) (models.Observation, error) {
	return buildObservation(loc, cells, ctx, false)
}

func buildObservation(loc LocationSnapshot, cells *store.CellStore, ctx *store.ContextStore, requireProgressInfo bool) (models.Observation, error) {
	location := buildLocation(loc, ctx)

	if requireProgressInfo {
		if err := validateProgressInfo(location); err != nil {
			return models.Observation{}, err
		}
	}

	notebook := buildNotebook(cells)
	ctxPayload := models.ContextPayload{
		Variables: ctx.Variables(),
		Effects:   ctx.Effects(),
		Notebook:  notebook,
		FSM: models.FSMPayload{
			State:          loc.State,
			LastTransition: loc.LastTransition,
		},
	}

	return models.Observation{Location: location, Context: ctxPayload}, nil
}

func buildLocation(loc LocationSnapshot, ctx *store.ContextStore) models.Location {
	focus := ctx.ProgressFocus()

	return models.Location{
		Current: models.LocationCurrent{
			StageID:           loc.CurrentStageID,
			StepID:            loc.CurrentStepID,
			BehaviorID:        loc.CurrentBehaviorID,
			BehaviorIteration: loc.BehaviorIteration,
		},
		Progress: models.LocationProgress{
			Stages: models.ProgressNode{
				Completed:      nonNil(loc.StagesCompleted),
				Current:        loc.CurrentStageID,
				Remaining:      nonNil(loc.StagesRemaining),
				Focus:          focus.Stages,
				CurrentOutputs: ctx.OutputsAt(models.ProgressLevelStages),
			},
			Steps: models.ProgressNode{
				Completed:      nonNil(loc.StepsCompleted),
				Current:        loc.CurrentStepID,
				Remaining:      nonNil(loc.StepsRemaining),
				Focus:          focus.Steps,
				CurrentOutputs: ctx.OutputsAt(models.ProgressLevelSteps),
			},
			Behaviors: models.ProgressNode{
				Completed:      nonNil(loc.BehaviorsCompleted),
				Current:        loc.CurrentBehaviorID,
				Remaining:      []string{},
				Iteration:      loc.BehaviorIteration,
				Focus:          focus.Behaviors,
				CurrentOutputs: ctx.OutputsAt(models.ProgressLevelBehaviors),
			},
		},
		Goals: models.Goals{
			Stage:    loc.StageGoal,
			Step:     loc.StepGoal,
			Behavior: loc.BehaviorGoal,
		},
	}
}

func buildNotebook(cells *store.CellStore) models.NotebookPayload {
	notebook := cells.Notebook()
	payload := models.NotebookPayload{
		Title:     notebook.Title,
		Cells:     cells.ToDict(true),
		CellCount: len(notebook.Cells),
	}

	if last := cells.LastCell(); last != nil {
		payload.LastCellType = string(last.Kind)
		if len(last.Outputs) > 0 {
			payload.LastOutput = last.Outputs[len(last.Outputs)-1].Content
		}
	}

	return payload
}

func validateProgressInfo(loc models.Location) error {
	if loc.Progress.Stages.Current == "" {
		return fmt.Errorf("%w: location.progress.stages.current", ErrProgressInfoMissing)
	}
	if loc.Progress.Steps.Current == "" {
		return fmt.Errorf("%w: location.progress.steps.current", ErrProgressInfoMissing)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
