package fsm

import (
	"github.com/smilemakc/noteflow/internal/store"
	"github.com/smilemakc/noteflow/pkg/models"
)

// applyContextUpdate applies every populated key of a context_update
// atomically (P6): either every key takes effect or (on a nil update)
// none does. There is no partial-failure path because each sub-operation
// is a pure in-memory assignment; the atomicity the spec cares about is
// "don't apply half of context_update and bail partway through", which
// this single, non-yielding function satisfies by construction.
func applyContextUpdate(ec *executionContext, ctxStore *store.ContextStore, pipeline *store.PipelineStore, update *models.ContextUpdate) {
	if update == nil {
		return
	}

	if len(update.Variables) > 0 {
		ctxStore.SetVariables(update.Variables)
	}

	if pu := update.ProgressUpdate; pu != nil {
		ctxStore.UpdateFocus(pu.Level, pu.Focus)
	}

	if ou := update.OutputsUpdate; ou != nil {
		ctxStore.UpdateOutputs(ou.Level, ou.Outputs)
	}

	if eu := update.EffectsUpdate; eu != nil {
		ctxStore.ReplaceEffects(eu.Current, eu.History)
	}

	if wu := update.WorkflowUpdate; wu != nil {
		pipeline.SetTemplate(models.WorkflowTemplate{Stages: wu.Stages})
		if wu.NextStageID != "" {
			ec.currentStageID = wu.NextStageID
			ec.resetStepLocal()
			if step := pipeline.FirstStep(wu.NextStageID); step != nil {
				ec.currentStepID = step.ID
			} else {
				ec.currentStepID = ""
			}
		}
	}

	if ssu := update.StageStepsUpdate; ssu != nil {
		pipeline.ReplaceStageSteps(ssu.StageID, ssu.Steps)
	}
}
