package fsm

import (
	"context"
	"errors"
	"fmt"

	"github.com/smilemakc/noteflow/internal/action"
	"github.com/smilemakc/noteflow/internal/apiclient"
	"github.com/smilemakc/noteflow/internal/observation"
	"github.com/smilemakc/noteflow/pkg/models"
)

// runEffect invokes the entry effect for a newly-entered state, per
// spec §4.9. WORKFLOW_UPDATE_PENDING and STEP_UPDATE_PENDING have no
// self-effect (they wait for an external confirmation/rejection); the
// three terminal states only emit control-surface events, already done by
// Transition.
func (e *Engine) runEffect(ctx context.Context, state State, payload any) error {
	switch state {
	case StateStageRunning:
		return e.effectStageRunning(ctx)
	case StateStepRunning:
		return e.effectStepRunning(ctx)
	case StateBehaviorRunning:
		return e.effectBehaviorRunning(ctx)
	case StateActionRunning:
		return e.effectActionRunning(ctx)
	case StateActionCompleted:
		return e.effectActionCompleted(ctx)
	case StateBehaviorCompleted:
		return e.effectBehaviorCompleted(ctx)
	case StateStepCompleted:
		return e.effectStepCompleted(ctx)
	case StateStageCompleted:
		return e.effectStageCompleted(ctx)
	case StateWorkflowUpdatePending, StateStepUpdatePending:
		return nil
	case StateWorkflowCompleted, StateError, StateCancelled:
		return nil
	default:
		return nil
	}
}

func (e *Engine) effectStageRunning(ctx context.Context) error {
	if e.ec.currentStageID == "" {
		if first := e.Pipeline.FirstStage(); first != nil {
			e.ec.currentStageID = first.ID
		}
	}
	step := e.Pipeline.FirstStep(e.ec.currentStageID)
	if step == nil {
		return e.Transition(ctx, EventCompleteStage, nil)
	}
	e.ec.currentStepID = step.ID
	return e.Transition(ctx, EventStartStep, nil)
}

// effectStepRunning is the Planning-First entry effect: the Planner is
// consulted before any behavior starts (spec §4.9, P2).
func (e *Engine) effectStepRunning(ctx context.Context) error {
	req, err := e.buildObservation(false, true, nil)
	if err != nil {
		return e.fail(ctx, newContractError(e.state, EventStartStep, err))
	}

	resp, err := e.API.Plan(ctx, e.RunID, req)
	if err != nil {
		return e.fail(ctx, classifyPlanError(e.state, EventStartStep, err))
	}

	e.applyPlannerResult(resp)
	e.ec.lastContextFilter = resp.ContextFilter

	if resp.TargetAchieved {
		return e.Transition(ctx, EventCompleteStep, nil)
	}
	return e.Transition(ctx, EventStartBehavior, nil)
}

// effectBehaviorRunning consults the Generator, buffering its full action
// stream before any action executes (spec §5: "a stream abort mid-behavior
// would leave ambiguous behavior_stats").
func (e *Engine) effectBehaviorRunning(ctx context.Context) error {
	e.ec.behaviorIteration++
	e.ec.currentBehaviorID = fmt.Sprintf("behavior_%03d", e.ec.behaviorIteration)

	req, err := e.buildObservation(true, false, nil)
	if err != nil {
		return e.fail(ctx, newContractError(e.state, EventStartBehavior, err))
	}
	if len(e.ec.lastContextFilter) > 0 {
		req.Observation = e.Filter.Apply(req.Observation, e.ec.lastContextFilter)
	}

	actions, err := e.API.Generate(ctx, e.RunID, req)
	if err != nil {
		// Generator calls are never retried (spec §7 kind 1): a transport
		// failure fails the run immediately.
		return e.fail(ctx, newTransportError(e.state, EventStartAction, err))
	}

	e.ec.currentBehaviorActions = actions
	e.ec.currentActionIndex = 0
	e.ec.behaviorStats.reset()

	if len(actions) == 0 {
		return e.Transition(ctx, EventCompleteBehavior, nil)
	}
	return e.Transition(ctx, EventStartAction, nil)
}

// effectActionRunning dispatches the current action through the Script
// Store and classifies the outcome per spec §7: a contract violation
// (invalid action descriptor) fails the run, but an exception raised from
// inside the handler's own logic is recorded as an error output and the
// engine keeps going (kind 5).
func (e *Engine) effectActionRunning(ctx context.Context) error {
	if e.ec.currentActionIndex >= len(e.ec.currentBehaviorActions) {
		return e.Transition(ctx, EventCompleteBehavior, nil)
	}
	act := e.ec.currentBehaviorActions[e.ec.currentActionIndex]

	result, err := e.dispatchAction(ctx, act)
	if err != nil {
		if errors.Is(err, action.ErrInvalidAction) {
			return e.fail(ctx, newContractError(e.state, EventStartAction, err))
		}
		e.recordActionError(act, err)
		return e.Transition(ctx, EventCompleteAction, nil)
	}

	e.ec.behaviorStats.ActionsExecuted++
	e.ec.behaviorStats.ActionsSucceeded++
	e.ec.behaviorStats.LastActionResult = "ok"
	if act.Type == models.ActionNewSection {
		e.ec.behaviorStats.SectionsAdded++
	}

	if result.WorkflowUpdatePending {
		return e.Transition(ctx, EventUpdateWorkflow, result.Template)
	}
	return e.Transition(ctx, EventCompleteAction, nil)
}

// dispatchAction recovers a panicking handler into an error so it is
// classified identically to a handler that returned one (spec §7 kind 5
// makes no distinction between the two).
func (e *Engine) dispatchAction(ctx context.Context, act models.Action) (result action.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action handler panicked: %v", r)
		}
	}()
	return e.Registry.Dispatch(ctx, e.Scripts, act)
}

// recordActionError converts a handler exception into an error output on
// the active cell (if one can be identified) and an effect-log entry
// (spec §7 kind 5).
func (e *Engine) recordActionError(act models.Action, err error) {
	cellID := act.CodecellID
	if cellID == "" {
		if last := e.Cells.LastCell(); last != nil {
			cellID = last.ID
		}
	}
	if cellID != "" {
		_ = e.Cells.AppendOutputs(cellID, []models.Output{
			{Type: models.OutputKindError, Content: err.Error()},
		})
	}
	e.Context.AppendEffect(fmt.Sprintf("action_error[%s]: %s", act.Type, err.Error()))

	e.ec.behaviorStats.ActionsExecuted++
	e.ec.behaviorStats.LastActionResult = "error"
}

func (e *Engine) effectActionCompleted(ctx context.Context) error {
	if e.ec.currentActionIndex+1 < len(e.ec.currentBehaviorActions) {
		e.ec.currentActionIndex++
		return e.Transition(ctx, EventNextAction, nil)
	}
	return e.Transition(ctx, EventCompleteBehavior, nil)
}

// effectBehaviorCompleted reports behavior_stats to the Planner and acts
// on its verdict: continue looping within the step, declare the step
// done, or (defensively) keep iterating (spec §4.9).
func (e *Engine) effectBehaviorCompleted(ctx context.Context) error {
	feedback := &observation.BehaviorFeedbackInput{
		BehaviorID:       e.ec.currentBehaviorID,
		ActionsExecuted:  e.ec.behaviorStats.ActionsExecuted,
		ActionsSucceeded: e.ec.behaviorStats.ActionsSucceeded,
		SectionsAdded:    e.ec.behaviorStats.SectionsAdded,
		LastActionResult: e.ec.behaviorStats.LastActionResult,
	}

	req, err := e.buildObservation(false, false, feedback)
	if err != nil {
		return e.fail(ctx, newContractError(e.state, EventCompleteBehavior, err))
	}

	resp, err := e.API.Plan(ctx, e.RunID, req)
	if err != nil {
		return e.fail(ctx, classifyPlanError(e.state, EventCompleteBehavior, err))
	}

	e.applyPlannerResult(resp)
	e.ec.lastContextFilter = resp.ContextFilter
	e.ec.completedBehaviors = append(e.ec.completedBehaviors, e.ec.currentBehaviorID)

	targetAchieved := resp.TargetAchieved
	continueBehaviors := false
	if resp.Transition != nil {
		continueBehaviors = resp.Transition.ContinueBehaviors
		targetAchieved = resp.Transition.TargetAchieved
	}

	switch {
	case continueBehaviors:
		e.ec.currentBehaviorActions = nil
		e.ec.currentActionIndex = 0
		e.ec.behaviorStats.reset()
		return e.Transition(ctx, EventNextBehavior, nil)
	case targetAchieved:
		return e.Transition(ctx, EventCompleteStep, nil)
	default:
		// Defensive default: keeps forward motion rather than stalling the
		// run on an ambiguous Planner verdict.
		e.ec.currentBehaviorActions = nil
		e.ec.currentActionIndex = 0
		e.ec.behaviorStats.reset()
		return e.Transition(ctx, EventNextBehavior, nil)
	}
}

func (e *Engine) effectStepCompleted(ctx context.Context) error {
	if e.Pipeline.IsLastStepInStage(e.ec.currentStageID, e.ec.currentStepID) {
		return e.Transition(ctx, EventCompleteStage, nil)
	}

	e.ec.stepsCompleted = append(e.ec.stepsCompleted, e.ec.currentStepID)
	if next := e.Pipeline.NextStep(e.ec.currentStageID, e.ec.currentStepID); next != nil {
		e.ec.currentStepID = next.ID
	}
	e.ec.resetBehaviorLocal()
	return e.Transition(ctx, EventNextStep, nil)
}

func (e *Engine) effectStageCompleted(ctx context.Context) error {
	if e.Pipeline.IsLastStage(e.ec.currentStageID) {
		return e.Transition(ctx, EventCompleteWorkflow, nil)
	}

	e.ec.stagesCompleted = append(e.ec.stagesCompleted, e.ec.currentStageID)
	if next := e.Pipeline.NextStage(e.ec.currentStageID); next != nil {
		e.ec.currentStageID = next.ID
		if len(next.Steps) > 0 {
			e.ec.currentStepID = next.Steps[0].ID
		} else {
			e.ec.currentStepID = ""
		}
	}
	e.ec.resetStepLocal()
	return e.Transition(ctx, EventNextStage, nil)
}

// ConfirmWorkflowUpdate applies a pending update_workflow action (P10):
// the template is replaced via the Pipeline Store, with fallback
// navigation if the FSM's current stage/step no longer resolve (spec
// §4.9), then the FSM resumes at ACTION_COMPLETED.
func (e *Engine) ConfirmWorkflowUpdate(ctx context.Context, tpl models.WorkflowTemplate) error {
	e.Pipeline.SetTemplate(tpl)

	stage := e.Pipeline.StageByID(e.ec.currentStageID)
	if stage == nil {
		if first := e.Pipeline.FirstStage(); first != nil {
			e.ec.currentStageID = first.ID
			if step := e.Pipeline.FirstStep(first.ID); step != nil {
				e.ec.currentStepID = step.ID
			} else {
				e.ec.currentStepID = ""
			}
		} else {
			e.ec.currentStageID = ""
			e.ec.currentStepID = ""
		}
	} else {
		stepResolves := false
		for _, st := range stage.Steps {
			if st.ID == e.ec.currentStepID {
				stepResolves = true
				break
			}
		}
		if !stepResolves {
			if step := e.Pipeline.FirstStep(stage.ID); step != nil {
				e.ec.currentStepID = step.ID
			} else {
				e.ec.currentStepID = ""
			}
		}
	}

	return e.Transition(ctx, EventUpdateWorkflowConfirmed, nil)
}

// RejectWorkflowUpdate leaves the template unchanged and resumes at
// ACTION_COMPLETED.
func (e *Engine) RejectWorkflowUpdate(ctx context.Context) error {
	return e.Transition(ctx, EventUpdateWorkflowRejected, nil)
}

// classifyPlanError distinguishes a Planner contract violation (malformed
// JSON, failed schema validation) from a transport failure; apiclient.Plan
// has already retried transport errors once internally (spec §7 kind 1).
func classifyPlanError(state State, event Event, err error) *EngineError {
	if errors.Is(err, apiclient.ErrContractInvalid) {
		return newContractError(state, event, err)
	}
	return newTransportError(state, event, err)
}
