package fsm

import (
	"context"
	"time"

	"github.com/smilemakc/noteflow/internal/action"
	"github.com/smilemakc/noteflow/internal/apiclient"
	"github.com/smilemakc/noteflow/internal/control"
	"github.com/smilemakc/noteflow/internal/logger"
	"github.com/smilemakc/noteflow/internal/observation"
	"github.com/smilemakc/noteflow/internal/observerhub"
	"github.com/smilemakc/noteflow/internal/store"
	"github.com/smilemakc/noteflow/pkg/models"
)

// Engine is the FSM Core (spec §4.8): it owns the current state, the
// hierarchical execution context, and wires together the three stores,
// the Script Store facade, the Workflow API Client, the Observation
// Builder, the control surface, and the observer hub. Transition is its
// single entry point; everything else is invoked from within an effect.
type Engine struct {
	RunID string

	Cells    *store.CellStore
	Context  *store.ContextStore
	Pipeline *store.PipelineStore
	Registry *action.Registry
	Scripts  *action.ScriptStore

	API        *apiclient.Client
	Filter     *observation.ContextFilterEvaluator
	Surface    *control.Surface
	Observers  *observerhub.ObserverManager
	Log        *logger.Logger

	state     State
	ec        *executionContext
	lastError error
}

// NewEngine wires an Engine from its already-constructed collaborators.
// The engine starts in IDLE.
func NewEngine(runID string, cells *store.CellStore, ctxStore *store.ContextStore, pipeline *store.PipelineStore, registry *action.Registry, scripts *action.ScriptStore, api *apiclient.Client, surface *control.Surface, observers *observerhub.ObserverManager, log *logger.Logger) *Engine {
	return &Engine{
		RunID:     runID,
		Cells:     cells,
		Context:   ctxStore,
		Pipeline:  pipeline,
		Registry:  registry,
		Scripts:   scripts,
		API:       api,
		Filter:    observation.NewContextFilterEvaluator(),
		Surface:   surface,
		Observers: observers,
		Log:       log,
		state:     StateIdle,
		ec:        newExecutionContext(),
	}
}

// CurrentState satisfies control.StatusProvider.
func (e *Engine) CurrentState() string {
	return string(e.state)
}

// LastError returns the classified error that last drove the FSM into
// ERROR, or nil if it has never failed.
func (e *Engine) LastError() error {
	return e.lastError
}

// Start fires START_WORKFLOW from IDLE.
func (e *Engine) Start(ctx context.Context) error {
	return e.Transition(ctx, EventStartWorkflow, nil)
}

// Cancel fires CANCEL from whatever state the engine is in.
func (e *Engine) Cancel(ctx context.Context) error {
	return e.Transition(ctx, EventCancel, nil)
}

// Reset fires RESET, valid only from ERROR, CANCELLED, or
// WORKFLOW_COMPLETED.
func (e *Engine) Reset(ctx context.Context) error {
	return e.Transition(ctx, EventReset, nil)
}

// Resume clears the control surface's pause flag and re-enters the
// current state's effect (spec §5: "resume() clears pause and re-enters
// the current state's effect").
func (e *Engine) Resume(ctx context.Context) error {
	e.Surface.Resume()
	if e.Surface.ShouldPause() {
		// the step-limit gate is still active; stay parked
		return nil
	}
	return e.runEffect(ctx, e.state, nil)
}

// Transition looks up (current state, event), and if defined, advances the
// FSM and runs the new state's entry effect (spec §4.8). An undefined pair
// is logged and ignored — idempotent, not an error (P1). The control
// surface's step counter increments on every entry into ACTION_RUNNING;
// if the surface says to pause (explicit pause, or the step-limit gate),
// the engine parks on the new state without running its effect.
func (e *Engine) Transition(ctx context.Context, event Event, payload any) error {
	from := e.state
	to, ok := nextState(from, event)
	if !ok {
		e.notify(ctx, observerhub.EventTypeInvalidEvent, from, from, event, "", nil)
		if e.Log != nil {
			e.Log.Warn("invalid transition, ignoring", "from", string(from), "event", string(event))
		}
		return nil
	}

	e.ec.recordTransition(from, event, to)
	e.state = to
	var transitionErr error
	if event == EventFail {
		if engErr, ok := payload.(*EngineError); ok {
			e.lastError = engErr
			transitionErr = engErr
		}
	}
	e.notify(ctx, observerhub.EventTypeTransition, from, to, event, "ok", transitionErr)

	if to == StateActionRunning {
		e.Surface.IncrementStep()
	}

	if e.Surface.ShouldPause() {
		e.notify(ctx, observerhub.EventTypePaused, to, to, event, "paused", nil)
		return nil
	}

	return e.runEffect(ctx, to, payload)
}

func (e *Engine) notify(ctx context.Context, t observerhub.EventType, from, to State, trigger Event, status string, err error) {
	if e.Observers == nil {
		return
	}
	e.Observers.Notify(ctx, observerhub.Event{
		Type:      t,
		RunID:     e.RunID,
		Timestamp: time.Now().UTC(),
		FromState: string(from),
		ToState:   string(to),
		Trigger:   string(trigger),
		Status:    status,
		Error:     err,
	})
}

// fail wraps err into an EngineError of the given kind and raises FAIL.
// Transition into ERROR never itself fails (ERROR has no effect that can
// error), so the returned error is always the original classified error,
// for the caller (e.g. an HTTP handler) to log.
func (e *Engine) fail(ctx context.Context, kind *EngineError) error {
	if e.Log != nil {
		e.Log.Error("fsm failing", "kind", kind.Error())
	}
	if tErr := e.Transition(ctx, EventFail, kind); tErr != nil {
		return tErr
	}
	return kind
}

func (e *Engine) snapshot() observation.LocationSnapshot {
	tpl := e.Pipeline.Template()
	var stageGoal, stepGoal string
	var stagesRemaining, stepsRemaining []string

	stageIdx := -1
	for i, s := range tpl.Stages {
		if s.ID == e.ec.currentStageID {
			stageIdx = i
			stageGoal = s.Goal
			break
		}
	}
	if stageIdx >= 0 {
		for _, s := range tpl.Stages[stageIdx+1:] {
			stagesRemaining = append(stagesRemaining, s.ID)
		}
		stage := tpl.Stages[stageIdx]
		stepIdx := -1
		for i, st := range stage.Steps {
			if st.ID == e.ec.currentStepID {
				stepIdx = i
				stepGoal = st.Goal
				break
			}
		}
		if stepIdx >= 0 {
			for _, st := range stage.Steps[stepIdx+1:] {
				stepsRemaining = append(stepsRemaining, st.ID)
			}
		}
	}

	return observation.LocationSnapshot{
		CurrentStageID:     e.ec.currentStageID,
		CurrentStepID:      e.ec.currentStepID,
		CurrentBehaviorID:  e.ec.currentBehaviorID,
		BehaviorIteration:  e.ec.behaviorIteration,
		StagesCompleted:    e.ec.stagesCompleted,
		StagesRemaining:    stagesRemaining,
		StepsCompleted:     e.ec.stepsCompleted,
		StepsRemaining:     stepsRemaining,
		BehaviorsCompleted: e.ec.completedBehaviors,
		StageGoal:          stageGoal,
		StepGoal:           stepGoal,
		State:              string(e.state),
		LastTransition:     string(e.ec.lastEvent),
	}
}

func (e *Engine) buildObservation(stream bool, requireProgress bool, feedback *observation.BehaviorFeedbackInput) (models.APIRequest, error) {
	return observation.Build(observation.BuildParams{
		Location:            e.snapshot(),
		Cells:               e.Cells,
		Context:             e.Context,
		Stream:              stream,
		BehaviorFeedback:    feedback,
		RequireProgressInfo: requireProgress,
	})
}

func (e *Engine) applyPlannerResult(resp *models.PlannerResponse) {
	applyContextUpdate(e.ec, e.Context, e.Pipeline, resp.ContextUpdate)
}
