package fsm

import "github.com/smilemakc/noteflow/pkg/models"

const transitionHistoryCapacity = 64

// transitionRecord is one ring-buffer entry of the FSM's transition
// history (spec §3: "FSM State ... retains the last event, a transition
// history ring (bounded)").
type transitionRecord struct {
	From  State
	Event Event
	To    State
}

// behaviorStats accumulates the counters reported to the Planner as
// behavior_feedback on BEHAVIOR_COMPLETED (spec §4.9).
type behaviorStats struct {
	ActionsExecuted  int
	ActionsSucceeded int
	SectionsAdded    int
	LastActionResult string
}

func (b *behaviorStats) reset() {
	*b = behaviorStats{}
}

// executionContext is the FSM's hierarchical cursor: where it is in the
// workflow→stage→step→behavior→action tree, plus the bookkeeping the
// state-effect handlers read and mutate (spec §3).
type executionContext struct {
	currentStageID    string
	currentStepID     string
	currentBehaviorID string
	behaviorIteration int

	currentBehaviorActions []models.Action
	currentActionIndex     int
	behaviorStats          behaviorStats

	stagesCompleted    []string
	stepsCompleted     []string
	completedBehaviors []string

	// lastContextFilter is the most recent Planner response's advisory
	// context_filter, applied to the observation built for the next
	// Generator call (spec §6.1).
	lastContextFilter models.ContextFilter

	lastEvent Event
	history   []transitionRecord
}

func newExecutionContext() *executionContext {
	return &executionContext{}
}

func (c *executionContext) recordTransition(from State, event Event, to State) {
	c.lastEvent = event
	c.history = append(c.history, transitionRecord{From: from, Event: event, To: to})
	if len(c.history) > transitionHistoryCapacity {
		c.history = c.history[len(c.history)-transitionHistoryCapacity:]
	}
}

// resetBehaviorLocal clears per-behavior state at the start of a new step
// (spec §4.9 STEP_COMPLETED: "reset behavior iteration and
// completed_behaviors to empty").
func (c *executionContext) resetBehaviorLocal() {
	c.behaviorIteration = 0
	c.currentBehaviorID = ""
	c.completedBehaviors = nil
	c.currentBehaviorActions = nil
	c.currentActionIndex = 0
	c.behaviorStats.reset()
}

// resetStepLocal clears per-step (and transitively per-behavior) state at
// the start of a new stage (spec §4.9 STAGE_COMPLETED: "reset step-local
// state").
func (c *executionContext) resetStepLocal() {
	c.stepsCompleted = nil
	c.resetBehaviorLocal()
}
