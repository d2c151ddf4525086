// Package observation implements the Observation Builder (spec §4.7):
// assembling the nested payload sent to both the Planner and the
// Generator from the FSM's current location and the engine's stores.
package observation

// LocationSnapshot is the read-only view of the FSM's current position
// the builder needs. The FSM constructs one on every Planner/Generator
// call; observation never imports the fsm package back (data flows in,
// nothing flows out), so there is no import cycle between the two.
type LocationSnapshot struct {
	CurrentStageID    string
	CurrentStepID     string
	CurrentBehaviorID string
	BehaviorIteration int

	StagesCompleted []string
	StagesRemaining []string
	StepsCompleted  []string
	StepsRemaining  []string
	// Behaviors have no predefined IDs ahead of generation (the Planner
	// decides when to stop), so there is no meaningful "remaining" set.
	BehaviorsCompleted []string

	StageGoal    string
	StepGoal     string
	BehaviorGoal string

	State          string
	LastTransition string
}

// BehaviorFeedbackInput carries the behavior_stats the builder turns into
// a behavior_feedback object on BEHAVIOR_COMPLETED Planner calls. Nil on
// every other call.
type BehaviorFeedbackInput struct {
	BehaviorID       string
	ActionsExecuted  int
	ActionsSucceeded int
	SectionsAdded    int
	LastActionResult string
}
