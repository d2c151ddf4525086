// Package fsm implements the FSM Core and its State-Effect Handlers (spec
// §4.8, §4.9): the hierarchical workflow→stage→step→behavior→action state
// machine that coordinates the Planner, the Generator, and the Code
// Executor.
package fsm

// State is one of the FSM's 15 tagged states.
type State string

const (
	StateIdle                  State = "IDLE"
	StateStageRunning          State = "STAGE_RUNNING"
	StateStageCompleted        State = "STAGE_COMPLETED"
	StateStepRunning           State = "STEP_RUNNING"
	StateStepCompleted         State = "STEP_COMPLETED"
	StateBehaviorRunning       State = "BEHAVIOR_RUNNING"
	StateBehaviorCompleted     State = "BEHAVIOR_COMPLETED"
	StateActionRunning         State = "ACTION_RUNNING"
	StateActionCompleted       State = "ACTION_COMPLETED"
	StateWorkflowCompleted     State = "WORKFLOW_COMPLETED"
	StateWorkflowUpdatePending State = "WORKFLOW_UPDATE_PENDING"
	StateStepUpdatePending     State = "STEP_UPDATE_PENDING"
	StateError                 State = "ERROR"
	StateCancelled             State = "CANCELLED"
	// StatePaused is derived, not a transition-table destination: the
	// control surface parks the engine by skipping the next effect while
	// State holds whatever non-terminal value it had on entry (spec §4.8:
	// "PAUSED (derived — see control surface)"). Exposed for status
	// reporting only.
	StatePaused State = "PAUSED"
)

// Event is one of the FSM's 23 events.
type Event string

const (
	EventStartWorkflow           Event = "START_WORKFLOW"
	EventStartStage              Event = "START_STAGE"
	EventStartStep               Event = "START_STEP"
	EventStartBehavior           Event = "START_BEHAVIOR"
	EventStartAction             Event = "START_ACTION"
	EventCompleteAction          Event = "COMPLETE_ACTION"
	EventNextAction              Event = "NEXT_ACTION"
	EventCompleteBehavior        Event = "COMPLETE_BEHAVIOR"
	EventNextBehavior            Event = "NEXT_BEHAVIOR"
	EventCompleteStep            Event = "COMPLETE_STEP"
	EventNextStep                Event = "NEXT_STEP"
	EventCompleteStage           Event = "COMPLETE_STAGE"
	EventNextStage               Event = "NEXT_STAGE"
	EventCompleteWorkflow        Event = "COMPLETE_WORKFLOW"
	EventUpdateWorkflow          Event = "UPDATE_WORKFLOW"
	EventUpdateWorkflowConfirmed Event = "UPDATE_WORKFLOW_CONFIRMED"
	EventUpdateWorkflowRejected  Event = "UPDATE_WORKFLOW_REJECTED"
	EventUpdateStep              Event = "UPDATE_STEP"
	EventUpdateStepConfirmed     Event = "UPDATE_STEP_CONFIRMED"
	EventUpdateStepRejected      Event = "UPDATE_STEP_REJECTED"
	EventFail                    Event = "FAIL"
	EventCancel                  Event = "CANCEL"
	EventReset                   Event = "RESET"
)
