package fsm

// transitions is the full table of spec §4.8: (from, event) -> to.
// Entries under "any" are expanded into every non-terminal state below;
// an undefined (state, event) pair is left to Transition's default
// handling (log + ignore, P1).
var transitions = buildTransitionTable()

func buildTransitionTable() map[State]map[Event]State {
	t := map[State]map[Event]State{
		StateIdle:                  {EventStartWorkflow: StateStageRunning},
		StateStageRunning:          {EventStartStep: StateStepRunning, EventCompleteStage: StateStageCompleted},
		StateStepRunning: {
			EventStartBehavior: StateBehaviorRunning,
			EventCompleteStep:  StateStepCompleted,
		},
		StateBehaviorRunning: {
			EventStartAction:      StateActionRunning,
			EventCompleteBehavior: StateBehaviorCompleted,
		},
		StateActionRunning: {
			EventCompleteAction: StateActionCompleted,
			EventUpdateWorkflow: StateWorkflowUpdatePending,
			EventUpdateStep:     StateStepUpdatePending,
		},
		StateActionCompleted: {
			EventNextAction:       StateActionRunning,
			EventCompleteBehavior: StateBehaviorCompleted,
		},
		StateBehaviorCompleted: {
			EventNextBehavior: StateBehaviorRunning,
			EventCompleteStep: StateStepCompleted,
		},
		StateStepCompleted: {
			EventNextStep:      StateStepRunning,
			EventCompleteStage: StateStageCompleted,
		},
		StateStageCompleted: {
			EventNextStage:        StateStageRunning,
			EventCompleteWorkflow: StateWorkflowCompleted,
		},
		StateWorkflowUpdatePending: {
			EventUpdateWorkflowConfirmed: StateActionCompleted,
			EventUpdateWorkflowRejected:  StateActionCompleted,
		},
		// STEP_UPDATE_PENDING mirrors WORKFLOW_UPDATE_PENDING's shape per
		// spec §4.8 ("full table mirrors the pattern"); no current action
		// handler drives UPDATE_STEP (update_stage_steps applies in place,
		// spec §4.4), so this is reachable only via a direct external
		// Transition call.
		StateStepUpdatePending: {
			EventUpdateStepConfirmed: StateActionCompleted,
			EventUpdateStepRejected:  StateActionCompleted,
		},
	}

	// "any -> FAIL -> ERROR" and "any -> CANCEL -> CANCELLED" apply to
	// every non-terminal state, including states that otherwise have no
	// other outbound transitions.
	for _, s := range allStates() {
		if isTerminal(s) {
			continue
		}
		if t[s] == nil {
			t[s] = map[Event]State{}
		}
		t[s][EventFail] = StateError
		t[s][EventCancel] = StateCancelled
	}

	// "ERROR/CANCELLED/WORKFLOW_COMPLETED -> RESET -> IDLE"
	for _, s := range []State{StateError, StateCancelled, StateWorkflowCompleted} {
		if t[s] == nil {
			t[s] = map[Event]State{}
		}
		t[s][EventReset] = StateIdle
	}

	return t
}

func allStates() []State {
	return []State{
		StateIdle, StateStageRunning, StateStageCompleted, StateStepRunning,
		StateStepCompleted, StateBehaviorRunning, StateBehaviorCompleted,
		StateActionRunning, StateActionCompleted, StateWorkflowCompleted,
		StateWorkflowUpdatePending, StateStepUpdatePending, StateError,
		StateCancelled,
	}
}

func isTerminal(s State) bool {
	return s == StateError || s == StateCancelled || s == StateWorkflowCompleted
}

// nextState looks up (from, event) and reports whether it is defined.
func nextState(from State, event Event) (State, bool) {
	byEvent, ok := transitions[from]
	if !ok {
		return "", false
	}
	to, ok := byEvent[event]
	return to, ok
}
