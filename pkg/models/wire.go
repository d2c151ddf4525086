package models

// This file defines the wire DTOs exchanged with the Planner and Generator
// (spec §6.1) plus the persisted-state blob (spec §6.3).

// LocationCurrent identifies the FSM's current position in the hierarchy.
type LocationCurrent struct {
	StageID           string `json:"stage_id,omitempty"`
	StepID            string `json:"step_id,omitempty"`
	BehaviorID        string `json:"behavior_id,omitempty"`
	BehaviorIteration int    `json:"behavior_iteration"`
}

// ProgressNode is one row of the location.progress payload: completed/
// current/remaining navigation state plus the level's focus text and
// outputs triple.
type ProgressNode struct {
	Completed      []string      `json:"completed"`
	Current        string        `json:"current,omitempty"`
	Remaining      []string      `json:"remaining"`
	Iteration      int           `json:"iteration,omitempty"`
	Focus          string        `json:"focus,omitempty"`
	CurrentOutputs OutputsTriple `json:"current_outputs"`
}

// LocationProgress is the three-level progress summary.
type LocationProgress struct {
	Stages    ProgressNode `json:"stages"`
	Steps     ProgressNode `json:"steps"`
	Behaviors ProgressNode `json:"behaviors"`
}

// Goals carries the goal text at each active hierarchy level.
type Goals struct {
	Stage    string `json:"stage,omitempty"`
	Step     string `json:"step,omitempty"`
	Behavior string `json:"behavior,omitempty"`
}

// Location is observation.location.
type Location struct {
	Current  LocationCurrent  `json:"current"`
	Progress LocationProgress `json:"progress"`
	Goals    Goals            `json:"goals"`
}

// CellPayload is a wire-serialized cell, carrying isUpdate only when the
// caller requested dirty-flag annotation.
type CellPayload struct {
	ID       string   `json:"id"`
	Type     CellKind `json:"type"`
	Content  string   `json:"content"`
	Outputs  []Output `json:"outputs,omitempty"`
	IsUpdate *bool    `json:"isUpdate,omitempty"`
}

// NotebookPayload is observation.context.notebook.
type NotebookPayload struct {
	Title        string        `json:"title"`
	Cells        []CellPayload `json:"cells"`
	CellCount    int           `json:"cell_count"`
	LastCellType string        `json:"last_cell_type,omitempty"`
	LastOutput   string        `json:"last_output,omitempty"`
}

// FSMPayload is observation.context.FSM.
type FSMPayload struct {
	State          string `json:"state"`
	LastTransition string `json:"last_transition,omitempty"`
}

// ContextPayload is observation.context.
type ContextPayload struct {
	Variables map[string]any  `json:"variables"`
	Effects   Effects         `json:"effects"`
	Notebook  NotebookPayload `json:"notebook"`
	FSM       FSMPayload      `json:"FSM"`
}

// Observation is the full observation object sent to both Planner and
// Generator.
type Observation struct {
	Location Location       `json:"location"`
	Context  ContextPayload `json:"context"`
}

// BehaviorFeedback is appended to Planner calls made on BEHAVIOR_COMPLETED.
type BehaviorFeedback struct {
	BehaviorID       string `json:"behavior_id"`
	ActionsExecuted  int    `json:"actions_executed"`
	ActionsSucceeded int    `json:"actions_succeeded"`
	SectionsAdded    int    `json:"sections_added"`
	LastActionResult string `json:"last_action_result"`
}

// RequestOptions is the request-scoped `options` object.
type RequestOptions struct {
	Stream bool `json:"stream"`
}

// APIRequest is the identical request shape sent to both /planning and
// /generating.
type APIRequest struct {
	Observation      Observation       `json:"observation"`
	BehaviorFeedback *BehaviorFeedback `json:"behavior_feedback,omitempty"`
	Options          RequestOptions    `json:"options"`
}

// TransitionDirective is the Planner's verdict on whether to keep iterating
// within the current behavior loop.
type TransitionDirective struct {
	ContinueBehaviors bool `json:"continue_behaviors"`
	TargetAchieved    bool `json:"target_achieved"`
}

// ProgressUpdate targets a single level's focus text.
type ProgressUpdate struct {
	Level ProgressLevel `json:"level"`
	Focus string        `json:"focus"`
}

// OutputsUpdate targets a single level's outputs triple (replace
// semantics).
type OutputsUpdate struct {
	Level   ProgressLevel `json:"level"`
	Outputs OutputsTriple `json:"outputs"`
}

// EffectsUpdate replaces effects.current and/or effects.history atomically.
type EffectsUpdate struct {
	Current *[]string `json:"current,omitempty"`
	History *[]string `json:"history,omitempty"`
}

// WorkflowUpdate replaces the whole template, optionally repositioning the
// FSM to a specific stage.
type WorkflowUpdate struct {
	Stages       []Stage `json:"stages"`
	NextStageID  string  `json:"nextStageId,omitempty"`
}

// StageStepsUpdate replaces one stage's step sequence in place.
type StageStepsUpdate struct {
	StageID string `json:"stage_id"`
	Steps   []Step `json:"steps"`
}

// ContextUpdate is the server -> client delta applied atomically after every
// Planner response (spec §4.9).
type ContextUpdate struct {
	Variables        map[string]any    `json:"variables,omitempty"`
	ProgressUpdate   *ProgressUpdate   `json:"progress_update,omitempty"`
	OutputsUpdate    *OutputsUpdate    `json:"outputs_update,omitempty"`
	EffectsUpdate    *EffectsUpdate    `json:"effects_update,omitempty"`
	WorkflowUpdate   *WorkflowUpdate   `json:"workflow_update,omitempty"`
	StageStepsUpdate *StageStepsUpdate `json:"stage_steps_update,omitempty"`
}

// ContextFilter is the Planner's advisory trimming hint for the next
// Generator payload: a map of dotted context-section names to an expr-lang
// boolean predicate deciding whether that section survives trimming.
type ContextFilter map[string]string

// PlannerResponse is the /planning response body.
type PlannerResponse struct {
	TargetAchieved bool                  `json:"targetAchieved"`
	Transition     *TransitionDirective  `json:"transition,omitempty"`
	ContextUpdate  *ContextUpdate        `json:"context_update,omitempty"`
	ContextFilter  ContextFilter         `json:"context_filter,omitempty"`
}

// GeneratorLine is a single NDJSON line of a streaming /generating response.
type GeneratorLine struct {
	Action Action `json:"action"`
}

// GeneratorBatch is the non-streaming /generating response fallback.
type GeneratorBatch struct {
	Actions []Action `json:"actions"`
}

// PersistedState is the single JSON blob that round-trips the engine
// (spec §6.3).
type PersistedState struct {
	Observation Observation        `json:"observation"`
	State       PersistedStateBody `json:"state"`
}

// PersistedStateBody is the `state` key of PersistedState.
type PersistedStateBody struct {
	Variables map[string]any  `json:"variables"`
	Effects   Effects         `json:"effects"`
	Notebook  NotebookPayload `json:"notebook"`
	FSM       FSMPayload      `json:"FSM"`
}
