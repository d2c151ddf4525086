package models

// ProgressFocus carries the Planner-authored long-form analysis text per
// hierarchy level. Opaque to the engine: stored verbatim, echoed back in the
// next observation.
type ProgressFocus struct {
	Stages    string `json:"stages,omitempty"`
	Steps     string `json:"steps,omitempty"`
	Behaviors string `json:"behaviors,omitempty"`
}

// OutputsTriple is the per-level {expected, produced, in_progress} set of
// variable names the engine maintains verbatim from Planner directives.
type OutputsTriple struct {
	Expected   []string `json:"expected,omitempty"`
	Produced   []string `json:"produced,omitempty"`
	InProgress []string `json:"in_progress,omitempty"`
}

// ProgressOutputs groups the outputs triple per hierarchy level.
type ProgressOutputs struct {
	Stages    OutputsTriple `json:"stages"`
	Steps     OutputsTriple `json:"steps"`
	Behaviors OutputsTriple `json:"behaviors"`
}

// ProgressLevel identifies which outputs-tracking/focus level a context
// update targets.
type ProgressLevel string

const (
	ProgressLevelStages    ProgressLevel = "stages"
	ProgressLevelSteps     ProgressLevel = "steps"
	ProgressLevelBehaviors ProgressLevel = "behaviors"
)

// Effects holds the Context Store's effect log: a current list (produced
// since the last Planner turn) and a history list (compacted older
// entries).
type Effects struct {
	Current []string `json:"current"`
	History []string `json:"history"`
}
