package models

import "fmt"

// ActionType enumerates the action descriptor types the Generator may emit.
type ActionType string

const (
	ActionAdd              ActionType = "add"
	ActionExec             ActionType = "exec"
	ActionIsThinking       ActionType = "is_thinking"
	ActionFinishThinking   ActionType = "finish_thinking"
	ActionNewChapter       ActionType = "new_chapter"
	ActionNewSection       ActionType = "new_section"
	ActionUpdateTitle      ActionType = "update_title"
	ActionUpdateWorkflow   ActionType = "update_workflow"
	ActionUpdateStageSteps ActionType = "update_stage_steps"
	ActionEndPhase         ActionType = "end_phase"
	ActionNextEvent        ActionType = "next_event"
)

// Action is a typed descriptor of a notebook mutation or code execution, as
// emitted by the Generator. Only the fields relevant to Type are populated;
// the rest are zero-valued.
type Action struct {
	Type ActionType `json:"action" validate:"required"`

	// add / new_chapter / new_section / update_title
	Content  string `json:"content,omitempty"`
	ShotType string `json:"shot_type,omitempty"`
	Title    string `json:"title,omitempty"`

	// exec
	CodecellID string `json:"codecell_id,omitempty"`
	NeedOutput *bool  `json:"need_output,omitempty"`

	// is_thinking
	ThinkingText string `json:"thinking_text,omitempty"`
	AgentName    string `json:"agent_name,omitempty"`

	// update_workflow
	UpdatedWorkflow *WorkflowTemplate `json:"updated_workflow,omitempty"`

	// update_stage_steps
	StageID      string `json:"stage_id,omitempty"`
	UpdatedSteps []Step `json:"updated_steps,omitempty"`

	// end_phase / next_event
	StepID    string `json:"step_id,omitempty"`
	EventType string `json:"event_type,omitempty"`
}

// Validate checks that an action carries the fields its type requires,
// beyond what struct tags alone can express (conditional-on-Type fields).
func (a Action) Validate() error {
	switch a.Type {
	case ActionExec:
		if a.CodecellID == "" {
			return fmt.Errorf("exec action missing codecell_id")
		}
	case ActionNewChapter, ActionNewSection:
		if a.Content == "" {
			return fmt.Errorf("%s action missing content", a.Type)
		}
	case ActionUpdateTitle:
		if a.Title == "" {
			return fmt.Errorf("update_title action missing title")
		}
	case ActionUpdateWorkflow:
		if a.UpdatedWorkflow == nil {
			return fmt.Errorf("update_workflow action missing updated_workflow")
		}
	case ActionUpdateStageSteps:
		if a.StageID == "" {
			return fmt.Errorf("update_stage_steps action missing stage_id")
		}
	case ActionAdd, ActionIsThinking, ActionFinishThinking, ActionEndPhase, ActionNextEvent:
		// no additional required fields
	case "":
		return fmt.Errorf("action missing type")
	}
	return nil
}
