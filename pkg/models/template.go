package models

// Step is a leaf node of the workflow template: one or more behaviors
// (iterations decided by the Planner) work toward its goal.
type Step struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Goal  string `json:"goal,omitempty"`
	Focus string `json:"focus,omitempty"`
}

// Stage is an ordered sequence of steps.
type Stage struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Goal  string `json:"goal,omitempty"`
	Focus string `json:"focus,omitempty"`
	Steps []Step `json:"steps"`
}

// WorkflowTemplate is the tree the Pipeline Store holds and navigates:
// workflow -> ordered stages -> ordered steps.
type WorkflowTemplate struct {
	Stages []Stage `json:"stages"`
}

// StageByID returns a pointer to the stage with the given ID, or nil.
func (t *WorkflowTemplate) StageByID(id string) *Stage {
	for i := range t.Stages {
		if t.Stages[i].ID == id {
			return &t.Stages[i]
		}
	}
	return nil
}

// FirstStage returns the template's first stage, or nil if the template is
// empty.
func (t *WorkflowTemplate) FirstStage() *Stage {
	if len(t.Stages) == 0 {
		return nil
	}
	return &t.Stages[0]
}

// FirstStep returns the stage's first step, or nil if the stage has none.
func (t *WorkflowTemplate) FirstStep(stageID string) *Step {
	stage := t.StageByID(stageID)
	if stage == nil || len(stage.Steps) == 0 {
		return nil
	}
	return &stage.Steps[0]
}

// NextStage returns the stage following the given one, or nil if it is the
// last stage (or unresolved).
func (t *WorkflowTemplate) NextStage(stageID string) *Stage {
	for i := range t.Stages {
		if t.Stages[i].ID == stageID {
			if i+1 < len(t.Stages) {
				return &t.Stages[i+1]
			}
			return nil
		}
	}
	return nil
}

// NextStep returns the step following the given one within its stage, or
// nil if it is the last step (or unresolved).
func (t *WorkflowTemplate) NextStep(stageID, stepID string) *Step {
	stage := t.StageByID(stageID)
	if stage == nil {
		return nil
	}
	for i := range stage.Steps {
		if stage.Steps[i].ID == stepID {
			if i+1 < len(stage.Steps) {
				return &stage.Steps[i+1]
			}
			return nil
		}
	}
	return nil
}

// IsLastStepInStage reports whether stepID is the last step of stageID.
func (t *WorkflowTemplate) IsLastStepInStage(stageID, stepID string) bool {
	stage := t.StageByID(stageID)
	if stage == nil || len(stage.Steps) == 0 {
		return true
	}
	return stage.Steps[len(stage.Steps)-1].ID == stepID
}

// IsLastStage reports whether stageID is the last stage of the template.
func (t *WorkflowTemplate) IsLastStage(stageID string) bool {
	if len(t.Stages) == 0 {
		return true
	}
	return t.Stages[len(t.Stages)-1].ID == stageID
}
