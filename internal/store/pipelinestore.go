package store

import (
	"sync"

	"github.com/smilemakc/noteflow/pkg/models"
)

// InitDescriptor seeds a fresh Pipeline Store. Template may be nil, in
// which case the store holds an empty template until a workflow_update
// populates it.
type InitDescriptor struct {
	ProblemName        string
	UserGoal           string
	ProblemDescription string
	ContextDescription string
	Template           *models.WorkflowTemplate
}

// PipelineStore holds the Workflow Template and exposes pure navigation
// look-ups (spec §4.3).
type PipelineStore struct {
	mu       sync.RWMutex
	desc     InitDescriptor
	template models.WorkflowTemplate
}

// NewPipelineStore initializes a Pipeline Store from a descriptor. If
// desc.Template is nil, the store starts with an empty template.
func NewPipelineStore(desc InitDescriptor) *PipelineStore {
	s := &PipelineStore{desc: desc}
	if desc.Template != nil {
		s.template = *desc.Template
	}
	return s
}

// Descriptor returns the initialization descriptor.
func (s *PipelineStore) Descriptor() InitDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.desc
}

// Template returns a copy of the current template.
func (s *PipelineStore) Template() models.WorkflowTemplate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.template
}

// SetTemplate atomically replaces the template. The FSM's current stage/
// step IDs remain valid only if they resolve in the new template; callers
// must apply fallback navigation themselves (spec §4.9).
func (s *PipelineStore) SetTemplate(tpl models.WorkflowTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.template = tpl
}

// ReplaceStageSteps replaces one stage's step sequence in place.
func (s *PipelineStore) ReplaceStageSteps(stageID string, steps []models.Step) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	stage := s.template.StageByID(stageID)
	if stage == nil {
		return false
	}
	stage.Steps = steps
	return true
}

// FirstStage returns the template's first stage, or nil.
func (s *PipelineStore) FirstStage() *models.Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stage := s.template.FirstStage()
	if stage == nil {
		return nil
	}
	cp := *stage
	return &cp
}

// FirstStep returns the given stage's first step, or nil.
func (s *PipelineStore) FirstStep(stageID string) *models.Step {
	s.mu.RLock()
	defer s.mu.RUnlock()
	step := s.template.FirstStep(stageID)
	if step == nil {
		return nil
	}
	cp := *step
	return &cp
}

// NextStage returns the stage following stageID, or nil.
func (s *PipelineStore) NextStage(stageID string) *models.Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stage := s.template.NextStage(stageID)
	if stage == nil {
		return nil
	}
	cp := *stage
	return &cp
}

// NextStep returns the step following stepID within stageID, or nil.
func (s *PipelineStore) NextStep(stageID, stepID string) *models.Step {
	s.mu.RLock()
	defer s.mu.RUnlock()
	step := s.template.NextStep(stageID, stepID)
	if step == nil {
		return nil
	}
	cp := *step
	return &cp
}

// IsLastStepInStage reports whether stepID is the last step of stageID.
func (s *PipelineStore) IsLastStepInStage(stageID, stepID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.template.IsLastStepInStage(stageID, stepID)
}

// IsLastStage reports whether stageID is the template's last stage.
func (s *PipelineStore) IsLastStage(stageID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.template.IsLastStage(stageID)
}

// StageByID returns a copy of the stage with the given ID, or nil.
func (s *PipelineStore) StageByID(stageID string) *models.Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stage := s.template.StageByID(stageID)
	if stage == nil {
		return nil
	}
	cp := *stage
	return &cp
}
