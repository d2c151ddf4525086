package store

import (
	"sync"

	"github.com/smilemakc/noteflow/pkg/models"
)

// ContextStore holds variables, the effect log, the todo list, custom
// context, progress focus, and per-level outputs tracking (spec §4.2).
type ContextStore struct {
	mu              sync.RWMutex
	variables       map[string]any
	effects         models.Effects
	todoList        []string
	customContext   map[string]any
	progressFocus   models.ProgressFocus
	progressOutputs models.ProgressOutputs
}

// NewContextStore returns an empty Context Store.
func NewContextStore() *ContextStore {
	return &ContextStore{
		variables:     make(map[string]any),
		effects:       models.Effects{Current: []string{}, History: []string{}},
		customContext: make(map[string]any),
	}
}

// SetVariable sets a single variable.
func (s *ContextStore) SetVariable(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variables[name] = value
}

// SetVariables merges the given variables in, overwriting existing keys.
func (s *ContextStore) SetVariables(vars map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range vars {
		s.variables[k] = v
	}
}

// GetVariable returns a variable's value and whether it was present.
func (s *ContextStore) GetVariable(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.variables[name]
	return v, ok
}

// RemoveVariable deletes a variable.
func (s *ContextStore) RemoveVariable(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.variables, name)
}

// Variables returns a shallow copy of all variables.
func (s *ContextStore) Variables() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.variables))
	for k, v := range s.variables {
		out[k] = v
	}
	return out
}

// AppendEffect appends a stringified effect entry to the current list.
func (s *ContextStore) AppendEffect(entry string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effects.Current = append(s.effects.Current, entry)
}

// CompactEffects moves the current effect list into history, leaving
// current empty. Turn boundary: called when the engine sends a Planner or
// Generator request, per Planner directives.
func (s *ContextStore) CompactEffects() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effects.History = append(s.effects.History, s.effects.Current...)
	s.effects.Current = []string{}
}

// ReplaceEffects atomically replaces the current and/or history lists.
func (s *ContextStore) ReplaceEffects(current, history *[]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current != nil {
		s.effects.Current = *current
	}
	if history != nil {
		s.effects.History = *history
	}
}

// Effects returns a copy of the effect log.
func (s *ContextStore) Effects() models.Effects {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Effects{
		Current: append([]string(nil), s.effects.Current...),
		History: append([]string(nil), s.effects.History...),
	}
}

// SetTodoList replaces the todo list.
func (s *ContextStore) SetTodoList(items []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.todoList = items
}

// TodoList returns the current todo list.
func (s *ContextStore) TodoList() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.todoList...)
}

// SetCustomContext replaces a key in the free-form custom context map.
func (s *ContextStore) SetCustomContext(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customContext[key] = value
}

// UpdateFocus sets the progress focus text at the given level.
func (s *ContextStore) UpdateFocus(level models.ProgressLevel, focus string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch level {
	case models.ProgressLevelStages:
		s.progressFocus.Stages = focus
	case models.ProgressLevelSteps:
		s.progressFocus.Steps = focus
	case models.ProgressLevelBehaviors:
		s.progressFocus.Behaviors = focus
	}
}

// ProgressFocus returns a copy of the progress focus.
func (s *ContextStore) ProgressFocus() models.ProgressFocus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progressFocus
}

// UpdateOutputs replaces the outputs triple at the given level.
func (s *ContextStore) UpdateOutputs(level models.ProgressLevel, triple models.OutputsTriple) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch level {
	case models.ProgressLevelStages:
		s.progressOutputs.Stages = triple
	case models.ProgressLevelSteps:
		s.progressOutputs.Steps = triple
	case models.ProgressLevelBehaviors:
		s.progressOutputs.Behaviors = triple
	}
}

// OutputsAt returns the outputs triple at the given level.
func (s *ContextStore) OutputsAt(level models.ProgressLevel) models.OutputsTriple {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch level {
	case models.ProgressLevelStages:
		return s.progressOutputs.Stages
	case models.ProgressLevelSteps:
		return s.progressOutputs.Steps
	case models.ProgressLevelBehaviors:
		return s.progressOutputs.Behaviors
	}
	return models.OutputsTriple{}
}
