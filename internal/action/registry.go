// Package action implements the Script Store and its pluggable Action
// Registry (spec §4.4): dispatch of typed Generator-emitted actions to
// handlers that mutate the Cell, Context, and Pipeline stores.
package action

import (
	"context"
	"fmt"
	"sync"

	"github.com/smilemakc/noteflow/internal/logger"
	"github.com/smilemakc/noteflow/pkg/models"
)

// Result is a handler's outcome. WorkflowUpdatePending signals the
// update_workflow escalation sentinel of spec §4.4: the FSM, not the
// registry, decides whether and when to apply Template.
type Result struct {
	WorkflowUpdatePending bool
	Template              *models.WorkflowTemplate
}

// Handler dispatches one action against the Script Store facade.
type Handler func(ctx context.Context, ss *ScriptStore, act models.Action) (Result, error)

// Hook observes a dispatch without being able to rewrite the action.
type Hook func(ctx context.Context, act models.Action)

// Registry maps an action-type string to a handler, with ordered pre/post
// hooks run around every dispatch. Duplicate registration replaces the
// prior entry.
type Registry struct {
	mu             sync.RWMutex
	handlers       map[models.ActionType]Handler
	preHooks       []Hook
	postHooks      []Hook
	dispatchCounts map[models.ActionType]int
	logger         *logger.Logger
}

// NewRegistry returns an empty registry. Callers typically follow with
// RegisterDefaults.
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		handlers:       make(map[models.ActionType]Handler),
		dispatchCounts: make(map[models.ActionType]int),
		logger:         log,
	}
}

// Register installs (or replaces) the handler for an action type.
func (r *Registry) Register(t models.ActionType, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = h
}

// AddPreHook appends a hook run before every dispatch, in registration order.
func (r *Registry) AddPreHook(fn Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preHooks = append(r.preHooks, fn)
}

// AddPostHook appends a hook run after every dispatch, in registration order.
func (r *Registry) AddPostHook(fn Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.postHooks = append(r.postHooks, fn)
}

// DispatchCount returns how many times the given action type has been
// dispatched (observability counter, spec_full supplement to §4.4).
func (r *Registry) DispatchCount(t models.ActionType) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dispatchCounts[t]
}

// Dispatch runs pre-hooks, looks up and invokes the handler, then runs
// post-hooks. An unknown action type is logged and skipped (not fatal,
// spec §4.4/§7.3). A handler exception is the caller's (FSM's) concern:
// Dispatch propagates it unwrapped so the ACTION_RUNNING effect can convert
// it into an error output per spec §7.5.
func (r *Registry) Dispatch(ctx context.Context, ss *ScriptStore, act models.Action) (Result, error) {
	r.runHooksLocked(ctx, act, true)
	defer r.runHooksLocked(ctx, act, false)

	r.mu.Lock()
	handler, ok := r.handlers[act.Type]
	r.dispatchCounts[act.Type]++
	r.mu.Unlock()

	if !ok {
		if r.logger != nil {
			r.logger.Warn("unknown action type, skipping", "type", string(act.Type))
		}
		return Result{}, nil
	}

	if err := act.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid action %q: %w: %w", act.Type, ErrInvalidAction, err)
	}

	return handler(ctx, ss, act)
}

func (r *Registry) runHooksLocked(ctx context.Context, act models.Action, pre bool) {
	r.mu.RLock()
	hooks := r.preHooks
	if !pre {
		hooks = r.postHooks
	}
	hooksCopy := make([]Hook, len(hooks))
	copy(hooksCopy, hooks)
	r.mu.RUnlock()

	for _, h := range hooksCopy {
		r.runHookSafely(ctx, h, act)
	}
}

func (r *Registry) runHookSafely(ctx context.Context, h Hook, act models.Action) {
	defer func() {
		if rec := recover(); rec != nil {
			if r.logger != nil {
				r.logger.Error("action hook panicked", "panic", rec, "type", string(act.Type))
			}
		}
	}()
	h(ctx, act)
}
