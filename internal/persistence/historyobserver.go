package persistence

import (
	"context"

	"github.com/smilemakc/noteflow/internal/logger"
	"github.com/smilemakc/noteflow/internal/observerhub"
)

// HistoryObserver bridges the observer hub to the Postgres transition log:
// every fsm.transition event becomes one appended row. Never on the FSM's
// critical path (spec §4.9 supplement): a write failure is logged and
// swallowed, mirroring the teacher's safeNotify pattern in
// internal/application/engine/dag_executor.go.
type HistoryObserver struct {
	store  *HistoryStore
	logger *logger.Logger
	filter observerhub.EventFilter
}

// NewHistoryObserver returns an Observer that appends every transition
// event to store.
func NewHistoryObserver(store *HistoryStore, log *logger.Logger) *HistoryObserver {
	return &HistoryObserver{
		store:  store,
		logger: log,
		filter: observerhub.NewEventTypeFilter(observerhub.EventTypeTransition),
	}
}

func (o *HistoryObserver) Name() string                   { return "history" }
func (o *HistoryObserver) Filter() observerhub.EventFilter { return o.filter }

// OnEvent appends the transition as a row; errors are logged, never
// returned, so a database outage never fails the run.
func (o *HistoryObserver) OnEvent(ctx context.Context, event observerhub.Event) error {
	rec := TransitionRecord{
		RunID:     event.RunID,
		FromState: event.FromState,
		Event:     event.Trigger,
		ToState:   event.ToState,
		At:        event.Timestamp,
	}
	if err := o.store.Append(ctx, rec); err != nil {
		if o.logger != nil {
			o.logger.WarnContext(ctx, "failed to append transition history", "run_id", event.RunID, "error", err)
		}
	}
	return nil
}
