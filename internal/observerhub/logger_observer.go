package observerhub

import (
	"context"

	"github.com/smilemakc/noteflow/internal/logger"
)

// LoggerObserver writes every FSM event through the engine's structured
// logger, at Warn level for action failures and invalid events and at Info
// level for every other event type.
type LoggerObserver struct {
	name   string
	filter EventFilter
	logger *logger.Logger
}

// NewLoggerObserver returns an Observer that logs every event it receives.
func NewLoggerObserver(log *logger.Logger, filter EventFilter) *LoggerObserver {
	return &LoggerObserver{name: "logger", filter: filter, logger: log}
}

func (o *LoggerObserver) Name() string       { return o.name }
func (o *LoggerObserver) Filter() EventFilter { return o.filter }

// OnEvent logs the event; never returns an error (logging is best-effort).
func (o *LoggerObserver) OnEvent(ctx context.Context, event Event) error {
	args := []any{
		"run_id", event.RunID,
		"type", string(event.Type),
		"from", event.FromState,
		"to", event.ToState,
		"trigger", event.Trigger,
		"status", event.Status,
	}
	switch event.Type {
	case EventTypeActionFailed, EventTypeInvalidEvent:
		if event.Error != nil {
			args = append(args, "error", event.Error)
		}
		o.logger.WarnContext(ctx, "fsm event", args...)
	default:
		o.logger.InfoContext(ctx, "fsm event", args...)
	}
	return nil
}
