package observerhub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventTypeFilter_ShouldNotify(t *testing.T) {
	tests := []struct {
		name         string
		allowedTypes []EventType
		event        Event
		shouldNotify bool
	}{
		{
			name:         "nil filter allows all events",
			allowedTypes: nil,
			event:        Event{Type: EventTypeTransition},
			shouldNotify: true,
		},
		{
			name:         "empty filter allows all events",
			allowedTypes: []EventType{},
			event:        Event{Type: EventTypeActionDispatched},
			shouldNotify: true,
		},
		{
			name:         "filter allows fsm.transition",
			allowedTypes: []EventType{EventTypeTransition},
			event:        Event{Type: EventTypeTransition},
			shouldNotify: true,
		},
		{
			name:         "filter blocks fsm.transition",
			allowedTypes: []EventType{EventTypeActionDispatched},
			event:        Event{Type: EventTypeTransition},
			shouldNotify: false,
		},
		{
			name: "filter allows multiple event types",
			allowedTypes: []EventType{
				EventTypeTransition,
				EventTypePlannerCalled,
				EventTypeGeneratorCalled,
			},
			event:        Event{Type: EventTypePlannerCalled},
			shouldNotify: true,
		},
		{
			name: "filter blocks unlisted event type",
			allowedTypes: []EventType{
				EventTypeTransition,
				EventTypePlannerCalled,
			},
			event:        Event{Type: EventTypeActionFailed},
			shouldNotify: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var filter EventFilter
			if tt.allowedTypes != nil {
				filter = NewEventTypeFilter(tt.allowedTypes...)
			}

			result := filter == nil || filter.ShouldNotify(tt.event)
			assert.Equal(t, tt.shouldNotify, result, "Filter decision mismatch")
		})
	}
}

func TestNewEventTypeFilter_NoTypes(t *testing.T) {
	filter := NewEventTypeFilter()
	assert.Nil(t, filter, "Expected nil filter when no types provided")
}

func TestNewEventTypeFilter_SingleType(t *testing.T) {
	filter := NewEventTypeFilter(EventTypeTransition)
	assert.NotNil(t, filter, "Expected non-nil filter")

	typeFilter, ok := filter.(*EventTypeFilter)
	assert.True(t, ok, "Expected EventTypeFilter type")
	assert.Len(t, typeFilter.allowedTypes, 1, "Expected 1 allowed type")
	assert.True(t, typeFilter.allowedTypes[EventTypeTransition])
}

func TestNewEventTypeFilter_MultipleTypes(t *testing.T) {
	types := []EventType{
		EventTypeTransition,
		EventTypePlannerCalled,
		EventTypeGeneratorCalled,
		EventTypeActionDispatched,
	}

	filter := NewEventTypeFilter(types...)
	assert.NotNil(t, filter, "Expected non-nil filter")

	typeFilter, ok := filter.(*EventTypeFilter)
	assert.True(t, ok, "Expected EventTypeFilter type")
	assert.Len(t, typeFilter.allowedTypes, 4, "Expected 4 allowed types")

	for _, eventType := range types {
		assert.True(t, typeFilter.allowedTypes[eventType], "Expected %s to be allowed", eventType)
	}
}

func TestEvent_AllFields(t *testing.T) {
	stageID := "s1"
	stepID := "t1"
	behaviorID := "behavior_001"
	durationMs := int64(1500)
	testErr := assert.AnError

	event := Event{
		Type:       EventTypeTransition,
		RunID:      "run-uuid-123",
		Timestamp:  time.Now(),
		FromState:  "STEP_RUNNING",
		ToState:    "BEHAVIOR_RUNNING",
		Trigger:    "START_BEHAVIOR",
		StageID:    &stageID,
		StepID:     &stepID,
		BehaviorID: &behaviorID,
		Status:     "ok",
		Error:      testErr,
		ContextUpdate: map[string]any{
			"variables": map[string]any{"k": 1},
		},
		DurationMs: &durationMs,
		Metadata:   map[string]any{"custom": "value"},
	}

	assert.Equal(t, EventTypeTransition, event.Type)
	assert.Equal(t, "run-uuid-123", event.RunID)
	assert.NotZero(t, event.Timestamp)
	assert.Equal(t, "STEP_RUNNING", event.FromState)
	assert.Equal(t, "BEHAVIOR_RUNNING", event.ToState)
	assert.Equal(t, "s1", *event.StageID)
	assert.Equal(t, "t1", *event.StepID)
	assert.Equal(t, "behavior_001", *event.BehaviorID)
	assert.Equal(t, "ok", event.Status)
	assert.Equal(t, testErr, event.Error)
	assert.NotNil(t, event.ContextUpdate)
	assert.Equal(t, int64(1500), *event.DurationMs)
	assert.NotNil(t, event.Metadata)
}

func TestEventType_Constants(t *testing.T) {
	assert.Equal(t, EventType("fsm.transition"), EventTypeTransition)
	assert.Equal(t, EventType("fsm.invalid_event"), EventTypeInvalidEvent)
	assert.Equal(t, EventType("fsm.action_dispatched"), EventTypeActionDispatched)
	assert.Equal(t, EventType("fsm.action_failed"), EventTypeActionFailed)
	assert.Equal(t, EventType("fsm.planner_called"), EventTypePlannerCalled)
	assert.Equal(t, EventType("fsm.generator_called"), EventTypeGeneratorCalled)
	assert.Equal(t, EventType("fsm.paused"), EventTypePaused)
	assert.Equal(t, EventType("fsm.resumed"), EventTypeResumed)
}

func TestEventTypeFilter_NilSafety(t *testing.T) {
	var filter *EventTypeFilter
	event := Event{Type: EventTypeTransition}

	result := filter.ShouldNotify(event)
	assert.True(t, result, "Nil filter should allow all events")
}

func TestEventTypeFilter_ThreadSafety(t *testing.T) {
	filter := NewEventTypeFilter(
		EventTypeTransition,
		EventTypePlannerCalled,
		EventTypeActionDispatched,
	)

	done := make(chan bool, 10)

	for i := 0; i < 10; i++ {
		go func(id int) {
			defer func() { done <- true }()

			for j := 0; j < 100; j++ {
				event := Event{Type: EventTypeTransition}
				filter.ShouldNotify(event)
			}
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestObserverManager_RegisterNotifyUnregister(t *testing.T) {
	mgr := NewObserverManager()
	obs := NewMockObserver("test")

	assert.NoError(t, mgr.Register(obs))
	assert.Equal(t, 1, mgr.Count())

	err := mgr.Register(obs)
	assert.Error(t, err, "duplicate registration should fail")

	assert.NoError(t, mgr.Unregister("test"))
	assert.Equal(t, 0, mgr.Count())

	assert.Error(t, mgr.Unregister("missing"))
}
