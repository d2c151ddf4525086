package fsm

import (
	"encoding/json"

	"github.com/smilemakc/noteflow/internal/observation"
	"github.com/smilemakc/noteflow/pkg/models"
)

// CheckpointState builds the §6.3 persisted-state blob from the engine's
// current stores and FSM position. Read-only: unlike buildObservation
// (used for the Planner/Generator calls), this never clears the Cell
// Store's dirty set.
func (e *Engine) CheckpointState() (models.PersistedState, error) {
	obs, err := observation.Snapshot(e.snapshot(), e.Cells, e.Context)
	if err != nil {
		return models.PersistedState{}, err
	}

	return models.PersistedState{
		Observation: obs,
		State: models.PersistedStateBody{
			Variables: e.Context.Variables(),
			Effects:   e.Context.Effects(),
			Notebook:  obs.Context.Notebook,
			FSM: models.FSMPayload{
				State:          string(e.state),
				LastTransition: string(e.ec.lastEvent),
			},
		},
	}, nil
}

// CheckpointJSON marshals CheckpointState, satisfying the narrow
// scheduler.Snapshotter interface so internal/scheduler never imports
// internal/fsm directly.
func (e *Engine) CheckpointJSON() ([]byte, error) {
	state, err := e.CheckpointState()
	if err != nil {
		return nil, err
	}
	return json.Marshal(state)
}

// Restore rehydrates the engine's variables, effects, and FSM state from a
// previously saved persisted-state blob (spec §6.3: "rehydrate ... to
// resume offline"). It does not restore notebook cells or the pipeline
// template — those are expected to already match (a resumed process reopens
// the same notebook); only the engine-local bookkeeping that §6.3's
// `state` key owns is applied.
func (e *Engine) Restore(blob []byte) error {
	var state models.PersistedState
	if err := json.Unmarshal(blob, &state); err != nil {
		return err
	}

	e.Context.SetVariables(state.State.Variables)
	current := state.State.Effects.Current
	history := state.State.Effects.History
	e.Context.ReplaceEffects(&current, &history)
	e.state = State(state.State.FSM.State)
	e.ec.lastEvent = Event(state.State.FSM.LastTransition)
	return nil
}
