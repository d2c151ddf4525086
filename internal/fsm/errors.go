package fsm

import (
	"errors"
	"fmt"
)

// Sentinel errors for the five error kinds of spec §7. Engine errors wrap
// one of these via Unwrap so callers can classify with errors.Is, mirroring
// the mbflow SDK's APIError/sentinel pattern.
var (
	ErrTransport         = errors.New("fsm: transport error")
	ErrContract          = errors.New("fsm: contract error")
	ErrUnknownActionType = errors.New("fsm: unknown action type")
	ErrInvalidTransition = errors.New("fsm: invalid transition")
	ErrHandlerException  = errors.New("fsm: handler exception")
)

// EngineError is the structured error the engine raises when an effect
// handler fails. Kind classifies the failure per spec §7; State/Event
// record where it happened.
type EngineError struct {
	Kind  error
	State State
	Event Event
	Err   error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("fsm: %v in state=%s event=%s: %v", e.Kind, e.State, e.Event, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Kind
}

func newTransportError(state State, event Event, err error) *EngineError {
	return &EngineError{Kind: ErrTransport, State: state, Event: event, Err: err}
}

func newContractError(state State, event Event, err error) *EngineError {
	return &EngineError{Kind: ErrContract, State: state, Event: event, Err: err}
}

func newUnknownActionError(state State, event Event, err error) *EngineError {
	return &EngineError{Kind: ErrUnknownActionType, State: state, Event: event, Err: err}
}

func newInvalidTransitionError(state State, event Event) *EngineError {
	return &EngineError{Kind: ErrInvalidTransition, State: state, Event: event, Err: fmt.Errorf("no transition defined")}
}

func newHandlerError(state State, event Event, err error) *EngineError {
	return &EngineError{Kind: ErrHandlerException, State: state, Event: event, Err: err}
}
