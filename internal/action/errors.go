package action

import "errors"

// ErrInvalidAction is the sentinel Dispatch wraps a pre-handler action.Validate
// failure in, distinguishing it from a handler's own runtime error: the
// FSM's ACTION_RUNNING effect treats the two differently (contract error vs
// handler exception, spec §7 kinds 2 and 5).
var ErrInvalidAction = errors.New("action: invalid action descriptor")
