package observation

import "errors"

// ErrProgressInfoMissing is raised when RequireProgressInfo is set and
// location.progress.<level>.current is empty for a level the build was
// asked to populate: spec §4.7's contract-error gate. The fsm package
// classifies any Build failure, this one included, as a Contract error
// (spec §7 kind 2).
var ErrProgressInfoMissing = errors.New("observation: required progress info missing")
