package apiclient

import "errors"

// ErrContractInvalid marks a response that failed go-playground/validator
// struct validation or could not be decoded as JSON at all: a protocol
// mismatch, not a connectivity failure. Callers use errors.Is to tell this
// apart from a transport failure and classify accordingly (spec §7 error
// kind 2 vs 1).
var ErrContractInvalid = errors.New("apiclient: contract validation failed")
