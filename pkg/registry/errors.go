package registry

import "errors"

// Configuration errors. They are never suppressed by callers opting out of errors.
var (
	ErrUnknownResource    = errors.New("unknown resource")
	ErrUnknownOperation   = errors.New("unknown operation")
	ErrNotCallable        = errors.New("resource has no operations")
	ErrInvalidVerb        = errors.New("unrecognized request type")
	ErrInvalidOperation   = errors.New("invalid operation")
	ErrDuplicateOperation = errors.New("duplicate operation")
	ErrUnknownModel       = errors.New("unknown model class")
	ErrMissingURL         = errors.New("missing url")
	ErrMissingName        = errors.New("missing operation name")
)
