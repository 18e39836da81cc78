package engine

import (
	"errors"
	"fmt"

	"github.com/picklr-io/serp2snow/internal/ir"
)

// ErrIntegrity marks a persisted state the engine cannot drive. It is fatal.
var ErrIntegrity = errors.New("setup progress integrity error")

// ValidationError is a required input the operator left empty or malformed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ProviderError is the raw failure of one external call.
type ProviderError struct {
	Stage ir.Stage
	Op    string
	Err   error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s failed at %s: %v", e.Op, e.Stage, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// SetupFailedError halts a run. Persisted progress is left at the last
// completed stage so the run can be resumed.
type SetupFailedError struct {
	Stage   ir.Stage
	Message string
	Err     error
}

func (e *SetupFailedError) Error() string {
	return fmt.Sprintf("setup failed at %s: %s", e.Stage, e.Message)
}

func (e *SetupFailedError) Unwrap() error { return e.Err }

func integrityErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIntegrity, fmt.Sprintf(format, args...))
}

func providerErr(stage ir.Stage, op string, err error) error {
	return &ProviderError{Stage: stage, Op: op, Err: err}
}
