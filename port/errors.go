//
// connectoragents is licensed under the Apache License Version 2.0.
//
//

package port

import (
	"errors"
	"fmt"
)

// Wiring errors: raised synchronously at Connect time, never reach
// the scheduler.
var (
	ErrNotOutputPort = errors.New("port: not an output port")
	ErrNotInputPort  = errors.New("port: not an input port")
)

// SchemaError reports that a message failed schema validation on
// Receive. The offending message is discarded, never enqueued.
type SchemaError struct {
	Port  string
	Cause error
}

// Error implements error.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("port %q: schema validation failed: %v", e.Port, e.Cause)
}

// Unwrap exposes the underlying validation error.
func (e *SchemaError) Unwrap() error {
	return e.Cause
}
