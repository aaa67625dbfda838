package command

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownCommand      = errors.New("command: unknown command")
	ErrUnknownResponse     = errors.New("command: unknown response")
	ErrTransport           = errors.New("command: transport failure")
	ErrCorrelationMismatch = errors.New("command: correlation id mismatch")
)

// TransportError wraps an I/O failure of the underlying transport.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("command: transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
