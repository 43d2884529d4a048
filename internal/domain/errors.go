package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDuration     = errors.New("invalid duration")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("not found")
	ErrGuildMismatch       = errors.New("channel belongs to another guild")
	ErrTransientResolution = errors.New("entity did not resolve")
	ErrChannelDeleted      = errors.New("channel deleted")
)

// ActuationError: la plataforma rechazó o no pudo aplicar una acción.
type ActuationError struct {
	Kind ActionKind
	Err  error
}

func (e *ActuationError) Error() string {
	return fmt.Sprintf("actuation %s: %v", e.Kind, e.Err)
}

func (e *ActuationError) Unwrap() error { return e.Err }
