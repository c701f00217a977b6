package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when an operation is not allowed in the current state.
	ErrInvalidTransition = errors.New("invalid transition")
	ErrLevelLocked       = errors.New("level locked")
	// ErrOutOfBounds rejects a translation leaving the geom.MaxCoord cube.
	ErrOutOfBounds       = errors.New("move out of bounds")
)

func transitionErr(op string, s State) error {
	return fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, op, s)
}
