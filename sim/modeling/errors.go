package modeling

import (
	"errors"
	"strings"
)

var (
	// ErrNoTokenAvailable is returned when reading from an empty receiver.
	ErrNoTokenAvailable = errors.New("no token available")

	// ErrPortNotBound is returned when sending through a port that is not
	// attached to a running director.
	ErrPortNotBound = errors.New("port not bound to a director")

	// ErrNoSuchChannel is returned when a channel index is out of range.
	ErrNoSuchChannel = errors.New("no such channel")

	// ErrZeroDelayLoop reports a cycle of zero-delay dependencies.
	ErrZeroDelayLoop = errors.New("zero-delay loop")
)

// A LoopError lists the actors that take part in zero-delay cycles. No
// depth order exists among them.
type LoopError struct {
	Actors []string
}

func (e *LoopError) Error() string {
	return "zero-delay loop among actors: " + strings.Join(e.Actors, ", ")
}

// Unwrap lets errors.Is match ErrZeroDelayLoop.
func (e *LoopError) Unwrap() error {
	return ErrZeroDelayLoop
}
