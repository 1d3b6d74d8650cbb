package de

import (
	"errors"
	"fmt"

	"github.com/sarchlab/desim/sim/timing"
)

var (
	// ErrCausalityViolation is matched by every *CausalityError.
	ErrCausalityViolation = errors.New("causality violation")

	// ErrEmptyQueue is returned when popping from an empty queue.
	ErrEmptyQueue = errors.New("event queue is empty")

	// ErrNotInitialized is returned when iterating a director that has not
	// been initialized.
	ErrNotInitialized = errors.New("director not initialized")
)

// A CausalityError reports a request to schedule an event at a tag that the
// director has already passed.
type CausalityError struct {
	Actor     string
	Requested timing.Tag
	Current   timing.Tag
}

func (e *CausalityError) Error() string {
	return fmt.Sprintf(
		"causality violation: %s scheduled at %s, but the current tag is %s",
		e.Actor, e.Requested, e.Current)
}

// Unwrap lets errors.Is match ErrCausalityViolation.
func (e *CausalityError) Unwrap() error {
	return ErrCausalityViolation
}

// Phase names the part of the actor contract that was running.
type Phase string

// The phases of an actor.
const (
	PhaseInitialize Phase = "initialize"
	PhaseFire       Phase = "fire"
	PhasePostfire   Phase = "postfire"
	PhaseWrapup     Phase = "wrapup"
)

// An ActorError wraps a failure raised by an actor with the actor's name and
// the tag at which it happened.
type ActorError struct {
	Actor string
	Tag   timing.Tag
	Phase Phase
	Err   error
}

func (e *ActorError) Error() string {
	return fmt.Sprintf("actor %s failed in %s at %s: %v",
		e.Actor, e.Phase, e.Tag, e.Err)
}

func (e *ActorError) Unwrap() error {
	return e.Err
}
