// Package modeling defines what a discrete-event model is made of: actors that
// react to tokens, the ports that connect them, and the model graph that
// determines the firing priority of simultaneous actors.
package modeling

import (
	"github.com/sarchlab/desim/sim/naming"
	"github.com/sarchlab/desim/sim/timing"
)

// Token is a value carried from an output port to an input port.
type Token = any

// An Actor is a unit of computation driven by the director.
//
// For every run the director calls Initialize once, then any number of
// Fire/Postfire pairs in increasing tag order, then Wrapup once. Fire reads
// the tokens available at the current tag and may send tokens or request
// future firings. Postfire commits state; returning false tells the director
// the actor does not wish to be fired again.
type Actor interface {
	naming.Named

	Initialize(s Scheduler) error
	Fire() error
	Postfire() (bool, error)
	Wrapup() error
}

// A Scheduler accepts firing requests from actors.
type Scheduler interface {
	// Now returns the tag being processed.
	Now() timing.Tag

	// FireAt requests a firing of the actor at time t and returns the tag
	// actually granted. Requesting the current time while iterating is
	// granted the next microstep.
	FireAt(a Actor, t timing.VTime) (timing.Tag, error)

	// FireAtTag requests a firing at an exact tag.
	FireAtTag(a Actor, tag timing.Tag) (timing.Tag, error)

	// FireAfter requests a firing delay after the current time.
	FireAfter(a Actor, delay timing.VTime) (timing.Tag, error)
}

// ActorBase provides the bookkeeping shared by most actors. Actors embedding
// it must still implement Fire. An actor that overrides Initialize should call
// ActorBase.Initialize so that Scheduler keeps working.
type ActorBase struct {
	naming.NamedBase
	scheduler Scheduler
}

// NewActorBase creates a new ActorBase.
func NewActorBase(name string) *ActorBase {
	naming.NameMustBeValid(name)

	b := new(ActorBase)
	b.NamedBase = naming.MakeNamedBase(name)

	return b
}

// Scheduler returns the scheduler received during Initialize.
func (b *ActorBase) Scheduler() Scheduler {
	return b.scheduler
}

// Initialize remembers the scheduler.
func (b *ActorBase) Initialize(s Scheduler) error {
	b.scheduler = s
	return nil
}

// Postfire always asks to keep going.
func (b *ActorBase) Postfire() (bool, error) {
	return true, nil
}

// Wrapup does nothing.
func (b *ActorBase) Wrapup() error {
	return nil
}
