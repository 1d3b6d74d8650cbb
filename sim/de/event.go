// Package de implements the discrete-event director: the event queue and the
// loop that decides which actor fires next, at which tag, and in which order
// simultaneous actors fire.
package de

import (
	"fmt"

	"github.com/sarchlab/desim/sim/modeling"
	"github.com/sarchlab/desim/sim/timing"
)

// An Event is a pending firing of an actor. A pure event only requests the
// firing. A token event also carries a token that is put into a receiver of
// the actor just before the firing. Apart from the sequence number stamped by
// the queue on insertion, events are not modified once created.
type Event struct {
	actor    modeling.Actor
	receiver *modeling.Receiver
	token    modeling.Token
	tag      timing.Tag
	depth    int
	seq      uint64
}

// NewPureEvent creates an event that fires the actor at the tag.
func NewPureEvent(a modeling.Actor, tag timing.Tag, depth int) *Event {
	return &Event{
		actor: a,
		tag:   tag,
		depth: depth,
	}
}

// NewTokenEvent creates an event that delivers a token to the receiver and
// fires the receiver's owner at the tag.
func NewTokenEvent(
	r *modeling.Receiver,
	tok modeling.Token,
	tag timing.Tag,
	depth int,
) *Event {
	return &Event{
		actor:    r.Port().Owner(),
		receiver: r,
		token:    tok,
		tag:      tag,
		depth:    depth,
	}
}

// Actor returns the actor to fire.
func (e *Event) Actor() modeling.Actor {
	return e.actor
}

// Receiver returns where the token is delivered, or nil for pure events.
func (e *Event) Receiver() *modeling.Receiver {
	return e.receiver
}

// Token returns the token carried by the event.
func (e *Event) Token() modeling.Token {
	return e.token
}

// Tag returns when the event happens.
func (e *Event) Tag() timing.Tag {
	return e.tag
}

// Time returns the time part of the tag.
func (e *Event) Time() timing.VTime {
	return e.tag.Time
}

// Depth returns the firing priority of the event among simultaneous events.
// Lower depths fire first.
func (e *Event) Depth() int {
	return e.depth
}

// Seq returns the insertion number the queue stamped on the event. Among
// events with the same tag and depth, lower numbers fire first. It is 0 until
// the event is inserted.
func (e *Event) Seq() uint64 {
	return e.seq
}

// IsPure tells if the event carries no token.
func (e *Event) IsPure() bool {
	return e.receiver == nil
}

func (e *Event) String() string {
	if e.IsPure() {
		return fmt.Sprintf("fire %s at %s", e.actor.Name(), e.tag)
	}

	return fmt.Sprintf("deliver %v to %s[%d] at %s",
		e.token, e.receiver.Port().FullName(), e.receiver.Channel(), e.tag)
}
