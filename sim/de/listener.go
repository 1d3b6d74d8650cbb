package de

import (
	"github.com/sarchlab/desim/sim/hooking"
	"github.com/sarchlab/desim/sim/modeling"
	"github.com/sarchlab/desim/sim/timing"
)

// ScheduleEventKind tells what happened to an actor's schedule.
type ScheduleEventKind int

// The kinds of schedule events.
const (
	ScheduleEventQueued ScheduleEventKind = iota
	ScheduleEventFiring
	ScheduleEventFired
	ScheduleEventRemoved
	ScheduleEventDisabled
)

func (k ScheduleEventKind) String() string {
	switch k {
	case ScheduleEventQueued:
		return "queued"
	case ScheduleEventFiring:
		return "firing"
	case ScheduleEventFired:
		return "fired"
	case ScheduleEventRemoved:
		return "removed"
	case ScheduleEventDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// A ScheduleListener observes scheduling decisions. It must not call back into
// the director's scheduling API.
type ScheduleListener interface {
	Event(actorName string, tag timing.Tag, kind ScheduleEventKind)
}

type scheduleListenerHook struct {
	director *Director
	listener ScheduleListener
}

func (h *scheduleListenerHook) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case HookPosEventQueued:
		evt := ctx.Item.(*Event)
		h.listener.Event(evt.Actor().Name(), evt.Tag(), ScheduleEventQueued)
	case HookPosEventRemoved:
		evt := ctx.Item.(*Event)
		h.listener.Event(evt.Actor().Name(), evt.Tag(), ScheduleEventRemoved)
	case HookPosBeforeFire:
		f := ctx.Item.(Firing)
		h.listener.Event(f.Actor.Name(), f.Tag, ScheduleEventFiring)
	case HookPosAfterFire:
		f := ctx.Item.(Firing)
		h.listener.Event(f.Actor.Name(), f.Tag, ScheduleEventFired)
	case HookPosActorDisabled:
		a := ctx.Item.(modeling.Actor)
		h.listener.Event(a.Name(), h.director.Now(), ScheduleEventDisabled)
	}
}

// AddScheduleListener registers a listener. The returned hook can be passed
// to RemoveHook to unregister the listener.
func (d *Director) AddScheduleListener(l ScheduleListener) hooking.Hook {
	h := &scheduleListenerHook{director: d, listener: l}
	d.AcceptHook(h)

	return h
}
