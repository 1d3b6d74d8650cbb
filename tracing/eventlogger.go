package tracing

import (
	"log"

	"github.com/sarchlab/desim/sim/de"
	"github.com/sarchlab/desim/sim/hooking"
	"github.com/sarchlab/desim/sim/modeling"
	"github.com/sarchlab/desim/sim/timing"
)

// LogHookBase provides the common logic for all hooks that write to a logger.
type LogHookBase struct {
	*log.Logger
}

// EventLogger is a hook that prints what the director does.
type EventLogger struct {
	LogHookBase
}

// NewEventLogger returns a new EventLogger which will write into the logger.
func NewEventLogger(logger *log.Logger) *EventLogger {
	h := new(EventLogger)
	h.Logger = logger

	return h
}

// Func writes the scheduling information into the logger.
func (h *EventLogger) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case de.HookPosEventQueued:
		evt := ctx.Item.(*de.Event)
		h.Printf("%s, queued: %s", now(ctx), evt)
	case de.HookPosEventRemoved:
		evt := ctx.Item.(*de.Event)
		h.Printf("%s, removed: %s", now(ctx), evt)
	case de.HookPosTagAdvanced:
		h.Printf("%s, tag advanced", ctx.Item.(timing.Tag))
	case de.HookPosBeforeFire:
		f := ctx.Item.(de.Firing)
		h.Printf("%s, %s fires with %d events",
			f.Tag, f.Actor.Name(), len(f.Events))
	case de.HookPosAfterFire:
		f := ctx.Item.(de.Firing)
		h.Printf("%s, %s fired, postfire %v", f.Tag, f.Actor.Name(), ctx.Detail)
	case de.HookPosActorDisabled:
		a := ctx.Item.(modeling.Actor)
		h.Printf("%s, %s disabled", now(ctx), a.Name())
	}
}

func now(ctx hooking.HookCtx) string {
	teller, ok := ctx.Domain.(TimeTeller)
	if !ok {
		return "-"
	}

	return teller.Now().String()
}
