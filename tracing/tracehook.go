package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/desim/sim/de"
	"github.com/sarchlab/desim/sim/hooking"
	"github.com/sarchlab/desim/sim/id"
	"github.com/sarchlab/desim/sim/naming"
)

// NamedHookable is a hookable object with a name, typically a director.
type NamedHookable interface {
	naming.Named
	hooking.Hookable
}

// CollectTrace lets the tracer collect the firings of a domain. It panics if
// the tracer is already attached.
func CollectTrace(domain NamedHookable, tracer Tracer) {
	for _, hook := range domain.Hooks() {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf(
				"domain %s already has tracer %s",
				domain.Name(), reflect.TypeOf(tracer)))
		}
	}

	h := &traceHook{t: tracer, ids: id.NewSequentialGenerator()}
	domain.AcceptHook(h)
}

// A traceHook turns the director's firing hooks into tracer calls. Firings
// never overlap, so the hook only remembers the current one.
type traceHook struct {
	t       Tracer
	ids     id.IDGenerator
	current Firing
}

// Func calls the tracer interfaces when the hook is triggered.
func (h *traceHook) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case de.HookPosBeforeFire:
		f := ctx.Item.(de.Firing)
		h.current = Firing{
			ID:     h.ids.Generate(),
			Actor:  f.Actor.Name(),
			Tag:    f.Tag,
			Tokens: countTokens(f.Events),
		}
		h.t.StartFiring(h.current)
	case de.HookPosAfterFire:
		h.current.KeepGoing, _ = ctx.Detail.(bool)
		h.t.EndFiring(h.current)
	}
}

func countTokens(events []*de.Event) int {
	n := 0

	for _, e := range events {
		if !e.IsPure() {
			n++
		}
	}

	return n
}
