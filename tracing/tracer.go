// Package tracing collects the firings of a director for later analysis.
package tracing

import (
	"fmt"

	"github.com/sarchlab/desim/sim/timing"
)

// A Firing is the trace of one actor firing.
type Firing struct {
	ID        string
	Actor     string
	Tag       timing.Tag
	Tokens    int
	KeepGoing bool
}

func (f Firing) String() string {
	return fmt.Sprintf("%s@%s", f.Actor, f.Tag)
}

// FiringFilter is a function that can filter interesting firings. If this
// function returns true, the firing is considered useful.
type FiringFilter func(f Firing) bool

// A Tracer can collect firing traces. EndFiring is not called for firings that
// fail.
type Tracer interface {
	StartFiring(f Firing)
	EndFiring(f Firing)
}
