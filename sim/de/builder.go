package de

import (
	"github.com/sarchlab/desim/sim/modeling"
	"github.com/sarchlab/desim/sim/timing"
)

// PostfirePolicy decides what happens when an actor's Postfire returns false.
type PostfirePolicy int

const (
	// PolicyDisableActor disables the actor that returned false. Its pending
	// events are dropped, later firing requests are granted the positive
	// infinity and tokens sent to it are discarded. The rest of the model
	// keeps running.
	PolicyDisableActor PostfirePolicy = iota

	// PolicyStopModel finishes the current tag and then stops the whole run.
	PolicyStopModel
)

func (p PostfirePolicy) String() string {
	switch p {
	case PolicyDisableActor:
		return "disable-actor"
	case PolicyStopModel:
		return "stop-model"
	default:
		return "unknown"
	}
}

// Builder can build directors.
type Builder struct {
	stopTime           timing.VTime
	policy             PostfirePolicy
	realTimeScale      float64
	stopWhenQueueEmpty bool
}

// MakeBuilder creates a new builder with default parameters. By default, the
// director runs as fast as possible with no stop time, disables actors that
// stop, and stops when the queue is empty.
func MakeBuilder() Builder {
	return Builder{
		stopTime:           timing.PositiveInfinity,
		policy:             PolicyDisableActor,
		stopWhenQueueEmpty: true,
	}
}

// WithStopTime sets the last time at which events are processed.
func (b Builder) WithStopTime(t timing.VTime) Builder {
	b.stopTime = t
	return b
}

// WithPostfirePolicy sets how a false Postfire is handled.
func (b Builder) WithPostfirePolicy(p PostfirePolicy) Builder {
	b.policy = p
	return b
}

// WithRealTime makes the director wait so that one simulated second takes
// scale wall-clock seconds. A scale of zero disables waiting.
func (b Builder) WithRealTime(scale float64) Builder {
	b.realTimeScale = scale
	return b
}

// WithoutStopOnEmptyQueue makes the director wait for new events when the
// queue runs empty, instead of finishing the run. Another goroutine must then
// schedule events or stop the director.
func (b Builder) WithoutStopOnEmptyQueue() Builder {
	b.stopWhenQueueEmpty = false
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.realTimeScale < 0 {
		panic("real time scale must not be negative")
	}

	if b.stopTime < timing.Zero {
		panic("stop time must not be negative")
	}
}

// Build creates a director for the model.
func (b Builder) Build(name string, model *modeling.Model) *Director {
	b.parametersMustBeValid()

	d := &Director{
		name:               name,
		model:              model,
		stopTime:           b.stopTime,
		policy:             b.policy,
		realTimeScale:      b.realTimeScale,
		stopWhenQueueEmpty: b.stopWhenQueueEmpty,
		queue:              NewEventQueue(),
		wakeup:             make(chan struct{}, 1),
	}
	d.reset()

	return d
}
