// Package actors provides a small library of actors for building models.
package actors

import (
	"github.com/sarchlab/desim/sim/modeling"
	"github.com/sarchlab/desim/sim/timing"
)

// A Clock sends a value periodically. The values cycle through a list.
type Clock struct {
	*modeling.ActorBase

	Output *modeling.OutputPort

	period timing.VTime
	offset timing.VTime
	values []modeling.Token
	limit  int

	index int
	ticks int
}

// ClockBuilder can build clocks.
type ClockBuilder struct {
	period timing.VTime
	offset timing.VTime
	values []modeling.Token
	limit  int
}

// MakeClockBuilder creates a builder for a clock that sends 1 every second,
// starting at time zero, forever.
func MakeClockBuilder() ClockBuilder {
	return ClockBuilder{
		period: timing.Seconds(1),
		values: []modeling.Token{1},
	}
}

// WithPeriod sets the time between two ticks.
func (b ClockBuilder) WithPeriod(period timing.VTime) ClockBuilder {
	b.period = period
	return b
}

// WithOffset sets the time of the first tick.
func (b ClockBuilder) WithOffset(offset timing.VTime) ClockBuilder {
	b.offset = offset
	return b
}

// WithValues sets the values to send, one per tick, in a cycle.
func (b ClockBuilder) WithValues(values ...modeling.Token) ClockBuilder {
	b.values = values
	return b
}

// WithLimit sets the number of ticks after which the clock stops. Zero means
// no limit.
func (b ClockBuilder) WithLimit(ticks int) ClockBuilder {
	b.limit = ticks
	return b
}

func (b ClockBuilder) parametersMustBeValid() {
	if b.period <= 0 {
		panic("clock period must be positive")
	}

	if b.offset < 0 {
		panic("clock offset must not be negative")
	}

	if len(b.values) == 0 {
		panic("clock needs at least one value")
	}

	if b.limit < 0 {
		panic("clock limit must not be negative")
	}
}

// Build creates the clock.
func (b ClockBuilder) Build(name string) *Clock {
	b.parametersMustBeValid()

	c := &Clock{
		ActorBase: modeling.NewActorBase(name),
		period:    b.period,
		offset:    b.offset,
		values:    append([]modeling.Token(nil), b.values...),
		limit:     b.limit,
	}
	c.Output = modeling.NewOutputPort(c, "Output")

	return c
}

// Initialize schedules the first tick.
func (c *Clock) Initialize(s modeling.Scheduler) error {
	if err := c.ActorBase.Initialize(s); err != nil {
		return err
	}

	c.index = 0
	c.ticks = 0

	_, err := s.FireAt(c, c.offset)

	return err
}

// Fire sends the current value.
func (c *Clock) Fire() error {
	return c.Output.Broadcast(c.values[c.index])
}

// Postfire moves to the next value and schedules the next tick, or stops if
// the limit is reached.
func (c *Clock) Postfire() (bool, error) {
	c.index = (c.index + 1) % len(c.values)
	c.ticks++

	if c.limit > 0 && c.ticks >= c.limit {
		return false, nil
	}

	s := c.Scheduler()
	if _, err := s.FireAt(c, s.Now().Time.Add(c.period)); err != nil {
		return false, err
	}

	return true, nil
}
