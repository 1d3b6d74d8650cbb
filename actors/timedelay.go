package actors

import (
	"github.com/sarchlab/desim/sim/modeling"
	"github.com/sarchlab/desim/sim/timing"
)

type pendingToken struct {
	due timing.Tag
	tok modeling.Token
}

// A TimeDelay forwards every token it receives after a fixed delay. With a
// zero delay, tokens leave at the next microstep. Its input never creates a
// zero-delay dependency, so a TimeDelay can close a feedback loop.
type TimeDelay struct {
	*modeling.ActorBase

	Input  *modeling.InputPort
	Output *modeling.OutputPort

	delay   timing.VTime
	pending []pendingToken
}

// NewTimeDelay creates a TimeDelay.
func NewTimeDelay(name string, delay timing.VTime) *TimeDelay {
	if delay < 0 {
		panic("delay must not be negative")
	}

	d := &TimeDelay{
		ActorBase: modeling.NewActorBase(name),
		delay:     delay,
	}
	d.Input = modeling.NewInputPort(d, "Input")
	d.Input.DeclareDelay()
	d.Output = modeling.NewOutputPort(d, "Output")

	return d
}

// Initialize drops the tokens left from an earlier run.
func (d *TimeDelay) Initialize(s modeling.Scheduler) error {
	d.pending = nil
	return d.ActorBase.Initialize(s)
}

// Fire sends the tokens that are due and delays the newly arrived ones.
func (d *TimeDelay) Fire() error {
	s := d.Scheduler()
	now := s.Now()

	kept := d.pending[:0]

	for _, p := range d.pending {
		if p.due.After(now) {
			kept = append(kept, p)
			continue
		}

		if err := d.Output.Broadcast(p.tok); err != nil {
			return err
		}
	}

	d.pending = kept

	for ch := 0; ch < d.Input.Width(); ch++ {
		for d.Input.HasToken(ch) {
			tok, err := d.Input.Get(ch)
			if err != nil {
				return err
			}

			due, err := s.FireAt(d, now.Time.Add(d.delay))
			if err != nil {
				return err
			}

			d.pending = append(d.pending, pendingToken{due: due, tok: tok})
		}
	}

	return nil
}

// Pending returns the number of tokens waiting to be sent.
func (d *TimeDelay) Pending() int {
	return len(d.pending)
}
