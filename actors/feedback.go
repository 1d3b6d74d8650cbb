package actors

import (
	"github.com/sarchlab/desim/sim/modeling"
	"github.com/sarchlab/desim/sim/timing"
)

// FeedbackCutoff is the magnitude below which the feedback loop drops a token.
const FeedbackCutoff = 1e-3

// FeedbackModel is a clock feeding a loop that halves every token and sends it
// back after half a period. Every value the loop produces is recorded. A token
// leaves the loop once it falls below FeedbackCutoff, so the model runs out of
// events after the clock stops.
//
//	Clock -> Merge -> Scale -> Recorder
//	           ^        |
//	           +- Delay +
type FeedbackModel struct {
	*modeling.Model

	Clock    *Clock
	Delay    *TimeDelay
	Merge    *Merge
	Scale    *Scale
	Recorder *Recorder
}

// NewFeedbackModel creates a FeedbackModel whose clock ticks the given number
// of times. Zero ticks means the clock never stops.
func NewFeedbackModel(
	name string,
	period timing.VTime,
	ticks int,
) *FeedbackModel {
	m := &FeedbackModel{
		Model: modeling.NewModel(name),
		Clock: MakeClockBuilder().
			WithPeriod(period).
			WithLimit(ticks).
			Build("Clock"),
		Delay:    NewTimeDelay("Delay", period/2),
		Merge:    NewMerge("Merge"),
		Scale:    NewScale("Scale", 0.5).WithCutoff(FeedbackCutoff),
		Recorder: NewRecorder("Recorder"),
	}

	m.AddActor(m.Clock)
	m.AddActor(m.Delay)
	m.AddActor(m.Merge)
	m.AddActor(m.Scale)
	m.AddActor(m.Recorder)

	m.Connect(m.Clock.Output, m.Merge.Input)
	m.Connect(m.Delay.Output, m.Merge.Input)
	m.Connect(m.Merge.Output, m.Scale.Input)
	m.Connect(m.Scale.Output, m.Recorder.Input)
	m.Connect(m.Scale.Output, m.Delay.Input)

	return m
}
