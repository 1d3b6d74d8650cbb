package actors

import "github.com/sarchlab/desim/sim/modeling"

// A Merge forwards the tokens of all its input channels, lowest channel first,
// at the same tag.
type Merge struct {
	*modeling.ActorBase

	Input  *modeling.InputPort
	Output *modeling.OutputPort
}

// NewMerge creates a Merge.
func NewMerge(name string) *Merge {
	m := &Merge{ActorBase: modeling.NewActorBase(name)}
	m.Input = modeling.NewInputPort(m, "Input")
	m.Output = modeling.NewOutputPort(m, "Output")

	return m
}

// Fire forwards the tokens.
func (m *Merge) Fire() error {
	for ch := 0; ch < m.Input.Width(); ch++ {
		for m.Input.HasToken(ch) {
			tok, err := m.Input.Get(ch)
			if err != nil {
				return err
			}

			if err := m.Output.Broadcast(tok); err != nil {
				return err
			}
		}
	}

	return nil
}
