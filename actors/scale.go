package actors

import (
	"errors"
	"fmt"
	"math"

	"github.com/sarchlab/desim/sim/modeling"
	"github.com/sarchlab/desim/sim/timing"
)

// ErrNotNumeric is returned when an actor that does arithmetic receives a
// token that is not a number.
var ErrNotNumeric = errors.New("token is not numeric")

// A Scale multiplies every token it receives by a factor and sends the result
// at the same tag. Results whose magnitude is below the cutoff are dropped.
type Scale struct {
	*modeling.ActorBase

	Input  *modeling.InputPort
	Output *modeling.OutputPort

	factor float64
	cutoff float64
}

// NewScale creates a Scale.
func NewScale(name string, factor float64) *Scale {
	s := &Scale{
		ActorBase: modeling.NewActorBase(name),
		factor:    factor,
	}
	s.Input = modeling.NewInputPort(s, "Input")
	s.Output = modeling.NewOutputPort(s, "Output")

	return s
}

// WithCutoff makes the Scale drop every result whose magnitude is below c.
func (s *Scale) WithCutoff(c float64) *Scale {
	if c < 0 || math.IsNaN(c) {
		panic("cutoff must be a non-negative number")
	}

	s.cutoff = c

	return s
}

// Fire scales all the available tokens.
func (s *Scale) Fire() error {
	for ch := 0; ch < s.Input.Width(); ch++ {
		for s.Input.HasToken(ch) {
			tok, err := s.Input.Get(ch)
			if err != nil {
				return err
			}

			v, err := toFloat(tok)
			if err != nil {
				return err
			}

			out := v * s.factor
			if math.Abs(out) < s.cutoff {
				continue
			}

			if err := s.Output.Broadcast(out); err != nil {
				return err
			}
		}
	}

	return nil
}

func toFloat(tok modeling.Token) (float64, error) {
	switch v := tok.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case timing.VTime:
		return v.InSec(), nil
	default:
		return 0, fmt.Errorf("%w: %v (%T)", ErrNotNumeric, tok, tok)
	}
}
