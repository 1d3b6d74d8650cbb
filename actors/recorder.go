package actors

import (
	"sync"

	"github.com/sarchlab/desim/sim/modeling"
	"github.com/sarchlab/desim/sim/timing"
)

// A Record is one token seen by a Recorder.
type Record struct {
	Tag     timing.Tag
	Channel int
	Token   modeling.Token
}

// A Recorder keeps every token it receives. The records can be read from any
// goroutine.
type Recorder struct {
	*modeling.ActorBase

	Input *modeling.InputPort

	lock    sync.Mutex
	records []Record
}

// NewRecorder creates a Recorder.
func NewRecorder(name string) *Recorder {
	r := &Recorder{ActorBase: modeling.NewActorBase(name)}
	r.Input = modeling.NewInputPort(r, "Input")

	return r
}

// Initialize forgets the records of an earlier run.
func (r *Recorder) Initialize(s modeling.Scheduler) error {
	r.lock.Lock()
	r.records = nil
	r.lock.Unlock()

	return r.ActorBase.Initialize(s)
}

// Fire records all the available tokens.
func (r *Recorder) Fire() error {
	now := r.Scheduler().Now()

	for ch := 0; ch < r.Input.Width(); ch++ {
		for r.Input.HasToken(ch) {
			tok, err := r.Input.Get(ch)
			if err != nil {
				return err
			}

			r.lock.Lock()
			r.records = append(r.records, Record{Tag: now, Channel: ch, Token: tok})
			r.lock.Unlock()
		}
	}

	return nil
}

// Records returns a copy of the records.
func (r *Recorder) Records() []Record {
	r.lock.Lock()
	defer r.lock.Unlock()

	return append([]Record(nil), r.records...)
}

// Tokens returns the recorded tokens in arrival order.
func (r *Recorder) Tokens() []modeling.Token {
	r.lock.Lock()
	defer r.lock.Unlock()

	tokens := make([]modeling.Token, len(r.records))
	for i, rec := range r.records {
		tokens[i] = rec.Token
	}

	return tokens
}
