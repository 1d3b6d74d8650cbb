package tracing

import (
	"sync"

	"github.com/sarchlab/desim/sim/timing"
)

// FiringCountTracer counts the firings of every actor and the number of
// distinct tags each actor fired at.
type FiringCountTracer struct {
	filter FiringFilter

	lock       sync.Mutex
	actorNames []string
	count      map[string]uint64
	tokens     map[string]uint64
	lastTime   map[string]timing.VTime
	times      map[string]uint64
}

// NewFiringCountTracer creates a new FiringCountTracer. A nil filter accepts
// every firing.
func NewFiringCountTracer(filter FiringFilter) *FiringCountTracer {
	if filter == nil {
		filter = func(Firing) bool { return true }
	}

	return &FiringCountTracer{
		filter:   filter,
		count:    make(map[string]uint64),
		tokens:   make(map[string]uint64),
		lastTime: make(map[string]timing.VTime),
		times:    make(map[string]uint64),
	}
}

// ActorNames returns the names of the actors seen, in order of first firing.
func (t *FiringCountTracer) ActorNames() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	return append([]string(nil), t.actorNames...)
}

// FiringCount returns the number of firings of an actor.
func (t *FiringCountTracer) FiringCount(actor string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.count[actor]
}

// TokenCount returns the number of tokens an actor consumed.
func (t *FiringCountTracer) TokenCount(actor string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.tokens[actor]
}

// TimeCount returns the number of distinct model times at which an actor
// fired. Microsteps at the same time count once.
func (t *FiringCountTracer) TimeCount(actor string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.times[actor]
}

// Total returns the number of firings of all the actors.
func (t *FiringCountTracer) Total() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	var total uint64
	for _, c := range t.count {
		total += c
	}

	return total
}

// StartFiring does nothing.
func (t *FiringCountTracer) StartFiring(_ Firing) {}

// EndFiring counts the firing.
func (t *FiringCountTracer) EndFiring(f Firing) {
	if !t.filter(f) {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	last, seen := t.lastTime[f.Actor]
	if !seen {
		t.actorNames = append(t.actorNames, f.Actor)
	}

	if !seen || last != f.Tag.Time {
		t.times[f.Actor]++
	}

	t.lastTime[f.Actor] = f.Tag.Time
	t.count[f.Actor]++
	t.tokens[f.Actor] += uint64(f.Tokens)
}
