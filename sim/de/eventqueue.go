package de

import (
	"container/heap"
	"sort"
	"sync"

	"github.com/sarchlab/desim/sim/modeling"
	"github.com/sarchlab/desim/sim/timing"
)

// EventQueue keeps the pending events ordered by tag, then depth, then
// insertion order. It is safe for concurrent use.
//
// The queue has a floor: the earliest tag that may still be inserted. The
// director raises the floor to the tag it processes, so that nothing can be
// scheduled into the past.
//
// Two pure events for the same actor and tag are the same request; the second
// one is dropped. Token events are never merged.
type EventQueue struct {
	sync.Mutex
	entries eventHeap
	nextSeq uint64
	floor   timing.Tag
	pure    map[pureKey]struct{}
}

type pureKey struct {
	actor modeling.Actor
	tag   timing.Tag
}

type queueEntry struct {
	evt *Event
	seq uint64
}

// NewEventQueue creates and returns a newly created EventQueue.
func NewEventQueue() *EventQueue {
	q := new(EventQueue)
	q.pure = make(map[pureKey]struct{})
	heap.Init(&q.entries)

	return q
}

// Insert adds an event. Events earlier than the floor are rejected with a
// *CausalityError.
func (q *EventQueue) Insert(evt *Event) error {
	_, err := q.insert(evt)
	return err
}

// insert also tells if the event was actually added rather than merged into
// an existing one.
func (q *EventQueue) insert(evt *Event) (bool, error) {
	q.Lock()
	defer q.Unlock()

	if evt.tag.Before(q.floor) {
		return false, &CausalityError{
			Actor:     evt.actor.Name(),
			Requested: evt.tag,
			Current:   q.floor,
		}
	}

	if evt.IsPure() {
		key := pureKey{actor: evt.actor, tag: evt.tag}
		if _, dup := q.pure[key]; dup {
			return false, nil
		}

		q.pure[key] = struct{}{}
	}

	q.nextSeq++
	evt.seq = q.nextSeq
	heap.Push(&q.entries, queueEntry{evt: evt, seq: q.nextSeq})

	return true, nil
}

// Peek returns the earliest event without removing it.
func (q *EventQueue) Peek() (*Event, bool) {
	q.Lock()
	defer q.Unlock()

	if len(q.entries) == 0 {
		return nil, false
	}

	return q.entries[0].evt, true
}

// Pop removes and returns the earliest event.
func (q *EventQueue) Pop() (*Event, error) {
	q.Lock()
	defer q.Unlock()

	if len(q.entries) == 0 {
		return nil, ErrEmptyQueue
	}

	entry := heap.Pop(&q.entries).(queueEntry)
	q.forget(entry.evt)

	return entry.evt, nil
}

// TakeSimultaneous removes and returns all the events at the tag, in firing
// order.
func (q *EventQueue) TakeSimultaneous(tag timing.Tag) []*Event {
	q.Lock()
	defer q.Unlock()

	var taken []*Event

	for len(q.entries) > 0 && q.entries[0].evt.tag == tag {
		entry := heap.Pop(&q.entries).(queueEntry)
		q.forget(entry.evt)
		taken = append(taken, entry.evt)
	}

	return taken
}

// TakeSimultaneousFor removes and returns the events of one actor at the tag,
// in insertion order.
func (q *EventQueue) TakeSimultaneousFor(
	tag timing.Tag,
	a modeling.Actor,
) []*Event {
	return q.removeIf(func(e *Event) bool {
		return e.actor == a && e.tag == tag
	})
}

// RemoveAllFor removes all the events of an actor and returns them.
func (q *EventQueue) RemoveAllFor(a modeling.Actor) []*Event {
	return q.removeIf(func(e *Event) bool {
		return e.actor == a
	})
}

func (q *EventQueue) removeIf(match func(e *Event) bool) []*Event {
	q.Lock()
	defer q.Unlock()

	var removed []queueEntry

	kept := q.entries[:0]

	for _, entry := range q.entries {
		if match(entry.evt) {
			removed = append(removed, entry)
			q.forget(entry.evt)

			continue
		}

		kept = append(kept, entry)
	}

	for i := len(kept); i < len(q.entries); i++ {
		q.entries[i] = queueEntry{}
	}

	q.entries = kept
	heap.Init(&q.entries)

	sort.Slice(removed, func(i, j int) bool {
		return removed[i].less(removed[j])
	})

	events := make([]*Event, len(removed))
	for i, entry := range removed {
		events[i] = entry.evt
	}

	return events
}

func (q *EventQueue) forget(evt *Event) {
	if evt.IsPure() {
		delete(q.pure, pureKey{actor: evt.actor, tag: evt.tag})
	}
}

// Len returns the number of pending events.
func (q *EventQueue) Len() int {
	q.Lock()
	defer q.Unlock()

	return len(q.entries)
}

// Clear removes all the events and lowers the floor back to the zero tag.
func (q *EventQueue) Clear() {
	q.Lock()
	defer q.Unlock()

	q.entries = nil
	q.nextSeq = 0
	q.floor = timing.Tag{}
	q.pure = make(map[pureKey]struct{})
}

// SetFloor sets the earliest tag that can be inserted.
func (q *EventQueue) SetFloor(tag timing.Tag) {
	q.Lock()
	defer q.Unlock()

	q.floor = tag
}

// raiseFloorToHead sets the floor to the tag of the earliest event and returns
// that tag.
func (q *EventQueue) raiseFloorToHead() (timing.Tag, bool) {
	q.Lock()
	defer q.Unlock()

	if len(q.entries) == 0 {
		return timing.Tag{}, false
	}

	q.floor = q.entries[0].evt.tag

	return q.floor, true
}

// Floor returns the earliest tag that can be inserted.
func (q *EventQueue) Floor() timing.Tag {
	q.Lock()
	defer q.Unlock()

	return q.floor
}

// Events returns a snapshot of all the pending events in firing order.
func (q *EventQueue) Events() []*Event {
	q.Lock()
	entries := make([]queueEntry, len(q.entries))
	copy(entries, q.entries)
	q.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].less(entries[j])
	})

	events := make([]*Event, len(entries))
	for i, entry := range entries {
		events[i] = entry.evt
	}

	return events
}

func (e queueEntry) less(o queueEntry) bool {
	if c := e.evt.tag.Compare(o.evt.tag); c != 0 {
		return c < 0
	}

	if e.evt.depth != o.evt.depth {
		return e.evt.depth < o.evt.depth
	}

	return e.seq < o.seq
}

type eventHeap []queueEntry

// Len returns the length of the event queue
func (h eventHeap) Len() int {
	return len(h)
}

// Less determines the order between two events. Less returns true if the i-th
// event fires before the j-th event.
func (h eventHeap) Less(i, j int) bool {
	return h[i].less(h[j])
}

// Swap changes the position of two events in the event queue
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

// Push adds an event into the event queue
func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(queueEntry))
}

// Pop removes and returns the next event to happen
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = queueEntry{}
	*h = old[0 : n-1]

	return entry
}
