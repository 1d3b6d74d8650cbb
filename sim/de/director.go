package de

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sarchlab/desim/sim/hooking"
	"github.com/sarchlab/desim/sim/modeling"
	"github.com/sarchlab/desim/sim/timing"
)

// ErrUnknownActor is returned when scheduling an actor that is not part of the
// director's model.
var ErrUnknownActor = errors.New("actor is not part of the model")

// State is the life-cycle state of a director.
type State int

// The states of a director.
const (
	StateIdle State = iota
	StateInitializing
	StateIterating
	StateWrapping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateIterating:
		return "iterating"
	case StateWrapping:
		return "wrapping"
	default:
		return "unknown"
	}
}

// Result tells the caller of Step or Fire what to do next.
type Result int

const (
	// ResultContinue means that the current tag is complete and that the run
	// can go on.
	ResultContinue Result = iota

	// ResultSameTag means that more actors must fire at the current tag.
	ResultSameTag

	// ResultNoMoreEvents means that the queue is empty.
	ResultNoMoreEvents

	// ResultStopTimeReached means that the next event is after the stop time.
	ResultStopTimeReached

	// ResultStopRequested means that Stop was called.
	ResultStopRequested

	// ResultPostfireStop means that an actor's Postfire returned false under
	// PolicyStopModel.
	ResultPostfireStop
)

// Finished tells if the run should end.
func (r Result) Finished() bool {
	return r != ResultContinue && r != ResultSameTag
}

func (r Result) String() string {
	switch r {
	case ResultContinue:
		return "continue"
	case ResultSameTag:
		return "same-tag"
	case ResultNoMoreEvents:
		return "no-more-events"
	case ResultStopTimeReached:
		return "stop-time-reached"
	case ResultStopRequested:
		return "stop-requested"
	case ResultPostfireStop:
		return "postfire-stop"
	default:
		return "unknown"
	}
}

var (
	// HookPosEventQueued is triggered after an event is added to the queue.
	// The item is the *Event.
	HookPosEventQueued = &hooking.HookPos{Name: "EventQueued"}

	// HookPosTagAdvanced is triggered when the director moves to a new tag.
	// The item is the timing.Tag.
	HookPosTagAdvanced = &hooking.HookPos{Name: "TagAdvanced"}

	// HookPosBeforeFire is triggered before an actor fires. The item is a
	// Firing.
	HookPosBeforeFire = &hooking.HookPos{Name: "BeforeFire"}

	// HookPosAfterFire is triggered after an actor's Postfire succeeds. The
	// item is a Firing and the detail is the bool returned by Postfire.
	HookPosAfterFire = &hooking.HookPos{Name: "AfterFire"}

	// HookPosActorDisabled is triggered when an actor is disabled. The item
	// is the modeling.Actor.
	HookPosActorDisabled = &hooking.HookPos{Name: "ActorDisabled"}

	// HookPosEventRemoved is triggered for every event dropped because its
	// actor was disabled. The item is the *Event.
	HookPosEventRemoved = &hooking.HookPos{Name: "EventRemoved"}
)

// A Firing describes one firing of an actor.
type Firing struct {
	Actor  modeling.Actor
	Tag    timing.Tag
	Events []*Event
}

// A Director runs a model under discrete-event semantics.
//
// The director processes one tag at a time. At a tag, every actor with events
// at that tag fires exactly once, in depth order, after all the tokens of
// its events are put into its receivers. A token sent at the current tag to
// an actor that has already fired is delivered at the next microstep.
//
// Only one goroutine may drive the director through Initialize, Step, Fire
// and Wrapup. Stop, FireAt and the query methods may be called from any
// goroutine.
type Director struct {
	hooking.HookableBase

	name  string
	model *modeling.Model

	stopTime           timing.VTime
	policy             PostfirePolicy
	realTimeScale      float64
	stopWhenQueueEmpty bool

	queue  *EventQueue
	wakeup chan struct{}

	lock          sync.RWMutex
	state         State
	now           timing.Tag
	midTag        bool
	depths        map[modeling.Actor]int
	fired         map[modeling.Actor]bool
	disabled      map[modeling.Actor]bool
	firing        modeling.Actor
	started       bool
	startTime     timing.VTime
	stopRequested bool
	stopVoted     bool
	violation     error
	wallStart     time.Time
}

func (d *Director) reset() {
	d.state = StateIdle
	d.now = timing.Tag{}
	d.midTag = false
	d.depths = make(map[modeling.Actor]int)
	d.fired = make(map[modeling.Actor]bool)
	d.disabled = make(map[modeling.Actor]bool)
	d.firing = nil
	d.started = false
	d.startTime = timing.Zero
	d.stopRequested = false
	d.stopVoted = false
	d.violation = nil
}

// Name returns the name of the director.
func (d *Director) Name() string {
	return d.name
}

// Model returns the model that the director runs.
func (d *Director) Model() *modeling.Model {
	return d.model
}

// Initialize prepares a new run. It resets the time to the zero tag, computes
// the actor depths, and initializes all the actors in declaration order.
func (d *Director) Initialize() error {
	d.lock.Lock()
	d.reset()
	d.state = StateInitializing
	d.lock.Unlock()

	d.queue.Clear()
	d.drainWakeup()

	depths, err := d.model.Depths()
	if err != nil {
		return err
	}

	d.lock.Lock()
	d.depths = depths
	d.lock.Unlock()

	d.model.ClearReceivers()
	d.model.Bind(d)

	for _, a := range d.model.Actors() {
		d.setFiring(a)

		if err := a.Initialize(d); err != nil {
			d.setFiring(nil)
			return d.actorError(a, PhaseInitialize, err)
		}
	}

	d.setFiring(nil)

	if err := d.recordedViolation(); err != nil {
		return err
	}

	d.lock.Lock()
	d.state = StateIterating
	d.wallStart = time.Now()
	d.lock.Unlock()

	return nil
}

// Fire runs one iteration, that is, all the firings at one tag. Pausing and
// stopping are therefore never observed in the middle of a tag.
func (d *Director) Fire() (Result, error) {
	for {
		res, err := d.Step()
		if err != nil || res != ResultSameTag {
			return res, err
		}
	}
}

// Step fires the next actor. It returns ResultSameTag if more actors are to
// fire at the current tag. When starting a new tag, it first checks whether
// the run should end and returns the reason if so.
func (d *Director) Step() (Result, error) {
	d.lock.RLock()
	state, midTag := d.state, d.midTag
	d.lock.RUnlock()

	if state != StateIterating {
		return ResultNoMoreEvents, ErrNotInitialized
	}

	if err := d.recordedViolation(); err != nil {
		return ResultContinue, err
	}

	if !midTag {
		res := d.advanceTag()
		if res != ResultContinue {
			return res, nil
		}
	}

	return d.fireNext()
}

func (d *Director) advanceTag() Result {
	for {
		if res, stop := d.stopResult(); stop {
			return res
		}

		evt, found := d.queue.Peek()
		if !found {
			if d.stopWhenQueueEmpty {
				return ResultNoMoreEvents
			}

			<-d.wakeup

			continue
		}

		if evt.Time().After(d.stopTime) {
			return ResultStopTimeReached
		}

		if d.waitForRealTime(evt.Time()) {
			continue
		}

		// The floor and the current tag move together under the lock, so a
		// request checked against the old tag is inserted before the floor
		// rises.
		d.lock.Lock()
		tag, found := d.queue.raiseFloorToHead()
		if !found {
			d.lock.Unlock()
			continue
		}

		d.now = tag
		d.midTag = true
		d.fired = make(map[modeling.Actor]bool)

		if !d.started {
			d.started = true
			d.startTime = tag.Time
		}
		d.lock.Unlock()

		d.InvokeHook(hooking.HookCtx{
			Domain: d,
			Pos:    HookPosTagAdvanced,
			Item:   tag,
		})

		return ResultContinue
	}
}

func (d *Director) stopResult() (Result, bool) {
	d.lock.RLock()
	defer d.lock.RUnlock()

	switch {
	case d.stopRequested:
		return ResultStopRequested, true
	case d.stopVoted:
		return ResultPostfireStop, true
	default:
		return ResultContinue, false
	}
}

// waitForRealTime blocks until the wall clock catches up with t. It returns
// true if the wait was interrupted by a new event or a stop request.
func (d *Director) waitForRealTime(t timing.VTime) bool {
	if d.realTimeScale == 0 || t.IsInfinite() {
		return false
	}

	d.lock.RLock()
	start := d.wallStart
	d.lock.RUnlock()

	offset := realTimeOffset(t, d.realTimeScale)

	wait := time.Until(start.Add(offset))
	if wait <= 0 {
		return false
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return false
	case <-d.wakeup:
		return true
	}
}

// realTimeOffset converts a model time into the wall-clock time since the
// start of the run, saturating at the longest duration.
func realTimeOffset(t timing.VTime, scale float64) time.Duration {
	ns := t.InSec() * scale * float64(time.Second)
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(ns)
}

func (d *Director) fireNext() (Result, error) {
	now := d.Now()

	head, found := d.queue.Peek()
	if !found || head.Tag() != now {
		if found && head.Tag().Before(now) {
			return ResultContinue, d.violationAt(head, now)
		}

		d.endTag()

		return ResultContinue, nil
	}

	a := head.Actor()
	events := d.queue.TakeSimultaneousFor(now, a)

	for _, e := range events {
		if !e.IsPure() {
			e.receiver.Put(e.token)
		}
	}

	d.lock.Lock()
	d.fired[a] = true
	d.firing = a
	d.lock.Unlock()

	firing := Firing{Actor: a, Tag: now, Events: events}
	d.InvokeHook(hooking.HookCtx{
		Domain: d,
		Pos:    HookPosBeforeFire,
		Item:   firing,
	})

	if err := a.Fire(); err != nil {
		d.setFiring(nil)
		return ResultContinue, d.actorError(a, PhaseFire, err)
	}

	keepGoing, err := a.Postfire()

	d.setFiring(nil)

	if err != nil {
		return ResultContinue, d.actorError(a, PhasePostfire, err)
	}

	d.InvokeHook(hooking.HookCtx{
		Domain: d,
		Pos:    HookPosAfterFire,
		Item:   firing,
		Detail: keepGoing,
	})

	if !keepGoing {
		d.handleStopVote(a)
	}

	if err := d.recordedViolation(); err != nil {
		return ResultContinue, err
	}

	next, found := d.queue.Peek()
	if found && next.Tag().Before(now) {
		return ResultContinue, d.violationAt(next, now)
	}

	if found && next.Tag() == now {
		return ResultSameTag, nil
	}

	d.endTag()

	return ResultContinue, nil
}

func (d *Director) endTag() {
	d.lock.Lock()
	d.midTag = false
	d.lock.Unlock()
}

func (d *Director) handleStopVote(a modeling.Actor) {
	if d.policy == PolicyStopModel {
		d.lock.Lock()
		d.stopVoted = true
		d.lock.Unlock()

		return
	}

	d.Deactivate(a)
}

// Deactivate disables an actor for the rest of the run and drops its pending
// events.
func (d *Director) Deactivate(a modeling.Actor) {
	d.lock.Lock()
	wasDisabled := d.disabled[a]
	d.disabled[a] = true
	d.lock.Unlock()

	for _, evt := range d.queue.RemoveAllFor(a) {
		d.InvokeHook(hooking.HookCtx{
			Domain: d,
			Pos:    HookPosEventRemoved,
			Item:   evt,
		})
	}

	if !wasDisabled {
		d.InvokeHook(hooking.HookCtx{
			Domain: d,
			Pos:    HookPosActorDisabled,
			Item:   a,
		})
	}
}

// Wrapup ends the run. Every actor's Wrapup is called, even if some of them
// fail, and the failures are joined. Pending events are discarded.
func (d *Director) Wrapup() error {
	d.lock.Lock()
	d.state = StateWrapping
	d.lock.Unlock()

	var errs []error

	for _, a := range d.model.Actors() {
		d.setFiring(a)

		if err := a.Wrapup(); err != nil {
			errs = append(errs, d.actorError(a, PhaseWrapup, err))
		}
	}

	d.setFiring(nil)
	d.model.Unbind()
	d.queue.Clear()

	d.lock.Lock()
	d.state = StateIdle
	d.midTag = false
	d.lock.Unlock()

	return errors.Join(errs...)
}

// Stop asks the director to end the run at the next tag boundary. It also
// interrupts waits for events or for the wall clock.
func (d *Director) Stop() {
	d.lock.Lock()
	d.stopRequested = true
	d.lock.Unlock()

	d.wake()
}

func (d *Director) wake() {
	select {
	case d.wakeup <- struct{}{}:
	default:
	}
}

func (d *Director) drainWakeup() {
	select {
	case <-d.wakeup:
	default:
	}
}

// FireAt requests a firing of the actor at time t. A request for the current
// time made while iterating is granted the next microstep; a request for a
// later time is granted microstep zero. Disabled actors are granted the
// positive infinity and are never fired.
func (d *Director) FireAt(
	a modeling.Actor,
	t timing.VTime,
) (timing.Tag, error) {
	d.lock.RLock()
	now, state := d.now, d.state
	d.lock.RUnlock()

	tag := timing.MakeTag(t, 0)

	if t == now.Time {
		tag = now
		if state == StateIterating {
			tag = now.NextMicrostep()
		}
	}

	return d.FireAtTag(a, tag)
}

// FireAfter requests a firing of the actor delay after the current time.
func (d *Director) FireAfter(
	a modeling.Actor,
	delay timing.VTime,
) (timing.Tag, error) {
	return d.FireAt(a, d.CurrentTime().Add(delay))
}

// FireAtTag requests a firing at an exact tag. If the tag is the current one
// and the actor has already fired at it, the next microstep is granted.
func (d *Director) FireAtTag(
	a modeling.Actor,
	tag timing.Tag,
) (timing.Tag, error) {
	d.lock.Lock()

	if d.state != StateInitializing && d.state != StateIterating {
		d.lock.Unlock()
		return tag, ErrNotInitialized
	}

	depth, known := d.depths[a]
	if !known {
		d.lock.Unlock()
		return tag, fmt.Errorf("%w: %s", ErrUnknownActor, a.Name())
	}

	if d.disabled[a] {
		d.lock.Unlock()
		return timing.MakeTag(timing.PositiveInfinity, 0), nil
	}

	if tag.Before(d.now) {
		err := &CausalityError{Actor: a.Name(), Requested: tag, Current: d.now}
		d.recordViolationLocked(err)
		d.lock.Unlock()

		return tag, err
	}

	if tag == d.now && d.state == StateIterating && d.fired[a] {
		tag = tag.NextMicrostep()
	}

	if tag.Time == timing.PositiveInfinity {
		d.lock.Unlock()
		return tag, nil
	}

	evt := NewPureEvent(a, tag, depth)
	inserted, err := d.insertLocked(evt)
	d.lock.Unlock()

	return tag, d.scheduled(evt, inserted, err)
}

// Dispatch schedules the delivery of a token to a receiver. Output ports call
// it when actors send tokens.
func (d *Director) Dispatch(r *modeling.Receiver, tok modeling.Token) error {
	a := r.Port().Owner()

	d.lock.Lock()

	if d.state != StateInitializing && d.state != StateIterating {
		d.lock.Unlock()
		return ErrNotInitialized
	}

	depth, known := d.depths[a]
	if !known {
		d.lock.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownActor, a.Name())
	}

	if d.disabled[a] {
		d.lock.Unlock()
		return nil
	}

	tag := d.now
	if d.state == StateIterating && d.fired[a] {
		tag = tag.NextMicrostep()
	}

	evt := NewTokenEvent(r, tok, tag, depth)
	inserted, err := d.insertLocked(evt)
	d.lock.Unlock()

	return d.scheduled(evt, inserted, err)
}

// insertLocked puts the event into the queue. The caller holds the lock, so
// the tag cannot advance between the causality check and the insertion.
func (d *Director) insertLocked(evt *Event) (bool, error) {
	inserted, err := d.queue.insert(evt)
	if err != nil {
		var causalityErr *CausalityError
		if errors.As(err, &causalityErr) {
			d.recordViolationLocked(err)
		}
	}

	return inserted, err
}

// scheduled reports a new event to the hooks and wakes the director. It must
// be called without the lock.
func (d *Director) scheduled(evt *Event, inserted bool, err error) error {
	if err != nil {
		return err
	}

	if inserted {
		d.InvokeHook(hooking.HookCtx{
			Domain: d,
			Pos:    HookPosEventQueued,
			Item:   evt,
		})
	}

	d.wake()

	return nil
}

func (d *Director) violationAt(evt *Event, now timing.Tag) error {
	err := &CausalityError{
		Actor:     evt.Actor().Name(),
		Requested: evt.Tag(),
		Current:   now,
	}

	d.lock.Lock()
	d.recordViolationLocked(err)
	d.lock.Unlock()

	return err
}

func (d *Director) recordViolationLocked(err error) {
	if d.violation == nil {
		d.violation = err
	}
}

func (d *Director) recordedViolation() error {
	d.lock.RLock()
	defer d.lock.RUnlock()

	return d.violation
}

func (d *Director) actorError(
	a modeling.Actor,
	phase Phase,
	err error,
) *ActorError {
	return &ActorError{
		Actor: a.Name(),
		Tag:   d.Now(),
		Phase: phase,
		Err:   err,
	}
}

func (d *Director) setFiring(a modeling.Actor) {
	d.lock.Lock()
	d.firing = a
	d.lock.Unlock()
}

// Now returns the tag being processed.
func (d *Director) Now() timing.Tag {
	d.lock.RLock()
	defer d.lock.RUnlock()

	return d.now
}

// CurrentTime returns the time being processed.
func (d *Director) CurrentTime() timing.VTime {
	return d.Now().Time
}

// State returns the life-cycle state.
func (d *Director) State() State {
	d.lock.RLock()
	defer d.lock.RUnlock()

	return d.state
}

// QueueLen returns the number of pending events.
func (d *Director) QueueLen() int {
	return d.queue.Len()
}

// PendingEvents returns the pending events in firing order.
func (d *Director) PendingEvents() []*Event {
	return d.queue.Events()
}

// NextTag returns the tag of the earliest pending event.
func (d *Director) NextTag() (timing.Tag, bool) {
	evt, found := d.queue.Peek()
	if !found {
		return timing.Tag{}, false
	}

	return evt.Tag(), true
}

// Depth returns the firing priority of an actor in the current run.
func (d *Director) Depth(a modeling.Actor) (int, bool) {
	d.lock.RLock()
	defer d.lock.RUnlock()

	depth, found := d.depths[a]

	return depth, found
}

// FiringActorName returns the name of the actor being invoked, or an empty
// string.
func (d *Director) FiringActorName() string {
	d.lock.RLock()
	defer d.lock.RUnlock()

	if d.firing == nil {
		return ""
	}

	return d.firing.Name()
}

// StartTime returns the time of the first processed tag.
func (d *Director) StartTime() (timing.VTime, bool) {
	d.lock.RLock()
	defer d.lock.RUnlock()

	return d.startTime, d.started
}

// StopTime returns the last time at which events are processed.
func (d *Director) StopTime() timing.VTime {
	return d.stopTime
}

// PostfirePolicy returns how false Postfire results are handled.
func (d *Director) PostfirePolicy() PostfirePolicy {
	return d.policy
}

// IsDisabled tells if an actor has been disabled in the current run.
func (d *Director) IsDisabled(a modeling.Actor) bool {
	d.lock.RLock()
	defer d.lock.RUnlock()

	return d.disabled[a]
}
