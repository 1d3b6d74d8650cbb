// Package execution drives a director through whole runs and lets other
// goroutines pause, resume and stop them.
package execution

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sarchlab/desim/sim/de"
	"github.com/sarchlab/desim/sim/timing"
)

// ErrAlreadyRunning is returned when starting a manager that is running.
var ErrAlreadyRunning = errors.New("manager is already running")

// Director is what a Manager needs from a director.
type Director interface {
	Initialize() error
	Fire() (de.Result, error)
	Wrapup() error
	Stop()
	Now() timing.Tag
	FiringActorName() string
}

// State is the state of a manager.
type State int

// The states of a manager.
const (
	StateIdle State = iota
	StateInitializing
	StateIterating
	StatePaused
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
	case StatePaused:
		return "paused"
	case StateWrapping:
		return "wrapping"
	default:
		return "unknown"
	}
}

// A Listener is notified about the progress of runs. Listeners are called on
// the goroutine that executes the run and must not block it for long.
type Listener interface {
	ExecutionError(m *Manager, err error)
	ExecutionFinished(m *Manager)
	ManagerStateChanged(m *Manager)
}

// A Manager runs a director: initialize, iterate until the director reports
// that the run is over, then wrap up. Pause, Resume and Stop are cooperative;
// they take effect between iterations.
type Manager struct {
	name     string
	director Director

	lock           sync.Mutex
	cond           *sync.Cond
	state          State
	running        bool
	pauseRequested bool
	stopRequested  bool
	iterations     uint64
	lastResult     de.Result
	runErr         error
	done           chan struct{}
	listeners      []Listener
}

// NewManager creates a manager for the director.
func NewManager(name string, director Director) *Manager {
	m := &Manager{
		name:     name,
		director: director,
		done:     make(chan struct{}),
	}
	m.cond = sync.NewCond(&m.lock)
	close(m.done)

	return m
}

// Name returns the name of the manager.
func (m *Manager) Name() string {
	return m.name
}

// AddListener registers a listener.
func (m *Manager) AddListener(l Listener) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.listeners = append(m.listeners, l)
}

// RemoveListener unregisters a listener.
func (m *Manager) RemoveListener(l Listener) {
	m.lock.Lock()
	defer m.lock.Unlock()

	for i, registered := range m.listeners {
		if registered == l {
			m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
			return
		}
	}
}

// State returns the current state.
func (m *Manager) State() State {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.state
}

// Iterations returns the number of iterations completed in the current or
// last run.
func (m *Manager) Iterations() uint64 {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.iterations
}

// LastResult returns why the current or last run stopped iterating.
func (m *Manager) LastResult() de.Result {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.lastResult
}

// Execute performs a whole run on the calling goroutine. Errors are returned
// and panics are not recovered. Listeners are told about state changes only.
func (m *Manager) Execute() error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	err := m.execute(false)
	m.setRunErr(err)

	return err
}

// Run performs a whole run on the calling goroutine. Errors and panics are
// reported to the listeners through ExecutionError; a successful run is
// reported through ExecutionFinished.
func (m *Manager) Run() {
	if err := m.begin(); err != nil {
		m.notifyError(err)
		return
	}
	defer m.end()

	m.report(m.execute(true))
}

// StartRun performs a run like Run, but on a new goroutine. Use Wait to wait
// for it.
func (m *Manager) StartRun() error {
	if err := m.begin(); err != nil {
		return err
	}

	go func() {
		defer m.end()
		m.report(m.execute(true))
	}()

	return nil
}

// Wait blocks until the current run ends and returns its error. It returns at
// once if no run is in progress.
func (m *Manager) Wait() error {
	m.lock.Lock()
	done := m.done
	m.lock.Unlock()

	<-done

	m.lock.Lock()
	defer m.lock.Unlock()

	return m.runErr
}

// Pause asks the run to pause after the current iteration.
func (m *Manager) Pause() {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.running && !m.stopRequested {
		m.pauseRequested = true
	}
}

// Resume lets a paused run continue.
func (m *Manager) Resume() {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.pauseRequested = false
	m.cond.Broadcast()
}

// Stop asks the run to end after the current iteration. A paused run is
// resumed so that it can end.
func (m *Manager) Stop() {
	m.lock.Lock()
	running := m.running

	if running {
		m.stopRequested = true
		m.pauseRequested = false
		m.cond.Broadcast()
	}
	m.lock.Unlock()

	if running {
		m.director.Stop()
	}
}

func (m *Manager) begin() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.running {
		return ErrAlreadyRunning
	}

	m.running = true
	m.pauseRequested = false
	m.stopRequested = false
	m.iterations = 0
	m.lastResult = de.ResultContinue
	m.runErr = nil
	m.done = make(chan struct{})

	return nil
}

func (m *Manager) end() {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.running = false
	m.state = StateIdle
	close(m.done)
}

func (m *Manager) execute(recoverPanics bool) error {
	m.setState(StateInitializing)

	err := m.guard(recoverPanics, de.PhaseInitialize, m.director.Initialize)
	if err == nil {
		m.setState(StateIterating)
		err = m.guard(recoverPanics, de.PhaseFire, m.iterate)
	}

	m.setState(StateWrapping)
	wrapupErr := m.guard(recoverPanics, de.PhaseWrapup, m.director.Wrapup)
	m.setState(StateIdle)

	return errors.Join(err, wrapupErr)
}

// guard runs fn and, if asked to, turns a panic into an *de.ActorError that
// names the actor being invoked.
func (m *Manager) guard(
	recoverPanics bool,
	phase de.Phase,
	fn func() error,
) (err error) {
	if recoverPanics {
		defer func() {
			if r := recover(); r != nil {
				err = &de.ActorError{
					Actor: m.director.FiringActorName(),
					Tag:   m.director.Now(),
					Phase: phase,
					Err:   fmt.Errorf("panic: %v", r),
				}
			}
		}()
	}

	return fn()
}

func (m *Manager) iterate() error {
	for {
		if !m.waitWhilePaused() {
			m.setLastResult(de.ResultStopRequested)
			return nil
		}

		res, err := m.director.Fire()
		if err != nil {
			return err
		}

		if res.Finished() {
			m.setLastResult(res)
			return nil
		}

		m.lock.Lock()
		m.iterations++
		m.lock.Unlock()
	}
}

// waitWhilePaused blocks while a pause is requested. It returns false if the
// run should stop.
func (m *Manager) waitWhilePaused() bool {
	m.lock.Lock()

	if m.pauseRequested && !m.stopRequested {
		m.lock.Unlock()
		m.setState(StatePaused)
		m.lock.Lock()

		for m.pauseRequested && !m.stopRequested {
			m.cond.Wait()
		}

		if !m.stopRequested {
			m.lock.Unlock()
			m.setState(StateIterating)
			m.lock.Lock()
		}
	}

	stop := m.stopRequested
	m.lock.Unlock()

	return !stop
}

func (m *Manager) setLastResult(res de.Result) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.lastResult = res
}

func (m *Manager) setRunErr(err error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.runErr = err
}

func (m *Manager) setState(s State) {
	m.lock.Lock()
	if m.state == s {
		m.lock.Unlock()
		return
	}

	m.state = s
	listeners := m.listenersLocked()
	m.lock.Unlock()

	for _, l := range listeners {
		l.ManagerStateChanged(m)
	}
}

func (m *Manager) report(err error) {
	m.setRunErr(err)

	if err != nil {
		m.notifyError(err)
		return
	}

	m.lock.Lock()
	listeners := m.listenersLocked()
	m.lock.Unlock()

	for _, l := range listeners {
		l.ExecutionFinished(m)
	}
}

func (m *Manager) notifyError(err error) {
	m.lock.Lock()
	listeners := m.listenersLocked()
	m.lock.Unlock()

	for _, l := range listeners {
		l.ExecutionError(m, err)
	}
}

func (m *Manager) listenersLocked() []Listener {
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)

	return listeners
}
