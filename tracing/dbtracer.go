package tracing

import (
	"fmt"
	"sync"

	"github.com/sarchlab/desim/datarecording"
	"github.com/sarchlab/desim/sim/timing"
	"github.com/tebeka/atexit"
)

// SessionTable is the table that indexes the tracing sessions.
const SessionTable = "trace_sessions"

type firingTableEntry struct {
	ID        string
	Actor     string
	Time      float64
	Microstep uint64
	Tokens    int
	KeepGoing bool
}

type sessionEntry struct {
	TableName    string
	SessionStart float64
	SessionEnd   float64
}

// A TimeTeller can tell the current tag.
type TimeTeller interface {
	Now() timing.Tag
}

// DBTracer is a tracer that stores firings into a database. Firings are only
// stored between EnableTracing and StopTracing, and each such session goes
// into its own table.
type DBTracer struct {
	mu         sync.Mutex
	timeTeller TimeTeller
	backend    datarecording.DataRecorder

	startTime, endTime timing.VTime

	isTracing        bool
	sessionCount     int
	currentTableName string
	sessionStart     timing.VTime
	written          int
}

// NewDBTracer creates a new DBTracer.
func NewDBTracer(
	timeTeller TimeTeller,
	dataRecorder datarecording.DataRecorder,
) *DBTracer {
	dataRecorder.CreateTable(SessionTable, sessionEntry{})

	t := &DBTracer{
		timeTeller: timeTeller,
		backend:    dataRecorder,
		startTime:  timing.NegativeInfinity,
		endTime:    timing.PositiveInfinity,
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

// SetTimeRange limits the stored firings to the ones whose time is in
// [startTime, endTime].
func (t *DBTracer) SetTimeRange(startTime, endTime timing.VTime) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startTime = startTime
	t.endTime = endTime
}

// IsTracing tells if a session is open.
func (t *DBTracer) IsTracing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.isTracing
}

// CurrentTable returns the table of the open session, or the last one.
func (t *DBTracer) CurrentTable() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.currentTableName
}

// Written returns the number of firings stored so far.
func (t *DBTracer) Written() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.written
}

// EnableTracing opens a new session. It does nothing if a session is open.
func (t *DBTracer) EnableTracing() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.isTracing {
		return
	}

	t.isTracing = true
	t.sessionCount++
	t.sessionStart = t.timeTeller.Now().Time
	t.currentTableName = fmt.Sprintf("trace%d", t.sessionCount)
	t.backend.CreateTable(t.currentTableName, firingTableEntry{})
}

// StopTracing closes the open session and flushes the backend.
func (t *DBTracer) StopTracing() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopTracingLocked()
}

func (t *DBTracer) stopTracingLocked() {
	if !t.isTracing {
		return
	}

	t.isTracing = false

	t.backend.InsertData(SessionTable, sessionEntry{
		TableName:    t.currentTableName,
		SessionStart: t.sessionStart.InSec(),
		SessionEnd:   t.timeTeller.Now().Time.InSec(),
	})
	t.backend.Flush()
}

// StartFiring does nothing.
func (t *DBTracer) StartFiring(_ Firing) {}

// EndFiring stores the firing if a session is open and the firing is in the
// time range.
func (t *DBTracer) EndFiring(f Firing) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.isTracing {
		return
	}

	if f.Tag.Time.Before(t.startTime) || f.Tag.Time.After(t.endTime) {
		return
	}

	t.backend.InsertData(t.currentTableName, firingTableEntry{
		ID:        f.ID,
		Actor:     f.Actor,
		Time:      f.Tag.Time.InSec(),
		Microstep: f.Tag.Microstep,
		Tokens:    f.Tokens,
		KeepGoing: f.KeepGoing,
	})
	t.written++
}

// Terminate closes the open session.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopTracingLocked()
}
