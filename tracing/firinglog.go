package tracing

import "sync"

// A FiringLog keeps every completed firing in memory, in firing order.
type FiringLog struct {
	lock    sync.Mutex
	firings []Firing
}

// NewFiringLog creates an empty FiringLog.
func NewFiringLog() *FiringLog {
	return &FiringLog{}
}

// StartFiring does nothing.
func (l *FiringLog) StartFiring(_ Firing) {}

// EndFiring appends the firing to the log.
func (l *FiringLog) EndFiring(f Firing) {
	l.lock.Lock()
	l.firings = append(l.firings, f)
	l.lock.Unlock()
}

// Firings returns a copy of the log.
func (l *FiringLog) Firings() []Firing {
	l.lock.Lock()
	defer l.lock.Unlock()

	return append([]Firing(nil), l.firings...)
}

// Strings returns the log as "Actor@(time, microstep)" entries.
func (l *FiringLog) Strings() []string {
	l.lock.Lock()
	defer l.lock.Unlock()

	out := make([]string, len(l.firings))
	for i, f := range l.firings {
		out[i] = f.String()
	}

	return out
}

// Reset empties the log.
func (l *FiringLog) Reset() {
	l.lock.Lock()
	l.firings = nil
	l.lock.Unlock()
}
