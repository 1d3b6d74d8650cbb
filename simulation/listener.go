package simulation

import (
	"log"

	"github.com/sarchlab/desim/sim/execution"
)

// logListener reports the progress of a manager into a logger.
type logListener struct {
	logger *log.Logger
}

func newLogListener(logger *log.Logger) *logListener {
	return &logListener{logger: logger}
}

func (l *logListener) ExecutionError(m *execution.Manager, err error) {
	l.logger.Printf("%s: execution error: %v", m.Name(), err)
}

func (l *logListener) ExecutionFinished(m *execution.Manager) {
	l.logger.Printf("%s: finished after %d iterations, %s",
		m.Name(), m.Iterations(), m.LastResult())
}

func (l *logListener) ManagerStateChanged(m *execution.Manager) {
	l.logger.Printf("%s: %s", m.Name(), m.State())
}
