// Package simulation assembles a director, a manager and the optional
// recording, event logging and monitoring around a model.
package simulation

import (
	"github.com/sarchlab/desim/datarecording"
	"github.com/sarchlab/desim/monitoring"
	"github.com/sarchlab/desim/sim/de"
	"github.com/sarchlab/desim/sim/execution"
	"github.com/sarchlab/desim/sim/modeling"
	"github.com/sarchlab/desim/tracing"
)

// A Simulation owns everything needed to run a model.
type Simulation struct {
	id     string
	config Config
	model  *modeling.Model

	director     *de.Director
	manager      *execution.Manager
	firingCounts *tracing.FiringCountTracer

	dataRecorder datarecording.DataRecorder
	dbTracer     *tracing.DBTracer
	monitor      *monitoring.Monitor
}

// ID returns the unique identifier of the run.
func (s *Simulation) ID() string {
	return s.id
}

// Config returns the settings the simulation was built with.
func (s *Simulation) Config() Config {
	return s.config
}

// Model returns the simulated model.
func (s *Simulation) Model() *modeling.Model {
	return s.model
}

// Director returns the director that schedules the model.
func (s *Simulation) Director() *de.Director {
	return s.director
}

// Manager returns the manager that runs the director.
func (s *Simulation) Manager() *execution.Manager {
	return s.manager
}

// FiringCounts returns the tracer that counts the firings of every actor.
func (s *Simulation) FiringCounts() *tracing.FiringCountTracer {
	return s.firingCounts
}

// DataRecorder returns the data recorder, or nil if recording is off.
func (s *Simulation) DataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// DBTracer returns the tracer that stores firings, or nil if recording is
// off.
func (s *Simulation) DBTracer() *tracing.DBTracer {
	return s.dbTracer
}

// Monitor returns the monitor, or nil if monitoring is off.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// Run executes the model on the calling goroutine.
func (s *Simulation) Run() error {
	return s.manager.Execute()
}

// Terminate finishes the recording. The simulation must not run afterwards.
func (s *Simulation) Terminate() {
	if s.dbTracer != nil {
		s.dbTracer.StopTracing()
	}

	if s.dataRecorder != nil {
		if err := s.dataRecorder.Close(); err != nil {
			panic(err)
		}
	}
}
