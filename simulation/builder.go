package simulation

import (
	"fmt"
	"log"
	"os"

	"github.com/sarchlab/desim/datarecording"
	"github.com/sarchlab/desim/monitoring"
	"github.com/sarchlab/desim/sim/de"
	"github.com/sarchlab/desim/sim/execution"
	"github.com/sarchlab/desim/sim/id"
	"github.com/sarchlab/desim/sim/modeling"
	"github.com/sarchlab/desim/sim/timing"
	"github.com/sarchlab/desim/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	config      Config
	eventLogger *log.Logger
}

// MakeBuilder creates a new builder with the default config.
func MakeBuilder() Builder {
	return Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces all the settings with the config.
func (b Builder) WithConfig(c Config) Builder {
	b.config = c
	return b
}

// WithStopTime sets the time after which the simulation stops.
func (b Builder) WithStopTime(t timing.VTime) Builder {
	b.config.StopTime = t
	return b
}

// WithRealTime makes the simulation wait for the wall clock so that one
// simulated second takes scale wall-clock seconds.
func (b Builder) WithRealTime(scale float64) Builder {
	b.config.RealTimeScale = scale
	return b
}

// WithPostfirePolicy sets what happens when an actor asks to stop.
func (b Builder) WithPostfirePolicy(p de.PostfirePolicy) Builder {
	b.config.PostfirePolicy = p
	return b
}

// WithMonitoring turns on the monitoring server. Port 0 picks a random port.
func (b Builder) WithMonitoring(port int) Builder {
	b.config.Monitor = true
	b.config.MonitorPort = port

	return b
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.config.Monitor = false
	b.config.MonitorPort = 0
	b.config.OpenBrowser = false

	return b
}

// WithRecording stores the firings into an SQLite file. An empty output picks
// a unique file name.
func (b Builder) WithRecording(output string) Builder {
	b.config.Record = true
	b.config.Output = output

	return b
}

// WithEventLog prints every scheduling decision into the logger.
func (b Builder) WithEventLog(logger *log.Logger) Builder {
	b.config.LogEvents = true
	b.eventLogger = logger

	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.config.Monitor && b.config.MonitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.config.Monitor && b.config.OpenBrowser {
		panic("cannot open a browser when monitoring is disabled")
	}

	if !b.config.Record && b.config.Output != "" {
		panic("output cannot be set when recording is disabled")
	}
}

// Build builds a simulation that runs the model.
func (b Builder) Build(model *modeling.Model) *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		id:     id.RunID(),
		config: b.config,
		model:  model,
	}

	directorBuilder := de.MakeBuilder().
		WithStopTime(b.config.StopTime).
		WithPostfirePolicy(b.config.PostfirePolicy)
	if b.config.RealTimeScale > 0 {
		directorBuilder = directorBuilder.WithRealTime(b.config.RealTimeScale)
	}

	s.director = directorBuilder.Build(model.Name()+".Director", model)
	s.manager = execution.NewManager(model.Name()+".Manager", s.director)
	s.manager.AddListener(newLogListener(log.New(os.Stderr, "", log.LstdFlags)))

	s.firingCounts = tracing.NewFiringCountTracer(nil)
	tracing.CollectTrace(s.director, s.firingCounts)

	if b.config.Record {
		b.buildRecording(s)
	}

	if b.config.LogEvents {
		logger := b.eventLogger
		if logger == nil {
			logger = log.New(os.Stdout, "", 0)
		}

		s.director.AcceptHook(tracing.NewEventLogger(logger))
	}

	if b.config.Monitor {
		b.buildMonitor(s)
	}

	return s
}

func (b Builder) buildRecording(s *Simulation) {
	output := b.config.Output
	if output == "" {
		output = "desim_sim_" + s.id
	}

	s.dataRecorder = datarecording.New(output)
	s.dbTracer = tracing.NewDBTracer(s.director, s.dataRecorder)
	tracing.CollectTrace(s.director, s.dbTracer)
	s.dbTracer.EnableTracing()
}

func (b Builder) buildMonitor(s *Simulation) {
	s.monitor = monitoring.NewMonitor().WithPortNumber(b.config.MonitorPort)
	s.monitor.RegisterExecution(s.manager)
	s.monitor.RegisterDirector(s.director)
	s.monitor.StartServer()

	if b.config.OpenBrowser {
		if err := s.monitor.OpenInBrowser(); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open the browser: %v\n", err)
		}
	}
}
