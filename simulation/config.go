package simulation

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sarchlab/desim/sim/de"
	"github.com/sarchlab/desim/sim/timing"
)

// The environment variables read by LoadConfig.
const (
	EnvStopTime       = "DESIM_STOP_TIME"
	EnvRealTimeScale  = "DESIM_REAL_TIME_SCALE"
	EnvPostfirePolicy = "DESIM_POSTFIRE_POLICY"
	EnvMonitor        = "DESIM_MONITOR"
	EnvMonitorPort    = "DESIM_MONITOR_PORT"
	EnvOpenBrowser    = "DESIM_OPEN_BROWSER"
	EnvRecord         = "DESIM_RECORD"
	EnvOutput         = "DESIM_OUTPUT"
	EnvLogEvents      = "DESIM_LOG_EVENTS"
)

// Config holds the settings of a simulation.
type Config struct {
	StopTime       timing.VTime
	RealTimeScale  float64
	PostfirePolicy de.PostfirePolicy
	Monitor        bool
	MonitorPort    int
	OpenBrowser    bool
	Record         bool
	Output         string
	LogEvents      bool
}

// DefaultConfig returns a config that runs until the model runs out of events,
// as fast as possible, without monitoring or recording.
func DefaultConfig() Config {
	return Config{
		StopTime:       timing.PositiveInfinity,
		PostfirePolicy: de.PolicyDisableActor,
	}
}

// LoadConfig starts from the default config and applies the DESIM_*
// variables. The variables are read from the environment first and then from
// the env file, if one is given. A missing env file is not an error.
func LoadConfig(envFile string) (Config, error) {
	fileVars := map[string]string{}

	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("reading %s: %w", envFile, err)
		}

		if err == nil {
			fileVars = vars
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}

		v, ok := fileVars[key]

		return v, ok
	}

	return parseConfig(lookup)
}

func parseConfig(lookup func(string) (string, bool)) (Config, error) {
	c := DefaultConfig()

	var err error

	if v, ok := lookup(EnvStopTime); ok {
		if c.StopTime, err = ParseStopTime(v); err != nil {
			return c, err
		}
	}

	if v, ok := lookup(EnvRealTimeScale); ok {
		c.RealTimeScale, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || c.RealTimeScale < 0 {
			return c, fmt.Errorf("%s: invalid scale %q", EnvRealTimeScale, v)
		}
	}

	if v, ok := lookup(EnvPostfirePolicy); ok {
		if c.PostfirePolicy, err = ParsePostfirePolicy(v); err != nil {
			return c, err
		}
	}

	if v, ok := lookup(EnvMonitorPort); ok {
		c.MonitorPort, err = strconv.Atoi(strings.TrimSpace(v))
		if err != nil || c.MonitorPort < 0 {
			return c, fmt.Errorf("%s: invalid port %q", EnvMonitorPort, v)
		}
	}

	if v, ok := lookup(EnvOutput); ok {
		c.Output = strings.TrimSpace(v)
	}

	flags := []struct {
		key string
		dst *bool
	}{
		{EnvMonitor, &c.Monitor},
		{EnvOpenBrowser, &c.OpenBrowser},
		{EnvRecord, &c.Record},
		{EnvLogEvents, &c.LogEvents},
	}

	for _, f := range flags {
		v, ok := lookup(f.key)
		if !ok {
			continue
		}

		if *f.dst, err = strconv.ParseBool(strings.TrimSpace(v)); err != nil {
			return c, fmt.Errorf("%s: invalid boolean %q", f.key, v)
		}
	}

	return c, nil
}

// ParseStopTime parses a stop time in seconds. An empty string or "inf" means
// no stop time.
func ParseStopTime(s string) (timing.VTime, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "inf" || s == "+inf" {
		return timing.PositiveInfinity, nil
	}

	sec, err := strconv.ParseFloat(s, 64)
	if err != nil || sec < 0 {
		return 0, fmt.Errorf("%s: invalid stop time %q", EnvStopTime, s)
	}

	return timing.FromSeconds(sec), nil
}

// ParsePostfirePolicy parses "disable-actor" or "stop-model".
func ParsePostfirePolicy(s string) (de.PostfirePolicy, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "", de.PolicyDisableActor.String():
		return de.PolicyDisableActor, nil
	case de.PolicyStopModel.String():
		return de.PolicyStopModel, nil
	default:
		return 0, fmt.Errorf("%s: unknown policy %q", EnvPostfirePolicy, s)
	}
}
