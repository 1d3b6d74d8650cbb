package main

import (
	"fmt"

	"github.com/sarchlab/desim/actors"
	"github.com/sarchlab/desim/simulation"
	"github.com/sarchlab/desim/sim/timing"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the feedback demonstration model.",
	Long: "`run` runs a clock whose ticks circulate through a delay, a merge " +
		"and a scale. Settings come from the DESIM_* variables, the env file " +
		"and the flags, with the flags taking precedence.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		envFile, _ := cmd.Flags().GetString("env")

		config, err := simulation.LoadConfig(envFile)
		if err != nil {
			return err
		}

		if err := applyFlags(cmd, &config); err != nil {
			return err
		}

		period, _ := cmd.Flags().GetFloat64("period")
		ticks, _ := cmd.Flags().GetInt("ticks")

		if period <= 0 {
			return fmt.Errorf("period must be positive, got %g", period)
		}

		model := actors.NewFeedbackModel(
			"Feedback", timing.FromSeconds(period), ticks)

		s := simulation.MakeBuilder().WithConfig(config).Build(model.Model)
		defer s.Terminate()

		if err := s.Run(); err != nil {
			return err
		}

		for _, r := range model.Recorder.Records() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%v\n", r.Tag, r.Token)
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "%d firings, %s\n",
			s.FiringCounts().Total(), s.Manager().LastResult())

		if config.Monitor {
			fmt.Fprintln(cmd.ErrOrStderr(), "Monitoring server is running, press Ctrl+C to exit.")
			select {}
		}

		return nil
	},
}

func applyFlags(cmd *cobra.Command, config *simulation.Config) error {
	flags := cmd.Flags()

	if flags.Changed("stop-time") {
		v, _ := flags.GetString("stop-time")

		t, err := simulation.ParseStopTime(v)
		if err != nil {
			return err
		}

		config.StopTime = t
	}

	if flags.Changed("policy") {
		v, _ := flags.GetString("policy")

		p, err := simulation.ParsePostfirePolicy(v)
		if err != nil {
			return err
		}

		config.PostfirePolicy = p
	}

	if flags.Changed("real-time") {
		config.RealTimeScale, _ = flags.GetFloat64("real-time")
	}

	if flags.Changed("monitor") {
		config.Monitor, _ = flags.GetBool("monitor")
	}

	if flags.Changed("port") {
		config.MonitorPort, _ = flags.GetInt("port")
	}

	if flags.Changed("open") {
		config.OpenBrowser, _ = flags.GetBool("open")
	}

	if flags.Changed("record") {
		config.Record, _ = flags.GetBool("record")
	}

	if flags.Changed("output") {
		config.Output, _ = flags.GetString("output")
	}

	if flags.Changed("log-events") {
		config.LogEvents, _ = flags.GetBool("log-events")
	}

	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("env", ".env", "File to read DESIM_* variables from.")
	runCmd.Flags().Float64("period", 1, "Clock period in seconds.")
	runCmd.Flags().Int("ticks", 10, "Number of clock ticks, 0 for unlimited.")
	runCmd.Flags().String("stop-time", "", "Stop time in seconds, inf for none.")
	runCmd.Flags().String("policy", "disable-actor",
		"What to do when an actor asks to stop: disable-actor or stop-model.")
	runCmd.Flags().Float64("real-time", 0,
		"Wall-clock seconds per simulated second, 0 to run as fast as possible.")
	runCmd.Flags().Bool("monitor", false, "Start the monitoring server.")
	runCmd.Flags().Int("port", 0, "Port of the monitoring server.")
	runCmd.Flags().Bool("open", false, "Open the monitor in a browser.")
	runCmd.Flags().Bool("record", false, "Record the firings into SQLite.")
	runCmd.Flags().String("output", "", "Name of the recording file.")
	runCmd.Flags().Bool("log-events", false, "Print every scheduling decision.")
}
