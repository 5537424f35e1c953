// cmd/root.go
package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/resiconnect/asa-sim/sim"
)

var (
	nParam        int
	helloInterval int64
	rate          float64
	slotDuration  int64
	runtimeNs     int64
	seed          int64
	logLevel      string
	resultsDir    string
	scenarioPath  string
	metricsOut    string
	reroutePolicy string
	legacyDemote  bool
	noLogs        bool
)

var rootCmd = &cobra.Command{
	Use:   "asa",
	Short: "Discrete-event simulator for ASA three-stage optical networks",
}

var runCmd = &cobra.Command{
	Use:   "run [N] [HELLO_INTERVAL]",
	Short: "Run an ASA network simulation",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q", logLevel)
		}
		logrus.SetLevel(level)

		scenario, err := buildScenario(args)
		if err != nil {
			return err
		}
		cfg := scenario.Config()

		var logs *sim.RunLogs
		if !noLogs {
			logs, err = sim.NewRunLogs(resultsDir)
			if err != nil {
				return err
			}
			defer logs.Close()
			cfg.Logs = logs
		}

		logrus.Infof("Starting ASA simulation with N=%d, hello interval=%d, rate=%g pkts/ns, slot=%dns, runtime=%dns",
			cfg.N, cfg.HelloInterval, cfg.Rate, cfg.Slot, cfg.Runtime)

		net, err := sim.NewNetwork(cfg)
		if err != nil {
			return err
		}
		if err := net.Run(); err != nil {
			logrus.Errorf("Simulation aborted: %v", err)
			return err
		}
		net.LogSummary()

		if metricsOut != "" {
			if err := net.Telemetry.WriteTextfile(metricsOut); err != nil {
				return fmt.Errorf("writing metrics: %w", err)
			}
		}
		if logs != nil {
			// The latency log name feeds the analysis tooling.
			fmt.Println(logs.LatencyLogName)
		}
		return nil
	},
}

// buildScenario merges the scenario file, flags and positional arguments,
// with positionals taking precedence as in the original CLI.
func buildScenario(args []string) (*sim.Scenario, error) {
	scenario := &sim.Scenario{}
	if scenarioPath != "" {
		loaded, err := sim.LoadScenario(scenarioPath)
		if err != nil {
			return nil, err
		}
		scenario = loaded
	}
	if nParam != 0 {
		scenario.N = nParam
	}
	if helloInterval != 0 {
		scenario.HelloInterval = helloInterval
	}
	if rate != 0 {
		scenario.Rate = rate
	}
	if slotDuration != 0 {
		scenario.SlotDuration = slotDuration
	}
	if runtimeNs != 0 {
		scenario.Runtime = runtimeNs
	}
	if seed != 0 {
		scenario.Seed = seed
	}
	if reroutePolicy != "" {
		scenario.ReroutePolicy = reroutePolicy
	}
	if legacyDemote {
		scenario.LegacyHelloDemote = true
	}
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("invalid N %q", args[0])
		}
		scenario.N = n
	}
	if len(args) > 1 {
		h, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid hello interval %q", args[1])
		}
		scenario.HelloInterval = h
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return scenario, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runCmd.Flags().IntVar(&nParam, "n", 0, "Network scale parameter (0 = default 11)")
	runCmd.Flags().Int64Var(&helloInterval, "hello", 0, "Hello interval / slowest probe band (0 = default 3)")
	runCmd.Flags().Float64Var(&rate, "rate", 0, "Poisson arrival rate in packets per ns (0 = 0.003333333*N^2)")
	runCmd.Flags().Int64Var(&slotDuration, "slot", 0, "Time slot duration in ns (0 = default 1200)")
	runCmd.Flags().Int64Var(&runtimeNs, "runtime", 0, "Traffic generation horizon in ns (0 = default 10000000)")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "Master random seed")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&resultsDir, "results", "results", "Directory for the run's log files")
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "YAML scenario file (parameters and injected link failures)")
	runCmd.Flags().StringVar(&metricsOut, "metrics-out", "", "Write Prometheus text-format counters to this file")
	runCmd.Flags().StringVar(&reroutePolicy, "reroute", "", "Reroute policy: resiconnect (default) or nnt")
	runCmd.Flags().BoolVar(&legacyDemote, "legacy-hello-demote", false, "Replicate the legacy probe-receipt band demotion")
	runCmd.Flags().BoolVar(&noLogs, "no-logs", false, "Disable the per-run result files")

	rootCmd.AddCommand(runCmd)
}
