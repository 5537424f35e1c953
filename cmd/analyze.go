// cmd/analyze.go
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

// latencyLine matches "[INFO] : [Packet 42], 2400".
var latencyLine = regexp.MustCompile(`\[Packet [^\]]+\], ([0-9.]+)`)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <latency-log>",
	Short: "Summarize the latency and throughput logs of a finished run",
	Long: `Reads a --Latency.log produced by "asa run" and prints the latency
five-number summary plus the mean. If the sibling --Throughput.log exists,
per-receiver throughput is aggregated as well.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		latencies, err := readLatencies(args[0])
		if err != nil {
			return err
		}
		if len(latencies) == 0 {
			return fmt.Errorf("no latency samples in %s", args[0])
		}

		sort.Float64s(latencies)
		q := func(p float64) float64 {
			return stat.Quantile(p, stat.Empirical, latencies, nil)
		}
		fmt.Printf("%g, %g, %g, %g, %g, %g\n",
			latencies[0], q(0.25), q(0.5), q(0.75),
			latencies[len(latencies)-1], stat.Mean(latencies, nil))

		tptPath := strings.TrimSuffix(args[0], "Latency.log") + "Throughput.log"
		if _, err := os.Stat(tptPath); err == nil {
			if err := summarizeThroughput(tptPath); err != nil {
				return err
			}
		}
		return nil
	},
}

// readLatencies extracts the per-packet delays from a latency log.
func readLatencies(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening latency log: %w", err)
	}
	defer f.Close()

	var out []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m := latencyLine.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, scanner.Err()
}

// summarizeThroughput aggregates "receiver, slot" lines: per-receiver packet
// counts normalized by the last receive slot, and the average per timeslot
// per receiver.
func summarizeThroughput(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening throughput log: %w", err)
	}
	defer f.Close()

	perReceiver := make(map[int]float64)
	maxReceiver := 0
	maxSlot := 0.0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.SplitN(scanner.Text(), ",", 2)
		if len(fields) != 2 {
			continue
		}
		rcv, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			continue
		}
		slot, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			continue
		}
		perReceiver[rcv]++
		if rcv > maxReceiver {
			maxReceiver = rcv
		}
		if slot > maxSlot {
			maxSlot = slot
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if maxSlot == 0 {
		return nil
	}

	total := 0.0
	for _, cnt := range perReceiver {
		total += cnt / maxSlot
	}
	avg := total / float64(maxReceiver+1)
	fmt.Printf("avg total acc all receivers, %g, no of packs per timeslot per receiver, %g, xmax, %d, ymax, %g\n",
		total, avg, maxReceiver+1, maxSlot)
	return nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
