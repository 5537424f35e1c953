package sim

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// RunLogs holds the three per-run result files:
//
//	<prefix>--ASA.log        human-readable event trace
//	<prefix>--Latency.log    "[INFO] : [Packet <id>], <totalDelay_ns>" per received packet
//	<prefix>--Throughput.log "<receiverId>, <receive_slot>" per received packet
//
// A nil *RunLogs is valid and silently discards everything, so tests can run
// without touching the filesystem.
type RunLogs struct {
	Trace      *logrus.Logger
	Latency    *logrus.Logger
	Throughput *logrus.Logger

	// LatencyLogName is the file name the analysis tooling is pointed at.
	LatencyLogName string

	files []*os.File
}

// bracketFormatter renders entries as "[LEVEL] : message".
type bracketFormatter struct{}

func (bracketFormatter) Format(e *logrus.Entry) ([]byte, error) {
	return []byte(fmt.Sprintf("[%s] : %s\n", strings.ToUpper(e.Level.String()), e.Message)), nil
}

// messageFormatter renders the bare message.
type messageFormatter struct{}

func (messageFormatter) Format(e *logrus.Entry) ([]byte, error) {
	return []byte(e.Message + "\n"), nil
}

// NewRunLogs creates the timestamped result files under dir, creating the
// directory if needed.
func NewRunLogs(dir string) (*RunLogs, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating results dir: %w", err)
	}
	prefix := time.Now().Format("2006-01-02 15:04:05.000000")

	l := &RunLogs{LatencyLogName: prefix + "--Latency.log"}

	open := func(suffix string, formatter logrus.Formatter, level logrus.Level) (*logrus.Logger, error) {
		f, err := os.Create(filepath.Join(dir, prefix+suffix))
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", suffix, err)
		}
		l.files = append(l.files, f)
		logger := logrus.New()
		logger.SetOutput(f)
		logger.SetFormatter(formatter)
		logger.SetLevel(level)
		return logger, nil
	}

	var err error
	if l.Trace, err = open("--ASA.log", bracketFormatter{}, logrus.DebugLevel); err != nil {
		return nil, err
	}
	if l.Latency, err = open("--Latency.log", bracketFormatter{}, logrus.InfoLevel); err != nil {
		l.Close()
		return nil, err
	}
	if l.Throughput, err = open("--Throughput.log", messageFormatter{}, logrus.InfoLevel); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// LatencyLine records one received data packet's end-to-end delay.
func (l *RunLogs) LatencyLine(id PacketID, delay int64) {
	if l == nil || l.Latency == nil {
		return
	}
	l.Latency.Infof("[Packet %s], %d", id, delay)
}

// ThroughputLine records one received data packet against its receive slot.
func (l *RunLogs) ThroughputLine(receiverID int, receiveSlot float64) {
	if l == nil || l.Throughput == nil {
		return
	}
	l.Throughput.Infof("%d, %f", receiverID, receiveSlot)
}

// Close flushes and closes the underlying files.
func (l *RunLogs) Close() {
	if l == nil {
		return
	}
	for _, f := range l.files {
		f.Close()
	}
	l.files = nil
}
