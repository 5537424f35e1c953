package sim

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Telemetry exports the run counters on a private Prometheus registry. The
// CLI can dump them in the text exposition format at the end of a run.
type Telemetry struct {
	registry *prometheus.Registry

	GeneratedPackets prometheus.Counter
	ReceivedPackets  prometheus.Counter
	OverflowDrops    prometheus.Counter
	LinkDrops        prometheus.Counter
	HelloSent        prometheus.Counter
	HelloTimeouts    prometheus.Counter
	LateHellos       prometheus.Counter
	FaultsDeclared   prometheus.Counter
	Reroutes         prometheus.Counter
}

// NewTelemetry creates the counter set on a fresh registry.
func NewTelemetry() *Telemetry {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Telemetry{
		registry: reg,
		GeneratedPackets: f.NewCounter(prometheus.CounterOpts{
			Name: "asa_generated_packets_total",
			Help: "Data packets produced by the traffic generator.",
		}),
		ReceivedPackets: f.NewCounter(prometheus.CounterOpts{
			Name: "asa_received_packets_total",
			Help: "Data packets terminated at a receiver.",
		}),
		OverflowDrops: f.NewCounter(prometheus.CounterOpts{
			Name: "asa_overflow_drops_total",
			Help: "Packets dropped at a full transmitter buffer.",
		}),
		LinkDrops: f.NewCounter(prometheus.CounterOpts{
			Name: "asa_link_drops_total",
			Help: "Packets dropped at an AWGR port with a failed link.",
		}),
		HelloSent: f.NewCounter(prometheus.CounterOpts{
			Name: "asa_hello_packets_total",
			Help: "Probe packets dispatched by the controller.",
		}),
		HelloTimeouts: f.NewCounter(prometheus.CounterOpts{
			Name: "asa_hello_timeouts_total",
			Help: "Probe packets that expired before receipt.",
		}),
		LateHellos: f.NewCounter(prometheus.CounterOpts{
			Name: "asa_hello_late_arrivals_total",
			Help: "Probe packets received after their timeout.",
		}),
		FaultsDeclared: f.NewCounter(prometheus.CounterOpts{
			Name: "asa_link_faults_declared_total",
			Help: "Links declared failed by fault tracking.",
		}),
		Reroutes: f.NewCounter(prometheus.CounterOpts{
			Name: "asa_packet_reroutes_total",
			Help: "Packets redirected around a failed link.",
		}),
	}
}

// WriteTextfile dumps the registry in the Prometheus text format.
func (t *Telemetry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, t.registry)
}
