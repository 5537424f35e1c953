package sim

import "github.com/sirupsen/logrus"

// Config carries everything needed to build a network.
type Config struct {
	N             int
	Rate          float64 // packets per nanosecond, network-wide
	Slot          int64   // slot duration in nanoseconds
	HelloInterval int64
	Runtime       int64 // nanoseconds of generated traffic
	Seed          int64

	RerouteFlag       int
	LegacyHelloDemote bool

	LinkFailures []LinkFailureSpec

	// Logs is optional; a nil value disables the result files.
	Logs *RunLogs
}

// Network owns every component of the ASA fabric and wires them together by
// index: N space switches, N stage-1 and N stage-3 AWGRs, and N² transmitters
// and receivers (transceiver i·N+j sits on port j of AWGR i).
type Network struct {
	N       int
	Rate    float64
	Slot    int64
	Runtime int64

	EventGenerator *EventGenerator
	Controller     *Controller

	Transmitters    []*Transmitter
	Receivers       []*Receiver
	StageOneAWGRs   []*AWGR
	StageThreeAWGRs []*AWGR
	SpaceSwitches   []*SpaceSwitch

	GeneratedPkts int
	ReceivedPkts  int
	OverflowDrop  int
	LinkDrop      int

	RNG       *PartitionedRNG
	Telemetry *Telemetry
	Logs      *RunLogs
}

// NewNetwork builds and wires a network from cfg.
func NewNetwork(cfg Config) (*Network, error) {
	net := &Network{
		N:         cfg.N,
		Rate:      cfg.Rate,
		Slot:      cfg.Slot,
		Runtime:   cfg.Runtime,
		RNG:       NewPartitionedRNG(cfg.Seed),
		Telemetry: NewTelemetry(),
		Logs:      cfg.Logs,
	}

	net.EventGenerator = NewEventGenerator(net, cfg.Rate, cfg.Runtime, cfg.LinkFailures)
	net.Controller = NewController(net, cfg.HelloInterval)
	net.Controller.RerouteFlag = cfg.RerouteFlag
	net.Controller.LegacyHelloDemote = cfg.LegacyHelloDemote

	for i := 0; i < cfg.N; i++ {
		net.SpaceSwitches = append(net.SpaceSwitches, NewSpaceSwitch(cfg.N, i, cfg.Slot, net))
		one, err := NewAWGR(cfg.N, i, StageOne, net)
		if err != nil {
			return nil, err
		}
		three, err := NewAWGR(cfg.N, i, StageThree, net)
		if err != nil {
			return nil, err
		}
		net.StageOneAWGRs = append(net.StageOneAWGRs, one)
		net.StageThreeAWGRs = append(net.StageThreeAWGRs, three)
		for j := 0; j < cfg.N; j++ {
			id := i*cfg.N + j
			net.Transmitters = append(net.Transmitters, NewTransmitter(id, one, j, net))
			net.Receivers = append(net.Receivers, NewReceiver(id, three, j, net))
		}
	}
	return net, nil
}

// Run drives the event stream through the network in on-demand mode.
func (n *Network) Run() error {
	logrus.Infof("Initialized ASA Network with N = %d, Arrival Rate = %g, Slot Duration = %d, Runtime = %d",
		n.N, n.Rate, n.Slot, n.Runtime)
	return n.EventGenerator.OnDemandDispatch()
}

// LogSummary reports the end-of-run counters.
func (n *Network) LogSummary() {
	logrus.Infof("Generated Packets %d", n.GeneratedPkts)
	logrus.Infof("Received Packets %d", n.ReceivedPkts)
	logrus.Infof("Overflow Drops %d", n.OverflowDrop)
	logrus.Infof("Link Drops %d", n.LinkDrop)
}

// QueuedPackets counts packets still waiting at the space switches.
func (n *Network) QueuedPackets() int {
	total := 0
	for _, sw := range n.SpaceSwitches {
		total += sw.Queue.Len()
	}
	return total
}

func (n *Network) RecordGenerated() {
	n.GeneratedPkts++
	n.Telemetry.GeneratedPackets.Inc()
}

func (n *Network) RecordReceived() {
	n.ReceivedPkts++
	n.Telemetry.ReceivedPackets.Inc()
}

func (n *Network) RecordOverflowDrop() {
	n.OverflowDrop++
	n.Telemetry.OverflowDrops.Inc()
}

func (n *Network) RecordLinkDrop() {
	n.LinkDrop++
	n.Telemetry.LinkDrops.Inc()
}

// tracef writes a line to the run's event trace, falling back to debug-level
// engine logging when no result files are attached.
func (n *Network) tracef(format string, args ...any) {
	if n.Logs != nil && n.Logs.Trace != nil {
		n.Logs.Trace.Infof(format, args...)
		return
	}
	logrus.Debugf(format, args...)
}
