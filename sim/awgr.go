package sim

import "fmt"

// AWGR stages.
const (
	StageOne   = 1
	StageThree = 3
)

// PropagationDelayNs is the fixed latency added per AWGR hop.
const PropagationDelayNs = 600

// AWGR is a passive arrayed-waveguide grating router with N ports: output
// port = (input port + wavelength) mod N. Stage-1 AWGRs forward to the space
// switches, stage-3 AWGRs terminate at the receivers. A packet routed onto a
// failed outgoing port is dropped; data packets are counted as link drops,
// while a dropped probe is only traced and later expires as a probe timeout.
type AWGR struct {
	N     int
	ID    int
	Stage int

	failedPorts map[int]struct{}
	net         *Network
}

// NewAWGR creates an AWGR. Stage must be 1 or 3.
func NewAWGR(n, id, stage int, net *Network) (*AWGR, error) {
	if stage != StageOne && stage != StageThree {
		return nil, &ConfigError{
			Component: "awgr",
			Detail:    fmt.Sprintf("invalid stage %d for AWGR %d, must be 1 or 3", stage, id),
		}
	}
	return &AWGR{
		N:           n,
		ID:          id,
		Stage:       stage,
		failedPorts: make(map[int]struct{}),
		net:         net,
	}, nil
}

// Receive routes pkt from inPort to the wavelength-determined output port,
// dropping it if the outgoing link has failed.
func (a *AWGR) Receive(inPort int, pkt *Packet) {
	a.net.tracef("[Packet %s] : Reached Stage %d AWGR with ID = %d", pkt.ID, a.Stage, a.ID)
	outPort := (inPort + pkt.Wavelength) % a.N
	if !a.LinkStatus(outPort) {
		a.net.tracef("[Packet %s] : Being dropped at Stage %d AWGR with ID = %d", pkt.ID, a.Stage, a.ID)
		if !pkt.ID.Hello {
			a.net.RecordLinkDrop()
		}
		return
	}
	a.SendPacket(outPort, pkt)
}

// SendPacket forwards pkt out of outPort, accumulating propagation delay.
func (a *AWGR) SendPacket(outPort int, pkt *Packet) {
	pkt.PropagationDelay += PropagationDelayNs
	if a.Stage == StageOne {
		a.net.SpaceSwitches[outPort].Receive(a.ID, pkt)
		return
	}
	a.net.Receivers[a.ID*a.N+outPort].Receive(pkt)
}

// LinkFailure marks an outgoing port as failed.
func (a *AWGR) LinkFailure(port int) {
	a.failedPorts[port] = struct{}{}
}

// LinkStatus reports whether the outgoing link on port is healthy.
func (a *AWGR) LinkStatus(port int) bool {
	_, failed := a.failedPorts[port]
	return !failed
}
