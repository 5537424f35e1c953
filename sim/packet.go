package sim

import (
	"fmt"
	"strconv"
)

// PacketID identifies a packet. Data packets carry a plain sequence number;
// probe ("hello") packets set Hello and render as "hello-<seq>". The receiver
// dispatches on the tag.
type PacketID struct {
	Seq   int64
	Hello bool
}

func (id PacketID) String() string {
	if id.Hello {
		return "hello-" + strconv.FormatInt(id.Seq, 10)
	}
	return strconv.FormatInt(id.Seq, 10)
}

// Packet is the unit of traffic in the simulated network. Each packet is an
// independent cell; there are no multi-packet flows.
//
// Wavelength and DispatchSlot start at -1 and are assigned by the controller,
// wavelength first. SchedulingDelay is set when the packet wins a slot,
// PropagationDelay accumulates 600 ns per AWGR hop, and MiscDelay carries the
// extra penalty added on each reroute.
type Packet struct {
	ID          PacketID
	Src         int
	Dest        int
	ArrivalTime int64

	DispatchSlot     int64
	Wavelength       int
	SchedulingDelay  int64
	PropagationDelay int64
	MiscDelay        int64

	Received bool
	// Transmitter ids this packet already tried and found failed.
	FailedTransmitters []int
}

// NewPacket creates a data packet.
func NewPacket(seq int64, src, dest int, arrivalTime int64) *Packet {
	return &Packet{
		ID:           PacketID{Seq: seq},
		Src:          src,
		Dest:         dest,
		ArrivalTime:  arrivalTime,
		DispatchSlot: -1,
		Wavelength:   -1,
	}
}

// NewHelloPacket creates a probe packet with a preassigned wavelength. The
// controller picks src, dest and wavelength so that deterministic routing
// steers the probe through the link pair under test.
func NewHelloPacket(seq int64, src, wavelength, dest int, t int64) *Packet {
	p := NewPacket(seq, src, dest, t)
	p.ID.Hello = true
	p.Wavelength = wavelength
	return p
}

// TotalDelay returns the end-to-end delay in nanoseconds. It is defined only
// once the packet has been received; asking earlier is an ordering bug.
func (p *Packet) TotalDelay() (int64, error) {
	if !p.Received {
		return 0, &IncompleteTransmissionError{ID: p.ID}
	}
	return p.SchedulingDelay + p.PropagationDelay + p.MiscDelay, nil
}

func (p *Packet) String() string {
	return fmt.Sprintf("Packet{%s %d->%d wv=%d slot=%d}", p.ID, p.Src, p.Dest, p.Wavelength, p.DispatchSlot)
}
