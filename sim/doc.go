// Package sim provides the core discrete-event simulation engine for an
// ASA (AWGR - space switch - AWGR) three-stage optical data-center network
// and its centralized fault-tolerant controller.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - packet.go: the traffic unit and its delay bookkeeping
//   - eventgen.go: the virtual-time event stream (Poisson arrivals, timeslot
//     boundaries, injected link failures) and its dispatch loop
//   - controller.go: per-timeslot scheduling against the request matrix
//
// The controller is split across three files by concern:
//   - controller.go: wavelength/switch assignment, slot allotment, matching
//   - controller_fault.go: probe ("hello") scheduling, frequency bands,
//     anomaly counting and fault declaration
//   - controller_reroute.go: ResiConnect and NNT rerouting around failures
//
// The data plane (awgr.go, spaceswitch.go, transmitter.go, receiver.go) is
// passive: packets are moved along it by direct calls once scheduled, and the
// only decisions it takes are wavelength-deterministic port selection and
// failed-port drops.
//
// All components are owned by the Network (network.go) and reference each
// other through it. The whole simulation is single-threaded and driven by a
// strictly ordered virtual clock in integer nanoseconds; a fixed master seed
// makes a run fully deterministic (rng.go).
package sim
