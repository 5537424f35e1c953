package sim

import (
	"math/rand"

	"github.com/sirupsen/logrus"
)

// EventGenerator produces the virtual-time event stream driving the network:
// Poisson packet arrivals, timeslot boundaries and injected link failures.
// Among the three candidate next events the one with the earliest timestamp
// wins; ties break in that listed order. The eventset-end marker is last.
//
// Two modes are supported: OnDemandDispatch synthesizes and dispatches events
// one at a time without materializing them, GenerateEventSet enumerates the
// stream into EventSet for later DispatchEvents.
type EventGenerator struct {
	N        int
	Rate     float64 // packets per nanosecond, network-wide
	Runtime  int64   // nanoseconds of generated traffic
	TimeSlot int64

	EventSet   []Event
	EventCount map[string]int

	// Injected failures, consumed in order. LinkFailCount is the declared
	// budget fault tracking is allowed to discover.
	LinkFailures  []LinkFailureSpec
	LinkFailCount int

	net *Network
	rng *rand.Rand

	nextFailureIdx int
}

// NewEventGenerator creates a generator bound to net, drawing all randomness
// from the traffic subsystem stream.
func NewEventGenerator(net *Network, rate float64, runtime int64, failures []LinkFailureSpec) *EventGenerator {
	return &EventGenerator{
		N:             net.N,
		Rate:          rate,
		Runtime:       runtime,
		TimeSlot:      net.Slot,
		EventCount:    make(map[string]int),
		LinkFailures:  failures,
		LinkFailCount: len(failures),
		net:           net,
		rng:           net.RNG.ForSubsystem(SubsystemTraffic),
	}
}

// InsertEvent appends ev to the event set and bumps its category counter.
func (g *EventGenerator) InsertEvent(ev Event) {
	g.EventCount[ev.Category()]++
	g.EventSet = append(g.EventSet, ev)
}

// NextFailure pops the next injected link failure, if any.
func (g *EventGenerator) NextFailure() (LinkFailureSpec, bool) {
	if g.nextFailureIdx >= len(g.LinkFailures) {
		return LinkFailureSpec{}, false
	}
	f := g.LinkFailures[g.nextFailureIdx]
	g.nextFailureIdx++
	return f, true
}

// EarliestOccurrence returns which of the candidate next events fires first:
// 1 for the packet arrival, 2 for the slot boundary, 3 for the link failure.
// Ties break in that order.
func (g *EventGenerator) EarliestOccurrence(pktArrival, slotEnd float64, failure int64, haveFailure bool) int {
	if haveFailure {
		if pktArrival <= slotEnd && pktArrival <= float64(failure) {
			return 1
		}
		if slotEnd <= float64(failure) {
			return 2
		}
		return 3
	}
	if pktArrival <= slotEnd {
		return 1
	}
	return 2
}

// samplePair draws a distinct (src, dest) pair uniformly from [0, N²).
func (g *EventGenerator) samplePair() (int, int) {
	n2 := g.N * g.N
	src := g.rng.Intn(n2)
	dest := g.rng.Intn(n2 - 1)
	if dest >= src {
		dest++
	}
	return src, dest
}

// GenerateEventSet enumerates the event stream into EventSet. A non-empty set
// is left untouched unless override is set.
func (g *EventGenerator) GenerateEventSet(override bool) {
	if len(g.EventSet) > 0 && !override {
		return
	}
	g.EventSet = g.EventSet[:0]
	g.EventCount = make(map[string]int)
	g.generate(g.InsertEvent, func(Event) error { return nil })
}

// DispatchEvents executes every event in the generated set in order.
func (g *EventGenerator) DispatchEvents() error {
	for _, ev := range g.EventSet {
		if err := ev.Execute(g.net); err != nil {
			return err
		}
	}
	return nil
}

// OnDemandDispatch generates events and dispatches them immediately without
// enumerating them. This is the mode the CLI runs in.
func (g *EventGenerator) OnDemandDispatch() error {
	return g.generate(func(ev Event) {
		if ev.Category() == EventPacketArrival {
			g.net.RecordGenerated()
		}
	}, func(ev Event) error {
		return ev.Execute(g.net)
	})
}

// generate runs the merge loop shared by both modes. onEmit is called for
// every synthesized event before dispatch is invoked; a dispatch error stops
// generation.
func (g *EventGenerator) generate(onEmit func(Event), dispatch func(Event) error) error {
	timeCtr := g.rng.ExpFloat64() / g.Rate
	idCtr := int64(1)
	slotCtr := int64(timeCtr) / g.TimeSlot
	failEv, haveFail := g.NextFailure()

	for timeCtr < float64(g.Runtime) {
		slotEnd := float64((slotCtr + 1) * g.TimeSlot)
		switch g.EarliestOccurrence(timeCtr, slotEnd, failEv.Time, haveFail) {
		case 1:
			src, dest := g.samplePair()
			p := NewPacket(idCtr, src, dest, int64(timeCtr))
			ev := NewPacketArrivalEvent(int64(timeCtr), p)
			onEmit(ev)
			if err := dispatch(ev); err != nil {
				return err
			}
			timeCtr += g.rng.ExpFloat64() / g.Rate
			idCtr++
		case 2:
			ev := NewTimeslotEndEvent((slotCtr+1)*g.TimeSlot, slotCtr)
			onEmit(ev)
			if err := dispatch(ev); err != nil {
				return err
			}
			slotCtr = int64(timeCtr) / g.TimeSlot
		case 3:
			ev := NewLinkFailureEvent(failEv.Time, failEv.AWGR, failEv.Port)
			onEmit(ev)
			if err := dispatch(ev); err != nil {
				return err
			}
			logrus.Infof("Failure at %d.", failEv.Time)
			failEv, haveFail = g.NextFailure()
		}
	}

	ev := &EventSetEndEvent{}
	onEmit(ev)
	return dispatch(ev)
}
