package sim

import "math/rand"

// Controller tuning constants.
const (
	// MaxTransmissionCount caps per-wavelength transmissions of one
	// transmitter within a slot; the per-transmitter cap is this times N.
	MaxTransmissionCount = 1
	// PrevExamineSlots is the window m of past slots used for the rerouting
	// activity averages.
	PrevExamineSlots = 10
	// ReceiveThreshold is how many slots a probe may stay pending before it
	// counts as timed out.
	ReceiveThreshold = 10
	// AnomalyThreshold is the number of consecutive probe timeouts that
	// declares a link failed.
	AnomalyThreshold = 10
	// RerouteDelayNs is the penalty added to a packet each time it is
	// redirected onto another transmitter or receiver.
	RerouteDelayNs = 1200
)

// Reroute policies.
const (
	RerouteResiConnect = 0
	RerouteNNT         = 1
)

// Link identifies a fabric link. Stage-1 links connect stage-1 AWGR A to
// space switch B; stage-3 links connect space switch A to stage-3 AWGR B.
type Link struct {
	Stage int
	A     int
	B     int
}

// pendingHello tracks a dispatched probe until it is received or times out.
type pendingHello struct {
	Freq          int64
	SpaceSwitchID int
	InLink        int
	OutLink       int
	DispatchSlot  int64
}

// routeCache memoizes ComputeRoutes output per source AWGR, invalidated when
// the failed-links set changes (tracked by version, spec-equivalent to set
// equality).
type routeCache struct {
	version uint64
	routes  []float64
	data    []pairwiseCounts
}

type pairwiseCounts struct {
	perDest map[int]int
	total   int
}

// Controller is the centralized brain of the network: it assigns wavelengths
// and space switches at packet arrival, matches the per-slot request matrix
// to a crossbar permutation at every timeslot boundary, probes link pairs for
// liveness, declares faults, and rebalances traffic around them.
type Controller struct {
	N    int
	Slot int64
	// CurrentSlot tracks the slot of the most recent packet arrival.
	CurrentSlot   int64
	HelloInterval int64

	// RerouteFlag selects the redirection policy: ResiConnect by default.
	RerouteFlag int
	// LegacyHelloDemote replicates the original demotion behavior on probe
	// receipt, which files the in-link under both stage vectors of the
	// slower band. Off by default; see DESIGN.md.
	LegacyHelloDemote bool

	FailedLinks        map[Link]struct{}
	failedLinksVersion uint64
	FaultFoundAt       int64

	// FaultFreq indexes the probe frequency bands: band 0 holds declared
	// failed links, band HelloInterval is the initial slowest class.
	FaultFreq map[int64]*LinkTracking

	PendingHellos map[PacketID]*pendingHello
	AnomalyCount  map[Link]int
	helloCtr      int64

	// previousLinkPair[sID][inLink] is the out-link this in-link was paired
	// with at the last probing tick, to avoid immediate repeats.
	previousLinkPair [][]int

	alternateRoutes map[int]*routeCache

	net        *Network
	probeRNG   *rand.Rand
	rerouteRNG *rand.Rand
}

// LinkTracking holds, per space switch, the adjacent stage-1 and stage-3
// links that probe at one frequency class.
type LinkTracking struct {
	StageOneLinks   []map[int]struct{}
	StageThreeLinks []map[int]struct{}
}

func newLinkTracking(n int) *LinkTracking {
	lt := &LinkTracking{
		StageOneLinks:   make([]map[int]struct{}, n),
		StageThreeLinks: make([]map[int]struct{}, n),
	}
	for i := 0; i < n; i++ {
		lt.StageOneLinks[i] = make(map[int]struct{})
		lt.StageThreeLinks[i] = make(map[int]struct{})
	}
	return lt
}

// NewController creates a controller with every link in the slowest band.
func NewController(net *Network, helloInterval int64) *Controller {
	c := &Controller{
		N:               net.N,
		Slot:            net.Slot,
		HelloInterval:   helloInterval,
		FailedLinks:     make(map[Link]struct{}),
		FaultFreq:       make(map[int64]*LinkTracking),
		PendingHellos:   make(map[PacketID]*pendingHello),
		AnomalyCount:    make(map[Link]int),
		helloCtr:        1,
		alternateRoutes: make(map[int]*routeCache),
		net:             net,
		probeRNG:        net.RNG.ForSubsystem(SubsystemProbes),
		rerouteRNG:      net.RNG.ForSubsystem(SubsystemReroute),
	}
	for f := int64(0); f <= helloInterval; f++ {
		c.FaultFreq[f] = newLinkTracking(c.N)
	}
	initial := c.FaultFreq[helloInterval]
	for s := 0; s < c.N; s++ {
		for l := 0; l < c.N; l++ {
			initial.StageOneLinks[s][l] = struct{}{}
			initial.StageThreeLinks[s][l] = struct{}{}
		}
	}
	c.previousLinkPair = make([][]int, c.N)
	for i := range c.previousLinkPair {
		row := make([]int, c.N)
		for j := range row {
			row[j] = -1
		}
		c.previousLinkPair[i] = row
	}
	return c
}

// EventTrigger handles the controller-facing trigger events. On a timeslot
// boundary fault tracking runs first, so freshly dispatched probes sit at the
// head of the space-switch queues when the closing slot is allotted.
func (c *Controller) EventTrigger(ev Event) error {
	switch ev.Category() {
	case EventTimeslotEnd:
		slotNo := ev.(*TimeslotEndEvent).SlotNo
		c.net.tracef("[Timeslot %d] : Timeslot ENDING....", slotNo)
		if err := c.FaultTracking(c.CurrentSlot); err != nil {
			return err
		}
		c.AllotSlots(slotNo)
		c.net.tracef("[Timeslot %d] : Timeslot ENDED, Next Timeslot STARTING...", slotNo)
	case EventSetEnd:
		c.ClearQueue(c.CurrentSlot)
	}
	return nil
}

// pmod is the non-negative remainder of a mod m.
func pmod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}

// EnqueueScheduler assigns a wavelength and a space switch to an arriving
// packet and queues it for slot allotment. If either leg of the chosen path
// has been declared failed, the packet is redirected instead (new source or,
// under ResiConnect receiver redirection, new destination) and re-enters
// through the transmitter at its source.
func (c *Controller) EnqueueScheduler(pkt *Packet) {
	c.CurrentSlot = pkt.ArrivalTime / c.Slot

	mSrc := pkt.Src % c.N
	mDest := pkt.Dest % c.N

	diff := mDest - mSrc
	if pmod(diff, 2) == 0 {
		pkt.Wavelength = pmod(diff/2, c.N)
	} else {
		pkt.Wavelength = pmod((c.N+diff)/2, c.N)
	}

	sum := mDest + mSrc
	var sSwitchID int
	if sum%2 == 0 {
		sSwitchID = (sum / 2) % c.N
	} else {
		sSwitchID = ((sum + c.N) / 2) % c.N
	}

	stageOne := Link{Stage: StageOne, A: pkt.Src / c.N, B: sSwitchID}
	stageThree := Link{Stage: StageThree, A: sSwitchID, B: pkt.Dest / c.N}
	_, s1Failed := c.FailedLinks[stageOne]
	_, s3Failed := c.FailedLinks[stageThree]
	if s1Failed || s3Failed {
		pkt.FailedTransmitters = append(pkt.FailedTransmitters, pkt.Src)
		if c.RerouteFlag == RerouteNNT {
			pkt.Src = c.AdjAlternateTransmitter(pkt)
		} else {
			c.ResiRedirect(pkt)
		}
		pkt.MiscDelay += RerouteDelayNs
		c.net.Telemetry.Reroutes.Inc()
		c.net.tracef("[Packet %s] : Being re-routed through Transmitter %d....", pkt.ID, pkt.Src)
		c.net.Transmitters[pkt.Src].Receive(pkt)
		return
	}
	c.net.SpaceSwitches[sSwitchID].Queue.Enqueue(pkt)
}

// AllotSlots closes slotNumber: for every space switch it accumulates the
// queued packets into the request matrix, picks the crossbar permutation, and
// dispatches every queued packet the permutation and the wavelength cap
// allow. The rest stay queued for a future slot.
func (c *Controller) AllotSlots(slotNumber int64) {
	for i := 0; i < c.N; i++ {
		sw := c.net.SpaceSwitches[i]
		data := sw.SlotData(slotNumber)

		for _, pkt := range sw.Queue.Items() {
			data.ReqMat[pkt.Src/c.N][pkt.Dest/c.N]++
		}
		matching := MaxWeightMatching(data.ReqMat)
		data.FinalState = matching

		for _, pkt := range sw.Queue.Items() {
			if pkt.Dest/c.N != matching[pkt.Src/c.N] {
				continue
			}
			if data.TransmissionCount(pkt.Src, pkt.Wavelength) >= MaxTransmissionCount {
				continue
			}
			pkt.DispatchSlot = slotNumber
			pkt.SchedulingDelay = (slotNumber+1)*c.Slot - pkt.ArrivalTime
			c.net.tracef("[Packet %s] : Wavelength Assigned = %d", pkt.ID, pkt.Wavelength)
			c.net.tracef("[Packet %s] : Space Switch Assigned = %d", pkt.ID, i)
			c.net.tracef("[Packet %s] : Time Slot Assigned = %d", pkt.ID, slotNumber)
			data.RecordTransmission(pkt.Src, pkt.Wavelength)
			c.net.Transmitters[pkt.Src].OnSchedule(pkt)
			sw.Queue.Remove(pkt)
		}
	}
}

// CheckEmptyQueues reports whether every space-switch queue has drained.
func (c *Controller) CheckEmptyQueues() bool {
	for i := 0; i < c.N; i++ {
		if c.net.SpaceSwitches[i].Queue.Len() != 0 {
			return false
		}
	}
	return true
}

// ClearQueue keeps allotting successive slots until all queues are empty.
// Called once the event stream ends.
func (c *Controller) ClearQueue(slotNumber int64) {
	for !c.CheckEmptyQueues() {
		c.AllotSlots(slotNumber)
		slotNumber++
	}
}
