package sim

// TransmitterBufferMax is the transmitter buffer capacity in packets.
const TransmitterBufferMax = 5000

// Transmitter is the per-ToR egress. It buffers arriving packets, hands them
// to the controller for scheduling, and keeps a per-slot per-destination
// histogram of what it actually sent; the controller's rerouting math runs on
// that history.
type Transmitter struct {
	ID         int
	ParentAWGR *AWGR
	Port       int

	BufferCount   int
	DispatchCount int

	transmissions map[int64]map[int]int // dispatch slot -> destination -> count
	slotTotals    map[int64]int         // dispatch slot -> total

	net *Network
}

// NewTransmitter creates a transmitter attached to port on its parent stage-1
// AWGR.
func NewTransmitter(id int, parent *AWGR, port int, net *Network) *Transmitter {
	return &Transmitter{
		ID:            id,
		ParentAWGR:    parent,
		Port:          port,
		transmissions: make(map[int64]map[int]int),
		slotTotals:    make(map[int64]int),
		net:           net,
	}
}

// Receive accepts a packet from the event generator (or a reroute). Packets
// beyond the buffer capacity are dropped and counted.
func (t *Transmitter) Receive(pkt *Packet) {
	if t.BufferCount >= TransmitterBufferMax {
		t.net.RecordOverflowDrop()
		return
	}
	t.BufferCount++
	t.OnPacketArrival(pkt)
}

// OnPacketArrival hands the packet to the controller for scheduling.
func (t *Transmitter) OnPacketArrival(pkt *Packet) {
	t.net.tracef("[Packet %s] : Arrived at Transmitter %d", pkt.ID, t.ID)
	t.net.Controller.EnqueueScheduler(pkt)
}

// OnSchedule is called by the controller when the packet wins a slot. It
// appends to the per-slot per-destination histogram and sends the packet.
func (t *Transmitter) OnSchedule(pkt *Packet) {
	t.net.tracef("[Packet %s] : Scheduled for dispatch from Transmitter %d", pkt.ID, t.ID)
	if t.transmissions[pkt.DispatchSlot] == nil {
		t.transmissions[pkt.DispatchSlot] = make(map[int]int)
	}
	t.transmissions[pkt.DispatchSlot][pkt.Dest]++
	t.slotTotals[pkt.DispatchSlot]++
	t.SendPacket(pkt)
}

// SendPacket forwards the packet to the parent AWGR and releases its buffer
// slot.
func (t *Transmitter) SendPacket(pkt *Packet) {
	t.ParentAWGR.Receive(t.Port, pkt)
	t.DispatchCount++
	if t.BufferCount > 0 {
		t.BufferCount--
	}
}

// TransmissionCount returns the number of packets dispatched in the last k
// slots up to and including currentSlot.
func (t *Transmitter) TransmissionCount(currentSlot, k int64) int {
	total := 0
	for s := currentSlot; s > currentSlot-k; s-- {
		total += t.slotTotals[s]
	}
	return total
}

// PairwiseTransmissionCount returns per-destination dispatch counts over the
// last k slots up to and including currentSlot, along with the aggregate.
func (t *Transmitter) PairwiseTransmissionCount(currentSlot, k int64) (map[int]int, int) {
	perDest := make(map[int]int)
	total := 0
	for s := currentSlot; s > currentSlot-k; s-- {
		for dest, cnt := range t.transmissions[s] {
			perDest[dest] += cnt
		}
		total += t.slotTotals[s]
	}
	return perDest, total
}
