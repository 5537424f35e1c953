package sim

// SlotState holds the scheduling state of one space switch for one time slot:
// the request matrix accumulated from queued packets, the crossbar permutation
// chosen by the matcher, and the per-transmitter per-wavelength transmission
// counts enforcing the wavelength cap.
type SlotState struct {
	ReqMat [][]int
	// FinalState maps input port (stage-1 AWGR id) to output port (stage-3
	// AWGR id). Nil until the matcher has run for this slot.
	FinalState []int

	transmissions map[int]map[int]int // transmitter id -> wavelength -> count
	txTotals      map[int]int         // transmitter id -> total this slot
}

func newSlotState(n int) *SlotState {
	m := make([][]int, n)
	for i := range m {
		m[i] = make([]int, n)
	}
	return &SlotState{
		ReqMat:        m,
		transmissions: make(map[int]map[int]int),
		txTotals:      make(map[int]int),
	}
}

// TransmissionCount returns how many packets txID has already had scheduled
// on wavelength wv in this slot.
func (s *SlotState) TransmissionCount(txID, wv int) int {
	return s.transmissions[txID][wv]
}

// TxTotal returns the total packets txID has scheduled in this slot.
func (s *SlotState) TxTotal(txID int) int {
	return s.txTotals[txID]
}

// RecordTransmission bumps the per-wavelength and aggregate counts for txID.
func (s *SlotState) RecordTransmission(txID, wv int) {
	if s.transmissions[txID] == nil {
		s.transmissions[txID] = make(map[int]int)
	}
	s.transmissions[txID][wv]++
	s.txTotals[txID]++
}

// SpaceSwitch is an N×N crossbar reconfigured once per time slot by the
// controller. It also owns the queue of packets awaiting scheduling at this
// switch.
type SpaceSwitch struct {
	N     int
	ID    int
	Slot  int64
	Queue *PacketQueue

	state map[int64]*SlotState
	net   *Network
}

// NewSpaceSwitch creates a space switch with an empty queue.
func NewSpaceSwitch(n, id int, slot int64, net *Network) *SpaceSwitch {
	return &SpaceSwitch{
		N:     n,
		ID:    id,
		Slot:  slot,
		Queue: &PacketQueue{},
		state: make(map[int64]*SlotState),
		net:   net,
	}
}

// SlotData returns the state for the given slot, lazily constructing it with
// a zero request matrix on first access.
func (s *SpaceSwitch) SlotData(slot int64) *SlotState {
	data, ok := s.state[slot]
	if !ok {
		data = newSlotState(s.N)
		s.state[slot] = data
	}
	return data
}

// Receive forwards pkt from the stage-1 AWGR on inPort through the crossbar
// configuration of the packet's dispatch slot.
func (s *SpaceSwitch) Receive(inPort int, pkt *Packet) {
	s.net.tracef("[Packet %s] : Reached Space Switch %d", pkt.ID, s.ID)
	data := s.SlotData(pkt.DispatchSlot)
	outPort := data.FinalState[inPort]
	s.SendPacket(outPort, pkt)
}

// SendPacket forwards pkt to the stage-3 AWGR on outPort.
func (s *SpaceSwitch) SendPacket(outPort int, pkt *Packet) {
	s.net.tracef("[Packet %s] : Sent from Space Switch %d", pkt.ID, s.ID)
	s.net.StageThreeAWGRs[outPort].Receive(s.ID, pkt)
}
