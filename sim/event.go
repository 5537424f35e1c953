package sim

// Event categories as emitted by the generator.
const (
	EventPacketArrival = "packet-arrival"
	EventTimeslotEnd   = "timeslot-end"
	EventLinkFailure   = "link-failure"
	EventSetEnd        = "eventset-end"
)

// Event is a single entry of the virtual-time event stream. Events are
// dispatched strictly in order; Execute runs the event against the network
// and returns an error only for conditions that abort the simulation.
type Event interface {
	Timestamp() int64
	Category() string
	Execute(net *Network) error
}

// PacketArrivalEvent delivers a freshly generated packet to its transmitter.
type PacketArrivalEvent struct {
	time int64
	Pkt  *Packet
}

func NewPacketArrivalEvent(t int64, p *Packet) *PacketArrivalEvent {
	return &PacketArrivalEvent{time: t, Pkt: p}
}

func (e *PacketArrivalEvent) Timestamp() int64 { return e.time }
func (e *PacketArrivalEvent) Category() string { return EventPacketArrival }
func (e *PacketArrivalEvent) Execute(net *Network) error {
	net.Transmitters[e.Pkt.Src].Receive(e.Pkt)
	return nil
}

// TimeslotEndEvent marks the boundary of a time slot. SlotNo is the slot that
// has just closed; the controller runs fault tracking and then allots the
// closing slot.
type TimeslotEndEvent struct {
	time   int64
	SlotNo int64
}

func NewTimeslotEndEvent(t, slotNo int64) *TimeslotEndEvent {
	return &TimeslotEndEvent{time: t, SlotNo: slotNo}
}

func (e *TimeslotEndEvent) Timestamp() int64 { return e.time }
func (e *TimeslotEndEvent) Category() string { return EventTimeslotEnd }
func (e *TimeslotEndEvent) Execute(net *Network) error {
	return net.Controller.EventTrigger(e)
}

// LinkFailureEvent injects a physical link failure at a stage-1 AWGR port.
type LinkFailureEvent struct {
	time       int64
	AwgrID     int
	FailedPort int
}

func NewLinkFailureEvent(t int64, awgrID, failedPort int) *LinkFailureEvent {
	return &LinkFailureEvent{time: t, AwgrID: awgrID, FailedPort: failedPort}
}

func (e *LinkFailureEvent) Timestamp() int64 { return e.time }
func (e *LinkFailureEvent) Category() string { return EventLinkFailure }
func (e *LinkFailureEvent) Execute(net *Network) error {
	net.StageOneAWGRs[e.AwgrID].LinkFailure(e.FailedPort)
	return nil
}

// EventSetEndEvent marks the end of the event stream. The controller keeps
// allotting slots until every space-switch queue has drained.
type EventSetEndEvent struct{}

func (e *EventSetEndEvent) Timestamp() int64 { return -1 }
func (e *EventSetEndEvent) Category() string { return EventSetEnd }
func (e *EventSetEndEvent) Execute(net *Network) error {
	return net.Controller.EventTrigger(e)
}
