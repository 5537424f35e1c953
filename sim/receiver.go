package sim

// Receiver is the per-ToR ingress. Data packets terminate here and are
// counted; probe receipts are reported back to the controller.
type Receiver struct {
	ID         int
	ParentAWGR *AWGR
	Port       int

	net *Network
}

// NewReceiver creates a receiver attached to port on its parent stage-3 AWGR.
func NewReceiver(id int, parent *AWGR, port int, net *Network) *Receiver {
	return &Receiver{ID: id, ParentAWGR: parent, Port: port, net: net}
}

// Receive terminates a packet.
func (r *Receiver) Receive(pkt *Packet) {
	pkt.Received = true
	r.net.tracef("[Packet %s] : Received at Receiver %d", pkt.ID, r.ID)
	if pkt.ID.Hello {
		r.net.Controller.ReceivedHello(pkt.ID)
		return
	}
	r.net.RecordReceived()
	if delay, err := pkt.TotalDelay(); err == nil {
		r.net.Logs.LatencyLine(pkt.ID, delay)
	}
	receiveSlot := float64(pkt.ArrivalTime+pkt.SchedulingDelay+pkt.PropagationDelay) / float64(r.net.Slot)
	r.net.Logs.ThroughputLine(pkt.Dest, receiveSlot)
}
