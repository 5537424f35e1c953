package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// S1: one packet through a fault-free N=2 fabric.
func TestScheduling_SinglePacket_EndToEnd(t *testing.T) {
	net := newTestNetwork(t, 2, 0, nil)
	pkt := NewPacket(1, 0, 3, 0)

	assert.NoError(t, NewPacketArrivalEvent(0, pkt).Execute(net))
	assert.Equal(t, 1, pkt.Wavelength)
	assert.Equal(t, 1, net.SpaceSwitches[1].Queue.Len(), "packet should queue at space switch 1")

	assert.NoError(t, NewTimeslotEndEvent(1200, 0).Execute(net))

	assert.True(t, pkt.Received)
	assert.Equal(t, int64(0), pkt.DispatchSlot)
	assert.Equal(t, int64(1200), pkt.SchedulingDelay)
	assert.Equal(t, int64(1200), pkt.PropagationDelay)
	assert.Equal(t, int64(0), pkt.MiscDelay)
	delay, err := pkt.TotalDelay()
	assert.NoError(t, err)
	assert.Equal(t, int64(2400), delay)
	assert.Equal(t, 1, net.ReceivedPkts)
}

// S2: the transmitter buffer caps at 5000 packets.
func TestTransmitter_BufferOverflow(t *testing.T) {
	net := newTestNetwork(t, 2, 0, nil)
	tx := net.Transmitters[0]

	for i := 0; i < TransmitterBufferMax+1; i++ {
		tx.Receive(NewPacket(int64(i+1), 0, 3, 0))
	}

	assert.Equal(t, 1, net.OverflowDrop)
	assert.Equal(t, TransmitterBufferMax, tx.BufferCount)
}

// S3: a failed stage-1 port drops the packet mid-flight.
func TestScheduling_LinkDropOnFailedPort(t *testing.T) {
	net := newTestNetwork(t, 3, 0, nil)
	assert.NoError(t, NewLinkFailureEvent(0, 0, 2).Execute(net))

	// src=0 dest=7: wavelength 2, switch 2; stage-1 AWGR 0 out port (0+2)%3=2.
	pkt := NewPacket(1, 0, 7, 0)
	assert.NoError(t, NewPacketArrivalEvent(0, pkt).Execute(net))
	assert.NoError(t, NewTimeslotEndEvent(1200, 0).Execute(net))

	assert.Equal(t, 1, net.LinkDrop)
	assert.False(t, pkt.Received)
	assert.Equal(t, 0, net.ReceivedPkts)
}

func TestEnqueueScheduler_WavelengthIdentity(t *testing.T) {
	// For every assigned wavelength, (src mod N + 2·wv) mod N must equal
	// dest mod N: the deterministic routing identity. It holds for odd N;
	// even N floors the half-wavelength on odd offsets.
	for _, n := range []int{3, 5, 11} {
		net := newTestNetwork(t, n, 0, nil)
		c := net.Controller
		for src := 0; src < n*n; src += 3 {
			for dest := 0; dest < n*n; dest += 2 {
				if src == dest {
					continue
				}
				pkt := NewPacket(1, src, dest, 0)
				c.EnqueueScheduler(pkt)
				assert.Equal(t, dest%n, (src%n+2*pkt.Wavelength)%n,
					"identity violated for n=%d src=%d dest=%d wv=%d", n, src, dest, pkt.Wavelength)
			}
		}
	}
}

func TestAllotSlots_EnforcesWavelengthCap(t *testing.T) {
	// Three identical packets share src, wavelength and switch; only one may
	// dispatch per slot.
	net := newTestNetwork(t, 2, 0, nil)
	c := net.Controller

	pkts := []*Packet{
		NewPacket(1, 0, 3, 0),
		NewPacket(2, 0, 3, 0),
		NewPacket(3, 0, 3, 0),
	}
	for _, p := range pkts {
		assert.NoError(t, NewPacketArrivalEvent(0, p).Execute(net))
	}

	c.AllotSlots(0)
	assert.Equal(t, 2, net.SpaceSwitches[1].Queue.Len())
	assert.Equal(t, 1, net.SpaceSwitches[1].SlotData(0).TransmissionCount(0, 1))
	assert.Equal(t, 1, net.SpaceSwitches[1].SlotData(0).TxTotal(0))

	c.AllotSlots(1)
	c.AllotSlots(2)
	assert.True(t, c.CheckEmptyQueues())
	assert.Equal(t, 3, net.ReceivedPkts)

	for slot := int64(0); slot < 3; slot++ {
		assert.LessOrEqual(t, net.SpaceSwitches[1].SlotData(slot).TxTotal(0), MaxTransmissionCount*2)
	}
}

func TestAllotSlots_FinalStateIsPermutation(t *testing.T) {
	net := newTestNetwork(t, 3, 0, nil)
	c := net.Controller

	for i := int64(1); i <= 20; i++ {
		src := int(i) % 9
		dest := (src + 4) % 9
		assert.NoError(t, NewPacketArrivalEvent(0, NewPacket(i, src, dest, 0)).Execute(net))
	}
	c.AllotSlots(0)

	for _, sw := range net.SpaceSwitches {
		state := sw.SlotData(0).FinalState
		if state == nil {
			continue
		}
		assert.True(t, isPermutation(state), "switch %d final state %v", sw.ID, state)
	}
}

func TestClearQueue_DrainsAllQueues(t *testing.T) {
	net := newTestNetwork(t, 3, 0, nil)
	c := net.Controller

	for i := int64(1); i <= 30; i++ {
		src := int(i*5) % 9
		dest := int(i*7) % 9
		if src == dest {
			dest = (dest + 1) % 9
		}
		assert.NoError(t, NewPacketArrivalEvent(0, NewPacket(i, src, dest, 0)).Execute(net))
	}
	assert.False(t, c.CheckEmptyQueues())

	c.ClearQueue(0)
	assert.True(t, c.CheckEmptyQueues())
	assert.Equal(t, 30, net.ReceivedPkts)
}

// Conservation: generated equals received plus drops plus still-queued, and
// nothing stays queued after the stream ends.
func TestRun_ConservationWithoutFaults(t *testing.T) {
	net, err := NewNetwork(Config{
		N:             3,
		Rate:          DefaultRate(3),
		Slot:          DefaultSlotNs,
		HelloInterval: 3,
		Runtime:       300_000,
		Seed:          7,
	})
	assert.NoError(t, err)

	assert.NoError(t, net.Run())

	assert.Zero(t, net.QueuedPackets())
	assert.Equal(t, net.GeneratedPkts, net.ReceivedPkts+net.OverflowDrop+net.LinkDrop)
	assert.Positive(t, net.GeneratedPkts)
}

func TestRun_SameSeedIsDeterministic(t *testing.T) {
	run := func() (int, int) {
		net, err := NewNetwork(Config{
			N:             3,
			Rate:          DefaultRate(3),
			Slot:          DefaultSlotNs,
			HelloInterval: 3,
			Runtime:       200_000,
			Seed:          99,
		})
		assert.NoError(t, err)
		assert.NoError(t, net.Run())
		return net.GeneratedPkts, net.ReceivedPkts
	}

	gen1, recv1 := run()
	gen2, recv2 := run()
	assert.Equal(t, gen1, gen2)
	assert.Equal(t, recv1, recv2)
}
