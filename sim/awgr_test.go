package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAWGR_RejectsInvalidStage(t *testing.T) {
	net := newTestNetwork(t, 2, 0, nil)
	_, err := NewAWGR(2, 0, 2, net)

	var cfgErr *ConfigError
	assert.Error(t, err)
	assert.True(t, errors.As(err, &cfgErr))
}

func TestAWGR_Receive_RoutesByWavelengthModN(t *testing.T) {
	// For a stage-3 AWGR, output port (inPort + wavelength) mod N selects the
	// receiver directly; the packet must land on receiver awgr*N + outPort.
	net := newTestNetwork(t, 3, 0, nil)
	pkt := NewPacket(1, 0, 5, 0)
	pkt.Wavelength = 2
	pkt.DispatchSlot = 0

	// in on port 1 of stage-3 AWGR 1: out port (1+2)%3 = 0 -> receiver 3 = dest 3
	pkt.Dest = 3
	net.StageThreeAWGRs[1].Receive(1, pkt)

	assert.True(t, pkt.Received)
	assert.Equal(t, 1, net.ReceivedPkts)
	assert.Equal(t, int64(PropagationDelayNs), pkt.PropagationDelay)
}

func TestAWGR_Receive_FailedPortDropsPacket(t *testing.T) {
	net := newTestNetwork(t, 3, 0, nil)
	awgr := net.StageOneAWGRs[0]
	awgr.LinkFailure(2)

	pkt := NewPacket(1, 0, 7, 0)
	pkt.Wavelength = 2
	awgr.Receive(0, pkt) // out port (0+2)%3 = 2, failed

	assert.Equal(t, 1, net.LinkDrop)
	assert.False(t, pkt.Received)
	assert.Zero(t, pkt.PropagationDelay)
}

func TestAWGR_LinkStatus(t *testing.T) {
	net := newTestNetwork(t, 3, 0, nil)
	awgr := net.StageOneAWGRs[1]

	assert.True(t, awgr.LinkStatus(0))
	awgr.LinkFailure(0)
	assert.False(t, awgr.LinkStatus(0))
	assert.True(t, awgr.LinkStatus(1))
}

func TestLinkFailureEvent_MarksStageOnePort(t *testing.T) {
	net := newTestNetwork(t, 3, 0, nil)
	ev := NewLinkFailureEvent(0, 1, 2)

	assert.NoError(t, ev.Execute(net))
	assert.False(t, net.StageOneAWGRs[1].LinkStatus(2))
}
