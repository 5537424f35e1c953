package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// bandsHolding counts how many frequency bands contain the given port of the
// given stage at switch sID. The partition invariant requires exactly one.
func bandsHolding(c *Controller, stage, sID, port int) int {
	count := 0
	for _, lt := range c.FaultFreq {
		set := lt.StageOneLinks[sID]
		if stage == StageThree {
			set = lt.StageThreeLinks[sID]
		}
		if _, ok := set[port]; ok {
			count++
		}
	}
	return count
}

func assertBandPartition(t *testing.T, c *Controller) {
	t.Helper()
	for sID := 0; sID < c.N; sID++ {
		for port := 0; port < c.N; port++ {
			assert.Equal(t, 1, bandsHolding(c, StageOne, sID, port),
				"stage-1 port %d at switch %d not in exactly one band", port, sID)
			assert.Equal(t, 1, bandsHolding(c, StageThree, sID, port),
				"stage-3 port %d at switch %d not in exactly one band", port, sID)
		}
	}
}

// receiveAllHellosExcept acknowledges every pending probe except those at
// switch skipSwitch with the given in-link, simulating healthy links while
// one pair stays dark.
func receiveAllHellosExcept(c *Controller, skipSwitch, skipInLink int) {
	for _, id := range c.sortedPendingIDs() {
		info := c.PendingHellos[id]
		if info.SpaceSwitchID == skipSwitch && info.InLink == skipInLink {
			continue
		}
		c.ReceivedHello(id)
	}
}

func TestFaultTracking_AllLinksStartInSlowestBand(t *testing.T) {
	net := newTestNetwork(t, 3, 3, nil)
	c := net.Controller

	initial := c.FaultFreq[3]
	for sID := 0; sID < 3; sID++ {
		assert.Len(t, initial.StageOneLinks[sID], 3)
		assert.Len(t, initial.StageThreeLinks[sID], 3)
	}
	assertBandPartition(t, c)
}

func TestFaultTracking_DispatchesProbesAtQueueFront(t *testing.T) {
	net := newTestNetwork(t, 3, 3, nil)
	c := net.Controller

	data := NewPacket(1, 0, 4, 0)
	assert.NoError(t, NewPacketArrivalEvent(0, data).Execute(net))

	assert.NoError(t, c.FaultTracking(0))

	assert.NotEmpty(t, c.PendingHellos)
	for _, sw := range net.SpaceSwitches {
		items := sw.Queue.Items()
		if len(items) == 0 {
			continue
		}
		if !items[0].ID.Hello {
			// The only non-probe head allowed is a queue with no probes.
			for _, p := range items {
				assert.False(t, p.ID.Hello, "probe queued behind data at switch %d", sw.ID)
			}
		}
	}
}

// S4: a single timeout escalates the pair one band toward faster probing.
func TestFaultTracking_TimeoutEscalatesBand(t *testing.T) {
	net := newTestNetwork(t, 3, 3, nil)
	c := net.Controller

	assert.NoError(t, c.FaultTracking(0))
	pending := len(c.PendingHellos)
	assert.Positive(t, pending)

	// No probe is ever delivered; slot 11 is past the receive threshold.
	assert.NoError(t, c.FaultTracking(11))

	assert.Empty(t, c.PendingHellos, "probe soundness: timed-out probes must leave pending")
	for sID := 0; sID < 3; sID++ {
		assert.Empty(t, c.FaultFreq[3].StageOneLinks[sID], "escalated links must leave band 3")
		assert.Len(t, c.FaultFreq[2].StageOneLinks[sID], 3)
	}
	assertBandPartition(t, c)
	for link, cnt := range c.AnomalyCount {
		assert.Equal(t, 1, cnt, "link %v", link)
	}
}

func TestReceivedHello_DemotesBandAndResetsAnomalies(t *testing.T) {
	net := newTestNetwork(t, 3, 3, nil)
	c := net.Controller

	// Escalate everything to band 2, then answer the next probe wave.
	assert.NoError(t, c.FaultTracking(0))
	assert.NoError(t, c.FaultTracking(12)) // sweep + dispatch (12 % 2 == 0)
	assert.NotEmpty(t, c.PendingHellos)
	assert.NotEmpty(t, c.AnomalyCount)

	for _, id := range c.sortedPendingIDs() {
		c.ReceivedHello(id)
	}

	assert.Empty(t, c.PendingHellos)
	assert.Empty(t, c.AnomalyCount, "successful receipt clears anomaly counters")
	for sID := 0; sID < 3; sID++ {
		assert.Empty(t, c.FaultFreq[2].StageOneLinks[sID])
		assert.Len(t, c.FaultFreq[3].StageOneLinks[sID], 3, "receipt demotes back toward slowest band")
	}
	assertBandPartition(t, c)
}

func TestReceivedHello_PastThresholdIsIgnored(t *testing.T) {
	net := newTestNetwork(t, 3, 3, nil)
	c := net.Controller

	assert.NoError(t, c.FaultTracking(0))
	assert.NoError(t, c.FaultTracking(11)) // everything times out

	// A receipt for a probe that already expired changes nothing.
	before := len(c.AnomalyCount)
	c.ReceivedHello(PacketID{Seq: 1, Hello: true})
	assert.Len(t, c.AnomalyCount, before)
}

// S5: ten consecutive unanswered probe waves declare the link failed; traffic
// routed across it afterwards is redirected with the reroute penalty.
func TestFaultTracking_DeclaresFaultAfterThreshold(t *testing.T) {
	failures := []LinkFailureSpec{{Time: 0, AWGR: 0, Port: 0}}
	net := newTestNetwork(t, 3, 3, failures)
	c := net.Controller

	target := Link{Stage: StageOne, A: 0, B: 0}
	slot := int64(0)
	for i := 0; i < AnomalyThreshold+1; i++ {
		assert.NoError(t, c.FaultTracking(slot))
		receiveAllHellosExcept(c, 0, 0)
		slot += 12
		if _, failed := c.FailedLinks[target]; failed {
			break
		}
	}

	_, failed := c.FailedLinks[target]
	assert.True(t, failed, "link %v not declared after %d timeouts", target, AnomalyThreshold)
	assert.Contains(t, c.FaultFreq[0].StageOneLinks[0], 0, "failed link joins band 0")
	assertBandPartition(t, c)

	// Any arrival whose path crosses the failed link reroutes.
	pkt := NewPacket(1000, 1, 2, slot*DefaultSlotNs) // src AWGR 0, switch 0
	c.EnqueueScheduler(pkt)
	assert.Equal(t, int64(RerouteDelayNs), pkt.MiscDelay)
	assert.Contains(t, pkt.FailedTransmitters, 1)
}

func TestFaultTracking_UnexpectedFaultAborts(t *testing.T) {
	net := newTestNetwork(t, 3, 3, nil) // zero injected failures
	c := net.Controller

	link := Link{Stage: StageOne, A: 0, B: 0}
	c.AnomalyCount[link] = AnomalyThreshold - 1
	id := PacketID{Seq: 1, Hello: true}
	c.PendingHellos[id] = &pendingHello{Freq: 3, SpaceSwitchID: 0, InLink: 0, OutLink: 1, DispatchSlot: 0}

	err := c.FaultTracking(11)

	var unexpected *UnexpectedFaultError
	assert.Error(t, err)
	assert.True(t, errors.As(err, &unexpected))
	assert.Equal(t, link, unexpected.Link)
}

func TestFaultTracking_MonotoneFailedLinks(t *testing.T) {
	failures := []LinkFailureSpec{{Time: 0, AWGR: 0, Port: 0}, {Time: 0, AWGR: 1, Port: 1}}
	net := newTestNetwork(t, 3, 3, failures)
	c := net.Controller

	c.RegisterLinkFailure(Link{Stage: StageOne, A: 0, B: 0})
	v := c.failedLinksVersion
	c.RegisterLinkFailure(Link{Stage: StageOne, A: 0, B: 0})
	assert.Equal(t, v, c.failedLinksVersion, "re-registering must not bump the version")
	assert.Len(t, c.FailedLinks, 1)
}

func TestPairPermutations_NoImmediateRepeat(t *testing.T) {
	net := newTestNetwork(t, 5, 3, nil)
	c := net.Controller

	prev := make(map[int]int)
	a := []int{0, 1, 2, 3, 4}
	b := []int{0, 1, 2, 3, 4}
	inL, outL := c.pairPermutations(0, append([]int{}, a...), append([]int{}, b...))
	for i := range inL {
		prev[inL[i]] = outL[i]
	}

	inL2, outL2 := c.pairPermutations(0, append([]int{}, a...), append([]int{}, b...))
	initial := 5 // replacement pairs appended past the initial alignment are exempt
	for i := 0; i < initial && i < len(inL2); i++ {
		if was, ok := prev[inL2[i]]; ok {
			assert.NotEqual(t, was, outL2[i], "pair (%d,%d) repeated consecutively", inL2[i], outL2[i])
		}
	}
}

func TestPairPermutations_CoversAllCandidates(t *testing.T) {
	net := newTestNetwork(t, 4, 3, nil)
	c := net.Controller

	inL, outL := c.pairPermutations(1, []int{0, 1, 2, 3}, []int{0, 1})
	assert.Equal(t, len(inL), len(outL))
	assert.GreaterOrEqual(t, len(inL), 4, "every in-candidate must be probed")

	seenIn := make(map[int]bool)
	seenOut := make(map[int]bool)
	for i := range inL {
		seenIn[inL[i]] = true
		seenOut[outL[i]] = true
	}
	for _, l := range []int{0, 1, 2, 3} {
		assert.True(t, seenIn[l], "in-link %d never probed", l)
	}
	for _, l := range []int{0, 1} {
		assert.True(t, seenOut[l], "out-link %d never probed", l)
	}
}

func TestReceivedHello_LegacyDemoteFlag(t *testing.T) {
	net := newTestNetwork(t, 3, 3, nil)
	c := net.Controller
	c.LegacyHelloDemote = true

	id := PacketID{Seq: 1, Hello: true}
	c.PendingHellos[id] = &pendingHello{Freq: 2, SpaceSwitchID: 0, InLink: 1, OutLink: 2, DispatchSlot: 0}
	c.moveToBand(Link{Stage: StageOne, A: 1, B: 0}, 0, 2)
	c.moveToBand(Link{Stage: StageThree, A: 0, B: 2}, 0, 2)

	c.ReceivedHello(id)

	// Legacy behavior files the in-link under both stage vectors of band 3
	// and drops the out-link from the stage-3 vectors entirely.
	assert.Contains(t, c.FaultFreq[3].StageOneLinks[0], 1)
	assert.Contains(t, c.FaultFreq[3].StageThreeLinks[0], 1)
	assert.Equal(t, 0, bandsHolding(c, StageThree, 0, 2))
}
