package sim

import "sort"

// FaultTracking runs at the end of every time slot, before slot allotment.
// It sweeps pending probes for timeouts, converting repeated anomalies into
// declared link failures, and then dispatches a fresh wave of probes for
// every frequency band due at this slot.
func (c *Controller) FaultTracking(currentSlot int64) error {
	if err := c.sweepTimeouts(currentSlot); err != nil {
		return err
	}
	c.dispatchProbes(currentSlot)
	return nil
}

// sweepTimeouts expires probes pending for more than ReceiveThreshold slots.
// Each timeout counts an anomaly against both member links; a link crossing
// AnomalyThreshold is declared failed and moved to band 0. Below threshold,
// the pair escalates one band toward more frequent probing.
func (c *Controller) sweepTimeouts(currentSlot int64) error {
	for _, id := range c.sortedPendingIDs() {
		info := c.PendingHellos[id]
		if currentSlot <= info.DispatchSlot+ReceiveThreshold {
			continue
		}

		links := [2]Link{
			{Stage: StageOne, A: info.InLink, B: info.SpaceSwitchID},
			{Stage: StageThree, A: info.SpaceSwitchID, B: info.OutLink},
		}
		preFailed := false
		for _, link := range links {
			if _, ok := c.FailedLinks[link]; ok {
				preFailed = true
			}
		}
		if preFailed {
			delete(c.PendingHellos, id)
			continue
		}

		faultDeclared := false
		for _, link := range links {
			c.AnomalyCount[link]++
			if c.AnomalyCount[link] < AnomalyThreshold {
				continue
			}
			faultDeclared = true
			c.FaultFoundAt = c.Slot * currentSlot
			c.moveToBand(link, info.SpaceSwitchID, 0)
			c.RegisterLinkFailure(link)
			c.net.Telemetry.FaultsDeclared.Inc()
			c.net.tracef("[Timeslot %d] : Link %v declared FAILED", currentSlot, link)
			if len(c.FailedLinks) > c.net.EventGenerator.LinkFailCount {
				return &UnexpectedFaultError{
					Link:     link,
					Declared: len(c.FailedLinks),
					Injected: c.net.EventGenerator.LinkFailCount,
				}
			}
		}
		if info.Freq > 1 && !faultDeclared {
			c.moveToBand(links[0], info.SpaceSwitchID, info.Freq-1)
			c.moveToBand(links[1], info.SpaceSwitchID, info.Freq-1)
		}
		c.net.Telemetry.HelloTimeouts.Inc()
		delete(c.PendingHellos, id)
	}
	return nil
}

// sortedPendingIDs returns the pending probe ids in dispatch order, so the
// sweep is deterministic.
func (c *Controller) sortedPendingIDs() []PacketID {
	ids := make([]PacketID, 0, len(c.PendingHellos))
	for id := range c.PendingHellos {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Seq < ids[j].Seq })
	return ids
}

// moveToBand places the link in the target frequency band, removing it from
// every other band first so a link always belongs to exactly one band.
func (c *Controller) moveToBand(link Link, sID int, target int64) {
	port := link.A
	if link.Stage == StageThree {
		port = link.B
	}
	for _, lt := range c.FaultFreq {
		if link.Stage == StageOne {
			delete(lt.StageOneLinks[sID], port)
		} else {
			delete(lt.StageThreeLinks[sID], port)
		}
	}
	dst := c.FaultFreq[target]
	if link.Stage == StageOne {
		dst.StageOneLinks[sID][port] = struct{}{}
	} else {
		dst.StageThreeLinks[sID][port] = struct{}{}
	}
}

// RegisterLinkFailure adds a link to the failed set and invalidates cached
// reroute data.
func (c *Controller) RegisterLinkFailure(link Link) {
	if _, ok := c.FailedLinks[link]; ok {
		return
	}
	c.FailedLinks[link] = struct{}{}
	c.failedLinksVersion++
}

// dispatchProbes emits a hello packet per probed link pair for every band due
// at this slot. Probes are pushed to the front of the space-switch queues so
// the upcoming allotment matches them first.
func (c *Controller) dispatchProbes(currentSlot int64) {
	for freq := int64(1); freq <= c.HelloInterval; freq++ {
		if currentSlot%freq != 0 {
			continue
		}
		links := c.FaultFreq[freq]
		for sID := 0; sID < c.N; sID++ {
			ins := sortedMembers(links.StageOneLinks[sID])
			outs := sortedMembers(links.StageThreeLinks[sID])
			inLinks, outLinks := c.pairPermutations(sID, ins, outs)
			for j := range inLinks {
				c.emitHello(currentSlot, freq, sID, inLinks[j], outLinks[j])
			}
		}
	}
}

// emitHello builds a probe whose deterministic wavelength routing traverses
// exactly (stage-1 inLink -> space switch sID -> stage-3 outLink).
func (c *Controller) emitHello(currentSlot, freq int64, sID, inLink, outLink int) {
	srcMember := c.probeRNG.Intn(c.N)
	src := c.N*inLink + srcMember
	wv := sID - srcMember
	if sID < srcMember {
		wv = c.N + sID - srcMember
	}
	destMember := (srcMember + 2*wv) % c.N
	dest := c.N*outLink + destMember

	// The wavelength derivation presumes the ASA topology: the deterministic
	// route for (srcMember, destMember) must select switch sID and
	// wavelength wv. Holds for all inputs here; anything else is a bug.
	c.assertProbeRoute(srcMember, destMember, sID, wv)

	hp := NewHelloPacket(c.helloCtr, src, wv, dest, c.Slot*currentSlot)
	c.helloCtr++
	c.PendingHellos[hp.ID] = &pendingHello{
		Freq:          freq,
		SpaceSwitchID: sID,
		InLink:        inLink,
		OutLink:       outLink,
		DispatchSlot:  currentSlot,
	}
	c.net.SpaceSwitches[sID].Queue.PrependFront(hp)
	c.net.Telemetry.HelloSent.Inc()
}

// assertProbeRoute checks the routing premise the probe construction relies
// on: the stage-1 AWGR must forward the probe to switch sID, and the stage-3
// AWGR must deliver it to the chosen destination member.
func (c *Controller) assertProbeRoute(mSrc, mDest, sID, wv int) {
	if (mSrc+wv)%c.N != sID || (sID+wv)%c.N != mDest {
		panic("probe wavelength derivation does not route through the probed switch")
	}
}

// sortedMembers lists a band set in ascending order for deterministic
// shuffling.
func sortedMembers(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Ints(out)
	return out
}

// pairPermutations aligns the in-link and out-link candidates of one space
// switch into probe pairs. Candidates are shuffled; the shorter side is
// padded with random healthy links; a pair identical to the previous tick's
// pairing for that in-link is replaced, with the displaced out-link re-paired
// against a fresh random in-link at the end.
func (c *Controller) pairPermutations(sID int, a, b []int) ([]int, []int) {
	c.probeRNG.Shuffle(len(a), func(i, j int) { a[i], a[j] = a[j], a[i] })
	c.probeRNG.Shuffle(len(b), func(i, j int) { b[i], b[j] = b[j], b[i] })

	aChoices := c.healthyLinks(sID, StageOne)
	bChoices := c.healthyLinks(sID, StageThree)

	for len(a) != len(b) {
		if len(a) < len(b) {
			if len(aChoices) == 0 {
				b = b[:len(a)]
				break
			}
			a = append(a, aChoices[c.probeRNG.Intn(len(aChoices))])
		} else {
			if len(bChoices) == 0 {
				a = a[:len(b)]
				break
			}
			b = append(b, bChoices[c.probeRNG.Intn(len(bChoices))])
		}
	}

	// Replacement pairs appended below are exempt from the repeat check.
	initial := len(a)
	for i := 0; i < initial; i++ {
		inLink, outLink := a[i], b[i]
		if c.previousLinkPair[sID][inLink] != b[i] {
			c.previousLinkPair[sID][inLink] = b[i]
			continue
		}
		repIn := excluding(aChoices, a[i])
		repOut := excluding(bChoices, b[i])
		if len(repIn) == 0 || len(repOut) == 0 {
			// No healthy alternative; keep the stale pair.
			c.net.tracef("[Timeslot sweep] : No replacement pair for switch %d in-link %d", sID, inLink)
			c.previousLinkPair[sID][inLink] = b[i]
			continue
		}
		b[i] = repOut[c.probeRNG.Intn(len(repOut))]
		a = append(a, repIn[c.probeRNG.Intn(len(repIn))])
		b = append(b, outLink)
	}
	return a, b
}

// healthyLinks lists every link of the given stage at switch sID that has not
// been declared failed (band 0).
func (c *Controller) healthyLinks(sID, stage int) []int {
	failed := c.FaultFreq[0].StageOneLinks[sID]
	if stage == StageThree {
		failed = c.FaultFreq[0].StageThreeLinks[sID]
	}
	out := make([]int, 0, c.N)
	for l := 0; l < c.N; l++ {
		if _, bad := failed[l]; !bad {
			out = append(out, l)
		}
	}
	return out
}

func excluding(xs []int, bad int) []int {
	out := make([]int, 0, len(xs))
	for _, x := range xs {
		if x != bad {
			out = append(out, x)
		}
	}
	return out
}

// ReceivedHello registers a probe receipt. The pair demotes one band toward
// slower probing if it had been escalated, and its anomaly counters reset.
// Receipts past the timeout threshold are logged and ignored.
func (c *Controller) ReceivedHello(id PacketID) {
	info, ok := c.PendingHellos[id]
	if !ok {
		c.net.tracef("Past threshold arrival of Hello Packet : %s", id)
		c.net.Telemetry.LateHellos.Inc()
		return
	}
	c.net.tracef("Received Hello Packet : %s", id)
	if info.Freq < c.HelloInterval {
		sID := info.SpaceSwitchID
		if c.LegacyHelloDemote {
			// Original behavior: the in-link lands in both stage vectors of
			// the slower band and the out-link leaves its band entirely.
			delete(c.FaultFreq[info.Freq].StageOneLinks[sID], info.InLink)
			delete(c.FaultFreq[info.Freq].StageThreeLinks[sID], info.OutLink)
			c.FaultFreq[info.Freq+1].StageOneLinks[sID][info.InLink] = struct{}{}
			c.FaultFreq[info.Freq+1].StageThreeLinks[sID][info.InLink] = struct{}{}
		} else {
			c.moveToBand(Link{Stage: StageOne, A: info.InLink, B: sID}, sID, info.Freq+1)
			c.moveToBand(Link{Stage: StageThree, A: sID, B: info.OutLink}, sID, info.Freq+1)
		}
	}
	delete(c.PendingHellos, id)
	delete(c.AnomalyCount, Link{Stage: StageOne, A: info.InLink, B: info.SpaceSwitchID})
	delete(c.AnomalyCount, Link{Stage: StageThree, A: info.SpaceSwitchID, B: info.OutLink})
}
