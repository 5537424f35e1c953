package sim

// ComputeRoutes estimates the free transmission capacity of every transmitter
// attached to the given source AWGR: the per-slot cap minus the average
// dispatch activity over the last PrevExamineSlots slots. The result and the
// underlying pairwise data are cached until the failed-links set changes.
func (c *Controller) ComputeRoutes(awgrID int) []float64 {
	routes := make([]float64, c.N)
	data := make([]pairwiseCounts, c.N)
	for alt := 0; alt < c.N; alt++ {
		tx := c.net.Transmitters[awgrID*c.N+alt]
		perDest, total := tx.PairwiseTransmissionCount(c.CurrentSlot, PrevExamineSlots)
		data[alt] = pairwiseCounts{perDest: perDest, total: total}
		avgUsage := float64(total) / PrevExamineSlots
		routes[alt] = MaxTransmissionCount*float64(c.N) - avgUsage
	}
	c.alternateRoutes[awgrID] = &routeCache{
		version: c.failedLinksVersion,
		routes:  routes,
		data:    data,
	}
	return routes
}

// routesFor returns the cached free-capacity vector for the AWGR, recomputing
// it if absent or stale.
func (c *Controller) routesFor(awgrID int) []float64 {
	if cache, ok := c.alternateRoutes[awgrID]; ok && cache.version == c.failedLinksVersion {
		return cache.routes
	}
	return c.ComputeRoutes(awgrID)
}

// ResiRedirect rewrites the packet's source or destination to route around a
// failed link, balancing across both the transmitter and the receiver axis.
// Receiver redirection is chosen when the destination AWGR has more free
// receive capacity than some other transmitter's free send capacity;
// otherwise the packet moves to a sibling transmitter.
func (c *Controller) ResiRedirect(pkt *Packet) {
	failed := make(map[int]struct{}, len(pkt.FailedTransmitters))
	for _, tx := range pkt.FailedTransmitters {
		failed[tx%c.N] = struct{}{}
	}
	txChoices := make(map[int]struct{}, c.N)
	recvChoices := make(map[int]struct{}, c.N)
	for i := 0; i < c.N; i++ {
		if _, bad := failed[i]; !bad && i != pkt.Src%c.N {
			txChoices[i] = struct{}{}
		}
		if i != pkt.Dest%c.N {
			recvChoices[i] = struct{}{}
		}
	}

	alts := c.routesFor(pkt.Src / c.N)
	pairwise := c.alternateRoutes[pkt.Src/c.N].data[pkt.Src%c.N]

	// Free receive capacity per member of the destination AWGR, zero for the
	// current destination and for receivers this transmitter never sent to.
	destAwgr := pkt.Dest / c.N
	recvFree := make([]float64, c.N)
	recvFreeSum := 0.0
	for i := 0; i < c.N; i++ {
		rcv := destAwgr*c.N + i
		if rcv == pkt.Dest {
			continue
		}
		if cnt, ok := pairwise.perDest[rcv]; ok {
			recvFree[i] = MaxTransmissionCount - float64(cnt)/PrevExamineSlots
			recvFreeSum += recvFree[i]
		}
	}

	recvRedirection := false
	for i := range alts {
		if i != pkt.Src%c.N && recvFreeSum > alts[i] {
			recvRedirection = true
			break
		}
	}

	var idx int
	if recvRedirection {
		idx = c.weightedDraw(recvFree, recvChoices)
		pkt.Dest = idx + c.N*destAwgr
	} else {
		idx = c.weightedDraw(alts, txChoices)
		pkt.Src = idx + c.N*(pkt.Src/c.N)
	}
}

// GetAlternateTransmitter is the legacy transmitter-only redirection kept for
// comparison against ResiConnect: it samples a sibling transmitter weighted
// by free capacity and returns its id.
func (c *Controller) GetAlternateTransmitter(pkt *Packet) int {
	failed := make(map[int]struct{}, len(pkt.FailedTransmitters))
	for _, tx := range pkt.FailedTransmitters {
		failed[tx%c.N] = struct{}{}
	}
	choices := make(map[int]struct{}, c.N)
	for i := 0; i < c.N; i++ {
		if _, bad := failed[i]; !bad && i != pkt.Src%c.N {
			choices[i] = struct{}{}
		}
	}
	alts := c.routesFor(pkt.Src / c.N)
	idx := c.weightedDraw(alts, choices)
	return idx + c.N*(pkt.Src/c.N)
}

// AdjAlternateTransmitter is the NNT baseline: redirect to a neighboring
// transmitter by id, picking uniformly between the two neighbors away from
// the group edges.
func (c *Controller) AdjAlternateTransmitter(pkt *Packet) int {
	s := pkt.Src
	switch {
	case s%c.N == 0:
		return s + 1
	case s%c.N == c.N-1:
		return s - 1
	default:
		if c.rerouteRNG.Intn(2) == 0 {
			return s - 1
		}
		return s + 1
	}
}

// weightedDraw samples an index from free restricted to the candidate set,
// normalized to a probability distribution. A zero-sum restriction falls back
// to a uniform draw over the candidates. Zero-weight candidates are skipped
// unless the uniform fallback is in effect.
func (c *Controller) weightedDraw(free []float64, choices map[int]struct{}) int {
	weights := make([]float64, len(free))
	sum := 0.0
	for i := range free {
		if _, ok := choices[i]; !ok {
			continue
		}
		weights[i] = free[i]
		sum += free[i]
	}
	if sum == 0 {
		uniform := 1.0 / float64(len(choices))
		for i := range weights {
			if _, ok := choices[i]; ok {
				weights[i] = uniform
			}
		}
	} else {
		for i := range weights {
			weights[i] /= sum
		}
	}

	p := c.rerouteRNG.Float64()
	probCtr := 0.0
	last := -1
	for i, w := range weights {
		if w == 0 {
			continue
		}
		last = i
		if probCtr+w > p {
			return i
		}
		probCtr += w
	}
	// Floating-point residue can leave the walk unfinished; take the last
	// candidate with weight.
	return last
}
