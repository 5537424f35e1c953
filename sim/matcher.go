package sim

import "math/bits"

// MaxWeightMatching finds a permutation m of [0..N) maximizing the total
// request weight Σ reqMat[i][m[i]]. Among all maximizing permutations it
// returns the lexicographically smallest, so matching is deterministic for a
// given matrix. Exact subset DP, O(N·2^N); fine for the N this fabric runs at.
func MaxWeightMatching(reqMat [][]int) []int {
	n := len(reqMat)
	if n == 0 {
		return nil
	}

	// best[mask] is the maximum weight of assigning the last popcount(mask)
	// rows to exactly the columns in mask.
	full := (1 << n) - 1
	best := make([]int64, full+1)
	for mask := 1; mask <= full; mask++ {
		row := n - bits.OnesCount(uint(mask))
		b := int64(-1) << 62
		for cols := mask; cols != 0; cols &= cols - 1 {
			j := bits.TrailingZeros(uint(cols))
			if v := int64(reqMat[row][j]) + best[mask&^(1<<j)]; v > b {
				b = v
			}
		}
		best[mask] = b
	}

	// Walk rows in order, taking the smallest column that still achieves the
	// optimum; this yields the lexicographically smallest maximizer.
	matching := make([]int, n)
	avail := full
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			bit := 1 << j
			if avail&bit == 0 {
				continue
			}
			if int64(reqMat[i][j])+best[avail&^bit] == best[avail] {
				matching[i] = j
				avail &^= bit
				break
			}
		}
	}
	return matching
}
