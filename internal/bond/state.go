// Package bond implements the bond-issuance and reward-accounting engine:
// the ordered level registry, the position book, the O(1) two-pool reward
// accumulator, and the manager that orchestrates them against the external
// ledger and position-registry collaborators.
package bond

import "math/big"

// accounting is the shared global accounting state. It is owned by the
// Manager and handed by reference to the position book and the accumulator;
// there is no package-level state.
type accounting struct {
	// totalUnweighted and totalWeighted are the sums of US and WS over all
	// live positions, wad scaled.
	totalUnweighted *big.Int
	totalWeighted   *big.Int

	// accRewardsPerWS and accSharesPerUS are the monotone per-share
	// accumulators, wad scaled. Only Deposit advances them.
	accRewardsPerWS *big.Int
	accSharesPerUS  *big.Int
}

func newAccounting() *accounting {
	return &accounting{
		totalUnweighted: new(big.Int),
		totalWeighted:   new(big.Int),
		accRewardsPerWS: new(big.Int),
		accSharesPerUS:  new(big.Int),
	}
}
