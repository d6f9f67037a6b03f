// Package domain defines the core types of the bond engine: levels,
// positions, accounting state, engine events, and the contracts of the
// external collaborators (fungible ledger, position registry, event sinks).
package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// LevelID is a stable 4-byte level identifier, derived from a keccak hash of
// the level name, base price, and a creation nonce. It never changes for the
// lifetime of a level, even across deactivation and reordering.
type LevelID [4]byte

// String returns the id as a 0x-prefixed hex string.
func (id LevelID) String() string {
	return hexutil.Encode(id[:])
}

// IsZero reports whether the id is the zero value.
func (id LevelID) IsZero() bool {
	return id == LevelID{}
}

// BondLevel is a mint template: the collateral price and reward weight of
// one bond unit. Levels are never deleted, only deactivated, so historical
// positions can always resolve the level they were minted against.
type BondLevel struct {
	ID   LevelID
	Name string

	// BasePrice is the collateral cost of one unit, in whole tokens.
	// Must be > 0 while the level is active.
	BasePrice uint64

	// Weight is the reward-weighting multiplier in hundredths:
	// 100 = 1.00x, 115 = 1.15x.
	Weight uint16

	// Active levels appear in the mintable ordered sequence; inactive
	// levels are retained for lookups only.
	Active bool

	// SellableAmount caps how many units of this level may be minted in
	// total. Zero means unlimited.
	SellableAmount uint64

	// Minted counts units minted against this level so far.
	Minted uint64
}

// Position is one minted bond unit and its reward-accounting fields.
// Ownership lives in the external position registry; the engine only keys
// accounting by position id.
type Position struct {
	// ID is sequential, unique, and immutable.
	ID uint64

	// LevelID identifies the level the position was minted against.
	LevelID LevelID

	// Weight is the level weight snapshot taken at mint time. Later level
	// changes never alter it.
	Weight uint16

	// UnweightedShares is the principal-equivalent share count, wad scaled.
	// Grows only through compounding claims.
	UnweightedShares *big.Int

	// WeightedShares = UnweightedShares x Weight/100, wad scaled. The
	// ratio is preserved by compounding.
	WeightedShares *big.Int

	// RewardDebt is the accRewardsPerWS x WeightedShares snapshot at the
	// last sync, wad scaled.
	RewardDebt *big.Int

	// ShareDebt is the accSharesPerUS x UnweightedShares snapshot at the
	// last sync, wad scaled.
	ShareDebt *big.Int

	// EarnedTotal is the cumulative reward amount disbursed to the holder,
	// for reporting. It is never compounded.
	EarnedTotal *big.Int
}

// Clone returns a deep copy of the position so callers cannot mutate the
// engine's record through the returned pointer fields.
func (p Position) Clone() Position {
	cp := p
	cp.UnweightedShares = new(big.Int).Set(p.UnweightedShares)
	cp.WeightedShares = new(big.Int).Set(p.WeightedShares)
	cp.RewardDebt = new(big.Int).Set(p.RewardDebt)
	cp.ShareDebt = new(big.Int).Set(p.ShareDebt)
	cp.EarnedTotal = new(big.Int).Set(p.EarnedTotal)
	return cp
}
