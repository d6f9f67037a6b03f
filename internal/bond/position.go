package bond

import (
	"fmt"
	"math/big"

	"github.com/alanyoungcy/bondengine/internal/domain"
	"github.com/alanyoungcy/bondengine/internal/fixedpoint"
)

// DefaultMaxPerMint is the default per-call mint limit.
const DefaultMaxPerMint = 20

// PositionBook owns the minted positions and keeps the global share totals
// in sync with every create, compound, and remove.
type PositionBook struct {
	positions  map[uint64]*domain.Position
	nextID     uint64
	acct       *accounting
	maxPerMint int
}

func newPositionBook(acct *accounting, maxPerMint int) *PositionBook {
	if maxPerMint <= 0 {
		maxPerMint = DefaultMaxPerMint
	}
	return &PositionBook{
		positions:  make(map[uint64]*domain.Position),
		nextID:     1,
		acct:       acct,
		maxPerMint: maxPerMint,
	}
}

// Create mints units positions against the given level snapshot. New
// positions are seeded with debts taken from the current accumulators, so
// they owe nothing for deposits that predate them. Returns copies of the
// created records.
func (b *PositionBook) Create(level domain.BondLevel, units int) ([]domain.Position, error) {
	if units <= 0 {
		return nil, fmt.Errorf("bond: create positions: zero units: %w", domain.ErrInvalidParameter)
	}
	if units > b.maxPerMint {
		return nil, fmt.Errorf("bond: create positions: %d units exceeds per-call limit %d: %w",
			units, b.maxPerMint, domain.ErrInvalidParameter)
	}

	created := make([]domain.Position, 0, units)
	for i := 0; i < units; i++ {
		us := fixedpoint.FromUnits(level.BasePrice)
		ws := fixedpoint.ApplyHundredths(us, level.Weight)

		pos := &domain.Position{
			ID:               b.nextID,
			LevelID:          level.ID,
			Weight:           level.Weight,
			UnweightedShares: us,
			WeightedShares:   ws,
			RewardDebt:       fixedpoint.WadMul(ws, b.acct.accRewardsPerWS),
			ShareDebt:        fixedpoint.WadMul(us, b.acct.accSharesPerUS),
			EarnedTotal:      new(big.Int),
		}
		b.nextID++
		b.positions[pos.ID] = pos

		b.acct.totalUnweighted.Add(b.acct.totalUnweighted, us)
		b.acct.totalWeighted.Add(b.acct.totalWeighted, ws)

		created = append(created, pos.Clone())
	}
	return created, nil
}

// Get returns a copy of the position with the given id.
func (b *PositionBook) Get(id uint64) (domain.Position, error) {
	pos, ok := b.positions[id]
	if !ok {
		return domain.Position{}, fmt.Errorf("bond: get position %d: %w", id, domain.ErrNotFound)
	}
	return pos.Clone(), nil
}

// lookup returns the live record; callers inside the package mutate it only
// under the manager's serialization boundary.
func (b *PositionBook) lookup(id uint64) (*domain.Position, error) {
	pos, ok := b.positions[id]
	if !ok {
		return nil, fmt.Errorf("bond: position %d: %w", id, domain.ErrNotFound)
	}
	return pos, nil
}

// remove deletes a position and subtracts its shares from the global totals.
// The caller must have settled any outstanding claim first.
func (b *PositionBook) remove(id uint64) error {
	pos, ok := b.positions[id]
	if !ok {
		return fmt.Errorf("bond: remove position %d: %w", id, domain.ErrNotFound)
	}
	b.acct.totalUnweighted.Sub(b.acct.totalUnweighted, pos.UnweightedShares)
	b.acct.totalWeighted.Sub(b.acct.totalWeighted, pos.WeightedShares)
	delete(b.positions, id)
	return nil
}

// Count returns the number of live positions.
func (b *PositionBook) Count() int {
	return len(b.positions)
}

// IDs returns the ids of all live positions in unspecified order.
func (b *PositionBook) IDs() []uint64 {
	out := make([]uint64, 0, len(b.positions))
	for id := range b.positions {
		out = append(out, id)
	}
	return out
}
