package bond

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/alanyoungcy/bondengine/internal/domain"
)

// MaxActiveLevels is the fixed capacity of the active-level sequence.
const MaxActiveLevels = 10

// LevelRegistry manages the bounded, ordered set of bond levels. Levels are
// never deleted; deactivation removes a level from the active sequence while
// keeping it resolvable by id.
type LevelRegistry struct {
	levels map[domain.LevelID]*domain.BondLevel

	// active is the ordered sequence of mintable level ids; index maps an
	// id to its slot in active for O(1) membership and removal.
	active []domain.LevelID
	index  map[domain.LevelID]int

	nonce uint64
}

// NewLevelRegistry creates an empty registry.
func NewLevelRegistry() *LevelRegistry {
	return &LevelRegistry{
		levels: make(map[domain.LevelID]*domain.BondLevel),
		index:  make(map[domain.LevelID]int),
	}
}

// deriveLevelID hashes (name, basePrice, nonce) and takes the first four
// bytes, matching the historical bytes4 level ids.
func deriveLevelID(name string, basePrice, nonce uint64) domain.LevelID {
	buf := make([]byte, 0, len(name)+16)
	buf = append(buf, name...)
	buf = binary.BigEndian.AppendUint64(buf, basePrice)
	buf = binary.BigEndian.AppendUint64(buf, nonce)
	var id domain.LevelID
	copy(id[:], crypto.Keccak256(buf)[:4])
	return id
}

// Add creates a new active level at the end of the ordered sequence and
// returns its id. sellable of zero means no mint cap.
func (r *LevelRegistry) Add(name string, basePrice uint64, weight uint16, sellable uint64) (domain.LevelID, error) {
	if basePrice == 0 {
		return domain.LevelID{}, fmt.Errorf("bond: add level %q: base price is zero: %w", name, domain.ErrInvalidParameter)
	}
	if len(r.active) >= MaxActiveLevels {
		return domain.LevelID{}, fmt.Errorf("bond: add level %q: %d active levels: %w", name, len(r.active), domain.ErrCapacityExceeded)
	}

	// The nonce guarantees a fresh id even when (name, basePrice) repeats;
	// the loop absorbs 4-byte prefix collisions.
	id := deriveLevelID(name, basePrice, r.nonce)
	r.nonce++
	for {
		if _, taken := r.levels[id]; !taken {
			break
		}
		id = deriveLevelID(name, basePrice, r.nonce)
		r.nonce++
	}

	r.levels[id] = &domain.BondLevel{
		ID:             id,
		Name:           name,
		BasePrice:      basePrice,
		Weight:         weight,
		Active:         true,
		SellableAmount: sellable,
	}
	r.index[id] = len(r.active)
	r.active = append(r.active, id)
	return id, nil
}

// Change updates a level's fields in place. It does not move the level in
// the ordered sequence and never affects already-minted positions.
func (r *LevelRegistry) Change(id domain.LevelID, name string, basePrice uint64, weight uint16, sellable uint64) error {
	lvl, ok := r.levels[id]
	if !ok {
		return fmt.Errorf("bond: change level %s: %w", id, domain.ErrNotFound)
	}
	if basePrice == 0 {
		return fmt.Errorf("bond: change level %s: base price is zero: %w", id, domain.ErrInvalidParameter)
	}
	lvl.Name = name
	lvl.BasePrice = basePrice
	lvl.Weight = weight
	lvl.SellableAmount = sellable
	return nil
}

// Deactivate removes a level from the active sequence with swap-and-pop, so
// the order of the remaining levels may change. Use Rearrange afterwards if
// display order matters.
func (r *LevelRegistry) Deactivate(id domain.LevelID) error {
	lvl, ok := r.levels[id]
	if !ok {
		return fmt.Errorf("bond: deactivate level %s: %w", id, domain.ErrNotFound)
	}
	if !lvl.Active {
		return fmt.Errorf("bond: deactivate level %s: %w", id, domain.ErrAlreadyInactive)
	}

	at := r.index[id]
	last := len(r.active) - 1
	if at != last {
		moved := r.active[last]
		r.active[at] = moved
		r.index[moved] = at
	}
	r.active = r.active[:last]
	delete(r.index, id)
	lvl.Active = false
	return nil
}

// Activate re-inserts a deactivated level at the given position in the
// ordered sequence, shifting subsequent entries. at may equal the current
// active count to append.
func (r *LevelRegistry) Activate(id domain.LevelID, at int) error {
	lvl, ok := r.levels[id]
	if !ok {
		return fmt.Errorf("bond: activate level %s: %w", id, domain.ErrNotFound)
	}
	if lvl.Active {
		return fmt.Errorf("bond: activate level %s: %w", id, domain.ErrAlreadyActive)
	}
	if len(r.active) >= MaxActiveLevels {
		return fmt.Errorf("bond: activate level %s: %w", id, domain.ErrCapacityExceeded)
	}
	if at < 0 || at > len(r.active) {
		return fmt.Errorf("bond: activate level %s at %d: %w", id, at, domain.ErrIndexOutOfRange)
	}

	r.insertAt(id, at)
	lvl.Active = true
	return nil
}

// Rearrange moves an active level to a new position, preserving the relative
// order of all other levels.
func (r *LevelRegistry) Rearrange(id domain.LevelID, at int) error {
	lvl, ok := r.levels[id]
	if !ok {
		return fmt.Errorf("bond: rearrange level %s: %w", id, domain.ErrNotFound)
	}
	if !lvl.Active {
		return fmt.Errorf("bond: rearrange level %s: %w", id, domain.ErrInactiveLevel)
	}
	if at < 0 || at >= len(r.active) {
		return fmt.Errorf("bond: rearrange level %s at %d: %w", id, at, domain.ErrIndexOutOfRange)
	}

	cur := r.index[id]
	if cur == at {
		return nil
	}
	// Remove with shift, not swap-and-pop: rearrangement must keep every
	// other level's relative order intact.
	copy(r.active[cur:], r.active[cur+1:])
	r.active = r.active[:len(r.active)-1]
	for i := cur; i < len(r.active); i++ {
		r.index[r.active[i]] = i
	}
	r.insertAt(id, at)
	return nil
}

func (r *LevelRegistry) insertAt(id domain.LevelID, at int) {
	r.active = append(r.active, domain.LevelID{})
	copy(r.active[at+1:], r.active[at:])
	r.active[at] = id
	for i := at; i < len(r.active); i++ {
		r.index[r.active[i]] = i
	}
}

// ActiveIDs returns the ordered sequence of active level ids.
func (r *LevelRegistry) ActiveIDs() []domain.LevelID {
	out := make([]domain.LevelID, len(r.active))
	copy(out, r.active)
	return out
}

// Get returns a copy of the level with the given id.
func (r *LevelRegistry) Get(id domain.LevelID) (domain.BondLevel, error) {
	lvl, ok := r.levels[id]
	if !ok {
		return domain.BondLevel{}, fmt.Errorf("bond: get level %s: %w", id, domain.ErrNotFound)
	}
	return *lvl, nil
}

// addMinted bumps the per-level minted counter after a successful mint.
func (r *LevelRegistry) addMinted(id domain.LevelID, units uint64) {
	if lvl, ok := r.levels[id]; ok {
		lvl.Minted += units
	}
}
