package bond

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/bondengine/internal/domain"
)

func TestAddLevelAssignsUniqueIDs(t *testing.T) {
	r := NewLevelRegistry()

	a, err := r.Add("Level V", 10000, 120, 0)
	require.NoError(t, err)
	b, err := r.Add("Level V", 10000, 120, 0)
	require.NoError(t, err)

	require.NotEqual(t, a, b, "identical name and price must still get distinct ids")
	require.Equal(t, []domain.LevelID{a, b}, r.ActiveIDs())
}

func TestAddLevelRejectsZeroPrice(t *testing.T) {
	r := NewLevelRegistry()
	_, err := r.Add("free", 0, 100, 0)
	require.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestLevelCapacity(t *testing.T) {
	r := NewLevelRegistry()

	ids := make([]domain.LevelID, 0, MaxActiveLevels)
	for i := 0; i < MaxActiveLevels; i++ {
		id, err := r.Add(fmt.Sprintf("Level %d", i), uint64(i+1)*10, 100, 0)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	_, err := r.Add("one too many", 10, 100, 0)
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)

	// Freeing a slot makes room again.
	require.NoError(t, r.Deactivate(ids[3]))
	_, err = r.Add("replacement", 10, 100, 0)
	require.NoError(t, err)
	require.Len(t, r.ActiveIDs(), MaxActiveLevels)
}

func TestDeactivateLevel(t *testing.T) {
	r := NewLevelRegistry()
	a, _ := r.Add("a", 10, 100, 0)
	b, _ := r.Add("b", 20, 105, 0)

	require.NoError(t, r.Deactivate(a))
	require.ErrorIs(t, r.Deactivate(a), domain.ErrAlreadyInactive)
	require.ErrorIs(t, r.Deactivate(domain.LevelID{0xde, 0xad, 0xbe, 0xef}), domain.ErrNotFound)

	require.Equal(t, []domain.LevelID{b}, r.ActiveIDs())

	// Deactivated levels stay resolvable for historical lookups.
	lvl, err := r.Get(a)
	require.NoError(t, err)
	require.False(t, lvl.Active)
	require.Equal(t, uint64(10), lvl.BasePrice)
}

func TestActivateLevelAtIndex(t *testing.T) {
	r := NewLevelRegistry()
	a, _ := r.Add("a", 10, 100, 0)
	b, _ := r.Add("b", 20, 105, 0)
	c, _ := r.Add("c", 30, 110, 0)

	require.ErrorIs(t, r.Activate(a, 0), domain.ErrAlreadyActive)

	require.NoError(t, r.Deactivate(a))
	require.ErrorIs(t, r.Activate(a, 3), domain.ErrIndexOutOfRange)

	require.NoError(t, r.Activate(a, 1))
	// Deactivate used swap-and-pop, so the survivors were [c b]; insertion
	// shifts b right.
	require.Equal(t, []domain.LevelID{c, a, b}, r.ActiveIDs())

	lvl, err := r.Get(a)
	require.NoError(t, err)
	require.True(t, lvl.Active)
}

func TestActivateLevelCapacity(t *testing.T) {
	r := NewLevelRegistry()
	a, _ := r.Add("a", 10, 100, 0)
	require.NoError(t, r.Deactivate(a))

	for i := 0; i < MaxActiveLevels; i++ {
		_, err := r.Add(fmt.Sprintf("fill %d", i), 10, 100, 0)
		require.NoError(t, err)
	}
	require.ErrorIs(t, r.Activate(a, 0), domain.ErrCapacityExceeded)
}

func TestRearrangeLevelPreservesRelativeOrder(t *testing.T) {
	r := NewLevelRegistry()
	a, _ := r.Add("a", 10, 100, 0)
	b, _ := r.Add("b", 20, 105, 0)
	c, _ := r.Add("c", 30, 110, 0)
	d, _ := r.Add("d", 40, 115, 0)

	require.NoError(t, r.Rearrange(d, 1))
	require.Equal(t, []domain.LevelID{a, d, b, c}, r.ActiveIDs())

	require.NoError(t, r.Rearrange(a, 3))
	require.Equal(t, []domain.LevelID{d, b, c, a}, r.ActiveIDs())

	// Moving to the current slot is a no-op.
	require.NoError(t, r.Rearrange(d, 0))
	require.Equal(t, []domain.LevelID{d, b, c, a}, r.ActiveIDs())
}

func TestRearrangeLevelErrors(t *testing.T) {
	r := NewLevelRegistry()
	a, _ := r.Add("a", 10, 100, 0)
	b, _ := r.Add("b", 20, 105, 0)

	require.ErrorIs(t, r.Rearrange(domain.LevelID{1, 2, 3, 4}, 0), domain.ErrNotFound)
	require.ErrorIs(t, r.Rearrange(a, 2), domain.ErrIndexOutOfRange)
	require.ErrorIs(t, r.Rearrange(a, -1), domain.ErrIndexOutOfRange)

	require.NoError(t, r.Deactivate(b))
	require.ErrorIs(t, r.Rearrange(b, 0), domain.ErrInactiveLevel)
}

func TestChangeLevel(t *testing.T) {
	r := NewLevelRegistry()
	a, _ := r.Add("a", 10, 100, 0)
	b, _ := r.Add("b", 20, 105, 0)

	require.ErrorIs(t, r.Change(domain.LevelID{9, 9, 9, 9}, "x", 1, 1, 0), domain.ErrNotFound)
	require.ErrorIs(t, r.Change(a, "x", 0, 100, 0), domain.ErrInvalidParameter)

	require.NoError(t, r.Change(a, "Level 5", 20000, 120, 50))

	lvl, err := r.Get(a)
	require.NoError(t, err)
	require.Equal(t, "Level 5", lvl.Name)
	require.Equal(t, uint64(20000), lvl.BasePrice)
	require.Equal(t, uint16(120), lvl.Weight)
	require.Equal(t, uint64(50), lvl.SellableAmount)

	// Changing fields never moves the level in the sequence.
	require.Equal(t, []domain.LevelID{a, b}, r.ActiveIDs())
}
