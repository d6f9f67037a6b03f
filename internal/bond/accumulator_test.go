package bond

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/bondengine/internal/domain"
	"github.com/alanyoungcy/bondengine/internal/fixedpoint"
)

func wad(n uint64) *big.Int {
	return fixedpoint.FromUnits(n)
}

// wadTenths builds n/10 tokens in wad units.
func wadTenths(n uint64) *big.Int {
	return new(big.Int).Quo(fixedpoint.FromUnits(n), big.NewInt(10))
}

func newTestEngine(t *testing.T, maxPerMint int) (*accounting, *PositionBook, *Accumulator) {
	t.Helper()
	acct := newAccounting()
	book := newPositionBook(acct, maxPerMint)
	return acct, book, newAccumulator(acct, book)
}

func mustCreate(t *testing.T, book *PositionBook, basePrice uint64, weight uint16, units int) []domain.Position {
	t.Helper()
	positions, err := book.Create(domain.BondLevel{BasePrice: basePrice, Weight: weight}, units)
	require.NoError(t, err)
	return positions
}

func TestCreateSeedsDebtsFromCurrentAccumulators(t *testing.T) {
	_, book, acc := newTestEngine(t, 0)

	mustCreate(t, book, 1000, 110, 1)
	require.NoError(t, acc.Deposit(wad(100), wad(100)))

	// A position minted after the deposit owes nothing for it.
	late := mustCreate(t, book, 1000, 110, 1)[0]
	shareDelta, rewardDelta, err := acc.Claimable(late.ID)
	require.NoError(t, err)
	require.Zero(t, shareDelta.Sign())
	require.Zero(t, rewardDelta.Sign())
}

func TestCreateUnitLimits(t *testing.T) {
	_, book, _ := newTestEngine(t, 0)

	_, err := book.Create(domain.BondLevel{BasePrice: 10, Weight: 100}, 0)
	require.ErrorIs(t, err, domain.ErrInvalidParameter)

	_, err = book.Create(domain.BondLevel{BasePrice: 10, Weight: 100}, DefaultMaxPerMint+1)
	require.ErrorIs(t, err, domain.ErrInvalidParameter)

	_, err = book.Create(domain.BondLevel{BasePrice: 10, Weight: 100}, DefaultMaxPerMint)
	require.NoError(t, err)
}

func TestDepositValidation(t *testing.T) {
	_, book, acc := newTestEngine(t, 0)

	require.ErrorIs(t, acc.Deposit(nil, nil), domain.ErrInvalidParameter)
	require.ErrorIs(t, acc.Deposit(big.NewInt(-1), wad(1)), domain.ErrInvalidParameter)

	// Depositing against empty pools must fail loudly, never silently
	// advance the accumulators.
	require.ErrorIs(t, acc.Deposit(wad(100), nil), domain.ErrDivisionHazard)
	require.ErrorIs(t, acc.Deposit(nil, wad(100)), domain.ErrDivisionHazard)

	mustCreate(t, book, 100, 105, 1)
	require.NoError(t, acc.Deposit(wad(100), wad(100)))
}

// The launch scenario: 2 units of Level IV (5000, 115), 2 of Level III
// (1000, 110), 5 of Level II (100, 105); deposit 1000/1000; claim all.
func TestCompoundingScenario(t *testing.T) {
	acct, book, acc := newTestEngine(t, 0)

	posIV := mustCreate(t, book, 5000, 115, 2)
	posIII := mustCreate(t, book, 1000, 110, 2)
	posII := mustCreate(t, book, 100, 105, 5)

	require.Zero(t, acct.totalUnweighted.Cmp(wad(12500)))
	require.Zero(t, acct.totalWeighted.Cmp(wad(14225)))

	require.NoError(t, acc.Deposit(wad(1000), wad(1000)))

	var ids []uint64
	for _, p := range append(append(append([]domain.Position{}, posIV...), posIII...), posII...) {
		ids = append(ids, p.ID)
	}
	claims, err := acc.SettleAll(ids)
	require.NoError(t, err)
	require.Len(t, claims, 9)

	require.Zero(t, acct.totalUnweighted.Cmp(wad(13500)))
	require.Zero(t, acct.totalWeighted.Cmp(wad(15363)))

	for _, p := range posIV {
		got, err := book.Get(p.ID)
		require.NoError(t, err)
		require.Zero(t, got.UnweightedShares.Cmp(wad(5400)), "level IV US")
		require.Zero(t, got.WeightedShares.Cmp(wad(6210)), "level IV WS")
	}
	for _, p := range posIII {
		got, err := book.Get(p.ID)
		require.NoError(t, err)
		require.Zero(t, got.UnweightedShares.Cmp(wad(1080)), "level III US")
		require.Zero(t, got.WeightedShares.Cmp(wad(1188)), "level III WS")
	}
	for _, p := range posII {
		got, err := book.Get(p.ID)
		require.NoError(t, err)
		require.Zero(t, got.UnweightedShares.Cmp(wad(108)), "level II US")
		require.Zero(t, got.WeightedShares.Cmp(wadTenths(1134)), "level II WS")
	}

	// Reward payouts conserve value: the sum never exceeds the deposit.
	total := new(big.Int)
	for _, c := range claims {
		total.Add(total, c.RewardDelta)
	}
	require.LessOrEqual(t, total.Cmp(wad(1000)), 0)
}

func TestClaimableIsIdempotent(t *testing.T) {
	_, book, acc := newTestEngine(t, 0)
	pos := mustCreate(t, book, 5000, 115, 1)[0]
	require.NoError(t, acc.Deposit(wad(100), wad(100)))

	s1, r1, err := acc.Claimable(pos.ID)
	require.NoError(t, err)
	s2, r2, err := acc.Claimable(pos.ID)
	require.NoError(t, err)

	require.Zero(t, s1.Cmp(s2))
	require.Zero(t, r1.Cmp(r2))
	require.Positive(t, s1.Sign())
	require.Positive(t, r1.Sign())
}

func TestSettleNothingToClaim(t *testing.T) {
	acct, book, acc := newTestEngine(t, 0)
	pos := mustCreate(t, book, 100, 105, 1)[0]

	usBefore := new(big.Int).Set(acct.totalUnweighted)
	wsBefore := new(big.Int).Set(acct.totalWeighted)

	_, err := acc.Settle(pos.ID)
	require.ErrorIs(t, err, domain.ErrNothingToClaim)

	require.Zero(t, acct.totalUnweighted.Cmp(usBefore))
	require.Zero(t, acct.totalWeighted.Cmp(wsBefore))
}

func TestSettleResetsDebts(t *testing.T) {
	_, book, acc := newTestEngine(t, 0)
	pos := mustCreate(t, book, 1000, 110, 1)[0]
	require.NoError(t, acc.Deposit(wad(55), wad(50)))

	claim, err := acc.Settle(pos.ID)
	require.NoError(t, err)
	require.Positive(t, claim.ShareDelta.Sign())
	require.Positive(t, claim.RewardDelta.Sign())

	// Without a new deposit there is nothing further to claim.
	shareDelta, rewardDelta, err := acc.Claimable(pos.ID)
	require.NoError(t, err)
	require.Zero(t, shareDelta.Sign())
	require.Zero(t, rewardDelta.Sign())

	got, err := book.Get(pos.ID)
	require.NoError(t, err)
	require.Zero(t, got.EarnedTotal.Cmp(claim.RewardDelta))
}

func TestSettleAllBatchSemantics(t *testing.T) {
	acct, book, acc := newTestEngine(t, 0)
	claimed := mustCreate(t, book, 1000, 110, 1)[0]
	idle := mustCreate(t, book, 100, 105, 1)[0]

	require.NoError(t, acc.Deposit(wad(100), wad(100)))

	// Drain the first position so it has nothing left to claim.
	_, err := acc.Settle(claimed.ID)
	require.NoError(t, err)

	// NothingToClaim ids are skipped, not fatal.
	claims, err := acc.SettleAll([]uint64{claimed.ID, idle.ID})
	require.NoError(t, err)
	require.Len(t, claims, 1)
	require.Equal(t, idle.ID, claims[0].PositionID)

	// An unknown id aborts the whole batch with no state change.
	usBefore := new(big.Int).Set(acct.totalUnweighted)
	require.NoError(t, acc.Deposit(wad(100), wad(100)))
	_, err = acc.SettleAll([]uint64{idle.ID, 999})
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Zero(t, acct.totalUnweighted.Cmp(usBefore))

	shareDelta, _, err := acc.Claimable(idle.ID)
	require.NoError(t, err)
	require.Positive(t, shareDelta.Sign(), "aborted batch must not have settled the valid id")
}

// Conservation across many deposit/claim cycles: the engine never pays out
// more rewards than were deposited, and total US never grows beyond the
// deposited share amounts.
func TestConservationAcrossCycles(t *testing.T) {
	acct, book, acc := newTestEngine(t, 0)

	mustCreate(t, book, 5000, 115, 2)
	mustCreate(t, book, 1000, 110, 3)
	mustCreate(t, book, 100, 105, 7)
	mustCreate(t, book, 10, 100, 11)

	mintedUS := new(big.Int).Set(acct.totalUnweighted)

	depositedRewards := new(big.Int)
	depositedShares := new(big.Int)
	paidRewards := new(big.Int)

	ids := book.IDs()
	for cycle := 0; cycle < 50; cycle++ {
		reward := big.NewInt(int64(cycle%7 + 1))
		reward.Mul(reward, big.NewInt(1e12)) // deliberately awkward amounts
		share := big.NewInt(int64(cycle%5 + 1))
		share.Mul(share, big.NewInt(1e11))

		require.NoError(t, acc.Deposit(reward, share))
		depositedRewards.Add(depositedRewards, reward)
		depositedShares.Add(depositedShares, share)

		// Claim an alternating subset, leaving the rest pending.
		subset := ids[:len(ids)/2+cycle%2]
		claims, err := acc.SettleAll(subset)
		require.NoError(t, err)
		for _, c := range claims {
			paidRewards.Add(paidRewards, c.RewardDelta)
		}
	}

	// Settle everything still outstanding.
	claims, err := acc.SettleAll(ids)
	require.NoError(t, err)
	for _, c := range claims {
		paidRewards.Add(paidRewards, c.RewardDelta)
	}

	require.LessOrEqual(t, paidRewards.Cmp(depositedRewards), 0,
		"paid %s > deposited %s", paidRewards, depositedRewards)

	usGrowth := new(big.Int).Sub(acct.totalUnweighted, mintedUS)
	require.LessOrEqual(t, usGrowth.Cmp(depositedShares), 0,
		"US grew %s > deposited shares %s", usGrowth, depositedShares)

	// Sanity: the engine distributed almost everything. Each deposit can
	// strand at most ~totalWS/1e18 units to flooring, so the slack stays
	// far below one millionth of the deposited total here.
	slack := new(big.Int).Sub(depositedRewards, paidRewards)
	require.Negative(t, slack.Cmp(big.NewInt(10_000_000)),
		"conservation slack unexpectedly large: %s", slack)
}

// Deposit cost must not depend on the number of outstanding positions.
func BenchmarkDeposit(b *testing.B) {
	for _, count := range []int{1, 10000} {
		b.Run(map[int]string{1: "1_position", 10000: "10000_positions"}[count], func(b *testing.B) {
			acct := newAccounting()
			book := newPositionBook(acct, 0)
			acc := newAccumulator(acct, book)
			for i := 0; i < count; i += DefaultMaxPerMint {
				n := DefaultMaxPerMint
				if count-i < n {
					n = count - i
				}
				if _, err := book.Create(domain.BondLevel{BasePrice: 100, Weight: 105}, n); err != nil {
					b.Fatal(err)
				}
			}
			reward := fixedpoint.FromUnits(10)
			share := fixedpoint.FromUnits(10)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := acc.Deposit(reward, share); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
