package bond

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/alanyoungcy/bondengine/internal/domain"
	"github.com/alanyoungcy/bondengine/internal/fixedpoint"
)

// Accumulator is the distribution engine. A deposit advances the two global
// per-share accumulators in O(1); per-position claims settle against them
// using the stored debts. All divisions floor, so the sum of individual
// claims can fall short of a deposit by dust but can never exceed it.
type Accumulator struct {
	acct *accounting
	book *PositionBook
}

func newAccumulator(acct *accounting, book *PositionBook) *Accumulator {
	return &Accumulator{acct: acct, book: book}
}

// Claim is the settlement outcome for one position.
type Claim struct {
	PositionID  uint64
	ShareDelta  *big.Int
	RewardDelta *big.Int
}

// Deposit distributes rewardAmount over weighted shares and shareAmount over
// unweighted shares. Cost is independent of the number of positions. A
// non-zero amount aimed at an empty pool fails with ErrDivisionHazard
// instead of silently stranding value.
func (a *Accumulator) Deposit(rewardAmount, shareAmount *big.Int) error {
	reward := normalize(rewardAmount)
	share := normalize(shareAmount)
	if reward.Sign() < 0 || share.Sign() < 0 {
		return fmt.Errorf("bond: deposit: negative amount: %w", domain.ErrInvalidParameter)
	}
	if reward.Sign() == 0 && share.Sign() == 0 {
		return fmt.Errorf("bond: deposit: both amounts zero: %w", domain.ErrInvalidParameter)
	}
	if reward.Sign() > 0 && a.acct.totalWeighted.Sign() == 0 {
		return fmt.Errorf("bond: deposit rewards with no weighted shares: %w", domain.ErrDivisionHazard)
	}
	if share.Sign() > 0 && a.acct.totalUnweighted.Sign() == 0 {
		return fmt.Errorf("bond: deposit shares with no unweighted shares: %w", domain.ErrDivisionHazard)
	}

	if reward.Sign() > 0 {
		a.acct.accRewardsPerWS.Add(a.acct.accRewardsPerWS, fixedpoint.WadDiv(reward, a.acct.totalWeighted))
	}
	if share.Sign() > 0 {
		a.acct.accSharesPerUS.Add(a.acct.accSharesPerUS, fixedpoint.WadDiv(share, a.acct.totalUnweighted))
	}
	return nil
}

// Claimable returns the share and reward deltas the position would settle if
// claimed now. It never mutates state.
func (a *Accumulator) Claimable(id uint64) (shareDelta, rewardDelta *big.Int, err error) {
	pos, err := a.book.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	shareDelta, rewardDelta = a.pending(pos)
	return shareDelta, rewardDelta, nil
}

func (a *Accumulator) pending(pos *domain.Position) (shareDelta, rewardDelta *big.Int) {
	shareDelta = fixedpoint.WadMul(pos.UnweightedShares, a.acct.accSharesPerUS)
	shareDelta.Sub(shareDelta, pos.ShareDebt)
	rewardDelta = fixedpoint.WadMul(pos.WeightedShares, a.acct.accRewardsPerWS)
	rewardDelta.Sub(rewardDelta, pos.RewardDebt)
	return shareDelta, rewardDelta
}

// Settle claims the position: the share delta compounds into US, WS grows by
// the same delta scaled by the position's own weight (preserving
// WS = US x weight/100), the reward delta is recorded in EarnedTotal for
// disbursement by the caller, and both debts reset to the current
// accumulators. Fails with ErrNothingToClaim when both deltas are zero; that
// failure leaves no trace on the totals.
func (a *Accumulator) Settle(id uint64) (Claim, error) {
	pos, err := a.book.lookup(id)
	if err != nil {
		return Claim{}, err
	}

	shareDelta, rewardDelta := a.pending(pos)
	if shareDelta.Sign() == 0 && rewardDelta.Sign() == 0 {
		return Claim{}, fmt.Errorf("bond: claim position %d: %w", id, domain.ErrNothingToClaim)
	}

	wsDelta := fixedpoint.ApplyHundredths(shareDelta, pos.Weight)

	pos.UnweightedShares.Add(pos.UnweightedShares, shareDelta)
	pos.WeightedShares.Add(pos.WeightedShares, wsDelta)
	a.acct.totalUnweighted.Add(a.acct.totalUnweighted, shareDelta)
	a.acct.totalWeighted.Add(a.acct.totalWeighted, wsDelta)

	pos.ShareDebt = fixedpoint.WadMul(pos.UnweightedShares, a.acct.accSharesPerUS)
	pos.RewardDebt = fixedpoint.WadMul(pos.WeightedShares, a.acct.accRewardsPerWS)
	pos.EarnedTotal.Add(pos.EarnedTotal, rewardDelta)

	return Claim{PositionID: id, ShareDelta: shareDelta, RewardDelta: rewardDelta}, nil
}

// SettleAll claims every id in the batch. Ids with nothing to claim are
// skipped; an unknown id fails the whole batch before any state changes, so
// the totals are never left partially applied.
func (a *Accumulator) SettleAll(ids []uint64) ([]Claim, error) {
	for _, id := range ids {
		if _, err := a.book.lookup(id); err != nil {
			return nil, err
		}
	}

	claims := make([]Claim, 0, len(ids))
	for _, id := range ids {
		claim, err := a.Settle(id)
		if err != nil {
			if errors.Is(err, domain.ErrNothingToClaim) {
				continue
			}
			return nil, err
		}
		claims = append(claims, claim)
	}
	return claims, nil
}

func normalize(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
