package bond

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/bondengine/internal/domain"
	"github.com/alanyoungcy/bondengine/internal/fixedpoint"
)

// Config holds the Manager's dependencies and tunables.
type Config struct {
	// Ledger is the external token-custody collaborator. Required.
	Ledger domain.FungibleLedger

	// Registry is the external position-ownership collaborator. Required.
	Registry domain.PositionRegistry

	// Treasury is the account authorized to deposit rewards.
	Treasury common.Address

	// MaxPerMint caps units per Mint call. Defaults to DefaultMaxPerMint.
	MaxPerMint int

	// SeedLevels installs the four historical launch levels at construction.
	SeedLevels bool

	// Sink receives engine events. Optional; publish failures are logged
	// and never fail the operation that produced the event.
	Sink domain.EventSink

	Logger *slog.Logger
}

// seedLevels are the four launch levels installed when SeedLevels is set.
var seedLevels = []struct {
	name      string
	basePrice uint64
	weight    uint16
}{
	{"Level I", 10, 100},
	{"Level II", 100, 105},
	{"Level III", 1000, 110},
	{"Level IV", 5000, 115},
}

// Manager validates external calls, composes the level registry, position
// book, and accumulator, and talks to the token and position collaborators.
// Every mutating operation runs under one mutex: the engine assumes a
// single-writer, serialized-transaction model. External collaborator calls
// are ordered strictly around internal mutations (pull funds before
// mutating, disburse and mint NFTs after), so a reentrant caller can never
// observe half-applied accounting.
type Manager struct {
	mu sync.Mutex

	levels *LevelRegistry
	book   *PositionBook
	acc    *Accumulator
	acct   *accounting

	ledger   domain.FungibleLedger
	registry domain.PositionRegistry
	treasury common.Address

	sink   domain.EventSink
	logger *slog.Logger
}

// NewManager builds a Manager from the given config.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("bond: new manager: nil ledger: %w", domain.ErrInvalidParameter)
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("bond: new manager: nil registry: %w", domain.ErrInvalidParameter)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	acct := newAccounting()
	book := newPositionBook(acct, cfg.MaxPerMint)
	m := &Manager{
		levels:   NewLevelRegistry(),
		book:     book,
		acc:      newAccumulator(acct, book),
		acct:     acct,
		ledger:   cfg.Ledger,
		registry: cfg.Registry,
		treasury: cfg.Treasury,
		sink:     cfg.Sink,
		logger:   logger.With(slog.String("component", "bond_manager")),
	}

	if cfg.SeedLevels {
		for _, s := range seedLevels {
			if _, err := m.levels.Add(s.name, s.basePrice, s.weight, 0); err != nil {
				return nil, fmt.Errorf("bond: seed level %q: %w", s.name, err)
			}
		}
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// Level administration
// ---------------------------------------------------------------------------

// AddLevel creates a new active level at the end of the ordered sequence.
func (m *Manager) AddLevel(ctx context.Context, name string, basePrice uint64, weight uint16, sellable uint64) (domain.LevelID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.levels.Add(name, basePrice, weight, sellable)
	if err != nil {
		return domain.LevelID{}, err
	}
	m.logger.InfoContext(ctx, "level added",
		slog.String("level_id", id.String()),
		slog.String("name", name),
		slog.Uint64("base_price", basePrice),
	)
	m.emit(ctx, domain.NewEvent(domain.EventLevelAdded, map[string]any{
		"level_id":   id.String(),
		"name":       name,
		"base_price": basePrice,
		"weight":     weight,
		"sellable":   sellable,
	}))
	return id, nil
}

// ChangeLevel updates a level in place. Existing positions keep the price
// and weight they were minted with.
func (m *Manager) ChangeLevel(ctx context.Context, id domain.LevelID, name string, basePrice uint64, weight uint16, sellable uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.levels.Change(id, name, basePrice, weight, sellable); err != nil {
		return err
	}
	m.emit(ctx, domain.NewEvent(domain.EventLevelChanged, map[string]any{
		"level_id":   id.String(),
		"name":       name,
		"base_price": basePrice,
		"weight":     weight,
		"sellable":   sellable,
	}))
	return nil
}

// DeactivateLevel removes a level from the mintable sequence.
func (m *Manager) DeactivateLevel(ctx context.Context, id domain.LevelID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.levels.Deactivate(id); err != nil {
		return err
	}
	m.emit(ctx, domain.NewEvent(domain.EventLevelDeactivated, map[string]any{
		"level_id": id.String(),
	}))
	return nil
}

// ActivateLevel re-inserts a deactivated level at the given index.
func (m *Manager) ActivateLevel(ctx context.Context, id domain.LevelID, at int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.levels.Activate(id, at); err != nil {
		return err
	}
	m.emit(ctx, domain.NewEvent(domain.EventLevelActivated, map[string]any{
		"level_id": id.String(),
		"index":    at,
	}))
	return nil
}

// RearrangeLevel moves an active level to a new index, preserving the
// relative order of the others.
func (m *Manager) RearrangeLevel(ctx context.Context, id domain.LevelID, at int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.levels.Rearrange(id, at); err != nil {
		return err
	}
	m.emit(ctx, domain.NewEvent(domain.EventLevelRearranged, map[string]any{
		"level_id": id.String(),
		"index":    at,
	}))
	return nil
}

// ActiveLevels returns the active levels in display order.
func (m *Manager) ActiveLevels() []domain.BondLevel {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.levels.ActiveIDs()
	out := make([]domain.BondLevel, 0, len(ids))
	for _, id := range ids {
		lvl, err := m.levels.Get(id)
		if err != nil {
			continue
		}
		out = append(out, lvl)
	}
	return out
}

// Level returns the level with the given id, active or not.
func (m *Manager) Level(id domain.LevelID) (domain.BondLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.levels.Get(id)
}

// Price returns the wad collateral cost of one unit of the level.
func (m *Manager) Price(id domain.LevelID) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lvl, err := m.levels.Get(id)
	if err != nil {
		return nil, err
	}
	return fixedpoint.FromUnits(lvl.BasePrice), nil
}

// ---------------------------------------------------------------------------
// Minting and rewards
// ---------------------------------------------------------------------------

// Mint creates units positions at the given level for payer. The collateral
// (basePrice x units) is pulled from payer before any internal mutation;
// position NFTs are minted in the external registry only after the book and
// totals are updated.
func (m *Manager) Mint(ctx context.Context, levelID domain.LevelID, units int, payer common.Address) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lvl, err := m.levels.Get(levelID)
	if err != nil {
		return nil, err
	}
	if !lvl.Active {
		return nil, fmt.Errorf("bond: mint level %s: %w", levelID, domain.ErrInactiveLevel)
	}
	if units <= 0 || units > m.book.maxPerMint {
		return nil, fmt.Errorf("bond: mint %d units (limit %d): %w", units, m.book.maxPerMint, domain.ErrInvalidParameter)
	}
	if lvl.SellableAmount > 0 && lvl.Minted+uint64(units) > lvl.SellableAmount {
		return nil, fmt.Errorf("bond: mint level %s: sellable cap %d reached: %w",
			levelID, lvl.SellableAmount, domain.ErrCapacityExceeded)
	}

	cost := new(big.Int).Mul(fixedpoint.FromUnits(lvl.BasePrice), big.NewInt(int64(units)))
	if err := m.ledger.TransferIn(ctx, payer, cost); err != nil {
		return nil, fmt.Errorf("bond: mint collateral pull: %w", err)
	}

	positions, err := m.book.Create(lvl, units)
	if err != nil {
		// Unreachable after the unit checks above; surfaced for safety.
		return nil, err
	}
	m.levels.addMinted(levelID, uint64(units))

	ids := make([]uint64, 0, len(positions))
	for _, pos := range positions {
		if err := m.registry.MintPosition(ctx, payer, pos.ID); err != nil {
			return nil, fmt.Errorf("bond: registry mint position %d: %w", pos.ID, err)
		}
		ids = append(ids, pos.ID)
		m.emit(ctx, domain.NewEvent(domain.EventPositionMinted, map[string]any{
			"position_id":       pos.ID,
			"level_id":          levelID.String(),
			"unweighted_shares": pos.UnweightedShares.String(),
			"weighted_shares":   pos.WeightedShares.String(),
			"owner":             payer.Hex(),
		}))
	}

	m.logger.InfoContext(ctx, "positions minted",
		slog.String("level_id", levelID.String()),
		slog.Int("units", units),
		slog.String("cost", cost.String()),
	)
	return ids, nil
}

// DepositRewards pulls rewardAmount+shareAmount from funder and advances the
// accumulators in O(1). The zero-share hazard is checked before any funds
// move, so a failed deposit never strands value in the treasury.
func (m *Manager) DepositRewards(ctx context.Context, rewardAmount, shareAmount *big.Int, funder common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.treasury != (common.Address{}) && funder != m.treasury {
		return fmt.Errorf("bond: deposit from %s: %w", funder.Hex(), domain.ErrUnauthorized)
	}

	reward := normalize(rewardAmount)
	share := normalize(shareAmount)
	if reward.Sign() < 0 || share.Sign() < 0 {
		return fmt.Errorf("bond: deposit: negative amount: %w", domain.ErrInvalidParameter)
	}
	if reward.Sign() == 0 && share.Sign() == 0 {
		return fmt.Errorf("bond: deposit: both amounts zero: %w", domain.ErrInvalidParameter)
	}
	if reward.Sign() > 0 && m.acct.totalWeighted.Sign() == 0 {
		return fmt.Errorf("bond: deposit rewards with no positions: %w", domain.ErrDivisionHazard)
	}
	if share.Sign() > 0 && m.acct.totalUnweighted.Sign() == 0 {
		return fmt.Errorf("bond: deposit shares with no positions: %w", domain.ErrDivisionHazard)
	}

	total := new(big.Int).Add(reward, share)
	if err := m.ledger.TransferIn(ctx, funder, total); err != nil {
		return fmt.Errorf("bond: deposit pull: %w", err)
	}

	if err := m.acc.Deposit(reward, share); err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "rewards deposited",
		slog.String("reward_amount", reward.String()),
		slog.String("share_amount", share.String()),
	)
	m.emit(ctx, domain.NewEvent(domain.EventRewardsDeposited, map[string]any{
		"reward_amount": reward.String(),
		"share_amount":  share.String(),
		"funder":        funder.Hex(),
	}))
	return nil
}

// Claimable returns the deltas the position would settle if claimed now.
func (m *Manager) Claimable(id uint64) (shareDelta, rewardDelta *big.Int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acc.Claimable(id)
}

// ClaimPosition settles one position for caller, compounding the share delta
// and disbursing the reward delta. The caller must own the position in the
// external registry. Fails with ErrNothingToClaim when there is nothing to
// settle; totals are untouched in that case.
func (m *Manager) ClaimPosition(ctx context.Context, id uint64, caller common.Address) (shareDelta, rewardDelta *big.Int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireOwner(ctx, id, caller); err != nil {
		return nil, nil, err
	}

	claim, err := m.acc.Settle(id)
	if err != nil {
		return nil, nil, err
	}
	if err := m.disburse(ctx, caller, claim); err != nil {
		return nil, nil, err
	}
	return claim.ShareDelta, claim.RewardDelta, nil
}

// ClaimAllPositions settles a batch of positions owned by caller. Positions
// with nothing to claim are skipped; any other failure aborts the batch
// before any state changes. The summed reward is disbursed in one transfer.
func (m *Manager) ClaimAllPositions(ctx context.Context, ids []uint64, caller common.Address) ([]Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		if err := m.requireOwner(ctx, id, caller); err != nil {
			return nil, err
		}
	}

	claims, err := m.acc.SettleAll(ids)
	if err != nil {
		return nil, err
	}

	totalReward := new(big.Int)
	for _, claim := range claims {
		totalReward.Add(totalReward, claim.RewardDelta)
	}
	if totalReward.Sign() > 0 {
		if err := m.ledger.TransferOut(ctx, caller, totalReward); err != nil {
			return nil, fmt.Errorf("bond: claim disburse: %w", err)
		}
	}
	for _, claim := range claims {
		m.emitClaim(ctx, claim)
	}
	return claims, nil
}

// Redeem settles any outstanding claim, removes the position's contribution
// from the global totals, deletes the record, and burns the NFT in the
// external registry. Principal is not refunded; it remains with the
// treasury.
func (m *Manager) Redeem(ctx context.Context, id uint64, caller common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireOwner(ctx, id, caller); err != nil {
		return err
	}

	claim, err := m.acc.Settle(id)
	if err != nil && !errors.Is(err, domain.ErrNothingToClaim) {
		return err
	}

	if err := m.book.remove(id); err != nil {
		return err
	}

	if err := m.registry.BurnPosition(ctx, id); err != nil {
		return fmt.Errorf("bond: registry burn position %d: %w", id, err)
	}
	if claim.RewardDelta != nil && claim.RewardDelta.Sign() > 0 {
		if err := m.ledger.TransferOut(ctx, caller, claim.RewardDelta); err != nil {
			return fmt.Errorf("bond: redeem disburse: %w", err)
		}
	}

	m.logger.InfoContext(ctx, "position redeemed", slog.Uint64("position_id", id))
	m.emit(ctx, domain.NewEvent(domain.EventPositionRedeemed, map[string]any{
		"position_id": id,
		"owner":       caller.Hex(),
	}))
	return nil
}

// ---------------------------------------------------------------------------
// Read accessors
// ---------------------------------------------------------------------------

// Position returns a copy of the position record.
func (m *Manager) Position(id uint64) (domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.Get(id)
}

// TotalUnweightedShares returns the wad sum of US over all live positions.
func (m *Manager) TotalUnweightedShares() *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.acct.totalUnweighted)
}

// TotalWeightedShares returns the wad sum of WS over all live positions.
func (m *Manager) TotalWeightedShares() *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.acct.totalWeighted)
}

func (m *Manager) requireOwner(ctx context.Context, id uint64, caller common.Address) error {
	owner, err := m.registry.OwnerOf(ctx, id)
	if err != nil {
		return fmt.Errorf("bond: resolve owner of %d: %w", id, err)
	}
	if owner != caller {
		return fmt.Errorf("bond: position %d owned by %s: %w", id, owner.Hex(), domain.ErrUnauthorized)
	}
	return nil
}

func (m *Manager) disburse(ctx context.Context, to common.Address, claim Claim) error {
	if claim.RewardDelta.Sign() > 0 {
		if err := m.ledger.TransferOut(ctx, to, claim.RewardDelta); err != nil {
			return fmt.Errorf("bond: claim disburse: %w", err)
		}
	}
	m.emitClaim(ctx, claim)
	return nil
}

func (m *Manager) emitClaim(ctx context.Context, claim Claim) {
	m.emit(ctx, domain.NewEvent(domain.EventPositionClaimed, map[string]any{
		"position_id":  claim.PositionID,
		"share_delta":  claim.ShareDelta.String(),
		"reward_delta": claim.RewardDelta.String(),
	}))
}

func (m *Manager) emit(ctx context.Context, ev domain.Event) {
	if m.sink == nil {
		return
	}
	if err := m.sink.Publish(ctx, ev); err != nil {
		m.logger.WarnContext(ctx, "event publish failed",
			slog.String("kind", string(ev.Kind)),
			slog.String("error", err.Error()),
		)
	}
}
