// Package memledger provides in-memory implementations of the fungible
// ledger and position registry collaborators, used by tests and by the
// engine's dev mode.
package memledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/bondengine/internal/domain"
)

// Ledger is an in-memory fungible token ledger with a single treasury
// account that custody flows in and out of.
type Ledger struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
	treasury common.Address
}

// NewLedger creates a ledger whose treasury is the given account.
func NewLedger(treasury common.Address) *Ledger {
	return &Ledger{
		balances: make(map[common.Address]*big.Int),
		treasury: treasury,
	}
}

// Credit adds amount to an account's balance. Test setup helper.
func (l *Ledger) Credit(account common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance(account).Add(l.balance(account), amount)
}

// TransferIn moves amount from the account to the treasury.
func (l *Ledger) TransferIn(ctx context.Context, from common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(from, l.treasury, amount)
}

// TransferOut moves amount from the treasury to the account.
func (l *Ledger) TransferOut(ctx context.Context, to common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(l.treasury, to, amount)
}

// BalanceOf returns a copy of the account's balance.
func (l *Ledger) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balance(account)), nil
}

func (l *Ledger) move(from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("memledger: negative amount: %w", domain.ErrInvalidParameter)
	}
	src := l.balance(from)
	if src.Cmp(amount) < 0 {
		return fmt.Errorf("memledger: %s holds %s, needs %s: %w",
			from.Hex(), src.String(), amount.String(), domain.ErrInsufficientFunds)
	}
	src.Sub(src, amount)
	l.balance(to).Add(l.balance(to), amount)
	return nil
}

func (l *Ledger) balance(account common.Address) *big.Int {
	b, ok := l.balances[account]
	if !ok {
		b = new(big.Int)
		l.balances[account] = b
	}
	return b
}

// Registry is an in-memory position-ownership registry.
type Registry struct {
	mu     sync.Mutex
	owners map[uint64]common.Address
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{owners: make(map[uint64]common.Address)}
}

// MintPosition records ownership of a new position id.
func (r *Registry) MintPosition(ctx context.Context, owner common.Address, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.owners[id]; ok {
		return fmt.Errorf("memledger: position %d: %w", id, domain.ErrAlreadyExists)
	}
	r.owners[id] = owner
	return nil
}

// BurnPosition removes a position.
func (r *Registry) BurnPosition(ctx context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.owners[id]; !ok {
		return fmt.Errorf("memledger: position %d: %w", id, domain.ErrNotFound)
	}
	delete(r.owners, id)
	return nil
}

// OwnerOf resolves a position's owner.
func (r *Registry) OwnerOf(ctx context.Context, id uint64) (common.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[id]
	if !ok {
		return common.Address{}, fmt.Errorf("memledger: position %d: %w", id, domain.ErrNotFound)
	}
	return owner, nil
}

// Transfer reassigns ownership; the engine does not observe it, matching the
// id-keyed accounting model. Test helper.
func (r *Registry) Transfer(id uint64, to common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.owners[id]; !ok {
		return fmt.Errorf("memledger: position %d: %w", id, domain.ErrNotFound)
	}
	r.owners[id] = to
	return nil
}

var (
	_ domain.FungibleLedger   = (*Ledger)(nil)
	_ domain.PositionRegistry = (*Registry)(nil)
)
