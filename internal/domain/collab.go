package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// FungibleLedger is the external token-custody collaborator. Amounts are in
// base units (wad). The engine only ever calls it strictly before or strictly
// after its own state mutations, never in between.
type FungibleLedger interface {
	// TransferIn pulls amount from the account into the engine's treasury.
	// Fails with ErrInsufficientFunds or ErrInsufficientAllowance.
	TransferIn(ctx context.Context, from common.Address, amount *big.Int) error

	// TransferOut disburses amount from the treasury to the account.
	// Fails with ErrInsufficientFunds when the treasury cannot cover it.
	TransferOut(ctx context.Context, to common.Address, amount *big.Int) error

	// BalanceOf returns the ledger balance of an account.
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
}

// PositionRegistry is the external non-fungible ownership collaborator.
// Position transfers happen entirely inside the registry; the engine keys
// accounting by id and never needs to observe them.
type PositionRegistry interface {
	// MintPosition records ownership of a freshly minted position id.
	// Fails with ErrAlreadyExists if the id is taken.
	MintPosition(ctx context.Context, owner common.Address, id uint64) error

	// BurnPosition removes a position from the registry.
	// Fails with ErrNotFound.
	BurnPosition(ctx context.Context, id uint64) error

	// OwnerOf resolves the current owner of a position.
	// Fails with ErrNotFound.
	OwnerOf(ctx context.Context, id uint64) (common.Address, error)
}
