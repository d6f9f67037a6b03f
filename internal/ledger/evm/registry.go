package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/bondengine/internal/domain"
)

// bondNFTABI covers the owner-gated mint/burn surface of the bond ERC721.
const bondNFTABI = `[
	{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"name":"mint","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"constant":false,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"burn","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// Registry implements domain.PositionRegistry over the bond NFT contract.
// The operator key must own the contract for mint and burn to succeed.
type Registry struct {
	client   *Client
	contract *bind.BoundContract
	address  common.Address
}

// NewRegistry binds the registry adapter to the bond NFT contract.
func NewRegistry(client *Client, bond common.Address) (*Registry, error) {
	parsed, err := abi.JSON(strings.NewReader(bondNFTABI))
	if err != nil {
		return nil, fmt.Errorf("evm: parse bond nft abi: %w", err)
	}
	return &Registry{
		client:   client,
		contract: bind.NewBoundContract(bond, parsed, client.eth, client.eth, client.eth),
		address:  bond,
	}, nil
}

// MintPosition mints the position NFT to the owner.
func (r *Registry) MintPosition(ctx context.Context, owner common.Address, id uint64) error {
	if _, err := r.OwnerOf(ctx, id); err == nil {
		return fmt.Errorf("evm: position %d: %w", id, domain.ErrAlreadyExists)
	}

	opts, err := r.client.transactOpts(ctx)
	if err != nil {
		return err
	}
	tx, err := r.contract.Transact(opts, "mint", owner, new(big.Int).SetUint64(id))
	if err != nil {
		return fmt.Errorf("evm: mint position %d: %w", id, err)
	}
	return r.client.waitMined(ctx, tx, "mint")
}

// BurnPosition burns the position NFT.
func (r *Registry) BurnPosition(ctx context.Context, id uint64) error {
	if _, err := r.OwnerOf(ctx, id); err != nil {
		return err
	}

	opts, err := r.client.transactOpts(ctx)
	if err != nil {
		return err
	}
	tx, err := r.contract.Transact(opts, "burn", new(big.Int).SetUint64(id))
	if err != nil {
		return fmt.Errorf("evm: burn position %d: %w", id, err)
	}
	return r.client.waitMined(ctx, tx, "burn")
}

// OwnerOf resolves the NFT owner. ERC721 reverts on unknown ids, which maps
// to ErrNotFound here.
func (r *Registry) OwnerOf(ctx context.Context, id uint64) (common.Address, error) {
	var out []any
	err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, "ownerOf", new(big.Int).SetUint64(id))
	if err != nil {
		return common.Address{}, fmt.Errorf("evm: ownerOf %d: %w", id, domain.ErrNotFound)
	}
	owner := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	return owner, nil
}

var _ domain.PositionRegistry = (*Registry)(nil)
