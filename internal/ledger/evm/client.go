// Package evm implements the fungible-ledger and position-registry
// collaborators against on-chain contracts over JSON-RPC: an ERC20
// collateral token and the bond ERC721 whose mint/burn the engine's
// operator key controls.
package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ClientConfig holds chain connection and signing parameters.
type ClientConfig struct {
	// RPCURL is the JSON-RPC endpoint.
	RPCURL string

	// ChainID of the target network.
	ChainID int64

	// PrivateKey is the hex-encoded operator key. The key's address must
	// be the treasury custodian for the token and the owner of the bond
	// contract.
	PrivateKey string

	// TokenAddress is the ERC20 collateral token.
	TokenAddress common.Address

	// BondAddress is the position NFT contract.
	BondAddress common.Address
}

// Client wraps an ethclient connection plus the operator identity shared by
// the ledger and registry adapters.
type Client struct {
	eth     *ethclient.Client
	chainID *big.Int
	key     *ecdsa.PrivateKey
	account common.Address
}

// Dial connects to the RPC endpoint and derives the operator account.
func Dial(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("evm: rpc url is required")
	}
	key, err := crypto.HexToECDSA(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("evm: parse private key: %w", err)
	}

	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("evm: dial %s: %w", cfg.RPCURL, err)
	}

	return &Client{
		eth:     eth,
		chainID: big.NewInt(cfg.ChainID),
		key:     key,
		account: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Account returns the operator (treasury custodian) address.
func (c *Client) Account() common.Address {
	return c.account
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// transactOpts builds signing options bound to ctx.
func (c *Client) transactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("evm: build transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

// waitMined blocks until the transaction is mined and checks its status.
func (c *Client) waitMined(ctx context.Context, tx *types.Transaction, action string) error {
	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return fmt.Errorf("evm: wait for %s tx %s: %w", action, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("evm: %s tx %s reverted", action, tx.Hash().Hex())
	}
	return nil
}
