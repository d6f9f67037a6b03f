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

// erc20ABI is the subset of the ERC20 interface the ledger needs.
const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"constant":false,"inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transferFrom","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

// Ledger implements domain.FungibleLedger over an ERC20 token. TransferIn
// uses transferFrom against the holder's allowance for the operator account;
// TransferOut spends the operator's own balance.
type Ledger struct {
	client   *Client
	contract *bind.BoundContract
	address  common.Address
}

// NewLedger binds the ledger adapter to the configured token contract.
func NewLedger(client *Client, token common.Address) (*Ledger, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("evm: parse erc20 abi: %w", err)
	}
	return &Ledger{
		client:   client,
		contract: bind.NewBoundContract(token, parsed, client.eth, client.eth, client.eth),
		address:  token,
	}, nil
}

// TransferIn pulls amount from the holder into the treasury account. The
// holder's balance and allowance are checked first so callers get the
// domain error instead of an opaque revert.
func (l *Ledger) TransferIn(ctx context.Context, from common.Address, amount *big.Int) error {
	balance, err := l.BalanceOf(ctx, from)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("evm: %s holds %s, needs %s: %w",
			from.Hex(), balance.String(), amount.String(), domain.ErrInsufficientFunds)
	}

	allowance, err := l.allowance(ctx, from, l.client.account)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("evm: allowance %s below %s: %w",
			allowance.String(), amount.String(), domain.ErrInsufficientAllowance)
	}

	opts, err := l.client.transactOpts(ctx)
	if err != nil {
		return err
	}
	tx, err := l.contract.Transact(opts, "transferFrom", from, l.client.account, amount)
	if err != nil {
		return fmt.Errorf("evm: transferFrom: %w", err)
	}
	return l.client.waitMined(ctx, tx, "transferFrom")
}

// TransferOut sends amount from the treasury account to the recipient.
func (l *Ledger) TransferOut(ctx context.Context, to common.Address, amount *big.Int) error {
	balance, err := l.BalanceOf(ctx, l.client.account)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("evm: treasury holds %s, needs %s: %w",
			balance.String(), amount.String(), domain.ErrInsufficientFunds)
	}

	opts, err := l.client.transactOpts(ctx)
	if err != nil {
		return err
	}
	tx, err := l.contract.Transact(opts, "transfer", to, amount)
	if err != nil {
		return fmt.Errorf("evm: transfer: %w", err)
	}
	return l.client.waitMined(ctx, tx, "transfer")
}

// BalanceOf returns the token balance of an account.
func (l *Ledger) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	var out []any
	if err := l.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", account); err != nil {
		return nil, fmt.Errorf("evm: balanceOf %s: %w", account.Hex(), err)
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

func (l *Ledger) allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	var out []any
	if err := l.contract.Call(&bind.CallOpts{Context: ctx}, &out, "allowance", owner, spender); err != nil {
		return nil, fmt.Errorf("evm: allowance %s: %w", owner.Hex(), err)
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

var _ domain.FungibleLedger = (*Ledger)(nil)
