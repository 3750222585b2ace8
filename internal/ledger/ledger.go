package ledger

import (
	"context"
	"errors"
	"math/big"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotOwner            = errors.New("account does not own the item")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// Ledger is the fungible balance store the engine settles against. Accounts
// are opaque strings; balances are integers in the smallest unit of a denom.
type Ledger interface {
	Balance(ctx context.Context, denom, account string) (*big.Int, error)
	Mint(ctx context.Context, denom, account string, amount *big.Int) error
	Transfer(ctx context.Context, denom, from, to string, amount *big.Int) error
}

// NFTRegistry tracks ownership of unique items.
type NFTRegistry interface {
	OwnerOf(ctx context.Context, collection, itemID string) (string, error)
	Mint(ctx context.Context, collection, itemID, owner string) error
	Transfer(ctx context.Context, collection, itemID, from, to string) error
}
