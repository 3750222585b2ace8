package ledger

import (
	"context"
	"math/big"
	"sync"
)

// MemoryLedger is the in-process Ledger implementation. One mutex guards all
// balances; every transfer is applied whole or not at all.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]map[string]*big.Int
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[string]map[string]*big.Int)}
}

func (l *MemoryLedger) Balance(ctx context.Context, denom, account string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if bal, ok := l.balances[denom][account]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

func (l *MemoryLedger) Mint(ctx context.Context, denom, account string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(denom, account, amount)
	return nil
}

func (l *MemoryLedger) Transfer(ctx context.Context, denom, from, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	bal, ok := l.balances[denom][from]
	if !ok || bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	bal.Sub(bal, amount)
	l.credit(denom, to, amount)
	return nil
}

func (l *MemoryLedger) credit(denom, account string, amount *big.Int) {
	accounts, ok := l.balances[denom]
	if !ok {
		accounts = make(map[string]*big.Int)
		l.balances[denom] = accounts
	}
	bal, ok := accounts[account]
	if !ok {
		bal = new(big.Int)
		accounts[account] = bal
	}
	bal.Add(bal, amount)
}

// MemoryNFTRegistry is the in-process NFTRegistry implementation.
type MemoryNFTRegistry struct {
	mu     sync.Mutex
	owners map[string]string
}

func NewMemoryNFTRegistry() *MemoryNFTRegistry {
	return &MemoryNFTRegistry{owners: make(map[string]string)}
}

func itemKey(collection, itemID string) string {
	return collection + ":" + itemID
}

func (r *MemoryNFTRegistry) OwnerOf(ctx context.Context, collection, itemID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[itemKey(collection, itemID)]
	if !ok {
		return "", ErrNotOwner
	}
	return owner, nil
}

func (r *MemoryNFTRegistry) Mint(ctx context.Context, collection, itemID, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[itemKey(collection, itemID)] = owner
	return nil
}

func (r *MemoryNFTRegistry) Transfer(ctx context.Context, collection, itemID, from, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := itemKey(collection, itemID)
	if r.owners[key] != from {
		return ErrNotOwner
	}
	r.owners[key] = to
	return nil
}
