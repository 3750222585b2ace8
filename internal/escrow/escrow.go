package escrow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"DutchAuction/internal/ledger"
	"DutchAuction/internal/models"

	"github.com/google/uuid"
)

var (
	ErrUnknownReceipt  = errors.New("unknown escrow receipt")
	ErrAlreadyReleased = errors.New("escrow receipt already released")
	ErrInvalidAsset    = errors.New("invalid asset")
)

// Receipt proves an asset is held in escrow. Account is the escrow-side
// account holding it for the duration of the auction.
type Receipt struct {
	ID      string
	Asset   models.Asset
	Account string
}

type heldAsset struct {
	asset    models.Asset
	account  string
	released bool
}

// Escrow holds auctioned assets until settlement or cancellation. Each hold
// gets its own derived account; a receipt is released at most once, to
// exactly one of winner or seller.
type Escrow struct {
	Ledger   ledger.Ledger
	NFTs     ledger.NFTRegistry
	Accounts AccountProvider

	mu        sync.Mutex
	receipts  map[string]*heldAsset
	nextIndex uint32
}

func New(l ledger.Ledger, nfts ledger.NFTRegistry, accounts AccountProvider) *Escrow {
	return &Escrow{
		Ledger:   l,
		NFTs:     nfts,
		Accounts: accounts,
		receipts: map[string]*heldAsset{},
	}
}

// Hold moves the asset from the seller into a fresh escrow account. Failures
// from the ledger or the NFT registry surface unchanged and leave no hold.
func (e *Escrow) Hold(ctx context.Context, asset models.Asset, from string) (Receipt, error) {
	e.mu.Lock()
	index := e.nextIndex
	e.nextIndex++
	e.mu.Unlock()

	account, err := e.Accounts.EscrowAccount(index)
	if err != nil {
		return Receipt{}, fmt.Errorf("derive escrow account: %w", err)
	}

	switch asset.Kind {
	case models.AssetNative, models.AssetFungible:
		if asset.Amount == nil || asset.Amount.Sign() <= 0 {
			return Receipt{}, ErrInvalidAsset
		}
		if err := e.Ledger.Transfer(ctx, asset.Denom, from, account, asset.Amount); err != nil {
			return Receipt{}, err
		}
	case models.AssetUnique:
		if err := e.NFTs.Transfer(ctx, asset.Collection, asset.ItemID, from, account); err != nil {
			return Receipt{}, err
		}
	default:
		return Receipt{}, ErrInvalidAsset
	}

	receipt := Receipt{ID: uuid.NewString(), Asset: asset, Account: account}
	e.mu.Lock()
	e.receipts[receipt.ID] = &heldAsset{asset: asset, account: account}
	e.mu.Unlock()
	return receipt, nil
}

// Release hands the held asset to the winner. It is also the refund path:
// the state machine's single terminal transition decides who receives it.
func (e *Escrow) Release(ctx context.Context, receiptID, to string) error {
	e.mu.Lock()
	held, ok := e.receipts[receiptID]
	if !ok {
		e.mu.Unlock()
		return ErrUnknownReceipt
	}
	if held.released {
		e.mu.Unlock()
		return ErrAlreadyReleased
	}
	held.released = true
	e.mu.Unlock()

	var err error
	switch held.asset.Kind {
	case models.AssetNative, models.AssetFungible:
		err = e.Ledger.Transfer(ctx, held.asset.Denom, held.account, to, held.asset.Amount)
	case models.AssetUnique:
		err = e.NFTs.Transfer(ctx, held.asset.Collection, held.asset.ItemID, held.account, to)
	default:
		err = ErrInvalidAsset
	}
	if err != nil {
		// the hold stays intact so a later terminal transition can retry
		e.mu.Lock()
		held.released = false
		e.mu.Unlock()
		return err
	}
	return nil
}

// Refund returns the held asset to the seller on cancellation.
func (e *Escrow) Refund(ctx context.Context, receiptID, seller string) error {
	return e.Release(ctx, receiptID, seller)
}
