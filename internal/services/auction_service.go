package services

import (
	"context"
	"errors"
	"math/big"
	"time"

	"DutchAuction/internal/auction"
	"DutchAuction/internal/clock"
	"DutchAuction/internal/escrow"
	"DutchAuction/internal/ledger"
	"DutchAuction/internal/models"
	"DutchAuction/internal/permit"
	"DutchAuction/internal/pricing"

	"github.com/google/uuid"
)

var (
	ErrMissingSeller  = errors.New("missing seller")
	ErrMissingBidder  = errors.New("missing bidder")
	ErrInvalidParams  = errors.New("invalid auction parameters")
	ErrInvalidPayment = errors.New("payment denom is required")
)

// SettlementStore keeps the audit trail of terminal auctions. Absence is
// signalled by a nil record, not an error.
type SettlementStore interface {
	InsertSettlement(ctx context.Context, rec *models.SettlementRecord) error
	GetSettlementByAssetKey(ctx context.Context, assetKey string) (*models.SettlementRecord, error)
}

// EventPublisher fans auction events out to stream subscribers.
type EventPublisher interface {
	Publish(ev models.AuctionEvent)
}

type CreateParams struct {
	Seller        string
	Asset         models.Asset
	PaymentDenom  string
	ReservePrice  *big.Int
	DecrementRate *big.Int
	DurationSteps int64
}

// AuctionService wires the state machines to their collaborators: escrow,
// ledger, clock, permit verifier, audit store and event stream.
type AuctionService struct {
	Registry    *auction.Registry
	Escrow      *escrow.Escrow
	Ledger      ledger.Ledger
	Steps       clock.StepSource
	Pricing     pricing.Service
	Permits     *permit.Verifier
	Settlements SettlementStore
	Events      EventPublisher
	NativeDenom string
}

// CreateAuction escrows the asset and opens the auction atomically: if the
// asset key is already taken after the hold, the hold is unwound.
func (s *AuctionService) CreateAuction(ctx context.Context, p CreateParams) (models.Auction, error) {
	if p.Seller == "" {
		return models.Auction{}, ErrMissingSeller
	}
	paymentDenom := p.PaymentDenom
	if paymentDenom == "" {
		paymentDenom = s.NativeDenom
	}
	if paymentDenom == "" {
		return models.Auction{}, ErrInvalidPayment
	}
	if p.DurationSteps < 0 {
		return models.Auction{}, ErrInvalidParams
	}

	initialPrice, err := s.Pricing.InitialPrice(p.ReservePrice, p.DecrementRate, p.DurationSteps)
	if err != nil {
		return models.Auction{}, ErrInvalidParams
	}

	assetKey := p.Asset.Key()
	if assetKey == "" {
		return models.Auction{}, ErrInvalidParams
	}
	if _, exists := s.Registry.Lookup(assetKey); exists {
		return models.Auction{}, auction.ErrDuplicateAuction
	}

	receipt, err := s.Escrow.Hold(ctx, p.Asset, p.Seller)
	if err != nil {
		return models.Auction{}, err
	}

	now := time.Now().UTC()
	rec := models.Auction{
		AuctionID:     uuid.NewString(),
		AssetKey:      assetKey,
		Asset:         p.Asset,
		Seller:        p.Seller,
		PaymentDenom:  paymentDenom,
		ReservePrice:  p.ReservePrice,
		DecrementRate: p.DecrementRate,
		DurationSteps: p.DurationSteps,
		InitialPrice:  initialPrice,
		StartStep:     s.Steps.Now(),
		Status:        models.AuctionOpen,
		EscrowAccount: receipt.Account,
		EscrowReceipt: receipt.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	m, err := s.Registry.Create(rec)
	if err != nil {
		// lost the race for the key; give the asset back
		_ = s.Escrow.Refund(ctx, receipt.ID, p.Seller)
		return models.Auction{}, err
	}

	s.publish(models.AuctionEvent{
		Type:      models.EventAuctionCreated,
		AssetKey:  assetKey,
		AuctionID: rec.AuctionID,
		Step:      rec.StartStep,
		Price:     initialPrice.String(),
	})
	return m.Snapshot(), nil
}

// GetCurrentPrice quotes an open auction from the registry, or the frozen
// winning price of a settled one from the audit store.
func (s *AuctionService) GetCurrentPrice(ctx context.Context, assetKey string) (*big.Int, int64, error) {
	now := s.Steps.Now()
	if m, ok := s.Registry.Lookup(assetKey); ok {
		price, err := m.CurrentPrice(now)
		return price, now, err
	}

	rec, err := s.Settlements.GetSettlementByAssetKey(ctx, assetKey)
	if err != nil {
		return nil, now, err
	}
	if rec == nil {
		return nil, now, auction.ErrNotFound
	}
	if rec.Status == models.AuctionSettled && rec.WinningPrice != nil {
		price, ok := new(big.Int).SetString(*rec.WinningPrice, 10)
		if !ok {
			return nil, now, errors.New("corrupt winning price in settlement record")
		}
		return price, now, nil
	}
	return nil, now, auction.ErrNoPriceQuote
}

// PlaceBid settles the auction to the first acceptable bidder. The payment
// leg (clearing price, bidder to seller) runs inside the state machine's
// atomic section; any excess over the clearing price never leaves the
// bidder, which is the refund-the-difference policy.
func (s *AuctionService) PlaceBid(ctx context.Context, assetKey, bidder string, offered *big.Int) (models.Auction, error) {
	if bidder == "" {
		return models.Auction{}, ErrMissingBidder
	}
	m, ok := s.Registry.Lookup(assetKey)
	if !ok {
		return models.Auction{}, s.terminalOrNotFound(ctx, assetKey)
	}

	snapshot := m.Snapshot()
	now := s.Steps.Now()
	rec, err := m.PlaceBid(bidder, offered, now, func(price *big.Int) error {
		if err := s.Ledger.Transfer(ctx, snapshot.PaymentDenom, bidder, snapshot.Seller, price); err != nil {
			return err
		}
		if err := s.Escrow.Release(ctx, snapshot.EscrowReceipt, bidder); err != nil {
			// unwind the payment so the failed bid leaves no trace
			_ = s.Ledger.Transfer(ctx, snapshot.PaymentDenom, snapshot.Seller, bidder, price)
			return err
		}
		return nil
	})
	if err != nil {
		return rec, err
	}

	s.Registry.Drop(assetKey)
	if err := s.Settlements.InsertSettlement(ctx, toSettlementRecord(rec)); err != nil {
		return rec, err
	}

	s.publish(models.AuctionEvent{
		Type:      models.EventAuctionSettled,
		AssetKey:  assetKey,
		AuctionID: rec.AuctionID,
		Step:      now,
		Price:     rec.WinningPrice.String(),
		Winner:    rec.Winner,
	})
	return rec, nil
}

// PlaceSignedBid verifies a permit-authorized bid and submits it on the
// bidder's behalf.
func (s *AuctionService) PlaceSignedBid(ctx context.Context, bid permit.SignedBid) (models.Auction, error) {
	amount, err := s.Permits.Verify(ctx, bid)
	if err != nil {
		return models.Auction{}, err
	}
	return s.PlaceBid(ctx, bid.AssetKey, bid.Bidder, amount)
}

// CancelAuction returns the escrowed asset to the seller and closes the
// auction. Only the seller may cancel, and only while the auction is open.
func (s *AuctionService) CancelAuction(ctx context.Context, assetKey, caller string) (models.Auction, error) {
	m, ok := s.Registry.Lookup(assetKey)
	if !ok {
		return models.Auction{}, s.terminalOrNotFound(ctx, assetKey)
	}

	snapshot := m.Snapshot()
	now := s.Steps.Now()
	rec, err := m.Cancel(caller, now, func() error {
		return s.Escrow.Refund(ctx, snapshot.EscrowReceipt, snapshot.Seller)
	})
	if err != nil {
		return rec, err
	}

	s.Registry.Drop(assetKey)
	if err := s.Settlements.InsertSettlement(ctx, toSettlementRecord(rec)); err != nil {
		return rec, err
	}

	s.publish(models.AuctionEvent{
		Type:      models.EventAuctionCancelled,
		AssetKey:  assetKey,
		AuctionID: rec.AuctionID,
		Step:      now,
	})
	return rec, nil
}

// GetAuctionInfo reads an open auction from the registry or a terminal one
// from the audit store.
func (s *AuctionService) GetAuctionInfo(ctx context.Context, assetKey string) (models.Auction, error) {
	if m, ok := s.Registry.Lookup(assetKey); ok {
		return m.Snapshot(), nil
	}
	rec, err := s.Settlements.GetSettlementByAssetKey(ctx, assetKey)
	if err != nil {
		return models.Auction{}, err
	}
	if rec == nil {
		return models.Auction{}, auction.ErrNotFound
	}
	return fromSettlementRecord(rec)
}

func (s *AuctionService) terminalOrNotFound(ctx context.Context, assetKey string) error {
	rec, err := s.Settlements.GetSettlementByAssetKey(ctx, assetKey)
	if err != nil {
		return err
	}
	if rec == nil {
		return auction.ErrNotFound
	}
	return auction.ErrAuctionNotOpen
}

func (s *AuctionService) publish(ev models.AuctionEvent) {
	if s.Events == nil {
		return
	}
	ev.At = time.Now().UTC()
	s.Events.Publish(ev)
}

func toSettlementRecord(a models.Auction) *models.SettlementRecord {
	rec := &models.SettlementRecord{
		AuctionID:     a.AuctionID,
		AssetKey:      a.AssetKey,
		AssetKind:     a.Asset.Kind,
		AssetDenom:    a.Asset.Denom,
		Collection:    a.Asset.Collection,
		ItemID:        a.Asset.ItemID,
		Seller:        a.Seller,
		PaymentDenom:  a.PaymentDenom,
		ReservePrice:  a.ReservePrice.String(),
		DecrementRate: a.DecrementRate.String(),
		DurationSteps: a.DurationSteps,
		InitialPrice:  a.InitialPrice.String(),
		StartStep:     a.StartStep,
		Status:        a.Status,
		CreatedAt:     time.Now().UTC(),
	}
	if a.Asset.Amount != nil {
		rec.AssetAmount = a.Asset.Amount.String()
	}
	if a.EndStep != nil {
		rec.EndStep = *a.EndStep
	}
	if a.Status == models.AuctionSettled {
		winner := a.Winner
		price := a.WinningPrice.String()
		rec.Winner = &winner
		rec.WinningPrice = &price
	}
	return rec
}

func fromSettlementRecord(rec *models.SettlementRecord) (models.Auction, error) {
	reserve, ok := new(big.Int).SetString(rec.ReservePrice, 10)
	if !ok {
		return models.Auction{}, errors.New("corrupt reserve price in settlement record")
	}
	decrement, ok := new(big.Int).SetString(rec.DecrementRate, 10)
	if !ok {
		return models.Auction{}, errors.New("corrupt decrement rate in settlement record")
	}
	initial, ok := new(big.Int).SetString(rec.InitialPrice, 10)
	if !ok {
		return models.Auction{}, errors.New("corrupt initial price in settlement record")
	}

	asset := models.Asset{
		Kind:       rec.AssetKind,
		Denom:      rec.AssetDenom,
		Collection: rec.Collection,
		ItemID:     rec.ItemID,
	}
	if rec.AssetAmount != "" {
		amount, ok := new(big.Int).SetString(rec.AssetAmount, 10)
		if !ok {
			return models.Auction{}, errors.New("corrupt asset amount in settlement record")
		}
		asset.Amount = amount
	}

	end := rec.EndStep
	a := models.Auction{
		AuctionID:     rec.AuctionID,
		AssetKey:      rec.AssetKey,
		Asset:         asset,
		Seller:        rec.Seller,
		PaymentDenom:  rec.PaymentDenom,
		ReservePrice:  reserve,
		DecrementRate: decrement,
		DurationSteps: rec.DurationSteps,
		InitialPrice:  initial,
		StartStep:     rec.StartStep,
		Status:        rec.Status,
		EndStep:       &end,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.CreatedAt,
	}
	if rec.Winner != nil {
		a.Winner = *rec.Winner
	}
	if rec.WinningPrice != nil {
		price, ok := new(big.Int).SetString(*rec.WinningPrice, 10)
		if !ok {
			return models.Auction{}, errors.New("corrupt winning price in settlement record")
		}
		a.WinningPrice = price
	}
	return a, nil
}
