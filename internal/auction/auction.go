package auction

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"DutchAuction/internal/models"
	"DutchAuction/internal/pricing"
)

var (
	ErrAuctionNotOpen   = errors.New("auction is not open")
	ErrDuplicateAuction = errors.New("auction already exists for asset")
	ErrInsufficientBid  = errors.New("bid below current price")
	ErrSelfBid          = errors.New("seller cannot bid on own auction")
	ErrUnauthorized     = errors.New("caller is not the seller")
	ErrNotFound         = errors.New("auction not found")
	ErrNoPriceQuote     = errors.New("cancelled auction has no price")
)

// Machine owns one auction's lifecycle. A single mutex serializes every
// mutating operation, which makes read-price, validate and settle one
// indivisible unit: only the first acceptable bid can ever win.
type Machine struct {
	mu      sync.Mutex
	rec     models.Auction
	pricing pricing.Service
}

func newMachine(rec models.Auction) *Machine {
	return &Machine{rec: rec}
}

// Snapshot returns a consistent copy of the auction record.
func (m *Machine) Snapshot() models.Auction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec
}

// CurrentPrice quotes the price at step now. Once settled it returns the
// frozen winning price; a cancelled auction has nothing to quote.
func (m *Machine) CurrentPrice(now int64) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentPriceLocked(now)
}

func (m *Machine) currentPriceLocked(now int64) (*big.Int, error) {
	switch m.rec.Status {
	case models.AuctionSettled:
		return new(big.Int).Set(m.rec.WinningPrice), nil
	case models.AuctionCancelled:
		return nil, ErrNoPriceQuote
	}
	elapsed := now - m.rec.StartStep
	return m.pricing.CurrentPrice(m.rec.InitialPrice, m.rec.DecrementRate, elapsed, m.rec.ReservePrice), nil
}

// PlaceBid validates the bid against the current price and, if acceptable,
// runs settle under the auction lock before the terminal transition. The
// settle callback receives the clearing price (the quoted price, not the
// offered amount); if it fails the auction is left untouched.
func (m *Machine) PlaceBid(bidder string, offered *big.Int, now int64, settle func(price *big.Int) error) (models.Auction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rec.Status != models.AuctionOpen {
		return m.rec, ErrAuctionNotOpen
	}
	if bidder == m.rec.Seller {
		return m.rec, ErrSelfBid
	}
	price, err := m.currentPriceLocked(now)
	if err != nil {
		return m.rec, err
	}
	if offered == nil || offered.Cmp(price) < 0 {
		return m.rec, ErrInsufficientBid
	}

	if settle != nil {
		if err := settle(price); err != nil {
			return m.rec, err
		}
	}

	end := now
	m.rec.Status = models.AuctionSettled
	m.rec.Winner = bidder
	m.rec.WinningPrice = price
	m.rec.EndStep = &end
	m.rec.UpdatedAt = time.Now().UTC()
	return m.rec, nil
}

// Cancel ends an unsold auction. Only the seller may cancel, and only while
// the auction is still open. The refund callback runs under the lock before
// the terminal transition; on refund failure the auction stays open.
func (m *Machine) Cancel(caller string, now int64, refund func() error) (models.Auction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rec.Status != models.AuctionOpen {
		return m.rec, ErrAuctionNotOpen
	}
	if caller != m.rec.Seller {
		return m.rec, ErrUnauthorized
	}

	if refund != nil {
		if err := refund(); err != nil {
			return m.rec, err
		}
	}

	end := now
	m.rec.Status = models.AuctionCancelled
	m.rec.EndStep = &end
	m.rec.UpdatedAt = time.Now().UTC()
	return m.rec, nil
}
