package auction

import (
	"errors"
	"math/big"
	"sync"
	"testing"

	"DutchAuction/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAuction(t *testing.T) *Machine {
	t.Helper()
	r := NewRegistry()
	m, err := r.Create(models.Auction{
		AuctionID:     "a-1",
		AssetKey:      "udora",
		Seller:        "seller",
		ReservePrice:  big.NewInt(100),
		DecrementRate: big.NewInt(5),
		DurationSteps: 10,
		InitialPrice:  big.NewInt(150),
		StartStep:     0,
		Status:        models.AuctionOpen,
	})
	require.NoError(t, err)
	return m
}

func TestCurrentPriceAtStartEqualsInitial(t *testing.T) {
	m := openAuction(t)
	price, err := m.CurrentPrice(0)
	require.NoError(t, err)
	assert.Equal(t, int64(150), price.Int64())
}

func TestCurrentPriceHoldsAtReservePastDuration(t *testing.T) {
	m := openAuction(t)

	price, err := m.CurrentPrice(50)
	require.NoError(t, err)
	assert.Equal(t, int64(100), price.Int64())

	// no auto-expiry: the auction is still open and biddable at the floor
	rec, err := m.PlaceBid("bidder", big.NewInt(100), 50, nil)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionSettled, rec.Status)
}

func TestPlaceBidBelowPriceFails(t *testing.T) {
	m := openAuction(t)

	_, err := m.PlaceBid("bidder", big.NewInt(50), 0, nil)
	assert.ErrorIs(t, err, ErrInsufficientBid)

	// state unchanged
	rec := m.Snapshot()
	assert.Equal(t, models.AuctionOpen, rec.Status)
	assert.Empty(t, rec.Winner)
}

func TestPlaceBidSettlesAtQuotedPrice(t *testing.T) {
	m := openAuction(t)

	var clearing *big.Int
	rec, err := m.PlaceBid("bidder", big.NewInt(150), 0, func(price *big.Int) error {
		clearing = price
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, models.AuctionSettled, rec.Status)
	assert.Equal(t, "bidder", rec.Winner)
	assert.Equal(t, int64(150), rec.WinningPrice.Int64())
	assert.Equal(t, int64(150), clearing.Int64())
	require.NotNil(t, rec.EndStep)
	assert.Equal(t, int64(0), *rec.EndStep)
}

func TestPlaceBidAtDecrementedPrice(t *testing.T) {
	m := openAuction(t)

	// step 6: 150 - 5*6 = 120
	rec, err := m.PlaceBid("bidderA", big.NewInt(120), 6, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(120), rec.WinningPrice.Int64())
}

func TestOverpaymentClearsAtCurrentPrice(t *testing.T) {
	m := openAuction(t)

	var clearing *big.Int
	rec, err := m.PlaceBid("bidder", big.NewInt(500), 0, func(price *big.Int) error {
		clearing = price
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(150), clearing.Int64())
	assert.Equal(t, int64(150), rec.WinningPrice.Int64())
}

func TestOnlyFirstBidWins(t *testing.T) {
	m := openAuction(t)

	_, err := m.PlaceBid("bidderA", big.NewInt(150), 0, nil)
	require.NoError(t, err)

	_, err = m.PlaceBid("bidderB", big.NewInt(200), 0, nil)
	assert.ErrorIs(t, err, ErrAuctionNotOpen)

	rec := m.Snapshot()
	assert.Equal(t, "bidderA", rec.Winner)
}

func TestConcurrentBidsSettleExactlyOnce(t *testing.T) {
	m := openAuction(t)

	const bidders = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	settled := 0

	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.PlaceBid("bidder", big.NewInt(150), 0, nil)
			if err == nil {
				mu.Lock()
				settled++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrAuctionNotOpen)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, settled)
	assert.Equal(t, models.AuctionSettled, m.Snapshot().Status)
}

func TestSelfBidRejected(t *testing.T) {
	m := openAuction(t)

	_, err := m.PlaceBid("seller", big.NewInt(150), 0, nil)
	assert.ErrorIs(t, err, ErrSelfBid)
	assert.Equal(t, models.AuctionOpen, m.Snapshot().Status)
}

func TestSettleFailureLeavesAuctionOpen(t *testing.T) {
	m := openAuction(t)
	boom := errors.New("payment failed")

	_, err := m.PlaceBid("bidder", big.NewInt(150), 0, func(*big.Int) error { return boom })
	assert.ErrorIs(t, err, boom)

	rec := m.Snapshot()
	assert.Equal(t, models.AuctionOpen, rec.Status)
	assert.Empty(t, rec.Winner)
	assert.Nil(t, rec.WinningPrice)
}

func TestCurrentPriceFrozenAfterSettle(t *testing.T) {
	m := openAuction(t)

	_, err := m.PlaceBid("bidder", big.NewInt(120), 6, nil)
	require.NoError(t, err)

	price, err := m.CurrentPrice(200)
	require.NoError(t, err)
	assert.Equal(t, int64(120), price.Int64())
}

func TestCancelOnlySeller(t *testing.T) {
	m := openAuction(t)

	_, err := m.Cancel("mallory", 1, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)

	rec, err := m.Cancel("seller", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionCancelled, rec.Status)
}

func TestCancelTerminalFails(t *testing.T) {
	m := openAuction(t)

	_, err := m.PlaceBid("bidder", big.NewInt(150), 0, nil)
	require.NoError(t, err)

	_, err = m.Cancel("seller", 1, nil)
	assert.ErrorIs(t, err, ErrAuctionNotOpen)
}

func TestCancelledAuctionRejectsBidsAndQuotes(t *testing.T) {
	m := openAuction(t)

	_, err := m.Cancel("seller", 1, nil)
	require.NoError(t, err)

	_, err = m.PlaceBid("bidder", big.NewInt(200), 2, nil)
	assert.ErrorIs(t, err, ErrAuctionNotOpen)

	_, err = m.CurrentPrice(2)
	assert.ErrorIs(t, err, ErrNoPriceQuote)
}

func TestRefundFailureLeavesAuctionOpen(t *testing.T) {
	m := openAuction(t)
	boom := errors.New("refund failed")

	_, err := m.Cancel("seller", 1, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, models.AuctionOpen, m.Snapshot().Status)
}
