package worker

import (
	"context"
	"errors"
	"log"
	"math/big"
	"time"

	"DutchAuction/internal/models"
	"DutchAuction/internal/permit"
	"DutchAuction/internal/services"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

var errInvalidAmount = errors.New("invalid bid amount")

// BidQueue is the store surface the relayer drains.
type BidQueue interface {
	ListQueuedSignedBids(ctx context.Context, limit int) ([]*models.QueuedSignedBid, error)
	ResolveSignedBid(ctx context.Context, bidID string, status models.SignedBidStatus, failReason *string) (int64, error)
}

// Relayer submits queued signed bids on their bidders' behalf. Each bid is
// tried once; a rejected bid stays rejected and the bidder must resubmit
// with a fresh nonce.
type Relayer struct {
	Queue     BidQueue
	Auctions  *services.AuctionService
	Interval  time.Duration
	BatchSize int
}

func (r *Relayer) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := r.DrainOnce(ctx); err != nil {
			log.Printf("relayer drain error: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// DrainOnce submits one batch of queued bids. Individual failures resolve
// that bid and never abort the batch.
func (r *Relayer) DrainOnce(ctx context.Context) error {
	bids, err := r.Queue.ListQueuedSignedBids(ctx, r.BatchSize)
	if err != nil {
		return err
	}
	if len(bids) == 0 {
		return nil
	}
	log.Printf("relayer tick: %d queued bids", len(bids))

	for _, queued := range bids {
		r.submit(ctx, queued)
	}
	return nil
}

func (r *Relayer) submit(ctx context.Context, queued *models.QueuedSignedBid) {
	bid, err := toSignedBid(queued)
	if err != nil {
		r.resolve(ctx, queued, models.SignedBidRejected, err.Error())
		return
	}

	settled, err := r.Auctions.PlaceSignedBid(ctx, bid)
	if err != nil {
		r.resolve(ctx, queued, models.SignedBidRejected, err.Error())
		return
	}

	r.resolve(ctx, queued, models.SignedBidSettled, "")
	log.Printf("signed bid %s settled auction %s for %s at %s",
		queued.BidID, settled.AssetKey, settled.Winner, settled.WinningPrice)
}

func (r *Relayer) resolve(ctx context.Context, queued *models.QueuedSignedBid, status models.SignedBidStatus, reason string) {
	var failReason *string
	if reason != "" {
		failReason = &reason
		log.Printf("signed bid %s rejected: %s", queued.BidID, reason)
	}
	if _, err := r.Queue.ResolveSignedBid(ctx, queued.BidID, status, failReason); err != nil {
		log.Printf("resolve signed bid %s failed: %v", queued.BidID, err)
	}
}

func toSignedBid(queued *models.QueuedSignedBid) (permit.SignedBid, error) {
	amount, ok := new(big.Int).SetString(queued.Amount, 10)
	if !ok {
		return permit.SignedBid{}, errInvalidAmount
	}
	sig, err := hexutil.Decode(queued.Signature)
	if err != nil {
		return permit.SignedBid{}, err
	}
	return permit.SignedBid{
		AssetKey:     queued.AssetKey,
		Bidder:       queued.Bidder,
		Amount:       amount,
		Nonce:        queued.Nonce,
		DeadlineStep: queued.DeadlineStep,
		Signature:    sig,
	}, nil
}
