package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"DutchAuction/internal/models"
	"DutchAuction/internal/permit"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

func (s *Store) InsertSettlement(ctx context.Context, rec *models.SettlementRecord) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO settlements (
			auction_id, asset_key, asset_kind, asset_denom, asset_amount,
			collection, item_id, seller, payment_denom, reserve_price,
			decrement_rate, duration_steps, initial_price, start_step,
			status, winner, winning_price, end_step, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		ON CONFLICT (auction_id) DO NOTHING
	`,
		rec.AuctionID,
		rec.AssetKey,
		rec.AssetKind,
		rec.AssetDenom,
		rec.AssetAmount,
		rec.Collection,
		rec.ItemID,
		rec.Seller,
		rec.PaymentDenom,
		rec.ReservePrice,
		rec.DecrementRate,
		rec.DurationSteps,
		rec.InitialPrice,
		rec.StartStep,
		rec.Status,
		rec.Winner,
		rec.WinningPrice,
		rec.EndStep,
		rec.CreatedAt,
	)
	return err
}

func (s *Store) GetSettlementByAssetKey(ctx context.Context, assetKey string) (*models.SettlementRecord, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT auction_id, asset_key, asset_kind, asset_denom, asset_amount,
			collection, item_id, seller, payment_denom, reserve_price,
			decrement_rate, duration_steps, initial_price, start_step,
			status, winner, winning_price, end_step, created_at
		FROM settlements
		WHERE asset_key=$1
		ORDER BY created_at DESC
		LIMIT 1
	`, assetKey)

	rec, err := scanSettlement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func scanSettlement(row pgx.Row) (*models.SettlementRecord, error) {
	var rec models.SettlementRecord
	var winner, winningPrice sql.NullString

	err := row.Scan(
		&rec.AuctionID,
		&rec.AssetKey,
		&rec.AssetKind,
		&rec.AssetDenom,
		&rec.AssetAmount,
		&rec.Collection,
		&rec.ItemID,
		&rec.Seller,
		&rec.PaymentDenom,
		&rec.ReservePrice,
		&rec.DecrementRate,
		&rec.DurationSteps,
		&rec.InitialPrice,
		&rec.StartStep,
		&rec.Status,
		&winner,
		&winningPrice,
		&rec.EndStep,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if winner.Valid {
		rec.Winner = &winner.String
	}
	if winningPrice.Valid {
		rec.WinningPrice = &winningPrice.String
	}
	return &rec, nil
}

func (s *Store) EnqueueSignedBid(ctx context.Context, bid *models.QueuedSignedBid) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO signed_bids (
			bid_id, asset_key, bidder, amount, nonce, deadline_step,
			signature, status
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		bid.BidID,
		bid.AssetKey,
		bid.Bidder,
		bid.Amount,
		int64(bid.Nonce),
		bid.DeadlineStep,
		bid.Signature,
		bid.Status,
	)
	return err
}

func (s *Store) ListQueuedSignedBids(ctx context.Context, limit int) ([]*models.QueuedSignedBid, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT bid_id, asset_key, bidder, amount, nonce, deadline_step,
			signature, status, fail_reason, created_at, updated_at
		FROM signed_bids
		WHERE status='queued'
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*models.QueuedSignedBid
	for rows.Next() {
		var bid models.QueuedSignedBid
		var nonce int64
		var failReason sql.NullString
		if err := rows.Scan(
			&bid.BidID,
			&bid.AssetKey,
			&bid.Bidder,
			&bid.Amount,
			&nonce,
			&bid.DeadlineStep,
			&bid.Signature,
			&bid.Status,
			&failReason,
			&bid.CreatedAt,
			&bid.UpdatedAt,
		); err != nil {
			return nil, err
		}
		bid.Nonce = uint64(nonce)
		if failReason.Valid {
			bid.FailReason = &failReason.String
		}
		bids = append(bids, &bid)
	}
	return bids, rows.Err()
}

// ResolveSignedBid finalizes a queued bid exactly once; a bid already
// resolved by another relayer tick is left alone.
func (s *Store) ResolveSignedBid(ctx context.Context, bidID string, status models.SignedBidStatus, failReason *string) (int64, error) {
	res, err := s.Pool.Exec(ctx, `
		UPDATE signed_bids
		SET status=$2, fail_reason=$3, updated_at=now()
		WHERE bid_id=$1 AND status='queued'
	`, bidID, status, failReason)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

// Consume implements permit.NonceStore on Postgres: the primary key makes
// the first insert win and every replay fail.
func (s *Store) Consume(ctx context.Context, signer string, nonce uint64) error {
	res, err := s.Pool.Exec(ctx, `
		INSERT INTO permit_nonces (signer, nonce, consumed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (signer, nonce) DO NOTHING
	`, signer, int64(nonce), time.Now().UTC())
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return permit.ErrNonceReused
	}
	return nil
}
