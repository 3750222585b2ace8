package models

import (
	"math/big"
	"time"
)

type AuctionStatus string

const (
	AuctionOpen      AuctionStatus = "open"
	AuctionSettled   AuctionStatus = "settled"
	AuctionCancelled AuctionStatus = "cancelled"
)

type AssetKind string

const (
	AssetNative   AssetKind = "native"
	AssetFungible AssetKind = "fungible"
	AssetUnique   AssetKind = "unique"
)

// Asset describes what an auction sells. Native and fungible assets carry a
// denom and an amount; unique assets carry a (collection, item) pair.
type Asset struct {
	Kind       AssetKind
	Denom      string
	Amount     *big.Int
	Collection string
	ItemID     string
}

// Key identifies the at-most-one-open-auction slot the asset occupies.
func (a Asset) Key() string {
	switch a.Kind {
	case AssetUnique:
		return a.Collection + ":" + a.ItemID
	default:
		return a.Denom
	}
}

type Auction struct {
	AuctionID     string
	AssetKey      string
	Asset         Asset
	Seller        string
	PaymentDenom  string
	ReservePrice  *big.Int
	DecrementRate *big.Int
	DurationSteps int64
	InitialPrice  *big.Int
	StartStep     int64
	Status        AuctionStatus
	Winner        string
	WinningPrice  *big.Int
	EndStep       *int64
	EscrowAccount string
	EscrowReceipt string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SettlementRecord is the persisted snapshot of a terminal auction. Amounts
// are decimal strings in the smallest currency unit.
type SettlementRecord struct {
	AuctionID     string
	AssetKey      string
	AssetKind     AssetKind
	AssetDenom    string
	AssetAmount   string
	Collection    string
	ItemID        string
	Seller        string
	PaymentDenom  string
	ReservePrice  string
	DecrementRate string
	DurationSteps int64
	InitialPrice  string
	StartStep     int64
	Status        AuctionStatus
	Winner        *string
	WinningPrice  *string
	EndStep       int64
	CreatedAt     time.Time
}

type SignedBidStatus string

const (
	SignedBidQueued   SignedBidStatus = "queued"
	SignedBidSettled  SignedBidStatus = "settled"
	SignedBidRejected SignedBidStatus = "rejected"
)

// QueuedSignedBid is a permit-authorized bid accepted from a relayer client
// and held until the relay worker submits it.
type QueuedSignedBid struct {
	BidID        string
	AssetKey     string
	Bidder       string
	Amount       string
	Nonce        uint64
	DeadlineStep int64
	Signature    string
	Status       SignedBidStatus
	FailReason   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type AuctionEvent struct {
	Type      string    `json:"type"`
	AssetKey  string    `json:"assetKey"`
	AuctionID string    `json:"auctionId"`
	Step      int64     `json:"step"`
	Price     string    `json:"price,omitempty"`
	Winner    string    `json:"winner,omitempty"`
	At        time.Time `json:"at"`
}

const (
	EventAuctionCreated   = "auction_created"
	EventAuctionSettled   = "auction_settled"
	EventAuctionCancelled = "auction_cancelled"
)
