package http

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"time"

	"DutchAuction/internal/auction"
	"DutchAuction/internal/ledger"
	"DutchAuction/internal/models"
	"DutchAuction/internal/permit"
	"DutchAuction/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// BidQueue accepts signed bids for the relay worker.
type BidQueue interface {
	EnqueueSignedBid(ctx context.Context, bid *models.QueuedSignedBid) error
}

type Handler struct {
	Auctions *services.AuctionService
	Queue    BidQueue
	Hub      *Hub
}

func NewHandler(auctions *services.AuctionService, queue BidQueue, hub *Hub) *Handler {
	return &Handler{Auctions: auctions, Queue: queue, Hub: hub}
}

type createAuctionRequest struct {
	Kind          string `json:"kind"`
	Denom         string `json:"denom,omitempty"`
	Amount        string `json:"amount,omitempty"`
	Collection    string `json:"collection,omitempty"`
	ItemID        string `json:"itemId,omitempty"`
	PaymentDenom  string `json:"paymentDenom,omitempty"`
	ReservePrice  string `json:"reservePrice"`
	DecrementRate string `json:"decrementRate"`
	DurationSteps int64  `json:"durationSteps"`
}

type auctionResponse struct {
	AuctionID     string `json:"auctionId"`
	AssetKey      string `json:"assetKey"`
	Seller        string `json:"seller"`
	PaymentDenom  string `json:"paymentDenom"`
	ReservePrice  string `json:"reservePrice"`
	DecrementRate string `json:"decrementRate"`
	DurationSteps int64  `json:"durationSteps"`
	InitialPrice  string `json:"initialPrice"`
	StartStep     int64  `json:"startStep"`
	Status        string `json:"status"`
	Winner        string `json:"winner,omitempty"`
	WinningPrice  string `json:"winningPrice,omitempty"`
	EndStep       *int64 `json:"endStep,omitempty"`
	EscrowAccount string `json:"escrowAccount,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

type priceResponse struct {
	AssetKey string `json:"assetKey"`
	Price    string `json:"price"`
	Step     int64  `json:"step"`
}

type placeBidRequest struct {
	Amount string `json:"amount"`
}

type signedBidRequest struct {
	Bidder       string `json:"bidder"`
	Amount       string `json:"amount"`
	Nonce        uint64 `json:"nonce"`
	DeadlineStep int64  `json:"deadlineStep"`
	Signature    string `json:"signature"`
}

func toAuctionResponse(a models.Auction) auctionResponse {
	resp := auctionResponse{
		AuctionID:     a.AuctionID,
		AssetKey:      a.AssetKey,
		Seller:        a.Seller,
		PaymentDenom:  a.PaymentDenom,
		ReservePrice:  a.ReservePrice.String(),
		DecrementRate: a.DecrementRate.String(),
		DurationSteps: a.DurationSteps,
		InitialPrice:  a.InitialPrice.String(),
		StartStep:     a.StartStep,
		Status:        string(a.Status),
		Winner:        a.Winner,
		EndStep:       a.EndStep,
		EscrowAccount: a.EscrowAccount,
		CreatedAt:     a.CreatedAt.Format(time.RFC3339),
	}
	if a.WinningPrice != nil {
		resp.WinningPrice = a.WinningPrice.String()
	}
	return resp
}

func (h *Handler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	var req createAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	seller := r.Header.Get("X-Account")
	if seller == "" {
		writeError(w, http.StatusUnauthorized, "missing account")
		return
	}

	reserve, ok := new(big.Int).SetString(req.ReservePrice, 10)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid reserve price")
		return
	}
	decrement, ok := new(big.Int).SetString(req.DecrementRate, 10)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid decrement rate")
		return
	}

	asset := models.Asset{
		Kind:       models.AssetKind(req.Kind),
		Denom:      req.Denom,
		Collection: req.Collection,
		ItemID:     req.ItemID,
	}
	if req.Amount != "" {
		amount, ok := new(big.Int).SetString(req.Amount, 10)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid asset amount")
			return
		}
		asset.Amount = amount
	}

	a, err := h.Auctions.CreateAuction(r.Context(), services.CreateParams{
		Seller:        seller,
		Asset:         asset,
		PaymentDenom:  req.PaymentDenom,
		ReservePrice:  reserve,
		DecrementRate: decrement,
		DurationSteps: req.DurationSteps,
	})
	if err != nil {
		writeAuctionError(w, err, "create auction failed")
		return
	}
	writeJSON(w, http.StatusCreated, toAuctionResponse(a))
}

func (h *Handler) GetAuction(w http.ResponseWriter, r *http.Request) {
	assetKey := chi.URLParam(r, "assetKey")
	a, err := h.Auctions.GetAuctionInfo(r.Context(), assetKey)
	if err != nil {
		writeAuctionError(w, err, "get auction failed")
		return
	}
	writeJSON(w, http.StatusOK, toAuctionResponse(a))
}

func (h *Handler) GetCurrentPrice(w http.ResponseWriter, r *http.Request) {
	assetKey := chi.URLParam(r, "assetKey")
	price, step, err := h.Auctions.GetCurrentPrice(r.Context(), assetKey)
	if err != nil {
		writeAuctionError(w, err, "get price failed")
		return
	}
	writeJSON(w, http.StatusOK, priceResponse{AssetKey: assetKey, Price: price.String(), Step: step})
}

func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	var req placeBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	bidder := r.Header.Get("X-Account")
	if bidder == "" {
		writeError(w, http.StatusUnauthorized, "missing account")
		return
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid bid amount")
		return
	}

	assetKey := chi.URLParam(r, "assetKey")
	a, err := h.Auctions.PlaceBid(r.Context(), assetKey, bidder, amount)
	if err != nil {
		writeAuctionError(w, err, "place bid failed")
		return
	}
	writeJSON(w, http.StatusOK, toAuctionResponse(a))
}

// EnqueueSignedBid accepts a permit-authorized bid for relaying. The permit
// is verified when the relay worker submits it, not here; queueing is cheap
// and the nonce must only be burned by the serialized submission path.
func (h *Handler) EnqueueSignedBid(w http.ResponseWriter, r *http.Request) {
	var req signedBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Bidder == "" || req.Signature == "" {
		writeError(w, http.StatusBadRequest, "bidder and signature are required")
		return
	}
	if _, ok := new(big.Int).SetString(req.Amount, 10); !ok {
		writeError(w, http.StatusBadRequest, "invalid bid amount")
		return
	}

	bid := &models.QueuedSignedBid{
		BidID:        uuid.NewString(),
		AssetKey:     chi.URLParam(r, "assetKey"),
		Bidder:       req.Bidder,
		Amount:       req.Amount,
		Nonce:        req.Nonce,
		DeadlineStep: req.DeadlineStep,
		Signature:    req.Signature,
		Status:       models.SignedBidQueued,
	}
	if err := h.Queue.EnqueueSignedBid(r.Context(), bid); err != nil {
		writeError(w, http.StatusInternalServerError, "enqueue signed bid failed")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"bidId": bid.BidID, "status": string(bid.Status)})
}

func (h *Handler) CancelAuction(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get("X-Account")
	if caller == "" {
		writeError(w, http.StatusUnauthorized, "missing account")
		return
	}

	assetKey := chi.URLParam(r, "assetKey")
	a, err := h.Auctions.CancelAuction(r.Context(), assetKey, caller)
	if err != nil {
		writeAuctionError(w, err, "cancel auction failed")
		return
	}
	writeJSON(w, http.StatusOK, toAuctionResponse(a))
}

func writeAuctionError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, auction.ErrNotFound):
		writeError(w, http.StatusNotFound, "auction not found")
	case errors.Is(err, auction.ErrDuplicateAuction):
		writeError(w, http.StatusConflict, "auction already exists for asset")
	case errors.Is(err, auction.ErrAuctionNotOpen):
		writeError(w, http.StatusConflict, "auction is not open")
	case errors.Is(err, auction.ErrNoPriceQuote):
		writeError(w, http.StatusConflict, "cancelled auction has no price")
	case errors.Is(err, auction.ErrInsufficientBid):
		writeError(w, http.StatusBadRequest, "bid below current price")
	case errors.Is(err, auction.ErrSelfBid):
		writeError(w, http.StatusForbidden, "seller cannot bid on own auction")
	case errors.Is(err, auction.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "caller is not the seller")
	case errors.Is(err, ledger.ErrInsufficientBalance):
		writeError(w, http.StatusPaymentRequired, "insufficient balance")
	case errors.Is(err, ledger.ErrNotOwner):
		writeError(w, http.StatusForbidden, "account does not own the item")
	case errors.Is(err, permit.ErrExpired):
		writeError(w, http.StatusBadRequest, "authorization deadline passed")
	case errors.Is(err, permit.ErrNonceReused):
		writeError(w, http.StatusConflict, "nonce already consumed")
	case errors.Is(err, permit.ErrBadSignature):
		writeError(w, http.StatusUnauthorized, "signature verification failed")
	case errors.Is(err, services.ErrMissingSeller),
		errors.Is(err, services.ErrMissingBidder),
		errors.Is(err, services.ErrInvalidParams),
		errors.Is(err, services.ErrInvalidPayment):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
