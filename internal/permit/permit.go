package permit

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"math/big"

	"DutchAuction/internal/clock"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrExpired      = errors.New("authorization deadline passed")
	ErrNonceReused  = errors.New("nonce already consumed")
	ErrBadSignature = errors.New("signature verification failed")
)

// SignedBid is an off-chain bid authorization. The bidder signs the digest
// once; any relayer may then submit the bid on their behalf. The trust
// boundary is the signature, not whoever carried it here.
type SignedBid struct {
	AssetKey     string
	Bidder       string
	Amount       *big.Int
	Nonce        uint64
	DeadlineStep int64
	Signature    []byte
}

// Digest is the keccak256 hash of the packed authorization fields. The
// asset key is length-prefixed so field boundaries stay unambiguous.
func (b SignedBid) Digest() []byte {
	var buf bytes.Buffer
	var scratch [8]byte

	binary.BigEndian.PutUint64(scratch[:], uint64(len(b.AssetKey)))
	buf.Write(scratch[:])
	buf.WriteString(b.AssetKey)

	buf.Write(common.HexToAddress(b.Bidder).Bytes())

	amount := b.Amount
	if amount == nil {
		amount = new(big.Int)
	}
	buf.Write(common.LeftPadBytes(amount.Bytes(), 32))

	binary.BigEndian.PutUint64(scratch[:], b.Nonce)
	buf.Write(scratch[:])
	binary.BigEndian.PutUint64(scratch[:], uint64(b.DeadlineStep))
	buf.Write(scratch[:])

	return crypto.Keccak256(buf.Bytes())
}

// NonceStore consumes (signer, nonce) pairs exactly once.
type NonceStore interface {
	Consume(ctx context.Context, signer string, nonce uint64) error
}

// Verifier validates signed bids: deadline, signature, then nonce. The nonce
// is only burned after the signature checks out, so a malformed submission
// does not cost the bidder a replay slot.
type Verifier struct {
	Nonces NonceStore
	Steps  clock.StepSource
}

// Verify returns the authorized bid amount on success.
func (v *Verifier) Verify(ctx context.Context, bid SignedBid) (*big.Int, error) {
	if v.Steps.Now() > bid.DeadlineStep {
		return nil, ErrExpired
	}

	signer, err := recoverSigner(bid.Digest(), bid.Signature)
	if err != nil {
		return nil, ErrBadSignature
	}
	if signer != common.HexToAddress(bid.Bidder) {
		return nil, ErrBadSignature
	}

	if err := v.Nonces.Consume(ctx, signer.Hex(), bid.Nonce); err != nil {
		return nil, err
	}
	return bid.Amount, nil
}

// recoverSigner returns the address that produced an eth_sign-style
// signature over digest. Both 0/1 and 27/28 recovery ids are accepted.
func recoverSigner(digest, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, ErrBadSignature
	}

	norm := make([]byte, len(sig))
	copy(norm, sig)
	if norm[crypto.RecoveryIDOffset] >= 27 {
		norm[crypto.RecoveryIDOffset] -= 27
	}
	if norm[crypto.RecoveryIDOffset] > 1 {
		return common.Address{}, ErrBadSignature
	}

	pub, err := crypto.SigToPub(accounts.TextHash(digest), norm)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Sign produces the signature a bidder's wallet would attach. Used by tests
// and local tooling; production bidders sign client-side.
func Sign(bid SignedBid, key *ecdsa.PrivateKey) ([]byte, error) {
	return crypto.Sign(accounts.TextHash(bid.Digest()), key)
}
