package escrow

import (
	"crypto/sha256"
	"errors"
	"strconv"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"golang.org/x/crypto/ripemd160"
)

// AccountProvider yields the escrow account that holds one auction's asset.
type AccountProvider interface {
	EscrowAccount(index uint32) (string, error)
}

// XPubDeriver derives escrow accounts from the house XPub. Child index i
// backs the i-th auction, so every auction escrows into its own account.
type XPubDeriver struct {
	XPub   string
	Prefix string
}

func (d XPubDeriver) EscrowAccount(index uint32) (string, error) {
	if d.XPub == "" {
		return "", errors.New("xpub is not configured")
	}
	if d.Prefix == "" {
		return "", errors.New("bech32 prefix is not configured")
	}

	key, err := hdkeychain.NewKeyFromString(d.XPub)
	if err != nil {
		return "", err
	}
	child, err := key.Derive(index)
	if err != nil {
		return "", err
	}

	pubKey, err := child.ECPubKey()
	if err != nil {
		return "", err
	}

	compressed := pubKey.SerializeCompressed()
	hash := sha256.Sum256(compressed)
	rip := ripemd160.New()
	_, _ = rip.Write(hash[:])
	addr := rip.Sum(nil)

	converted, err := bech32.ConvertBits(addr, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(d.Prefix, converted)
}

// StaticAccounts is an AccountProvider for tests and single-node setups:
// accounts are just prefix-index strings with no key material behind them.
type StaticAccounts struct {
	Prefix string
}

func (s StaticAccounts) EscrowAccount(index uint32) (string, error) {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "escrow"
	}
	return prefix + "-" + strconv.FormatUint(uint64(index), 10), nil
}
