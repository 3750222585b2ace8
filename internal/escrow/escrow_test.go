package escrow

import (
	"context"
	"math/big"
	"testing"

	"DutchAuction/internal/ledger"
	"DutchAuction/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// BIP32 test vector 1 public key, safe for non-hardened child derivation.
const testXPub = "xpub661MyMwAqRbcFtXgS5sYJABqqG9YLmC4Q1Rdap9gSE8NqtwybGhePY2gZ29ESFjqJoCu1Rupje8YtGqsefD265TMg7usUDFdp6W1EGMcet8"

func newTestEscrow(t *testing.T) (*Escrow, *ledger.MemoryLedger, *ledger.MemoryNFTRegistry) {
	t.Helper()
	l := ledger.NewMemoryLedger()
	nfts := ledger.NewMemoryNFTRegistry()
	return New(l, nfts, StaticAccounts{}), l, nfts
}

func TestXPubDeriverAccounts(t *testing.T) {
	d := XPubDeriver{XPub: testXPub, Prefix: "dutch"}

	first, err := d.EscrowAccount(0)
	require.NoError(t, err)
	second, err := d.EscrowAccount(1)
	require.NoError(t, err)

	assert.Contains(t, first, "dutch1")
	assert.NotEqual(t, first, second)

	// derivation is deterministic
	again, err := d.EscrowAccount(0)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestXPubDeriverRequiresConfig(t *testing.T) {
	_, err := XPubDeriver{Prefix: "dutch"}.EscrowAccount(0)
	assert.Error(t, err)

	_, err = XPubDeriver{XPub: testXPub}.EscrowAccount(0)
	assert.Error(t, err)
}

func TestHoldAndReleaseFungible(t *testing.T) {
	ctx := context.Background()
	e, l, _ := newTestEscrow(t)

	require.NoError(t, l.Mint(ctx, "udora", "seller", big.NewInt(1000)))

	asset := models.Asset{Kind: models.AssetFungible, Denom: "udora", Amount: big.NewInt(400)}
	receipt, err := e.Hold(ctx, asset, "seller")
	require.NoError(t, err)

	sellerBal, _ := l.Balance(ctx, "udora", "seller")
	assert.Equal(t, int64(600), sellerBal.Int64())
	escrowBal, _ := l.Balance(ctx, "udora", receipt.Account)
	assert.Equal(t, int64(400), escrowBal.Int64())

	require.NoError(t, e.Release(ctx, receipt.ID, "winner"))
	winnerBal, _ := l.Balance(ctx, "udora", "winner")
	assert.Equal(t, int64(400), winnerBal.Int64())
}

func TestHoldFailsWithoutBalance(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEscrow(t)

	asset := models.Asset{Kind: models.AssetNative, Denom: "udora", Amount: big.NewInt(10)}
	_, err := e.Hold(ctx, asset, "broke")
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
}

func TestHoldAndRefundUnique(t *testing.T) {
	ctx := context.Background()
	e, _, nfts := newTestEscrow(t)

	require.NoError(t, nfts.Mint(ctx, "punks", "7", "seller"))

	asset := models.Asset{Kind: models.AssetUnique, Collection: "punks", ItemID: "7"}
	receipt, err := e.Hold(ctx, asset, "seller")
	require.NoError(t, err)

	owner, _ := nfts.OwnerOf(ctx, "punks", "7")
	assert.Equal(t, receipt.Account, owner)

	require.NoError(t, e.Refund(ctx, receipt.ID, "seller"))
	owner, _ = nfts.OwnerOf(ctx, "punks", "7")
	assert.Equal(t, "seller", owner)
}

func TestHoldUniqueRejectsNonOwner(t *testing.T) {
	ctx := context.Background()
	e, _, nfts := newTestEscrow(t)

	require.NoError(t, nfts.Mint(ctx, "punks", "7", "alice"))

	asset := models.Asset{Kind: models.AssetUnique, Collection: "punks", ItemID: "7"}
	_, err := e.Hold(ctx, asset, "mallory")
	assert.ErrorIs(t, err, ledger.ErrNotOwner)
}

func TestReleaseExactlyOnce(t *testing.T) {
	ctx := context.Background()
	e, l, _ := newTestEscrow(t)

	require.NoError(t, l.Mint(ctx, "udora", "seller", big.NewInt(100)))
	asset := models.Asset{Kind: models.AssetFungible, Denom: "udora", Amount: big.NewInt(100)}
	receipt, err := e.Hold(ctx, asset, "seller")
	require.NoError(t, err)

	require.NoError(t, e.Release(ctx, receipt.ID, "winner"))
	assert.ErrorIs(t, e.Release(ctx, receipt.ID, "winner"), ErrAlreadyReleased)
	assert.ErrorIs(t, e.Refund(ctx, receipt.ID, "seller"), ErrAlreadyReleased)

	assert.ErrorIs(t, e.Release(ctx, "no-such-receipt", "winner"), ErrUnknownReceipt)
}

func TestHoldRejectsInvalidAssets(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEscrow(t)

	_, err := e.Hold(ctx, models.Asset{Kind: models.AssetFungible, Denom: "udora"}, "seller")
	assert.ErrorIs(t, err, ErrInvalidAsset)

	_, err = e.Hold(ctx, models.Asset{Kind: "bogus"}, "seller")
	assert.ErrorIs(t, err, ErrInvalidAsset)
}
