package store

import (
	"context"
	"errors"
	"math/big"

	"DutchAuction/internal/ledger"

	"github.com/jackc/pgx/v5"
)

// PGLedger implements ledger.Ledger on Postgres. Balances are NUMERIC(78,0)
// stored and scanned as decimal strings, big.Int in memory.
type PGLedger struct {
	Store *Store
}

func (l *PGLedger) Balance(ctx context.Context, denom, account string) (*big.Int, error) {
	row := l.Store.Pool.QueryRow(ctx, `
		SELECT balance::text FROM ledger_accounts WHERE denom=$1 AND account=$2
	`, denom, account)

	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return big.NewInt(0), nil
		}
		return nil, err
	}
	bal, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, errors.New("corrupt balance for " + denom + "/" + account)
	}
	return bal, nil
}

func (l *PGLedger) Mint(ctx context.Context, denom, account string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ledger.ErrInvalidAmount
	}
	_, err := l.Store.Pool.Exec(ctx, `
		INSERT INTO ledger_accounts (denom, account, balance)
		VALUES ($1, $2, $3::numeric)
		ON CONFLICT (denom, account) DO UPDATE SET balance=ledger_accounts.balance+EXCLUDED.balance
	`, denom, account, amount.String())
	return err
}

// Transfer debits and credits in one transaction; the guarded debit makes a
// short balance fail the whole move.
func (l *PGLedger) Transfer(ctx context.Context, denom, from, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ledger.ErrInvalidAmount
	}

	tx, err := l.Store.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx, `
		UPDATE ledger_accounts
		SET balance=balance-$3::numeric
		WHERE denom=$1 AND account=$2 AND balance>=$3::numeric
	`, denom, from, amount.String())
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ledger.ErrInsufficientBalance
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO ledger_accounts (denom, account, balance)
		VALUES ($1, $2, $3::numeric)
		ON CONFLICT (denom, account) DO UPDATE SET balance=ledger_accounts.balance+EXCLUDED.balance
	`, denom, to, amount.String()); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// PGNFTRegistry implements ledger.NFTRegistry on Postgres.
type PGNFTRegistry struct {
	Store *Store
}

func (r *PGNFTRegistry) OwnerOf(ctx context.Context, collection, itemID string) (string, error) {
	row := r.Store.Pool.QueryRow(ctx, `
		SELECT owner FROM nft_items WHERE collection=$1 AND item_id=$2
	`, collection, itemID)

	var owner string
	if err := row.Scan(&owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ledger.ErrNotOwner
		}
		return "", err
	}
	return owner, nil
}

func (r *PGNFTRegistry) Mint(ctx context.Context, collection, itemID, owner string) error {
	_, err := r.Store.Pool.Exec(ctx, `
		INSERT INTO nft_items (collection, item_id, owner)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, item_id) DO NOTHING
	`, collection, itemID, owner)
	return err
}

func (r *PGNFTRegistry) Transfer(ctx context.Context, collection, itemID, from, to string) error {
	res, err := r.Store.Pool.Exec(ctx, `
		UPDATE nft_items SET owner=$4
		WHERE collection=$1 AND item_id=$2 AND owner=$3
	`, collection, itemID, from, to)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ledger.ErrNotOwner
	}
	return nil
}
