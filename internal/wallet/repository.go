package wallet

import (
	"context"
	"database/sql"
	"errors"

	"github.com/example/ledger-engine/internal/money"
)

// NOTE: This repository assumes a single table, "wallets", with a unique
// index on (principal_id, asset_type_id). No migrations ship with this
// repository; the schema constant in internal/engine/integration_test.go
// holds the DDL these queries expect.

// ErrNotFound is returned when a wallet lookup by (principal, asset type)
// finds no row. lockByID reports a missing id as sql.ErrNoRows.
var ErrNotFound = errors.New("wallet: not found")

// ErrInvariantViolation is returned by applyDelta when a delta would drive
// a wallet balance negative. It is never retried — the caller's funds
// validation (spec §4.5.3 step 6) is supposed to prevent it from ever
// firing on the debit leg; it exists as a last-line invariant check.
var ErrInvariantViolation = errors.New("wallet: balance would go negative")

// getOrCreate returns the wallet for (principalID, assetTypeID), creating
// it with a zero balance if it does not exist yet. Runs against exec; the
// engine always passes its open *sql.Tx (spec §4.5.3 step 3 happens after
// "begin DB transaction").
//
// Concurrent creation of the same (principal, asset) pair is resolved by
// the unique index: the losing inserter's ON CONFLICT DO NOTHING is a
// no-op and it falls through to the SELECT, returning the winner's row.
func getOrCreate(ctx context.Context, exec queryRower, principalID int64, assetTypeID int) (Wallet, error) {
	const insertQ = `
INSERT INTO wallets (principal_id, asset_type_id, balance, is_system, system_kind, created_at, updated_at)
VALUES ($1, $2, 0, $3, $4, now(), now())
ON CONFLICT (principal_id, asset_type_id) DO NOTHING
RETURNING id, principal_id, asset_type_id, balance, is_system, system_kind, created_at, updated_at
`
	isSystem := false
	var systemKind *SystemKind
	if kind, ok := SystemKindForPrincipal(principalID); ok {
		isSystem = true
		systemKind = &kind
	}

	w, err := scanWallet(exec.QueryRowContext(ctx, insertQ, principalID, assetTypeID, isSystem, systemKind))
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Wallet{}, err
	}

	// Lost the race (or the row already existed): re-read the winner's row.
	const selectQ = `
SELECT id, principal_id, asset_type_id, balance, is_system, system_kind, created_at, updated_at
FROM wallets
WHERE principal_id = $1 AND asset_type_id = $2
`
	return scanWallet(exec.QueryRowContext(ctx, selectQ, principalID, assetTypeID))
}

// lockByID acquires an exclusive row lock on the wallet and returns a fresh
// view of it. Must be called inside an open DB transaction; blocks until
// the lock is available (or the statement/lock timeout configured on the
// transaction fires).
func lockByID(ctx context.Context, tx *sql.Tx, walletID int64) (Wallet, error) {
	const q = `
SELECT id, principal_id, asset_type_id, balance, is_system, system_kind, created_at, updated_at
FROM wallets
WHERE id = $1
FOR UPDATE
`
	return scanWallet(tx.QueryRowContext(ctx, q, walletID))
}

// applyDelta computes new_balance = w.Balance + delta and persists it
// against the row w was read from by lockByID.
//
// Critical design point (spec §4.2, §9 "lock bypass" pitfall): this
// function takes the in-memory Wallet returned by lockByID and issues an
// UPDATE keyed by that wallet's id — it never re-SELECTs the row. A fresh
// SELECT here would read a value that may already be stale relative to the
// lock we are holding in name only; mutating the locked instance is what
// makes the FOR UPDATE lock meaningful.
func applyDelta(ctx context.Context, tx *sql.Tx, w Wallet, delta money.Money) (Wallet, error) {
	newBalance, err := w.Balance.Add(delta)
	if err != nil {
		return Wallet{}, err
	}
	if newBalance.IsNegative() {
		return Wallet{}, ErrInvariantViolation
	}

	const q = `
UPDATE wallets SET balance = $1, updated_at = now()
WHERE id = $2
RETURNING id, principal_id, asset_type_id, balance, is_system, system_kind, created_at, updated_at
`
	return scanWallet(tx.QueryRowContext(ctx, q, newBalance, w.ID))
}

// getBalance is a read-only, unlocked lookup joined against asset_types for
// the display code (spec §6.1 get_balance).
func getBalance(ctx context.Context, db *sql.DB, principalID int64, assetTypeID int) (Balance, error) {
	const q = `
SELECT w.principal_id, w.asset_type_id, a.code, w.balance, w.updated_at
FROM wallets w
JOIN asset_types a ON a.id = w.asset_type_id
WHERE w.principal_id = $1 AND w.asset_type_id = $2
`
	var b Balance
	if err := db.QueryRowContext(ctx, q, principalID, assetTypeID).Scan(
		&b.PrincipalID,
		&b.AssetTypeID,
		&b.AssetTypeCode,
		&b.Balance,
		&b.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Balance{}, ErrNotFound
		}
		return Balance{}, err
	}
	return b, nil
}

// find is a read-only, non-creating lookup of a wallet by (principalID,
// assetTypeID). Unlike getOrCreate, a missing row is reported as ErrNotFound
// rather than silently provisioned — the engine uses this for system
// principals, which spec §6.4 requires to be seeded administratively rather
// than lazily created on first touch.
func find(ctx context.Context, exec queryRower, principalID int64, assetTypeID int) (Wallet, error) {
	const q = `
SELECT id, principal_id, asset_type_id, balance, is_system, system_kind, created_at, updated_at
FROM wallets
WHERE principal_id = $1 AND asset_type_id = $2
`
	w, err := scanWallet(exec.QueryRowContext(ctx, q, principalID, assetTypeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}
	return w, nil
}

// findID is a read-only lookup of a wallet's surrogate id, used by reporting
// to translate a (principal, asset) pair into the id internal/ledger keys
// entries by. Returns ErrNotFound if the wallet has never been created.
func findID(ctx context.Context, db *sql.DB, principalID int64, assetTypeID int) (int64, error) {
	const q = `SELECT id FROM wallets WHERE principal_id = $1 AND asset_type_id = $2`
	var id int64
	if err := db.QueryRowContext(ctx, q, principalID, assetTypeID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

// queryRower is satisfied by both *sql.DB and *sql.Tx; getOrCreate only
// needs QueryRowContext, and in practice is always called with the
// engine's open transaction.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanWallet(row *sql.Row) (Wallet, error) {
	var w Wallet
	var systemKind *SystemKind
	if err := row.Scan(
		&w.ID,
		&w.PrincipalID,
		&w.AssetTypeID,
		&w.Balance,
		&w.IsSystem,
		&systemKind,
		&w.CreatedAt,
		&w.UpdatedAt,
	); err != nil {
		return Wallet{}, err
	}
	w.SystemKind = systemKind
	return w, nil
}
