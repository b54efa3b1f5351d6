package wallet

import (
	"context"
	"database/sql"

	"github.com/example/ledger-engine/internal/money"
)

// Store is the wallet store (spec §4.2, component C2). It wraps the
// get_or_create / lock / apply_delta primitives behind a single type so the
// engine can depend on one collaborator.
//
// GetOrCreate and GetBalance may be called against the store's own *sql.DB.
// Lock and ApplyDelta must be called against an open *sql.Tx — the engine
// owns the transaction boundary, not this package.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetOrCreate returns the wallet for (principalID, assetTypeID), creating it
// with a zero balance if it does not exist. exec is either the store's own DB
// or, when called from inside the engine's transaction, the open *sql.Tx.
func (s *Store) GetOrCreate(ctx context.Context, exec queryRower, principalID int64, assetTypeID int) (Wallet, error) {
	return getOrCreate(ctx, exec, principalID, assetTypeID)
}

// Lock acquires an exclusive row lock on the wallet within tx and returns a
// fresh view of it.
func (s *Store) Lock(ctx context.Context, tx *sql.Tx, walletID int64) (Wallet, error) {
	return lockByID(ctx, tx, walletID)
}

// ApplyDelta persists w.Balance + delta against the row w was read from by
// Lock, within the same tx. See applyDelta for the lock-bypass hazard this
// guards against.
func (s *Store) ApplyDelta(ctx context.Context, tx *sql.Tx, w Wallet, delta money.Money) (Wallet, error) {
	return applyDelta(ctx, tx, w, delta)
}

// Find is a read-only, non-creating lookup of a wallet by (principalID,
// assetTypeID). exec is either the store's own DB or an open *sql.Tx.
// Returns ErrNotFound rather than provisioning a missing wallet; used by the
// engine for system principals (spec §6.4).
func (s *Store) Find(ctx context.Context, exec queryRower, principalID int64, assetTypeID int) (Wallet, error) {
	return find(ctx, exec, principalID, assetTypeID)
}

// GetBalance is the unlocked, read-only lookup behind the public balance
// endpoint (spec §6.1).
func (s *Store) GetBalance(ctx context.Context, principalID int64, assetTypeID int) (Balance, error) {
	return getBalance(ctx, s.db, principalID, assetTypeID)
}

// FindID is a read-only lookup of a wallet's surrogate id for
// (principalID, assetTypeID), used by reporting to address ledger entries
// by wallet id. Returns ErrNotFound if the wallet has never been created.
func (s *Store) FindID(ctx context.Context, principalID int64, assetTypeID int) (int64, error) {
	return findID(ctx, s.db, principalID, assetTypeID)
}

// DB returns the underlying pool. The engine does not use it; it begins its
// transactions on its own *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}
