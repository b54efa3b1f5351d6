package assettype

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a code does not resolve to an active asset
// type, or an id does not resolve to any asset type.
var ErrNotFound = errors.New("assettype: not found")

// Store resolves asset type codes/ids against Postgres.
//
// AssetType is immutable from the engine's perspective: this package offers
// no update path, only lookup and administrative seeding.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// FindByCode resolves a code (e.g. "COIN") to its active asset type.
// Validation before any DB transaction opens (spec §4.5.2) relies on this
// lookup happening outside of the engine's wallet-locking transaction.
func (s *Store) FindByCode(ctx context.Context, code string) (AssetType, error) {
	const q = `SELECT id, code, name, active, created_at FROM asset_types WHERE code = $1 AND active = true`
	return s.scanOne(s.db.QueryRowContext(ctx, q, code))
}

// FindByID resolves a surrogate id to its asset type, regardless of the
// active flag (a transaction referencing a since-deactivated asset type
// must still be fully readable).
func (s *Store) FindByID(ctx context.Context, id int) (AssetType, error) {
	const q = `SELECT id, code, name, active, created_at FROM asset_types WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, q, id))
}

func (s *Store) scanOne(row *sql.Row) (AssetType, error) {
	var a AssetType
	if err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Active, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AssetType{}, ErrNotFound
		}
		return AssetType{}, err
	}
	return a, nil
}

// SeedSpec describes one asset type to seed administratively.
type SeedSpec struct {
	Code string
	Name string
}

// Seed ensures every code in specs exists and is active. It is idempotent:
// re-running it with the same specs is a no-op on subsequent calls. This is
// provisioning, not an engine operation — it is invoked once at process
// startup (or by a migration job), never from a request path.
func Seed(ctx context.Context, db *sql.DB, specs []SeedSpec, now time.Time) error {
	const q = `
INSERT INTO asset_types (code, name, active, created_at)
VALUES ($1, $2, true, $3)
ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, active = true
`
	for _, spec := range specs {
		if _, err := db.ExecContext(ctx, q, spec.Code, spec.Name, now); err != nil {
			return err
		}
	}
	return nil
}
