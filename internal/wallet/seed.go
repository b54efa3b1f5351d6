package wallet

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/ledger-engine/internal/money"
)

// SeedSystemWallets ensures the three system wallets (spec §6.4) exist for
// every given asset type: TREASURY and MARKETING pre-funded with funding,
// REVENUE starting at zero. It is invoked once at process startup, never
// from a request path, parallel to assettype.Seed.
//
// Idempotent, but unlike assettype.Seed it never updates an existing row:
// ON CONFLICT DO NOTHING means a system wallet that has already been drawn
// down or topped up by real movements keeps its actual balance across
// restarts instead of being reset to funding.
func SeedSystemWallets(ctx context.Context, db *sql.DB, assetTypeIDs []int, funding money.Money, now time.Time) error {
	const q = `
INSERT INTO wallets (principal_id, asset_type_id, balance, is_system, system_kind, created_at, updated_at)
VALUES ($1, $2, $3, true, $4, $5, $5)
ON CONFLICT (principal_id, asset_type_id) DO NOTHING
`
	specs := []struct {
		principalID int64
		kind        SystemKind
		balance     money.Money
	}{
		{PrincipalTreasury, SystemKindTreasury, funding},
		{PrincipalMarketing, SystemKindMarketing, funding},
		{PrincipalRevenue, SystemKindRevenue, money.Zero},
	}
	for _, assetTypeID := range assetTypeIDs {
		for _, spec := range specs {
			kind := spec.kind
			if _, err := db.ExecContext(ctx, q, spec.principalID, assetTypeID, spec.balance, &kind, now); err != nil {
				return err
			}
		}
	}
	return nil
}
