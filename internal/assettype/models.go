package assettype

import "time"

// AssetType is an enumerated currency kind (COIN, GEM, GOLD, ...).
//
// Lifecycle: seeded administratively. Immutable from the engine's
// perspective — nothing in internal/engine ever writes to this table.
type AssetType struct {
	ID        int       `json:"id" db:"id"`
	Code      string    `json:"code" db:"code"`
	Name      string    `json:"name" db:"name"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
