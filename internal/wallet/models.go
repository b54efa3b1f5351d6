package wallet

import (
	"time"

	"github.com/example/ledger-engine/internal/money"
)

// Wallet is an account holding a non-negative balance of one AssetType for
// one principal.
//
// Invariant: Balance >= 0 at every committed state. No code outside
// internal/wallet and internal/engine may mutate Balance; doing so without
// a paired ledger entry breaks the double-entry invariant.
type Wallet struct {
	ID          int64       `json:"id" db:"id"`
	PrincipalID int64       `json:"principal_id" db:"principal_id"`
	AssetTypeID int         `json:"asset_type_id" db:"asset_type_id"`
	Balance     money.Money `json:"balance" db:"balance"`
	IsSystem    bool        `json:"is_system" db:"is_system"`
	SystemKind  *SystemKind `json:"system_kind,omitempty" db:"system_kind"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// SystemKind tags a system-owned wallet. Derived from PrincipalID but
// materialized on the row for query/seeding convenience.
type SystemKind string

const (
	SystemKindTreasury  SystemKind = "TREASURY"
	SystemKindMarketing SystemKind = "MARKETING"
	SystemKindRevenue   SystemKind = "REVENUE"
)

// Well-known system principal ids.
const (
	PrincipalTreasury  int64 = -1
	PrincipalMarketing int64 = -2
	PrincipalRevenue   int64 = -3
)

// SystemKindForPrincipal returns the SystemKind a given principal id
// implies, or ("", false) for a user principal (positive id).
func SystemKindForPrincipal(principalID int64) (SystemKind, bool) {
	switch principalID {
	case PrincipalTreasury:
		return SystemKindTreasury, true
	case PrincipalMarketing:
		return SystemKindMarketing, true
	case PrincipalRevenue:
		return SystemKindRevenue, true
	default:
		return "", false
	}
}

// Balance is the read-only projection returned by GetBalance. It carries no
// lock and is never used as an engine input.
type Balance struct {
	PrincipalID   int64       `json:"principal_id"`
	AssetTypeID   int         `json:"asset_type_id"`
	AssetTypeCode string      `json:"asset_type_code"`
	Balance       money.Money `json:"balance"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
