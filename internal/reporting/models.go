package reporting

import (
	"time"

	"github.com/example/ledger-engine/internal/money"
)

// MovementSummary aggregates a wallet's ledger activity over a time range
// (spec §10.7). It is computed directly from internal/ledger rows, never
// from a cached balance, so it is trivially consistent with the wallet's
// committed state at query time.
type MovementSummary struct {
	WalletID       int64       `json:"wallet_id"`
	From           time.Time   `json:"from"`
	To             time.Time   `json:"to"`
	TotalDebited   money.Money `json:"total_debited"`
	TotalCredited  money.Money `json:"total_credited"`
	NetDelta       money.Money `json:"net_delta"`
	EntryCount     int         `json:"entry_count"`
}
