package ledger

import (
	"time"

	"github.com/example/ledger-engine/internal/money"
)

// EntryType is the double-entry side of a ledger row.
type EntryType string

const (
	EntryTypeDebit  EntryType = "DEBIT"
	EntryTypeCredit EntryType = "CREDIT"
)

// Entry is one row of the append-only ledger (spec §4.4). Every COMPLETED
// transaction produces exactly two entries — one DEBIT, one CREDIT — sharing
// TransactionPublicID and carrying identical Amount.
type Entry struct {
	ID                  int64     `json:"id" db:"id"`
	TransactionPublicID string    `json:"transaction_public_id" db:"transaction_public_id"`
	WalletID            int64     `json:"wallet_id" db:"wallet_id"`
	EntryType           EntryType `json:"entry_type" db:"entry_type"`
	Amount              money.Money `json:"amount" db:"amount"`
	BalanceBefore       money.Money `json:"balance_before" db:"balance_before"`
	BalanceAfter        money.Money `json:"balance_after" db:"balance_after"`
	Description         string    `json:"description,omitempty" db:"description"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
}
