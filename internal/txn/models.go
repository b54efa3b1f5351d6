package txn

import (
	"time"

	"github.com/example/ledger-engine/internal/money"
)

// MovementType fixes the source/destination wallets and debit/credit
// convention for a transaction (spec §4.5.1).
type MovementType string

const (
	MovementTopup MovementType = "TOPUP"
	MovementBonus MovementType = "BONUS"
	MovementSpend MovementType = "SPEND"
)

// Status is the transaction's position in its state machine (spec §4.5.5).
// PENDING transitions to exactly one of COMPLETED or FAILED; neither is
// ever revisited.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Transaction is one attempted movement of funds. PublicID is the
// caller-visible identifier; idempotency_key is the uniqueness anchor a
// caller retries against.
type Transaction struct {
	ID             int64        `json:"-" db:"id"`
	PublicID       string       `json:"id" db:"public_id"`
	IdempotencyKey string       `json:"idempotency_key" db:"idempotency_key"`
	Type           MovementType `json:"type" db:"type"`
	UserID         int64        `json:"user_id" db:"user_id"`
	AssetTypeID    int          `json:"asset_type_id" db:"asset_type_id"`
	Amount         money.Money  `json:"amount" db:"amount"`
	Status         Status       `json:"status" db:"status"`
	Metadata       string       `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty" db:"completed_at"`
}

// Request is the validated input to the engine (spec §4.5.2).
type Request struct {
	IdempotencyKey string
	Type           MovementType
	UserID         int64
	AssetTypeID    int
	Amount         money.Money
	Metadata       string
}
