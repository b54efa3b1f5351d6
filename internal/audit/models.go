package audit

import "time"

// Event is an immutable, append-only operational log record, distinct from
// the financial ledger (internal/ledger): it exists for operators, never
// for reconciling balances (spec §10.6).
//
// Invariants:
// - Events are never updated or deleted.
// - A failure to append an event never fails the engine operation that
//   triggered it.
//
// Storage recommendation (Postgres):
// - Table audit_events with an INSERT-only policy.
// - Optional: trigger to prevent UPDATE/DELETE.
// - Optional: partition by time for retention.

type Event struct {
	ID                  string    `json:"id" db:"id"`
	Type                EventType `json:"type" db:"type"`
	PrincipalID         int64     `json:"principal_id,omitempty" db:"principal_id"`
	AssetTypeID         int       `json:"asset_type_id,omitempty" db:"asset_type_id"`
	IdempotencyKey      string    `json:"idempotency_key,omitempty" db:"idempotency_key"`
	TransactionPublicID string    `json:"transaction_public_id,omitempty" db:"transaction_public_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeRetryExhausted    EventType = "engine.retry_exhausted"
	EventTypeConfigurationErr  EventType = "engine.configuration_error"
	EventTypeDeadlineExceeded  EventType = "engine.deadline_exceeded"
)
