package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo persists audit events to the append-only audit_events table
// (spec §10.6). There is deliberately no Update/Delete here.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (id, type, principal_id, asset_type_id, idempotency_key, transaction_public_id, message, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.Type,
		e.PrincipalID,
		e.AssetTypeID,
		e.IdempotencyKey,
		e.TransactionPublicID,
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}
