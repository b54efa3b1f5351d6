package ledger

import (
	"context"
	"database/sql"
)

// Store is the append-only ledger store (spec §4.4, component C4). Append
// must be called within the engine's open transaction, immediately after
// the paired wallet.ApplyDelta calls — the ledger rows and the balance
// mutations they describe commit or roll back together.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts one ledger row. The engine calls it twice per completed
// transaction: once for the DEBIT leg, once for the CREDIT leg.
func (s *Store) Append(ctx context.Context, tx *sql.Tx, e Entry) (Entry, error) {
	const q = `
INSERT INTO ledger_entries (transaction_public_id, wallet_id, entry_type, amount, balance_before, balance_after, description, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now())
RETURNING id, transaction_public_id, wallet_id, entry_type, amount, balance_before, balance_after, description, created_at
`
	var out Entry
	row := tx.QueryRowContext(ctx, q, e.TransactionPublicID, e.WalletID, e.EntryType, e.Amount, e.BalanceBefore, e.BalanceAfter, e.Description)
	if err := row.Scan(
		&out.ID,
		&out.TransactionPublicID,
		&out.WalletID,
		&out.EntryType,
		&out.Amount,
		&out.BalanceBefore,
		&out.BalanceAfter,
		&out.Description,
		&out.CreatedAt,
	); err != nil {
		return Entry{}, err
	}
	return out, nil
}

// ListByWallet returns entries for a wallet ordered oldest-first, optionally
// bounded by [since, until). Backs the movement-summary reporting endpoint
// (spec §10.7); never used on the write path.
func (s *Store) ListByWallet(ctx context.Context, walletID int64, since, until sql.NullTime, limit int) ([]Entry, error) {
	const q = `
SELECT id, transaction_public_id, wallet_id, entry_type, amount, balance_before, balance_after, description, created_at
FROM ledger_entries
WHERE wallet_id = $1
  AND ($2::timestamptz IS NULL OR created_at >= $2)
  AND ($3::timestamptz IS NULL OR created_at < $3)
ORDER BY created_at ASC, id ASC
LIMIT $4
`
	rows, err := s.db.QueryContext(ctx, q, walletID, since, until, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID,
			&e.TransactionPublicID,
			&e.WalletID,
			&e.EntryType,
			&e.Amount,
			&e.BalanceBefore,
			&e.BalanceAfter,
			&e.Description,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
