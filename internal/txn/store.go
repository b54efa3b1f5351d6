package txn

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned by FindByIdempotencyKeyTx when no row holds the
// key. FindByIdempotencyKey reports a miss as ok == false instead.
var ErrNotFound = errors.New("txn: not found")

// uniqueViolation is the Postgres error code for a unique-index conflict.
const uniqueViolation = "23505"

// DuplicateIdempotencyKey is returned by CreatePending when another row
// already holds the same idempotency key. Existing carries that row so the
// caller can return it verbatim instead of retrying the insert.
type DuplicateIdempotencyKey struct {
	Existing Transaction
}

func (e *DuplicateIdempotencyKey) Error() string {
	return "txn: idempotency key already used by transaction " + e.Existing.PublicID
}

// Store is the transaction store (spec §4.3, component C3).
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// FindByIdempotencyKey is the engine's optimistic pre-check (spec §4.5.3
// step 1). Runs outside any transaction; a miss is not an error.
func (s *Store) FindByIdempotencyKey(ctx context.Context, key string) (Transaction, bool, error) {
	t, err := scanOne(s.db.QueryRowContext(ctx, selectByIdempotencyKeyQuery, key))
	if errors.Is(err, ErrNotFound) {
		return Transaction{}, false, nil
	}
	if err != nil {
		return Transaction{}, false, err
	}
	return t, true, nil
}

// CreatePending inserts a new PENDING transaction with a freshly generated
// public id. If the idempotency key is already taken, it returns
// *DuplicateIdempotencyKey carrying the existing row and no other error —
// the caller (the engine) rolls back and returns that row (spec §4.5.3
// step 5, the authoritative idempotency check).
func (s *Store) CreatePending(ctx context.Context, tx *sql.Tx, req Request) (Transaction, error) {
	publicID := uuid.NewString()
	// A failed INSERT aborts the whole Postgres transaction; the savepoint
	// lets the conflict path roll back just the INSERT and still read the
	// existing row inside tx.
	if _, err := tx.ExecContext(ctx, "SAVEPOINT create_pending"); err != nil {
		return Transaction{}, err
	}
	row := tx.QueryRowContext(ctx, insertPendingQuery,
		publicID, req.IdempotencyKey, req.Type, req.UserID, req.AssetTypeID, req.Amount, req.Metadata)

	t, err := scanOne(row)
	if err == nil {
		return t, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT create_pending"); rbErr != nil {
			return Transaction{}, rbErr
		}
		existing, findErr := s.FindByIdempotencyKeyTx(ctx, tx, req.IdempotencyKey)
		if findErr != nil {
			return Transaction{}, findErr
		}
		return Transaction{}, &DuplicateIdempotencyKey{Existing: existing}
	}
	return Transaction{}, err
}

// FindByIdempotencyKeyTx is FindByIdempotencyKey run inside an already-open
// transaction, used by CreatePending's conflict path and by tests that want
// a read consistent with in-flight writes.
func (s *Store) FindByIdempotencyKeyTx(ctx context.Context, tx *sql.Tx, key string) (Transaction, error) {
	return scanOne(tx.QueryRowContext(ctx, selectByIdempotencyKeyQuery, key))
}

// Finalize transitions a PENDING transaction to a terminal status (spec
// §4.5.5). Must be called within the same tx that created the PENDING row.
func (s *Store) Finalize(ctx context.Context, tx *sql.Tx, t Transaction, status Status) (Transaction, error) {
	const q = `
UPDATE transactions SET status = $1, completed_at = now()
WHERE id = $2 AND status = 'PENDING'
RETURNING ` + columns
	out, err := scanOne(tx.QueryRowContext(ctx, q, status, t.ID))
	if errors.Is(err, ErrNotFound) {
		return Transaction{}, errors.New("txn: finalize: transaction not in PENDING state")
	}
	return out, err
}

const columns = `id, public_id, idempotency_key, type, user_id, asset_type_id, amount, status, metadata, created_at, completed_at`

const selectByIdempotencyKeyQuery = `SELECT ` + columns + ` FROM transactions WHERE idempotency_key = $1`

const insertPendingQuery = `
INSERT INTO transactions (public_id, idempotency_key, type, user_id, asset_type_id, amount, status, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, 'PENDING', $7, now())
RETURNING ` + columns

func scanOne(row *sql.Row) (Transaction, error) {
	var t Transaction
	if err := row.Scan(
		&t.ID,
		&t.PublicID,
		&t.IdempotencyKey,
		&t.Type,
		&t.UserID,
		&t.AssetTypeID,
		&t.Amount,
		&t.Status,
		&t.Metadata,
		&t.CreatedAt,
		&t.CompletedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Transaction{}, ErrNotFound
		}
		return Transaction{}, err
	}
	return t, nil
}
