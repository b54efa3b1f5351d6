// Package engine implements the transaction-processing engine: the
// component that, given a typed movement request, atomically locks the
// affected wallets in a deadlock-free order, validates invariants, mutates
// balances, writes paired ledger entries, and persists a transaction record
// keyed by idempotency (spec §4.5, component C5).
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"

	"github.com/example/ledger-engine/internal/assettype"
	"github.com/example/ledger-engine/internal/audit"
	"github.com/example/ledger-engine/internal/config"
	"github.com/example/ledger-engine/internal/ledger"
	"github.com/example/ledger-engine/internal/money"
	"github.com/example/ledger-engine/internal/txn"
	"github.com/example/ledger-engine/internal/wallet"
	"github.com/example/ledger-engine/pkg/logger"
	"github.com/example/ledger-engine/pkg/utils"
)

// Engine orchestrates the wallet, transaction, and ledger stores inside a
// single DB transaction per request (spec §4.5.3).
type Engine struct {
	db       *sql.DB
	rdb      *redis.Client
	wallets  *wallet.Store
	txns     *txn.Store
	ledger   *ledger.Store
	assets   *assettype.Store
	auditLog *audit.Service
	cfg      config.EngineConfig
}

func New(db *sql.DB, rdb *redis.Client, wallets *wallet.Store, txns *txn.Store, ledgerStore *ledger.Store, assets *assettype.Store, auditLog *audit.Service, cfg config.EngineConfig) *Engine {
	return &Engine{
		db:       db,
		rdb:      rdb,
		wallets:  wallets,
		txns:     txns,
		ledger:   ledgerStore,
		assets:   assets,
		auditLog: auditLog,
		cfg:      cfg,
	}
}

// GetBalance is the read-only, unlocked lookup behind spec §6.1 get_balance.
func (e *Engine) GetBalance(ctx context.Context, userID int64, assetTypeID int) (wallet.Balance, error) {
	if userID <= 0 {
		return wallet.Balance{}, &ValidationError{Field: "user_id", Reason: "must be > 0"}
	}
	return e.wallets.GetBalance(ctx, userID, assetTypeID)
}

// WalletID resolves a (userID, assetTypeID) pair to its wallet's surrogate
// id, for callers (reporting) that need to address ledger entries by wallet
// id rather than principal.
func (e *Engine) WalletID(ctx context.Context, userID int64, assetTypeID int) (int64, error) {
	if userID <= 0 {
		return 0, &ValidationError{Field: "user_id", Reason: "must be > 0"}
	}
	id, err := e.wallets.FindID(ctx, userID, assetTypeID)
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			return 0, wallet.ErrNotFound
		}
		return 0, &StorageError{Err: err}
	}
	return id, nil
}

// Process runs the full algorithm of spec §4.5.3 and returns the finalized
// (or idempotently replayed) transaction.
func (e *Engine) Process(ctx context.Context, req txn.Request) (txn.Transaction, error) {
	if err := e.validate(ctx, req); err != nil {
		return txn.Transaction{}, err
	}

	// Step 1: idempotency fast-path (optimistic, no state mutated).
	if existing, ok, err := e.lookupIdempotent(ctx, req.IdempotencyKey); err != nil {
		return txn.Transaction{}, err
	} else if ok {
		return existing, nil
	}

	// Contention-reduction soft lock (spec §10.4). Purely an optimization:
	// on failure to acquire, we poll briefly then fall through regardless.
	lockKey := "ledger:idem-lock:" + req.IdempotencyKey
	acquired, lockErr := utils.AcquireConcurrencyCap(ctx, e.rdb, lockKey, 1, e.cfg.IdempotencyCacheTTL)
	if lockErr == nil && acquired {
		defer func() { _ = utils.ReleaseConcurrencyCap(ctx, e.rdb, lockKey) }()
	} else if lockErr == nil && !acquired {
		if existing, ok := e.pollForIdempotentResult(ctx, req.IdempotencyKey); ok {
			return existing, nil
		}
	}

	maxRetries := e.cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if e.auditLog != nil {
				_ = e.auditLog.LogDeadlineExceeded(ctx, req.UserID, req.AssetTypeID, req.IdempotencyKey)
			}
			return txn.Transaction{}, ErrTimeout
		}

		t, err := e.attempt(ctx, req)
		if err == nil {
			e.cacheIdempotentResult(ctx, req.IdempotencyKey, t)
			return t, nil
		}

		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) && e.auditLog != nil {
			_ = e.auditLog.LogConfigurationError(ctx, req.UserID, req.AssetTypeID, req.IdempotencyKey, cfgErr.Error())
		}

		if !isTransient(err) {
			var valErr *ValidationError
			var fundsErr *InsufficientFundsError
			if cfgErr != nil || errors.As(err, &valErr) || errors.As(err, &fundsErr) {
				return txn.Transaction{}, err
			}
			if ctx.Err() != nil {
				if e.auditLog != nil {
					_ = e.auditLog.LogDeadlineExceeded(ctx, req.UserID, req.AssetTypeID, req.IdempotencyKey)
				}
				return txn.Transaction{}, ErrTimeout
			}
			return txn.Transaction{}, &StorageError{Err: err}
		}

		lastErr = err
		if attempt < maxRetries {
			logger.From(ctx).Warn("engine: retrying after transient storage error",
				"attempt", attempt+1,
				"idempotency_key", req.IdempotencyKey,
				"type", req.Type,
				"user_id", req.UserID,
				"asset_type_id", req.AssetTypeID,
				"error", err,
			)
			time.Sleep(time.Duration(attempt+1) * e.cfg.RetryBackoff)
		}
	}

	logger.From(ctx).Error("engine: retry budget exhausted",
		"idempotency_key", req.IdempotencyKey,
		"type", req.Type,
		"user_id", req.UserID,
		"asset_type_id", req.AssetTypeID,
		"error", lastErr,
	)
	if e.auditLog != nil {
		_ = e.auditLog.LogRetryExhausted(ctx, req.UserID, req.AssetTypeID, req.IdempotencyKey, lastErr.Error())
	}
	return txn.Transaction{}, &StorageError{Err: lastErr}
}

func (e *Engine) validate(ctx context.Context, req txn.Request) error {
	if req.IdempotencyKey == "" {
		return &ValidationError{Field: "idempotency_key", Reason: "must not be empty"}
	}
	if req.UserID <= 0 {
		return &ValidationError{Field: "user_id", Reason: "must be > 0"}
	}
	if !req.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "must be > 0"}
	}
	switch req.Type {
	case txn.MovementTopup, txn.MovementBonus, txn.MovementSpend:
	default:
		return &ValidationError{Field: "type", Reason: "unknown movement type " + string(req.Type)}
	}

	asset, err := e.assets.FindByID(ctx, req.AssetTypeID)
	if err != nil {
		if errors.Is(err, assettype.ErrNotFound) {
			return &ValidationError{Field: "asset_type_id", Reason: "unknown asset"}
		}
		return &StorageError{Err: err}
	}
	if !asset.Active {
		return &ValidationError{Field: "asset_type_id", Reason: "asset is not active"}
	}
	return nil
}

func (e *Engine) lookupIdempotent(ctx context.Context, key string) (txn.Transaction, bool, error) {
	if cached, ok := e.cacheLookup(ctx, key); ok {
		return cached, true, nil
	}
	t, ok, err := e.txns.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return txn.Transaction{}, false, &StorageError{Err: err}
	}
	return t, ok, nil
}

func (e *Engine) pollForIdempotentResult(ctx context.Context, key string) (txn.Transaction, bool) {
	const pollAttempts = 5
	backoff := e.cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 20 * time.Millisecond
	}
	for i := 0; i < pollAttempts; i++ {
		if t, ok, err := e.txns.FindByIdempotencyKey(ctx, key); err == nil && ok {
			return t, true
		}
		select {
		case <-ctx.Done():
			return txn.Transaction{}, false
		case <-time.After(backoff):
		}
	}
	return txn.Transaction{}, false
}

// resolveEndpointWallet resolves one side of a movement to its wallet row.
// System principals (TREASURY/MARKETING/REVENUE) must already exist — spec
// §6.4 requires them seeded administratively, so their absence is a
// ConfigurationError rather than something this path silently provisions.
// User principals are still created lazily on first touch.
func (e *Engine) resolveEndpointWallet(ctx context.Context, tx *sql.Tx, principalID int64, assetTypeID int) (wallet.Wallet, error) {
	if kind, ok := wallet.SystemKindForPrincipal(principalID); ok {
		w, err := e.wallets.Find(ctx, tx, principalID, assetTypeID)
		if err != nil {
			if errors.Is(err, wallet.ErrNotFound) {
				return wallet.Wallet{}, &ConfigurationError{Reason: fmt.Sprintf("%s wallet missing for asset type %d", kind, assetTypeID)}
			}
			return wallet.Wallet{}, err
		}
		return w, nil
	}
	return e.wallets.GetOrCreate(ctx, tx, principalID, assetTypeID)
}

// attempt runs exactly one pass of steps 2-10 of the algorithm inside a
// single DB transaction. A transient storage error bubbles up for Process
// to retry; everything else is final.
func (e *Engine) attempt(ctx context.Context, req txn.Request) (txn.Transaction, error) {
	ends, err := resolveEndpoints(req.Type, req.UserID)
	if err != nil {
		return txn.Transaction{}, err
	}

	errReplayed := errors.New("engine: idempotency key already committed")
	var result txn.Transaction
	err = utils.WithTx(ctx, e.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		if e.cfg.LockTimeout > 0 {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", e.cfg.LockTimeout.Milliseconds())); err != nil {
				return err
			}
		}

		// Step 3: resolve wallets. System principals must already be seeded
		// (spec §6.4) and are never lazily created; only the user side is.
		source, err := e.resolveEndpointWallet(ctx, tx, ends.sourcePrincipalID, req.AssetTypeID)
		if err != nil {
			return err
		}
		dest, err := e.resolveEndpointWallet(ctx, tx, ends.destPrincipalID, req.AssetTypeID)
		if err != nil {
			return err
		}

		// Step 4: deterministic lock ordering by ascending wallet id.
		first, second := sortByID(source, dest)
		lockedFirst, err := e.wallets.Lock(ctx, tx, first.ID)
		if err != nil {
			return err
		}
		lockedSecond, err := e.wallets.Lock(ctx, tx, second.ID)
		if err != nil {
			return err
		}
		if lockedFirst.ID == source.ID {
			source, dest = lockedFirst, lockedSecond
		} else {
			source, dest = lockedSecond, lockedFirst
		}

		// Step 5: create PENDING transaction.
		pending, err := e.txns.CreatePending(ctx, tx, req)
		if err != nil {
			var dup *txn.DuplicateIdempotencyKey
			if errors.As(err, &dup) {
				// Roll back this attempt and return the row that already
				// holds the key.
				result = dup.Existing
				return errReplayed
			}
			return err
		}

		// Step 6: validate funds (SPEND only; other movement types source
		// from a system wallet whose depletion is a provisioning defect,
		// not a caller-facing insufficient-funds error).
		if req.Type == txn.MovementSpend && source.Balance.Cmp(req.Amount) < 0 {
			return &InsufficientFundsError{Balance: source.Balance, Required: req.Amount}
		}

		// Step 7: apply deltas, capturing before/after snapshots.
		sourceBefore := source.Balance
		source, err = e.wallets.ApplyDelta(ctx, tx, source, negate(req.Amount))
		if err != nil {
			if errors.Is(err, wallet.ErrInvariantViolation) {
				return &ConfigurationError{Reason: "system source wallet depleted for " + string(req.Type)}
			}
			return err
		}
		sourceAfter := source.Balance

		destBefore := dest.Balance
		dest, err = e.wallets.ApplyDelta(ctx, tx, dest, req.Amount)
		if err != nil {
			return err
		}
		destAfter := dest.Balance

		// Step 8: append ledger entries.
		if _, err := e.ledger.Append(ctx, tx, ledger.Entry{
			TransactionPublicID: pending.PublicID,
			WalletID:            source.ID,
			EntryType:           ledger.EntryTypeDebit,
			Amount:              req.Amount,
			BalanceBefore:       sourceBefore,
			BalanceAfter:        sourceAfter,
			Description:         string(req.Type),
		}); err != nil {
			return err
		}
		if _, err := e.ledger.Append(ctx, tx, ledger.Entry{
			TransactionPublicID: pending.PublicID,
			WalletID:            dest.ID,
			EntryType:           ledger.EntryTypeCredit,
			Amount:              req.Amount,
			BalanceBefore:       destBefore,
			BalanceAfter:        destAfter,
			Description:         string(req.Type),
		}); err != nil {
			return err
		}

		// Step 9: finalize.
		finalized, err := e.txns.Finalize(ctx, tx, pending, txn.StatusCompleted)
		if err != nil {
			return err
		}
		result = finalized
		return nil
	})
	// Step 10: commit happens inside WithTx on a nil return.
	if errors.Is(err, errReplayed) {
		return result, nil
	}
	if err != nil {
		return txn.Transaction{}, err
	}
	return result, nil
}

func negate(m money.Money) money.Money {
	neg, err := money.Zero.Sub(m)
	if err != nil {
		// m is already a validated, in-range Money; negating it cannot
		// overflow since the magnitude is unchanged.
		panic(err)
	}
	return neg
}

// isTransient reports whether err is a Postgres error category the engine
// retries the whole operation for (spec §4.5.4): serialization failure,
// deadlock, or lock-wait timeout.
func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "55P03":
		return true
	default:
		return false
	}
}

func (e *Engine) cacheKey(key string) string {
	return "ledger:idem:" + key
}

func (e *Engine) cacheLookup(ctx context.Context, key string) (txn.Transaction, bool) {
	if e.rdb == nil {
		return txn.Transaction{}, false
	}
	publicID, err := e.rdb.Get(ctx, e.cacheKey(key)).Result()
	if err != nil || publicID == "" {
		return txn.Transaction{}, false
	}
	t, ok, err := e.txns.FindByIdempotencyKey(ctx, key)
	if err != nil || !ok {
		return txn.Transaction{}, false
	}
	return t, true
}

func (e *Engine) cacheIdempotentResult(ctx context.Context, key string, t txn.Transaction) {
	if e.rdb == nil {
		return
	}
	if err := e.rdb.Set(ctx, e.cacheKey(key), t.PublicID, e.cfg.IdempotencyCacheTTL).Err(); err != nil {
		logger.From(ctx).Debug("engine: failed to populate idempotency cache", "error", err, "idempotency_key", key)
	}
}
