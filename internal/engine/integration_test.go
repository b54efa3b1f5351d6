//go:build integration

package engine_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/goleak"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/example/ledger-engine/internal/assettype"
	"github.com/example/ledger-engine/internal/audit"
	"github.com/example/ledger-engine/internal/config"
	"github.com/example/ledger-engine/internal/engine"
	"github.com/example/ledger-engine/internal/ledger"
	"github.com/example/ledger-engine/internal/money"
	"github.com/example/ledger-engine/internal/txn"
	"github.com/example/ledger-engine/internal/wallet"
)

const schema = `
CREATE TABLE asset_types (
	id SERIAL PRIMARY KEY,
	code TEXT UNIQUE NOT NULL,
	name TEXT NOT NULL,
	active BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE wallets (
	id BIGSERIAL PRIMARY KEY,
	principal_id BIGINT NOT NULL,
	asset_type_id INT NOT NULL REFERENCES asset_types(id),
	balance NUMERIC(20,8) NOT NULL DEFAULT 0,
	is_system BOOLEAN NOT NULL DEFAULT false,
	system_kind TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (principal_id, asset_type_id)
);
CREATE TABLE transactions (
	id BIGSERIAL PRIMARY KEY,
	public_id TEXT UNIQUE NOT NULL,
	idempotency_key TEXT UNIQUE NOT NULL,
	type TEXT NOT NULL,
	user_id BIGINT NOT NULL,
	asset_type_id INT NOT NULL REFERENCES asset_types(id),
	amount NUMERIC(20,8) NOT NULL,
	status TEXT NOT NULL,
	metadata TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);
CREATE TABLE ledger_entries (
	id BIGSERIAL PRIMARY KEY,
	transaction_public_id TEXT NOT NULL REFERENCES transactions(public_id),
	wallet_id BIGINT NOT NULL REFERENCES wallets(id),
	entry_type TEXT NOT NULL,
	amount NUMERIC(20,8) NOT NULL,
	balance_before NUMERIC(20,8) NOT NULL,
	balance_after NUMERIC(20,8) NOT NULL,
	description TEXT,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX ON ledger_entries (transaction_public_id);
CREATE TABLE audit_events (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	principal_id BIGINT,
	asset_type_id INT,
	idempotency_key TEXT,
	transaction_public_id TEXT,
	message TEXT,
	metadata TEXT,
	created_at TIMESTAMPTZ NOT NULL
);
`

// testEnv wires a disposable Postgres + Redis pair per test, mirroring the
// per-test Reset() pattern this kind of concurrency suite uses elsewhere in
// this organization's codebase.
type testEnv struct {
	db  *sql.DB
	rdb *redis.Client
	eng *engine.Engine
}

func newTestEnv(t *testing.T, ctx context.Context) *testEnv {
	t.Helper()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "ledger",
				"POSTGRES_PASSWORD": "ledger",
				"POSTGRES_DB":       "ledger",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=ledger password=ledger dbname=ledger sslmode=disable", pgHost, pgPort.Port())
	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.Eventually(t, func() bool { return db.PingContext(ctx) == nil }, 30*time.Second, 200*time.Millisecond)
	_, err = db.ExecContext(ctx, schema)
	require.NoError(t, err)

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisContainer.Terminate(ctx) })

	redisHost, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	redisPort, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port())})
	t.Cleanup(func() { _ = rdb.Close() })
	require.Eventually(t, func() bool { return rdb.Ping(ctx).Err() == nil }, 10*time.Second, 100*time.Millisecond)

	require.NoError(t, assettype.Seed(ctx, db, []assettype.SeedSpec{{Code: "COIN", Name: "COIN"}}, time.Now()))

	var coinID int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT id FROM asset_types WHERE code = 'COIN'`).Scan(&coinID))
	// Mirrors cmd/api/main.go's startup seeding (spec §6.4): TREASURY/MARKETING/
	// REVENUE must exist before any movement touches them. Individual tests
	// that need TREASURY/MARKETING pre-funded beyond zero top up via seedWallet.
	require.NoError(t, wallet.SeedSystemWallets(ctx, db, []int{coinID}, money.Zero, time.Now()))

	assets := assettype.NewStore(db)
	wallets := wallet.NewStore(db)
	txns := txn.NewStore(db)
	ledgerStore := ledger.NewStore(db)
	auditLog := audit.NewService(audit.NewMemoryRepo())

	cfg := config.EngineConfig{
		LockTimeout:         2 * time.Second,
		MaxRetries:          3,
		RetryBackoff:        10 * time.Millisecond,
		IdempotencyCacheTTL: time.Minute,
	}

	return &testEnv{
		db:  db,
		rdb: rdb,
		eng: engine.New(db, rdb, wallets, txns, ledgerStore, assets, auditLog, cfg),
	}
}

func (e *testEnv) coinAssetID(t *testing.T, ctx context.Context) int {
	t.Helper()
	var id int
	require.NoError(t, e.db.QueryRowContext(ctx, `SELECT id FROM asset_types WHERE code = 'COIN'`).Scan(&id))
	return id
}

// seedWallet pre-funds a principal's wallet, bypassing the engine (setup, not
// the code under test).
func (e *testEnv) seedWallet(t *testing.T, ctx context.Context, principalID int64, assetTypeID int, balance string) {
	t.Helper()
	isSystem := principalID < 0
	_, err := e.db.ExecContext(ctx, `
INSERT INTO wallets (principal_id, asset_type_id, balance, is_system, created_at, updated_at)
VALUES ($1, $2, $3, $4, now(), now())
ON CONFLICT (principal_id, asset_type_id) DO UPDATE SET balance = EXCLUDED.balance
`, principalID, assetTypeID, balance, isSystem)
	require.NoError(t, err)
}

func (e *testEnv) balance(t *testing.T, ctx context.Context, principalID int64, assetTypeID int) money.Money {
	t.Helper()
	// Read through wallet.Store: Engine.GetBalance only accepts user ids
	// (> 0), and these scenarios also check system wallets.
	b, err := wallet.NewStore(e.db).GetBalance(ctx, principalID, assetTypeID)
	if err != nil {
		return money.Zero
	}
	return b.Balance
}

// S1 — Successful TOPUP.
func TestScenario_SuccessfulTopup(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, ctx)
	coin := env.coinAssetID(t, ctx)
	env.seedWallet(t, ctx, wallet.PrincipalTreasury, coin, "1000000.00000000")

	got, err := env.eng.Process(ctx, txn.Request{
		IdempotencyKey: "k1",
		Type:           txn.MovementTopup,
		UserID:         7,
		AssetTypeID:    coin,
		Amount:         money.New(100),
	})
	require.NoError(t, err)
	require.Equal(t, txn.StatusCompleted, got.Status)

	require.Equal(t, 0, env.balance(t, ctx, 7, coin).Cmp(money.New(100)))
	require.Equal(t, 0, env.balance(t, ctx, wallet.PrincipalTreasury, coin).Cmp(money.MustParse("999900.00000000")))

	var txCount, entryCount int
	require.NoError(t, env.db.QueryRowContext(ctx, `SELECT count(*) FROM transactions`).Scan(&txCount))
	require.NoError(t, env.db.QueryRowContext(ctx, `SELECT count(*) FROM ledger_entries`).Scan(&entryCount))
	require.Equal(t, 1, txCount)
	require.Equal(t, 2, entryCount)
}

// S2 — Idempotent replay.
func TestScenario_IdempotentReplay(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, ctx)
	coin := env.coinAssetID(t, ctx)
	env.seedWallet(t, ctx, wallet.PrincipalTreasury, coin, "1000000.00000000")

	req := txn.Request{IdempotencyKey: "k1", Type: txn.MovementTopup, UserID: 7, AssetTypeID: coin, Amount: money.New(100)}
	first, err := env.eng.Process(ctx, req)
	require.NoError(t, err)

	second, err := env.eng.Process(ctx, req)
	require.NoError(t, err)

	require.Equal(t, first.PublicID, second.PublicID)
	require.Equal(t, txn.StatusCompleted, second.Status)
	require.Equal(t, 0, env.balance(t, ctx, 7, coin).Cmp(money.New(100)))

	var txCount, entryCount int
	require.NoError(t, env.db.QueryRowContext(ctx, `SELECT count(*) FROM transactions`).Scan(&txCount))
	require.NoError(t, env.db.QueryRowContext(ctx, `SELECT count(*) FROM ledger_entries`).Scan(&entryCount))
	require.Equal(t, 1, txCount)
	require.Equal(t, 2, entryCount)
}

// S3 — SPEND with exact balance.
func TestScenario_SpendExactBalance(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, ctx)
	coin := env.coinAssetID(t, ctx)
	env.seedWallet(t, ctx, 7, coin, "100.00000000")

	got, err := env.eng.Process(ctx, txn.Request{
		IdempotencyKey: "k2",
		Type:           txn.MovementSpend,
		UserID:         7,
		AssetTypeID:    coin,
		Amount:         money.New(100),
	})
	require.NoError(t, err)
	require.Equal(t, txn.StatusCompleted, got.Status)
	require.True(t, env.balance(t, ctx, 7, coin).IsZero())
	require.Equal(t, 0, env.balance(t, ctx, wallet.PrincipalRevenue, coin).Cmp(money.New(100)))
}

// S4 — Insufficient funds.
func TestScenario_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, ctx)
	coin := env.coinAssetID(t, ctx)

	_, err := env.eng.Process(ctx, txn.Request{
		IdempotencyKey: "k3",
		Type:           txn.MovementSpend,
		UserID:         7,
		AssetTypeID:    coin,
		Amount:         money.MustParse("0.00000001"),
	})
	require.Error(t, err)
	var fundsErr *engine.InsufficientFundsError
	require.ErrorAs(t, err, &fundsErr)
	require.True(t, fundsErr.Balance.IsZero())

	var txCount, entryCount int
	require.NoError(t, env.db.QueryRowContext(ctx, `SELECT count(*) FROM transactions`).Scan(&txCount))
	require.NoError(t, env.db.QueryRowContext(ctx, `SELECT count(*) FROM ledger_entries`).Scan(&entryCount))
	require.Equal(t, 0, txCount)
	require.Equal(t, 0, entryCount)
}

// S5 — Concurrent SPEND race: exactly one of two competing spends succeeds.
func TestScenario_ConcurrentSpendRace(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))

	ctx := context.Background()
	env := newTestEnv(t, ctx)
	coin := env.coinAssetID(t, ctx)
	env.seedWallet(t, ctx, 8, coin, "10.00000000")

	keys := []string{"a", "b"}
	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_, err := env.eng.Process(ctx, txn.Request{
				IdempotencyKey: key,
				Type:           txn.MovementSpend,
				UserID:         8,
				AssetTypeID:    coin,
				Amount:         money.New(10),
			})
			results <- err
		}(key)
	}
	wg.Wait()
	close(results)

	var successes, failures int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		var fundsErr *engine.InsufficientFundsError
		require.ErrorAs(t, err, &fundsErr)
		failures++
	}
	require.Equal(t, 1, successes)
	require.Equal(t, 1, failures)
	require.True(t, env.balance(t, ctx, 8, coin).IsZero())
	require.Equal(t, 0, env.balance(t, ctx, wallet.PrincipalRevenue, coin).Cmp(money.New(10)))
}

// S6 — 100-way concurrent small SPEND, all succeed.
func TestScenario_HundredWayConcurrentSpend(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, ctx)
	coin := env.coinAssetID(t, ctx)
	env.seedWallet(t, ctx, 9, coin, "10000.00000000")

	const n = 100
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.eng.Process(ctx, txn.Request{
				IdempotencyKey: fmt.Sprintf("spend-%d", i),
				Type:           txn.MovementSpend,
				UserID:         9,
				AssetTypeID:    coin,
				Amount:         money.New(50),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, 0, env.balance(t, ctx, 9, coin).Cmp(money.New(5000)))
	require.Equal(t, 0, env.balance(t, ctx, wallet.PrincipalRevenue, coin).Cmp(money.New(5000)))

	var entryCount int
	require.NoError(t, env.db.QueryRowContext(ctx, `SELECT count(*) FROM ledger_entries`).Scan(&entryCount))
	require.Equal(t, 200, entryCount)
}
