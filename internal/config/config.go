package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

/*
Config holds all configuration required by the API process.
All values MUST come from environment variables.
No business logic should depend on raw env vars.
*/
type Config struct {
	App    AppConfig
	DB     DBConfig
	Redis  RedisConfig
	Engine EngineConfig
	Assets AssetsConfig
}

/* ===================== APP ===================== */

type AppConfig struct {
	Env  string
	Port int
}

/* ===================== DATABASE ===================== */

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string // disable, require, verify-ca, verify-full

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

/* ===================== REDIS ===================== */

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	UseTLS   bool
}

/* ===================== ENGINE ===================== */

// EngineConfig tunes the transaction engine's locking and retry behavior
// (spec §4.5.4, §10.2). It has no bearing on correctness — only on how the
// engine behaves under contention.
type EngineConfig struct {
	// LockTimeout is passed to Postgres via SET LOCAL lock_timeout at the
	// start of the engine's transaction, bounding how long it waits on a
	// contended wallet row before the DB aborts the statement.
	LockTimeout time.Duration
	// MaxRetries bounds the number of whole-operation retries after a
	// deadlock or lock-wait timeout (spec §4.5.4). Default 3.
	MaxRetries int
	// RetryBackoff is the base delay between retries; actual delay grows
	// linearly with attempt number.
	RetryBackoff time.Duration
	// IdempotencyCacheTTL is the TTL of the Redis idempotency accelerator
	// entries (spec §10.4). Never affects correctness if it expires early.
	IdempotencyCacheTTL time.Duration
}

/* ===================== ASSETS ===================== */

// AssetsConfig is the seed list of asset type codes provisioned at startup
// by cmd/api/main.go, plus the system wallet funding amount required by spec
// §6.4's seed requirements.
type AssetsConfig struct {
	SeedCodes []string
	// SystemWalletFunding is the whole-unit balance TREASURY and MARKETING
	// wallets are seeded with for every asset type. REVENUE always starts
	// at zero regardless of this value.
	SystemWalletFunding int64
}

/* ===================== LOAD ===================== */

func Load() (Config, error) {
	var parseErrs []error
	var err error

	c := Config{}

	/* ---- APP ---- */
	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	c.App.Port, err = mustInt("APP_PORT")
	parseErrs = append(parseErrs, err)

	/* ---- DB ---- */
	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	c.DB.Port, err = mustInt("DB_PORT")
	parseErrs = append(parseErrs, err)

	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.DB.MaxOpenConns = optionalInt("DB_MAX_OPEN_CONNS", 25)
	c.DB.MaxIdleConns = optionalInt("DB_MAX_IDLE_CONNS", 25)
	c.DB.ConnMaxLifetime, err = optionalDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	parseErrs = append(parseErrs, err)
	c.DB.ConnMaxIdleTime, err = optionalDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute)
	parseErrs = append(parseErrs, err)

	/* ---- REDIS ---- */
	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port, err = mustInt("REDIS_PORT")
	parseErrs = append(parseErrs, err)

	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	c.Redis.UseTLS = strings.ToLower(os.Getenv("REDIS_TLS")) == "true"

	/* ---- ENGINE ---- */
	c.Engine.LockTimeout, err = optionalDuration("ENGINE_LOCK_TIMEOUT", 2*time.Second)
	parseErrs = append(parseErrs, err)
	c.Engine.MaxRetries = optionalInt("ENGINE_MAX_RETRIES", 3)
	c.Engine.RetryBackoff, err = optionalDuration("ENGINE_RETRY_BACKOFF", 50*time.Millisecond)
	parseErrs = append(parseErrs, err)
	c.Engine.IdempotencyCacheTTL, err = optionalDuration("ENGINE_IDEMPOTENCY_CACHE_TTL", 24*time.Hour)
	parseErrs = append(parseErrs, err)

	/* ---- ASSETS ---- */
	c.Assets.SeedCodes = splitCSV(os.Getenv("ASSETS_SEED_CODES"), []string{"COIN", "GEM", "GOLD"})
	c.Assets.SystemWalletFunding = int64(optionalInt("ASSETS_SYSTEM_WALLET_FUNDING", 1_000_000))

	/* ---- APPLY DEFAULTS (NO SIDE EFFECTS IN VALIDATE) ---- */
	if c.DB.SSLMode == "" && !c.IsProduction() {
		c.DB.SSLMode = "disable"
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

/* ===================== VALIDATION ===================== */

func (c Config) Validate() error {
	var errs []error

	/* ---- APP ---- */
	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	}
	if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be local, dev, staging, or production"))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be valid"))
	}

	/* ---- DB ---- */
	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 {
		errs = append(errs, errors.New("DB_PORT is required"))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.IsProduction() && c.DB.SSLMode == "" {
		errs = append(errs, errors.New("DB_SSLMODE required in production"))
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("invalid DB_SSLMODE"))
	}

	/* ---- REDIS ---- */
	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 {
		errs = append(errs, errors.New("REDIS_PORT is required"))
	}

	/* ---- ENGINE ---- */
	if c.Engine.MaxRetries < 0 {
		errs = append(errs, errors.New("ENGINE_MAX_RETRIES must be >= 0"))
	}
	if c.Engine.LockTimeout <= 0 {
		errs = append(errs, errors.New("ENGINE_LOCK_TIMEOUT must be > 0"))
	}

	/* ---- ASSETS ---- */
	if len(c.Assets.SeedCodes) == 0 {
		errs = append(errs, errors.New("ASSETS_SEED_CODES must name at least one asset"))
	}
	if c.Assets.SystemWalletFunding < 0 {
		errs = append(errs, errors.New("ASSETS_SYSTEM_WALLET_FUNDING must be >= 0"))
	}

	return joinErrors(errs)
}

/* ===================== HELPERS ===================== */

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	return strconv.Atoi(v)
}

func optionalInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func optionalDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be valid duration like 2s", key)
	}
	return d, nil
}

func splitCSV(v string, fallback []string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	var filtered []error
	for _, e := range errs {
		if e != nil {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range filtered {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
