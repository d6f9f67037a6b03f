package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies BONDENGINE_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known BONDENGINE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Engine ──
	setInt(&cfg.Engine.MaxPerMint, "BONDENGINE_ENGINE_MAX_PER_MINT")
	setBool(&cfg.Engine.SeedLevels, "BONDENGINE_ENGINE_SEED_LEVELS")
	setStr(&cfg.Engine.Treasury, "BONDENGINE_ENGINE_TREASURY")

	// ── EVM ──
	setStr(&cfg.EVM.RPCURL, "BONDENGINE_EVM_RPC_URL")
	setInt64(&cfg.EVM.ChainID, "BONDENGINE_EVM_CHAIN_ID")
	setStr(&cfg.EVM.PrivateKey, "BONDENGINE_EVM_PRIVATE_KEY")
	setStr(&cfg.EVM.TokenAddress, "BONDENGINE_EVM_TOKEN_ADDRESS")
	setStr(&cfg.EVM.BondAddress, "BONDENGINE_EVM_BOND_ADDRESS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "BONDENGINE_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "BONDENGINE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BONDENGINE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BONDENGINE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "BONDENGINE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "BONDENGINE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "BONDENGINE_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.Channel, "BONDENGINE_REDIS_CHANNEL")
	setStr(&cfg.Redis.Stream, "BONDENGINE_REDIS_STREAM")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "BONDENGINE_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "BONDENGINE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "BONDENGINE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "BONDENGINE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "BONDENGINE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "BONDENGINE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "BONDENGINE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "BONDENGINE_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "BONDENGINE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "BONDENGINE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "BONDENGINE_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "BONDENGINE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "BONDENGINE_S3_REGION")
	setStr(&cfg.S3.Bucket, "BONDENGINE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "BONDENGINE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "BONDENGINE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "BONDENGINE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "BONDENGINE_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "BONDENGINE_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Prefix, "BONDENGINE_ARCHIVE_PREFIX")
	setDuration(&cfg.Archive.Interval, "BONDENGINE_ARCHIVE_INTERVAL")

	// ── Top-level ──
	setStr(&cfg.Mode, "BONDENGINE_MODE")
	setStr(&cfg.LogLevel, "BONDENGINE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
