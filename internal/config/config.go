// Package config defines the top-level configuration for the bond engine
// daemon and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by BONDENGINE_* environment
// variables.
type Config struct {
	Engine   EngineConfig   `toml:"engine"`
	EVM      EVMConfig      `toml:"evm"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	S3       S3Config       `toml:"s3"`
	Archive  ArchiveConfig  `toml:"archive"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// EngineConfig holds the accounting-engine tunables.
type EngineConfig struct {
	// MaxPerMint caps units per mint call.
	MaxPerMint int `toml:"max_per_mint"`

	// SeedLevels installs the four launch levels on startup.
	SeedLevels bool `toml:"seed_levels"`

	// Treasury is the account authorized to deposit rewards. In evm mode
	// it defaults to the operator key's address.
	Treasury string `toml:"treasury"`
}

// EVMConfig holds chain connection parameters for evm mode.
type EVMConfig struct {
	RPCURL       string `toml:"rpc_url"`
	ChainID      int64  `toml:"chain_id"`
	PrivateKey   string `toml:"private_key"`
	TokenAddress string `toml:"token_address"`
	BondAddress  string `toml:"bond_address"`
}

// RedisConfig holds Redis event-bus parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	Channel    string `toml:"channel"`
	Stream     string `toml:"stream"`
}

// PostgresConfig holds event-journal connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls the journal-to-object-storage exporter.
type ArchiveConfig struct {
	Enabled  bool     `toml:"enabled"`
	Prefix   string   `toml:"prefix"`
	Interval duration `toml:"interval"`
}

// duration wraps time.Duration for TOML decoding of strings like "1h".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML.
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Defaults returns a Config populated with sane development defaults. The
// loader decodes the TOML file on top of this value.
func Defaults() Config {
	return Config{
		Engine: EngineConfig{
			MaxPerMint: 20,
			SeedLevels: true,
		},
		EVM: EVMConfig{
			ChainID: 137,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
			Channel:    "bondengine:events",
			Stream:     "bondengine:events:stream",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "bondengine",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "bondengine-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Prefix:   "events",
			Interval: duration{time.Hour},
		},
		Mode:     "dev",
		LogLevel: "info",
	}
}

// Validate checks the configuration for the selected mode and reports every
// problem found.
func (c *Config) Validate() error {
	var problems []string

	switch strings.ToLower(c.Mode) {
	case "dev":
	case "evm":
		if c.EVM.RPCURL == "" {
			problems = append(problems, "evm.rpc_url is required in evm mode")
		}
		if c.EVM.ChainID == 0 {
			problems = append(problems, "evm.chain_id is required in evm mode")
		}
		if c.EVM.PrivateKey == "" {
			problems = append(problems, "evm.private_key is required in evm mode")
		}
		if c.EVM.TokenAddress == "" {
			problems = append(problems, "evm.token_address is required in evm mode")
		}
		if c.EVM.BondAddress == "" {
			problems = append(problems, "evm.bond_address is required in evm mode")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported mode %q", c.Mode))
	}

	if c.Engine.MaxPerMint < 0 {
		problems = append(problems, "engine.max_per_mint must not be negative")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		problems = append(problems, "redis.addr is required when redis is enabled")
	}

	if c.Postgres.Enabled {
		if c.Postgres.DSN == "" && (c.Postgres.Host == "" || c.Postgres.Database == "") {
			problems = append(problems, "postgres.dsn or host+database is required when postgres is enabled")
		}
	}

	if c.Archive.Enabled {
		if !c.Postgres.Enabled {
			problems = append(problems, "archive requires the postgres journal to be enabled")
		}
		if c.S3.Bucket == "" {
			problems = append(problems, "s3.bucket is required when archive is enabled")
		}
		if c.S3.Region == "" {
			problems = append(problems, "s3.region is required when archive is enabled")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
