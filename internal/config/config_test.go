package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "evm"
log_level = "debug"

[engine]
max_per_mint = 50
treasury = "0x000000000000000000000000000000000000dEaD"

[evm]
rpc_url = "https://rpc.example.org"
chain_id = 1
private_key = "deadbeef"
token_address = "0x0000000000000000000000000000000000000001"
bond_address = "0x0000000000000000000000000000000000000002"

[archive]
interval = "30m"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "evm", cfg.Mode)
	require.Equal(t, 50, cfg.Engine.MaxPerMint)
	// Untouched fields keep their defaults.
	require.True(t, cfg.Engine.SeedLevels)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
	require.Equal(t, "bondengine:events", cfg.Redis.Channel)
	require.Equal(t, float64(30), cfg.Archive.Interval.Minutes())
	require.NoError(t, cfg.Validate())
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`mode = "dev"`), 0o600))

	t.Setenv("BONDENGINE_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("BONDENGINE_ENGINE_MAX_PER_MINT", "7")
	t.Setenv("BONDENGINE_ENGINE_SEED_LEVELS", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	require.Equal(t, 7, cfg.Engine.MaxPerMint)
	require.False(t, cfg.Engine.SeedLevels)
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "unknown mode",
			mutate: func(c *Config) { c.Mode = "paper" },
			want:   "unsupported mode",
		},
		{
			name:   "evm mode without rpc",
			mutate: func(c *Config) { c.Mode = "evm" },
			want:   "evm.rpc_url",
		},
		{
			name: "archive without journal",
			mutate: func(c *Config) {
				c.Archive.Enabled = true
				c.Postgres.Enabled = false
			},
			want: "archive requires the postgres journal",
		},
		{
			name:   "negative max per mint",
			mutate: func(c *Config) { c.Engine.MaxPerMint = -1 },
			want:   "max_per_mint",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}
