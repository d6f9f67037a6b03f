package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	s3blob "github.com/alanyoungcy/bondengine/internal/blob/s3"
	"github.com/alanyoungcy/bondengine/internal/bond"
	"github.com/alanyoungcy/bondengine/internal/config"
	"github.com/alanyoungcy/bondengine/internal/domain"
	"github.com/alanyoungcy/bondengine/internal/events"
	"github.com/alanyoungcy/bondengine/internal/events/archive"
	"github.com/alanyoungcy/bondengine/internal/events/postgres"
	"github.com/alanyoungcy/bondengine/internal/events/redisbus"
	"github.com/alanyoungcy/bondengine/internal/fixedpoint"
	"github.com/alanyoungcy/bondengine/internal/ledger/evm"
	"github.com/alanyoungcy/bondengine/internal/ledger/memledger"
)

// Dependencies bundles everything the running modes need: the engine itself,
// the optional event journal, and the optional archive exporter. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Manager  *bond.Manager
	Journal  domain.EventJournal
	Exporter *archive.Exporter
}

// devSeedBalance is credited to the treasury in dev mode so reward deposits
// work against the in-memory ledger without extra setup. One million whole
// tokens at 1e18 scale.
var devSeedBalance = new(big.Int).Mul(big.NewInt(1_000_000), fixedpoint.Precision)

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Collaborators (mode-dependent) ---
	var (
		ledger   domain.FungibleLedger
		registry domain.PositionRegistry
		treasury common.Address
	)
	switch strings.ToLower(cfg.Mode) {
	case "evm":
		client, err := evm.Dial(ctx, evm.ClientConfig{
			RPCURL:       cfg.EVM.RPCURL,
			ChainID:      cfg.EVM.ChainID,
			PrivateKey:   cfg.EVM.PrivateKey,
			TokenAddress: common.HexToAddress(cfg.EVM.TokenAddress),
			BondAddress:  common.HexToAddress(cfg.EVM.BondAddress),
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: evm: %w", err)
		}
		closers = append(closers, client.Close)

		ledger, err = evm.NewLedger(client, common.HexToAddress(cfg.EVM.TokenAddress))
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: evm ledger: %w", err)
		}
		registry, err = evm.NewRegistry(client, common.HexToAddress(cfg.EVM.BondAddress))
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: evm registry: %w", err)
		}

		treasury = client.Account()
		if cfg.Engine.Treasury != "" {
			treasury = common.HexToAddress(cfg.Engine.Treasury)
		}

	case "dev":
		treasury = common.HexToAddress(cfg.Engine.Treasury)
		mem := memledger.NewLedger(treasury)
		mem.Credit(treasury, devSeedBalance)
		ledger = mem
		registry = memledger.NewRegistry()

	default:
		cleanup()
		return nil, nil, fmt.Errorf("wire: unsupported mode %q", cfg.Mode)
	}

	// --- Event sinks ---
	var sinks []domain.EventSink

	if cfg.Redis.Enabled {
		bus, err := redisbus.New(ctx, redisbus.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		}, cfg.Redis.Channel, cfg.Redis.Stream)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = bus.Close() })
		sinks = append(sinks, bus)
	}

	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:           cfg.Postgres.DSN,
			Host:          cfg.Postgres.Host,
			Port:          cfg.Postgres.Port,
			Database:      cfg.Postgres.Database,
			User:          cfg.Postgres.User,
			Password:      cfg.Postgres.Password,
			SSLMode:       cfg.Postgres.SSLMode,
			MaxConns:      cfg.Postgres.PoolMaxConns,
			MinConns:      cfg.Postgres.PoolMinConns,
			RunMigrations: cfg.Postgres.RunMigrations,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		journal := postgres.NewJournal(pgClient)
		deps.Journal = journal
		sinks = append(sinks, journal)
	}

	// --- Archive exporter (journal -> object storage) ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		if err := s3Client.Health(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3 health: %w", err)
		}

		interval := cfg.Archive.Interval.Duration
		if interval <= 0 {
			interval = time.Hour
		}
		deps.Exporter = archive.NewExporter(
			deps.Journal, s3blob.NewWriter(s3Client), cfg.Archive.Prefix, interval, logger,
		)
	}

	// --- Engine ---
	mgr, err := bond.NewManager(bond.Config{
		Ledger:     ledger,
		Registry:   registry,
		Treasury:   treasury,
		MaxPerMint: cfg.Engine.MaxPerMint,
		SeedLevels: cfg.Engine.SeedLevels,
		Sink:       events.NewMultiSink(sinks...),
		Logger:     logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: manager: %w", err)
	}
	deps.Manager = mgr

	return deps, cleanup, nil
}
