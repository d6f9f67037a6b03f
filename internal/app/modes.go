package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// statusInterval is how often the engine mode logs a pool snapshot.
const statusInterval = 5 * time.Minute

// EngineMode runs the long-lived goroutines around the accounting engine: the
// archive exporter (when configured) and a periodic status log. It blocks
// until the context is cancelled.
func (a *App) EngineMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting engine mode",
		slog.Int("active_levels", len(deps.Manager.ActiveLevels())),
		slog.Bool("journal", deps.Journal != nil),
		slog.Bool("archive", deps.Exporter != nil),
	)

	g, ctx := errgroup.WithContext(ctx)

	if deps.Exporter != nil {
		g.Go(func() error {
			return deps.Exporter.Run(ctx)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(statusInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				a.logger.InfoContext(ctx, "pool status",
					slog.String("total_unweighted", deps.Manager.TotalUnweightedShares().String()),
					slog.String("total_weighted", deps.Manager.TotalWeightedShares().String()),
					slog.Int("active_levels", len(deps.Manager.ActiveLevels())),
				)
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
