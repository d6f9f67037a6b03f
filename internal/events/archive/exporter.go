// Package archive periodically exports the event journal to object storage
// for cold retention. It runs outside the accounting core; the engine itself
// has no background tasks.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/bondengine/internal/domain"
	s3blob "github.com/alanyoungcy/bondengine/internal/blob/s3"
)

// batchLimit caps how many journal rows one export object holds.
const batchLimit = 5000

// Exporter copies journal events into timestamped JSON objects.
type Exporter struct {
	journal  domain.EventJournal
	writer   *s3blob.Writer
	prefix   string
	interval time.Duration
	lastSeen time.Time
	logger   *slog.Logger
}

// NewExporter creates an Exporter that wakes every interval and writes new
// events under the given key prefix.
func NewExporter(journal domain.EventJournal, writer *s3blob.Writer, prefix string, interval time.Duration, logger *slog.Logger) *Exporter {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Exporter{
		journal:  journal,
		writer:   writer,
		prefix:   prefix,
		interval: interval,
		lastSeen: time.Now().UTC(),
		logger:   logger.With(slog.String("component", "event_exporter")),
	}
}

// Run exports on the configured interval until the context is cancelled.
func (e *Exporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := e.ExportOnce(ctx); err != nil {
				e.logger.WarnContext(ctx, "event export failed", slog.String("error", err.Error()))
			}
		}
	}
}

// ExportOnce writes all events recorded since the previous export as one
// JSON object and advances the cursor.
func (e *Exporter) ExportOnce(ctx context.Context) error {
	events, err := e.journal.List(ctx, e.lastSeen, batchLimit)
	if err != nil {
		return fmt.Errorf("archive: list events since %s: %w", e.lastSeen.Format(time.RFC3339), err)
	}
	if len(events) == 0 {
		return nil
	}

	payload, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("archive: marshal %d events: %w", len(events), err)
	}

	key := fmt.Sprintf("%s/%s.json", e.prefix, time.Now().UTC().Format("2006/01/02/150405"))
	if err := e.writer.Put(ctx, key, bytes.NewReader(payload), "application/json"); err != nil {
		return fmt.Errorf("archive: upload %s: %w", key, err)
	}

	last := events[len(events)-1].At
	// Nudge past the last row so the next List does not re-read it.
	e.lastSeen = last.Add(time.Microsecond)

	e.logger.InfoContext(ctx, "events archived",
		slog.String("key", key),
		slog.Int("count", len(events)),
	)
	return nil
}
