// Package events provides sink composition helpers shared by the concrete
// event backends.
package events

import (
	"context"
	"errors"

	"github.com/alanyoungcy/bondengine/internal/domain"
)

// MultiSink fans one Publish call out to several sinks. Every sink is
// attempted even when an earlier one fails; the errors are joined.
type MultiSink struct {
	sinks []domain.EventSink
}

// NewMultiSink builds a fan-out sink, dropping nil entries. It returns nil
// when no sinks remain, which callers treat as "no sink configured".
func NewMultiSink(sinks ...domain.EventSink) domain.EventSink {
	kept := make([]domain.EventSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return &MultiSink{sinks: kept}
}

// Publish delivers the event to every sink.
func (m *MultiSink) Publish(ctx context.Context, ev domain.Event) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
