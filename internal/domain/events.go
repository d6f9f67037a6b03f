package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventKind names an engine event.
type EventKind string

const (
	EventLevelAdded       EventKind = "level_added"
	EventLevelChanged     EventKind = "level_changed"
	EventLevelDeactivated EventKind = "level_deactivated"
	EventLevelActivated   EventKind = "level_activated"
	EventLevelRearranged  EventKind = "level_rearranged"
	EventPositionMinted   EventKind = "position_minted"
	EventRewardsDeposited EventKind = "rewards_deposited"
	EventPositionClaimed  EventKind = "position_claimed"
	EventPositionRedeemed EventKind = "position_redeemed"
)

// Event is an engine notification consumable by observers such as indexers.
// Data is a flat JSON-marshallable map; big integers are encoded as decimal
// strings to survive JSON number limits.
type Event struct {
	ID   string         `json:"id"`
	Kind EventKind      `json:"kind"`
	At   time.Time      `json:"at"`
	Data map[string]any `json:"data"`
}

// NewEvent builds an event with a fresh uuid and the current UTC time.
func NewEvent(kind EventKind, data map[string]any) Event {
	return Event{
		ID:   uuid.Must(uuid.NewRandom()).String(),
		Kind: kind,
		At:   time.Now().UTC(),
		Data: data,
	}
}

// EventSink receives engine events. Implementations must not retain the
// Data map beyond the call.
type EventSink interface {
	Publish(ctx context.Context, ev Event) error
}

// EventJournal is a durable, ordered record of published events, used by
// indexers and the cold-storage exporter.
type EventJournal interface {
	EventSink
	List(ctx context.Context, since time.Time, limit int) ([]Event, error)
}
