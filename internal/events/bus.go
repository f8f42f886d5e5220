package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/amarastays/backend-villa/internal/store"
)

// Store is the subset of the persistence layer the bus writes through.
type Store interface {
	InsertDomainEvent(ctx context.Context, topic string, aggregateID pgtype.UUID, payload []byte) (store.DomainEvent, error)
}

// Notifier receives every published event after it has been persisted.
type Notifier interface {
	Notify(ctx context.Context, topic string, aggregateID string, payload []byte) error
}

// Bus persists domain events and fans them out to registered notifiers.
// Persistence is the source of truth; notifier failures are reported but
// never roll the event back.
type Bus struct {
	store     Store
	notifiers []Notifier
	logger    zerolog.Logger
}

func NewBus(s Store, logger zerolog.Logger, notifiers ...Notifier) *Bus {
	return &Bus{store: s, notifiers: notifiers, logger: logger}
}

// Publish stores the event and notifies all subscribers. The payload is
// marshalled to JSON; a marshalling failure aborts the publish.
func (b *Bus) Publish(ctx context.Context, topic string, aggregateID pgtype.UUID, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}

	ev, err := b.store.InsertDomainEvent(ctx, topic, aggregateID, body)
	if err != nil {
		return fmt.Errorf("persist %s event: %w", topic, err)
	}

	var notifyErrs []error
	for _, n := range b.notifiers {
		if err := n.Notify(ctx, topic, store.UUIDString(ev.AggregateID), body); err != nil {
			b.logger.Warn().Err(err).Str("topic", topic).Msg("event notifier failed")
			notifyErrs = append(notifyErrs, err)
		}
	}
	return errors.Join(notifyErrs...)
}
