package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// DomainEvent mirrors a row of the domain_events table.
type DomainEvent struct {
	ID          pgtype.UUID
	Topic       string
	AggregateID pgtype.UUID
	Payload     []byte
	OccurredAt  pgtype.Timestamptz
}

// InsertDomainEvent persists an emitted event and returns the stored row.
func (s *Store) InsertDomainEvent(ctx context.Context, topic string, aggregateID pgtype.UUID, payload []byte) (DomainEvent, error) {
	var ev DomainEvent
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO domain_events (topic, aggregate_id, payload)
		VALUES ($1, $2, $3)
		RETURNING id, topic, aggregate_id, payload, occurred_at`,
		topic, aggregateID, payload).
		Scan(&ev.ID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt)
	return ev, err
}
