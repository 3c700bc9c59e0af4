package memory

import (
	"context"
	"time"

	"github.com/iho/beanledger/internal/domain"
	"github.com/iho/beanledger/internal/usecase"
)

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	store *Store
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(store *Store) *OutboxRepository {
	return &OutboxRepository{store: store}
}

// Create stages an event to be published once the transaction commits.
func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	t, err := r.store.txFor(tx)
	if err != nil {
		return err
	}

	staged := cloneEvent(event)

	return t.stage(func(next *state) error {
		next.appendEvent(staged)
		return nil
	})
}

// GetUnpublished returns up to limit unpublished events in insertion order.
func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	out := make([]*domain.OutboxEvent, 0)
	r.store.read(func(st *state) {
		for _, e := range st.outbox {
			if len(out) >= limit {
				break
			}
			if !e.Published {
				out = append(out, cloneEvent(e))
			}
		}
	})

	return out, nil
}

// MarkPublished marks an event as published.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	outbox := r.store.state.outbox
	for i, e := range outbox {
		if e.ID != id {
			continue
		}
		published := cloneEvent(e)
		published.Published = true
		published.PublishedAt = &publishedAt
		outbox[i] = published
	}

	return nil
}

// GetByAggregate returns events of one aggregate in insertion order.
func (r *OutboxRepository) GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error) {
	var out []*domain.OutboxEvent
	r.store.read(func(st *state) {
		for _, e := range st.outbox {
			if e.AggregateType == aggregateType && e.AggregateID == aggregateID {
				out = append(out, cloneEvent(e))
			}
		}
	})

	return paginate(out, limit, offset), nil
}

// DeletePublished drops events published before the cutoff.
func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	kept := make([]*domain.OutboxEvent, 0, len(r.store.state.outbox))
	for _, e := range r.store.state.outbox {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, e)
	}
	r.store.state.outbox = kept

	return nil
}

func cloneEvent(e *domain.OutboxEvent) *domain.OutboxEvent {
	c := *e
	if e.Payload != nil {
		c.Payload = make(map[string]any, len(e.Payload))
		for k, v := range e.Payload {
			c.Payload[k] = v
		}
	}
	if e.PublishedAt != nil {
		t := *e.PublishedAt
		c.PublishedAt = &t
	}

	return &c
}
