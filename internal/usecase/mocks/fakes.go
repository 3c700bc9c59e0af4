package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iho/beanledger/internal/domain"
	"github.com/iho/beanledger/internal/usecase"
)

// FakeTxManager is a func-field implementation of usecase.TransactionManager.
type FakeTxManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)

	mu        sync.Mutex
	Begun     int
	Committed int
}

func NewFakeTxManager() *FakeTxManager {
	return &FakeTxManager{}
}

func (m *FakeTxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	m.Begun++
	m.mu.Unlock()
	return &FakeTransaction{onCommit: m.commit}, nil
}

func (m *FakeTxManager) commit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Committed++
}

// FakeTransaction is a func-field implementation of usecase.Transaction.
type FakeTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
	onCommit     func()
}

func (m *FakeTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	if m.onCommit != nil {
		m.onCommit()
	}
	return nil
}

func (m *FakeTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// SequenceIDGenerator returns prefix-000001, prefix-000002, ...
type SequenceIDGenerator struct {
	Prefix  string
	counter int
	mu      sync.Mutex
}

func NewSequenceIDGenerator(prefix string) *SequenceIDGenerator {
	return &SequenceIDGenerator{Prefix: prefix}
}

func (g *SequenceIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("%s-%06d", g.Prefix, g.counter)
}

// FakeOutbox records outbox events in memory.
type FakeOutbox struct {
	mu     sync.Mutex
	Events []*domain.OutboxEvent

	CreateFunc func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
}

func NewFakeOutbox() *FakeOutbox {
	return &FakeOutbox{}
}

func (o *FakeOutbox) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if o.CreateFunc != nil {
		return o.CreateFunc(ctx, tx, event)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Events = append(o.Events, event)
	return nil
}

func (o *FakeOutbox) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []*domain.OutboxEvent
	for _, e := range o.Events {
		if !e.Published && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (o *FakeOutbox) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.Events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}
	return nil
}

func (o *FakeOutbox) GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []*domain.OutboxEvent
	for _, e := range o.Events {
		if e.AggregateType == aggregateType && e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (o *FakeOutbox) DeletePublished(ctx context.Context, before time.Time) error {
	return nil
}

// EventTypes returns the recorded event types in order.
func (o *FakeOutbox) EventTypes() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.Events))
	for _, e := range o.Events {
		out = append(out, e.EventType)
	}
	return out
}

// FakeIdempotencyStore is an in-memory usecase.IdempotencyStore.
type FakeIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
	ReleaseFunc     func(ctx context.Context, key string) error
}

func NewFakeIdempotencyStore() *FakeIdempotencyStore {
	return &FakeIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *FakeIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte(usecase.IdempotencyPending)
	}
	return false, nil, nil
}

func (m *FakeIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}

func (m *FakeIdempotencyStore) Release(ctx context.Context, key string) error {
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// RecordingMetrics counts usecase.LedgerMetrics observations.
type RecordingMetrics struct {
	mu                sync.Mutex
	AccountsCreated   int
	AccountsClosed    int
	Transactions      int
	Postings          int
	Rejections        map[string]int
	Recategorizations int
	AssertionsPassed  int
	AssertionsFailed  int
}

func NewRecordingMetrics() *RecordingMetrics {
	return &RecordingMetrics{Rejections: make(map[string]int)}
}

func (r *RecordingMetrics) AccountCreated(domain.AccountType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.AccountsCreated++
}

func (r *RecordingMetrics) AccountClosed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.AccountsClosed++
}

func (r *RecordingMetrics) TransactionCreated(postings int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Transactions++
	r.Postings += postings
}

func (r *RecordingMetrics) TransactionRejected(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Rejections[reason]++
}

func (r *RecordingMetrics) PostingRecategorized() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Recategorizations++
}

func (r *RecordingMetrics) AssertionChecked(passed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if passed {
		r.AssertionsPassed++
	} else {
		r.AssertionsFailed++
	}
}
