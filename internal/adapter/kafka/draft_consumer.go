// Package kafka ingests transaction drafts from a Kafka topic.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/iho/beanledger/internal/domain"
	"github.com/iho/beanledger/internal/usecase"
)

// TransactionCreator records balanced transactions.
type TransactionCreator interface {
	CreateTransaction(ctx context.Context, input usecase.CreateTransactionInput) (*domain.Transaction, error)
}

// Observer is told the outcome of every consumed draft.
type Observer interface {
	DraftConsumed(outcome string)
}

type nopObserver struct{}

func (nopObserver) DraftConsumed(string) {}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig configures a DraftConsumer.
type ConsumerConfig struct {
	Brokers         []string
	Topic           string
	GroupID         string
	DeadLetterTopic string
}

// DraftConsumer reads transaction drafts and records them through the ledger.
// Drafts the ledger rejects are committed (and copied to the dead-letter topic
// when one is configured); storage failures are retried until they succeed or
// the context ends, so no draft is silently dropped.
type DraftConsumer struct {
	reader      messageReader
	deadLetters messageWriter
	ledger      TransactionCreator
	accounts    AccountLookup
	retrier     usecase.Retrier
	idempotency usecase.IdempotencyStore
	observer    Observer
	logger      zerolog.Logger
	newBackOff  func() backoff.BackOff
}

// NewDraftConsumer creates a consumer-group reader for cfg.Topic.
func NewDraftConsumer(
	cfg ConsumerConfig,
	ledger TransactionCreator,
	accounts AccountLookup,
	retrier usecase.Retrier,
	logger zerolog.Logger,
) *DraftConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	var deadLetters messageWriter
	if cfg.DeadLetterTopic != "" {
		deadLetters = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.DeadLetterTopic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		}
	}

	return newDraftConsumer(reader, deadLetters, ledger, accounts, retrier, logger)
}

func newDraftConsumer(
	reader messageReader,
	deadLetters messageWriter,
	ledger TransactionCreator,
	accounts AccountLookup,
	retrier usecase.Retrier,
	logger zerolog.Logger,
) *DraftConsumer {
	return &DraftConsumer{
		reader:      reader,
		deadLetters: deadLetters,
		ledger:      ledger,
		accounts:    accounts,
		retrier:     retrier,
		observer:    nopObserver{},
		logger:      logger.With().Str("component", "draft_consumer").Logger(),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// WithIdempotency deduplicates redelivered drafts by message key.
func (c *DraftConsumer) WithIdempotency(store usecase.IdempotencyStore) *DraftConsumer {
	c.idempotency = store
	return c
}

// WithObserver reports draft outcomes to o.
func (c *DraftConsumer) WithObserver(o Observer) *DraftConsumer {
	c.observer = o
	return c
}

// Run consumes until ctx is cancelled.
func (c *DraftConsumer) Run(ctx context.Context) error {
	c.logger.Info().Msg("draft consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info().Msg("draft consumer shutting down")
				return ctx.Err()
			}
			return fmt.Errorf("fetch draft: %w", err)
		}

		if err := c.process(ctx, msg); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("commit draft offset: %w", err)
		}
	}
}

// Close closes the reader and the dead-letter writer.
func (c *DraftConsumer) Close() error {
	err := c.reader.Close()
	if c.deadLetters != nil {
		err = errors.Join(err, c.deadLetters.Close())
	}
	return err
}

// process handles one message. It returns an error only when ctx ends
// before the draft could be stored.
func (c *DraftConsumer) process(ctx context.Context, msg kafka.Message) error {
	log := c.logger.With().
		Int("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Logger()

	key := c.idempotencyKey(msg)
	if key != "" {
		exists, _, err := c.idempotency.CheckAndSet(ctx, key, nil, usecase.IdempotencyKeyTTL)
		if err != nil {
			log.Warn().Err(err).Msg("idempotency check failed, processing anyway")
			key = ""
		} else if exists {
			log.Info().Msg("duplicate draft skipped")
			c.observer.DraftConsumed("duplicate")
			return nil
		}
	}

	var txn *domain.Transaction
	operation := func() error {
		var err error
		txn, err = c.record(ctx, msg)
		if err != nil && !errors.Is(err, domain.ErrStorage) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(c.newBackOff(), ctx), func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("wait", wait).Msg("storing draft failed, will retry")
	})

	switch {
	case err == nil:
		log.Info().Str("transaction_id", txn.ID).Msg("draft recorded")
		c.finish(ctx, key, []byte(txn.ID))
		c.observer.DraftConsumed("recorded")
		return nil
	case ctx.Err() != nil:
		c.release(key)
		return ctx.Err()
	default:
		log.Warn().Err(err).Msg("draft rejected")
		c.deadLetter(ctx, msg, err)
		c.finish(ctx, key, []byte("rejected"))
		c.observer.DraftConsumed("rejected")
		return nil
	}
}

func (c *DraftConsumer) record(ctx context.Context, msg kafka.Message) (*domain.Transaction, error) {
	draft, err := decodeDraft(msg.Value)
	if err != nil {
		return nil, err
	}

	input, err := draft.toInput(ctx, c.accounts)
	if err != nil {
		return nil, err
	}

	var txn *domain.Transaction
	err = c.retrier.Retry(ctx, func() error {
		var err error
		txn, err = c.ledger.CreateTransaction(ctx, input)
		return err
	})

	return txn, err
}

func (c *DraftConsumer) idempotencyKey(msg kafka.Message) string {
	if c.idempotency == nil || len(msg.Key) == 0 {
		return ""
	}
	return "draft:" + msg.Topic + ":" + string(msg.Key)
}

func (c *DraftConsumer) finish(ctx context.Context, key string, result []byte) {
	if key == "" {
		return
	}
	if err := c.idempotency.Update(ctx, key, result, usecase.IdempotencyKeyTTL); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to store draft result")
	}
}

func (c *DraftConsumer) release(key string) {
	if key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.idempotency.Release(ctx, key); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to release draft key")
	}
}

func (c *DraftConsumer) deadLetter(ctx context.Context, msg kafka.Message, reason error) {
	if c.deadLetters == nil {
		return
	}

	err := c.deadLetters.WriteMessages(ctx, kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(msg.Headers,
			kafka.Header{Key: "rejection", Value: []byte(reason.Error())},
			kafka.Header{Key: "source_topic", Value: []byte(msg.Topic)},
		),
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to write dead letter")
	}
}
