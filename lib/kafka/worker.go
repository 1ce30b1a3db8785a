package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Handler processes one decoded message. A nil return acknowledges it.
type Handler[T any] func(ctx context.Context, msg T) error

// ErrBatchRetry reports that a batch contained failures and the reader was
// reset so the unacknowledged messages get redelivered.
var ErrBatchRetry = errors.New("kafka: batch contained failures")

// BatchWorker consumes a topic in bounded batches. Successfully handled
// messages are acknowledged by committing the contiguous successful prefix of
// each partition; when any message in a batch fails the worker resets its
// reader to the last committed offset after a backoff, so only still-pending
// messages come back. This narrows at-least-once delivery to effectively-once
// per message, provided handlers are idempotent.
type BatchWorker[T any] struct {
	cfg       *Config
	topic     string
	batchSize int
	maxWait   time.Duration
	backoff   time.Duration
	handle    Handler[T]
}

// NewBatchWorker returns a worker for topic dispatching to handler.
func NewBatchWorker[T any](cfg *Config, topic string, batchSize int, handler Handler[T]) *BatchWorker[T] {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &BatchWorker[T]{
		cfg:       cfg,
		topic:     topic,
		batchSize: batchSize,
		maxWait:   500 * time.Millisecond,
		backoff:   5 * time.Second,
		handle:    handler,
	}
}

// Run consumes until ctx is cancelled.
func (w *BatchWorker[T]) Run(ctx context.Context) error {
	for {
		err := w.consume(ctx)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return ctx.Err()
		case errors.Is(err, ErrBatchRetry):
			logrus.WithField("topic", w.topic).Warn("Batch failed, redelivering pending messages")
		case err != nil:
			logrus.WithError(err).WithField("topic", w.topic).Error("Consumer error, restarting")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.backoff):
		}
	}
}

// consume runs one reader session. It returns ErrBatchRetry as soon as a
// batch has failures; closing the reader rewinds to the committed offsets.
func (w *BatchWorker[T]) consume(ctx context.Context) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  w.cfg.Brokers,
		GroupID:  w.cfg.GroupID,
		Topic:    w.topic,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	for {
		batch, err := w.fetch(ctx, reader)
		if err != nil {
			return err
		}

		failed := 0
		blocked := map[int]bool{}
		var acked []kafka.Message

		for _, m := range batch {
			if err := w.dispatch(ctx, m); err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{
					"topic":     m.Topic,
					"partition": m.Partition,
					"offset":    m.Offset,
				}).Error("Message processing failed")
				failed++
				blocked[m.Partition] = true
				continue
			}
			// Offsets commit in order: a success behind a failure on the same
			// partition stays pending and is reprocessed idempotently.
			if !blocked[m.Partition] {
				acked = append(acked, m)
			}
		}

		if len(acked) > 0 {
			if err := reader.CommitMessages(ctx, acked...); err != nil {
				return err
			}
		}
		if failed > 0 {
			return ErrBatchRetry
		}
	}
}

func (w *BatchWorker[T]) dispatch(ctx context.Context, m kafka.Message) error {
	var value T
	if err := json.Unmarshal(m.Value, &value); err != nil {
		return err
	}
	return w.handle(ctx, value)
}

// fetch blocks for the first message, then drains up to batchSize with a
// short wait per message.
func (w *BatchWorker[T]) fetch(ctx context.Context, reader *kafka.Reader) ([]kafka.Message, error) {
	first, err := reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}

	batch := []kafka.Message{first}
	for len(batch) < w.batchSize {
		waitCtx, cancel := context.WithTimeout(ctx, w.maxWait)
		m, err := reader.FetchMessage(waitCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			break
		}
		batch = append(batch, m)
	}
	return batch, nil
}
