package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/studentmarketplace/identity-service/internal/ports"
)

// RegisterHandler binds a handler to a routing key. It provisions the work,
// retry and dead-letter topics, then starts one consumer loop on the work
// topic and one on the retry topic. The retry loop holds each message until
// the fixed redelivery delay has elapsed, so failures are retried with
// spacing rather than in a hot loop.
func (b *Bus) RegisterHandler(ctx context.Context, queueName, routingKey string, handler ports.QueueHandler) error {
	if b.degraded {
		slog.Default().WarnContext(ctx, "handler registration skipped on degraded bus",
			"module", "queue",
			"layer", "adapter",
			"operation", "register_handler",
			"outcome", "degraded",
			"queue", queueName,
			"routing_key", routingKey,
		)
		return nil
	}
	if err := b.ensureTopics(ctx, routingKey); err != nil {
		return err
	}

	work := b.newReader(routingKey, queueName)
	retry := b.newReader(routingKey+retrySuffix, queueName+retrySuffix)

	b.mu.Lock()
	b.readers = append(b.readers, work, retry)
	b.mu.Unlock()

	b.wg.Add(2)
	go b.consumeLoop(ctx, work, queueName, routingKey, handler, false)
	go b.consumeLoop(ctx, retry, queueName, routingKey, handler, true)

	slog.Default().InfoContext(ctx, "handler registered",
		"module", "queue",
		"layer", "adapter",
		"operation", "register_handler",
		"outcome", "success",
		"queue", queueName,
		"routing_key", routingKey,
	)
	return nil
}

func (b *Bus) consumeLoop(ctx context.Context, reader messageReader, queueName, routingKey string, handler ports.QueueHandler, delayed bool) {
	defer b.wg.Done()
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return
			}
			slog.Default().ErrorContext(ctx, "read message failed",
				"module", "queue",
				"layer", "adapter",
				"operation", "consume",
				"outcome", "failure",
				"queue", queueName,
				"routing_key", routingKey,
				"error", err.Error(),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if delayed {
			if !b.holdForRetryDelay(ctx, msg.Time) {
				return
			}
		}

		// The offset is committed only once the message has a durable home:
		// the handler succeeded, or it was republished to the retry or
		// dead-letter topic. A crash or republish failure before that point
		// leaves the offset uncommitted so the broker redelivers.
		if !b.dispatch(ctx, msg, queueName, routingKey, handler) {
			continue
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			slog.Default().ErrorContext(ctx, "offset commit failed",
				"module", "queue",
				"layer", "adapter",
				"operation", "consume",
				"outcome", "failure",
				"queue", queueName,
				"routing_key", routingKey,
				"error", err.Error(),
			)
		}
	}
}

// holdForRetryDelay waits out the remainder of the fixed redelivery delay,
// measured from when the message was parked on the retry topic. Returns false
// only when the context is canceled.
func (b *Bus) holdForRetryDelay(ctx context.Context, parkedAt time.Time) bool {
	remaining := b.cfg.RetryDelay - b.nowFn().Sub(parkedAt)
	if remaining <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(remaining):
		return true
	}
}

// dispatch runs the handler and routes failures into the retry/dead-letter
// topology. The return value reports whether the message reached a durable
// outcome and its offset may be committed.
func (b *Bus) dispatch(ctx context.Context, msg kafka.Message, queueName, routingKey string, handler ports.QueueHandler) bool {
	err := handler(ctx, msg.Value)
	if err == nil {
		return true
	}

	attempts := attemptsFrom(msg) + 1
	if attempts >= b.cfg.MaxDeliveryAttempts {
		return b.deadLetter(ctx, msg, queueName, routingKey, attempts, err)
	}

	retryMsg := withAttempts(msg, routingKey+retrySuffix, attempts, b.nowFn())
	if writeErr := b.writer.WriteMessages(ctx, retryMsg); writeErr != nil {
		slog.Default().ErrorContext(ctx, "retry enqueue failed",
			"module", "queue",
			"layer", "adapter",
			"operation", "retry",
			"outcome", "failure",
			"queue", queueName,
			"routing_key", routingKey,
			"attempt", attempts,
			"error", writeErr.Error(),
		)
		return false
	}
	slog.Default().WarnContext(ctx, "delivery failed, message parked for retry",
		"module", "queue",
		"layer", "adapter",
		"operation", "retry",
		"outcome", "retry",
		"queue", queueName,
		"routing_key", routingKey,
		"attempt", attempts,
		"error", err.Error(),
	)
	return true
}

// deadLetter moves a message that exhausted its attempt budget onto the
// dead-letter topic with its payload and headers intact. Returns whether the
// dead-letter write landed; a false result keeps the offset uncommitted.
func (b *Bus) deadLetter(ctx context.Context, msg kafka.Message, queueName, routingKey string, attempts int, cause error) bool {
	deadMsg := withAttempts(msg, routingKey+deadSuffix, attempts, b.nowFn())
	if writeErr := b.writer.WriteMessages(ctx, deadMsg); writeErr != nil {
		slog.Default().ErrorContext(ctx, "dead-letter enqueue failed",
			"module", "queue",
			"layer", "adapter",
			"operation", "dead_letter",
			"outcome", "failure",
			"queue", queueName,
			"routing_key", routingKey,
			"attempt", attempts,
			"error", writeErr.Error(),
		)
		return false
	}
	slog.Default().ErrorContext(ctx, "message dead-lettered",
		"module", "queue",
		"layer", "adapter",
		"operation", "dead_letter",
		"outcome", "dead_lettered",
		"queue", queueName,
		"routing_key", routingKey,
		"attempt", attempts,
		"error", cause.Error(),
	)
	return true
}
