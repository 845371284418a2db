package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	// DefaultConnectAttempts bounds broker dialing at startup before the bus
	// enters degraded mode.
	DefaultConnectAttempts = 5
	// DefaultConnectRetryDelay spaces out startup dial attempts.
	DefaultConnectRetryDelay = 3 * time.Second
	// DefaultMaxDeliveryAttempts is the total number of handler invocations a
	// message gets before it is parked on the dead-letter topic.
	DefaultMaxDeliveryAttempts = 5
	// DefaultRetryDelay is the fixed hold-off before a failed message is
	// redelivered from the retry topic.
	DefaultRetryDelay = 10 * time.Second

	attemptsHeader = "x-attempts"
	retrySuffix    = ".retry"
	deadSuffix     = ".dlq"
)

// Config carries broker addresses and delivery-bus tuning.
type Config struct {
	Brokers             []string
	ConnectAttempts     int
	ConnectRetryDelay   time.Duration
	MaxDeliveryAttempts int
	RetryDelay          time.Duration
}

func (c *Config) applyDefaults() {
	if c.ConnectAttempts <= 0 {
		c.ConnectAttempts = DefaultConnectAttempts
	}
	if c.ConnectRetryDelay <= 0 {
		c.ConnectRetryDelay = DefaultConnectRetryDelay
	}
	if c.MaxDeliveryAttempts <= 0 {
		c.MaxDeliveryAttempts = DefaultMaxDeliveryAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
}

// messageWriter and messageReader are the slices of the Kafka client the bus
// needs. Tests substitute in-memory fakes.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Bus is a topic-routed delivery bus over Kafka. Each routing key maps to a
// work topic plus companion retry and dead-letter topics. Failed deliveries
// circulate work -> retry -> work until the attempt budget is spent, then
// land on the dead-letter topic for inspection.
//
// When the brokers are unreachable at startup the bus comes up degraded:
// Publish reports false instead of blocking callers, and consumers are not
// started.
type Bus struct {
	cfg      Config
	writer   messageWriter
	degraded bool
	nowFn    func() time.Time

	newReader func(topic, groupID string) messageReader

	mu      sync.Mutex
	readers []messageReader
	wg      sync.WaitGroup
}

// NewBus dials the brokers with a bounded retry loop. Exhausting the attempts
// is not fatal: the bus is returned in degraded mode so the rest of the
// service can still boot.
func NewBus(ctx context.Context, cfg Config) (*Bus, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("delivery bus requires at least one broker")
	}
	cfg.applyDefaults()

	bus := &Bus{
		cfg:   cfg,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
	bus.newReader = func(topic, groupID string) messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			GroupID:  groupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
			MaxWait:  500 * time.Millisecond,
		})
	}

	if err := bus.probeBrokers(ctx); err != nil {
		slog.Default().WarnContext(ctx, "delivery bus degraded",
			"module", "queue",
			"layer", "adapter",
			"operation", "connect",
			"outcome", "degraded",
			"error", err.Error(),
			"attempts", cfg.ConnectAttempts,
		)
		bus.degraded = true
		return bus, nil
	}

	bus.writer = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		RequiredAcks: kafka.RequireAll,
		Balancer:     &kafka.Hash{},
	}
	slog.Default().InfoContext(ctx, "delivery bus connected",
		"module", "queue",
		"layer", "adapter",
		"operation", "connect",
		"outcome", "success",
		"brokers", len(cfg.Brokers),
	)
	return bus, nil
}

func (b *Bus) probeBrokers(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= b.cfg.ConnectAttempts; attempt++ {
		conn, err := kafka.DialContext(ctx, "tcp", b.cfg.Brokers[0])
		if err == nil {
			_ = conn.Close()
			return nil
		}
		lastErr = err
		slog.Default().WarnContext(ctx, "broker dial failed",
			"module", "queue",
			"layer", "adapter",
			"operation", "connect",
			"outcome", "retry",
			"attempt", attempt,
			"error", err.Error(),
		)
		if attempt == b.cfg.ConnectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.cfg.ConnectRetryDelay):
		}
	}
	return fmt.Errorf("dial broker %s: %w", b.cfg.Brokers[0], lastErr)
}

// Degraded reports whether the bus failed to reach the brokers at startup.
func (b *Bus) Degraded() bool {
	return b.degraded
}

// Publish serializes the payload and writes it to the routing key's work
// topic. The boolean result tells the caller whether the message was handed
// to the broker; a degraded bus or a broker error yields false, never an
// error, so callers can treat delivery as best-effort.
func (b *Bus) Publish(ctx context.Context, routingKey string, payload any) bool {
	if b.degraded {
		slog.Default().WarnContext(ctx, "publish skipped on degraded bus",
			"module", "queue",
			"layer", "adapter",
			"operation", "publish",
			"outcome", "degraded",
			"routing_key", routingKey,
		)
		return false
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Default().ErrorContext(ctx, "publish payload marshal failed",
			"module", "queue",
			"layer", "adapter",
			"operation", "publish",
			"outcome", "failure",
			"routing_key", routingKey,
			"error", err.Error(),
		)
		return false
	}

	err = b.writer.WriteMessages(ctx, kafka.Message{
		Topic: routingKey,
		Value: raw,
		Time:  b.nowFn(),
	})
	if err != nil {
		slog.Default().ErrorContext(ctx, "publish failed",
			"module", "queue",
			"layer", "adapter",
			"operation", "publish",
			"outcome", "failure",
			"routing_key", routingKey,
			"error", err.Error(),
		)
		return false
	}
	return true
}

// Close stops consumer loops and closes the underlying Kafka clients.
func (b *Bus) Close() error {
	b.mu.Lock()
	readers := b.readers
	b.readers = nil
	b.mu.Unlock()

	for _, r := range readers {
		_ = r.Close()
	}
	b.wg.Wait()

	if b.writer != nil {
		return b.writer.Close()
	}
	return nil
}

// ensureTopics creates the work, retry and dead-letter topics for a routing
// key. Creation is idempotent; brokers report existing topics as a no-op.
func (b *Bus) ensureTopics(ctx context.Context, routingKey string) error {
	conn, err := kafka.DialContext(ctx, "tcp", b.cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("resolve controller: %w", err)
	}
	ctrlConn, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer ctrlConn.Close()

	topics := []kafka.TopicConfig{
		{Topic: routingKey, NumPartitions: 1, ReplicationFactor: 1},
		{Topic: routingKey + retrySuffix, NumPartitions: 1, ReplicationFactor: 1},
		{Topic: routingKey + deadSuffix, NumPartitions: 1, ReplicationFactor: 1},
	}
	if err := ctrlConn.CreateTopics(topics...); err != nil {
		return fmt.Errorf("create topics for %s: %w", routingKey, err)
	}
	return nil
}

func attemptsFrom(msg kafka.Message) int {
	for _, h := range msg.Headers {
		if h.Key == attemptsHeader {
			if n, err := strconv.Atoi(string(h.Value)); err == nil {
				return n
			}
		}
	}
	return 0
}

func withAttempts(msg kafka.Message, topic string, attempts int, at time.Time) kafka.Message {
	headers := make([]kafka.Header, 0, len(msg.Headers)+1)
	for _, h := range msg.Headers {
		if h.Key == attemptsHeader {
			continue
		}
		headers = append(headers, h)
	}
	headers = append(headers, kafka.Header{
		Key:   attemptsHeader,
		Value: []byte(strconv.Itoa(attempts)),
	})
	return kafka.Message{
		Topic:   topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
		Time:    at,
	}
}
