package queue

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func newTestBus(writer *fakeWriter) *Bus {
	cfg := Config{
		Brokers:             []string{"localhost:9092"},
		MaxDeliveryAttempts: 5,
		RetryDelay:          10 * time.Second,
	}
	cfg.applyDefaults()
	return &Bus{
		cfg:    cfg,
		writer: writer,
		nowFn:  func() time.Time { return time.Unix(1700000000, 0).UTC() },
	}
}

func TestPublishOnDegradedBusReturnsFalse(t *testing.T) {
	t.Parallel()

	b := newTestBus(&fakeWriter{})
	b.degraded = true

	if b.Publish(context.Background(), "orders.email", map[string]string{"k": "v"}) {
		t.Fatalf("degraded bus must report publish failure")
	}
}

func TestPublishUnserializablePayloadReturnsFalse(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{}
	b := newTestBus(writer)

	if b.Publish(context.Background(), "orders.email", func() {}) {
		t.Fatalf("unserializable payload must report publish failure")
	}
	if writer.count() != 0 {
		t.Fatalf("nothing may reach the broker on marshal failure")
	}
}

func TestPublishWritesWorkTopic(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{}
	b := newTestBus(writer)

	if !b.Publish(context.Background(), "identity.email", map[string]string{"to": "a@b.c"}) {
		t.Fatalf("publish failed")
	}
	msgs := writer.messages()
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	if msgs[0].Topic != "identity.email" {
		t.Fatalf("expected work topic, got %q", msgs[0].Topic)
	}
	if string(msgs[0].Value) != `{"to":"a@b.c"}` {
		t.Fatalf("unexpected payload %q", msgs[0].Value)
	}
}

func TestPublishBrokerErrorReturnsFalse(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{err: errors.New("broker gone")}
	b := newTestBus(writer)

	if b.Publish(context.Background(), "identity.email", map[string]string{}) {
		t.Fatalf("broker write failure must report false")
	}
}

func TestDispatchSuccessWritesNothing(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{}
	b := newTestBus(writer)

	handler := func(context.Context, []byte) error { return nil }
	if !b.dispatch(context.Background(), kafka.Message{Topic: "identity.email", Value: []byte("ok")}, "q", "identity.email", handler) {
		t.Fatalf("successful delivery must report a durable outcome")
	}

	if writer.count() != 0 {
		t.Fatalf("successful delivery must not republish, got %d writes", writer.count())
	}
}

func TestDispatchFailureParksOnRetryTopic(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{}
	b := newTestBus(writer)

	handler := func(context.Context, []byte) error { return errors.New("smtp down") }
	msg := kafka.Message{Topic: "identity.email", Value: []byte(`{"job":1}`)}
	if !b.dispatch(context.Background(), msg, "q", "identity.email", handler) {
		t.Fatalf("parked message must report a durable outcome")
	}

	msgs := writer.messages()
	if len(msgs) != 1 {
		t.Fatalf("expected one retry write, got %d", len(msgs))
	}
	parked := msgs[0]
	if parked.Topic != "identity.email.retry" {
		t.Fatalf("expected retry topic, got %q", parked.Topic)
	}
	if got := attemptsFrom(parked); got != 1 {
		t.Fatalf("expected attempt count 1, got %d", got)
	}
	if string(parked.Value) != `{"job":1}` {
		t.Fatalf("payload must survive parking, got %q", parked.Value)
	}
	if !parked.Time.Equal(b.nowFn()) {
		t.Fatalf("parked message must carry the park time")
	}
}

func TestDispatchCirculatesUntilAttemptBudgetSpent(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{}
	b := newTestBus(writer)
	handler := func(context.Context, []byte) error { return errors.New("still failing") }

	msg := kafka.Message{Topic: "identity.email", Value: []byte("x")}
	for i := 0; i < b.cfg.MaxDeliveryAttempts; i++ {
		b.dispatch(context.Background(), msg, "q", "identity.email", handler)
		written := writer.messages()
		msg = written[len(written)-1]
	}

	msgs := writer.messages()
	if len(msgs) != b.cfg.MaxDeliveryAttempts {
		t.Fatalf("expected %d writes, got %d", b.cfg.MaxDeliveryAttempts, len(msgs))
	}
	for i := 0; i < b.cfg.MaxDeliveryAttempts-1; i++ {
		if msgs[i].Topic != "identity.email.retry" {
			t.Fatalf("write %d: expected retry topic, got %q", i, msgs[i].Topic)
		}
	}
	dead := msgs[len(msgs)-1]
	if dead.Topic != "identity.email.dlq" {
		t.Fatalf("final write must hit the dead-letter topic, got %q", dead.Topic)
	}
	if got := attemptsFrom(dead); got != b.cfg.MaxDeliveryAttempts {
		t.Fatalf("dead-lettered attempt count = %d, want %d", got, b.cfg.MaxDeliveryAttempts)
	}
}

func TestDispatchDeadLettersAtBudget(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{}
	b := newTestBus(writer)
	handler := func(context.Context, []byte) error { return errors.New("nope") }

	msg := kafka.Message{
		Topic: "identity.email",
		Value: []byte("x"),
		Headers: []kafka.Header{
			{Key: attemptsHeader, Value: []byte(strconv.Itoa(b.cfg.MaxDeliveryAttempts - 1))},
		},
	}
	if !b.dispatch(context.Background(), msg, "q", "identity.email", handler) {
		t.Fatalf("dead-lettered message must report a durable outcome")
	}

	msgs := writer.messages()
	if len(msgs) != 1 || msgs[0].Topic != "identity.email.dlq" {
		t.Fatalf("expected a single dead-letter write, got %+v", msgs)
	}
}

func TestDispatchWithoutDurableOutcomeBlocksCommit(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{err: errors.New("broker gone")}
	b := newTestBus(writer)
	handler := func(context.Context, []byte) error { return errors.New("smtp down") }

	msg := kafka.Message{Topic: "identity.email", Value: []byte("x")}
	if b.dispatch(context.Background(), msg, "q", "identity.email", handler) {
		t.Fatalf("failed retry republish must not report a durable outcome")
	}

	// Same at the attempt budget: a failed dead-letter write keeps the
	// message uncommitted for redelivery.
	msg.Headers = []kafka.Header{
		{Key: attemptsHeader, Value: []byte(strconv.Itoa(b.cfg.MaxDeliveryAttempts - 1))},
	}
	if b.dispatch(context.Background(), msg, "q", "identity.email", handler) {
		t.Fatalf("failed dead-letter republish must not report a durable outcome")
	}
}

func TestAttemptsHeaderRoundTrip(t *testing.T) {
	t.Parallel()

	msg := kafka.Message{
		Headers: []kafka.Header{
			{Key: "trace-id", Value: []byte("abc")},
			{Key: attemptsHeader, Value: []byte("2")},
		},
	}
	if got := attemptsFrom(msg); got != 2 {
		t.Fatalf("attemptsFrom = %d, want 2", got)
	}

	next := withAttempts(msg, "t.retry", 3, time.Unix(0, 0))
	if got := attemptsFrom(next); got != 3 {
		t.Fatalf("attempt header not replaced, got %d", got)
	}
	var traceKept bool
	var attemptHeaders int
	for _, h := range next.Headers {
		if h.Key == "trace-id" {
			traceKept = true
		}
		if h.Key == attemptsHeader {
			attemptHeaders++
		}
	}
	if !traceKept || attemptHeaders != 1 {
		t.Fatalf("foreign headers must survive and the attempt header must be unique: %+v", next.Headers)
	}

	if got := attemptsFrom(kafka.Message{}); got != 0 {
		t.Fatalf("missing header must read as zero attempts, got %d", got)
	}
}

func TestHoldForRetryDelay(t *testing.T) {
	t.Parallel()

	b := newTestBus(&fakeWriter{})

	// Parked long ago: no wait.
	if !b.holdForRetryDelay(context.Background(), b.nowFn().Add(-time.Minute)) {
		t.Fatalf("elapsed delay must release immediately")
	}

	// Canceled context interrupts the hold.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if b.holdForRetryDelay(ctx, b.nowFn()) {
		t.Fatalf("canceled context must abort the hold")
	}
}

func TestConsumeLoopStopsOnClosedReader(t *testing.T) {
	t.Parallel()

	b := newTestBus(&fakeWriter{})
	reader := &fakeReader{}

	done := make(chan struct{})
	b.wg.Add(1)
	go func() {
		b.consumeLoop(context.Background(), reader, "q", "identity.email", func(context.Context, []byte) error { return nil }, false)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("consume loop did not stop on reader EOF")
	}
}

func TestConsumeLoopDeliversMessages(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{}
	b := newTestBus(writer)
	reader := &fakeReader{queue: []kafka.Message{
		{Topic: "identity.email", Value: []byte("a")},
		{Topic: "identity.email", Value: []byte("b")},
	}}

	var mu sync.Mutex
	var seen []string
	handler := func(_ context.Context, payload []byte) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, string(payload))
		return nil
	}

	b.wg.Add(1)
	b.consumeLoop(context.Background(), reader, "q", "identity.email", handler, false)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != "a" || seen[1] != "b" {
		t.Fatalf("expected both payloads delivered in order, got %v", seen)
	}
	if writer.count() != 0 {
		t.Fatalf("successful deliveries must not republish")
	}
	if got := reader.commits(); len(got) != 2 {
		t.Fatalf("expected both offsets committed after handling, got %d", len(got))
	}
}

func TestConsumeLoopHoldsOffsetWhenNothingDurable(t *testing.T) {
	t.Parallel()

	// Handler and republish both fail: the offset must stay uncommitted so
	// the broker redelivers instead of dropping the message.
	writer := &fakeWriter{err: errors.New("broker gone")}
	b := newTestBus(writer)
	reader := &fakeReader{queue: []kafka.Message{
		{Topic: "identity.email", Value: []byte("undeliverable")},
	}}
	handler := func(context.Context, []byte) error { return errors.New("smtp down") }

	b.wg.Add(1)
	b.consumeLoop(context.Background(), reader, "q", "identity.email", handler, false)

	if got := reader.commits(); len(got) != 0 {
		t.Fatalf("offset must not be committed without a durable outcome, got %d commits", len(got))
	}
}

func TestConsumeLoopCommitsAfterParking(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{}
	b := newTestBus(writer)
	reader := &fakeReader{queue: []kafka.Message{
		{Topic: "identity.email", Value: []byte("flaky")},
	}}
	handler := func(context.Context, []byte) error { return errors.New("smtp down") }

	b.wg.Add(1)
	b.consumeLoop(context.Background(), reader, "q", "identity.email", handler, false)

	if writer.count() != 1 {
		t.Fatalf("expected the message parked on retry, got %d writes", writer.count())
	}
	if got := reader.commits(); len(got) != 1 {
		t.Fatalf("offset must be committed once the retry write landed, got %d commits", len(got))
	}
}

// --- fakes ---

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func (f *fakeWriter) messages() []kafka.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]kafka.Message, len(f.msgs))
	copy(out, f.msgs)
	return out
}

func (f *fakeWriter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

// fakeReader serves its queue in order, then reports EOF like a closed Kafka
// reader. Committed offsets are recorded for assertions.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
}

func (f *fakeReader) FetchMessage(context.Context) (kafka.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := f.queue[0]
	f.queue = f.queue[1:]
	return msg, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) commits() []kafka.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]kafka.Message, len(f.committed))
	copy(out, f.committed)
	return out
}

func (f *fakeReader) Close() error { return nil }
