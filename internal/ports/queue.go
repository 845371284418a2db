package ports

import "context"

// QueueHandler processes one delivered message payload. A non-nil error routes
// the message through the retry/dead-letter topology.
type QueueHandler func(ctx context.Context, payload []byte) error

// QueuePublisher enqueues a payload under a routing key. It returns false,
// without error, when the broker connection is not established: the message is
// not guaranteed sent and callers must not fail their own transaction over it.
type QueuePublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) bool
}

// QueueRegistrar declares a logical queue (work, retry and dead-letter
// destinations) and starts a consumer loop for it. Registration is idempotent.
type QueueRegistrar interface {
	RegisterHandler(ctx context.Context, queueName, routingKey string, handler QueueHandler) error
}
