package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/EnabledTalentV2/ETBackendV2/internal/shared/telemetry"
)

// MemoryClient is an in-process queue for dev mode. Messages are drained by
// goroutines started via Start, so jobs run inside the API process.
type MemoryClient struct {
	ch     chan Message
	closed chan struct{}
	once   sync.Once
}

// NewMemoryClient constructs an in-memory queue with the given buffer size.
func NewMemoryClient(buffer int) *MemoryClient {
	if buffer <= 0 {
		buffer = 64
	}
	return &MemoryClient{
		ch:     make(chan Message, buffer),
		closed: make(chan struct{}),
	}
}

// Send enqueues a message, blocking until there is buffer space or the
// context is done.
func (m *MemoryClient) Send(ctx context.Context, msg Message) error {
	select {
	case <-m.closed:
		return fmt.Errorf("memory queue closed")
	case <-ctx.Done():
		return ctx.Err()
	case m.ch <- msg:
		return nil
	}
}

// Start launches worker goroutines that drain the queue until the context is
// canceled. Handler errors are logged, not retried; the in-memory queue has
// no redelivery.
func (m *MemoryClient) Start(ctx context.Context, concurrency int, handle func(ctx context.Context, msg Message) error) {
	if concurrency < 1 {
		concurrency = 1
	}
	for i := 0; i < concurrency; i++ {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case msg := <-m.ch:
					if err := handle(ctx, msg); err != nil {
						telemetry.Error("queue.memory.handle_failed", map[string]any{
							"kind":      msg.Kind,
							"record_id": msg.RecordID,
							"error":     err.Error(),
						})
					}
				}
			}
		}()
	}
}

// Close stops accepting new messages.
func (m *MemoryClient) Close() {
	m.once.Do(func() { close(m.closed) })
}

var _ Client = (*MemoryClient)(nil)
