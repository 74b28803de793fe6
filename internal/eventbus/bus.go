// Package eventbus implements a partitioned in-memory event bus.
package eventbus

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/serialx/hashring"

	"firestige.xyz/pktsnap/internal/core"
)

// EventBus is a topic-based publish/subscribe bus.
type EventBus interface {
	Publish(event *Event) error
	Subscribe(topic string, handler Handler) error
	Close() error
	GetStats() *Stats
}

// Stats holds bus counters.
type Stats struct {
	PublishedCount int64
	ProcessedCount int64
	FailedCount    int64
	PartitionCount int
	QueuedCount    []int
}

// InMemoryEventBus routes events to partitions by consistent hash of the
// event key. Each partition is consumed by one goroutine, so events sharing
// a key are handled in publish order.
type InMemoryEventBus struct {
	partitions     []*partition
	partitionCount int
	subscribers    map[string][]Handler
	mu             sync.RWMutex // guards subscribers and closed against Publish
	closed         bool
	wg             sync.WaitGroup
	hashRing       *hashring.HashRing
	partitionNodes []string
	logger         *slog.Logger

	publishedCount atomic.Int64
	processedCount atomic.Int64
	failedCount    atomic.Int64
}

// NewInMemoryEventBus creates a bus with partitionCount partitions of
// queueSize events each.
func NewInMemoryEventBus(partitionCount, queueSize int) *InMemoryEventBus {
	if partitionCount < 1 {
		partitionCount = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	bus := &InMemoryEventBus{
		partitionCount: partitionCount,
		subscribers:    make(map[string][]Handler),
		partitions:     make([]*partition, partitionCount),
		partitionNodes: make([]string, partitionCount),
		logger:         slog.Default().With("component", "eventbus"),
	}

	for i := 0; i < partitionCount; i++ {
		bus.partitionNodes[i] = "partition-" + strconv.Itoa(i)
	}
	bus.hashRing = hashring.New(bus.partitionNodes)

	for i := 0; i < partitionCount; i++ {
		bus.partitions[i] = &partition{
			id:    i,
			queue: make(chan *Event, queueSize),
		}
		bus.wg.Add(1)
		go bus.runPartition(bus.partitions[i])
	}

	return bus
}

// Publish enqueues event without blocking. A full partition rejects the
// event with core.ErrPartitionFull.
func (b *InMemoryEventBus) Publish(event *Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return core.ErrBusClosed
	}

	partitionID := b.getPartitionID(event.Key)
	select {
	case b.partitions[partitionID].queue <- event:
		b.publishedCount.Add(1)
		return nil
	default:
		return fmt.Errorf("%w: partition %d", core.ErrPartitionFull, partitionID)
	}
}

// Subscribe adds handler to topic. Handlers of one topic run in
// subscription order.
func (b *InMemoryEventBus) Subscribe(topic string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return core.ErrBusClosed
	}

	b.subscribers[topic] = append(b.subscribers[topic], handler)
	b.logger.Debug("subscribed to topic", "topic", topic, "handlers", len(b.subscribers[topic]))
	return nil
}

// Close stops accepting events and waits until queued events are handled.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for _, p := range b.partitions {
		close(p.queue)
	}
	b.mu.Unlock()

	b.wg.Wait()
	b.logger.Debug("event bus closed",
		"published", b.publishedCount.Load(), "processed", b.processedCount.Load())
	return nil
}

// GetStats returns a snapshot of the bus counters.
func (b *InMemoryEventBus) GetStats() *Stats {
	stats := &Stats{
		PublishedCount: b.publishedCount.Load(),
		ProcessedCount: b.processedCount.Load(),
		FailedCount:    b.failedCount.Load(),
		PartitionCount: b.partitionCount,
		QueuedCount:    make([]int, b.partitionCount),
	}

	for i, p := range b.partitions {
		stats.QueuedCount[i] = len(p.queue)
	}

	return stats
}

// getPartitionID maps key to a partition through the hash ring.
func (b *InMemoryEventBus) getPartitionID(key string) int {
	node, ok := b.hashRing.GetNode(key)
	if !ok {
		return 0
	}

	for i, partitionNode := range b.partitionNodes {
		if partitionNode == node {
			return i
		}
	}
	return 0
}

func (b *InMemoryEventBus) handlers(topic string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.subscribers[topic]
}

// dispatch runs every handler of the event's topic. A failing handler does
// not stop the ones after it.
func (b *InMemoryEventBus) dispatch(p *partition, event *Event) {
	handlers := b.handlers(event.Topic)
	if len(handlers) == 0 {
		b.logger.Debug("no handler for topic", "topic", event.Topic)
		return
	}

	failed := false
	for _, h := range handlers {
		if err := b.invoke(h, event); err != nil {
			failed = true
			b.logger.Error("failed to handle event",
				"partition", p.id, "topic", event.Topic, "key", event.Key, "error", err)
		}
	}
	if failed {
		b.failedCount.Add(1)
		return
	}
	b.processedCount.Add(1)
}

func (b *InMemoryEventBus) invoke(h Handler, event *Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h(event)
}

// runPartition consumes p until its queue is closed and drained.
func (b *InMemoryEventBus) runPartition(p *partition) {
	defer b.wg.Done()

	for event := range p.queue {
		b.dispatch(p, event)
	}
}
