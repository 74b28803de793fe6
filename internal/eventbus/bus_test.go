package eventbus

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktsnap/internal/core"
)

func TestOrderPreservedPerKey(t *testing.T) {
	bus := NewInMemoryEventBus(4, 256)

	var mu sync.Mutex
	got := map[string][]int{}
	require.NoError(t, bus.Subscribe("t", func(e *Event) error {
		mu.Lock()
		got[e.Key] = append(got[e.Key], e.Payload.(int))
		mu.Unlock()
		return nil
	}))

	keys := []string{"a", "b", "c"}
	for i := 0; i < 50; i++ {
		for _, k := range keys {
			require.NoError(t, bus.Publish(&Event{Topic: "t", Key: k, Payload: i}))
		}
	}
	require.NoError(t, bus.Close())

	for _, k := range keys {
		require.Len(t, got[k], 50)
		for i, v := range got[k] {
			assert.Equal(t, i, v, "key %s out of order", k)
		}
	}
	assert.Equal(t, int64(150), bus.GetStats().ProcessedCount)
}

func TestMultipleHandlersInSubscriptionOrder(t *testing.T) {
	bus := NewInMemoryEventBus(1, 8)

	var calls []string
	require.NoError(t, bus.Subscribe("t", func(*Event) error { calls = append(calls, "first"); return nil }))
	require.NoError(t, bus.Subscribe("t", func(*Event) error { calls = append(calls, "second"); return errors.New("boom") }))
	require.NoError(t, bus.Subscribe("t", func(*Event) error { calls = append(calls, "third"); return nil }))

	require.NoError(t, bus.Publish(&Event{Topic: "t", Key: "k"}))
	require.NoError(t, bus.Close())

	assert.Equal(t, []string{"first", "second", "third"}, calls)
	stats := bus.GetStats()
	assert.Equal(t, int64(1), stats.FailedCount)
	assert.Equal(t, int64(0), stats.ProcessedCount)
}

func TestHandlerPanicIsContained(t *testing.T) {
	bus := NewInMemoryEventBus(1, 8)

	var after int
	require.NoError(t, bus.Subscribe("t", func(*Event) error { panic("bad handler") }))
	require.NoError(t, bus.Subscribe("t", func(*Event) error { after++; return nil }))

	require.NoError(t, bus.Publish(&Event{Topic: "t"}))
	require.NoError(t, bus.Publish(&Event{Topic: "t"}))
	require.NoError(t, bus.Close())

	assert.Equal(t, 2, after)
}

func TestPublishFullPartition(t *testing.T) {
	bus := NewInMemoryEventBus(1, 1)
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	require.NoError(t, bus.Subscribe("t", func(*Event) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	}))

	require.NoError(t, bus.Publish(&Event{Topic: "t"}))
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("consumer did not start")
	}
	require.NoError(t, bus.Publish(&Event{Topic: "t"}))

	err := bus.Publish(&Event{Topic: "t"})
	assert.ErrorIs(t, err, core.ErrPartitionFull)

	close(release)
	require.NoError(t, bus.Close())
}

func TestClosedBus(t *testing.T) {
	bus := NewInMemoryEventBus(2, 4)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close(), "close is idempotent")

	assert.ErrorIs(t, bus.Publish(&Event{Topic: "t"}), core.ErrBusClosed)
	assert.ErrorIs(t, bus.Subscribe("t", func(*Event) error { return nil }), core.ErrBusClosed)
}

func TestSameKeySamePartition(t *testing.T) {
	bus := NewInMemoryEventBus(8, 4)
	defer bus.Close()

	first := bus.getPartitionID("source-1")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, bus.getPartitionID("source-1"))
	}
	assert.Equal(t, 8, bus.GetStats().PartitionCount)
}

func TestPacketHelpers(t *testing.T) {
	bus := NewInMemoryEventBus(2, 16)

	var got []*core.PacketSent
	require.NoError(t, SubscribePackets(bus, func(ev *core.PacketSent) error {
		got = append(got, ev)
		return nil
	}))

	ev := &core.PacketSent{Source: "client", Origin: "h1", Snapshot: core.CopySnapshot([]byte{1}, time.Now())}
	require.NoError(t, PublishPacket(bus, ev))
	require.NoError(t, bus.Publish(&Event{Topic: TopicPacketSent, Key: "client", Payload: "wrong"}))
	require.NoError(t, bus.Close())

	require.Len(t, got, 1)
	assert.Same(t, ev, got[0])
	assert.Equal(t, int64(1), bus.GetStats().FailedCount)
}
