package hook

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktsnap/internal/core"
	"firestige.xyz/pktsnap/internal/eventbus"
	"firestige.xyz/pktsnap/internal/introspect"
	"firestige.xyz/pktsnap/internal/introspect/reflectmodel"
)

type buffer struct {
	data []byte
	pos  int
}

var testLocator = introspect.Locator{StorageField: "data", CursorField: "pos", ScaleFactor: 1}

// recordingBus captures published events synchronously.
type recordingBus struct {
	mu     sync.Mutex
	events []*eventbus.Event
	err    error
}

func (b *recordingBus) Publish(e *eventbus.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.events = append(b.events, e)
	return nil
}

func (b *recordingBus) Subscribe(string, eventbus.Handler) error { return nil }

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) GetStats() *eventbus.Stats { return &eventbus.Stats{} }

func (b *recordingBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// manualInstaller lets tests fire the callback directly.
type manualInstaller struct {
	cb         Callback
	installs   int
	uninstalls int
	installErr error
}

func (m *manualInstaller) Install(cb Callback) error {
	if m.installErr != nil {
		return m.installErr
	}
	m.installs++
	m.cb = cb
	return nil
}

func (m *manualInstaller) Uninstall() error {
	m.uninstalls++
	m.cb = nil
	return nil
}

type panicExtractor struct{}

func (panicExtractor) Extract(core.BufferHandle, introspect.Locator) core.PacketSnapshot {
	panic("extractor exploded")
}

func newTestInterceptor(ex Extractor, bus eventbus.EventBus, inst Installer) *Interceptor {
	return NewInterceptor("client", testLocator, ex, bus, inst, nil)
}

func TestPublishesOncePerInvocation(t *testing.T) {
	bus := &recordingBus{}
	inst := &manualInstaller{}
	ic := newTestInterceptor(introspect.NewExtractor(reflectmodel.New()), bus, inst)
	require.NoError(t, ic.Start())

	b := &buffer{data: []byte{1, 2, 3, 4}, pos: 2}
	inst.cb(reflectmodel.Handle(b, "b1"))
	inst.cb(reflectmodel.Handle(b, "b1"))
	inst.cb(core.BufferHandle{})

	require.Equal(t, 3, bus.count())
	first := bus.events[0]
	assert.Equal(t, eventbus.TopicPacketSent, first.Topic)
	assert.Equal(t, "client", first.Key)

	ev := first.Payload.(*core.PacketSent)
	assert.Equal(t, core.HandleToken("b1"), ev.Origin)
	assert.Equal(t, "client", ev.Source)
	assert.Equal(t, []byte{1, 2}, ev.Snapshot.Bytes())

	assert.True(t, bus.events[2].Payload.(*core.PacketSent).Snapshot.IsEmpty())
}

func TestPausedPublishesNothing(t *testing.T) {
	bus := &recordingBus{}
	inst := &manualInstaller{}
	ic := newTestInterceptor(introspect.NewExtractor(reflectmodel.New()), bus, inst)
	require.NoError(t, ic.Start())

	ic.Stop()
	assert.True(t, ic.State().IsInstalled())
	assert.False(t, ic.State().IsIntercepting())
	inst.cb(reflectmodel.Handle(&buffer{data: []byte{1}, pos: 1}, "b"))
	assert.Equal(t, 0, bus.count())

	require.NoError(t, ic.Start())
	assert.Equal(t, 1, inst.installs, "restart does not reinstall")
	inst.cb(reflectmodel.Handle(&buffer{data: []byte{1}, pos: 1}, "b"))
	assert.Equal(t, 1, bus.count())
}

func TestNeverPanicsAcrossBoundary(t *testing.T) {
	bus := &recordingBus{}
	ic := newTestInterceptor(panicExtractor{}, bus, &manualInstaller{})
	require.NoError(t, ic.Start())

	assert.NotPanics(t, func() {
		ic.OnInterceptedInvocation(reflectmodel.Handle(&buffer{}, "p"))
	})
	require.Equal(t, 1, bus.count(), "a failed extraction still publishes an empty snapshot")
	assert.True(t, bus.events[0].Payload.(*core.PacketSent).Snapshot.IsEmpty())
}

func TestPublishFailureIsContained(t *testing.T) {
	bus := &recordingBus{err: core.ErrPartitionFull}
	ic := newTestInterceptor(introspect.NewExtractor(reflectmodel.New()), bus, &manualInstaller{})
	require.NoError(t, ic.Start())

	assert.NotPanics(t, func() {
		ic.OnInterceptedInvocation(reflectmodel.Handle(&buffer{data: []byte{1}, pos: 1}, "b"))
	})
}

func TestInstallFailure(t *testing.T) {
	inst := &manualInstaller{installErr: errors.New("target not found")}
	ic := newTestInterceptor(introspect.NewExtractor(reflectmodel.New()), &recordingBus{}, inst)

	err := ic.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target not found")
	assert.False(t, ic.State().IsInstalled())
	assert.False(t, ic.State().IsIntercepting())
}

func TestCloseUninstallsOnce(t *testing.T) {
	inst := &manualInstaller{}
	ic := newTestInterceptor(introspect.NewExtractor(reflectmodel.New()), &recordingBus{}, inst)
	require.NoError(t, ic.Start())

	require.NoError(t, ic.Close())
	require.NoError(t, ic.Close())
	assert.Equal(t, 1, inst.uninstalls)
	assert.False(t, ic.State().IsInstalled())
}

func TestSharedState(t *testing.T) {
	state := &State{}
	bus := &recordingBus{}
	inst := &manualInstaller{}
	ic := NewInterceptor("client", testLocator, introspect.NewExtractor(reflectmodel.New()), bus, inst, state)
	require.NoError(t, ic.Start())

	state.Disable()
	inst.cb(reflectmodel.Handle(&buffer{data: []byte{1}, pos: 1}, "b"))
	assert.Equal(t, 0, bus.count())
}

func TestPollingInstallerLimit(t *testing.T) {
	var calls atomic.Int32
	h := core.NewBufferHandle("ref", "poll")
	p := NewPollingInstaller(h, time.Millisecond, 3)

	require.NoError(t, p.Install(func(got core.BufferHandle) {
		assert.Equal(t, core.HandleToken("poll"), got.Token())
		calls.Add(1)
	}))
	assert.Error(t, p.Install(func(core.BufferHandle) {}), "double install")

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("polling did not stop after limit")
	}
	assert.Equal(t, int32(3), calls.Load())
	require.NoError(t, p.Uninstall())
	require.NoError(t, p.Uninstall())
}

func TestPollingInstallerUninstallStops(t *testing.T) {
	var calls atomic.Int32
	p := NewPollingInstaller(core.NewBufferHandle("ref", "poll"), time.Millisecond, 0)
	require.NoError(t, p.Install(func(core.BufferHandle) { calls.Add(1) }))

	require.Eventually(t, func() bool { return calls.Load() > 0 }, 2*time.Second, time.Millisecond)
	require.NoError(t, p.Uninstall())

	stopped := calls.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())
}

func TestPollingEndToEnd(t *testing.T) {
	bus := eventbus.NewInMemoryEventBus(2, 64)

	var mu sync.Mutex
	var got []*core.PacketSent
	require.NoError(t, eventbus.SubscribePackets(bus, func(ev *core.PacketSent) error {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
		return nil
	}))

	b := &buffer{data: []byte{0xAA, 0xBB, 0xCC}, pos: 3}
	inst := NewPollingInstaller(reflectmodel.Handle(b, "b"), time.Millisecond, 5)
	ic := newTestInterceptor(introspect.NewExtractor(reflectmodel.New()), bus, inst)
	require.NoError(t, ic.Start())

	<-inst.Done()
	require.NoError(t, ic.Close())
	require.NoError(t, bus.Close())

	require.Len(t, got, 5)
	for _, ev := range got {
		assert.Equal(t, []byte{0xAA, 0xBB, 0xCC}, ev.Snapshot.Bytes())
	}
}
