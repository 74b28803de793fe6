package hook

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"firestige.xyz/pktsnap/internal/core"
	"firestige.xyz/pktsnap/internal/eventbus"
	"firestige.xyz/pktsnap/internal/introspect"
	"firestige.xyz/pktsnap/internal/metrics"
)

// Extractor produces a snapshot from a handle. It must not panic, but the
// interceptor recovers if it does.
type Extractor interface {
	Extract(h core.BufferHandle, loc introspect.Locator) core.PacketSnapshot
}

// Interceptor turns intercepted invocations into PacketSent events.
type Interceptor struct {
	source    string
	locator   introspect.Locator
	extractor Extractor
	bus       eventbus.EventBus
	installer Installer
	state     *State
	logger    *slog.Logger

	mu sync.Mutex // serializes Start/Close
}

// NewInterceptor wires an interceptor. state may be shared with other
// collaborators that need to observe or flip interception.
func NewInterceptor(source string, loc introspect.Locator, ex Extractor, bus eventbus.EventBus, inst Installer, state *State) *Interceptor {
	if state == nil {
		state = &State{}
	}
	return &Interceptor{
		source:    source,
		locator:   loc,
		extractor: ex,
		bus:       bus,
		installer: inst,
		state:     state,
		logger:    slog.Default().With("component", "interceptor", "source", source),
	}
}

// State returns the interception state.
func (i *Interceptor) State() *State {
	return i.state
}

// Start installs the hook on first use and enables interception.
func (i *Interceptor) Start() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.state.IsInstalled() {
		if i.installer == nil {
			return errors.New("interceptor has no installer")
		}
		if err := i.installer.Install(i.OnInterceptedInvocation); err != nil {
			return fmt.Errorf("install hook: %w", err)
		}
		i.state.markInstalled(true)
		i.logger.Info("hook installed")
	}
	i.state.Enable()
	return nil
}

// Stop pauses interception. The hook stays installed.
func (i *Interceptor) Stop() {
	i.state.Disable()
}

// Close pauses interception and removes the hook.
func (i *Interceptor) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.state.Disable()
	if !i.state.markInstalled(false) {
		return nil
	}
	if err := i.installer.Uninstall(); err != nil {
		return fmt.Errorf("uninstall hook: %w", err)
	}
	i.logger.Info("hook removed")
	return nil
}

// OnInterceptedInvocation is the installer callback. While intercepting it
// extracts h and publishes exactly one PacketSent; it never panics.
func (i *Interceptor) OnInterceptedInvocation(h core.BufferHandle) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("intercepted invocation panicked", "token", h.Token(), "panic", r)
		}
	}()

	if !i.state.IsIntercepting() {
		metrics.InterceptionsTotal.WithLabelValues(i.source, "paused").Inc()
		return
	}
	metrics.InterceptionsTotal.WithLabelValues(i.source, "intercepted").Inc()

	snap := i.extract(h)
	ev := &core.PacketSent{
		Source:   i.source,
		Origin:   h.Token(),
		Snapshot: snap,
	}

	if err := eventbus.PublishPacket(i.bus, ev); err != nil {
		reason := "error"
		switch {
		case errors.Is(err, core.ErrPartitionFull):
			reason = "full"
		case errors.Is(err, core.ErrBusClosed):
			reason = "closed"
		}
		metrics.PublishDropsTotal.WithLabelValues(i.source, reason).Inc()
		i.logger.Warn("dropped packet snapshot", "token", h.Token(), "length", snap.Len(), "error", err)
	}
}

// extract isolates extractor panics so a snapshot is still published.
func (i *Interceptor) extract(h core.BufferHandle) (snap core.PacketSnapshot) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("extractor panicked", "token", h.Token(), "panic", r)
			snap = core.EmptySnapshot(time.Now())
		}
	}()
	return i.extractor.Extract(h, i.locator)
}
