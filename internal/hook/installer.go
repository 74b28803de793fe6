package hook

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"firestige.xyz/pktsnap/internal/core"
)

// Callback receives the first argument of each intercepted call.
type Callback func(h core.BufferHandle)

// Installer places a hook on the target call. Implementations call cb once
// per intercepted invocation, on whatever goroutine made the call.
type Installer interface {
	Install(cb Callback) error
	Uninstall() error
}

// PollingInstaller stands in for a real hook by invoking the callback with
// a fixed handle on an interval.
type PollingInstaller struct {
	handle   core.BufferHandle
	interval time.Duration
	limit    int // Stop after limit invocations; 0 means unlimited

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPollingInstaller polls handle every interval, at most limit times
// when limit is positive.
func NewPollingInstaller(handle core.BufferHandle, interval time.Duration, limit int) *PollingInstaller {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &PollingInstaller{handle: handle, interval: interval, limit: limit}
}

// Install starts polling.
func (p *PollingInstaller) Install(cb Callback) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return errors.New("polling installer already installed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(ctx, cb, p.done)
	return nil
}

// Uninstall stops polling and waits for the last callback to return.
func (p *PollingInstaller) Uninstall() error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Done is closed once polling ends, either by Uninstall or after limit
// invocations. It is nil before Install.
func (p *PollingInstaller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *PollingInstaller) run(ctx context.Context, cb Callback, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for n := 0; p.limit <= 0 || n < p.limit; n++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cb(p.handle)
		}
	}
	slog.Debug("polling installer reached invocation limit", "limit", p.limit)
}
