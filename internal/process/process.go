// Package process reads memory of another OS process.
package process

import (
	"fmt"
	"sync/atomic"

	"firestige.xyz/pktsnap/internal/core"
)

// Process is an opened foreign process. ReadMemory is safe for concurrent
// use and fails with core.ErrProcessClosed after Close.
type Process struct {
	pid    int
	closed atomic.Bool
}

// Open attaches to pid for reading.
func Open(pid int) (*Process, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("invalid pid %d", pid)
	}
	if err := probe(pid); err != nil {
		return nil, fmt.Errorf("open process %d: %w", pid, err)
	}
	return &Process{pid: pid}, nil
}

// PID returns the process id.
func (p *Process) PID() int {
	return p.pid
}

// ReadMemory reads size bytes at addr.
func (p *Process) ReadMemory(addr uint64, size int) ([]byte, error) {
	if p.closed.Load() {
		return nil, core.ErrProcessClosed
	}
	if size < 0 {
		return nil, fmt.Errorf("invalid read size %d", size)
	}
	if size == 0 {
		return []byte{}, nil
	}
	return readMemory(p.pid, addr, size)
}

// Close detaches from the process.
func (p *Process) Close() error {
	p.closed.Store(true)
	return nil
}
