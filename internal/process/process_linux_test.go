//go:build linux

package process

import (
	"os"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktsnap/internal/core"
)

func TestReadOwnMemory(t *testing.T) {
	p, err := Open(os.Getpid())
	require.NoError(t, err)
	defer p.Close()

	want := []byte("pktsnap self read")
	addr := uint64(uintptr(unsafe.Pointer(&want[0])))

	got, err := p.ReadMemory(addr, len(want))
	if err != nil {
		t.Skipf("process_vm_readv not permitted here: %v", err)
	}
	assert.Equal(t, want, got)
}

func TestReadAfterClose(t *testing.T) {
	p, err := Open(os.Getpid())
	require.NoError(t, err)
	require.NoError(t, p.Close())

	_, err = p.ReadMemory(0x1000, 4)
	assert.ErrorIs(t, err, core.ErrProcessClosed)
}

func TestOpenInvalidPID(t *testing.T) {
	_, err := Open(0)
	assert.Error(t, err)
}

func TestZeroSizeRead(t *testing.T) {
	p, err := Open(os.Getpid())
	require.NoError(t, err)

	got, err := p.ReadMemory(0, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
