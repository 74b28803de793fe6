//go:build linux

package process

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"firestige.xyz/pktsnap/internal/core"
)

func probe(pid int) error {
	// Signal 0 checks existence and permission without delivering anything.
	if err := unix.Kill(pid, 0); err != nil && err != unix.EPERM {
		return err
	}
	return nil
}

// readMemory uses process_vm_readv to copy remote memory into a fresh buffer.
func readMemory(pid int, addr uint64, size int) ([]byte, error) {
	buf := make([]byte, size)

	localIov := unix.Iovec{Base: &buf[0]}
	localIov.SetLen(size)

	remoteIov := unix.RemoteIovec{
		Base: uintptr(addr),
		Len:  size,
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_READV,
		uintptr(pid),
		uintptr(unsafe.Pointer(&localIov)),
		uintptr(1),
		uintptr(unsafe.Pointer(&remoteIov)),
		uintptr(1),
		uintptr(0),
	)
	if errno != 0 {
		return nil, fmt.Errorf("process_vm_readv at 0x%x: %w", addr, errno)
	}
	if int(n) != size {
		return nil, fmt.Errorf("%w: %d of %d bytes at 0x%x", core.ErrShortRead, n, size, addr)
	}
	return buf, nil
}
