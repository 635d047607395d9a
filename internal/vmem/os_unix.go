//go:build unix

package vmem

import "golang.org/x/sys/unix"

func osReserve(size uintptr) ([]byte, error) {
	// PROT_NONE keeps the range unbacked until a commit arrives.
	return unix.Mmap(-1, 0, int(size), unix.PROT_NONE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

func osCommit(seg []byte) error {
	return unix.Mprotect(seg, unix.PROT_READ|unix.PROT_WRITE)
}

func osDecommit(seg []byte) error {
	// Drop the pages first, then forbid access so stale use faults.
	if err := unix.Madvise(seg, unix.MADV_DONTNEED); err != nil {
		return err
	}
	return unix.Mprotect(seg, unix.PROT_NONE)
}

func osRelease(data []byte) error {
	return unix.Munmap(data)
}

func osVirtualSizeAlignment(pageSize uintptr) uintptr {
	return pageSize
}
