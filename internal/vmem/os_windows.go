//go:build windows

package vmem

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// Windows reserves address space in 64 KiB chunks.
const allocationGranularity = 64 << 10

func osReserve(size uintptr) ([]byte, error) {
	addr, err := windows.VirtualAlloc(0, size, windows.MEM_RESERVE, windows.PAGE_NOACCESS)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

func osCommit(seg []byte) error {
	_, err := windows.VirtualAlloc(uintptr(unsafe.Pointer(&seg[0])), uintptr(len(seg)),
		windows.MEM_COMMIT, windows.PAGE_READWRITE)
	return err
}

func osDecommit(seg []byte) error {
	return windows.VirtualFree(uintptr(unsafe.Pointer(&seg[0])), uintptr(len(seg)),
		windows.MEM_DECOMMIT)
}

func osRelease(data []byte) error {
	return windows.VirtualFree(uintptr(unsafe.Pointer(&data[0])), 0, windows.MEM_RELEASE)
}

func osVirtualSizeAlignment(pageSize uintptr) uintptr {
	if pageSize > allocationGranularity {
		return pageSize
	}
	return allocationGranularity
}
