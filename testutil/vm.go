package testutil

import (
	"fmt"
	"unsafe"
)

// VMCall records one commit or decommit issued against a RecordingVM.
type VMCall struct {
	Op     string // "commit" or "decommit"
	Offset uintptr
	Size   uintptr
}

// RecordingVM is an in-process stand-in for a reserved virtual range. The
// backing memory is an ordinary heap buffer and commit/decommit only
// bookkeep, so pool tests can assert call ordering and page granularity
// deterministically, without touching the real pager.
//
// Decommit zeroes the range, mimicking the fresh-zero contents a real
// decommit/recommit cycle produces.
type RecordingVM struct {
	mem   []byte
	align uintptr

	// Calls lists every Commit and Decommit in order.
	Calls []VMCall

	// CommitErr, when set, is returned by the next Commit calls.
	CommitErr error
}

// NewRecordingVM creates a fake reservation of the given size with the
// given commit alignment. The start address is 16-byte aligned.
func NewRecordingVM(size, commitAlign uintptr) *RecordingVM {
	raw := make([]byte, size+16)

	off := uintptr(0)
	if rem := uintptr(unsafe.Pointer(&raw[0])) % 16; rem != 0 {
		off = 16 - rem
	}

	return &RecordingVM{
		mem:   raw[off : off+size : off+size],
		align: commitAlign,
	}
}

// Start returns the first address of the fake reservation.
func (m *RecordingVM) Start() unsafe.Pointer {
	return unsafe.Pointer(&m.mem[0])
}

// Size returns the fake reservation's length in bytes.
func (m *RecordingVM) Size() uintptr {
	return uintptr(len(m.mem))
}

// CommitAlignment returns the configured commit granularity.
func (m *RecordingVM) CommitAlignment() uintptr {
	return m.align
}

// VirtualSizeAlignment returns the configured commit granularity; the fake
// makes no distinction.
func (m *RecordingVM) VirtualSizeAlignment() uintptr {
	return m.align
}

// Commit records the call, or fails with CommitErr when one is set.
func (m *RecordingVM) Commit(offset, size uintptr) error {
	if m.CommitErr != nil {
		return m.CommitErr
	}

	if err := m.check(offset, size); err != nil {
		return err
	}

	m.Calls = append(m.Calls, VMCall{Op: "commit", Offset: offset, Size: size})
	return nil
}

// Decommit records the call and zeroes the range.
func (m *RecordingVM) Decommit(offset, size uintptr) error {
	if err := m.check(offset, size); err != nil {
		return err
	}

	clear(m.mem[offset : offset+size])

	m.Calls = append(m.Calls, VMCall{Op: "decommit", Offset: offset, Size: size})
	return nil
}

func (m *RecordingVM) check(offset, size uintptr) error {
	if offset%m.align != 0 || size%m.align != 0 {
		return fmt.Errorf("range [%d, %d) not aligned to %d", offset, offset+size, m.align)
	}
	if offset+size > m.Size() {
		return fmt.Errorf("range [%d, %d) outside reservation of %d bytes", offset, offset+size, m.Size())
	}
	return nil
}

// ResetCalls discards the recorded call history.
func (m *RecordingVM) ResetCalls() {
	m.Calls = nil
}

// CallsOf returns the recorded calls matching op, in order.
func (m *RecordingVM) CallsOf(op string) []VMCall {
	var out []VMCall
	for _, c := range m.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}
