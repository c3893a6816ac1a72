//go:build linux && amd64 && hwports

package ports

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// HardwareBus issues real IN/OUT instructions against legacy PC I/O ports.
// It exists for the rare case of running this kernel's drivers as a
// privileged userspace process against real hardware (e.g. under QEMU
// `-M pc` with CAP_SYS_RAWIO), and is not exercised by any test in this
// module — SimBus is. Building it requires the `hwports` tag; it is
// deliberately excluded from the default build so `go test ./...` never
// needs I/O-port privilege.
type HardwareBus struct {
	closed bool
}

// NewHardwareBus calls iopl(3) to grant the calling thread full I/O-port
// access. It must run on a goroutine locked to its OS thread (see
// runtime.LockOSThread) since iopl is a per-thread privilege in Linux.
func NewHardwareBus() (*HardwareBus, error) {
	if err := unix.Iopl(3); err != nil {
		return nil, fmt.Errorf("ports: iopl(3) failed (need CAP_SYS_RAWIO): %w", err)
	}
	return &HardwareBus{}, nil
}

// Close drops I/O-port privilege by returning to iopl(0).
func (h *HardwareBus) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return unix.Iopl(0)
}

func (h *HardwareBus) Outb(port uint16, value byte) error {
	outb(port, value)
	return nil
}

func (h *HardwareBus) Inb(port uint16) (byte, error) {
	return inb(port), nil
}
