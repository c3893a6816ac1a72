// Package input models the PS/2 keyboard path internal/x86/keyboard drives:
// a single data port, an output FIFO the keyboard pushes scancodes and
// command responses into, and an IRQ1 pulse on every byte queued. Real
// i8042 controllers also arbitrate a second AUX (mouse) port, a command
// port at 0x64 for controller-level commands (self-test, A20 gate, output
// port writes), and an internal scratch RAM — this kernel's driver never
// issues any of those, so this model doesn't implement them either.
package input

import (
	"fmt"
	"sync"
)

const (
	i8042DataPort uint16 = 0x60
)

// I8042 models the slice of an 8042 controller internal/x86/keyboard.Driver
// actually drives: reads of port 0x60 return the oldest queued byte, writes
// to port 0x60 are handed to the keyboard as a command (the set-LEDs
// handshake is the only one this kernel's driver issues).
type I8042 struct {
	mu sync.Mutex

	outputBuffer []byte
	irq1         func()

	keyboard *PS2Keyboard
}

// NewI8042 returns a controller with one keyboard attached and no pending
// output.
func NewI8042() *I8042 {
	i := &I8042{irq1: func() {}}
	i.keyboard = NewPS2Keyboard()
	i.keyboard.SetController(i)
	return i
}

// Keyboard returns the attached keyboard, so tests can drive SendKey
// directly without going through the data port.
func (i *I8042) Keyboard() *PS2Keyboard {
	return i.keyboard
}

// SetKeyboardIRQ installs the IRQ1 pulse callback fired on every byte queued
// for the guest to read.
func (i *I8042) SetKeyboardIRQ(pulse func()) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if pulse == nil {
		pulse = func() {}
	}
	i.irq1 = pulse
	i.keyboard.SetIRQ(pulse)
}

// Reset clears the output buffer and resets the keyboard to its power-on
// defaults.
func (i *I8042) Reset() {
	i.mu.Lock()
	i.outputBuffer = nil
	i.mu.Unlock()
	i.keyboard.Reset()
}

func (i *I8042) IOPorts() []uint16 {
	return []uint16{i8042DataPort}
}

func (i *I8042) ReadIOPort(port uint16, data []byte) error {
	if len(data) != 1 {
		return fmt.Errorf("i8042: invalid read size %d", len(data))
	}
	if port != i8042DataPort {
		return fmt.Errorf("i8042: invalid read port 0x%04x", port)
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.outputBuffer) == 0 {
		data[0] = 0
		return nil
	}
	data[0] = i.outputBuffer[0]
	i.outputBuffer = i.outputBuffer[1:]
	return nil
}

func (i *I8042) WriteIOPort(port uint16, data []byte) error {
	if len(data) != 1 {
		return fmt.Errorf("i8042: invalid write size %d", len(data))
	}
	if port != i8042DataPort {
		return fmt.Errorf("i8042: invalid write port 0x%04x", port)
	}
	return i.keyboard.HandleCommand(data[0])
}

// QueueKeyboardData appends a byte (scancode or command response) to the
// output buffer and pulses IRQ1, the same way a real controller latches a
// byte from the keyboard's serial line and asserts the line to the PIC.
func (i *I8042) QueueKeyboardData(b byte) {
	i.mu.Lock()
	i.outputBuffer = append(i.outputBuffer, b)
	irq := i.irq1
	i.mu.Unlock()
	irq()
}
