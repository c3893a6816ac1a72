// Package keyboard is the guest-side PS/2 driver from spec.md §6: the IRQ1
// handler reads the scancode byte off port 0x60, decodes scancode-set-1 into
// a character, enqueues it into a 60-slot ring, and unblocks a waiting task.
// Caps-Lock is toggled via the standard command/ack handshake on port 0x60.
package keyboard

import (
	"github.com/novakernel/novakernel/internal/ports"
	"github.com/novakernel/novakernel/internal/ring"
	"github.com/novakernel/novakernel/internal/x86/pic"
)

const (
	dataPort uint16 = 0x60

	// RingCapacity is the 60-slot circular buffer spec.md §6 specifies.
	RingCapacity = 60

	irq1 uint8 = 1

	scancodeLeftShiftMake    = 0x2A
	scancodeRightShiftMake   = 0x36
	scancodeLeftShiftBreak   = 0xAA
	scancodeRightShiftBreak  = 0xB6
	scancodeCapsLockMake     = 0x3A
	scancodeBreakMask        = 0x80

	cmdSetLEDs byte = 0xED
	ackByte    byte = 0xFA
	ledCapsBit byte = 1 << 2
)

// Waiter is unblocked whenever a byte becomes available, mirroring "if a
// task is waiting on keyboard input, unblocks it" (spec.md §6). Nil until
// SetWaiter installs one.
type Waiter interface {
	Notify()
}

// Driver decodes scancode-set-1 bytes delivered on IRQ1 into characters
// queued for task consumption.
type Driver struct {
	bus ports.Bus
	pic *pic.Driver
	buf *ring.Buffer[byte]

	shiftHeld bool
	capsLock  bool

	waiter Waiter
}

// New returns a driver bound to bus, sending EOI for IRQ1 through picDrv.
func New(bus ports.Bus, picDrv *pic.Driver) *Driver {
	return &Driver{bus: bus, pic: picDrv, buf: ring.New[byte](RingCapacity)}
}

// SetWaiter installs the task-side notifier woken on every enqueued byte.
func (d *Driver) SetWaiter(w Waiter) { d.waiter = w }

// HandleIRQ1 is the IRQ1 ISR: read the scancode, decode it, enqueue on a
// make code for a printable key, toggle Caps-Lock state on its make code,
// and send EOI.
func (d *Driver) HandleIRQ1() error {
	scancode, err := d.bus.Inb(dataPort)
	if err != nil {
		return err
	}

	released := scancode&scancodeBreakMask != 0
	code := scancode &^ scancodeBreakMask

	switch code {
	case scancodeLeftShiftMake, scancodeRightShiftMake:
		d.shiftHeld = !released
	case scancodeCapsLockMake:
		if !released {
			d.capsLock = !d.capsLock
			if err := d.setLEDs(); err != nil {
				return err
			}
		}
	default:
		if !released {
			if ch, ok := decode(code, d.shiftHeld != d.capsLock); ok {
				if d.buf.Push(ch) && d.waiter != nil {
					d.waiter.Notify()
				}
			}
		}
	}

	if d.pic != nil {
		return d.pic.SendEOI(0x20 + irq1)
	}
	return nil
}

// setLEDs runs the command/ack handshake to set the Caps-Lock LED.
func (d *Driver) setLEDs() error {
	if err := d.bus.Outb(dataPort, cmdSetLEDs); err != nil {
		return err
	}
	if _, err := d.bus.Inb(dataPort); err != nil { // consume ack
		return err
	}
	var leds byte
	if d.capsLock {
		leds |= ledCapsBit
	}
	if err := d.bus.Outb(dataPort, leds); err != nil {
		return err
	}
	_, err := d.bus.Inb(dataPort) // consume the LED byte's ack
	return err
}

// ReadByte pops the oldest decoded character, or ok=false if the ring is
// empty — the "expected condition" sentinel path per spec.md §7.
func (d *Driver) ReadByte() (byte, bool) {
	return d.buf.Pop()
}

// InjectByte enqueues an already-decoded byte without going through the
// scancode path, for `cmd/nova --attach`: a real attached terminal
// delivers ASCII over its raw-mode pty, not PS/2 scancodes, so there is no
// make/break pair to decode — this is the point where that host keystroke
// joins the same 60-slot ring IRQ1 feeds.
func (d *Driver) InjectByte(b byte) {
	if d.buf.Push(b) && d.waiter != nil {
		d.waiter.Notify()
	}
}

// decode translates a scancode-set-1 make code into an ASCII character
// using the common US QWERTY layout, applying shift/caps as appropriate.
func decode(code byte, upper bool) (byte, bool) {
	if ch, ok := lowerMap[code]; ok {
		if upper {
			if u, ok := upperMap[code]; ok {
				return u, true
			}
		}
		return ch, true
	}
	return 0, false
}

var lowerMap = map[byte]byte{
	0x02: '1', 0x03: '2', 0x04: '3', 0x05: '4', 0x06: '5',
	0x07: '6', 0x08: '7', 0x09: '8', 0x0A: '9', 0x0B: '0',
	0x0C: '-', 0x0D: '=', 0x0E: 0x08, 0x0F: '\t',
	0x10: 'q', 0x11: 'w', 0x12: 'e', 0x13: 'r', 0x14: 't',
	0x15: 'y', 0x16: 'u', 0x17: 'i', 0x18: 'o', 0x19: 'p',
	0x1A: '[', 0x1B: ']', 0x1C: '\n',
	0x1E: 'a', 0x1F: 's', 0x20: 'd', 0x21: 'f', 0x22: 'g',
	0x23: 'h', 0x24: 'j', 0x25: 'k', 0x26: 'l', 0x27: ';', 0x28: '\'',
	0x29: '`',
	0x2B: '\\',
	0x2C: 'z', 0x2D: 'x', 0x2E: 'c', 0x2F: 'v', 0x30: 'b',
	0x31: 'n', 0x32: 'm', 0x33: ',', 0x34: '.', 0x35: '/',
	0x39: ' ',
}

var upperMap = map[byte]byte{
	0x02: '!', 0x03: '@', 0x04: '#', 0x05: '$', 0x06: '%',
	0x07: '^', 0x08: '&', 0x09: '*', 0x0A: '(', 0x0B: ')',
	0x0C: '_', 0x0D: '+',
	0x10: 'Q', 0x11: 'W', 0x12: 'E', 0x13: 'R', 0x14: 'T',
	0x15: 'Y', 0x16: 'U', 0x17: 'I', 0x18: 'O', 0x19: 'P',
	0x1A: '{', 0x1B: '}',
	0x1E: 'A', 0x1F: 'S', 0x20: 'D', 0x21: 'F', 0x22: 'G',
	0x23: 'H', 0x24: 'J', 0x25: 'K', 0x26: 'L', 0x27: ':', 0x28: '"',
	0x2B: '|',
	0x2C: 'Z', 0x2D: 'X', 0x2E: 'C', 0x2F: 'V', 0x30: 'B',
	0x31: 'N', 0x32: 'M', 0x33: '<', 0x34: '>', 0x35: '?',
}
