package input

import (
	"sync"
)

const (
	ps2CmdReset        = 0xff
	ps2CmdResend       = 0xfe
	ps2CmdSetDefaults  = 0xf6
	ps2CmdDisable      = 0xf5
	ps2CmdEnable       = 0xf4
	ps2CmdSetTypematic = 0xf3
	ps2CmdSetLEDs      = 0xed
	ps2CmdEcho         = 0xee
	ps2CmdSetScancode  = 0xf0
	ps2CmdIdentify     = 0xf2

	ps2ResponseAck      = 0xfa
	ps2ResponseResend   = 0xfe
	ps2ResponseError    = 0xfc
	ps2ResponseTestPass = 0xaa
	ps2ResponseEcho     = 0xee

	scancodeSet1 = 1
)

// PS2Keyboard is the keyboard end of the PS/2 wire: it answers the same
// command set a real MF2 keyboard does, and feeds scancode-set-1 make/break
// bytes into its controller — internal/x86/keyboard.Driver never negotiates
// a different scancode set, so that's the only encoding SendKey produces.
type PS2Keyboard struct {
	mu sync.Mutex

	controller *I8042
	irq        func()

	enabled       bool
	typematicRate byte
	leds          byte // Caps Lock, Num Lock, Scroll Lock

	expectingTypematic bool
	expectingLEDs      bool
	expectingScancode  bool
}

// NewPS2Keyboard returns a keyboard in its power-on state.
func NewPS2Keyboard() *PS2Keyboard {
	return &PS2Keyboard{
		enabled: true,
		irq:     func() {},
	}
}

// SetIRQ sets the interrupt pulse callback for this keyboard.
func (k *PS2Keyboard) SetIRQ(pulse func()) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if pulse == nil {
		pulse = func() {}
	}
	k.irq = pulse
}

// SetController sets the i8042 controller this keyboard belongs to.
func (k *PS2Keyboard) SetController(ctrl *I8042) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.controller = ctrl
}

// Reset resets the keyboard to default state.
func (k *PS2Keyboard) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.resetLocked()
}

func (k *PS2Keyboard) resetLocked() {
	k.enabled = true
	k.typematicRate = 0x20
	k.leds = 0
	k.expectingTypematic = false
	k.expectingLEDs = false
	k.expectingScancode = false
}

// HandleCommand processes a command byte written to the data port.
func (k *PS2Keyboard) HandleCommand(cmd byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.expectingLEDs {
		k.leds = cmd
		k.expectingLEDs = false
		k.sendResponseLocked(ps2ResponseAck)
		return nil
	}
	if k.expectingTypematic {
		k.typematicRate = cmd
		k.expectingTypematic = false
		k.sendResponseLocked(ps2ResponseAck)
		return nil
	}
	if k.expectingScancode {
		k.expectingScancode = false
		if cmd == scancodeSet1 {
			k.sendResponseLocked(ps2ResponseAck)
		} else {
			// Only scancode set 1 is supported; reject anything else.
			k.sendResponseLocked(ps2ResponseError)
		}
		return nil
	}

	switch cmd {
	case ps2CmdReset:
		k.resetLocked()
		k.sendResponseLocked(ps2ResponseAck)
		k.sendResponseLocked(ps2ResponseTestPass)
	case ps2CmdResend:
		k.sendResponseLocked(ps2ResponseResend)
	case ps2CmdSetDefaults:
		k.typematicRate = 0x20
		k.sendResponseLocked(ps2ResponseAck)
	case ps2CmdDisable:
		k.enabled = false
		k.sendResponseLocked(ps2ResponseAck)
	case ps2CmdEnable:
		k.enabled = true
		k.sendResponseLocked(ps2ResponseAck)
	case ps2CmdSetTypematic:
		k.expectingTypematic = true
		k.sendResponseLocked(ps2ResponseAck)
	case ps2CmdSetLEDs:
		k.expectingLEDs = true
		k.sendResponseLocked(ps2ResponseAck)
	case ps2CmdEcho:
		k.sendResponseLocked(ps2ResponseEcho)
	case ps2CmdSetScancode:
		k.expectingScancode = true
		k.sendResponseLocked(ps2ResponseAck)
	case ps2CmdIdentify:
		k.sendResponseLocked(ps2ResponseAck)
		k.sendDataLocked(0xab)
		k.sendDataLocked(0x83)
	default:
		k.sendResponseLocked(ps2ResponseError)
	}
	return nil
}

// SendKey delivers a key press/release as scancode-set-1 make/break bytes:
// the make code as-is, the break code with the top bit set.
func (k *PS2Keyboard) SendKey(scancode byte, pressed bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.enabled {
		return
	}
	if pressed {
		k.sendDataLocked(scancode)
	} else {
		k.sendDataLocked(0x80 | scancode)
	}
}

// sendResponseLocked and sendDataLocked both forward into the controller's
// own locked queue: QueueKeyboardData takes the controller's mutex, which is
// distinct from k.mu, so calling it while holding k.mu cannot deadlock.
func (k *PS2Keyboard) sendResponseLocked(resp byte) {
	if k.controller != nil {
		k.controller.QueueKeyboardData(resp)
	}
}

func (k *PS2Keyboard) sendDataLocked(data byte) {
	if k.controller != nil {
		k.controller.QueueKeyboardData(data)
	}
}
