// Package chipsim models the real 8259A/8254/CMOS/8042 chips this kernel
// programs, so the guest-side drivers in internal/x86 can be exercised and
// unit tested without real hardware. It is a hosted stand-in for a PC
// chipset, not a hypervisor: there is no VM object, no MMIO, no snapshotting
// — just the port-addressable register state machines a PC kernel pokes at,
// trimmed to the register subset this kernel's drivers actually touch.
package chipsim

import (
	"fmt"
	"math/bits"
	"sync"
)

const (
	primaryPicCommandPort   uint16 = 0x20
	primaryPicDataPort      uint16 = 0x21
	secondaryPicCommandPort uint16 = 0xA0
	secondaryPicDataPort    uint16 = 0xA1

	picChainCommunicationIRQ = 2
	picIRQMask               = 0x07
)

// DualPIC models the cascaded pair of 8259As internal/x86/pic.Driver
// programs: the four-ICW init sequence, the OCW1 mask register, and
// non-specific EOI on the master cascading to the slave. Real 8259As also
// answer a poll command, an ISR/IRR read-back command, and (on PCI
// chipsets) an ELCR level-trigger register — this driver never issues any
// of those, so this model doesn't answer them either.
//
// There is no CPU here to vector an acknowledged interrupt into: this
// kernel's IDT dispatch calls each driver's HandleIRQn directly once the
// host has decided to raise that line, rather than asking the PIC which
// vector is ready. Acknowledge/InterruptPending exist purely so tests can
// observe masking, cascading, and EOI behavior without that CPU.
type DualPIC struct {
	mu   sync.Mutex
	pics [2]*pic
}

// NewDualPIC returns an uninitialized cascaded pair, mirroring power-on
// 8259As before the BIOS or kernel programs them.
func NewDualPIC() *DualPIC {
	return &DualPIC{pics: [2]*pic{newPic(true), newPic(false)}}
}

func (p *DualPIC) IOPorts() []uint16 {
	return []uint16{primaryPicCommandPort, primaryPicDataPort, secondaryPicCommandPort, secondaryPicDataPort}
}

func (p *DualPIC) ReadIOPort(port uint16, data []byte) error {
	if len(data) != 1 {
		return fmt.Errorf("pic: invalid read size %d", len(data))
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	switch port {
	case primaryPicDataPort:
		data[0] = p.pics[0].imr
	case secondaryPicDataPort:
		data[0] = p.pics[1].imr
	case primaryPicCommandPort, secondaryPicCommandPort:
		data[0] = 0
	default:
		return fmt.Errorf("pic: invalid read port 0x%04x", port)
	}
	return nil
}

func (p *DualPIC) WriteIOPort(port uint16, data []byte) error {
	if len(data) != 1 {
		return fmt.Errorf("pic: invalid write size %d", len(data))
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	switch port {
	case primaryPicCommandPort:
		p.pics[0].writeCommand(data[0])
	case primaryPicDataPort:
		p.pics[0].writeData(data[0])
	case secondaryPicCommandPort:
		p.pics[1].writeCommand(data[0])
	case secondaryPicDataPort:
		p.pics[1].writeData(data[0])
	default:
		return fmt.Errorf("pic: invalid write port 0x%04x", port)
	}
	p.syncCascadeLocked()
	return nil
}

func (p *DualPIC) syncCascadeLocked() {
	p.pics[0].setIRQ(picChainCommunicationIRQ, p.pics[1].interruptPending())
}

// InterruptPending reports whether the master currently has a deliverable
// interrupt, the logical "INT line to the CPU" signal.
func (p *DualPIC) InterruptPending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pics[0].interruptPending()
}

// SetIRQ raises or lowers IRQ line (0-15), routing 8-15 to the slave.
func (p *DualPIC) SetIRQ(line uint8, level bool) {
	if line >= 16 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if line >= 8 {
		p.pics[1].setIRQ(line-8, level)
	} else {
		p.pics[0].setIRQ(line, level)
	}
	p.syncCascadeLocked()
}

// Acknowledge reports whether an interrupt is pending and, if so, the
// vector that would be delivered, resolving the master/slave cascade the
// same way a CPU's INTA cycle would.
func (p *DualPIC) Acknowledge() (bool, uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()

	requested, vec := p.pics[0].acknowledgeInterrupt()
	if requested && vec&picIRQMask == picChainCommunicationIRQ {
		if secRequested, secVec := p.pics[1].acknowledgeInterrupt(); secRequested {
			vec = secVec
		}
	}
	p.syncCascadeLocked()
	return requested, vec
}

func (p *DualPIC) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("PIC(primary=%v, secondary=%v)", p.pics[0], p.pics[1])
}

// pic models a single 8259A: an edge-triggered request latch, an in-service
// register, and a mask, with the fixed priority order (lower IRQ number
// wins) a real 8259A applies outside rotating-priority mode.
type pic struct {
	primary bool

	initStage initStage
	icw2      byte
	imr       byte
	isr       byte
	pending   byte
}

func newPic(primary bool) *pic {
	return &pic{primary: primary, initStage: initUninitialized}
}

// setIRQ latches a request on the rising edge. Lowering the line does not
// retract an already-latched request — only acknowledgment or EOI does —
// matching edge-triggered ISA behavior.
func (p *pic) setIRQ(line uint8, high bool) {
	if high {
		p.pending |= 1 << line
	}
}

func (p *pic) readyVec() byte {
	runnable := p.pending &^ p.imr
	if p.isr != 0 {
		runnable &= lowestSetBit(p.isr) - 1
	}
	return runnable
}

func (p *pic) interruptPending() bool {
	return p.readyVec() != 0
}

func (p *pic) acknowledgeInterrupt() (bool, uint8) {
	vec := p.readyVec()
	if vec == 0 {
		return false, 0
	}
	bit := lowestSetBit(vec)
	p.pending &^= bit
	p.isr |= bit
	return true, p.icw2 | byte(bits.TrailingZeros8(bit))
}

func (p *pic) eoi() {
	p.isr &^= lowestSetBit(p.isr)
}

// writeCommand handles ICW1 (init) and OCW2 (this kernel only ever sends
// non-specific EOI, value 0x20).
func (p *pic) writeCommand(value byte) {
	const initBit = 0x10
	const eoiBit = 0x20

	if value&initBit != 0 {
		icw2 := byte(0)
		if !p.primary {
			icw2 = 8
		}
		*p = pic{primary: p.primary, initStage: initExpectingICW2, icw2: icw2}
		return
	}
	if p.initStage != initInitialized {
		return // OCWs delivered before init completes are ignored
	}
	if value&eoiBit != 0 {
		p.eoi()
	}
}

// writeData handles OCW1 (mask) once initialized, and ICW2-4 during the
// init sequence Init() drives.
func (p *pic) writeData(value byte) {
	switch p.initStage {
	case initUninitialized, initInitialized:
		p.imr = value
	case initExpectingICW2:
		p.icw2 = value &^ picIRQMask
		p.initStage = initExpectingICW3
	case initExpectingICW3:
		p.initStage = initExpectingICW4
	case initExpectingICW4:
		p.initStage = initInitialized
	}
}

type initStage int

const (
	initUninitialized initStage = iota
	initExpectingICW2
	initExpectingICW3
	initExpectingICW4
	initInitialized
)

func lowestSetBit(b byte) byte {
	return b & -b
}
