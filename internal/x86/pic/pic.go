// Package pic is the guest-side 8259A driver: it issues the four-ICW
// initialization sequence, masks/unmasks IRQ lines, and sends EOI, entirely
// over a ports.Bus. It is deliberately chip-agnostic — tests exercise it
// against internal/chipsim.DualPIC, but it never imports chipsim.
package pic

import "github.com/novakernel/novakernel/internal/ports"

const (
	masterCommand uint16 = 0x20
	masterData    uint16 = 0x21
	slaveCommand  uint16 = 0xA0
	slaveData     uint16 = 0xA1

	icw1Init  = 0x11 // ICW1: edge-triggered, cascade, ICW4 needed
	icw4_8086 = 0x01

	masterVectorBase = 0x20
	slaveVectorBase  = 0x28
	cascadeIRQ       = 2 // slave is wired to master's IRQ2

	eoiNonSpecific = 0x20
)

// Driver programs a cascaded pair of 8259As over a ports.Bus.
type Driver struct {
	bus  ports.Bus
	mask [2]byte // current IMR shadow, index 0 = master, 1 = slave
}

// New returns a driver bound to bus. Call Init before using it.
func New(bus ports.Bus) *Driver {
	return &Driver{bus: bus}
}

// Init runs the standard four-ICW sequence: master at vector base 0x20,
// slave at 0x28, slave cascaded on IRQ2, 8086 mode, normal EOI. After Init
// every line is masked except IRQ2 (the cascade line).
func (d *Driver) Init() error {
	steps := []struct {
		port  uint16
		value byte
	}{
		{masterCommand, icw1Init},
		{masterData, masterVectorBase},
		{masterData, 1 << cascadeIRQ}, // ICW3: slave attached on IRQ2
		{masterData, icw4_8086},

		{slaveCommand, icw1Init},
		{slaveData, slaveVectorBase},
		{slaveData, cascadeIRQ}, // ICW3: slave identity on master's IRQ2
		{slaveData, icw4_8086},
	}
	for _, s := range steps {
		if err := d.bus.Outb(s.port, s.value); err != nil {
			return err
		}
	}

	d.mask = [2]byte{0xFF &^ (1 << cascadeIRQ), 0xFF}
	if err := d.bus.Outb(masterData, d.mask[0]); err != nil {
		return err
	}
	return d.bus.Outb(slaveData, d.mask[1])
}

// SetMask enables or disables delivery of irq (0-15). enable == false masks
// the line (blocks delivery); true unmasks it.
func (d *Driver) SetMask(irq uint8, enable bool) error {
	chip, bit := 0, irq
	dataPort := masterData
	if irq >= 8 {
		chip, bit = 1, irq-8
		dataPort = slaveData
	}
	if enable {
		d.mask[chip] &^= 1 << bit
	} else {
		d.mask[chip] |= 1 << bit
	}
	return d.bus.Outb(dataPort, d.mask[chip])
}

// SendEOI writes end-of-interrupt for vector. It always EOIs the master
// when vector falls in the master's range [0x20, 0x30); it additionally
// EOIs the slave when vector falls in the slave's range [0x28, 0x30) —
// spec-mandated, even though this always hits the master regardless of
// which chip actually raised the slave-cascaded interrupt (see DESIGN.md).
func (d *Driver) SendEOI(vector uint8) error {
	if vector >= masterVectorBase && vector < masterVectorBase+0x10 {
		if err := d.bus.Outb(masterCommand, eoiNonSpecific); err != nil {
			return err
		}
	}
	if vector >= slaveVectorBase && vector < masterVectorBase+0x10 {
		if err := d.bus.Outb(slaveCommand, eoiNonSpecific); err != nil {
			return err
		}
	}
	return nil
}
