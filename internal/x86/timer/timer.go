// Package timer is the guest-side PIT driver: it programs channel 0 for
// periodic jiffy ticks and forwards each tick to a Hook (internal/sched
// implements one) that performs the scheduling-relevant work — the timer
// driver itself only owns PIT programming, EOI, and the jiffy counter.
package timer

import (
	"fmt"

	"github.com/novakernel/novakernel/internal/ports"
	"github.com/novakernel/novakernel/internal/x86/pic"
)

const (
	// HZ is the jiffy rate: 100 ticks/second, a 10ms jiffy.
	HZ = 100

	pitInputFrequency = 1193182
	// Divisor is 1193182/100 = 11931, loaded low byte then high byte.
	Divisor = pitInputFrequency / HZ

	pitChannel0Port uint16 = 0x40
	pitControlPort  uint16 = 0x43

	// controlWord selects channel 0, lobyte/hibyte access, mode 2 (rate
	// generator), binary (not BCD) counting: 0b00110100.
	controlWord byte = 0b00110100

	// IRQ0 is the PIT's line on the master PIC.
	IRQ0 uint8 = 0
)

// Hook receives every tick after EOI has already been sent and the jiffy
// counter advanced. It performs the scheduling side effects spec'd for the
// timer ISR: magic validation, slice accounting, sleep-queue wake.
type Hook interface {
	OnTick(jiffies uint64)
}

// Timer is the guest-side PIT driver.
type Timer struct {
	bus     ports.Bus
	pic     *pic.Driver
	hook    Hook
	jiffies uint64
}

// New returns a Timer that programs channel 0 over bus, EOIs via picDrv on
// every tick, and forwards ticks to hook.
func New(bus ports.Bus, picDrv *pic.Driver, hook Hook) *Timer {
	return &Timer{bus: bus, pic: picDrv, hook: hook}
}

// Init programs PIT channel 0 in mode 2 at HZ and unmasks IRQ0.
func (t *Timer) Init() error {
	if err := t.bus.Outb(pitControlPort, controlWord); err != nil {
		return fmt.Errorf("timer: write control word: %w", err)
	}
	if err := t.bus.Outb(pitChannel0Port, byte(Divisor&0xFF)); err != nil {
		return fmt.Errorf("timer: write divisor low byte: %w", err)
	}
	if err := t.bus.Outb(pitChannel0Port, byte(Divisor>>8)); err != nil {
		return fmt.Errorf("timer: write divisor high byte: %w", err)
	}
	if t.pic != nil {
		if err := t.pic.SetMask(IRQ0, true); err != nil {
			return fmt.Errorf("timer: unmask IRQ0: %w", err)
		}
	}
	return nil
}

// HandleIRQ0 is the timer ISR: send EOI, advance the jiffy counter, then
// hand off to Hook for the scheduling-relevant steps.
func (t *Timer) HandleIRQ0() {
	if t.pic != nil {
		_ = t.pic.SendEOI(0x20 + IRQ0)
	}
	t.jiffies++
	if t.hook != nil {
		t.hook.OnTick(t.jiffies)
	}
}

// Jiffies returns the current tick count.
func (t *Timer) Jiffies() uint64 { return t.jiffies }
