package pic_test

import (
	"testing"

	"github.com/novakernel/novakernel/internal/chipsim"
	"github.com/novakernel/novakernel/internal/ports"
	"github.com/novakernel/novakernel/internal/x86/pic"
)

func newHarness(t *testing.T) (*pic.Driver, *chipsim.DualPIC) {
	t.Helper()
	chip := chipsim.NewDualPIC()
	bus := ports.NewSimBus()
	bus.Attach(chip)
	return pic.New(bus), chip
}

func TestInitUnmasksOnlyCascade(t *testing.T) {
	drv, chip := newHarness(t)
	if err := drv.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	// Every line masked except IRQ2 (cascade): raising any other master
	// line should not make an interrupt deliverable.
	chip.SetIRQ(0, true)
	if chip.InterruptPending() {
		t.Fatalf("expected IRQ0 to be masked right after init")
	}
	chip.SetIRQ(0, false)

	if err := drv.SetMask(0, true); err != nil {
		t.Fatalf("set mask: %v", err)
	}
	chip.SetIRQ(0, true)
	if !chip.InterruptPending() {
		t.Fatalf("expected IRQ0 to be deliverable after unmasking")
	}
}

func TestSendEOIMasterRange(t *testing.T) {
	drv, chip := newHarness(t)
	if err := drv.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := drv.SetMask(1, true); err != nil {
		t.Fatalf("set mask: %v", err)
	}

	chip.SetIRQ(1, true)
	requested, vec := chip.Acknowledge()
	if !requested {
		t.Fatalf("expected interrupt to be acknowledged")
	}

	chip.SetIRQ(1, false)
	if err := drv.SendEOI(vec); err != nil {
		t.Fatalf("send eoi: %v", err)
	}

	// After EOI, the ISR bit must be clear, so a fresh IRQ1 is deliverable
	// again.
	chip.SetIRQ(1, true)
	if !chip.InterruptPending() {
		t.Fatalf("expected IRQ1 deliverable again after EOI")
	}
}

func TestSendEOISlaveRangeHitsBothChips(t *testing.T) {
	drv, chip := newHarness(t)
	if err := drv.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := drv.SetMask(10, true); err != nil { // secondary line 2
		t.Fatalf("set mask: %v", err)
	}

	chip.SetIRQ(10, true)
	requested, vec := chip.Acknowledge()
	if !requested {
		t.Fatalf("expected interrupt to be acknowledged")
	}
	if vec < 0x28 {
		t.Fatalf("expected a slave-range vector, got 0x%02x", vec)
	}

	chip.SetIRQ(10, false)
	if err := drv.SendEOI(vec); err != nil {
		t.Fatalf("send eoi: %v", err)
	}

	chip.SetIRQ(10, true)
	if !chip.InterruptPending() {
		t.Fatalf("expected secondary IRQ deliverable again after EOI")
	}
}
