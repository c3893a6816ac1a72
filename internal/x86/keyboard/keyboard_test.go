package keyboard

import (
	"testing"

	"github.com/novakernel/novakernel/internal/chipsim"
	"github.com/novakernel/novakernel/internal/chipsim/input"
	"github.com/novakernel/novakernel/internal/ports"
	"github.com/novakernel/novakernel/internal/x86/pic"
)

type countingWaiter struct{ notified int }

func (w *countingWaiter) Notify() { w.notified++ }

func TestScancodeAYieldsLowercaseA(t *testing.T) {
	bus := ports.NewSimBus()
	dualPIC := chipsim.NewDualPIC()
	i8042 := input.NewI8042()
	bus.Attach(dualPIC)
	bus.Attach(i8042)

	picDrv := pic.New(bus)
	if err := picDrv.Init(); err != nil {
		t.Fatal(err)
	}

	drv := New(bus, picDrv)
	waiter := &countingWaiter{}
	drv.SetWaiter(waiter)

	// Scancode 0x1E is the set-1 make code for 'a'.
	i8042.Keyboard().SendKey(0x1E, true)

	if err := drv.HandleIRQ1(); err != nil {
		t.Fatal(err)
	}

	got, ok := drv.ReadByte()
	if !ok {
		t.Fatal("expected a decoded byte")
	}
	if got != 'a' {
		t.Fatalf("got %q, want 'a'", got)
	}
	if waiter.notified != 1 {
		t.Fatalf("waiter notified %d times, want 1", waiter.notified)
	}
}

func TestCapsLockTogglesUppercase(t *testing.T) {
	bus := ports.NewSimBus()
	dualPIC := chipsim.NewDualPIC()
	i8042 := input.NewI8042()
	bus.Attach(dualPIC)
	bus.Attach(i8042)
	picDrv := pic.New(bus)
	if err := picDrv.Init(); err != nil {
		t.Fatal(err)
	}
	drv := New(bus, picDrv)

	i8042.Keyboard().SendKey(scancodeCapsLockMake, true)
	if err := drv.HandleIRQ1(); err != nil {
		t.Fatal(err)
	}
	if !drv.capsLock {
		t.Fatal("expected caps lock enabled")
	}

	i8042.Keyboard().SendKey(0x1E, true)
	if err := drv.HandleIRQ1(); err != nil {
		t.Fatal(err)
	}
	got, ok := drv.ReadByte()
	if !ok || got != 'A' {
		t.Fatalf("got (%q,%v), want ('A', true)", got, ok)
	}
}
