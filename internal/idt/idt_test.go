package idt

import "testing"

func TestDefaultExceptionHandlerReportsNameAndFaults(t *testing.T) {
	var gotName string
	var gotFrame *InterruptFrame
	table := New(func(frame *InterruptFrame, name string) {
		gotName = name
		gotFrame = frame
	})

	frame := &InterruptFrame{Vector: 0, EIP: 0xDEADBEEF}
	table.Dispatch(frame)

	if gotName != "Divide-by-zero" {
		t.Fatalf("expected Divide-by-zero, got %q", gotName)
	}
	if gotFrame != frame {
		t.Fatalf("fault callback did not receive the dispatched frame")
	}
}

func TestDefaultExternalHandlerSendsEOI(t *testing.T) {
	table := New(nil)
	var acked []uint8
	table.SetEOISender(func(vector uint8) { acked = append(acked, vector) })

	table.Dispatch(&InterruptFrame{Vector: 0x20})

	if len(acked) != 1 || acked[0] != 0x20 {
		t.Fatalf("expected EOI for vector 0x20, got %v", acked)
	}
}

func TestSetHandlerReplacesEntry(t *testing.T) {
	table := New(nil)
	called := false
	table.SetHandler(0x21, func(*InterruptFrame) { called = true })

	table.Dispatch(&InterruptFrame{Vector: 0x21})

	if !called {
		t.Fatalf("expected custom handler to run")
	}
}

func TestSetHandlerRejectsOutOfRangeVector(t *testing.T) {
	table := New(nil)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected SetHandler to panic for vector >= NumVectors")
		}
	}()
	table.SetHandler(NumVectors, func(*InterruptFrame) {})
}

func TestGatesCoverSpecRange(t *testing.T) {
	table := New(nil)
	gates := table.Gates()

	for v := 0; v < NumVectors; v++ {
		g, ok := gates[uint16(v)]
		if !ok || !g.Present || g.DPL != 0 {
			t.Fatalf("vector %d not installed as a DPL=0 kernel gate: %+v (ok=%v)", v, g, ok)
		}
	}
	sys, ok := gates[SyscallVector]
	if !ok || sys.DPL != 3 {
		t.Fatalf("expected syscall vector 0x80 installed at DPL=3, got %+v (ok=%v)", sys, ok)
	}
}
