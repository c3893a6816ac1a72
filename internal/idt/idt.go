// Package idt models the 256-gate Interrupt Descriptor Table, the 48-vector
// handler table it dispatches through, and the default exception/external
// handlers. In hosted/simulated mode (every test, and `cmd/nova run`) each
// "vector" is a Go closure invoked directly by the dispatcher rather than a
// naked assembly stub entered by a real `int` instruction; the timer vector
// (0x20) also has a literal Plan 9 stub in stub_amd64.s, build-tagged
// hwports, which no cmd/nova mode reaches.
package idt

import "fmt"

const (
	// NumVectors is the size of the handler table: every hardware exception
	// and external interrupt vector the PIC can raise.
	NumVectors = 48

	// SyscallVector is the single DPL=3 gate reachable from Ring 3.
	SyscallVector = 0x80

	// ErrorSentinel is pushed in place of a hardware error code for vectors
	// that do not supply one, matching the synthetic sentinel a naked stub
	// would push.
	ErrorSentinel = 0x20230612

	firstExternalVector = 0x20
	lastExternalVector  = 0x2F
)

// InterruptFrame mirrors the stack layout a real interrupt-gate entry would
// leave behind, in push order, so handlers see the same shape regardless of
// whether they were reached via the common entry/exit fabric or invoked
// directly in simulated mode.
type InterruptFrame struct {
	EFlags    uint32
	CS        uint32
	EIP       uint32
	ErrorCode uint32
	Vector    uint32
	DS, ES, FS, GS uint32
	EAX, ECX, EDX, EBX uint32
	ESPDummy  uint32
	EBP, ESI, EDI uint32
}

// Handler processes one vector. It receives the frame built by the (real or
// simulated) entry fabric and may mutate scheduler state before returning.
type Handler func(frame *InterruptFrame)

// Gate describes one IDT descriptor, data-only — there is no literal GDT
// selector/offset encoding to perform in hosted mode, but the fields mirror
// what a real descriptor would carry.
type Gate struct {
	Vector   uint8
	Selector uint16 // kernel code selector for vectors < 48; user-reachable DPL=3 for 0x80
	DPL      uint8
	Present  bool
}

// Table is the 48-entry handler table plus the sparse 256-gate IDT it was
// built from. The zero value is not usable; construct with New.
type Table struct {
	handlers [NumVectors]Handler
	gates    map[uint16]Gate
	fault    func(frame *InterruptFrame, name string)
	eoi      func(vector uint8)
}

// ExceptionNames indexes the fixed x86 exception mnemonics for vectors 0-31.
var ExceptionNames = [32]string{
	0: "Divide-by-zero", 1: "Debug", 2: "NMI", 3: "Breakpoint",
	4: "Overflow", 5: "Bound Range Exceeded", 6: "Invalid Opcode",
	7: "Device Not Available", 8: "Double Fault", 9: "Coprocessor Segment Overrun",
	10: "Invalid TSS", 11: "Segment Not Present", 12: "Stack-Segment Fault",
	13: "General Protection Fault", 14: "Page Fault", 16: "x87 FP Exception",
	17: "Alignment Check", 18: "Machine Check", 19: "SIMD FP Exception",
}

// New builds a table with 0-0x1F wired to the default exception handler,
// 0x20-0x2F wired to the default external handler, and the IDT gate set
// populated per spec: vectors [0,48) as kernel DPL=0 gates, plus 0x80 as a
// DPL=3 gate for the syscall trampoline. fault is invoked by the default
// exception handler after printing; pass a function that halts (see
// internal/klog.Panic) — nil installs a no-op so tests can inspect the
// printed diagnostic without actually halting.
func New(fault func(frame *InterruptFrame, name string)) *Table {
	if fault == nil {
		fault = func(*InterruptFrame, string) {}
	}
	t := &Table{gates: make(map[uint16]Gate), fault: fault}

	for v := 0; v < NumVectors; v++ {
		if v < firstExternalVector {
			t.handlers[v] = t.defaultExceptionHandler
		} else {
			t.handlers[v] = t.defaultExternalHandler
		}
		t.gates[uint16(v)] = Gate{Vector: uint8(v), Selector: kernelCodeSelector, DPL: 0, Present: true}
	}
	t.gates[SyscallVector] = Gate{Vector: SyscallVector, Selector: userSyscallSelector, DPL: 3, Present: true}

	return t
}

const (
	kernelCodeSelector  = 0x08
	userSyscallSelector = 0x08 // trampoline still runs at CS=kernel selector; DPL=3 only gates callability
)

// SetEOISender installs the function the default external handler calls to
// acknowledge an otherwise-unclaimed vector in [0x20, 0x30) (a spurious or
// simply undispatched IRQ). Typically (*pic.Driver).SendEOI.
func (t *Table) SetEOISender(eoi func(vector uint8)) {
	t.eoi = eoi
}

// SetHandler installs fn for vector, replacing whatever was there. Panics if
// vector is out of range — a programming error, not a runtime condition.
func (t *Table) SetHandler(vector uint8, fn Handler) {
	if int(vector) >= NumVectors {
		panic(fmt.Sprintf("idt: vector %d out of range (< %d required)", vector, NumVectors))
	}
	t.handlers[vector] = fn
}

// Dispatch is the hosted stand-in for the common entry/exit fabric: it looks
// up HANDLER_TABLE[frame.Vector] and calls it. A naked-stub build would reach
// this same handler via interrupt_entry/interrupt_exit around a real `call`;
// here the call is direct.
func (t *Table) Dispatch(frame *InterruptFrame) {
	if int(frame.Vector) >= NumVectors {
		panic(fmt.Sprintf("idt: dispatch for out-of-range vector %d", frame.Vector))
	}
	h := t.handlers[frame.Vector]
	if h == nil {
		panic(fmt.Sprintf("idt: nil handler for vector %d", frame.Vector))
	}
	h(frame)
}

// Gates exposes the populated IDT for inspection/testing.
func (t *Table) Gates() map[uint16]Gate { return t.gates }

func (t *Table) defaultExceptionHandler(frame *InterruptFrame) {
	name := "Unknown Exception"
	if int(frame.Vector) < len(ExceptionNames) && ExceptionNames[frame.Vector] != "" {
		name = ExceptionNames[frame.Vector]
	}
	t.fault(frame, name)
}

func (t *Table) defaultExternalHandler(frame *InterruptFrame) {
	// Spurious or otherwise unclaimed external vector: acknowledge it and
	// move on so the PIC never wedges waiting for an EOI that never comes.
	if t.eoi != nil {
		t.eoi(uint8(frame.Vector))
	}
}
