// Package trap is the system-call trap from spec.md §4.7: a single gate at
// vector 0x80, a syscall_check precondition, and a 20-entry table dispatched
// by call number. Real argument marshalling passes ebx/ecx/edx as the raw
// machine words int 0x80 leaves on the stack; write's "pointer" argument is
// modeled as an offset into a small shared memory window (Table.memory)
// rather than a literal flat address space, since hosted task goroutines
// have no common address space to dereference into.
package trap

import (
	"sync"

	"github.com/novakernel/novakernel/internal/console"
	"github.com/novakernel/novakernel/internal/debug"
	"github.com/novakernel/novakernel/internal/klist"
	"github.com/novakernel/novakernel/internal/klog"
	"github.com/novakernel/novakernel/internal/sched"
	"github.com/novakernel/novakernel/internal/x86/keyboard"
)

// NumCalls is the fixed syscall table size (spec.md §4.7: "currently 20").
const NumCalls = 20

// Vector is the single DPL=3 gate callable from Ring 3.
const Vector = 0x80

// Fixed call numbers, spec.md §4.7.
const (
	CallTest  = 0
	CallWrite = 1
	CallYield = 2
	CallSleep = 3

	// SPEC_FULL.md M8 supplements: calls the distillation left unallocated.
	CallGetPID        = 4
	CallUptimeMS      = 5
	CallKeyboardRead  = 6
	CallExit          = 7
)

// errNoSys is the fixed machine-word "reserved, not implemented" return
// value for calls 8-19 (spec.md §4.7: "reserved no-ops").
const errNoSys uint32 = 0xFFFFFFFF

// Fd selects a standard stream for the write syscall; only FdStdout is
// honored, per spec.md §4.7.
type Fd uint32

const (
	FdStdin Fd = iota
	FdStdout
	FdStderr
)

// memoryWindowSize bounds the shared staging buffer write() stages its
// payload into before trapping.
const memoryWindowSize = 4096

var trc = debug.WithSource("trap")

// Handler implements one syscall: spec.md's "(arg1, arg2, arg3, vector)" ABI
// minus the self-evident vector (always Vector here).
type Handler func(t *sched.Task, a1, a2, a3 uint32) uint32

// Table is the syscall trap: the 20-entry dispatch table plus the state its
// supplemented calls need (keyboard wait queue, memory staging window).
type Table struct {
	handlers [NumCalls]Handler

	sched   *sched.Scheduler
	console *console.Console
	kbd     *keyboard.Driver

	mu       sync.Mutex
	memory   [memoryWindowSize]byte
	memNext  uint32
	kbdWaitQ klist.List
}

// New builds a syscall table bound to s, writing to con, and reading from
// kbd (nil disables CallKeyboardRead, returning errNoSys instead).
func New(s *sched.Scheduler, con *console.Console, kbd *keyboard.Driver) *Table {
	tb := &Table{sched: s, console: con, kbd: kbd}
	for i := range tb.handlers {
		tb.handlers[i] = tb.reserved
	}
	tb.handlers[CallTest] = tb.sysTest
	tb.handlers[CallWrite] = tb.sysWrite
	tb.handlers[CallYield] = tb.sysYield
	tb.handlers[CallSleep] = tb.sysSleep
	tb.handlers[CallGetPID] = tb.sysGetPID
	tb.handlers[CallUptimeMS] = tb.sysUptimeMS
	tb.handlers[CallExit] = tb.sysExit
	if kbd != nil {
		tb.handlers[CallKeyboardRead] = tb.sysKeyboardRead
		kbd.SetWaiter(tb)
	}
	return tb
}

// Dispatch is the hosted stand-in for the trampoline's steps 1-5: it asserts
// call < NumCalls (a fatal precondition violation per spec.md §7.1 on
// failure, not a returned error) and calls SYSTEM_CALL_TABLE[call].
func (tb *Table) Dispatch(t *sched.Task, call uint32, a1, a2, a3 uint32) uint32 {
	if call >= NumCalls {
		klog.Panic("trap: syscall number %d >= SYS_CALL_SIZE(%d)", call, NumCalls)
		return 0
	}
	trc.Writef("syscall: %s call=%d a1=%d a2=%d a3=%d", t.Name(), call, a1, a2, a3)
	return tb.handlers[call](t, a1, a2, a3)
}

func (tb *Table) reserved(_ *sched.Task, _, _, _ uint32) uint32 {
	return errNoSys
}

func (tb *Table) sysTest(t *sched.Task, a1, a2, a3 uint32) uint32 {
	trc.Writef("test: %s a1=%d a2=%d a3=%d", t.Name(), a1, a2, a3)
	return 0
}

func (tb *Table) sysWrite(_ *sched.Task, a1, a2, a3 uint32) uint32 {
	if Fd(a1) != FdStdout {
		return 0
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if a2 >= memoryWindowSize || a2+a3 > memoryWindowSize {
		klog.Panic("trap: write syscall buffer out of range (ptr=%d len=%d)", a2, a3)
		return 0
	}
	if tb.console != nil {
		tb.console.WriteStr(string(tb.memory[a2 : a2+a3]))
	}
	return a3
}

func (tb *Table) sysYield(t *sched.Task, _, _, _ uint32) uint32 {
	tb.sched.Yield(t)
	return 0
}

func (tb *Table) sysSleep(t *sched.Task, ms, _, _ uint32) uint32 {
	tb.sched.Sleep(t, uint64(ms))
	return 0
}

func (tb *Table) sysGetPID(t *sched.Task, _, _, _ uint32) uint32 {
	return uint32(t.UID())
}

func (tb *Table) sysUptimeMS(t *sched.Task, _, _, _ uint32) uint32 {
	return uint32(tb.sched.Jiffies() * sched.JiffyMillis)
}

// sysKeyboardRead blocks t on the keyboard wait queue until a byte is
// available, per the scenario in spec.md §8.4. Block already reschedules
// when t is current, so the loop resumes exactly once Notify has unblocked
// this task and task_search has chosen it to run again.
func (tb *Table) sysKeyboardRead(t *sched.Task, _, _, _ uint32) uint32 {
	for {
		if b, ok := tb.kbd.ReadByte(); ok {
			return uint32(b)
		}
		tb.sched.Block(t, sched.StateBlocked, &tb.kbdWaitQ)
	}
}

func (tb *Table) sysExit(t *sched.Task, _, _, _ uint32) uint32 {
	tb.sched.Exit(t)
	return 0
}

// Notify implements keyboard.Waiter: unblock the oldest queued reader (if
// any) whenever a new byte is enqueued, the hosted equivalent of "if a task
// is waiting on keyboard input, unblocks it" (spec.md §6).
func (tb *Table) Notify() {
	tb.mu.Lock()
	tail := tb.kbdWaitQ.Back()
	tb.mu.Unlock()
	if tail == nil {
		return
	}
	tb.sched.Unblock(sched.TaskFromNode(tail), &tb.kbdWaitQ)
}

// StageWrite copies s into the shared memory window and returns the
// (offset, length) pair a user-mode write() wrapper would pass as
// ecx/edx — the hosted stand-in for a user task placing a buffer at a known
// virtual address before trapping.
func (tb *Table) StageWrite(s string) (offset, length uint32) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if uint32(len(s)) > memoryWindowSize {
		s = s[:memoryWindowSize]
	}
	if tb.memNext+uint32(len(s)) > memoryWindowSize {
		tb.memNext = 0
	}
	offset = tb.memNext
	copy(tb.memory[offset:], s)
	tb.memNext += uint32(len(s))
	return offset, uint32(len(s))
}

// Write is the user-side wrapper spec.md §4.7 describes: stage the buffer,
// then issue the trap exactly like `int 0x80 eax=1 ebx=fd ecx=ptr edx=len`.
func (tb *Table) Write(t *sched.Task, s string) uint32 {
	offset, length := tb.StageWrite(s)
	return tb.Dispatch(t, CallWrite, uint32(FdStdout), offset, length)
}
