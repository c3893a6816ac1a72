// Package klog is the kernel's fatal-diagnostic path: the hosted equivalent
// of printing a panic frame to the console and halting the CPU with hlt in
// a loop. Expected-failure conditions still return errors built with
// fmt.Errorf, same as the teacher's device code; klog is reserved for the
// invariant violations spec.md §7.1 says are fatal (stack-canary mismatch,
// no ready task, precondition IF=0 violated).
package klog

import (
	"fmt"
	"os"
	"sync"

	"github.com/novakernel/novakernel/internal/debug"
)

// Sink receives the formatted diagnostic before the calling goroutine parks
// forever. internal/console implements this; tests may supply their own to
// assert on the message without blocking the test goroutine.
type Sink interface {
	WriteString(s string) (int, error)
}

var (
	mu   sync.Mutex
	sink Sink
	trc  = debug.WithSource("klog")
)

// SetSink installs the console (or any Sink) diagnostics are written to
// before halting. Called once during boot; tests may call it to capture
// the message instead of the real console.
func SetSink(s Sink) {
	mu.Lock()
	defer mu.Unlock()
	sink = s
}

// Panic formats a fatal diagnostic, writes it to the installed sink (or
// stderr if none has been installed), records it in the trace log, and then
// blocks the calling goroutine forever — the hosted equivalent of hlt in a
// loop. "Panic in any task halts the entire kernel": it does not return.
func Panic(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	trc.Writef("PANIC: %s", msg)

	mu.Lock()
	s := sink
	mu.Unlock()
	if s != nil {
		_, _ = s.WriteString("PANIC: " + msg + "\n")
	} else {
		fmt.Fprintln(os.Stderr, "PANIC:", msg)
	}

	select {}
}
