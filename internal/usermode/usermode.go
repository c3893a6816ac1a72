// Package usermode is the kernel->user transition from spec.md §4.8:
// task_to_user_mode(fn) builds a synthetic iret frame — user ss, user esp,
// eflags with IF=1, user cs, eip=fn — and iret drops the CPU to Ring 3.
// There is no CPU here to iret on, so the frame is modeled as a privilege
// tag carried alongside the task rather than literal stack bytes; what
// survives the hosted substitution is the one thing other modules actually
// depend on, the answer to "is this task running at Ring 3."
package usermode

import (
	"sync"

	"github.com/novakernel/novakernel/internal/sched"
)

// Ring is the x86 privilege level a task executes at.
type Ring int

const (
	Ring0 Ring = 0
	Ring3 Ring = 3
)

// Frame is the synthetic iret frame task_to_user_mode prepares, spec.md
// §4.8's "high to low: user ss, user esp, eflags (IF=1), user cs, eip=fn".
// EIP carries the user entry point instead of a literal code-segment
// address, since this kernel's "user code" is still a Go function value.
type Frame struct {
	Ring     Ring
	EFlagsIF bool
	EIP      func(*sched.Task)
}

var (
	mu     sync.Mutex
	levels = map[*sched.Task]Ring{}
)

// ToUserMode wraps fn the way task_to_user_mode wraps the first user task's
// body: the returned entry point is what scheduler.Create actually runs,
// recording t at Ring 3 before fn ever executes so CurrentRing reflects the
// transition for the task's entire lifetime, matching "the first user task
// is hard-coded as the body of init" — init itself never runs at Ring 0.
func ToUserMode(fn func(t *sched.Task)) func(t *sched.Task) {
	return func(t *sched.Task) {
		Enter(t, Frame{Ring: Ring3, EFlagsIF: true, EIP: fn})
		fn(t)
	}
}

// Enter records t's privilege transition. Kernel-mode tasks (the idle loop)
// never call this and default to Ring0 in CurrentRing.
func Enter(t *sched.Task, f Frame) {
	mu.Lock()
	defer mu.Unlock()
	levels[t] = f.Ring
}

// CurrentRing reports the privilege level t was last transitioned to,
// Ring0 if it never went through ToUserMode/Enter.
func CurrentRing(t *sched.Task) Ring {
	mu.Lock()
	defer mu.Unlock()
	if r, ok := levels[t]; ok {
		return r
	}
	return Ring0
}

// IsUserMode reports whether t runs at Ring 3. The syscall trap does not
// consult it.
func IsUserMode(t *sched.Task) bool {
	return CurrentRing(t) == Ring3
}

// Forget drops t's recorded privilege level. Tasks are not reclaimed
// (spec.md §3 Lifecycle), but tests that create many short-lived tasks can
// use this to keep the registry from growing unbounded across runs.
func Forget(t *sched.Task) {
	mu.Lock()
	defer mu.Unlock()
	delete(levels, t)
}
