// Package kmutex is the scheduler-aware mutex from spec.md §4.6: a mutex
// that blocks contending tasks through the scheduler's own Block/Unblock
// primitives rather than a host OS futex, so a task waiting on a kmutex is
// visible to task_search exactly like a task waiting on any other queue.
//
// The real mutex documents "all mutations of locked and the wait queue
// occur with IF=0"; here that's the scheduler's single-monitor-token
// invariant (see internal/sched's package doc) — at most one task's
// goroutine is ever actually executing Lock/Unlock logic at a time, so the
// plain `locked bool` below needs no lock of its own.
package kmutex

import (
	"github.com/novakernel/novakernel/internal/debug"
	"github.com/novakernel/novakernel/internal/klist"
	"github.com/novakernel/novakernel/internal/sched"
)

var trc = debug.WithSource("kmutex")

// Mutex guards a value of type T behind the scheduler-aware lock described
// above.
type Mutex[T any] struct {
	sched  *sched.Scheduler
	locked bool
	waitQ  klist.List
	value  T
}

// New returns an unlocked mutex guarding initial.
func New[T any](s *sched.Scheduler, initial T) *Mutex[T] {
	return &Mutex[T]{sched: s, value: initial}
}

// Guard is returned by Lock and must be released with Unlock by the same
// task that acquired it.
type Guard[T any] struct {
	m *Mutex[T]
}

// Value returns a pointer to the guarded value, valid until Unlock.
func (g *Guard[T]) Value() *T { return &g.m.value }

// Lock implements spec.md §4.6 lock(): loop while locked is true, blocking
// t on the wait queue each pass, until the lock is free; then claim it and
// return a guard. Block already performs the reschedule when t is current,
// so a contended Lock call parks t and resumes this loop exactly once the
// mutex is unlocked and t has been chosen to run again.
func (m *Mutex[T]) Lock(t *sched.Task) *Guard[T] {
	for {
		if !m.locked {
			m.locked = true
			trc.Writef("lock: %s acquired", t.Name())
			return &Guard[T]{m: m}
		}
		trc.Writef("lock: %s contended, blocking", t.Name())
		m.sched.Block(t, sched.StateBlocked, &m.waitQ)
	}
}

// TryLock attempts to acquire without blocking, returning (guard, true) on
// success or (nil, false) if already locked.
func (m *Mutex[T]) TryLock() (*Guard[T], bool) {
	if m.locked {
		return nil, false
	}
	m.locked = true
	return &Guard[T]{m: m}, true
}

// Unlock implements spec.md §4.6 unlock(): clears locked, and if the wait
// queue is non-empty, unblocks the tail-most waiter and yields so it gets
// a chance to run before t continues.
func (g *Guard[T]) Unlock(t *sched.Task) {
	m := g.m
	m.locked = false
	if tail := m.waitQ.Back(); tail != nil {
		waiter := sched.TaskFromNode(tail)
		trc.Writef("unlock: %s handing off to %s", t.Name(), waiter.Name())
		m.sched.Unblock(waiter, &m.waitQ)
		m.sched.Yield(t)
		return
	}
	trc.Writef("unlock: %s, no waiters", t.Name())
}
