package trap

import (
	"testing"
	"time"

	"github.com/novakernel/novakernel/internal/chipsim"
	"github.com/novakernel/novakernel/internal/chipsim/input"
	"github.com/novakernel/novakernel/internal/console"
	"github.com/novakernel/novakernel/internal/ports"
	"github.com/novakernel/novakernel/internal/sched"
	"github.com/novakernel/novakernel/internal/x86/keyboard"
	"github.com/novakernel/novakernel/internal/x86/pic"
)

func newHarness(t *testing.T) (*sched.Scheduler, *Table, *keyboard.Driver, *input.I8042) {
	t.Helper()
	s := sched.New()
	con := console.New()
	bus := ports.NewSimBus()
	dualPIC := chipsim.NewDualPIC()
	i8042 := input.NewI8042()
	bus.Attach(dualPIC)
	bus.Attach(i8042)

	picDrv := pic.New(bus)
	if err := picDrv.Init(); err != nil {
		t.Fatal(err)
	}

	kbd := keyboard.New(bus, picDrv)
	tb := New(s, con, kbd)
	return s, tb, kbd, i8042
}

func TestDispatchGetPIDReturnsUID(t *testing.T) {
	s, tb, _, _ := newHarness(t)
	task, err := s.Create("getpid", 10, 42, func(inner *sched.Task) {
		got := tb.Dispatch(inner, CallGetPID, 0, 0, 0)
		if got != 42 {
			t.Errorf("getpid = %d, want 42", got)
		}
		s.Exit(inner)
	})
	if err != nil {
		t.Fatal(err)
	}
	s.SetIdle(mustIdle(t, s))
	s.Start()
	waitForState(t, task, sched.StateDied)
}

// klog.Panic never returns (it parks the caller forever instead of
// unwinding), so this only asserts Dispatch never reaches past it.
func TestDispatchUnknownCallPastTableIsFatal(t *testing.T) {
	_, tb, _, _ := newHarness(t)
	task := &sched.Task{}
	done := make(chan struct{})
	go func() {
		tb.Dispatch(task, NumCalls, 0, 0, 0)
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("dispatch of an out-of-range call number should never return")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestReservedCallReturnsSentinel(t *testing.T) {
	s, tb, _, _ := newHarness(t)
	task, err := s.Create("reserved", 10, 1, func(inner *sched.Task) {
		got := tb.Dispatch(inner, 10, 0, 0, 0)
		if got != errNoSys {
			t.Errorf("reserved call = %#x, want %#x", got, errNoSys)
		}
		s.Exit(inner)
	})
	if err != nil {
		t.Fatal(err)
	}
	s.SetIdle(mustIdle(t, s))
	s.Start()
	waitForState(t, task, sched.StateDied)
}

func TestWriteStagesIntoMemoryWindow(t *testing.T) {
	_, tb, _, _ := newHarness(t)
	offset, length := tb.StageWrite("hello")
	if length != 5 {
		t.Fatalf("length = %d, want 5", length)
	}
	if got := string(tb.memory[offset : offset+length]); got != "hello" {
		t.Fatalf("staged memory = %q, want %q", got, "hello")
	}
}

func TestKeyboardReadBlocksUntilNotified(t *testing.T) {
	s, tb, kbd, i8042 := newHarness(t)
	result := make(chan uint32, 1)
	task, err := s.Create("typist", 10, 1, func(inner *sched.Task) {
		b := tb.Dispatch(inner, CallKeyboardRead, 0, 0, 0)
		result <- b
		s.Exit(inner)
	})
	if err != nil {
		t.Fatal(err)
	}
	s.SetIdle(mustIdle(t, s))
	s.Start()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-result:
		t.Fatal("keyboard read returned before any key was queued")
	default:
	}

	i8042.Keyboard().SendKey(0x1E, true)
	if err := kbd.HandleIRQ1(); err != nil {
		t.Fatal(err)
	}

	select {
	case b := <-result:
		if b != 'a' {
			t.Fatalf("keyboard read = %q, want 'a'", b)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("keyboard read never unblocked")
	}
	waitForState(t, task, sched.StateDied)
}

func mustIdle(t *testing.T, s *sched.Scheduler) *sched.Task {
	t.Helper()
	idle, err := s.Create("idle", 0, 0, func(inner *sched.Task) {
		for {
			s.Yield(inner)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	return idle
}

func waitForState(t *testing.T, task *sched.Task, want sched.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if task.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("task %s never reached state %v, stuck at %v", task.Name(), want, task.State())
}
