// Command nova is the hosted equivalent of rust_main: the bootloader
// hand-off point. It parses a boot manifest, wires the GDT, IDT, PIC, PIT,
// console, and keyboard together over a ports.Bus, creates the initial
// tasks, and starts the scheduler.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/novakernel/novakernel/internal/chipsim"
	"github.com/novakernel/novakernel/internal/chipsim/input"
	"github.com/novakernel/novakernel/internal/console"
	"github.com/novakernel/novakernel/internal/gdt"
	"github.com/novakernel/novakernel/internal/klog"
	"github.com/novakernel/novakernel/internal/ports"
	"github.com/novakernel/novakernel/internal/sched"
	"github.com/novakernel/novakernel/internal/tasks"
	"github.com/novakernel/novakernel/internal/trap"
	"github.com/novakernel/novakernel/internal/x86/keyboard"
	"github.com/novakernel/novakernel/internal/x86/pic"
	"github.com/novakernel/novakernel/internal/x86/rtc"
	"github.com/novakernel/novakernel/internal/x86/timer"
)

// TaskSpec describes one roster entry in the boot manifest: name, priority,
// and uid are the three arguments scheduler.Create needs beyond the entry
// function itself, which the manifest cannot express and main wires by name.
type TaskSpec struct {
	Name     string `yaml:"name"`
	Priority int    `yaml:"priority"`
	UID      int    `yaml:"uid"`
}

// Manifest is the boot-info stand-in spec.md has no room for: in a real
// image these parameters would be baked into the flat binary or passed from
// the bootloader; here they are a typed config loaded once at start.
type Manifest struct {
	JiffyMillis int        `yaml:"jiffy_millis"`
	Hardware    bool       `yaml:"hardware"`
	Tasks       []TaskSpec `yaml:"tasks"`
}

func defaultManifest() Manifest {
	return Manifest{
		JiffyMillis: sched.JiffyMillis,
		Tasks: []TaskSpec{
			{Name: "init", Priority: 10, UID: 0},
			{Name: "shellA", Priority: 5, UID: 1},
			{Name: "shellB", Priority: 5, UID: 2},
			{Name: "shellC", Priority: 5, UID: 3},
		},
	}
}

func loadManifest(path string) (Manifest, error) {
	m := defaultManifest()
	if path == "" {
		return m, nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("nova: reading boot manifest: %w", err)
	}
	if err := yaml.Unmarshal(buf, &m); err != nil {
		return m, fmt.Errorf("nova: parsing boot manifest: %w", err)
	}
	return m, nil
}

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	manifestPath := fs.String("manifest", "", "YAML boot manifest (jiffy rate, initial task roster)")
	runFor := fs.Duration("for", 0, "stop after this long (0 = run forever)")
	attach := fs.Bool("attach", false, "put the host terminal in raw mode and feed its keystrokes to the simulated PS/2 ring")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	manifest, err := loadManifest(*manifestPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if manifest.Hardware {
		fmt.Fprintln(os.Stderr, "nova: hardware bus requires the hwports build tag and CAP_SYS_RAWIO; falling back to the simulated bus")
	}

	con := console.New()
	klog.SetSink(con)

	bus := ports.NewSimBus()
	dualPIC := chipsim.NewDualPIC()
	pitChip := chipsim.NewPIT(dualPIC)
	i8042 := input.NewI8042()
	cmos := chipsim.NewCMOS()
	bus.Attach(dualPIC)
	bus.Attach(pitChip)
	bus.Attach(i8042)
	bus.Attach(cmos)
	bus.Attach(con)

	_ = gdt.New(0, 0) // descriptor table built for completeness; no real CPU to load it into

	picDrv := pic.New(bus)
	if err := picDrv.Init(); err != nil {
		klog.Panic("nova: pic init: %v", err)
	}

	s := sched.New()
	timerDrv := timer.New(bus, picDrv, s)
	if err := timerDrv.Init(); err != nil {
		klog.Panic("nova: timer init: %v", err)
	}

	kbd := keyboard.New(bus, picDrv)
	tb := trap.New(s, con, kbd)
	clock := rtc.New(bus)

	if *attach {
		restore, err := attachTerminal(kbd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "nova: --attach: %v (continuing without a live keyboard)\n", err)
		} else {
			defer restore()
		}
	}

	spawnShell := func() {
		if _, err := s.Create("shell", 5, 99, tasks.Shell(s, tb, clock)); err != nil {
			klog.Panic("nova: spawning shell: %v", err)
		}
	}

	for _, spec := range manifest.Tasks {
		var entry func(*sched.Task)
		switch spec.Name {
		case "init":
			entry = tasks.Init(s, tb, spawnShell)
		case "shellA":
			entry = tasks.LetterPrinter(s, tb, 'A')
		case "shellB":
			entry = tasks.LetterPrinter(s, tb, 'B')
		case "shellC":
			entry = tasks.LetterPrinter(s, tb, 'C')
		default:
			fmt.Fprintf(os.Stderr, "nova: unknown task %q in boot manifest, skipping\n", spec.Name)
			continue
		}
		if _, err := s.Create(spec.Name, spec.Priority, spec.UID, entry); err != nil {
			klog.Panic("nova: creating task %q: %v", spec.Name, err)
		}
	}

	idle, err := s.Create("idle", 0, 0, tasks.Idle(s))
	if err != nil {
		klog.Panic("nova: creating idle task: %v", err)
	}
	s.SetIdle(idle)
	s.Start()

	driveTimerIRQ(timerDrv, time.Duration(manifest.JiffyMillis)*time.Millisecond, *runFor)
}

// attachTerminal puts stdin in raw mode so keystrokes reach kbd unbuffered
// and unechoed, the nearest host equivalent of owning the only PS/2
// keyboard in the room, and starts forwarding bytes to kbd.InjectByte. The
// returned func restores the terminal's original mode.
func attachTerminal(kbd *keyboard.Driver) (func(), error) {
	fd := int(os.Stdin.Fd())
	prev, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("putting stdin in raw mode: %w", err)
	}
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n > 0 {
				kbd.InjectByte(buf[0])
			}
		}
	}()
	return func() { _ = term.Restore(fd, prev) }, nil
}

// driveTimerIRQ is the hosted stand-in for the CPU noticing the PIC's INTR
// line and vectoring to the timer ISR: cmd/nova has no hardware interrupt
// pin, so it calls timerDrv.HandleIRQ0 directly on a ticker instead of
// polling chipsim.DualPIC.Acknowledge. runFor == 0 runs until the process
// is killed, matching a kernel that never returns from its idle loop.
func driveTimerIRQ(timerDrv *timer.Timer, period time.Duration, runFor time.Duration) {
	if period <= 0 {
		period = time.Duration(sched.JiffyMillis) * time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if runFor > 0 {
		deadline = time.After(runFor)
	}

	for {
		select {
		case <-ticker.C:
			timerDrv.HandleIRQ0()
		case <-deadline:
			return
		}
	}
}
