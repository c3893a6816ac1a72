package chipsim

import (
	"sync"
	"time"
)

// irqLine models a legacy ISA IRQ sink (e.g. a PIC input line) that a chip
// like the PIT asserts and deasserts as its internal state changes.
type irqLine interface {
	SetIRQ(line uint8, level bool)
}

// IRQLineFunc adapts a function to the irqLine interface.
type IRQLineFunc func(line uint8, level bool)

// SetIRQ implements irqLine.
func (f IRQLineFunc) SetIRQ(line uint8, level bool) {
	if f != nil {
		f(line, level)
	}
}

type noopIRQLine struct{}

func (noopIRQLine) SetIRQ(uint8, bool) {}

// timerHandle tracks a cancellable periodic callback.
type timerHandle interface {
	Stop()
}

type timerHandleFunc func()

func (f timerHandleFunc) Stop() {
	if f != nil {
		f()
	}
}

type timerFactory func(period time.Duration, cb func()) timerHandle

func defaultTimerFactory(period time.Duration, cb func()) timerHandle {
	if period <= 0 || cb == nil {
		return nil
	}

	stop := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cb()
			case <-stop:
				return
			}
		}
	}()

	return timerHandleFunc(func() {
		once.Do(func() { close(stop) })
	})
}
