//go:build linux && amd64 && hwports

package idt

// timerStub is implemented in stub_amd64.s (see the comment there for what
// it documents versus what actually runs in this module).
func timerStub()

// timerCommonEntry is the Go-side landing pad the asm stub calls into; a
// literal freestanding kernel would instead jump to a shared assembly
// common-entry routine, but nothing here prevents that routine from calling
// back into Go-managed dispatch once segment/GP registers are saved.
func timerCommonEntry() {
	globalTimerTable.Dispatch(&InterruptFrame{Vector: 0x20})
}

// globalTimerTable is the table the hardware-driven timer stub dispatches
// through, installed by SetHardwareTimerTable; nothing in cmd/nova calls it.
var globalTimerTable *Table

// SetHardwareTimerTable installs the table the asm stub above dispatches
// into. Only meaningful when built with the hwports tag.
func SetHardwareTimerTable(t *Table) {
	globalTimerTable = t
}
