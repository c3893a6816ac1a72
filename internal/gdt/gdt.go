// Package gdt is a data-only layout helper for the GDT/TSS descriptor table
// that internal/idt and internal/usermode reference for selector values.
// It performs the same bitfield packing as the original implementation's
// GDT descriptor type, without modeling the literal `lgdt` load — in hosted
// mode there is no CPU segment unit to load it into, but the selector
// numbers it computes are exactly what a real build would put in CS/SS.
package gdt

// Descriptor is one packed 8-byte GDT entry, encoded with the same bitfield
// layout x86 segment descriptors use (limit/base split, type, DPL,
// present, granularity). Field accessors mirror the setter/getter pairs a
// freestanding implementation would need to build this by hand.
type Descriptor struct {
	value uint64
}

func (d *Descriptor) SetLimitLow(v uint16) {
	d.value = (d.value &^ 0xFFFF) | uint64(v)
}
func (d *Descriptor) LimitLow() uint16 { return uint16(d.value & 0xFFFF) }

func (d *Descriptor) SetBaseLow(v uint32) {
	d.value = (d.value &^ (0xFFFFFF << 16)) | (uint64(v&0xFFFFFF) << 16)
}
func (d *Descriptor) BaseLow() uint32 { return uint32((d.value >> 16) & 0xFFFFFF) }

func (d *Descriptor) SetType(v uint8) {
	d.value = (d.value &^ (0xF << 40)) | (uint64(v&0xF) << 40)
}
func (d *Descriptor) Type() uint8 { return uint8((d.value >> 40) & 0xF) }

func (d *Descriptor) SetSegment(v bool) { d.setBit(44, v) }
func (d *Descriptor) Segment() bool     { return d.bit(44) }

func (d *Descriptor) SetDPL(v uint8) {
	d.value = (d.value &^ (0x3 << 45)) | (uint64(v&0x3) << 45)
}
func (d *Descriptor) DPL() uint8 { return uint8((d.value >> 45) & 0x3) }

func (d *Descriptor) SetPresent(v bool) { d.setBit(47, v) }
func (d *Descriptor) Present() bool     { return d.bit(47) }

func (d *Descriptor) SetGranularity(v bool) { d.setBit(55, v) }
func (d *Descriptor) Granularity() bool     { return d.bit(55) }

func (d *Descriptor) Value() uint64 { return d.value }

func (d *Descriptor) setBit(bit uint, v bool) {
	if v {
		d.value |= 1 << bit
	} else {
		d.value &^= 1 << bit
	}
}
func (d *Descriptor) bit(bit uint) bool { return (d.value>>bit)&1 == 1 }

// Selector indices, matching the convention internal/idt and
// internal/usermode use for CS/SS values.
const (
	NullSelector     uint16 = 0x00
	KernelCodeSelector uint16 = 0x08
	KernelDataSelector uint16 = 0x10
	UserCodeSelector   uint16 = 0x18 | 3 // RPL=3
	UserDataSelector   uint16 = 0x20 | 3
	TSSSelector        uint16 = 0x28
)

const (
	typeCodeExecRead = 0xA
	typeDataReadWrite = 0x2
	typeTSSAvailable  = 0x9
)

// Table is the fixed-size GDT: null, kernel code, kernel data, user code,
// user data, and one TSS descriptor.
type Table struct {
	entries [6]Descriptor
}

// New builds a flat (base=0, limit=0xFFFFF, 4K granularity) GDT with the
// selectors above, plus a TSS descriptor pointing at tssBase/tssLimit.
func New(tssBase uint32, tssLimit uint16) *Table {
	t := &Table{}

	t.entries[1] = flatDescriptor(typeCodeExecRead, 0)
	t.entries[2] = flatDescriptor(typeDataReadWrite, 0)
	t.entries[3] = flatDescriptor(typeCodeExecRead, 3)
	t.entries[4] = flatDescriptor(typeDataReadWrite, 3)

	var tss Descriptor
	tss.SetLimitLow(tssLimit)
	tss.SetBaseLow(tssBase)
	tss.SetType(typeTSSAvailable)
	tss.SetDPL(0)
	tss.SetPresent(true)
	t.entries[5] = tss

	return t
}

func flatDescriptor(typ, dpl uint8) Descriptor {
	var d Descriptor
	d.SetLimitLow(0xFFFF)
	d.value |= 0xF << 48 // limit bits 16-19
	d.SetBaseLow(0)
	d.SetType(typ)
	d.SetSegment(true)
	d.SetDPL(dpl)
	d.SetPresent(true)
	d.SetGranularity(true)
	return d
}

// Entries exposes the packed descriptors for inspection/testing.
func (t *Table) Entries() [6]Descriptor { return t.entries }
