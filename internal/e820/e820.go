// Package e820 parses the BIOS INT 0x15, EAX=0xE820 memory map from spec.md
// §6: a count-prefixed array of (base, size, state) triples, state 1 being
// usable RAM. A real freestanding kernel reads this straight out of the
// boot loader's hand-off buffer; here it is parsed from a byte slice the
// boot manifest (or a test) supplies in the same on-wire layout.
package e820

import (
	"encoding/binary"
	"fmt"
)

const (
	// entrySize is 20 bytes: two little-endian uint64s plus a uint32 state,
	// the ACPI 3.0 e820 entry shape.
	entrySize = 20

	// StateUsable marks a region safe to hand to the heap allocator.
	StateUsable uint32 = 1
)

// Region is one decoded e820 entry.
type Region struct {
	Base  uint64
	Size  uint64
	State uint32
}

// Usable reports whether this region may be used as general RAM.
func (r Region) Usable() bool { return r.State == StateUsable }

// End returns the exclusive end address of the region.
func (r Region) End() uint64 { return r.Base + r.Size }

// Parse decodes a count-prefixed (4-byte little-endian count, then that many
// 20-byte entries) buffer into a Region slice.
func Parse(buf []byte) ([]Region, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("e820: buffer too short for count prefix (%d bytes)", len(buf))
	}
	count := binary.LittleEndian.Uint32(buf[0:4])
	buf = buf[4:]
	want := int(count) * entrySize
	if len(buf) < want {
		return nil, fmt.Errorf("e820: buffer has %d bytes, need %d for %d entries", len(buf), want, count)
	}

	regions := make([]Region, count)
	for i := range regions {
		e := buf[i*entrySize : (i+1)*entrySize]
		regions[i] = Region{
			Base:  binary.LittleEndian.Uint64(e[0:8]),
			Size:  binary.LittleEndian.Uint64(e[8:16]),
			State: binary.LittleEndian.Uint32(e[16:20]),
		}
	}
	return regions, nil
}

// LargestUsable returns the largest usable region, matching spec.md §6's
// "the largest usable region is handed to the heap allocator." Precondition
// (spec.md §6): the largest usable region starts at 0x100000 and is 4KB
// aligned — callers should validate that with Region.ValidateHeapBase before
// trusting the result for allocator setup.
func LargestUsable(regions []Region) (Region, bool) {
	var best Region
	found := false
	for _, r := range regions {
		if !r.Usable() {
			continue
		}
		if !found || r.Size > best.Size {
			best = r
			found = true
		}
	}
	return best, found
}

// ValidateHeapBase checks the spec.md §6 precondition: the region starts at
// 0x100000 (the 1MiB mark, past real-mode/BIOS reserved space) and is 4KB
// aligned.
func (r Region) ValidateHeapBase() error {
	const expectedBase = 0x100000
	const pageSize = 0x1000
	if r.Base != expectedBase {
		return fmt.Errorf("e820: largest usable region base %#x, want %#x", r.Base, expectedBase)
	}
	if r.Base%pageSize != 0 {
		return fmt.Errorf("e820: region base %#x not 4KB aligned", r.Base)
	}
	return nil
}
