// Package heap is the minimal allocator spec.md §6 calls for: a bump/
// freelist allocator over a single caller-supplied arena. No other package
// in this module allocates through it: the console line editor and syscall
// argument staging use their own Go buffers.
package heap

import (
	"fmt"
	"unsafe"
)

// block is a freelist node: an offset/size pair describing a free run of
// bytes within the arena. Freed blocks are merged with an adjacent free
// neighbor when possible to bound fragmentation.
type block struct {
	offset, size uint32
}

// Allocator is a bump allocator with a best-effort freelist: allocation
// first tries to satisfy the request from a free block (first-fit), falling
// back to bumping the high-water mark. Freed memory is coalesced with an
// adjacent free block when the two are contiguous.
type Allocator struct {
	arena []byte
	brk   uint32
	free  []block
}

// New wraps arena (typically a slice carved out of the e820-selected
// region) in a fresh allocator with nothing allocated yet.
func New(arena []byte) *Allocator {
	return &Allocator{arena: arena}
}

// Cap returns the arena's total size in bytes.
func (a *Allocator) Cap() int { return len(a.arena) }

// Alloc returns a size-byte slice of the arena, or an error if the arena is
// exhausted. The returned slice is not zeroed.
func (a *Allocator) Alloc(size uint32) ([]byte, error) {
	if size == 0 {
		return nil, fmt.Errorf("heap: zero-size allocation")
	}

	for i, b := range a.free {
		if b.size >= size {
			a.free[i].offset += size
			a.free[i].size -= size
			if a.free[i].size == 0 {
				a.free = append(a.free[:i], a.free[i+1:]...)
			}
			return a.arena[b.offset : b.offset+size], nil
		}
	}

	if uint32(len(a.arena))-a.brk < size {
		return nil, fmt.Errorf("heap: out of memory allocating %d bytes (cap=%d, used=%d)", size, len(a.arena), a.brk)
	}
	start := a.brk
	a.brk += size
	return a.arena[start : start+size], nil
}

// Free returns buf to the allocator. buf must have been returned by Alloc
// on this Allocator and not already freed.
func (a *Allocator) Free(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	offset, err := a.offsetOf(buf)
	if err != nil {
		return err
	}
	size := uint32(len(buf))

	for i, b := range a.free {
		if b.offset+b.size == offset {
			a.free[i].size += size
			a.coalesceForward(i)
			return nil
		}
		if offset+size == b.offset {
			a.free[i].offset = offset
			a.free[i].size += size
			a.coalesceForward(i)
			return nil
		}
	}
	a.free = append(a.free, block{offset: offset, size: size})
	return nil
}

func (a *Allocator) coalesceForward(i int) {
	merged := a.free[i]
	for j := 0; j < len(a.free); j++ {
		if j == i {
			continue
		}
		if a.free[j].offset == merged.offset+merged.size {
			merged.size += a.free[j].size
			a.free[i] = merged
			a.free = append(a.free[:j], a.free[j+1:]...)
			return
		}
	}
	a.free[i] = merged
}

// offsetOf recovers buf's byte offset within a.arena. buf must share the
// arena's backing array (i.e. have come from Alloc on this Allocator) — the
// same assumption a real bump allocator's Free(ptr) makes about ptr.
func (a *Allocator) offsetOf(buf []byte) (uint32, error) {
	if len(a.arena) == 0 || len(buf) == 0 {
		return 0, fmt.Errorf("heap: cannot locate empty slice in arena")
	}
	base := uintptr(unsafe.Pointer(&a.arena[0]))
	ptr := uintptr(unsafe.Pointer(&buf[0]))
	if ptr < base || ptr >= base+uintptr(len(a.arena)) {
		return 0, fmt.Errorf("heap: freed slice does not belong to this arena")
	}
	return uint32(ptr - base), nil
}
