package arena

import (
	"github.com/dynmem/dynmem"
)

// Alloc reserves size bytes and returns a pointer to the payload region, or
// NullPtr when no free entry is large enough. A zero-size request returns
// ZeroPtr without touching the arena. Sizes are rounded up to the 4-byte
// granularity, so SizeOf of the result may exceed the requested size.
//
// The scan is first-fit from the chain start: the first free entry that can
// hold the rounded size is taken, which keeps layouts reproducible across
// identical call sequences.
func (a *Arena) Alloc(size int) Ptr {
	if size == 0 {
		return ZeroPtr
	}
	if size < 0 || size > maxPayloadSize {
		return NullPtr
	}

	rounded := dynmem.AlignUp(size, payloadAlign)

	for offset := a.nextEntry(noEntry); offset != noEntry; offset = a.nextEntry(offset) {
		used, entrySize := readHeader(a.buf, offset)
		if used || entrySize < rounded {
			continue
		}

		final := a.truncate(offset, rounded)
		writeHeader(a.buf, offset, true, final)

		p := Ptr(offset + headerSize)
		if a.autoZero {
			// Only the requested bytes are cleared, not the rounded size.
			dynmem.ZeroBytes(a.buf[int(p) : int(p)+size])
		}

		dynmem.DebugValidate(a)
		return p
	}

	return NullPtr
}

// truncate shrinks the free entry at offset to the given payload size and
// carves a new free entry out of the remainder. When the remainder would be a
// bare header with no payload bytes, the entry absorbs the slack instead of
// producing a degenerate free entry. Returns the entry's final payload size.
func (a *Arena) truncate(offset int, size int) int {
	_, current := readHeader(a.buf, offset)

	if current == size+headerSize {
		size += headerSize
	}

	if current != size {
		remainder := offset + headerSize + size
		writeHeader(a.buf, remainder, false, current-size-headerSize)
	}

	writeHeader(a.buf, offset, false, size)

	return size
}

// Free releases the allocation addressed by p. NullPtr and ZeroPtr are
// no-ops. The chain is scanned from the start to locate the entry and its
// predecessor; the freed entry is merged with a free successor and a free
// predecessor, so free memory stays in maximal contiguous runs. A pointer
// that matches no entry's payload start is ignored.
func (a *Arena) Free(p Ptr) {
	if p == NullPtr || p == ZeroPtr {
		return
	}

	target := entryFor(p)

	prev := noEntry
	for offset := a.nextEntry(noEntry); offset != noEntry; offset = a.nextEntry(offset) {
		if offset != target {
			prev = offset
			continue
		}

		_, size := readHeader(a.buf, offset)
		dynmem.WriteFillPattern(a.buf[int(p) : int(p)+size])
		writeHeader(a.buf, offset, false, size)

		next := a.nextEntry(offset)
		if next != noEntry {
			nextUsed, nextSize := readHeader(a.buf, next)
			if !nextUsed {
				size += headerSize + nextSize
				writeHeader(a.buf, offset, false, size)
			}
		}

		if prev != noEntry {
			prevUsed, prevSize := readHeader(a.buf, prev)
			if !prevUsed {
				writeHeader(a.buf, prev, false, prevSize+headerSize+size)
			}
		}

		dynmem.DebugValidate(a)
		return
	}
}

// Realloc moves the allocation at p into a fresh region of newSize bytes. It
// always allocates first: on failure it returns NullPtr and leaves the old
// allocation untouched. On success it copies min(newSize, SizeOf(p)) bytes
// and then frees the old region, whether or not any bytes were copied, so a
// committed Realloc never leaks its source. Realloc never grows or shrinks in
// place.
func (a *Arena) Realloc(p Ptr, newSize int) Ptr {
	newP := a.Alloc(newSize)
	if newP == NullPtr {
		return NullPtr
	}
	if p == NullPtr {
		return newP
	}

	oldSize := a.SizeOf(p)
	if oldSize > 0 && newP != ZeroPtr {
		n := newSize
		if oldSize < n {
			n = oldSize
		}
		copy(a.buf[int(newP):int(newP)+n], a.buf[int(p):int(p)+n])
	}

	a.Free(p)

	return newP
}

// SizeOf returns the payload size in bytes of the entry addressed by p, which
// may exceed the originally requested size due to rounding. ZeroPtr and
// NullPtr report 0, as does any pointer outside the arena's offset range.
func (a *Arena) SizeOf(p Ptr) int {
	if p == NullPtr || p == ZeroPtr {
		return 0
	}

	offset := entryFor(p)
	if offset < 0 || offset+headerSize > len(a.buf) {
		return 0
	}

	_, size := readHeader(a.buf, offset)
	return size
}

// Defragment merges every run of adjacent free entries into a single free
// entry in one forward pass. Free already coalesces on release, so this is
// normally a no-op pass; it stays available as a recovery hook for chains
// produced before coalescing ran.
func (a *Arena) Defragment() {
	offset := a.nextEntry(noEntry)
	for offset != noEntry {
		used, size := readHeader(a.buf, offset)
		next := a.nextEntry(offset)
		if used || next == noEntry {
			offset = next
			continue
		}

		nextUsed, nextSize := readHeader(a.buf, next)
		if nextUsed {
			offset = next
			continue
		}

		// Absorb the free successor and stay put: the run may continue.
		writeHeader(a.buf, offset, false, size+headerSize+nextSize)
	}

	dynmem.DebugValidate(a)
}
