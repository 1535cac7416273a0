// Package arena implements a fixed-size, first-fit dynamic memory allocator.
//
// An Arena owns a single contiguous byte buffer and manages it as a chain of
// entries laid out back to back, each a 4-byte header followed by its payload.
// There is no free list or index of any kind: every operation walks the chain
// from the start, which keeps behavior fully deterministic for a given call
// sequence. Arenas are values with no shared state, so independent arenas can
// coexist and be exercised in isolation.
//
// Nothing in this package is safe for concurrent use. Callers that share an
// Arena across goroutines must serialize access externally.
package arena

import (
	"context"

	"github.com/dynmem/dynmem"
	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
)

// Ptr is the address of an allocation: the byte offset of an entry's payload
// within the arena buffer. Two distinguished values exist outside the range
// of real payload offsets.
type Ptr int

const (
	// NullPtr is returned by Alloc and Realloc when no free entry of
	// sufficient size exists. It is also the zero value of Ptr.
	NullPtr Ptr = 0
	// ZeroPtr is the canonical pointer returned for zero-byte allocation
	// requests. It is backed by a static cell outside the managed buffer,
	// never enters the entry chain, and is recognized by identity in Free,
	// Realloc, and SizeOf.
	ZeroPtr Ptr = -1
)

// noEntry is the traversal sentinel for "no further entry in the chain".
const noEntry = -1

// MinSize is the smallest valid arena size: one header plus one granule of
// payload.
const MinSize = headerSize + payloadAlign

// Config contains the construction-time inputs of an Arena. None of them can
// be changed after New.
type Config struct {
	// Size is the total arena size in bytes, headers included. It must be a
	// multiple of 4 and at least MinSize. When Backing is provided, Size may
	// be left 0 to take the backing slice's length.
	Size int

	// Backing optionally supplies the buffer the arena manages, for callers
	// that control placement of the memory region. The arena treats it as an
	// opaque byte range. When nil, the arena allocates its own buffer of Size
	// bytes.
	Backing []byte

	// AutoZero causes Alloc to zero-fill each returned region up to the
	// requested (not rounded) size.
	AutoZero bool

	// Logger receives diagnostics such as destructive re-initialization with
	// live allocations. Defaults to slog.Default.
	Logger *slog.Logger
}

// Arena is a fixed-size first-fit allocator over a single byte buffer.
type Arena struct {
	buf      []byte
	autoZero bool
	logger   *slog.Logger

	// zeroCell backs ZeroPtr. It lives outside buf and never contributes to
	// arena accounting.
	zeroCell [headerSize]byte

	initialized bool
}

// New creates an Arena from the provided Config and performs the initial
// reset, leaving the whole buffer as one free entry. The returned Arena is
// ready for allocations.
func New(config Config) (*Arena, error) {
	size := config.Size
	if config.Backing != nil {
		if size == 0 {
			size = len(config.Backing)
		} else if size != len(config.Backing) {
			return nil, errors.Errorf("config.Size is %d but the provided backing slice holds %d bytes", size, len(config.Backing))
		}
	}

	if size < MinSize {
		return nil, errors.Errorf("arena size %d is smaller than the minimum %d", size, MinSize)
	}
	if size%payloadAlign != 0 {
		return nil, errors.Errorf("arena size %d is not a multiple of %d", size, payloadAlign)
	}
	if size-headerSize > maxPayloadSize {
		return nil, errors.Errorf("arena size %d exceeds what a 31-bit entry size can describe", size)
	}

	buf := config.Backing
	if buf == nil {
		buf = make([]byte, size)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &Arena{
		buf:      buf,
		autoZero: config.AutoZero,
		logger:   logger,
	}
	a.Init()

	return a, nil
}

// Init resets the arena to a single free entry spanning the whole buffer
// minus one header. It cannot fail. Re-running Init discards every live
// allocation without validation; outstanding Ptr values become dangling.
func (a *Arena) Init() {
	if a.initialized {
		stats := a.Monitor()
		if stats.UsedCount > 0 {
			a.logger.LogAttrs(context.Background(), slog.LevelWarn, "re-initializing arena with live allocations",
				slog.Int("usedCount", stats.UsedCount),
				slog.Int("arenaSize", len(a.buf)))
		}
	}

	writeHeader(a.buf, 0, false, len(a.buf)-headerSize)
	a.initialized = true
}

// Size returns the total arena size in bytes, headers included.
func (a *Arena) Size() int {
	return len(a.buf)
}

// IsEmpty returns true when the arena holds no live allocations.
func (a *Arena) IsEmpty() bool {
	return a.Monitor().UsedCount == 0
}

// Bytes returns the payload region addressed by p as a byte slice aliasing
// the arena buffer. The view is valid until p is freed, reallocated, or the
// arena is re-initialized. Bytes returns nil for NullPtr and an empty view of
// the static zero cell for ZeroPtr.
func (a *Arena) Bytes(p Ptr) []byte {
	if p == NullPtr {
		return nil
	}
	if p == ZeroPtr {
		return a.zeroCell[:0]
	}

	return a.buf[int(p) : int(p)+a.SizeOf(p)]
}

// nextEntry returns the header offset of the entry after the one at offset,
// or noEntry if it was the last one. Passing noEntry yields the first entry.
// Traversal is pure offset arithmetic over the inline headers.
func (a *Arena) nextEntry(offset int) int {
	if offset == noEntry {
		return 0
	}

	_, size := readHeader(a.buf, offset)
	next := offset + headerSize + size
	if next+headerSize >= len(a.buf) {
		return noEntry
	}

	return next
}

// entryFor maps a payload pointer back to its entry's header offset. The
// header is the fixed-size block immediately preceding the payload.
func entryFor(p Ptr) int {
	return int(p) - headerSize
}

// VisitAllRegions calls visit once per entry in chain order, passing the
// entry's payload pointer, payload size, and whether it is free. Visiting
// stops at the first error, which is returned.
func (a *Arena) VisitAllRegions(visit func(p Ptr, size int, free bool) error) error {
	for offset := a.nextEntry(noEntry); offset != noEntry; offset = a.nextEntry(offset) {
		used, size := readHeader(a.buf, offset)

		err := visit(Ptr(offset+headerSize), size, !used)
		if err != nil {
			return err
		}
	}

	return nil
}

// Validate performs internal consistency checks on the entry chain. When the
// allocator is functioning correctly it cannot return an error; it exists to
// diagnose implementation bugs and is called after every mutation in builds
// with the debug_dynmem tag.
func (a *Arena) Validate() error {
	var coveredBytes int
	prevFree := false

	offset := 0
	for {
		if offset+headerSize > len(a.buf) {
			return errors.Errorf("entry header at offset %d overruns the arena end at %d", offset, len(a.buf))
		}

		used, size := readHeader(a.buf, offset)
		if size == 0 {
			return errors.Errorf("entry at offset %d has a zero-size payload", offset)
		}
		if size%payloadAlign != 0 {
			return errors.Errorf("entry at offset %d has payload size %d, which is not a multiple of %d", offset, size, payloadAlign)
		}

		dataEnd := offset + headerSize + size
		if dataEnd > len(a.buf) {
			return errors.Errorf("entry at offset %d ends at %d, beyond the arena end at %d", offset, dataEnd, len(a.buf))
		}

		if !used && prevFree {
			return errors.Errorf("free entry at offset %d follows another free entry, but adjacent free entries must have been merged", offset)
		}
		prevFree = !used

		coveredBytes += headerSize + size
		if dataEnd == len(a.buf) {
			break
		}
		offset = dataEnd
	}

	if coveredBytes != len(a.buf) {
		return errors.Errorf("the entry chain covers %d bytes, but the arena holds %d", coveredBytes, len(a.buf))
	}

	return nil
}

var _ dynmem.Validatable = (*Arena)(nil)
