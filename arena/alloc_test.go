package arena_test

import (
	"encoding/binary"
	"testing"

	"github.com/dynmem/dynmem"
	"github.com/dynmem/dynmem/arena"
	"github.com/stretchr/testify/require"
)

func newTestArena(t *testing.T, size int) *arena.Arena {
	t.Helper()

	a, err := arena.New(arena.Config{Size: size})
	require.NoError(t, err)
	return a
}

func TestAllocZeroSizeIdentity(t *testing.T) {
	a := newTestArena(t, 1024)

	before := a.Monitor()

	p1 := a.Alloc(0)
	p2 := a.Alloc(0)
	require.Equal(t, arena.ZeroPtr, p1)
	require.Equal(t, p1, p2)
	require.Equal(t, 0, a.SizeOf(p1))

	a.Free(p1)

	require.Equal(t, before, a.Monitor())
	require.NoError(t, a.Validate())
}

func TestFreeNullIsNoOp(t *testing.T) {
	a := newTestArena(t, 1024)

	before := a.Monitor()
	a.Free(arena.NullPtr)

	require.Equal(t, before, a.Monitor())
	require.NoError(t, a.Validate())
}

func TestAllocRoundsUpAndSplits(t *testing.T) {
	a := newTestArena(t, 1024)

	p := a.Alloc(10)
	require.Equal(t, arena.Ptr(4), p)
	require.Equal(t, 12, a.SizeOf(p))

	require.Equal(t, dynmem.Statistics{
		UsedCount:        1,
		FreeCount:        1,
		TotalFreeBytes:   1004,
		LargestFreeBytes: 1004,
	}, a.Monitor())
	require.NoError(t, a.Validate())
}

func TestAllocExactRemainderLeavesNoFreeEntry(t *testing.T) {
	a := newTestArena(t, 1024)

	p := a.Alloc(10)
	require.NotEqual(t, arena.NullPtr, p)

	// The remainder is exactly 1004 bytes; taking all of it must not leave a
	// degenerate free entry behind.
	q := a.Alloc(1004)
	require.NotEqual(t, arena.NullPtr, q)
	require.Equal(t, 1004, a.SizeOf(q))

	stats := a.Monitor()
	require.Equal(t, dynmem.Statistics{
		UsedCount: 2,
	}, stats)
	require.Equal(t, 0, stats.FragmentationPercent())
	require.NoError(t, a.Validate())
}

func TestAllocAbsorbsHeaderSizedSlack(t *testing.T) {
	a := newTestArena(t, 1024)

	p := a.Alloc(10)
	require.NotEqual(t, arena.NullPtr, p)

	// The remainder is 1004 bytes. Requesting 1000 would leave room for a
	// header and nothing else, so the allocation absorbs the slack instead.
	q := a.Alloc(1000)
	require.NotEqual(t, arena.NullPtr, q)
	require.Equal(t, 1004, a.SizeOf(q))

	require.Equal(t, dynmem.Statistics{
		UsedCount: 2,
	}, a.Monitor())
	require.NoError(t, a.Validate())
}

func TestAllocSizeContract(t *testing.T) {
	a := newTestArena(t, 4096)

	for n := 1; n <= 64; n++ {
		p := a.Alloc(n)
		require.NotEqualf(t, arena.NullPtr, p, "allocation of %d bytes failed", n)
		require.GreaterOrEqual(t, a.SizeOf(p), n)
		require.Zero(t, a.SizeOf(p)%4)
		a.Free(p)
	}

	require.NoError(t, a.Validate())
	require.True(t, a.IsEmpty())
}

func TestAllocFailureLeavesChainUntouched(t *testing.T) {
	a := newTestArena(t, 1024)

	p := a.Alloc(512)
	require.NotEqual(t, arena.NullPtr, p)
	before := a.Monitor()

	require.Equal(t, arena.NullPtr, a.Alloc(2048))
	require.Equal(t, arena.NullPtr, a.Alloc(1021))
	require.Equal(t, arena.NullPtr, a.Alloc(-1))

	require.Equal(t, before, a.Monitor())
	require.NoError(t, a.Validate())
}

func chainLayout(t *testing.T, a *arena.Arena) []int {
	t.Helper()

	var layout []int
	err := a.VisitAllRegions(func(p arena.Ptr, size int, free bool) error {
		entry := size
		if free {
			entry = -size
		}
		layout = append(layout, int(p), entry)
		return nil
	})
	require.NoError(t, err)
	return layout
}

func TestFirstFitIsDeterministic(t *testing.T) {
	run := func() []int {
		a := newTestArena(t, 2048)

		p1 := a.Alloc(100)
		p2 := a.Alloc(60)
		p3 := a.Alloc(200)
		a.Free(p1)
		p4 := a.Alloc(40)
		a.Free(p3)
		a.Alloc(300)
		a.Free(p2)
		a.Free(p4)
		a.Alloc(20)

		require.NoError(t, a.Validate())
		return chainLayout(t, a)
	}

	require.Equal(t, run(), run())
}

func TestFreeCoalescesNeighbors(t *testing.T) {
	orders := [][]int{
		{0, 1, 2},
		{2, 1, 0},
		{0, 2, 1},
		{1, 0, 2},
		{1, 2, 0},
		{2, 0, 1},
	}

	for _, order := range orders {
		a := newTestArena(t, 1024)

		ptrs := []arena.Ptr{a.Alloc(100), a.Alloc(100), a.Alloc(100)}
		for _, p := range ptrs {
			require.NotEqual(t, arena.NullPtr, p)
		}

		for _, i := range order {
			a.Free(ptrs[i])
			require.NoError(t, a.Validate())
		}

		// Whatever the release order, the arena collapses back to one free
		// entry spanning everything.
		require.Equal(t, dynmem.Statistics{
			FreeCount:        1,
			TotalFreeBytes:   1020,
			LargestFreeBytes: 1020,
		}, a.Monitor())
	}
}

func TestFreeUnknownPointerIsIgnored(t *testing.T) {
	a := newTestArena(t, 1024)

	p := a.Alloc(100)
	require.NotEqual(t, arena.NullPtr, p)
	before := a.Monitor()

	// Offset 8 is inside p's payload, not an entry's data start.
	a.Free(arena.Ptr(8))

	require.Equal(t, before, a.Monitor())
	require.NoError(t, a.Validate())
}

func TestDoubleFreeIsSilent(t *testing.T) {
	a := newTestArena(t, 1024)

	p := a.Alloc(100)
	q := a.Alloc(100)
	require.NotEqual(t, arena.NullPtr, q)

	a.Free(p)
	after := a.Monitor()

	a.Free(p)
	require.Equal(t, after, a.Monitor())
	require.NoError(t, a.Validate())
}

func TestReallocRoundTrip(t *testing.T) {
	a := newTestArena(t, 1024)

	p := a.Alloc(16)
	require.NotEqual(t, arena.NullPtr, p)
	copy(a.Bytes(p), "0123456789abcdef")

	q := a.Realloc(p, a.SizeOf(p))
	require.NotEqual(t, arena.NullPtr, q)
	require.Equal(t, []byte("0123456789abcdef"), a.Bytes(q)[:16])

	// The source entry was released as part of the move.
	require.Equal(t, 1, a.Monitor().UsedCount)
	require.NoError(t, a.Validate())
}

func TestReallocGrowPreservesPrefix(t *testing.T) {
	a := newTestArena(t, 1024)

	p := a.Alloc(8)
	copy(a.Bytes(p), "12345678")

	q := a.Realloc(p, 32)
	require.NotEqual(t, arena.NullPtr, q)
	require.GreaterOrEqual(t, a.SizeOf(q), 32)
	require.Equal(t, []byte("12345678"), a.Bytes(q)[:8])
	require.Equal(t, 1, a.Monitor().UsedCount)
}

func TestReallocShrinkTruncates(t *testing.T) {
	a := newTestArena(t, 1024)

	p := a.Alloc(32)
	copy(a.Bytes(p), "abcdefghijklmnopqrstuvwxyz012345")

	q := a.Realloc(p, 8)
	require.NotEqual(t, arena.NullPtr, q)
	require.Equal(t, []byte("abcdefgh"), a.Bytes(q)[:8])
	require.Equal(t, 1, a.Monitor().UsedCount)
}

func TestReallocFailureLeavesSource(t *testing.T) {
	a := newTestArena(t, 128)

	p := a.Alloc(64)
	require.NotEqual(t, arena.NullPtr, p)
	copy(a.Bytes(p), "keep me")

	q := a.Realloc(p, 4096)
	require.Equal(t, arena.NullPtr, q)

	require.Equal(t, 64, a.SizeOf(p))
	require.Equal(t, []byte("keep me"), a.Bytes(p)[:7])
	require.NoError(t, a.Validate())
}

func TestReallocFromNull(t *testing.T) {
	a := newTestArena(t, 1024)

	p := a.Realloc(arena.NullPtr, 12)
	require.NotEqual(t, arena.NullPtr, p)
	require.Equal(t, 12, a.SizeOf(p))
	require.Equal(t, 1, a.Monitor().UsedCount)
}

func TestReallocToZeroFreesSource(t *testing.T) {
	a := newTestArena(t, 1024)

	p := a.Alloc(100)
	require.NotEqual(t, arena.NullPtr, p)

	q := a.Realloc(p, 0)
	require.Equal(t, arena.ZeroPtr, q)
	require.True(t, a.IsEmpty())
	require.NoError(t, a.Validate())
}

func TestAutoZeroClearsRequestedBytes(t *testing.T) {
	a, err := arena.New(arena.Config{Size: 1024, AutoZero: true})
	require.NoError(t, err)

	p := a.Alloc(64)
	payload := a.Bytes(p)
	for i := range payload {
		payload[i] = 0xAB
	}
	a.Free(p)

	q := a.Alloc(64)
	require.Equal(t, p, q)
	for i, b := range a.Bytes(q)[:64] {
		require.Zerof(t, b, "byte %d was not zeroed", i)
	}
}

func TestDefragmentMergesAdjacentFreeRuns(t *testing.T) {
	backing := make([]byte, 64)
	a, err := arena.New(arena.Config{Backing: backing})
	require.NoError(t, err)

	// Hand-craft a chain with two adjacent free entries, a state the public
	// API no longer produces since Free coalesces: free 12, free 12, used 28.
	binary.LittleEndian.PutUint32(backing[0:], 12<<1)
	binary.LittleEndian.PutUint32(backing[16:], 12<<1)
	binary.LittleEndian.PutUint32(backing[32:], 28<<1|1)

	a.Defragment()

	require.NoError(t, a.Validate())
	require.Equal(t, dynmem.Statistics{
		UsedCount:        1,
		FreeCount:        1,
		TotalFreeBytes:   28,
		LargestFreeBytes: 28,
	}, a.Monitor())
}

func TestDefragmentOnHealthyChainIsNoOp(t *testing.T) {
	a := newTestArena(t, 1024)

	p1 := a.Alloc(100)
	a.Alloc(60)
	a.Free(p1)
	before := chainLayout(t, a)

	a.Defragment()

	require.Equal(t, before, chainLayout(t, a))
	require.NoError(t, a.Validate())
}
