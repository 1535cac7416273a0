package arena

import (
	"github.com/dynmem/dynmem"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// Monitor scans the entry chain and reports aggregate allocation statistics.
// The fragmentation percentage is available from the returned value's
// FragmentationPercent method and is defined as 0 when the arena holds no
// free bytes at all.
func (a *Arena) Monitor() dynmem.Statistics {
	var stats dynmem.Statistics

	for offset := a.nextEntry(noEntry); offset != noEntry; offset = a.nextEntry(offset) {
		used, size := readHeader(a.buf, offset)
		if used {
			stats.UsedCount++
			continue
		}

		stats.FreeCount++
		stats.TotalFreeBytes += size
		if size > stats.LargestFreeBytes {
			stats.LargestFreeBytes = size
		}
	}

	return stats
}

// AddStatistics sums this arena's statistics into stats.
func (a *Arena) AddStatistics(stats *dynmem.Statistics) {
	arenaStats := a.Monitor()
	stats.AddStatistics(&arenaStats)
}

// AddDetailedStatistics sums this arena's allocation statistics, including
// per-region size extremes, into stats.
func (a *Arena) AddDetailedStatistics(stats *dynmem.DetailedStatistics) {
	stats.ArenaCount++

	_ = a.VisitAllRegions(func(p Ptr, size int, free bool) error {
		if free {
			stats.AddFreeRange(size)
		} else {
			stats.AddAllocation(size)
		}
		return nil
	})
}

// PrintDetailedMap writes a JSON description of the arena to the provided
// writer: block totals followed by one object per entry in chain order. This
// walks the whole chain and is intended for diagnostics, not hot paths.
func (a *Arena) PrintDetailedMap(writer *jwriter.Writer) {
	obj := writer.Object()
	defer obj.End()

	a.BlockJsonData(obj)
}

// BlockJsonData populates an existing json object with this arena's totals
// and entry list, for callers that embed several arenas in one document.
func (a *Arena) BlockJsonData(json jwriter.ObjectState) {
	stats := a.Monitor()

	json.Name("TotalBytes").Int(a.Size())
	json.Name("UnusedBytes").Int(stats.TotalFreeBytes)
	json.Name("Allocations").Int(stats.UsedCount)
	json.Name("UnusedRanges").Int(stats.FreeCount)
	json.Name("FragmentationPercent").Int(stats.FragmentationPercent())

	arr := json.Name("Entries").Array()
	defer arr.End()

	_ = a.VisitAllRegions(func(p Ptr, size int, free bool) error {
		entry := arr.Object()
		defer entry.End()

		entry.Name("Offset").Int(int(p))
		entry.Name("Size").Int(size)
		if free {
			entry.Name("Type").String("FREE")
		} else {
			entry.Name("Type").String("ALLOCATED")
		}

		return nil
	})
}
