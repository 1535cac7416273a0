package dynmem

import "math"

// Statistics describes the allocation state of a single arena as reported by
// arena.Arena.Monitor: entry counts plus the total and largest contiguous
// free payload sizes in bytes.
type Statistics struct {
	UsedCount        int
	FreeCount        int
	TotalFreeBytes   int
	LargestFreeBytes int
}

func (s *Statistics) Clear() {
	s.UsedCount = 0
	s.FreeCount = 0
	s.TotalFreeBytes = 0
	s.LargestFreeBytes = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.UsedCount += other.UsedCount
	s.FreeCount += other.FreeCount
	s.TotalFreeBytes += other.TotalFreeBytes

	if other.LargestFreeBytes > s.LargestFreeBytes {
		s.LargestFreeBytes = other.LargestFreeBytes
	}
}

// FragmentationPercent reports how scattered the free memory is:
// 0 means all free memory forms a single contiguous block, values approaching
// 100 mean free memory is split across many small blocks. When there are no
// free bytes at all there is nothing to fragment and the result is 0.
func (s *Statistics) FragmentationPercent() int {
	if s.TotalFreeBytes == 0 {
		return 0
	}

	return 100 - s.LargestFreeBytes*100/s.TotalFreeBytes
}

// DetailedStatistics extends Statistics with per-region size extremes and an
// arena count, for aggregation across several arenas.
type DetailedStatistics struct {
	Statistics
	ArenaCount        int
	AllocationSizeMin int
	AllocationSizeMax int
	FreeSizeMin       int
	FreeSizeMax       int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.ArenaCount = 0
	s.AllocationSizeMin = math.MaxInt
	s.AllocationSizeMax = 0
	s.FreeSizeMin = math.MaxInt
	s.FreeSizeMax = 0
}

func (s *DetailedStatistics) AddAllocation(size int) {
	s.UsedCount++

	if size < s.AllocationSizeMin {
		s.AllocationSizeMin = size
	}

	if size > s.AllocationSizeMax {
		s.AllocationSizeMax = size
	}
}

func (s *DetailedStatistics) AddFreeRange(size int) {
	s.FreeCount++
	s.TotalFreeBytes += size

	if size > s.LargestFreeBytes {
		s.LargestFreeBytes = size
	}

	if size < s.FreeSizeMin {
		s.FreeSizeMin = size
	}

	if size > s.FreeSizeMax {
		s.FreeSizeMax = size
	}
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.ArenaCount += other.ArenaCount

	if other.AllocationSizeMin < s.AllocationSizeMin {
		s.AllocationSizeMin = other.AllocationSizeMin
	}

	if other.AllocationSizeMax > s.AllocationSizeMax {
		s.AllocationSizeMax = other.AllocationSizeMax
	}

	if other.FreeSizeMin < s.FreeSizeMin {
		s.FreeSizeMin = other.FreeSizeMin
	}

	if other.FreeSizeMax > s.FreeSizeMax {
		s.FreeSizeMax = other.FreeSizeMax
	}
}
