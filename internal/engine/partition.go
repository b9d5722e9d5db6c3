package engine

// Range is one half-open byte range [Start, End) of a partitioned file.
type Range struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Partition splits sizeBytes into contiguous ranges of partSize bytes,
// the final range truncated to the file end. Pure; the same inputs
// always yield the same plan.
func Partition(sizeBytes, partSize int64) []Range {
	if sizeBytes <= 0 || partSize <= 0 {
		return nil
	}

	count := partCount(sizeBytes, partSize)
	ranges := make([]Range, 0, count)
	for start := int64(0); start < sizeBytes; start += partSize {
		end := start + partSize
		if end > sizeBytes {
			end = sizeBytes
		}
		ranges = append(ranges, Range{Start: start, End: end})
	}
	return ranges
}

// partCount is ceil(sizeBytes / partSize).
func partCount(sizeBytes, partSize int64) int {
	return int((sizeBytes + partSize - 1) / partSize)
}

// partRange returns the byte range of part n (1-based) in a file of
// sizeBytes partitioned at partSize. Boundaries are derived from the
// original partitioning, never recomputed from a different base.
func partRange(n int, sizeBytes, partSize int64) Range {
	start := int64(n-1) * partSize
	end := start + partSize
	if end > sizeBytes {
		end = sizeBytes
	}
	return Range{Start: start, End: end}
}
