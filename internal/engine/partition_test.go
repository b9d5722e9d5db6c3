package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartition(t *testing.T) {
	t.Run("uneven tail", func(t *testing.T) {
		ranges := Partition(25, 10)
		require.Equal(t, []Range{{0, 10}, {10, 20}, {20, 25}}, ranges)
	})

	t.Run("exact multiple", func(t *testing.T) {
		ranges := Partition(30, 10)
		require.Equal(t, []Range{{0, 10}, {10, 20}, {20, 30}}, ranges)
	})

	t.Run("single part", func(t *testing.T) {
		ranges := Partition(7, 10)
		require.Equal(t, []Range{{0, 7}}, ranges)
	})

	t.Run("invalid input", func(t *testing.T) {
		require.Nil(t, Partition(0, 10))
		require.Nil(t, Partition(10, 0))
		require.Nil(t, Partition(-1, 10))
	})
}

func TestPartitionCoversFile(t *testing.T) {
	cases := []struct {
		size, partSize int64
	}{
		{1, 1},
		{1, 5 * 1024 * 1024},
		{5 * 1024 * 1024, 5 * 1024 * 1024},
		{5*1024*1024 + 1, 5 * 1024 * 1024},
		{26214400, 10485760}, // 25MB at 10MB parts
		{999, 100},
	}
	for _, tc := range cases {
		ranges := Partition(tc.size, tc.partSize)
		require.NotEmpty(t, ranges)
		require.Equal(t, int64(0), ranges[0].Start)
		require.Equal(t, tc.size, ranges[len(ranges)-1].End)
		for i, r := range ranges {
			require.LessOrEqual(t, r.End-r.Start, tc.partSize)
			require.Greater(t, r.End, r.Start)
			if i > 0 {
				require.Equal(t, ranges[i-1].End, r.Start)
			}
		}
	}
}

func TestPartCount(t *testing.T) {
	require.Equal(t, 1, partCount(1, 10))
	require.Equal(t, 1, partCount(10, 10))
	require.Equal(t, 2, partCount(11, 10))
	require.Equal(t, 3, partCount(26214400, 10485760))
}

func TestPartRange(t *testing.T) {
	require.Equal(t, Range{0, 10}, partRange(1, 25, 10))
	require.Equal(t, Range{10, 20}, partRange(2, 25, 10))
	require.Equal(t, Range{20, 25}, partRange(3, 25, 10))

	// Boundaries match the full partitioning for every part.
	ranges := Partition(9999, 1000)
	for i, want := range ranges {
		require.Equal(t, want, partRange(i+1, 9999, 1000))
	}
}
