package backfill

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDateChunksContiguous(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)

	windows := GenerateDateChunks(start, end, 3*24*time.Hour)
	require.Len(t, windows, 4)

	assert.True(t, windows[0].Start.Equal(start))
	for i := 1; i < len(windows); i++ {
		assert.True(t, windows[i].Start.Equal(windows[i-1].End), "window %d not contiguous", i)
	}
	assert.True(t, windows[len(windows)-1].End.Equal(end), "final window must end exactly at the range end")
}

func TestGenerateDateChunksExactMultiple(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(6 * 24 * time.Hour)

	windows := GenerateDateChunks(start, end, 3*24*time.Hour)
	require.Len(t, windows, 2)
	assert.True(t, windows[1].End.Equal(end))
}

func TestGenerateDateChunksDegenerateRanges(t *testing.T) {
	now := time.Now()
	assert.Nil(t, GenerateDateChunks(now, now, time.Hour))
	assert.Nil(t, GenerateDateChunks(now, now.Add(-time.Hour), time.Hour))
	assert.Nil(t, GenerateDateChunks(now, now.Add(time.Hour), 0))
}
