package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(ts int64) TelemetryFrame {
	return TelemetryFrame{
		Timestamp:    ts,
		ChannelCount: 2,
		Samples:      []float64{float64(ts), float64(ts) + 0.5},
	}
}

func timestamps(frames []TelemetryFrame) []int64 {
	out := make([]int64, len(frames))
	for i, f := range frames {
		out[i] = f.Timestamp
	}
	return out
}

func TestFrameBuffer_AppendWithinCapacity(t *testing.T) {
	b := NewFrameBuffer(5)

	for i := int64(1); i <= 3; i++ {
		evicted := b.Append(frame(i))
		assert.Zero(t, evicted)
	}

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, uint64(3), b.Appended())
	assert.Equal(t, uint64(0), b.Evicted())
	assert.Equal(t, []int64{1, 2, 3}, timestamps(b.Last(10)))
}

func TestFrameBuffer_EvictsOldestFirst(t *testing.T) {
	b := NewFrameBuffer(3)

	// M > N frames: exactly the last N survive, in original order.
	for i := int64(1); i <= 5; i++ {
		b.Append(frame(i))
	}

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, uint64(5), b.Appended())
	assert.Equal(t, uint64(2), b.Evicted())
	assert.Equal(t, []int64{3, 4, 5}, timestamps(b.Last(10)))

	// Frames 1 and 2 are unrecoverable.
	assert.NotContains(t, timestamps(b.Last(b.Len())), int64(1))
	assert.NotContains(t, timestamps(b.Last(b.Len())), int64(2))
}

func TestFrameBuffer_LastSubset(t *testing.T) {
	b := NewFrameBuffer(4)
	for i := int64(1); i <= 4; i++ {
		b.Append(frame(i))
	}

	assert.Equal(t, []int64{3, 4}, timestamps(b.Last(2)))
	assert.Empty(t, b.Last(0))
	assert.Empty(t, b.Last(-1))
}

func TestFrameBuffer_GrowCapacityKeepsHistory(t *testing.T) {
	b := NewFrameBuffer(2)
	for i := int64(1); i <= 5; i++ {
		b.Append(frame(i))
	}
	require.Equal(t, []int64{4, 5}, timestamps(b.Last(10)))

	b.SetCapacity(4)
	b.Append(frame(6))
	b.Append(frame(7))

	assert.Equal(t, 4, b.Len())
	assert.Equal(t, []int64{4, 5, 6, 7}, timestamps(b.Last(10)))
}

func TestFrameBuffer_ShrinkCapacityOnlyAffectsFutureAppends(t *testing.T) {
	b := NewFrameBuffer(5)
	for i := int64(1); i <= 5; i++ {
		b.Append(frame(i))
	}

	// Shrinking never truncates history by itself.
	b.SetCapacity(2)
	assert.Equal(t, 5, b.Len())
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, timestamps(b.Last(10)))

	// The next append evicts the surplus, oldest first.
	b.Append(frame(6))
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, []int64{5, 6}, timestamps(b.Last(10)))
}

func TestFrameBuffer_WrapsAround(t *testing.T) {
	b := NewFrameBuffer(3)
	for i := int64(1); i <= 100; i++ {
		b.Append(frame(i))
	}

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, uint64(100), b.Appended())
	assert.Equal(t, []int64{98, 99, 100}, timestamps(b.Last(3)))
}
