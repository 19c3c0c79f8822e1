package domain

// FrameBuffer is a bounded FIFO of telemetry frames. When an append would
// exceed the capacity the oldest frames are evicted first; there is no
// sampling or decimation. Not safe for concurrent use; the coordinator
// loop is the only writer.
type FrameBuffer struct {
	frames   []TelemetryFrame
	head     int
	count    int
	capacity int
	appended uint64
}

func NewFrameBuffer(capacity int) *FrameBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &FrameBuffer{
		frames:   make([]TelemetryFrame, capacity),
		capacity: capacity,
	}
}

// Append adds a frame, evicting from the head as needed to keep the length
// within capacity. Returns the number of frames evicted by this append.
func (b *FrameBuffer) Append(f TelemetryFrame) int {
	evicted := 0
	for b.count > 0 && b.count >= b.capacity {
		b.head = (b.head + 1) % len(b.frames)
		b.count--
		evicted++
	}
	tail := (b.head + b.count) % len(b.frames)
	b.frames[tail] = f
	b.count++
	b.appended++
	return evicted
}

// Len returns the number of buffered frames.
func (b *FrameBuffer) Len() int { return b.count }

// Capacity returns the bound applied to future appends.
func (b *FrameBuffer) Capacity() int { return b.capacity }

// Appended returns the total number of frames ever appended.
func (b *FrameBuffer) Appended() uint64 { return b.appended }

// Evicted returns the total number of frames dropped by FIFO eviction.
func (b *FrameBuffer) Evicted() uint64 { return b.appended - uint64(b.count) }

// Last returns the newest min(n, Len) frames in append order.
func (b *FrameBuffer) Last(n int) []TelemetryFrame {
	if n > b.count {
		n = b.count
	}
	if n <= 0 {
		return []TelemetryFrame{}
	}
	out := make([]TelemetryFrame, n)
	start := b.head + b.count - n
	for i := 0; i < n; i++ {
		out[i] = b.frames[(start+i)%len(b.frames)]
	}
	return out
}

// SetCapacity changes the bound for future appends. Frames already
// buffered are never dropped here; when shrinking below the current
// length, the next appends evict the surplus oldest-first.
func (b *FrameBuffer) SetCapacity(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	if capacity > len(b.frames) {
		grown := make([]TelemetryFrame, capacity)
		copy(grown, b.Last(b.count))
		b.frames = grown
		b.head = 0
	}
	b.capacity = capacity
}
