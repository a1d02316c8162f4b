package rx

// Buffer is a bounded circular buffer decoupling byte production from
// consumption. Capacity is a power of two fixed at construction; no
// resizing. A push into a full buffer discards the byte and latches
// the overflow flag, leaving contents unchanged.
type Buffer struct {
	data     []uint16
	head     int // next pop
	tail     int // next push
	count    int
	mask     int
	almost   int
	overflow bool
}

// NewBuffer creates a Buffer. Capacity must be a power of two and
// almostFull below capacity; Config.Validate enforces both.
func NewBuffer(capacity, almostFull int) *Buffer {
	return &Buffer{
		data:   make([]uint16, capacity),
		mask:   capacity - 1,
		almost: almostFull,
	}
}

// Push appends a byte. It reports false when the buffer is full, in
// which case the byte is dropped and overflow latches.
func (b *Buffer) Push(v uint16) bool {
	if b.count == len(b.data) {
		b.overflow = true
		return false
	}
	b.data[b.tail] = v
	b.tail = (b.tail + 1) & b.mask
	b.count++
	return true
}

// Pop removes and returns the oldest byte.
func (b *Buffer) Pop() (uint16, bool) {
	if b.count == 0 {
		return 0, false
	}
	v := b.data[b.head]
	b.head = (b.head + 1) & b.mask
	b.count--
	return v, true
}

// Peek returns the oldest byte without removing it.
func (b *Buffer) Peek() (uint16, bool) {
	if b.count == 0 {
		return 0, false
	}
	return b.data[b.head], true
}

// Clear discards contents and clears the overflow flag.
func (b *Buffer) Clear() {
	b.head, b.tail, b.count = 0, 0, 0
	b.overflow = false
}

// Len returns the current occupancy.
func (b *Buffer) Len() int { return b.count }

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int { return len(b.data) }

// Empty reports occupancy == 0.
func (b *Buffer) Empty() bool { return b.count == 0 }

// Full reports occupancy == capacity.
func (b *Buffer) Full() bool { return b.count == len(b.data) }

// AlmostFull reports occupancy above the configured watermark.
func (b *Buffer) AlmostFull() bool { return b.count > b.almost }

// Overflow reports the latched overflow flag.
func (b *Buffer) Overflow() bool { return b.overflow }

// RequestToSend permits sending while occupancy is below 75% of
// capacity. Level-sampled, not edge-triggered. Cross-multiplied so
// small capacities do not floor the threshold to zero.
func (b *Buffer) RequestToSend() bool {
	return b.count*4 < len(b.data)*3
}
