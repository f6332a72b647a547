package history

import (
	"encoding/binary"
	"fmt"
)

// buffer is a fixed-capacity ring of points plus the accumulator that
// feeds it.
type buffer struct {
	points    []Point
	interval  uint32
	head      uint32
	count     uint32
	lastWrite uint32

	sum     float64
	samples uint32
}

func newBuffer(r Range) *buffer {
	return &buffer{
		points:   make([]Point, r.Capacity()),
		interval: r.Interval(),
	}
}

func (b *buffer) capacity() uint32 {
	return uint32(len(b.points))
}

// accumulate adds a sample and emits the mean once the interval has elapsed.
// The subtraction is modular, so a clock that jumps backwards emits.
func (b *buffer) accumulate(now uint32, value float64) {
	b.sum += value
	b.samples++

	if now-b.lastWrite < b.interval {
		return
	}
	b.add(now, float32(b.sum/float64(b.samples)))
	b.sum = 0
	b.samples = 0
}

func (b *buffer) add(ts uint32, value float32) {
	b.points[b.head] = Point{Timestamp: ts, Value: value}
	b.head = (b.head + 1) % b.capacity()
	if b.count < b.capacity() {
		b.count++
	}
	b.lastWrite = ts
}

// copyOrdered copies up to len(out) points, oldest first.
func (b *buffer) copyOrdered(out []Point) int {
	n := int(b.count)
	if n > len(out) {
		n = len(out)
	}
	start := uint32(0)
	if b.count >= b.capacity() {
		start = b.head
	}
	for i := 0; i < n; i++ {
		out[i] = b.points[(start+uint32(i))%b.capacity()]
	}
	return n
}

// marshal returns the on-disk form: header plus the raw ring.
func (b *buffer) marshal() []byte {
	out := make([]byte, HeaderSize+len(b.points)*PointSize)
	binary.LittleEndian.PutUint32(out[0:4], b.head)
	binary.LittleEndian.PutUint32(out[4:8], b.count)
	binary.LittleEndian.PutUint32(out[8:12], b.lastWrite)
	for i, p := range b.points {
		putPoint(out[HeaderSize+i*PointSize:], p)
	}
	return out
}

// unmarshal restores the ring from its on-disk form. The accumulator is
// not persisted and starts empty.
func (b *buffer) unmarshal(data []byte) error {
	want := HeaderSize + len(b.points)*PointSize
	if len(data) != want {
		return fmt.Errorf("%w: %d bytes, want %d", ErrCorruptBuffer, len(data), want)
	}
	head := binary.LittleEndian.Uint32(data[0:4])
	count := binary.LittleEndian.Uint32(data[4:8])
	if head >= b.capacity() || count > b.capacity() {
		return fmt.Errorf("%w: head %d count %d capacity %d", ErrCorruptBuffer, head, count, b.capacity())
	}

	b.head = head
	b.count = count
	b.lastWrite = binary.LittleEndian.Uint32(data[8:12])
	for i := range b.points {
		b.points[i] = getPoint(data[HeaderSize+i*PointSize:])
	}
	b.sum = 0
	b.samples = 0
	return nil
}
