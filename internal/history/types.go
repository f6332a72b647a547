package history

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Range selects one of the three resolutions.
type Range int

// Supported ranges.
const (
	Range12h Range = iota
	Range24h
	Range7d
)

// Ranges lists every range in storage order.
var Ranges = [...]Range{Range12h, Range24h, Range7d}

type rangeSpec struct {
	name     string
	capacity int
	interval uint32 // seconds
}

var rangeSpecs = [...]rangeSpec{
	Range12h: {name: "12h", capacity: 144, interval: 5 * 60},
	Range24h: {name: "24h", capacity: 144, interval: 10 * 60},
	Range7d:  {name: "7d", capacity: 168, interval: 60 * 60},
}

// String returns the wire name of the range.
func (r Range) String() string {
	if r < Range12h || r > Range7d {
		return fmt.Sprintf("Range(%d)", int(r))
	}
	return rangeSpecs[r].name
}

// Capacity returns the number of points the range holds.
func (r Range) Capacity() int { return rangeSpecs[r].capacity }

// Interval returns the spacing between emitted points in seconds.
func (r Range) Interval() uint32 { return rangeSpecs[r].interval }

// ParseRange converts "12h", "24h" or "7d" to a Range.
func ParseRange(s string) (Range, error) {
	for _, r := range Ranges {
		if rangeSpecs[r].name == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRange, s)
}

// Point is one averaged sample.
type Point struct {
	Timestamp uint32
	Value     float32
}

// Wire and file layout sizes.
const (
	PointSize  = 8
	HeaderSize = 12
)

// EncodePoints serialises points as consecutive little-endian
// (u32 timestamp, f32 value) pairs.
func EncodePoints(points []Point) []byte {
	out := make([]byte, len(points)*PointSize)
	for i, p := range points {
		putPoint(out[i*PointSize:], p)
	}
	return out
}

// DecodePoints is the inverse of EncodePoints. Trailing bytes that do not
// form a whole point are ignored.
func DecodePoints(data []byte) []Point {
	n := len(data) / PointSize
	out := make([]Point, n)
	for i := range out {
		out[i] = getPoint(data[i*PointSize:])
	}
	return out
}

func putPoint(b []byte, p Point) {
	binary.LittleEndian.PutUint32(b[0:4], p.Timestamp)
	binary.LittleEndian.PutUint32(b[4:8], math.Float32bits(p.Value))
}

func getPoint(b []byte) Point {
	return Point{
		Timestamp: binary.LittleEndian.Uint32(b[0:4]),
		Value:     math.Float32frombits(binary.LittleEndian.Uint32(b[4:8])),
	}
}
