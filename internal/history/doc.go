// Package history keeps compacted multi-resolution time series per sensor.
//
// Each sensor owns three circular buffers:
//
//	range  capacity  interval  horizon
//	12h    144       5 min     12 hours
//	24h    144       10 min    24 hours
//	7d     168       60 min    7 days
//
// Record feeds every buffer's accumulator; a buffer emits the mean of its
// accumulated samples once its interval has elapsed since its last point.
// Buffers are persisted to /history/<sensorId>_<range>.bin as a 12-byte
// little-endian header {head, count, lastWrite} followed by capacity
// (u32 timestamp, f32 value) pairs.
package history
