// Package sensor holds the logical sensor catalog and the reader that turns
// hardware samples into per-sensor values.
//
// A logical sensor is either bound to a hardware source (sht3x, sht4x,
// scd4x, as7341, simulated) and a measurement kind, or derived: a vpd sensor
// with hardwareType "calculated" that references one temperature and one
// humidity sensor. Derived sensors may only reference hardware-bound
// sensors, so resolution never recurses more than one level.
//
// The Registry persists the catalog to /sensors.json. The Reader caches one
// sample per hardware source per Refresh and answers Value lookups from that
// cache. Neither type is safe for concurrent use; both are owned by the
// controller loop.
package sensor
