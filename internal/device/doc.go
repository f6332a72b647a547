// Package device provides the catalog of controllable outlets.
//
// A Device pairs a control method (tasmota, shelly_gen1, shelly_gen2,
// relay) with a target string interpreted by that method: an IP address
// for smart plugs, a pin number for relays. Two fields are runtime-only:
// IsOn caches the last commanded state and ControlMode reports whether any
// enabled rule drives the device.
//
// # Architecture
//
//	┌──────────────────┐    ┌──────────────────┐    ┌──────────────────┐
//	│     Registry     │───▶│    Repository    │───▶│  storage.Store   │
//	│  (registry.go)   │    │ (repository.go)  │    │  /devices.json   │
//	│                  │    │                  │    └──────────────────┘
//	│ • CRUD ops       │    │ • JSON documents │
//	│ • isOn cache     │    │ • persisted view │
//	│ • control modes  │    └──────────────────┘
//	└──────────────────┘
//
// The Registry is owned by the controller loop and is not safe for
// concurrent use.
package device
