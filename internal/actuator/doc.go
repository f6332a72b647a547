// Package actuator drives power outlets.
//
// The Gateway dispatches a (method, target, on) command to the driver
// registered for the method:
//
//   - tasmota:     GET http://<ip>/cm?cmnd=Power%20On|Off
//   - shelly_gen1: GET http://<ip>/relay/0?turn=on|off
//   - shelly_gen2: GET http://<ip>/rpc/Switch.Set?id=0&on=true|false
//   - relay:       RelayBank.Set(pin, on) for a locally wired relay
//
// Every command is bounded by the gateway timeout and never retried. An
// HTTP 200 is the only success.
package actuator
