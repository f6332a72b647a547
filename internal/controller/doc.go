// Package controller runs the single loop that owns every registry, the
// rule engine and the history engine.
//
// Inbound WebSocket frames arrive through an ingress.Ring; HTTP handlers
// and the MQTT command channel submit closures with Do. Both are drained
// at the start of each Tick, so no other goroutine ever touches core state.
//
// One Tick runs, in order:
//
//  1. drain inbound frames and submitted tasks
//  2. every broadcast interval: refresh sensors, record history, broadcast readings
//  3. after new readings: expire overrides and evaluate rules
//  4. save history when its save interval has elapsed
package controller
