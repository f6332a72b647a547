// Package automation provides the threshold rule engine.
//
// A rule compares one sensor reading against a threshold and drives one
// device. Each rule is either Inactive (its condition was false at the
// previous evaluation) or Active; only transitions command the device:
//
//	Inactive ──condition true──▶ Active     Control(actionOn)
//	Active   ──condition false─▶ Inactive   Control(!actionOn)
//
// Hysteresis, a minimum run time and manual overrides shape when a
// transition is allowed. A manual override suspends every rule on a
// device until it expires or is cleared; clearing re-seeds the rules from
// the device's cached state so the manual command is not reverted on the
// next evaluation.
//
// # Thread Safety
//
// Engine is not safe for concurrent use. The controller loop owns it.
//
// # Usage
//
//	engine := automation.NewEngine(automation.NewJSONRepository(store), devices, gateway, clk, automation.Options{})
//	engine.SetLogger(log)
//	if err := engine.Load(); err != nil {
//	    return err
//	}
//	engine.Evaluate(ctx, readings)
package automation
