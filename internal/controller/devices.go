package controller

import (
	"github.com/nerrad567/growctl/internal/automation"
	"github.com/nerrad567/growctl/internal/device"
)

// deviceView exposes the device registry to the rule engine.
type deviceView struct {
	registry *device.Registry
}

// DeviceView adapts a device registry to automation.DeviceRegistry.
func DeviceView(registry *device.Registry) automation.DeviceRegistry {
	return deviceView{registry: registry}
}

func (v deviceView) Device(id string) (automation.DeviceInfo, bool) {
	d, ok := v.registry.Get(id)
	if !ok {
		return automation.DeviceInfo{}, false
	}
	return automation.DeviceInfo{
		ID:     d.ID,
		Method: d.ControlMethod,
		Target: d.IPAddress,
		IsOn:   d.IsOn,
	}, true
}

func (v deviceView) SetState(id string, on bool) bool {
	return v.registry.SetState(id, on)
}
