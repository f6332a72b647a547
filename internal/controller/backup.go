package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/growctl/internal/automation"
	"github.com/nerrad567/growctl/internal/device"
	"github.com/nerrad567/growctl/internal/sensor"
)

// SystemInfo returns a description of the running controller.
func (c *Controller) SystemInfo(ctx context.Context) (SystemInfo, error) {
	var info SystemInfo
	err := c.Do(ctx, func() { info = c.systemInfo() })
	return info, err
}

// Backup returns the device, rule and sensor catalogs as one
// pretty-printed JSON document.
func (c *Controller) Backup(ctx context.Context) ([]byte, error) {
	var doc Backup
	err := c.Do(ctx, func() {
		doc = Backup{
			Devices: orEmpty(c.devices.Records()),
			Rules:   orEmpty(c.rules.List()),
			Sensors: orEmpty(c.sensors.List()),
		}
	})
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Restore replaces the device, rule and sensor catalogs with the contents
// of a backup document. All three arrays must be present. On failure every
// catalog is left as it was.
func (c *Controller) Restore(ctx context.Context, data []byte) error {
	sensors, devices, rules, err := decodeBackup(data)
	if err != nil {
		return err
	}
	var restoreErr error
	if err := c.Do(ctx, func() { restoreErr = c.restore(sensors, devices, rules) }); err != nil {
		return err
	}
	return restoreErr
}

func decodeBackup(data []byte) ([]sensor.Sensor, []device.Record, []automation.Rule, error) {
	var doc restoreDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	for name, raw := range map[string]json.RawMessage{
		"devices": doc.Devices,
		"rules":   doc.Rules,
		"sensors": doc.Sensors,
	} {
		if !isArray(raw) {
			return nil, nil, nil, fmt.Errorf("%w: %s must be an array", ErrInvalidBackup, name)
		}
	}

	var (
		sensors []sensor.Sensor
		devices []device.Record
		patches []automation.Patch
	)
	if err := json.Unmarshal(doc.Sensors, &sensors); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: sensors: %v", ErrInvalidBackup, err)
	}
	if err := json.Unmarshal(doc.Devices, &devices); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: devices: %v", ErrInvalidBackup, err)
	}
	if err := json.Unmarshal(doc.Rules, &patches); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: rules: %v", ErrInvalidBackup, err)
	}
	rules := make([]automation.Rule, len(patches))
	for i, p := range patches {
		rules[i] = p.Stored()
	}
	return sensors, devices, rules, nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// restore applies the catalogs in dependency order and rolls back the
// ones already replaced when a later one is rejected.
func (c *Controller) restore(sensors []sensor.Sensor, devices []device.Record, rules []automation.Rule) error {
	prevSensors := c.sensors.List()
	prevDevices := c.devices.Records()

	if err := c.sensors.Replace(sensors); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBackup, err)
	}
	if err := c.devices.Replace(devices); err != nil {
		c.rollback(prevSensors, nil)
		return fmt.Errorf("%w: %w", ErrInvalidBackup, err)
	}
	if err := c.rules.Replace(rules); err != nil {
		c.rollback(prevSensors, prevDevices)
		return fmt.Errorf("%w: %w", ErrInvalidBackup, err)
	}

	kept := make(map[string]bool, len(sensors))
	for _, id := range c.sensors.IDs() {
		kept[id] = true
	}
	for _, s := range prevSensors {
		if !kept[s.ID] {
			c.history.RemoveSensor(s.ID)
			delete(c.readings, s.ID)
			c.metrics.ForgetSensor(s.ID)
		}
	}

	c.logger.Info("configuration restored",
		"sensors", c.sensors.Count(),
		"devices", c.devices.Count(),
		"rules", c.rules.Count(),
	)
	c.broadcastDevices()
	c.broadcastRules()
	c.broadcastSensors()
	return nil
}

func (c *Controller) rollback(sensors []sensor.Sensor, devices []device.Record) {
	if devices != nil {
		if err := c.devices.Replace(devices); err != nil {
			c.logger.Error("failed to roll back devices", "error", err)
		}
	}
	if err := c.sensors.Replace(sensors); err != nil {
		c.logger.Error("failed to roll back sensors", "error", err)
	}
}
