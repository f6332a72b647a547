package controller

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/nerrad567/growctl/internal/automation"
	"github.com/nerrad567/growctl/internal/device"
	"github.com/nerrad567/growctl/internal/history"
	"github.com/nerrad567/growctl/internal/settings"
	"github.com/nerrad567/growctl/internal/telemetry"
)

var (
	errUnknownType   = errors.New("unknown message type")
	errMissingID     = errors.New("id is required")
	errMissingTarget = errors.New("target or deviceId is required")
	errMissingState  = errors.New("on is required")
	errUnknownDevice = errors.New("unknown device")
	errUnknownSensor = errors.New("unknown sensor")
	errNoOverride    = errors.New("no active override for device")
	errMissingOffset = errors.New("offsetMinutes is required")
)

// Light calibration failure codes.
const (
	calibrationInvalidValue = "invalid_value"
	calibrationNoReading    = "no_reading"
)

// handle decodes one inbound frame and dispatches it on its type.
// Unparseable frames are logged and dropped.
func (c *Controller) handle(ctx context.Context, clientID string, data []byte) {
	var req request
	if err := json.Unmarshal(data, &req); err != nil {
		c.logger.Warn("dropping unparseable frame", "client_id", clientID, "error", err)
		return
	}

	var err error
	switch req.Type {
	case MsgPing:
		c.sendTo(clientID, pongFrame{Type: FramePong, Timestamp: c.wallMillis()})
	case MsgGetSensors:
		c.sendTo(clientID, c.sensorConfigFrame())
	case MsgGetDevices:
		c.sendTo(clientID, c.devicesFrame())
	case MsgGetRules:
		c.sendTo(clientID, c.rulesFrame())
	case MsgGetSettings:
		c.sendTo(clientID, c.settingsFrame())
	case MsgGetSystemInfo:
		c.sendTo(clientID, systemInfoFrame{Type: FrameSystemInfo, SystemInfo: c.systemInfo()})
	case MsgGetHistory:
		err = c.sendHistory(clientID, req)
	case MsgDeviceControl:
		err = c.deviceControl(ctx, req)
	case MsgClearOverride:
		err = c.clearOverride(ctx, req)
	case MsgAddRule, MsgUpdateRule, MsgRemoveRule, MsgToggleRule:
		err = c.ruleMessage(req, data)
	case MsgAddDevice, MsgUpdateDevice, MsgRemoveDevice:
		err = c.deviceMessage(req, data)
	case MsgAddSensor, MsgUpdateSensor, MsgRemoveSensor:
		err = c.sensorMessage(req, data)
	case MsgSetTimezone:
		err = c.setTimezone(req)
	case MsgGetLightCalibration:
		c.sendTo(clientID, c.lightCalibrationFrame(nil))
	case MsgCalibrateLight:
		c.calibrateLight(clientID, req)
	case MsgResetLightCalibration:
		c.settings.ResetLightFactor()
		c.reader.SetLightFactor(settings.DefaultLightFactor)
		c.sendTo(clientID, c.lightCalibrationFrame(ptr(true)))
	default:
		err = fmt.Errorf("%w: %q", errUnknownType, req.Type)
	}
	if err != nil {
		c.reject(clientID, req.Type, err)
	}
}

func (c *Controller) sendHistory(clientID string, req request) error {
	r, err := history.ParseRange(req.Range)
	if err != nil {
		return err
	}
	if _, ok := c.sensors.Get(req.SensorID); !ok {
		return fmt.Errorf("%w: %q", errUnknownSensor, req.SensorID)
	}
	points := c.history.Points(req.SensorID, r)
	c.sendTo(clientID, historyFrame{
		Type:      FrameHistory,
		SensorID:  req.SensorID,
		Range:     r.String(),
		PointSize: history.PointSize,
		Count:     len(points),
		Data:      base64.StdEncoding.EncodeToString(history.EncodePoints(points)),
	})
	return nil
}

// deviceControl switches an outlet on behalf of a client. A device driven
// by an enabled rule gets a manual override, extending any existing one.
func (c *Controller) deviceControl(ctx context.Context, req request) error {
	if req.On == nil {
		return errMissingState
	}
	on := *req.On

	dev, known := c.findDevice(req)
	method, target := req.Method, req.Target
	if known {
		method, target = dev.ControlMethod, dev.IPAddress
	}
	if !known && (method == "" || target == "") {
		if req.DeviceID != "" || req.Target != "" {
			return errUnknownDevice
		}
		return errMissingTarget
	}

	if known && c.rules.IsDeviceUsedByEnabledRule(dev.ID) {
		c.rules.SetOverride(dev.ID, c.overrideDuration)
		c.metrics.SetOverrides(c.rules.ActiveOverrides())
	}

	ok := c.actuator.Control(ctx, method, target, on)
	if ok && known {
		c.devices.SetState(dev.ID, on)
		c.sink.DeviceState(dev.ID, on, telemetry.SourceManual, c.wallTime())
	}
	c.logger.Info("manual device control", "device_id", dev.ID, "method", method, "on", on, "success", ok)

	c.broadcast(deviceStatusFrame{
		Type:     FrameDeviceStatus,
		DeviceID: dev.ID,
		Target:   target,
		On:       on,
		Success:  ok,
	})
	c.broadcastDevices()
	return nil
}

// findDevice resolves a device_control request by deviceId, then by
// method and target, then by target alone.
func (c *Controller) findDevice(req request) (device.Device, bool) {
	if req.DeviceID != "" {
		return c.devices.Get(req.DeviceID)
	}
	if req.Target == "" {
		return device.Device{}, false
	}
	if req.Method != "" {
		return c.devices.FindByTarget(req.Method, req.Target)
	}
	for _, d := range c.devices.List() {
		if d.IPAddress == req.Target {
			return d, true
		}
	}
	return device.Device{}, false
}

func (c *Controller) clearOverride(ctx context.Context, req request) error {
	if req.DeviceID == "" {
		return errMissingID
	}
	if !c.rules.ClearOverride(req.DeviceID) {
		return fmt.Errorf("%w: %q", errNoOverride, req.DeviceID)
	}
	c.broadcast(overrideClearedFrame{Type: FrameOverrideCleared, DeviceID: req.DeviceID})
	c.rules.ForceEvaluation(ctx, c.readings)
	c.forwardEvents()
	c.metrics.SetOverrides(c.rules.ActiveOverrides())
	c.broadcastDevices()
	return nil
}

func (c *Controller) ruleMessage(req request, data []byte) error {
	var err error
	switch req.Type {
	case MsgAddRule:
		var p automation.Patch
		if err = json.Unmarshal(data, &p); err == nil {
			_, err = c.rules.Add(p)
		}
	case MsgUpdateRule:
		var p automation.Patch
		if req.ID == "" {
			return errMissingID
		}
		if err = json.Unmarshal(data, &p); err == nil {
			_, err = c.rules.Update(req.ID, p)
		}
	case MsgRemoveRule:
		err = c.rules.Remove(req.ID)
	case MsgToggleRule:
		_, err = c.rules.Toggle(req.ID)
	}
	if err != nil {
		return err
	}
	c.broadcastRules()
	c.broadcastDevices()
	return nil
}

func (c *Controller) deviceMessage(req request, data []byte) error {
	var msg deviceMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}

	switch req.Type {
	case MsgAddDevice:
		if _, err := c.devices.Add(msg.device()); err != nil {
			return err
		}
	case MsgUpdateDevice:
		if msg.ID == "" {
			return errMissingID
		}
		p := msg.patch()
		d, err := c.devices.Update(msg.ID, p)
		if err != nil {
			return err
		}
		if p.BindingChanged() && c.rules.RebindDevice(d.ID, d.ControlMethod, d.IPAddress) > 0 {
			c.broadcastRules()
		}
	case MsgRemoveDevice:
		if err := c.devices.Remove(msg.ID); err != nil {
			return err
		}
		removed := c.rules.RemoveRulesForDevice(msg.ID)
		c.metrics.ForgetDevice(msg.ID)
		c.logger.Info("device removed", "device_id", msg.ID, "rules_removed", removed)
		c.broadcastRules()
	}
	c.broadcastDevices()
	return nil
}

func (c *Controller) sensorMessage(req request, data []byte) error {
	var msg sensorMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}

	switch req.Type {
	case MsgAddSensor:
		if _, err := c.sensors.Add(msg.sensor()); err != nil {
			return err
		}
	case MsgUpdateSensor:
		if msg.ID == "" {
			return errMissingID
		}
		if _, err := c.sensors.Update(msg.ID, msg.patch()); err != nil {
			return err
		}
	case MsgRemoveSensor:
		if err := c.sensors.Remove(msg.ID); err != nil {
			return err
		}
		c.history.RemoveSensor(msg.ID)
		delete(c.readings, msg.ID)
		c.metrics.ForgetSensor(msg.ID)
	}
	c.broadcastSensors()
	return nil
}

func (c *Controller) setTimezone(req request) error {
	if req.OffsetMinutes == nil {
		return errMissingOffset
	}
	if err := c.settings.SetTimezoneOffset(*req.OffsetMinutes); err != nil {
		return err
	}
	c.broadcast(c.settingsFrame())
	return nil
}

// calibrateLight derives the light factor that makes the current raw light
// reading equal knownPpfd. sensorId selects the light sensor; without it
// the first light sensor with a reading is used.
func (c *Controller) calibrateLight(clientID string, req request) {
	if req.KnownPPFD <= 0 || math.IsNaN(req.KnownPPFD) || math.IsInf(req.KnownPPFD, 0) {
		c.sendTo(clientID, lightCalibrationFrame{Type: FrameLightCalibration, Success: ptr(false), Error: calibrationInvalidValue})
		return
	}

	raw, ok := c.rawLight(req.SensorID)
	if !ok || raw <= 0 {
		c.sendTo(clientID, lightCalibrationFrame{Type: FrameLightCalibration, Success: ptr(false), Error: calibrationNoReading})
		return
	}

	factor := req.KnownPPFD / raw
	if err := c.settings.SetLightFactor(factor); err != nil {
		c.sendTo(clientID, lightCalibrationFrame{Type: FrameLightCalibration, Success: ptr(false), Error: calibrationInvalidValue})
		return
	}
	c.reader.SetLightFactor(factor)
	c.logger.Info("light sensor calibrated", "raw", raw, "known_ppfd", req.KnownPPFD, "factor", factor)
	c.sendTo(clientID, c.lightCalibrationFrame(ptr(true)))
}

func (c *Controller) rawLight(sensorID string) (float64, bool) {
	if sensorID != "" {
		return c.reader.Raw(sensorID)
	}
	for _, s := range c.sensors.List() {
		if v, ok := c.reader.Raw(s.ID); ok {
			return v, true
		}
	}
	return 0, false
}

func (c *Controller) lightCalibrationFrame(success *bool) lightCalibrationFrame {
	factor := c.settings.Get().LightFactor
	return lightCalibrationFrame{Type: FrameLightCalibration, Factor: &factor, Success: success}
}

func ptr[T any](v T) *T { return &v }

func (c *Controller) systemInfo() SystemInfo {
	info := SystemInfo{
		Version:               c.version,
		UptimeSeconds:         int64(c.clock.Now().Seconds()),
		TimeSynced:            c.clock.Synced(),
		TimezoneOffsetMinutes: c.settings.Get().TimezoneOffsetMinutes,
		Hardware:              orEmpty(c.reader.Hardware()),
		Sensors:               c.sensors.Count(),
		Devices:               c.devices.Count(),
		Rules:                 c.rules.Count(),
		ActiveOverrides:       c.rules.ActiveOverrides(),
		DroppedFrames:         c.ingress.Dropped(),
	}
	if info.TimeSynced {
		info.LocalTime = c.settings.LocalTime(c.wallTime()).Format(time.RFC3339)
	}
	return info
}
