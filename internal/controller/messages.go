package controller

import (
	"encoding/json"

	"github.com/nerrad567/growctl/internal/automation"
	"github.com/nerrad567/growctl/internal/device"
	"github.com/nerrad567/growctl/internal/sensor"
)

// Client to server message types.
const (
	MsgPing          = "ping"
	MsgGetSensors    = "get_sensors"
	MsgGetDevices    = "get_devices"
	MsgGetRules      = "get_rules"
	MsgGetSettings   = "get_settings"
	MsgGetSystemInfo = "get_system_info"
	MsgGetHistory    = "get_history"
	MsgDeviceControl = "device_control"
	MsgClearOverride = "clear_override"
	MsgAddRule       = "add_rule"
	MsgUpdateRule    = "update_rule"
	MsgRemoveRule    = "remove_rule"
	MsgToggleRule    = "toggle_rule"
	MsgAddDevice     = "add_device"
	MsgUpdateDevice  = "update_device"
	MsgRemoveDevice  = "remove_device"
	MsgAddSensor     = "add_sensor"
	MsgUpdateSensor  = "update_sensor"
	MsgRemoveSensor  = "remove_sensor"
	MsgSetTimezone   = "set_timezone"

	MsgGetLightCalibration   = "get_ppfd_calibration"
	MsgCalibrateLight        = "calibrate_ppfd"
	MsgResetLightCalibration = "reset_ppfd_calibration"
)

// Server to client frame types.
const (
	FramePong            = "pong"
	FrameSensors         = "sensors"
	FrameSensorConfig    = "sensor_config"
	FrameDevices         = "devices"
	FrameRules           = "rules"
	FrameSettings        = "settings"
	FrameSystemInfo      = "system_info"
	FrameHistory         = "history"
	FrameDeviceStatus    = "device_status"
	FrameOverrideCleared = "override_cleared"
	FrameError           = "error"

	FrameLightCalibration = "ppfd_calibration"
)

// request holds the fields any inbound message may carry. Messages that
// describe a rule, device or sensor are decoded a second time into the
// matching message type.
type request struct {
	Type string `json:"type"`
	ID   string `json:"id"`

	Method   string `json:"method"`
	Target   string `json:"target"`
	On       *bool  `json:"on"`
	DeviceID string `json:"deviceId"`

	SensorID string `json:"sensorId"`
	Range    string `json:"range"`

	OffsetMinutes *int `json:"offsetMinutes"`

	KnownPPFD float64 `json:"knownPpfd"`
}

// deviceMessage is the flat form of add_device and update_device. The
// device type travels as deviceType because type names the message.
type deviceMessage struct {
	ID            string  `json:"id"`
	Name          *string `json:"name"`
	DeviceType    *string `json:"deviceType"`
	ControlMethod *string `json:"controlMethod"`
	IPAddress     *string `json:"ipAddress"`
}

func (m deviceMessage) patch() device.Patch {
	return device.Patch{
		Name:          m.Name,
		Type:          m.DeviceType,
		ControlMethod: m.ControlMethod,
		IPAddress:     m.IPAddress,
	}
}

func (m deviceMessage) device() device.Device {
	d := device.Device{ID: m.ID}
	return m.patch().Apply(d)
}

// sensorMessage is the flat form of add_sensor and update_sensor.
type sensorMessage struct {
	ID           string       `json:"id"`
	Name         *string      `json:"name"`
	SensorType   *sensor.Kind `json:"sensorType"`
	Unit         *string      `json:"unit"`
	HardwareType *string      `json:"hardwareType"`
	Address      *string      `json:"address"`
	TempSourceID *string      `json:"tempSourceId"`
	HumSourceID  *string      `json:"humSourceId"`
}

func (m sensorMessage) patch() sensor.Patch {
	return sensor.Patch{
		Name:         m.Name,
		Type:         m.SensorType,
		Unit:         m.Unit,
		HardwareType: m.HardwareType,
		Address:      m.Address,
		TempSourceID: m.TempSourceID,
		HumSourceID:  m.HumSourceID,
	}
}

func (m sensorMessage) sensor() sensor.Sensor {
	return m.patch().Apply(sensor.Sensor{ID: m.ID})
}

type dataFrame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type sensorsFrame struct {
	Type      string           `json:"type"`
	Data      []sensor.Reading `json:"data"`
	Timestamp int64            `json:"timestamp"`
}

// lightCalibrationFrame answers the light calibration messages. Success is
// omitted on plain queries; Error carries a short code on failure.
type lightCalibrationFrame struct {
	Type    string   `json:"type"`
	Factor  *float64 `json:"factor,omitempty"`
	Success *bool    `json:"success,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type pongFrame struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type historyFrame struct {
	Type      string `json:"type"`
	SensorID  string `json:"sensorId"`
	Range     string `json:"range"`
	PointSize int    `json:"pointSize"`
	Count     int    `json:"count"`
	Data      string `json:"data"`
}

type deviceStatusFrame struct {
	Type     string `json:"type"`
	DeviceID string `json:"deviceId"`
	Target   string `json:"target"`
	On       bool   `json:"on"`
	Success  bool   `json:"success"`
}

type overrideClearedFrame struct {
	Type     string `json:"type"`
	DeviceID string `json:"deviceId"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Request string `json:"request"`
}

type systemInfoFrame struct {
	Type string `json:"type"`
	SystemInfo
}

// SystemInfo describes the running controller.
type SystemInfo struct {
	Version               string   `json:"version"`
	UptimeSeconds         int64    `json:"uptimeSeconds"`
	TimeSynced            bool     `json:"timeSynced"`
	LocalTime             string   `json:"localTime,omitempty"`
	TimezoneOffsetMinutes int      `json:"timezoneOffsetMinutes"`
	Hardware              []string `json:"hardware"`
	Sensors               int      `json:"sensors"`
	Devices               int      `json:"devices"`
	Rules                 int      `json:"rules"`
	ActiveOverrides       int      `json:"activeOverrides"`
	DroppedFrames         uint64   `json:"droppedFrames"`
}

// Backup is the document served by the configuration backup endpoint.
type Backup struct {
	Devices []device.Record   `json:"devices"`
	Rules   []automation.Rule `json:"rules"`
	Sensors []sensor.Sensor   `json:"sensors"`
}

// restoreDocument keeps each collection raw so a missing key can be told
// apart from an empty array.
type restoreDocument struct {
	Devices json.RawMessage `json:"devices"`
	Rules   json.RawMessage `json:"rules"`
	Sensors json.RawMessage `json:"sensors"`
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
