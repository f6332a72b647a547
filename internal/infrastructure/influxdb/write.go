package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementSensorReadings = "sensor_readings"
	MeasurementDeviceStates   = "device_states"
)

// WriteSensorReading queues one sensor value as a sensor_readings point.
//
// Parameters:
//   - sensorID: Logical sensor ID (tag sensor_id)
//   - kind: Sensor type such as "temperature" or "vpd" (tag type)
//   - value: Reading in the sensor's unit (field value)
//   - ts: Reading time; the controller passes its wall clock
func (c *Client) WriteSensorReading(sensorID, kind string, value float64, ts time.Time) {
	c.WritePointWithTime(MeasurementSensorReadings,
		map[string]string{"sensor_id": sensorID, "type": kind},
		map[string]interface{}{"value": value},
		ts,
	)
}

// WriteDeviceState queues a device_states point for an outlet that switched.
//
// Parameters:
//   - deviceID: Device ID (tag device_id)
//   - on: New outlet state (field on)
//   - source: "rule" or "manual" (tag source)
//   - ts: Time of the switch
func (c *Client) WriteDeviceState(deviceID string, on bool, source string, ts time.Time) {
	c.WritePointWithTime(MeasurementDeviceStates,
		map[string]string{"device_id": deviceID, "source": source},
		map[string]interface{}{"on": on},
		ts,
	)
}

// WritePointWithTime queues an arbitrary point. The site default tag is
// added by the library. It is a no-op once the client is closed.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
