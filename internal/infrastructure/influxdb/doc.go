// Package influxdb writes controller telemetry to InfluxDB v2.
//
// It wraps influxdb-client-go's non-blocking WriteAPI. Two measurements
// are written:
//
//	sensor_readings  tags: site, sensor_id, type   fields: value
//	device_states    tags: site, device_id, source fields: on
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Site.ID)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//	client.WriteSensorReading("temp1", "temperature", 24.5, time.Now())
package influxdb
