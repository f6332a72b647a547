// Package mqtt provides the MQTT client used by the telemetry bridge.
//
// The controller publishes sensor readings and device state under a
// configurable topic prefix and accepts JSON commands on a single command
// topic:
//
//	<prefix>/status                  online/offline (retained, LWT)
//	<prefix>/sensors/<sensorId>      {"value":24.5,"type":"temperature","timestamp":...}
//	<prefix>/devices/<deviceId>/state {"on":true,...} (retained)
//	<prefix>/command                 WebSocket-format control messages
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := client.Topics()
//	client.Publish(topics.SensorReading("temp1"), payload, 0, false)
package mqtt
