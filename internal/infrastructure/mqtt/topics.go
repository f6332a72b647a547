package mqtt

import "strings"

// DefaultTopicPrefix is used when the configuration leaves the prefix empty.
const DefaultTopicPrefix = "growctl"

// Topics builds the controller's topic names under one prefix.
type Topics struct {
	prefix string
}

// NewTopics returns builders rooted at prefix. Surrounding slashes are
// trimmed and an empty prefix selects DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the root of every topic.
func (t Topics) Prefix() string { return t.prefix }

// Status is the retained online/offline topic, also used for the LWT.
func (t Topics) Status() string {
	return t.prefix + "/status"
}

// SensorReading is where one sensor's readings are published.
func (t Topics) SensorReading(sensorID string) string {
	return t.prefix + "/sensors/" + sensorID
}

// DeviceState is the retained state topic of one device.
func (t Topics) DeviceState(deviceID string) string {
	return t.prefix + "/devices/" + deviceID + "/state"
}

// Command is the topic the controller accepts control messages on.
func (t Topics) Command() string {
	return t.prefix + "/command"
}

// AllSensorReadings matches every sensor reading topic.
func (t Topics) AllSensorReadings() string {
	return t.prefix + "/sensors/+"
}
