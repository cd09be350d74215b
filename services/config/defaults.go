package config

// -----------------------------------------------------------------------------
// Built-in defaults
//
// Applied first; the config file, INA_* environment variables and CLI flags
// override them in that order.
// -----------------------------------------------------------------------------

const (
	DefaultPath = "ina219.conf"

	// Fixed liveness topic; not configurable.
	TopicState = "ina/state"
)

// Keys as they appear in the config file.
const (
	KeyShunt       = "shunt_ohms"
	KeyMaxCurrent  = "max_current"
	KeyBroker      = "mqtt_broker"
	KeyClientID    = "mqtt_client_id"
	KeyTopicGet    = "mqtt_topic_get"
	KeyTopicReply  = "mqtt_topic_reply"
	KeyModel       = "model"
	KeyInteractive = "interactive"
	KeyInterval    = "interval"
	KeyBus         = "i2c_bus"
	KeyAddress     = "i2c_address"
	KeyVerbose     = "verbose"
)

var defaults = map[string]any{
	KeyShunt:       0.1,
	KeyMaxCurrent:  3.2,
	KeyBroker:      "tcp://localhost:1883",
	KeyClientID:    "",
	KeyTopicGet:    "ina/get",
	KeyTopicReply:  "ina/reply",
	KeyModel:       "auto",
	KeyInteractive: false,
	KeyInterval:    5,
	KeyBus:         "/dev/i2c-1",
	KeyAddress:     0x40,
	KeyVerbose:     false,
}
