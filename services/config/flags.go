package config

import (
	"github.com/spf13/pflag"
)

// Flag names. Short forms follow the classic ina219_mqtt CLI.
const (
	FlagConf       = "conf"
	FlagShunt      = "shunt"
	FlagCurrent    = "current"
	FlagBroker     = "broker"
	FlagClientID   = "client_id"
	FlagGet        = "get"
	FlagReply      = "reply"
	FlagModel      = "model"
	FlagScan       = "scan"
	FlagInteract   = "interactive"
	FlagInterval   = "interval"
	FlagBus        = "bus"
	FlagAddr       = "addr"
	FlagVerbose    = "verbose"
	FlagShowConfig = "show-config"
)

// flagKeys maps setting keys to the flag overriding them.
var flagKeys = map[string]string{
	KeyShunt:       FlagShunt,
	KeyMaxCurrent:  FlagCurrent,
	KeyBroker:      FlagBroker,
	KeyClientID:    FlagClientID,
	KeyTopicGet:    FlagGet,
	KeyTopicReply:  FlagReply,
	KeyModel:       FlagModel,
	KeyInteractive: FlagInteract,
	KeyInterval:    FlagInterval,
	KeyBus:         FlagBus,
	KeyAddress:     FlagAddr,
	KeyVerbose:     FlagVerbose,
}

// RegisterFlags adds every settings flag to fs. Flag defaults mirror the
// built-in defaults; an unset flag never overrides the file.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP(FlagConf, "c", DefaultPath, "config file (key=value, or .yaml/.json/.toml)")
	fs.Float64P(FlagShunt, "s", defaults[KeyShunt].(float64), "shunt resistance in ohms")
	fs.Float64P(FlagCurrent, "i", defaults[KeyMaxCurrent].(float64), "max expected current in amps")
	fs.StringP(FlagBroker, "b", defaults[KeyBroker].(string), "MQTT broker URI")
	fs.StringP(FlagClientID, "d", "", "MQTT client id (random when empty)")
	fs.StringP(FlagGet, "g", defaults[KeyTopicGet].(string), "MQTT request topic")
	fs.StringP(FlagReply, "r", defaults[KeyTopicReply].(string), "MQTT reply topic")
	fs.String(FlagModel, defaults[KeyModel].(string), "sensor model: ina219 | ina226 | auto")
	fs.BoolP(FlagScan, "S", false, "scan the I2C bus and exit")
	fs.Bool(FlagInteract, false, "print a reading every interval")
	fs.Int(FlagInterval, defaults[KeyInterval].(int), "interactive print interval in seconds")
	fs.String(FlagBus, defaults[KeyBus].(string), "I2C bus device")
	fs.Uint16(FlagAddr, uint16(defaults[KeyAddress].(int)), "I2C device address")
	fs.BoolP(FlagVerbose, "v", false, "debug logging")
	fs.Bool(FlagShowConfig, false, "print the resolved settings and exit")
}
