package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"inamqtt-go/drivers/ina2xx"
	"inamqtt-go/errcode"
	"inamqtt-go/x/mathx"
)

const envPrefix = "INA"

// Settings is the resolved runtime configuration.
type Settings struct {
	ShuntOhms   float64 `mapstructure:"shunt_ohms" yaml:"shunt_ohms"`
	MaxCurrentA float64 `mapstructure:"max_current" yaml:"max_current"`

	Broker     string `mapstructure:"mqtt_broker" yaml:"mqtt_broker"`
	ClientID   string `mapstructure:"mqtt_client_id" yaml:"mqtt_client_id"`
	TopicGet   string `mapstructure:"mqtt_topic_get" yaml:"mqtt_topic_get"`
	TopicReply string `mapstructure:"mqtt_topic_reply" yaml:"mqtt_topic_reply"`

	Model       string `mapstructure:"model" yaml:"model"` // "ina219" | "ina226" | "auto"
	Interactive bool   `mapstructure:"interactive" yaml:"interactive"`
	IntervalSec int    `mapstructure:"interval" yaml:"interval"`

	I2CBus     string `mapstructure:"i2c_bus" yaml:"i2c_bus"`
	I2CAddress uint16 `mapstructure:"i2c_address" yaml:"i2c_address"`

	Verbose bool `mapstructure:"verbose" yaml:"verbose"`

	// Path actually read; empty when the file was missing.
	ConfigFile string `mapstructure:"-" yaml:"config_file,omitempty"`
}

// DeviceModel maps the model selector to the driver enum.
func (s Settings) DeviceModel() ina2xx.Model { return ina2xx.ParseModel(s.Model) }

// PollInterval is the interactive print period.
func (s Settings) PollInterval() time.Duration { return time.Duration(s.IntervalSec) * time.Second }

// Validate reports every invalid field at once.
func (s Settings) Validate() error {
	var errs []error
	bad := func(msg string) {
		errs = append(errs, &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: msg})
	}
	if !(s.ShuntOhms > 0) {
		bad(KeyShunt + " must be > 0")
	}
	if !(s.MaxCurrentA > 0) {
		bad(KeyMaxCurrent + " must be > 0")
	}
	if s.IntervalSec <= 0 {
		bad(KeyInterval + " must be > 0")
	}
	if strings.TrimSpace(s.Broker) == "" {
		bad(KeyBroker + " must be set")
	}
	if s.TopicGet == "" || s.TopicReply == "" {
		bad("mqtt topics must be set")
	}
	if s.I2CBus == "" {
		bad(KeyBus + " must be set")
	}
	if !mathx.Between(s.I2CAddress, ina2xx.ScanFirst, ina2xx.ScanLast) {
		bad(fmt.Sprintf("%s %#02x outside 7-bit range", KeyAddress, s.I2CAddress))
	}
	return errors.Join(errs...)
}

// YAML renders the settings for --show-config.
func (s Settings) YAML() ([]byte, error) { return yaml.Marshal(s) }

// -----------------------------------------------------------------------------
// Loading
// -----------------------------------------------------------------------------

// Load resolves settings with precedence flag > env > file > default.
// flags must carry the flags registered by RegisterFlags and be parsed. A
// missing config file is ignored; an unreadable or malformed one is an error.
func Load(flags *pflag.FlagSet) (Settings, error) {
	v := newViper()

	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, name := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return Settings{}, err
			}
		}
	}

	path := DefaultPath
	if f := flags.Lookup(FlagConf); f != nil {
		path = f.Value.String()
	}
	loaded, err := readFile(v, path)
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, &errcode.E{C: errcode.ConfigRead, Op: "config", Msg: "decode", Err: err}
	}
	if loaded {
		s.ConfigFile = path
	}
	s.Model = s.DeviceModel().String()
	if s.ClientID == "" {
		s.ClientID = "ina-" + uuid.NewString()[:8]
	}
	return s, nil
}

func newViper() *viper.Viper {
	reg := viper.NewCodecRegistry()
	if err := reg.RegisterCodec("properties", propertiesCodec{}); err != nil {
		panic(err)
	}
	return viper.NewWithOptions(viper.WithCodecRegistry(reg))
}

// readFile merges path into v. Files with a yaml/yml/json/toml extension use
// that format; anything else is read as key=value lines.
func readFile(v *viper.Viper, path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &errcode.E{C: errcode.ConfigRead, Op: "config", Msg: path, Err: err}
	}

	v.SetConfigFile(path)
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "yaml", "yml", "json", "toml":
		v.SetConfigType(ext)
	default:
		v.SetConfigType("properties")
	}
	if err := v.ReadInConfig(); err != nil {
		return false, &errcode.E{C: errcode.ConfigRead, Op: "config", Msg: path, Err: err}
	}
	return true, nil
}
