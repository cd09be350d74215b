package ina2xx

import (
	"strings"

	"tinygo.org/x/drivers"
)

// Model selects the register layout and scale factors.
type Model uint8

const (
	ModelAuto Model = iota
	ModelINA219
	ModelINA226
)

func (m Model) String() string {
	switch m {
	case ModelINA219:
		return "ina219"
	case ModelINA226:
		return "ina226"
	default:
		return "auto"
	}
}

// ParseModel maps "ina219"/"ina226" (case-insensitive) to a model.
// Anything else selects auto-detection.
func ParseModel(s string) Model {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ina219":
		return ModelINA219
	case "ina226":
		return ModelINA226
	default:
		return ModelAuto
	}
}

// Driver configuration.
type Config struct {
	Address uint16
	Model   Model
}

// DefaultConfig targets the default strap address with auto-detection.
func DefaultConfig() Config {
	return Config{Address: AddressDefault, Model: ModelAuto}
}

// Device represents one INA219/INA226 on an I²C bus.
type Device struct {
	i2c   drivers.I2C
	addr  uint16
	model Model

	cal        Calibration
	calibrated bool

	// Fixed buffers to avoid per-call heap allocations.
	w [3]byte
	r [2]byte
}

// New constructs a Device. A ModelAuto config is left unresolved until
// DetectModel.
func New(i2c drivers.I2C, cfg Config) *Device {
	addr := cfg.Address
	if addr == 0 {
		addr = AddressDefault
	}
	return &Device{i2c: i2c, addr: addr, model: cfg.Model}
}

// NewAuto constructs a Device and resolves ModelAuto from the ID registers.
// On a failed ID read the device is still returned, set to INA226.
func NewAuto(i2c drivers.I2C, cfg Config) (*Device, error) {
	d := New(i2c, cfg)
	if d.model != ModelAuto {
		return d, nil
	}
	m, err := d.DetectModel()
	d.model = m
	return d, err
}

// Introspection.
func (d *Device) Address() uint16 { return d.addr }
func (d *Device) Model() Model    { return d.model }

// Calibration returns the active calibration and whether one was written.
func (d *Device) Calibration() (Calibration, bool) { return d.cal, d.calibrated }

// Calibrate computes the calibration for the device's model and writes it.
// A failed write leaves the device uncalibrated.
func (d *Device) Calibrate(shuntOhms, maxCurrentA float64) error {
	cal, err := ComputeCalibration(d.model, shuntOhms, maxCurrentA)
	if err != nil {
		return err
	}
	if err := d.WriteRegister(regCalibration, cal.Register); err != nil {
		d.calibrated = false
		return err
	}
	d.cal = cal
	d.calibrated = true
	return nil
}
