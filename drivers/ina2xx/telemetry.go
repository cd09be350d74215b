package ina2xx

import (
	"errors"

	"inamqtt-go/errcode"
)

// Reading is one set of decoded measurements.
type Reading struct {
	Bus_V      float64
	Current_mA float64
	Power_mW   float64
	Shunt_mV   float64
}

// Single quantities.

func (d *Device) Bus_V() (float64, error) {
	raw, err := d.readWord(regBus)
	return BusVolts(d.model, raw), err
}

func (d *Device) Shunt_mV() (float64, error) {
	raw, err := d.readWord(regShunt)
	return ShuntMilliVolts(d.model, raw), err
}

func (d *Device) Current_mA() (float64, error) {
	if !d.calibrated {
		return 0, errcode.NotCalibrated
	}
	raw, err := d.readWord(regCurrent)
	return CurrentMilliAmps(raw, d.cal.CurrentLSB), err
}

func (d *Device) Power_mW() (float64, error) {
	if !d.calibrated {
		return 0, errcode.NotCalibrated
	}
	raw, err := d.readWord(regPower)
	return PowerMilliWatts(raw, d.cal.PowerLSB), err
}

// Read performs the four register reads. A failed read decodes the
// sentinel into its field and its error joins the returned error; the
// reading is returned either way.
func (d *Device) Read() (Reading, error) {
	var r Reading
	if !d.calibrated {
		return r, errcode.NotCalibrated
	}
	var errs [4]error
	r.Bus_V, errs[0] = d.Bus_V()
	r.Current_mA, errs[1] = d.Current_mA()
	r.Power_mW, errs[2] = d.Power_mW()
	r.Shunt_mV, errs[3] = d.Shunt_mV()
	return r, errors.Join(errs[:]...)
}
