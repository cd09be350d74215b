package ina2xx

import (
	"math"

	"inamqtt-go/errcode"
	"inamqtt-go/x/mathx"
)

// Calibration holds the values derived from shunt and max current.
type Calibration struct {
	CurrentLSB float64 // A per bit
	PowerLSB   float64 // W per bit
	Register   uint16
}

// ComputeCalibration derives the calibration register and LSBs.
//
//	lsb  = Imax / 2^15
//	cal  = floor(K / (lsb * R))
//	lsb' = K / (R * cal)
//	plsb = lsb' * 20 (INA219) | 25 (INA226)
func ComputeCalibration(m Model, shuntOhms, maxCurrentA float64) (Calibration, error) {
	var k, pf float64
	switch m {
	case ModelINA219:
		k, pf = ina219CalK, ina219PowerFactor
	case ModelINA226:
		k, pf = ina226CalK, ina226PowerFactor
	default:
		return Calibration{}, &errcode.E{C: errcode.InvalidParams, Op: "calibrate", Msg: "model not resolved"}
	}
	if !positive(shuntOhms) {
		return Calibration{}, &errcode.E{C: errcode.InvalidParams, Op: "calibrate", Msg: "shunt must be > 0"}
	}
	if !positive(maxCurrentA) {
		return Calibration{}, &errcode.E{C: errcode.InvalidParams, Op: "calibrate", Msg: "max current must be > 0"}
	}

	lsb := maxCurrentA / currentSteps
	q := math.Floor(k / (lsb * shuntOhms))
	if !mathx.Between(q, 1, 0xFFFF) {
		return Calibration{}, &errcode.E{C: errcode.CalibrationRange, Op: "calibrate", Msg: "register outside 1..0xFFFF"}
	}
	reg := uint16(q)
	lsb = k / (shuntOhms * float64(reg))
	return Calibration{
		CurrentLSB: lsb,
		PowerLSB:   lsb * pf,
		Register:   reg,
	}, nil
}

func positive(v float64) bool { return v > 0 && !math.IsInf(v, 1) }

// Raw word → physical unit.

// BusVolts decodes the bus voltage register. The INA219 keeps status flags
// in bits 0..2.
func BusVolts(m Model, raw uint16) float64 {
	if m == ModelINA219 {
		return float64(raw>>3) * ina219BusLSB_V
	}
	return float64(raw) * ina226BusLSB_V
}

// ShuntMilliVolts decodes the signed shunt voltage register.
func ShuntMilliVolts(m Model, raw uint16) float64 {
	if m == ModelINA219 {
		return float64(int16(raw)) * ina219ShuntLSB_mV
	}
	return float64(int16(raw)) * ina226ShuntLSB_mV
}

// CurrentMilliAmps decodes the signed current register.
func CurrentMilliAmps(raw uint16, currentLSB float64) float64 {
	return float64(int16(raw)) * currentLSB * 1000
}

// PowerMilliWatts decodes the unsigned power register.
func PowerMilliWatts(raw uint16, powerLSB float64) float64 {
	return float64(raw) * powerLSB * 1000
}
