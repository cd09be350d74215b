// Package ina2xx provides register addresses and scale factors for the
// TI INA219 and INA226 current/power monitors.
package ina2xx

const (
	// 7-bit I2C address with A0/A1 strapped to GND.
	AddressDefault = 0x40

	// INA219 strap range (A0/A1 each GND, VS, SDA or SCL).
	addrStrapLo = 0x40
	addrStrapHi = 0x4F

	// Bus scan range (7-bit, reserved addresses excluded).
	ScanFirst = 0x03
	ScanLast  = 0x77

	// --- Register pointers (16-bit, big-endian) ---
	regConfig      = 0x00 // R/W
	regShunt       = 0x01 // R, signed
	regBus         = 0x02 // R
	regPower       = 0x03 // R
	regCurrent     = 0x04 // R, signed
	regCalibration = 0x05 // R/W

	// INA226 only. An INA219 returns its config word for unmapped pointers.
	regManufacturerID = 0xFE
	regDieID          = 0xFF

	// --- Identification ---
	manufacturerTI  = 0x5449 // "TI"
	ina219ConfigPOR = 0x399F

	// Returned by a failed register read.
	Sentinel = 0xFFFF
)

// Calibration constants.
const (
	currentSteps = 32768 // 2^15, current register is signed 16-bit

	ina219CalK = 0.04096
	ina226CalK = 0.00512

	ina219PowerFactor = 20
	ina226PowerFactor = 25
)

// Fixed-point LSBs.
const (
	ina219BusLSB_V    = 0.004   // after >> 3
	ina226BusLSB_V    = 0.00125 // no shift
	ina219ShuntLSB_mV = 0.010
	ina226ShuntLSB_mV = 0.0025
)
