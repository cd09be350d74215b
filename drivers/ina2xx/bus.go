package ina2xx

import "inamqtt-go/errcode"

// I2C 16-bit word operations (big-endian: HIGH then LOW).

func (d *Device) readWord(reg byte) (uint16, error) {
	d.w[0] = reg
	if err := d.i2c.Tx(d.addr, d.w[:1], d.r[:2]); err != nil {
		return Sentinel, &errcode.E{C: errcode.BusIO, Op: "read", Msg: regName(reg), Err: err}
	}
	return uint16(d.r[0])<<8 | uint16(d.r[1]), nil
}

func (d *Device) writeWord(reg byte, val uint16) error {
	d.w[0] = reg
	d.w[1] = byte(val >> 8) // high
	d.w[2] = byte(val)      // low
	if err := d.i2c.Tx(d.addr, d.w[:3], nil); err != nil {
		return &errcode.E{C: errcode.BusIO, Op: "write", Msg: regName(reg), Err: err}
	}
	return nil
}

// ReadRegister reads one 16-bit register. On failure it returns Sentinel
// together with a BusIO error.
func (d *Device) ReadRegister(reg byte) (uint16, error) { return d.readWord(reg) }

// WriteRegister writes one 16-bit register.
func (d *Device) WriteRegister(reg byte, val uint16) error { return d.writeWord(reg, val) }

func regName(reg byte) string {
	switch reg {
	case regConfig:
		return "config"
	case regShunt:
		return "shunt"
	case regBus:
		return "bus"
	case regPower:
		return "power"
	case regCurrent:
		return "current"
	case regCalibration:
		return "calibration"
	case regManufacturerID:
		return "manufacturer_id"
	case regDieID:
		return "die_id"
	default:
		return "reg"
	}
}
