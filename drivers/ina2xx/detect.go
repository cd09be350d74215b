package ina2xx

// DetectModel classifies the device from its manufacturer ID register.
// "TI" means INA226; the INA219 power-on config word means INA219 (it
// echoes config for pointers it does not map). Anything else, or a failed
// read, is treated as INA226.
func (d *Device) DetectModel() (Model, error) {
	v, err := d.readWord(regManufacturerID)
	if err != nil {
		return ModelINA226, err
	}
	return modelFromID(v), nil
}

func modelFromID(v uint16) Model {
	switch v {
	case manufacturerTI:
		return ModelINA226
	case ina219ConfigPOR:
		return ModelINA219
	default:
		return ModelINA226
	}
}
