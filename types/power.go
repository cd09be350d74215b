package types

import "strconv"

// ------------------------
// Current / power monitor (ina2xx)
// ------------------------

// Fixed3 marshals as a JSON number with exactly three decimals.
type Fixed3 float64

func (f Fixed3) MarshalJSON() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(f), 'f', 3, 64), nil
}

// Reply published on the reply topic for each get request.
type ReadingValue struct {
	Voltage_V  Fixed3 `json:"voltage_V"`
	Current_mA Fixed3 `json:"current_mA"`
	Power_mW   Fixed3 `json:"power_mW"`
	Shunt_mV   Fixed3 `json:"shunt_mV"`
}
