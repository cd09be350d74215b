package ina2xx

import (
	"tinygo.org/x/drivers"

	"inamqtt-go/x/mathx"
)

// Kind is the best guess for a device found on the bus.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindINA219Likely
	KindINA226
)

func (k Kind) String() string {
	switch k {
	case KindINA226:
		return "INA226"
	case KindINA219Likely:
		return "INA219 (likely)"
	default:
		return "unknown"
	}
}

// ScanResult is one responding address.
type ScanResult struct {
	Address uint16
	ID      uint16 // manufacturer register as read
	Kind    Kind
}

// Scan probes every 7-bit address in [ScanFirst, ScanLast] with a 2-byte
// read of the manufacturer ID register. Only addresses whose read succeeded
// are reported, in ascending order.
func Scan(bus drivers.I2C) []ScanResult {
	var out []ScanResult
	w := [1]byte{regManufacturerID}
	var r [2]byte
	for addr := uint16(ScanFirst); addr <= ScanLast; addr++ {
		if err := bus.Tx(addr, w[:], r[:]); err != nil {
			continue
		}
		id := uint16(r[0])<<8 | uint16(r[1])
		out = append(out, ScanResult{Address: addr, ID: id, Kind: classify(addr, id)})
	}
	return out
}

func classify(addr, id uint16) Kind {
	switch {
	case id == manufacturerTI:
		return KindINA226
	case mathx.Between(addr, addrStrapLo, addrStrapHi):
		return KindINA219Likely
	default:
		return KindUnknown
	}
}
