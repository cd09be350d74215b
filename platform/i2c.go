// Package platform opens the host I²C bus for the drivers.
package platform

import (
	"io"
	"sync"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"

	"inamqtt-go/errcode"
)

// Bus is an open I²C bus usable by tinygo drivers.
type Bus interface {
	drivers.I2C
	io.Closer
}

var (
	initOnce sync.Once
	initErr  error
)

// OpenI2C opens a bus by name ("/dev/i2c-1", "1", or "" for the first).
func OpenI2C(name string) (Bus, error) {
	initOnce.Do(func() { _, initErr = host.Init() })
	if initErr != nil {
		return nil, &errcode.E{C: errcode.BusOpen, Op: "host init", Err: initErr}
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, &errcode.E{C: errcode.BusOpen, Op: "open", Msg: name, Err: err}
	}
	return b, nil
}
