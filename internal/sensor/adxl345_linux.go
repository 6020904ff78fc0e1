//go:build linux

package sensor

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// ADXL345 reads an ADXL345 accelerometer over I2C.
type ADXL345 struct {
	bus i2c.BusCloser
	dev *i2c.Dev
}

// OpenADXL345 initialises periph, opens the I2C bus and puts the device in
// measurement mode at 100 Hz, full resolution. An empty busName selects the
// first available bus.
func OpenADXL345(busName string, addr uint16) (*ADXL345, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}
	if addr == 0 {
		addr = DefaultADXL345Addr
	}
	a := &ADXL345{bus: bus, dev: &i2c.Dev{Bus: bus, Addr: addr}}

	id := make([]byte, 1)
	if err := a.dev.Tx([]byte{adxlRegDevID}, id); err != nil {
		bus.Close()
		return nil, fmt.Errorf("read device id: %w", err)
	}
	if id[0] != adxlDeviceID {
		bus.Close()
		return nil, fmt.Errorf("unexpected device id 0x%02X at 0x%02X", id[0], addr)
	}

	for _, w := range [][]byte{
		{adxlRegBWRate, adxlRate100Hz},
		{adxlRegDataFormat, adxlFullRes16g},
		{adxlRegPowerCtl, adxlMeasure},
	} {
		if _, err := a.dev.Write(w); err != nil {
			bus.Close()
			return nil, fmt.Errorf("write register 0x%02X: %w", w[0], err)
		}
	}
	return a, nil
}

// ReadAccel returns the current acceleration in m/s².
func (a *ADXL345) ReadAccel() (x, y, z float64, err error) {
	raw := make([]byte, 6)
	if err := a.dev.Tx([]byte{adxlRegDataX0}, raw); err != nil {
		return 0, 0, 0, fmt.Errorf("read accel: %w", err)
	}
	x, y, z = decodeADXL345(raw)
	return x, y, z, nil
}

// Close puts the device in standby and releases the bus.
func (a *ADXL345) Close() error {
	var errs []error
	if _, err := a.dev.Write([]byte{adxlRegPowerCtl, adxlStandby}); err != nil {
		errs = append(errs, fmt.Errorf("standby: %w", err))
	}
	if err := a.bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close bus: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
