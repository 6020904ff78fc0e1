//go:build !linux

package sensor

import "errors"

// ADXL345 is not available on non-Linux platforms.
type ADXL345 struct{}

// OpenADXL345 returns an error on non-Linux platforms.
func OpenADXL345(busName string, addr uint16) (*ADXL345, error) {
	return nil, errors.New("sensor: i2c not supported on this platform (requires Linux)")
}

// ReadAccel is not implemented on non-Linux platforms.
func (a *ADXL345) ReadAccel() (x, y, z float64, err error) {
	return 0, 0, 0, errors.New("sensor: i2c not supported")
}

// Close is not implemented on non-Linux platforms.
func (a *ADXL345) Close() error {
	return nil
}
