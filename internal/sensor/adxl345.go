package sensor

import "encoding/binary"

// ADXL345 register map (subset).
const (
	adxlRegDevID      = 0x00
	adxlRegBWRate     = 0x2C
	adxlRegPowerCtl   = 0x2D
	adxlRegDataFormat = 0x31
	adxlRegDataX0     = 0x32

	adxlDeviceID = 0xE5

	adxlRate100Hz    = 0x0A
	adxlMeasure      = 0x08
	adxlStandby      = 0x00
	adxlFullRes16g   = 0x0B   // FULL_RES | ±16g
	adxlScaleFullRes = 0.0039 // g per LSB in full-resolution mode
)

// DefaultADXL345Addr is the I2C address with SDO/ALT ADDRESS tied low.
const DefaultADXL345Addr = 0x53

// decodeADXL345 converts the six DATAX0..DATAZ1 bytes into m/s².
func decodeADXL345(raw []byte) (x, y, z float64) {
	conv := func(b []byte) float64 {
		return float64(int16(binary.LittleEndian.Uint16(b))) * adxlScaleFullRes * StandardGravity
	}
	return conv(raw[0:2]), conv(raw[2:4]), conv(raw[4:6])
}
