package ndvi

import (
	"math"
	"strings"

	"github.com/pkg/errors"

	"ndvi/internal/models"
)

// Encoding selects how NDVI values and invalid pixels are represented in the
// output raster.
type Encoding int

const (
	// ScaledByte maps [-1, 1] linearly onto [0, 254] and writes invalid pixels as 255.
	ScaledByte Encoding = iota + 1

	// NativeFloat keeps the raw ratio and writes invalid pixels as -99.
	NativeFloat
)

const (
	// ByteScale is the multiplier of the (raw+1)*ByteScale byte mapping.
	ByteScale = 127

	// ByteMax is the largest byte a valid pixel can take.
	ByteMax = 2 * ByteScale

	// ByteNodata marks invalid pixels in ScaledByte output.
	ByteNodata = 255

	// FloatNodata marks invalid pixels in NativeFloat output.
	FloatNodata = -99
)

// ParseEncoding accepts "byte" or "float" (and the long names) case-insensitively.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "byte", "scaledbyte", "scaled-byte", "uint8":
		return ScaledByte, nil
	case "float", "nativefloat", "native-float", "float32":
		return NativeFloat, nil
	default:
		return 0, errors.Wrapf(ErrUnsupportedEncoding, "%q", s)
	}
}

func (e Encoding) String() string {
	switch e {
	case ScaledByte:
		return "byte"
	case NativeFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Validate returns ErrUnsupportedEncoding for anything but the two known variants.
func (e Encoding) Validate() error {
	switch e {
	case ScaledByte, NativeFloat:
		return nil
	default:
		return errors.Wrapf(ErrUnsupportedEncoding, "encoding %d", int(e))
	}
}

// PixelType is the sample type the encoded grid is written with.
func (e Encoding) PixelType() models.PixelType {
	if e == ScaledByte {
		return models.Byte
	}
	return models.Float32
}

// Nodata is the sentinel written for invalid pixels.
func (e Encoding) Nodata() float64 {
	if e == ScaledByte {
		return ByteNodata
	}
	return FloatNodata
}

// encode converts a raw ratio into the stored sample; ok is false for invalid pixels.
func (e Encoding) encode(raw float32, ok bool) float32 {
	if !ok {
		return float32(e.Nodata())
	}
	if e == NativeFloat {
		return raw
	}

	scaled := math.Round(float64(raw+1) * ByteScale)
	if scaled < 0 {
		scaled = 0
	} else if scaled > ByteMax {
		scaled = ByteMax
	}
	return float32(scaled)
}

// Decode turns a stored sample back into NDVI units. It reports false when v
// is the nodata sentinel of e.
func (e Encoding) Decode(v float32) (float64, bool) {
	if float64(v) == e.Nodata() || math.IsNaN(float64(v)) {
		return 0, false
	}
	if e == ScaledByte {
		return float64(v)/ByteScale - 1, true
	}
	return float64(v), true
}
