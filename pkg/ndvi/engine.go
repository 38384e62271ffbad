package ndvi

import (
	"math"

	"github.com/pkg/errors"

	"ndvi/internal/models"
)

// Result is the encoded NDVI grid together with everything the writer needs.
type Result struct {
	// Grid holds the encoded samples
	Grid *models.PixelGrid

	// Encoding is the policy Grid was produced with
	Encoding Encoding

	// Nodata is the sentinel used for invalid pixels
	Nodata float64

	// PixelType is the sample type Grid must be written with
	PixelType models.PixelType

	// Invalid counts the pixels replaced by Nodata
	Invalid int
}

// Compute calculates (nir - colour) / (nir + colour) for every pixel and
// encodes the result.
//
// A pixel is invalid when its denominator is zero or its ratio is NaN, which
// covers 0/0, x/0 and inputs loaded as NaN. Invalid pixels are written as the
// encoding's nodata sentinel and never as NaN. Valid NativeFloat values are
// not clamped.
func Compute(nir, colour *models.PixelGrid, encoding Encoding) (*Result, error) {
	if err := encoding.Validate(); err != nil {
		return nil, err
	}
	if nir == nil || colour == nil {
		return nil, errors.Wrap(ErrDimensionMismatch, "missing input grid")
	}
	if !nir.SameShape(colour) {
		return nil, errors.Wrapf(ErrDimensionMismatch, "nir is %dx%d, colour is %dx%d",
			nir.Rows, nir.Cols, colour.Rows, colour.Cols)
	}

	out := models.NewPixelGrid(nir.Rows, nir.Cols)
	invalid := 0
	for i, n := range nir.Data {
		raw, ok := ratio(n, colour.Data[i])
		if !ok {
			invalid++
		}
		out.Data[i] = encoding.encode(raw, ok)
	}

	return &Result{
		Grid:      out,
		Encoding:  encoding,
		Nodata:    encoding.Nodata(),
		PixelType: encoding.PixelType(),
		Invalid:   invalid,
	}, nil
}

// ratio returns the raw normalized difference and whether it is defined.
func ratio(nir, colour float32) (float32, bool) {
	numerator := nir - colour
	denominator := nir + colour
	if denominator == 0 {
		return 0, false
	}

	raw := numerator / denominator
	if math.IsNaN(float64(raw)) {
		return 0, false
	}
	return raw, true
}
