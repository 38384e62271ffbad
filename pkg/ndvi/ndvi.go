// Package ndvi computes the Normalized Difference Vegetation Index from a
// near-infrared band and a visible colour band and writes it as a new
// georeferenced raster.
//
// The work is split into three sequential stages: LoadBands reads both bands
// as float32 grids, Compute applies the band ratio and the selected Encoding,
// and Write hands the encoded grid to a Sink. Run chains the three.
package ndvi

import (
	"github.com/pkg/errors"

	"ndvi/internal/models"
)

// Output describes a raster written by Run.
type Output struct {
	Path         string
	Rows         int
	Cols         int
	GeoTransform models.GeoTransform
	PixelType    models.PixelType
	Encoding     Encoding
	Nodata       float64
	Invalid      int

	// Result is the encoded grid that was written
	Result *Result
}

// Run computes NDVI over the rows x cols window of nir and colour and writes
// it to path through sink, carrying gt over unchanged. Nothing is created when
// the inputs or the encoding are rejected.
func Run(nir, colour Band, rows, cols int, gt models.GeoTransform, path string, encoding Encoding, sink Sink) (*Output, error) {
	if err := encoding.Validate(); err != nil {
		return nil, err
	}

	nirGrid, colourGrid, err := LoadBands(nir, colour, rows, cols)
	if err != nil {
		return nil, errors.Wrap(err, "load bands")
	}

	result, err := Compute(nirGrid, colourGrid, encoding)
	if err != nil {
		return nil, errors.Wrap(err, "compute ndvi")
	}

	nodata := result.Nodata
	if err := Write(sink, result.Grid, gt, &nodata, result.PixelType, path); err != nil {
		return nil, err
	}

	return &Output{
		Path:         path,
		Rows:         rows,
		Cols:         cols,
		GeoTransform: gt,
		PixelType:    result.PixelType,
		Encoding:     encoding,
		Nodata:       result.Nodata,
		Invalid:      result.Invalid,
		Result:       result,
	}, nil
}
