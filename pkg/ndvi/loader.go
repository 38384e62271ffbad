package ndvi

import (
	"math"

	"github.com/pkg/errors"

	"ndvi/internal/models"
)

// Band is a read-only single raster band.
type Band interface {
	// Size returns the band extent in pixels.
	Size() (cols, rows int)

	// ReadWindow materializes the cols x rows window whose top-left pixel is
	// (x, y) as row-major float32 samples.
	ReadWindow(x, y, cols, rows int) ([]float32, error)
}

// NodataBand is implemented by bands that carry a nodata marker.
type NodataBand interface {
	Band
	Nodata() (float64, bool)
}

// LoadBands reads the top-left rows x cols window of both bands as float32
// grids. Pixels equal to a band's own nodata marker are loaded as NaN.
func LoadBands(nir, colour Band, rows, cols int) (*models.PixelGrid, *models.PixelGrid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, nil, errors.Wrapf(ErrDimensionMismatch, "requested extent %dx%d", rows, cols)
	}

	nirGrid, err := loadBand(nir, rows, cols)
	if err != nil {
		return nil, nil, errors.Wrap(err, "nir band")
	}

	colourGrid, err := loadBand(colour, rows, cols)
	if err != nil {
		return nil, nil, errors.Wrap(err, "colour band")
	}

	return nirGrid, colourGrid, nil
}

func loadBand(band Band, rows, cols int) (*models.PixelGrid, error) {
	bandCols, bandRows := band.Size()
	if bandCols < cols || bandRows < rows {
		return nil, errors.Wrapf(ErrDimensionMismatch, "band is %dx%d, requested %dx%d", bandRows, bandCols, rows, cols)
	}

	data, err := band.ReadWindow(0, 0, cols, rows)
	if err != nil {
		return nil, errors.Wrap(err, "read window")
	}
	if len(data) != rows*cols {
		return nil, errors.Wrapf(ErrDimensionMismatch, "band returned %d samples, expected %d", len(data), rows*cols)
	}

	if nb, ok := band.(NodataBand); ok {
		if nodata, ok := nb.Nodata(); ok && !math.IsNaN(nodata) {
			nan := float32(math.NaN())
			nd := float32(nodata)
			for i, v := range data {
				if v == nd {
					data[i] = nan
				}
			}
		}
	}

	return &models.PixelGrid{Data: data, Rows: rows, Cols: cols}, nil
}
