package models

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// PixelGrid is a single band of raster samples promoted to 32-bit floats.
type PixelGrid struct {
	// Data holds the samples in row-major order
	Data []float32

	// Rows is the number of raster lines
	Rows int

	// Cols is the number of pixels per line
	Cols int
}

// NewPixelGrid allocates a zeroed grid of rows x cols samples.
func NewPixelGrid(rows, cols int) *PixelGrid {
	return &PixelGrid{
		Data: make([]float32, rows*cols),
		Rows: rows,
		Cols: cols,
	}
}

// GridFromRows builds a grid from a slice of equally long rows.
// It is mostly useful for small hand-written grids.
func GridFromRows(rows [][]float32) (*PixelGrid, error) {
	if len(rows) == 0 {
		return NewPixelGrid(0, 0), nil
	}

	cols := len(rows[0])
	grid := NewPixelGrid(len(rows), cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, errors.Errorf("row %d has %d columns, expected %d", i, len(row), cols)
		}
		copy(grid.Data[i*cols:(i+1)*cols], row)
	}

	return grid, nil
}

// At returns the sample at line i, pixel j.
func (g *PixelGrid) At(i, j int) float32 {
	return g.Data[i*g.Cols+j]
}

// Set stores v at line i, pixel j.
func (g *PixelGrid) Set(i, j int, v float32) {
	g.Data[i*g.Cols+j] = v
}

// SameShape reports whether g and other have identical dimensions.
func (g *PixelGrid) SameShape(other *PixelGrid) bool {
	return g.Rows == other.Rows && g.Cols == other.Cols
}

// GeoTransform is a GDAL-ordered affine transform:
// originX, pixelWidth, rowRotation, originY, columnRotation, pixelHeight.
type GeoTransform [6]float64

// IdentityTransform is what GDAL reports for rasters without georeferencing.
var IdentityTransform = GeoTransform{0, 1, 0, 0, 0, 1}

// Apply maps pixel/line coordinates to georeferenced coordinates.
func (gt GeoTransform) Apply(px, py float64) (x, y float64) {
	x = gt[0] + px*gt[1] + py*gt[2]
	y = gt[3] + px*gt[4] + py*gt[5]
	return x, y
}

// IsNorthUp reports whether the transform has no rotation terms.
func (gt GeoTransform) IsNorthUp() bool {
	return gt[2] == 0 && gt[4] == 0
}

// Valid reports whether every coefficient is finite and the pixel size is non-zero.
func (gt GeoTransform) Valid() bool {
	for _, v := range gt {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return gt[1]*gt[5]-gt[2]*gt[4] != 0
}

// PixelType is the sample type of a written raster band.
type PixelType int

const (
	Byte PixelType = iota + 1
	Float32
)

func (p PixelType) String() string {
	switch p {
	case Byte:
		return "Byte"
	case Float32:
		return "Float32"
	default:
		return fmt.Sprintf("PixelType(%d)", int(p))
	}
}
