//go:build gdal

// Package gdalraster reads and writes rasters through GDAL. It needs cgo and
// libgdal, so it is only built with the gdal build tag.
package gdalraster

import (
	"os"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/pkg/errors"

	"ndvi/internal/models"
	"ndvi/pkg/ndvi"
)

var registerOnce sync.Once

// Driver opens any raster GDAL can read and creates GeoTIFF outputs.
type Driver struct{}

// NewDriver registers the GDAL drivers on first use.
func NewDriver() Driver {
	registerOnce.Do(godal.RegisterAll)
	return Driver{}
}

// Open implements ndvi.Opener.
func (Driver) Open(path string) (ndvi.Source, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	return &Source{ds: ds}, nil
}

// Create implements ndvi.Sink with the GTiff driver.
func (Driver) Create(path string, cols, rows int, pixelType models.PixelType) (ndvi.Dataset, error) {
	var dtype godal.DataType
	switch pixelType {
	case models.Byte:
		dtype = godal.Byte
	case models.Float32:
		dtype = godal.Float32
	default:
		return nil, errors.Errorf("pixel type %v is not supported", pixelType)
	}

	ds, err := godal.Create(godal.GTiff, path, 1, dtype, cols, rows)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", path)
	}
	return &Output{ds: ds, path: path, cols: cols, rows: rows, pixelType: pixelType}, nil
}

// Source wraps an opened GDAL dataset.
type Source struct {
	ds *godal.Dataset
}

func (s *Source) Size() (cols, rows int) {
	st := s.ds.Structure()
	return st.SizeX, st.SizeY
}

func (s *Source) GeoTransform() (models.GeoTransform, bool) {
	gt, err := s.ds.GeoTransform()
	if err != nil {
		return models.IdentityTransform, false
	}
	return models.GeoTransform(gt), true
}

func (s *Source) Band(n int) (ndvi.Band, error) {
	bands := s.ds.Bands()
	if n < 1 || n > len(bands) {
		return nil, errors.Errorf("invalid band index: %d", n)
	}
	return &Band{band: bands[n-1]}, nil
}

func (s *Source) Close() error {
	return s.ds.Close()
}

// Band wraps a GDAL raster band.
type Band struct {
	band godal.Band
}

func (b *Band) Size() (cols, rows int) {
	st := b.band.Structure()
	return st.SizeX, st.SizeY
}

func (b *Band) Nodata() (float64, bool) {
	return b.band.NoData()
}

// ReadWindow lets GDAL convert the source samples to float32.
func (b *Band) ReadWindow(x, y, cols, rows int) ([]float32, error) {
	data := make([]float32, cols*rows)
	if err := b.band.Read(x, y, data, cols, rows); err != nil {
		return nil, errors.Wrap(err, "failed to read window")
	}
	return data, nil
}

// Output is a GDAL dataset being written.
type Output struct {
	ds        *godal.Dataset
	path      string
	cols      int
	rows      int
	pixelType models.PixelType
}

func (o *Output) SetGeoTransform(gt models.GeoTransform) error {
	return o.ds.SetGeoTransform([6]float64(gt))
}

func (o *Output) SetNodata(value float64) error {
	return o.ds.Bands()[0].SetNoData(value)
}

// WriteBand writes grid into band 1. Byte outputs are converted by GDAL,
// which rounds and clamps to [0, 255].
func (o *Output) WriteBand(grid *models.PixelGrid) error {
	if grid.Rows != o.rows || grid.Cols != o.cols {
		return errors.Errorf("grid is %dx%d, raster is %dx%d", grid.Rows, grid.Cols, o.rows, o.cols)
	}
	return o.ds.Bands()[0].Write(0, 0, grid.Data, grid.Cols, grid.Rows)
}

func (o *Output) Close() error {
	return o.ds.Close()
}

// Discard closes the dataset and deletes the file GDAL created for it.
func (o *Output) Discard() error {
	o.ds.Close()
	if err := os.Remove(o.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to remove %s", o.path)
	}
	return nil
}
