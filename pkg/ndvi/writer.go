package ndvi

import (
	"github.com/pkg/errors"

	"ndvi/internal/models"
)

// Sink creates new georeferenced single-band rasters.
type Sink interface {
	Create(path string, cols, rows int, pixelType models.PixelType) (Dataset, error)
}

// Dataset is a raster being written. Close flushes it to its destination;
// Discard abandons it and removes whatever was created at the destination.
type Dataset interface {
	SetGeoTransform(gt models.GeoTransform) error
	WriteBand(grid *models.PixelGrid) error
	SetNodata(value float64) error
	Close() error
	Discard() error
}

// Write creates a single-band raster at path, stores grid in band 1 and stamps
// the geotransform. A nil nodata leaves the band without a nodata marker.
// When any step before Close fails the dataset is discarded, so no partial
// raster is left at path.
func Write(sink Sink, grid *models.PixelGrid, gt models.GeoTransform, nodata *float64, pixelType models.PixelType, path string) error {
	if grid == nil {
		return errors.Wrap(ErrWriteFailure, "nil grid")
	}

	ds, err := sink.Create(path, grid.Cols, grid.Rows, pixelType)
	if err != nil {
		return &writeFailure{op: "create " + path, cause: err}
	}

	if err := writeDataset(ds, grid, gt, nodata); err != nil {
		ds.Discard()
		return err
	}

	if err := ds.Close(); err != nil {
		return &writeFailure{op: "close " + path, cause: err}
	}
	return nil
}

func writeDataset(ds Dataset, grid *models.PixelGrid, gt models.GeoTransform, nodata *float64) error {
	if err := ds.SetGeoTransform(gt); err != nil {
		return &writeFailure{op: "set geotransform", cause: err}
	}
	if nodata != nil {
		if err := ds.SetNodata(*nodata); err != nil {
			return &writeFailure{op: "set nodata", cause: err}
		}
	}
	if err := ds.WriteBand(grid); err != nil {
		return &writeFailure{op: "write band 1", cause: err}
	}
	return nil
}
