package geotiff

import (
	"ndvi/internal/models"
	"ndvi/pkg/ndvi"
)

// Driver opens and creates GeoTIFF files without any native dependency.
type Driver struct{}

// Open implements ndvi.Opener.
func (Driver) Open(path string) (ndvi.Source, error) {
	ds, err := Open(path)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// Create implements ndvi.Sink.
func (Driver) Create(path string, cols, rows int, pixelType models.PixelType) (ndvi.Dataset, error) {
	w, err := Create(path, cols, rows, pixelType)
	if err != nil {
		return nil, err
	}
	return w, nil
}
