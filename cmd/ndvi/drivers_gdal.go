//go:build gdal

package main

import (
	"ndvi/pkg/gdalraster"
	"ndvi/pkg/ndvi"
)

func init() {
	drivers["gdal"] = func() ndvi.Driver { return gdalraster.NewDriver() }
}
