package main

import (
	"sort"

	"github.com/pkg/errors"

	"ndvi/pkg/geotiff"
	"ndvi/pkg/ndvi"
)

// drivers lists the raster backends compiled into this binary.
var drivers = map[string]func() ndvi.Driver{
	"gtiff": func() ndvi.Driver { return geotiff.Driver{} },
}

func lookupDriver(name string) (ndvi.Driver, error) {
	newDriver, ok := drivers[name]
	if !ok {
		names := make([]string, 0, len(drivers))
		for n := range drivers {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, errors.Errorf("unknown driver %q (available: %v)", name, names)
	}
	return newDriver(), nil
}
