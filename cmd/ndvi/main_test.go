package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiblingPath(t *testing.T) {
	assert.Equal(t, "out/ndvi.stats.yaml", siblingPath("out/ndvi.tif", ".stats.yaml"))
	assert.Equal(t, "ndvi.preview.png", siblingPath("ndvi", ".preview.png"))
	assert.Equal(t, filepath.Join("a.b", "ndvi")+".png", siblingPath(filepath.Join("a.b", "ndvi"), ".png"))
}

func TestLookupDriver(t *testing.T) {
	d, err := lookupDriver("gtiff")
	require.NoError(t, err)
	assert.NotNil(t, d)

	_, err = lookupDriver("netcdf")
	assert.ErrorContains(t, err, "gtiff")
}
