package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridFromRows(t *testing.T) {
	g, err := GridFromRows([][]float32{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	assert.Equal(t, 2, g.Rows)
	assert.Equal(t, 3, g.Cols)
	assert.Equal(t, float32(6), g.At(1, 2))

	g.Set(0, 1, 9)
	assert.Equal(t, []float32{1, 9, 3, 4, 5, 6}, g.Data)

	_, err = GridFromRows([][]float32{{1, 2}, {3}})
	assert.Error(t, err)

	empty, err := GridFromRows(nil)
	require.NoError(t, err)
	assert.Zero(t, empty.Rows)
}

func TestSameShape(t *testing.T) {
	assert.True(t, NewPixelGrid(2, 3).SameShape(NewPixelGrid(2, 3)))
	assert.False(t, NewPixelGrid(2, 3).SameShape(NewPixelGrid(3, 2)))
}

func TestGeoTransformApply(t *testing.T) {
	gt := GeoTransform{440720, 30, 0, 3751320, 0, -30}
	x, y := gt.Apply(0, 0)
	assert.Equal(t, 440720.0, x)
	assert.Equal(t, 3751320.0, y)

	x, y = gt.Apply(2, 3)
	assert.Equal(t, 440780.0, x)
	assert.Equal(t, 3751230.0, y)
	assert.True(t, gt.IsNorthUp())

	rotated := GeoTransform{0, 1, 0.5, 0, 0.25, -1}
	x, y = rotated.Apply(2, 2)
	assert.Equal(t, 3.0, x)
	assert.Equal(t, -1.5, y)
	assert.False(t, rotated.IsNorthUp())
}

func TestGeoTransformValid(t *testing.T) {
	assert.True(t, IdentityTransform.Valid())
	assert.False(t, GeoTransform{0, 0, 0, 0, 0, -1}.Valid())
	assert.False(t, GeoTransform{0, 1, 1, 0, 1, 1}.Valid())
	assert.False(t, GeoTransform{math.NaN(), 1, 0, 0, 0, -1}.Valid())
	assert.False(t, GeoTransform{0, math.Inf(1), 0, 0, 0, -1}.Valid())
}

func TestPixelTypeString(t *testing.T) {
	assert.Equal(t, "Byte", Byte.String())
	assert.Equal(t, "Float32", Float32.String())
	assert.Equal(t, "PixelType(9)", PixelType(9).String())
}
