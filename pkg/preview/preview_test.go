package preview

import (
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndvi/internal/models"
)

// floatDecode treats -99 as nodata, like NativeFloat output.
func floatDecode(v float32) (float64, bool) {
	if v == -99 {
		return 0, false
	}
	return float64(v), true
}

func TestNewRendererDefaultRamp(t *testing.T) {
	r, err := NewRenderer(nil)
	require.NoError(t, err)
	assert.Len(t, r.stops, len(DefaultRamp))
}

func TestNewRendererErrors(t *testing.T) {
	_, err := NewRenderer([]string{"#000000"})
	assert.Error(t, err)

	_, err = NewRenderer([]string{"#000000", "green"})
	assert.Error(t, err)
}

func TestColorEndpointsAndClamping(t *testing.T) {
	r, err := NewRenderer([]string{"#000000", "#ff0000", "#ffffff"})
	require.NoError(t, err)

	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, r.Color(-1))
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, r.Color(0))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, r.Color(1))
	assert.Equal(t, r.Color(-1), r.Color(-5))
	assert.Equal(t, r.Color(1), r.Color(1.3))

	mid := r.Color(-0.5)
	assert.Equal(t, uint8(128), mid.R)
	assert.Equal(t, uint8(0), mid.G)
}

func TestRenderMarksNodataTransparent(t *testing.T) {
	r, err := NewRenderer([]string{"#000000", "#ffffff"})
	require.NoError(t, err)

	grid, err := models.GridFromRows([][]float32{{-1, 1}, {-99, 0}})
	require.NoError(t, err)

	img := r.Render(grid, floatDecode)
	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, img.NRGBAAt(1, 0))
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 1).A)
	assert.Equal(t, uint8(255), img.NRGBAAt(1, 1).A)
}

func TestSave(t *testing.T) {
	r, err := NewRenderer(nil)
	require.NoError(t, err)
	grid, err := models.GridFromRows([][]float32{{-1, 0, 1}})
	require.NoError(t, err)
	img := r.Render(grid, floatDecode)

	dir := t.TempDir()

	pngPath := filepath.Join(dir, "sub", "ndvi.png")
	require.NoError(t, Save(img, pngPath))
	f, err := os.Open(pngPath)
	require.NoError(t, err)
	defer f.Close()
	_, err = png.Decode(f)
	assert.NoError(t, err)

	jpgPath := filepath.Join(dir, "ndvi.jpg")
	require.NoError(t, Save(img, jpgPath))
	g, err := os.Open(jpgPath)
	require.NoError(t, err)
	defer g.Close()
	_, err = jpeg.Decode(g)
	assert.NoError(t, err)
}
