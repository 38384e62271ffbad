// Package preview renders NDVI rasters as colour-ramped quicklook images.
package preview

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1"

	"ndvi/internal/models"
)

// DefaultRamp runs from bare/water (brown) through sparse (yellow) to dense
// vegetation (dark green).
var DefaultRamp = []string{"#8c510a", "#d8b365", "#f6e8c3", "#c7e9b4", "#5ab45a", "#1a6e1a"}

// DecodeFunc converts a stored sample into NDVI, reporting false for nodata.
type DecodeFunc func(v float32) (float64, bool)

// Renderer maps NDVI values in [-1, 1] onto a piecewise linear colour ramp.
type Renderer struct {
	// stops holds the ramp colours, evenly spaced over [-1, 1]
	stops []color.NRGBA
}

// NewRenderer parses hex colour stops. An empty ramp selects DefaultRamp.
func NewRenderer(ramp []string) (*Renderer, error) {
	if len(ramp) == 0 {
		ramp = DefaultRamp
	}
	if len(ramp) < 2 {
		return nil, errors.Errorf("colour ramp needs at least 2 stops, got %d", len(ramp))
	}

	stops := make([]color.NRGBA, len(ramp))
	for i, s := range ramp {
		hex, err := colors.ParseHEX(s)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid ramp colour %q", s)
		}
		rgb := hex.ToRGB()
		stops[i] = color.NRGBA{R: rgb.R, G: rgb.G, B: rgb.B, A: 255}
	}

	return &Renderer{stops: stops}, nil
}

// Color returns the ramp colour for an NDVI value; values outside [-1, 1] are clamped.
func (r *Renderer) Color(ndvi float64) color.NRGBA {
	t := (math.Max(-1, math.Min(1, ndvi)) + 1) / 2
	pos := t * float64(len(r.stops)-1)
	i := int(pos)
	if i >= len(r.stops)-1 {
		return r.stops[len(r.stops)-1]
	}

	f := pos - float64(i)
	a, b := r.stops[i], r.stops[i+1]
	return color.NRGBA{
		R: lerp(a.R, b.R, f),
		G: lerp(a.G, b.G, f),
		B: lerp(a.B, b.B, f),
		A: 255,
	}
}

// Render draws grid pixel for pixel. Nodata pixels are fully transparent.
func (r *Renderer) Render(grid *models.PixelGrid, decode DecodeFunc) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, grid.Cols, grid.Rows))
	for y := 0; y < grid.Rows; y++ {
		for x := 0; x < grid.Cols; x++ {
			v, ok := decode(grid.At(y, x))
			if !ok {
				continue
			}
			img.SetNRGBA(x, y, r.Color(v))
		}
	}
	return img
}

// Save writes img as JPEG for .jpg/.jpeg paths and as PNG otherwise.
// JPEG has no alpha channel, so nodata pixels come out black there.
func Save(img image.Image, filename string) error {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		err = png.Encode(file, img)
	}
	if err != nil {
		return err
	}

	return file.Close()
}

func lerp(a, b uint8, f float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*f))
}
