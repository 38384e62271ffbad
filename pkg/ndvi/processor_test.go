package ndvi_test

import (
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"ndvi/internal/models"
	"ndvi/pkg/geotiff"
	"ndvi/pkg/ndvi"
)

var utmTransform = models.GeoTransform{440720, 30, 0, 3751320, 0, -30}

// writeBand stores rows as a single-band Float32 GeoTIFF.
func writeBand(t *testing.T, path string, rows [][]float32, gt models.GeoTransform) {
	t.Helper()
	grid, err := models.GridFromRows(rows)
	require.NoError(t, err)
	require.NoError(t, ndvi.Write(geotiff.Driver{}, grid, gt, nil, models.Float32, path))
}

func TestProcessorWritesGeoreferencedNDVI(t *testing.T) {
	dir := t.TempDir()
	nirPath := filepath.Join(dir, "nir.tif")
	redPath := filepath.Join(dir, "red.tif")
	writeBand(t, nirPath, [][]float32{{200, 50, 0}, {120, 80, 10}}, utmTransform)
	writeBand(t, redPath, [][]float32{{50, 200, 0}, {40, 80, 30}}, utmTransform)

	for _, enc := range []ndvi.Encoding{ndvi.NativeFloat, ndvi.ScaledByte} {
		t.Run(enc.String(), func(t *testing.T) {
			logger, hook := test.NewNullLogger()
			params := &ndvi.Params{
				NIRPath:    nirPath,
				ColourPath: redPath,
				OutputPath: filepath.Join(dir, "ndvi_"+enc.String()+".tif"),
				Encoding:   enc,
			}

			p := ndvi.NewProcessor(params, geotiff.Driver{}, logger)
			require.NoError(t, p.Process())
			assert.NotEmpty(t, hook.AllEntries())

			out := p.Output()
			require.NotNil(t, out)
			assert.Equal(t, 1, out.Invalid)
			assert.Equal(t, enc.PixelType(), out.PixelType)

			ds, err := geotiff.Open(params.OutputPath)
			require.NoError(t, err)
			defer ds.Close()

			cols, rows := ds.Size()
			assert.Equal(t, 3, cols)
			assert.Equal(t, 2, rows)

			gt, ok := ds.GeoTransform()
			require.True(t, ok)
			assert.Equal(t, utmTransform, gt)

			nodata, ok := ds.Nodata()
			require.True(t, ok)
			assert.Equal(t, enc.Nodata(), nodata)

			band, err := ds.Band(1)
			require.NoError(t, err)
			data, err := band.ReadWindow(0, 0, cols, rows)
			require.NoError(t, err)
			assert.Equal(t, out.Result.Grid.Data, data)
			assert.Equal(t, float32(enc.Nodata()), data[2])
		})
	}
}

func TestProcessorReportAndPreview(t *testing.T) {
	dir := t.TempDir()
	nirPath := filepath.Join(dir, "nir.tif")
	redPath := filepath.Join(dir, "red.tif")
	writeBand(t, nirPath, [][]float32{{200, 50}, {0, 90}}, utmTransform)
	writeBand(t, redPath, [][]float32{{50, 200}, {0, 10}}, utmTransform)

	params := &ndvi.Params{
		NIRPath:     nirPath,
		ColourPath:  redPath,
		OutputPath:  filepath.Join(dir, "ndvi.tif"),
		Encoding:    ndvi.ScaledByte,
		StatsPath:   filepath.Join(dir, "report", "ndvi.stats.yaml"),
		PreviewPath: filepath.Join(dir, "ndvi.png"),

		VegetationThreshold: ndvi.DefaultVegetationThreshold,
	}

	logger, _ := test.NewNullLogger()
	p := ndvi.NewProcessor(params, geotiff.Driver{}, logger)
	require.NoError(t, p.Process())

	data, err := os.ReadFile(params.StatsPath)
	require.NoError(t, err)
	var stats ndvi.Stats
	require.NoError(t, yaml.Unmarshal(data, &stats))
	assert.Equal(t, 3, stats.Valid)
	assert.Equal(t, 1, stats.Invalid)
	assert.Equal(t, "byte", stats.Encoding)
	assert.InDelta(t, 200.0/3, stats.VegetatedPercent, 1e-9)

	f, err := os.Open(params.PreviewPath)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())

	_, _, _, a := img.At(0, 1).RGBA()
	assert.Zero(t, a, "nodata pixel should be transparent")
	_, _, _, a = img.At(0, 0).RGBA()
	assert.NotZero(t, a)
}

func TestProcessorMissingInput(t *testing.T) {
	dir := t.TempDir()
	params := &ndvi.Params{
		NIRPath:    filepath.Join(dir, "missing.tif"),
		ColourPath: filepath.Join(dir, "missing.tif"),
		OutputPath: filepath.Join(dir, "ndvi.tif"),
		Encoding:   ndvi.NativeFloat,
	}

	p := ndvi.NewProcessor(params, geotiff.Driver{}, logrus.New())
	require.Error(t, p.Process())
	assert.Nil(t, p.Output())
	_, err := os.Stat(params.OutputPath)
	assert.True(t, os.IsNotExist(err))
}

func TestProcessorMismatchedInputs(t *testing.T) {
	dir := t.TempDir()
	nirPath := filepath.Join(dir, "nir.tif")
	redPath := filepath.Join(dir, "red.tif")
	writeBand(t, nirPath, [][]float32{{1, 2, 3}, {4, 5, 6}}, utmTransform)
	writeBand(t, redPath, [][]float32{{1, 2}, {3, 4}}, utmTransform)

	params := &ndvi.Params{
		NIRPath:    nirPath,
		ColourPath: redPath,
		OutputPath: filepath.Join(dir, "ndvi.tif"),
		Encoding:   ndvi.NativeFloat,
	}

	logger, _ := test.NewNullLogger()
	err := ndvi.NewProcessor(params, geotiff.Driver{}, logger).Process()
	assert.ErrorIs(t, err, ndvi.ErrDimensionMismatch)
	_, statErr := os.Stat(params.OutputPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcessorColourLargerThanNIR(t *testing.T) {
	dir := t.TempDir()
	nirPath := filepath.Join(dir, "nir.tif")
	redPath := filepath.Join(dir, "red.tif")
	writeBand(t, nirPath, [][]float32{{1, 2}, {3, 4}}, utmTransform)
	writeBand(t, redPath, [][]float32{{1, 2, 3}, {4, 5, 6}}, utmTransform)

	params := &ndvi.Params{
		NIRPath:    nirPath,
		ColourPath: redPath,
		OutputPath: filepath.Join(dir, "ndvi.tif"),
		Encoding:   ndvi.ScaledByte,
	}

	logger, _ := test.NewNullLogger()
	p := ndvi.NewProcessor(params, geotiff.Driver{}, logger)
	err := p.Process()
	assert.ErrorIs(t, err, ndvi.ErrDimensionMismatch)
	assert.Nil(t, p.Output())
	_, statErr := os.Stat(params.OutputPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcessorZeroVegetationThreshold(t *testing.T) {
	dir := t.TempDir()
	nirPath := filepath.Join(dir, "nir.tif")
	redPath := filepath.Join(dir, "red.tif")
	// NDVI 0.1, 0.6 and 0
	writeBand(t, nirPath, [][]float32{{11, 80, 50}}, utmTransform)
	writeBand(t, redPath, [][]float32{{9, 20, 50}}, utmTransform)

	run := func(threshold float64) *ndvi.Stats {
		logger, _ := test.NewNullLogger()
		p := ndvi.NewProcessor(&ndvi.Params{
			NIRPath:             nirPath,
			ColourPath:          redPath,
			OutputPath:          filepath.Join(dir, "ndvi.tif"),
			Encoding:            ndvi.NativeFloat,
			VegetationThreshold: threshold,
		}, geotiff.Driver{}, logger)
		require.NoError(t, p.Process())
		return p.Stats()
	}

	zero := run(0)
	assert.Equal(t, 0.0, zero.Threshold)
	assert.InDelta(t, 200.0/3, zero.VegetatedPercent, 1e-9)

	def := run(ndvi.DefaultVegetationThreshold)
	assert.InDelta(t, 100.0/3, def.VegetatedPercent, 1e-9)
}

func TestWriteFailureLeavesNoRaster(t *testing.T) {
	dir := t.TempDir()
	grid, err := models.GridFromRows([][]float32{{0.5, -0.5}})
	require.NoError(t, err)
	badTransform := models.GeoTransform{math.NaN(), 1, 0, 0, 0, -1}
	nodata := -99.0

	fresh := filepath.Join(dir, "fresh.tif")
	err = ndvi.Write(geotiff.Driver{}, grid, badTransform, &nodata, models.Float32, fresh)
	assert.ErrorIs(t, err, ndvi.ErrWriteFailure)
	_, statErr := os.Stat(fresh)
	assert.True(t, os.IsNotExist(statErr))

	existing := filepath.Join(dir, "existing.tif")
	require.NoError(t, os.WriteFile(existing, []byte("previous run"), 0644))
	err = ndvi.Write(geotiff.Driver{}, grid, utmTransform, ptr(300.0), models.Byte, existing)
	assert.ErrorIs(t, err, ndvi.ErrWriteFailure)
	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "previous run", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func ptr(v float64) *float64 { return &v }

func TestProcessorUnwritableOutput(t *testing.T) {
	dir := t.TempDir()
	nirPath := filepath.Join(dir, "nir.tif")
	writeBand(t, nirPath, [][]float32{{1}}, utmTransform)

	params := &ndvi.Params{
		NIRPath:    nirPath,
		ColourPath: nirPath,
		OutputPath: filepath.Join(dir, "no", "such", "dir", "ndvi.tif"),
		Encoding:   ndvi.NativeFloat,
	}

	logger, _ := test.NewNullLogger()
	err := ndvi.NewProcessor(params, geotiff.Driver{}, logger).Process()
	assert.ErrorIs(t, err, ndvi.ErrWriteFailure)
}
