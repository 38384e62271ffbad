package ndvi

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"ndvi/internal/models"
	"ndvi/pkg/preview"
)

// Source is an opened single-file raster.
type Source interface {
	// Size returns the raster extent in pixels.
	Size() (cols, rows int)

	// GeoTransform returns the raster's affine transform; ok is false when the
	// file carries no georeferencing.
	GeoTransform() (gt models.GeoTransform, ok bool)

	// Band returns the 1-based band n.
	Band(n int) (Band, error)

	Close() error
}

// Opener opens existing rasters for reading.
type Opener interface {
	Open(path string) (Source, error)
}

// Driver can both read inputs and create outputs.
type Driver interface {
	Opener
	Sink
}

// Params holds the inputs of a file-level NDVI run.
type Params struct {
	// NIRPath is the raster holding the near-infrared band.
	// Its extent and geotransform are used for the output.
	NIRPath string

	// ColourPath is the raster holding the visible colour band
	ColourPath string

	// NIRBand and ColourBand are 1-based band numbers; zero means band 1
	NIRBand    int
	ColourBand int

	// OutputPath is where the NDVI raster is written
	OutputPath string

	// Encoding selects the output sample representation
	Encoding Encoding

	// StatsPath, when set, receives a YAML summary of the result
	StatsPath string

	// VegetationThreshold feeds Stats.VegetatedPercent and is used as given;
	// zero is a valid threshold. Callers wanting the usual cut-off pass
	// DefaultVegetationThreshold.
	VegetationThreshold float64

	// PreviewPath, when set, receives a colour-ramped PNG or JPEG quicklook
	PreviewPath string

	// PreviewRamp lists hex colour stops from NDVI -1 to 1; empty uses the default ramp
	PreviewRamp []string
}

// Processor runs the NDVI pipeline over files.
type Processor struct {
	params *Params
	driver Driver
	log    logrus.FieldLogger

	output *Output
	stats  *Stats
}

// NewProcessor creates a processor reading and writing through driver.
// A nil logger falls back to the logrus standard logger.
func NewProcessor(params *Params, driver Driver, logger logrus.FieldLogger) *Processor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Processor{
		params: params,
		driver: driver,
		log:    logger,
	}
}

// Process opens both inputs, computes NDVI, writes the output and then the
// optional report and preview.
func (p *Processor) Process() error {
	start := time.Now()

	nirSrc, err := p.driver.Open(p.params.NIRPath)
	if err != nil {
		return errors.Wrapf(err, "open nir raster %s", p.params.NIRPath)
	}
	defer nirSrc.Close()

	colourSrc, err := p.driver.Open(p.params.ColourPath)
	if err != nil {
		return errors.Wrapf(err, "open colour raster %s", p.params.ColourPath)
	}
	defer colourSrc.Close()

	nirBand, err := nirSrc.Band(bandOrDefault(p.params.NIRBand))
	if err != nil {
		return errors.Wrap(err, "nir band")
	}
	colourBand, err := colourSrc.Band(bandOrDefault(p.params.ColourBand))
	if err != nil {
		return errors.Wrap(err, "colour band")
	}

	cols, rows := nirBand.Size()
	if colourCols, colourRows := colourBand.Size(); colourCols != cols || colourRows != rows {
		return errors.Wrapf(ErrDimensionMismatch, "nir band is %dx%d, colour band is %dx%d",
			rows, cols, colourRows, colourCols)
	}

	gt, ok := nirSrc.GeoTransform()
	if !ok {
		p.log.WithField("path", p.params.NIRPath).Warn("nir raster has no geotransform, output will not be georeferenced")
	}

	p.log.WithFields(logrus.Fields{
		"rows":         rows,
		"cols":         cols,
		"geotransform": gt,
		"encoding":     p.params.Encoding,
	}).Info("computing ndvi")

	out, err := Run(nirBand, colourBand, rows, cols, gt, p.params.OutputPath, p.params.Encoding, p.driver)
	if err != nil {
		return err
	}
	p.output = out

	p.log.WithFields(logrus.Fields{
		"path":      out.Path,
		"pixelType": out.PixelType,
		"nodata":    out.Nodata,
		"invalid":   out.Invalid,
	}).Info("ndvi raster written")

	if p.params.StatsPath != "" {
		if err := p.writeStats(); err != nil {
			return err
		}
	}

	if p.params.PreviewPath != "" {
		if err := p.writePreview(); err != nil {
			return err
		}
	}

	p.log.WithField("elapsed", time.Since(start)).Debug("processing finished")
	return nil
}

// Output returns the handle of the written raster, or nil before Process succeeds.
func (p *Processor) Output() *Output {
	return p.output
}

// Stats computes (once) and returns the statistics of the written raster.
func (p *Processor) Stats() *Stats {
	if p.stats == nil && p.output != nil {
		s := Summarize(p.output.Result, p.params.VegetationThreshold)
		p.stats = &s
	}
	return p.stats
}

func (p *Processor) writeStats() error {
	data, err := yaml.Marshal(p.Stats())
	if err != nil {
		return errors.Wrap(err, "marshal statistics")
	}

	if dir := filepath.Dir(p.params.StatsPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "create statistics directory")
		}
	}
	if err := os.WriteFile(p.params.StatsPath, data, 0644); err != nil {
		return errors.Wrap(err, "write statistics")
	}

	p.log.WithField("path", p.params.StatsPath).Info("statistics written")
	return nil
}

func (p *Processor) writePreview() error {
	renderer, err := preview.NewRenderer(p.params.PreviewRamp)
	if err != nil {
		return errors.Wrap(err, "preview ramp")
	}

	img := renderer.Render(p.output.Result.Grid, p.output.Encoding.Decode)
	if err := preview.Save(img, p.params.PreviewPath); err != nil {
		return errors.Wrap(err, "save preview")
	}

	p.log.WithField("path", p.params.PreviewPath).Info("preview written")
	return nil
}

func bandOrDefault(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}
