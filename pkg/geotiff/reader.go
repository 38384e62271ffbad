package geotiff

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/image/tiff"

	"ndvi/internal/models"
	"ndvi/pkg/ndvi"
)

// Dataset is a GeoTIFF file opened for reading. The whole file is held in memory.
type Dataset struct {
	path string
	raw  []byte
	dir  *ifd

	width           int
	height          int
	samplesPerPixel int
	bitsPerSample   int
	sampleFormat    int
	compression     int

	gt        models.GeoTransform
	hasGT     bool
	nodata    float64
	hasNodata bool

	// samples caches the decoded image, one []float32 per band
	samples [][]float32
}

// Open reads and parses the GeoTIFF at path.
func Open(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read raster")
	}

	ds, err := parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	ds.path = path
	return ds, nil
}

func parse(raw []byte) (*Dataset, error) {
	dir, err := parseIFD(raw)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{raw: raw, dir: dir}

	width, err := dir.first(tagImageWidth, 0)
	if err != nil {
		return nil, err
	}
	height, err := dir.first(tagImageLength, 0)
	if err != nil {
		return nil, err
	}
	if width == 0 || height == 0 {
		return nil, errors.New("missing image dimensions")
	}
	ds.width, ds.height = int(width), int(height)

	spp, err := dir.first(tagSamplesPerPixel, 1)
	if err != nil {
		return nil, err
	}
	bps, err := dir.first(tagBitsPerSample, 1)
	if err != nil {
		return nil, err
	}
	format, err := dir.first(tagSampleFormat, sampleUint)
	if err != nil {
		return nil, err
	}
	compression, err := dir.first(tagCompression, 1)
	if err != nil {
		return nil, err
	}
	ds.samplesPerPixel = int(spp)
	ds.bitsPerSample = int(bps)
	ds.sampleFormat = int(format)
	ds.compression = int(compression)

	if err := ds.readGeoTransform(); err != nil {
		return nil, err
	}
	if err := ds.readNodata(); err != nil {
		return nil, err
	}

	return ds, nil
}

func (ds *Dataset) readGeoTransform() error {
	switch {
	case ds.dir.has(tagModelTransformation):
		m, err := ds.dir.floats(tagModelTransformation)
		if err != nil {
			return err
		}
		if len(m) < 16 {
			return errors.Errorf("ModelTransformation has %d values, expected 16", len(m))
		}
		ds.gt = models.GeoTransform{m[3], m[0], m[1], m[7], m[4], m[5]}

	case ds.dir.has(tagModelPixelScale) && ds.dir.has(tagModelTiepoint):
		scale, err := ds.dir.floats(tagModelPixelScale)
		if err != nil {
			return err
		}
		tie, err := ds.dir.floats(tagModelTiepoint)
		if err != nil {
			return err
		}
		if len(scale) < 2 || len(tie) < 6 {
			return errors.New("incomplete ModelPixelScale/ModelTiepoint")
		}
		ds.gt = models.GeoTransform{
			tie[3] - tie[0]*scale[0], scale[0], 0,
			tie[4] + tie[1]*scale[1], 0, -scale[1],
		}

	default:
		ds.gt = models.IdentityTransform
		return nil
	}

	// GDAL reports PixelIsPoint rasters with the origin moved to the pixel corner.
	if rt, ok := ds.dir.geoKey(keyGTRasterType); ok && rt == rasterPixelIsPt {
		ds.gt[0] -= 0.5*ds.gt[1] + 0.5*ds.gt[2]
		ds.gt[3] -= 0.5*ds.gt[4] + 0.5*ds.gt[5]
	}
	ds.hasGT = true
	return nil
}

func (ds *Dataset) readNodata() error {
	if !ds.dir.has(tagGDALNodata) {
		return nil
	}

	s, err := ds.dir.ascii(tagGDALNodata)
	if err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "nan") {
		ds.nodata, ds.hasNodata = math.NaN(), true
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid GDAL_NODATA value %q", s)
	}
	ds.nodata, ds.hasNodata = v, true
	return nil
}

// Size returns the raster extent in pixels.
func (ds *Dataset) Size() (cols, rows int) {
	return ds.width, ds.height
}

// GeoTransform returns the raster's affine transform; ok is false when the
// file has no model tags.
func (ds *Dataset) GeoTransform() (models.GeoTransform, bool) {
	return ds.gt, ds.hasGT
}

// Nodata returns the GDAL_NODATA value, if any.
func (ds *Dataset) Nodata() (float64, bool) {
	return ds.nodata, ds.hasNodata
}

// BandCount is the number of samples per pixel.
func (ds *Dataset) BandCount() int {
	return ds.samplesPerPixel
}

// Band returns the 1-based band n.
func (ds *Dataset) Band(n int) (ndvi.Band, error) {
	if n < 1 || n > ds.samplesPerPixel {
		return nil, errors.Errorf("invalid band index: %d", n)
	}
	return &Band{ds: ds, index: n - 1}, nil
}

// Close releases the file contents.
func (ds *Dataset) Close() error {
	ds.raw = nil
	ds.samples = nil
	return nil
}

func (ds *Dataset) decode() error {
	if ds.samples != nil {
		return nil
	}
	if ds.raw == nil {
		return errors.New("dataset is closed")
	}

	photometric, err := ds.dir.first(tagPhotometricInterpretation, 1)
	if err != nil {
		return err
	}
	switch photometric {
	case photometricWhiteIsZero:
		return errors.New("WhiteIsZero images store inverted values and cannot be read as reflectance")
	case photometricPalette:
		return errors.New("palette images store colour indices and cannot be read as reflectance")
	}

	if ds.sampleFormat == sampleUint && (ds.bitsPerSample == 8 || ds.bitsPerSample == 16) {
		ds.samples, err = ds.decodeImage()
	} else {
		ds.samples, err = ds.decodeStrips()
	}
	return err
}

// decodeImage handles unsigned 8 and 16-bit images of any layout and
// compression x/image/tiff understands.
func (ds *Dataset) decodeImage() ([][]float32, error) {
	img, err := tiff.Decode(bytes.NewReader(ds.raw))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode image")
	}

	n := ds.width * ds.height
	bands := make([][]float32, ds.samplesPerPixel)
	for b := range bands {
		bands[b] = make([]float32, n)
	}

	switch m := img.(type) {
	case *image.Gray:
		for i := 0; i < n; i++ {
			bands[0][i] = float32(m.Pix[m.PixOffset(i%ds.width, i/ds.width)])
		}
	case *image.Gray16:
		for i := 0; i < n; i++ {
			o := m.PixOffset(i%ds.width, i/ds.width)
			bands[0][i] = float32(uint16(m.Pix[o])<<8 | uint16(m.Pix[o+1]))
		}
	case *image.RGBA:
		fill8(bands, m.Pix, m.Stride, ds.width)
	case *image.NRGBA:
		fill8(bands, m.Pix, m.Stride, ds.width)
	case *image.RGBA64:
		fill16(bands, m.Pix, m.Stride, ds.width)
	case *image.NRGBA64:
		fill16(bands, m.Pix, m.Stride, ds.width)
	default:
		// Any other colour model is read as luminance.
		bounds := img.Bounds()
		for i := 0; i < n; i++ {
			c := color.Gray16Model.Convert(img.At(bounds.Min.X+i%ds.width, bounds.Min.Y+i/ds.width)).(color.Gray16)
			v := float32(c.Y)
			if ds.bitsPerSample == 8 {
				v = float32(c.Y >> 8)
			}
			for b := range bands {
				bands[b][i] = v
			}
		}
	}

	return bands, nil
}

// fill8 copies up to four 8-bit channels out of an RGBA-like pixel buffer.
func fill8(bands [][]float32, pix []byte, stride, width int) {
	for i := range bands[0] {
		o := (i/width)*stride + (i%width)*4
		for b := range bands {
			if b < 4 {
				bands[b][i] = float32(pix[o+b])
			}
		}
	}
}

// fill16 copies up to four big-endian 16-bit channels out of an RGBA64-like pixel buffer.
func fill16(bands [][]float32, pix []byte, stride, width int) {
	for i := range bands[0] {
		o := (i/width)*stride + (i%width)*8
		for b := range bands {
			if b < 4 {
				bands[b][i] = float32(uint16(pix[o+2*b])<<8 | uint16(pix[o+2*b+1]))
			}
		}
	}
}

// decodeStrips handles uncompressed, chunky, stripped images of any numeric sample type.
func (ds *Dataset) decodeStrips() ([][]float32, error) {
	if ds.compression != 1 {
		return nil, errors.Errorf("compression %d is not supported for %d-bit sample format %d",
			ds.compression, ds.bitsPerSample, ds.sampleFormat)
	}
	if ds.dir.has(tagTileWidth) {
		return nil, errors.Errorf("tiled layout is not supported for %d-bit sample format %d",
			ds.bitsPerSample, ds.sampleFormat)
	}
	if planar, _ := ds.dir.first(tagPlanarConfiguration, 1); planar != 1 && ds.samplesPerPixel > 1 {
		return nil, errors.Errorf("planar configuration %d is not supported", planar)
	}

	read, err := sampleReader(ds.sampleFormat, ds.bitsPerSample, ds.dir.order)
	if err != nil {
		return nil, err
	}

	offsets, err := ds.dir.uints(tagStripOffsets)
	if err != nil {
		return nil, err
	}
	counts, err := ds.dir.uints(tagStripByteCounts)
	if err != nil {
		return nil, err
	}
	if len(offsets) != len(counts) {
		return nil, errors.Errorf("%d strip offsets but %d byte counts", len(offsets), len(counts))
	}

	size := ds.bitsPerSample / 8
	n := ds.width * ds.height
	need := n * ds.samplesPerPixel * size

	buf := make([]byte, 0, need)
	for i, off := range offsets {
		end := off + counts[i]
		if end > uint64(len(ds.raw)) {
			return nil, errors.Errorf("strip %d runs past end of file", i)
		}
		buf = append(buf, ds.raw[off:end]...)
	}
	if len(buf) < need {
		return nil, errors.Errorf("image data is %d bytes, expected %d", len(buf), need)
	}

	bands := make([][]float32, ds.samplesPerPixel)
	for b := range bands {
		bands[b] = make([]float32, n)
	}
	for i := 0; i < n; i++ {
		for b := range bands {
			o := (i*ds.samplesPerPixel + b) * size
			bands[b][i] = read(buf[o : o+size])
		}
	}

	return bands, nil
}

// sampleReader returns a function converting one raw sample to float32.
func sampleReader(format, bits int, order binary.ByteOrder) (func([]byte) float32, error) {
	switch {
	case format == sampleUint && bits == 8:
		return func(b []byte) float32 { return float32(b[0]) }, nil
	case format == sampleUint && bits == 16:
		return func(b []byte) float32 { return float32(order.Uint16(b)) }, nil
	case format == sampleUint && bits == 32:
		return func(b []byte) float32 { return float32(order.Uint32(b)) }, nil
	case format == sampleInt && bits == 8:
		return func(b []byte) float32 { return float32(int8(b[0])) }, nil
	case format == sampleInt && bits == 16:
		return func(b []byte) float32 { return float32(int16(order.Uint16(b))) }, nil
	case format == sampleInt && bits == 32:
		return func(b []byte) float32 { return float32(int32(order.Uint32(b))) }, nil
	case format == sampleFloat && bits == 32:
		return func(b []byte) float32 { return math.Float32frombits(order.Uint32(b)) }, nil
	case format == sampleFloat && bits == 64:
		return func(b []byte) float32 { return float32(math.Float64frombits(order.Uint64(b))) }, nil
	default:
		return nil, errors.Errorf("unsupported sample format %d with %d bits", format, bits)
	}
}

// Band is one band of a Dataset.
type Band struct {
	ds    *Dataset
	index int
}

// Size returns the band extent in pixels.
func (b *Band) Size() (cols, rows int) {
	return b.ds.Size()
}

// Nodata returns the dataset's GDAL_NODATA value.
func (b *Band) Nodata() (float64, bool) {
	return b.ds.Nodata()
}

// ReadWindow copies the cols x rows window at (x, y) into a new slice.
func (b *Band) ReadWindow(x, y, cols, rows int) ([]float32, error) {
	if x < 0 || y < 0 || cols <= 0 || rows <= 0 || x+cols > b.ds.width || y+rows > b.ds.height {
		return nil, errors.Errorf("window %dx%d at (%d,%d) outside %dx%d raster",
			cols, rows, x, y, b.ds.width, b.ds.height)
	}
	if err := b.ds.decode(); err != nil {
		return nil, err
	}

	src := b.ds.samples[b.index]
	out := make([]float32, cols*rows)
	for r := 0; r < rows; r++ {
		start := (y+r)*b.ds.width + x
		copy(out[r*cols:(r+1)*cols], src[start:start+cols])
	}
	return out, nil
}
