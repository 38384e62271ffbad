package geotiff

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"ndvi/internal/models"
)

// Writer builds a single-band GeoTIFF in memory. Nothing touches the
// destination until Close succeeds; Discard drops the raster instead.
type Writer struct {
	path      string
	closed    bool
	cols      int
	rows      int
	pixelType models.PixelType

	gt        models.GeoTransform
	hasGT     bool
	nodata    float64
	hasNodata bool
	data      []float32
}

// Create prepares a cols x rows band of pixelType for path, whose directory
// must already exist. Only Byte and Float32 bands are supported.
func Create(path string, cols, rows int, pixelType models.PixelType) (*Writer, error) {
	if cols <= 0 || rows <= 0 {
		return nil, errors.Errorf("invalid raster size %dx%d", cols, rows)
	}
	switch pixelType {
	case models.Byte, models.Float32:
	default:
		return nil, errors.Errorf("pixel type %v is not supported by the GeoTIFF writer", pixelType)
	}

	info, err := os.Stat(filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create raster")
	}
	if !info.IsDir() {
		return nil, errors.Errorf("failed to create raster: %s is not a directory", filepath.Dir(path))
	}

	return &Writer{
		path:      path,
		cols:      cols,
		rows:      rows,
		pixelType: pixelType,
		gt:        models.IdentityTransform,
	}, nil
}

// SetGeoTransform records gt. The identity transform writes no model tags.
func (w *Writer) SetGeoTransform(gt models.GeoTransform) error {
	if !gt.Valid() {
		return errors.Errorf("invalid geotransform %v", gt)
	}
	w.gt = gt
	w.hasGT = gt != models.IdentityTransform
	return nil
}

// SetNodata records the band's nodata marker as a GDAL_NODATA tag.
func (w *Writer) SetNodata(value float64) error {
	if w.pixelType == models.Byte && (value < 0 || value > 255 || value != math.Trunc(value)) {
		return errors.Errorf("nodata %v does not fit a Byte band", value)
	}
	w.nodata = value
	w.hasNodata = true
	return nil
}

// WriteBand stores grid as band 1. Byte bands round and clamp each sample to [0, 255].
func (w *Writer) WriteBand(grid *models.PixelGrid) error {
	if grid.Rows != w.rows || grid.Cols != w.cols {
		return errors.Errorf("grid is %dx%d, raster is %dx%d", grid.Rows, grid.Cols, w.rows, w.cols)
	}
	w.data = append(w.data[:0], grid.Data...)
	return nil
}

// Close encodes the raster into a temporary file next to the destination
// and renames it into place.
func (w *Writer) Close() error {
	if w.closed {
		return errors.New("raster already closed")
	}
	w.closed = true

	if w.data == nil {
		w.data = make([]float32, w.cols*w.rows)
	}

	tmp, err := os.CreateTemp(filepath.Dir(w.path), "."+filepath.Base(w.path)+".*")
	if err != nil {
		return errors.Wrap(err, "failed to create raster")
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "failed to create raster")
	}
	if _, err := tmp.Write(w.encode()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "failed to write raster")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "failed to write raster")
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "failed to move raster into place")
	}
	return nil
}

// Discard drops the raster without writing anything.
func (w *Writer) Discard() error {
	w.closed = true
	w.data = nil
	return nil
}

// encode lays the file out as header, pixel strip, IFD, then out-of-line tag values.
func (w *Writer) encode() []byte {
	order := binary.LittleEndian

	var pixels []byte
	var bits, format uint16
	switch w.pixelType {
	case models.Byte:
		bits, format = 8, sampleUint
		pixels = make([]byte, len(w.data))
		for i, v := range w.data {
			pixels[i] = toByte(v)
		}
	default:
		bits, format = 32, sampleFloat
		pixels = make([]byte, 4*len(w.data))
		for i, v := range w.data {
			order.PutUint32(pixels[4*i:], math.Float32bits(v))
		}
	}

	const pixelOffset = 8
	fields := []field{
		longField(tagImageWidth, uint32(w.cols)),
		longField(tagImageLength, uint32(w.rows)),
		shortField(tagBitsPerSample, bits),
		shortField(tagCompression, 1),
		shortField(tagPhotometricInterpretation, 1),
		longField(tagStripOffsets, pixelOffset),
		shortField(tagSamplesPerPixel, 1),
		longField(tagRowsPerStrip, uint32(w.rows)),
		longField(tagStripByteCounts, uint32(len(pixels))),
		shortField(tagPlanarConfiguration, 1),
		shortField(tagSampleFormat, format),
	}
	fields = append(fields, w.geoFields()...)
	if w.hasNodata {
		fields = append(fields, asciiField(tagGDALNodata, strconv.FormatFloat(w.nodata, 'g', -1, 64)))
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].tag < fields[j].tag })

	ifdOffset := align2(pixelOffset + len(pixels))
	extraOffset := ifdOffset + 2 + 12*len(fields) + 4

	var buf bytes.Buffer
	buf.WriteString("II")
	binary.Write(&buf, order, uint16(42))
	binary.Write(&buf, order, uint32(ifdOffset))
	buf.Write(pixels)
	for buf.Len() < ifdOffset {
		buf.WriteByte(0)
	}

	var extra bytes.Buffer
	binary.Write(&buf, order, uint16(len(fields)))
	for _, f := range fields {
		binary.Write(&buf, order, f.tag)
		binary.Write(&buf, order, f.typ)
		binary.Write(&buf, order, f.count)
		if len(f.data) <= 4 {
			value := make([]byte, 4)
			copy(value, f.data)
			buf.Write(value)
			continue
		}
		binary.Write(&buf, order, uint32(extraOffset+extra.Len()))
		extra.Write(f.data)
		if extra.Len()%2 == 1 {
			extra.WriteByte(0)
		}
	}
	binary.Write(&buf, order, uint32(0))
	buf.Write(extra.Bytes())

	return buf.Bytes()
}

// geoFields returns the model tags for w.gt, or nothing for an ungeoreferenced raster.
func (w *Writer) geoFields() []field {
	if !w.hasGT {
		return nil
	}

	gt := w.gt
	var fields []field
	if gt.IsNorthUp() && gt[5] < 0 {
		fields = append(fields,
			doubleField(tagModelPixelScale, gt[1], -gt[5], 0),
			doubleField(tagModelTiepoint, 0, 0, 0, gt[0], gt[3], 0),
		)
	} else {
		fields = append(fields, doubleField(tagModelTransformation,
			gt[1], gt[2], 0, gt[0],
			gt[4], gt[5], 0, gt[3],
			0, 0, 0, 0,
			0, 0, 0, 1,
		))
	}

	// Version 1.1.0, one key: GTRasterTypeGeoKey = RasterPixelIsArea.
	fields = append(fields, shortField(tagGeoKeyDirectory,
		1, 1, 0, 1,
		keyGTRasterType, 0, 1, rasterPixelIsArea,
	))
	return fields
}

func toByte(v float32) uint8 {
	switch {
	case math.IsNaN(float64(v)) || v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(math.Round(float64(v)))
	}
}

func align2(n int) int {
	return n + n%2
}

func shortField(tag uint16, vals ...uint16) field {
	data := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint16(data[2*i:], v)
	}
	return field{tag: tag, typ: typeShort, count: uint32(len(vals)), data: data}
}

func longField(tag uint16, vals ...uint32) field {
	data := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(data[4*i:], v)
	}
	return field{tag: tag, typ: typeLong, count: uint32(len(vals)), data: data}
}

func doubleField(tag uint16, vals ...float64) field {
	data := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(data[8*i:], math.Float64bits(v))
	}
	return field{tag: tag, typ: typeDouble, count: uint32(len(vals)), data: data}
}

func asciiField(tag uint16, s string) field {
	data := append([]byte(s), 0)
	return field{tag: tag, typ: typeASCII, count: uint32(len(data)), data: data}
}
