// Package geotiff reads and writes single-band GeoTIFF rasters.
//
// Only the parts of TIFF 6.0 and GeoTIFF 1.0 needed to move a georeferenced
// band in and out are handled: classic (non-Big) TIFF, the first image
// directory, strip or tile layouts for integer images decoded through
// golang.org/x/image/tiff, uncompressed strips for everything else, and the
// GDAL_NODATA tag.
package geotiff

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// TIFF tags.
const (
	tagImageWidth                = 256
	tagImageLength               = 257
	tagBitsPerSample             = 258
	tagCompression               = 259
	tagPhotometricInterpretation = 262
	tagStripOffsets              = 273
	tagSamplesPerPixel           = 277
	tagRowsPerStrip              = 278
	tagStripByteCounts           = 279
	tagPlanarConfiguration       = 284
	tagTileWidth                 = 322
	tagSampleFormat              = 339

	tagModelPixelScale     = 33550
	tagModelTiepoint       = 33922
	tagModelTransformation = 34264
	tagGeoKeyDirectory     = 34735
	tagGDALNodata          = 42113
)

// Field types.
const (
	typeByte      = 1
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeSByte     = 6
	typeUndefined = 7
	typeSShort    = 8
	typeSLong     = 9
	typeSRational = 10
	typeFloat     = 11
	typeDouble    = 12
)

// SampleFormat values.
const (
	sampleUint  = 1
	sampleInt   = 2
	sampleFloat = 3
)

// PhotometricInterpretation values that do not carry raw sample values.
const (
	photometricWhiteIsZero = 0
	photometricPalette     = 3
)

// GeoKeys.
const (
	keyGTRasterType   = 1025
	rasterPixelIsArea = 1
	rasterPixelIsPt   = 2
)

var typeSizes = map[uint16]int{
	typeByte: 1, typeASCII: 1, typeShort: 2, typeLong: 4, typeRational: 8,
	typeSByte: 1, typeUndefined: 1, typeSShort: 2, typeSLong: 4, typeSRational: 8,
	typeFloat: 4, typeDouble: 8,
}

// field is one decoded IFD entry with its raw value bytes.
type field struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

// ifd maps tags of an image file directory to their fields.
type ifd struct {
	order  binary.ByteOrder
	fields map[uint16]field
}

// parseIFD reads the first image file directory of a classic TIFF file.
func parseIFD(raw []byte) (*ifd, error) {
	if len(raw) < 8 {
		return nil, errors.New("file too short for a TIFF header")
	}

	var order binary.ByteOrder
	switch string(raw[0:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, errors.New("not a valid TIFF file")
	}

	switch magic := order.Uint16(raw[2:4]); magic {
	case 42:
	case 43:
		return nil, errors.New("BigTIFF is not supported")
	default:
		return nil, errors.Errorf("bad TIFF magic number %d", magic)
	}

	offset := int(order.Uint32(raw[4:8]))
	if offset+2 > len(raw) {
		return nil, errors.Errorf("IFD offset %d beyond end of file", offset)
	}

	n := int(order.Uint16(raw[offset : offset+2]))
	if offset+2+12*n > len(raw) {
		return nil, errors.Errorf("IFD with %d entries runs past end of file", n)
	}

	dir := &ifd{order: order, fields: make(map[uint16]field, n)}
	for i := 0; i < n; i++ {
		entry := raw[offset+2+12*i : offset+2+12*(i+1)]
		f := field{
			tag:   order.Uint16(entry[0:2]),
			typ:   order.Uint16(entry[2:4]),
			count: order.Uint32(entry[4:8]),
		}

		size, ok := typeSizes[f.typ]
		if !ok {
			// Unknown types may be skipped per TIFF 6.0.
			continue
		}
		length := size * int(f.count)
		if length <= 4 {
			f.data = entry[8 : 8+length]
		} else {
			valueOffset := int(order.Uint32(entry[8:12]))
			if valueOffset < 0 || valueOffset+length > len(raw) {
				return nil, errors.Errorf("tag %d value runs past end of file", f.tag)
			}
			f.data = raw[valueOffset : valueOffset+length]
		}
		dir.fields[f.tag] = f
	}

	return dir, nil
}

func (d *ifd) has(tag uint16) bool {
	_, ok := d.fields[tag]
	return ok
}

// uints returns the integer values of an unsigned BYTE, SHORT or LONG tag.
func (d *ifd) uints(tag uint16) ([]uint64, error) {
	f, ok := d.fields[tag]
	if !ok {
		return nil, errors.Errorf("missing tag %d", tag)
	}

	out := make([]uint64, f.count)
	for i := range out {
		switch f.typ {
		case typeByte, typeUndefined:
			out[i] = uint64(f.data[i])
		case typeShort:
			out[i] = uint64(d.order.Uint16(f.data[2*i:]))
		case typeLong:
			out[i] = uint64(d.order.Uint32(f.data[4*i:]))
		default:
			return nil, errors.Errorf("tag %d has non-integer type %d", tag, f.typ)
		}
	}
	return out, nil
}

// first returns the first value of an integer tag, or def when the tag is absent.
func (d *ifd) first(tag uint16, def uint64) (uint64, error) {
	if !d.has(tag) {
		return def, nil
	}
	vals, err := d.uints(tag)
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return def, nil
	}
	return vals[0], nil
}

// floats returns the values of a FLOAT or DOUBLE tag.
func (d *ifd) floats(tag uint16) ([]float64, error) {
	f, ok := d.fields[tag]
	if !ok {
		return nil, errors.Errorf("missing tag %d", tag)
	}

	out := make([]float64, f.count)
	for i := range out {
		switch f.typ {
		case typeDouble:
			out[i] = math.Float64frombits(d.order.Uint64(f.data[8*i:]))
		case typeFloat:
			out[i] = float64(math.Float32frombits(d.order.Uint32(f.data[4*i:])))
		default:
			return nil, errors.Errorf("tag %d has non-float type %d", tag, f.typ)
		}
	}
	return out, nil
}

// ascii returns an ASCII tag without its trailing NULs.
func (d *ifd) ascii(tag uint16) (string, error) {
	f, ok := d.fields[tag]
	if !ok {
		return "", errors.Errorf("missing tag %d", tag)
	}
	if f.typ != typeASCII {
		return "", errors.Errorf("tag %d has non-ASCII type %d", tag, f.typ)
	}
	return strings.TrimRight(string(f.data), "\x00"), nil
}

// geoKey looks up a SHORT-valued key of the GeoKeyDirectory.
func (d *ifd) geoKey(key uint64) (uint64, bool) {
	dir, err := d.uints(tagGeoKeyDirectory)
	if err != nil || len(dir) < 4 {
		return 0, false
	}

	n := int(dir[3])
	for i := 0; i < n && 4+4*i+3 < len(dir); i++ {
		entry := dir[4+4*i : 4+4*i+4]
		// Location 0 means the value is stored in the entry itself.
		if entry[0] == key && entry[1] == 0 {
			return entry[3], true
		}
	}
	return 0, false
}
