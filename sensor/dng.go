package sensor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/rwcarlsen/goexif/tiff"

	"rawfinder/rawerr"
)

// TIFF/DNG tags used to locate and read the sensor plane.
const (
	tagNewSubfileType  = 0x00FE
	tagImageWidth      = 0x0100
	tagImageLength     = 0x0101
	tagBitsPerSample   = 0x0102
	tagCompression     = 0x0103
	tagPhotometric     = 0x0106
	tagStripOffsets    = 0x0111
	tagSamplesPerPixel = 0x0115
	tagStripByteCounts = 0x0117
	tagSubIFDs         = 0x014A
	tagSampleFormat    = 0x0153

	photometricCFA    = 32803
	compressionNone   = 1
	sampleFormatUint  = 1
	sampleFormatFloat = 3
	maxSubIFDDepth    = 4
)

// ReadFile decodes the sensor plane of a TIFF-container RAW file (DNG and
// TIFF-based vendor formats). Only uncompressed, stripped, single-sample
// CFA planes are supported; anything else is reported as
// rawerr.KindUnsupportedSensor.
func ReadFile(path string) (*RawImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rawerr.New(rawerr.KindIO, "read sensor file", path, err)
	}
	raw, err := Decode(data)
	if err != nil {
		var re *rawerr.Error
		if errors.As(err, &re) && re.Path == "" {
			re.Path = path
		}
		return nil, err
	}
	return raw, nil
}

// Decode is ReadFile for in-memory data.
func Decode(data []byte) (*RawImage, error) {
	t, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, rawerr.New(rawerr.KindUnsupportedSensor, "parse tiff", "", err)
	}

	for _, d := range collectDirs(data, t) {
		if tagInt(d, tagPhotometric, 0) == photometricCFA && tagInt(d, tagNewSubfileType, 0) == 0 {
			return readCFA(data, t.Order, d)
		}
	}
	return nil, rawerr.New(rawerr.KindUnsupportedSensor, "locate sensor plane", "",
		errors.New("no full-resolution CFA directory"))
}

// collectDirs flattens the IFD chain and any SubIFDs it references.
func collectDirs(data []byte, t *tiff.Tiff) []*tiff.Dir {
	var dirs []*tiff.Dir
	var walk func(d *tiff.Dir, depth int)
	walk = func(d *tiff.Dir, depth int) {
		dirs = append(dirs, d)
		if depth >= maxSubIFDDepth {
			return
		}
		for _, off := range tagInts(d, tagSubIFDs) {
			if off <= 0 || off >= int64(len(data)) {
				continue
			}
			r := bytes.NewReader(data)
			if _, err := r.Seek(off, io.SeekStart); err != nil {
				continue
			}
			sub, _, err := tiff.DecodeDir(r, t.Order)
			if err != nil {
				continue
			}
			walk(sub, depth+1)
		}
	}
	for _, d := range t.Dirs {
		walk(d, 0)
	}
	return dirs
}

func readCFA(data []byte, order binary.ByteOrder, d *tiff.Dir) (*RawImage, error) {
	width := int(tagInt(d, tagImageWidth, 0))
	height := int(tagInt(d, tagImageLength, 0))
	bits := tagInt(d, tagBitsPerSample, 1)
	format := tagInt(d, tagSampleFormat, sampleFormatUint)

	if c := tagInt(d, tagCompression, compressionNone); c != compressionNone {
		return nil, unsupported("compression %d", c)
	}
	if spp := tagInt(d, tagSamplesPerPixel, 1); spp != 1 {
		return nil, unsupported("%d samples per pixel", spp)
	}
	if width <= 0 || height <= 0 {
		return nil, unsupported("dimensions %dx%d", width, height)
	}
	if width > MaxSide || height > MaxSide {
		return nil, unsupported("dimensions %dx%d exceed %d per side", width, height, MaxSide)
	}

	offsets := tagInts(d, tagStripOffsets)
	counts := tagInts(d, tagStripByteCounts)
	if len(offsets) == 0 || len(offsets) != len(counts) {
		return nil, unsupported("missing or tiled strip layout")
	}

	// Strip ranges are clamped to the file, which also bounds the plane.
	type span struct{ start, end int64 }
	var spans []span
	var total int64
	for i, off := range offsets {
		if off < 0 || off > int64(len(data)) || counts[i] < 0 {
			break
		}
		end := min(off+min(counts[i], int64(len(data))), int64(len(data)))
		spans = append(spans, span{off, end})
		total += end - off
	}
	plane := make([]byte, 0, total)
	for _, s := range spans {
		plane = append(plane, data[s.start:s.end]...)
	}

	var raw *RawImage
	switch {
	case bits == 16 && format == sampleFormatUint:
		samples := make([]uint16, len(plane)/2)
		for i := range samples {
			samples[i] = order.Uint16(plane[i*2:])
		}
		raw = NewIntegerImage(width, height, samples)
	case bits == 8 && format == sampleFormatUint:
		samples := make([]uint16, len(plane))
		for i, b := range plane {
			samples[i] = uint16(b) * 257
		}
		raw = NewIntegerImage(width, height, samples)
	case bits == 32 && format == sampleFormatFloat:
		samples := make([]float32, len(plane)/4)
		for i := range samples {
			samples[i] = math.Float32frombits(order.Uint32(plane[i*4:]))
		}
		raw = NewFloatImage(width, height, samples)
	default:
		return nil, unsupported("%d-bit samples with sample format %d", bits, format)
	}

	if err := raw.Validate(); err != nil {
		return nil, err
	}
	return raw, nil
}

func unsupported(format string, args ...interface{}) error {
	return rawerr.New(rawerr.KindUnsupportedSensor, "read sensor plane", "", fmt.Errorf(format, args...))
}

func findTag(d *tiff.Dir, id uint16) *tiff.Tag {
	for _, t := range d.Tags {
		if t.Id == id {
			return t
		}
	}
	return nil
}

// tagInt returns the first value of an integer tag, or def when the tag is
// absent or not an integer.
func tagInt(d *tiff.Dir, id uint16, def int64) int64 {
	t := findTag(d, id)
	if t == nil || t.Count == 0 || t.Format() != tiff.IntVal {
		return def
	}
	v, err := t.Int64(0)
	if err != nil {
		return def
	}
	return v
}

// tagInts returns every value of an integer tag.
func tagInts(d *tiff.Dir, id uint16) []int64 {
	t := findTag(d, id)
	if t == nil || t.Format() != tiff.IntVal {
		return nil
	}
	vals := make([]int64, 0, t.Count)
	for i := 0; i < int(t.Count); i++ {
		v, err := t.Int64(i)
		if err != nil {
			return nil
		}
		vals = append(vals, v)
	}
	return vals
}
