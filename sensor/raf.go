package sensor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"

	"rawfinder/rawerr"
)

const (
	rafMagic      = "FUJIFILMCCD-RAW"
	rafHeaderSize = 92
)

var (
	jpegSOI = []byte{0xFF, 0xD8, 0xFF}
	jpegEOI = []byte{0xFF, 0xD9}
)

// ExtractRAFPreview returns the embedded JPEG preview of a Fujifilm RAF
// file. The preview location comes from the RAF header (offset at byte 84,
// length at byte 88, big-endian). When the header is unusable the file is
// scanned and the largest complete JPEG stream is returned.
func ExtractRAFPreview(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rawerr.New(rawerr.KindIO, "read raf", path, err)
	}
	jpg, err := RAFPreview(data)
	if err != nil {
		return nil, rawerr.New(rawerr.KindOutputUndecodable, "raf preview", path, err)
	}
	return jpg, nil
}

// RAFPreview is ExtractRAFPreview for in-memory data.
func RAFPreview(data []byte) ([]byte, error) {
	if len(data) < rafHeaderSize {
		return nil, errors.New("file too small to be a RAF")
	}
	if string(data[:len(rafMagic)]) != rafMagic {
		return nil, errors.New("missing FUJIFILMCCD-RAW header")
	}

	offset := int64(binary.BigEndian.Uint32(data[84:88]))
	length := int64(binary.BigEndian.Uint32(data[88:92]))
	if offset > 0 && length > 0 && offset+length <= int64(len(data)) {
		jpg := data[offset : offset+length]
		if bytes.HasPrefix(jpg, jpegSOI) {
			return jpg, nil
		}
	}
	return largestJPEG(data)
}

// largestJPEG scans for SOI...EOI runs and returns the longest one.
func largestJPEG(data []byte) ([]byte, error) {
	var largest []byte
	for start := 0; start < len(data); {
		i := bytes.Index(data[start:], jpegSOI)
		if i < 0 {
			break
		}
		soi := start + i
		j := bytes.Index(data[soi+len(jpegSOI):], jpegEOI)
		if j < 0 {
			break
		}
		end := soi + len(jpegSOI) + j + len(jpegEOI)
		if end-soi > len(largest) {
			largest = data[soi:end]
		}
		start = end
	}
	if largest == nil {
		return nil, errors.New("no JPEG stream found")
	}
	return largest, nil
}
