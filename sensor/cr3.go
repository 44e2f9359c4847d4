package sensor

import (
	"encoding/binary"
	"errors"
	"os"

	"rawfinder/rawerr"
)

const cr3Brand = "crx "

// ExtractCR3Preview returns the embedded JPEG preview of a Canon CR3 file.
// CR3 is an ISO base media file; Canon stores the preview and thumbnail
// JPEGs inside top-level uuid boxes, so those are searched first and the
// largest stream found there wins. Without one, the whole file is scanned.
func ExtractCR3Preview(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rawerr.New(rawerr.KindIO, "read cr3", path, err)
	}
	jpg, err := CR3Preview(data)
	if err != nil {
		return nil, rawerr.New(rawerr.KindOutputUndecodable, "cr3 preview", path, err)
	}
	return jpg, nil
}

// CR3Preview is ExtractCR3Preview for in-memory data.
func CR3Preview(data []byte) ([]byte, error) {
	if len(data) < 16 || string(data[4:8]) != "ftyp" {
		return nil, errors.New("missing ftyp box")
	}
	if string(data[8:12]) != cr3Brand {
		return nil, errors.New("not a CR3 file")
	}

	var best []byte
	for _, payload := range uuidPayloads(data) {
		if jpg, err := largestJPEG(payload); err == nil && len(jpg) > len(best) {
			best = jpg
		}
	}
	if best != nil {
		return best, nil
	}
	return largestJPEG(data)
}

// uuidPayloads returns the contents of each top-level uuid box after its
// 16-byte extended type. Walking stops at the first malformed box.
func uuidPayloads(data []byte) [][]byte {
	var payloads [][]byte
	for off := 0; off+8 <= len(data); {
		size := uint64(binary.BigEndian.Uint32(data[off:]))
		kind := string(data[off+4 : off+8])
		header := uint64(8)

		switch size {
		case 0:
			size = uint64(len(data) - off)
		case 1:
			if off+16 > len(data) {
				return payloads
			}
			size = binary.BigEndian.Uint64(data[off+8:])
			header = 16
		}
		if size < header || size > uint64(len(data)-off) {
			return payloads
		}

		if kind == "uuid" && size >= header+16 {
			payloads = append(payloads, data[off+int(header)+16:off+int(size)])
		}
		off += int(size)
	}
	return payloads
}
