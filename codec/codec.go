package codec

import (
	"image"
)

// Codec decodes rasters from and encodes rasters to files.
type Codec interface {
	// Name identifies the backend in logs.
	Name() string
	// Decode reads the raster at path.
	Decode(path string) (image.Image, error)
	// Encode writes img to path. quality applies to JPEG output.
	Encode(img image.Image, path string, quality int) error
}
