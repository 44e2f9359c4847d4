//go:build opencv

package codec

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Default returns the codec this binary was built with.
func Default() Codec {
	return OpenCV{}
}

// OpenCV reads and writes through OpenCV's imgcodecs.
type OpenCV struct{}

func (OpenCV) Name() string { return "opencv" }

func (OpenCV) Decode(path string) (image.Image, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("failed to decode %s: opencv could not read file", path)
	}
	defer mat.Close()

	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s: %w", path, err)
	}
	return img, nil
}

func (OpenCV) Encode(img image.Image, path string, quality int) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("failed to convert raster for %s: %w", path, err)
	}
	defer mat.Close()

	params := []int{int(gocv.IMWriteJpegQuality), quality}
	if !gocv.IMWriteWithParams(path, mat, params) {
		return fmt.Errorf("failed to encode %s: opencv write failed", path)
	}
	return nil
}
