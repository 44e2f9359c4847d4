package imageprocessor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/disintegration/imaging"

	"rawfinder/config"
	"rawfinder/rawerr"
)

var tempSeq atomic.Uint64

// tempPath derives a per-call intermediate path from the source name with
// a process-local suffix.
func (d *Decoder) tempPath(src string) string {
	name := fmt.Sprintf("%s.%d-%d.temp.jpg", filepath.Base(src), os.Getpid(), tempSeq.Add(1))
	return filepath.Join(d.cfg.TempDir, name)
}

// GrayscaleThumbnail decodes src through the strategy chain into a
// temporary file and returns a size x size luminance raster. The
// intermediate is removed on every path.
func (d *Decoder) GrayscaleThumbnail(ctx context.Context, src string, size int) (*image.Gray, error) {
	tmp := d.tempPath(src)
	defer os.Remove(tmp)

	if err := d.Convert(ctx, src, tmp); err != nil {
		return nil, err
	}

	img, err := d.codec.Decode(tmp)
	if err != nil {
		return nil, rawerr.New(rawerr.KindDecodeSupport, "decode intermediate", src, err)
	}
	g, err := Thumbnail(img, size)
	if err != nil {
		return nil, rawerr.New(rawerr.KindDecodeSupport, "thumbnail", src, err)
	}
	return g, nil
}

// LoadGrayscale is GrayscaleThumbnail for files the codec reads directly.
func (d *Decoder) LoadGrayscale(path string, size int) (*image.Gray, error) {
	img, err := d.codec.Decode(path)
	if err != nil {
		return nil, rawerr.New(rawerr.KindDecodeSupport, "decode", path, err)
	}
	g, err := Thumbnail(img, size)
	if err != nil {
		return nil, rawerr.New(rawerr.KindDecodeSupport, "thumbnail", path, err)
	}
	return g, nil
}

// Thumbnail converts img to luminance and resizes it to size x size with
// a triangle filter, ignoring aspect ratio.
func Thumbnail(img image.Image, size int) (*image.Gray, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid thumbnail size %d", size)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, errors.New("empty raster")
	}
	gray := imaging.Grayscale(img)
	return toGray(imaging.Resize(gray, size, size, imaging.Linear)), nil
}

// Downsample resizes a grayscale raster to w x h with a box filter, for
// preparing 8x8 and 32x32 hash inputs.
func Downsample(g *image.Gray, w, h int) *image.Gray {
	return toGray(imaging.Resize(g, w, h, imaging.Box))
}

// toGray keeps the red channel of an NRGBA raster whose channels are
// already equal.
func toGray(src *image.NRGBA) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := src.Pix[y*src.Stride:]
		out := dst.Pix[y*dst.Stride:]
		for x := 0; x < b.Dx(); x++ {
			out[x] = row[x*4]
		}
	}
	return dst
}

// RawToGrayscaleThumbnail returns the hashing thumbnail of src using
// configuration from the environment.
func RawToGrayscaleThumbnail(ctx context.Context, src string) (*image.Gray, error) {
	cfg := config.FromEnv()
	return NewDecoder(cfg).GrayscaleThumbnail(ctx, src, cfg.ThumbnailSize)
}
