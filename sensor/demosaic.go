package sensor

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

const gamma = 0.45

// tone maps a normalized sample in [0,1] to 8 bits with gamma 0.45.
func tone(n float64) uint8 {
	return uint8(math.Pow(n, gamma) * 255)
}

// integerLUT tabulates tone for every 16-bit sample value.
func integerLUT() *[65536]uint8 {
	var lut [65536]uint8
	for i := range lut {
		lut[i] = tone(float64(i) / 65535)
	}
	return &lut
}

// Estimate produces a color preview from sensor data, assuming an RGGB
// mosaic. Each photosite's tone-mapped value v becomes (v, v/2, v/2) on red
// sites, (v/2, v, v/2) on green sites and (v/2, v/2, v) on blue sites. The
// output is deterministic.
func Estimate(raw *RawImage) (*image.RGBA, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}

	w, h := raw.Width, raw.Height
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	var sample func(i int) uint8
	if raw.Kind == Integer {
		lut := integerLUT()
		sample = func(i int) uint8 { return lut[raw.Integer[i]] }
	} else {
		sample = func(i int) uint8 {
			v := float64(raw.Float[i])
			if math.IsNaN(v) || v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
			return tone(v)
		}
	}

	for y := 0; y < h; y++ {
		row := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			v := sample(y*w + x)
			half := v / 2
			r, g, b := half, half, half
			switch (y%2)*2 + x%2 {
			case 0:
				r = v
			case 1, 2:
				g = v
			default:
				b = v
			}
			p := row[x*4 : x*4+4 : x*4+4]
			p[0], p[1], p[2], p[3] = r, g, b, 255
		}
	}
	return out, nil
}

// Downscale halves both dimensions with a triangle filter when either
// exceeds threshold. Smaller images are returned unchanged.
func Downscale(img image.Image, threshold int) image.Image {
	b := img.Bounds()
	if b.Dx() <= threshold && b.Dy() <= threshold {
		return img
	}
	// imaging.Resize treats a zero side as "preserve aspect ratio".
	return imaging.Resize(img, max(b.Dx()/2, 1), max(b.Dy()/2, 1), imaging.Linear)
}
