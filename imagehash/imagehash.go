// Package imagehash computes 64-bit perceptual fingerprints of grayscale
// rasters.
//
// Both algorithms take an exactly sized *image.Gray and return a 64
// character string of '0' and '1', row-major, first character first. Inputs
// are never resized here; callers downsample beforehand.
package imagehash

import (
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/corona10/goimagehash"

	"rawfinder/metrics"
	"rawfinder/rawerr"
)

// Required input sides.
const (
	AverageSize     = 8
	BlockMedianSize = 32
	blockSide       = 4
	Bits            = 64
)

func checkShape(op string, g *image.Gray, side int) error {
	if g == nil {
		return rawerr.New(rawerr.KindShapeMismatch, op, "", fmt.Errorf("nil image, need %dx%d", side, side))
	}
	b := g.Bounds()
	if b.Dx() != side || b.Dy() != side {
		return rawerr.New(rawerr.KindShapeMismatch, op, "",
			fmt.Errorf("got %dx%d, need %dx%d", b.Dx(), b.Dy(), side, side))
	}
	return nil
}

// pixel reads (x, y) relative to the image origin, honoring Stride.
func pixel(g *image.Gray, x, y int) uint8 {
	return g.Pix[y*g.Stride+x]
}

// AverageHash sets bit i when pixel i is at least the integer mean of all
// 64 pixels.
func AverageHash(g *image.Gray) (string, error) {
	if err := checkShape("average hash", g, AverageSize); err != nil {
		return "", err
	}

	var sum int
	for y := 0; y < AverageSize; y++ {
		for x := 0; x < AverageSize; x++ {
			sum += int(pixel(g, x, y))
		}
	}
	mean := sum / Bits

	var sb strings.Builder
	sb.Grow(Bits)
	for y := 0; y < AverageSize; y++ {
		for x := 0; x < AverageSize; x++ {
			if int(pixel(g, x, y)) >= mean {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	}

	metrics.HashesComputedTotal.WithLabelValues("average").Inc()
	return sb.String(), nil
}

// BlockMedianHash partitions the 32x32 input into an 8x8 grid of 4x4
// blocks and sets bit i when block i's mean is strictly above the median
// of the 64 block means.
func BlockMedianHash(g *image.Gray) (string, error) {
	if err := checkShape("block median hash", g, BlockMedianSize); err != nil {
		return "", err
	}

	const grid = BlockMedianSize / blockSide
	means := make([]float64, 0, Bits)
	for by := 0; by < grid; by++ {
		for bx := 0; bx < grid; bx++ {
			var sum int
			for y := by * blockSide; y < (by+1)*blockSide; y++ {
				for x := bx * blockSide; x < (bx+1)*blockSide; x++ {
					sum += int(pixel(g, x, y))
				}
			}
			means = append(means, float64(sum)/(blockSide*blockSide))
		}
	}

	sorted := append([]float64(nil), means...)
	sort.Float64s(sorted)
	median := (sorted[Bits/2-1] + sorted[Bits/2]) / 2

	var sb strings.Builder
	sb.Grow(Bits)
	for _, m := range means {
		if m > median {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}

	metrics.HashesComputedTotal.WithLabelValues("block_median").Inc()
	return sb.String(), nil
}

// ToUint64 packs a 64 character bit string, first character as the most
// significant bit.
func ToUint64(bits string) (uint64, error) {
	if len(bits) != Bits {
		return 0, fmt.Errorf("hash has %d bits, need %d", len(bits), Bits)
	}
	var v uint64
	for i := 0; i < Bits; i++ {
		v <<= 1
		switch bits[i] {
		case '1':
			v |= 1
		case '0':
		default:
			return 0, fmt.Errorf("invalid bit %q at %d", bits[i], i)
		}
	}
	return v, nil
}

// FromUint64 is the inverse of ToUint64.
func FromUint64(v uint64) string {
	return fmt.Sprintf("%064b", v)
}

// Fingerprint wraps a bit string as a goimagehash value for distance
// computations.
func Fingerprint(bits string, kind goimagehash.Kind) (*goimagehash.ImageHash, error) {
	v, err := ToUint64(bits)
	if err != nil {
		return nil, err
	}
	return goimagehash.NewImageHash(v, kind), nil
}

// Distance returns the Hamming distance between two bit strings.
func Distance(a, b string) (int, error) {
	ha, err := Fingerprint(a, goimagehash.AHash)
	if err != nil {
		return 0, err
	}
	hb, err := Fingerprint(b, goimagehash.AHash)
	if err != nil {
		return 0, err
	}
	return ha.Distance(hb)
}
