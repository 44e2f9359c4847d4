package sensor

import (
	"errors"
	"fmt"

	"rawfinder/rawerr"
)

// MaxSide bounds each sensor dimension. No camera sensor comes close; larger
// values only appear in corrupt or crafted headers.
const MaxSide = 1 << 16

// SampleKind selects which sample slice of a RawImage is populated.
type SampleKind int

const (
	Integer SampleKind = iota // unsigned 16-bit samples
	Float                     // real-valued samples, nominally in [0,1]
)

func (k SampleKind) String() string {
	if k == Float {
		return "float"
	}
	return "integer"
}

// RawImage is undemosaiced sensor data, one sample per photosite in
// row-major order. Exactly one of Integer or Float is populated.
type RawImage struct {
	Width   int
	Height  int
	Kind    SampleKind
	Integer []uint16
	Float   []float32
}

// NewIntegerImage wraps 16-bit samples.
func NewIntegerImage(width, height int, data []uint16) *RawImage {
	return &RawImage{Width: width, Height: height, Kind: Integer, Integer: data}
}

// NewFloatImage wraps real-valued samples.
func NewFloatImage(width, height int, data []float32) *RawImage {
	return &RawImage{Width: width, Height: height, Kind: Float, Float: data}
}

// Validate checks the dimensions, each at most MaxSide, and that the
// populated sample slice holds at least Width*Height samples.
func (r *RawImage) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return rawerr.New(rawerr.KindUnsupportedSensor, "validate", "",
			fmt.Errorf("invalid dimensions %dx%d", r.Width, r.Height))
	}
	if r.Width > MaxSide || r.Height > MaxSide {
		return rawerr.New(rawerr.KindUnsupportedSensor, "validate", "",
			fmt.Errorf("dimensions %dx%d exceed %d per side", r.Width, r.Height, MaxSide))
	}

	var n int
	switch r.Kind {
	case Integer:
		if r.Float != nil {
			return rawerr.New(rawerr.KindUnsupportedSensor, "validate", "", errors.New("both sample variants populated"))
		}
		n = len(r.Integer)
	case Float:
		if r.Integer != nil {
			return rawerr.New(rawerr.KindUnsupportedSensor, "validate", "", errors.New("both sample variants populated"))
		}
		n = len(r.Float)
	default:
		return rawerr.New(rawerr.KindUnsupportedSensor, "validate", "", fmt.Errorf("unknown sample kind %d", r.Kind))
	}

	if want := int64(r.Width) * int64(r.Height); int64(n) < want {
		return rawerr.New(rawerr.KindSensorDataTruncated, "validate", "",
			fmt.Errorf("%d samples for %dx%d, need %d", n, r.Width, r.Height, want))
	}
	return nil
}
