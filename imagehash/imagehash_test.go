package imagehash

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"rawfinder/rawerr"
)

func grayOf(v uint8) color.Gray { return color.Gray{Y: v} }

func uniform(side int, v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, side, side))
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

func TestAverageHashUniform(t *testing.T) {
	for _, v := range []uint8{0, 17, 255} {
		got, err := AverageHash(uniform(8, v))
		if err != nil {
			t.Fatalf("AverageHash: %v", err)
		}
		if got != strings.Repeat("1", 64) {
			t.Errorf("uniform %d: got %s", v, got)
		}
	}
}

func TestAverageHashCheckerboard(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 8, 8))
	var want strings.Builder
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if (x+y)%2 == 0 {
				g.SetGray(x, y, grayOf(200))
				want.WriteByte('1')
			} else {
				g.SetGray(x, y, grayOf(10))
				want.WriteByte('0')
			}
		}
	}
	got, err := AverageHash(g)
	if err != nil {
		t.Fatal(err)
	}
	if got != want.String() {
		t.Errorf("got  %s\nwant %s", got, want.String())
	}
}

func TestAverageHashIntegerMean(t *testing.T) {
	// 63 pixels of 1 and one of 2: sum 65, mean truncates to 1, so every
	// pixel is >= mean.
	g := uniform(8, 1)
	g.Pix[63] = 2
	got, err := AverageHash(g)
	if err != nil {
		t.Fatal(err)
	}
	if got != strings.Repeat("1", 64) {
		t.Errorf("got %s", got)
	}
}

func TestBlockMedianHashUniform(t *testing.T) {
	got, err := BlockMedianHash(uniform(32, 128))
	if err != nil {
		t.Fatalf("BlockMedianHash: %v", err)
	}
	if got != strings.Repeat("0", 64) {
		t.Errorf("uniform input should hash to all zeros, got %s", got)
	}
}

func TestBlockMedianHashHalves(t *testing.T) {
	// Left half dark, right half bright: the median sits between the two
	// levels, so bright blocks are set.
	g := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if x >= 16 {
				g.SetGray(x, y, grayOf(240))
			} else {
				g.SetGray(x, y, grayOf(20))
			}
		}
	}
	got, err := BlockMedianHash(g)
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Repeat("00001111", 8)
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestBlockMedianHashCheckerboard(t *testing.T) {
	// 4x4 blocks alternating 0 and 255: half the means are at each level, so
	// the median falls between them and the bits alternate with the blocks.
	g := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if (x/4+y/4)%2 == 1 {
				g.SetGray(x, y, grayOf(255))
			}
		}
	}
	got, err := BlockMedianHash(g)
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Repeat("01010101"+"10101010", 4)
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestShapeMismatch(t *testing.T) {
	tests := []struct {
		name string
		fn   func(*image.Gray) (string, error)
		img  *image.Gray
	}{
		{"average 9x8", AverageHash, image.NewGray(image.Rect(0, 0, 9, 8))},
		{"average 7x7", AverageHash, image.NewGray(image.Rect(0, 0, 7, 7))},
		{"average nil", AverageHash, nil},
		{"block 31x32", BlockMedianHash, image.NewGray(image.Rect(0, 0, 31, 32))},
		{"block 33x32", BlockMedianHash, image.NewGray(image.Rect(0, 0, 33, 32))},
		{"block 8x8", BlockMedianHash, image.NewGray(image.Rect(0, 0, 8, 8))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn(tt.img)
			if !rawerr.IsKind(err, rawerr.KindShapeMismatch) {
				t.Errorf("got %v, want ShapeMismatch", err)
			}
		})
	}
}

func TestHashStrideAware(t *testing.T) {
	// A sub-image has a stride wider than its width.
	parent := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if x < 8 {
				parent.SetGray(x, y, grayOf(uint8(x*30)))
			} else {
				parent.SetGray(x, y, grayOf(255))
			}
		}
	}
	sub := parent.SubImage(image.Rect(0, 0, 8, 8)).(*image.Gray)
	compact := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			compact.SetGray(x, y, sub.GrayAt(x, y))
		}
	}

	a, err := AverageHash(sub)
	if err != nil {
		t.Fatal(err)
	}
	b, err := AverageHash(compact)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("stride changed the hash: %s vs %s", a, b)
	}
}

func TestDeterministic(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range g.Pix {
		g.Pix[i] = uint8(i * 31)
	}
	first, _ := BlockMedianHash(g)
	for i := 0; i < 5; i++ {
		if got, _ := BlockMedianHash(g); got != first {
			t.Fatalf("run %d differs", i)
		}
	}
}

func TestUint64RoundTrip(t *testing.T) {
	bits := "1" + strings.Repeat("0", 62) + "1"
	v, err := ToUint64(bits)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1<<63|1 {
		t.Errorf("v = %x", v)
	}
	if FromUint64(v) != bits {
		t.Errorf("FromUint64 = %s", FromUint64(v))
	}

	if _, err := ToUint64("0101"); err == nil {
		t.Error("expected length error")
	}
	if _, err := ToUint64(strings.Repeat("2", 64)); err == nil {
		t.Error("expected invalid bit error")
	}
}

func TestDistance(t *testing.T) {
	a := strings.Repeat("0", 64)
	b := strings.Repeat("0", 60) + "1111"
	d, err := Distance(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if d != 4 {
		t.Errorf("Distance = %d, want 4", d)
	}
}
