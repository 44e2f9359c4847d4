package imageprocessor

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/jpeg"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"rawfinder/config"
)

// testConfig points every external tool at a name that does not resolve,
// so only in-process strategies can succeed unless a test installs fakes.
func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.TempDir = t.TempDir()
	cfg.Tools = config.Tools{
		Exiftool: "rawfinder-test-missing-exiftool",
		Dcraw:    "rawfinder-test-missing-dcraw",
		DcrawEmu: "rawfinder-test-missing-dcraw_emu",
	}
	return cfg
}

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tools are sh scripts")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
}

func writeTool(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("write tool %s: %v", name, err)
	}
	return path
}

func noisyJPEG(t *testing.T, dir string) string {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	img := image.NewRGBA(image.Rect(0, 0, 160, 120))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "fixture.jpg")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func ppmFixture(t *testing.T, dir string, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "P6\n%d %d\n255\n", w, h)
	for i := 0; i < w*h; i++ {
		buf.Write([]byte{uint8(i), uint8(i >> 3), 90})
	}
	path := filepath.Join(dir, "fixture.ppm")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeDNG writes a minimal little-endian CFA TIFF with a 16-bit
// uncompressed sensor plane and returns its path.
func writeDNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	le := binary.LittleEndian

	pixels := make([]byte, w*h*2)
	for i := 0; i < w*h; i++ {
		le.PutUint16(pixels[i*2:], uint16((i*977)%65536))
	}

	type entry struct {
		tag, typ uint16
		value    uint32
	}
	const entries = 9
	dataOff := uint32(8 + 2 + 12*entries + 4)
	ifd := []entry{
		{0x00FE, 4, 0},
		{0x0100, 4, uint32(w)},
		{0x0101, 4, uint32(h)},
		{0x0102, 3, 16},
		{0x0103, 3, 1},
		{0x0106, 3, 32803},
		{0x0111, 4, dataOff},
		{0x0115, 3, 1},
		{0x0117, 4, uint32(len(pixels))},
	}

	var buf bytes.Buffer
	buf.WriteString("II")
	binary.Write(&buf, le, uint16(42))
	binary.Write(&buf, le, uint32(8))
	binary.Write(&buf, le, uint16(len(ifd)))
	for _, e := range ifd {
		binary.Write(&buf, le, e.tag)
		binary.Write(&buf, le, e.typ)
		binary.Write(&buf, le, uint32(1))
		binary.Write(&buf, le, e.value)
	}
	binary.Write(&buf, le, uint32(0))
	buf.Write(pixels)

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		t.Errorf("leftover artifact: %s", e.Name())
	}
}
