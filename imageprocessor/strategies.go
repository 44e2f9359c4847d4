package imageprocessor

import (
	"context"
	"fmt"
	"os"

	"rawfinder/formats"
	"rawfinder/rawerr"
	"rawfinder/rawtools"
	"rawfinder/sensor"
)

// Strategy names, as they appear in logs and metrics.
const (
	StrategyExifPreview     = "exiftool-preview"
	StrategyRAFNative       = "raf-native-preview"
	StrategyCR3Native       = "cr3-native-preview"
	StrategyDcrawThumbnail  = "dcraw-thumbnail"
	StrategyDcrawHalf       = "dcraw-half"
	StrategyEmuThumbnail    = "dcraw_emu-thumbnail"
	StrategyExifJpgFromRaw  = "exiftool-jpgfromraw"
	StrategyEmuFast         = "dcraw_emu-fast"
	StrategyEmuXTrans       = "dcraw_emu-xtrans"
	StrategySensorDecode    = "sensor-decode"
	StrategyDcrawGeneric    = "dcraw-generic"
	StrategyDcrawEmuGeneric = "dcraw_emu-generic"
)

// vendorArgs are the dcraw full-decode flags tuned per vendor: half size
// and fast interpolation everywhere, with the output color space chosen
// per vendor.
var vendorArgs = map[string][]string{
	formats.VendorSony:  {"-c", "-w", "-h", "-q", "0", "-o", "0"},
	formats.VendorCanon: {"-c", "-w", "-h", "-q", "0"},
	formats.VendorNikon: {"-c", "-w", "-h", "-q", "0", "-o", "1"},
}

// Strategies returns the ordered strategy list for src's format family.
func (d *Decoder) Strategies(src string) []Strategy {
	if formats.IsSpecificRawFormat(src, string(formats.FormatRAF)) {
		return d.fujiStrategies()
	}
	return d.commonStrategies(formats.Classify(src))
}

// fujiStrategies: embedded previews first, then a minimal dcraw decode,
// then LibRaw profiles of increasing cost.
func (d *Decoder) fujiStrategies() []Strategy {
	t := d.cfg.Tools
	return []Strategy{
		{StrategyExifPreview, d.preview.Extract},
		{StrategyRAFNative, d.rafNativePreview},
		{StrategyDcrawThumbnail, d.sidecar(rawtools.Profile{Tool: t.Dcraw, Args: []string{"-e"}})},
		{StrategyDcrawHalf, d.stream(rawtools.Profile{Tool: t.Dcraw, Args: []string{"-c", "-h", "-q", "0"}}, "ppm")},
		{StrategyEmuThumbnail, d.sidecar(rawtools.Profile{Tool: t.DcrawEmu, Args: []string{"-e"}})},
		{StrategyExifJpgFromRaw, d.writeFile(rawtools.Profile{Tool: t.Exiftool, Args: []string{"-b", "-JpgFromRaw"}})},
		{StrategyEmuFast, d.stream(rawtools.Profile{Tool: t.DcrawEmu, Args: []string{"-c", "-M", "-h", "-q", "0", "-fbdd", "1", "-o", "0"}}, "ppm")},
		{StrategyEmuXTrans, d.stream(rawtools.Profile{Tool: t.DcrawEmu, Args: []string{"-M", "-q", "0", "-h", "-f", "-fbdd", "1"}}, "ppm")},
	}
}

// commonStrategies: embedded previews, the vendor-tuned decode when the
// family has one, the in-process sensor decode, then generic decodes.
func (d *Decoder) commonStrategies(family formats.FormatType) []Strategy {
	t := d.cfg.Tools
	strategies := []Strategy{{StrategyExifPreview, d.preview.Extract}}
	if family == formats.FormatCR3 {
		strategies = append(strategies, Strategy{StrategyCR3Native, d.cr3NativePreview})
	}
	strategies = append(strategies,
		Strategy{StrategyDcrawThumbnail, d.sidecar(rawtools.Profile{Tool: t.Dcraw, Args: []string{"-e"}})})

	if vendor := family.Vendor(); vendor != "" {
		if args, ok := vendorArgs[vendor]; ok {
			strategies = append(strategies, Strategy{
				Name: "dcraw-" + vendor,
				Run:  d.stream(rawtools.Profile{Tool: t.Dcraw, Args: args}, "ppm"),
			})
		}
	}

	return append(strategies,
		Strategy{StrategySensorDecode, d.sensorDecode},
		Strategy{StrategyDcrawGeneric, d.stream(rawtools.Profile{Tool: t.Dcraw, Args: []string{"-c", "-w", "-h", "-q", "0"}}, "ppm")},
		Strategy{StrategyDcrawEmuGeneric, d.stream(rawtools.Profile{Tool: t.DcrawEmu, Args: []string{"-T", "-h", "-q", "0"}}, "tiff")},
	)
}

func (d *Decoder) writeFile(p rawtools.Profile) func(context.Context, string, string) error {
	return func(ctx context.Context, src, dest string) error {
		return d.runner.WriteFile(ctx, p, src, dest)
	}
}

func (d *Decoder) stream(p rawtools.Profile, ext string) func(context.Context, string, string) error {
	return func(ctx context.Context, src, dest string) error {
		return d.runner.CaptureStream(ctx, p, src, dest, ext)
	}
}

func (d *Decoder) sidecar(p rawtools.Profile) func(context.Context, string, string) error {
	return func(ctx context.Context, src, dest string) error {
		return d.runner.Sidecar(ctx, p, src, dest)
	}
}

func (d *Decoder) rafNativePreview(_ context.Context, src, dest string) error {
	return d.writePreview(StrategyRAFNative, sensor.ExtractRAFPreview, src, dest)
}

func (d *Decoder) cr3NativePreview(_ context.Context, src, dest string) error {
	return d.writePreview(StrategyCR3Native, sensor.ExtractCR3Preview, src, dest)
}

// writePreview stores an in-process extracted preview at dest and applies
// the same acceptance check as tool output.
func (d *Decoder) writePreview(name string, extract func(string) ([]byte, error), src, dest string) error {
	jpg, err := extract(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dest, jpg, 0644); err != nil {
		return rawerr.New(rawerr.KindIO, "write preview", dest, err)
	}
	return d.runner.Validate(name, dest)
}

func (d *Decoder) sensorDecode(_ context.Context, src, dest string) error {
	raw, err := sensor.ReadFile(src)
	if err != nil {
		return err
	}
	rgb, err := sensor.Estimate(raw)
	if err != nil {
		return err
	}
	img := sensor.Downscale(rgb, d.cfg.DownscaleThreshold)
	if err := d.codec.Encode(img, dest, d.cfg.JPEGQuality); err != nil {
		return rawerr.New(rawerr.KindIO, StrategySensorDecode, dest, fmt.Errorf("encode: %w", err))
	}
	return nil
}
