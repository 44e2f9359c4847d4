package imageprocessor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rawfinder/codec"
	"rawfinder/config"
	"rawfinder/formats"
	"rawfinder/logging"
	"rawfinder/metrics"
	"rawfinder/rawerr"
	"rawfinder/rawtools"
)

// Strategy is one way of turning a RAW file into a raster at dest.
type Strategy struct {
	Name string
	Run  func(ctx context.Context, src, dest string) error
}

// Decoder runs the decode strategy chain. A Decoder holds no per-call
// state and may be shared between goroutines.
type Decoder struct {
	cfg     config.Config
	runner  *rawtools.Runner
	preview *rawtools.ExifPreviewer
	codec   codec.Codec
	now     func() time.Time
}

// NewDecoder creates a Decoder using the default codec.
func NewDecoder(cfg config.Config) *Decoder {
	return NewDecoderWithCodec(cfg, codec.Default())
}

// NewDecoderWithCodec creates a Decoder that reads and writes rasters with c.
func NewDecoderWithCodec(cfg config.Config, c codec.Codec) *Decoder {
	runner := &rawtools.Runner{
		MinOutputBytes: cfg.MinOutputBytes,
		Codec:          c,
		Quality:        cfg.JPEGQuality,
	}
	preview := rawtools.NewExifPreviewer(runner, cfg.Tools.Exiftool)
	preview.Probe = cfg.ExiftoolProbe

	return &Decoder{
		cfg:     cfg,
		runner:  runner,
		preview: preview,
		codec:   c,
		now:     time.Now,
	}
}

// Config returns the settings the decoder was built with.
func (d *Decoder) Config() config.Config {
	return d.cfg
}

// Convert decodes src into a raster at dest, trying each strategy for the
// file's format family in order until one succeeds.
func (d *Decoder) Convert(ctx context.Context, src, dest string) error {
	if err := checkPaths(src, dest); err != nil {
		return err
	}
	family := formats.Classify(src)
	return d.run(ctx, family, d.Strategies(src), src, dest)
}

// ProcessRAF runs the Fujifilm strategy chain regardless of extension.
func (d *Decoder) ProcessRAF(ctx context.Context, src, dest string) error {
	if err := checkPaths(src, dest); err != nil {
		return err
	}
	return d.run(ctx, formats.FormatRAF, d.fujiStrategies(), src, dest)
}

func checkPaths(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return rawerr.New(rawerr.KindIO, "open source", src, err)
	}
	if info.IsDir() {
		return rawerr.New(rawerr.KindIO, "open source", src, errors.New("is a directory"))
	}
	dir := filepath.Dir(dest)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		if err == nil {
			err = errors.New("not a directory")
		}
		return rawerr.New(rawerr.KindIO, "open destination directory", dir, err)
	}
	return nil
}

// partialPath names the per-call file strategies write to before it is
// renamed onto dest. It keeps dest's extension so codecs pick the same
// output format.
func partialPath(dest string) string {
	dir, base := filepath.Split(dest)
	ext := filepath.Ext(base)
	name := fmt.Sprintf(".%s.%d-%d.partial%s", strings.TrimSuffix(base, ext), os.Getpid(), tempSeq.Add(1), ext)
	return filepath.Join(dir, name)
}

// run attempts strategies strictly in order. The time budget is checked
// only after a failed strategy, so a strategy that is already running is
// never interrupted unless EnforceToolDeadline is set. dest is replaced
// only when a strategy succeeds; a failed chain leaves it untouched.
func (d *Decoder) run(ctx context.Context, family formats.FormatType, strategies []Strategy, src, dest string) error {
	start := d.now()
	label := string(family)
	partial := partialPath(dest)
	defer os.Remove(partial)

	finish := func(result string) {
		metrics.ChainResultsTotal.WithLabelValues(label, result).Inc()
		metrics.ChainDuration.WithLabelValues(label).Observe(d.now().Sub(start).Seconds())
	}

	var lastErr error
	for i, s := range strategies {
		if err := ctx.Err(); err != nil {
			finish("timeout")
			return rawerr.New(rawerr.KindChainTimeout, "convert", src, err)
		}

		logging.DebugLog("Trying RAW conversion method: %s for %s", s.Name, src)

		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if d.cfg.EnforceToolDeadline {
			attemptCtx, cancel = context.WithDeadline(ctx, start.Add(d.cfg.TimeoutBudget))
		}
		attemptStart := d.now()
		err := s.Run(attemptCtx, src, partial)
		cancel()
		metrics.StrategyDuration.WithLabelValues(s.Name).Observe(d.now().Sub(attemptStart).Seconds())

		if err == nil {
			if err := os.Rename(partial, dest); err != nil {
				finish("exhausted")
				return rawerr.New(rawerr.KindIO, "write output", dest, err)
			}
			metrics.StrategyAttemptsTotal.WithLabelValues(label, s.Name, "success").Inc()
			logging.DebugLog("Method %s succeeded for %s", s.Name, src)
			finish("success")
			return nil
		}

		os.Remove(partial)
		metrics.StrategyAttemptsTotal.WithLabelValues(label, s.Name, "failure").Inc()
		logging.DebugLog("Method %s failed: %v", s.Name, err)
		lastErr = err

		if i == len(strategies)-1 {
			break
		}
		if elapsed := d.now().Sub(start); elapsed > d.cfg.TimeoutBudget {
			finish("timeout")
			return rawerr.New(rawerr.KindChainTimeout, "convert", src,
				fmt.Errorf("%v elapsed after %s, budget %v", elapsed.Round(time.Millisecond), s.Name, d.cfg.TimeoutBudget))
		}
	}

	finish("exhausted")
	return rawerr.New(rawerr.KindChainExhausted, "convert", src,
		fmt.Errorf("%d strategies failed, last: %v", len(strategies), lastErr))
}

// ConvertRawToRaster decodes src to dest using configuration from the
// environment.
func ConvertRawToRaster(ctx context.Context, src, dest string) error {
	return NewDecoder(config.FromEnv()).Convert(ctx, src, dest)
}
