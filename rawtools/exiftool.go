package rawtools

import (
	"context"
	"errors"
	"fmt"

	"github.com/barasher/go-exiftool"

	"rawfinder/logging"
	"rawfinder/rawerr"
)

// PreviewTags is the order embedded previews are tried in: full preview,
// raw-converted JPEG, thumbnail, then other embedded images.
var PreviewTags = []string{
	"PreviewImage",
	"JpgFromRaw",
	"ThumbnailImage",
	"OtherImage",
	"EmbeddedImage",
}

// ExifPreviewer pulls embedded preview JPEGs out of RAW files with exiftool.
type ExifPreviewer struct {
	Runner *Runner
	Tool   string
	Tags   []string
	// Probe asks exiftool which tags are present before extracting. With
	// Probe unset every tag is tried in order.
	Probe bool
}

// NewExifPreviewer returns a previewer trying PreviewTags in order.
func NewExifPreviewer(r *Runner, tool string) *ExifPreviewer {
	return &ExifPreviewer{Runner: r, Tool: tool, Tags: PreviewTags, Probe: true}
}

// Extract writes the first preview tag larger than the runner's threshold
// to dest.
func (e *ExifPreviewer) Extract(ctx context.Context, src, dest string) error {
	tags := e.candidates(src)
	if len(tags) == 0 {
		return rawerr.New(rawerr.KindOutputTooSmall, "exiftool preview", src,
			errors.New("no embedded preview above size threshold"))
	}

	var lastErr error
	for _, tag := range tags {
		err := e.Runner.WriteFile(ctx, Profile{Tool: e.Tool, Args: []string{"-b", "-" + tag}}, src, dest)
		if err == nil {
			logging.DebugLog("Extracted %s from %s", tag, src)
			return nil
		}
		if rawerr.IsKind(err, rawerr.KindToolNotFound) {
			return err
		}
		logging.DebugLog("exiftool tag %s failed for %s: %v", tag, src, err)
		lastErr = err
	}
	return lastErr
}

// candidates narrows Tags to the ones the file carries above the size
// threshold. When the metadata probe cannot run, every tag is tried.
func (e *ExifPreviewer) candidates(src string) []string {
	if !e.Probe {
		return e.Tags
	}
	sizes, err := e.probe(src)
	if err != nil {
		logging.DebugLog("exiftool probe unavailable for %s, trying tags blind: %v", src, err)
		return e.Tags
	}

	var tags []string
	for _, tag := range e.Tags {
		if n, ok := sizes[tag]; ok && n > e.Runner.MinOutputBytes {
			tags = append(tags, tag)
		}
	}
	return tags
}

// probe returns the byte sizes of the binary tags present in src.
func (e *ExifPreviewer) probe(src string) (map[string]int64, error) {
	et, err := exiftool.NewExiftool(exiftool.SetExiftoolBinaryPath(e.Tool))
	if err != nil {
		return nil, err
	}
	defer et.Close()

	fileInfos := et.ExtractMetadata(src)
	if len(fileInfos) == 0 {
		return nil, errors.New("no metadata extracted")
	}
	if fileInfos[0].Err != nil {
		return nil, fileInfos[0].Err
	}

	sizes := make(map[string]int64)
	for _, tag := range e.Tags {
		v, ok := fileInfos[0].Fields[tag]
		if !ok {
			continue
		}
		if n, ok := binarySize(v); ok {
			sizes[tag] = n
		}
	}
	return sizes, nil
}

// binarySize parses exiftool's "(Binary data N bytes, use -b option to
// extract)" placeholder.
func binarySize(v interface{}) (int64, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	var n int64
	if _, err := fmt.Sscanf(s, "(Binary data %d bytes", &n); err != nil {
		return 0, false
	}
	return n, true
}
