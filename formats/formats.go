package formats

import (
	"path/filepath"
	"sort"
	"strings"
)

// FormatType represents a known image format family
type FormatType string

// Known format families
const (
	FormatUnknown FormatType = "unknown"
	FormatJPEG    FormatType = "jpeg"
	FormatPNG     FormatType = "png"
	FormatGIF     FormatType = "gif"
	FormatTIFF    FormatType = "tiff"
	FormatBMP     FormatType = "bmp"
	FormatWEBP    FormatType = "webp"

	// RAW families
	FormatRAF FormatType = "raf"
	FormatARW FormatType = "arw"
	FormatSRF FormatType = "srf"
	FormatCR2 FormatType = "cr2"
	FormatCR3 FormatType = "cr3"
	FormatNEF FormatType = "nef"
	FormatNRW FormatType = "nrw"
	FormatDNG FormatType = "dng"
	FormatORF FormatType = "orf"
	FormatRW2 FormatType = "rw2"
	FormatPEF FormatType = "pef"
	FormatRAW FormatType = "raw"
)

// Vendor profile keys
const (
	VendorFuji  = "fuji"
	VendorSony  = "sony"
	VendorCanon = "canon"
	VendorNikon = "nikon"
)

var formatExtensions = map[string]FormatType{
	"jpg":  FormatJPEG,
	"jpeg": FormatJPEG,
	"png":  FormatPNG,
	"gif":  FormatGIF,
	"tif":  FormatTIFF,
	"tiff": FormatTIFF,
	"bmp":  FormatBMP,
	"webp": FormatWEBP,

	"raf": FormatRAF,
	"arw": FormatARW,
	"srf": FormatSRF,
	"cr2": FormatCR2,
	"cr3": FormatCR3,
	"nef": FormatNEF,
	"nrw": FormatNRW,
	"dng": FormatDNG,
	"orf": FormatORF,
	"rw2": FormatRW2,
	"pef": FormatPEF,
	"raw": FormatRAW,
}

var rawFamilies = map[FormatType]bool{
	FormatRAF: true,
	FormatARW: true,
	FormatSRF: true,
	FormatCR2: true,
	FormatCR3: true,
	FormatNEF: true,
	FormatNRW: true,
	FormatDNG: true,
	FormatORF: true,
	FormatRW2: true,
	FormatPEF: true,
	FormatRAW: true,
}

// Extension returns the lowercase extension of path without the dot,
// or "" when the path has none.
func Extension(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// Classify maps a path to its format family by extension.
func Classify(path string) FormatType {
	format, ok := formatExtensions[Extension(path)]
	if !ok {
		return FormatUnknown
	}
	return format
}

// IsSpecificRawFormat reports whether path carries the given extension.
// The format may be given with or without a leading dot.
func IsSpecificRawFormat(path, format string) bool {
	ext := Extension(path)
	return ext != "" && ext == strings.TrimPrefix(strings.ToLower(format), ".")
}

// IsRawFormat checks if a file is in a camera RAW format
func IsRawFormat(path string) bool {
	return rawFamilies[Classify(path)]
}

// IsTiffFormat checks if a file is in TIFF format
func IsTiffFormat(path string) bool {
	return Classify(path) == FormatTIFF
}

// IsImageFile checks if a file is a supported image based on extension
func IsImageFile(path string) bool {
	return Classify(path) != FormatUnknown
}

// IsRaw reports whether the family is a camera RAW family.
func (f FormatType) IsRaw() bool {
	return rawFamilies[f]
}

// Vendor returns the vendor profile key for a RAW family, or "" when the
// family is decoded with generic settings only.
func (f FormatType) Vendor() string {
	switch f {
	case FormatRAF:
		return VendorFuji
	case FormatARW, FormatSRF:
		return VendorSony
	case FormatCR2, FormatCR3:
		return VendorCanon
	case FormatNEF, FormatNRW:
		return VendorNikon
	default:
		return ""
	}
}

// SupportedRawExtensions returns the RAW extensions, dot-prefixed and sorted
func SupportedRawExtensions() []string {
	extensions := make([]string, 0, len(rawFamilies))
	for ext, format := range formatExtensions {
		if rawFamilies[format] {
			extensions = append(extensions, "."+ext)
		}
	}
	sort.Strings(extensions)
	return extensions
}
