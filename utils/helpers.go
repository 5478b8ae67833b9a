package utils

import (
	"math"

	"github.com/mvarner/imagechain/core"
)

// DetectFormat sniffs the leading bytes of data and returns the image
// format, or "" when unrecognized.
func DetectFormat(data []byte) core.Format {
	if len(data) < 4 {
		return ""
	}
	switch {
	// JPEG: FF D8 FF
	case data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return core.FormatJPEG
	// PNG: 89 50 4E 47
	case data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47:
		return core.FormatPNG
	// GIF87a / GIF89a
	case data[0] == 'G' && data[1] == 'I' && data[2] == 'F' && data[3] == '8':
		return core.FormatGIF
	// TIFF: II*\0 or MM\0*
	case data[0] == 'I' && data[1] == 'I' && data[2] == 0x2A && data[3] == 0x00,
		data[0] == 'M' && data[1] == 'M' && data[2] == 0x00 && data[3] == 0x2A:
		return core.FormatTIFF
	// BMP
	case data[0] == 'B' && data[1] == 'M':
		return core.FormatBMP
	// WebP: RIFF....WEBP
	case len(data) >= 12 &&
		data[0] == 'R' && data[1] == 'I' && data[2] == 'F' && data[3] == 'F' &&
		data[8] == 'W' && data[9] == 'E' && data[10] == 'B' && data[11] == 'P':
		return core.FormatWebP
	}
	return ""
}

// FitWithin computes the dimensions of a downscale-only fit of (srcW, srcH)
// into (maxW, maxH): scale factor f = min(1, maxW/srcW, maxH/srcH), rounded
// result, never upscaling.
func FitWithin(srcW, srcH, maxW, maxH int) (int, int) {
	f := math.Min(1, math.Min(
		float64(maxW)/float64(srcW),
		float64(maxH)/float64(srcH),
	))
	return int(math.Round(f * float64(srcW))), int(math.Round(f * float64(srcH)))
}

// CloneBytes returns a copy of b (safe for use after the source buffer is
// released).
func CloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
