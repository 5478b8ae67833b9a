package core

import "math"

// CropBox is an axis-aligned rectangle within source image bounds.
type CropBox struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// CalculateCropBox computes the crop rectangle for a (targetW, targetH)
// crop of a (srcW, srcH) image centered on the point of interest.
//
// The box always has the target aspect ratio (within integer rounding) and
// spans the full height when the source is relatively wider than the
// target, or the full width when it is relatively taller.  The free axis is
// centered on the point of interest and clamped into bounds, low edge
// first, so a point of interest near either edge degrades to a
// boundary-aligned crop.
func CalculateCropBox(srcW, srcH, targetW, targetH int, ppoi PPOI) CropBox {
	targetRatio := float64(targetW) / float64(targetH)
	srcRatio := float64(srcW) / float64(srcH)

	if srcRatio >= targetRatio {
		// Source relatively wider: full height, slide horizontally.
		cropW := int(math.Round(targetRatio * float64(srcH)))
		if cropW > srcW {
			cropW = srcW
		}
		centerX := int(math.Round(float64(srcW) * ppoi.X))
		left := centerX - cropW/2
		if left < 0 {
			left = 0
		}
		if left > srcW-cropW {
			left = srcW - cropW
		}
		return CropBox{Left: left, Top: 0, Width: cropW, Height: srcH}
	}

	// Source relatively taller: full width, slide vertically.
	cropH := int(math.Round(float64(srcW) / targetRatio))
	if cropH > srcH {
		cropH = srcH
	}
	centerY := int(math.Round(float64(srcH) * ppoi.Y))
	top := centerY - cropH/2
	if top < 0 {
		top = 0
	}
	if top > srcH-cropH {
		top = srcH - cropH
	}
	return CropBox{Left: 0, Top: top, Width: srcW, Height: cropH}
}
