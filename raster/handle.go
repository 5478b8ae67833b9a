package raster

import (
	"image"
	"image/color"

	"github.com/mvarner/imagechain/core"
	apperrors "github.com/mvarner/imagechain/errors"
)

// Image is the raster engine's native handle: a decoded pixel buffer plus
// the sidecar metadata the built-in processors need (EXIF orientation, ICC
// payload, GIF palette and transparency index).
type Image struct {
	img          image.Image
	format       core.Format
	orientation  int // EXIF orientation 1-8; 0 when absent
	icc          []byte
	palette      color.Palette // original GIF palette; nil otherwise
	transparency int           // GIF transparency index; -1 when absent
}

func (r *Image) Width() int  { return r.img.Bounds().Dx() }
func (r *Image) Height() int { return r.img.Bounds().Dy() }

// Native returns the underlying pixel buffer.
func (r *Image) Native() image.Image { return r.img }

// Orientation returns the EXIF orientation recorded at decode time.
func (r *Image) Orientation() int { return r.orientation }

// withImage returns a handle carrying m with this handle's metadata.
func (r *Image) withImage(m image.Image) *Image {
	out := *r
	out.img = m
	return &out
}

// handle asserts that img was opened by this backend.
func handle(img core.Image) (*Image, error) {
	ri, ok := img.(*Image)
	if !ok || ri == nil {
		return nil, apperrors.New(apperrors.CategoryInput, "raster.handle",
			apperrors.ErrWrongBackendImage)
	}
	return ri, nil
}

// transparentIndex returns the index of the transparent palette entry, or
// -1 when the palette is fully opaque.
func transparentIndex(pal color.Palette) int {
	for i, c := range pal {
		if _, _, _, a := c.RGBA(); a == 0 {
			return i
		}
	}
	return -1
}
