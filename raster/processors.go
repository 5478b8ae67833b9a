package raster

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"

	"github.com/mvarner/imagechain/config"
	"github.com/mvarner/imagechain/core"
	"github.com/mvarner/imagechain/utils"
)

// newRegistry builds the raster processor registry.
func newRegistry(b *Backend) *core.Registry {
	r := core.NewRegistry(config.BackendRaster)
	r.Register("default", b.defaultProcessor)
	r.Register("autorotate", autorotate)
	r.Register("process_jpeg", processJPEG)
	r.Register("process_png", processPNG)
	r.Register("process_gif", processGIF)
	r.Register("preserve_icc_profile", preserveICCProfile)
	r.Register("thumbnail", thumbnail)
	r.Register("crop", crop)
	core.RegisterOverrides(r)
	return r
}

// defaultProcessor composes the standard normalization pipeline.
func (b *Backend) defaultProcessor(next core.Transform, _ []int) (core.Transform, error) {
	return b.registry.Build([]core.Spec{
		{Name: "preserve_icc_profile"},
		{Name: "process_gif"},
		{Name: "process_png"},
		{Name: "process_jpeg"},
		{Name: "autorotate"},
	}, next)
}

// autorotate applies the EXIF orientation, then clears it.
func autorotate(next core.Transform, _ []int) (core.Transform, error) {
	return func(img core.Image, pc *core.Context) (core.Image, error) {
		ri, err := handle(img)
		if err != nil {
			return nil, err
		}
		out := ri
		if ri.orientation > 1 {
			out = ri.withImage(applyOrientation(ri.img, ri.orientation))
			out.orientation = 0
		}
		return next(out, pc)
	}, nil
}

func applyOrientation(m image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(m)
	case 3:
		return imaging.Rotate180(m)
	case 4:
		return imaging.FlipV(m)
	case 5:
		return imaging.Transpose(m)
	case 6:
		return imaging.Rotate270(m)
	case 7:
		return imaging.Transverse(m)
	case 8:
		return imaging.Rotate90(m)
	}
	return m
}

// processJPEG forces three-channel colour and sets quality/progressive
// options when the output format is JPEG.
func processJPEG(next core.Transform, _ []int) (core.Transform, error) {
	return func(img core.Image, pc *core.Context) (core.Image, error) {
		ri, err := handle(img)
		if err != nil {
			return nil, err
		}
		out := ri
		if pc.Save.Format == core.FormatJPEG {
			pc.Save.Quality = 90
			pc.Save.Progressive = true
			if !isThreeChannel(ri.img) {
				out = ri.withImage(forceRGB(ri.img))
			}
		}
		return next(out, pc)
	}, nil
}

func isThreeChannel(m image.Image) bool {
	switch m.(type) {
	case *image.YCbCr, *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		return true
	}
	return false
}

func forceRGB(m image.Image) image.Image {
	b := m.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), m, b.Min, draw.Src)
	return dst
}

// processPNG converts palette/indexed and sub-three-channel sources to
// four-channel RGBA when the output format is PNG.
func processPNG(next core.Transform, _ []int) (core.Transform, error) {
	return func(img core.Image, pc *core.Context) (core.Image, error) {
		ri, err := handle(img)
		if err != nil {
			return nil, err
		}
		out := ri
		if pc.Save.Format == core.FormatPNG {
			switch ri.img.(type) {
			case *image.Paletted, *image.Gray, *image.Gray16:
				out = ri.withImage(imaging.Clone(ri.img)) // *image.NRGBA
			}
		}
		return next(out, pc)
	}, nil
}

// processGIF records the transparency index and re-applies the original
// palette after the downstream chain when the output format is GIF.
// Non-GIF outputs pass through unchanged, downstream still runs.
func processGIF(next core.Transform, _ []int) (core.Transform, error) {
	return func(img core.Image, pc *core.Context) (core.Image, error) {
		if pc.Save.Format != core.FormatGIF {
			return next(img, pc)
		}
		ri, err := handle(img)
		if err != nil {
			return nil, err
		}
		if ri.transparency >= 0 {
			pc.Save.Transparency = ri.transparency
		}
		out, err := next(ri, pc)
		if err != nil {
			return nil, err
		}
		ro, err := handle(out)
		if err != nil {
			return nil, err
		}
		if len(ri.palette) > 0 {
			ro = ro.withImage(withPalette(ro.img, ri.palette))
		}
		return ro, nil
	}, nil
}

// withPalette returns m indexed against pal.  An already-paletted image
// keeps its indices and gets the palette swapped back in; anything else is
// re-quantized with error diffusion.
func withPalette(m image.Image, pal color.Palette) *image.Paletted {
	if p, ok := m.(*image.Paletted); ok && len(p.Palette) == len(pal) {
		out := *p
		out.Palette = append(color.Palette(nil), pal...)
		return &out
	}
	b := m.Bounds()
	p := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), pal)
	draw.FloydSteinberg.Draw(p, p.Bounds(), m, b.Min)
	return p
}

// preserveICCProfile copies the embedded colour-profile payload into the
// save options so the encoder re-embeds it.
func preserveICCProfile(next core.Transform, _ []int) (core.Transform, error) {
	return func(img core.Image, pc *core.Context) (core.Image, error) {
		ri, err := handle(img)
		if err != nil {
			return nil, err
		}
		if len(ri.icc) > 0 {
			pc.Save.ICCProfile = utils.CloneBytes(ri.icc)
		}
		return next(ri, pc)
	}, nil
}

// thumbnail is a uniform downscale-only resize: the downstream chain runs
// first, then the result is fitted into the given bounds without ever
// upscaling.
func thumbnail(next core.Transform, args []int) (core.Transform, error) {
	maxW, maxH, err := core.SizeArgs("thumbnail", args)
	if err != nil {
		return nil, err
	}
	return func(img core.Image, pc *core.Context) (core.Image, error) {
		out, err := next(img, pc)
		if err != nil {
			return nil, err
		}
		ri, err := handle(out)
		if err != nil {
			return nil, err
		}
		w, h := utils.FitWithin(ri.Width(), ri.Height(), maxW, maxH)
		if w == ri.Width() && h == ri.Height() {
			return ri, nil
		}
		return ri.withImage(imaging.Resize(ri.img, w, h, imaging.Lanczos)), nil
	}, nil
}

// crop computes the point-of-interest crop box, crops to it, then resizes
// the crop to the exact target dimensions.
func crop(next core.Transform, args []int) (core.Transform, error) {
	targetW, targetH, err := core.SizeArgs("crop", args)
	if err != nil {
		return nil, err
	}
	return func(img core.Image, pc *core.Context) (core.Image, error) {
		out, err := next(img, pc)
		if err != nil {
			return nil, err
		}
		ri, err := handle(out)
		if err != nil {
			return nil, err
		}
		box := core.CalculateCropBox(ri.Width(), ri.Height(), targetW, targetH, pc.Request.PPOI)
		bounds := ri.img.Bounds()
		rect := image.Rect(box.Left, box.Top, box.Left+box.Width, box.Top+box.Height).
			Add(bounds.Min)
		cropped := imaging.Crop(ri.img, rect)
		return ri.withImage(imaging.Resize(cropped, targetW, targetH, imaging.Lanczos)), nil
	}, nil
}
