//go:build govips && cgo

package vips

import (
	govips "github.com/davidbyttow/govips/v2/vips"

	"github.com/mvarner/imagechain/config"
	"github.com/mvarner/imagechain/core"
	"github.com/mvarner/imagechain/utils"
)

// newRegistry builds the vips processor registry.
func newRegistry(b *Backend) *core.Registry {
	r := core.NewRegistry(config.BackendVips)
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
		vi, err := handle(img)
		if err != nil {
			return nil, err
		}
		if err := vi.ref.AutoRotate(); err != nil {
			return nil, err
		}
		return next(vi, pc)
	}, nil
}

// processJPEG forces sRGB and sets quality/progressive options when the
// output format is JPEG.
func processJPEG(next core.Transform, _ []int) (core.Transform, error) {
	return func(img core.Image, pc *core.Context) (core.Image, error) {
		vi, err := handle(img)
		if err != nil {
			return nil, err
		}
		if pc.Save.Format == core.FormatJPEG {
			pc.Save.Quality = 90
			pc.Save.Progressive = true
			if vi.ref.Interpretation() != govips.InterpretationSRGB {
				if err := vi.ref.ToColorSpace(govips.InterpretationSRGB); err != nil {
					return nil, err
				}
			}
		}
		return next(vi, pc)
	}, nil
}

// processPNG expands indexed/sub-three-band sources to sRGB with alpha when
// the output format is PNG.
func processPNG(next core.Transform, _ []int) (core.Transform, error) {
	return func(img core.Image, pc *core.Context) (core.Image, error) {
		vi, err := handle(img)
		if err != nil {
			return nil, err
		}
		if pc.Save.Format == core.FormatPNG && vi.ref.Bands() < 3 {
			if err := vi.ref.ToColorSpace(govips.InterpretationSRGB); err != nil {
				return nil, err
			}
			if !vi.ref.HasAlpha() {
				if err := vi.ref.AddAlpha(); err != nil {
					return nil, err
				}
			}
		}
		return next(vi, pc)
	}, nil
}

// processGIF passes through unchanged; the libvips GIF path carries
// transparency and palette through export on its own.
func processGIF(next core.Transform, _ []int) (core.Transform, error) {
	return func(img core.Image, pc *core.Context) (core.Image, error) {
		return next(img, pc)
	}, nil
}

// preserveICCProfile passes through unchanged; libvips re-embeds embedded
// profiles at export time.
func preserveICCProfile(next core.Transform, _ []int) (core.Transform, error) {
	return func(img core.Image, pc *core.Context) (core.Image, error) {
		return next(img, pc)
	}, nil
}

// thumbnail is a uniform downscale-only resize applied after the
// downstream chain.
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
		vi, err := handle(out)
		if err != nil {
			return nil, err
		}
		w, h := utils.FitWithin(vi.Width(), vi.Height(), maxW, maxH)
		if w == vi.Width() && h == vi.Height() {
			return vi, nil
		}
		hscale := float64(w) / float64(vi.Width())
		vscale := float64(h) / float64(vi.Height())
		if err := vi.ref.ResizeWithVScale(hscale, vscale, govips.KernelLanczos3); err != nil {
			return nil, err
		}
		return vi, nil
	}, nil
}

// crop extracts the point-of-interest crop box, then resizes the crop to
// the exact target dimensions.
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
		vi, err := handle(out)
		if err != nil {
			return nil, err
		}
		box := core.CalculateCropBox(vi.Width(), vi.Height(), targetW, targetH, pc.Request.PPOI)
		if err := vi.ref.ExtractArea(box.Left, box.Top, box.Width, box.Height); err != nil {
			return nil, err
		}
		hscale := float64(targetW) / float64(vi.Width())
		vscale := float64(targetH) / float64(vi.Height())
		if err := vi.ref.ResizeWithVScale(hscale, vscale, govips.KernelLanczos3); err != nil {
			return nil, err
		}
		return vi, nil
	}, nil
}
