//go:build govips && cgo

// Package vips implements the lazy pipeline engine on libvips via govips.
// Operations queue inside libvips and pixels materialize only at export
// time.  The adapter is compiled in under the govips build tag; without it
// backend selection fails with a dependency error.
package vips

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"

	govips "github.com/davidbyttow/govips/v2/vips"

	"github.com/mvarner/imagechain/config"
	"github.com/mvarner/imagechain/core"
	apperrors "github.com/mvarner/imagechain/errors"
	"github.com/mvarner/imagechain/utils"
)

var startupOnce sync.Once

// Image wraps a libvips image reference.
type Image struct {
	ref *govips.ImageRef
}

func (v *Image) Width() int  { return v.ref.Width() }
func (v *Image) Height() int { return v.ref.Height() }

// Ref exposes the underlying reference for advanced use.
func (v *Image) Ref() *govips.ImageRef { return v.ref }

func handle(img core.Image) (*Image, error) {
	vi, ok := img.(*Image)
	if !ok || vi == nil {
		return nil, apperrors.New(apperrors.CategoryInput, "vips.handle",
			apperrors.ErrWrongBackendImage)
	}
	return vi, nil
}

// Backend is the vips engine adapter.
type Backend struct {
	cfg      config.Config
	registry *core.Registry
}

// New initializes libvips (once per process) and returns a ready backend.
func New(cfg config.Config) (core.Backend, error) {
	if cfg.DefaultQuality <= 0 {
		cfg.DefaultQuality = 85
	}
	workers := cfg.VipsWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	startupOnce.Do(func() {
		govips.Startup(&govips.Config{
			ConcurrencyLevel: workers,
			MaxCacheMem:      cfg.VipsCacheMB * 1024 * 1024,
			ReportLeaks:      cfg.ReportLeaks,
		})
	})
	b := &Backend{cfg: cfg}
	b.registry = newRegistry(b)
	return b, nil
}

// Shutdown releases all libvips resources.  Call once at process exit.
func Shutdown() { govips.Shutdown() }

func (b *Backend) Name() string { return config.BackendVips }

// Processors returns the vips processor registry.
func (b *Backend) Processors() *core.Registry { return b.registry }

// Extension looks up the file extension for a format tag.
func (b *Backend) Extension(f core.Format) string { return f.Extension() }

// ── Open ──────────────────────────────────────────────────────────────────────

func (b *Backend) Open(ctx context.Context, src core.Source) (core.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "vips.open", err)
	}

	var (
		ref *govips.ImageRef
		err error
	)
	switch {
	case src.Path != "":
		ref, err = govips.NewImageFromFile(src.Path)
	case src.Reader != nil:
		var r io.Reader = src.Reader
		if b.cfg.MaxImageBytes > 0 {
			r = &utils.LimitedReader{R: r, Max: b.cfg.MaxImageBytes}
		}
		buf, derr := utils.DrainReader(ctx, r, 32*1024)
		if derr != nil {
			return nil, apperrors.Wrap(apperrors.CategoryDecode, "vips.open", derr)
		}
		data := utils.CloneBytes(buf.Bytes())
		utils.ReleaseBuffer(buf)
		ref, err = govips.NewImageFromBuffer(data)
	case len(src.Data) > 0:
		ref, err = govips.NewImageFromBuffer(src.Data)
	default:
		return nil, apperrors.New(apperrors.CategoryDecode, "vips.open", apperrors.ErrEmptyInput)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "vips.open", err)
	}
	runtime.SetFinalizer(ref, func(r *govips.ImageRef) { r.Close() })
	return &Image{ref: ref}, nil
}

// ── Save ──────────────────────────────────────────────────────────────────────

// Save exports img in the given format.  libvips re-embeds ICC profiles on
// its own, so SaveOptions.ICCProfile needs no handling here.
func (b *Backend) Save(ctx context.Context, img core.Image, w io.Writer, format core.Format, opts *core.SaveOptions) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryEncode, "vips.save", err)
	}
	vi, err := handle(img)
	if err != nil {
		return err
	}
	if opts == nil {
		opts = &core.SaveOptions{Transparency: -1}
	}

	data, err := b.export(vi.ref, format, opts)
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryEncode, "vips.save", err)
	}
	if _, err := w.Write(data); err != nil {
		return apperrors.Wrap(apperrors.CategoryEncode, "vips.save", err)
	}
	return nil
}

func (b *Backend) export(ref *govips.ImageRef, format core.Format, opts *core.SaveOptions) ([]byte, error) {
	quality := opts.Quality
	if quality <= 0 {
		quality = b.cfg.DefaultQuality
	}

	switch format {
	case core.FormatJPEG:
		ep := govips.NewJpegExportParams()
		ep.Quality = quality
		ep.Interlace = opts.Progressive
		ep.OptimizeCoding = opts.Optimize
		data, _, err := ref.ExportJpeg(ep)
		return data, err

	case core.FormatPNG:
		ep := govips.NewPngExportParams()
		if opts.Compression > 0 {
			ep.Compression = opts.Compression
		} else if opts.Optimize {
			ep.Compression = 9
		}
		ep.Interlace = opts.Progressive
		data, _, err := ref.ExportPng(ep)
		return data, err

	case core.FormatWebP:
		ep := govips.NewWebpExportParams()
		ep.Quality = quality
		ep.Lossless = opts.Lossless
		data, _, err := ref.ExportWebp(ep)
		return data, err

	case core.FormatGIF:
		ep := govips.NewGifExportParams()
		data, _, err := ref.ExportGIF(ep)
		return data, err

	case core.FormatTIFF:
		ep := govips.NewTiffExportParams()
		data, _, err := ref.ExportTiff(ep)
		return data, err

	case core.FormatHEIF, core.FormatHEIC:
		ep := govips.NewHeifExportParams()
		ep.Quality = quality
		data, _, err := ref.ExportHeif(ep)
		return data, err

	case core.FormatAVIF:
		ep := govips.NewAvifExportParams()
		ep.Quality = quality
		data, _, err := ref.ExportAvif(ep)
		return data, err

	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, format)
	}
}

// ── Verify ────────────────────────────────────────────────────────────────────

// VerifySupported exercises the pipeline on a copy of the reference: small
// thumbnail, forced sRGB conversion, re-export in the detected format plus
// PNG and TIFF.
func (b *Backend) VerifySupported(ctx context.Context, img core.Image) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryDecode, "vips.verify", err)
	}
	vi, err := handle(img)
	if err != nil {
		return err
	}

	probe, err := vi.ref.Copy()
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryDecode, "vips.verify", err)
	}
	defer probe.Close()

	if err := probe.Thumbnail(10, 10, govips.InterestingNone); err != nil {
		return apperrors.Wrap(apperrors.CategoryDecode, "vips.verify", err)
	}
	if err := probe.ToColorSpace(govips.InterpretationSRGB); err != nil {
		return apperrors.Wrap(apperrors.CategoryDecode, "vips.verify", err)
	}

	opts := &core.SaveOptions{Quality: 90, Transparency: -1}
	for _, f := range []core.Format{b.DetectedFormat(img), core.FormatPNG, core.FormatTIFF} {
		if _, err := b.export(probe, f, opts); err != nil {
			return apperrors.Wrap(apperrors.CategoryDecode, "vips.verify", err)
		}
	}
	return nil
}

// DetectedFormat derives the format tag from the loader metadata, JPEG
// when undeterminable.
func (b *Backend) DetectedFormat(img core.Image) core.Format {
	vi, ok := img.(*Image)
	if !ok {
		return core.FormatJPEG
	}
	switch vi.ref.Format() {
	case govips.ImageTypeJPEG:
		return core.FormatJPEG
	case govips.ImageTypePNG:
		return core.FormatPNG
	case govips.ImageTypeGIF:
		return core.FormatGIF
	case govips.ImageTypeTIFF:
		return core.FormatTIFF
	case govips.ImageTypeWEBP:
		return core.FormatWebP
	case govips.ImageTypeHEIF:
		return core.FormatHEIF
	case govips.ImageTypeAVIF:
		return core.FormatAVIF
	case govips.ImageTypeSVG:
		return core.FormatSVG
	case govips.ImageTypePDF:
		return core.FormatPDF
	case govips.ImageTypeBMP:
		return core.FormatBMP
	case govips.ImageTypeJP2K:
		return core.FormatJP2
	default:
		return core.FormatJPEG
	}
}

var _ core.Backend = (*Backend)(nil)
