// Package raster implements the eager raster-object engine: images are
// decoded into stdlib pixel buffers up front and every processor operates
// on the full bitmap.  Codecs come from the stdlib and golang.org/x/image,
// geometry from disintegration/imaging, WEBP encoding from chai2010/webp.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	_ "golang.org/x/image/webp" // register WEBP decoder

	"github.com/mvarner/imagechain/config"
	"github.com/mvarner/imagechain/core"
	apperrors "github.com/mvarner/imagechain/errors"
	"github.com/mvarner/imagechain/utils"
)

// Backend is the raster engine adapter.  Safe for concurrent use; every
// invocation owns its handle and context exclusively.
type Backend struct {
	cfg      config.Config
	registry *core.Registry
}

// New returns a ready raster backend.
func New(cfg config.Config) *Backend {
	if cfg.DefaultQuality <= 0 {
		cfg.DefaultQuality = 85
	}
	if cfg.MaxEncodeBlock <= 0 {
		cfg.MaxEncodeBlock = 64 * 1024
	}
	b := &Backend{cfg: cfg}
	b.registry = newRegistry(b)
	return b
}

func (b *Backend) Name() string { return config.BackendRaster }

// Processors returns the raster processor registry.
func (b *Backend) Processors() *core.Registry { return b.registry }

// Extension looks up the file extension for a format tag.
func (b *Backend) Extension(f core.Format) string { return f.Extension() }

// ── Open ──────────────────────────────────────────────────────────────────────

// Open decodes src eagerly and records the sidecar metadata processors
// rely on: detected format, EXIF orientation, ICC payload, and for GIF the
// palette and transparency index.
func (b *Backend) Open(ctx context.Context, src core.Source) (core.Image, error) {
	data, err := b.readSource(ctx, src)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "raster.open", err)
	}
	if len(data) == 0 {
		return nil, apperrors.New(apperrors.CategoryDecode, "raster.open", apperrors.ErrEmptyInput)
	}

	m, registeredAs, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "raster.open", err)
	}

	format := utils.DetectFormat(data)
	if format == "" {
		format = core.FormatFromExtension(registeredAs)
	}

	ri := &Image{img: m, format: format, transparency: -1}

	switch format {
	case core.FormatJPEG:
		ri.icc = jpegICCProfile(data)
		ri.orientation = exifOrientation(data)
	case core.FormatPNG:
		ri.icc = pngICCProfile(data)
	case core.FormatTIFF:
		ri.orientation = exifOrientation(data)
	}

	if p, ok := m.(*image.Paletted); ok {
		ri.palette = append(ri.palette, p.Palette...)
		ri.transparency = transparentIndex(p.Palette)
	}
	return ri, nil
}

func (b *Backend) readSource(ctx context.Context, src core.Source) ([]byte, error) {
	switch {
	case src.Path != "":
		return os.ReadFile(src.Path)
	case src.Reader != nil:
		r := src.Reader
		if b.cfg.MaxImageBytes > 0 {
			r = &utils.LimitedReader{R: r, Max: b.cfg.MaxImageBytes}
		}
		buf, err := utils.DrainReader(ctx, r, 32*1024)
		if err != nil {
			return nil, err
		}
		data := utils.CloneBytes(buf.Bytes())
		utils.ReleaseBuffer(buf)
		return data, nil
	default:
		return src.Data, nil
	}
}

func exifOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 0
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 0
	}
	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		return 0
	}
	return o
}

// ── Save ──────────────────────────────────────────────────────────────────────

// Save encodes img into w.  The encode is staged through an explicit
// per-call block allowance; a failed attempt is retried exactly once with
// a 16x allowance.  Output is written only after a complete successful
// encode, so a failure never leaves partial bytes in w.
func (b *Backend) Save(ctx context.Context, img core.Image, w io.Writer, format core.Format, opts *core.SaveOptions) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryEncode, "raster.save", err)
	}
	ri, err := handle(img)
	if err != nil {
		return err
	}
	if opts == nil {
		opts = &core.SaveOptions{Transparency: -1}
	}

	block := b.cfg.MaxEncodeBlock
	staged, err := b.encode(ri.img, format, opts, block)
	if err != nil {
		// One bounded retry with an enlarged block allowance.
		staged, err = b.encode(ri.img, format, opts, block*16)
	}
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryEncode, "raster.save", err)
	}

	cw := &utils.ChunkedWriter{W: w, ChunkSize: block}
	if _, err := cw.Write(staged); err != nil {
		return apperrors.Wrap(apperrors.CategoryEncode, "raster.save", err)
	}
	return nil
}

// encode serializes m in the given format into a fresh buffer sized by the
// block allowance.
func (b *Backend) encode(m image.Image, format core.Format, opts *core.SaveOptions, block int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(block)

	quality := opts.Quality
	if quality <= 0 {
		quality = b.cfg.DefaultQuality
	}

	switch format {
	case core.FormatJPEG:
		// Baseline encode; Progressive is honored by the vips engine only.
		if err := jpeg.Encode(&buf, m, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
		if len(opts.ICCProfile) > 0 {
			return spliceJPEGICC(buf.Bytes(), opts.ICCProfile), nil
		}
		return buf.Bytes(), nil

	case core.FormatPNG:
		enc := png.Encoder{CompressionLevel: pngLevel(opts)}
		if err := enc.Encode(&buf, m); err != nil {
			return nil, err
		}
		if len(opts.ICCProfile) > 0 {
			return splicePNGICC(buf.Bytes(), opts.ICCProfile), nil
		}
		return buf.Bytes(), nil

	case core.FormatGIF:
		if err := gif.Encode(&buf, m, &gif.Options{NumColors: 256}); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case core.FormatWebP:
		wopts := &webp.Options{Lossless: opts.Lossless, Quality: float32(quality)}
		if err := webp.Encode(&buf, m, wopts); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case core.FormatTIFF:
		topts := &tiff.Options{Compression: tiff.Deflate}
		if err := tiff.Encode(&buf, m, topts); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case core.FormatBMP:
		if err := bmp.Encode(&buf, m); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, format)
	}
}

func pngLevel(opts *core.SaveOptions) png.CompressionLevel {
	if opts.Optimize || opts.Compression >= 9 {
		return png.BestCompression
	}
	if opts.Compression > 0 {
		return png.DefaultCompression
	}
	return png.DefaultCompression
}

// ── Verify ────────────────────────────────────────────────────────────────────

// VerifySupported exercises the codec machinery instead of trusting the
// container: a 10x10 thumbnail is forced to three channels and re-encoded
// in the image's own detected format plus PNG and TIFF.
func (b *Backend) VerifySupported(ctx context.Context, img core.Image) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryDecode, "raster.verify", err)
	}
	ri, err := handle(img)
	if err != nil {
		return err
	}

	thumb := imaging.Resize(ri.img, 10, 10, imaging.Lanczos)
	rgb := image.NewRGBA(thumb.Bounds())
	draw.Draw(rgb, rgb.Bounds(), thumb, thumb.Bounds().Min, draw.Src)

	opts := &core.SaveOptions{Quality: 90, Transparency: -1}
	for _, f := range []core.Format{b.DetectedFormat(img), core.FormatPNG, core.FormatTIFF} {
		if _, err := b.encode(rgb, f, opts, b.cfg.MaxEncodeBlock); err != nil {
			return apperrors.Wrap(apperrors.CategoryDecode, "raster.verify", err)
		}
	}
	return nil
}

// DetectedFormat returns the format sniffed at decode time, JPEG when
// undeterminable.
func (b *Backend) DetectedFormat(img core.Image) core.Format {
	if ri, ok := img.(*Image); ok && ri.format != "" {
		return ri.format
	}
	return core.FormatJPEG
}

var _ core.Backend = (*Backend)(nil)
