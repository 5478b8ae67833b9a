// Package imagechain turns a source raster image into derived variants
// through a declarative, composable processor chain with identical
// semantics across two native engines: an eager raster engine and a lazy
// libvips pipeline engine.
package imagechain

import (
	"context"
	"io"

	"github.com/mvarner/imagechain/core"
)

// Process opens src with the active backend, builds the executable chain
// from the context's processor specification, and applies it.  The
// returned handle is ready to be serialized with Save.  Optional hooks
// observe each named processor.
func Process(ctx context.Context, src core.Source, pc *core.Context, hooks ...core.Hook) (core.Image, error) {
	b, err := Get()
	if err != nil {
		return nil, err
	}
	img, err := b.Open(ctx, src)
	if err != nil {
		return nil, err
	}
	chain, err := b.Processors().BuildObserved(pc.Request.Processors, nil, hooks...)
	if err != nil {
		return nil, err
	}
	return chain(img, pc)
}

// Save serializes img to w in the format and options accumulated in pc.
func Save(ctx context.Context, img core.Image, w io.Writer, pc *core.Context) error {
	b, err := Get()
	if err != nil {
		return err
	}
	return b.Save(ctx, img, w, pc.Save.Format, &pc.Save)
}

// SpecFunc rewrites a processing context before its chain is built.
type SpecFunc func(*core.Context)

// Prepare applies spec functions to pc in order.  Call it before Process;
// the context is sealed once the chain starts executing.
func Prepare(pc *core.Context, fns ...SpecFunc) *core.Context {
	for _, fn := range fns {
		fn(pc)
	}
	return pc
}

// ── Spec constructors ─────────────────────────────────────────────────────────

// Default names the standard normalization pipeline.
func Default() core.Spec { return core.NewSpec("default") }

// Autorotate names the orientation-metadata processor.
func Autorotate() core.Spec { return core.NewSpec("autorotate") }

// Thumbnail names a downscale-only fit into (maxW, maxH).
func Thumbnail(maxW, maxH int) core.Spec { return core.NewSpec("thumbnail", maxW, maxH) }

// Crop names a point-of-interest crop to exactly (width, height).
func Crop(width, height int) core.Spec { return core.NewSpec("crop", width, height) }
