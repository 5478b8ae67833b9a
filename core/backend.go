// Package core defines the backend contract, the processing context, the
// typed processor registry with its chain builder, and the point-of-interest
// crop geometry shared by every engine adapter.
package core

import (
	"context"
	"io"
)

// Image is the engine-owned, in-memory representation of a decoded image.
// Concrete types live in the backend packages; the core never constructs
// one directly.  Ownership is exclusive per call chain: each processor
// receives one handle and returns one handle.
type Image interface {
	Width() int
	Height() int
}

// Source abstracts where raw image bytes come from.  Exactly one field is
// consulted, in order: Path, Reader, Data.
type Source struct {
	Path   string
	Reader io.Reader
	Data   []byte
}

// FromPath builds a Source reading from the filesystem.
func FromPath(path string) Source { return Source{Path: path} }

// FromReader builds a Source draining an io.Reader.
func FromReader(r io.Reader) Source { return Source{Reader: r} }

// FromBytes builds a Source over an in-memory buffer.
func FromBytes(data []byte) Source { return Source{Data: data} }

// Backend is the capability contract implemented once per native engine.
// Exactly one backend is active per process; see the root package for
// selection and the test-only reset hook.
type Backend interface {
	// Name returns the engine identifier ("raster" or "vips").
	Name() string

	// Open decodes src into a native handle.  Sources that are not
	// recognizable images, or are truncated, fail with a decode error.
	Open(ctx context.Context, src Source) (Image, error)

	// Save writes a complete encoding of img in the given format to w,
	// honoring the applicable options.  It never leaves a partial output
	// behind an error.
	Save(ctx context.Context, img Image, w io.Writer, format Format, opts *SaveOptions) error

	// VerifySupported actively exercises decode/encode machinery rather
	// than trusting the container format: it downscales to a small
	// thumbnail, forces a three-channel conversion, and re-encodes in the
	// image's own detected format plus two others.  Any failure is
	// reported as a decode-category error.
	VerifySupported(ctx context.Context, img Image) error

	// DetectedFormat returns the format recorded at decode time,
	// defaulting to JPEG when undeterminable.
	DetectedFormat(img Image) Format

	// Extension looks up the file extension for a format tag.
	Extension(f Format) string

	// Processors returns this engine's processor registry.
	Processors() *Registry
}
