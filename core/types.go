package core

import "strings"

// Format identifies a canonical image format tag (JPEG, PNG, GIF, …).
type Format string

const (
	FormatJPEG Format = "JPEG"
	FormatPNG  Format = "PNG"
	FormatGIF  Format = "GIF"
	FormatTIFF Format = "TIFF"
	FormatWebP Format = "WEBP"
	FormatBMP  Format = "BMP"
	FormatICO  Format = "ICO"
	FormatPDF  Format = "PDF"
	FormatSVG  Format = "SVG"
	FormatHEIF Format = "HEIF"
	FormatHEIC Format = "HEIC"
	FormatAVIF Format = "AVIF"
	FormatJP2  Format = "JP2"
	FormatJ2K  Format = "J2K"
)

// formatExtensions maps canonical format tags to file extensions.
// The table is extend-only; tags not listed fall back to their
// lower-cased name.
var formatExtensions = map[Format]string{
	FormatJPEG:    "jpg",
	FormatPNG:     "png",
	FormatGIF:     "gif",
	FormatTIFF:    "tif",
	Format("TIF"): "tif",
	FormatWebP:    "webp",
	FormatBMP:     "bmp",
	FormatICO:     "ico",
	FormatPDF:     "pdf",
	FormatSVG:     "svg",
	FormatHEIF:    "heif",
	FormatHEIC:    "heic",
	FormatAVIF:    "avif",
	FormatJP2:     "jp2",
	FormatJ2K:     "j2k",
}

// Extension returns the file extension (without dot) for f.
func (f Format) Extension() string {
	if ext, ok := formatExtensions[f]; ok {
		return ext
	}
	return strings.ToLower(string(f))
}

// FormatFromExtension maps a file extension (with or without a leading dot,
// any case) to its canonical format tag.  Extensions outside the table map
// to the upper-cased extension so the fallback in Extension round-trips.
func FormatFromExtension(ext string) Format {
	e := strings.ToLower(strings.TrimPrefix(ext, "."))
	switch e {
	case "jpg", "jpeg":
		return FormatJPEG
	case "tif", "tiff":
		return FormatTIFF
	}
	for f, x := range formatExtensions {
		if x == e {
			return f
		}
	}
	return Format(strings.ToUpper(e))
}

// PPOI is the fractional point of interest a crop centers on.
// Both coordinates are in [0, 1]; (0.5, 0.5) is the image center.
type PPOI struct {
	X float64
	Y float64
}

// SaveOptions accumulates format-specific encoder options while a chain
// runs.  It is the only part of a Context processors may write into.
type SaveOptions struct {
	Format       Format
	Quality      int  // 1-100; 0 = encoder default
	Progressive  bool // progressive JPEG / interlaced output
	Lossless     bool // WEBP lossless mode
	Optimize     bool // extra encoder effort (PNG max compression etc.)
	Compression  int  // PNG zlib level; 0 = encoder default
	ICCProfile   []byte
	Transparency int // GIF transparency index; -1 when absent
}

// Request carries the intent of one processing invocation.  Its fields are
// fixed once the chain starts executing; only pre-chain spec functions
// (websafe / webp overrides) may rewrite them.
type Request struct {
	PPOI       PPOI
	Extension  string // desired output extension, with leading dot
	Processors []Spec
}

// Context is the per-invocation carrier of crop/format intent plus the
// accumulating encode options.  A Context is created once per processing
// request and must not be shared across concurrent requests.
type Context struct {
	Request Request
	Save    SaveOptions
}

// NewContext builds a Context for one invocation.  The save format is
// seeded from the requested extension.
func NewContext(ppoi PPOI, extension string, specs ...Spec) *Context {
	return &Context{
		Request: Request{PPOI: ppoi, Extension: extension, Processors: specs},
		Save: SaveOptions{
			Format:       FormatFromExtension(extension),
			Transparency: -1,
		},
	}
}

// ReseedFormat re-derives the save format from the current extension.
// Spec functions call this after rewriting Request.Extension.
func (c *Context) ReseedFormat() {
	c.Save.Format = FormatFromExtension(c.Request.Extension)
}

// Spec names one processor step, optionally with positional integer
// arguments (crop and thumbnail take width, height).
type Spec struct {
	Name string
	Args []int
}

// NewSpec builds a processor specification.
func NewSpec(name string, args ...int) Spec {
	return Spec{Name: name, Args: args}
}
