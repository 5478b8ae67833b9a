package imagechain_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	imagechain "github.com/mvarner/imagechain"
	"github.com/mvarner/imagechain/config"
	"github.com/mvarner/imagechain/core"
	apperrors "github.com/mvarner/imagechain/errors"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

func newBluePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 50, G: 50, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func useRaster(t *testing.T) {
	t.Helper()
	imagechain.Reset()
	t.Cleanup(imagechain.Reset)
	cfg := config.Default()
	cfg.Backend = config.BackendRaster
	if _, err := imagechain.Select(cfg); err != nil {
		t.Fatalf("Select: %v", err)
	}
}

// ── Backend selection ─────────────────────────────────────────────────────────

func TestSelect_UnknownBackend(t *testing.T) {
	imagechain.Reset()
	t.Cleanup(imagechain.Reset)

	cfg := config.Default()
	cfg.Backend = "imagemagick"
	_, err := imagechain.Select(cfg)
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if !apperrors.IsCategory(err, apperrors.CategoryConfig) {
		t.Errorf("category: got %v, want config", err)
	}
	if !errors.Is(err, apperrors.ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}
}

func TestSelect_Memoized(t *testing.T) {
	useRaster(t)

	first, err := imagechain.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	// A later request for a different backend returns the pinned one.
	other := config.Default()
	other.Backend = "imagemagick"
	second, err := imagechain.Select(other)
	if err != nil {
		t.Fatalf("Select after pin: %v", err)
	}
	if first != second {
		t.Error("selection should be memoized for the process lifetime")
	}
}

func TestReset_AllowsReselection(t *testing.T) {
	useRaster(t)
	imagechain.Reset()

	cfg := config.Default()
	cfg.Backend = "RASTER" // case-insensitive
	b, err := imagechain.Select(cfg)
	if err != nil {
		t.Fatalf("Select after Reset: %v", err)
	}
	if b.Name() != config.BackendRaster {
		t.Errorf("backend: got %s", b.Name())
	}
}

// ── Spec function overrides ───────────────────────────────────────────────────

func TestWebsafe_RewritesUnacceptedExtension(t *testing.T) {
	pc := imagechain.Prepare(
		core.NewContext(core.PPOI{X: 0.5, Y: 0.5}, ".bmp"),
		imagechain.Websafe([]core.Spec{imagechain.Default()}),
	)

	if pc.Request.Extension != ".jpg" {
		t.Errorf("extension: got %q, want .jpg", pc.Request.Extension)
	}
	if pc.Save.Format != core.FormatJPEG {
		t.Errorf("format: got %s, want JPEG", pc.Save.Format)
	}
	want := []string{"force_jpeg", "default"}
	if len(pc.Request.Processors) != len(want) {
		t.Fatalf("processors: got %v", pc.Request.Processors)
	}
	for i, spec := range pc.Request.Processors {
		if spec.Name != want[i] {
			t.Errorf("processors[%d]: got %q, want %q", i, spec.Name, want[i])
		}
	}
}

func TestWebsafe_AcceptedExtensionUnchanged(t *testing.T) {
	for _, ext := range []string{".png", ".gif", ".jpg", ".jpeg", ".PNG"} {
		pc := imagechain.Prepare(
			core.NewContext(core.PPOI{}, ext),
			imagechain.Websafe([]core.Spec{imagechain.Default()}),
		)
		if pc.Request.Extension != ext {
			t.Errorf("%s: extension rewritten to %q", ext, pc.Request.Extension)
		}
		if len(pc.Request.Processors) != 1 || pc.Request.Processors[0].Name != "default" {
			t.Errorf("%s: processors rewritten: %v", ext, pc.Request.Processors)
		}
	}
}

func TestWebsafe_CustomAcceptedSet(t *testing.T) {
	pc := imagechain.Prepare(
		core.NewContext(core.PPOI{}, ".png"),
		imagechain.Websafe(nil, ".gif"),
	)
	if pc.Request.Extension != ".jpg" {
		t.Errorf("extension: got %q, want .jpg", pc.Request.Extension)
	}
}

func TestWebP_AlwaysRewrites(t *testing.T) {
	pc := imagechain.Prepare(
		core.NewContext(core.PPOI{}, ".png"),
		imagechain.WebP([]core.Spec{imagechain.Default(), imagechain.Thumbnail(100, 100)}),
	)

	if pc.Request.Extension != ".webp" {
		t.Errorf("extension: got %q, want .webp", pc.Request.Extension)
	}
	if pc.Save.Format != core.FormatWebP {
		t.Errorf("format: got %s, want WEBP", pc.Save.Format)
	}
	if len(pc.Request.Processors) != 3 || pc.Request.Processors[0].Name != "force_webp" {
		t.Errorf("processors: got %v", pc.Request.Processors)
	}
}

// ── Facade ────────────────────────────────────────────────────────────────────

func TestProcess_EndToEnd(t *testing.T) {
	useRaster(t)
	raw := newBluePNG(t, 800, 600)

	pc := core.NewContext(core.PPOI{X: 0.5, Y: 0.5}, ".png",
		imagechain.Default(),
		imagechain.Thumbnail(300, 225),
	)
	img, err := imagechain.Process(context.Background(), core.FromBytes(raw), pc)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if img.Width() != 300 || img.Height() != 225 {
		t.Errorf("size: got %dx%d, want 300x225", img.Width(), img.Height())
	}

	var out bytes.Buffer
	if err := imagechain.Save(context.Background(), img, &out, pc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if decoded.Bounds().Dx() != 300 || decoded.Bounds().Dy() != 225 {
		t.Errorf("output size: got %v", decoded.Bounds())
	}
}

func TestProcess_WebsafeRewrite(t *testing.T) {
	useRaster(t)
	raw := newBluePNG(t, 200, 200)

	pc := imagechain.Prepare(
		core.NewContext(core.PPOI{X: 0.5, Y: 0.5}, ".bmp"),
		imagechain.Websafe([]core.Spec{imagechain.Default()}),
	)
	img, err := imagechain.Process(context.Background(), core.FromBytes(raw), pc)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if pc.Save.Format != core.FormatJPEG {
		t.Errorf("format: got %s, want JPEG", pc.Save.Format)
	}
	if pc.Save.Quality != 95 {
		t.Errorf("quality: got %d, want 95 from force_jpeg", pc.Save.Quality)
	}

	var out bytes.Buffer
	if err := imagechain.Save(context.Background(), img, &out, pc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// JPEG magic.
	head := out.Bytes()
	if len(head) < 3 || head[0] != 0xFF || head[1] != 0xD8 {
		t.Error("output is not a JPEG")
	}
}

func TestProcess_UnknownProcessor(t *testing.T) {
	useRaster(t)
	raw := newBluePNG(t, 50, 50)

	pc := core.NewContext(core.PPOI{}, ".png", core.NewSpec("sharpen"))
	_, err := imagechain.Process(context.Background(), core.FromBytes(raw), pc)
	if err == nil {
		t.Fatal("expected lookup error")
	}
	if !apperrors.IsCategory(err, apperrors.CategoryLookup) {
		t.Errorf("category: got %v, want lookup", err)
	}
}
