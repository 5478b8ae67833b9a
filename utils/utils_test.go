package utils_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/mvarner/imagechain/core"
	"github.com/mvarner/imagechain/utils"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want core.Format
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, core.FormatJPEG},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, core.FormatPNG},
		{"gif87a", []byte("GIF87a"), core.FormatGIF},
		{"gif89a", []byte("GIF89a"), core.FormatGIF},
		{"tiff little endian", []byte{'I', 'I', 0x2A, 0x00}, core.FormatTIFF},
		{"tiff big endian", []byte{'M', 'M', 0x00, 0x2A}, core.FormatTIFF},
		{"bmp", []byte("BM\x00\x00"), core.FormatBMP},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBP"), core.FormatWebP},
		{"unknown", []byte("hello world"), ""},
		{"too short", []byte{0xFF, 0xD8}, ""},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := utils.DetectFormat(tt.data); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name         string
		srcW, srcH   int
		maxW, maxH   int
		wantW, wantH int
	}{
		{"exact ratio downscale", 800, 600, 300, 225, 300, 225},
		{"width bound", 800, 600, 400, 600, 400, 300},
		{"height bound", 800, 600, 800, 150, 200, 150},
		{"never upscale", 100, 100, 300, 300, 100, 100},
		{"equal size untouched", 640, 480, 640, 480, 640, 480},
		{"rounding", 100, 66, 50, 50, 50, 33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := utils.FitWithin(tt.srcW, tt.srcH, tt.maxW, tt.maxH)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("got %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
			if w > tt.srcW || h > tt.srcH {
				t.Errorf("upscaled: %dx%d from %dx%d", w, h, tt.srcW, tt.srcH)
			}
		})
	}
}

func TestDrainReader(t *testing.T) {
	payload := strings.Repeat("abcdefgh", 1000)
	buf, err := utils.DrainReader(context.Background(), strings.NewReader(payload), 64)
	if err != nil {
		t.Fatalf("DrainReader: %v", err)
	}
	defer utils.ReleaseBuffer(buf)
	if buf.String() != payload {
		t.Errorf("drained %d bytes, want %d", buf.Len(), len(payload))
	}
}

func TestDrainReader_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := utils.DrainReader(ctx, strings.NewReader("data"), 4); err == nil {
		t.Fatal("expected context error")
	}
}

func TestLimitedReader(t *testing.T) {
	lr := &utils.LimitedReader{R: strings.NewReader(strings.Repeat("x", 100)), Max: 10}
	data, err := io.ReadAll(lr)
	if err != io.ErrUnexpectedEOF {
		t.Fatalf("err: got %v, want ErrUnexpectedEOF", err)
	}
	if len(data) != 10 {
		t.Errorf("read %d bytes, want 10", len(data))
	}
}

func TestLimitedReader_Unlimited(t *testing.T) {
	lr := &utils.LimitedReader{R: strings.NewReader("abc")}
	data, err := io.ReadAll(lr)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "abc" {
		t.Errorf("got %q", data)
	}
}

// countingWriter records the size of each individual write.
type countingWriter struct {
	sizes []int
	buf   bytes.Buffer
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.sizes = append(c.sizes, len(p))
	return c.buf.Write(p)
}

func TestChunkedWriter(t *testing.T) {
	sink := &countingWriter{}
	cw := &utils.ChunkedWriter{W: sink, ChunkSize: 16}

	payload := bytes.Repeat([]byte{0xAB}, 50)
	n, err := cw.Write(payload)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 50 {
		t.Errorf("n: got %d, want 50", n)
	}
	if !bytes.Equal(sink.buf.Bytes(), payload) {
		t.Error("payload mangled")
	}
	for i, s := range sink.sizes {
		if s > 16 {
			t.Errorf("write %d: size %d exceeds chunk size", i, s)
		}
	}
	if len(sink.sizes) != 4 { // 16+16+16+2
		t.Errorf("write count: got %d, want 4", len(sink.sizes))
	}
}

func TestCloneBytes(t *testing.T) {
	src := []byte{1, 2, 3}
	dst := utils.CloneBytes(src)
	src[0] = 9
	if dst[0] != 1 {
		t.Error("clone shares backing array with source")
	}
}
