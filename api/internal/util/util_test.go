package util

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func createTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestSplitDataURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		mime    string
		payload string
		wantErr error
	}{
		{"data uri", "data:image/png;base64,AAAA", "image/png", "AAAA", nil},
		{"upper prefix", "DATA:image/jpeg;base64,BBBB", "image/jpeg", "BBBB", nil},
		{"first comma only", "data:image/png;base64,AA,BB", "image/png", "AA,BB", nil},
		{"no data prefix", "whatever,CCCC", "", "CCCC", nil},
		{"no comma", "data:image/png;base64AAAA", "", "", ErrNoDelimiter},
		{"empty", "", "", "", ErrNoDelimiter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, payload, err := SplitDataURL(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if mime != tt.mime {
				t.Errorf("Expected mime %q, got %q", tt.mime, mime)
			}
			if payload != tt.payload {
				t.Errorf("Expected payload %q, got %q", tt.payload, payload)
			}
		})
	}
}

func TestDecodeBase64(t *testing.T) {
	raw := []byte{0xfb, 0xff, 0xfe, 0x01}

	std := base64.StdEncoding.EncodeToString(raw)
	got, err := DecodeBase64(std)
	if err != nil || !bytes.Equal(got, raw) {
		t.Errorf("std: got %v, %v", got, err)
	}

	url := base64.URLEncoding.EncodeToString(raw)
	got, err = DecodeBase64(url)
	if err != nil || !bytes.Equal(got, raw) {
		t.Errorf("url-safe: got %v, %v", got, err)
	}

	if _, err := DecodeBase64("!!!not base64!!!"); err == nil {
		t.Error("Expected error for invalid base64")
	}
	if _, err := DecodeBase64(""); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("Expected ErrEmptyImage, got %v", err)
	}
}

func TestDecodeImage(t *testing.T) {
	data := createTestPNG(t, 40, 20)

	img, format, err := DecodeImage(data)
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}
	if format != "png" {
		t.Errorf("Expected format png, got %s", format)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 20 {
		t.Errorf("Expected 40x20, got %v", img.Bounds())
	}

	if _, _, err := DecodeImage([]byte("definitely not an image")); err == nil {
		t.Error("Expected error for corrupt bytes")
	}
	if _, _, err := DecodeImage(data[:len(data)/2]); err == nil {
		t.Error("Expected error for truncated png")
	}
}

func TestEncodeForModel(t *testing.T) {
	img, _, err := DecodeImage(createTestPNG(t, 300, 100))
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}

	out, mime, err := EncodeForModel(img, 150)
	if err != nil {
		t.Fatalf("EncodeForModel failed: %v", err)
	}
	if mime != "image/png" {
		t.Errorf("Expected image/png, got %s", mime)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not png: %v", err)
	}
	if cfg.Width != 150 || cfg.Height != 50 {
		t.Errorf("Expected 150x50, got %dx%d", cfg.Width, cfg.Height)
	}

	out, _, err = EncodeForModel(img, 0)
	if err != nil {
		t.Fatalf("EncodeForModel failed: %v", err)
	}
	cfg, _ = png.DecodeConfig(bytes.NewReader(out))
	if cfg.Width != 300 || cfg.Height != 100 {
		t.Errorf("Expected original 300x100, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestStripCodeFences(t *testing.T) {
	in := "```json\n[{\"expr\":\"1+1\"}]\n```"
	if got := StripCodeFences(in); got != `[{"expr":"1+1"}]` {
		t.Errorf("got %q", got)
	}
	if got := StripCodeFences("  plain  "); got != "plain" {
		t.Errorf("got %q", got)
	}
}

func TestPickMIME(t *testing.T) {
	if got := PickMIME("image/gif", "image/webp", nil); got != "image/gif" {
		t.Errorf("Expected explicit MIME to win, got %s", got)
	}
	if got := PickMIME("", "image/webp", nil); got != "image/webp" {
		t.Errorf("Expected hint to win, got %s", got)
	}
	if got := PickMIME("", "", createTestPNG(t, 2, 2)); got != "image/png" {
		t.Errorf("Expected sniffed image/png, got %s", got)
	}
	if got := PickMIME("", "", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10}); got != "image/jpeg" {
		t.Errorf("Expected sniffed image/jpeg, got %s", got)
	}
	if got := PickMIME("", "", nil); got != "image/png" {
		t.Errorf("Expected image/png default, got %s", got)
	}
}
