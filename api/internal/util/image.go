package util

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const MaxPixels = 40_000_000

// DecodeImage turns raw bytes into an image. Registered decoders are tried first,
// WebP gets a second chance through libwebp for encodings x/image does not handle.
func DecodeImage(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}
	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		if cfg.Width <= 0 || cfg.Height <= 0 {
			return nil, "", fmt.Errorf("image: %s has zero size", format)
		}
		if cfg.Width*cfg.Height > MaxPixels {
			return nil, "", fmt.Errorf("image: %dx%d exceeds %d pixels", cfg.Width, cfg.Height, MaxPixels)
		}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, format, nil
	}
	if wimg, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
		return wimg, "webp", nil
	}
	return nil, "", fmt.Errorf("image: cannot decode: %w", err)
}

// EncodeForModel downscales img so its longer side is at most maxSide (0 keeps the
// original size) and re-encodes it as PNG.
func EncodeForModel(img image.Image, maxSide int) ([]byte, string, error) {
	if img == nil {
		return nil, "", fmt.Errorf("image: nil")
	}
	if maxSide > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxSide || h > maxSide {
			if w >= h {
				img = imaging.Resize(img, maxSide, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxSide, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, "", fmt.Errorf("image: encode png: %w", err)
	}
	return buf.Bytes(), "image/png", nil
}
