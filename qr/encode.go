// Package qr renders QR symbols to PNG and orchestrates a single generation:
// render, rescale, persist and inline-encode.
package qr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/nfnt/resize"
	"github.com/skip2/go-qrcode"
)

// ModulePixels is the native pixel width of one QR module. Together with the
// library's fixed 4-module quiet zone this determines the native image size.
const ModulePixels = 10

// ErrEmptyContent is returned when there is nothing to encode.
var ErrEmptyContent = errors.New("qr content is empty")

// Render builds a QR symbol for content at the lowest error-correction level
// and rasterises it at ModulePixels per module, quiet zone included.
func Render(content string) (image.Image, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	q, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return nil, fmt.Errorf("encode qr symbol: %w", err)
	}
	return q.Image(-ModulePixels), nil
}

// Scale resizes img to exactly size x size pixels using nearest-neighbour
// sampling, so module edges stay sharp. Aspect ratio is not preserved.
func Scale(img image.Image, size int) (image.Image, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid size %d: must be positive", size)
	}
	b := img.Bounds()
	if b.Dx() == size && b.Dy() == size {
		return img, nil
	}
	return resize.Resize(uint(size), uint(size), img, resize.NearestNeighbor), nil
}

// EncodePNG serialises img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPNG renders content and returns its PNG encoding along with the
// image's edge length. The image is rescaled to size x size only when size
// differs both from defaultSize and from the native render width, so a
// request for the default size yields the native image.
func RenderPNG(content string, size, defaultSize int) ([]byte, int, error) {
	img, err := Render(content)
	if err != nil {
		return nil, 0, err
	}

	if native := img.Bounds().Dx(); size != defaultSize && size != native {
		img, err = Scale(img, size)
		if err != nil {
			return nil, 0, fmt.Errorf("resize qr image: %w", err)
		}
	}

	data, err := EncodePNG(img)
	if err != nil {
		return nil, 0, err
	}
	return data, img.Bounds().Dx(), nil
}
